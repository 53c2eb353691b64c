// Package storage persists journey results to sqlite. It sits on the result
// consumer side: the engine hands over a ValidationResult and never touches
// the database itself.
package storage

import (
	"fmt"
	"strings"
	"time"

	"github.com/glebarez/sqlite"
	"gorm.io/gorm"

	"pixelens/internal/logger"
	"pixelens/pkg/model"
)

type Store struct {
	db  *gorm.DB
	log logger.Logger
}

// JourneyRecord is one persisted journey outcome.
type JourneyRecord struct {
	ID          string `gorm:"primaryKey"`
	TestCase    string `gorm:"index"`
	URL         string
	Success     bool
	Error       string
	ExecutionMS int64
	CreatedAt   time.Time
	Steps       []StepRecord `gorm:"foreignKey:JourneyID;constraint:OnDelete:CASCADE"`
}

// StepRecord is one persisted step outcome. Vendor lists are stored as
// comma-joined labels; they are reporting data, not query targets.
type StepRecord struct {
	ID              uint   `gorm:"primaryKey;autoIncrement"`
	JourneyID       string `gorm:"index"`
	Seq             int
	Name            string
	Action          string
	Success         bool
	Error           string
	ExpectedVendors string
	DetectedVendors string
	PassedVendors   string
	FailedVendors   string
	ExecutionMS     int64
}

// Open opens (creating if needed) the sqlite database at dsn and migrates the
// schema.
func Open(dsn string, log logger.Logger) (*Store, error) {
	if log == nil {
		log = logger.NewNop()
	}
	db, err := gorm.Open(sqlite.Open(dsn), &gorm.Config{Logger: NewGormLogger(log)})
	if err != nil {
		return nil, fmt.Errorf("open sqlite %s: %w", dsn, err)
	}
	if err := db.AutoMigrate(&JourneyRecord{}, &StepRecord{}); err != nil {
		return nil, fmt.Errorf("migrate result schema: %w", err)
	}
	return &Store{db: db, log: log}, nil
}

// SaveResult stores a journey result with its steps.
func (s *Store) SaveResult(result model.ValidationResult) error {
	rec := JourneyRecord{
		ID:          string(result.JourneyID),
		TestCase:    result.TestCase,
		URL:         result.URL,
		Success:     result.Success,
		Error:       result.Error,
		ExecutionMS: result.ExecutionTime.Milliseconds(),
		CreatedAt:   time.Now(),
	}
	for i, sr := range result.StepResults {
		rec.Steps = append(rec.Steps, StepRecord{
			Seq:             i + 1,
			Name:            sr.StepName,
			Action:          sr.Action,
			Success:         sr.Success,
			Error:           sr.Error,
			ExpectedVendors: strings.Join(sr.ExpectedVendors, ","),
			DetectedVendors: strings.Join(sr.DetectedVendors, ","),
			PassedVendors:   strings.Join(sr.PassedVendors, ","),
			FailedVendors:   strings.Join(sr.FailedVendors, ","),
			ExecutionMS:     sr.ExecutionTime.Milliseconds(),
		})
	}
	if err := s.db.Create(&rec).Error; err != nil {
		return fmt.Errorf("save journey %s: %w", rec.ID, err)
	}
	return nil
}

// RecentResults returns the latest persisted journeys, newest first.
func (s *Store) RecentResults(limit int) ([]JourneyRecord, error) {
	if limit <= 0 {
		limit = 20
	}
	var out []JourneyRecord
	err := s.db.Preload("Steps", func(db *gorm.DB) *gorm.DB {
		return db.Order("seq")
	}).Order("created_at desc").Limit(limit).Find(&out).Error
	if err != nil {
		return nil, fmt.Errorf("load recent results: %w", err)
	}
	return out, nil
}

// Close releases the underlying connection pool.
func (s *Store) Close() error {
	db, err := s.db.DB()
	if err != nil {
		return err
	}
	return db.Close()
}
