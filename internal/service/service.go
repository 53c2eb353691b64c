// Package service wires the engine to its collaborators for one journey at a
// time: browser attach, capture, delegation, validation.
package service

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"

	"pixelens/internal/agent"
	"pixelens/internal/browser"
	"pixelens/internal/capture"
	"pixelens/internal/journey"
	"pixelens/internal/logger"
	"pixelens/pkg/model"
)

// ErrJourneyFatal marks a failure that aborts a journey before any step runs.
var ErrJourneyFatal = errors.New("journey fatal")

// Options configure the collaborators shared by every journey run.
type Options struct {
	DevToolsURL string
	Agent       agent.Config
	Events      chan<- model.Event
}

type Service struct {
	opts  Options
	agent *agent.Client
	log   logger.Logger
}

func New(opts Options, l logger.Logger) *Service {
	if l == nil {
		l = logger.NewNop()
	}
	return &Service{opts: opts, agent: agent.NewClient(opts.Agent, l), log: l}
}

// RunJourney attaches to the browser and executes the journey. Failure to
// obtain a page at all is the one journey-fatal condition: it aborts before
// any step and surfaces on the result's top-level error.
func (s *Service) RunJourney(ctx context.Context, testCase string, cfg model.JourneyConfig) model.ValidationResult {
	start := time.Now()
	page, err := browser.Connect(ctx, s.opts.DevToolsURL, s.log)
	if err != nil {
		s.log.Err(err, "cannot establish browser session", "testCase", testCase)
		return model.ValidationResult{
			JourneyID:     model.JourneyID(uuid.NewString()),
			TestCase:      testCase,
			URL:           cfg.StartURL,
			Success:       false,
			Error:         fmt.Errorf("%w: %v", ErrJourneyFatal, err).Error(),
			ExecutionTime: time.Since(start),
		}
	}
	defer page.Close()

	if headless, herr := page.Headless(ctx); herr == nil && headless != cfg.Headless {
		s.log.Warn("attached browser headless mode differs from configuration",
			"configured", cfg.Headless, "actual", headless)
	}

	runner := journey.NewRunner(pageNavigator{page}, s.agent, s.log, s.opts.Events)
	return runner.Run(ctx, testCase, cfg)
}

// pageNavigator adapts the browser page to the orchestrator's Navigator
// contract.
type pageNavigator struct {
	page *browser.Page
}

func (p pageNavigator) Navigate(ctx context.Context, url string, timeout time.Duration) error {
	return p.page.Navigate(ctx, url, timeout)
}

func (p pageNavigator) CurrentURL(ctx context.Context) (string, error) {
	return p.page.CurrentURL(ctx)
}

func (p pageNavigator) Subscribe() (capture.Stream, error) {
	sub, err := p.page.Subscribe()
	if err != nil {
		return nil, err
	}
	return sub, nil
}
