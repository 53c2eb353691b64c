// Package journey sequences validation steps against one page, isolating
// per-step failures so a journey always finishes with a full result.
package journey

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"

	"pixelens/internal/capture"
	"pixelens/internal/classifier"
	"pixelens/internal/config"
	"pixelens/internal/logger"
	"pixelens/internal/matcher"
	"pixelens/pkg/model"
)

// Navigator is the browser-automation collaborator: direct navigation plus a
// subscribable page network stream.
type Navigator interface {
	Navigate(ctx context.Context, url string, timeout time.Duration) error
	CurrentURL(ctx context.Context) (string, error)
	Subscribe() (capture.Stream, error)
}

// ActionAgent performs one free-text instruction on the current page.
type ActionAgent interface {
	Perform(ctx context.Context, instruction, pageURL string) error
}

// Runner executes journeys. Steps run strictly sequentially; no two capture
// sessions are ever open at once.
type Runner struct {
	nav    Navigator
	agent  ActionAgent
	cls    *classifier.Classifier
	log    logger.Logger
	events chan<- model.Event
}

func NewRunner(nav Navigator, agent ActionAgent, log logger.Logger, events chan<- model.Event) *Runner {
	if log == nil {
		log = logger.NewNop()
	}
	return &Runner{nav: nav, agent: agent, cls: classifier.Default(), log: log, events: events}
}

// Run executes every step of the journey in declared order and aggregates the
// step results. It never fails with a raw error: configuration problems and
// cancellation surface on the result's top-level error field.
func (r *Runner) Run(ctx context.Context, testCase string, cfg model.JourneyConfig) model.ValidationResult {
	start := time.Now()
	result := model.ValidationResult{
		JourneyID: model.JourneyID(uuid.NewString()),
		TestCase:  testCase,
		URL:       cfg.StartURL,
	}

	if err := config.ValidateJourney(cfg); err != nil {
		result.Error = err.Error()
		result.ExecutionTime = time.Since(start)
		return result
	}

	r.log.Info("starting journey", "journey", string(result.JourneyID), "testCase", testCase, "url", cfg.StartURL, "steps", len(cfg.Steps))

	allPassed := true
	for _, step := range cfg.Steps {
		if ctx.Err() != nil {
			result.Error = fmt.Sprintf("journey cancelled: %v", ctx.Err())
			break
		}
		sr := r.runStep(ctx, step, cfg)
		result.StepResults = append(result.StepResults, sr)
		if !sr.Success {
			allPassed = false
		}
		r.log.Info("step finished", "step", step.Name, "success", sr.Success,
			"passed", sr.PassedVendors, "failed", sr.FailedVendors)
	}

	result.Success = allPassed && result.Error == ""
	result.ExecutionTime = time.Since(start)
	return result
}

// runStep opens a fresh capture session for the step, delegates the action,
// waits the settle interval, and validates whatever traffic arrived. The
// session is released on every exit path, panics included. Because every step
// gets its own session, a free-text step switches to the interaction phase
// before the agent acts: all of its traffic is tagged user_interaction and
// only load_page steps produce page_load pixels.
func (r *Runner) runStep(ctx context.Context, step model.ValidationStep, cfg model.JourneyConfig) (sr model.StepResult) {
	stepStart := time.Now()
	sess := capture.New(r.cls, r.log, r.events)
	closed := false
	defer func() {
		if rec := recover(); rec != nil {
			sr = failedStep(step, fmt.Sprintf("step panic: %v", rec))
		}
		if !closed {
			sess.Close()
			closed = true
		}
		sr.ExecutionTime = time.Since(stepStart)
	}()

	r.log.Info("executing step", "step", step.Name, "action", step.Action)

	stream, err := r.nav.Subscribe()
	if err != nil {
		return failedStep(step, fmt.Sprintf("subscribe page events: %v", err))
	}
	sess.Open(stream)

	// Delegation failures are non-fatal: the step still settles and
	// validates with whatever traffic was captured.
	var delegationErr error
	if strings.EqualFold(step.Action, model.ActionLoadPage) {
		delegationErr = r.nav.Navigate(ctx, cfg.StartURL, cfg.Timeout)
	} else {
		sess.BeginInteractionPhase()
		pageURL, uerr := r.nav.CurrentURL(ctx)
		if uerr != nil {
			pageURL = cfg.StartURL
		}
		delegationErr = r.agent.Perform(ctx, step.Action, pageURL)
	}
	if delegationErr != nil {
		r.log.Warn("action delegation failed", "step", step.Name, "error", delegationErr)
	}

	// Allow async beacons to fire before the session closes.
	if cfg.SettleDelay > 0 {
		select {
		case <-time.After(cfg.SettleDelay):
		case <-ctx.Done():
		}
	}

	summary := sess.Close()
	closed = true

	sr = matcher.ValidateStep(step, summary)
	if delegationErr != nil {
		// A step whose action never completed cannot pass, even when its
		// expectations are empty or happen to be satisfied by earlier
		// traffic. The vendor verdicts are still reported.
		sr.Success = false
		sr.Error = delegationErr.Error()
	}
	return sr
}

func failedStep(step model.ValidationStep, msg string) model.StepResult {
	expected := make([]model.Vendor, 0, len(step.ExpectPixels))
	for _, p := range step.ExpectPixels {
		expected = append(expected, p.Vendor)
	}
	return model.StepResult{
		StepName:        step.Name,
		Action:          step.Action,
		ExpectedVendors: expected,
		Success:         false,
		Error:           msg,
	}
}
