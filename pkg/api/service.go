package api

import (
	"context"

	"pixelens/internal/logger"
	"pixelens/internal/service"
	"pixelens/pkg/model"
)

// Service is the engine's public surface.
type Service interface {
	// RunJourney executes one journey and always returns a result; failures
	// are reported on the result, never as a raw fault.
	RunJourney(ctx context.Context, testCase string, cfg model.JourneyConfig) model.ValidationResult
}

// Options re-exports the service wiring options.
type Options = service.Options

// NewService creates the engine facade.
func NewService(opts Options, l logger.Logger) Service {
	return service.New(opts, l)
}
