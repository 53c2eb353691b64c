package service

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"

	"pixelens/pkg/model"
)

// A browser that cannot be reached at all is the one journey-fatal condition:
// the result carries a top-level error and no step results.
func TestRunJourneyFatalWhenBrowserUnavailable(t *testing.T) {
	svc := New(Options{DevToolsURL: "http://127.0.0.1:1"}, nil)

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	result := svc.RunJourney(ctx, "homepage", model.JourneyConfig{
		StartURL: "https://shop.example.com",
		Steps:    []model.ValidationStep{{Name: "Load", Action: model.ActionLoadPage}},
	})

	assert.False(t, result.Success)
	assert.Contains(t, result.Error, "journey fatal")
	assert.Empty(t, result.StepResults)
	assert.NotEmpty(t, result.JourneyID)
}
