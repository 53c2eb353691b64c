package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"pixelens/pkg/model"
)

const sampleYAML = `
default_config:
  timeout: 45
  step_delay: 3
  headless: false

test_cases:
  homepage:
    description: Homepage pixel check
    start_url: https://shop.example.com
    steps:
      - name: Load homepage
        action: load_page
        expect_pixels:
          GA4: {}
          Facebook:
            url_params:
              - name: ev
                value: PageView
  empty_steps:
    start_url: https://shop.example.com
    steps: []
`

func writeConfig(t *testing.T, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "config.yml")
	require.NoError(t, os.WriteFile(path, []byte(content), 0o644))
	return path
}

func TestLoadAndConvert(t *testing.T) {
	f, err := Load(writeConfig(t, sampleYAML))
	require.NoError(t, err)

	cfg, err := f.Journey("homepage")
	require.NoError(t, err)

	assert.Equal(t, "https://shop.example.com", cfg.StartURL)
	assert.Equal(t, 45*time.Second, cfg.Timeout)
	assert.Equal(t, 3*time.Second, cfg.SettleDelay)
	assert.False(t, cfg.Headless)

	require.Len(t, cfg.Steps, 1)
	step := cfg.Steps[0]
	assert.Equal(t, "Load homepage", step.Name)
	assert.Equal(t, model.ActionLoadPage, step.Action)

	// Vendors come out sorted for deterministic reporting.
	require.Len(t, step.ExpectPixels, 2)
	assert.Equal(t, "Facebook", step.ExpectPixels[0].Vendor)
	require.Len(t, step.ExpectPixels[0].URLParams, 1)
	assert.Equal(t, model.URLParam{Name: "ev", Value: "PageView"}, step.ExpectPixels[0].URLParams[0])
	assert.Equal(t, "GA4", step.ExpectPixels[1].Vendor)
	assert.Empty(t, step.ExpectPixels[1].URLParams)
}

func TestJourneyUnknownTestCase(t *testing.T) {
	f, err := Load(writeConfig(t, sampleYAML))
	require.NoError(t, err)

	_, err = f.Journey("missing")
	require.ErrorIs(t, err, ErrConfiguration)
}

func TestJourneyRejectsStepless(t *testing.T) {
	f, err := Load(writeConfig(t, sampleYAML))
	require.NoError(t, err)

	_, err = f.Journey("empty_steps")
	require.ErrorIs(t, err, ErrConfiguration)
}

func TestLoadRejectsEmptyFile(t *testing.T) {
	_, err := Load(writeConfig(t, "default_config: {}\n"))
	require.ErrorIs(t, err, ErrConfiguration)
}

func TestLoadMissingFile(t *testing.T) {
	_, err := Load(filepath.Join(t.TempDir(), "nope.yml"))
	require.Error(t, err)
}

func TestValidateJourney(t *testing.T) {
	valid := model.JourneyConfig{
		StartURL: "https://example.com",
		Steps:    []model.ValidationStep{{Name: "load", Action: model.ActionLoadPage}},
	}
	require.NoError(t, ValidateJourney(valid))

	noURL := valid
	noURL.StartURL = ""
	require.ErrorIs(t, ValidateJourney(noURL), ErrConfiguration)

	noAction := valid
	noAction.Steps = []model.ValidationStep{{Name: "load"}}
	require.ErrorIs(t, ValidateJourney(noAction), ErrConfiguration)

	blankParam := valid
	blankParam.Steps = []model.ValidationStep{{
		Name:   "load",
		Action: model.ActionLoadPage,
		ExpectPixels: []model.ExpectedPixel{{
			Vendor:    "GA4",
			URLParams: []model.URLParam{{Value: "x"}},
		}},
	}}
	require.ErrorIs(t, ValidateJourney(blankParam), ErrConfiguration)
}
