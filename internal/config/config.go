// Package config loads and validates journey definitions. The engine itself
// never touches files; it receives the typed JourneyConfig produced here.
package config

import (
	"errors"
	"fmt"
	"os"
	"sort"
	"time"

	"gopkg.in/yaml.v3"

	"pixelens/pkg/model"
)

// ErrConfiguration marks a malformed or missing journey definition. It is
// surfaced before any step executes.
var ErrConfiguration = errors.New("invalid configuration")

// File is the YAML configuration root.
type File struct {
	DefaultConfig Defaults            `yaml:"default_config"`
	TestCases     map[string]TestCase `yaml:"test_cases"`
}

// Defaults apply to every test case unless overridden by the caller.
type Defaults struct {
	Timeout   int   `yaml:"timeout"`    // seconds
	StepDelay int   `yaml:"step_delay"` // seconds
	Headless  *bool `yaml:"headless"`
}

// TestCase is one named journey.
type TestCase struct {
	Description string `yaml:"description"`
	StartURL    string `yaml:"start_url"`
	Steps       []Step `yaml:"steps"`
}

// Step is one journey instruction. ExpectPixels maps a free-text vendor label
// to its optional parameter constraints.
type Step struct {
	Name         string                      `yaml:"name"`
	Action       string                      `yaml:"action"`
	ExpectPixels map[string]PixelExpectation `yaml:"expect_pixels"`
}

// PixelExpectation holds the declared constraints for one vendor.
type PixelExpectation struct {
	URLParams []model.URLParam `yaml:"url_params"`
}

// Load reads and parses a YAML configuration file.
func Load(path string) (*File, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read config %s: %w", path, err)
	}
	var f File
	if err := yaml.Unmarshal(data, &f); err != nil {
		return nil, fmt.Errorf("%w: parse %s: %v", ErrConfiguration, path, err)
	}
	if len(f.TestCases) == 0 {
		return nil, fmt.Errorf("%w: no test_cases in %s", ErrConfiguration, path)
	}
	return &f, nil
}

// TestCaseNames returns the defined test case names, sorted.
func (f *File) TestCaseNames() []string {
	names := make([]string, 0, len(f.TestCases))
	for name := range f.TestCases {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// Journey converts a named test case into the typed config the engine runs.
func (f *File) Journey(name string) (model.JourneyConfig, error) {
	tc, ok := f.TestCases[name]
	if !ok {
		return model.JourneyConfig{}, fmt.Errorf("%w: test case %q not found", ErrConfiguration, name)
	}

	cfg := model.JourneyConfig{
		StartURL:    tc.StartURL,
		Timeout:     30 * time.Second,
		SettleDelay: 2 * time.Second,
		Headless:    true,
	}
	if f.DefaultConfig.Timeout > 0 {
		cfg.Timeout = time.Duration(f.DefaultConfig.Timeout) * time.Second
	}
	if f.DefaultConfig.StepDelay > 0 {
		cfg.SettleDelay = time.Duration(f.DefaultConfig.StepDelay) * time.Second
	}
	if f.DefaultConfig.Headless != nil {
		cfg.Headless = *f.DefaultConfig.Headless
	}

	for _, s := range tc.Steps {
		cfg.Steps = append(cfg.Steps, model.ValidationStep{
			Name:         s.Name,
			Action:       s.Action,
			ExpectPixels: expectedPixels(s.ExpectPixels),
		})
	}

	if err := ValidateJourney(cfg); err != nil {
		return model.JourneyConfig{}, fmt.Errorf("test case %q: %w", name, err)
	}
	return cfg, nil
}

// expectedPixels converts the vendor map into a tagged list. YAML maps carry
// no order, so vendors are sorted for deterministic reporting.
func expectedPixels(m map[string]PixelExpectation) []model.ExpectedPixel {
	vendors := make([]string, 0, len(m))
	for v := range m {
		vendors = append(vendors, v)
	}
	sort.Strings(vendors)

	out := make([]model.ExpectedPixel, 0, len(vendors))
	for _, v := range vendors {
		out = append(out, model.ExpectedPixel{Vendor: v, URLParams: m[v].URLParams})
	}
	return out
}

// ValidateJourney checks the invariants the engine relies on before any step
// executes.
func ValidateJourney(cfg model.JourneyConfig) error {
	if cfg.StartURL == "" {
		return fmt.Errorf("%w: start_url is required", ErrConfiguration)
	}
	if len(cfg.Steps) == 0 {
		return fmt.Errorf("%w: at least one step is required", ErrConfiguration)
	}
	for i, step := range cfg.Steps {
		if step.Name == "" {
			return fmt.Errorf("%w: step %d has no name", ErrConfiguration, i+1)
		}
		if step.Action == "" {
			return fmt.Errorf("%w: step %q has no action", ErrConfiguration, step.Name)
		}
		for _, p := range step.ExpectPixels {
			if p.Vendor == "" {
				return fmt.Errorf("%w: step %q declares a pixel with no vendor", ErrConfiguration, step.Name)
			}
			for _, param := range p.URLParams {
				if param.Name == "" {
					return fmt.Errorf("%w: step %q vendor %q declares a url param with no name", ErrConfiguration, step.Name, p.Vendor)
				}
			}
		}
	}
	return nil
}
