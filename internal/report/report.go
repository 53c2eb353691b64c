// Package report renders journey results for the CLI and file output.
package report

import (
	"encoding/json"
	"fmt"
	"os"

	"github.com/tidwall/sjson"

	"pixelens/pkg/model"
)

// Render produces indented JSON for one result, with derived reporting fields
// patched in on top of the raw structure.
func Render(result model.ValidationResult) ([]byte, error) {
	b, err := json.MarshalIndent(result, "", "  ")
	if err != nil {
		return nil, fmt.Errorf("marshal result: %w", err)
	}

	passed := 0
	for _, sr := range result.StepResults {
		if sr.Success {
			passed++
		}
	}
	b, err = sjson.SetBytes(b, "steps_passed", passed)
	if err != nil {
		return nil, err
	}
	b, err = sjson.SetBytes(b, "steps_total", len(result.StepResults))
	if err != nil {
		return nil, err
	}
	rate := 1.0
	if len(result.StepResults) > 0 {
		rate = float64(passed) / float64(len(result.StepResults))
	}
	b, err = sjson.SetBytes(b, "pass_rate", rate)
	if err != nil {
		return nil, err
	}
	b, err = sjson.SetBytes(b, "execution_seconds", result.ExecutionTime.Seconds())
	if err != nil {
		return nil, err
	}
	// The nanosecond duration is noise once the derived field is present.
	return sjson.DeleteBytes(b, "execution_time")
}

// RenderAll renders several results as one JSON array.
func RenderAll(results []model.ValidationResult) ([]byte, error) {
	out := []byte("[]")
	for i, r := range results {
		b, err := Render(r)
		if err != nil {
			return nil, err
		}
		out, err = sjson.SetRawBytes(out, fmt.Sprintf("%d", i), b)
		if err != nil {
			return nil, err
		}
	}
	return out, nil
}

// Save writes the rendered results to path.
func Save(results []model.ValidationResult, path string) error {
	var (
		b   []byte
		err error
	)
	if len(results) == 1 {
		b, err = Render(results[0])
	} else {
		b, err = RenderAll(results)
	}
	if err != nil {
		return err
	}
	if err := os.WriteFile(path, append(b, '\n'), 0o644); err != nil {
		return fmt.Errorf("write results %s: %w", path, err)
	}
	return nil
}
