// Package matcher compares a step's declared pixel expectations against the
// summary a capture session produced.
package matcher

import (
	"net/url"
	"sort"
	"strings"

	"pixelens/pkg/model"
)

// ValidateStep produces the step verdict. Each declared expectation is
// validated independently; detected-but-undeclared vendors are reported but
// never fail the step. A step with no expectations trivially succeeds.
func ValidateStep(step model.ValidationStep, summary model.ValidationSummary) model.StepResult {
	result := model.StepResult{
		StepName:        step.Name,
		Action:          step.Action,
		ExpectedVendors: vendorNames(step.ExpectPixels),
		DetectedVendors: detectedVendors(summary),
	}

	for _, expected := range step.ExpectPixels {
		if satisfies(expected, summary) {
			result.PassedVendors = append(result.PassedVendors, expected.Vendor)
		} else {
			result.FailedVendors = append(result.FailedVendors, expected.Vendor)
		}
	}

	result.Success = len(result.FailedVendors) == 0
	return result
}

func satisfies(expected model.ExpectedPixel, summary model.ValidationSummary) bool {
	found := false
	for vendor := range summary.PixelsByVendor {
		if vendorsMatch(expected.Vendor, vendor) {
			found = true
			break
		}
	}
	if !found {
		return false
	}
	if len(expected.URLParams) == 0 {
		return true
	}

	// At least one request from a matching vendor must carry every declared
	// parameter with the expected value; the first such request wins.
	for vendor, requests := range summary.PixelsByVendor {
		if !vendorsMatch(expected.Vendor, vendor) {
			continue
		}
		for i := range requests {
			if requestSatisfies(&requests[i], expected.URLParams) {
				return true
			}
		}
	}
	return false
}

func requestSatisfies(req *model.TrackedRequest, params []model.URLParam) bool {
	u, err := url.Parse(req.URL)
	if err != nil {
		return false
	}
	query := u.Query()
	for _, p := range params {
		if !containsValue(query[p.Name], p.Value) {
			return false
		}
	}
	return true
}

func containsValue(values []string, want string) bool {
	for _, v := range values {
		if v == want {
			return true
		}
	}
	return false
}

// vendorsMatch is a case-insensitive substring match in either direction, so
// shorthand like "facebook" matches "Facebook Pixel" without an alias table.
// Acronym shorthand ("GA4" for "Google Analytics 4") is matched by collapsing
// a multi-word label to its initials, keeping numeric words whole.
func vendorsMatch(expected, detected string) bool {
	e := strings.ToLower(strings.TrimSpace(expected))
	d := strings.ToLower(strings.TrimSpace(detected))
	if e == "" || d == "" {
		return false
	}
	if strings.Contains(d, e) || strings.Contains(e, d) {
		return true
	}
	return acronym(d) == e || acronym(e) == d
}

func acronym(label string) string {
	var b strings.Builder
	for _, word := range strings.Fields(label) {
		if word[0] >= '0' && word[0] <= '9' {
			b.WriteString(word)
		} else {
			b.WriteByte(word[0])
		}
	}
	return b.String()
}

func vendorNames(pixels []model.ExpectedPixel) []model.Vendor {
	out := make([]model.Vendor, 0, len(pixels))
	for _, p := range pixels {
		out = append(out, p.Vendor)
	}
	return out
}

func detectedVendors(summary model.ValidationSummary) []model.Vendor {
	out := summary.DetectedVendors()
	sort.Strings(out)
	return out
}
