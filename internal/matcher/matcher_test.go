package matcher

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"pixelens/pkg/model"
)

func summaryWith(vendor string, urls ...string) model.ValidationSummary {
	sum := model.ValidationSummary{PixelsByVendor: make(map[model.Vendor][]model.TrackedRequest)}
	for _, u := range urls {
		sum.PixelsByVendor[vendor] = append(sum.PixelsByVendor[vendor], model.TrackedRequest{
			URL: u, IsTracking: true, Vendor: vendor,
		})
		sum.TrackingRequests++
		sum.TotalRequests++
	}
	return sum
}

func TestVendorWithoutParamsPasses(t *testing.T) {
	step := model.ValidationStep{
		Name:         "Load homepage",
		Action:       model.ActionLoadPage,
		ExpectPixels: []model.ExpectedPixel{{Vendor: "GA4"}},
	}
	sum := summaryWith("Google Analytics 4", "https://www.google-analytics.com/g/collect?v=2")

	result := ValidateStep(step, sum)
	assert.True(t, result.Success)
	assert.Equal(t, []model.Vendor{"GA4"}, result.PassedVendors)
	assert.Empty(t, result.FailedVendors)
	assert.Equal(t, []model.Vendor{"Google Analytics 4"}, result.DetectedVendors)
}

func TestFuzzyMatchIsSymmetric(t *testing.T) {
	assert.True(t, vendorsMatch("facebook", "Facebook Pixel"))
	assert.True(t, vendorsMatch("Facebook Pixel", "facebook"))
	assert.True(t, vendorsMatch("GA4", "Google Analytics 4"))
	assert.True(t, vendorsMatch("hotjar", "Hotjar"))
	assert.False(t, vendorsMatch("mixpanel", "Amplitude"))
}

func TestMissingVendorFails(t *testing.T) {
	step := model.ValidationStep{
		Name:         "Click CTA",
		Action:       "click the signup button",
		ExpectPixels: []model.ExpectedPixel{{Vendor: "Mixpanel"}},
	}
	sum := summaryWith("Facebook Pixel", "https://facebook.com/tr?ev=PageView")

	result := ValidateStep(step, sum)
	assert.False(t, result.Success)
	assert.Equal(t, []model.Vendor{"Mixpanel"}, result.FailedVendors)
}

func TestParamConstraintSatisfiedByAnyRequest(t *testing.T) {
	step := model.ValidationStep{
		ExpectPixels: []model.ExpectedPixel{{
			Vendor:    "Facebook",
			URLParams: []model.URLParam{{Name: "ev", Value: "Purchase"}},
		}},
	}
	sum := summaryWith("Facebook Pixel",
		"https://facebook.com/tr?ev=PageView",
		"https://facebook.com/tr?ev=Purchase&value=10",
	)

	result := ValidateStep(step, sum)
	assert.True(t, result.Success)
	assert.Equal(t, []model.Vendor{"Facebook"}, result.PassedVendors)
}

func TestParamConstraintValueMismatchFails(t *testing.T) {
	step := model.ValidationStep{
		ExpectPixels: []model.ExpectedPixel{{
			Vendor:    "Facebook",
			URLParams: []model.URLParam{{Name: "ev", Value: "Purchase"}},
		}},
	}
	sum := summaryWith("Facebook Pixel", "https://facebook.com/tr?ev=ViewContent")

	result := ValidateStep(step, sum)
	assert.False(t, result.Success)
	assert.Equal(t, []model.Vendor{"Facebook"}, result.FailedVendors)
}

func TestParamValueIsExactNotSubstring(t *testing.T) {
	step := model.ValidationStep{
		ExpectPixels: []model.ExpectedPixel{{
			Vendor:    "Facebook",
			URLParams: []model.URLParam{{Name: "ev", Value: "Purchase"}},
		}},
	}
	sum := summaryWith("Facebook Pixel", "https://facebook.com/tr?ev=PurchaseIntent")

	result := ValidateStep(step, sum)
	assert.False(t, result.Success)
}

func TestAllParamsMustMatchInOneRequest(t *testing.T) {
	step := model.ValidationStep{
		ExpectPixels: []model.ExpectedPixel{{
			Vendor: "GA4",
			URLParams: []model.URLParam{
				{Name: "utm_source", Value: "newsletter"},
				{Name: "utm_medium", Value: "email"},
			},
		}},
	}
	// Each constraint is satisfied somewhere, but never in the same request.
	sum := summaryWith("Google Analytics 4",
		"https://www.google-analytics.com/g/collect?utm_source=newsletter",
		"https://www.google-analytics.com/g/collect?utm_medium=email",
	)

	result := ValidateStep(step, sum)
	assert.False(t, result.Success)
}

func TestRepeatedParamMatchesAnyValue(t *testing.T) {
	step := model.ValidationStep{
		ExpectPixels: []model.ExpectedPixel{{
			Vendor:    "GA4",
			URLParams: []model.URLParam{{Name: "utm_source", Value: "newsletter"}},
		}},
	}
	sum := summaryWith("Google Analytics 4",
		"https://www.google-analytics.com/g/collect?utm_source=ad&utm_source=newsletter",
	)

	result := ValidateStep(step, sum)
	assert.True(t, result.Success)
}

func TestUnexpectedVendorsNeverFail(t *testing.T) {
	step := model.ValidationStep{
		ExpectPixels: []model.ExpectedPixel{{Vendor: "Facebook"}},
	}
	sum := summaryWith("Facebook Pixel", "https://facebook.com/tr?ev=PageView")
	sum.PixelsByVendor["Hotjar"] = []model.TrackedRequest{{URL: "https://static.hotjar.com/h.js", IsTracking: true, Vendor: "Hotjar"}}

	result := ValidateStep(step, sum)
	assert.True(t, result.Success)
	assert.Contains(t, result.DetectedVendors, "Hotjar")
}

func TestNoExpectationsTriviallySucceeds(t *testing.T) {
	result := ValidateStep(model.ValidationStep{Name: "browse"}, summaryWith("Hotjar", "https://static.hotjar.com/h.js"))
	assert.True(t, result.Success)
	assert.Empty(t, result.PassedVendors)
	assert.Empty(t, result.FailedVendors)
}

func TestDetectedVendorsSorted(t *testing.T) {
	sum := summaryWith("Hotjar", "https://static.hotjar.com/h.js")
	sum.PixelsByVendor["Amplitude"] = []model.TrackedRequest{{URL: "https://api.amplitude.com/2/httpapi", IsTracking: true, Vendor: "Amplitude"}}

	result := ValidateStep(model.ValidationStep{}, sum)
	require.Equal(t, []model.Vendor{"Amplitude", "Hotjar"}, result.DetectedVendors)
}
