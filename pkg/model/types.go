package model

import "time"

type JourneyID string
type Vendor = string

// Phase is the journey sub-period a request is attributed to.
type Phase string

const (
	PhasePageLoad        Phase = "page_load"
	PhaseUserInteraction Phase = "user_interaction"
)

// ActionLoadPage is the literal step action handled by direct navigation
// instead of the AI agent.
const ActionLoadPage = "load_page"

// TrackedRequest is one observed network call. Response fields stay nil until
// a response is correlated to it; they are set at most once.
type TrackedRequest struct {
	URL             string            `json:"url"`
	Method          string            `json:"method"`
	Headers         map[string]string `json:"headers"`
	Timestamp       float64           `json:"timestamp"` // seconds since session start
	Phase           Phase             `json:"phase"`
	ResourceType    string            `json:"resourceType"`
	IsTracking      bool              `json:"isTracking"`
	Vendor          Vendor            `json:"vendor,omitempty"`
	StatusCode      *int              `json:"statusCode,omitempty"`
	ResponseHeaders map[string]string `json:"responseHeaders,omitempty"`
	Succeeded       *bool             `json:"succeeded,omitempty"`
}

// TimelineEvent is one tracking request in the chronological session timeline.
type TimelineEvent struct {
	OffsetSeconds float64 `json:"offsetSeconds"`
	Vendor        Vendor  `json:"vendor"`
	URL           string  `json:"url"`
	Phase         Phase   `json:"phase"`
	Succeeded     *bool   `json:"succeeded,omitempty"`
}

// ValidationSummary is the immutable per-session rollup produced when a
// capture session closes.
type ValidationSummary struct {
	TotalRequests     int                         `json:"totalRequests"`
	TrackingRequests  int                         `json:"trackingRequests"`
	PageLoadPixels    int                         `json:"pageLoadPixels"`
	InteractionPixels int                         `json:"interactionPixels"`
	PixelsByVendor    map[Vendor][]TrackedRequest `json:"pixelsByVendor"`
	Timeline          []TimelineEvent             `json:"timeline"`
}

// DetectedVendors returns the vendor labels present in the summary.
func (s ValidationSummary) DetectedVendors() []Vendor {
	out := make([]Vendor, 0, len(s.PixelsByVendor))
	for v := range s.PixelsByVendor {
		out = append(out, v)
	}
	return out
}

// URLParam is an expected query-parameter constraint.
type URLParam struct {
	Name  string `json:"name" yaml:"name"`
	Value string `json:"value" yaml:"value"`
}

// ExpectedPixel is one vendor assertion declared on a step. Vendor is a
// free-text label matched fuzzily, not an enum.
type ExpectedPixel struct {
	Vendor    Vendor     `json:"vendor"`
	URLParams []URLParam `json:"urlParams,omitempty"`
}

// ValidationStep is one journey instruction plus its declared expectations.
type ValidationStep struct {
	Name         string          `json:"name"`
	Action       string          `json:"action"`
	ExpectPixels []ExpectedPixel `json:"expectPixels,omitempty"`
}

// JourneyConfig is the already-parsed input the engine runs against.
type JourneyConfig struct {
	StartURL    string           `json:"startURL"`
	Steps       []ValidationStep `json:"steps"`
	Timeout     time.Duration    `json:"timeout"`
	SettleDelay time.Duration    `json:"settleDelay"`
	Headless    bool             `json:"headless"`
}

// StepResult is the outcome of one step. Success holds iff FailedVendors is
// empty and no step error occurred.
type StepResult struct {
	StepName        string        `json:"step_name"`
	Action          string        `json:"action"`
	ExpectedVendors []Vendor      `json:"expected_pixels"`
	DetectedVendors []Vendor      `json:"detected_pixels"`
	PassedVendors   []Vendor      `json:"passed_pixels"`
	FailedVendors   []Vendor      `json:"failed_pixels"`
	Success         bool          `json:"success"`
	Error           string        `json:"error,omitempty"`
	ExecutionTime   time.Duration `json:"execution_time"`
}

// ValidationResult is the outcome of a whole journey.
type ValidationResult struct {
	JourneyID     JourneyID     `json:"journey_id"`
	TestCase      string        `json:"test_case"`
	URL           string        `json:"url"`
	Success       bool          `json:"success"`
	StepResults   []StepResult  `json:"steps"`
	Error         string        `json:"error,omitempty"`
	ExecutionTime time.Duration `json:"execution_time"`
}

// Event is a real-time notification emitted while a capture session is open.
type Event struct {
	Type      string `json:"type"`
	Vendor    Vendor `json:"vendor,omitempty"`
	URL       string `json:"url"`
	Phase     Phase  `json:"phase"`
	Timestamp int64  `json:"timestamp"`
}

const EventPixelDetected = "pixel_detected"
