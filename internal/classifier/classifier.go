package classifier

import "regexp"

// GenericVendor is returned when a URL matches a generic tracking heuristic
// but no vendor-specific rule.
const GenericVendor = "Generic Tracking"

// vendorRule attributes a URL to a vendor. Rules are evaluated in declared
// order and the first match wins; exclude carves out overlapping patterns
// owned by an earlier rule (Go regexp has no negative lookahead).
type vendorRule struct {
	vendor  string
	pattern *regexp.Regexp
	exclude *regexp.Regexp
}

// Classifier holds the immutable detection and classification rule tables.
// It is stateless after construction and safe for concurrent use.
type Classifier struct {
	detection      []*regexp.Regexp
	classification []vendorRule
}

var std = &Classifier{
	detection: compileAll(
		// Google Analytics & Tag Manager
		`google-analytics\.com`,
		`googletagmanager\.com`,
		`gtag/js`,
		`collect\?`,
		// Facebook/Meta
		`facebook\.com/tr`,
		`connect\.facebook\.net`,
		// Other major platforms
		`hotjar\.com`,
		`segment\.(io|com)`,
		`mixpanel\.com`,
		`amplitude\.com`,
		`klaviyo\.com`,
		`pinterest\.com.*/pixel`,
		`tiktok\.com.*/pixel`,
		`linkedin\.com.*/px`,
		`twitter\.com.*/i/adsct`,
		`snapchat\.com.*/tr`,
		// Snowplow
		`sp\.cargurus\.com`,
		`snowplowanalytics\.com`,
		`/i\?`,
		// Generic tracking endpoints
		`/track\?`,
		`/pixel\?`,
		`/analytics\?`,
		`/events\?`,
		`/beacon`,
		// Common marketing query parameters
		`[?&]utm_`,
		`[?&]gclid=`,
		`[?&]fbclid=`,
	),
	classification: []vendorRule{
		{vendor: "Google Analytics 4", pattern: regexp.MustCompile(`gtag|google-analytics\.com.*/g/collect`)},
		// Legacy Analytics shares the collect endpoint with GA4; the exclude
		// keeps /g/collect traffic out of this rule.
		{vendor: "Universal Analytics", pattern: regexp.MustCompile(`google-analytics\.com.*/collect`), exclude: regexp.MustCompile(`/g/collect`)},
		{vendor: "Google Tag Manager", pattern: regexp.MustCompile(`googletagmanager\.com`)},
		{vendor: "Facebook Pixel", pattern: regexp.MustCompile(`facebook\.com/tr|connect\.facebook\.net.*fbevents`)},
		{vendor: "Hotjar", pattern: regexp.MustCompile(`hotjar\.com`)},
		{vendor: "Segment", pattern: regexp.MustCompile(`segment\.(io|com)|cdn\.segment\.com`)},
		{vendor: "Mixpanel", pattern: regexp.MustCompile(`mixpanel\.com`)},
		{vendor: "Amplitude", pattern: regexp.MustCompile(`amplitude\.com`)},
		{vendor: "Klaviyo", pattern: regexp.MustCompile(`klaviyo\.com`)},
		{vendor: "Pinterest", pattern: regexp.MustCompile(`pinterest\.com.*/pixel`)},
		{vendor: "TikTok", pattern: regexp.MustCompile(`tiktok\.com.*/pixel`)},
		{vendor: "LinkedIn", pattern: regexp.MustCompile(`linkedin\.com.*/px`)},
		{vendor: "Twitter", pattern: regexp.MustCompile(`twitter\.com.*/i/adsct`)},
		{vendor: "Snapchat", pattern: regexp.MustCompile(`snapchat\.com.*/tr`)},
		{vendor: "Snowplow", pattern: regexp.MustCompile(`sp\.cargurus\.com|snowplowanalytics\.com|/i\?`)},
	},
}

// Default returns the shared rule table.
func Default() *Classifier { return std }

// IsTracking reports whether the URL matches any detection pattern. Detection
// is independent of classification: a URL can be tracking without any
// vendor-specific rule matching it.
func (c *Classifier) IsTracking(url string) bool {
	for _, p := range c.detection {
		if p.MatchString(url) {
			return true
		}
	}
	return false
}

// Classify attributes the URL to a vendor. Rules are tried in declared order
// and the first match wins; URLs with no vendor rule get GenericVendor.
func (c *Classifier) Classify(url string) string {
	for i := range c.classification {
		r := &c.classification[i]
		if !r.pattern.MatchString(url) {
			continue
		}
		if r.exclude != nil && r.exclude.MatchString(url) {
			continue
		}
		return r.vendor
	}
	return GenericVendor
}

func compileAll(patterns ...string) []*regexp.Regexp {
	out := make([]*regexp.Regexp, 0, len(patterns))
	for _, p := range patterns {
		out = append(out, regexp.MustCompile(p))
	}
	return out
}
