package traffic

import (
	"net/http"
	"strings"
)

// Header wraps case-insensitive header access. Keys are stored lowercased.
type Header map[string]string

// Get returns the value for key, case-insensitively.
func (h Header) Get(key string) string {
	if h == nil {
		return ""
	}
	return h[strings.ToLower(key)]
}

// Set stores value under the lowercased key.
func (h Header) Set(key, value string) {
	h[strings.ToLower(key)] = value
}

// Del removes key.
func (h Header) Del(key string) {
	delete(h, strings.ToLower(key))
}

// Request is a neutral request model, decoupled from the CDP wire types.
type Request struct {
	ID           string // transaction id assigned by the browser
	URL          string
	Method       string
	Headers      Header
	ResourceType string // Document, XHR, Image, ...
}

// Response is a neutral response model. URL carries the request URL the
// browser reported for it, used for correlation.
type Response struct {
	URL        string
	StatusCode int
	Headers    Header
}

// Succeeded reports whether the status code is in the 2xx/3xx range.
func (r *Response) Succeeded() bool {
	return r.StatusCode >= http.StatusOK && r.StatusCode < http.StatusBadRequest
}

// PageEvent is one observation from a page's network stream. Exactly one of
// Request or Response is set.
type PageEvent struct {
	Request  *Request
	Response *Response
}

// NewRequest creates an initialized request.
func NewRequest() *Request {
	return &Request{Headers: make(Header)}
}

// NewResponse creates an initialized response.
func NewResponse() *Response {
	return &Response{StatusCode: http.StatusOK, Headers: make(Header)}
}
