// Package cdp converts Chrome DevTools Protocol network events into the
// neutral traffic models the capture engine consumes.
package cdp

import (
	"encoding/json"

	"github.com/mafredri/cdp/protocol/network"

	"pixelens/pkg/traffic"
)

// ToNeutralRequest maps a Network.requestWillBeSent event to a traffic.Request.
func ToNeutralRequest(ev *network.RequestWillBeSentReply) *traffic.Request {
	req := traffic.NewRequest()
	req.ID = string(ev.RequestID)
	req.URL = ev.Request.URL
	req.Method = ev.Request.Method
	req.ResourceType = string(ev.Type)

	var headers map[string]string
	if len(ev.Request.Headers) > 0 {
		if err := json.Unmarshal(ev.Request.Headers, &headers); err == nil {
			for k, v := range headers {
				req.Headers.Set(k, v)
			}
		}
	}
	return req
}

// ToNeutralResponse maps a Network.responseReceived event to a traffic.Response.
func ToNeutralResponse(ev *network.ResponseReceivedReply) *traffic.Response {
	res := traffic.NewResponse()
	res.URL = ev.Response.URL
	res.StatusCode = ev.Response.Status

	var headers map[string]string
	if len(ev.Response.Headers) > 0 {
		if err := json.Unmarshal(ev.Response.Headers, &headers); err == nil {
			for k, v := range headers {
				res.Headers.Set(k, v)
			}
		}
	}
	return res
}
