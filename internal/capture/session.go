package capture

import (
	"sort"
	"sync"
	"time"

	"pixelens/internal/classifier"
	"pixelens/internal/logger"
	"pixelens/pkg/model"
	"pixelens/pkg/traffic"
)

// Stream is a page-scoped network event source. Close removes the underlying
// subscription and closes the Events channel.
type Stream interface {
	Events() <-chan traffic.PageEvent
	Close()
}

// Session observes one step's network traffic. It is opened against a page
// stream, consumes events in a single goroutine, and rolls everything up into
// a ValidationSummary on Close. A session is used for exactly one step.
type Session struct {
	mu       sync.Mutex
	cls      *classifier.Classifier
	log      logger.Logger
	events   chan<- model.Event
	requests []*model.TrackedRequest
	start    time.Time
	phase    model.Phase
	stream   Stream
	done     chan struct{}
	closing  bool
	sealed   bool
}

// New creates a session. events may be nil; sends to it never block.
func New(cls *classifier.Classifier, log logger.Logger, events chan<- model.Event) *Session {
	if cls == nil {
		cls = classifier.Default()
	}
	if log == nil {
		log = logger.NewNop()
	}
	return &Session{
		cls:    cls,
		log:    log,
		events: events,
		start:  time.Now(),
		phase:  model.PhasePageLoad,
	}
}

// Open records the session start time and begins consuming the stream.
func (s *Session) Open(stream Stream) {
	s.mu.Lock()
	s.start = time.Now()
	s.phase = model.PhasePageLoad
	s.stream = stream
	s.done = make(chan struct{})
	s.mu.Unlock()

	go s.consume(stream)
	s.log.Debug("capture session opened")
}

func (s *Session) consume(stream Stream) {
	defer close(s.done)
	for ev := range stream.Events() {
		switch {
		case ev.Request != nil:
			s.RecordRequest(ev.Request)
		case ev.Response != nil:
			s.RecordResponse(ev.Response)
		}
	}
}

// RecordRequest appends a tracked request tagged with the current phase. A
// tracking request is classified immediately and announced on the event
// channel.
func (s *Session) RecordRequest(req *traffic.Request) {
	s.mu.Lock()
	if s.sealed {
		s.mu.Unlock()
		return
	}
	tr := &model.TrackedRequest{
		URL:          req.URL,
		Method:       req.Method,
		Headers:      map[string]string(req.Headers),
		Timestamp:    time.Since(s.start).Seconds(),
		Phase:        s.phase,
		ResourceType: req.ResourceType,
		IsTracking:   s.cls.IsTracking(req.URL),
	}
	if tr.IsTracking {
		tr.Vendor = s.cls.Classify(req.URL)
	}
	s.requests = append(s.requests, tr)
	phase := s.phase
	s.mu.Unlock()

	if tr.IsTracking {
		s.log.Info("tracking pixel detected", "vendor", tr.Vendor, "url", tr.URL, "phase", string(phase))
		s.sendEvent(model.Event{
			Type:   model.EventPixelDetected,
			Vendor: tr.Vendor,
			URL:    tr.URL,
			Phase:  phase,
		})
	}
}

// RecordResponse attaches response data to the most recently recorded request
// with the same URL that has not yet received one. Responses with no
// unresolved match are dropped; duplicate and racing beacons make that a
// normal occurrence, not an error.
func (s *Session) RecordResponse(res *traffic.Response) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.sealed {
		return
	}
	for i := len(s.requests) - 1; i >= 0; i-- {
		req := s.requests[i]
		if req.URL != res.URL || req.StatusCode != nil {
			continue
		}
		status := res.StatusCode
		ok := res.Succeeded()
		req.StatusCode = &status
		req.ResponseHeaders = map[string]string(res.Headers)
		req.Succeeded = &ok
		return
	}
}

// BeginInteractionPhase switches the session to user-interaction tagging.
// Calling it again has no further effect; the phase never reverts.
func (s *Session) BeginInteractionPhase() {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.phase == model.PhaseUserInteraction {
		return
	}
	s.phase = model.PhaseUserInteraction
	s.log.Debug("switched to user interaction phase")
}

// Close detaches from the stream, drains whatever it already delivered, and
// returns the summary. Closing an already closed session returns an
// equivalent summary and does not fail.
func (s *Session) Close() model.ValidationSummary {
	s.mu.Lock()
	alreadyClosing := s.closing
	s.closing = true
	stream := s.stream
	done := s.done
	s.mu.Unlock()

	if !alreadyClosing && stream != nil {
		stream.Close()
	}
	if done != nil {
		<-done
	}
	s.mu.Lock()
	s.sealed = true
	s.mu.Unlock()
	if !alreadyClosing {
		s.log.Debug("capture session closed")
	}
	return s.summary()
}

func (s *Session) summary() model.ValidationSummary {
	s.mu.Lock()
	defer s.mu.Unlock()

	sum := model.ValidationSummary{
		TotalRequests:  len(s.requests),
		PixelsByVendor: make(map[model.Vendor][]model.TrackedRequest),
	}
	var tracking []*model.TrackedRequest
	for _, req := range s.requests {
		if !req.IsTracking {
			continue
		}
		tracking = append(tracking, req)
		sum.TrackingRequests++
		switch req.Phase {
		case model.PhasePageLoad:
			sum.PageLoadPixels++
		case model.PhaseUserInteraction:
			sum.InteractionPixels++
		}
		sum.PixelsByVendor[req.Vendor] = append(sum.PixelsByVendor[req.Vendor], *req)
	}

	sort.SliceStable(tracking, func(i, j int) bool {
		return tracking[i].Timestamp < tracking[j].Timestamp
	})
	sum.Timeline = make([]model.TimelineEvent, 0, len(tracking))
	for _, req := range tracking {
		sum.Timeline = append(sum.Timeline, model.TimelineEvent{
			OffsetSeconds: req.Timestamp,
			Vendor:        req.Vendor,
			URL:           req.URL,
			Phase:         req.Phase,
			Succeeded:     req.Succeeded,
		})
	}
	return sum
}

// sendEvent never blocks; a slow consumer loses events rather than stalling
// the capture path.
func (s *Session) sendEvent(evt model.Event) {
	if s.events == nil {
		return
	}
	evt.Timestamp = time.Now().UnixMilli()
	select {
	case s.events <- evt:
	default:
	}
}
