// Package browser attaches to a running Chrome over the DevTools protocol and
// exposes navigation plus a subscribable network event stream for one page.
package browser

import (
	"context"
	"fmt"
	"strings"
	"sync"
	"time"

	"github.com/mafredri/cdp"
	"github.com/mafredri/cdp/devtool"
	"github.com/mafredri/cdp/protocol/page"
	"github.com/mafredri/cdp/rpcc"

	adapter "pixelens/internal/adapter/cdp"
	"pixelens/internal/logger"
	"pixelens/pkg/traffic"
)

// Page is the handle for the attached browser page. The orchestrator passes
// it around unmodified.
type Page struct {
	conn   *rpcc.Conn
	client *cdp.Client
	ctx    context.Context
	cancel context.CancelFunc
	log    logger.Logger
}

// Connect attaches to the first page target exposed at devtoolsURL, creating
// one if the browser has none.
func Connect(ctx context.Context, devtoolsURL string, log logger.Logger) (*Page, error) {
	if log == nil {
		log = logger.NewNop()
	}
	dt := devtool.New(devtoolsURL)
	target, err := dt.Get(ctx, devtool.Page)
	if err != nil {
		target, err = dt.Create(ctx)
		if err != nil {
			return nil, fmt.Errorf("no page target at %s: %w", devtoolsURL, err)
		}
	}

	pctx, cancel := context.WithCancel(context.Background())
	conn, err := rpcc.DialContext(ctx, target.WebSocketDebuggerURL)
	if err != nil {
		cancel()
		return nil, fmt.Errorf("dial devtools: %w", err)
	}

	client := cdp.NewClient(conn)
	if err := client.Page.Enable(pctx); err != nil {
		conn.Close()
		cancel()
		return nil, fmt.Errorf("enable page domain: %w", err)
	}
	if err := client.Network.Enable(pctx, nil); err != nil {
		conn.Close()
		cancel()
		return nil, fmt.Errorf("enable network domain: %w", err)
	}

	log.Info("attached to page target", "target", target.ID, "url", target.URL)
	return &Page{conn: conn, client: client, ctx: pctx, cancel: cancel, log: log}, nil
}

// Navigate loads url and waits for the load event plus a short quiet period,
// bounded by timeout.
func (p *Page) Navigate(ctx context.Context, url string, timeout time.Duration) error {
	nctx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()

	loadFired, err := p.client.Page.LoadEventFired(nctx)
	if err != nil {
		return fmt.Errorf("subscribe load event: %w", err)
	}
	defer loadFired.Close()

	if _, err := p.client.Page.Navigate(nctx, page.NewNavigateArgs(url)); err != nil {
		return fmt.Errorf("navigate %s: %w", url, err)
	}
	if _, err := loadFired.Recv(); err != nil {
		return fmt.Errorf("wait for load event: %w", err)
	}

	// CDP has no network-idle event; a quiet period after load approximates
	// it well enough for beacon traffic.
	select {
	case <-time.After(500 * time.Millisecond):
	case <-nctx.Done():
		return nctx.Err()
	}
	p.log.Debug("navigation complete", "url", url)
	return nil
}

// CurrentURL reports the page's current location.
func (p *Page) CurrentURL(ctx context.Context) (string, error) {
	hist, err := p.client.Page.GetNavigationHistory(ctx)
	if err != nil {
		return "", fmt.Errorf("navigation history: %w", err)
	}
	if hist.CurrentIndex < 0 || int(hist.CurrentIndex) >= len(hist.Entries) {
		return "", fmt.Errorf("no navigation entries")
	}
	return hist.Entries[hist.CurrentIndex].URL, nil
}

// Headless reports whether the attached browser runs headless, based on the
// product name it advertises.
func (p *Page) Headless(ctx context.Context) (bool, error) {
	ver, err := p.client.Browser.GetVersion(ctx)
	if err != nil {
		return false, fmt.Errorf("browser version: %w", err)
	}
	return headlessProduct(ver.Product), nil
}

func headlessProduct(product string) bool {
	return strings.Contains(strings.ToLower(product), "headless")
}

// Close detaches from the target.
func (p *Page) Close() error {
	p.cancel()
	if p.conn != nil {
		return p.conn.Close()
	}
	return nil
}

// Subscription is a removable network event stream scoped to the page. It
// implements the capture session's Stream contract.
type Subscription struct {
	ch     chan traffic.PageEvent
	cancel context.CancelFunc
	wg     sync.WaitGroup
	once   sync.Once
}

// Subscribe starts forwarding request/response events. Every call returns an
// independent subscription that must be closed to release its CDP streams.
func (p *Page) Subscribe() (*Subscription, error) {
	sctx, cancel := context.WithCancel(p.ctx)

	requests, err := p.client.Network.RequestWillBeSent(sctx)
	if err != nil {
		cancel()
		return nil, fmt.Errorf("subscribe requests: %w", err)
	}
	responses, err := p.client.Network.ResponseReceived(sctx)
	if err != nil {
		requests.Close()
		cancel()
		return nil, fmt.Errorf("subscribe responses: %w", err)
	}

	sub := &Subscription{ch: make(chan traffic.PageEvent, 256), cancel: cancel}

	sub.wg.Add(2)
	go func() {
		defer sub.wg.Done()
		defer requests.Close()
		for {
			ev, err := requests.Recv()
			if err != nil {
				return
			}
			sub.push(sctx, traffic.PageEvent{Request: adapter.ToNeutralRequest(ev)})
		}
	}()
	go func() {
		defer sub.wg.Done()
		defer responses.Close()
		for {
			ev, err := responses.Recv()
			if err != nil {
				return
			}
			sub.push(sctx, traffic.PageEvent{Response: adapter.ToNeutralResponse(ev)})
		}
	}()

	go func() {
		sub.wg.Wait()
		close(sub.ch)
	}()

	return sub, nil
}

func (s *Subscription) push(ctx context.Context, ev traffic.PageEvent) {
	select {
	case s.ch <- ev:
	case <-ctx.Done():
	}
}

// Events returns the stream channel; it closes once the subscription ends.
func (s *Subscription) Events() <-chan traffic.PageEvent { return s.ch }

// Close removes the subscription. Safe to call more than once.
func (s *Subscription) Close() {
	s.once.Do(s.cancel)
}
