// Package agent is the HTTP client for the AI action collaborator: a service
// that performs one free-text browser instruction against the current page.
package agent

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/tidwall/gjson"

	"pixelens/internal/logger"
)

// Config bounds what the collaborator may do for a single instruction.
type Config struct {
	Endpoint          string
	APIKey            string
	MaxSteps          int
	MaxActionsPerStep int
	MaxFailures       int
	MaxAttempts       int
	Timeout           time.Duration
}

func (c *Config) defaults() {
	if c.MaxSteps <= 0 {
		c.MaxSteps = 3
	}
	if c.MaxActionsPerStep <= 0 {
		c.MaxActionsPerStep = 1
	}
	if c.MaxFailures <= 0 {
		c.MaxFailures = 1
	}
	if c.MaxAttempts <= 0 {
		c.MaxAttempts = 1
	}
	if c.Timeout <= 0 {
		c.Timeout = 2 * time.Minute
	}
}

// Client invokes the agent's /invoke endpoint.
type Client struct {
	cfg  Config
	http *http.Client
	log  logger.Logger
}

func NewClient(cfg Config, log logger.Logger) *Client {
	cfg.defaults()
	if log == nil {
		log = logger.NewNop()
	}
	return &Client{
		cfg:  cfg,
		http: &http.Client{Timeout: cfg.Timeout},
		log:  log,
	}
}

type invokeRequest struct {
	Task              string `json:"task"`
	PageURL           string `json:"page_url"`
	MaxSteps          int    `json:"max_steps"`
	MaxActionsPerStep int    `json:"max_actions_per_step"`
	MaxFailures       int    `json:"max_failures"`
}

// Perform asks the collaborator to execute one instruction on the page,
// retrying up to the configured attempt limit. The engine has no visibility
// into how the action is carried out; it only needs control back.
func (c *Client) Perform(ctx context.Context, instruction, pageURL string) error {
	task := strictTask(instruction, pageURL)
	var lastErr error
	for attempt := 1; attempt <= c.cfg.MaxAttempts; attempt++ {
		if err := c.invoke(ctx, task, pageURL); err != nil {
			lastErr = err
			c.log.Warn("agent action failed", "attempt", attempt, "error", err)
			if ctx.Err() != nil {
				return ctx.Err()
			}
			continue
		}
		return nil
	}
	return fmt.Errorf("agent action %q: %w", instruction, lastErr)
}

func (c *Client) invoke(ctx context.Context, task, pageURL string) error {
	body, err := json.Marshal(invokeRequest{
		Task:              task,
		PageURL:           pageURL,
		MaxSteps:          c.cfg.MaxSteps,
		MaxActionsPerStep: c.cfg.MaxActionsPerStep,
		MaxFailures:       c.cfg.MaxFailures,
	})
	if err != nil {
		return fmt.Errorf("marshal invoke request: %w", err)
	}

	endpoint := strings.TrimSuffix(c.cfg.Endpoint, "/") + "/invoke"
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, endpoint, bytes.NewReader(body))
	if err != nil {
		return fmt.Errorf("build invoke request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	if c.cfg.APIKey != "" {
		req.Header.Set("Authorization", "Bearer "+c.cfg.APIKey)
	}

	resp, err := c.http.Do(req)
	if err != nil {
		return fmt.Errorf("invoke agent: %w", err)
	}
	defer resp.Body.Close()

	payload, err := io.ReadAll(resp.Body)
	if err != nil {
		return fmt.Errorf("read agent response: %w", err)
	}
	if resp.StatusCode != http.StatusOK {
		return fmt.Errorf("agent returned status %d: %s", resp.StatusCode, strings.TrimSpace(string(payload)))
	}

	status := gjson.GetBytes(payload, "status").String()
	if status != "" && status != "completed" && status != "success" {
		msg := gjson.GetBytes(payload, "error").String()
		if msg == "" {
			msg = status
		}
		return fmt.Errorf("agent did not complete action: %s", msg)
	}
	return nil
}

// strictTask wraps the instruction in the constraints the collaborator must
// honor: stay on the current site, perform exactly this action, nothing else.
func strictTask(instruction, pageURL string) string {
	domain := pageURL
	if u, err := url.Parse(pageURL); err == nil && u.Host != "" {
		domain = u.Host
	}
	var b strings.Builder
	b.WriteString("CRITICAL CONSTRAINTS:\n")
	b.WriteString("- You are a pixel tracking expert given one action to take on a website. Take that action and that action only.\n")
	fmt.Fprintf(&b, "- NEVER navigate away from %s - STAY ON THIS WEBSITE ONLY\n", domain)
	fmt.Fprintf(&b, "- Complete ONLY this specific action: %s\n", instruction)
	b.WriteString("- Do NOT open new tabs or windows\n")
	b.WriteString("- Do NOT click links, buttons, or forms that are not part of the action\n")
	b.WriteString("- Do NOT come up with other actions if the said action is not possible\n")
	fmt.Fprintf(&b, "\nTASK: %s\n", instruction)
	return b.String()
}
