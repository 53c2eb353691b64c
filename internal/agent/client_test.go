package agent

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync/atomic"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestPerformSendsBoundedTask(t *testing.T) {
	var got invokeRequest
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		require.Equal(t, "/invoke", r.URL.Path)
		require.Equal(t, http.MethodPost, r.Method)
		require.NoError(t, json.NewDecoder(r.Body).Decode(&got))
		fmt.Fprint(w, `{"status":"completed"}`)
	}))
	defer server.Close()

	c := NewClient(Config{Endpoint: server.URL}, nil)
	err := c.Perform(context.Background(), "add the first item to the cart", "https://shop.example.com/catalog")
	require.NoError(t, err)

	assert.Equal(t, 3, got.MaxSteps)
	assert.Equal(t, 1, got.MaxActionsPerStep)
	assert.Equal(t, 1, got.MaxFailures)
	assert.Contains(t, got.Task, "shop.example.com")
	assert.Contains(t, got.Task, "add the first item to the cart")
	assert.True(t, strings.Contains(got.Task, "STAY ON THIS WEBSITE ONLY"))
}

func TestPerformReportsAgentFailure(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		fmt.Fprint(w, `{"status":"failed","error":"element not found"}`)
	}))
	defer server.Close()

	c := NewClient(Config{Endpoint: server.URL}, nil)
	err := c.Perform(context.Background(), "click checkout", "https://shop.example.com")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "element not found")
}

func TestPerformRetriesUpToAttemptLimit(t *testing.T) {
	var calls atomic.Int32
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if calls.Add(1) < 2 {
			w.WriteHeader(http.StatusInternalServerError)
			return
		}
		fmt.Fprint(w, `{"status":"completed"}`)
	}))
	defer server.Close()

	c := NewClient(Config{Endpoint: server.URL, MaxAttempts: 3}, nil)
	err := c.Perform(context.Background(), "open the menu", "https://example.com")
	require.NoError(t, err)
	assert.Equal(t, int32(2), calls.Load())
}

func TestPerformNonOKStatus(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusBadGateway)
		fmt.Fprint(w, "upstream down")
	}))
	defer server.Close()

	c := NewClient(Config{Endpoint: server.URL}, nil)
	err := c.Perform(context.Background(), "click", "https://example.com")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "502")
}
