// Package backend provides the LLM backend adapters. All backends are
// treated identically through the Client interface; backend identity is just
// a string key used for weighting and analytics grouping.
package backend

import (
	"context"
	"time"
)

// Health is the result of one backend health probe.
type Health struct {
	Available      bool
	ResponseTimeMs int64
	Model          string
	Error          string
}

// Client is the narrow adapter contract every backend implements.
type Client interface {
	// Generate sends a prompt and returns the completion text.
	Generate(ctx context.Context, prompt string) (string, error)

	// IsAvailable reports whether the backend can currently serve requests.
	IsAvailable(ctx context.Context) bool

	// HealthCheck probes the backend and reports availability and latency.
	HealthCheck(ctx context.Context) Health
}

// probe runs fn and wraps its outcome in a Health value.
func probe(model string, fn func() error) Health {
	start := time.Now()
	err := fn()
	h := Health{
		Available:      err == nil,
		ResponseTimeMs: time.Since(start).Milliseconds(),
		Model:          model,
	}
	if err != nil {
		h.Error = err.Error()
	}
	return h
}
