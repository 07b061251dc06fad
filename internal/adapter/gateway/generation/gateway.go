// Package generation wraps the external text-generation service behind a
// small gateway interface so the pipeline can run against the real API or a
// deterministic mock.
package generation

import (
	"context"
	"time"
)

// Request is one generation call: a system instruction, a user message, and
// the model to use.
type Request struct {
	System string
	Prompt string
	Model  string
}

// Response carries the raw generated text plus timing for the audit log
type Response struct {
	Text     string
	Duration time.Duration
}

// Generator is the text-generation port consumed by stage functions
type Generator interface {
	Generate(ctx context.Context, req Request) (*Response, error)

	// Name tags APICall audit records with the concrete backend
	Name() string
}
