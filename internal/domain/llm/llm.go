package llm

import (
	"context"
	"errors"
	"fmt"
)

// ErrorKind distinguishes gateway failures so callers can log the cause
// before falling back to heuristics.
type ErrorKind int

const (
	KindTransport ErrorKind = iota
	KindTimeout
	KindRateLimit
)

func (k ErrorKind) String() string {
	switch k {
	case KindTimeout:
		return "timeout"
	case KindRateLimit:
		return "rate_limit"
	default:
		return "transport"
	}
}

// GatewayError wraps a failed inference call with its failure kind.
type GatewayError struct {
	Kind ErrorKind
	Err  error
}

func (e *GatewayError) Error() string {
	return fmt.Sprintf("inference gateway %s error: %v", e.Kind, e.Err)
}

func (e *GatewayError) Unwrap() error {
	return e.Err
}

func IsTimeout(err error) bool {
	var ge *GatewayError
	return errors.As(err, &ge) && ge.Kind == KindTimeout
}

func IsRateLimit(err error) bool {
	var ge *GatewayError
	return errors.As(err, &ge) && ge.Kind == KindRateLimit
}

// Request is a structured prompt for the inference gateway.
type Request struct {
	Prompt      string
	MaxTokens   int
	Temperature float64
	// ExpectJSON asks the endpoint for a JSON-shaped answer. The response is
	// still raw text and must be parsed defensively.
	ExpectJSON bool
}

// Client is the inference gateway. Complete blocks for at most the client's
// configured timeout and returns the raw generated text.
type Client interface {
	Complete(ctx context.Context, req Request) (string, error)
}

// Factory builds a Client for a model identifier. Agents construct their
// client lazily on first use and rebuild it after a model swap.
type Factory func(modelID string) Client
