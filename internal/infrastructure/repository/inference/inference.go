// Package inference implements the llm.Client gateway against the Hugging
// Face Inference API. Calls fail fast after the configured timeout; the
// caller decides whether to fall back.
package inference

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net"
	"net/http"
	"net/url"
	"time"

	"github.com/PierreExeter/gmail-agent/internal/domain/llm"
)

const defaultBaseURL = "https://api-inference.huggingface.co/models"

type Client struct {
	modelID    string
	apiKey     string
	baseURL    string
	httpClient *http.Client
}

// NewFactory returns an llm.Factory building clients bound to one model
// identifier each. Agents cache the client and rebuild it on model swap.
func NewFactory(apiKey string, timeout time.Duration) llm.Factory {
	return func(modelID string) llm.Client {
		return NewClient(modelID, apiKey, timeout)
	}
}

func NewClient(modelID, apiKey string, timeout time.Duration) *Client {
	return &Client{
		modelID: modelID,
		apiKey:  apiKey,
		baseURL: defaultBaseURL,
		httpClient: &http.Client{
			Timeout: timeout,
		},
	}
}

type generateRequest struct {
	Inputs     string             `json:"inputs"`
	Parameters generateParameters `json:"parameters"`
}

type generateParameters struct {
	MaxNewTokens   int     `json:"max_new_tokens,omitempty"`
	Temperature    float64 `json:"temperature,omitempty"`
	ReturnFullText bool    `json:"return_full_text"`
}

type generateResponse struct {
	GeneratedText string `json:"generated_text"`
}

// Complete sends the prompt to the model endpoint and returns the raw
// generated text. The response may or may not be valid JSON even when the
// request asked for it; callers must parse defensively.
func (c *Client) Complete(ctx context.Context, req llm.Request) (string, error) {
	payload, err := json.Marshal(generateRequest{
		Inputs: req.Prompt,
		Parameters: generateParameters{
			MaxNewTokens: req.MaxTokens,
			Temperature:  req.Temperature,
		},
	})
	if err != nil {
		return "", &llm.GatewayError{Kind: llm.KindTransport, Err: err}
	}

	endpoint := fmt.Sprintf("%s/%s", c.baseURL, c.modelID)
	httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost, endpoint, bytes.NewReader(payload))
	if err != nil {
		return "", &llm.GatewayError{Kind: llm.KindTransport, Err: err}
	}
	httpReq.Header.Set("Content-Type", "application/json")
	if c.apiKey != "" {
		httpReq.Header.Set("Authorization", "Bearer "+c.apiKey)
	}

	resp, err := c.httpClient.Do(httpReq)
	if err != nil {
		return "", &llm.GatewayError{Kind: classifyTransportError(err), Err: err}
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(io.LimitReader(resp.Body, 1<<20))
	if err != nil {
		return "", &llm.GatewayError{Kind: llm.KindTransport, Err: err}
	}

	if resp.StatusCode == http.StatusTooManyRequests {
		return "", &llm.GatewayError{
			Kind: llm.KindRateLimit,
			Err:  fmt.Errorf("model %s rate limited: %s", c.modelID, body),
		}
	}
	if resp.StatusCode != http.StatusOK {
		return "", &llm.GatewayError{
			Kind: llm.KindTransport,
			Err:  fmt.Errorf("model %s returned status %d: %s", c.modelID, resp.StatusCode, body),
		}
	}

	// The API answers with a single-element array of generations.
	var generations []generateResponse
	if err := json.Unmarshal(body, &generations); err != nil {
		var single generateResponse
		if err2 := json.Unmarshal(body, &single); err2 == nil && single.GeneratedText != "" {
			return single.GeneratedText, nil
		}
		return "", &llm.GatewayError{
			Kind: llm.KindTransport,
			Err:  fmt.Errorf("unexpected response shape: %w", err),
		}
	}
	if len(generations) == 0 {
		return "", &llm.GatewayError{
			Kind: llm.KindTransport,
			Err:  errors.New("empty generation list"),
		}
	}

	return generations[0].GeneratedText, nil
}

func classifyTransportError(err error) llm.ErrorKind {
	if errors.Is(err, context.DeadlineExceeded) {
		return llm.KindTimeout
	}
	var urlErr *url.Error
	if errors.As(err, &urlErr) && urlErr.Timeout() {
		return llm.KindTimeout
	}
	var netErr net.Error
	if errors.As(err, &netErr) && netErr.Timeout() {
		return llm.KindTimeout
	}
	return llm.KindTransport
}
