package inference

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/PierreExeter/gmail-agent/internal/domain/llm"
)

func newTestClient(t *testing.T, handler http.HandlerFunc, timeout time.Duration) *Client {
	t.Helper()
	srv := httptest.NewServer(handler)
	t.Cleanup(srv.Close)

	c := NewClient("test-model", "test-key", timeout)
	c.baseURL = srv.URL
	return c
}

func TestCompleteSuccess(t *testing.T) {
	c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		if got := r.Header.Get("Authorization"); got != "Bearer test-key" {
			t.Errorf("authorization header = %q", got)
		}
		w.Write([]byte(`[{"generated_text": "{\"category\": \"FYI_ONLY\"}"}]`))
	}, time.Second)

	got, err := c.Complete(context.Background(), llm.Request{Prompt: "classify this"})
	if err != nil {
		t.Fatal(err)
	}
	if got != `{"category": "FYI_ONLY"}` {
		t.Errorf("generated text = %q", got)
	}
}

func TestCompleteRateLimit(t *testing.T) {
	c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "rate limit exceeded", http.StatusTooManyRequests)
	}, time.Second)

	_, err := c.Complete(context.Background(), llm.Request{Prompt: "x"})
	if !llm.IsRateLimit(err) {
		t.Fatalf("err = %v; want rate limit kind", err)
	}
}

func TestCompleteServerError(t *testing.T) {
	c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "model loading", http.StatusServiceUnavailable)
	}, time.Second)

	_, err := c.Complete(context.Background(), llm.Request{Prompt: "x"})
	var ge *llm.GatewayError
	if !errors.As(err, &ge) || ge.Kind != llm.KindTransport {
		t.Fatalf("err = %v; want transport kind", err)
	}
}

func TestCompleteTimeout(t *testing.T) {
	c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		time.Sleep(200 * time.Millisecond)
	}, 20*time.Millisecond)

	_, err := c.Complete(context.Background(), llm.Request{Prompt: "x"})
	if !llm.IsTimeout(err) {
		t.Fatalf("err = %v; want timeout kind", err)
	}
}

func TestCompleteGarbageBody(t *testing.T) {
	c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte("not json at all"))
	}, time.Second)

	_, err := c.Complete(context.Background(), llm.Request{Prompt: "x"})
	if err == nil {
		t.Fatal("expected error for unparsable body")
	}
}
