package httpclient

import (
	"errors"
	"io"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"
)

func TestDefaultRetryStrategy(t *testing.T) {
	tests := []struct {
		status int
		want   RetryStrategy
	}{
		{http.StatusTooManyRequests, SmartRetry},
		{http.StatusServiceUnavailable, SmartRetry},
		{http.StatusInternalServerError, ConservativeRetry},
		{http.StatusBadGateway, ConservativeRetry},
		{http.StatusGatewayTimeout, ConservativeRetry},
		{http.StatusRequestTimeout, ConservativeRetry},
		{http.StatusOK, NoRetry},
		{http.StatusUnauthorized, NoRetry},
		{http.StatusBadRequest, NoRetry},
	}

	for _, tt := range tests {
		if got := DefaultRetryStrategy(tt.status); got != tt.want {
			t.Errorf("DefaultRetryStrategy(%d) = %v, want %v", tt.status, got, tt.want)
		}
	}
}

func TestClient_Do_Success(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
	}))
	defer server.Close()

	client := New()
	req, _ := http.NewRequest("GET", server.URL, nil)

	resp, err := client.Do(req)
	if err != nil {
		t.Fatalf("Do() error = %v, want nil", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		t.Errorf("Do() status = %d, want 200", resp.StatusCode)
	}
}

func TestClient_Do_NoRetryOnClientError(t *testing.T) {
	attempts := 0
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		attempts++
		w.WriteHeader(http.StatusUnauthorized)
	}))
	defer server.Close()

	client := New(WithMaxRetries(3), WithBaseDelay(time.Millisecond))
	req, _ := http.NewRequest("GET", server.URL, nil)

	resp, err := client.Do(req)
	if err == nil {
		t.Fatal("Do() should return error on 401")
	}
	if resp != nil {
		resp.Body.Close()
	}

	if attempts != 1 {
		t.Errorf("server hit %d times, want 1 (401 is not retryable)", attempts)
	}
}

func TestClient_Do_RetriesServerError(t *testing.T) {
	attempts := 0
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		attempts++
		if attempts < 2 {
			w.WriteHeader(http.StatusInternalServerError)
			return
		}
		w.WriteHeader(http.StatusOK)
	}))
	defer server.Close()

	client := New(WithMaxRetries(3), WithBaseDelay(time.Millisecond))
	req, _ := http.NewRequest("GET", server.URL, nil)

	resp, err := client.Do(req)
	if err != nil {
		t.Fatalf("Do() error = %v, want nil after retry", err)
	}
	defer resp.Body.Close()

	if attempts != 2 {
		t.Errorf("server hit %d times, want 2", attempts)
	}
}

func TestClient_Do_MaxRetriesExceeded(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Retry-After", "0")
		w.WriteHeader(http.StatusTooManyRequests)
	}))
	defer server.Close()

	client := New(WithMaxRetries(1), WithBaseDelay(time.Millisecond), WithHeaderParser(ParseOpenAIHeaders))
	req, _ := http.NewRequest("GET", server.URL, nil)

	resp, err := client.Do(req)
	if resp != nil {
		resp.Body.Close()
	}
	if err == nil {
		t.Fatal("Do() should fail after exhausting retries")
	}

	var retryErr *RetryableError
	if !errors.As(err, &retryErr) {
		t.Errorf("Do() error = %T, want *RetryableError", err)
	}
}

type trackedBody struct {
	closed bool
}

func (b *trackedBody) Read(p []byte) (int, error) { return 0, io.EOF }
func (b *trackedBody) Close() error               { b.closed = true; return nil }

// scriptedTransport serves one canned status per round trip, handing out
// close-tracked bodies.
type scriptedTransport struct {
	statuses []int
	bodies   []*trackedBody
}

func (tr *scriptedTransport) RoundTrip(req *http.Request) (*http.Response, error) {
	status := tr.statuses[len(tr.bodies)]
	body := &trackedBody{}
	tr.bodies = append(tr.bodies, body)
	return &http.Response{
		StatusCode: status,
		Header:     http.Header{},
		Body:       body,
		Request:    req,
	}, nil
}

func TestClient_Do_ClosesRetriedResponseBodies(t *testing.T) {
	transport := &scriptedTransport{
		statuses: []int{http.StatusTooManyRequests, http.StatusTooManyRequests, http.StatusOK},
	}
	client := New(
		WithHTTPClient(&http.Client{Transport: transport}),
		WithMaxRetries(3),
		WithBaseDelay(time.Millisecond),
	)
	req, _ := http.NewRequest("GET", "http://example.test/", nil)

	resp, err := client.Do(req)
	if err != nil {
		t.Fatalf("Do() error = %v, want nil after retries", err)
	}
	defer resp.Body.Close()

	if len(transport.bodies) != 3 {
		t.Fatalf("got %d attempts, want 3", len(transport.bodies))
	}
	// Each abandoned response must be closed before the next attempt.
	for i, body := range transport.bodies[:2] {
		if !body.closed {
			t.Errorf("response body of attempt %d was not closed", i+1)
		}
	}
	if transport.bodies[2].closed {
		t.Error("final response body must stay open for the caller")
	}
}

func TestRetryableError_Error(t *testing.T) {
	e := &RetryableError{StatusCode: 429, Message: "rate limited", RetryAfter: 2 * time.Second}
	if e.Error() != "HTTP 429: rate limited (retry after 2s)" {
		t.Errorf("Error() = %q", e.Error())
	}

	e2 := &RetryableError{StatusCode: 500, Message: "server error"}
	if e2.Error() != "HTTP 500: server error" {
		t.Errorf("Error() = %q", e2.Error())
	}
}
