package httpclient

import (
	"context"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"
	"time"

	"ForecastDebate/internal/config"

	"github.com/sirupsen/logrus"
)

func TestDoWithRetry_RetriesOn429(t *testing.T) {
	BaseRetryDelay = time.Millisecond
	defer func() { BaseRetryDelay = 2 * time.Second }()

	var hits int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if atomic.AddInt32(&hits, 1) < 3 {
			w.WriteHeader(http.StatusTooManyRequests)
			return
		}
		w.WriteHeader(http.StatusOK)
	}))
	defer srv.Close()

	logger := logrus.New()
	client := NewProviderClient("test", config.ProviderConfig{Timeout: 5}, logger)
	resp, err := DoWithRetry(context.Background(), client, 3, logrus.NewEntry(logger), func(ctx context.Context) (*http.Request, error) {
		return http.NewRequestWithContext(ctx, http.MethodGet, srv.URL, nil)
	})
	if err != nil {
		t.Fatalf("DoWithRetry: %v", err)
	}
	resp.Body.Close()
	if resp.StatusCode != http.StatusOK || atomic.LoadInt32(&hits) != 3 {
		t.Errorf("status=%d hits=%d, want 200 after 3 hits", resp.StatusCode, hits)
	}
}

func TestDoWithRetry_GivesUp(t *testing.T) {
	BaseRetryDelay = time.Millisecond
	defer func() { BaseRetryDelay = 2 * time.Second }()

	var hits int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		atomic.AddInt32(&hits, 1)
		w.WriteHeader(http.StatusTooManyRequests)
	}))
	defer srv.Close()

	logger := logrus.New()
	resp, err := DoWithRetry(context.Background(), NewProviderClient("test", config.ProviderConfig{}, logger), 2, logrus.NewEntry(logger), func(ctx context.Context) (*http.Request, error) {
		return http.NewRequestWithContext(ctx, http.MethodGet, srv.URL, nil)
	})
	if err != nil {
		t.Fatalf("DoWithRetry: %v", err)
	}
	resp.Body.Close()
	if resp.StatusCode != http.StatusTooManyRequests || atomic.LoadInt32(&hits) != 2 {
		t.Errorf("status=%d hits=%d, want final 429 after 2 hits", resp.StatusCode, hits)
	}
}

func TestRetryWait(t *testing.T) {
	BaseRetryDelay = 2 * time.Second
	if got := retryWait("", 1); got != 4*time.Second {
		t.Errorf("backoff = %v, want 4s", got)
	}
	if got := retryWait("10", 0); got != 10*time.Second {
		t.Errorf("retry-after = %v, want 10s", got)
	}
	if got := retryWait("1", 2); got != 8*time.Second {
		t.Errorf("max = %v, want 8s", got)
	}
}
