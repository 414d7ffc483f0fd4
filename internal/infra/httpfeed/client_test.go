package httpfeed

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"grid_go/internal/domain"

	"github.com/shopspring/decimal"
)

const snapshotBody = `[
  {"code":"159915.SZ","price":2.1},
  {"code":"512710.SH","servertime":"2025-11-12 10:00:00","price":0.682,"bid1":"0.681","ask1":"0.683","open":0.680}
]`

func newTestClient(url string, retries int) *Client {
	c := NewClient(url, time.Second, retries, time.FixedZone("CST", 8*3600))
	c.backoff = func(int) time.Duration { return 0 }
	return c
}

func TestClient_Fetch(t *testing.T) {
	var gotCodes, gotUA string
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotCodes = r.URL.Query().Get("codes")
		gotUA = r.Header.Get("User-Agent")
		w.WriteHeader(http.StatusOK)
		w.Write([]byte(snapshotBody))
	}))
	defer server.Close()

	q, err := newTestClient(server.URL, 1).Fetch(context.Background(), "512710.SH")
	if err != nil {
		t.Fatalf("Fetch failed: %v", err)
	}
	if gotCodes != "512710.SH" || gotUA == "" {
		t.Errorf("Unexpected request codes=%q ua=%q", gotCodes, gotUA)
	}
	if !q.Last.Equal(decimal.RequireFromString("0.682")) || !q.Bid.Equal(decimal.RequireFromString("0.681")) {
		t.Errorf("Unexpected quote %+v", q)
	}
	if !q.HasOpen() {
		t.Error("Expected opening price")
	}
	if q.Time.Hour() != 10 {
		t.Errorf("Expected 10:00 server time, got %s", q.Time)
	}
}

func TestClient_SymbolMissing(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(`[{"code":"159915.SZ","price":2.1}]`))
	}))
	defer server.Close()

	_, err := newTestClient(server.URL, 1).Fetch(context.Background(), "512710.SH")
	if !errors.Is(err, domain.ErrSymbolNotFound) {
		t.Errorf("Expected ErrSymbolNotFound, got %v", err)
	}
}

func TestClient_RetryOnFailure(t *testing.T) {
	callCount := 0
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		callCount++
		if callCount < 3 {
			w.WriteHeader(http.StatusTooManyRequests)
			return
		}
		w.WriteHeader(http.StatusOK)
		w.Write([]byte(snapshotBody))
	}))
	defer server.Close()

	// Fetch (should retry 2 times and succeed on 3rd)
	if _, err := newTestClient(server.URL, 3).Fetch(context.Background(), "512710.SH"); err != nil {
		t.Fatalf("Fetch should succeed after retries: %v", err)
	}
	if callCount != 3 {
		t.Errorf("Expected 3 calls, got %d", callCount)
	}
}

func TestClient_FatalStatusStopsRetrying(t *testing.T) {
	callCount := 0
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		callCount++
		w.WriteHeader(http.StatusForbidden)
	}))
	defer server.Close()

	_, err := newTestClient(server.URL, 3).Fetch(context.Background(), "512710.SH")
	var netErr *domain.NetworkError
	if !errors.As(err, &netErr) || netErr.IsRetriable() {
		t.Errorf("Expected fatal NetworkError, got %v", err)
	}
	if netErr != nil && netErr.Status != http.StatusForbidden {
		t.Errorf("Expected status 403 on the error, got %d", netErr.Status)
	}
	if callCount != 1 {
		t.Errorf("Expected a single call, got %d", callCount)
	}
}

func TestClient_BadJSON(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(`{not json`))
	}))
	defer server.Close()

	_, err := newTestClient(server.URL, 1).Fetch(context.Background(), "512710.SH")
	if err == nil || !domain.IsRetriable(err) {
		t.Errorf("Expected retriable decode error, got %v", err)
	}
}
