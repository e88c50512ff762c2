package feed

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"
)

func TestFetcher_Fetch(t *testing.T) {
	var gotUserAgent string
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotUserAgent = r.Header.Get("User-Agent")
		w.Write([]byte("feed body"))
	}))
	defer server.Close()

	fetcher := NewFetcher(server.Client(), "TechNewsBot/1.0")
	data, err := fetcher.Fetch(context.Background(), server.URL)
	if err != nil {
		t.Fatalf("Expected no error, got: %v", err)
	}

	if string(data) != "feed body" {
		t.Errorf("Unexpected body: %s", data)
	}
	if gotUserAgent != "TechNewsBot/1.0" {
		t.Errorf("Expected configured user agent, got: %s", gotUserAgent)
	}
}

func TestFetcher_FetchNon200(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusInternalServerError)
	}))
	defer server.Close()

	fetcher := NewFetcher(server.Client(), "TechNewsBot/1.0")
	if _, err := fetcher.Fetch(context.Background(), server.URL); err == nil {
		t.Error("Expected error for non-200 response")
	}
}

func TestFetcher_FetchCancelledContext(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte("ok"))
	}))
	defer server.Close()

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	fetcher := NewFetcher(server.Client(), "TechNewsBot/1.0")
	if _, err := fetcher.Fetch(ctx, server.URL); err == nil {
		t.Error("Expected error for cancelled context")
	}
}
