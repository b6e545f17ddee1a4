package apify

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"
	"time"
)

func TestFetchItems_Success(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/datasets/ds-1/items" {
			t.Errorf("Unexpected path: %s", r.URL.Path)
		}
		w.Write([]byte(`[{"username":"alice"}]`))
	}))
	defer server.Close()

	client := NewClient("test-token", WithBaseURL(server.URL))
	data, err := client.FetchItems(context.Background(), "ds-1", 3, time.Millisecond)
	if err != nil {
		t.Fatalf("Expected no error, got: %v", err)
	}
	if string(data) != `[{"username":"alice"}]` {
		t.Errorf("Unexpected items payload: %s", data)
	}
}

func TestFetchItems_RetryBound(t *testing.T) {
	var calls int32
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		atomic.AddInt32(&calls, 1)
		w.WriteHeader(http.StatusNotFound)
	}))
	defer server.Close()

	client := NewClient("test-token", WithBaseURL(server.URL))
	data, err := client.FetchItems(context.Background(), "ds-never", 5, time.Millisecond)
	if err != nil {
		t.Fatalf("Exhaustion should degrade, not error, got: %v", err)
	}
	if got := atomic.LoadInt32(&calls); got != 5 {
		t.Errorf("Expected exactly 5 attempts, got %d", got)
	}
	if string(data) != "[]" {
		t.Errorf("Expected empty item list on exhaustion, got: %s", data)
	}
}

func TestFetchItems_FailFastOnNonTransientError(t *testing.T) {
	var calls int32
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		atomic.AddInt32(&calls, 1)
		w.WriteHeader(http.StatusBadRequest)
		w.Write([]byte(`{"error":"invalid dataset"}`))
	}))
	defer server.Close()

	client := NewClient("test-token", WithBaseURL(server.URL))
	_, err := client.FetchItems(context.Background(), "ds-bad", 5, time.Millisecond)
	if err == nil {
		t.Fatal("Expected an error for a non-transient failure")
	}

	var apiErr *APIError
	if !errors.As(err, &apiErr) {
		t.Fatalf("Expected *APIError, got: %T", err)
	}
	if apiErr.StatusCode != http.StatusBadRequest {
		t.Errorf("Expected status 400, got %d", apiErr.StatusCode)
	}
	if got := atomic.LoadInt32(&calls); got != 1 {
		t.Errorf("Expected exactly 1 attempt, got %d", got)
	}
}

func TestFetchItems_ContextCancellation(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusNotFound)
	}))
	defer server.Close()

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	client := NewClient("test-token", WithBaseURL(server.URL))
	_, err := client.FetchItems(ctx, "ds-1", 10, time.Second)
	if !errors.Is(err, context.Canceled) {
		t.Errorf("Expected context.Canceled, got: %v", err)
	}
}

func TestGetRun(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/actor-runs/run-1" {
			t.Errorf("Unexpected path: %s", r.URL.Path)
		}
		w.Write([]byte(`{"data":{"id":"run-1","status":"SUCCEEDED","defaultDatasetId":"ds-1"}}`))
	}))
	defer server.Close()

	client := NewClient("test-token", WithBaseURL(server.URL))
	run, err := client.GetRun(context.Background(), "run-1")
	if err != nil {
		t.Fatalf("Expected no error, got: %v", err)
	}
	if run.ID != "run-1" {
		t.Errorf("Expected run ID 'run-1', got '%s'", run.ID)
	}
	if run.DefaultDatasetID != "ds-1" {
		t.Errorf("Expected dataset ID 'ds-1', got '%s'", run.DefaultDatasetID)
	}
}

func TestGetRun_UnknownRunFailsFast(t *testing.T) {
	var calls int32
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		atomic.AddInt32(&calls, 1)
		w.WriteHeader(http.StatusNotFound)
	}))
	defer server.Close()

	client := NewClient("test-token", WithBaseURL(server.URL))
	_, err := client.GetRun(context.Background(), "run-missing")
	if err == nil {
		t.Fatal("Expected an error for an unknown run")
	}
	if got := atomic.LoadInt32(&calls); got != 1 {
		t.Errorf("Expected exactly 1 call, got %d", got)
	}
}

func TestStartActor(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.Method != http.MethodPost {
			t.Errorf("Expected POST, got %s", r.Method)
		}
		if r.URL.Path != "/acts/actor-1/runs" {
			t.Errorf("Unexpected path: %s", r.URL.Path)
		}
		if r.URL.Query().Get("webhooks") == "" {
			t.Error("Expected webhooks query parameter")
		}
		w.WriteHeader(http.StatusCreated)
		w.Write([]byte(`{"data":{"id":"run-new","status":"RUNNING"}}`))
	}))
	defer server.Close()

	client := NewClient("test-token", WithBaseURL(server.URL))
	run, err := client.StartActor(context.Background(), "actor-1",
		map[string]interface{}{"directUrls": []string{"https://www.instagram.com/alice"}},
		[]Webhook{{
			EventTypes: []string{"ACTOR.RUN.SUCCEEDED"},
			RequestURL: "https://zine.example.com/webhooks/apify",
		}})
	if err != nil {
		t.Fatalf("Expected no error, got: %v", err)
	}
	if run.ID != "run-new" {
		t.Errorf("Expected run ID 'run-new', got '%s'", run.ID)
	}
}
