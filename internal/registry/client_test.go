package registry

import (
	"context"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"
	"time"
)

func TestFetchIndex(t *testing.T) {
	var gotAuth atomic.Value
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotAuth.Store(r.Header.Get("Authorization"))
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(`{"prompts":[
			{"id":"p1","title":"One","category":"coding","tags":["go"],"author":{"id":"u1"},
			 "createdAt":"2025-05-01T00:00:00Z","updatedAt":"2025-05-20T00:00:00Z",
			 "stats":{"views":10,"copies":4,"saves":1,"rating":4.5,"ratingCount":2}},
			{"id":"p2","title":"Two","category":"writing","tags":[],"author":{"id":"u2"},
			 "createdAt":"2025-05-02T00:00:00Z","updatedAt":"2025-05-02T00:00:00Z",
			 "stats":{"views":3,"copies":1,"saves":0,"rating":0,"ratingCount":0}}
		]}`))
	}))
	defer srv.Close()

	c := NewHTTPClient(srv.URL, "secret")
	got, err := c.FetchIndex(context.Background())
	if err != nil {
		t.Fatal(err)
	}
	if len(got) != 2 {
		t.Fatalf("got %d prompts", len(got))
	}
	if got[0].ID != "p1" || got[0].Stats.Views != 10 || got[0].Tags[0] != "go" {
		t.Fatalf("decode mismatch: %+v", got[0])
	}
	if gotAuth.Load() != "Bearer secret" {
		t.Fatalf("auth header = %v", gotAuth.Load())
	}
}

func TestFetchIndexRetriesOn500(t *testing.T) {
	var calls atomic.Int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if calls.Add(1) == 1 {
			w.WriteHeader(http.StatusInternalServerError)
			return
		}
		_, _ = w.Write([]byte(`{"prompts":[]}`))
	}))
	defer srv.Close()

	c := NewHTTPClient(srv.URL, "")
	c.maxAttempts = 3
	c.baseBackoff = 5 * time.Millisecond
	if _, err := c.FetchIndex(context.Background()); err != nil {
		t.Fatal(err)
	}
	if calls.Load() != 2 {
		t.Fatalf("expected one retry, got %d calls", calls.Load())
	}
}

func TestFetchIndexGivesUp(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusServiceUnavailable)
	}))
	defer srv.Close()

	c := NewHTTPClient(srv.URL, "")
	c.maxAttempts = 2
	c.baseBackoff = time.Millisecond
	if _, err := c.FetchIndex(context.Background()); err == nil {
		t.Fatal("expected error after exhausting retries")
	}
}

func TestFetchIndexNoURL(t *testing.T) {
	c := NewHTTPClient("", "")
	if _, err := c.FetchIndex(context.Background()); err == nil {
		t.Fatal("expected error for missing url")
	}
}
