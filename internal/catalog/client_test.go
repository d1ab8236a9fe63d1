package catalog

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"
	"time"

	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog"
	"github.com/skillproof/proctor-backend/internal/model"
)

func testRedis() *redis.Client {
	// Commands fail fast; the client degrades to direct fetches.
	return redis.NewClient(&redis.Options{
		Addr:        "127.0.0.1:1",
		DialTimeout: 50 * time.Millisecond,
		MaxRetries:  -1,
	})
}

func TestGetTestFetchesDefinition(t *testing.T) {
	var hits atomic.Int64
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		hits.Add(1)
		if r.URL.Path != "/tests/go-fundamentals" {
			w.WriteHeader(http.StatusNotFound)
			return
		}
		json.NewEncoder(w).Encode(model.TestDefinition{
			ID:           "go-fundamentals",
			Title:        "Go Fundamentals",
			DurationMins: 30,
			PassingScore: 60,
		})
	}))
	defer srv.Close()

	c := NewClient(srv.URL, testRedis(), zerolog.Nop())
	def, err := c.GetTest(context.Background(), "go-fundamentals")
	if err != nil {
		t.Fatalf("GetTest: %v", err)
	}
	if def.Title != "Go Fundamentals" || def.DurationMins != 30 {
		t.Fatalf("definition = %+v", def)
	}
	if hits.Load() != 1 {
		t.Fatalf("catalog hits = %d, want 1", hits.Load())
	}
}

func TestGetTestNotFound(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusNotFound)
	}))
	defer srv.Close()

	c := NewClient(srv.URL, testRedis(), zerolog.Nop())
	if _, err := c.GetTest(context.Background(), "missing"); !errors.Is(err, ErrTestNotFound) {
		t.Fatalf("err = %v, want ErrTestNotFound", err)
	}
}

func TestGetTestUpstreamError(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusInternalServerError)
	}))
	defer srv.Close()

	c := NewClient(srv.URL, testRedis(), zerolog.Nop())
	if _, err := c.GetTest(context.Background(), "broken"); err == nil {
		t.Fatal("upstream 500 returned no error")
	}
}

func TestGetTestFillsMissingID(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		json.NewEncoder(w).Encode(model.TestDefinition{Title: "Untagged"})
	}))
	defer srv.Close()

	c := NewClient(srv.URL, testRedis(), zerolog.Nop())
	def, err := c.GetTest(context.Background(), "implied-id")
	if err != nil {
		t.Fatalf("GetTest: %v", err)
	}
	if def.ID != "implied-id" {
		t.Fatalf("ID = %s, want implied-id backfilled", def.ID)
	}
}
