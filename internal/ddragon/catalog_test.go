package ddragon

import (
	"context"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"
	"time"

	"github.com/rs/zerolog"
)

func newDragonServer(t *testing.T, hits *atomic.Int32, fail *atomic.Bool) *httptest.Server {
	t.Helper()
	mux := http.NewServeMux()
	mux.HandleFunc("/api/versions.json", func(w http.ResponseWriter, _ *http.Request) {
		hits.Add(1)
		if fail.Load() {
			w.WriteHeader(http.StatusBadGateway)
			return
		}
		w.Write([]byte(`["14.20.1","14.19.1"]`)) //nolint:errcheck
	})
	mux.HandleFunc("/cdn/14.20.1/data/en_US/champion.json", func(w http.ResponseWriter, _ *http.Request) {
		w.Write([]byte(`{"data":{
			"Aatrox":{"id":"Aatrox","key":"266","name":"Aatrox"},
			"MonkeyKing":{"id":"MonkeyKing","key":"62","name":"Wukong"},
			"Broken":{"id":"Broken","key":"x","name":"Broken"}
		}}`)) //nolint:errcheck
	})
	srv := httptest.NewServer(mux)
	t.Cleanup(srv.Close)
	return srv
}

func TestCatalogResolvesNames(t *testing.T) {
	var hits atomic.Int32
	var fail atomic.Bool
	srv := newDragonServer(t, &hits, &fail)

	c := New(srv.URL, time.Hour, zerolog.Nop())
	if got := c.Name(context.Background(), 62); got != "Wukong" {
		t.Errorf("Name(62) = %q, want Wukong", got)
	}
	if got := c.Name(context.Background(), 266); got != "Aatrox" {
		t.Errorf("Name(266) = %q, want Aatrox", got)
	}
	if got := c.Name(context.Background(), 9999); got != "" {
		t.Errorf("Name(9999) = %q, want empty", got)
	}
	if got := c.Version(); got != "14.20.1" {
		t.Errorf("Version() = %q", got)
	}
	if n := hits.Load(); n != 1 {
		t.Errorf("versions fetched %d times, want 1 while cached", n)
	}
}

func TestCatalogRefreshesAfterTTL(t *testing.T) {
	var hits atomic.Int32
	var fail atomic.Bool
	srv := newDragonServer(t, &hits, &fail)

	c := New(srv.URL, time.Minute, zerolog.Nop())
	now := time.Now()
	c.now = func() time.Time { return now }

	c.Names(context.Background())
	now = now.Add(2 * time.Minute)
	c.Names(context.Background())

	if n := hits.Load(); n != 2 {
		t.Errorf("versions fetched %d times, want 2", n)
	}
}

func TestCatalogKeepsStaleNamesOnFailure(t *testing.T) {
	var hits atomic.Int32
	var fail atomic.Bool
	srv := newDragonServer(t, &hits, &fail)

	c := New(srv.URL, time.Minute, zerolog.Nop())
	now := time.Now()
	c.now = func() time.Time { return now }

	if got := c.Name(context.Background(), 266); got != "Aatrox" {
		t.Fatalf("Name(266) = %q", got)
	}
	fail.Store(true)
	now = now.Add(time.Hour)
	if got := c.Name(context.Background(), 266); got != "Aatrox" {
		t.Errorf("Name(266) after failed refresh = %q, want stale Aatrox", got)
	}
}

func TestCatalogEmptyWhenUnreachable(t *testing.T) {
	var hits atomic.Int32
	var fail atomic.Bool
	fail.Store(true)
	srv := newDragonServer(t, &hits, &fail)

	c := New(srv.URL, time.Minute, zerolog.Nop())
	if names := c.Names(context.Background()); len(names) != 0 {
		t.Errorf("Names() = %v, want empty", names)
	}
}
