package client

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/rs/zerolog"

	"github.com/cloudbox/shardstats"
	"github.com/cloudbox/shardstats/api"
	"github.com/cloudbox/shardstats/shards"
	"github.com/cloudbox/shardstats/stats"
)

func newTestDaemon(t *testing.T) (*shards.Registry, *Client) {
	t.Helper()

	reg := shards.New(shards.Config{Logger: zerolog.Nop()})
	mux := chi.NewRouter()
	api.New(api.Config{Registry: reg}).Mount(mux)

	srv := httptest.NewServer(mux)
	t.Cleanup(srv.Close)

	return reg, New(Config{URL: srv.URL, Timeout: time.Second}, zerolog.Nop())
}

func TestStats(t *testing.T) {
	reg, c := newTestDaemon(t)

	s := reg.Open(shardstats.ShardID{Index: "products"})
	s.OnPreQueryPhase([]string{"g1"})
	s.OnQueryPhase([]string{"g1"}, 5*time.Millisecond)
	reg.Open(shardstats.ShardID{Index: "products", Shard: 1}).OnPreQueryPhase(nil)

	snaps, err := c.Stats(context.Background(), shardstats.AllGroups)
	if err != nil {
		t.Fatal(err)
	}
	if len(snaps) != 2 {
		t.Fatalf("expected 2 snapshots, got %d", len(snaps))
	}

	total := Sum(snaps)
	want := stats.Stats{QueryCount: 1, QueryTimeMillis: 5, QueryCurrent: 1}
	if total.Total != want {
		t.Errorf("expected summed totals %+v, got %+v", want, total.Total)
	}
	if total.Groups["g1"].QueryCount != 1 {
		t.Errorf("expected g1 in summed groups, got %v", total.Groups)
	}
}

func TestShardStats(t *testing.T) {
	reg, c := newTestDaemon(t)
	reg.Open(shardstats.ShardID{Index: "products"}).OnPreFetchPhase([]string{"g1"})

	snap, err := c.ShardStats(context.Background(), shardstats.ShardID{Index: "products"}, "g1")
	if err != nil {
		t.Fatal(err)
	}
	if snap.Groups["g1"].FetchCurrent != 1 {
		t.Errorf("expected g1 fetch_current=1, got %+v", snap)
	}

	_, err = c.ShardStats(context.Background(), shardstats.ShardID{Index: "missing"})
	if !errors.Is(err, shardstats.ErrShardNotFound) {
		t.Errorf("expected ErrShardNotFound, got %v", err)
	}
}

func TestClear(t *testing.T) {
	reg, c := newTestDaemon(t)
	id := shardstats.ShardID{Index: "products"}
	s := reg.Open(id)
	s.OnPreQueryPhase(nil)
	s.OnQueryPhase(nil, time.Millisecond)

	if err := c.Clear(context.Background(), &id); err != nil {
		t.Fatal(err)
	}
	if s.Stats().Total.QueryCount != 0 {
		t.Errorf("expected cleared shard, got %+v", s.Stats().Total)
	}

	if err := c.Clear(context.Background(), nil); err != nil {
		t.Fatal(err)
	}
}

func TestBasicAuthFailure(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if user, pass, ok := r.BasicAuth(); !ok || user != "admin" || pass != "secret" {
			w.WriteHeader(http.StatusUnauthorized)
			return
		}
		_, _ = w.Write([]byte(`[]`))
	}))
	defer srv.Close()

	bad := New(Config{URL: srv.URL, Username: "admin", Password: "wrong"}, zerolog.Nop())
	if _, err := bad.Stats(context.Background()); !errors.Is(err, shardstats.ErrFatal) {
		t.Errorf("expected ErrFatal, got %v", err)
	}

	good := New(Config{URL: srv.URL, Username: "admin", Password: "secret"}, zerolog.Nop())
	if _, err := good.Stats(context.Background()); err != nil {
		t.Errorf("unexpected error %v", err)
	}
}
