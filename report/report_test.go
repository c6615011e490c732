package report

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/cloudbox/shardstats"
	"github.com/cloudbox/shardstats/shards"
	"github.com/cloudbox/shardstats/stats"
)

func TestNewRequiresURL(t *testing.T) {
	if _, err := New(Config{}); !errors.Is(err, shardstats.ErrFatal) {
		t.Errorf("expected ErrFatal, got %v", err)
	}
}

func TestPush(t *testing.T) {
	currentTime := time.Date(2026, 1, 2, 3, 4, 5, 0, time.UTC)
	now = func() time.Time { return currentTime }
	defer func() { now = time.Now }()

	var received Payload
	var user, pass string

	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.Method != http.MethodPost {
			w.WriteHeader(http.StatusMethodNotAllowed)
			return
		}
		user, pass, _ = r.BasicAuth()
		if err := json.NewDecoder(r.Body).Decode(&received); err != nil {
			w.WriteHeader(http.StatusBadRequest)
			return
		}
		w.WriteHeader(http.StatusAccepted)
	}))
	defer srv.Close()

	hook, err := New(Config{URL: srv.URL, User: "u", Pass: "p", Groups: []string{shardstats.AllGroups}})
	if err != nil {
		t.Fatal(err)
	}

	snaps := []shards.ShardSnapshot{{
		Index: "products",
		Stats: stats.Snapshot{Total: stats.Stats{QueryCount: 4}},
	}}

	if err := hook.Push(context.Background(), snaps); err != nil {
		t.Fatal(err)
	}

	if !received.Timestamp.Equal(currentTime) {
		t.Errorf("expected timestamp %v, got %v", currentTime, received.Timestamp)
	}
	if len(received.Shards) != 1 || received.Shards[0].Stats.Total.QueryCount != 4 {
		t.Errorf("unexpected payload %+v", received)
	}
	if user != "u" || pass != "p" {
		t.Errorf("expected basic auth credentials, got %q:%q", user, pass)
	}
	if got := hook.Groups(); len(got) != 1 || got[0] != shardstats.AllGroups {
		t.Errorf("unexpected groups %v", got)
	}
}

func TestPushUnavailable(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusBadGateway)
	}))
	defer srv.Close()

	hook, err := New(Config{URL: srv.URL})
	if err != nil {
		t.Fatal(err)
	}

	if err := hook.Push(context.Background(), nil); !errors.Is(err, shardstats.ErrUnavailable) {
		t.Errorf("expected ErrUnavailable, got %v", err)
	}
	if err := hook.Available(context.Background()); !errors.Is(err, shardstats.ErrUnavailable) {
		t.Errorf("expected ErrUnavailable, got %v", err)
	}
}

func TestAvailable(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.Method != http.MethodHead {
			w.WriteHeader(http.StatusMethodNotAllowed)
			return
		}

		if user, pass, ok := r.BasicAuth(); !ok || user != "u" || pass != "p" {
			w.WriteHeader(http.StatusUnauthorized)
			return
		}

		w.WriteHeader(http.StatusOK)
	}))
	defer srv.Close()

	type Test struct {
		Name string
		User string
		Pass string
		Err  error
	}

	testCases := []Test{
		{Name: "Reachable", User: "u", Pass: "p"},
		{Name: "Wrong credentials", User: "u", Pass: "nope", Err: shardstats.ErrFatal},
		{Name: "No credentials", Err: shardstats.ErrFatal},
	}

	for _, tc := range testCases {
		t.Run(tc.Name, func(t *testing.T) {
			hook, err := New(Config{URL: srv.URL, User: tc.User, Pass: tc.Pass})
			if err != nil {
				t.Fatal(err)
			}

			err = hook.Available(context.Background())
			if !errors.Is(err, tc.Err) {
				t.Errorf("expected %v, got %v", tc.Err, err)
			}
		})
	}
}
