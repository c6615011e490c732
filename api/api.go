// Package api provides the HTTP handlers of the shardstats daemon.
package api

import (
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/rs/zerolog/hlog"

	"github.com/cloudbox/shardstats"
	"github.com/cloudbox/shardstats/shards"
	"github.com/cloudbox/shardstats/stats"
)

const maxEventsBodySize = 1 << 20 // 1MB

type Config struct {
	Registry *shards.Registry

	// Groups returns the current group policy, it may change between requests.
	Groups func() shardstats.GroupResolver
}

// Handler serves snapshots, administrative clears and phase events.
type Handler struct {
	registry *shards.Registry
	groups   func() shardstats.GroupResolver
	pending  *pending
}

func New(c Config) *Handler {
	groups := c.Groups
	if groups == nil {
		groups = func() shardstats.GroupResolver {
			return func(g []string) []string { return g }
		}
	}

	return &Handler{
		registry: c.Registry,
		groups:   groups,
		pending:  newPending(),
	}
}

// Event is one phase hook invocation reported by search execution.
type Event struct {
	Phase     string   `json:"phase"`
	Event     string   `json:"event"`
	Groups    []string `json:"groups,omitempty"`
	TookNanos int64    `json:"took_nanos,omitempty"`
}

type errorResponse struct {
	Error string `json:"error"`
}

// Stats writes the snapshots of all open shards.
func (h *Handler) Stats(rw http.ResponseWriter, r *http.Request) {
	groups := shardstats.SplitGroups(r.URL.Query()["groups"]...)
	writeJSON(rw, r, http.StatusOK, h.registry.Snapshots(groups...))
}

// ShardStats writes the snapshot of the shard in the URL.
func (h *Handler) ShardStats(rw http.ResponseWriter, r *http.Request) {
	shard, ok := h.lookup(rw, r)
	if !ok {
		return
	}

	groups := shardstats.SplitGroups(r.URL.Query()["groups"]...)
	writeJSON(rw, r, http.StatusOK, shard.Stats(groups...))
}

// Clear clears accumulated history of all open shards.
func (h *Handler) Clear(rw http.ResponseWriter, r *http.Request) {
	n := h.registry.ClearAll()
	hlog.FromRequest(r).Info().Int("shards", n).Msg("Stats Cleared")
	rw.WriteHeader(http.StatusNoContent)
}

// ClearShard clears accumulated history of the shard in the URL.
func (h *Handler) ClearShard(rw http.ResponseWriter, r *http.Request) {
	shard, ok := h.lookup(rw, r)
	if !ok {
		return
	}

	shard.Clear()
	hlog.FromRequest(r).Info().Stringer("shard_id", shard.ID()).Msg("Stats Cleared")
	rw.WriteHeader(http.StatusNoContent)
}

// OpenShard creates the metrics registry of the shard in the URL.
func (h *Handler) OpenShard(rw http.ResponseWriter, r *http.Request) {
	id, ok := shardID(rw, r)
	if !ok {
		return
	}

	h.registry.Open(id)
	rw.WriteHeader(http.StatusNoContent)
}

// CloseShard discards the metrics registry of the shard in the URL.
func (h *Handler) CloseShard(rw http.ResponseWriter, r *http.Request) {
	id, ok := shardID(rw, r)
	if !ok {
		return
	}

	if err := h.registry.Close(id); err != nil {
		writeError(rw, r, err)
		return
	}

	h.pending.forget(id)

	rw.WriteHeader(http.StatusNoContent)
}

type decodedEvent struct {
	phase  stats.Phase
	event  stats.Event
	groups []string
	took   time.Duration
}

// Events applies a batch of phase events to the shard in the URL.
// The batch is validated as a whole before any event is applied.
func (h *Handler) Events(rw http.ResponseWriter, r *http.Request) {
	rlog := hlog.FromRequest(r)

	shard, ok := h.lookup(rw, r)
	if !ok {
		return
	}

	var events []Event
	if err := json.NewDecoder(http.MaxBytesReader(rw, r.Body, maxEventsBodySize)).Decode(&events); err != nil {
		rlog.Debug().Err(err).Msg("Failed decoding events")
		writeError(rw, r, fmt.Errorf("decode events: %w: %w", err, shardstats.ErrInvalidEvent))
		return
	}

	resolve := h.groups()

	decoded := make([]decodedEvent, 0, len(events))
	for _, e := range events {
		phase, err := stats.ParsePhase(e.Phase)
		if err != nil {
			writeError(rw, r, err)
			return
		}

		ev, err := stats.ParseEvent(e.Event)
		if err != nil {
			writeError(rw, r, err)
			return
		}

		if e.TookNanos < 0 {
			writeError(rw, r, fmt.Errorf("negative took_nanos %d: %w", e.TookNanos, shardstats.ErrInvalidEvent))
			return
		}

		decoded = append(decoded, decodedEvent{
			phase:  phase,
			event:  ev,
			groups: e.Groups,
			took:   time.Duration(e.TookNanos),
		})
	}

	for _, e := range decoded {
		groups := h.pending.resolve(shard.ID(), e.phase, e.event, e.groups, resolve)
		if err := shard.Record(e.phase, e.event, groups, e.took); err != nil {
			// validated above
			writeError(rw, r, err)
			return
		}
	}

	rlog.Trace().Int("events", len(decoded)).Stringer("shard_id", shard.ID()).Msg("Events Recorded")
	rw.WriteHeader(http.StatusAccepted)
}

func shardID(rw http.ResponseWriter, r *http.Request) (shardstats.ShardID, bool) {
	id, err := shardstats.ParseShardID(chi.URLParam(r, "index"), chi.URLParam(r, "shard"))
	if err != nil {
		writeError(rw, r, err)
		return shardstats.ShardID{}, false
	}

	return id, true
}

func (h *Handler) lookup(rw http.ResponseWriter, r *http.Request) (*stats.Shard, bool) {
	id, ok := shardID(rw, r)
	if !ok {
		return nil, false
	}

	shard, err := h.registry.Get(id)
	if err != nil {
		writeError(rw, r, err)
		return nil, false
	}

	return shard, true
}

func writeError(rw http.ResponseWriter, r *http.Request, err error) {
	status := http.StatusInternalServerError
	switch {
	case errors.Is(err, shardstats.ErrShardNotFound):
		status = http.StatusNotFound
	case errors.Is(err, shardstats.ErrInvalidShard), errors.Is(err, shardstats.ErrInvalidEvent):
		status = http.StatusBadRequest
	}

	hlog.FromRequest(r).Debug().Err(err).Int("status", status).Msg("Request Rejected")
	writeJSON(rw, r, status, errorResponse{Error: err.Error()})
}

func writeJSON(rw http.ResponseWriter, r *http.Request, status int, v any) {
	rw.Header().Set("Content-Type", "application/json")
	rw.WriteHeader(status)

	if err := json.NewEncoder(rw).Encode(v); err != nil {
		hlog.FromRequest(r).Error().Err(err).Msg("Failed encoding response")
	}
}
