package api

import (
	"github.com/go-chi/chi/v5"
)

// Mount registers the stats and shard routes on r.
func (h *Handler) Mount(r chi.Router) {
	r.Route("/stats", func(sub chi.Router) {
		sub.Get("/", h.Stats)
		sub.Post("/_clear", h.Clear)
		sub.Get("/{index}/{shard}", h.ShardStats)
		sub.Post("/{index}/{shard}/_clear", h.ClearShard)
	})

	r.Route("/shards/{index}/{shard}", func(sub chi.Router) {
		sub.Put("/", h.OpenShard)
		sub.Delete("/", h.CloseShard)
		sub.Post("/events", h.Events)
	})
}
