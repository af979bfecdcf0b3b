package api

import (
	"github.com/go-chi/chi/v5"
	"github.com/go-chi/cors"

	"github.com/ExpressedAi/Pinkmemory/internal/config"
	"github.com/ExpressedAi/Pinkmemory/internal/memory"
	"github.com/ExpressedAi/Pinkmemory/internal/scheduler"
)

func NewRouter(svc *memory.Service, runtime *config.Runtime, reflection *scheduler.Reflection) *chi.Mux {
	h := NewHandlers(svc, runtime, reflection)

	r := chi.NewRouter()

	r.Use(cors.Handler(cors.Options{
		AllowedOrigins:   []string{"*"},
		AllowedMethods:   []string{"GET", "POST", "PUT", "DELETE", "OPTIONS"},
		AllowedHeaders:   []string{"Accept", "Content-Type", "X-Request-ID"},
		ExposedHeaders:   []string{"X-Request-ID"},
		AllowCredentials: false,
		MaxAge:           300,
	}))
	r.Use(requestIDMiddleware)
	r.Use(loggingMiddleware)

	r.Get("/health", h.Health)

	r.Route("/api/v1", func(r chi.Router) {
		// Conversation
		r.Post("/chat", h.Chat)

		// Memories
		r.Post("/memories", h.Remember)
		r.Get("/memories", h.ListMemories)
		r.Delete("/memories", h.ClearMemories)
		r.Get("/memories/{tier}/{id}", h.GetMemory)
		r.Delete("/memories/{tier}/{id}", h.DeleteMemory)
		r.Post("/memories/{tier}/{id}/boost", h.BoostMemory)
		r.Post("/memories/recall", h.Recall)
		r.Post("/memories/decay", h.Decay)

		// Reflection
		r.Post("/reflect", h.Reflect)

		// Stats
		r.Get("/stats", h.GetStats)

		// Persistence
		r.Get("/export", h.Export)
		r.Post("/import", h.Import)

		// Runtime settings
		r.Get("/settings", h.GetSettings)
		r.Put("/settings", h.UpdateSettings)
	})

	return r
}
