// Package server assembles all HTTP handlers and starts the server.
package server

import (
	"context"
	"fmt"
	"log"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"

	"github.com/datasmith/datasmith/internal/backend"
	"github.com/datasmith/datasmith/internal/catalog"
	"github.com/datasmith/datasmith/internal/eventbus"
	"github.com/datasmith/datasmith/internal/handler"
	"github.com/datasmith/datasmith/internal/history"
	"github.com/datasmith/datasmith/internal/session"
	"github.com/datasmith/datasmith/internal/wire"
)

// Session GC cadence and limits.
const (
	cleanupInterval = time.Minute
	sessionMaxAge   = 12 * time.Hour
	sessionIdle     = 30 * time.Minute
)

// Config holds server configuration.
type Config struct {
	Port    int
	Client  *backend.Client
	Catalog *catalog.Catalog
	Bus     *eventbus.Bus
	History *history.Store
}

// Run starts the HTTP server with all routes registered.
func Run(ctx context.Context, cfg Config) error {
	sessions := session.NewManager(sessionMaxAge, sessionIdle)
	go gcSessions(ctx, sessions)

	r := chi.NewRouter()
	r.Use(handler.Recovery, handler.Logging)

	// Health check
	r.Get("/healthz", func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		w.Write([]byte(`{"status":"ok"}`))
	})

	// One-shot generation API
	gh := handler.NewGenerateHandler(cfg.Client, cfg.Catalog, cfg.Bus)
	r.Route("/v1", func(r chi.Router) {
		r.Post("/generate/single", gh.GenerateSingle)
		r.Post("/generate/text", gh.GenerateText)
		r.Post("/generate/script", gh.GenerateScript)
		r.Post("/generate/database", gh.GenerateDatabase)
		r.Post("/parse", gh.ParseScript)
		r.Get("/catalog", gh.ListCatalog)
		r.Get("/catalog/{id}", gh.GetCatalogEntry)
		r.Get("/backend/health", gh.BackendHealth)

		eh := handler.NewExportHandler()
		r.Post("/export/csv", eh.ExportCSV)
		r.Post("/export/xlsx", eh.ExportXLSX)
		r.Post("/export/sqlite", eh.ExportSQLite)

		if cfg.History != nil {
			evh := handler.NewEventsHandler(cfg.History)
			r.Get("/events", evh.ListEvents)
		}
	})

	// Interactive studio protocol
	wh := wire.NewHandler(sessions, cfg.Client, cfg.Catalog, cfg.Bus)
	r.Get("/api/studio/ws", wh.ServeHTTP)

	addr := fmt.Sprintf(":%d", cfg.Port)
	log.Printf("starting server on %s", addr)

	server := &http.Server{
		Addr:    addr,
		Handler: r,
	}

	go func() {
		<-ctx.Done()
		shutCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		server.Shutdown(shutCtx)
	}()

	return server.ListenAndServe()
}

func gcSessions(ctx context.Context, sessions *session.Manager) {
	ticker := time.NewTicker(cleanupInterval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			sessions.Cleanup()
		}
	}
}
