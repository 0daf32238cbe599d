package main

import (
	"encoding/json"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"

	"github.com/kimhsiao/fieldcapture/backend/cmd/desktop/handlers"
	"github.com/kimhsiao/fieldcapture/backend/internal/logging"
)

// Version is set at build time
var Version = "0.1.0"

// newRouter registers every desktop endpoint.
func newRouter(records *handlers.RecordHandler, syncs *handlers.SyncHandler, hub *WSHub) chi.Router {
	r := chi.NewRouter()
	r.Use(middleware.RequestID)
	r.Use(middleware.Recoverer)
	r.Use(requestLogger)

	r.Get("/api/health", handleHealth)
	r.Get("/ws", HandleWebSocket(hub))

	r.Route("/api", func(r chi.Router) {
		r.Post("/records", records.SaveRecord)
		r.Post("/sync", syncs.TriggerSync)
		r.Get("/sync/status", syncs.GetStatus)
		r.Get("/pending", syncs.GetPending)
		r.Put("/network", syncs.SetNetwork)
	})
	return r
}

func handleHealth(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(map[string]string{
		"status":  "ok",
		"service": "fieldcapture-desktop",
		"version": Version,
	})
}

func requestLogger(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		ww := middleware.NewWrapResponseWriter(w, r.ProtoMajor)
		start := time.Now()
		next.ServeHTTP(ww, r)
		logging.Debug("HTTP request", map[string]interface{}{
			"method":      r.Method,
			"path":        r.URL.Path,
			"status":      ww.Status(),
			"bytes":       ww.BytesWritten(),
			"duration_ms": time.Since(start).Milliseconds(),
			"request_id":  middleware.GetReqID(r.Context()),
		})
	})
}
