// Package server provides the local HTTP surface: health, dataset and
// model inspection, the event WebSocket and the MJPEG preview stream.
package server

import (
	"encoding/json"
	"log"
	"net/http"
	"time"

	"github.com/ayusman/mudra/internal/app"
	"github.com/ayusman/mudra/internal/classify"
	"github.com/ayusman/mudra/internal/store"
	"github.com/ayusman/mudra/internal/training"
)

// Config holds the server configuration.
type Config struct {
	App     *app.App
	Store   *store.Store
	Classes *classify.Classifier
	// Train retrains on the stored dataset and loads the result. Wired by
	// the binary so the server stays ignorant of training parameters.
	Train func() (*classify.Artifact, *training.Report, error)
}

// Server is the HTTP server for the Mudra application.
type Server struct {
	config Config
	mux    *http.ServeMux
	start  time.Time
}

// New creates a new Server with the given configuration.
func New(config Config) *Server {
	s := &Server{
		config: config,
		mux:    http.NewServeMux(),
		start:  time.Now(),
	}
	s.setupRoutes()
	return s
}

func (s *Server) setupRoutes() {
	s.mux.HandleFunc("/api/health", s.handleHealth)
	s.mux.HandleFunc("/api/model", s.handleModel)

	if s.config.Store != nil {
		s.mux.HandleFunc("/api/labels", s.handleLabels)
	}
	if s.config.Train != nil {
		s.mux.HandleFunc("/api/train", s.handleTrain)
	}

	if s.config.App != nil {
		events := NewEventsHandler()
		s.config.App.OnEvent(events.Publish)
		s.mux.Handle("/api/events", events)

		s.mux.Handle("/api/stream", NewStreamHandler(s.config.App))
	}
}

// ServeHTTP implements the http.Handler interface.
func (s *Server) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	s.mux.ServeHTTP(w, r)
}

func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		http.Error(w, "Method not allowed", http.StatusMethodNotAllowed)
		return
	}

	response := map[string]interface{}{
		"status": "ok",
		"uptime": time.Since(s.start).String(),
	}
	if s.config.App != nil {
		response["enabled"] = s.config.App.IsEnabled()
	}
	writeJSON(w, response)
}

// handleModel reports the currently loaded model artifact metadata.
func (s *Server) handleModel(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		http.Error(w, "Method not allowed", http.StatusMethodNotAllowed)
		return
	}

	if s.config.Classes == nil {
		http.Error(w, "No classifier configured", http.StatusNotFound)
		return
	}
	art := s.config.Classes.Artifact()
	if art == nil {
		http.Error(w, "No model loaded", http.StatusNotFound)
		return
	}

	writeJSON(w, map[string]interface{}{
		"id":          art.ID,
		"kind":        art.Kind,
		"feature_len": art.FeatureLen,
		"labels":      art.Labels,
		"created_at":  art.CreatedAt,
	})
}

// handleLabels reports per-label sample counts from the store.
func (s *Server) handleLabels(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		http.Error(w, "Method not allowed", http.StatusMethodNotAllowed)
		return
	}

	counts, err := s.config.Store.Samples().CountByLabel()
	if err != nil {
		log.Printf("label counts: %v", err)
		http.Error(w, "Failed to read samples", http.StatusInternalServerError)
		return
	}
	writeJSON(w, counts)
}

// handleTrain retrains on the recorded dataset and reports the evaluation.
func (s *Server) handleTrain(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		http.Error(w, "Method not allowed", http.StatusMethodNotAllowed)
		return
	}

	artifact, report, err := s.config.Train()
	if err != nil {
		log.Printf("training failed: %v", err)
		http.Error(w, err.Error(), http.StatusUnprocessableEntity)
		return
	}

	writeJSON(w, map[string]interface{}{
		"id":       artifact.ID,
		"kind":     artifact.Kind,
		"labels":   artifact.Labels,
		"accuracy": report.Accuracy,
		"tested":   report.TestSamples,
	})
}

func writeJSON(w http.ResponseWriter, v interface{}) {
	w.Header().Set("Content-Type", "application/json")
	if err := json.NewEncoder(w).Encode(v); err != nil {
		http.Error(w, "Failed to encode response", http.StatusInternalServerError)
	}
}

// ListenAndServe starts the HTTP server on the given address.
func (s *Server) ListenAndServe(addr string) error {
	return http.ListenAndServe(addr, s)
}
