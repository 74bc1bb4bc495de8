package server

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"path/filepath"
	"testing"

	"github.com/ayusman/mudra/internal/classify"
	"github.com/ayusman/mudra/internal/feature"
	"github.com/ayusman/mudra/internal/store"
	"github.com/ayusman/mudra/internal/training"
)

func TestServer_Health(t *testing.T) {
	s := New(Config{})

	t.Run("returns 200 with JSON response", func(t *testing.T) {
		req := httptest.NewRequest(http.MethodGet, "/api/health", nil)
		rec := httptest.NewRecorder()

		s.ServeHTTP(rec, req)

		if rec.Code != http.StatusOK {
			t.Errorf("expected status %d, got %d", http.StatusOK, rec.Code)
		}
		if ct := rec.Header().Get("Content-Type"); ct != "application/json" {
			t.Errorf("expected Content-Type application/json, got %s", ct)
		}

		var response map[string]interface{}
		if err := json.NewDecoder(rec.Body).Decode(&response); err != nil {
			t.Fatalf("failed to decode response: %v", err)
		}
		if response["status"] != "ok" {
			t.Errorf("expected status 'ok', got %v", response["status"])
		}
		if _, exists := response["uptime"]; !exists {
			t.Error("expected 'uptime' field in response")
		}
	})

	t.Run("only allows GET method", func(t *testing.T) {
		for _, method := range []string{http.MethodPost, http.MethodPut, http.MethodDelete} {
			req := httptest.NewRequest(method, "/api/health", nil)
			rec := httptest.NewRecorder()

			s.ServeHTTP(rec, req)

			if rec.Code != http.StatusMethodNotAllowed {
				t.Errorf("method %s: expected status %d, got %d", method, http.StatusMethodNotAllowed, rec.Code)
			}
		}
	})
}

func TestServer_Model(t *testing.T) {
	t.Run("404 when no classifier configured", func(t *testing.T) {
		s := New(Config{})
		req := httptest.NewRequest(http.MethodGet, "/api/model", nil)
		rec := httptest.NewRecorder()

		s.ServeHTTP(rec, req)

		if rec.Code != http.StatusNotFound {
			t.Errorf("expected status %d, got %d", http.StatusNotFound, rec.Code)
		}
	})

	t.Run("404 when no model loaded", func(t *testing.T) {
		s := New(Config{Classes: classify.NewClassifier()})
		req := httptest.NewRequest(http.MethodGet, "/api/model", nil)
		rec := httptest.NewRecorder()

		s.ServeHTTP(rec, req)

		if rec.Code != http.StatusNotFound {
			t.Errorf("expected status %d, got %d", http.StatusNotFound, rec.Code)
		}
	})

	t.Run("reports loaded artifact metadata", func(t *testing.T) {
		ds := classify.NewDataset()
		for i := 0; i < 5; i++ {
			ds.Add(classify.Sample{Label: "fist", Vector: feature.Vector{1, 0}})
			ds.Add(classify.Sample{Label: "palm", Vector: feature.Vector{0, 1}})
		}
		artifact, err := classify.Train(ds, classify.KindMargin)
		if err != nil {
			t.Fatalf("Train() error = %v", err)
		}
		clf := classify.NewClassifier()
		if err := clf.Load(artifact); err != nil {
			t.Fatalf("Load() error = %v", err)
		}

		s := New(Config{Classes: clf})
		req := httptest.NewRequest(http.MethodGet, "/api/model", nil)
		rec := httptest.NewRecorder()

		s.ServeHTTP(rec, req)

		if rec.Code != http.StatusOK {
			t.Fatalf("expected status %d, got %d", http.StatusOK, rec.Code)
		}
		var response map[string]interface{}
		if err := json.NewDecoder(rec.Body).Decode(&response); err != nil {
			t.Fatalf("failed to decode response: %v", err)
		}
		if response["kind"] != "margin" {
			t.Errorf("expected kind 'margin', got %v", response["kind"])
		}
		if response["id"] != artifact.ID {
			t.Errorf("expected id %q, got %v", artifact.ID, response["id"])
		}
	})
}

func TestServer_Labels(t *testing.T) {
	st, err := store.New(filepath.Join(t.TempDir(), "test.db"))
	if err != nil {
		t.Fatalf("store.New() error = %v", err)
	}
	defer st.Close()

	samples := []classify.Sample{
		{Label: "fist", Vector: feature.Vector{1}},
		{Label: "fist", Vector: feature.Vector{2}},
		{Label: "palm", Vector: feature.Vector{3}},
	}
	if err := st.Samples().Append(samples); err != nil {
		t.Fatalf("Append() error = %v", err)
	}

	s := New(Config{Store: st})
	req := httptest.NewRequest(http.MethodGet, "/api/labels", nil)
	rec := httptest.NewRecorder()

	s.ServeHTTP(rec, req)

	if rec.Code != http.StatusOK {
		t.Fatalf("expected status %d, got %d", http.StatusOK, rec.Code)
	}
	var counts map[string]int
	if err := json.NewDecoder(rec.Body).Decode(&counts); err != nil {
		t.Fatalf("failed to decode response: %v", err)
	}
	if counts["fist"] != 2 || counts["palm"] != 1 {
		t.Errorf("counts = %v, want fist:2 palm:1", counts)
	}
}

func TestServer_Train(t *testing.T) {
	t.Run("returns the evaluation report", func(t *testing.T) {
		ds := classify.NewDataset()
		for i := 0; i < 5; i++ {
			ds.Add(classify.Sample{Label: "fist", Vector: feature.Vector{1, 0}})
			ds.Add(classify.Sample{Label: "palm", Vector: feature.Vector{0, 1}})
		}
		artifact, err := classify.Train(ds, classify.KindMargin)
		if err != nil {
			t.Fatalf("Train() error = %v", err)
		}

		s := New(Config{
			Train: func() (*classify.Artifact, *training.Report, error) {
				return artifact, &training.Report{Accuracy: 1.0, TestSamples: 2}, nil
			},
		})
		req := httptest.NewRequest(http.MethodPost, "/api/train", nil)
		rec := httptest.NewRecorder()

		s.ServeHTTP(rec, req)

		if rec.Code != http.StatusOK {
			t.Fatalf("expected status %d, got %d", http.StatusOK, rec.Code)
		}
		var response map[string]interface{}
		if err := json.NewDecoder(rec.Body).Decode(&response); err != nil {
			t.Fatalf("failed to decode response: %v", err)
		}
		if response["id"] != artifact.ID {
			t.Errorf("expected id %q, got %v", artifact.ID, response["id"])
		}
		if response["accuracy"] != 1.0 {
			t.Errorf("expected accuracy 1.0, got %v", response["accuracy"])
		}
	})

	t.Run("maps training failures to 422", func(t *testing.T) {
		s := New(Config{
			Train: func() (*classify.Artifact, *training.Report, error) {
				return nil, nil, training.ErrInsufficientLabels
			},
		})
		req := httptest.NewRequest(http.MethodPost, "/api/train", nil)
		rec := httptest.NewRecorder()

		s.ServeHTTP(rec, req)

		if rec.Code != http.StatusUnprocessableEntity {
			t.Errorf("expected status %d, got %d", http.StatusUnprocessableEntity, rec.Code)
		}
	})

	t.Run("rejects GET", func(t *testing.T) {
		s := New(Config{
			Train: func() (*classify.Artifact, *training.Report, error) {
				return nil, nil, nil
			},
		})
		req := httptest.NewRequest(http.MethodGet, "/api/train", nil)
		rec := httptest.NewRecorder()

		s.ServeHTTP(rec, req)

		if rec.Code != http.StatusMethodNotAllowed {
			t.Errorf("expected status %d, got %d", http.StatusMethodNotAllowed, rec.Code)
		}
	})
}

func TestServer_NotFound(t *testing.T) {
	s := New(Config{})

	req := httptest.NewRequest(http.MethodGet, "/api/nonexistent", nil)
	rec := httptest.NewRecorder()

	s.ServeHTTP(rec, req)

	if rec.Code != http.StatusNotFound {
		t.Errorf("expected status %d, got %d", http.StatusNotFound, rec.Code)
	}
}
