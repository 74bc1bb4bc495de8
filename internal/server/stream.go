package server

import (
	"fmt"
	"net/http"
	"time"

	"github.com/ayusman/mudra/internal/app"
)

const streamInterval = 66 * time.Millisecond // ~15 FPS

// StreamHandler serves MJPEG frames published by the recognition loop.
// The loop owns the camera; the handler only reads the latest snapshot,
// so any number of viewers can attach without disturbing recognition.
type StreamHandler struct {
	app *app.App
}

// NewStreamHandler creates a new StreamHandler fed by the given app.
func NewStreamHandler(a *app.App) *StreamHandler {
	return &StreamHandler{app: a}
}

// ServeHTTP streams MJPEG frames to the client until it disconnects.
func (h *StreamHandler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		http.Error(w, "Method not allowed", http.StatusMethodNotAllowed)
		return
	}

	w.Header().Set("Content-Type", "multipart/x-mixed-replace; boundary=frame")
	w.Header().Set("Cache-Control", "no-cache")
	w.Header().Set("Connection", "keep-alive")

	h.app.AddFrameSink()
	defer h.app.RemoveFrameSink()

	for {
		select {
		case <-r.Context().Done():
			return
		default:
		}

		buf := h.app.LatestJPEG()
		if buf == nil {
			time.Sleep(100 * time.Millisecond)
			continue
		}

		fmt.Fprintf(w, "--frame\r\n")
		fmt.Fprintf(w, "Content-Type: image/jpeg\r\n")
		fmt.Fprintf(w, "Content-Length: %d\r\n\r\n", len(buf))
		w.Write(buf)
		fmt.Fprintf(w, "\r\n")

		if f, ok := w.(http.Flusher); ok {
			f.Flush()
		}

		time.Sleep(streamInterval)
	}
}
