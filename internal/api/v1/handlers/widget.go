package handlers

import (
	_ "embed"
	"net/http"

	"github.com/regscout/regscout/internal/services/session"
	"github.com/regscout/regscout/pkg/logger"
)

var (
	//go:embed static/index.html
	indexHTML []byte

	//go:embed static/widget.js
	widgetJS []byte
)

// HandleIndex serves the chat page.
func HandleIndex(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	w.Header().Set("Cache-Control", "no-cache")

	if _, err := w.Write(indexHTML); err != nil {
		log := logger.For(logger.HANDLER)
		log.Warn().Err(err).Msg("Failed to write index page")
	}
}

// HandleWidgetJS serves the widget script and makes sure the caller holds a
// session cookie.
func HandleWidgetJS(sessionService *session.Service, w http.ResponseWriter, r *http.Request) {
	log := logger.For(logger.HANDLER)

	log.Info().
		Str("client_ip", r.RemoteAddr).
		Str("user_agent", r.UserAgent()).
		Msg("Widget.js requested")

	sess, created, err := sessionService.EnsureSession(w, r)
	if err != nil {
		log.Error().Err(err).Msg("Failed to create session for widget")
		http.Error(w, "Internal Server Error", http.StatusInternalServerError)
		return
	}

	log.Info().
		Str("session_id", sess.ID).
		Bool("created", created).
		Msg("Widget session ready")

	// Set appropriate headers
	w.Header().Set("Content-Type", "application/javascript")
	w.Header().Set("Cache-Control", "no-cache, no-store, must-revalidate")
	w.Header().Set("Pragma", "no-cache")
	w.Header().Set("Expires", "0")

	if _, err := w.Write(widgetJS); err != nil {
		return
	}
}

// HandleHealth reports liveness.
func HandleHealth(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write([]byte(`{"status":"ok"}`))
}
