package chat

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"

	"github.com/go-playground/validator/v10"
	"github.com/regscout/regscout/internal/api/v1/middleware"
	"github.com/regscout/regscout/internal/domain/chat/models"
	"github.com/regscout/regscout/internal/services/assistant"
	"github.com/regscout/regscout/internal/services/chat"
	"github.com/regscout/regscout/internal/services/session"
	"github.com/regscout/regscout/pkg/errx"
	"github.com/regscout/regscout/pkg/httpext"
	"github.com/regscout/regscout/pkg/logger"
)

// use a single instance of Validate, it caches struct info
var validate = validator.New(validator.WithRequiredStructEnabled())

type SendMessageRequest struct {
	Content string `json:"content" validate:"required,min=1,max=4000"`
}

type MessagesResponse struct {
	SessionID string           `json:"session_id"`
	Messages  []models.Message `json:"messages"`
}

type SendMessageResponse struct {
	Message models.Message `json:"message"`
}

// Validate checks a message request against its constraints.
func (r SendMessageRequest) Validate() error {
	return validate.Struct(r)
}

// HandleGetMessages returns the session's displayed history.
func HandleGetMessages(chatService chat.Service, w http.ResponseWriter, r *http.Request) {
	sess, ok := middleware.SessionFromContext(r.Context())
	if !ok {
		httpext.JsonError(w, "No active session", http.StatusUnauthorized)
		return
	}

	httpext.JsonResponse(w, http.StatusOK, MessagesResponse{
		SessionID: sess.ID,
		Messages:  chatService.History(r.Context(), sess),
	})
}

// HandlePostMessage runs one chat turn and returns the assistant reply.
func HandlePostMessage(chatService chat.Service, w http.ResponseWriter, r *http.Request) {
	log := logger.For(logger.HANDLER)

	sess, ok := middleware.SessionFromContext(r.Context())
	if !ok {
		httpext.JsonError(w, "No active session", http.StatusUnauthorized)
		return
	}

	var req SendMessageRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		log.Warn().Err(err).Msg("Client sent malformed JSON request")
		httpext.JsonError(w, "Invalid request format", http.StatusBadRequest)
		return
	}

	if err := req.Validate(); err != nil {
		log.Warn().Err(err).Msg("Request validation failed")
		httpext.JsonError(w, fmt.Sprintf("Invalid request: %v", err), http.StatusBadRequest)
		return
	}

	log.Info().
		Str("session_id", sess.ID).
		Str("client_ip", r.RemoteAddr).
		Msg("Received chat message")

	reply, err := chatService.Send(r.Context(), sess, req.Content)
	if err != nil {
		status, message, kind := Classify(err)
		log.Error().Err(err).Str("session_id", sess.ID).Int("status", status).Msg("Failed to process chat")
		httpext.JsonErrorWithDetails(w, status, httpext.ErrorResponse{Error: message, Kind: kind})
		return
	}

	httpext.JsonResponse(w, http.StatusOK, SendMessageResponse{Message: reply})
}

// HandleDeleteSession forgets the session and expires its cookie.
func HandleDeleteSession(sessionService *session.Service, w http.ResponseWriter, r *http.Request) {
	sessionService.ClearSession(w, r)
	w.WriteHeader(http.StatusNoContent)
}

// Classify maps a chat turn failure to an HTTP status, a message safe to
// show to the user and an error kind.
func Classify(err error) (int, string, string) {
	var runErr *assistant.RunEndedError

	switch {
	case errors.Is(err, chat.ErrEmptyMessage):
		return http.StatusBadRequest, "Message content is empty", string(errx.KindInvalidArguments)
	case errors.Is(err, assistant.ErrRunTimeout), errors.Is(err, context.DeadlineExceeded):
		return http.StatusGatewayTimeout, "The assistant took too long to respond", "timeout"
	case errors.Is(err, context.Canceled):
		return http.StatusServiceUnavailable, "Request cancelled", "cancelled"
	case errors.As(err, &runErr):
		return http.StatusBadGateway, fmt.Sprintf("The assistant run ended with status %s", runErr.Status), "run_" + string(runErr.Status)
	case errors.Is(err, assistant.ErrNoAnswer):
		return http.StatusBadGateway, "The assistant did not return an answer", "no_answer"
	case errors.Is(err, session.ErrNotFound):
		return http.StatusUnauthorized, "No active session", "session"
	default:
		return http.StatusBadGateway, "Failed to process chat", string(errx.KindUpstream)
	}
}
