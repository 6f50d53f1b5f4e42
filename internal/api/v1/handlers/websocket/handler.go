package websocket

import (
	"context"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/gorilla/websocket"
	chathandlers "github.com/regscout/regscout/internal/api/v1/handlers/chat"
	v1mware "github.com/regscout/regscout/internal/api/v1/middleware"
	"github.com/regscout/regscout/internal/connections"
	"github.com/regscout/regscout/internal/domain/chat/models"
	"github.com/regscout/regscout/internal/services/chat"
	"github.com/regscout/regscout/internal/services/session"
	"github.com/regscout/regscout/pkg/httpext"
	"github.com/regscout/regscout/pkg/logger"
	"github.com/rs/zerolog"
)

// Frame types sent to the client.
const (
	FrameHistory    = "history"
	FrameProcessing = "processing"
	FrameComplete   = "complete"
	FrameError      = "error"
)

// pendingTurns bounds the messages a client may queue behind a running turn.
const pendingTurns = 8

// ClientFrame is a message typed by the user.
type ClientFrame struct {
	Type    string `json:"type"`
	Content string `json:"content"`
}

// ServerFrame is everything the server sends over the socket.
type ServerFrame struct {
	Type      string           `json:"type"`
	RequestID string           `json:"request_id,omitempty"`
	Content   string           `json:"content,omitempty"`
	Messages  []models.Message `json:"messages,omitempty"`
	Error     string           `json:"error,omitempty"`
	// RetryAfter is set on rate limited messages, in seconds.
	RetryAfter int `json:"retry_after,omitempty"`
}

var (
	upgrader = websocket.Upgrader{
		ReadBufferSize:  1024,
		WriteBufferSize: 1024,
		CheckOrigin:     sameOrigin,
	}
)

// sameOrigin accepts clients without an Origin header (console tools) and
// browsers on the page that served the widget.
func sameOrigin(r *http.Request) bool {
	origin := r.Header.Get("Origin")
	if origin == "" {
		return true
	}
	u, err := url.Parse(origin)
	if err != nil {
		return false
	}
	return strings.EqualFold(u.Host, r.Host)
}

type turn struct {
	requestID string
	content   string
}

// HandleChatWebSocket runs chat turns over a websocket. The client receives
// its history first, then a processing frame and a complete or error frame
// for every message it sends. Messages draw on the session's chat budget in
// limiter, shared with POST /v1/messages.
func HandleChatWebSocket(chatService chat.Service, sessionService *session.Service, manager *connections.Manager, limiter *v1mware.Limiter, w http.ResponseWriter, r *http.Request) {
	log := logger.For(logger.HANDLER)

	sess, err := sessionService.ValidateSession(r)
	if err != nil {
		if session.IsNotFound(err) {
			httpext.JsonError(w, "No active session", http.StatusUnauthorized)
			return
		}
		log.Error().Err(err).Msg("Failed to resolve session for websocket")
		httpext.JsonError(w, "Failed to load session", http.StatusInternalServerError)
		return
	}

	ws, err := upgrader.Upgrade(w, r, nil)
	if err != nil {
		log.Warn().Err(err).Msg("Could not upgrade connection")
		return
	}

	conn := manager.AddConnection(ws, sess.ID)
	timeouts := manager.GetTimeouts()
	log = log.With().Str("session_id", sess.ID).Logger()
	log.Info().Int("connections", manager.GetConnectionCount()).Msg("WebSocket connected")

	ctx, cancel := context.WithCancel(r.Context())
	turns := make(chan turn, pendingTurns)
	workerDone := make(chan struct{})

	defer func() {
		cancel()
		close(turns)
		<-workerDone
		manager.RemoveConnection(conn)
		ws.Close()
		log.Info().Msg("WebSocket disconnected")
	}()

	// Set up ping/pong handlers
	_ = ws.SetReadDeadline(time.Now().Add(timeouts.PongWait))
	ws.SetPongHandler(func(string) error {
		return ws.SetReadDeadline(time.Now().Add(timeouts.PongWait))
	})

	go keepAlive(ctx, conn, timeouts.PingPeriod)
	go runTurns(ctx, chatService, sess, conn, turns, workerDone, log)

	if err := conn.WriteJSON(ServerFrame{
		Type:     FrameHistory,
		Messages: chatService.History(ctx, sess),
	}); err != nil {
		return
	}

	// Message handling loop
	for {
		var frame ClientFrame
		if err := ws.ReadJSON(&frame); err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseNormalClosure) {
				log.Warn().Err(err).Msg("Unexpected WebSocket closure")
			}
			return
		}
		_ = ws.SetReadDeadline(time.Now().Add(timeouts.PongWait))

		requestID := uuid.New().String()
		request := chathandlers.SendMessageRequest{Content: frame.Content}
		if err := request.Validate(); err != nil {
			_ = conn.WriteJSON(ServerFrame{Type: FrameError, RequestID: requestID, Error: "Message must be between 1 and 4000 characters"})
			continue
		}

		if allowed, retryAfter := limiter.Allow(v1mware.SessionKey(sess.ID)); !allowed {
			log.Warn().Dur("retry_after", retryAfter).Msg("Rate limit exceeded")
			_ = conn.WriteJSON(ServerFrame{
				Type:       FrameError,
				RequestID:  requestID,
				Error:      "Rate limit exceeded",
				RetryAfter: v1mware.RetryAfterSeconds(retryAfter),
			})
			continue
		}

		select {
		case turns <- turn{requestID: requestID, content: frame.Content}:
		default:
			_ = conn.WriteJSON(ServerFrame{Type: FrameError, RequestID: requestID, Error: "Too many messages waiting for a reply"})
		}
	}
}

// runTurns answers queued messages one at a time. The session is shared
// with nothing else on this connection, and the chat service serializes
// turns across connections of the same session.
func runTurns(ctx context.Context, chatService chat.Service, sess *session.Session, conn *connections.Conn, turns <-chan turn, done chan<- struct{}, log zerolog.Logger) {
	defer close(done)

	for t := range turns {
		if ctx.Err() != nil {
			continue
		}

		if err := conn.WriteJSON(ServerFrame{Type: FrameProcessing, RequestID: t.requestID}); err != nil {
			continue
		}

		reply, err := chatService.Send(ctx, sess, t.content)
		if err != nil {
			_, message, _ := chathandlers.Classify(err)
			log.Error().Err(err).Str("request_id", t.requestID).Msg("Chat turn failed")
			_ = conn.WriteJSON(ServerFrame{Type: FrameError, RequestID: t.requestID, Error: message})
			continue
		}

		_ = conn.WriteJSON(ServerFrame{Type: FrameComplete, RequestID: t.requestID, Content: reply.Content})
	}
}

func keepAlive(ctx context.Context, conn *connections.Conn, period time.Duration) {
	ticker := time.NewTicker(period)
	defer ticker.Stop()

	for {
		select {
		case <-ticker.C:
			if err := conn.Ping(); err != nil {
				return
			}
		case <-ctx.Done():
			return
		}
	}
}
