package chat

import (
	"context"

	"github.com/regscout/regscout/internal/domain/chat/models"
	"github.com/regscout/regscout/internal/services/session"
)

// Service runs chat turns for a session.
type Service interface {
	// History returns the messages displayed so far, oldest first.
	History(ctx context.Context, sess *session.Session) []models.Message

	// Send appends content as a user message, waits for the assistant and
	// returns its reply. Turns of one session never overlap.
	Send(ctx context.Context, sess *session.Session, content string) (models.Message, error)
}
