package session

import (
	"errors"
	"time"

	"github.com/regscout/regscout/internal/domain/chat/models"
)

// ErrNotFound is returned when a session id is unknown or expired.
var ErrNotFound = errors.New("session not found")

// Session ties a browser or console user to one remote thread and the
// messages displayed so far.
type Session struct {
	ID        string           `json:"id"`
	ThreadID  string           `json:"thread_id"`
	Messages  []models.Message `json:"messages"`
	CreatedAt time.Time        `json:"created_at"`
	UpdatedAt time.Time        `json:"updated_at"`
}

// Append adds msgs to the displayed history.
func (s *Session) Append(msgs ...models.Message) {
	s.Messages = append(s.Messages, msgs...)
	s.UpdatedAt = time.Now().UTC()
}
