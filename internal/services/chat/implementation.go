package chat

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"sync"

	"github.com/regscout/regscout/internal/domain/chat/models"
	"github.com/regscout/regscout/internal/services/session"
	"github.com/regscout/regscout/pkg/logger"
	"github.com/rs/zerolog"
)

var ErrEmptyMessage = errors.New("message content is empty")

// Responder produces the assistant reply for a user message on a thread.
type Responder interface {
	Respond(ctx context.Context, threadID, content string) (string, error)
}

// SessionStore loads and persists sessions.
type SessionStore interface {
	Resume(ctx context.Context, sessionID string) (*session.Session, error)
	Save(ctx context.Context, sess *session.Session) error
}

type Implementation struct {
	responder Responder
	sessions  SessionStore
	locks     *keyedMutex
	log       zerolog.Logger
}

func NewService(responder Responder, sessions SessionStore) *Implementation {
	return &Implementation{
		responder: responder,
		sessions:  sessions,
		locks:     newKeyedMutex(),
		log:       logger.For(logger.CHAT),
	}
}

func (s *Implementation) History(_ context.Context, sess *session.Session) []models.Message {
	history := make([]models.Message, len(sess.Messages))
	copy(history, sess.Messages)
	return history
}

func (s *Implementation) Send(ctx context.Context, sess *session.Session, content string) (models.Message, error) {
	content = strings.TrimSpace(content)
	if content == "" {
		return models.Message{}, ErrEmptyMessage
	}

	unlock := s.locks.Lock(sess.ID)
	defer unlock()

	// Another turn may have finished while this one waited.
	latest, err := s.sessions.Resume(ctx, sess.ID)
	if err != nil {
		return models.Message{}, fmt.Errorf("failed to reload session: %w", err)
	}
	*sess = *latest

	log := s.log.With().Str("session_id", sess.ID).Str("thread_id", sess.ThreadID).Logger()
	log.Info().Int("length", len(content)).Msg("Processing chat message")

	sess.Append(models.UserMessage(content))

	answer, err := s.responder.Respond(ctx, sess.ThreadID, content)
	if err != nil {
		log.Error().Err(err).Msg("Assistant run failed")
		if saveErr := s.sessions.Save(context.WithoutCancel(ctx), sess); saveErr != nil {
			log.Error().Err(saveErr).Msg("Failed to save session")
		}
		return models.Message{}, fmt.Errorf("failed to get assistant response: %w", err)
	}

	reply := models.AssistantMessage(answer)
	sess.Append(reply)

	if err := s.sessions.Save(ctx, sess); err != nil {
		return models.Message{}, err
	}

	log.Info().Int("messages", len(sess.Messages)).Msg("Chat turn complete")
	return reply, nil
}

// keyedMutex serializes work per key and forgets keys nobody holds.
type keyedMutex struct {
	mu    sync.Mutex
	locks map[string]*refMutex
}

type refMutex struct {
	sync.Mutex
	refs int
}

func newKeyedMutex() *keyedMutex {
	return &keyedMutex{locks: make(map[string]*refMutex)}
}

func (k *keyedMutex) Lock(key string) func() {
	k.mu.Lock()
	m, ok := k.locks[key]
	if !ok {
		m = &refMutex{}
		k.locks[key] = m
	}
	m.refs++
	k.mu.Unlock()

	m.Lock()

	return func() {
		m.Unlock()

		k.mu.Lock()
		m.refs--
		if m.refs == 0 {
			delete(k.locks, key)
		}
		k.mu.Unlock()
	}
}
