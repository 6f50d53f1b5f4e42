package session

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/regscout/regscout/internal/config"
	"github.com/regscout/regscout/internal/domain/chat/models"
	"github.com/regscout/regscout/pkg/logger"
	"github.com/rs/zerolog"
)

type Service struct {
	store   Store
	threads ThreadClient
	cfg     config.SessionConfig
	log     zerolog.Logger
}

func NewService(threads ThreadClient, store Store, cfg config.SessionConfig) *Service {
	return &Service{
		store:   store,
		threads: threads,
		cfg:     cfg,
		log:     logger.For(logger.SESSION),
	}
}

// Start creates a session bound to a fresh remote thread.
func (s *Service) Start(ctx context.Context) (*Session, error) {
	threadID, err := s.CreateThread(ctx)
	if err != nil {
		return nil, err
	}

	messages, err := s.LoadThread(ctx, threadID)
	if err != nil {
		return nil, err
	}

	now := time.Now().UTC()
	session := &Session{
		ID:        uuid.New().String(),
		ThreadID:  threadID,
		Messages:  messages,
		CreatedAt: now,
		UpdatedAt: now,
	}

	if err := s.Save(ctx, session); err != nil {
		return nil, err
	}

	s.log.Info().Str("session_id", session.ID).Str("thread_id", threadID).Msg("Session started")
	return session, nil
}

// Resume loads a stored session.
func (s *Service) Resume(ctx context.Context, sessionID string) (*Session, error) {
	if sessionID == "" {
		return nil, ErrNotFound
	}

	session, err := s.store.Get(ctx, sessionID)
	if err != nil {
		if !errors.Is(err, ErrNotFound) {
			s.log.Error().Err(err).Str("session_id", sessionID).Msg("Failed to load session")
		}
		return nil, err
	}
	if session.Messages == nil {
		session.Messages = []models.Message{}
	}
	return session, nil
}

// Save persists session and refreshes its expiry.
func (s *Service) Save(ctx context.Context, session *Session) error {
	if err := s.store.Set(ctx, session); err != nil {
		return fmt.Errorf("failed to save session: %w", err)
	}
	return nil
}

// Delete forgets a session. The remote thread is left in place.
func (s *Service) Delete(ctx context.Context, sessionID string) error {
	if err := s.store.Delete(ctx, sessionID); err != nil {
		return fmt.Errorf("failed to delete session: %w", err)
	}

	s.log.Info().Str("session_id", sessionID).Msg("Session deleted")
	return nil
}
