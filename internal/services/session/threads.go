package session

import (
	"context"
	"errors"
	"fmt"

	"github.com/regscout/regscout/internal/domain/chat/models"
	"github.com/sashabaranov/go-openai"
)

const pageSize = 100

// ThreadClient is the part of the Assistants API used to manage threads.
// *openai.Client satisfies it.
type ThreadClient interface {
	CreateThread(ctx context.Context, request openai.ThreadRequest) (openai.Thread, error)
	ListMessage(ctx context.Context, threadID string, limit *int, order *string, after *string, before *string, runID *string) (openai.MessagesList, error)
}

// CreateThread creates an empty remote thread and returns its id.
func (s *Service) CreateThread(ctx context.Context) (string, error) {
	thread, err := s.threads.CreateThread(ctx, openai.ThreadRequest{})
	if err != nil {
		return "", fmt.Errorf("failed to create thread: %w", err)
	}

	s.log.Info().Str("thread_id", thread.ID).Msg("Thread created")
	return thread.ID, nil
}

// LoadThread returns every message of the thread, oldest first. Messages
// without text are skipped.
func (s *Service) LoadThread(ctx context.Context, threadID string) ([]models.Message, error) {
	limit := pageSize
	order := "asc"
	var after *string

	messages := []models.Message{}
	for {
		page, err := s.threads.ListMessage(ctx, threadID, &limit, &order, after, nil, nil)
		if err != nil {
			return nil, fmt.Errorf("failed to list thread messages: %w", err)
		}

		for _, msg := range page.Messages {
			converted, err := models.FromThreadMessage(msg)
			if errors.Is(err, models.ErrNoTextContent) {
				s.log.Warn().Str("thread_id", threadID).Str("message_id", msg.ID).Msg("Skipping message without text")
				continue
			}
			if err != nil {
				return nil, err
			}
			messages = append(messages, converted)
		}

		if !page.HasMore || page.LastID == nil || len(page.Messages) == 0 {
			break
		}
		after = page.LastID
	}

	return messages, nil
}
