package models

import (
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/sashabaranov/go-openai"
)

const (
	RoleUser      = openai.ChatMessageRoleUser
	RoleAssistant = openai.ChatMessageRoleAssistant
)

// ErrNoTextContent is returned for remote messages that carry no text block.
var ErrNoTextContent = errors.New("message has no text content")

// Message is one displayed chat entry, in arrival order.
type Message struct {
	Role      string    `json:"role"`
	Content   string    `json:"content"`
	CreatedAt time.Time `json:"created_at"`
}

func UserMessage(content string) Message {
	return Message{Role: RoleUser, Content: content, CreatedAt: time.Now().UTC()}
}

func AssistantMessage(content string) Message {
	return Message{Role: RoleAssistant, Content: content, CreatedAt: time.Now().UTC()}
}

// FromThreadMessage converts a remote thread message. Every text block is
// kept, joined by a blank line; image and file blocks are dropped.
func FromThreadMessage(msg openai.Message) (Message, error) {
	text, err := TextContent(msg)
	if err != nil {
		return Message{}, fmt.Errorf("message %s: %w", msg.ID, err)
	}

	return Message{
		Role:      msg.Role,
		Content:   text,
		CreatedAt: time.Unix(int64(msg.CreatedAt), 0).UTC(),
	}, nil
}

// TextContent returns the text blocks of msg joined by a blank line.
func TextContent(msg openai.Message) (string, error) {
	var parts []string
	for _, content := range msg.Content {
		if content.Type != "text" || content.Text == nil {
			continue
		}
		parts = append(parts, content.Text.Value)
	}

	if len(parts) == 0 {
		return "", ErrNoTextContent
	}

	return strings.Join(parts, "\n\n"), nil
}
