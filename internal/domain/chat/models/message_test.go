package models

import (
	"testing"
	"time"

	"github.com/sashabaranov/go-openai"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func textBlock(value string) openai.MessageContent {
	return openai.MessageContent{Type: "text", Text: &openai.MessageText{Value: value}}
}

func TestFromThreadMessage(t *testing.T) {
	tests := []struct {
		name    string
		msg     openai.Message
		want    string
		wantErr error
	}{
		{
			name: "single text block",
			msg: openai.Message{
				ID:      "msg_1",
				Role:    "assistant",
				Content: []openai.MessageContent{textBlock("21 CFR Part 11 applies.")},
			},
			want: "21 CFR Part 11 applies.",
		},
		{
			name: "multiple text blocks are joined",
			msg: openai.Message{
				ID:      "msg_2",
				Role:    "assistant",
				Content: []openai.MessageContent{textBlock("First."), textBlock("Second.")},
			},
			want: "First.\n\nSecond.",
		},
		{
			name: "image blocks are skipped",
			msg: openai.Message{
				ID:   "msg_3",
				Role: "assistant",
				Content: []openai.MessageContent{
					{Type: "image_file", ImageFile: &openai.ImageFile{FileID: "file_1"}},
					textBlock("Caption."),
				},
			},
			want: "Caption.",
		},
		{
			name: "no text is an error",
			msg: openai.Message{
				ID:      "msg_4",
				Role:    "assistant",
				Content: []openai.MessageContent{{Type: "image_file", ImageFile: &openai.ImageFile{FileID: "file_1"}}},
			},
			wantErr: ErrNoTextContent,
		},
		{
			name:    "empty content is an error",
			msg:     openai.Message{ID: "msg_5", Role: "user"},
			wantErr: ErrNoTextContent,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := FromThreadMessage(tt.msg)
			if tt.wantErr != nil {
				assert.ErrorIs(t, err, tt.wantErr)
				assert.Contains(t, err.Error(), tt.msg.ID)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.msg.Role, got.Role)
			assert.Equal(t, tt.want, got.Content)
		})
	}
}

func TestFromThreadMessageTimestamp(t *testing.T) {
	msg := openai.Message{Role: "user", CreatedAt: 1700000000, Content: []openai.MessageContent{textBlock("hi")}}

	got, err := FromThreadMessage(msg)
	require.NoError(t, err)
	assert.Equal(t, time.Unix(1700000000, 0).UTC(), got.CreatedAt)
}

func TestConstructors(t *testing.T) {
	assert.Equal(t, RoleUser, UserMessage("q").Role)
	assert.Equal(t, RoleAssistant, AssistantMessage("a").Role)
	assert.False(t, UserMessage("q").CreatedAt.IsZero())
}
