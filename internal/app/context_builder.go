package app

import (
	"context"

	"gopherchat/internal/ai"
)

const DefaultContextWindow = 10

// ContextWindowBuilder projects the most recent transcript entries into the
// role/content pairs the generation backend expects.
type ContextWindowBuilder struct {
	transcripts *TranscriptStore
}

func NewContextWindowBuilder(transcripts *TranscriptStore) *ContextWindowBuilder {
	return &ContextWindowBuilder{transcripts: transcripts}
}

func (b *ContextWindowBuilder) Build(ctx context.Context, userID uint, windowSize int) ([]ai.ChatMessage, error) {
	if windowSize <= 0 {
		windowSize = DefaultContextWindow
	}
	entries, err := b.transcripts.Recent(ctx, userID, windowSize)
	if err != nil {
		return nil, err
	}

	messages := make([]ai.ChatMessage, 0, len(entries))
	for _, entry := range entries {
		messages = append(messages, ai.ChatMessage{
			Role:    entry.Role,
			Content: entry.Message,
		})
	}
	return messages, nil
}
