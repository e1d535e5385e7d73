// Package session persists transcripts between runs.
package session

import (
	"context"
	"time"

	"github.com/atelier-sh/atelier/internal/transcript"
)

// Session is one stored conversation.
type Session struct {
	ID        string
	Title     string
	TurnCount int
	CreatedAt time.Time
	UpdatedAt time.Time
}

// Store saves and restores transcripts keyed by session id.
type Store interface {
	Save(ctx context.Context, id, title string, ts transcript.Transcript) error
	Load(ctx context.Context, id string) (transcript.Transcript, error)
	List(ctx context.Context) ([]Session, error)
	Delete(ctx context.Context, id string) error
	Close() error
}

// Title derives a session title from the first user turn.
func Title(ts transcript.Transcript) string {
	for _, turn := range ts {
		if turn.Role != transcript.RoleUser {
			continue
		}
		text := turn.TextContent()
		if len(text) > 80 {
			return text[:80]
		}
		return text
	}
	return "untitled"
}
