package session

import (
	"context"
	"fmt"

	"github.com/atelier-sh/atelier/internal/transcript"
)

// NoopStore discards everything. Used when persistence is disabled.
type NoopStore struct{}

func (NoopStore) Save(ctx context.Context, id, title string, ts transcript.Transcript) error {
	return nil
}

func (NoopStore) Load(ctx context.Context, id string) (transcript.Transcript, error) {
	return nil, fmt.Errorf("session persistence is disabled")
}

func (NoopStore) List(ctx context.Context) ([]Session, error) {
	return nil, nil
}

func (NoopStore) Delete(ctx context.Context, id string) error {
	return fmt.Errorf("session persistence is disabled")
}

func (NoopStore) Close() error {
	return nil
}
