package store

import (
	"context"
	"errors"

	"github.com/inamate/emojikit/internal/document"
)

var ErrNotFound = errors.New("emoji not found")

// Store persists emoji documents by id. Save is an upsert.
type Store interface {
	Save(ctx context.Context, doc *document.Emoji) error
	Load(ctx context.Context, id string) (*document.Emoji, error)
	List(ctx context.Context) ([]*document.Emoji, error)
	Delete(ctx context.Context, id string) error
}

// Saver adapts a Store to the engine's save capability.
type Saver struct {
	Store Store
}

func (s Saver) SaveDocument(ctx context.Context, doc *document.Emoji) error {
	return s.Store.Save(ctx, doc)
}

// Seed saves docs that are not already present.
func Seed(ctx context.Context, s Store, docs []*document.Emoji) (int, error) {
	n := 0
	for _, doc := range docs {
		_, err := s.Load(ctx, doc.ID)
		if err == nil {
			continue
		}
		if !errors.Is(err, ErrNotFound) {
			return n, err
		}
		if err := s.Save(ctx, doc); err != nil {
			return n, err
		}
		n++
	}
	return n, nil
}
