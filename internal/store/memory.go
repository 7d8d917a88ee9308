package store

import (
	"cmp"
	"context"
	"fmt"
	"slices"
	"sync"

	"github.com/inamate/emojikit/internal/document"
)

// Memory keeps documents in process. Documents are copied on the way in and
// out so callers never share memory with the store.
type Memory struct {
	mu   sync.RWMutex
	docs map[string]*document.Emoji
}

func NewMemory() *Memory {
	return &Memory{docs: make(map[string]*document.Emoji)}
}

func (m *Memory) Save(_ context.Context, doc *document.Emoji) error {
	if err := doc.Validate(); err != nil {
		return fmt.Errorf("save emoji: %w", err)
	}
	m.mu.Lock()
	m.docs[doc.ID] = doc.Clone()
	m.mu.Unlock()
	return nil
}

func (m *Memory) Load(_ context.Context, id string) (*document.Emoji, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	doc, ok := m.docs[id]
	if !ok {
		return nil, ErrNotFound
	}
	return doc.Clone(), nil
}

// List returns every document, oldest first.
func (m *Memory) List(_ context.Context) ([]*document.Emoji, error) {
	m.mu.RLock()
	out := make([]*document.Emoji, 0, len(m.docs))
	for _, doc := range m.docs {
		out = append(out, doc.Clone())
	}
	m.mu.RUnlock()

	slices.SortFunc(out, func(a, b *document.Emoji) int {
		if c := a.CreatedDate.Compare(b.CreatedDate); c != 0 {
			return c
		}
		return cmp.Compare(a.ID, b.ID)
	})
	return out, nil
}

func (m *Memory) Delete(_ context.Context, id string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if _, ok := m.docs[id]; !ok {
		return ErrNotFound
	}
	delete(m.docs, id)
	return nil
}
