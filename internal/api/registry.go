package api

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"

	"github.com/inamate/emojikit/internal/document"
	"github.com/inamate/emojikit/internal/engine"
	"github.com/inamate/emojikit/internal/store"
)

// Registry keeps one editing session per open emoji, loading documents from
// the store on first use.
type Registry struct {
	store store.Store
	opts  []engine.Option

	mu      sync.Mutex
	engines map[string]*engine.Engine
}

func NewRegistry(s store.Store, opts ...engine.Option) *Registry {
	return &Registry{
		store:   s,
		opts:    opts,
		engines: make(map[string]*engine.Engine),
	}
}

// Get returns the session for id, opening it if needed.
func (r *Registry) Get(ctx context.Context, id string) (*engine.Engine, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	if eng, ok := r.engines[id]; ok {
		return eng, nil
	}
	doc, err := r.store.Load(ctx, id)
	if err != nil {
		return nil, err
	}
	eng := engine.NewEngine(r.opts...)
	if err := eng.LoadDocument(doc); err != nil {
		return nil, fmt.Errorf("open emoji %s: %w", id, err)
	}
	r.engines[id] = eng
	slog.Debug("emoji opened", "emoji", id)
	return eng, nil
}

// Create starts a new emoji and saves it.
func (r *Registry) Create(ctx context.Context, name string) (*engine.Engine, *document.Emoji, error) {
	eng := engine.NewEngine(r.opts...)
	doc := eng.NewDocument(name)
	if err := r.store.Save(ctx, doc); err != nil {
		return nil, nil, fmt.Errorf("create emoji: %w", err)
	}

	r.mu.Lock()
	r.engines[doc.ID] = eng
	r.mu.Unlock()
	return eng, doc, nil
}

// Persist saves the session's document.
func (r *Registry) Persist(ctx context.Context, eng *engine.Engine) error {
	return eng.Save(ctx, store.Saver{Store: r.store})
}

func (r *Registry) List(ctx context.Context) ([]*document.Emoji, error) {
	return r.store.List(ctx)
}

// Delete removes the emoji from the store and closes its session.
func (r *Registry) Delete(ctx context.Context, id string) error {
	if err := r.store.Delete(ctx, id); err != nil {
		return err
	}
	r.mu.Lock()
	eng, ok := r.engines[id]
	delete(r.engines, id)
	r.mu.Unlock()

	if ok {
		eng.StopAnimation()
		eng.CloseDocument()
	}
	return nil
}

// Close stops every session and saves its document.
func (r *Registry) Close(ctx context.Context) error {
	r.mu.Lock()
	engines := make([]*engine.Engine, 0, len(r.engines))
	for _, eng := range r.engines {
		engines = append(engines, eng)
	}
	r.engines = make(map[string]*engine.Engine)
	r.mu.Unlock()

	var errs []error
	for _, eng := range engines {
		eng.StopAnimation()
		if err := r.Persist(ctx, eng); err != nil && !errors.Is(err, engine.ErrNoActiveDocument) {
			errs = append(errs, err)
		}
	}
	return errors.Join(errs...)
}
