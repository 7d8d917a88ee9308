package store

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/inamate/emojikit/internal/document"
)

const schema = `
CREATE TABLE IF NOT EXISTS emojis (
	id          UUID PRIMARY KEY,
	name        TEXT NOT NULL,
	document    JSONB NOT NULL,
	created_at  TIMESTAMPTZ NOT NULL,
	updated_at  TIMESTAMPTZ NOT NULL DEFAULT now()
)`

// NewPool connects to Postgres and verifies the connection.
func NewPool(ctx context.Context, databaseURL string) (*pgxpool.Pool, error) {
	cfg, err := pgxpool.ParseConfig(databaseURL)
	if err != nil {
		return nil, fmt.Errorf("parse database url: %w", err)
	}
	cfg.MaxConnIdleTime = 5 * time.Minute

	pool, err := pgxpool.NewWithConfig(ctx, cfg)
	if err != nil {
		return nil, fmt.Errorf("create pool: %w", err)
	}
	if err := pool.Ping(ctx); err != nil {
		pool.Close()
		return nil, fmt.Errorf("ping database: %w", err)
	}
	return pool, nil
}

// Postgres stores each document as JSONB in the shape document.Marshal
// produces.
type Postgres struct {
	pool *pgxpool.Pool
}

// NewPostgres wraps pool and creates the table if needed.
func NewPostgres(ctx context.Context, pool *pgxpool.Pool) (*Postgres, error) {
	if _, err := pool.Exec(ctx, schema); err != nil {
		return nil, fmt.Errorf("create emojis table: %w", err)
	}
	return &Postgres{pool: pool}, nil
}

func (p *Postgres) Save(ctx context.Context, doc *document.Emoji) error {
	if err := doc.Validate(); err != nil {
		return fmt.Errorf("save emoji: %w", err)
	}
	data, err := document.Marshal(doc)
	if err != nil {
		return err
	}

	_, err = p.pool.Exec(ctx, `
		INSERT INTO emojis (id, name, document, created_at)
		VALUES ($1, $2, $3, $4)
		ON CONFLICT (id) DO UPDATE
		SET name = EXCLUDED.name, document = EXCLUDED.document, updated_at = now()`,
		doc.ID, doc.Name, data, doc.CreatedDate,
	)
	if err != nil {
		return fmt.Errorf("save emoji %s: %w", doc.ID, err)
	}
	return nil
}

func (p *Postgres) Load(ctx context.Context, id string) (*document.Emoji, error) {
	if uuid.Validate(id) != nil {
		return nil, ErrNotFound
	}
	var data []byte
	err := p.pool.QueryRow(ctx, `SELECT document FROM emojis WHERE id = $1`, id).Scan(&data)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrNotFound
		}
		return nil, fmt.Errorf("load emoji %s: %w", id, err)
	}
	return document.Unmarshal(data)
}

func (p *Postgres) List(ctx context.Context) ([]*document.Emoji, error) {
	rows, err := p.pool.Query(ctx, `SELECT document FROM emojis ORDER BY created_at, id`)
	if err != nil {
		return nil, fmt.Errorf("list emojis: %w", err)
	}
	blobs, err := pgx.CollectRows(rows, pgx.RowTo[[]byte])
	if err != nil {
		return nil, fmt.Errorf("list emojis: %w", err)
	}

	docs := make([]*document.Emoji, 0, len(blobs))
	for _, data := range blobs {
		doc, err := document.Unmarshal(data)
		if err != nil {
			return nil, err
		}
		docs = append(docs, doc)
	}
	return docs, nil
}

func (p *Postgres) Delete(ctx context.Context, id string) error {
	if uuid.Validate(id) != nil {
		return ErrNotFound
	}
	tag, err := p.pool.Exec(ctx, `DELETE FROM emojis WHERE id = $1`, id)
	if err != nil {
		return fmt.Errorf("delete emoji %s: %w", id, err)
	}
	if tag.RowsAffected() == 0 {
		return ErrNotFound
	}
	return nil
}
