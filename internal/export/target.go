package export

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
)

// Target receives finished exports (a photo library, a message, a sticker
// keyboard).
type Target interface {
	Deliver(ctx context.Context, res Result) error
}

// TargetFunc adapts a function to Target.
type TargetFunc func(ctx context.Context, res Result) error

func (f TargetFunc) Deliver(ctx context.Context, res Result) error { return f(ctx, res) }

// DirTarget writes each export to a file named after its export id.
type DirTarget struct {
	dir string
}

// NewDirTarget creates a target that stores files in dir.
func NewDirTarget(dir string) *DirTarget {
	if err := os.MkdirAll(dir, 0o755); err != nil {
		slog.Error("create export dir", "error", err, "dir", dir)
	}
	return &DirTarget{dir: dir}
}

func (t *DirTarget) Deliver(ctx context.Context, res Result) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	path := t.Path(res)
	if err := os.WriteFile(path, res.Data, 0o644); err != nil {
		os.Remove(path)
		return fmt.Errorf("write export %s: %w", res.ID, err)
	}
	slog.Info("export delivered", "export", res.ID, "emoji", res.EmojiID, "path", path, "size", len(res.Data))
	return nil
}

// Path returns where res is stored.
func (t *DirTarget) Path(res Result) string {
	return filepath.Join(t.dir, res.ID+"."+res.Format)
}
