package export

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"image"
	"image/png"
	"log/slog"
	"sync"

	"github.com/anthonynsimon/bild/transform"

	"github.com/inamate/emojikit/internal/document"
	"github.com/inamate/emojikit/internal/engine"
	"github.com/inamate/emojikit/internal/typeid"
)

var ErrExportFailed = errors.New("export failed")

const FormatPNG = "png"

// Source supplies the canonical paint list of one document. *engine.Engine
// satisfies it.
type Source interface {
	DocumentID() (string, error)
	PaintList(canonical bool) (engine.Frame, error)
}

// DocumentSource exports a document that is not loaded in an engine.
type DocumentSource struct {
	Doc        *document.Emoji
	CanvasSize float64
}

func (s DocumentSource) DocumentID() (string, error) {
	if s.Doc == nil {
		return "", engine.ErrNoActiveDocument
	}
	return s.Doc.ID, nil
}

func (s DocumentSource) PaintList(bool) (engine.Frame, error) {
	if s.Doc == nil {
		return engine.Frame{}, engine.ErrNoActiveDocument
	}
	return engine.BuildFrame(s.Doc, s.CanvasSize, nil), nil
}

// Result is an encoded export.
type Result struct {
	ID       string
	EmojiID  string
	Format   string
	Data     []byte
	Width    int
	Height   int
	Animated bool
}

// Exporter renders documents to encoded images. At most one export per
// document runs at a time.
type Exporter struct {
	renderer engine.Renderer
	logger   *slog.Logger

	mu       sync.Mutex
	inFlight map[string]struct{}
}

func NewExporter(renderer engine.Renderer, logger *slog.Logger) *Exporter {
	if logger == nil {
		logger = slog.Default()
	}
	return &Exporter{
		renderer: renderer,
		logger:   logger,
		inFlight: make(map[string]struct{}),
	}
}

// ExportStill renders the canonical paint list, without animation overlays,
// and encodes it as PNG.
func (x *Exporter) ExportStill(ctx context.Context, src Source) (Result, error) {
	img, id, err := x.render(ctx, src)
	if err != nil {
		return Result{}, err
	}
	return encode(id, img)
}

// ExportAnimated produces the animated export. Animation encoding is not
// supported, so it yields the same single still frame.
func (x *Exporter) ExportAnimated(ctx context.Context, src Source) (Result, error) {
	res, err := x.ExportStill(ctx, src)
	if err != nil {
		return Result{}, err
	}
	x.logger.Info("animated export degraded to still", "emoji", res.EmojiID)
	return res, nil
}

// Thumbnail renders a still and resizes it to size x size.
func (x *Exporter) Thumbnail(ctx context.Context, src Source, size int) (Result, error) {
	if size <= 0 {
		return Result{}, fmt.Errorf("%w: invalid thumbnail size %d", ErrExportFailed, size)
	}
	img, id, err := x.render(ctx, src)
	if err != nil {
		return Result{}, err
	}
	return encode(id, transform.Resize(img, size, size, transform.Linear))
}

// ExportTo exports and hands the result to target.
func (x *Exporter) ExportTo(ctx context.Context, src Source, target Target, animated bool) (Result, error) {
	var (
		res Result
		err error
	)
	if animated {
		res, err = x.ExportAnimated(ctx, src)
	} else {
		res, err = x.ExportStill(ctx, src)
	}
	if err != nil {
		return Result{}, err
	}
	if err := target.Deliver(ctx, res); err != nil {
		return Result{}, fmt.Errorf("%w: deliver: %w", ErrExportFailed, err)
	}
	return res, nil
}

func (x *Exporter) render(ctx context.Context, src Source) (image.Image, string, error) {
	if x.renderer == nil {
		return nil, "", fmt.Errorf("%w: no renderer", ErrExportFailed)
	}
	id, err := src.DocumentID()
	if err != nil {
		return nil, "", fmt.Errorf("%w: %w", ErrExportFailed, err)
	}

	if !x.acquire(id) {
		return nil, "", fmt.Errorf("%w: export of %s already in progress", ErrExportFailed, id)
	}
	defer x.release(id)

	frame, err := src.PaintList(true)
	if err != nil {
		return nil, "", fmt.Errorf("%w: %w", ErrExportFailed, err)
	}
	img, err := x.renderer.RenderFrame(ctx, frame)
	if err != nil {
		return nil, "", fmt.Errorf("%w: render: %w", ErrExportFailed, err)
	}
	return img, id, nil
}

func (x *Exporter) acquire(id string) bool {
	x.mu.Lock()
	defer x.mu.Unlock()
	if _, busy := x.inFlight[id]; busy {
		return false
	}
	x.inFlight[id] = struct{}{}
	return true
}

func (x *Exporter) release(id string) {
	x.mu.Lock()
	delete(x.inFlight, id)
	x.mu.Unlock()
}

func encode(emojiID string, img image.Image) (Result, error) {
	var buf bytes.Buffer
	if err := png.Encode(&buf, img); err != nil {
		return Result{}, fmt.Errorf("%w: encode png: %w", ErrExportFailed, err)
	}
	b := img.Bounds()
	return Result{
		ID:      typeid.NewExportID(),
		EmojiID: emojiID,
		Format:  FormatPNG,
		Data:    buf.Bytes(),
		Width:   b.Dx(),
		Height:  b.Dy(),
	}, nil
}
