package export

import (
	"bytes"
	"context"
	"errors"
	"image"
	"image/png"
	"net/http/httptest"
	"os"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/inamate/emojikit/internal/document"
	"github.com/inamate/emojikit/internal/engine"
)

// solidRenderer fills the canvas and records how many nodes it saw.
type solidRenderer struct {
	nodes []engine.Node
}

func (r *solidRenderer) RenderFrame(_ context.Context, frame engine.Frame) (image.Image, error) {
	r.nodes = frame.Nodes
	img := image.NewRGBA(image.Rect(0, 0, int(frame.Width), int(frame.Height)))
	for i := range img.Pix {
		img.Pix[i] = 0xff
	}
	return img, nil
}

type failingRenderer struct{}

func (failingRenderer) RenderFrame(context.Context, engine.Frame) (image.Image, error) {
	return nil, errors.New("gpu on fire")
}

// blockingRenderer holds the render until release is closed.
type blockingRenderer struct {
	entered chan struct{}
	release chan struct{}
}

func (r *blockingRenderer) RenderFrame(_ context.Context, frame engine.Frame) (image.Image, error) {
	close(r.entered)
	<-r.release
	return image.NewRGBA(image.Rect(0, 0, int(frame.Width), int(frame.Height))), nil
}

func testSource(t *testing.T) DocumentSource {
	t.Helper()
	doc := document.New("export me")
	_, err := doc.AddElement(document.NewTextElement("hi", document.Point{X: 32, Y: 32}))
	require.NoError(t, err)
	return DocumentSource{Doc: doc, CanvasSize: 64}
}

func decode(t *testing.T, data []byte) image.Image {
	t.Helper()
	img, err := png.Decode(bytes.NewReader(data))
	require.NoError(t, err)
	return img
}

func TestExportStill(t *testing.T) {
	r := &solidRenderer{}
	x := NewExporter(r, nil)
	src := testSource(t)

	res, err := x.ExportStill(context.Background(), src)
	require.NoError(t, err)
	assert.Equal(t, FormatPNG, res.Format)
	assert.Equal(t, src.Doc.ID, res.EmojiID)
	assert.Equal(t, 64, res.Width)
	assert.Len(t, r.nodes, 1)
	assert.Equal(t, image.Rect(0, 0, 64, 64), decode(t, res.Data).Bounds())
}

func TestExportStill_UsesCanonicalTransforms(t *testing.T) {
	clockStart := time.Unix(0, 0)
	e := engine.NewEngine(engine.WithCanvasSize(64), engine.WithSchedulerOptions(
		engine.WithManualTicks(), engine.WithClock(func() time.Time { return clockStart }),
	))
	e.NewDocument("anim")
	el, err := e.AddText("a")
	require.NoError(t, err)
	require.NoError(t, e.SetAnimated(true))
	require.True(t, e.StepAnimation(clockStart.Add(250*time.Millisecond)))

	r := &solidRenderer{}
	_, err = NewExporter(r, nil).ExportAnimated(context.Background(), e)
	require.NoError(t, err)
	require.Len(t, r.nodes, 1)
	assert.Equal(t, engine.ComputeTransform(el), r.nodes[0].Transform)
}

func TestExport_Failures(t *testing.T) {
	ctx := context.Background()

	_, err := NewExporter(nil, nil).ExportStill(ctx, testSource(t))
	assert.ErrorIs(t, err, ErrExportFailed)

	_, err = NewExporter(&solidRenderer{}, nil).ExportStill(ctx, DocumentSource{})
	assert.ErrorIs(t, err, ErrExportFailed)
	assert.ErrorIs(t, err, engine.ErrNoActiveDocument)

	_, err = NewExporter(failingRenderer{}, nil).ExportStill(ctx, testSource(t))
	assert.ErrorIs(t, err, ErrExportFailed)
}

func TestExport_OneInFlightPerDocument(t *testing.T) {
	r := &blockingRenderer{entered: make(chan struct{}), release: make(chan struct{})}
	x := NewExporter(r, nil)
	src := testSource(t)

	done := make(chan error, 1)
	go func() {
		_, err := x.ExportStill(context.Background(), src)
		done <- err
	}()
	<-r.entered

	_, err := x.ExportStill(context.Background(), src)
	assert.ErrorIs(t, err, ErrExportFailed)

	close(r.release)
	require.NoError(t, <-done)

	// the guard is released afterwards
	assert.True(t, x.acquire(src.Doc.ID))
	x.release(src.Doc.ID)
}

func TestThumbnail(t *testing.T) {
	x := NewExporter(&solidRenderer{}, nil)
	res, err := x.Thumbnail(context.Background(), testSource(t), 16)
	require.NoError(t, err)
	assert.Equal(t, image.Rect(0, 0, 16, 16), decode(t, res.Data).Bounds())

	_, err = x.Thumbnail(context.Background(), testSource(t), 0)
	assert.ErrorIs(t, err, ErrExportFailed)
}

func TestExportTo(t *testing.T) {
	dir := t.TempDir()
	target := NewDirTarget(dir)
	x := NewExporter(&solidRenderer{}, nil)

	res, err := x.ExportTo(context.Background(), testSource(t), target, false)
	require.NoError(t, err)
	data, err := os.ReadFile(target.Path(res))
	require.NoError(t, err)
	assert.Equal(t, res.Data, data)

	refuse := TargetFunc(func(context.Context, Result) error { return errors.New("no space") })
	_, err = x.ExportTo(context.Background(), testSource(t), refuse, true)
	assert.ErrorIs(t, err, ErrExportFailed)
}

func TestWriteResult(t *testing.T) {
	rec := httptest.NewRecorder()
	res := Result{ID: "exp_1", Format: FormatPNG, Data: []byte{1, 2, 3}}
	WriteResult(rec, res, "Party Time!", true)

	assert.Equal(t, "image/png", rec.Header().Get("Content-Type"))
	assert.Equal(t, `attachment; filename="Party-Time-.png"`, rec.Header().Get("Content-Disposition"))
	assert.Equal(t, []byte{1, 2, 3}, rec.Body.Bytes())
}
