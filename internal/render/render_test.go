package render

import (
	"bytes"
	"context"
	"image"
	"image/color"
	"image/png"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/image/font"

	"github.com/inamate/emojikit/internal/document"
	"github.com/inamate/emojikit/internal/engine"
)

func newRasterizer(t *testing.T) *Rasterizer {
	t.Helper()
	fonts, err := NewFontLibrary("", nil)
	require.NoError(t, err)
	return NewRasterizer(fonts, color.White, nil)
}

func solidPNG(t *testing.T, w, h int, c color.Color) []byte {
	t.Helper()
	img := image.NewRGBA(image.Rect(0, 0, w, h))
	for y := range h {
		for x := range w {
			img.Set(x, y, c)
		}
	}
	var buf bytes.Buffer
	require.NoError(t, png.Encode(&buf, img))
	return buf.Bytes()
}

func rgba(c color.Color) color.RGBA {
	return color.RGBAModel.Convert(c).(color.RGBA)
}

func TestFontLibrary_DefaultCatalog(t *testing.T) {
	lib, err := NewFontLibrary("", nil)
	require.NoError(t, err)

	names := lib.Names()
	require.Len(t, names, 13)
	assert.Equal(t, "Helvetica", names[0])
	assert.True(t, lib.Has("Courier New"))
	assert.False(t, lib.Has("Comic Sans"))
}

func TestFontLibrary_Fallback(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "fonts.toml")
	catalog := "[[font]]\nname = \"Broken\"\nfile = \"missing.ttf\"\n"
	require.NoError(t, os.WriteFile(path, []byte(catalog), 0o644))

	lib, err := NewFontLibrary(path, nil)
	require.NoError(t, err)
	assert.Equal(t, []string{"Broken"}, lib.Names())

	for _, name := range []string{"Broken", "Unknown"} {
		var height int
		err := lib.WithFace(name, 20, func(face font.Face) {
			height = face.Metrics().Height.Ceil()
		})
		require.NoError(t, err)
		assert.Positive(t, height, name)
	}
}

func TestParseColor(t *testing.T) {
	tests := []struct {
		in   string
		want color.NRGBA
	}{
		{"#ffffff", color.NRGBA{255, 255, 255, 255}},
		{"#f00", color.NRGBA{255, 0, 0, 255}},
		{"#00ff0080", color.NRGBA{0, 255, 0, 128}},
	}
	for _, tt := range tests {
		got, err := ParseColor(tt.in)
		require.NoError(t, err, tt.in)
		assert.Equal(t, tt.want, got)
	}

	_, err := ParseColor("red")
	assert.Error(t, err)
	_, err = ParseColor("#12345")
	assert.Error(t, err)

	c, err := ParseColor("transparent")
	require.NoError(t, err)
	_, _, _, a := c.RGBA()
	assert.Zero(t, a)
}

func TestMeasure(t *testing.T) {
	r := newRasterizer(t)

	w, h := r.Measure(document.NewImageElement(solidPNG(t, 12, 7, color.Black), document.Point{}))
	assert.Equal(t, 12.0, w)
	assert.Equal(t, 7.0, h)

	short, _ := r.Measure(document.NewTextElement("a", document.Point{}))
	long, lh := r.Measure(document.NewTextElement("a longer label", document.Point{}))
	assert.Greater(t, long, short)
	assert.Positive(t, lh)

	w, h = r.Measure(document.NewImageElement([]byte("not an image"), document.Point{}))
	assert.Equal(t, 100.0, w)
	assert.Equal(t, 100.0, h)
}

func TestRenderFrame_Image(t *testing.T) {
	r := newRasterizer(t)
	red := color.RGBA{255, 0, 0, 255}

	doc := document.New("img")
	_, err := doc.AddElement(document.NewImageElement(solidPNG(t, 10, 10, red), document.Point{X: 20, Y: 20}))
	require.NoError(t, err)

	img, err := r.RenderFrame(context.Background(), engine.BuildFrame(doc, 40, nil))
	require.NoError(t, err)
	assert.Equal(t, image.Rect(0, 0, 40, 40), img.Bounds())
	assert.Equal(t, red, rgba(img.At(20, 20)))
	assert.Equal(t, color.RGBA{255, 255, 255, 255}, rgba(img.At(2, 2)))
}

func TestRenderFrame_ScaledImageCoversMore(t *testing.T) {
	r := newRasterizer(t)
	red := color.RGBA{255, 0, 0, 255}

	el := document.NewImageElement(solidPNG(t, 10, 10, red), document.Point{X: 20, Y: 20})
	el.Scale = 3
	doc := document.New("img")
	_, err := doc.AddElement(el)
	require.NoError(t, err)

	img, err := r.RenderFrame(context.Background(), engine.BuildFrame(doc, 40, nil))
	require.NoError(t, err)
	assert.Equal(t, red, rgba(img.At(8, 20)))
}

func TestRenderFrame_Text(t *testing.T) {
	r := newRasterizer(t)
	doc := document.New("text")
	_, err := doc.AddElement(document.NewTextElement("WW", document.Point{X: 64, Y: 64}))
	require.NoError(t, err)

	img, err := r.RenderFrame(context.Background(), engine.BuildFrame(doc, 128, nil))
	require.NoError(t, err)

	inked := 0
	b := img.Bounds()
	for y := b.Min.Y; y < b.Max.Y; y++ {
		for x := b.Min.X; x < b.Max.X; x++ {
			if rgba(img.At(x, y)).R < 128 {
				inked++
			}
		}
	}
	assert.Positive(t, inked)
}

func TestRenderFrame_SkipsDegenerate(t *testing.T) {
	r := newRasterizer(t)
	el := document.NewImageElement(solidPNG(t, 10, 10, color.Black), document.Point{X: 20, Y: 20})
	el.Scale = 0
	doc := document.New("zero")
	_, err := doc.AddElement(el)
	require.NoError(t, err)

	img, err := r.RenderFrame(context.Background(), engine.BuildFrame(doc, 40, nil))
	require.NoError(t, err)
	assert.Equal(t, color.RGBA{255, 255, 255, 255}, rgba(img.At(20, 20)))
}

func TestRenderFrame_Cancelled(t *testing.T) {
	r := newRasterizer(t)
	doc := document.New("x")
	_, err := doc.AddElement(document.NewTextElement("a", document.Point{}))
	require.NoError(t, err)

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	_, err = r.RenderFrame(ctx, engine.BuildFrame(doc, 40, nil))
	assert.ErrorIs(t, err, context.Canceled)
}
