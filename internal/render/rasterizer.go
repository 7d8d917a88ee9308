package render

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"image"
	"image/color"
	_ "image/gif"
	_ "image/jpeg"
	_ "image/png"
	"log/slog"
	"strconv"
	"strings"

	_ "golang.org/x/image/bmp"
	"golang.org/x/image/draw"
	"golang.org/x/image/font"
	"golang.org/x/image/math/f64"
	"golang.org/x/image/math/fixed"
	_ "golang.org/x/image/webp"

	"github.com/inamate/emojikit/internal/document"
	"github.com/inamate/emojikit/internal/engine"
)

const fallbackSize = 100

// Rasterizer paints frames into RGBA images. It also measures element
// content, so hit testing agrees with what is drawn.
type Rasterizer struct {
	fonts      *FontLibrary
	background color.Color
	textColor  color.Color
	logger     *slog.Logger
}

func NewRasterizer(fonts *FontLibrary, background color.Color, logger *slog.Logger) *Rasterizer {
	if logger == nil {
		logger = slog.Default()
	}
	if background == nil {
		background = color.White
	}
	return &Rasterizer{
		fonts:      fonts,
		background: background,
		textColor:  color.Black,
		logger:     logger,
	}
}

// RenderFrame draws every node in paint order over the background.
func (r *Rasterizer) RenderFrame(ctx context.Context, frame engine.Frame) (image.Image, error) {
	w, h := int(frame.Width), int(frame.Height)
	if w <= 0 || h <= 0 {
		return nil, fmt.Errorf("invalid canvas size %gx%g", frame.Width, frame.Height)
	}

	dst := image.NewRGBA(image.Rect(0, 0, w, h))
	draw.Draw(dst, dst.Bounds(), image.NewUniform(r.background), image.Point{}, draw.Src)

	for _, node := range frame.Nodes {
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		src, err := r.content(node.Element)
		if err != nil {
			r.logger.Debug("skipping element", "element", node.ID, "error", err)
			continue
		}
		r.drawNode(dst, node.Transform, src)
	}
	return dst, nil
}

// drawNode maps src, centred on the local origin, through m onto dst.
func (r *Rasterizer) drawNode(dst draw.Image, m engine.Matrix2D, src image.Image) {
	b := src.Bounds()
	centre := engine.Translate(
		-float64(b.Min.X)-float64(b.Dx())/2,
		-float64(b.Min.Y)-float64(b.Dy())/2,
	)
	m = m.Multiply(centre)
	if m.Determinant() == 0 {
		return
	}
	s2d := f64.Aff3{m[0], m[2], m[4], m[1], m[3], m[5]}
	draw.BiLinear.Transform(dst, s2d, src, b, draw.Over, nil)
}

// Measure returns the natural size of an element's content.
func (r *Rasterizer) Measure(el document.Element) (float64, float64) {
	switch el.Kind() {
	case document.ContentImage:
		cfg, _, err := image.DecodeConfig(bytes.NewReader(el.ImageData))
		if err != nil || cfg.Width == 0 || cfg.Height == 0 {
			return fallbackSize, fallbackSize
		}
		return float64(cfg.Width), float64(cfg.Height)
	case document.ContentText:
		var w, h float64
		err := r.fonts.WithFace(el.Font, el.FontSize, func(face font.Face) {
			adv := font.MeasureString(face, el.Text)
			w = float64(adv.Ceil())
			h = float64(face.Metrics().Height.Ceil())
		})
		if err != nil || w == 0 {
			return fallbackSize, fallbackSize
		}
		return w, h
	default:
		return fallbackSize, fallbackSize
	}
}

func (r *Rasterizer) content(el document.Element) (image.Image, error) {
	switch el.Kind() {
	case document.ContentImage:
		img, _, err := image.Decode(bytes.NewReader(el.ImageData))
		if err != nil {
			return nil, fmt.Errorf("decode image: %w", err)
		}
		return img, nil
	case document.ContentText:
		return r.rasterizeText(el)
	default:
		return nil, document.ErrMalformedElement
	}
}

func (r *Rasterizer) rasterizeText(el document.Element) (image.Image, error) {
	var img *image.RGBA
	err := r.fonts.WithFace(el.Font, el.FontSize, func(face font.Face) {
		metrics := face.Metrics()
		w := font.MeasureString(face, el.Text).Ceil()
		h := metrics.Height.Ceil()
		if w <= 0 || h <= 0 {
			return
		}
		img = image.NewRGBA(image.Rect(0, 0, w, h))
		d := font.Drawer{
			Dst:  img,
			Src:  image.NewUniform(r.textColor),
			Face: face,
			Dot:  fixed.Point26_6{X: 0, Y: metrics.Ascent},
		}
		d.DrawString(el.Text)
	})
	if err != nil {
		return nil, err
	}
	if img == nil {
		return nil, errors.New("empty text")
	}
	return img, nil
}

// ParseColor parses "#rgb", "#rrggbb", "#rrggbbaa" or "transparent".
func ParseColor(s string) (color.Color, error) {
	s = strings.TrimSpace(strings.ToLower(s))
	if s == "transparent" {
		return color.Transparent, nil
	}
	hex, ok := strings.CutPrefix(s, "#")
	if !ok {
		return nil, fmt.Errorf("invalid color %q", s)
	}
	if len(hex) == 3 {
		hex = string([]byte{hex[0], hex[0], hex[1], hex[1], hex[2], hex[2]})
	}
	if len(hex) == 6 {
		hex += "ff"
	}
	if len(hex) != 8 {
		return nil, fmt.Errorf("invalid color %q", s)
	}
	v, err := strconv.ParseUint(hex, 16, 32)
	if err != nil {
		return nil, fmt.Errorf("invalid color %q: %w", s, err)
	}
	c := color.NRGBA{R: uint8(v >> 24), G: uint8(v >> 16), B: uint8(v >> 8), A: uint8(v)}
	return c, nil
}
