package engine

import (
	"context"
	"image"

	"github.com/inamate/emojikit/internal/document"
)

// Renderer rasterises a frame.
type Renderer interface {
	RenderFrame(ctx context.Context, frame Frame) (image.Image, error)
}

// FontPicker presents a font choice. An empty name means the user cancelled.
type FontPicker interface {
	PresentFontPicker(ctx context.Context) (string, error)
}

// ImagePicker presents an image choice. Nil bytes mean the user cancelled.
type ImagePicker interface {
	PickImage(ctx context.Context) ([]byte, error)
}

// Saver persists a document.
type Saver interface {
	SaveDocument(ctx context.Context, doc *document.Emoji) error
}

// FontPickerFunc adapts a function to FontPicker.
type FontPickerFunc func(ctx context.Context) (string, error)

func (f FontPickerFunc) PresentFontPicker(ctx context.Context) (string, error) { return f(ctx) }

// ImagePickerFunc adapts a function to ImagePicker.
type ImagePickerFunc func(ctx context.Context) ([]byte, error)

func (f ImagePickerFunc) PickImage(ctx context.Context) ([]byte, error) { return f(ctx) }
