package asset

import (
	"bytes"
	"errors"
	"fmt"
	"image"
	_ "image/gif"
	_ "image/jpeg"
	"image/png"
	"slices"

	"github.com/h2non/filetype"
	_ "golang.org/x/image/bmp"
	_ "golang.org/x/image/webp"
)

var ErrUnsupportedImage = errors.New("unsupported image")

// accepted lists the sniffed extensions Import will decode.
var accepted = []string{"png", "jpg", "gif", "webp", "bmp"}

// Image is an imported picture, normalised to PNG.
type Image struct {
	Data       []byte
	Width      int
	Height     int
	SourceType string
}

// Import sniffs data, decodes it and re-encodes it as PNG so every stored
// element carries one format.
func Import(data []byte) (Image, error) {
	if len(data) == 0 {
		return Image{}, fmt.Errorf("%w: empty input", ErrUnsupportedImage)
	}

	kind, err := filetype.Match(data)
	if err != nil || kind == filetype.Unknown {
		return Image{}, fmt.Errorf("%w: unrecognised content", ErrUnsupportedImage)
	}
	if !slices.Contains(accepted, kind.Extension) {
		return Image{}, fmt.Errorf("%w: %s", ErrUnsupportedImage, kind.MIME.Value)
	}

	img, _, err := image.Decode(bytes.NewReader(data))
	if err != nil {
		return Image{}, fmt.Errorf("%w: decode %s: %v", ErrUnsupportedImage, kind.Extension, err)
	}

	b := img.Bounds()
	out := Image{Width: b.Dx(), Height: b.Dy(), SourceType: kind.Extension}
	if kind.Extension == "png" {
		out.Data = data
		return out, nil
	}

	var buf bytes.Buffer
	if err := png.Encode(&buf, img); err != nil {
		return Image{}, fmt.Errorf("encode png: %w", err)
	}
	out.Data = buf.Bytes()
	return out, nil
}
