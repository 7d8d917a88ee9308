package asset

import (
	"errors"
	"fmt"
	"io"
	"net/http"
)

const maxUploadSize = 10 << 20 // 10MB

// ReadUpload reads the "file" field of a multipart request and imports it.
// A raw image body (any non-multipart content type) is accepted as well.
func ReadUpload(w http.ResponseWriter, r *http.Request) (Image, error) {
	r.Body = http.MaxBytesReader(w, r.Body, maxUploadSize)

	var src io.Reader = r.Body
	if err := r.ParseMultipartForm(maxUploadSize); err == nil {
		file, _, err := r.FormFile("file")
		if err != nil {
			return Image{}, fmt.Errorf("%w: missing file field", ErrUnsupportedImage)
		}
		defer file.Close()
		src = file
	} else if !errors.Is(err, http.ErrNotMultipart) {
		return Image{}, fmt.Errorf("%w: file too large (max 10MB)", ErrUnsupportedImage)
	}

	data, err := io.ReadAll(src)
	if err != nil {
		return Image{}, fmt.Errorf("%w: read upload: %v", ErrUnsupportedImage, err)
	}
	return Import(data)
}
