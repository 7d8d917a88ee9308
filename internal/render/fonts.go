package render

import (
	_ "embed"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"sync"

	"github.com/BurntSushi/toml"
	"golang.org/x/image/font"
	"golang.org/x/image/font/gofont/goregular"
	"golang.org/x/image/font/opentype"
)

//go:embed catalog.toml
var defaultCatalog string

// FontEntry is one font offered to the user.
type FontEntry struct {
	Name string `toml:"name"`
	File string `toml:"file"`
}

type catalog struct {
	Fonts []FontEntry `toml:"font"`
}

type faceKey struct {
	name string
	size float64
}

// FontLibrary resolves font names to faces. Faces are not safe for concurrent
// use, so all access goes through WithFace, which serialises callers.
type FontLibrary struct {
	mu       sync.Mutex
	names    []string
	entries  map[string]FontEntry
	baseDir  string
	parsed   map[string]*opentype.Font
	faces    map[faceKey]font.Face
	fallback *opentype.Font
	logger   *slog.Logger
}

// NewFontLibrary loads the catalog at path, or the built-in catalog when
// path is empty.
func NewFontLibrary(path string, logger *slog.Logger) (*FontLibrary, error) {
	if logger == nil {
		logger = slog.Default()
	}

	var c catalog
	baseDir := ""
	if path == "" {
		if _, err := toml.Decode(defaultCatalog, &c); err != nil {
			return nil, fmt.Errorf("decode font catalog: %w", err)
		}
	} else {
		if _, err := toml.DecodeFile(path, &c); err != nil {
			return nil, fmt.Errorf("decode font catalog %s: %w", path, err)
		}
		baseDir = filepath.Dir(path)
	}

	fallback, err := opentype.Parse(goregular.TTF)
	if err != nil {
		return nil, fmt.Errorf("parse fallback font: %w", err)
	}

	lib := &FontLibrary{
		entries:  make(map[string]FontEntry, len(c.Fonts)),
		baseDir:  baseDir,
		parsed:   make(map[string]*opentype.Font),
		faces:    make(map[faceKey]font.Face),
		fallback: fallback,
		logger:   logger,
	}
	for _, f := range c.Fonts {
		if f.Name == "" {
			continue
		}
		if _, dup := lib.entries[f.Name]; dup {
			continue
		}
		lib.entries[f.Name] = f
		lib.names = append(lib.names, f.Name)
	}
	return lib, nil
}

// Names returns the catalog's font names in catalog order.
func (l *FontLibrary) Names() []string {
	return append([]string(nil), l.names...)
}

// Has reports whether name is in the catalog.
func (l *FontLibrary) Has(name string) bool {
	_, ok := l.entries[name]
	return ok
}

// WithFace runs fn with the face for name at size. Unknown or unloadable
// fonts fall back to Go Regular.
func (l *FontLibrary) WithFace(name string, size float64, fn func(font.Face)) error {
	if size <= 0 {
		size = 40
	}
	l.mu.Lock()
	defer l.mu.Unlock()

	key := faceKey{name: name, size: size}
	face, ok := l.faces[key]
	if !ok {
		f := l.fontLocked(name)
		var err error
		face, err = opentype.NewFace(f, &opentype.FaceOptions{
			Size:    size,
			DPI:     72,
			Hinting: font.HintingNone,
		})
		if err != nil {
			return fmt.Errorf("new face %s@%g: %w", name, size, err)
		}
		l.faces[key] = face
	}
	fn(face)
	return nil
}

func (l *FontLibrary) fontLocked(name string) *opentype.Font {
	if f, ok := l.parsed[name]; ok {
		return f
	}

	f := l.fallback
	entry, ok := l.entries[name]
	switch {
	case !ok:
		l.logger.Debug("font not in catalog, using fallback", "font", name)
	case entry.File != "":
		loaded, err := l.load(entry.File)
		if err != nil {
			l.logger.Debug("font load failed, using fallback", "font", name, "error", err)
		} else {
			f = loaded
		}
	}
	l.parsed[name] = f
	return f
}

func (l *FontLibrary) load(file string) (*opentype.Font, error) {
	if !filepath.IsAbs(file) {
		file = filepath.Join(l.baseDir, file)
	}
	data, err := os.ReadFile(file)
	if err != nil {
		return nil, err
	}
	return opentype.Parse(data)
}
