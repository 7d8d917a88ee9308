package document

import (
	"bytes"
	"encoding/json"
	"fmt"
	"time"

	"github.com/google/uuid"
)

const (
	DefaultName              = "New Emoji"
	DefaultFont              = "Helvetica"
	DefaultFontSize          = 40.0
	DefaultAnimationDuration = 1.0
)

// Point is a position in canvas coordinates. It is encoded as [x, y].
type Point struct {
	X float64
	Y float64
}

func (p Point) Add(other Point) Point {
	return Point{X: p.X + other.X, Y: p.Y + other.Y}
}

func (p Point) MarshalJSON() ([]byte, error) {
	return json.Marshal([2]float64{p.X, p.Y})
}

func (p *Point) UnmarshalJSON(data []byte) error {
	var xy []float64
	if err := json.Unmarshal(data, &xy); err != nil {
		return fmt.Errorf("invalid point: %w", err)
	}
	if len(xy) != 2 {
		return fmt.Errorf("invalid point: expected [x, y], got %d values", len(xy))
	}
	p.X, p.Y = xy[0], xy[1]
	return nil
}

// Element is one layer of an emoji: either an image or a run of styled text.
type Element struct {
	ID        string  `json:"id"`
	ImageData []byte  `json:"imageData,omitempty"`
	Text      string  `json:"text,omitempty"`
	Font      string  `json:"font,omitempty"`
	FontSize  float64 `json:"fontSize"`
	Position  Point   `json:"position"`
	Scale     float64 `json:"scale"`
	Rotation  float64 `json:"rotation"`
	ZPosition int     `json:"zPosition"`
	IsFlipped bool    `json:"isFlipped"`
}

// ContentKind tells which of the two content forms an element carries.
type ContentKind string

const (
	ContentNone  ContentKind = ""
	ContentImage ContentKind = "image"
	ContentText  ContentKind = "text"
	ContentBoth  ContentKind = "both"
)

func (e Element) Kind() ContentKind {
	hasImage := len(e.ImageData) > 0
	hasText := e.Text != ""
	switch {
	case hasImage && hasText:
		return ContentBoth
	case hasImage:
		return ContentImage
	case hasText:
		return ContentText
	default:
		return ContentNone
	}
}

// Validate checks that the element carries exactly one content form.
func (e Element) Validate() error {
	switch e.Kind() {
	case ContentImage, ContentText:
		return nil
	case ContentBoth:
		return fmt.Errorf("%w: element %s has both image and text content", ErrMalformedElement, e.ID)
	default:
		return fmt.Errorf("%w: element %s has no content", ErrMalformedElement, e.ID)
	}
}

// NewTextElement creates a text element centred at pos with the default font.
func NewTextElement(text string, pos Point) Element {
	return Element{
		ID:       uuid.NewString(),
		Text:     text,
		Font:     DefaultFont,
		FontSize: DefaultFontSize,
		Position: pos,
		Scale:    1,
	}
}

// NewImageElement creates an image element centred at pos.
func NewImageElement(data []byte, pos Point) Element {
	return Element{
		ID:        uuid.NewString(),
		ImageData: data,
		Font:      DefaultFont,
		FontSize:  DefaultFontSize,
		Position:  pos,
		Scale:     1,
	}
}

// Emoji is the persisted document: metadata plus elements in insertion order.
type Emoji struct {
	ID                string    `json:"id"`
	Name              string    `json:"name"`
	Elements          []Element `json:"elements"`
	IsAnimated        bool      `json:"isAnimated"`
	AnimationDuration float64   `json:"animationDuration"`
	CreatedDate       time.Time `json:"createdDate"`
}

// New creates an empty document.
func New(name string) *Emoji {
	if name == "" {
		name = DefaultName
	}
	return &Emoji{
		ID:                uuid.NewString(),
		Name:              name,
		Elements:          []Element{},
		AnimationDuration: DefaultAnimationDuration,
		CreatedDate:       time.Now().UTC(),
	}
}

// Clone returns a deep copy that shares no memory with e.
func (e *Emoji) Clone() *Emoji {
	c := *e
	c.Elements = make([]Element, len(e.Elements))
	for i, el := range e.Elements {
		el.ImageData = bytes.Clone(el.ImageData)
		c.Elements[i] = el
	}
	return &c
}
