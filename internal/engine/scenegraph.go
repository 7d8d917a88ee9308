package engine

import "github.com/inamate/emojikit/internal/document"

// Frame is the render-ready state of a document: the canvas size and the
// elements in paint order, each with the transform to draw it with.
type Frame struct {
	Width  float64
	Height float64
	Nodes  []Node
}

// Node is one element resolved for painting. The element's content is drawn
// centred on the local origin and mapped to the canvas by Transform.
type Node struct {
	ID        string
	Index     int // insertion-order index in the document
	Kind      document.ContentKind
	Transform Matrix2D
	Element   document.Element
}

// Rect represents an axis-aligned bounding box.
type Rect struct {
	X      float64
	Y      float64
	Width  float64
	Height float64
}

// Contains checks if a point is inside the rect.
func (r Rect) Contains(x, y float64) bool {
	return x >= r.X && x <= r.X+r.Width && y >= r.Y && y <= r.Y+r.Height
}

// IsEmpty checks if the rect has zero or negative area.
func (r Rect) IsEmpty() bool {
	return r.Width <= 0 || r.Height <= 0
}

// Union returns the smallest rect containing both rects.
func (r Rect) Union(other Rect) Rect {
	if r.IsEmpty() {
		return other
	}
	if other.IsEmpty() {
		return r
	}

	minX := min(r.X, other.X)
	minY := min(r.Y, other.Y)
	maxX := max(r.X+r.Width, other.X+other.Width)
	maxY := max(r.Y+r.Height, other.Y+other.Height)

	return Rect{
		X:      minX,
		Y:      minY,
		Width:  maxX - minX,
		Height: maxY - minY,
	}
}

// CenteredRect returns a w x h rect centred on the origin, the local bounds
// of an element's content.
func CenteredRect(w, h float64) Rect {
	return Rect{X: -w / 2, Y: -h / 2, Width: w, Height: h}
}

// Measurer reports the unscaled size of an element's content.
type Measurer interface {
	Measure(el document.Element) (width, height float64)
}

// fixedMeasurer is used when no renderer-backed measurer is configured.
type fixedMeasurer struct {
	width, height float64
}

func (m fixedMeasurer) Measure(document.Element) (float64, float64) {
	return m.width, m.height
}
