package engine

import (
	"math"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/inamate/emojikit/internal/document"
)

func assertMatrix(t *testing.T, want, got Matrix2D) {
	t.Helper()
	for i := range want {
		assert.InDelta(t, want[i], got[i], 1e-9, "component %d", i)
	}
}

func TestComputeTransform_Identity(t *testing.T) {
	el := document.Element{Text: "a", Scale: 1}
	assertMatrix(t, Identity(), ComputeTransform(el))
}

func TestComputeTransform_Composition(t *testing.T) {
	el := document.Element{
		Text:     "a",
		Position: document.Point{X: 100, Y: 50},
		Scale:    2,
		Rotation: math.Pi / 6,
	}
	want := Translate(100, 50).Multiply(Rotate(math.Pi / 6)).Multiply(Scale(2, 2))
	assertMatrix(t, want, ComputeTransform(el))

	el.IsFlipped = true
	want = Translate(100, 50).Multiply(Rotate(math.Pi / 6)).Multiply(Scale(-2, 2))
	assertMatrix(t, want, ComputeTransform(el))
}

func TestComputeTransform_Flip(t *testing.T) {
	el := document.Element{Text: "a", Scale: 2, IsFlipped: true}
	m := ComputeTransform(el)
	assert.InDelta(t, -2.0, m[0], 1e-9)
	assert.InDelta(t, 2.0, m[3], 1e-9)

	// local right edge lands on the left after flipping
	x, _ := m.TransformPoint(10, 0)
	assert.InDelta(t, -20.0, x, 1e-9)
}

func TestComputeTransform_Pure(t *testing.T) {
	el := document.Element{Text: "a", Position: document.Point{X: 3, Y: 4}, Scale: 1.5, Rotation: 1}
	assert.Equal(t, ComputeTransform(el), ComputeTransform(el))
}

func TestInvert(t *testing.T) {
	m := Translate(10, 20).Multiply(Rotate(0.7)).Multiply(Scale(3, 3))
	inv, ok := m.Invert()
	require.True(t, ok)
	assertMatrix(t, Identity(), m.Multiply(inv))

	_, ok = Scale(0, 0).Invert()
	assert.False(t, ok)
}

func TestTransformRect(t *testing.T) {
	r := Rotate(math.Pi / 2).TransformRect(Rect{X: 0, Y: 0, Width: 10, Height: 4})
	assert.InDelta(t, -4.0, r.X, 1e-9)
	assert.InDelta(t, 0.0, r.Y, 1e-9)
	assert.InDelta(t, 4.0, r.Width, 1e-9)
	assert.InDelta(t, 10.0, r.Height, 1e-9)
}
