package engine

import (
	"time"

	"github.com/inamate/emojikit/internal/document"
)

// BuildFrame resolves the document into paint order.
// If overlays is nil, every node carries its canonical transform (edit mode
// and export). Otherwise each element's overlay, when present, is composed
// over its canonical transform (animation preview).
func BuildFrame(doc *document.Emoji, canvasSize float64, overlays map[string]Overlay) Frame {
	frame := Frame{Width: canvasSize, Height: canvasSize}
	if doc == nil {
		return frame
	}

	order := doc.PaintOrder()
	frame.Nodes = make([]Node, 0, len(order))
	for _, idx := range order {
		el := doc.Elements[idx]
		transform := ComputeTransform(el)
		if o, ok := overlays[el.ID]; ok {
			transform = o.Apply(transform)
		}
		frame.Nodes = append(frame.Nodes, Node{
			ID:        el.ID,
			Index:     idx,
			Kind:      el.Kind(),
			Transform: transform,
			Element:   el,
		})
	}
	return frame
}

// overlaysFor computes a fresh overlay for every element at its insertion index.
func overlaysFor(doc *document.Emoji, elapsed time.Duration) map[string]Overlay {
	out := make(map[string]Overlay, len(doc.Elements))
	for i, el := range doc.Elements {
		out[el.ID] = WaveformForIndex(i).Evaluate(elapsed)
	}
	return out
}
