package engine

import (
	"encoding/json"

	"github.com/inamate/emojikit/internal/document"
)

// DrawCommand represents a single drawing operation for a frontend to execute.
// A frontend receives a list of these and paints them in order.
type DrawCommand struct {
	Op        string    `json:"op"`                  // Operation: "image" or "text"
	ElementID string    `json:"elementId"`           // For hit correlation
	Transform []float64 `json:"transform"`           // [a, b, c, d, e, f] affine matrix
	Text      string    `json:"text,omitempty"`      // Text content for "text" ops
	Font      string    `json:"font,omitempty"`      // Font name for "text" ops
	FontSize  float64   `json:"fontSize,omitempty"`  // Font point size for "text" ops
	ImageData []byte    `json:"imageData,omitempty"` // Encoded image for "image" ops
	Selected  bool      `json:"selected,omitempty"`  // Draw the selection border
}

// CompileDrawCommands generates a draw command buffer from a frame.
// Commands are in painter's order (back to front).
func CompileDrawCommands(frame Frame, sel Selection) []DrawCommand {
	commands := make([]DrawCommand, 0, len(frame.Nodes))
	for _, node := range frame.Nodes {
		cmd := DrawCommand{
			ElementID: node.ID,
			Transform: node.Transform.ToSlice(),
			Selected:  sel.Is(node.ID),
		}
		switch node.Kind {
		case document.ContentImage:
			cmd.Op = "image"
			cmd.ImageData = node.Element.ImageData
		case document.ContentText:
			cmd.Op = "text"
			cmd.Text = node.Element.Text
			cmd.Font = node.Element.Font
			cmd.FontSize = node.Element.FontSize
		default:
			continue
		}
		commands = append(commands, cmd)
	}
	return commands
}

// DrawCommandsToJSON serializes draw commands to JSON.
func DrawCommandsToJSON(commands []DrawCommand) (string, error) {
	data, err := json.Marshal(commands)
	if err != nil {
		return "[]", err
	}
	return string(data), nil
}

// HitTest returns the ID of the topmost element containing the canvas point,
// or empty string. Nodes are tested front to back in their local space, so
// rotated elements hit on their real outline rather than a bounding box.
func HitTest(frame Frame, m Measurer, x, y float64) string {
	for i := len(frame.Nodes) - 1; i >= 0; i-- {
		node := frame.Nodes[i]
		inv, ok := node.Transform.Invert()
		if !ok {
			continue
		}
		w, h := m.Measure(node.Element)
		lx, ly := inv.TransformPoint(x, y)
		if CenteredRect(w, h).Contains(lx, ly) {
			return node.ID
		}
	}
	return ""
}

// Bounds returns the canvas-space bounding box of a node.
func Bounds(node Node, m Measurer) Rect {
	w, h := m.Measure(node.Element)
	return node.Transform.TransformRect(CenteredRect(w, h))
}

// RectToJSON serializes a Rect to JSON.
func RectToJSON(r Rect) string {
	data, _ := json.Marshal(map[string]float64{
		"x":      r.X,
		"y":      r.Y,
		"width":  r.Width,
		"height": r.Height,
	})
	return string(data)
}
