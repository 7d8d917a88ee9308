package engine

import (
	"errors"
	"fmt"

	"github.com/inamate/emojikit/internal/document"
)

// GestureKind selects the attribute a gesture drives.
type GestureKind int

const (
	GestureTranslate GestureKind = iota // position, additive
	GestureScale                        // scale, multiplicative
	GestureRotate                       // rotation, additive
	gestureKindCount
)

func (k GestureKind) String() string {
	switch k {
	case GestureTranslate:
		return "translate"
	case GestureScale:
		return "scale"
	case GestureRotate:
		return "rotate"
	default:
		return fmt.Sprintf("GestureKind(%d)", int(k))
	}
}

// ParseGestureKind maps "translate", "scale" (or "pinch") and "rotate" to a kind.
func ParseGestureKind(s string) (GestureKind, error) {
	switch s {
	case "translate", "pan":
		return GestureTranslate, nil
	case "scale", "pinch":
		return GestureScale, nil
	case "rotate":
		return GestureRotate, nil
	default:
		return 0, fmt.Errorf("unknown gesture kind: %s", s)
	}
}

type GestureState int

const (
	GestureIdle GestureState = iota
	GestureActive
)

func (s GestureState) String() string {
	if s == GestureActive {
		return "active"
	}
	return "idle"
}

// Delta is the live value reported by a gesture recogniser, relative to the
// start of the gesture. Each kind reads only its own field.
type Delta struct {
	Translation document.Point
	Scale       float64
	Rotation    float64
}

var ErrInvalidDelta = errors.New("invalid gesture delta")

// NewDelta builds the live value of a gesture update from optional wire
// fields. A scale update needs a positive factor; the other fields default
// to no change.
func NewDelta(kind GestureKind, translation *document.Point, scale, rotation *float64) (Delta, error) {
	var d Delta
	if translation != nil {
		d.Translation = *translation
	}
	if rotation != nil {
		d.Rotation = *rotation
	}
	if scale != nil {
		d.Scale = *scale
	}
	if kind == GestureScale && (scale == nil || *scale <= 0) {
		return Delta{}, fmt.Errorf("%w: scale factor must be positive", ErrInvalidDelta)
	}
	return d, nil
}

// GestureSession turns one continuous gesture into baseline-relative updates
// of a single element attribute.
type GestureSession struct {
	kind   GestureKind
	state  GestureState
	target string

	basePosition document.Point
	baseValue    float64
}

func NewGestureSession(kind GestureKind) *GestureSession {
	return &GestureSession{kind: kind}
}

func (g *GestureSession) Kind() GestureKind   { return g.kind }
func (g *GestureSession) State() GestureState { return g.state }
func (g *GestureSession) Target() string      { return g.target }

// Begin captures the baseline from the selected element and becomes active.
// With nothing selected the gesture is ignored and goes idle. Beginning
// while already active re-captures the baseline from the element's current
// value.
func (g *GestureSession) Begin(doc *document.Emoji, sel Selection) error {
	id, ok := sel.Selected()
	if !ok {
		g.reset()
		return nil
	}
	el, err := doc.Element(id)
	if err != nil {
		return err
	}

	switch g.kind {
	case GestureTranslate:
		g.basePosition = el.Position
	case GestureScale:
		g.baseValue = el.Scale
	case GestureRotate:
		g.baseValue = el.Rotation
	}
	g.target = id
	g.state = GestureActive
	return nil
}

// Update writes combine(baseline, live) into the target element. It reports
// whether the document changed.
func (g *GestureSession) Update(doc *document.Emoji, live Delta) (bool, error) {
	if g.state != GestureActive {
		return false, nil
	}

	err := doc.UpdateElement(g.target, func(el *document.Element) {
		switch g.kind {
		case GestureTranslate:
			el.Position = g.basePosition.Add(live.Translation)
		case GestureScale:
			el.Scale = g.baseValue * live.Scale
		case GestureRotate:
			el.Rotation = g.baseValue + live.Rotation
		}
	})
	if err != nil {
		g.reset()
		return false, err
	}
	return true, nil
}

// End commits the last written value.
func (g *GestureSession) End() {
	g.reset()
}

// Cancel restores the baseline into the target element and goes idle.
func (g *GestureSession) Cancel(doc *document.Emoji) (bool, error) {
	if g.state != GestureActive {
		return false, nil
	}
	defer g.reset()

	err := doc.UpdateElement(g.target, func(el *document.Element) {
		switch g.kind {
		case GestureTranslate:
			el.Position = g.basePosition
		case GestureScale:
			el.Scale = g.baseValue
		case GestureRotate:
			el.Rotation = g.baseValue
		}
	})
	if err != nil {
		return false, err
	}
	return true, nil
}

func (g *GestureSession) reset() {
	g.state = GestureIdle
	g.target = ""
}
