package live

import (
	"encoding/json"

	"github.com/inamate/emojikit/internal/document"
	"github.com/inamate/emojikit/internal/engine"
)

type Message struct {
	Type     string          `json:"type"`
	EmojiID  string          `json:"emojiId,omitempty"`
	ClientID string          `json:"clientId,omitempty"`
	Seq      int64           `json:"seq,omitempty"`
	Payload  json.RawMessage `json:"payload"`
}

const (
	// Server to client
	TypeWelcome = "welcome"
	TypePaint   = "paint"
	TypeError   = "error"

	// Presence, both directions
	TypePresenceUpdate = "presence.update"
	TypePresenceState  = "presence.state"
	TypePresenceJoin   = "presence.join"
	TypePresenceLeave  = "presence.leave"

	// Client to server
	TypeTap     = "tap"
	TypeGesture = "gesture"
	TypeAnimate = "animate"
)

type WelcomePayload struct {
	ClientID   string   `json:"clientId"`
	CanvasSize float64  `json:"canvasSize"`
	Fonts      []string `json:"fonts,omitempty"`
}

// PaintPayload is the full paint list, sent after every repaint.
type PaintPayload struct {
	CanvasSize float64              `json:"canvasSize"`
	Commands   []engine.DrawCommand `json:"commands"`
	Selected   string               `json:"selected,omitempty"`
	Animating  bool                 `json:"animating"`
}

type ErrorPayload struct {
	Message string `json:"message"`
}

type TapPayload struct {
	X float64 `json:"x"`
	Y float64 `json:"y"`
}

// GesturePayload carries one phase of a continuous gesture. Values are
// relative to the start of the gesture.
type GesturePayload struct {
	Kind        string         `json:"kind"`
	Phase       string         `json:"phase"` // begin, update, end, cancel
	Translation *document.Point `json:"translation,omitempty"`
	Scale       *float64        `json:"scale,omitempty"`
	Rotation    *float64        `json:"rotation,omitempty"`
}

type AnimatePayload struct {
	Animated bool `json:"animated"`
}

type PresencePayload struct {
	Pointer *PointerPos `json:"pointer,omitempty"`
	Gesture string      `json:"gesture,omitempty"`
}

type PointerPos struct {
	X float64 `json:"x"`
	Y float64 `json:"y"`
}

type PresenceStatePayload struct {
	Presences map[string]*PresencePayload `json:"presences"`
}

type PresenceJoinPayload struct {
	ClientID string `json:"clientId"`
}

type PresenceLeavePayload struct {
	ClientID string `json:"clientId"`
}

func newMessage(typ string, payload any) (*Message, error) {
	data, err := json.Marshal(payload)
	if err != nil {
		return nil, err
	}
	return &Message{Type: typ, Payload: data}, nil
}
