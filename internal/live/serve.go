package live

import (
	"log/slog"
	"net/http"

	"github.com/coder/websocket"

	"github.com/inamate/emojikit/internal/engine"
	"github.com/inamate/emojikit/internal/typeid"
)

// ServeWS upgrades the request and attaches a viewer of emojiID. It blocks
// until the connection closes.
func (h *Hub) ServeWS(w http.ResponseWriter, r *http.Request, emojiID string, eng *engine.Engine, originPatterns []string) {
	conn, err := websocket.Accept(w, r, &websocket.AcceptOptions{
		OriginPatterns: originPatterns,
	})
	if err != nil {
		slog.Error("websocket accept", "error", err)
		return
	}

	client := NewClient(h, conn, eng, emojiID, typeid.NewClientID())
	h.Register(client)

	ctx := r.Context()
	go client.WritePump(ctx)
	client.ReadPump(ctx)
}
