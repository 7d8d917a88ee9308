package live

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"sync"

	"github.com/inamate/emojikit/internal/engine"
)

// Room is every viewer of one emoji, sharing its engine.
type Room struct {
	emojiID     string
	clients     map[string]*Client // clientID -> client
	presence    *PresenceManager
	engine      *engine.Engine
	unsubscribe func()
	seq         int64
}

func NewRoom(emojiID string, eng *engine.Engine) *Room {
	return &Room{
		emojiID:  emojiID,
		clients:  make(map[string]*Client),
		presence: NewPresenceManager(),
		engine:   eng,
	}
}

type Hub struct {
	mu         sync.RWMutex
	rooms      map[string]*Room // emojiID -> room
	register   chan *Client
	unregister chan *Client
	done       chan struct{}
	stopOnce   sync.Once
	fonts      []string
	save       SaveFunc
}

// SaveFunc persists the document held by eng.
type SaveFunc func(ctx context.Context, eng *engine.Engine) error

type HubOption func(*Hub)

// WithSaver makes the hub save the document after each committed edit:
// a gesture that ends or cancels, and an animate toggle.
func WithSaver(fn SaveFunc) HubOption {
	return func(h *Hub) { h.save = fn }
}

// NewHub creates a hub. fonts is advertised to clients on join.
func NewHub(fonts []string, opts ...HubOption) *Hub {
	h := &Hub{
		rooms:      make(map[string]*Room),
		register:   make(chan *Client),
		unregister: make(chan *Client),
		done:       make(chan struct{}),
		fonts:      fonts,
	}
	for _, opt := range opts {
		opt(h)
	}
	return h
}

func (h *Hub) Run() {
	for {
		select {
		case client := <-h.register:
			h.addClient(client)
		case client := <-h.unregister:
			h.removeClient(client)
		case <-h.done:
			h.closeAll()
			return
		}
	}
}

// Stop closes every client and ends Run.
func (h *Hub) Stop() {
	h.stopOnce.Do(func() { close(h.done) })
}

func (h *Hub) Register(client *Client) {
	select {
	case h.register <- client:
	case <-h.done:
		client.close()
	}
}

func (h *Hub) Unregister(client *Client) {
	select {
	case h.unregister <- client:
	case <-h.done:
	}
}

// Rooms returns the number of emojis with at least one viewer.
func (h *Hub) Rooms() int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return len(h.rooms)
}

func (h *Hub) addClient(client *Client) {
	h.mu.Lock()
	room, ok := h.rooms[client.EmojiID]
	if !ok {
		room = NewRoom(client.EmojiID, client.engine)
		emojiID := client.EmojiID
		room.unsubscribe = client.engine.OnRepaint(func() { h.broadcastPaint(emojiID) })
		h.rooms[client.EmojiID] = room
	}
	room.clients[client.ClientID] = client
	eng := room.engine
	h.mu.Unlock()

	if msg, err := newMessage(TypeWelcome, WelcomePayload{
		ClientID:   client.ClientID,
		CanvasSize: eng.CanvasSize(),
		Fonts:      h.fonts,
	}); err == nil {
		client.Send(msg)
	}
	if msg := paintMessage(eng); msg != nil {
		client.Send(msg)
	}
	if stateMsg := room.presence.StateMessage(); stateMsg != nil {
		client.Send(stateMsg)
	}

	if joinMsg, err := newMessage(TypePresenceJoin, PresenceJoinPayload{ClientID: client.ClientID}); err == nil {
		h.broadcastToRoom(client.EmojiID, joinMsg, client.ClientID)
	}

	slog.Info("client joined", "client", client.ClientID, "emoji", client.EmojiID)
}

func (h *Hub) removeClient(client *Client) {
	h.mu.Lock()
	room, ok := h.rooms[client.EmojiID]
	if !ok {
		h.mu.Unlock()
		return
	}
	if _, member := room.clients[client.ClientID]; !member {
		h.mu.Unlock()
		return
	}

	delete(room.clients, client.ClientID)
	client.close()
	room.presence.Remove(client.ClientID)

	var unsubscribe func()
	if len(room.clients) == 0 {
		delete(h.rooms, client.EmojiID)
		unsubscribe = room.unsubscribe
	}
	h.mu.Unlock()

	if unsubscribe != nil {
		unsubscribe()
	}

	if leaveMsg, err := newMessage(TypePresenceLeave, PresenceLeavePayload{ClientID: client.ClientID}); err == nil {
		h.broadcastToRoom(client.EmojiID, leaveMsg, "")
	}

	slog.Info("client left", "client", client.ClientID, "emoji", client.EmojiID)
}

func (h *Hub) closeAll() {
	h.mu.Lock()
	rooms := h.rooms
	h.rooms = make(map[string]*Room)
	h.mu.Unlock()

	for _, room := range rooms {
		if room.unsubscribe != nil {
			room.unsubscribe()
		}
		for _, c := range room.clients {
			c.close()
		}
	}
}

func (h *Hub) handleMessage(ctx context.Context, sender *Client, msg *Message) {
	var (
		err       error
		committed bool
	)
	switch msg.Type {
	case TypePresenceUpdate:
		h.handlePresenceUpdate(sender, msg)
	case TypeTap:
		err = h.handleTap(sender, msg)
	case TypeGesture:
		committed, err = h.handleGesture(sender, msg)
	case TypeAnimate:
		err = h.handleAnimate(sender, msg)
		committed = err == nil
	default:
		slog.Warn("unknown message type", "type", msg.Type, "client", sender.ClientID)
		err = fmt.Errorf("unknown message type: %s", msg.Type)
	}
	if err == nil && committed {
		err = h.persist(ctx, sender)
	}
	if err != nil {
		h.sendError(sender, err)
	}
}

func (h *Hub) persist(ctx context.Context, sender *Client) error {
	if h.save == nil {
		return nil
	}
	if err := h.save(ctx, sender.engine); err != nil {
		slog.Error("save emoji", "error", err, "emoji", sender.EmojiID)
		return fmt.Errorf("save: %w", err)
	}
	return nil
}

func (h *Hub) handleTap(sender *Client, msg *Message) error {
	var tap TapPayload
	if err := json.Unmarshal(msg.Payload, &tap); err != nil {
		return fmt.Errorf("invalid tap payload: %w", err)
	}
	_, err := sender.engine.SelectAt(tap.X, tap.Y)
	return err
}

// handleGesture reports whether the message committed the gesture.
func (h *Hub) handleGesture(sender *Client, msg *Message) (bool, error) {
	var g GesturePayload
	if err := json.Unmarshal(msg.Payload, &g); err != nil {
		return false, fmt.Errorf("invalid gesture payload: %w", err)
	}
	kind, err := engine.ParseGestureKind(g.Kind)
	if err != nil {
		return false, err
	}

	eng := sender.engine
	switch g.Phase {
	case "begin":
		return false, eng.BeginGesture(kind)
	case "update":
		d, err := engine.NewDelta(kind, g.Translation, g.Scale, g.Rotation)
		if err != nil {
			return false, err
		}
		return false, eng.UpdateGesture(kind, d)
	case "end":
		err = eng.EndGesture(kind)
	case "cancel":
		err = eng.CancelGesture(kind)
	default:
		return false, fmt.Errorf("unknown gesture phase: %s", g.Phase)
	}
	return err == nil, err
}

func (h *Hub) handleAnimate(sender *Client, msg *Message) error {
	var a AnimatePayload
	if err := json.Unmarshal(msg.Payload, &a); err != nil {
		return fmt.Errorf("invalid animate payload: %w", err)
	}
	return sender.engine.SetAnimated(a.Animated)
}

func (h *Hub) handlePresenceUpdate(sender *Client, msg *Message) {
	var presence PresencePayload
	if err := json.Unmarshal(msg.Payload, &presence); err != nil {
		slog.Warn("invalid presence payload", "error", err)
		return
	}

	h.mu.RLock()
	room, ok := h.rooms[sender.EmojiID]
	h.mu.RUnlock()
	if !ok {
		return
	}

	room.presence.Update(sender.ClientID, &presence)

	outPayload, _ := json.Marshal(presence)
	outMsg := &Message{
		Type:     TypePresenceUpdate,
		ClientID: sender.ClientID,
		Payload:  outPayload,
	}
	h.broadcastToRoom(sender.EmojiID, outMsg, sender.ClientID)
}

func (h *Hub) sendError(c *Client, err error) {
	msg, mErr := newMessage(TypeError, ErrorPayload{Message: err.Error()})
	if mErr != nil {
		return
	}
	c.Send(msg)
}

// broadcastPaint sends the current paint list to every viewer of emojiID.
func (h *Hub) broadcastPaint(emojiID string) {
	h.mu.Lock()
	room, ok := h.rooms[emojiID]
	if !ok {
		h.mu.Unlock()
		return
	}
	room.seq++
	seq := room.seq
	eng := room.engine
	h.mu.Unlock()

	msg := paintMessage(eng)
	if msg == nil {
		return
	}
	msg.Seq = seq
	h.broadcastToRoom(emojiID, msg, "")
}

func paintMessage(eng *engine.Engine) *Message {
	cmds, err := eng.DrawCommands()
	if err != nil {
		if !errors.Is(err, engine.ErrNoActiveDocument) {
			slog.Error("compile draw commands", "error", err)
		}
		return nil
	}
	selected, _ := eng.Selected()
	msg, err := newMessage(TypePaint, PaintPayload{
		CanvasSize: eng.CanvasSize(),
		Commands:   cmds,
		Selected:   selected,
		Animating:  eng.IsAnimating(),
	})
	if err != nil {
		slog.Error("marshal paint", "error", err)
		return nil
	}
	return msg
}

func (h *Hub) broadcastToRoom(emojiID string, msg *Message, excludeClientID string) {
	h.mu.RLock()
	room, ok := h.rooms[emojiID]
	if !ok {
		h.mu.RUnlock()
		return
	}

	clients := make([]*Client, 0, len(room.clients))
	for _, c := range room.clients {
		if c.ClientID != excludeClientID {
			clients = append(clients, c)
		}
	}
	h.mu.RUnlock()

	msg.EmojiID = emojiID
	for _, c := range clients {
		c.Send(msg)
	}
}
