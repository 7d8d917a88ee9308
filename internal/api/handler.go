package api

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"log/slog"
	"mime"
	"net/http"
	"strconv"
	"time"

	"github.com/gorilla/mux"

	"github.com/inamate/emojikit/internal/asset"
	"github.com/inamate/emojikit/internal/document"
	"github.com/inamate/emojikit/internal/engine"
	"github.com/inamate/emojikit/internal/export"
	"github.com/inamate/emojikit/internal/live"
	"github.com/inamate/emojikit/internal/store"
)

// Documents carry their images inline.
const maxDocumentSize = 32 << 20

type Handler struct {
	registry      *Registry
	exporter      *export.Exporter
	target        export.Target
	hub           *live.Hub
	fonts         []string
	thumbnailSize int
	origins       []string
	wsOrigins     []string
}

type HandlerConfig struct {
	Registry      *Registry
	Exporter      *export.Exporter
	Target        export.Target // optional, enables server-side exports
	Hub           *live.Hub
	Fonts         []string
	ThumbnailSize int
	// Origins are full origins for CORS. WSOrigins are host patterns for
	// the websocket origin check.
	Origins       []string
	WSOrigins     []string
}

func NewHandler(cfg HandlerConfig) *Handler {
	return &Handler{
		registry:      cfg.Registry,
		exporter:      cfg.Exporter,
		target:        cfg.Target,
		hub:           cfg.Hub,
		fonts:         cfg.Fonts,
		thumbnailSize: cfg.ThumbnailSize,
		origins:       cfg.Origins,
		wsOrigins:     cfg.WSOrigins,
	}
}

type emojiSummary struct {
	ID           string    `json:"id"`
	Name         string    `json:"name"`
	IsAnimated   bool      `json:"isAnimated"`
	ElementCount int       `json:"elementCount"`
	CreatedDate  time.Time `json:"createdDate"`
}

type createRequest struct {
	Name string `json:"name"`
}

type updateRequest struct {
	Name       *string `json:"name"`
	IsAnimated *bool   `json:"isAnimated"`
}

type textRequest struct {
	Text string `json:"text"`
}

type fontRequest struct {
	Font string `json:"font"`
}

type flipRequest struct {
	Flipped bool `json:"flipped"`
}

type selectRequest struct {
	ElementID string   `json:"elementId"`
	X         *float64 `json:"x"`
	Y         *float64 `json:"y"`
}

type gestureRequest struct {
	Translation *document.Point `json:"translation"`
	Scale       *float64        `json:"scale"`
	Rotation    *float64        `json:"rotation"`
}

type paintResponse struct {
	CanvasSize float64              `json:"canvasSize"`
	Commands   []engine.DrawCommand `json:"commands"`
	Selected   string               `json:"selected,omitempty"`
	Animating  bool                 `json:"animating"`
}

// --- Documents ---

func (h *Handler) List(w http.ResponseWriter, r *http.Request) {
	docs, err := h.registry.List(r.Context())
	if err != nil {
		slog.Error("list emojis failed", "error", err)
		writeJSON(w, http.StatusInternalServerError, map[string]string{"error": "internal error"})
		return
	}

	out := make([]emojiSummary, len(docs))
	for i, d := range docs {
		out[i] = emojiSummary{
			ID:           d.ID,
			Name:         d.Name,
			IsAnimated:   d.IsAnimated,
			ElementCount: len(d.Elements),
			CreatedDate:  d.CreatedDate,
		}
	}
	writeJSON(w, http.StatusOK, out)
}

func (h *Handler) Create(w http.ResponseWriter, r *http.Request) {
	var req createRequest
	if r.ContentLength != 0 {
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			writeJSON(w, http.StatusBadRequest, map[string]string{"error": "invalid request body"})
			return
		}
	}

	_, doc, err := h.registry.Create(r.Context(), req.Name)
	if err != nil {
		handleServiceError(w, err)
		return
	}
	writeJSON(w, http.StatusCreated, doc)
}

func (h *Handler) Get(w http.ResponseWriter, r *http.Request) {
	eng, ok := h.engine(w, r)
	if !ok {
		return
	}
	data, err := eng.DocumentJSON()
	if err != nil {
		handleServiceError(w, err)
		return
	}
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusOK)
	w.Write(data)
}

// Replace loads a whole document in its persisted shape.
func (h *Handler) Replace(w http.ResponseWriter, r *http.Request) {
	eng, ok := h.engine(w, r)
	if !ok {
		return
	}
	doc, err := decodeDocument(r)
	if err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": err.Error()})
		return
	}
	if doc.ID != mux.Vars(r)["emojiId"] {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "id does not match path"})
		return
	}
	h.mutate(w, r, eng, func() error { return eng.LoadDocument(doc) })
}

func (h *Handler) Update(w http.ResponseWriter, r *http.Request) {
	eng, ok := h.engine(w, r)
	if !ok {
		return
	}
	var req updateRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "invalid request body"})
		return
	}
	h.mutate(w, r, eng, func() error {
		if req.Name != nil {
			if err := eng.Rename(*req.Name); err != nil {
				return err
			}
		}
		if req.IsAnimated != nil {
			return eng.SetAnimated(*req.IsAnimated)
		}
		return nil
	})
}

func (h *Handler) Delete(w http.ResponseWriter, r *http.Request) {
	if err := h.registry.Delete(r.Context(), mux.Vars(r)["emojiId"]); err != nil {
		handleServiceError(w, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (h *Handler) Save(w http.ResponseWriter, r *http.Request) {
	eng, ok := h.engine(w, r)
	if !ok {
		return
	}
	h.mutate(w, r, eng, func() error { return nil })
}

// --- Elements ---

// AddElement adds text from a JSON body, or an image from an upload.
func (h *Handler) AddElement(w http.ResponseWriter, r *http.Request) {
	eng, ok := h.engine(w, r)
	if !ok {
		return
	}

	var (
		el  document.Element
		err error
	)
	mediaType, _, _ := mime.ParseMediaType(r.Header.Get("Content-Type"))
	if mediaType == "application/json" {
		var req textRequest
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			writeJSON(w, http.StatusBadRequest, map[string]string{"error": "invalid request body"})
			return
		}
		el, err = eng.AddText(req.Text)
	} else {
		var img asset.Image
		img, err = asset.ReadUpload(w, r)
		if err == nil {
			el, err = eng.AddImage(img.Data)
		}
	}
	if err != nil {
		handleServiceError(w, err)
		return
	}
	if err := h.registry.Persist(r.Context(), eng); err != nil {
		handleServiceError(w, err)
		return
	}
	writeJSON(w, http.StatusCreated, el)
}

func (h *Handler) RemoveElement(w http.ResponseWriter, r *http.Request) {
	eng, ok := h.engine(w, r)
	if !ok {
		return
	}
	id := mux.Vars(r)["elementId"]
	h.mutate(w, r, eng, func() error { return eng.RemoveElement(id) })
}

func (h *Handler) BringToFront(w http.ResponseWriter, r *http.Request) {
	eng, ok := h.engine(w, r)
	if !ok {
		return
	}
	id := mux.Vars(r)["elementId"]
	h.mutate(w, r, eng, func() error { return eng.BringToFront(id) })
}

func (h *Handler) SendToBack(w http.ResponseWriter, r *http.Request) {
	eng, ok := h.engine(w, r)
	if !ok {
		return
	}
	id := mux.Vars(r)["elementId"]
	h.mutate(w, r, eng, func() error { return eng.SendToBack(id) })
}

func (h *Handler) SetFont(w http.ResponseWriter, r *http.Request) {
	eng, ok := h.engine(w, r)
	if !ok {
		return
	}
	var req fontRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil || req.Font == "" {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "font is required"})
		return
	}
	id := mux.Vars(r)["elementId"]
	h.mutate(w, r, eng, func() error { return eng.SetFont(id, req.Font) })
}

func (h *Handler) SetFlipped(w http.ResponseWriter, r *http.Request) {
	eng, ok := h.engine(w, r)
	if !ok {
		return
	}
	var req flipRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "invalid request body"})
		return
	}
	id := mux.Vars(r)["elementId"]
	h.mutate(w, r, eng, func() error { return eng.SetFlipped(id, req.Flipped) })
}

// --- Selection and gestures ---

// Select selects by id, or by hit testing a canvas point.
func (h *Handler) Select(w http.ResponseWriter, r *http.Request) {
	eng, ok := h.engine(w, r)
	if !ok {
		return
	}
	var req selectRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "invalid request body"})
		return
	}

	var err error
	switch {
	case req.ElementID != "":
		err = eng.Select(req.ElementID)
	case req.X != nil && req.Y != nil:
		_, err = eng.SelectAt(*req.X, *req.Y)
	default:
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "elementId or x and y are required"})
		return
	}
	if err != nil {
		handleServiceError(w, err)
		return
	}
	h.writePaint(w, eng)
}

func (h *Handler) Deselect(w http.ResponseWriter, r *http.Request) {
	eng, ok := h.engine(w, r)
	if !ok {
		return
	}
	eng.Deselect()
	h.writePaint(w, eng)
}

// Gesture drives one phase of a gesture: begin, update, end or cancel.
func (h *Handler) Gesture(w http.ResponseWriter, r *http.Request) {
	eng, ok := h.engine(w, r)
	if !ok {
		return
	}
	vars := mux.Vars(r)
	kind, err := engine.ParseGestureKind(vars["kind"])
	if err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": err.Error()})
		return
	}

	switch vars["phase"] {
	case "begin":
		err = eng.BeginGesture(kind)
	case "update":
		var req gestureRequest
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			writeJSON(w, http.StatusBadRequest, map[string]string{"error": "invalid request body"})
			return
		}
		var d engine.Delta
		if d, err = engine.NewDelta(kind, req.Translation, req.Scale, req.Rotation); err == nil {
			err = eng.UpdateGesture(kind, d)
		}
	case "end":
		if err = eng.EndGesture(kind); err == nil {
			err = h.registry.Persist(r.Context(), eng)
		}
	case "cancel":
		err = eng.CancelGesture(kind)
	default:
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "unknown gesture phase"})
		return
	}
	if err != nil {
		handleServiceError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]string{"state": eng.GestureState(kind).String()})
}

// --- Animation ---

func (h *Handler) StartAnimation(w http.ResponseWriter, r *http.Request) {
	eng, ok := h.engine(w, r)
	if !ok {
		return
	}
	started, err := eng.StartAnimation()
	if err != nil {
		handleServiceError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]bool{"started": started, "animating": eng.IsAnimating()})
}

func (h *Handler) StopAnimation(w http.ResponseWriter, r *http.Request) {
	eng, ok := h.engine(w, r)
	if !ok {
		return
	}
	stopped := eng.StopAnimation()
	writeJSON(w, http.StatusOK, map[string]bool{"stopped": stopped, "animating": eng.IsAnimating()})
}

// --- Rendering ---

func (h *Handler) Paint(w http.ResponseWriter, r *http.Request) {
	eng, ok := h.engine(w, r)
	if !ok {
		return
	}
	h.writePaint(w, eng)
}

func (h *Handler) Export(w http.ResponseWriter, r *http.Request) {
	eng, ok := h.engine(w, r)
	if !ok {
		return
	}
	animated, _ := strconv.ParseBool(r.URL.Query().Get("animated"))
	download, _ := strconv.ParseBool(r.URL.Query().Get("download"))

	var (
		res export.Result
		err error
	)
	if animated {
		res, err = h.exporter.ExportAnimated(r.Context(), eng)
	} else {
		res, err = h.exporter.ExportStill(r.Context(), eng)
	}
	if err != nil {
		handleServiceError(w, err)
		return
	}

	name := "emoji"
	if doc, err := eng.Document(); err == nil {
		name = doc.Name
	}
	export.WriteResult(w, res, name, download)
}

// Deliver exports to the configured target instead of the response.
func (h *Handler) Deliver(w http.ResponseWriter, r *http.Request) {
	if h.target == nil {
		writeJSON(w, http.StatusNotImplemented, map[string]string{"error": "no export target configured"})
		return
	}
	eng, ok := h.engine(w, r)
	if !ok {
		return
	}
	animated, _ := strconv.ParseBool(r.URL.Query().Get("animated"))
	res, err := h.exporter.ExportTo(r.Context(), eng, h.target, animated)
	if err != nil {
		handleServiceError(w, err)
		return
	}
	writeJSON(w, http.StatusCreated, map[string]any{
		"id":      res.ID,
		"emojiId": res.EmojiID,
		"format":  res.Format,
		"width":   res.Width,
		"height":  res.Height,
	})
}

// Thumbnail renders a stored emoji without opening an editing session.
func (h *Handler) Thumbnail(w http.ResponseWriter, r *http.Request) {
	eng, ok := h.engine(w, r)
	if !ok {
		return
	}
	doc, err := eng.Document()
	if err != nil {
		handleServiceError(w, err)
		return
	}
	size := h.thumbnailSize
	if s, err := strconv.Atoi(r.URL.Query().Get("size")); err == nil && s > 0 && s <= 1024 {
		size = s
	}

	src := export.DocumentSource{Doc: doc, CanvasSize: eng.CanvasSize()}
	res, err := h.exporter.Thumbnail(r.Context(), src, size)
	if err != nil {
		handleServiceError(w, err)
		return
	}
	w.Header().Set("Cache-Control", "no-cache")
	export.WriteResult(w, res, doc.Name, false)
}

func (h *Handler) Fonts(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, h.fonts)
}

// Live attaches a websocket viewer to the emoji's session.
func (h *Handler) Live(w http.ResponseWriter, r *http.Request) {
	eng, ok := h.engine(w, r)
	if !ok {
		return
	}
	h.hub.ServeWS(w, r, mux.Vars(r)["emojiId"], eng, h.wsOrigins)
}

// --- helpers ---

func (h *Handler) engine(w http.ResponseWriter, r *http.Request) (*engine.Engine, bool) {
	eng, err := h.registry.Get(r.Context(), mux.Vars(r)["emojiId"])
	if err != nil {
		handleServiceError(w, err)
		return nil, false
	}
	return eng, true
}

// mutate applies fn, saves the document and returns it.
func (h *Handler) mutate(w http.ResponseWriter, r *http.Request, eng *engine.Engine, fn func() error) {
	if err := fn(); err != nil {
		handleServiceError(w, err)
		return
	}
	if err := h.registry.Persist(r.Context(), eng); err != nil {
		handleServiceError(w, err)
		return
	}
	doc, err := eng.Document()
	if err != nil {
		handleServiceError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, doc)
}

func (h *Handler) writePaint(w http.ResponseWriter, eng *engine.Engine) {
	cmds, err := eng.DrawCommands()
	if err != nil {
		handleServiceError(w, err)
		return
	}
	selected, _ := eng.Selected()
	writeJSON(w, http.StatusOK, paintResponse{
		CanvasSize: eng.CanvasSize(),
		Commands:   cmds,
		Selected:   selected,
		Animating:  eng.IsAnimating(),
	})
}

func decodeDocument(r *http.Request) (*document.Emoji, error) {
	data, err := io.ReadAll(io.LimitReader(r.Body, maxDocumentSize))
	if err != nil {
		return nil, err
	}
	return document.Unmarshal(data)
}

func handleServiceError(w http.ResponseWriter, err error) {
	switch {
	case errors.Is(err, store.ErrNotFound):
		writeJSON(w, http.StatusNotFound, map[string]string{"error": "emoji not found"})
	case errors.Is(err, document.ErrElementNotFound):
		writeJSON(w, http.StatusNotFound, map[string]string{"error": err.Error()})
	case errors.Is(err, document.ErrMalformedElement),
		errors.Is(err, document.ErrDuplicateElement),
		errors.Is(err, document.ErrNotTextElement),
		errors.Is(err, asset.ErrUnsupportedImage),
		errors.Is(err, engine.ErrInvalidDelta):
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": err.Error()})
	case errors.Is(err, engine.ErrNoActiveDocument):
		writeJSON(w, http.StatusConflict, map[string]string{"error": "no active document"})
	case errors.Is(err, export.ErrExportFailed):
		slog.Error("export failed", "error", err)
		writeJSON(w, http.StatusInternalServerError, map[string]string{"error": "export failed"})
	case errors.Is(err, context.Canceled):
		slog.Debug("request cancelled", "error", err)
	default:
		slog.Error("service error", "error", err)
		writeJSON(w, http.StatusInternalServerError, map[string]string{"error": "internal error"})
	}
}

func writeJSON(w http.ResponseWriter, status int, data any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(data)
}
