package engine

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/inamate/emojikit/internal/document"
)

var ErrNoActiveDocument = errors.New("no active document")

const DefaultCanvasSize = 512.0

// Engine is the editing session. It exclusively owns the document and the
// selection, gesture, and animation state derived from it. Every exported
// method is safe for concurrent use; all of them serialise on one lock, which
// is the session's single logical thread.
type Engine struct {
	mu sync.Mutex

	// Document state
	doc        *document.Emoji
	canvasSize float64

	// Selection state (engine owns this)
	selection Selection

	// One gesture state machine per kind
	gestures [gestureKindCount]*GestureSession

	// Animation overlays, keyed by element id
	overlays  map[string]Overlay
	scheduler *Scheduler

	measurer  Measurer
	logger    *slog.Logger
	listeners map[int]func()
	nextID    int
}

type Option func(*engineOptions)

type engineOptions struct {
	canvasSize float64
	measurer   Measurer
	logger     *slog.Logger
	scheduler  []SchedulerOption
}

// WithCanvasSize sets the side of the square canvas.
func WithCanvasSize(size float64) Option {
	return func(o *engineOptions) {
		if size > 0 {
			o.canvasSize = size
		}
	}
}

// WithMeasurer sets how element content is sized for hit testing.
func WithMeasurer(m Measurer) Option {
	return func(o *engineOptions) { o.measurer = m }
}

func WithLogger(l *slog.Logger) Option {
	return func(o *engineOptions) { o.logger = l }
}

// WithSchedulerOptions configures the animation scheduler.
func WithSchedulerOptions(opts ...SchedulerOption) Option {
	return func(o *engineOptions) { o.scheduler = append(o.scheduler, opts...) }
}

// NewEngine creates an engine with no document loaded.
func NewEngine(opts ...Option) *Engine {
	o := engineOptions{
		canvasSize: DefaultCanvasSize,
		measurer:   fixedMeasurer{width: 100, height: 100},
		logger:     slog.Default(),
	}
	for _, opt := range opts {
		opt(&o)
	}

	e := &Engine{
		canvasSize: o.canvasSize,
		overlays:   make(map[string]Overlay),
		measurer:   o.measurer,
		logger:     o.logger,
		listeners:  make(map[int]func()),
	}
	for k := range e.gestures {
		e.gestures[k] = NewGestureSession(GestureKind(k))
	}
	e.scheduler = NewScheduler(&e.mu, engineStage{e}, o.scheduler...)
	e.scheduler.OnTick(e.notify)
	return e
}

// engineStage adapts the engine to the scheduler. Called with e.mu held.
type engineStage struct{ e *Engine }

func (s engineStage) Animated() bool {
	return s.e.doc != nil && s.e.doc.IsAnimated
}

func (s engineStage) ApplyOverlays(elapsed time.Duration) {
	if s.e.doc == nil {
		clear(s.e.overlays)
		return
	}
	s.e.overlays = overlaysFor(s.e.doc, elapsed)
}

func (s engineStage) ClearOverlays() {
	clear(s.e.overlays)
}

// --- Listeners ---

// OnRepaint registers fn to run after every change that affects what is
// painted. fn runs without the engine lock held. The returned func removes it.
func (e *Engine) OnRepaint(fn func()) (remove func()) {
	e.mu.Lock()
	id := e.nextID
	e.nextID++
	e.listeners[id] = fn
	e.mu.Unlock()

	return func() {
		e.mu.Lock()
		delete(e.listeners, id)
		e.mu.Unlock()
	}
}

func (e *Engine) notify() {
	e.mu.Lock()
	fns := make([]func(), 0, len(e.listeners))
	for _, fn := range e.listeners {
		fns = append(fns, fn)
	}
	e.mu.Unlock()

	for _, fn := range fns {
		fn()
	}
}

// changed notifies listeners when a mutation succeeded.
func (e *Engine) changed(err error) error {
	if err == nil {
		e.notify()
	}
	return err
}

// mutate runs fn with the lock held and an active document.
func (e *Engine) mutate(fn func(doc *document.Emoji) error) error {
	e.mu.Lock()
	var err error
	if e.doc == nil {
		err = ErrNoActiveDocument
	} else {
		err = fn(e.doc)
	}
	e.mu.Unlock()
	return e.changed(err)
}

// --- Document lifecycle ---

// NewDocument replaces the current document with an empty one.
func (e *Engine) NewDocument(name string) *document.Emoji {
	doc := document.New(name)
	e.mu.Lock()
	e.replaceLocked(doc)
	e.mu.Unlock()
	e.notify()
	return doc.Clone()
}

// LoadDocument validates doc and takes a private copy of it.
func (e *Engine) LoadDocument(doc *document.Emoji) error {
	if doc == nil {
		return ErrNoActiveDocument
	}
	if err := doc.Validate(); err != nil {
		return fmt.Errorf("load emoji: %w", err)
	}
	e.mu.Lock()
	e.replaceLocked(doc.Clone())
	e.mu.Unlock()
	e.notify()
	return nil
}

// LoadJSON decodes a document in its persisted shape and loads it.
func (e *Engine) LoadJSON(data []byte) error {
	doc, err := document.Unmarshal(data)
	if err != nil {
		return fmt.Errorf("load emoji: %w", err)
	}
	e.mu.Lock()
	e.replaceLocked(doc)
	e.mu.Unlock()
	e.notify()
	return nil
}

// CloseDocument unloads the document.
func (e *Engine) CloseDocument() {
	e.mu.Lock()
	e.replaceLocked(nil)
	e.mu.Unlock()
	e.notify()
}

// replaceLocked stops everything bound to the old document.
func (e *Engine) replaceLocked(doc *document.Emoji) {
	e.scheduler.stopLocked()
	clear(e.overlays)
	e.selection.Deselect()
	for _, g := range e.gestures {
		g.reset()
	}
	e.doc = doc
	if doc != nil {
		e.logger.Debug("emoji loaded", "emoji", doc.ID, "elements", len(doc.Elements))
	}
}

// Document returns a copy of the current document.
func (e *Engine) Document() (*document.Emoji, error) {
	e.mu.Lock()
	defer e.mu.Unlock()
	if e.doc == nil {
		return nil, ErrNoActiveDocument
	}
	return e.doc.Clone(), nil
}

// DocumentJSON returns the current document in its persisted shape.
func (e *Engine) DocumentJSON() ([]byte, error) {
	e.mu.Lock()
	defer e.mu.Unlock()
	if e.doc == nil {
		return nil, ErrNoActiveDocument
	}
	return document.Marshal(e.doc)
}

// DocumentID returns the id of the loaded document.
func (e *Engine) DocumentID() (string, error) {
	e.mu.Lock()
	defer e.mu.Unlock()
	if e.doc == nil {
		return "", ErrNoActiveDocument
	}
	return e.doc.ID, nil
}

func (e *Engine) CanvasSize() float64 {
	return e.canvasSize
}

// --- Elements ---

// AddElement adds el and selects it.
func (e *Engine) AddElement(el document.Element) (document.Element, error) {
	var added document.Element
	err := e.mutate(func(doc *document.Emoji) error {
		var err error
		added, err = doc.AddElement(el)
		if err != nil {
			return err
		}
		e.selection.id = added.ID
		return nil
	})
	return added, err
}

// AddText adds a text element at the canvas centre.
func (e *Engine) AddText(text string) (document.Element, error) {
	return e.AddElement(document.NewTextElement(text, e.center()))
}

// AddImage adds an image element at the canvas centre.
func (e *Engine) AddImage(data []byte) (document.Element, error) {
	return e.AddElement(document.NewImageElement(data, e.center()))
}

func (e *Engine) center() document.Point {
	return document.Point{X: e.canvasSize / 2, Y: e.canvasSize / 2}
}

// Element returns a copy of one element.
func (e *Engine) Element(id string) (document.Element, error) {
	e.mu.Lock()
	defer e.mu.Unlock()
	if e.doc == nil {
		return document.Element{}, ErrNoActiveDocument
	}
	return e.doc.Element(id)
}

// RemoveElement deletes an element; it is deselected if it was selected.
func (e *Engine) RemoveElement(id string) error {
	return e.mutate(func(doc *document.Emoji) error {
		if err := doc.RemoveElement(id); err != nil {
			return err
		}
		if e.selection.Is(id) {
			e.selection.Deselect()
		}
		delete(e.overlays, id)
		return nil
	})
}

// SetFont changes the font of a text element.
func (e *Engine) SetFont(id, font string) error {
	return e.mutate(func(doc *document.Emoji) error {
		return doc.SetFont(id, font)
	})
}

// SetFlipped mirrors an element horizontally.
func (e *Engine) SetFlipped(id string, flipped bool) error {
	return e.mutate(func(doc *document.Emoji) error {
		return doc.UpdateElement(id, func(el *document.Element) {
			el.IsFlipped = flipped
		})
	})
}

// Rename sets the display name of the document.
func (e *Engine) Rename(name string) error {
	return e.mutate(func(doc *document.Emoji) error {
		doc.Rename(name)
		return nil
	})
}

// --- Z-order ---

func (e *Engine) BringToFront(id string) error {
	return e.mutate(func(doc *document.Emoji) error {
		return doc.BringToFront(id)
	})
}

func (e *Engine) SendToBack(id string) error {
	return e.mutate(func(doc *document.Emoji) error {
		return doc.SendToBack(id)
	})
}

// --- Selection ---

// Select makes id the single selected element.
func (e *Engine) Select(id string) error {
	return e.mutate(func(doc *document.Emoji) error {
		return e.selection.Select(doc, id)
	})
}

// Deselect clears the selection. It always succeeds.
func (e *Engine) Deselect() {
	e.mu.Lock()
	e.selection.Deselect()
	e.mu.Unlock()
	e.notify()
}

// Selected returns the selected element id, if any.
func (e *Engine) Selected() (string, bool) {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.selection.Selected()
}

// SelectAt selects the topmost element under the canvas point, or clears the
// selection when the point hits nothing. It returns the selected id.
func (e *Engine) SelectAt(x, y float64) (string, error) {
	var hit string
	err := e.mutate(func(doc *document.Emoji) error {
		frame := BuildFrame(doc, e.canvasSize, nil)
		hit = HitTest(frame, e.measurer, x, y)
		if hit == "" {
			e.selection.Deselect()
			return nil
		}
		return e.selection.Select(doc, hit)
	})
	return hit, err
}

// --- Gestures ---

// BeginGesture starts a gesture of the given kind on the selected element.
// With nothing selected the gesture stays idle.
func (e *Engine) BeginGesture(kind GestureKind) error {
	g, err := e.gesture(kind)
	if err != nil {
		return err
	}
	e.mu.Lock()
	defer e.mu.Unlock()
	if e.doc == nil {
		return ErrNoActiveDocument
	}
	return g.Begin(e.doc, e.selection)
}

// UpdateGesture applies a live delta relative to the gesture's baseline.
func (e *Engine) UpdateGesture(kind GestureKind, live Delta) error {
	g, err := e.gesture(kind)
	if err != nil {
		return err
	}
	e.mu.Lock()
	var wrote bool
	if e.doc == nil {
		err = ErrNoActiveDocument
	} else {
		wrote, err = g.Update(e.doc, live)
	}
	e.mu.Unlock()
	if wrote {
		e.notify()
	}
	return err
}

// EndGesture commits the last written value.
func (e *Engine) EndGesture(kind GestureKind) error {
	g, err := e.gesture(kind)
	if err != nil {
		return err
	}
	e.mu.Lock()
	g.End()
	e.mu.Unlock()
	return nil
}

// CancelGesture restores the baseline captured at BeginGesture.
func (e *Engine) CancelGesture(kind GestureKind) error {
	g, err := e.gesture(kind)
	if err != nil {
		return err
	}
	e.mu.Lock()
	var wrote bool
	if e.doc == nil {
		g.reset()
		err = ErrNoActiveDocument
	} else {
		wrote, err = g.Cancel(e.doc)
	}
	e.mu.Unlock()
	if wrote {
		e.notify()
	}
	return err
}

// GestureState reports the state of the gesture of the given kind.
func (e *Engine) GestureState(kind GestureKind) GestureState {
	g, err := e.gesture(kind)
	if err != nil {
		return GestureIdle
	}
	e.mu.Lock()
	defer e.mu.Unlock()
	return g.State()
}

func (e *Engine) gesture(kind GestureKind) (*GestureSession, error) {
	if kind < 0 || kind >= gestureKindCount {
		return nil, fmt.Errorf("unknown gesture kind: %d", int(kind))
	}
	return e.gestures[kind], nil
}

// --- Animation ---

// StartAnimation starts the scheduler. It is a no-op, returning false, when
// already running or when the document is not animated.
func (e *Engine) StartAnimation() (bool, error) {
	e.mu.Lock()
	if e.doc == nil {
		e.mu.Unlock()
		return false, ErrNoActiveDocument
	}
	started := e.scheduler.startLocked()
	e.mu.Unlock()
	if started {
		e.logger.Debug("animation started", "emoji", e.docIDForLog())
	}
	return started, nil
}

// StopAnimation stops the scheduler and returns every element to its
// canonical transform. It is a no-op when not running.
func (e *Engine) StopAnimation() bool {
	stopped := e.scheduler.Stop()
	if stopped {
		e.notify()
	}
	return stopped
}

// SetAnimated sets the document's animation flag and starts or stops the
// preview to match.
func (e *Engine) SetAnimated(animated bool) error {
	e.mu.Lock()
	if e.doc == nil {
		e.mu.Unlock()
		return ErrNoActiveDocument
	}
	e.doc.SetAnimated(animated)
	if animated {
		e.scheduler.startLocked()
	} else {
		e.scheduler.stopLocked()
	}
	e.mu.Unlock()
	e.notify()
	return nil
}

func (e *Engine) IsAnimating() bool {
	return e.scheduler.Running()
}

// StepAnimation applies one animation tick at now. Used when ticks are
// driven externally (see WithManualTicks).
func (e *Engine) StepAnimation(now time.Time) bool {
	return e.scheduler.Step(now)
}

// AdvanceAnimation is StepAnimation for callers that poll faster than
// TickInterval. Polls that come too soon are ignored and report false.
func (e *Engine) AdvanceAnimation(now time.Time) bool {
	return e.scheduler.Advance(now)
}

func (e *Engine) docIDForLog() string {
	e.mu.Lock()
	defer e.mu.Unlock()
	if e.doc == nil {
		return ""
	}
	return e.doc.ID
}

// --- Queries ---

// PaintList returns the elements in paint order with their rendered
// transforms. With canonical set, animation overlays are ignored.
func (e *Engine) PaintList(canonical bool) (Frame, error) {
	e.mu.Lock()
	defer e.mu.Unlock()
	if e.doc == nil {
		return Frame{}, ErrNoActiveDocument
	}
	if canonical || !e.scheduler.running {
		return BuildFrame(e.doc, e.canvasSize, nil), nil
	}
	return BuildFrame(e.doc, e.canvasSize, e.overlays), nil
}

// RenderedTransform returns the transform an element is currently painted
// with: canonical plus any animation overlay.
func (e *Engine) RenderedTransform(id string) (Matrix2D, error) {
	e.mu.Lock()
	defer e.mu.Unlock()
	if e.doc == nil {
		return Matrix2D{}, ErrNoActiveDocument
	}
	el, err := e.doc.Element(id)
	if err != nil {
		return Matrix2D{}, err
	}
	m := ComputeTransform(el)
	if o, ok := e.overlays[id]; ok {
		m = o.Apply(m)
	}
	return m, nil
}

// DrawCommands compiles the current paint list for a frontend.
func (e *Engine) DrawCommands() ([]DrawCommand, error) {
	frame, err := e.PaintList(false)
	if err != nil {
		return nil, err
	}
	e.mu.Lock()
	sel := e.selection
	e.mu.Unlock()
	return CompileDrawCommands(frame, sel), nil
}

// SelectionBounds returns the canvas bounds of the selected element.
func (e *Engine) SelectionBounds() (Rect, error) {
	frame, err := e.PaintList(false)
	if err != nil {
		return Rect{}, err
	}
	id, ok := e.Selected()
	if !ok {
		return Rect{}, nil
	}
	for _, node := range frame.Nodes {
		if node.ID == id {
			return Bounds(node, e.measurer), nil
		}
	}
	return Rect{}, fmt.Errorf("%w: %s", document.ErrElementNotFound, id)
}

// --- Boundary operations ---

// ChooseFont asks the picker for a font and applies it to the selected text
// element.
func (e *Engine) ChooseFont(ctx context.Context, picker FontPicker) error {
	id, ok := e.Selected()
	if !ok {
		return fmt.Errorf("choose font: %w: nothing selected", document.ErrElementNotFound)
	}
	font, err := picker.PresentFontPicker(ctx)
	if err != nil {
		return fmt.Errorf("choose font: %w", err)
	}
	if font == "" {
		return nil
	}
	return e.SetFont(id, font)
}

// ImportImage asks the picker for image bytes and adds them as an element.
// A picker returning no bytes means the user cancelled.
func (e *Engine) ImportImage(ctx context.Context, picker ImagePicker) (document.Element, bool, error) {
	data, err := picker.PickImage(ctx)
	if err != nil {
		return document.Element{}, false, fmt.Errorf("pick image: %w", err)
	}
	if len(data) == 0 {
		return document.Element{}, false, nil
	}
	el, err := e.AddImage(data)
	if err != nil {
		return document.Element{}, false, err
	}
	return el, true, nil
}

// Save hands a copy of the document to saver.
func (e *Engine) Save(ctx context.Context, saver Saver) error {
	doc, err := e.Document()
	if err != nil {
		return err
	}
	if err := saver.SaveDocument(ctx, doc); err != nil {
		return fmt.Errorf("save emoji %s: %w", doc.ID, err)
	}
	e.logger.Debug("emoji saved", "emoji", doc.ID, "elements", len(doc.Elements))
	return nil
}
