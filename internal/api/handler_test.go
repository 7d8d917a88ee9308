package api

import (
	"bytes"
	"context"
	"encoding/json"
	"image"
	"image/color"
	"image/png"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/coder/websocket"
	"github.com/coder/websocket/wsjson"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/inamate/emojikit/internal/document"
	"github.com/inamate/emojikit/internal/engine"
	"github.com/inamate/emojikit/internal/export"
	"github.com/inamate/emojikit/internal/live"
	"github.com/inamate/emojikit/internal/store"
)

type flatRenderer struct{}

func (flatRenderer) RenderFrame(_ context.Context, frame engine.Frame) (image.Image, error) {
	return image.NewRGBA(image.Rect(0, 0, int(frame.Width), int(frame.Height))), nil
}

type testServer struct {
	srv       *httptest.Server
	store     *store.Memory
	registry  *Registry
	delivered chan export.Result
}

func newTestServer(t *testing.T) *testServer {
	t.Helper()
	mem := store.NewMemory()
	reg := NewRegistry(mem, engine.WithSchedulerOptions(engine.WithManualTicks()))
	hub := live.NewHub([]string{"Helvetica", "Courier"}, live.WithSaver(reg.Persist))
	go hub.Run()
	t.Cleanup(hub.Stop)

	delivered := make(chan export.Result, 1)
	target := export.TargetFunc(func(_ context.Context, res export.Result) error {
		delivered <- res
		return nil
	})
	h := NewHandler(HandlerConfig{
		Registry:      reg,
		Exporter:      export.NewExporter(flatRenderer{}, nil),
		Target:        target,
		Hub:           hub,
		Fonts:         []string{"Helvetica", "Courier"},
		ThumbnailSize: 32,
		Origins:       []string{"http://localhost:5173"},
	})
	srv := httptest.NewServer(NewRouter(h))
	t.Cleanup(srv.Close)
	return &testServer{srv: srv, store: mem, registry: reg, delivered: delivered}
}

func (s *testServer) do(t *testing.T, method, path, contentType string, body io.Reader) *http.Response {
	t.Helper()
	req, err := http.NewRequest(method, s.srv.URL+path, body)
	require.NoError(t, err)
	if contentType != "" {
		req.Header.Set("Content-Type", contentType)
	}
	resp, err := http.DefaultClient.Do(req)
	require.NoError(t, err)
	t.Cleanup(func() { resp.Body.Close() })
	return resp
}

func (s *testServer) doJSON(t *testing.T, method, path string, body any) *http.Response {
	t.Helper()
	var r io.Reader
	if body != nil {
		data, err := json.Marshal(body)
		require.NoError(t, err)
		r = bytes.NewReader(data)
	}
	return s.do(t, method, path, "application/json", r)
}

func decode[T any](t *testing.T, resp *http.Response) T {
	t.Helper()
	var v T
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&v))
	return v
}

func (s *testServer) create(t *testing.T, name string) *document.Emoji {
	t.Helper()
	resp := s.doJSON(t, "POST", "/api/emojis", createRequest{Name: name})
	require.Equal(t, http.StatusCreated, resp.StatusCode)
	return decode[*document.Emoji](t, resp)
}

func (s *testServer) addText(t *testing.T, emojiID, text string) document.Element {
	t.Helper()
	resp := s.doJSON(t, "POST", "/api/emojis/"+emojiID+"/elements", textRequest{Text: text})
	require.Equal(t, http.StatusCreated, resp.StatusCode)
	return decode[document.Element](t, resp)
}

func pngBytes(t *testing.T) []byte {
	t.Helper()
	img := image.NewNRGBA(image.Rect(0, 0, 8, 8))
	img.Set(1, 1, color.NRGBA{R: 255, A: 255})
	var buf bytes.Buffer
	require.NoError(t, png.Encode(&buf, img))
	return buf.Bytes()
}

func TestHealth(t *testing.T) {
	s := newTestServer(t)
	resp := s.do(t, "GET", "/health", "", nil)
	assert.Equal(t, http.StatusOK, resp.StatusCode)
	assert.NotEmpty(t, resp.Header.Get("X-Request-Id"))
}

func TestCreateListGetDelete(t *testing.T) {
	s := newTestServer(t)
	doc := s.create(t, "party")
	assert.Equal(t, "party", doc.Name)
	assert.Empty(t, doc.Elements)

	list := decode[[]emojiSummary](t, s.do(t, "GET", "/api/emojis", "", nil))
	require.Len(t, list, 1)
	assert.Equal(t, doc.ID, list[0].ID)

	resp := s.do(t, "GET", "/api/emojis/"+doc.ID, "", nil)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Equal(t, doc.ID, decode[*document.Emoji](t, resp).ID)

	resp = s.do(t, "DELETE", "/api/emojis/"+doc.ID, "", nil)
	assert.Equal(t, http.StatusNoContent, resp.StatusCode)

	resp = s.do(t, "GET", "/api/emojis/"+doc.ID, "", nil)
	assert.Equal(t, http.StatusNotFound, resp.StatusCode)
}

func TestGet_Unknown(t *testing.T) {
	s := newTestServer(t)
	resp := s.do(t, "GET", "/api/emojis/nope", "", nil)
	assert.Equal(t, http.StatusNotFound, resp.StatusCode)
}

func TestElements_TextAndImage(t *testing.T) {
	s := newTestServer(t)
	doc := s.create(t, "stickers")

	text := s.addText(t, doc.ID, "lol")
	assert.Equal(t, document.ContentText, text.Kind())
	assert.Equal(t, "lol", text.Text)

	resp := s.do(t, "POST", "/api/emojis/"+doc.ID+"/elements", "image/png", bytes.NewReader(pngBytes(t)))
	require.Equal(t, http.StatusCreated, resp.StatusCode)
	img := decode[document.Element](t, resp)
	assert.Equal(t, document.ContentImage, img.Kind())

	// Mutations are saved as they happen.
	stored, err := s.store.Load(context.Background(), doc.ID)
	require.NoError(t, err)
	require.Len(t, stored.Elements, 2)

	resp = s.do(t, "POST", "/api/emojis/"+doc.ID+"/elements/"+text.ID+"/front", "", nil)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	order := decode[*document.Emoji](t, resp).PaintOrderElements()
	assert.Equal(t, text.ID, order[len(order)-1].ID)

	resp = s.do(t, "DELETE", "/api/emojis/"+doc.ID+"/elements/"+text.ID, "", nil)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Len(t, decode[*document.Emoji](t, resp).Elements, 1)

	resp = s.do(t, "DELETE", "/api/emojis/"+doc.ID+"/elements/"+text.ID, "", nil)
	assert.Equal(t, http.StatusNotFound, resp.StatusCode)
}

func TestElements_RejectsUnsupportedUpload(t *testing.T) {
	s := newTestServer(t)
	doc := s.create(t, "bad")
	resp := s.do(t, "POST", "/api/emojis/"+doc.ID+"/elements", "text/plain", strings.NewReader("not an image"))
	assert.Equal(t, http.StatusBadRequest, resp.StatusCode)
}

func TestSetFontAndFlip(t *testing.T) {
	s := newTestServer(t)
	doc := s.create(t, "fonts")
	text := s.addText(t, doc.ID, "a")

	resp := s.doJSON(t, "PUT", "/api/emojis/"+doc.ID+"/elements/"+text.ID+"/font", fontRequest{Font: "Courier"})
	require.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Equal(t, "Courier", decode[*document.Emoji](t, resp).Elements[0].Font)

	resp = s.doJSON(t, "PUT", "/api/emojis/"+doc.ID+"/elements/"+text.ID+"/flip", flipRequest{Flipped: true})
	require.Equal(t, http.StatusOK, resp.StatusCode)
	assert.True(t, decode[*document.Emoji](t, resp).Elements[0].IsFlipped)

	resp = s.do(t, "POST", "/api/emojis/"+doc.ID+"/elements", "image/png", bytes.NewReader(pngBytes(t)))
	img := decode[document.Element](t, resp)
	resp = s.doJSON(t, "PUT", "/api/emojis/"+doc.ID+"/elements/"+img.ID+"/font", fontRequest{Font: "Courier"})
	assert.Equal(t, http.StatusBadRequest, resp.StatusCode)
}

func TestUpdate_RenameAndAnimate(t *testing.T) {
	s := newTestServer(t)
	doc := s.create(t, "old")
	s.addText(t, doc.ID, "a")

	name, animated := "new", true
	resp := s.doJSON(t, "PATCH", "/api/emojis/"+doc.ID, updateRequest{Name: &name, IsAnimated: &animated})
	require.Equal(t, http.StatusOK, resp.StatusCode)
	got := decode[*document.Emoji](t, resp)
	assert.Equal(t, "new", got.Name)
	assert.True(t, got.IsAnimated)

	eng, err := s.registry.Get(context.Background(), doc.ID)
	require.NoError(t, err)
	assert.True(t, eng.IsAnimating())

	resp = s.do(t, "POST", "/api/emojis/"+doc.ID+"/animation/stop", "", nil)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Equal(t, map[string]bool{"stopped": true, "animating": false}, decode[map[string]bool](t, resp))
}

func TestLive_EditsAreSaved(t *testing.T) {
	s := newTestServer(t)
	doc := s.create(t, "live")
	s.addText(t, doc.ID, "a")

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	conn, _, err := websocket.Dial(ctx, "ws"+strings.TrimPrefix(s.srv.URL, "http")+"/ws/emojis/"+doc.ID, nil)
	require.NoError(t, err)
	defer conn.Close(websocket.StatusNormalClosure, "")

	payload, err := json.Marshal(live.AnimatePayload{Animated: true})
	require.NoError(t, err)
	require.NoError(t, wsjson.Write(ctx, conn, live.Message{Type: live.TypeAnimate, Payload: payload}))

	require.Eventually(t, func() bool {
		stored, err := s.store.Load(context.Background(), doc.ID)
		return err == nil && stored.IsAnimated
	}, 5*time.Second, 10*time.Millisecond)
}

func TestReplace(t *testing.T) {
	s := newTestServer(t)
	doc := s.create(t, "replace")

	next := doc.Clone()
	next.Name = "replaced"
	_, err := next.AddElement(document.NewTextElement("x", document.Point{X: 10, Y: 10}))
	require.NoError(t, err)

	resp := s.doJSON(t, "PUT", "/api/emojis/"+doc.ID, next)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Equal(t, "replaced", decode[*document.Emoji](t, resp).Name)

	other := document.New("other")
	resp = s.doJSON(t, "PUT", "/api/emojis/"+doc.ID, other)
	assert.Equal(t, http.StatusBadRequest, resp.StatusCode)

	resp = s.do(t, "PUT", "/api/emojis/"+doc.ID, "application/json", strings.NewReader(`{"id":`))
	assert.Equal(t, http.StatusBadRequest, resp.StatusCode)
}

func TestSelectAndGesture(t *testing.T) {
	s := newTestServer(t)
	doc := s.create(t, "gestures")
	text := s.addText(t, doc.ID, "a")

	resp := s.do(t, "DELETE", "/api/emojis/"+doc.ID+"/select", "", nil)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Empty(t, decode[paintResponse](t, resp).Selected)

	x, y := 256.0, 256.0
	resp = s.doJSON(t, "POST", "/api/emojis/"+doc.ID+"/select", selectRequest{X: &x, Y: &y})
	require.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Equal(t, text.ID, decode[paintResponse](t, resp).Selected)

	base := "/api/emojis/" + doc.ID + "/gestures/pan/"
	resp = s.do(t, "POST", base+"begin", "", nil)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Equal(t, map[string]string{"state": "active"}, decode[map[string]string](t, resp))

	resp = s.doJSON(t, "POST", base+"update", gestureRequest{Translation: &document.Point{X: 10, Y: -5}})
	require.Equal(t, http.StatusOK, resp.StatusCode)

	resp = s.do(t, "POST", base+"end", "", nil)
	require.Equal(t, http.StatusOK, resp.StatusCode)

	stored, err := s.store.Load(context.Background(), doc.ID)
	require.NoError(t, err)
	assert.Equal(t, document.Point{X: 266, Y: 251}, stored.Elements[0].Position)

	pinch := "/api/emojis/" + doc.ID + "/gestures/pinch/"
	require.Equal(t, http.StatusOK, s.do(t, "POST", pinch+"begin", "", nil).StatusCode)
	resp = s.doJSON(t, "POST", pinch+"update", gestureRequest{})
	assert.Equal(t, http.StatusBadRequest, resp.StatusCode)
	zero := 0.0
	resp = s.doJSON(t, "POST", pinch+"update", gestureRequest{Scale: &zero})
	assert.Equal(t, http.StatusBadRequest, resp.StatusCode)
	eng, err := s.registry.Get(context.Background(), doc.ID)
	require.NoError(t, err)
	got, err := eng.Element(text.ID)
	require.NoError(t, err)
	assert.Equal(t, 1.0, got.Scale)
	require.Equal(t, http.StatusOK, s.do(t, "POST", pinch+"cancel", "", nil).StatusCode)

	resp = s.do(t, "POST", "/api/emojis/"+doc.ID+"/gestures/twirl/begin", "", nil)
	assert.Equal(t, http.StatusBadRequest, resp.StatusCode)
	resp = s.do(t, "POST", base+"wiggle", "", nil)
	assert.Equal(t, http.StatusBadRequest, resp.StatusCode)
}

func TestPaintExportThumbnail(t *testing.T) {
	s := newTestServer(t)
	doc := s.create(t, "Party Time!")
	text := s.addText(t, doc.ID, "a")

	resp := s.do(t, "GET", "/api/emojis/"+doc.ID+"/paint", "", nil)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	paint := decode[paintResponse](t, resp)
	assert.Equal(t, 512.0, paint.CanvasSize)
	require.Len(t, paint.Commands, 1)
	assert.Equal(t, text.ID, paint.Commands[0].ElementID)

	resp = s.do(t, "GET", "/api/emojis/"+doc.ID+"/export?download=true", "", nil)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Equal(t, "image/png", resp.Header.Get("Content-Type"))
	assert.Contains(t, resp.Header.Get("Content-Disposition"), "Party-Time-")
	img, err := png.Decode(resp.Body)
	require.NoError(t, err)
	assert.Equal(t, 512, img.Bounds().Dx())

	resp = s.do(t, "GET", "/api/emojis/"+doc.ID+"/thumbnail", "", nil)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	img, err = png.Decode(resp.Body)
	require.NoError(t, err)
	assert.Equal(t, 32, img.Bounds().Dx())
}

func TestDeliverToTarget(t *testing.T) {
	s := newTestServer(t)
	doc := s.create(t, "delivered")

	resp := s.do(t, "POST", "/api/emojis/"+doc.ID+"/export?animated=true", "", nil)
	require.Equal(t, http.StatusCreated, resp.StatusCode)
	body := decode[map[string]any](t, resp)

	res := <-s.delivered
	assert.Equal(t, doc.ID, res.EmojiID)
	assert.Equal(t, res.ID, body["id"])
	assert.Equal(t, export.FormatPNG, body["format"])
}

func TestFonts(t *testing.T) {
	s := newTestServer(t)
	resp := s.do(t, "GET", "/api/fonts", "", nil)
	assert.Equal(t, []string{"Helvetica", "Courier"}, decode[[]string](t, resp))
}

func TestCORSPreflight(t *testing.T) {
	s := newTestServer(t)
	req, err := http.NewRequest("OPTIONS", s.srv.URL+"/api/emojis", nil)
	require.NoError(t, err)
	req.Header.Set("Origin", "http://localhost:5173")
	resp, err := http.DefaultClient.Do(req)
	require.NoError(t, err)
	defer resp.Body.Close()
	assert.Equal(t, http.StatusNoContent, resp.StatusCode)
	assert.Equal(t, "http://localhost:5173", resp.Header.Get("Access-Control-Allow-Origin"))
}

func TestRegistry_CloseSaves(t *testing.T) {
	mem := store.NewMemory()
	reg := NewRegistry(mem, engine.WithSchedulerOptions(engine.WithManualTicks()))
	eng, doc, err := reg.Create(context.Background(), "closing")
	require.NoError(t, err)
	_, err = eng.AddText("unsaved")
	require.NoError(t, err)

	require.NoError(t, reg.Close(context.Background()))
	stored, err := mem.Load(context.Background(), doc.ID)
	require.NoError(t, err)
	assert.Len(t, stored.Elements, 1)
}
