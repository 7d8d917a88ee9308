//go:build js && wasm

package main

import (
	"encoding/base64"
	"encoding/json"
	"log/slog"
	"syscall/js"
	"time"

	"github.com/inamate/emojikit/internal/document"
	"github.com/inamate/emojikit/internal/engine"
	"github.com/inamate/emojikit/internal/render"
)

var eng *engine.Engine

func main() {
	opts := []engine.Option{engine.WithSchedulerOptions(engine.WithManualTicks())}
	if fonts, err := render.NewFontLibrary("", slog.Default()); err == nil {
		opts = append(opts, engine.WithMeasurer(render.NewRasterizer(fonts, nil, slog.Default())))
	} else {
		slog.Error("load fonts", "error", err)
	}
	eng = engine.NewEngine(opts...)

	emojiEngine := js.Global().Get("Object").New()

	// --- Commands (frontend → engine) ---
	emojiEngine.Set("newDocument", js.FuncOf(newDocument))
	emojiEngine.Set("loadDocument", js.FuncOf(loadDocument))
	emojiEngine.Set("loadSampleDocument", js.FuncOf(loadSampleDocument))
	emojiEngine.Set("addText", js.FuncOf(addText))
	emojiEngine.Set("addImage", js.FuncOf(addImage))
	emojiEngine.Set("removeElement", js.FuncOf(removeElement))
	emojiEngine.Set("setFont", js.FuncOf(setFont))
	emojiEngine.Set("setFlipped", js.FuncOf(setFlipped))
	emojiEngine.Set("bringToFront", js.FuncOf(bringToFront))
	emojiEngine.Set("sendToBack", js.FuncOf(sendToBack))
	emojiEngine.Set("select", js.FuncOf(selectElement))
	emojiEngine.Set("selectAt", js.FuncOf(selectAt))
	emojiEngine.Set("deselect", js.FuncOf(deselect))
	emojiEngine.Set("gesture", js.FuncOf(gesture))
	emojiEngine.Set("setAnimated", js.FuncOf(setAnimated))
	emojiEngine.Set("startAnimation", js.FuncOf(startAnimation))
	emojiEngine.Set("stopAnimation", js.FuncOf(stopAnimation))
	emojiEngine.Set("tick", js.FuncOf(tick))
	emojiEngine.Set("onRepaint", js.FuncOf(onRepaint))

	// --- Queries (frontend ← engine) ---
	emojiEngine.Set("render", js.FuncOf(renderCommands))
	emojiEngine.Set("getSelectionBounds", js.FuncOf(getSelectionBounds))
	emojiEngine.Set("getRenderedTransform", js.FuncOf(getRenderedTransform))
	emojiEngine.Set("getDocument", js.FuncOf(getDocument))
	emojiEngine.Set("getSelection", js.FuncOf(getSelection))
	emojiEngine.Set("isAnimating", js.FuncOf(isAnimating))

	js.Global().Set("emojiEngine", emojiEngine)
	js.Global().Set("emojiWasmReady", js.ValueOf(true))

	select {}
}

func result(err error) any {
	if err != nil {
		return js.ValueOf(map[string]any{"error": err.Error()})
	}
	return js.ValueOf(map[string]any{"ok": true})
}

func elementResult(el document.Element, err error) any {
	if err != nil {
		return result(err)
	}
	return js.ValueOf(map[string]any{"ok": true, "id": el.ID})
}

func missing(what string) any {
	return js.ValueOf(map[string]any{"error": "missing " + what})
}

// --- Command Handlers ---

func newDocument(this js.Value, args []js.Value) any {
	name := ""
	if len(args) > 0 && args[0].Type() == js.TypeString {
		name = args[0].String()
	}
	doc := eng.NewDocument(name)
	return js.ValueOf(map[string]any{"ok": true, "id": doc.ID})
}

func loadDocument(this js.Value, args []js.Value) any {
	if len(args) < 1 {
		return missing("document JSON")
	}
	return result(eng.LoadJSON([]byte(args[0].String())))
}

func loadSampleDocument(this js.Value, args []js.Value) any {
	samples := document.NewSampleDocuments(eng.CanvasSize())
	i := 0
	if len(args) > 0 && args[0].Type() == js.TypeNumber {
		i = args[0].Int()
	}
	if i < 0 || i >= len(samples) {
		return js.ValueOf(map[string]any{"error": "no such sample"})
	}
	return result(eng.LoadDocument(samples[i]))
}

func addText(this js.Value, args []js.Value) any {
	if len(args) < 1 {
		return missing("text")
	}
	return elementResult(eng.AddText(args[0].String()))
}

// addImage takes base64 image bytes.
func addImage(this js.Value, args []js.Value) any {
	if len(args) < 1 {
		return missing("image data")
	}
	data, err := base64.StdEncoding.DecodeString(args[0].String())
	if err != nil {
		return result(err)
	}
	return elementResult(eng.AddImage(data))
}

func removeElement(this js.Value, args []js.Value) any {
	if len(args) < 1 {
		return missing("element id")
	}
	return result(eng.RemoveElement(args[0].String()))
}

func setFont(this js.Value, args []js.Value) any {
	if len(args) < 2 {
		return missing("element id and font")
	}
	return result(eng.SetFont(args[0].String(), args[1].String()))
}

func setFlipped(this js.Value, args []js.Value) any {
	if len(args) < 2 {
		return missing("element id and flag")
	}
	return result(eng.SetFlipped(args[0].String(), args[1].Bool()))
}

func bringToFront(this js.Value, args []js.Value) any {
	if len(args) < 1 {
		return missing("element id")
	}
	return result(eng.BringToFront(args[0].String()))
}

func sendToBack(this js.Value, args []js.Value) any {
	if len(args) < 1 {
		return missing("element id")
	}
	return result(eng.SendToBack(args[0].String()))
}

func selectElement(this js.Value, args []js.Value) any {
	if len(args) < 1 {
		return missing("element id")
	}
	return result(eng.Select(args[0].String()))
}

func selectAt(this js.Value, args []js.Value) any {
	if len(args) < 2 {
		return js.ValueOf("")
	}
	id, err := eng.SelectAt(args[0].Float(), args[1].Float())
	if err != nil {
		return js.ValueOf("")
	}
	return js.ValueOf(id)
}

func deselect(this js.Value, args []js.Value) any {
	eng.Deselect()
	return nil
}

// gesture(kind, phase, deltaJSON). deltaJSON is only read for "update" and
// has the shape {"translation":[x,y],"scale":s,"rotation":r}.
func gesture(this js.Value, args []js.Value) any {
	if len(args) < 2 {
		return missing("gesture kind and phase")
	}
	kind, err := engine.ParseGestureKind(args[0].String())
	if err != nil {
		return result(err)
	}

	switch args[1].String() {
	case "begin":
		return result(eng.BeginGesture(kind))
	case "update":
		if len(args) < 3 {
			return missing("gesture delta")
		}
		var d struct {
			Translation *document.Point `json:"translation"`
			Scale       *float64        `json:"scale"`
			Rotation    *float64        `json:"rotation"`
		}
		if err := json.Unmarshal([]byte(args[2].String()), &d); err != nil {
			return result(err)
		}
		delta, err := engine.NewDelta(kind, d.Translation, d.Scale, d.Rotation)
		if err != nil {
			return result(err)
		}
		return result(eng.UpdateGesture(kind, delta))
	case "end":
		return result(eng.EndGesture(kind))
	case "cancel":
		return result(eng.CancelGesture(kind))
	default:
		return js.ValueOf(map[string]any{"error": "unknown gesture phase"})
	}
}

func setAnimated(this js.Value, args []js.Value) any {
	if len(args) < 1 {
		return missing("flag")
	}
	return result(eng.SetAnimated(args[0].Bool()))
}

func startAnimation(this js.Value, args []js.Value) any {
	started, err := eng.StartAnimation()
	if err != nil {
		return result(err)
	}
	return js.ValueOf(started)
}

func stopAnimation(this js.Value, args []js.Value) any {
	return js.ValueOf(eng.StopAnimation())
}

// tick advances the animation. The page calls it from requestAnimationFrame,
// so most calls land inside the current TickInterval and do nothing; it
// returns true only on frames where the overlays moved.
func tick(this js.Value, args []js.Value) any {
	return js.ValueOf(eng.AdvanceAnimation(time.Now()))
}

// onRepaint registers a callback and returns a function that removes it.
func onRepaint(this js.Value, args []js.Value) any {
	if len(args) < 1 || args[0].Type() != js.TypeFunction {
		return nil
	}
	fn := args[0]
	remove := eng.OnRepaint(func() { fn.Invoke() })
	var release js.Func
	release = js.FuncOf(func(js.Value, []js.Value) any {
		remove()
		release.Release()
		return nil
	})
	return release
}

// --- Query Handlers ---

func renderCommands(this js.Value, args []js.Value) any {
	cmds, err := eng.DrawCommands()
	if err != nil {
		return js.ValueOf("[]")
	}
	out, err := engine.DrawCommandsToJSON(cmds)
	if err != nil {
		return js.ValueOf("[]")
	}
	return js.ValueOf(out)
}

func getSelectionBounds(this js.Value, args []js.Value) any {
	r, err := eng.SelectionBounds()
	if err != nil {
		return js.ValueOf("null")
	}
	return js.ValueOf(engine.RectToJSON(r))
}

func getRenderedTransform(this js.Value, args []js.Value) any {
	if len(args) < 1 {
		return js.ValueOf("null")
	}
	m, err := eng.RenderedTransform(args[0].String())
	if err != nil {
		return js.ValueOf("null")
	}
	data, _ := json.Marshal(m)
	return js.ValueOf(string(data))
}

func getDocument(this js.Value, args []js.Value) any {
	data, err := eng.DocumentJSON()
	if err != nil {
		return js.ValueOf("null")
	}
	return js.ValueOf(string(data))
}

func getSelection(this js.Value, args []js.Value) any {
	id, _ := eng.Selected()
	return js.ValueOf(id)
}

func isAnimating(this js.Value, args []js.Value) any {
	return js.ValueOf(eng.IsAnimating())
}
