package api

import (
	"net/http"

	"github.com/gorilla/mux"
)

// NewRouter wires every route. CORS wraps the router so preflight requests
// are answered even though no route matches OPTIONS.
func NewRouter(h *Handler) http.Handler {
	r := mux.NewRouter()
	r.Use(RequestID, Recovery, Logger)

	r.HandleFunc("/health", func(w http.ResponseWriter, r *http.Request) {
		writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
	}).Methods("GET")

	api := r.PathPrefix("/api").Subrouter()
	api.HandleFunc("/fonts", h.Fonts).Methods("GET")

	api.HandleFunc("/emojis", h.List).Methods("GET")
	api.HandleFunc("/emojis", h.Create).Methods("POST")
	api.HandleFunc("/emojis/{emojiId}", h.Get).Methods("GET")
	api.HandleFunc("/emojis/{emojiId}", h.Replace).Methods("PUT")
	api.HandleFunc("/emojis/{emojiId}", h.Update).Methods("PATCH")
	api.HandleFunc("/emojis/{emojiId}", h.Delete).Methods("DELETE")
	api.HandleFunc("/emojis/{emojiId}/save", h.Save).Methods("POST")

	api.HandleFunc("/emojis/{emojiId}/elements", h.AddElement).Methods("POST")
	api.HandleFunc("/emojis/{emojiId}/elements/{elementId}", h.RemoveElement).Methods("DELETE")
	api.HandleFunc("/emojis/{emojiId}/elements/{elementId}/front", h.BringToFront).Methods("POST")
	api.HandleFunc("/emojis/{emojiId}/elements/{elementId}/back", h.SendToBack).Methods("POST")
	api.HandleFunc("/emojis/{emojiId}/elements/{elementId}/font", h.SetFont).Methods("PUT")
	api.HandleFunc("/emojis/{emojiId}/elements/{elementId}/flip", h.SetFlipped).Methods("PUT")

	api.HandleFunc("/emojis/{emojiId}/select", h.Select).Methods("POST")
	api.HandleFunc("/emojis/{emojiId}/select", h.Deselect).Methods("DELETE")
	api.HandleFunc("/emojis/{emojiId}/gestures/{kind}/{phase}", h.Gesture).Methods("POST")

	api.HandleFunc("/emojis/{emojiId}/animation/start", h.StartAnimation).Methods("POST")
	api.HandleFunc("/emojis/{emojiId}/animation/stop", h.StopAnimation).Methods("POST")

	api.HandleFunc("/emojis/{emojiId}/paint", h.Paint).Methods("GET")
	api.HandleFunc("/emojis/{emojiId}/export", h.Export).Methods("GET")
	api.HandleFunc("/emojis/{emojiId}/export", h.Deliver).Methods("POST")
	api.HandleFunc("/emojis/{emojiId}/thumbnail", h.Thumbnail).Methods("GET")

	r.HandleFunc("/ws/emojis/{emojiId}", h.Live)

	return CORS(h.origins)(r)
}
