package export

import (
	"fmt"
	"log/slog"
	"net/http"
	"strconv"
	"strings"
)

// WriteResult streams res as a download named after name.
func WriteResult(w http.ResponseWriter, res Result, name string, attachment bool) {
	if name == "" {
		name = "emoji"
	}
	w.Header().Set("Content-Type", "image/"+res.Format)
	if attachment {
		w.Header().Set("Content-Disposition", fmt.Sprintf(`attachment; filename="%s.%s"`, SanitizeName(name), res.Format))
	}
	w.Header().Set("Content-Length", strconv.Itoa(len(res.Data)))
	w.Header().Set("X-Export-Id", res.ID)
	w.WriteHeader(http.StatusOK)
	if _, err := w.Write(res.Data); err != nil {
		slog.Error("write export", "error", err, "export", res.ID)
		return
	}
	slog.Info("export complete", "format", res.Format, "size", len(res.Data), "emoji", res.EmojiID)
}

// SanitizeName keeps letters, digits, '-' and '_' and replaces the rest.
func SanitizeName(name string) string {
	return strings.Map(func(r rune) rune {
		if (r >= 'a' && r <= 'z') || (r >= 'A' && r <= 'Z') || (r >= '0' && r <= '9') || r == '-' || r == '_' {
			return r
		}
		return '-'
	}, name)
}
