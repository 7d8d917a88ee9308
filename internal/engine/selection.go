package engine

import (
	"fmt"

	"github.com/inamate/emojikit/internal/document"
)

// Selection holds at most one selected element id.
type Selection struct {
	id string
}

// Select replaces the current selection. Unknown ids leave it unchanged.
func (s *Selection) Select(doc *document.Emoji, id string) error {
	if doc.Index(id) < 0 {
		return fmt.Errorf("%w: %s", document.ErrElementNotFound, id)
	}
	s.id = id
	return nil
}

func (s *Selection) Deselect() {
	s.id = ""
}

// Selected returns the selected id, if any.
func (s Selection) Selected() (string, bool) {
	return s.id, s.id != ""
}

func (s Selection) Is(id string) bool {
	return s.id != "" && s.id == id
}
