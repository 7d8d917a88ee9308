package document

import (
	"encoding/json"
	"fmt"
)

// Marshal encodes the document in its persisted shape.
func Marshal(e *Emoji) ([]byte, error) {
	data, err := json.Marshal(e)
	if err != nil {
		return nil, fmt.Errorf("marshal emoji: %w", err)
	}
	return data, nil
}

// Unmarshal decodes and validates a document.
func Unmarshal(data []byte) (*Emoji, error) {
	var e Emoji
	if err := json.Unmarshal(data, &e); err != nil {
		return nil, fmt.Errorf("unmarshal emoji: %w", err)
	}
	if e.Elements == nil {
		e.Elements = []Element{}
	}
	if err := e.Validate(); err != nil {
		return nil, err
	}
	return &e, nil
}
