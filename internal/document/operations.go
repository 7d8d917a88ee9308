package document

import (
	"fmt"

	"github.com/google/uuid"
)

// Index returns the insertion-order index of the element, or -1.
func (e *Emoji) Index(id string) int {
	for i := range e.Elements {
		if e.Elements[i].ID == id {
			return i
		}
	}
	return -1
}

// Element returns a copy of the element with the given id.
func (e *Emoji) Element(id string) (Element, error) {
	i := e.Index(id)
	if i < 0 {
		return Element{}, fmt.Errorf("%w: %s", ErrElementNotFound, id)
	}
	return e.Elements[i], nil
}

// AddElement appends el to the document. An empty id is replaced by a fresh one.
func (e *Emoji) AddElement(el Element) (Element, error) {
	if el.ID == "" {
		el.ID = uuid.NewString()
	}
	if err := el.Validate(); err != nil {
		return Element{}, err
	}
	if e.Index(el.ID) >= 0 {
		return Element{}, fmt.Errorf("%w: %s", ErrDuplicateElement, el.ID)
	}
	e.Elements = append(e.Elements, el)
	return el, nil
}

// RemoveElement deletes the element, keeping the order of the others.
func (e *Emoji) RemoveElement(id string) error {
	i := e.Index(id)
	if i < 0 {
		return fmt.Errorf("%w: %s", ErrElementNotFound, id)
	}
	e.Elements = append(e.Elements[:i], e.Elements[i+1:]...)
	return nil
}

// UpdateElement applies fn to the stored element in place. The id cannot be changed.
func (e *Emoji) UpdateElement(id string, fn func(el *Element)) error {
	i := e.Index(id)
	if i < 0 {
		return fmt.Errorf("%w: %s", ErrElementNotFound, id)
	}
	fn(&e.Elements[i])
	e.Elements[i].ID = id
	return nil
}

// SetFont changes the font of a text element.
func (e *Emoji) SetFont(id, font string) error {
	el, err := e.Element(id)
	if err != nil {
		return err
	}
	if el.Kind() != ContentText {
		return fmt.Errorf("%w: %s", ErrNotTextElement, id)
	}
	return e.UpdateElement(id, func(el *Element) {
		el.Font = font
	})
}

func (e *Emoji) Rename(name string) {
	e.Name = name
}

func (e *Emoji) SetAnimated(animated bool) {
	e.IsAnimated = animated
}

// Validate checks every element and the uniqueness of element ids.
func (e *Emoji) Validate() error {
	if _, err := uuid.Parse(e.ID); err != nil {
		return fmt.Errorf("invalid emoji id %q: %w", e.ID, err)
	}
	seen := make(map[string]struct{}, len(e.Elements))
	for _, el := range e.Elements {
		if _, dup := seen[el.ID]; dup {
			return fmt.Errorf("%w: %s", ErrDuplicateElement, el.ID)
		}
		seen[el.ID] = struct{}{}
		if err := el.Validate(); err != nil {
			return err
		}
	}
	return nil
}
