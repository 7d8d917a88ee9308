package document

import (
	"cmp"
	"fmt"
	"slices"
)

// BringToFront moves the element one step above the current maximum zPosition.
// No other element is renumbered.
func (e *Emoji) BringToFront(id string) error {
	i := e.Index(id)
	if i < 0 {
		return fmt.Errorf("%w: %s", ErrElementNotFound, id)
	}
	maxZ := 0
	for j, el := range e.Elements {
		if j == 0 || el.ZPosition > maxZ {
			maxZ = el.ZPosition
		}
	}
	e.Elements[i].ZPosition = maxZ + 1
	return nil
}

// SendToBack moves the element one step below the current minimum zPosition.
func (e *Emoji) SendToBack(id string) error {
	i := e.Index(id)
	if i < 0 {
		return fmt.Errorf("%w: %s", ErrElementNotFound, id)
	}
	minZ := 0
	for j, el := range e.Elements {
		if j == 0 || el.ZPosition < minZ {
			minZ = el.ZPosition
		}
	}
	e.Elements[i].ZPosition = minZ - 1
	return nil
}

// PaintOrder returns the indices of the elements sorted back to front.
// Ties keep insertion order. It is computed fresh on every call.
func (e *Emoji) PaintOrder() []int {
	order := make([]int, len(e.Elements))
	for i := range order {
		order[i] = i
	}
	slices.SortStableFunc(order, func(a, b int) int {
		return cmp.Compare(e.Elements[a].ZPosition, e.Elements[b].ZPosition)
	})
	return order
}

// PaintOrderElements is PaintOrder resolved to element copies.
func (e *Emoji) PaintOrderElements() []Element {
	order := e.PaintOrder()
	out := make([]Element, len(order))
	for i, idx := range order {
		out[i] = e.Elements[idx]
	}
	return out
}
