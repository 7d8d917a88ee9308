package document

// NewSampleDocuments returns the starter emojis shown on an empty library.
// Elements are laid out for a canvas of the given size.
func NewSampleDocuments(canvasSize float64) []*Emoji {
	c := Point{X: canvasSize / 2, Y: canvasSize / 2}

	happy := New("Happy Face")
	happy.AddElement(NewTextElement("^_^", c))
	caption := NewTextElement("HAPPY", c.Add(Point{Y: canvasSize / 4}))
	caption.FontSize = 24
	caption.ZPosition = 1
	happy.AddElement(caption)

	cool := New("Cool Emoji")
	shades := NewTextElement("B-)", c)
	shades.Rotation = -0.2
	cool.AddElement(shades)

	party := New("Party Time")
	party.IsAnimated = true
	for i, text := range []string{"PARTY", "*", "*", "!"} {
		el := NewTextElement(text, c.Add(Point{X: float64(i-1) * canvasSize / 5, Y: float64(i%2) * 40}))
		if i > 0 {
			el.FontSize = 32
		}
		party.AddElement(el)
	}

	return []*Emoji{happy, cool, party}
}
