package engine

import (
	"math"
	"time"

	"github.com/inamate/emojikit/internal/document"
)

// Waveform is one of the procedural motions applied while animating.
type Waveform int

const (
	WaveformBounce Waveform = iota
	WaveformRotate
	WaveformPulse
	WaveformShake
	waveformCount
)

const (
	bounceHeight = 10.0
	bouncePeriod = 500 * time.Millisecond

	rotateStep   = math.Pi / 8 // per second

	pulseGrowth = 0.1
	pulsePeriod = 500 * time.Millisecond

	shakePeriod = 600 * time.Millisecond
)

// shakeKeys are the horizontal offsets of one shake, evenly spaced in time.
var shakeKeys = [...]float64{-5, 5, -5, 5, -2.5, 2.5, -1, 1, 0}

// WaveformForIndex picks the waveform for the element at insertion index i.
// The choice follows the index, not the element id, so reordering elements
// changes their motion.
func WaveformForIndex(i int) Waveform {
	if i < 0 {
		i = -i
	}
	return Waveform(i % int(waveformCount))
}

func (w Waveform) String() string {
	switch w {
	case WaveformBounce:
		return "bounce"
	case WaveformRotate:
		return "rotate"
	case WaveformPulse:
		return "pulse"
	case WaveformShake:
		return "shake"
	default:
		return "unknown"
	}
}

// Overlay is a transient transform layered over an element's canonical
// transform. It never touches the persisted attributes.
type Overlay struct {
	Offset   document.Point // canvas-space translation
	Rotation float64        // extra rotation about the element centre
	Scale    float64        // extra uniform scale about the element centre
}

// NoOverlay leaves the canonical transform untouched.
func NoOverlay() Overlay {
	return Overlay{Scale: 1}
}

// Apply composes the overlay with a canonical transform:
// Translate(offset) * canonical * Rotate(rotation) * Scale(scale).
func (o Overlay) Apply(canonical Matrix2D) Matrix2D {
	m := canonical
	if o.Rotation != 0 {
		m = m.Multiply(Rotate(o.Rotation))
	}
	if o.Scale != 1 {
		m = m.Multiply(Scale(o.Scale, o.Scale))
	}
	if o.Offset.X != 0 || o.Offset.Y != 0 {
		m = Translate(o.Offset.X, o.Offset.Y).Multiply(m)
	}
	return m
}

// Evaluate returns the overlay of the waveform after elapsed time since the
// animation started. Every waveform repeats forever.
func (w Waveform) Evaluate(elapsed time.Duration) Overlay {
	o := NoOverlay()
	switch w {
	case WaveformBounce:
		o.Offset.Y = -bounceHeight * triangle(elapsed, bouncePeriod)
	case WaveformRotate:
		o.Rotation = spin(elapsed)
	case WaveformPulse:
		o.Scale = 1 + pulseGrowth*triangle(elapsed, pulsePeriod)
	case WaveformShake:
		o.Offset.X = sampleKeys(shakeKeys[:], phase(elapsed, shakePeriod))
	}
	return o
}

// phase returns the position within the current period, in [0, 1).
func phase(elapsed, period time.Duration) float64 {
	if elapsed <= 0 {
		return 0
	}
	return float64(elapsed%period) / float64(period)
}

// spin accumulates rotateStep per second without reversing, wrapped to
// [0, 2*pi).
func spin(elapsed time.Duration) float64 {
	if elapsed <= 0 {
		return 0
	}
	return math.Mod(rotateStep*elapsed.Seconds(), 2*math.Pi)
}

// triangle rises linearly from 0 to 1 over the first half of the period and
// falls back over the second half (an autoreversing linear ramp).
func triangle(elapsed, period time.Duration) float64 {
	p := phase(elapsed, period)
	if p < 0.5 {
		return 2 * p
	}
	return 2 * (1 - p)
}

// sampleKeys interpolates linearly between evenly spaced keys at p in [0, 1).
func sampleKeys(keys []float64, p float64) float64 {
	pos := p * float64(len(keys)-1)
	i := int(pos)
	if i >= len(keys)-1 {
		return keys[len(keys)-1]
	}
	t := pos - float64(i)
	return keys[i] + (keys[i+1]-keys[i])*t
}
