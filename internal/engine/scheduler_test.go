package engine

import (
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/inamate/emojikit/internal/document"
)

type fakeClock struct {
	mu  sync.Mutex
	now time.Time
}

func (c *fakeClock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.now
}

func TestAnimation_AdvanceKeepsTickInterval(t *testing.T) {
	clock := &fakeClock{now: time.Unix(1000, 0)}
	e := NewEngine(WithCanvasSize(512), WithSchedulerOptions(WithManualTicks(), WithClock(clock.Now)))
	e.NewDocument("frames")
	_, err := e.AddText("a")
	require.NoError(t, err)
	start := clock.now

	assert.False(t, e.AdvanceAnimation(start.Add(time.Second)), "not running")
	require.NoError(t, e.SetAnimated(true))

	ms := time.Millisecond
	for _, tc := range []struct {
		at   time.Duration
		want bool
	}{
		{16 * ms, false},
		{33 * ms, false},
		{49 * ms, false},
		{50 * ms, true},
		{66 * ms, false},
		{99 * ms, false},
		{116 * ms, true},
		{133 * ms, false},
		{400 * ms, true},
	} {
		assert.Equal(t, tc.want, e.AdvanceAnimation(start.Add(tc.at)), "frame at %v", tc.at)
	}

	require.NoError(t, e.SetAnimated(false))
	assert.False(t, e.AdvanceAnimation(start.Add(time.Second)), "stopped")
}

func TestAnimation_ManualTicks(t *testing.T) {
	clock := &fakeClock{now: time.Unix(1000, 0)}
	e := NewEngine(WithCanvasSize(512), WithSchedulerOptions(WithManualTicks(), WithClock(clock.Now)))
	e.NewDocument("anim")
	el, err := e.AddText("a")
	require.NoError(t, err)

	started, err := e.StartAnimation()
	require.NoError(t, err)
	assert.False(t, started, "not animated")

	require.NoError(t, e.SetAnimated(true))
	assert.True(t, e.IsAnimating())

	started, err = e.StartAnimation()
	require.NoError(t, err)
	assert.False(t, started, "already running")

	// element 0 bounces: peak at a quarter second
	require.True(t, e.StepAnimation(clock.now.Add(250*time.Millisecond)))
	m, err := e.RenderedTransform(el.ID)
	require.NoError(t, err)
	assert.InDelta(t, 256.0-10.0, m[5], 1e-9)

	// persisted attributes are untouched by the overlay
	got, err := e.Element(el.ID)
	require.NoError(t, err)
	assert.Equal(t, document.Point{X: 256, Y: 256}, got.Position)

	frame, err := e.PaintList(false)
	require.NoError(t, err)
	assert.InDelta(t, 246.0, frame.Nodes[0].Transform[5], 1e-9)
	frame, err = e.PaintList(true)
	require.NoError(t, err)
	assert.InDelta(t, 256.0, frame.Nodes[0].Transform[5], 1e-9)

	assert.True(t, e.StopAnimation())
	assert.False(t, e.StopAnimation())
	assert.False(t, e.StepAnimation(clock.now.Add(time.Second)))

	m, err = e.RenderedTransform(el.ID)
	require.NoError(t, err)
	assert.Equal(t, ComputeTransform(got), m)
}

func TestAnimation_GestureDuringAnimation(t *testing.T) {
	clock := &fakeClock{now: time.Unix(0, 0)}
	e := NewEngine(WithCanvasSize(512), WithSchedulerOptions(WithManualTicks(), WithClock(clock.Now)))
	e.NewDocument("anim")
	el, err := e.AddText("a")
	require.NoError(t, err)
	require.NoError(t, e.SetAnimated(true))
	require.True(t, e.StepAnimation(clock.now.Add(250*time.Millisecond)))

	require.NoError(t, e.BeginGesture(GestureTranslate))
	require.NoError(t, e.UpdateGesture(GestureTranslate, Delta{Translation: document.Point{X: 0, Y: 100}}))
	require.NoError(t, e.EndGesture(GestureTranslate))

	// the overlay composes over the new canonical transform immediately
	m, err := e.RenderedTransform(el.ID)
	require.NoError(t, err)
	assert.InDelta(t, 356.0-10.0, m[5], 1e-9)
}

func TestAnimation_SetAnimatedFalseStops(t *testing.T) {
	e := NewEngine(WithSchedulerOptions(WithManualTicks()))
	e.NewDocument("anim")
	_, err := e.AddText("a")
	require.NoError(t, err)

	require.NoError(t, e.SetAnimated(true))
	require.True(t, e.IsAnimating())
	require.NoError(t, e.SetAnimated(false))
	assert.False(t, e.IsAnimating())

	doc, err := e.Document()
	require.NoError(t, err)
	assert.False(t, doc.IsAnimated)
}

func TestAnimation_RealTicker(t *testing.T) {
	e := NewEngine(WithCanvasSize(512))
	e.NewDocument("anim")
	el, err := e.AddText("a")
	require.NoError(t, err)

	var ticks atomic.Int32
	e.OnRepaint(func() { ticks.Add(1) })

	require.NoError(t, e.SetAnimated(true))
	require.Eventually(t, func() bool { return ticks.Load() >= 3 }, 2*time.Second, 10*time.Millisecond)

	require.True(t, e.StopAnimation())
	canonical, err := e.Element(el.ID)
	require.NoError(t, err)

	// no tick lands after Stop returns
	for range 3 {
		m, err := e.RenderedTransform(el.ID)
		require.NoError(t, err)
		assert.Equal(t, ComputeTransform(canonical), m)
		time.Sleep(TickInterval)
	}
}

func TestAnimation_StopFromListener(t *testing.T) {
	e := NewEngine()
	e.NewDocument("anim")
	_, err := e.AddText("a")
	require.NoError(t, err)

	var stopped atomic.Bool
	e.OnRepaint(func() {
		if e.IsAnimating() && e.StopAnimation() {
			stopped.Store(true)
		}
	})

	require.NoError(t, e.SetAnimated(true))
	require.Eventually(t, stopped.Load, 2*time.Second, 10*time.Millisecond)
	assert.False(t, e.IsAnimating())
}
