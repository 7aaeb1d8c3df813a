package signal

import (
	"testing"

	"learnpulse/internal/models"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestMouseAggregator_StraightnessOnStraightLine(t *testing.T) {
	a := NewMouseAggregator()
	a.RecordMove(0, 0, 0)
	a.RecordMove(100, 0, 100)
	a.RecordMove(200, 0, 200)
	a.RecordMove(300, 0, 300)

	m := a.Snapshot()
	assert.InDelta(t, 1.0, m.PathStraightness, 1e-9)
	assert.InDelta(t, 300, m.TotalDistance, 1e-9)
}

func TestMouseAggregator_StraightnessOnLShape(t *testing.T) {
	a := NewMouseAggregator()
	a.RecordMove(0, 0, 0)
	a.RecordMove(100, 0, 100)
	a.RecordMove(100, 100, 200)

	// Straight-line distance sqrt(2)*100 over a 200px path.
	m := a.Snapshot()
	assert.InDelta(t, 0.7071, m.PathStraightness, 0.001)
}

func TestMouseAggregator_StraightnessNeverExceedsOne(t *testing.T) {
	a := NewMouseAggregator()
	a.RecordMove(0, 0, 0)
	for i := 1; i <= 50; i++ {
		x := float64(i * 10)
		if i%2 == 0 {
			x = float64(i * 9)
		}
		a.RecordMove(x, float64(i%3), float64(i*20))
	}
	m := a.Snapshot()
	assert.GreaterOrEqual(t, m.PathStraightness, 0.0)
	assert.LessOrEqual(t, m.PathStraightness, 1.0)
}

func TestMouseAggregator_DirectionChangeAndErratic(t *testing.T) {
	slow := NewMouseAggregator()
	slow.RecordMove(0, 0, 0)
	slow.RecordMove(100, 0, 1000)
	// Full reversal at 100 px/s: a direction change, not erratic.
	slow.RecordMove(0, 0, 2000)
	m := slow.Snapshot()
	assert.Equal(t, 1, m.DirectionChanges)
	assert.Equal(t, 0, m.ErraticMovementCount)

	fast := NewMouseAggregator()
	fast.RecordMove(0, 0, 0)
	fast.RecordMove(100, 0, 100)
	// Same reversal at 1000 px/s: over the erratic threshold.
	fast.RecordMove(0, 0, 200)
	m = fast.Snapshot()
	assert.Equal(t, 1, m.DirectionChanges)
	assert.Equal(t, 1, m.ErraticMovementCount)
}

func TestMouseAggregator_RapidClicks(t *testing.T) {
	tests := []struct {
		name   string
		times  []float64
		events int
	}{
		{"three clicks within 600ms", []float64{0, 200, 400}, 1},
		{"three clicks spread out", []float64{0, 400, 900}, 0},
		{"two clicks only", []float64{0, 100}, 0},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			a := NewMouseAggregator()
			for _, ts := range tt.times {
				a.RecordClick(10, 10, ts, "btn", true)
			}
			assert.Equal(t, tt.events, a.Snapshot().RapidClickEvents)
		})
	}
}

func TestMouseAggregator_MissClick(t *testing.T) {
	a := NewMouseAggregator()
	a.RecordClick(10, 10, 0, "button", true)
	a.RecordClick(500, 500, 1000, "", false)

	m := a.Snapshot()
	assert.Equal(t, 2, m.ClickCount)
	assert.Equal(t, 1, m.MissClickCount)
}

func TestMouseAggregator_HoverAbandoned(t *testing.T) {
	a := NewMouseAggregator()
	a.RecordEnter("answer-a", 0)
	a.RecordLeave("answer-a", 800)

	m := a.Snapshot()
	require.Len(t, m.HoverEvents, 1)
	assert.True(t, m.HoverEvents[0].Abandoned)
	assert.InDelta(t, 800, m.HoverEvents[0].Duration, 1e-9)
	assert.InDelta(t, 1.0, m.HoverAbandonRate, 1e-9)
	assert.InDelta(t, 800, m.AverageHoverDuration, 1e-9)
}

func TestMouseAggregator_ClickBeforeLeaveResolvesHover(t *testing.T) {
	a := NewMouseAggregator()
	a.RecordEnter("answer-a", 0)
	a.RecordClick(10, 10, 300, "answer-a", true)
	a.RecordLeave("answer-a", 500)

	m := a.Snapshot()
	require.Len(t, m.HoverEvents, 1)
	assert.False(t, m.HoverEvents[0].Abandoned)
	assert.InDelta(t, 0.0, m.HoverAbandonRate, 1e-9)
}

func TestMouseAggregator_ClickAfterLeaveFlipsHover(t *testing.T) {
	a := NewMouseAggregator()
	a.RecordEnter("answer-a", 0)
	a.RecordLeave("answer-a", 500)
	require.InDelta(t, 1.0, a.Snapshot().HoverAbandonRate, 1e-9)

	// Click lands after the leave event; the hover is retroactively
	// resolved.
	a.RecordClick(10, 10, 600, "answer-a", true)
	assert.InDelta(t, 0.0, a.Snapshot().HoverAbandonRate, 1e-9)
}

func TestMouseAggregator_ScrollDebounceAndDirections(t *testing.T) {
	a := NewMouseAggregator()
	a.RecordScroll(100, 0)
	// Within the 50ms debounce window: dropped.
	a.RecordScroll(200, 30)
	// Upward scroll counts as a scroll-back.
	a.RecordScroll(50, 100)
	// Fast downward scroll over the rapid threshold.
	a.RecordScroll(3000, 1100)

	m := a.Snapshot()
	assert.Equal(t, 1, m.Scroll.UpCount)
	assert.Equal(t, 1, m.Scroll.DownCount)
	assert.Equal(t, 1, m.Scroll.RapidCount)
	assert.Equal(t, 1, m.ScrollBackCount)
}

func TestMouseAggregator_IdleAccumulation(t *testing.T) {
	a := NewMouseAggregator()
	a.RecordMove(0, 0, 0)
	a.RecordMove(10, 0, 1000)
	// 4s gap, over the 2s idle threshold.
	a.RecordMove(20, 0, 5000)

	assert.InDelta(t, 4000, a.Snapshot().IdleTimeTotal, 1e-9)
}

func TestMouseAggregator_MarkIdleDoesNotDoubleCount(t *testing.T) {
	a := NewMouseAggregator()
	a.RecordMove(0, 0, 0)
	a.MarkIdle(3000)
	require.InDelta(t, 3000, a.Snapshot().IdleTimeTotal, 1e-9)

	// The next move only adds the portion after the mark.
	a.RecordMove(10, 0, 4000)
	assert.InDelta(t, 4000, a.Snapshot().IdleTimeTotal, 1e-9)
}

func TestMouseAggregator_ClickResetsAnchor(t *testing.T) {
	a := NewMouseAggregator()
	a.RecordMove(0, 0, 0)
	a.RecordMove(100, 0, 100)
	a.RecordMove(100, 100, 200)
	require.Less(t, a.Snapshot().PathStraightness, 1.0)

	a.RecordClick(100, 100, 300, "btn", true)
	assert.InDelta(t, 1.0, a.Snapshot().PathStraightness, 1e-9)
}

func TestMouseAggregator_SnapshotIsIndependent(t *testing.T) {
	a := NewMouseAggregator()
	a.RecordEnter("el", 0)
	a.RecordLeave("el", 100)

	snap := a.Snapshot()
	snap.HoverEvents[0].Abandoned = false
	snap.TotalDistance = 999

	m := a.Snapshot()
	assert.True(t, m.HoverEvents[0].Abandoned)
	assert.InDelta(t, 0, m.TotalDistance, 1e-9)
}

func TestMouseAggregator_RecordDispatch(t *testing.T) {
	a := NewMouseAggregator()
	a.Record(models.PointerEvent{Type: models.PointerMove, X: 0, Y: 0, Timestamp: 0})
	a.Record(models.PointerEvent{Type: models.PointerMove, X: 50, Y: 0, Timestamp: 100})
	a.Record(models.PointerEvent{Type: models.PointerEnter, TargetID: "el", Timestamp: 150})
	a.Record(models.PointerEvent{Type: models.PointerClick, X: 50, Y: 0, Timestamp: 200, TargetID: "el", Interactive: true})
	a.Record(models.PointerEvent{Type: models.PointerLeave, TargetID: "el", Timestamp: 250})

	m := a.Snapshot()
	assert.InDelta(t, 50, m.TotalDistance, 1e-9)
	assert.Equal(t, 1, m.ClickCount)
	require.Len(t, m.HoverEvents, 1)
	assert.False(t, m.HoverEvents[0].Abandoned)
}

func TestMouseAggregator_Reset(t *testing.T) {
	a := NewMouseAggregator()
	a.RecordMove(0, 0, 0)
	a.RecordMove(100, 0, 100)
	a.RecordClick(100, 0, 200, "btn", true)

	a.Reset()
	m := a.Snapshot()
	assert.Zero(t, m.TotalDistance)
	assert.Zero(t, m.ClickCount)
	assert.InDelta(t, 1.0, m.PathStraightness, 1e-9)
}

func TestMouseAggregator_BackAndForthDetection(t *testing.T) {
	// Speeds 100, 400, 100, 400 px/s: every consecutive delta is 300,
	// over the 200 px/s threshold.
	a := NewMouseAggregator()
	a.RecordMove(0, 0, 0)
	a.RecordMove(10, 0, 100)
	a.RecordMove(50, 0, 200)
	a.RecordMove(60, 0, 300)
	a.RecordMove(100, 0, 400)
	assert.Equal(t, 1, a.Snapshot().BackAndForthCount)

	// Speeds 100, 250, 100, 250 px/s: deltas of 150 stay under the
	// threshold, so nothing is counted.
	b := NewMouseAggregator()
	b.RecordMove(0, 0, 0)
	b.RecordMove(10, 0, 100)
	b.RecordMove(35, 0, 200)
	b.RecordMove(45, 0, 300)
	b.RecordMove(70, 0, 400)
	assert.Equal(t, 0, b.Snapshot().BackAndForthCount)
}
