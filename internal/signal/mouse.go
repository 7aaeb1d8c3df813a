package signal

import (
	"learnpulse/internal/models"
)

// Thresholds for the mouse pattern detectors, in px, px/s and ms.
const (
	speedWindowSize     = 100
	erraticSpeedPxS     = 500.0
	backForthDeltaPxS   = 200.0
	backForthSpeedCount = 4
	rapidClickWindowMS  = 600.0
	rapidClickSpan      = 3
	idleGapMS           = 2000.0
	scrollDebounceMS    = 50.0
	rapidScrollPxS      = 2000.0
)

// MouseAggregator owns the rolling statistical state for the pointer
// modality. All mutation happens through the Record methods; Snapshot
// returns an independent copy of the current metrics.
type MouseAggregator struct {
	m models.MouseMetrics

	speeds []float64

	hasLast             bool
	lastX, lastY, lastT float64
	idleMark            float64

	// Path anchor for straightness and direction-change detection.
	// Reset to the click position on every click.
	anchorX, anchorY float64
	pathSinceAnchor  float64

	openHovers   map[string]float64
	clickedOpen  map[string]bool
	clickTimes   []float64
	abandonCount int

	hasScroll               bool
	lastScrollT, lastScroll float64
}

// NewMouseAggregator returns a zero-valued aggregator ready for a session.
func NewMouseAggregator() *MouseAggregator {
	return &MouseAggregator{
		m:           models.MouseMetrics{PathStraightness: 1},
		openHovers:  make(map[string]float64),
		clickedOpen: make(map[string]bool),
	}
}

// Record dispatches one pointer event to the matching handler.
func (a *MouseAggregator) Record(ev models.PointerEvent) {
	switch ev.Type {
	case models.PointerMove:
		a.RecordMove(ev.X, ev.Y, ev.Timestamp)
	case models.PointerEnter:
		a.RecordEnter(ev.TargetID, ev.Timestamp)
	case models.PointerLeave:
		a.RecordLeave(ev.TargetID, ev.Timestamp)
	case models.PointerClick:
		a.RecordClick(ev.X, ev.Y, ev.Timestamp, ev.TargetID, ev.Interactive)
	}
}

// RecordMove folds one pointer-move sample into the rolling state.
func (a *MouseAggregator) RecordMove(x, y, t float64) {
	if !a.hasLast {
		a.hasLast = true
		a.lastX, a.lastY, a.lastT = x, y, t
		a.anchorX, a.anchorY = x, y
		return
	}

	a.accumulateIdle(t)

	segment := dist(a.lastX, a.lastY, x, y)
	a.m.TotalDistance += segment

	elapsed := (t - a.lastT) / 1000
	if elapsed > 0 && segment > 0 {
		speed := segment / elapsed
		a.speeds = appendBounded(a.speeds, speed, speedWindowSize)
		a.m.AverageSpeed = mean(a.speeds)
		a.m.SpeedVariability = variability(a.speeds)
		if speed > a.m.MaxSpeed {
			a.m.MaxSpeed = speed
		}

		// A reversal against the anchor-to-previous direction counts as a
		// direction change; fast reversals are additionally erratic.
		ax := a.lastX - a.anchorX
		ay := a.lastY - a.anchorY
		dx := x - a.lastX
		dy := y - a.lastY
		if ax*dx+ay*dy < 0 {
			a.m.DirectionChanges++
			if speed > erraticSpeedPxS {
				a.m.ErraticMovementCount++
			}
		}

		a.detectBackAndForth()
	}

	a.pathSinceAnchor += segment
	if a.pathSinceAnchor > 0 {
		straight := dist(a.anchorX, a.anchorY, x, y)
		s := straight / a.pathSinceAnchor
		if s > 1 {
			s = 1
		}
		a.m.PathStraightness = s
	}

	a.lastX, a.lastY, a.lastT = x, y, t
}

// detectBackAndForth counts one event when every consecutive pair among
// the last four speeds differs by more than the threshold.
func (a *MouseAggregator) detectBackAndForth() {
	if len(a.speeds) < backForthSpeedCount {
		return
	}
	recent := a.speeds[len(a.speeds)-backForthSpeedCount:]
	for i := 1; i < len(recent); i++ {
		delta := recent[i] - recent[i-1]
		if delta < 0 {
			delta = -delta
		}
		if delta <= backForthDeltaPxS {
			return
		}
	}
	a.m.BackAndForthCount++
}

// RecordEnter opens a hover on the element.
func (a *MouseAggregator) RecordEnter(elementID string, t float64) {
	if elementID == "" {
		return
	}
	a.openHovers[elementID] = t
	delete(a.clickedOpen, elementID)
}

// RecordLeave closes an open hover. Leaving without an intervening click
// on the same element flags the hover as abandoned.
func (a *MouseAggregator) RecordLeave(elementID string, t float64) {
	start, ok := a.openHovers[elementID]
	if !ok {
		return
	}
	delete(a.openHovers, elementID)

	abandoned := !a.clickedOpen[elementID]
	delete(a.clickedOpen, elementID)

	a.m.HoverEvents = append(a.m.HoverEvents, models.HoverEvent{
		ElementID: elementID,
		StartTime: start,
		Duration:  t - start,
		Abandoned: abandoned,
	})
	if abandoned {
		a.abandonCount++
	}
	a.recomputeHoverStats()
}

func (a *MouseAggregator) recomputeHoverStats() {
	n := len(a.m.HoverEvents)
	if n == 0 {
		a.m.AverageHoverDuration = 0
		a.m.HoverAbandonRate = 0
		return
	}
	var total float64
	for _, h := range a.m.HoverEvents {
		total += h.Duration
	}
	a.m.AverageHoverDuration = total / float64(n)
	a.m.HoverAbandonRate = float64(a.abandonCount) / float64(n)
}

// RecordClick classifies the click, retroactively resolves hovers and
// resets the path anchor.
func (a *MouseAggregator) RecordClick(x, y, t float64, targetID string, interactive bool) {
	a.m.ClickCount++
	if !interactive {
		a.m.MissClickCount++
	}

	if targetID != "" {
		if _, open := a.openHovers[targetID]; open {
			// Click before leave: the eventual hover event is not abandoned.
			a.clickedOpen[targetID] = true
		} else {
			// Click after leave: flip the most recent matching hover.
			for i := len(a.m.HoverEvents) - 1; i >= 0; i-- {
				h := &a.m.HoverEvents[i]
				if h.ElementID == targetID && h.Abandoned {
					h.Abandoned = false
					a.abandonCount--
					a.recomputeHoverStats()
					break
				}
			}
		}
	}

	a.clickTimes = appendBounded(a.clickTimes, t, rapidClickSpan)
	if len(a.clickTimes) == rapidClickSpan && t-a.clickTimes[0] <= rapidClickWindowMS {
		a.m.RapidClickEvents++
	}

	a.anchorX, a.anchorY = x, y
	a.pathSinceAnchor = 0
	a.m.PathStraightness = 1
}

// RecordScroll folds one scroll sample, debounced at 50 ms.
func (a *MouseAggregator) RecordScroll(position, t float64) {
	if !a.hasScroll {
		a.hasScroll = true
		a.lastScroll, a.lastScrollT = position, t
		return
	}
	if t-a.lastScrollT < scrollDebounceMS {
		return
	}

	delta := position - a.lastScroll
	elapsed := (t - a.lastScrollT) / 1000

	if delta < 0 {
		a.m.Scroll.UpCount++
		a.m.ScrollBackCount++
		delta = -delta
	} else if delta > 0 {
		a.m.Scroll.DownCount++
	}
	if elapsed > 0 && delta/elapsed > rapidScrollPxS {
		a.m.Scroll.RapidCount++
	}

	a.lastScroll, a.lastScrollT = position, t
}

// MarkIdle accounts idle time up to now without consuming a move event.
// The reporter calls this before snapshotting so trailing inactivity is
// not lost between moves.
func (a *MouseAggregator) MarkIdle(now float64) {
	if !a.hasLast {
		return
	}
	a.accumulateIdle(now)
	a.idleMark = now
}

func (a *MouseAggregator) accumulateIdle(now float64) {
	gap := now - a.lastT
	if gap <= idleGapMS {
		return
	}
	from := a.lastT
	if a.idleMark > from {
		from = a.idleMark
	}
	if now > from {
		a.m.IdleTimeTotal += now - from
	}
	a.idleMark = 0
}

// Snapshot returns an independent copy of the current metrics.
func (a *MouseAggregator) Snapshot() models.MouseMetrics {
	out := a.m
	out.HoverEvents = append([]models.HoverEvent(nil), a.m.HoverEvents...)
	return out
}

// Reset replaces all state with a zero-valued record for a new session.
func (a *MouseAggregator) Reset() {
	*a = *NewMouseAggregator()
}
