package signal

import (
	"sort"

	"learnpulse/internal/models"
)

// Thresholds for the fixation/saccade state machine, in px.
const (
	fixationRadiusPx  = 30.0
	regressionDxPx    = 50.0
	lineSkipDyPx      = 40.0
	gazePathCap       = 1000
	focusNudgePercent = 2.0
	// Height of the navigation band at the top of the viewport.
	navBandPx = 80.0
)

// Distraction zone names, keyed by screen region.
const (
	ZoneOutsideViewport = "outside-viewport"
	ZoneNavigation      = "navigation"
	ZoneLeftSidebar     = "left-sidebar"
	ZoneRightSidebar    = "right-sidebar"
	ZoneOther           = "other"
)

// GazeAggregator runs a state machine over consecutive gaze points:
// sub-threshold displacement extends the current fixation, anything
// larger closes it and counts a saccade.
type GazeAggregator struct {
	m models.GazeMetrics

	hasLast             bool
	lastX, lastY, lastT float64

	inFixation                      bool
	fixStartX, fixStartY, fixStartT float64

	viewport      models.Rect
	contentBounds models.Rect
	hasBounds     bool
	blocks        []models.ContentBlock

	zones    map[string]*models.ZoneStats
	lastZone string
	heatmap  map[string]*models.BlockAttention
}

// NewGazeAggregator returns a zero-valued aggregator ready for a session.
func NewGazeAggregator() *GazeAggregator {
	return &GazeAggregator{
		zones:   make(map[string]*models.ZoneStats),
		heatmap: make(map[string]*models.BlockAttention),
	}
}

// SetViewport registers the visible viewport bounds.
func (a *GazeAggregator) SetViewport(r models.Rect) { a.viewport = r }

// SetContentBounds registers the primary content area used for the
// content-focus percentage and distraction-zone classification.
func (a *GazeAggregator) SetContentBounds(r models.Rect) {
	a.contentBounds = r
	a.hasBounds = true
}

// RegisterContentBlock adds one addressable content block to the
// attention heatmap resolver.
func (a *GazeAggregator) RegisterContentBlock(b models.ContentBlock) {
	a.blocks = append(a.blocks, b)
}

// Record folds one gaze point into the rolling state.
func (a *GazeAggregator) Record(p models.GazePoint) {
	a.m.GazePath = append(a.m.GazePath, p)
	if len(a.m.GazePath) > gazePathCap {
		a.m.GazePath = a.m.GazePath[len(a.m.GazePath)-gazePathCap:]
	}

	if !a.hasLast {
		a.hasLast = true
		a.inFixation = true
		a.fixStartX, a.fixStartY, a.fixStartT = p.X, p.Y, p.Timestamp
		a.lastX, a.lastY, a.lastT = p.X, p.Y, p.Timestamp
		a.updateFocus(p)
		return
	}

	displacement := dist(a.lastX, a.lastY, p.X, p.Y)
	if displacement < fixationRadiusPx {
		if !a.inFixation {
			// A settled point after a saccade opens a new fixation at the
			// previous point.
			a.inFixation = true
			a.fixStartX, a.fixStartY, a.fixStartT = a.lastX, a.lastY, a.lastT
		}
	} else {
		if a.inFixation {
			a.closeFixation()
		}
		a.m.SaccadeCount++
	}

	dt := p.Timestamp - a.lastT
	a.accumulateAttention(p, dt)
	a.updateFocus(p)
	if !a.contentContains(p) {
		a.accumulateDistraction(p, dt)
	} else {
		a.lastZone = ""
	}

	a.lastX, a.lastY, a.lastT = p.X, p.Y, p.Timestamp
}

func (a *GazeAggregator) closeFixation() {
	a.inFixation = false
	a.m.FixationCount++

	duration := a.lastT - a.fixStartT
	n := float64(a.m.FixationCount)
	a.m.AverageFixationDuration += (duration - a.m.AverageFixationDuration) / n

	// Net leftward travel signals re-reading; large vertical travel a
	// skipped line.
	if a.lastX-a.fixStartX < -regressionDxPx {
		a.m.RegressionCount++
	}
	dy := a.lastY - a.fixStartY
	if dy < 0 {
		dy = -dy
	}
	if dy > lineSkipDyPx {
		a.m.LineSkipCount++
	}
}

func (a *GazeAggregator) contentContains(p models.GazePoint) bool {
	return a.hasBounds && a.contentBounds.Contains(p.X, p.Y)
}

func (a *GazeAggregator) updateFocus(p models.GazePoint) {
	if !a.hasBounds {
		return
	}
	if a.contentContains(p) {
		a.m.ContentFocusPercentage = models.ClampScore(a.m.ContentFocusPercentage + focusNudgePercent)
	} else {
		a.m.ContentFocusPercentage = models.ClampScore(a.m.ContentFocusPercentage - focusNudgePercent)
	}
}

func (a *GazeAggregator) accumulateDistraction(p models.GazePoint, dt float64) {
	zone := a.classifyZone(p)
	stats, ok := a.zones[zone]
	if !ok {
		stats = &models.ZoneStats{Zone: zone}
		a.zones[zone] = stats
	}
	if zone != a.lastZone {
		stats.Frequency++
		a.lastZone = zone
	}
	if dt > 0 {
		stats.TotalDuration += dt
	}
}

func (a *GazeAggregator) classifyZone(p models.GazePoint) string {
	if !a.viewport.Contains(p.X, p.Y) {
		return ZoneOutsideViewport
	}
	if p.Y < a.viewport.Y+navBandPx {
		return ZoneNavigation
	}
	if p.X < a.contentBounds.X {
		return ZoneLeftSidebar
	}
	if p.X > a.contentBounds.X+a.contentBounds.Width {
		return ZoneRightSidebar
	}
	return ZoneOther
}

func (a *GazeAggregator) accumulateAttention(p models.GazePoint, dt float64) {
	if dt <= 0 {
		return
	}
	for _, b := range a.blocks {
		if b.Bounds.Contains(p.X, p.Y) {
			att, ok := a.heatmap[b.ID]
			if !ok {
				att = &models.BlockAttention{ContentBlockID: b.ID}
				a.heatmap[b.ID] = att
			}
			att.TotalGazeTime += dt
			att.GazeCount++
			return
		}
	}
}

// Snapshot returns an independent copy of the current metrics, with the
// zone and heatmap accumulators flattened into stable-ordered slices.
func (a *GazeAggregator) Snapshot() models.GazeMetrics {
	out := a.m
	out.GazePath = append([]models.GazePoint(nil), a.m.GazePath...)

	out.DistractionZones = make([]models.ZoneStats, 0, len(a.zones))
	for _, z := range a.zones {
		out.DistractionZones = append(out.DistractionZones, *z)
	}
	sort.Slice(out.DistractionZones, func(i, j int) bool {
		return out.DistractionZones[i].Zone < out.DistractionZones[j].Zone
	})

	out.AttentionHeatmap = make([]models.BlockAttention, 0, len(a.heatmap))
	for _, b := range a.heatmap {
		out.AttentionHeatmap = append(out.AttentionHeatmap, *b)
	}
	sort.Slice(out.AttentionHeatmap, func(i, j int) bool {
		return out.AttentionHeatmap[i].ContentBlockID < out.AttentionHeatmap[j].ContentBlockID
	})

	return out
}

// Reset replaces all state with a zero-valued record for a new session,
// preserving the registered bounds and content blocks.
func (a *GazeAggregator) Reset() {
	viewport, bounds, hasBounds, blocks := a.viewport, a.contentBounds, a.hasBounds, a.blocks
	*a = *NewGazeAggregator()
	a.viewport, a.contentBounds, a.hasBounds, a.blocks = viewport, bounds, hasBounds, blocks
}
