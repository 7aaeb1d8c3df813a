package session

import (
	"errors"
	"math"

	"learnpulse/internal/models"

	"go.uber.org/zap"
)

// State of one behavioral session: idle until started, active while
// tracked events mutate the metrics, ended after End.
type State int

const (
	StateIdle State = iota
	StateActive
	StateEnded
)

var ErrNotActive = errors.New("session is not active")

// Fixed nudge magnitudes applied per tracked event, all on the 0-100
// score scale.
const (
	wrongAnswerFrustration = 10.0
	correctConfidence      = 5.0
	breakFrustrationRelief = 15.0

	highEngagementNudge   = 5.0
	mediumEngagementNudge = 2.0
	lowEngagementNudge    = -2.0
	skipEngagementNudge   = -5.0
	skipFrustrationNudge  = 5.0
)

// Content-interaction classification thresholds, in ms.
const (
	highEngagementMS   = 30000.0
	mediumEngagementMS = 10000.0
	skipThresholdMS    = 5000.0
)

// Weights of the end-of-lesson focus formula.
const (
	progressWeight    = 40.0
	interactionWeight = 30.0
	pacingWeight      = 30.0
	penaltyCap        = 20.0

	// Expected content interactions per minute at full engagement.
	expectedInteractionRate = 3.0

	tabSwitchPenalty = 2.0
	pausePenalty     = 3.0
)

// Tracker owns one lesson session's behavioral metrics and the focus
// score derivations. One instance per lesson; metrics are created at
// Start and discarded after End.
type Tracker struct {
	log *zap.Logger

	state     State
	sessionID string
	lessonID  string
	courseID  string

	m           models.BehavioralSessionMetrics
	startT      float64
	totalBlocks int

	// Expected seconds a learner spends per content block, used by the
	// pacing term of the end-of-lesson score.
	expectedBlockSeconds float64
}

// NewTracker returns an idle tracker.
func NewTracker(log *zap.Logger, expectedBlockSeconds float64) *Tracker {
	if expectedBlockSeconds <= 0 {
		expectedBlockSeconds = 60
	}
	return &Tracker{log: log, expectedBlockSeconds: expectedBlockSeconds}
}

// Start opens a session. If a prior session is still active it is
// force-ended and discarded first; its timers belong to the engine, which
// tears them down before calling Start again.
func (t *Tracker) Start(sessionID, lessonID, courseID string, totalBlocks int, now float64) {
	if t.state == StateActive {
		t.log.Warn("starting session over an active one; orphan discarded",
			zap.String("orphan_session", t.sessionID),
			zap.String("session", sessionID))
	}
	t.state = StateActive
	t.sessionID = sessionID
	t.lessonID = lessonID
	t.courseID = courseID
	t.totalBlocks = totalBlocks
	t.startT = now
	t.m = models.BehavioralSessionMetrics{
		EngagementScore:  50,
		FrustrationScore: 50,
		ConfidenceScore:  50,
	}
}

// State returns the lifecycle state.
func (t *Tracker) State() State { return t.state }

// SessionID returns the active session's identifier.
func (t *Tracker) SessionID() string { return t.sessionID }

// LessonID returns the active session's lesson.
func (t *Tracker) LessonID() string { return t.lessonID }

// CourseID returns the active session's course.
func (t *Tracker) CourseID() string { return t.courseID }

// RecordContentInteraction classifies one content-block visit and nudges
// the engagement score accordingly.
func (t *Tracker) RecordContentInteraction(blockID string, timeSpentMS float64, completed bool) (models.ContentInteraction, error) {
	if t.state != StateActive {
		return models.ContentInteraction{}, ErrNotActive
	}

	ci := models.ContentInteraction{
		ContentBlockID: blockID,
		TimeSpentMS:    timeSpentMS,
		Completed:      completed,
	}
	switch {
	case timeSpentMS > highEngagementMS:
		ci.Engagement = models.EngagementHigh
		t.nudgeEngagement(highEngagementNudge)
	case timeSpentMS > mediumEngagementMS:
		ci.Engagement = models.EngagementMedium
		t.nudgeEngagement(mediumEngagementNudge)
	default:
		ci.Engagement = models.EngagementLow
		t.nudgeEngagement(lowEngagementNudge)
	}
	if !completed && timeSpentMS < skipThresholdMS {
		ci.WasSkipped = true
		t.m.BlocksSkipped++
		t.nudgeEngagement(skipEngagementNudge)
		t.nudgeFrustration(skipFrustrationNudge)
	}

	t.m.InteractionCount++
	if completed {
		t.m.BlocksCompleted++
	}
	return ci, nil
}

// RecordQuizAnswer folds one quiz answer: wrong answers raise frustration
// and the consecutive-wrong counter, a correct answer resets the counter
// and raises confidence.
func (t *Tracker) RecordQuizAnswer(correct, hintUsed bool) error {
	if t.state != StateActive {
		return ErrNotActive
	}
	if correct {
		t.m.CorrectAnswers++
		t.m.ConsecutiveWrong = 0
		t.m.ConfidenceScore = models.ClampScore(t.m.ConfidenceScore + correctConfidence)
	} else {
		t.m.WrongAnswers++
		t.m.ConsecutiveWrong++
		t.nudgeFrustration(wrongAnswerFrustration)
	}
	if hintUsed {
		t.m.HintRequestCount++
	}
	return nil
}

// RecordBreak lowers frustration by a fixed amount, whether the break was
// system-prompted or user-initiated.
func (t *Tracker) RecordBreak() error {
	if t.state != StateActive {
		return ErrNotActive
	}
	t.nudgeFrustration(-breakFrustrationRelief)
	return nil
}

func (t *Tracker) RecordTabSwitch() {
	if t.state == StateActive {
		t.m.TabSwitchCount++
	}
}

func (t *Tracker) RecordScrollBacktrack() {
	if t.state == StateActive {
		t.m.ScrollBacktrackCount++
	}
}

func (t *Tracker) RecordReread() {
	if t.state == StateActive {
		t.m.RereadCount++
	}
}

func (t *Tracker) RecordHelpRequest() {
	if t.state == StateActive {
		t.m.HelpRequestCount++
	}
}

func (t *Tracker) RecordPause() {
	if t.state == StateActive {
		t.m.PauseCount++
	}
}

func (t *Tracker) nudgeEngagement(delta float64) {
	t.m.EngagementScore = models.ClampScore(t.m.EngagementScore + delta)
}

func (t *Tracker) nudgeFrustration(delta float64) {
	t.m.FrustrationScore = models.ClampScore(t.m.FrustrationScore + delta)
}

// FocusScore is the live session-granularity view: a 30 baseline plus
// weighted engagement, minus capped tab-switch and frustration penalties,
// plus a low-backtrack bonus. Clamped [0,100].
func (t *Tracker) FocusScore() float64 {
	score := 30.0
	score += 0.4 * t.m.EngagementScore
	score -= math.Min(20, 3*float64(t.m.TabSwitchCount))
	if t.m.FrustrationScore > 70 {
		score -= 15
	}
	if t.m.ScrollBacktrackCount < 2 {
		score += 10
	}
	return models.ClampScore(score)
}

// EndOfLessonFocusScore is the lesson-granularity view: 40% content
// progress, 30% interaction rate against the expected 3/minute (capped),
// up to 30% for pacing near the expected per-block duration, minus a
// pause/tab-switch penalty capped at 20.
func (t *Tracker) EndOfLessonFocusScore(now float64) float64 {
	minutes := (now - t.startT) / 60000
	if minutes <= 0 {
		return 0
	}

	progress := 0.0
	if t.totalBlocks > 0 {
		progress = progressWeight * math.Min(1, float64(t.m.BlocksCompleted)/float64(t.totalBlocks))
	}

	rate := float64(t.m.InteractionCount) / minutes
	interaction := interactionWeight * math.Min(1, rate/expectedInteractionRate)

	pacing := 0.0
	if t.m.BlocksCompleted > 0 {
		actualPerBlock := minutes * 60 / float64(t.m.BlocksCompleted)
		deviation := math.Abs(actualPerBlock-t.expectedBlockSeconds) / t.expectedBlockSeconds
		pacing = pacingWeight * (1 - math.Min(1, deviation))
	}

	penalty := math.Min(penaltyCap,
		tabSwitchPenalty*float64(t.m.TabSwitchCount)+pausePenalty*float64(t.m.PauseCount))

	return models.ClampScore(progress + interaction + pacing - penalty)
}

// Metrics returns a copy of the current session metrics.
func (t *Tracker) Metrics() models.BehavioralSessionMetrics { return t.m }

// End closes the session and returns the final metrics with the
// end-of-lesson focus score.
func (t *Tracker) End(now float64) (models.BehavioralSessionMetrics, float64, error) {
	if t.state != StateActive {
		return models.BehavioralSessionMetrics{}, 0, ErrNotActive
	}
	focus := t.EndOfLessonFocusScore(now)
	final := t.m
	t.state = StateEnded
	return final, focus, nil
}
