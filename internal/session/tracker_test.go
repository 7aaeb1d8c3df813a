package session

import (
	"testing"

	"learnpulse/internal/models"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"go.uber.org/zap"
)

func newActiveTracker(t *testing.T) *Tracker {
	t.Helper()
	tr := NewTracker(zap.NewNop(), 60)
	tr.Start("sess-1", "lesson-1", "course-1", 6, 0)
	return tr
}

func TestTracker_StartInitializesMidpointScores(t *testing.T) {
	tr := newActiveTracker(t)

	m := tr.Metrics()
	assert.InDelta(t, 50, m.EngagementScore, 1e-9)
	assert.InDelta(t, 50, m.FrustrationScore, 1e-9)
	assert.InDelta(t, 50, m.ConfidenceScore, 1e-9)
	assert.Equal(t, StateActive, tr.State())
}

func TestTracker_OperationsRequireActiveSession(t *testing.T) {
	tr := NewTracker(zap.NewNop(), 60)

	_, err := tr.RecordContentInteraction("block", 1000, false)
	assert.ErrorIs(t, err, ErrNotActive)
	assert.ErrorIs(t, tr.RecordQuizAnswer(true, false), ErrNotActive)
	assert.ErrorIs(t, tr.RecordBreak(), ErrNotActive)
	_, _, err = tr.End(1000)
	assert.ErrorIs(t, err, ErrNotActive)
}

func TestTracker_ContentInteractionClassification(t *testing.T) {
	tests := []struct {
		name        string
		timeSpentMS float64
		completed   bool
		engagement  string
		skipped     bool
	}{
		{"long visit is high", 35000, true, models.EngagementHigh, false},
		{"medium visit", 15000, true, models.EngagementMedium, false},
		{"short completed visit is low", 2000, true, models.EngagementLow, false},
		{"short abandoned visit is a skip", 2000, false, models.EngagementLow, true},
		{"slow abandoned visit is not a skip", 8000, false, models.EngagementLow, false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			tr := newActiveTracker(t)
			ci, err := tr.RecordContentInteraction("block-1", tt.timeSpentMS, tt.completed)
			require.NoError(t, err)
			assert.Equal(t, tt.engagement, ci.Engagement)
			assert.Equal(t, tt.skipped, ci.WasSkipped)
		})
	}
}

func TestTracker_SkipNudgesScores(t *testing.T) {
	tr := newActiveTracker(t)
	_, err := tr.RecordContentInteraction("block-1", 2000, false)
	require.NoError(t, err)

	m := tr.Metrics()
	// Low-engagement nudge plus the skip nudge.
	assert.InDelta(t, 43, m.EngagementScore, 1e-9)
	assert.InDelta(t, 55, m.FrustrationScore, 1e-9)
	assert.Equal(t, 1, m.BlocksSkipped)
	assert.Equal(t, 0, m.BlocksCompleted)
}

func TestTracker_QuizFrustrationMonotonicity(t *testing.T) {
	tr := newActiveTracker(t)

	last := tr.Metrics().FrustrationScore
	for i := 0; i < 10; i++ {
		require.NoError(t, tr.RecordQuizAnswer(false, false))
		cur := tr.Metrics().FrustrationScore
		assert.GreaterOrEqual(t, cur, last)
		assert.LessOrEqual(t, cur, 100.0)
		last = cur
	}

	m := tr.Metrics()
	assert.InDelta(t, 100, m.FrustrationScore, 1e-9)
	assert.Equal(t, 10, m.ConsecutiveWrong)
	assert.Equal(t, 10, m.WrongAnswers)

	// One correct answer resets the streak and lifts confidence.
	require.NoError(t, tr.RecordQuizAnswer(true, false))
	m = tr.Metrics()
	assert.Equal(t, 0, m.ConsecutiveWrong)
	assert.InDelta(t, 55, m.ConfidenceScore, 1e-9)
	assert.Equal(t, 1, m.CorrectAnswers)
}

func TestTracker_HintCountsOnEitherOutcome(t *testing.T) {
	tr := newActiveTracker(t)
	require.NoError(t, tr.RecordQuizAnswer(true, true))
	require.NoError(t, tr.RecordQuizAnswer(false, true))

	assert.Equal(t, 2, tr.Metrics().HintRequestCount)
}

func TestTracker_BreakLowersFrustration(t *testing.T) {
	tr := newActiveTracker(t)
	require.NoError(t, tr.RecordQuizAnswer(false, false))
	require.InDelta(t, 60, tr.Metrics().FrustrationScore, 1e-9)

	require.NoError(t, tr.RecordBreak())
	assert.InDelta(t, 45, tr.Metrics().FrustrationScore, 1e-9)
}

func TestTracker_FocusScoreFresh(t *testing.T) {
	tr := newActiveTracker(t)

	// 30 baseline + 0.4*50 engagement + 10 low-backtrack bonus.
	assert.InDelta(t, 60, tr.FocusScore(), 1e-9)
}

func TestTracker_FocusScorePenalties(t *testing.T) {
	tr := newActiveTracker(t)
	for i := 0; i < 10; i++ {
		tr.RecordTabSwitch()
	}
	tr.RecordScrollBacktrack()
	tr.RecordScrollBacktrack()
	for i := 0; i < 5; i++ {
		require.NoError(t, tr.RecordQuizAnswer(false, false))
	}

	// Tab-switch penalty caps at 20, frustration over 70 costs 15, and
	// the backtrack bonus is gone: 30 + 20 - 20 - 15.
	assert.InDelta(t, 15, tr.FocusScore(), 1e-9)
}

func TestTracker_EndOfLessonFocusScore(t *testing.T) {
	tr := newActiveTracker(t)
	for i := 0; i < 6; i++ {
		_, err := tr.RecordContentInteraction("block", 15000, true)
		require.NoError(t, err)
	}
	tr.RecordTabSwitch()
	tr.RecordTabSwitch()

	// Three minutes in: full progress (40), interaction rate 2/min of the
	// expected 3 (20), pacing at 30s versus the expected 60s (15), minus
	// the 2-per-tab-switch penalty (4).
	assert.InDelta(t, 71, tr.EndOfLessonFocusScore(180000), 1e-9)
}

func TestTracker_EndOfLessonPacingNeedsCompletedBlocks(t *testing.T) {
	tr := newActiveTracker(t)
	_, err := tr.RecordContentInteraction("block", 2000, false)
	require.NoError(t, err)

	// One interaction in one minute, nothing completed: no progress, no
	// pacing, interaction term only.
	score := tr.EndOfLessonFocusScore(60000)
	assert.InDelta(t, 10, score, 1e-9)
}

func TestTracker_EndOfLessonZeroElapsed(t *testing.T) {
	tr := newActiveTracker(t)
	assert.Zero(t, tr.EndOfLessonFocusScore(0))
}

func TestTracker_EndReturnsFinalMetrics(t *testing.T) {
	tr := newActiveTracker(t)
	_, err := tr.RecordContentInteraction("block", 35000, true)
	require.NoError(t, err)

	final, focus, err := tr.End(60000)
	require.NoError(t, err)
	assert.Equal(t, 1, final.BlocksCompleted)
	assert.Greater(t, focus, 0.0)
	assert.Equal(t, StateEnded, tr.State())

	_, _, err = tr.End(61000)
	assert.ErrorIs(t, err, ErrNotActive)
}

func TestTracker_RestartDiscardsOrphan(t *testing.T) {
	tr := newActiveTracker(t)
	require.NoError(t, tr.RecordQuizAnswer(false, false))

	tr.Start("sess-2", "lesson-2", "course-1", 4, 1000)
	m := tr.Metrics()
	assert.InDelta(t, 50, m.FrustrationScore, 1e-9)
	assert.Equal(t, "sess-2", tr.SessionID())
	assert.Equal(t, 0, m.WrongAnswers)
}

func TestTracker_PausesFeedEndOfLessonPenalty(t *testing.T) {
	tr := newActiveTracker(t)
	for i := 0; i < 6; i++ {
		_, err := tr.RecordContentInteraction("block", 15000, true)
		require.NoError(t, err)
	}
	tr.RecordPause()
	tr.RecordPause()

	// Full progress (40), interaction rate 2/min of the expected 3 (20),
	// pacing at 30s versus the expected 60s (15), minus the 3-per-pause
	// penalty (6).
	assert.InDelta(t, 69, tr.EndOfLessonFocusScore(180000), 1e-9)
}
