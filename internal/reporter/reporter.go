// Package reporter owns the fixed-period batch cycle: snapshot all active
// aggregators, submit to the scoring service, apply the returned scores
// and any urgent intervention, then fire the best-effort persistence call.
package reporter

import (
	"context"
	"time"

	"learnpulse/internal/intervention"
	"learnpulse/internal/models"

	"go.uber.org/zap"
)

// DefaultInterval between batches.
const DefaultInterval = 30 * time.Second

// Analyzer is the scoring-collaborator surface the reporter needs.
type Analyzer interface {
	AnalyzeCombined(ctx context.Context, req models.CombinedAnalyzeRequest) (*models.CombinedAnalyzeResponse, error)
	Persist(ctx context.Context, req models.PersistRequest)
}

// SampleSink receives the derived scores of each successful tick.
// Failures are the sink's problem; the reporter never blocks on it.
type SampleSink interface {
	SaveScoreSample(sessionID string, scores models.Scores) error
}

// Reporter drives the periodic flush for one session.
type Reporter struct {
	log      *zap.Logger
	interval time.Duration
	analyzer Analyzer
	sink     SampleSink
	mailbox  *intervention.Mailbox

	// UpdateSession, when set before Start, runs at the top of every
	// flush so the session owner can push its live behavioral state
	// upstream on the same cadence as the modality batch. It runs even
	// when no modality has data to submit.
	UpdateSession func(ctx context.Context)

	// snapshot assembles the current batch; applyScores publishes the
	// clamped response scores back to the session owner.
	snapshot    func() (string, string, models.CombinedAnalyzeRequest)
	applyScores func(models.Scores)

	stop chan struct{}
	done chan struct{}
}

// New returns a reporter; Start arms the timer.
func New(
	log *zap.Logger,
	interval time.Duration,
	analyzer Analyzer,
	sink SampleSink,
	mailbox *intervention.Mailbox,
	snapshot func() (sessionID, lessonID string, req models.CombinedAnalyzeRequest),
	applyScores func(models.Scores),
) *Reporter {
	if interval <= 0 {
		interval = DefaultInterval
	}
	return &Reporter{
		log:         log,
		interval:    interval,
		analyzer:    analyzer,
		sink:        sink,
		mailbox:     mailbox,
		snapshot:    snapshot,
		applyScores: applyScores,
	}
}

// Start runs the flush loop in a goroutine until Stop.
func (r *Reporter) Start() {
	r.stop = make(chan struct{})
	r.done = make(chan struct{})
	go func() {
		defer close(r.done)
		ticker := time.NewTicker(r.interval)
		defer ticker.Stop()
		for {
			select {
			case <-ticker.C:
				r.Flush(context.Background())
			case <-r.stop:
				return
			}
		}
	}()
}

// Stop cancels the timer. It does not flush a final batch; callers
// trigger that explicitly at session end when they want one.
func (r *Reporter) Stop() {
	if r.stop == nil {
		return
	}
	close(r.stop)
	<-r.done
	r.stop = nil
}

// Flush performs one batch cycle. Submission failure leaves scores
// unchanged and is logged at debug level; the next tick simply tries
// again.
func (r *Reporter) Flush(ctx context.Context) {
	if r.UpdateSession != nil {
		r.UpdateSession(ctx)
	}

	sessionID, lessonID, req := r.snapshot()
	if req.MouseMetrics == nil && req.EyeMetrics == nil && req.VoiceMetrics == nil {
		return
	}

	resp, err := r.analyzer.AnalyzeCombined(ctx, req)
	if err != nil {
		r.log.Debug("batch submission failed", zap.String("session", sessionID), zap.Error(err))
		return
	}

	scores := resp.CombinedScores.Clamped()
	r.applyScores(scores)

	if iv := resp.UrgentIntervention; iv != nil && iv.Priority == models.PriorityHigh {
		r.mailbox.Post(*iv)
	}

	if r.sink != nil {
		if err := r.sink.SaveScoreSample(sessionID, scores); err != nil {
			r.log.Debug("score sample save failed", zap.String("session", sessionID), zap.Error(err))
		}
	}

	// Fire-and-forget persistence of the same snapshot plus derived
	// scores; never blocks or retries.
	go r.analyzer.Persist(context.WithoutCancel(ctx), models.PersistRequest{
		LessonID:     lessonID,
		VoiceMetrics: req.VoiceMetrics,
		EyeMetrics:   req.EyeMetrics,
		MouseMetrics: req.MouseMetrics,
		Scores:       scores,
	})
}
