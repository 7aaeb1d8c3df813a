// Package engine ties one learner's tracking session together: the three
// modality aggregators, the behavioral tracker, the periodic reporter,
// the push channel and the scoped capture resources.
package engine

import (
	"context"
	"sync"
	"time"

	"learnpulse/internal/capture"
	"learnpulse/internal/consent"
	"learnpulse/internal/intervention"
	"learnpulse/internal/models"
	"learnpulse/internal/push"
	"learnpulse/internal/reporter"
	"learnpulse/internal/session"
	"learnpulse/internal/signal"

	"github.com/google/uuid"
	"go.uber.org/zap"
)

// Backend is the adaptive-learning collaborator surface the engine needs.
type Backend interface {
	StartSession(ctx context.Context, req models.SessionStartRequest) (*models.SessionStartResponse, error)
	UpdateSession(ctx context.Context, sessionID string, req models.SessionUpdateRequest) (*models.RealTimeAdaptation, error)
	EndSession(ctx context.Context, sessionID string, req models.SessionEndRequest) error
}

// Archiver receives the local end-of-session record.
type Archiver interface {
	ArchiveSession(sessionID, userID, lessonID, courseID string,
		lessonCompleted bool, focusScore float64,
		modalities []string, finalMetrics models.BehavioralSessionMetrics) error
}

// Adapters are the optional injectable capture sources. Production
// traffic arrives over the ingest API; embedded deployments and tests
// wire synthetic sources here instead.
type Adapters struct {
	Pointer    capture.Source[models.PointerEvent]
	Scroll     capture.Source[models.ScrollEvent]
	Speech     capture.Source[models.SpeechEvent]
	SpeechEnd  capture.Source[models.SpeechEndEvent]
	Audio      capture.Source[models.AudioLevelEvent]
	Gaze       capture.Source[models.GazePoint]
	Visibility capture.Source[models.VisibilityEvent]
}

// Options configures one engine.
type Options struct {
	UserID               string
	UpdateInterval       time.Duration
	ReconnectDelay       time.Duration
	ExpectedBlockSeconds float64
	PushEnabled          bool
	PushURL              func(userID string) string
	Adapters             Adapters
}

// StartParams carries everything the UI sends when a lesson session
// begins.
type StartParams struct {
	LessonID      string
	CourseID      string
	DeviceType    string
	TotalBlocks   int
	Viewport      models.Rect
	ContentBounds models.Rect
	Blocks        []models.ContentBlock
}

// EndParams carries the explicit session-end inputs.
type EndParams struct {
	LessonCompleted    bool
	OverallPerformance float64
	// FlushFinal triggers one last batch before teardown. Ending never
	// flushes implicitly.
	FlushFinal bool
}

// Engine owns one learner's pipeline. A mutex serializes all mutation,
// standing in for the single-threaded event loop the aggregation model
// assumes: no aggregator is ever mutated from two callbacks at once.
type Engine struct {
	log  *zap.Logger
	opts Options

	backend  Backend
	analyzer reporter.Analyzer
	sink     reporter.SampleSink
	archiver Archiver
	consent  *consent.Manager

	mu      sync.Mutex
	active  bool
	mouse   *signal.MouseAggregator
	voice   *signal.VoiceAggregator
	gaze    *signal.GazeAggregator
	tracker *session.Tracker
	mailbox *intervention.Mailbox
	rep     *reporter.Reporter
	pusher  *push.Client

	resources []*capture.Resource
	scores    models.Scores

	// Latest client-clock timestamp seen on any event; used for trailing
	// idle accounting and for the end-of-lesson score.
	lastClientT float64
	lastScroll  float64
	hasScroll   bool
}

// New returns an idle engine for one user.
func New(
	log *zap.Logger,
	opts Options,
	backend Backend,
	analyzer reporter.Analyzer,
	sink reporter.SampleSink,
	archiver Archiver,
	consentMgr *consent.Manager,
) *Engine {
	e := &Engine{
		log:      log.With(zap.String("user", opts.UserID)),
		opts:     opts,
		backend:  backend,
		analyzer: analyzer,
		sink:     sink,
		archiver: archiver,
		consent:  consentMgr,
		mouse:    signal.NewMouseAggregator(),
		voice:    signal.NewVoiceAggregator(),
		gaze:     signal.NewGazeAggregator(),
		tracker:  session.NewTracker(log, opts.ExpectedBlockSeconds),
		mailbox:  intervention.NewMailbox(),
	}
	return e
}

// Mailbox exposes the shared intervention sink.
func (e *Engine) Mailbox() *intervention.Mailbox { return e.mailbox }

// Scores returns the latest derived scores.
func (e *Engine) Scores() models.Scores {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.scores
}

// Active reports whether a session is being tracked.
func (e *Engine) Active() bool {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.active
}

// StartSession opens a tracking session. An orphaned active session is
// force-ended locally first: its timers and resources are released and
// its metrics discarded without an upstream end call.
func (e *Engine) StartSession(ctx context.Context, p StartParams) (*models.SessionStartResponse, error) {
	e.mu.Lock()
	var orphanRep *reporter.Reporter
	var orphanPusher *push.Client
	if e.active {
		e.log.Warn("session start over an active session; discarding orphan",
			zap.String("orphan_session", e.tracker.SessionID()))
		orphanRep, orphanPusher = e.rep, e.pusher
		e.rep, e.pusher = nil, nil
		e.releaseResourcesLocked()
		e.active = false
	}
	e.mu.Unlock()

	// Timer teardown happens outside the mutex: the flush loop snapshots
	// through it, so stopping under the lock can deadlock on an in-flight
	// tick.
	if orphanRep != nil {
		orphanRep.Stop()
	}
	if orphanPusher != nil {
		orphanPusher.Stop()
	}

	resp, err := e.backend.StartSession(ctx, models.SessionStartRequest{
		LessonID:   p.LessonID,
		CourseID:   p.CourseID,
		DeviceType: p.DeviceType,
	})
	if err != nil {
		// Tracking degrades to a locally identified session rather than
		// blocking the lesson.
		e.log.Warn("backend session start failed; continuing with local id", zap.Error(err))
		resp = &models.SessionStartResponse{SessionID: uuid.NewString()}
	}

	e.mu.Lock()
	defer e.mu.Unlock()

	perms := e.consent.Permissions()
	e.mouse.Reset()
	e.voice.Reset()
	e.gaze.Reset()
	e.gaze.SetViewport(p.Viewport)
	e.gaze.SetContentBounds(p.ContentBounds)
	for _, b := range p.Blocks {
		e.gaze.RegisterContentBlock(b)
	}
	e.lastClientT = 0
	e.hasScroll = false
	e.scores = models.Scores{}

	e.tracker.Start(resp.SessionID, p.LessonID, p.CourseID, p.TotalBlocks, nowMS())
	e.active = true

	e.subscribeAdaptersLocked(perms)

	e.rep = reporter.New(e.log, e.opts.UpdateInterval, e.analyzer, e.sink, e.mailbox,
		e.snapshotBatch, e.applyScores)
	e.rep.UpdateSession = e.reportBehavioral
	e.rep.Start()

	if e.opts.PushEnabled && e.opts.PushURL != nil {
		e.pusher = push.New(e.log, e.opts.PushURL(e.opts.UserID), e.opts.ReconnectDelay, e.mailbox)
		e.pusher.Start()
	}

	e.log.Info("tracking session started",
		zap.String("session", resp.SessionID),
		zap.String("lesson", p.LessonID),
		zap.Bool("voice", perms.Microphone),
		zap.Bool("gaze", perms.Camera),
		zap.Bool("mouse", perms.MouseTracking))
	return resp, nil
}

// subscribeAdaptersLocked wires any injected capture sources for the
// granted modalities, each wrapped in a scoped resource so teardown
// cannot leave a subscription behind.
func (e *Engine) subscribeAdaptersLocked(perms models.Permissions) {
	a := e.opts.Adapters

	if perms.MouseTracking {
		acquireSource(e, "pointer-source", a.Pointer, e.HandlePointer)
		acquireSource(e, "scroll-source", a.Scroll, e.HandleScroll)
	}
	if perms.Microphone {
		acquireSource(e, "speech-source", a.Speech, e.HandleSpeech)
		acquireSource(e, "speech-end-source", a.SpeechEnd, e.HandleSpeechEnd)
		acquireSource(e, "audio-source", a.Audio, e.HandleAudioLevel)
	}
	if perms.Camera {
		acquireSource(e, "gaze-source", a.Gaze, e.HandleGaze)
	}
	acquireSource(e, "visibility-source", a.Visibility, e.HandleVisibility)
}

func acquireSource[T any](e *Engine, name string, src capture.Source[T], handler func(T)) {
	if src == nil {
		return
	}
	res, err := capture.Acquire(name, func() (func() error, error) {
		unsub, err := src.Subscribe(handler)
		if err != nil {
			return nil, err
		}
		return func() error { unsub(); return nil }, nil
	})
	if err != nil {
		// Missing device support no-ops rather than failing the session.
		e.log.Info("capture source unavailable", zap.String("source", name), zap.Error(err))
		return
	}
	e.resources = append(e.resources, res)
}

// HandlePointer feeds one pointer event to the mouse aggregator.
func (e *Engine) HandlePointer(ev models.PointerEvent) {
	e.mu.Lock()
	defer e.mu.Unlock()
	if !e.active || !e.consent.Granted(models.ModalityMouseTracking) {
		return
	}
	e.noteClientTime(ev.Timestamp)
	e.mouse.Record(ev)
}

// HandleScroll feeds one scroll event to the mouse aggregator and counts
// upward movement as a session-level backtrack.
func (e *Engine) HandleScroll(ev models.ScrollEvent) {
	e.mu.Lock()
	defer e.mu.Unlock()
	if !e.active || !e.consent.Granted(models.ModalityMouseTracking) {
		return
	}
	e.noteClientTime(ev.Timestamp)
	if e.hasScroll && ev.Position < e.lastScroll {
		e.tracker.RecordScrollBacktrack()
	}
	e.hasScroll = true
	e.lastScroll = ev.Position
	e.mouse.RecordScroll(ev.Position, ev.Timestamp)
}

// HandleSpeech feeds one recognition result to the voice aggregator.
func (e *Engine) HandleSpeech(ev models.SpeechEvent) {
	e.mu.Lock()
	defer e.mu.Unlock()
	if !e.active || !e.consent.Granted(models.ModalityMicrophone) {
		return
	}
	e.noteClientTime(ev.Timestamp)
	e.voice.RecordSpeech(ev)
}

// HandleSpeechEnd feeds one utterance-ended event.
func (e *Engine) HandleSpeechEnd(ev models.SpeechEndEvent) {
	e.mu.Lock()
	defer e.mu.Unlock()
	if !e.active || !e.consent.Granted(models.ModalityMicrophone) {
		return
	}
	e.noteClientTime(ev.Timestamp)
	e.voice.RecordSpeechEnd(ev)
}

// HandleAudioLevel feeds one frequency-analysis tick.
func (e *Engine) HandleAudioLevel(ev models.AudioLevelEvent) {
	e.mu.Lock()
	defer e.mu.Unlock()
	if !e.active || !e.consent.Granted(models.ModalityMicrophone) {
		return
	}
	e.noteClientTime(ev.Timestamp)
	e.voice.RecordAudioLevel(ev)
}

// HandleGaze feeds one gaze point.
func (e *Engine) HandleGaze(ev models.GazePoint) {
	e.mu.Lock()
	defer e.mu.Unlock()
	if !e.active || !e.consent.Granted(models.ModalityCamera) {
		return
	}
	e.noteClientTime(ev.Timestamp)
	e.gaze.Record(ev)
}

// HandleVisibility counts a tab switch whenever the lesson tab is hidden.
func (e *Engine) HandleVisibility(ev models.VisibilityEvent) {
	e.mu.Lock()
	defer e.mu.Unlock()
	if !e.active {
		return
	}
	e.noteClientTime(ev.Timestamp)
	if ev.Hidden {
		e.tracker.RecordTabSwitch()
	}
}

func (e *Engine) noteClientTime(t float64) {
	if t > e.lastClientT {
		e.lastClientT = t
	}
}

// RecordContentInteraction classifies the visit, nudges session scores
// and reports upstream; an adaptation directive carrying an intervention
// lands in the mailbox.
func (e *Engine) RecordContentInteraction(ctx context.Context, blockID string, timeSpentMS float64, completed bool) error {
	e.mu.Lock()
	ci, err := e.tracker.RecordContentInteraction(blockID, timeSpentMS, completed)
	sessionID := e.tracker.SessionID()
	e.mu.Unlock()
	if err != nil {
		return err
	}
	e.updateUpstream(ctx, sessionID, models.SessionUpdateRequest{ContentInteraction: &ci})
	return nil
}

// RecordQuizAnswer folds one quiz answer and reports upstream.
func (e *Engine) RecordQuizAnswer(ctx context.Context, correct, hintUsed bool) error {
	e.mu.Lock()
	err := e.tracker.RecordQuizAnswer(correct, hintUsed)
	sessionID := e.tracker.SessionID()
	e.mu.Unlock()
	if err != nil {
		return err
	}
	e.updateUpstream(ctx, sessionID, models.SessionUpdateRequest{
		QuizPerformance: &models.QuizPerformance{Correct: correct, HintUsed: hintUsed},
	})
	return nil
}

// RecordReread notes the learner revisiting earlier content.
func (e *Engine) RecordReread() error {
	e.mu.Lock()
	defer e.mu.Unlock()
	if !e.active {
		return session.ErrNotActive
	}
	e.tracker.RecordReread()
	return nil
}

// RecordHelpRequest notes an explicit request for help.
func (e *Engine) RecordHelpRequest() error {
	e.mu.Lock()
	defer e.mu.Unlock()
	if !e.active {
		return session.ErrNotActive
	}
	e.tracker.RecordHelpRequest()
	return nil
}

// RecordPause notes a lesson pause. Pauses feed the end-of-lesson
// penalty; the counters reach the backend on the reporter cadence.
func (e *Engine) RecordPause() error {
	e.mu.Lock()
	defer e.mu.Unlock()
	if !e.active {
		return session.ErrNotActive
	}
	e.tracker.RecordPause()
	return nil
}

// RecordBreak lowers frustration and reports upstream.
func (e *Engine) RecordBreak(ctx context.Context) error {
	e.mu.Lock()
	err := e.tracker.RecordBreak()
	sessionID := e.tracker.SessionID()
	e.mu.Unlock()
	if err != nil {
		return err
	}
	e.updateUpstream(ctx, sessionID, models.SessionUpdateRequest{BreakTaken: true})
	return nil
}

// reportBehavioral pushes the live engagement/frustration/confidence
// state upstream; the reporter calls it on every flush so the backend
// can adapt mid-lesson, not only at session end.
func (e *Engine) reportBehavioral(ctx context.Context) {
	e.mu.Lock()
	if !e.active {
		e.mu.Unlock()
		return
	}
	m := e.tracker.Metrics()
	sessionID := e.tracker.SessionID()
	e.mu.Unlock()
	e.updateUpstream(ctx, sessionID, models.SessionUpdateRequest{BehavioralMetrics: &m})
}

func (e *Engine) updateUpstream(ctx context.Context, sessionID string, req models.SessionUpdateRequest) {
	adaptation, err := e.backend.UpdateSession(ctx, sessionID, req)
	if err != nil {
		e.log.Debug("session update failed", zap.Error(err))
		return
	}
	if adaptation != nil && adaptation.Intervention != nil {
		e.mailbox.Post(*adaptation.Intervention)
	}
}

// snapshotBatch assembles the reporter's batch from the consented,
// active aggregators. Nil blocks mean the modality is off.
func (e *Engine) snapshotBatch() (string, string, models.CombinedAnalyzeRequest) {
	e.mu.Lock()
	defer e.mu.Unlock()

	req := models.CombinedAnalyzeRequest{UserID: e.opts.UserID}
	if !e.active {
		return e.tracker.SessionID(), e.tracker.LessonID(), req
	}

	perms := e.consent.Permissions()
	if perms.MouseTracking {
		e.mouse.MarkIdle(e.lastClientT)
		m := e.mouse.Snapshot()
		req.MouseMetrics = &m
	}
	if perms.Microphone {
		v := e.voice.Snapshot()
		req.VoiceMetrics = &v
	}
	if perms.Camera {
		g := e.gaze.Snapshot()
		req.EyeMetrics = &g
	}
	return e.tracker.SessionID(), e.tracker.LessonID(), req
}

func (e *Engine) applyScores(s models.Scores) {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.scores = s
}

// FocusScore returns the live session-granularity focus score.
func (e *Engine) FocusScore() float64 {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.tracker.FocusScore()
}

// EndSession closes the session: optional explicit final flush, final
// focus score, upstream end call, local archive, then teardown of every
// timer, subscription and connection.
func (e *Engine) EndSession(ctx context.Context, p EndParams) (float64, error) {
	e.mu.Lock()
	if !e.active {
		e.mu.Unlock()
		return 0, session.ErrNotActive
	}
	sessionID := e.tracker.SessionID()
	rep, pusher := e.rep, e.pusher
	e.rep, e.pusher = nil, nil
	e.mu.Unlock()

	// Stop timers outside the mutex; the flush loop snapshots through it.
	if rep != nil {
		if p.FlushFinal {
			rep.Flush(ctx)
		}
		rep.Stop()
	}
	if pusher != nil {
		pusher.Stop()
	}

	e.mu.Lock()
	if !e.active || e.tracker.SessionID() != sessionID {
		// A concurrent start replaced the session while timers were
		// stopping; the orphan is already gone.
		e.mu.Unlock()
		return 0, session.ErrNotActive
	}
	lessonID := e.tracker.LessonID()
	courseID := e.tracker.CourseID()
	final, focus, err := e.tracker.End(nowMS())
	if err != nil {
		e.mu.Unlock()
		return 0, err
	}
	modalities := e.activeModalitiesLocked()
	e.releaseResourcesLocked()
	e.active = false
	e.mu.Unlock()

	if err := e.backend.EndSession(ctx, sessionID, models.SessionEndRequest{
		LessonCompleted:    p.LessonCompleted,
		OverallPerformance: p.OverallPerformance,
		FocusScore:         focus,
		FinalMetrics:       final,
	}); err != nil {
		e.log.Debug("backend session end failed", zap.Error(err))
	}

	if e.archiver != nil {
		if err := e.archiver.ArchiveSession(sessionID, e.opts.UserID, lessonID, courseID,
			p.LessonCompleted, focus, modalities, final); err != nil {
			e.log.Warn("session archive failed", zap.Error(err))
		}
	}

	e.log.Info("tracking session ended",
		zap.String("session", sessionID),
		zap.Float64("focus_score", focus))
	return focus, nil
}

func (e *Engine) activeModalitiesLocked() []string {
	perms := e.consent.Permissions()
	var out []string
	if perms.MouseTracking {
		out = append(out, models.ModalityMouseTracking)
	}
	if perms.Microphone {
		out = append(out, models.ModalityMicrophone)
	}
	if perms.Camera {
		out = append(out, models.ModalityCamera)
	}
	return out
}

// releaseResourcesLocked frees every scoped capture resource.
func (e *Engine) releaseResourcesLocked() {
	for _, res := range e.resources {
		if err := res.Release(); err != nil {
			e.log.Warn("resource release failed", zap.String("resource", res.Name()), zap.Error(err))
		}
	}
	e.resources = nil
}

func nowMS() float64 {
	return float64(time.Now().UnixMilli())
}
