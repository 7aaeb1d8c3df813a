package handlers_test

import (
	"bufio"
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"learnpulse/internal/engine"
	"learnpulse/internal/models"
	"learnpulse/internal/router"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"go.uber.org/zap"
)

func init() {
	gin.SetMode(gin.TestMode)
}

type stubBackend struct{}

func (stubBackend) StartSession(ctx context.Context, req models.SessionStartRequest) (*models.SessionStartResponse, error) {
	return &models.SessionStartResponse{SessionID: "sess-1"}, nil
}

func (stubBackend) UpdateSession(ctx context.Context, sessionID string, req models.SessionUpdateRequest) (*models.RealTimeAdaptation, error) {
	return nil, nil
}

func (stubBackend) EndSession(ctx context.Context, sessionID string, req models.SessionEndRequest) error {
	return nil
}

type stubAnalyzer struct{}

func (stubAnalyzer) AnalyzeCombined(ctx context.Context, req models.CombinedAnalyzeRequest) (*models.CombinedAnalyzeResponse, error) {
	return &models.CombinedAnalyzeResponse{
		Success:        true,
		CombinedScores: models.Scores{Attention: 70},
	}, nil
}

func (stubAnalyzer) Persist(ctx context.Context, req models.PersistRequest) {}

func newTestRouter(t *testing.T) (*gin.Engine, *engine.Manager) {
	t.Helper()
	log := zap.NewNop()
	manager := engine.NewManager(log, engine.Options{
		UpdateInterval:       time.Hour,
		ExpectedBlockSeconds: 60,
	}, stubBackend{}, stubAnalyzer{}, nil, nil, nil, nil)
	return router.Setup(log, manager), manager
}

func doJSON(t *testing.T, r *gin.Engine, method, path, user string, body any) *httptest.ResponseRecorder {
	t.Helper()
	var buf bytes.Buffer
	if body != nil {
		require.NoError(t, json.NewEncoder(&buf).Encode(body))
	}
	req := httptest.NewRequest(method, path, &buf)
	req.Header.Set("Content-Type", "application/json")
	if user != "" {
		req.Header.Set("X-User-ID", user)
	}
	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)
	return w
}

func startBody() map[string]any {
	return map[string]any{
		"lessonId":    "lesson-1",
		"courseId":    "course-1",
		"deviceType":  "desktop",
		"totalBlocks": 4,
	}
}

func TestTrack_StartSession(t *testing.T) {
	r, _ := newTestRouter(t)
	w := doJSON(t, r, http.MethodPost, "/track/session/start", "user-1", startBody())
	require.Equal(t, http.StatusOK, w.Code)

	var resp models.SessionStartResponse
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
	assert.Equal(t, "sess-1", resp.SessionID)
}

func TestTrack_MissingUserRejected(t *testing.T) {
	r, _ := newTestRouter(t)
	w := doJSON(t, r, http.MethodPost, "/track/session/start", "", startBody())
	assert.Equal(t, http.StatusUnauthorized, w.Code)
}

func TestTrack_StartValidatesBody(t *testing.T) {
	r, _ := newTestRouter(t)
	w := doJSON(t, r, http.MethodPost, "/track/session/start", "user-1", map[string]any{"lessonId": "l"})
	assert.Equal(t, http.StatusBadRequest, w.Code)
}

func TestTrack_IngestAndScores(t *testing.T) {
	r, m := newTestRouter(t)
	require.Equal(t, http.StatusOK,
		doJSON(t, r, http.MethodPost, "/track/session/start", "user-1", startBody()).Code)

	batch := map[string]any{
		"pointer": []models.PointerEvent{
			{Type: models.PointerMove, X: 0, Y: 0, Timestamp: 0},
			{Type: models.PointerMove, X: 100, Y: 0, Timestamp: 100},
			{Type: models.PointerClick, X: 100, Y: 0, Timestamp: 200, TargetID: "btn", Interactive: true},
		},
		"visibility": []models.VisibilityEvent{{Hidden: true, Timestamp: 300}},
	}
	require.Equal(t, http.StatusOK,
		doJSON(t, r, http.MethodPost, "/track/events", "user-1", batch).Code)

	w := doJSON(t, r, http.MethodGet, "/track/scores", "user-1", nil)
	require.Equal(t, http.StatusOK, w.Code)

	var resp struct {
		Scores     models.Scores `json:"scores"`
		FocusScore float64       `json:"focusScore"`
	}
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
	// One tab switch knocks 3 off the fresh-session focus score.
	assert.InDelta(t, 57, resp.FocusScore, 1e-9)

	_, err := m.Engine("user-1").EndSession(context.Background(), engine.EndParams{})
	require.NoError(t, err)
}

func TestTrack_InteractionQuizAndBreak(t *testing.T) {
	r, m := newTestRouter(t)
	require.Equal(t, http.StatusOK,
		doJSON(t, r, http.MethodPost, "/track/session/start", "user-1", startBody()).Code)

	w := doJSON(t, r, http.MethodPost, "/track/interaction", "user-1", map[string]any{
		"contentBlockId": "block-1",
		"timeSpentMs":    35000,
		"completed":      true,
	})
	assert.Equal(t, http.StatusOK, w.Code)

	w = doJSON(t, r, http.MethodPost, "/track/quiz", "user-1", models.QuizPerformance{Correct: false})
	assert.Equal(t, http.StatusOK, w.Code)

	w = doJSON(t, r, http.MethodPost, "/track/break", "user-1", nil)
	assert.Equal(t, http.StatusOK, w.Code)

	_, err := m.Engine("user-1").EndSession(context.Background(), engine.EndParams{})
	require.NoError(t, err)
}

func TestTrack_OperationsWithoutSessionConflict(t *testing.T) {
	r, _ := newTestRouter(t)
	w := doJSON(t, r, http.MethodPost, "/track/quiz", "user-1", models.QuizPerformance{Correct: true})
	assert.Equal(t, http.StatusConflict, w.Code)

	w = doJSON(t, r, http.MethodPost, "/track/session/end", "user-1", map[string]any{})
	assert.Equal(t, http.StatusConflict, w.Code)
}

func TestTrack_EndSessionReturnsFocusScore(t *testing.T) {
	r, _ := newTestRouter(t)
	require.Equal(t, http.StatusOK,
		doJSON(t, r, http.MethodPost, "/track/session/start", "user-1", startBody()).Code)

	w := doJSON(t, r, http.MethodPost, "/track/session/end", "user-1", map[string]any{
		"lessonCompleted": true,
	})
	require.Equal(t, http.StatusOK, w.Code)

	var resp map[string]float64
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
	_, ok := resp["focusScore"]
	assert.True(t, ok)
}

func TestTrack_InterventionPollDrainsMailbox(t *testing.T) {
	r, m := newTestRouter(t)
	w := doJSON(t, r, http.MethodGet, "/track/intervention", "user-1", nil)
	assert.Equal(t, http.StatusNoContent, w.Code)

	m.Engine("user-1").Mailbox().Post(models.Intervention{
		Type:     models.InterventionBreak,
		Priority: models.PriorityHigh,
		Message:  "pause",
	})

	w = doJSON(t, r, http.MethodGet, "/track/intervention", "user-1", nil)
	require.Equal(t, http.StatusOK, w.Code)
	var iv models.Intervention
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &iv))
	assert.Equal(t, "pause", iv.Message)

	w = doJSON(t, r, http.MethodGet, "/track/intervention", "user-1", nil)
	assert.Equal(t, http.StatusNoContent, w.Code)
}

func TestConsent_RoundTrip(t *testing.T) {
	r, _ := newTestRouter(t)

	w := doJSON(t, r, http.MethodGet, "/track/consent", "user-1", nil)
	require.Equal(t, http.StatusOK, w.Code)
	var perms models.Permissions
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &perms))
	assert.True(t, perms.MouseTracking)
	assert.False(t, perms.Microphone)

	w = doJSON(t, r, http.MethodPost, "/track/consent", "user-1", models.Permissions{
		Microphone:    true,
		MouseTracking: true,
	})
	require.Equal(t, http.StatusOK, w.Code)

	w = doJSON(t, r, http.MethodGet, "/track/consent", "user-1", nil)
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &perms))
	assert.True(t, perms.Microphone)
}

func TestStream_DeliversConnectedAndIntervention(t *testing.T) {
	r, m := newTestRouter(t)
	srv := httptest.NewServer(r)
	defer srv.Close()

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, srv.URL+"/track/stream", nil)
	require.NoError(t, err)
	req.Header.Set("X-User-ID", "user-1")

	resp, err := http.DefaultClient.Do(req)
	require.NoError(t, err)
	defer resp.Body.Close()
	require.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Contains(t, resp.Header.Get("Content-Type"), "text/event-stream")

	reader := bufio.NewReader(resp.Body)
	readEvent := func() models.PushEnvelope {
		for {
			line, err := reader.ReadString('\n')
			require.NoError(t, err)
			line = strings.TrimSpace(line)
			if !strings.HasPrefix(line, "data:") {
				continue
			}
			var env models.PushEnvelope
			require.NoError(t, json.Unmarshal([]byte(strings.TrimSpace(strings.TrimPrefix(line, "data:"))), &env))
			return env
		}
	}

	env := readEvent()
	assert.Equal(t, "connected", env.Type)

	m.Engine("user-1").Mailbox().Post(models.Intervention{
		Type:     models.InterventionCalming,
		Priority: models.PriorityHigh,
		Message:  "breathe",
	})

	env = readEvent()
	require.Equal(t, "intervention", env.Type)
	require.NotNil(t, env.Data)
	require.NotNil(t, env.Data.Intervention)
	assert.Equal(t, "breathe", env.Data.Intervention.Message)
}

func TestTrack_StudyEventRoutes(t *testing.T) {
	r, m := newTestRouter(t)
	w := doJSON(t, r, http.MethodPost, "/track/pause", "user-1", nil)
	assert.Equal(t, http.StatusConflict, w.Code)

	require.Equal(t, http.StatusOK,
		doJSON(t, r, http.MethodPost, "/track/session/start", "user-1", startBody()).Code)

	for _, path := range []string{"/track/reread", "/track/help", "/track/pause"} {
		w = doJSON(t, r, http.MethodPost, path, "user-1", nil)
		assert.Equal(t, http.StatusOK, w.Code, path)
	}

	_, err := m.Engine("user-1").EndSession(context.Background(), engine.EndParams{})
	require.NoError(t, err)
}
