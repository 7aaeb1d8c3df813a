package models

// Capture events carry the raw samples delivered by the learner's UI.
// Timestamps are in milliseconds on the client's monotonic-ish clock
// (performance.now style), so all derived durations stay in client time
// and never mix with server wall-clock time.

const (
	PointerMove  = "move"
	PointerEnter = "enter"
	PointerLeave = "leave"
	PointerClick = "click"
)

type PointerEvent struct {
	Type      string  `json:"type" binding:"required"`
	X         float64 `json:"x"`
	Y         float64 `json:"y"`
	Timestamp float64 `json:"timestamp"`
	// TargetID identifies the element under the pointer for enter/leave/click.
	TargetID string `json:"targetId,omitempty"`
	// Interactive is true when the click target is a button, link, input or
	// has an interactive role (or an ancestor does). Clicks elsewhere are
	// classified as miss-clicks.
	Interactive bool `json:"interactive,omitempty"`
}

type ScrollEvent struct {
	Position  float64 `json:"position"`
	Timestamp float64 `json:"timestamp"`
}

// SpeechEvent is one speech-to-text result. Interim results only feed
// activity detection; final results contribute words, fillers and samples.
type SpeechEvent struct {
	Transcript string  `json:"transcript"`
	Confidence float64 `json:"confidence"`
	IsFinal    bool    `json:"isFinal"`
	Timestamp  float64 `json:"timestamp"`
}

// SpeechEndEvent marks the recognizer reporting end of an utterance.
type SpeechEndEvent struct {
	Timestamp float64 `json:"timestamp"`
}

// AudioLevelEvent is one frequency-domain analysis tick. Bin magnitudes
// are in the 0-255 range the audio analyser emits.
type AudioLevelEvent struct {
	Bins      []float64 `json:"bins"`
	Timestamp float64   `json:"timestamp"`
}

// GazePoint is one estimated gaze position in screen coordinates.
type GazePoint struct {
	X         float64 `json:"x"`
	Y         float64 `json:"y"`
	Timestamp float64 `json:"timestamp"`
}

// VisibilityEvent reports the lesson tab being hidden or shown.
type VisibilityEvent struct {
	Hidden    bool    `json:"hidden"`
	Timestamp float64 `json:"timestamp"`
}

// Rect is an axis-aligned screen region, used for the registered content
// area, the viewport and content-block bounds.
type Rect struct {
	X      float64 `json:"x"`
	Y      float64 `json:"y"`
	Width  float64 `json:"width"`
	Height float64 `json:"height"`
}

// Contains reports whether the point lies inside the rectangle.
func (r Rect) Contains(x, y float64) bool {
	return x >= r.X && x <= r.X+r.Width && y >= r.Y && y <= r.Y+r.Height
}

// ContentBlock is an addressable unit of lesson content with its on-screen
// bounds, used as the key for gaze attention accumulation.
type ContentBlock struct {
	ID     string `json:"id" binding:"required"`
	Bounds Rect   `json:"bounds"`
}
