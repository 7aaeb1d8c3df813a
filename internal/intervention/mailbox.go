package intervention

import (
	"sync"

	"learnpulse/internal/models"
)

// Mailbox is the single sink shared by the two intervention delivery
// paths (batch response and push channel). Resolution policy is last
// write wins: whichever path posts later overwrites the currently held
// intervention. Take consumes it exactly once.
type Mailbox struct {
	mu      sync.Mutex
	current *models.Intervention
	subs    map[int]chan models.Intervention
	nextSub int
}

// NewMailbox returns an empty mailbox.
func NewMailbox() *Mailbox {
	return &Mailbox{subs: make(map[int]chan models.Intervention)}
}

// Post replaces the held intervention and notifies subscribers. Slow
// subscribers are skipped rather than blocked; the mailbox itself keeps
// only the latest value.
func (mb *Mailbox) Post(iv models.Intervention) {
	mb.mu.Lock()
	defer mb.mu.Unlock()
	copied := iv
	mb.current = &copied
	for _, ch := range mb.subs {
		select {
		case ch <- iv:
		default:
		}
	}
}

// Take returns the held intervention and clears it, or nil when empty.
func (mb *Mailbox) Take() *models.Intervention {
	mb.mu.Lock()
	defer mb.mu.Unlock()
	iv := mb.current
	mb.current = nil
	return iv
}

// Peek returns the held intervention without consuming it.
func (mb *Mailbox) Peek() *models.Intervention {
	mb.mu.Lock()
	defer mb.mu.Unlock()
	if mb.current == nil {
		return nil
	}
	copied := *mb.current
	return &copied
}

// Subscribe registers a buffered listener for posted interventions and
// returns a cancel func. Used by the learner-facing event stream.
func (mb *Mailbox) Subscribe() (<-chan models.Intervention, func()) {
	mb.mu.Lock()
	defer mb.mu.Unlock()
	id := mb.nextSub
	mb.nextSub++
	ch := make(chan models.Intervention, 8)
	mb.subs[id] = ch
	return ch, func() {
		mb.mu.Lock()
		defer mb.mu.Unlock()
		if _, ok := mb.subs[id]; ok {
			delete(mb.subs, id)
			close(ch)
		}
	}
}
