// Package capture defines the injectable event-source and scoped-resource
// contracts between raw device streams and the aggregators. Production
// traffic arrives over the ingest API; these interfaces exist so embedded
// sources and tests can drive the same pipeline without HTTP.
package capture

import (
	"fmt"
	"sync"
)

// Source delivers a typed event stream. Subscribe returns an unsubscribe
// func; implementations must make unsubscribe idempotent.
type Source[T any] interface {
	Subscribe(fn func(T)) (func(), error)
}

// SyntheticSource is an in-process Source for tests and embedding.
type SyntheticSource[T any] struct {
	mu      sync.Mutex
	subs    map[int]func(T)
	nextSub int
}

// NewSyntheticSource returns an empty source.
func NewSyntheticSource[T any]() *SyntheticSource[T] {
	return &SyntheticSource[T]{subs: make(map[int]func(T))}
}

// Subscribe registers a handler.
func (s *SyntheticSource[T]) Subscribe(fn func(T)) (func(), error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	id := s.nextSub
	s.nextSub++
	s.subs[id] = fn
	var once sync.Once
	return func() {
		once.Do(func() {
			s.mu.Lock()
			defer s.mu.Unlock()
			delete(s.subs, id)
		})
	}, nil
}

// Emit delivers one event synchronously to every subscriber, in line with
// the pipeline's in-process, callback-ordered mutation model.
func (s *SyntheticSource[T]) Emit(ev T) {
	s.mu.Lock()
	fns := make([]func(T), 0, len(s.subs))
	for _, fn := range s.subs {
		fns = append(fns, fn)
	}
	s.mu.Unlock()
	for _, fn := range fns {
		fn(ev)
	}
}

// SubscriberCount reports active subscriptions; tests use it to assert
// scoped cleanup.
func (s *SyntheticSource[T]) SubscriberCount() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.subs)
}

// Resource is a scoped handle around a device-like acquisition (audio
// context, media stream, gaze-provider session, timers). Release is
// idempotent; leaving a resource unreleased leaks device indicators.
type Resource struct {
	name    string
	release func() error
	once    sync.Once
}

// Acquire runs the acquisition and wraps its release func.
func Acquire(name string, acquire func() (release func() error, err error)) (*Resource, error) {
	release, err := acquire()
	if err != nil {
		return nil, fmt.Errorf("acquire %s: %w", name, err)
	}
	return &Resource{name: name, release: release}, nil
}

// Name identifies the resource in logs.
func (r *Resource) Name() string { return r.name }

// Release frees the underlying resource exactly once.
func (r *Resource) Release() error {
	var err error
	r.once.Do(func() {
		if r.release != nil {
			err = r.release()
		}
	})
	return err
}
