package bus

import (
	"sync"

	"github.com/tommytrillva/memecoinbot/pkg/logger"
)

// Topic multicasts values of one type to its subscribers.
// Subscribers are copied out under the lock and invoked without it, so a
// subscriber may publish or subscribe again from inside its callback.
type Topic[T any] struct {
	name string
	log  logger.Logger

	mu   sync.Mutex
	subs []func(T)
}

// NewTopic creates a topic. The name only appears in logs.
func NewTopic[T any](name string, log logger.Logger) *Topic[T] {
	return &Topic[T]{name: name, log: logger.OrDiscard(log)}
}

// Subscribe registers fn for every later Publish. A nil fn is ignored.
func (t *Topic[T]) Subscribe(fn func(T)) {
	if fn == nil {
		return
	}
	t.mu.Lock()
	t.subs = append(t.subs, fn)
	t.mu.Unlock()
}

// Len returns the number of subscribers.
func (t *Topic[T]) Len() int {
	t.mu.Lock()
	defer t.mu.Unlock()
	return len(t.subs)
}

// Publish delivers v to every subscriber in subscription order on the calling goroutine.
// A panicking subscriber is logged and skipped.
func (t *Topic[T]) Publish(v T) {
	t.mu.Lock()
	subs := make([]func(T), len(t.subs))
	copy(subs, t.subs)
	t.mu.Unlock()

	for i, fn := range subs {
		t.deliver(i, fn, v)
	}
}

func (t *Topic[T]) deliver(idx int, fn func(T), v T) {
	defer func() {
		if r := recover(); r != nil {
			t.log.Errorf("bus: subscriber %d of %s panicked: %v", idx, t.name, r)
		}
	}()
	fn(v)
}
