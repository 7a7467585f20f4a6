package bus

import (
	"sync"

	"chimerad/pkg/types"
)

// subscription owns one subscriber's FIFO queue. The bus enqueues under its
// own lock; a dedicated goroutine drains, so deliveries to one subscriber
// never run concurrently with each other.
type subscription struct {
	key string
	fn  Handler

	mu     sync.Mutex
	cond   *sync.Cond
	queue  []types.Event
	closed bool
}

func newSubscription(key string, fn Handler) *subscription {
	s := &subscription{key: key, fn: fn}
	s.cond = sync.NewCond(&s.mu)
	return s
}

func (s *subscription) enqueue(ev types.Event) {
	s.mu.Lock()
	if !s.closed {
		s.queue = append(s.queue, ev)
		s.cond.Signal()
	}
	s.mu.Unlock()
}

// close stops the worker. Queued events are discarded; a callback already
// running is allowed to finish.
func (s *subscription) close() {
	s.mu.Lock()
	s.closed = true
	s.queue = nil
	s.cond.Signal()
	s.mu.Unlock()
}

func (s *subscription) run(deliver func(key string, fn Handler, ev types.Event)) {
	for {
		s.mu.Lock()
		for len(s.queue) == 0 && !s.closed {
			s.cond.Wait()
		}
		if s.closed {
			s.mu.Unlock()
			return
		}
		ev := s.queue[0]
		s.queue = s.queue[1:]
		s.mu.Unlock()
		deliver(s.key, s.fn, ev)
	}
}
