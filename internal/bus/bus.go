package bus

import (
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"

	"chimerad/pkg/types"
)

const (
	// DefaultLogCapacity bounds the in-memory event log.
	DefaultLogCapacity = 1000
	// DefaultRecentLimit applies when Recent is called with limit <= 0.
	DefaultRecentLimit = 50
)

// Handler receives one delivered event. A non-nil error (or a panic) is
// treated as a delivery failure: logged, counted, and otherwise ignored.
type Handler func(types.Event) error

// Bus is the central broker. The zero value is not usable; construct with New.
type Bus struct {
	log zerolog.Logger

	mu sync.Mutex
	// bounded log, ring over buf
	buf   []types.Event
	start int
	count int
	// subscriber table, fan-out in registration order
	subs   map[string]*subscription
	order  []string
	lastTS time.Time
	closed bool
}

// Option configures a Bus.
type Option func(*Bus)

// WithCapacity overrides the bounded log capacity (values < 1 are ignored).
func WithCapacity(n int) Option {
	return func(b *Bus) {
		if n >= 1 {
			b.buf = make([]types.Event, n)
		}
	}
}

// New constructs a Bus with the given structured logger.
func New(log zerolog.Logger, opts ...Option) *Bus {
	b := &Bus{
		log:  log,
		buf:  make([]types.Event, DefaultLogCapacity),
		subs: make(map[string]*subscription),
	}
	for _, o := range opts {
		o(b)
	}
	return b
}

// Publish validates the input, appends a fresh Event to the bounded log and
// schedules delivery to every subscriber present at append time. It returns
// once append and scheduling are done; it never waits for callbacks.
//
// Ordering: if one Publish's append happens before another's, every
// subscriber present for both observes them in that order. A subscriber
// added during delivery does not receive the in-flight event.
func (b *Bus) Publish(source, typ string, payload map[string]any) (types.Event, error) {
	if !types.KnownEventType(typ) {
		return types.Event{}, errUnknownEventType{typ: typ}
	}
	if payload == nil {
		return types.Event{}, errInvalidPayload{reason: "payload must be a non-nil object"}
	}

	b.mu.Lock()
	if b.closed {
		b.mu.Unlock()
		return types.Event{}, errBusClosed{}
	}
	now := time.Now().UTC()
	if now.Before(b.lastTS) {
		// Clock went backwards; keep log timestamps non-decreasing.
		now = b.lastTS
	}
	b.lastTS = now
	ev := types.Event{
		ID:           uuid.NewString(),
		SourceModule: source,
		Type:         typ,
		Timestamp:    now,
		Payload:      payload,
	}
	b.append(ev)
	logSize.Set(float64(b.count))
	// Enqueue under the bus lock so per-subscriber arrival order matches
	// append order even with concurrent publishers. Enqueue is a slice
	// append plus a signal; callbacks run on the subscription's goroutine.
	for _, key := range b.order {
		b.subs[key].enqueue(ev)
	}
	b.mu.Unlock()

	eventsPublished.WithLabelValues(typ).Inc()
	return ev, nil
}

// append adds ev to the ring, evicting the oldest entry when full.
func (b *Bus) append(ev types.Event) {
	if b.count < len(b.buf) {
		b.buf[(b.start+b.count)%len(b.buf)] = ev
		b.count++
		return
	}
	b.buf[b.start] = ev
	b.start = (b.start + 1) % len(b.buf)
}

// Subscribe registers fn under key. A second Subscribe with the same key
// replaces the previous callback: its undelivered queue is dropped and the
// key keeps its fan-out position.
func (b *Bus) Subscribe(key string, fn Handler) {
	b.mu.Lock()
	defer b.mu.Unlock()
	if b.closed {
		return
	}
	if old, ok := b.subs[key]; ok {
		old.close()
	} else {
		b.order = append(b.order, key)
	}
	sub := newSubscription(key, fn)
	b.subs[key] = sub
	go sub.run(b.deliver)
	subscribers.Set(float64(len(b.subs)))
}

// Unsubscribe removes the callback for key; unknown keys are a no-op. Once
// it returns, events queued but not yet delivered to the key are discarded.
func (b *Bus) Unsubscribe(key string) {
	b.mu.Lock()
	defer b.mu.Unlock()
	sub, ok := b.subs[key]
	if !ok {
		return
	}
	sub.close()
	delete(b.subs, key)
	for i, k := range b.order {
		if k == key {
			b.order = append(b.order[:i], b.order[i+1:]...)
			break
		}
	}
	subscribers.Set(float64(len(b.subs)))
}

// deliver invokes one callback with an error boundary. Failures are logged
// with subscriber key and event id; the subscriber stays subscribed.
func (b *Bus) deliver(key string, fn Handler, ev types.Event) {
	defer func() {
		if r := recover(); r != nil {
			deliveryFailures.WithLabelValues(key).Inc()
			b.log.Error().
				Str("subscriber", key).
				Str("event_id", ev.ID).
				Str("event_type", ev.Type).
				Interface("panic", r).
				Msg("subscriber panicked during delivery")
		}
	}()
	if err := fn(ev); err != nil {
		deliveryFailures.WithLabelValues(key).Inc()
		b.log.Error().
			Str("subscriber", key).
			Str("event_id", ev.ID).
			Str("event_type", ev.Type).
			Err(err).
			Msg("subscriber failed during delivery")
	}
}

// Recent returns up to limit most-recently-appended events, most recent
// first. limit <= 0 means DefaultRecentLimit; a limit beyond the log size
// returns the whole log.
func (b *Bus) Recent(limit int) []types.Event {
	if limit <= 0 {
		limit = DefaultRecentLimit
	}
	b.mu.Lock()
	defer b.mu.Unlock()
	n := limit
	if n > b.count {
		n = b.count
	}
	out := make([]types.Event, n)
	for i := 0; i < n; i++ {
		// newest first
		out[i] = b.buf[(b.start+b.count-1-i)%len(b.buf)]
	}
	return out
}

// All returns the whole log in append order (oldest first).
func (b *Bus) All() []types.Event {
	b.mu.Lock()
	defer b.mu.Unlock()
	out := make([]types.Event, b.count)
	for i := 0; i < b.count; i++ {
		out[i] = b.buf[(b.start+i)%len(b.buf)]
	}
	return out
}

// Len reports the current log size.
func (b *Bus) Len() int {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.count
}

// Close stops all subscription workers and rejects further publishes.
func (b *Bus) Close() {
	b.mu.Lock()
	defer b.mu.Unlock()
	if b.closed {
		return
	}
	b.closed = true
	for _, sub := range b.subs {
		sub.close()
	}
	b.subs = make(map[string]*subscription)
	b.order = nil
	subscribers.Set(0)
}
