// Package core wires the bus, registry and module adapters into one system
// and exposes the surface the HTTP layer serves.
package core

import (
	"context"
	"sync/atomic"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"

	"chimerad/internal/bus"
	"chimerad/internal/modules"
	"chimerad/internal/registry"
	"chimerad/pkg/types"
)

// chainSettle is how long the frame/audio endpoints wait for downstream
// adapters (brain, mouth) to react before collecting generated events.
const chainSettle = 100 * time.Millisecond

// Options selects the adapters and their backends.
type Options struct {
	Logger zerolog.Logger
	// FourthSlot is "ear" or "tentacle"; anything else falls back to "ear".
	FourthSlot string
	// Completer may be nil (brain runs degraded and reports errors).
	Completer modules.Completer
	// Synthesizer may be nil (espeak-ng is used).
	Synthesizer modules.Synthesizer
	// Transcriber may be nil (ear runs degraded); only used with the ear slot.
	Transcriber modules.Transcriber
	// Detector may be nil (brightness detector is used).
	Detector modules.Detector
	// LogCapacity overrides the bus log capacity when > 0 (tests).
	LogCapacity int
}

// System owns the core components for one process.
type System struct {
	log zerolog.Logger
	bus *bus.Bus
	reg *registry.Registry

	eye      *modules.Eye
	brain    *modules.Brain
	mouth    *modules.Mouth
	ear      *modules.Ear
	tentacle *modules.Tentacle

	started time.Time
	closed  atomic.Bool
}

// busNotifier publishes registry state changes as module-state-changed
// events; this is the only registry→bus coupling.
type busNotifier struct {
	b   *bus.Bus
	log zerolog.Logger
}

func (n busNotifier) StateChanged(moduleID string, enabled bool) {
	p := types.StatePayload{ModuleID: moduleID, Enabled: enabled}
	if _, err := n.b.Publish(types.SourceSystem, types.EventModuleStateChanged, p.ToPayload()); err != nil {
		n.log.Error().Err(err).Str("module", moduleID).Msg("failed to publish state change")
	}
}

// New builds the system: bus, registry (all slots disabled), adapters.
func New(opts Options) *System {
	var busOpts []bus.Option
	if opts.LogCapacity > 0 {
		busOpts = append(busOpts, bus.WithCapacity(opts.LogCapacity))
	}
	b := bus.New(opts.Logger, busOpts...)

	fourth := opts.FourthSlot
	if fourth != types.ModuleTentacle {
		fourth = types.ModuleEar
	}
	reg := registry.New(fourth)
	reg.SetNotifier(busNotifier{b: b, log: opts.Logger})

	var eyeOpts []modules.EyeOption
	if opts.Detector != nil {
		eyeOpts = append(eyeOpts, modules.WithDetector(opts.Detector))
	}

	s := &System{
		log:     opts.Logger,
		bus:     b,
		reg:     reg,
		eye:     modules.NewEye(b, reg, opts.Logger, eyeOpts...),
		brain:   modules.NewBrain(b, reg, opts.Logger, opts.Completer),
		mouth:   modules.NewMouth(b, reg, opts.Logger, opts.Synthesizer),
		started: time.Now(),
	}
	if fourth == types.ModuleTentacle {
		s.tentacle = modules.NewTentacle(b, reg, opts.Logger)
	} else {
		s.ear = modules.NewEar(b, reg, opts.Logger, opts.Transcriber)
	}
	return s
}

// Bus exposes the broker for collaborators constructed outside the system.
func (s *System) Bus() *bus.Bus { return s.bus }

// Registry exposes the module registry.
func (s *System) Registry() *registry.Registry { return s.reg }

// Modules lists every slot in fixed order.
func (s *System) Modules() []types.ModuleInfo { return s.reg.All() }

// Toggle flips one slot; the state change lands on the bus via the notifier.
func (s *System) Toggle(id string) (types.ModuleInfo, error) { return s.reg.Toggle(id) }

// Publish forwards to the bus.
func (s *System) Publish(source, typ string, payload map[string]any) (types.Event, error) {
	return s.bus.Publish(source, typ, payload)
}

// Recent returns up to limit events, most recent first.
func (s *System) Recent(limit int) []types.Event { return s.bus.Recent(limit) }

// ProcessFrame runs a frame through the eye and collects every event the
// chain generated, with wall-clock latency.
func (s *System) ProcessFrame(ctx context.Context, frame string) types.VisionFrameResponse {
	start := time.Now()
	before := s.bus.Len()
	s.eye.ProcessFrame(ctx, frame)
	// Give chained subscribers (brain, then mouth) a moment to react.
	s.settle(ctx)
	return types.VisionFrameResponse{
		EventsGenerated:  s.eventsSince(before),
		ProcessingTimeMs: float64(time.Since(start)) / float64(time.Millisecond),
	}
}

// ProcessAudio is the voice-input counterpart of ProcessFrame. It fails
// with a not-found error when the ear slot is not configured.
func (s *System) ProcessAudio(ctx context.Context, audio string) (types.AudioChunkResponse, error) {
	if s.ear == nil {
		return types.AudioChunkResponse{}, earNotConfiguredError{}
	}
	start := time.Now()
	before := s.bus.Len()
	s.ear.ProcessAudio(ctx, audio)
	s.settle(ctx)
	return types.AudioChunkResponse{
		EventsGenerated:  s.eventsSince(before),
		ProcessingTimeMs: float64(time.Since(start)) / float64(time.Millisecond),
	}, nil
}

func (s *System) settle(ctx context.Context) {
	select {
	case <-time.After(chainSettle):
	case <-ctx.Done():
	}
}

// eventsSince returns the log entries appended after the first `before`,
// oldest first. Eviction can only shrink the window, never misattribute.
func (s *System) eventsSince(before int) []types.Event {
	all := s.bus.All()
	if before > len(all) {
		before = len(all)
	}
	out := make([]types.Event, len(all)-before)
	copy(out, all[before:])
	return out
}

// Subscribe attaches a streaming consumer (SSE/WebSocket connection) to the
// bus under a fresh key. Events are pushed into the returned channel; slow
// consumers have events dropped rather than stalling the bus. The cancel
// func detaches the consumer; the channel is never closed.
func (s *System) Subscribe() (<-chan types.Event, func()) {
	key := "stream-" + uuid.NewString()
	ch := make(chan types.Event, 64)
	s.bus.Subscribe(key, func(ev types.Event) error {
		select {
		case ch <- ev:
		default:
			s.log.Warn().Str("subscriber", key).Str("event_id", ev.ID).Msg("stream consumer too slow, dropping event")
		}
		return nil
	})
	return ch, func() { s.bus.Unsubscribe(key) }
}

// Ready reports liveness for /readyz.
func (s *System) Ready() bool { return !s.closed.Load() }

// Uptime reports how long the system has been running.
func (s *System) Uptime() time.Duration { return time.Since(s.started) }

// Close shuts the bus down.
func (s *System) Close() {
	if s.closed.CompareAndSwap(false, true) {
		s.bus.Close()
	}
}

// earNotConfiguredError maps to 404: the ear slot is not part of this
// process's configuration.
type earNotConfiguredError struct{}

func (earNotConfiguredError) Error() string { return "ear module not configured" }

// IsNotConfigured reports whether err indicates a slot absent from the
// current configuration.
func IsNotConfigured(err error) bool {
	_, ok := err.(earNotConfiguredError)
	return ok
}
