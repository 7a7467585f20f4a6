package modules

import (
	"bytes"
	"context"
	"fmt"
	"os/exec"
	"time"

	"github.com/rs/zerolog"

	"chimerad/internal/bus"
	"chimerad/internal/registry"
	"chimerad/pkg/types"
)

const defaultSpeakTimeout = 30 * time.Second

// Synthesizer speaks a line of text. Implemented by espeak-ng; tests use
// fakes.
type Synthesizer interface {
	Speak(ctx context.Context, text string) error
}

// EspeakSynthesizer shells out to espeak-ng for audio output.
type EspeakSynthesizer struct {
	// Binary defaults to "espeak-ng".
	Binary string
	// Voice is passed as -v when set.
	Voice string
}

func (s EspeakSynthesizer) Speak(ctx context.Context, text string) error {
	if text == "" {
		return nil
	}
	bin := s.Binary
	if bin == "" {
		bin = "espeak-ng"
	}
	var args []string
	if s.Voice != "" {
		args = append(args, "-v", s.Voice)
	}
	args = append(args, text)
	out, err := exec.CommandContext(ctx, bin, args...).CombinedOutput()
	if err != nil {
		return fmt.Errorf("espeak: %w (%s)", err, bytes.TrimSpace(out))
	}
	return nil
}

// Mouth turns speak actions into speech and reports completion on the bus.
type Mouth struct {
	bus   *bus.Bus
	reg   *registry.Registry
	log   zerolog.Logger
	synth Synthesizer

	timeout time.Duration
}

// MouthOption configures a Mouth.
type MouthOption func(*Mouth)

// WithSpeakTimeout overrides the per-utterance timeout.
func WithSpeakTimeout(d time.Duration) MouthOption {
	return func(m *Mouth) {
		if d > 0 {
			m.timeout = d
		}
	}
}

// NewMouth builds the speech-output adapter and subscribes it under the
// mouth slot.
func NewMouth(b *bus.Bus, reg *registry.Registry, log zerolog.Logger, synth Synthesizer, opts ...MouthOption) *Mouth {
	m := &Mouth{
		bus:     b,
		reg:     reg,
		log:     log.With().Str("module", types.ModuleMouth).Logger(),
		synth:   synth,
		timeout: defaultSpeakTimeout,
	}
	if m.synth == nil {
		m.synth = EspeakSynthesizer{}
	}
	for _, o := range opts {
		o(m)
	}
	b.Subscribe(types.ModuleMouth, m.onEvent)
	return m
}

func (m *Mouth) onEvent(ev types.Event) error {
	if ev.Type != types.EventActionRequested {
		return nil
	}
	action := types.ActionFrom(ev.Payload)
	if action.Action != "speak" || action.Text == "" {
		return nil
	}
	if !enabled(m.reg, types.ModuleMouth) {
		return nil
	}

	ctx, cancel := context.WithTimeout(context.Background(), m.timeout)
	defer cancel()
	start := time.Now()
	if err := m.synth.Speak(ctx, action.Text); err != nil {
		m.log.Warn().Err(err).Msg("speech synthesis failed")
		payload := map[string]any{
			"action": "speak",
			"error":  err.Error(),
		}
		if _, perr := m.bus.Publish(types.ModuleMouth, types.EventActionFailed, payload); perr != nil {
			m.log.Error().Err(perr).Msg("publish action-failed event")
		}
		return nil
	}

	payload := map[string]any{
		"text":        action.Text,
		"duration_ms": float64(time.Since(start)) / float64(time.Millisecond),
	}
	if _, err := m.bus.Publish(types.ModuleMouth, types.EventSpeechFinished, payload); err != nil {
		m.log.Error().Err(err).Msg("publish speech-finished event")
	}
	return nil
}
