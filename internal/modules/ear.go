package modules

import (
	"context"
	"encoding/base64"
	"time"

	"github.com/rs/zerolog"

	"chimerad/internal/bus"
	"chimerad/internal/registry"
	"chimerad/pkg/types"
)

const defaultTranscribeTimeout = 20 * time.Second

// Transcriber converts captured audio to text. Real STT backends plug in
// here; a nil transcriber is the degraded mode when none is configured.
type Transcriber interface {
	Transcribe(ctx context.Context, audio []byte) (string, error)
}

// Ear is the voice-input adapter. Audio chunks arrive from the HTTP layer;
// recognized speech is published as audio-captured events for the brain.
type Ear struct {
	bus *bus.Bus
	reg *registry.Registry
	log zerolog.Logger
	tr  Transcriber

	timeout time.Duration
}

// EarOption configures an Ear.
type EarOption func(*Ear)

// WithTranscribeTimeout overrides the per-chunk timeout.
func WithTranscribeTimeout(d time.Duration) EarOption {
	return func(e *Ear) {
		if d > 0 {
			e.timeout = d
		}
	}
}

// NewEar builds the voice-input adapter. tr may be nil.
func NewEar(b *bus.Bus, reg *registry.Registry, log zerolog.Logger, tr Transcriber, opts ...EarOption) *Ear {
	e := &Ear{
		bus:     b,
		reg:     reg,
		log:     log.With().Str("module", types.ModuleEar).Logger(),
		tr:      tr,
		timeout: defaultTranscribeTimeout,
	}
	for _, o := range opts {
		o(e)
	}
	return e
}

// ProcessAudio runs one base64-encoded audio chunk through transcription.
// Disabled slot means no work and no events; failures become error events.
func (e *Ear) ProcessAudio(ctx context.Context, audioB64 string) {
	if !enabled(e.reg, types.ModuleEar) {
		return
	}
	raw, err := base64.StdEncoding.DecodeString(audioB64)
	if err != nil {
		publishError(e.bus, e.log, types.ModuleEar, "ProcessingError", "decode audio: "+err.Error(), false)
		return
	}
	if e.tr == nil {
		publishError(e.bus, e.log, types.ModuleEar, "ProcessingError", "no transcriber configured", false)
		return
	}

	tctx, cancel := context.WithTimeout(ctx, e.timeout)
	defer cancel()
	transcript, err := e.tr.Transcribe(tctx, raw)
	if err != nil {
		e.log.Warn().Err(err).Msg("transcription failed")
		publishError(e.bus, e.log, types.ModuleEar, "ProcessingError", "transcribe: "+err.Error(), true)
		return
	}
	if transcript == "" {
		return
	}

	if !enabled(e.reg, types.ModuleEar) {
		return
	}
	p := types.AudioPayload{Transcript: transcript}
	if _, err := e.bus.Publish(types.ModuleEar, types.EventAudioCaptured, p.ToPayload()); err != nil {
		e.log.Error().Err(err).Msg("publish audio event")
	}
}
