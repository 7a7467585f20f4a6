package modules

import (
	"context"
	"errors"
	"sync"
	"testing"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"chimerad/internal/registry"
	"chimerad/pkg/types"
)

type fakeSynth struct {
	mu     sync.Mutex
	spoken []string
	err    error
}

func (f *fakeSynth) Speak(_ context.Context, text string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.err != nil {
		return f.err
	}
	f.spoken = append(f.spoken, text)
	return nil
}

func (f *fakeSynth) Spoken() []string {
	f.mu.Lock()
	defer f.mu.Unlock()
	return append([]string(nil), f.spoken...)
}

func publishSpeak(t *testing.T, b busPublisher, text string) {
	t.Helper()
	p := types.ActionPayload{Action: "speak", Text: text}
	_, err := b.Publish(types.ModuleBrain, types.EventActionRequested, p.ToPayload())
	require.NoError(t, err)
}

// busPublisher keeps the helper reusable across tests.
type busPublisher interface {
	Publish(source, typ string, payload map[string]any) (types.Event, error)
}

func TestMouth_SpeaksAndReportsCompletion(t *testing.T) {
	b := testBus(t)
	r := registry.New(types.ModuleEar)
	enableSlot(t, r, types.ModuleMouth)
	fs := &fakeSynth{}
	NewMouth(b, r, zerolog.Nop(), fs)

	publishSpeak(t, b, "good morning")

	ev := waitEvent(t, b, types.EventSpeechFinished)
	assert.Equal(t, types.ModuleMouth, ev.SourceModule)
	assert.Equal(t, "good morning", ev.Payload["text"])
	assert.Contains(t, ev.Payload, "duration_ms")
	assert.Equal(t, []string{"good morning"}, fs.Spoken())
}

func TestMouth_DisabledStaysSilent(t *testing.T) {
	b := testBus(t)
	r := registry.New(types.ModuleEar)
	fs := &fakeSynth{}
	NewMouth(b, r, zerolog.Nop(), fs)

	publishSpeak(t, b, "nobody hears this")

	requireNoEvent(t, b, types.EventSpeechFinished)
	assert.Empty(t, fs.Spoken())
}

func TestMouth_IgnoresOtherActions(t *testing.T) {
	b := testBus(t)
	r := registry.New(types.ModuleEar)
	enableSlot(t, r, types.ModuleMouth)
	fs := &fakeSynth{}
	NewMouth(b, r, zerolog.Nop(), fs)

	p := types.ActionPayload{Action: "fetch", URL: "http://example.com"}
	_, err := b.Publish(types.ModuleBrain, types.EventActionRequested, p.ToPayload())
	require.NoError(t, err)

	requireNoEvent(t, b, types.EventSpeechFinished)
	assert.Empty(t, fs.Spoken())
}

func TestMouth_SynthFailureBecomesActionFailed(t *testing.T) {
	b := testBus(t)
	r := registry.New(types.ModuleEar)
	enableSlot(t, r, types.ModuleMouth)
	fs := &fakeSynth{err: errors.New("no audio device")}
	NewMouth(b, r, zerolog.Nop(), fs)

	publishSpeak(t, b, "hello")

	ev := waitEvent(t, b, types.EventActionFailed)
	assert.Equal(t, types.ModuleMouth, ev.SourceModule)
	assert.Equal(t, "speak", ev.Payload["action"])
	assert.Contains(t, ev.Payload["error"], "no audio device")
	requireNoEvent(t, b, types.EventSpeechFinished)
}
