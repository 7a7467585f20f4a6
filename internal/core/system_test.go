package core

import (
	"context"
	"testing"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"chimerad/pkg/types"
)

type scriptedCompleter struct{ reply string }

func (c scriptedCompleter) Complete(context.Context, string) (string, error) { return c.reply, nil }

type silentSynth struct{}

func (silentSynth) Speak(context.Context, string) error { return nil }

type echoTranscriber struct{ transcript string }

func (e echoTranscriber) Transcribe(context.Context, []byte) (string, error) {
	return e.transcript, nil
}

func newTestSystem(t *testing.T, opts Options) *System {
	t.Helper()
	opts.Logger = zerolog.Nop()
	s := New(opts)
	t.Cleanup(s.Close)
	return s
}

func enable(t *testing.T, s *System, ids ...string) {
	t.Helper()
	for _, id := range ids {
		m, err := s.Toggle(id)
		require.NoError(t, err)
		require.True(t, m.Enabled)
	}
}

func TestToggle_EmitsStateChangeEvent(t *testing.T) {
	s := newTestSystem(t, Options{})
	m, err := s.Toggle(types.ModuleBrain)
	require.NoError(t, err)
	assert.True(t, m.Enabled)

	got, err := s.Registry().Get(types.ModuleBrain)
	require.NoError(t, err)
	assert.True(t, got.Enabled)

	recent := s.Recent(10)
	require.NotEmpty(t, recent)
	ev := recent[0]
	assert.Equal(t, types.EventModuleStateChanged, ev.Type)
	assert.Equal(t, types.SourceSystem, ev.SourceModule)
	assert.Equal(t, types.ModuleBrain, ev.Payload["module_id"])
	assert.Equal(t, true, ev.Payload["enabled"])
}

func TestProcessFrame_FullChain(t *testing.T) {
	s := newTestSystem(t, Options{
		Completer:   scriptedCompleter{reply: "Welcome back."},
		Synthesizer: silentSynth{},
	})
	enable(t, s, types.ModuleEye, types.ModuleBrain, types.ModuleMouth)

	resp := s.ProcessFrame(context.Background(), brightFramePNG(t))
	assert.Greater(t, resp.ProcessingTimeMs, 0.0)

	byType := map[string]types.Event{}
	for _, ev := range resp.EventsGenerated {
		byType[ev.Type] = ev
	}
	require.Contains(t, byType, types.EventVisionDetected)
	require.Contains(t, byType, types.EventActionRequested)
	require.Contains(t, byType, types.EventSpeechFinished)
	assert.Equal(t, "Welcome back.", byType[types.EventActionRequested].Payload["text"])
}

func TestProcessFrame_DisabledEyeGeneratesNothing(t *testing.T) {
	s := newTestSystem(t, Options{})
	resp := s.ProcessFrame(context.Background(), brightFramePNG(t))
	assert.Empty(t, resp.EventsGenerated)
}

func TestProcessAudio_EarSlot(t *testing.T) {
	s := newTestSystem(t, Options{
		FourthSlot:  types.ModuleEar,
		Transcriber: echoTranscriber{transcript: "hello system"},
	})
	enable(t, s, types.ModuleEar)

	resp, err := s.ProcessAudio(context.Background(), audioChunkB64())
	require.NoError(t, err)
	require.NotEmpty(t, resp.EventsGenerated)
	assert.Equal(t, types.EventAudioCaptured, resp.EventsGenerated[0].Type)
	assert.Equal(t, "hello system", resp.EventsGenerated[0].Payload["transcript"])
}

func TestProcessAudio_NotConfiguredWithTentacleSlot(t *testing.T) {
	s := newTestSystem(t, Options{FourthSlot: types.ModuleTentacle})
	_, err := s.ProcessAudio(context.Background(), audioChunkB64())
	require.Error(t, err)
	assert.True(t, IsNotConfigured(err))
}

func TestSubscribe_StreamsPublishedEvents(t *testing.T) {
	s := newTestSystem(t, Options{})
	ch, cancel := s.Subscribe()
	defer cancel()

	want, err := s.Publish("eye", types.EventVisionDetected, map[string]any{"detected": false})
	require.NoError(t, err)

	got := <-ch
	assert.Equal(t, want.ID, got.ID)
}

func TestPublish_ValidationRejected(t *testing.T) {
	s := newTestSystem(t, Options{})
	_, err := s.Publish("eye", "bogus-type", map[string]any{})
	require.Error(t, err)
	assert.Empty(t, s.Recent(10))
}
