package modules

import (
	"bytes"
	"encoding/base64"
	"image"
	"image/color"
	"image/png"
	"testing"
	"time"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/require"

	"chimerad/internal/bus"
	"chimerad/internal/registry"
	"chimerad/pkg/types"
)

func testBus(t *testing.T) *bus.Bus {
	t.Helper()
	b := bus.New(zerolog.Nop())
	t.Cleanup(b.Close)
	return b
}

func enableSlot(t *testing.T, r *registry.Registry, id string) {
	t.Helper()
	m, err := r.Toggle(id)
	require.NoError(t, err)
	require.True(t, m.Enabled)
}

func eventsOfType(b *bus.Bus, typ string) []types.Event {
	var out []types.Event
	for _, ev := range b.All() {
		if ev.Type == typ {
			out = append(out, ev)
		}
	}
	return out
}

// waitEvent polls the log until an event of typ appears.
func waitEvent(t *testing.T, b *bus.Bus, typ string) types.Event {
	t.Helper()
	deadline := time.Now().Add(2 * time.Second)
	for time.Now().Before(deadline) {
		if evs := eventsOfType(b, typ); len(evs) > 0 {
			return evs[0]
		}
		time.Sleep(2 * time.Millisecond)
	}
	t.Fatalf("no %s event within deadline; log: %+v", typ, b.All())
	return types.Event{}
}

// requireNoEvent asserts that no event of typ shows up in a settle window.
func requireNoEvent(t *testing.T, b *bus.Bus, typ string) {
	t.Helper()
	time.Sleep(50 * time.Millisecond)
	require.Empty(t, eventsOfType(b, typ))
}

// framePNG returns a base64 PNG of a 32x32 frame filled with c.
func framePNG(t *testing.T, c color.Color) string {
	t.Helper()
	img := image.NewRGBA(image.Rect(0, 0, 32, 32))
	for y := 0; y < 32; y++ {
		for x := 0; x < 32; x++ {
			img.Set(x, y, c)
		}
	}
	var buf bytes.Buffer
	require.NoError(t, png.Encode(&buf, img))
	return base64.StdEncoding.EncodeToString(buf.Bytes())
}
