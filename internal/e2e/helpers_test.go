package e2e

import (
	"bytes"
	"context"
	"encoding/base64"
	"encoding/json"
	"image"
	"image/color"
	"image/png"
	"io"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/rs/zerolog"

	"chimerad/internal/core"
	"chimerad/internal/httpapi"
	"chimerad/pkg/types"
)

type scriptedCompleter struct{ reply string }

func (c scriptedCompleter) Complete(context.Context, string) (string, error) {
	return c.reply, nil
}

type silentSynth struct{}

func (silentSynth) Speak(context.Context, string) error { return nil }

type scriptedTranscriber struct{ transcript string }

func (tr scriptedTranscriber) Transcribe(context.Context, []byte) (string, error) {
	return tr.transcript, nil
}

// newServer starts an httptest server over a full system wired with
// scripted adapter backends.
func newServer(t *testing.T, opts core.Options) (*httptest.Server, *core.System) {
	t.Helper()
	opts.Logger = zerolog.Nop()
	sys := core.New(opts)
	t.Cleanup(sys.Close)
	srv := httptest.NewServer(httpapi.NewMux(sys))
	t.Cleanup(srv.Close)
	return srv, sys
}

func httpGet(t *testing.T, url string) (*http.Response, []byte) {
	t.Helper()
	req, err := http.NewRequestWithContext(context.Background(), http.MethodGet, url, nil)
	if err != nil {
		t.Fatalf("new req: %v", err)
	}
	resp, err := http.DefaultClient.Do(req)
	if err != nil {
		t.Fatalf("do req: %v", err)
	}
	body, _ := io.ReadAll(resp.Body)
	_ = resp.Body.Close()
	return resp, body
}

func httpPostJSON(t *testing.T, url string, payload []byte) (*http.Response, []byte) {
	t.Helper()
	req, err := http.NewRequestWithContext(context.Background(), http.MethodPost, url, bytes.NewReader(payload))
	if err != nil {
		t.Fatalf("new req: %v", err)
	}
	req.Header.Set("Content-Type", "application/json")
	resp, err := http.DefaultClient.Do(req)
	if err != nil {
		t.Fatalf("do req: %v", err)
	}
	body, _ := io.ReadAll(resp.Body)
	_ = resp.Body.Close()
	return resp, body
}

func toggle(t *testing.T, base, id string) {
	t.Helper()
	resp, body := httpPostJSON(t, base+"/modules/"+id+"/toggle", nil)
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("toggle %s: %d %s", id, resp.StatusCode, string(body))
	}
}

func whiteFrameB64(t *testing.T) string {
	t.Helper()
	img := image.NewRGBA(image.Rect(0, 0, 32, 32))
	for y := 0; y < 32; y++ {
		for x := 0; x < 32; x++ {
			img.Set(x, y, color.White)
		}
	}
	var buf bytes.Buffer
	if err := png.Encode(&buf, img); err != nil {
		t.Fatalf("encode png: %v", err)
	}
	return base64.StdEncoding.EncodeToString(buf.Bytes())
}

func eventTypes(events []types.Event) map[string]int {
	out := map[string]int{}
	for _, ev := range events {
		out[ev.Type]++
	}
	return out
}

func decodeEvents(t *testing.T, body []byte) []types.Event {
	t.Helper()
	var events []types.Event
	if err := json.Unmarshal(body, &events); err != nil {
		t.Fatalf("decode events: %v body=%s", err, string(body))
	}
	return events
}
