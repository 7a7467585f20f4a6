package modules

import (
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"chimerad/internal/registry"
	"chimerad/pkg/types"
)

func publishFetch(t *testing.T, b busPublisher, url string) {
	t.Helper()
	p := types.ActionPayload{Action: "fetch", URL: url}
	_, err := b.Publish(types.ModuleBrain, types.EventActionRequested, p.ToPayload())
	require.NoError(t, err)
}

func TestTentacle_FetchReportsCompletion(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write([]byte("hello world"))
	}))
	defer srv.Close()

	b := testBus(t)
	r := registry.New(types.ModuleTentacle)
	enableSlot(t, r, types.ModuleTentacle)
	NewTentacle(b, r, zerolog.Nop(), WithHTTPClient(srv.Client()))

	publishFetch(t, b, srv.URL)

	ev := waitEvent(t, b, types.EventActionFinished)
	assert.Equal(t, types.ModuleTentacle, ev.SourceModule)
	assert.Equal(t, srv.URL, ev.Payload["url"])
	assert.Equal(t, http.StatusOK, ev.Payload["status"])
	assert.Equal(t, int64(len("hello world")), ev.Payload["content_length"])
}

func TestTentacle_DisabledDoesNothing(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		t.Error("server should not be reached when tentacle is disabled")
	}))
	defer srv.Close()

	b := testBus(t)
	r := registry.New(types.ModuleTentacle)
	NewTentacle(b, r, zerolog.Nop(), WithHTTPClient(srv.Client()))

	publishFetch(t, b, srv.URL)

	requireNoEvent(t, b, types.EventActionFinished)
	requireNoEvent(t, b, types.EventActionFailed)
}

func TestTentacle_MissingURLFails(t *testing.T) {
	b := testBus(t)
	r := registry.New(types.ModuleTentacle)
	enableSlot(t, r, types.ModuleTentacle)
	NewTentacle(b, r, zerolog.Nop())

	p := types.ActionPayload{Action: "fetch"}
	_, err := b.Publish(types.ModuleBrain, types.EventActionRequested, p.ToPayload())
	require.NoError(t, err)

	ev := waitEvent(t, b, types.EventActionFailed)
	assert.Contains(t, ev.Payload["error"], "missing url")
}

func TestTentacle_UnreachableHostFails(t *testing.T) {
	b := testBus(t)
	r := registry.New(types.ModuleTentacle)
	enableSlot(t, r, types.ModuleTentacle)
	NewTentacle(b, r, zerolog.Nop())

	publishFetch(t, b, "http://127.0.0.1:1/unreachable")

	ev := waitEvent(t, b, types.EventActionFailed)
	assert.Equal(t, "fetch", ev.Payload["action"])
	assert.Contains(t, ev.Payload["error"], "fetch: ")
}
