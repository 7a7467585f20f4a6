package modules

import (
	"context"
	"io"
	"net/http"
	"time"

	"github.com/rs/zerolog"

	"chimerad/internal/bus"
	"chimerad/internal/registry"
	"chimerad/pkg/types"
)

const (
	defaultFetchTimeout = 10 * time.Second
	maxFetchBody        = 1 << 20
)

// Tentacle is the web-action adapter: it executes fetch actions requested on
// the bus and reports the outcome.
type Tentacle struct {
	bus    *bus.Bus
	reg    *registry.Registry
	log    zerolog.Logger
	client *http.Client

	timeout time.Duration
}

// TentacleOption configures a Tentacle.
type TentacleOption func(*Tentacle)

// WithHTTPClient replaces the default HTTP client.
func WithHTTPClient(c *http.Client) TentacleOption {
	return func(t *Tentacle) {
		if c != nil {
			t.client = c
		}
	}
}

// WithFetchTimeout overrides the per-action timeout.
func WithFetchTimeout(d time.Duration) TentacleOption {
	return func(t *Tentacle) {
		if d > 0 {
			t.timeout = d
		}
	}
}

// NewTentacle builds the web-action adapter and subscribes it under the
// tentacle slot.
func NewTentacle(b *bus.Bus, reg *registry.Registry, log zerolog.Logger, opts ...TentacleOption) *Tentacle {
	t := &Tentacle{
		bus:     b,
		reg:     reg,
		log:     log.With().Str("module", types.ModuleTentacle).Logger(),
		client:  &http.Client{},
		timeout: defaultFetchTimeout,
	}
	for _, o := range opts {
		o(t)
	}
	b.Subscribe(types.ModuleTentacle, t.onEvent)
	return t
}

func (t *Tentacle) onEvent(ev types.Event) error {
	if ev.Type != types.EventActionRequested {
		return nil
	}
	action := types.ActionFrom(ev.Payload)
	if action.Action != "fetch" && action.Action != "open-url" {
		return nil
	}
	if !enabled(t.reg, types.ModuleTentacle) {
		return nil
	}
	if action.URL == "" {
		t.fail(action, "missing url")
		return nil
	}

	ctx, cancel := context.WithTimeout(context.Background(), t.timeout)
	defer cancel()
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, action.URL, nil)
	if err != nil {
		t.fail(action, "build request: "+err.Error())
		return nil
	}
	resp, err := t.client.Do(req)
	if err != nil {
		t.fail(action, "fetch: "+err.Error())
		return nil
	}
	defer resp.Body.Close()
	n, _ := io.Copy(io.Discard, io.LimitReader(resp.Body, maxFetchBody))

	if !enabled(t.reg, types.ModuleTentacle) {
		return nil
	}
	payload := map[string]any{
		"action":         action.Action,
		"url":            action.URL,
		"status":         resp.StatusCode,
		"content_length": n,
	}
	if _, err := t.bus.Publish(types.ModuleTentacle, types.EventActionFinished, payload); err != nil {
		t.log.Error().Err(err).Msg("publish action-finished event")
	}
	return nil
}

func (t *Tentacle) fail(action types.ActionPayload, msg string) {
	t.log.Warn().Str("url", action.URL).Str("reason", msg).Msg("web action failed")
	payload := map[string]any{
		"action": action.Action,
		"url":    action.URL,
		"error":  msg,
	}
	if _, err := t.bus.Publish(types.ModuleTentacle, types.EventActionFailed, payload); err != nil {
		t.log.Error().Err(err).Msg("publish action-failed event")
	}
}
