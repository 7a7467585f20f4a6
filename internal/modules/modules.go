// Package modules contains the adapters that wrap each capability slot: eye
// (vision), brain (reasoning), mouth (speech output), ear (voice input) and
// tentacle (web action). Adapters share one contract: consult the registry
// before doing any work, talk to the rest of the system only through the
// bus, and convert every internal failure into an error-typed event instead
// of letting it escape. An adapter stays subscribed after a failure.
package modules

import (
	"github.com/rs/zerolog"

	"chimerad/internal/bus"
	"chimerad/internal/registry"
	"chimerad/pkg/types"
)

// enabled reports whether the slot is present and switched on.
func enabled(reg *registry.Registry, id string) bool {
	on, err := reg.Enabled(id)
	return err == nil && on
}

// publishError converts an adapter failure into an error event on the bus.
func publishError(b *bus.Bus, log zerolog.Logger, source, errorType, msg string, recoverable bool) {
	p := types.ErrorPayload{ErrorType: errorType, Message: msg, Recoverable: recoverable}
	if _, err := b.Publish(source, types.EventError, p.ToPayload()); err != nil {
		log.Error().Err(err).Str("module", source).Msg("failed to publish error event")
	}
}
