package types

import "time"

// Module slot identifiers. The set is fixed at startup; SourceSystem is the
// sentinel for events originated by the runtime itself rather than a module.
const (
	ModuleEye      = "eye"
	ModuleBrain    = "brain"
	ModuleMouth    = "mouth"
	ModuleEar      = "ear"
	ModuleTentacle = "tentacle"

	SourceSystem = "system"
)

// Event type tags. Publish rejects anything outside this set.
const (
	EventVisionDetected     = "vision-detected"
	EventAudioCaptured      = "audio-captured"
	EventActionRequested    = "action-requested"
	EventSpeechFinished     = "speech-finished"
	EventActionFinished     = "action-finished"
	EventActionFailed       = "action-failed"
	EventModuleStateChanged = "module-state-changed"
	EventError              = "error"
)

var knownEventTypes = map[string]struct{}{
	EventVisionDetected:     {},
	EventAudioCaptured:      {},
	EventActionRequested:    {},
	EventSpeechFinished:     {},
	EventActionFinished:     {},
	EventActionFailed:       {},
	EventModuleStateChanged: {},
	EventError:              {},
}

// KnownEventType reports whether t is a recognized event type tag.
func KnownEventType(t string) bool {
	_, ok := knownEventTypes[t]
	return ok
}

// EventTypes returns the recognized event type tags in stable order.
func EventTypes() []string {
	return []string{
		EventVisionDetected,
		EventAudioCaptured,
		EventActionRequested,
		EventSpeechFinished,
		EventActionFinished,
		EventActionFailed,
		EventModuleStateChanged,
		EventError,
	}
}

// Event is one immutable occurrence on the bus. ID and Timestamp are assigned
// by the bus at publish time, never by the caller.
type Event struct {
	// Unique event id (UUID v4).
	// example: 7b0d3a4e-91ad-4a1c-b1be-8f2f8fb2a931
	ID string `json:"id" example:"7b0d3a4e-91ad-4a1c-b1be-8f2f8fb2a931"`
	// Module slot that produced the event, or "system".
	// example: eye
	SourceModule string `json:"source_module" example:"eye"`
	// Event type tag.
	// example: vision-detected
	Type string `json:"type" example:"vision-detected"`
	// Time the bus accepted the event (monotonic non-decreasing across the log).
	Timestamp time.Time `json:"timestamp"`
	// Type-specific data; opaque to the bus.
	Payload map[string]any `json:"payload"`
}
