package types

// PublishEventRequest is the body of POST /events.
type PublishEventRequest struct {
	// Module publishing the event.
	// example: eye
	SourceModule string `json:"source_module" example:"eye"`
	// Event type tag.
	// example: vision-detected
	Type string `json:"type" example:"vision-detected"`
	// Event payload data.
	Payload map[string]any `json:"payload"`
}

// VisionFrameRequest is the body of POST /vision/frame.
type VisionFrameRequest struct {
	// Base64-encoded image data, optionally with a data URL prefix.
	Frame string `json:"frame"`
}

// VisionFrameResponse reports what a frame produced and how long it took.
type VisionFrameResponse struct {
	// Events appended to the log while the frame was processed.
	EventsGenerated []Event `json:"events_generated"`
	// Wall-clock processing time in milliseconds.
	// example: 42.7
	ProcessingTimeMs float64 `json:"processing_time_ms" example:"42.7"`
}

// AudioChunkRequest is the body of POST /audio/chunk.
type AudioChunkRequest struct {
	// Base64-encoded audio data.
	Audio string `json:"audio"`
}

// AudioChunkResponse mirrors VisionFrameResponse for the voice-input path.
type AudioChunkResponse struct {
	EventsGenerated []Event `json:"events_generated"`
	// example: 12.3
	ProcessingTimeMs float64 `json:"processing_time_ms" example:"12.3"`
}

// ModulesResponse wraps the list returned by GET /modules.
type ModulesResponse struct {
	Modules []ModuleInfo `json:"modules"`
}

// ErrorResponse is a consistent JSON error payload.
type ErrorResponse struct {
	// Machine-readable error category.
	// example: ValidationError
	ErrorType string `json:"error_type" example:"ValidationError"`
	// Human-readable message.
	// example: unknown event type: foo
	Message string `json:"message" example:"unknown event type: foo"`
	// Optional extra context.
	Details map[string]any `json:"details,omitempty"`
}
