package types

// ModuleInfo describes one pluggable capability slot. Only Enabled mutates,
// exclusively through the registry's Toggle.
type ModuleInfo struct {
	// Stable slot identifier.
	// example: eye
	ID string `json:"id" example:"eye"`
	// Human-readable name.
	// example: Eye Module
	Name string `json:"name" example:"Eye Module"`
	// What the module does.
	// example: Vision module that detects faces or objects from webcam input
	Description string `json:"description" example:"Vision module that detects faces or objects from webcam input"`
	// Whether the module currently processes events.
	// example: false
	Enabled bool `json:"enabled" example:"false"`
	// Static capability tags, informational only.
	// example: ["face_detection","vision_processing"]
	Capabilities []string `json:"capabilities"`
}
