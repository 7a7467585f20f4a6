package types

// Typed payload schemas for the event types adapters exchange. The bus only
// sees the open map form; adapters construct these and convert at the edge.

// BoundingBox locates a detection inside a frame.
type BoundingBox struct {
	X      int `json:"x"`
	Y      int `json:"y"`
	Width  int `json:"width"`
	Height int `json:"height"`
}

// VisionPayload is the payload of a vision-detected event.
type VisionPayload struct {
	Detected    bool
	Confidence  float64
	BoundingBox *BoundingBox
}

func (p VisionPayload) ToPayload() map[string]any {
	m := map[string]any{
		"detected":   p.Detected,
		"confidence": p.Confidence,
	}
	if p.BoundingBox != nil {
		m["bounding_box"] = map[string]any{
			"x":      p.BoundingBox.X,
			"y":      p.BoundingBox.Y,
			"width":  p.BoundingBox.Width,
			"height": p.BoundingBox.Height,
		}
	}
	return m
}

// VisionFrom extracts a VisionPayload from the open map form. The bounding
// box is dropped if malformed rather than failing the whole payload.
func VisionFrom(m map[string]any) VisionPayload {
	var p VisionPayload
	p.Detected, _ = m["detected"].(bool)
	p.Confidence, _ = m["confidence"].(float64)
	if bb, ok := m["bounding_box"].(map[string]any); ok {
		box := &BoundingBox{}
		box.X = intFrom(bb["x"])
		box.Y = intFrom(bb["y"])
		box.Width = intFrom(bb["width"])
		box.Height = intFrom(bb["height"])
		p.BoundingBox = box
	}
	return p
}

// intFrom handles both int (in-process) and float64 (decoded JSON) values.
func intFrom(v any) int {
	switch n := v.(type) {
	case int:
		return n
	case float64:
		return int(n)
	}
	return 0
}

// AudioFrom extracts an AudioPayload from the open map form.
func AudioFrom(m map[string]any) AudioPayload {
	var p AudioPayload
	p.Transcript, _ = m["transcript"].(string)
	return p
}

// AudioPayload is the payload of an audio-captured event.
type AudioPayload struct {
	Transcript string
}

func (p AudioPayload) ToPayload() map[string]any {
	return map[string]any{"transcript": p.Transcript}
}

// ActionPayload is the payload of an action-requested event. Action selects
// the performing module: "speak" targets the mouth, "fetch" the tentacle.
type ActionPayload struct {
	Action string
	Text   string
	URL    string
}

func (p ActionPayload) ToPayload() map[string]any {
	m := map[string]any{"action": p.Action}
	if p.Text != "" {
		m["text"] = p.Text
	}
	if p.URL != "" {
		m["url"] = p.URL
	}
	return m
}

// ActionFrom extracts an ActionPayload from the open map form.
func ActionFrom(m map[string]any) ActionPayload {
	var p ActionPayload
	p.Action, _ = m["action"].(string)
	p.Text, _ = m["text"].(string)
	p.URL, _ = m["url"].(string)
	return p
}

// StatePayload is the payload of a module-state-changed event.
type StatePayload struct {
	ModuleID string
	Enabled  bool
}

func (p StatePayload) ToPayload() map[string]any {
	return map[string]any{"module_id": p.ModuleID, "enabled": p.Enabled}
}

// ErrorPayload is the payload of an error event. Recoverable marks failures
// of external dependencies that may succeed on retry.
type ErrorPayload struct {
	ErrorType   string
	Message     string
	Recoverable bool
}

func (p ErrorPayload) ToPayload() map[string]any {
	return map[string]any{
		"error_type":  p.ErrorType,
		"message":     p.Message,
		"recoverable": p.Recoverable,
	}
}
