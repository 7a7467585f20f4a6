package modules

import (
	"bytes"
	"context"
	"encoding/base64"
	"fmt"
	"image"
	"strings"
	"sync"
	"time"

	// Frame decoding for the formats browsers actually send.
	_ "image/jpeg"
	_ "image/png"

	"github.com/rs/zerolog"

	"chimerad/internal/bus"
	"chimerad/internal/registry"
	"chimerad/pkg/types"
)

// defaultPublishInterval suppresses redundant same-state vision events.
const defaultPublishInterval = 5 * time.Second

// Detector turns a decoded frame into a detection result. The default is a
// deterministic brightness threshold; real CV backends plug in here.
type Detector interface {
	Detect(img image.Image) (types.VisionPayload, error)
}

// BrightnessDetector reports a detection when the frame's mean luminance
// crosses Threshold (0..1). It has no localization, so the bounding box
// covers the whole frame.
type BrightnessDetector struct {
	Threshold float64
}

func (d BrightnessDetector) Detect(img image.Image) (types.VisionPayload, error) {
	bounds := img.Bounds()
	if bounds.Empty() {
		return types.VisionPayload{}, fmt.Errorf("empty frame")
	}
	const stride = 8
	var sum, n float64
	for y := bounds.Min.Y; y < bounds.Max.Y; y += stride {
		for x := bounds.Min.X; x < bounds.Max.X; x += stride {
			r, g, b, _ := img.At(x, y).RGBA()
			// Rec. 601 luma, 16-bit channels normalized to 0..1.
			sum += (0.299*float64(r) + 0.587*float64(g) + 0.114*float64(b)) / 65535.0
			n++
		}
	}
	mean := sum / n
	threshold := d.Threshold
	if threshold <= 0 {
		threshold = 0.45
	}
	detected := mean >= threshold
	conf := mean / threshold / 2
	if detected {
		conf = 0.5 + (mean-threshold)/(1-threshold)/2
	}
	if conf > 1 {
		conf = 1
	}
	p := types.VisionPayload{Detected: detected, Confidence: conf}
	if detected {
		p.BoundingBox = &types.BoundingBox{
			X:      bounds.Min.X,
			Y:      bounds.Min.Y,
			Width:  bounds.Dx(),
			Height: bounds.Dy(),
		}
	}
	return p, nil
}

// Eye is the vision adapter. It decodes base64 frames handed in by the HTTP
// layer and publishes vision-detected events.
type Eye struct {
	bus *bus.Bus
	reg *registry.Registry
	log zerolog.Logger
	det Detector

	mu          sync.Mutex
	hasLast     bool
	lastState   bool
	lastPublish time.Time
	minInterval time.Duration
}

// EyeOption configures an Eye.
type EyeOption func(*Eye)

// WithDetector replaces the default brightness detector.
func WithDetector(d Detector) EyeOption {
	return func(e *Eye) { e.det = d }
}

// WithPublishInterval overrides the redundant-event suppression window.
func WithPublishInterval(d time.Duration) EyeOption {
	return func(e *Eye) { e.minInterval = d }
}

// NewEye builds the vision adapter and subscribes it under the eye slot.
func NewEye(b *bus.Bus, reg *registry.Registry, log zerolog.Logger, opts ...EyeOption) *Eye {
	e := &Eye{
		bus:         b,
		reg:         reg,
		log:         log.With().Str("module", types.ModuleEye).Logger(),
		det:         BrightnessDetector{},
		minInterval: defaultPublishInterval,
	}
	for _, o := range opts {
		o(e)
	}
	b.Subscribe(types.ModuleEye, e.onEvent)
	return e
}

// onEvent resets the suppression state when the eye slot is toggled, so the
// first frame after a re-enable always publishes.
func (e *Eye) onEvent(ev types.Event) error {
	if ev.Type != types.EventModuleStateChanged {
		return nil
	}
	if id, _ := ev.Payload["module_id"].(string); id != types.ModuleEye {
		return nil
	}
	e.mu.Lock()
	e.hasLast = false
	e.lastPublish = time.Time{}
	e.mu.Unlock()
	return nil
}

// ProcessFrame runs one base64-encoded frame through detection. Disabled
// slot means no work and no events; failures become error events.
func (e *Eye) ProcessFrame(ctx context.Context, frame string) {
	if !enabled(e.reg, types.ModuleEye) {
		return
	}
	img, err := decodeFrame(frame)
	if err != nil {
		e.log.Warn().Err(err).Msg("frame decode failed")
		publishError(e.bus, e.log, types.ModuleEye, "ProcessingError", "decode frame: "+err.Error(), false)
		return
	}
	if ctx.Err() != nil {
		return
	}
	det, err := e.det.Detect(img)
	if err != nil {
		publishError(e.bus, e.log, types.ModuleEye, "ProcessingError", "detect: "+err.Error(), false)
		return
	}

	e.mu.Lock()
	skip := e.hasLast && det.Detected == e.lastState && time.Since(e.lastPublish) < e.minInterval
	if !skip {
		e.hasLast = true
		e.lastState = det.Detected
		e.lastPublish = time.Now()
	}
	e.mu.Unlock()
	if skip {
		return
	}

	// Re-check right before publishing to minimize stale output after a
	// mid-flight disable.
	if !enabled(e.reg, types.ModuleEye) {
		return
	}
	if _, err := e.bus.Publish(types.ModuleEye, types.EventVisionDetected, det.ToPayload()); err != nil {
		e.log.Error().Err(err).Msg("publish vision event")
	}
}

// decodeFrame strips an optional data URL prefix, base64-decodes and decodes
// the image.
func decodeFrame(frame string) (image.Image, error) {
	frame = strings.TrimSpace(frame)
	if strings.HasPrefix(frame, "data:") {
		if i := strings.IndexByte(frame, ','); i >= 0 {
			frame = frame[i+1:]
		}
	}
	raw, err := base64.StdEncoding.DecodeString(frame)
	if err != nil {
		return nil, fmt.Errorf("base64 decode: %w", err)
	}
	img, _, err := image.Decode(bytes.NewReader(raw))
	if err != nil {
		return nil, fmt.Errorf("image decode: %w", err)
	}
	return img, nil
}
