// Package registry is the single source of truth for which module slots are
// active. Slots are fixed at construction; only the enabled flag mutates.
package registry

import (
	"sync"

	"chimerad/pkg/types"
)

// Notifier receives state-change signals so collaborators (the bus, and
// through it any UI) can react. Implementations must be lightweight; the
// registry never calls StateChanged while holding its own lock.
type Notifier interface {
	StateChanged(moduleID string, enabled bool)
}

// noopNotifier is the default; it drops signals.
type noopNotifier struct{}

func (noopNotifier) StateChanged(string, bool) {}

// Registry tracks the fixed module slots and their enabled flags.
type Registry struct {
	mu       sync.Mutex
	order    []string
	modules  map[string]*types.ModuleInfo
	notifier Notifier
}

// slotDef is the static metadata for one slot.
type slotDef struct {
	id, name, description string
	capabilities          []string
}

var slotDefs = map[string]slotDef{
	types.ModuleEye: {
		id:           types.ModuleEye,
		name:         "Eye Module",
		description:  "Vision module that detects faces or objects from webcam input",
		capabilities: []string{"face_detection", "object_detection", "vision_processing"},
	},
	types.ModuleBrain: {
		id:           types.ModuleBrain,
		name:         "Brain Module",
		description:  "Reasoning module that interprets events and plans responses using LLM",
		capabilities: []string{"llm_reasoning", "context_analysis", "action_planning"},
	},
	types.ModuleMouth: {
		id:           types.ModuleMouth,
		name:         "Mouth Module",
		description:  "Voice output module that converts text to speech",
		capabilities: []string{"text_to_speech", "voice_output"},
	},
	types.ModuleEar: {
		id:           types.ModuleEar,
		name:         "Ear Module",
		description:  "Voice input module that listens to microphone and converts speech to text",
		capabilities: []string{"speech_recognition", "voice_input", "audio_processing"},
	},
	types.ModuleTentacle: {
		id:           types.ModuleTentacle,
		name:         "Tentacle Module",
		description:  "Web action module that performs browser and HTTP actions",
		capabilities: []string{"web_action", "http_fetch"},
	},
}

// New builds a registry with the eye, brain and mouth slots plus fourthSlot
// ("ear" or "tentacle"; anything else falls back to "ear"). Every slot
// starts disabled.
func New(fourthSlot string) *Registry {
	if fourthSlot != types.ModuleTentacle {
		fourthSlot = types.ModuleEar
	}
	r := &Registry{
		modules:  make(map[string]*types.ModuleInfo),
		notifier: noopNotifier{},
	}
	for _, id := range []string{types.ModuleEye, types.ModuleBrain, types.ModuleMouth, fourthSlot} {
		def := slotDefs[id]
		r.order = append(r.order, id)
		r.modules[id] = &types.ModuleInfo{
			ID:           def.id,
			Name:         def.name,
			Description:  def.description,
			Enabled:      false,
			Capabilities: append([]string(nil), def.capabilities...),
		}
	}
	return r
}

// SetNotifier installs the state-change notifier (typically the bus).
func (r *Registry) SetNotifier(n Notifier) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if n == nil {
		n = noopNotifier{}
	}
	r.notifier = n
}

// All returns every slot in fixed construction order.
func (r *Registry) All() []types.ModuleInfo {
	r.mu.Lock()
	defer r.mu.Unlock()
	out := make([]types.ModuleInfo, 0, len(r.order))
	for _, id := range r.order {
		out = append(out, copyInfo(r.modules[id]))
	}
	return out
}

// Get returns the slot for id; unknown ids report IsModuleNotFound.
func (r *Registry) Get(id string) (types.ModuleInfo, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	m, ok := r.modules[id]
	if !ok {
		return types.ModuleInfo{}, moduleNotFoundError{id: id}
	}
	return copyInfo(m), nil
}

// Toggle flips the enabled flag for id and returns the updated record.
// The notifier is invoked after the registry lock is released, so the bus
// may consult the registry from delivery callbacks without deadlocking.
func (r *Registry) Toggle(id string) (types.ModuleInfo, error) {
	r.mu.Lock()
	m, ok := r.modules[id]
	if !ok {
		r.mu.Unlock()
		return types.ModuleInfo{}, moduleNotFoundError{id: id}
	}
	m.Enabled = !m.Enabled
	out := copyInfo(m)
	n := r.notifier
	r.mu.Unlock()

	n.StateChanged(out.ID, out.Enabled)
	return out, nil
}

// Enabled reports whether id is enabled; unknown ids report IsModuleNotFound.
func (r *Registry) Enabled(id string) (bool, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	m, ok := r.modules[id]
	if !ok {
		return false, moduleNotFoundError{id: id}
	}
	return m.Enabled, nil
}

func copyInfo(m *types.ModuleInfo) types.ModuleInfo {
	out := *m
	out.Capabilities = append([]string(nil), m.Capabilities...)
	return out
}
