package modules

import (
	"context"
	"fmt"
	"time"

	openai "github.com/openai/openai-go/v3"
	"github.com/openai/openai-go/v3/option"
	"github.com/rs/zerolog"

	"chimerad/internal/bus"
	"chimerad/internal/registry"
	"chimerad/pkg/types"
)

const defaultCompleteTimeout = 15 * time.Second

const brainSystemPrompt = `You are the reasoning module of a modular assistant.
You receive short observations (someone appeared on camera, a spoken phrase).
Reply with a single short sentence to be spoken aloud. No markdown, no lists.`

// Completer produces a spoken response for an observation. Implemented by
// the OpenAI client; tests use fakes.
type Completer interface {
	Complete(ctx context.Context, prompt string) (string, error)
}

// OpenAICompleter calls the OpenAI chat completions API.
type OpenAICompleter struct {
	client openai.Client
	model  string
}

// NewOpenAICompleter builds a completer for the given API key. model falls
// back to gpt-4o-mini when empty.
func NewOpenAICompleter(apiKey, model string) OpenAICompleter {
	if model == "" {
		model = "gpt-4o-mini"
	}
	return OpenAICompleter{
		client: openai.NewClient(option.WithAPIKey(apiKey)),
		model:  model,
	}
}

func (c OpenAICompleter) Complete(ctx context.Context, prompt string) (string, error) {
	resp, err := c.client.Chat.Completions.New(ctx, openai.ChatCompletionNewParams{
		Messages: []openai.ChatCompletionMessageParamUnion{
			openai.SystemMessage(brainSystemPrompt),
			openai.UserMessage(prompt),
		},
		Model: openai.ChatModel(c.model),
	})
	if err != nil {
		return "", fmt.Errorf("chat completion: %w", err)
	}
	if len(resp.Choices) == 0 {
		return "", fmt.Errorf("no choices in response")
	}
	content := resp.Choices[0].Message.Content
	if content == "" {
		return "", fmt.Errorf("empty message content")
	}
	return content, nil
}

// Brain reacts to vision and audio events with an action-requested event
// carrying the text to speak. A nil completer is the degraded mode used
// when no API key is configured; it turns triggers into error events.
type Brain struct {
	bus       *bus.Bus
	reg       *registry.Registry
	log       zerolog.Logger
	completer Completer
	timeout   time.Duration
}

// BrainOption configures a Brain.
type BrainOption func(*Brain)

// WithCompleteTimeout overrides the per-completion timeout.
func WithCompleteTimeout(d time.Duration) BrainOption {
	return func(b *Brain) {
		if d > 0 {
			b.timeout = d
		}
	}
}

// NewBrain builds the reasoning adapter and subscribes it under the brain
// slot. completer may be nil.
func NewBrain(b *bus.Bus, reg *registry.Registry, log zerolog.Logger, completer Completer, opts ...BrainOption) *Brain {
	br := &Brain{
		bus:       b,
		reg:       reg,
		log:       log.With().Str("module", types.ModuleBrain).Logger(),
		completer: completer,
		timeout:   defaultCompleteTimeout,
	}
	for _, o := range opts {
		o(br)
	}
	b.Subscribe(types.ModuleBrain, br.onEvent)
	return br
}

func (b *Brain) onEvent(ev types.Event) error {
	var prompt string
	switch ev.Type {
	case types.EventVisionDetected:
		p := types.VisionFrom(ev.Payload)
		if !p.Detected {
			return nil
		}
		prompt = fmt.Sprintf("A person appeared in front of the camera (confidence %.2f). Greet them briefly.", p.Confidence)
	case types.EventAudioCaptured:
		p := types.AudioFrom(ev.Payload)
		if p.Transcript == "" {
			return nil
		}
		prompt = p.Transcript
	default:
		return nil
	}

	if !enabled(b.reg, types.ModuleBrain) {
		return nil
	}
	if b.completer == nil {
		publishError(b.bus, b.log, types.ModuleBrain, "ProcessingError", "no LLM client configured", false)
		return nil
	}

	ctx, cancel := context.WithTimeout(context.Background(), b.timeout)
	defer cancel()
	text, err := b.completer.Complete(ctx, prompt)
	if err != nil {
		b.log.Warn().Err(err).Str("trigger", ev.Type).Msg("completion failed")
		publishError(b.bus, b.log, types.ModuleBrain, "ProcessingError", "llm completion: "+err.Error(), true)
		return nil
	}

	if !enabled(b.reg, types.ModuleBrain) {
		// Disabled while the completion was in flight; drop the stale result.
		return nil
	}
	p := types.ActionPayload{Action: "speak", Text: text}
	if _, err := b.bus.Publish(types.ModuleBrain, types.EventActionRequested, p.ToPayload()); err != nil {
		b.log.Error().Err(err).Msg("publish action event")
	}
	return nil
}
