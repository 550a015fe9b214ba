package agent

import (
	"context"
	"fmt"

	"github.com/anthropics/anthropic-sdk-go"
	"github.com/anthropics/anthropic-sdk-go/option"
)

const anthropicMaxTokens = 4000

// AnthropicFactory creates agents backed by Anthropic Claude models.
type AnthropicFactory struct {
	client     anthropic.Client
	model      string
	windowSize int
}

// NewAnthropicFactory creates a factory for the given API key and default model.
func NewAnthropicFactory(apiKey, model string, windowSize int) (*AnthropicFactory, error) {
	if apiKey == "" {
		return nil, fmt.Errorf("anthropic API key is required")
	}
	if model == "" {
		return nil, fmt.Errorf("model name is required")
	}

	client := anthropic.NewClient(option.WithAPIKey(apiKey))

	return &AnthropicFactory{
		client:     client,
		model:      model,
		windowSize: windowSize,
	}, nil
}

// NewAgent creates a fresh agent seeded with the given preamble.
func (f *AnthropicFactory) NewAgent(preamble string) Agent {
	return &anthropicAgent{
		client:   f.client,
		model:    f.model,
		preamble: preamble,
		memory:   NewWindowMemory(f.windowSize),
	}
}

type anthropicAgent struct {
	client   anthropic.Client
	model    string
	preamble string
	memory   *WindowMemory
}

func (a *anthropicAgent) Prompt(ctx context.Context, input string) (string, error) {
	turns := a.memory.Turns()
	messages := make([]anthropic.MessageParam, 0, len(turns)+1)
	for _, turn := range turns {
		block := anthropic.NewTextBlock(turn.Content)
		if turn.Role == RoleAssistant {
			messages = append(messages, anthropic.NewAssistantMessage(block))
		} else {
			messages = append(messages, anthropic.NewUserMessage(block))
		}
	}
	messages = append(messages, anthropic.NewUserMessage(anthropic.NewTextBlock(input)))

	msg, err := a.client.Messages.New(ctx, anthropic.MessageNewParams{
		Model:     anthropic.Model(a.model),
		MaxTokens: anthropicMaxTokens,
		System:    []anthropic.TextBlockParam{{Text: a.preamble}},
		Messages:  messages,
	})
	if err != nil {
		return "", fmt.Errorf("anthropic API error: %w", err)
	}

	var reply string
	for _, block := range msg.Content {
		if block.Type == "text" {
			reply += block.Text
		}
	}
	if reply == "" {
		return "", fmt.Errorf("anthropic returned no text content")
	}

	a.memory.Add(RoleUser, input)
	a.memory.Add(RoleAssistant, reply)

	return reply, nil
}
