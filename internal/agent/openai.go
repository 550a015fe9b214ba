package agent

import (
	"context"
	"fmt"

	"github.com/openai/openai-go"
	"github.com/openai/openai-go/option"
)

// OpenAIFactory creates agents backed by OpenAI chat completion models.
type OpenAIFactory struct {
	client     *openai.Client
	model      string
	windowSize int
}

// NewOpenAIFactory creates a factory for the given API key and default model.
func NewOpenAIFactory(apiKey, model string, windowSize int) (*OpenAIFactory, error) {
	if apiKey == "" {
		return nil, fmt.Errorf("API key is required")
	}
	if model == "" {
		return nil, fmt.Errorf("model name is required")
	}

	client := openai.NewClient(option.WithAPIKey(apiKey))

	return &OpenAIFactory{
		client:     &client,
		model:      model,
		windowSize: windowSize,
	}, nil
}

// NewAgent creates a fresh agent seeded with the given preamble.
func (f *OpenAIFactory) NewAgent(preamble string) Agent {
	return &openAIAgent{
		client:   f.client,
		model:    f.model,
		preamble: preamble,
		memory:   NewWindowMemory(f.windowSize),
	}
}

type openAIAgent struct {
	client   *openai.Client
	model    string
	preamble string
	memory   *WindowMemory
}

func (a *openAIAgent) Prompt(ctx context.Context, input string) (string, error) {
	turns := a.memory.Turns()
	messages := make([]openai.ChatCompletionMessageParamUnion, 0, len(turns)+2)
	messages = append(messages, openai.SystemMessage(a.preamble))
	for _, turn := range turns {
		switch turn.Role {
		case RoleAssistant:
			messages = append(messages, openai.AssistantMessage(turn.Content))
		default:
			messages = append(messages, openai.UserMessage(turn.Content))
		}
	}
	messages = append(messages, openai.UserMessage(input))

	completion, err := a.client.Chat.Completions.New(ctx, openai.ChatCompletionNewParams{
		Model:    a.model,
		Messages: messages,
	})
	if err != nil {
		return "", fmt.Errorf("openai API error: %w", err)
	}
	if len(completion.Choices) == 0 {
		return "", fmt.Errorf("openai returned no choices")
	}

	reply := completion.Choices[0].Message.Content

	a.memory.Add(RoleUser, input)
	a.memory.Add(RoleAssistant, reply)

	return reply, nil
}
