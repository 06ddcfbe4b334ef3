package fallback

import (
	"context"
	"fmt"
	"strings"

	"github.com/openai/openai-go"
	"github.com/openai/openai-go/option"

	"github.com/tbourn/go-printshop-assistant/internal/config"
	"github.com/tbourn/go-printshop-assistant/internal/dialogue"
)

const defaultOpenAIModel = openai.ChatModelGPT4oMini

// chatCompleter is the slice of the OpenAI client used here.
type chatCompleter interface {
	New(ctx context.Context, body openai.ChatCompletionNewParams, opts ...option.RequestOption) (*openai.ChatCompletion, error)
}

// OpenAI answers with a single chat completion.
type OpenAI struct {
	chat         chatCompleter
	model        string
	systemPrompt string
	temperature  float64
	maxTokens    int64
}

// NewOpenAI builds a responder from cfg. Retries are left to the caller's
// timeout, so the client does not retry on its own.
func NewOpenAI(cfg config.LLMConfig) *OpenAI {
	client := openai.NewClient(option.WithAPIKey(cfg.OpenAIKey), option.WithMaxRetries(0))
	return newOpenAI(&client.Chat.Completions, cfg)
}

func newOpenAI(chat chatCompleter, cfg config.LLMConfig) *OpenAI {
	model := cfg.Model
	if model == "" {
		model = defaultOpenAIModel
	}
	return &OpenAI{
		chat:         chat,
		model:        model,
		systemPrompt: cfg.SystemPrompt,
		temperature:  float64(cfg.Temperature),
		maxTokens:    int64(cfg.MaxTokens),
	}
}

func (o *OpenAI) Respond(ctx context.Context, text string) (string, error) {
	params := openai.ChatCompletionNewParams{
		Model: o.model,
		Messages: []openai.ChatCompletionMessageParamUnion{
			openai.SystemMessage(o.systemPrompt),
			openai.UserMessage(text),
		},
		Temperature: openai.Float(o.temperature),
	}
	if o.maxTokens > 0 {
		params.MaxTokens = openai.Int(o.maxTokens)
	}

	resp, err := o.chat.New(ctx, params)
	if err != nil {
		return "", fmt.Errorf("openai chat completion: %w", err)
	}
	if resp == nil || len(resp.Choices) == 0 {
		return "", dialogue.ErrEmptyReply
	}
	out := strings.TrimSpace(resp.Choices[0].Message.Content)
	if out == "" {
		return "", dialogue.ErrEmptyReply
	}
	return out, nil
}
