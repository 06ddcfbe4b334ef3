package fallback

import (
	"context"
	"fmt"
	"strings"

	"github.com/cloudwego/eino-ext/components/model/gemini"
	"github.com/cloudwego/eino/components/model"
	"github.com/cloudwego/eino/schema"
	"google.golang.org/genai"

	"github.com/tbourn/go-printshop-assistant/internal/config"
	"github.com/tbourn/go-printshop-assistant/internal/dialogue"
)

const defaultGeminiModel = "gemini-2.0-flash"

// generator is the part of an eino chat model used here.
type generator interface {
	Generate(ctx context.Context, input []*schema.Message, opts ...model.Option) (*schema.Message, error)
}

// Gemini answers through an eino chat model backed by the Gemini API.
type Gemini struct {
	model        generator
	systemPrompt string
}

// NewGemini creates the genai client and wraps it in an eino chat model.
func NewGemini(ctx context.Context, cfg config.LLMConfig) (*Gemini, error) {
	client, err := genai.NewClient(ctx, &genai.ClientConfig{
		APIKey:  cfg.GeminiKey,
		Backend: genai.BackendGeminiAPI,
	})
	if err != nil {
		return nil, fmt.Errorf("gemini client: %w", err)
	}

	name := cfg.Model
	if name == "" {
		name = defaultGeminiModel
	}
	temperature := cfg.Temperature
	maxTokens := cfg.MaxTokens
	cm, err := gemini.NewChatModel(ctx, &gemini.Config{
		Client:      client,
		Model:       name,
		Temperature: &temperature,
		MaxTokens:   &maxTokens,
	})
	if err != nil {
		return nil, fmt.Errorf("gemini chat model: %w", err)
	}
	return newGemini(cm, cfg.SystemPrompt), nil
}

func newGemini(g generator, systemPrompt string) *Gemini {
	return &Gemini{model: g, systemPrompt: systemPrompt}
}

func (g *Gemini) Respond(ctx context.Context, text string) (string, error) {
	msg, err := g.model.Generate(ctx, []*schema.Message{
		schema.SystemMessage(g.systemPrompt),
		schema.UserMessage(text),
	})
	if err != nil {
		return "", fmt.Errorf("gemini generate: %w", err)
	}
	if msg == nil {
		return "", dialogue.ErrEmptyReply
	}
	out := strings.TrimSpace(msg.Content)
	if out == "" {
		return "", dialogue.ErrEmptyReply
	}
	return out, nil
}
