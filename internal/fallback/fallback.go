// Package fallback answers free-form user text the dialogue cannot handle:
// questions outside the menu flow. Every implementation satisfies
// dialogue.Responder and reports a blank model answer as
// dialogue.ErrEmptyReply; the engine bounds each call with a timeout and
// turns any error into an apology.
package fallback

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/tbourn/go-printshop-assistant/internal/config"
	"github.com/tbourn/go-printshop-assistant/internal/dialogue"
	"github.com/tbourn/go-printshop-assistant/internal/search"
)

// ErrNoAnswer is returned by FAQ when nothing matches well enough and there
// is no next responder.
var ErrNoAnswer = errors.New("fallback: no answer")

// DefaultSystemPrompt frames LLM answers when LLM_SYSTEM_PROMPT is unset.
const DefaultSystemPrompt = "You are the customer assistant of an online print shop selling business cards, " +
	"flyers, banners, stickers and stationery. Answer briefly in plain text (at most three sentences). " +
	"If the question is about browsing products or checking an order, tell the user to pick an option from the menu."

// New builds the responder selected by cfg.Provider.
func New(ctx context.Context, cfg config.FallbackConfig) (dialogue.Responder, error) {
	llm := cfg.LLM
	if strings.TrimSpace(llm.SystemPrompt) == "" {
		llm.SystemPrompt = DefaultSystemPrompt
	}

	switch cfg.Provider {
	case config.FallbackStatic, "":
		return NewStatic(""), nil
	case config.FallbackFAQ:
		idx, err := search.LoadFAQ(cfg.FAQPath)
		if err != nil {
			return nil, fmt.Errorf("load faq %q: %w", cfg.FAQPath, err)
		}
		return NewFAQ(idx, cfg.FAQThreshold, NewStatic("")), nil
	case config.FallbackOpenAI:
		return NewOpenAI(llm), nil
	case config.FallbackGemini:
		g, err := NewGemini(ctx, llm)
		if err != nil {
			return nil, err
		}
		return g, nil
	}
	return nil, fmt.Errorf("unknown fallback provider %q", cfg.Provider)
}
