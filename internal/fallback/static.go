package fallback

import "context"

// DefaultStaticText is the canned help answer.
const DefaultStaticText = "I can help you browse our print products or check an order. " +
	"Pick an option below, or send us a complaint and our team will get back to you."

// Static always answers with the same text.
type Static struct {
	text string
}

// NewStatic returns a Static responder; an empty text means DefaultStaticText.
func NewStatic(text string) *Static {
	if text == "" {
		text = DefaultStaticText
	}
	return &Static{text: text}
}

func (s *Static) Respond(ctx context.Context, _ string) (string, error) {
	if err := ctx.Err(); err != nil {
		return "", err
	}
	return s.text, nil
}
