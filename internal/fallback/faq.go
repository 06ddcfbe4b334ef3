package fallback

import (
	"context"

	"github.com/tbourn/go-printshop-assistant/internal/dialogue"
	"github.com/tbourn/go-printshop-assistant/internal/search"
)

// FAQ answers from a local FAQ index. Queries whose best match scores below
// the threshold go to next, or fail with ErrNoAnswer when next is nil.
type FAQ struct {
	idx       *search.Index
	threshold float64
	next      dialogue.Responder
}

// NewFAQ builds an FAQ responder.
func NewFAQ(idx *search.Index, threshold float64, next dialogue.Responder) *FAQ {
	return &FAQ{idx: idx, threshold: threshold, next: next}
}

func (f *FAQ) Respond(ctx context.Context, text string) (string, error) {
	if err := ctx.Err(); err != nil {
		return "", err
	}
	if f.idx != nil {
		if best, ok := f.idx.Best(text, f.threshold); ok {
			return best.Entry.Answer, nil
		}
	}
	if f.next != nil {
		return f.next.Respond(ctx, text)
	}
	return "", ErrNoAnswer
}
