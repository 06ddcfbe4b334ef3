// Package search is a small in-memory index over FAQ entries. It backs the
// offline fallback responder: a free-form question is answered with the
// closest FAQ answer when the match is good enough.
//
// The index is immutable after construction and safe for concurrent use.
// Scoring is Jaccard similarity between the query token set and an entry's
// token set: score = |Q ∩ E| / |Q ∪ E|. Ties sort by shorter answer, then
// lexically, so results are deterministic.
package search

import (
	"io"
	"os"
	"regexp"
	"sort"
	"strings"
	"unicode/utf8"
)

// Result is a ranked entry with its similarity score.
type Result struct {
	Entry Entry
	Score float64
}

// Option configures an Index.
type Option func(*config)

type config struct {
	stopwords  map[string]struct{}
	maxEntries int
}

func defaultConfig() config {
	return config{stopwords: defaultStopwords()}
}

// WithStopwords replaces the default English stop-word list. An empty list
// disables stop-word removal.
func WithStopwords(words []string) Option {
	return func(c *config) {
		m := make(map[string]struct{}, len(words))
		for _, w := range words {
			w = strings.ToLower(strings.TrimSpace(w))
			if w != "" {
				m[w] = struct{}{}
			}
		}
		c.stopwords = m
	}
}

// WithMaxEntries caps how many entries are indexed.
func WithMaxEntries(n int) Option {
	return func(c *config) {
		if n > 0 {
			c.maxEntries = n
		}
	}
}

func defaultStopwords() map[string]struct{} {
	words := []string{
		"a", "an", "and", "are", "can", "do", "does", "for", "how", "i", "in",
		"is", "it", "me", "my", "of", "on", "or", "the", "to", "what", "when",
		"where", "which", "with", "you", "your",
	}
	m := make(map[string]struct{}, len(words))
	for _, w := range words {
		m[w] = struct{}{}
	}
	return m
}

type doc struct {
	entry  Entry
	tokens map[string]struct{}
}

// Index ranks FAQ entries against free-form queries.
type Index struct {
	cfg  config
	docs []doc
}

// LoadFAQ parses the Markdown FAQ at path and indexes it.
func LoadFAQ(path string, opts ...Option) (*Index, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer f.Close()
	return NewIndexFromReader(f, opts...)
}

// NewIndexFromReader parses Markdown from r with ParseFAQ and indexes it.
func NewIndexFromReader(r io.Reader, opts ...Option) (*Index, error) {
	entries, err := ParseFAQ(r)
	if err != nil {
		return nil, err
	}
	return NewIndex(entries, opts...), nil
}

// NewIndex indexes entries. Entries without an answer or without any
// searchable token are skipped.
func NewIndex(entries []Entry, opts ...Option) *Index {
	cfg := defaultConfig()
	for _, o := range opts {
		o(&cfg)
	}
	docs := make([]doc, 0, len(entries))
	for _, e := range entries {
		e.Question = strings.TrimSpace(e.Question)
		e.Answer = strings.TrimSpace(e.Answer)
		if e.Answer == "" {
			continue
		}
		toks := tokenize(e.Question+" "+e.Answer, cfg.stopwords)
		if len(toks) == 0 {
			continue
		}
		docs = append(docs, doc{entry: e, tokens: toks})
		if cfg.maxEntries > 0 && len(docs) >= cfg.maxEntries {
			break
		}
	}
	return &Index{cfg: cfg, docs: docs}
}

// Len reports the number of indexed entries.
func (i *Index) Len() int { return len(i.docs) }

// TopK returns up to k entries with a positive score, best first. k <= 0
// means 3.
func (i *Index) TopK(q string, k int) []Result {
	if len(i.docs) == 0 || strings.TrimSpace(q) == "" {
		return nil
	}
	if k <= 0 {
		k = 3
	}
	qTokens := tokenize(q, i.cfg.stopwords)
	if len(qTokens) == 0 {
		return nil
	}

	type scored struct {
		entry    Entry
		score    float64
		lenRunes int
	}
	buf := make([]scored, 0, min(k*4, len(i.docs)))
	for _, d := range i.docs {
		over := overlap(qTokens, d.tokens)
		if over == 0 {
			continue
		}
		union := float64(len(qTokens) + len(d.tokens) - over)
		buf = append(buf, scored{
			entry:    d.entry,
			score:    float64(over) / union,
			lenRunes: utf8.RuneCountInString(d.entry.Answer),
		})
	}
	if len(buf) == 0 {
		return nil
	}

	sort.SliceStable(buf, func(a, b int) bool {
		if buf[a].score != buf[b].score {
			return buf[a].score > buf[b].score
		}
		if buf[a].lenRunes != buf[b].lenRunes {
			return buf[a].lenRunes < buf[b].lenRunes
		}
		return buf[a].entry.Answer < buf[b].entry.Answer
	})

	k = min(k, len(buf))
	out := make([]Result, k)
	for n := 0; n < k; n++ {
		out[n] = Result{Entry: buf[n].entry, Score: buf[n].score}
	}
	return out
}

// Best returns the top entry when its score reaches threshold.
func (i *Index) Best(q string, threshold float64) (Result, bool) {
	res := i.TopK(q, 1)
	if len(res) == 0 || res[0].Score < threshold {
		return Result{}, false
	}
	return res[0], true
}

var wordRE = regexp.MustCompile(`[\p{L}\p{N}]+`)

func tokenize(s string, stop map[string]struct{}) map[string]struct{} {
	words := wordRE.FindAllString(strings.ToLower(s), -1)
	if len(words) == 0 {
		return nil
	}
	out := make(map[string]struct{}, len(words))
	for _, w := range words {
		if _, skip := stop[w]; skip {
			continue
		}
		out[w] = struct{}{}
	}
	if len(out) == 0 {
		return nil
	}
	return out
}

func overlap(a, b map[string]struct{}) int {
	if len(a) > len(b) {
		a, b = b, a
	}
	n := 0
	for k := range a {
		if _, ok := b[k]; ok {
			n++
		}
	}
	return n
}
