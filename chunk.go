package factextract

import (
	"strings"
	"unicode"
	"unicode/utf8"
)

// DefaultChunkSize is the default number of characters per top-level unit.
const DefaultChunkSize = 5000

// DefaultSeparators are tried in order: paragraphs, lines, sentence endings,
// clause punctuation, words, and finally single characters.
var DefaultSeparators = []string{"\n\n", "\n", ". ", "! ", "? ", "; ", ", ", " ", ""}

// Chunker splits text into units no larger than a character budget, preferring
// the earliest separator in its list that occurs in the text.
type Chunker struct {
	size       int
	separators []string
}

// ChunkerOption configures a Chunker.
type ChunkerOption func(*Chunker)

// WithSeparators replaces the separator preference list. An empty string
// separator (split anywhere) is always appended if missing.
func WithSeparators(seps ...string) ChunkerOption {
	return func(c *Chunker) {
		if len(seps) == 0 {
			return
		}
		c.separators = append([]string(nil), seps...)
		if c.separators[len(c.separators)-1] != "" {
			c.separators = append(c.separators, "")
		}
	}
}

// NewChunker returns a Chunker with the given budget in characters. A
// non-positive size falls back to DefaultChunkSize.
func NewChunker(size int, opts ...ChunkerOption) *Chunker {
	if size <= 0 {
		size = DefaultChunkSize
	}
	c := &Chunker{size: size, separators: DefaultSeparators}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// ChunkText splits text with the default separators.
func ChunkText(text string, maxChars int) []string {
	return NewChunker(maxChars).SplitText(text)
}

// Size returns the configured budget.
func (c *Chunker) Size() int { return c.size }

// SplitText returns text unchanged when it fits the budget. Otherwise the
// pieces are trimmed of boundary whitespace; joined back together they contain
// every non-whitespace character of text in order. A piece may exceed the
// budget only by the trailing whitespace of its last separator.
func (c *Chunker) SplitText(text string) []string {
	if utf8.RuneCountInString(text) <= c.size {
		return []string{text}
	}
	return c.split(text, c.separators)
}

// Split is SplitText wrapped into top-level units.
func (c *Chunker) Split(text string) []Unit {
	chunks := c.SplitText(text)
	units := make([]Unit, len(chunks))
	for i, chunk := range chunks {
		units[i] = newTopLevelUnit(chunk, i)
	}
	return units
}

func (c *Chunker) split(text string, seps []string) []string {
	sep, rest := "", []string(nil)
	for i, s := range seps {
		if s == "" || strings.Contains(text, s) {
			sep, rest = s, seps[i+1:]
			break
		}
	}

	var pieces []string
	if sep == "" {
		pieces = splitRunes(text)
	} else {
		pieces = strings.SplitAfter(text, sep)
	}

	var out, pending []string
	for _, p := range pieces {
		if measure(p) <= c.size {
			pending = append(pending, p)
			continue
		}
		if len(pending) > 0 {
			out = append(out, c.merge(pending)...)
			pending = nil
		}
		if len(rest) == 0 {
			if s := strings.TrimSpace(p); s != "" {
				out = append(out, s)
			}
			continue
		}
		out = append(out, c.split(p, rest)...)
	}
	if len(pending) > 0 {
		out = append(out, c.merge(pending)...)
	}
	return out
}

// merge greedily packs consecutive pieces into chunks within the budget.
func (c *Chunker) merge(pieces []string) []string {
	var (
		out []string
		cur strings.Builder
		n   int // runes in cur
	)
	flush := func() {
		if s := strings.TrimSpace(cur.String()); s != "" {
			out = append(out, s)
		}
		cur.Reset()
		n = 0
	}
	for _, p := range pieces {
		if n > 0 && n+utf8.RuneCountInString(strings.TrimRightFunc(p, unicode.IsSpace)) > c.size {
			flush()
		}
		cur.WriteString(p)
		n += utf8.RuneCountInString(p)
	}
	flush()
	return out
}

func measure(s string) int {
	return utf8.RuneCountInString(strings.TrimSpace(s))
}

func splitRunes(s string) []string {
	out := make([]string, 0, utf8.RuneCountInString(s))
	for len(s) > 0 {
		_, n := utf8.DecodeRuneInString(s)
		out = append(out, s[:n])
		s = s[n:]
	}
	return out
}
