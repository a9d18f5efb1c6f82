package factextract

import (
	"log/slog"
	"sync"

	"github.com/pkoukk/tiktoken-go"
)

// TokenEncoding is the tiktoken encoding used for plan estimates. tiktoken
// downloads it on first use and caches it under TIKTOKEN_CACHE_DIR.
const TokenEncoding = "cl100k_base"

var defaultTokenCounter = newTokenCounter(func() (*tiktoken.Tiktoken, error) {
	return tiktoken.GetEncoding(TokenEncoding)
})

// tokenCounter loads its encoding once, on the first count.
type tokenCounter struct {
	once sync.Once
	load func() (*tiktoken.Tiktoken, error)
	enc  *tiktoken.Tiktoken
}

func newTokenCounter(load func() (*tiktoken.Tiktoken, error)) *tokenCounter {
	return &tokenCounter{load: load}
}

func (c *tokenCounter) encoding() *tiktoken.Tiktoken {
	c.once.Do(func() {
		enc, err := c.load()
		if err != nil {
			slog.Debug("Token encoding unavailable, estimating from length", "encoding", TokenEncoding, "error", err)
			return
		}
		c.enc = enc
	})
	return c.enc
}

func (c *tokenCounter) count(text string) int {
	if text == "" {
		return 0
	}
	if enc := c.encoding(); enc != nil {
		return len(enc.Encode(text, nil, nil))
	}
	return heuristicTokens(text)
}

// heuristicTokens assumes ~4 characters per token for English text.
func heuristicTokens(text string) int {
	return (len(text) + 3) / 4
}
