package ai

import (
	"sync"
	"sync/atomic"
	"unicode/utf8"

	"github.com/pkoukk/tiktoken-go"
	"github.com/rs/zerolog"

	"content-studio/internal/domain/ports/adapter"
)

var _ adapter.TokenCounter = (*TokenCounter)(nil)

// TokenCounter estimates prompt size with cl100k_base. Loading the encoding
// may hit the network, so it happens in Warm; until then, or when loading
// fails, Count uses ~4 chars per token.
type TokenCounter struct {
	once sync.Once
	enc  atomic.Pointer[tiktoken.Tiktoken]
	load func() (*tiktoken.Tiktoken, error)
	log  *zerolog.Logger
}

func NewTokenCounter(logger *zerolog.Logger) *TokenCounter {
	return &TokenCounter{
		log:  logger,
		load: func() (*tiktoken.Tiktoken, error) { return tiktoken.GetEncoding("cl100k_base") },
	}
}

// Warm loads the encoding once. It blocks; callers run it in the background.
func (c *TokenCounter) Warm() {
	c.once.Do(func() {
		enc, err := c.load()
		if err != nil {
			if c.log != nil {
				c.log.Warn().Err(err).Msg("tiktoken unavailable, using char estimate")
			}
			return
		}
		c.enc.Store(enc)
	})
}

func (c *TokenCounter) Count(text string) int {
	if text == "" {
		return 0
	}
	if enc := c.enc.Load(); enc != nil {
		return len(enc.Encode(text, nil, nil))
	}
	return (utf8.RuneCountInString(text) + 3) / 4
}
