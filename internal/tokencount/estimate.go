// Package tokencount estimates token counts for adapters whose upstream
// reports no usage block, notably Kiro/CodeWhisperer (see
// internal/provider/kiro/response.go's estimateOutputTokens, which this
// package supersedes with a real tokenizer instead of a len/4 heuristic).
package tokencount

import (
	"encoding/json"
	"sync"

	"github.com/tiktoken-go/tokenizer"
)

var (
	once  sync.Once
	codec tokenizer.Codec
	err   error
)

func getCodec() (tokenizer.Codec, error) {
	once.Do(func() {
		codec, err = tokenizer.Get(tokenizer.Cl100kBase)
	})
	return codec, err
}

// Estimate returns the cl100k_base token count for text, falling back to
// a length/4 heuristic if the tokenizer is unavailable.
func Estimate(text string) int {
	if text == "" {
		return 0
	}
	c, err := getCodec()
	if err != nil {
		return len(text) / 4
	}
	ids, _, err := c.Encode(text)
	if err != nil {
		return len(text) / 4
	}
	return len(ids)
}

// EstimateJSON estimates the token count of a value's JSON representation,
// used for tool-call input blocks where the billed content is the
// serialized arguments rather than free text.
func EstimateJSON(v any) int {
	if v == nil {
		return 0
	}
	raw, err := json.Marshal(v)
	if err != nil {
		return 0
	}
	return Estimate(string(raw))
}
