package llm

import (
	"math"
	"strings"
)

// tokensPerWord approximates sub-word tokenizers. Not exact for any of them.
const tokensPerWord = 1.3

// EstimateTokens is used when the upstream does not report usage.
func EstimateTokens(text string) int {
	words := len(strings.Fields(text))
	if words == 0 {
		return 0
	}
	return int(math.Ceil(float64(words) * tokensPerWord))
}

// EstimateHistoryTokens sums EstimateTokens across messages.
func EstimateHistoryTokens(history []Message) int {
	total := 0
	for _, m := range history {
		total += EstimateTokens(m.Content)
	}
	return total
}
