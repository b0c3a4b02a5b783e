// Package tokens estimates the size of a chat request so the caller can warn
// before sending a diff that will not fit in the model's context window.
package tokens

import (
	"fmt"
	"math"

	"aicommit/cli/internal/groq"
)

// bytesPerToken approximates BPE tokenizers on English text and source code.
const bytesPerToken = 4

// messageOverhead counts the role and separator tokens the chat template
// wraps around each message.
const messageOverhead = 4

// DefaultResponseReserve is the number of tokens kept free for the reply.
const DefaultResponseReserve = 1024

// Estimate returns ceil(len(text)/4). Empty text is 0.
func Estimate(text string) int {
	if text == "" {
		return 0
	}
	return (len(text) + bytesPerToken - 1) / bytesPerToken
}

// EstimateMessages sums Estimate over the message contents plus a fixed
// per-message overhead.
func EstimateMessages(messages []groq.Message) int {
	total := 0
	for _, m := range messages {
		total += Estimate(m.Content) + messageOverhead
	}
	return total
}

// WarnIfOver returns a warning when promptTokens+reserve reaches threshold
// (0..1) of contextWindow, otherwise "". An unknown window (<= 0) or a
// threshold <= 0 disables the check.
func WarnIfOver(promptTokens, reserve, contextWindow int, threshold float64) string {
	if contextWindow <= 0 || threshold <= 0 || promptTokens < 0 || reserve < 0 {
		return ""
	}
	if reserve > math.MaxInt-promptTokens {
		return fmt.Sprintf("token estimate overflow (prompt %d + reserve %d)", promptTokens, reserve)
	}
	total := promptTokens + reserve
	limit := int(math.Ceil(float64(contextWindow) * threshold))
	if total < limit {
		return ""
	}
	return fmt.Sprintf("the request is about %d tokens (prompt %d + reply %d), %.0f%% or more of the model's %d-token context window; the reply may be truncated or rejected",
		total, promptTokens, reserve, threshold*100, contextWindow)
}
