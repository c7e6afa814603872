package merge

import (
	"regexp"
	"strings"
)

var (
	apologyPhrases = []string{
		"i cannot", "i can't", "i apologize", "as an ai", "i'm sorry",
		"i am sorry", "i don't have", "i do not have",
	}
	codeTokenPattern = regexp.MustCompile(`[{}();=<>\[\]]|\.\w|:=|=>|->|&&|\|\|`)
)

// looksLikeCode is the tier-3 AI output validator (spec §4.4, §9 open
// question). Conservative default: reject if fewer than K=1
// code-identifier tokens per line on average, or if the text contains a
// conversational apology phrase the model uses when it refuses to
// produce a direct file rewrite.
func looksLikeCode(text string) bool {
	lower := strings.ToLower(text)
	for _, phrase := range apologyPhrases {
		if strings.Contains(lower, phrase) {
			return false
		}
	}

	lines := strings.Split(strings.TrimSpace(text), "\n")
	if len(lines) == 0 {
		return false
	}

	tokenCount := 0
	for _, line := range lines {
		tokenCount += len(codeTokenPattern.FindAllString(line, -1))
	}
	const k = 1.0
	tokensPerLine := float64(tokenCount) / float64(len(lines))
	return tokensPerLine >= k
}
