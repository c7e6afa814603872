package watchdog

import (
	"context"
	"strings"

	"github.com/dkremnev/overstory/internal/aiclient"
	"github.com/dkremnev/overstory/pkg/types"
)

// triageLogLines is the number of trailing log lines handed to Tier-1
// AI triage (spec §4.5 "last 50 lines").
const triageLogLines = 50

// Triage invokes Tier-1 AI triage for a stalled session: it reads the
// tail of the session's log via mux.Capture, asks the AI resolver for a
// single-token verdict, and defaults to "extend" on any failure
// (subprocess missing, no log, unparsable output) per spec §4.5.
func Triage(ctx context.Context, ai aiclient.Resolver, mux Multiplexer, sess *types.AgentSession) types.TriageVerdict {
	tail, err := mux.Capture(sess.PaneName, triageLogLines)
	if err != nil || strings.TrimSpace(tail) == "" {
		return types.TriageExtend
	}

	prompt := "The following is the tail of an agent session's log. Respond with exactly one " +
		"word: retry, terminate, or extend.\n\n" + tail

	resp, err := ai.Complete(ctx, aiclient.Request{Prompt: prompt, MaxTokens: 8})
	if err != nil {
		return types.TriageExtend
	}

	return parseVerdict(resp.Text)
}

func parseVerdict(raw string) types.TriageVerdict {
	token := strings.ToLower(strings.TrimSpace(raw))
	token = strings.Trim(token, ".!\"' \n\t")
	switch types.TriageVerdict(token) {
	case types.TriageRetry, types.TriageTerminate, types.TriageExtend:
		return types.TriageVerdict(token)
	default:
		return types.TriageExtend
	}
}
