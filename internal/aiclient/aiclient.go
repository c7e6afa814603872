// Package aiclient is the AI resolver used by the merge resolver's tiers
// 3/4 and the watchdog's Tier-1 triage (spec §4.4, §4.5). It has two
// backends selected by environment: an SDK-backed implementation
// (anthropic-sdk-go, grounded in the teacher's internal/api/client.go
// and claude_api.go) for normal operation, and a subprocess-backed
// fallback (grounded in the teacher's deprecated
// internal/agent/claude.go ClaudeProcess) for offline/CLI-only hosts.
package aiclient

import (
	"context"
	"os"
)

// Request is one AI resolution or triage call.
type Request struct {
	// Prompt is the full instruction plus context (conflict markers,
	// ours/theirs content, past resolutions, or log tail).
	Prompt string
	// MaxTokens bounds the response size.
	MaxTokens int
}

// Response is the AI's raw text output.
type Response struct {
	Text string
}

// Resolver is the narrow interface the merge resolver and watchdog
// depend on. Both backends implement it identically so callers never
// branch on which is active.
type Resolver interface {
	Complete(ctx context.Context, req Request) (Response, error)
}

// NewFromEnv selects the SDK-backed resolver when API_AUTH_TOKEN and
// API_BASE_URL are both set (spec §6 env convention), otherwise falls
// back to the subprocess-backed resolver.
func NewFromEnv() Resolver {
	token := os.Getenv("API_AUTH_TOKEN")
	base := os.Getenv("API_BASE_URL")
	if token != "" && base != "" {
		return newSDKResolver(token, base)
	}
	return newSubprocessResolver()
}
