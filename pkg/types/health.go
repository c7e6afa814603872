package types

import "time"

// HealthStatus is the watchdog's verdict on one session.
type HealthStatus string

const (
	HealthHealthy HealthStatus = "healthy"
	HealthStale   HealthStatus = "stale"
	HealthZombie  HealthStatus = "zombie"
)

// SuggestedAction is the ladder action the watchdog should take for a
// HealthCheck's verdict.
type SuggestedAction string

const (
	ActionNone      SuggestedAction = "none"
	ActionNudge     SuggestedAction = "nudge"
	ActionEscalate  SuggestedAction = "escalate"
	ActionTerminate SuggestedAction = "terminate"
)

// HealthCheck is the pure-function output of evaluating one AgentSession
// against an observed liveness signal (spec §4.5).
type HealthCheck struct {
	Status          HealthStatus    `json:"status"`
	Reason          string          `json:"reason"`
	SuggestedAction SuggestedAction `json:"suggested_action"`
	CheckedAt       time.Time       `json:"checked_at"`
}

// TriageVerdict is the single-token outcome of Tier-1 AI triage.
type TriageVerdict string

const (
	TriageRetry     TriageVerdict = "retry"
	TriageTerminate TriageVerdict = "terminate"
	TriageExtend    TriageVerdict = "extend"
)
