package types

import "time"

// EventKind enumerates the closed set of event kinds the event store
// accepts.
type EventKind string

const (
	EventToolStart     EventKind = "tool_start"
	EventToolEnd       EventKind = "tool_end"
	EventSessionStart  EventKind = "session_start"
	EventSessionEnd    EventKind = "session_end"
	EventMailSent      EventKind = "mail_sent"
	EventMailReceived  EventKind = "mail_received"
	EventError         EventKind = "error"
	EventCustom        EventKind = "custom"
)

// EventLevel is the severity of a StoredEvent.
type EventLevel string

const (
	LevelDebug EventLevel = "debug"
	LevelInfo  EventLevel = "info"
	LevelWarn  EventLevel = "warn"
	LevelError EventLevel = "error"
)

// StoredEvent is one row of the insert-only event log.
type StoredEvent struct {
	ID           int64      `json:"id"`
	RunID        string     `json:"run_id,omitempty"`
	AgentName    string     `json:"agent_name"`
	SessionID    string     `json:"session_id,omitempty"`
	Kind         EventKind  `json:"event_kind"`
	ToolName     string     `json:"tool_name,omitempty"`
	ToolArgsJSON string     `json:"tool_args,omitempty"`
	ToolDurationMs *int64   `json:"tool_duration_ms,omitempty"`
	Level        EventLevel `json:"level"`
	PayloadJSON  string     `json:"payload,omitempty"`
	CreatedAt    time.Time  `json:"created_at"`
}

// ToolFilterResult is the compact shape callers reduce a tool's raw
// arguments to before insertion: the args map plus a human summary.
type ToolFilterResult struct {
	Args    map[string]any `json:"args"`
	Summary string         `json:"summary"`
}

// SessionMetrics is an upsert-replace summary of one (agent, bead) unit
// of work, written once the agent's launcher completes it.
type SessionMetrics struct {
	AgentName    string  `json:"agent_name"`
	BeadID       string  `json:"bead_id"`
	TokensUsed   int64   `json:"tokens_used"`
	CostUSD      float64 `json:"cost_usd"`
	DurationMs   int64   `json:"duration_ms"`
	ToolCalls    int     `json:"tool_calls"`
}

// TokenSnapshot is a point-in-time token-usage sample, inserted
// periodically by the launcher.
type TokenSnapshot struct {
	AgentName   string    `json:"agent_name"`
	InputTokens int64     `json:"input_tokens"`
	OutputTokens int64    `json:"output_tokens"`
	CreatedAt   time.Time `json:"created_at"`
}

// ToolStat is one row of the event store's tool_stats aggregate query.
type ToolStat struct {
	ToolName    string  `json:"tool_name"`
	Count       int     `json:"count"`
	AvgDurationMs float64 `json:"avg_duration_ms"`
	MaxDurationMs int64   `json:"max_duration_ms"`
}
