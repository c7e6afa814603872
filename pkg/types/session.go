// Package types holds the shared data model for the orchestration core:
// agent sessions, runs, mail messages, merge entries, and events. These
// types are persisted by the store packages and passed between the
// watchdog, resolver, and mail client without any store owning another
// store's rows.
package types

import "time"

// Capability is an agent's role tag. It controls spawn rights, tool
// whitelists, and worktree path boundaries (internal/policy).
type Capability string

const (
	CapabilityCoordinator Capability = "coordinator"
	CapabilitySupervisor  Capability = "supervisor"
	CapabilityLead        Capability = "lead"
	CapabilityBuilder     Capability = "builder"
	CapabilityScout       Capability = "scout"
	CapabilityReviewer    Capability = "reviewer"
	CapabilityMerger      Capability = "merger"
	CapabilityMonitor     Capability = "monitor"
)

// Valid reports whether c is one of the eight known capabilities.
func (c Capability) Valid() bool {
	switch c {
	case CapabilityCoordinator, CapabilitySupervisor, CapabilityLead,
		CapabilityBuilder, CapabilityScout, CapabilityReviewer,
		CapabilityMerger, CapabilityMonitor:
		return true
	default:
		return false
	}
}

// Persistent reports whether this capability survives across runs and is
// therefore excluded from run-level completion checks (spec §4.5).
func (c Capability) Persistent() bool {
	return c == CapabilityCoordinator || c == CapabilityMonitor
}

// SessionState is the lifecycle state of an AgentSession. States form a
// DAG with forward-only transitions (invariant I2).
type SessionState string

const (
	SessionBooting   SessionState = "booting"
	SessionWorking   SessionState = "working"
	SessionStalled   SessionState = "stalled"
	SessionCompleted SessionState = "completed"
	SessionZombie    SessionState = "zombie"
)

// Terminal reports whether the state is a terminal state (no further
// transitions permitted).
func (s SessionState) Terminal() bool {
	return s == SessionCompleted || s == SessionZombie
}

// allowedTransitions enumerates every legal (from, to) pair per spec
// invariant I2: booting -> working -> {completed, stalled};
// stalled -> {working, zombie}; completed/zombie are terminal. I5 adds
// a direct path to zombie from any non-terminal state: a session whose
// pane is observed dead is "immediately a candidate for transition to
// zombie" regardless of its recorded state, which ZFC precedence
// requires even when the session never passed through stalled.
var allowedTransitions = map[SessionState]map[SessionState]bool{
	SessionBooting: {
		SessionWorking: true,
		SessionZombie:  true,
	},
	SessionWorking: {
		SessionCompleted: true,
		SessionStalled:   true,
		SessionZombie:    true,
	},
	SessionStalled: {
		SessionWorking: true,
		SessionZombie:  true,
	},
	SessionCompleted: {},
	SessionZombie:    {},
}

// CanTransition reports whether moving from s to next is a legal
// forward-only transition.
func CanTransition(from, next SessionState) bool {
	if from == next {
		return false
	}
	targets, ok := allowedTransitions[from]
	if !ok {
		return false
	}
	return targets[next]
}

// AgentSession is the durable record of one spawned agent's lifecycle.
type AgentSession struct {
	AgentName      string       `json:"agent_name"`
	Capability     Capability   `json:"capability"`
	WorktreePath   string       `json:"worktree_path"`
	BranchName     string       `json:"branch_name"`
	TaskID         string       `json:"task_id"`
	PaneName       string       `json:"pane_name"`
	State          SessionState `json:"state"`
	PID            *int         `json:"pid,omitempty"`
	ParentAgent    string       `json:"parent_agent,omitempty"`
	Depth          int          `json:"depth"`
	RunID          string       `json:"run_id,omitempty"`
	StartedAt      time.Time    `json:"started_at"`
	LastActivity   time.Time    `json:"last_activity"`
	StalledSince   *time.Time   `json:"stalled_since,omitempty"`
	EscalationLevel int         `json:"escalation_level"`
}

// Validate checks the structural invariants that the store cannot repair
// on its own (I1: depth/capability coupling).
func (s *AgentSession) Validate() error {
	isRoot := s.Capability == CapabilityCoordinator || s.Capability == CapabilityMonitor
	if isRoot != (s.Depth == 0) {
		return ErrDepthCapabilityMismatch
	}
	if !s.Capability.Valid() {
		return ErrUnknownCapability
	}
	return nil
}

// RunStatus is the lifecycle status of a Run.
type RunStatus string

const (
	RunActive    RunStatus = "active"
	RunCompleted RunStatus = "completed"
)

// Run groups sessions spawned under a single coordinator activity.
type Run struct {
	RunID        string    `json:"run_id"`
	CoordinatorAgent string `json:"coordinator_agent"`
	Status       RunStatus `json:"status"`
	AgentCount   int       `json:"agent_count"`
	StartedAt    time.Time `json:"started_at"`
	CompletedAt  *time.Time `json:"completed_at,omitempty"`
}
