package types

import "time"

// MergeStatus is the lifecycle status of a MergeEntry.
type MergeStatus string

const (
	MergePending  MergeStatus = "pending"
	MergeMerging  MergeStatus = "merging"
	MergeMerged   MergeStatus = "merged"
	MergeConflict MergeStatus = "conflict"
	MergeFailed   MergeStatus = "failed"
)

// MergeTier names one of the four escalation tiers of the resolver.
type MergeTier string

const (
	TierCleanMerge  MergeTier = "clean-merge"
	TierAutoResolve MergeTier = "auto-resolve"
	TierAIResolve   MergeTier = "ai-resolve"
	TierReimagine   MergeTier = "reimagine"
)

// MergeEntry is one branch queued for integration into the canonical
// branch. Entries are dequeued FIFO by insert id (not EnqueuedAt, which
// may have clock skew across hosts).
type MergeEntry struct {
	ID          int64       `json:"id"`
	BranchName  string      `json:"branch_name"`
	TaskID      string      `json:"task_id"`
	AgentName   string      `json:"agent_name"`
	Files       []string    `json:"files"`
	EnqueuedAt  time.Time   `json:"enqueued_at"`
	Status      MergeStatus `json:"status"`
	ResolvedTier *MergeTier `json:"resolved_tier,omitempty"`
}

// MergeResult is the outcome of one resolver attempt against one
// MergeEntry. Status updates to the queue occur exactly once per entry.
type MergeResult struct {
	Entry         *MergeEntry `json:"entry"`
	Success       bool        `json:"success"`
	Tier          MergeTier   `json:"tier"`
	ConflictFiles []string    `json:"conflict_files"`
	ErrorMessage  string      `json:"error_message,omitempty"`
}

// ConflictHistory is returned by the expertise service lookup: prior
// conflict-resolution patterns scoped to a file set.
type ConflictHistory struct {
	SkipTiers        []MergeTier `json:"skip_tiers"`
	PastResolutions  []string    `json:"past_resolutions"`
	PredictedConflictFiles []string `json:"predicted_conflict_files"`
}
