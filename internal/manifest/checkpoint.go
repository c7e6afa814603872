// Package manifest owns each agent's on-disk checkpoint.json (crash
// recovery) and identity.yaml (persistent CV) under
// .overstory/agents/<name>/. Directory creation and atomic write
// patterns are grounded in the teacher's state.Open/db.go
// (os.MkdirAll(dir, 0755) before every open); the write-temp-then-
// rename + flock pattern generalizes the teacher's file-locking
// conventions to the JSON/YAML manifests spec §4.7 and §6 describe.
package manifest

import (
	"encoding/json"
	"os"
	"path/filepath"

	"github.com/gofrs/flock"

	"github.com/dkremnev/overstory/internal/errs"
)

// Checkpoint is the crash-recovery snapshot for one agent session
// (spec §6 checkpoint schema).
type Checkpoint struct {
	AgentName       string   `json:"agent_name"`
	BeadID          string   `json:"bead_id"`
	SessionID       string   `json:"session_id"`
	ProgressSummary string   `json:"progress_summary"`
	FilesModified   []string `json:"files_modified"`
	CurrentBranch   string   `json:"current_branch"`
	PendingWork     string   `json:"pending_work"`
}

// agentDir returns .overstory/agents/<name> under stateDir.
func agentDir(stateDir, agentName string) string {
	return filepath.Join(stateDir, "agents", agentName)
}

func checkpointPath(stateDir, agentName string) string {
	return filepath.Join(agentDir(stateDir, agentName), "checkpoint.json")
}

// SaveCheckpoint atomically writes the checkpoint: write to a temp file
// in the same directory, then rename over the target. A flock on
// a sibling lockfile serializes concurrent writers for the same agent
// (spec §4.7, "atomic write-temp-then-rename").
func SaveCheckpoint(stateDir string, cp *Checkpoint) error {
	dir := agentDir(stateDir, cp.AgentName)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return errs.AgentWrap("create agent directory", err).With("agent_name", cp.AgentName)
	}

	lock := flock.New(filepath.Join(dir, ".checkpoint.lock"))
	if err := lock.Lock(); err != nil {
		return errs.AgentWrap("lock checkpoint", err).With("agent_name", cp.AgentName)
	}
	defer lock.Unlock()

	data, err := json.MarshalIndent(cp, "", "  ")
	if err != nil {
		return errs.AgentWrap("marshal checkpoint", err).With("agent_name", cp.AgentName)
	}

	target := checkpointPath(stateDir, cp.AgentName)
	tmp := target + ".tmp"
	if err := os.WriteFile(tmp, data, 0o644); err != nil {
		return errs.AgentWrap("write checkpoint temp file", err).With("agent_name", cp.AgentName)
	}
	if err := os.Rename(tmp, target); err != nil {
		os.Remove(tmp)
		return errs.AgentWrap("rename checkpoint into place", err).With("agent_name", cp.AgentName)
	}
	return nil
}

// LoadCheckpoint reads the checkpoint for agentName, or returns
// os.ErrNotExist (wrapped) if none has been saved.
func LoadCheckpoint(stateDir, agentName string) (*Checkpoint, error) {
	data, err := os.ReadFile(checkpointPath(stateDir, agentName))
	if err != nil {
		return nil, errs.AgentWrap("read checkpoint", err).With("agent_name", agentName)
	}
	var cp Checkpoint
	if err := json.Unmarshal(data, &cp); err != nil {
		return nil, errs.AgentWrap("parse checkpoint", err).With("agent_name", agentName)
	}
	return &cp, nil
}
