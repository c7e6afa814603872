package manifest

import (
	"os"
	"path/filepath"
	"time"

	"github.com/gofrs/flock"
	"gopkg.in/yaml.v3"

	"github.com/dkremnev/overstory/internal/errs"
	"github.com/dkremnev/overstory/pkg/types"
)

// recentTasksCap is the FIFO eviction cap on Identity.RecentTasks
// (spec §6 "capped at 20, FIFO eviction").
const recentTasksCap = 20

// RecentTask is one entry of an Identity's task history.
type RecentTask struct {
	TaskID  string    `yaml:"task_id"`
	Summary string    `yaml:"summary"`
	Ts      time.Time `yaml:"ts"`
}

// Identity is an agent's persistent CV, carried across runs for
// capabilities that persist (spec §6 identity schema).
type Identity struct {
	Name              string            `yaml:"name"`
	Capability        types.Capability  `yaml:"capability"`
	SessionsCompleted int               `yaml:"sessions_completed"`
	ExpertiseDomains  []string          `yaml:"expertise_domains"`
	RecentTasks       []RecentTask      `yaml:"recent_tasks"`
}

func identityPath(stateDir, agentName string) string {
	return filepath.Join(agentDir(stateDir, agentName), "identity.yaml")
}

// LoadIdentity reads the identity for agentName, returning a fresh
// zero-value Identity (not an error) if none has been saved yet — a
// brand-new agent has no CV until it completes its first session.
func LoadIdentity(stateDir, agentName string, cap types.Capability) (*Identity, error) {
	data, err := os.ReadFile(identityPath(stateDir, agentName))
	if os.IsNotExist(err) {
		return &Identity{Name: agentName, Capability: cap}, nil
	}
	if err != nil {
		return nil, errs.AgentWrap("read identity", err).With("agent_name", agentName)
	}
	var id Identity
	if err := yaml.Unmarshal(data, &id); err != nil {
		return nil, errs.AgentWrap("parse identity", err).With("agent_name", agentName)
	}
	return &id, nil
}

// SaveIdentity atomically writes id, the same write-temp-then-rename
// pattern as SaveCheckpoint.
func SaveIdentity(stateDir string, id *Identity) error {
	dir := agentDir(stateDir, id.Name)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return errs.AgentWrap("create agent directory", err).With("agent_name", id.Name)
	}

	lock := flock.New(filepath.Join(dir, ".identity.lock"))
	if err := lock.Lock(); err != nil {
		return errs.AgentWrap("lock identity", err).With("agent_name", id.Name)
	}
	defer lock.Unlock()

	data, err := yaml.Marshal(id)
	if err != nil {
		return errs.AgentWrap("marshal identity", err).With("agent_name", id.Name)
	}

	target := identityPath(stateDir, id.Name)
	tmp := target + ".tmp"
	if err := os.WriteFile(tmp, data, 0o644); err != nil {
		return errs.AgentWrap("write identity temp file", err).With("agent_name", id.Name)
	}
	if err := os.Rename(tmp, target); err != nil {
		os.Remove(tmp)
		return errs.AgentWrap("rename identity into place", err).With("agent_name", id.Name)
	}
	return nil
}

// RecordTask appends a completed task to the identity's FIFO-capped
// recent-tasks list, evicting the oldest entry once the cap is exceeded.
func (id *Identity) RecordTask(taskID, summary string, ts time.Time) {
	id.RecentTasks = append(id.RecentTasks, RecentTask{TaskID: taskID, Summary: summary, Ts: ts})
	if len(id.RecentTasks) > recentTasksCap {
		id.RecentTasks = id.RecentTasks[len(id.RecentTasks)-recentTasksCap:]
	}
	id.SessionsCompleted++
}
