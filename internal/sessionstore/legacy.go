package sessionstore

import (
	"encoding/json"
	"os"
	"time"

	"github.com/dkremnev/overstory/pkg/types"
)

// legacyRow is the shape of a row in the pre-SQLite flat session file
// (one JSON object per line), kept only to support migration from a
// deployment that predates the sessions.db store.
type legacyRow struct {
	AgentName    string `json:"agent_name"`
	Capability   string `json:"capability"`
	WorktreePath string `json:"worktree_path"`
	BranchName   string `json:"branch_name"`
	TaskID       string `json:"task_id"`
	PaneName     string `json:"pane_name"`
	State        string `json:"state"`
	PID          *int   `json:"pid,omitempty"`
	ParentAgent  string `json:"parent_agent,omitempty"`
	Depth        int    `json:"depth"`
	StartedAt    string `json:"started_at"`
}

// importLegacyFlatFile reads every JSON line from path and upserts it as
// an AgentSession. Returns the number of rows imported. Missing files are
// not an error — there is simply nothing to migrate.
func (s *Store) importLegacyFlatFile(path string) (int, error) {
	data, err := os.ReadFile(path)
	if os.IsNotExist(err) {
		return 0, nil
	}
	if err != nil {
		return 0, err
	}

	count := 0
	start := 0
	for i := 0; i <= len(data); i++ {
		if i == len(data) || data[i] == '\n' {
			line := data[start:i]
			start = i + 1
			if len(line) == 0 {
				continue
			}
			var row legacyRow
			if err := json.Unmarshal(line, &row); err != nil {
				continue // skip malformed legacy rows rather than abort the whole import
			}

			startedAt, err := time.Parse(time.RFC3339, row.StartedAt)
			if err != nil {
				startedAt = time.Now()
			}

			sess := &types.AgentSession{
				AgentName:    row.AgentName,
				Capability:   types.Capability(row.Capability),
				WorktreePath: row.WorktreePath,
				BranchName:   row.BranchName,
				TaskID:       row.TaskID,
				PaneName:     row.PaneName,
				State:        types.SessionState(row.State),
				PID:          row.PID,
				ParentAgent:  row.ParentAgent,
				Depth:        row.Depth,
				StartedAt:    startedAt,
				LastActivity: startedAt,
			}
			if err := s.Upsert(sess); err != nil {
				continue
			}
			count++
		}
	}
	return count, nil
}
