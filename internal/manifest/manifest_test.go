package manifest

import (
	"os"
	"testing"
	"time"

	"github.com/dkremnev/overstory/pkg/types"
)

// TestCheckpoint_Idempotent covers P8: save -> load -> save produces
// byte-identical files.
func TestCheckpoint_Idempotent(t *testing.T) {
	dir := t.TempDir()
	cp := &Checkpoint{
		AgentName:       "agent1",
		BeadID:          "bead-1",
		SessionID:       "sess-1",
		ProgressSummary: "implementing thing",
		FilesModified:   []string{"a.go", "b.go"},
		CurrentBranch:   "overstory/agent1/task-1",
		PendingWork:     "write tests",
	}

	if err := SaveCheckpoint(dir, cp); err != nil {
		t.Fatalf("first SaveCheckpoint() error = %v", err)
	}
	first, err := os.ReadFile(checkpointPath(dir, "agent1"))
	if err != nil {
		t.Fatal(err)
	}

	loaded, err := LoadCheckpoint(dir, "agent1")
	if err != nil {
		t.Fatalf("LoadCheckpoint() error = %v", err)
	}

	if err := SaveCheckpoint(dir, loaded); err != nil {
		t.Fatalf("second SaveCheckpoint() error = %v", err)
	}
	second, err := os.ReadFile(checkpointPath(dir, "agent1"))
	if err != nil {
		t.Fatal(err)
	}

	if string(first) != string(second) {
		t.Errorf("save->load->save not idempotent:\nfirst:  %s\nsecond: %s", first, second)
	}
}

func TestLoadIdentity_MissingReturnsFresh(t *testing.T) {
	dir := t.TempDir()
	id, err := LoadIdentity(dir, "newagent", types.CapabilityBuilder)
	if err != nil {
		t.Fatalf("LoadIdentity() error = %v", err)
	}
	if id.SessionsCompleted != 0 || len(id.RecentTasks) != 0 {
		t.Errorf("fresh identity should be zero-valued, got %+v", id)
	}
}

func TestIdentity_RecentTasksFIFOCap(t *testing.T) {
	id := &Identity{Name: "agent1", Capability: types.CapabilityBuilder}
	base := time.Now()
	for i := 0; i < 25; i++ {
		id.RecordTask("task", "summary", base.Add(time.Duration(i)*time.Minute))
	}
	if len(id.RecentTasks) != 20 {
		t.Fatalf("len(RecentTasks) = %d, want 20", len(id.RecentTasks))
	}
	if id.SessionsCompleted != 25 {
		t.Errorf("SessionsCompleted = %d, want 25 (counts all, not just retained)", id.SessionsCompleted)
	}
	// Oldest 5 should have been evicted; the retained window starts at
	// task index 5 (ts = base + 5min).
	if !id.RecentTasks[0].Ts.Equal(base.Add(5 * time.Minute)) {
		t.Errorf("oldest retained task ts = %v, want base+5m", id.RecentTasks[0].Ts)
	}
}

func TestSaveLoadIdentity_RoundTrip(t *testing.T) {
	dir := t.TempDir()
	id := &Identity{
		Name:              "agent1",
		Capability:        types.CapabilityBuilder,
		SessionsCompleted: 3,
		ExpertiseDomains:  []string{"backend", "testing"},
	}
	id.RecordTask("task-1", "did the thing", time.Now())

	if err := SaveIdentity(dir, id); err != nil {
		t.Fatalf("SaveIdentity() error = %v", err)
	}

	loaded, err := LoadIdentity(dir, "agent1", types.CapabilityBuilder)
	if err != nil {
		t.Fatalf("LoadIdentity() error = %v", err)
	}
	if loaded.SessionsCompleted != 4 || len(loaded.RecentTasks) != 1 {
		t.Errorf("loaded identity = %+v, want SessionsCompleted=4 len(RecentTasks)=1", loaded)
	}
}
