package sessionstore

import (
	"path/filepath"
	"testing"
	"time"

	"github.com/dkremnev/overstory/internal/errs"
	"github.com/dkremnev/overstory/pkg/types"
)

func newTestStore(t *testing.T) *Store {
	t.Helper()
	dir := t.TempDir()
	s, migrated, err := Open(filepath.Join(dir, "sessions.db"), "")
	if err != nil {
		t.Fatalf("Open() error = %v", err)
	}
	if migrated {
		t.Fatalf("expected no legacy migration for a fresh store")
	}
	t.Cleanup(func() { s.Close() })
	return s
}

func sampleSession(name string) *types.AgentSession {
	now := time.Now()
	return &types.AgentSession{
		AgentName:    name,
		Capability:   types.CapabilityBuilder,
		WorktreePath: "/tmp/" + name,
		BranchName:   "overstory/" + name + "/task-1",
		TaskID:       "task-1",
		PaneName:     "pane-" + name,
		State:        types.SessionBooting,
		Depth:        1,
		StartedAt:    now,
		LastActivity: now,
	}
}

func TestUpsertAndGetByName_LastWriterWins(t *testing.T) {
	s := newTestStore(t)
	sess := sampleSession("agent1")

	if err := s.Upsert(sess); err != nil {
		t.Fatalf("Upsert() error = %v", err)
	}

	sess.State = types.SessionWorking
	if err := s.Upsert(sess); err != nil {
		t.Fatalf("second Upsert() error = %v", err)
	}

	got, err := s.GetByName("agent1")
	if err != nil {
		t.Fatalf("GetByName() error = %v", err)
	}
	if got.State != types.SessionWorking {
		t.Errorf("State = %v, want %v (last-writer-wins)", got.State, types.SessionWorking)
	}
}

// TestDepthCapabilityInvariant covers I1.
func TestDepthCapabilityInvariant(t *testing.T) {
	s := newTestStore(t)

	bad := sampleSession("bad-coordinator")
	bad.Capability = types.CapabilityCoordinator
	bad.Depth = 1 // must be 0 for coordinator

	if err := s.Upsert(bad); err == nil {
		t.Fatalf("expected Upsert to reject coordinator with depth != 0")
	} else if _, ok := errs.As(err, errs.KindValidation); !ok {
		t.Errorf("expected ValidationError, got %v", err)
	}
}

// TestUpdateState_ForwardOnly covers P2.
func TestUpdateState_ForwardOnly(t *testing.T) {
	s := newTestStore(t)
	sess := sampleSession("agent1")
	if err := s.Upsert(sess); err != nil {
		t.Fatalf("Upsert() error = %v", err)
	}

	if err := s.UpdateState("agent1", types.SessionWorking); err != nil {
		t.Fatalf("booting->working should be legal: %v", err)
	}
	if err := s.UpdateState("agent1", types.SessionStalled); err != nil {
		t.Fatalf("working->stalled should be legal: %v", err)
	}

	// stalled -> completed is not in the allowed set.
	err := s.UpdateState("agent1", types.SessionCompleted)
	if err == nil {
		t.Fatalf("expected illegal transition stalled->completed to be rejected")
	}
	if _, ok := errs.As(err, errs.KindLifecycle); !ok {
		t.Errorf("expected LifecycleError, got %v", err)
	}

	got, err := s.GetByName("agent1")
	if err != nil {
		t.Fatalf("GetByName() error = %v", err)
	}
	if got.State != types.SessionStalled {
		t.Errorf("rejected transition must not mutate state, got %v", got.State)
	}
}

// TestStalledCoherence covers P3.
func TestStalledCoherence(t *testing.T) {
	s := newTestStore(t)
	sess := sampleSession("agent1")
	sess.State = types.SessionWorking
	if err := s.Upsert(sess); err != nil {
		t.Fatalf("Upsert() error = %v", err)
	}

	if err := s.UpdateState("agent1", types.SessionStalled); err != nil {
		t.Fatalf("UpdateState() error = %v", err)
	}
	got, _ := s.GetByName("agent1")
	if got.StalledSince == nil {
		t.Errorf("stalled_since must be set when state=stalled")
	}

	if err := s.UpdateState("agent1", types.SessionWorking); err != nil {
		t.Fatalf("stalled->working should be legal: %v", err)
	}
	got, _ = s.GetByName("agent1")
	if got.StalledSince != nil {
		t.Errorf("stalled_since must clear once state leaves stalled, got %v", got.StalledSince)
	}
}

// TestEscalationMonotone covers P1.
func TestEscalationMonotone(t *testing.T) {
	s := newTestStore(t)
	sess := sampleSession("agent1")
	sess.State = types.SessionWorking
	if err := s.Upsert(sess); err != nil {
		t.Fatalf("Upsert() error = %v", err)
	}

	now := time.Now()
	if err := s.UpdateEscalation("agent1", 1, &now); err != nil {
		t.Fatalf("UpdateEscalation(1) error = %v", err)
	}
	if err := s.UpdateEscalation("agent1", 2, &now); err != nil {
		t.Fatalf("UpdateEscalation(2) error = %v", err)
	}

	err := s.UpdateEscalation("agent1", 0, nil)
	if err == nil {
		t.Fatalf("expected escalation decrease to be rejected while non-terminal")
	}
	if _, ok := errs.As(err, errs.KindLifecycle); !ok {
		t.Errorf("expected LifecycleError, got %v", err)
	}
}

func TestGetActive_FiltersTerminal(t *testing.T) {
	s := newTestStore(t)

	active := sampleSession("active1")
	active.State = types.SessionWorking
	done := sampleSession("done1")
	done.State = types.SessionCompleted

	if err := s.Upsert(active); err != nil {
		t.Fatal(err)
	}
	if err := s.Upsert(done); err != nil {
		t.Fatal(err)
	}

	got, err := s.GetActive()
	if err != nil {
		t.Fatalf("GetActive() error = %v", err)
	}
	if len(got) != 1 || got[0].AgentName != "active1" {
		t.Errorf("GetActive() = %v, want only active1", got)
	}
}

func TestPurge_ByState(t *testing.T) {
	s := newTestStore(t)
	done := sampleSession("done1")
	done.State = types.SessionCompleted
	if err := s.Upsert(done); err != nil {
		t.Fatal(err)
	}

	n, err := s.Purge(PurgeFilter{ByState: types.SessionCompleted})
	if err != nil {
		t.Fatalf("Purge() error = %v", err)
	}
	if n != 1 {
		t.Errorf("Purge() = %d, want 1", n)
	}

	if _, err := s.GetByName("done1"); err != ErrNotFound {
		t.Errorf("expected ErrNotFound after purge, got %v", err)
	}
}

func TestRunLifecycle(t *testing.T) {
	s := newTestStore(t)
	run := &types.Run{RunID: "run-1", CoordinatorAgent: "coord1", StartedAt: time.Now()}
	if err := s.CreateRun(run); err != nil {
		t.Fatalf("CreateRun() error = %v", err)
	}

	active, err := s.GetActiveRun()
	if err != nil {
		t.Fatalf("GetActiveRun() error = %v", err)
	}
	if active == nil || active.RunID != "run-1" {
		t.Fatalf("GetActiveRun() = %v, want run-1", active)
	}

	if err := s.IncrementAgentCount("run-1"); err != nil {
		t.Fatalf("IncrementAgentCount() error = %v", err)
	}
	got, _ := s.GetRun("run-1")
	if got.AgentCount != 1 {
		t.Errorf("AgentCount = %d, want 1", got.AgentCount)
	}

	if err := s.CompleteRun("run-1"); err != nil {
		t.Fatalf("CompleteRun() error = %v", err)
	}
	got, _ = s.GetRun("run-1")
	if got.Status != types.RunCompleted || got.CompletedAt == nil {
		t.Errorf("run not completed: %+v", got)
	}
}
