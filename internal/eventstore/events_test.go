package eventstore

import (
	"path/filepath"
	"testing"
	"time"

	"github.com/dkremnev/overstory/pkg/types"
)

func newTestStore(t *testing.T) *Store {
	t.Helper()
	dir := t.TempDir()
	s, err := Open(filepath.Join(dir, "events.db"))
	if err != nil {
		t.Fatalf("Open() error = %v", err)
	}
	t.Cleanup(func() { s.Close() })
	return s
}

// TestCorrelateToolEnd covers P7 and the spec's concrete scenario 6.
func TestCorrelateToolEnd(t *testing.T) {
	s := newTestStore(t)

	start := &types.StoredEvent{
		AgentName: "agent1",
		Kind:      types.EventToolStart,
		ToolName:  "Read",
		CreatedAt: time.Now().Add(-1500 * time.Millisecond),
	}
	startID, err := s.Insert(start)
	if err != nil {
		t.Fatalf("Insert(start) error = %v", err)
	}

	gotID, duration, found, err := s.CorrelateToolEnd("agent1", "Read")
	if err != nil {
		t.Fatalf("CorrelateToolEnd() error = %v", err)
	}
	if !found {
		t.Fatalf("expected a correlation match")
	}
	if gotID != startID {
		t.Errorf("gotID = %d, want %d", gotID, startID)
	}
	if duration < 0 {
		t.Errorf("duration must be >= 0, got %d", duration)
	}
	if duration < 1000 {
		t.Errorf("duration = %dms, want roughly >=1500ms", duration)
	}

	// A second call with no further unpaired tool_start must return not-found.
	_, _, found2, err := s.CorrelateToolEnd("agent1", "Read")
	if err != nil {
		t.Fatalf("second CorrelateToolEnd() error = %v", err)
	}
	if found2 {
		t.Errorf("expected no candidate on second correlation call")
	}
}

func TestTimeline_OrderedAscending(t *testing.T) {
	s := newTestStore(t)
	base := time.Now().Add(-time.Hour)

	for i := 0; i < 3; i++ {
		ev := &types.StoredEvent{
			AgentName: "agent1",
			Kind:      types.EventCustom,
			CreatedAt: base.Add(time.Duration(i) * time.Minute),
		}
		if _, err := s.Insert(ev); err != nil {
			t.Fatalf("Insert() error = %v", err)
		}
	}

	got, err := s.Timeline(base.Add(-time.Minute))
	if err != nil {
		t.Fatalf("Timeline() error = %v", err)
	}
	if len(got) != 3 {
		t.Fatalf("Timeline() returned %d events, want 3", len(got))
	}
	for i := 1; i < len(got); i++ {
		if got[i].CreatedAt.Before(got[i-1].CreatedAt) {
			t.Errorf("Timeline() not ascending at index %d", i)
		}
	}
}

func TestFilterToolArgs_KnownTool(t *testing.T) {
	result := FilterToolArgs("Bash", map[string]any{"command": "go test ./...", "timeout": 5000})
	if result.Args["command"] != "go test ./..." {
		t.Errorf("expected command preserved, got %v", result.Args)
	}
	if _, ok := result.Args["timeout"]; ok {
		t.Errorf("expected bulk/non-identifying fields dropped")
	}
}

func TestFilterToolArgs_UnknownTool(t *testing.T) {
	result := FilterToolArgs("SomeFutureTool", map[string]any{"a": 1, "b": 2})
	if len(result.Args) != 0 {
		t.Errorf("expected empty args for unknown tool, got %v", result.Args)
	}
	if result.Summary != "a,b" {
		t.Errorf("expected summary built from sorted keys, got %q", result.Summary)
	}
}

func TestToolStats_SkipsNulls(t *testing.T) {
	s := newTestStore(t)
	d := int64(100)
	if _, err := s.Insert(&types.StoredEvent{AgentName: "a1", Kind: types.EventToolStart, ToolName: "Read", ToolDurationMs: &d}); err != nil {
		t.Fatal(err)
	}
	if _, err := s.Insert(&types.StoredEvent{AgentName: "a1", Kind: types.EventToolStart, ToolName: "Read"}); err != nil {
		t.Fatal(err)
	}

	stats, err := s.ToolStats()
	if err != nil {
		t.Fatalf("ToolStats() error = %v", err)
	}
	if len(stats) != 1 || stats[0].Count != 1 {
		t.Errorf("ToolStats() = %+v, want one Read row with count=1 (null duration skipped)", stats)
	}
}
