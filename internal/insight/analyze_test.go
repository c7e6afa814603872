package insight

import (
	"testing"

	"github.com/dkremnev/overstory/pkg/types"
)

func toolStart(toolName, argsJSON string) *types.StoredEvent {
	return &types.StoredEvent{Kind: types.EventToolStart, ToolName: toolName, ToolArgsJSON: argsJSON}
}

func TestClassifyWorkflow_ReadHeavy(t *testing.T) {
	var events []*types.StoredEvent
	for i := 0; i < 12; i++ {
		events = append(events, toolStart("Read", `{"file_path":"internal/x.go"}`))
	}
	got := Analyze(events, nil)
	if got.Workflow != types.WorkflowReadHeavy {
		t.Errorf("Workflow = %s, want read-heavy", got.Workflow)
	}
}

func TestClassifyWorkflow_BelowThresholdIsBalanced(t *testing.T) {
	var events []*types.StoredEvent
	for i := 0; i < 5; i++ {
		events = append(events, toolStart("Read", ""))
	}
	got := Analyze(events, nil)
	if got.Workflow != types.WorkflowBalanced {
		t.Errorf("Workflow = %s, want balanced below threshold", got.Workflow)
	}
}

func TestClassifyWorkflow_MixedIsBalanced(t *testing.T) {
	var events []*types.StoredEvent
	for i := 0; i < 4; i++ {
		events = append(events, toolStart("Read", ""))
	}
	for i := 0; i < 4; i++ {
		events = append(events, toolStart("Edit", ""))
	}
	for i := 0; i < 4; i++ {
		events = append(events, toolStart("Bash", ""))
	}
	got := Analyze(events, nil)
	if got.Workflow != types.WorkflowBalanced {
		t.Errorf("Workflow = %s, want balanced for an even mix", got.Workflow)
	}
}

func TestToolProfile_TopFiveByCount(t *testing.T) {
	stats := []types.ToolStat{
		{ToolName: "Bash", Count: 3, AvgDurationMs: 10},
		{ToolName: "Read", Count: 9, AvgDurationMs: 5},
		{ToolName: "Edit", Count: 7, AvgDurationMs: 20},
		{ToolName: "Grep", Count: 4, AvgDurationMs: 1},
		{ToolName: "Glob", Count: 2, AvgDurationMs: 1},
		{ToolName: "Write", Count: 1, AvgDurationMs: 1},
	}
	got := Analyze(nil, stats).ToolProfile
	if len(got) != 5 {
		t.Fatalf("len(ToolProfile) = %d, want 5", len(got))
	}
	if got[0].ToolName != "Read" || got[0].Count != 9 {
		t.Errorf("top entry = %+v, want Read/9", got[0])
	}
}

func TestFileProfile_HotFilesCappedAtThree(t *testing.T) {
	var events []*types.StoredEvent
	files := map[string]int{
		"internal/a.go": 5,
		"internal/b.go": 4,
		"internal/c.go": 3,
		"internal/d.go": 3,
		"pkg/e.go":      2, // below floor, excluded
	}
	for path, n := range files {
		for i := 0; i < n; i++ {
			events = append(events, toolStart("Edit", `{"file_path":"`+path+`"}`))
		}
	}
	got := Analyze(events, nil).FileProfile
	if len(got) != 3 {
		t.Fatalf("len(FileProfile) = %d, want 3 (capped)", len(got))
	}
	if got[0].Path != "internal/a.go" || got[0].EditCount != 5 {
		t.Errorf("hottest file = %+v, want internal/a.go/5", got[0])
	}
	if got[0].DomainTag != "internal" {
		t.Errorf("DomainTag = %s, want internal", got[0].DomainTag)
	}
}

func TestErrorToolNames_DedupedAndSorted(t *testing.T) {
	events := []*types.StoredEvent{
		{Kind: types.EventError, ToolName: "Bash"},
		{Kind: types.EventError, ToolName: "Bash"},
		{Kind: types.EventError, ToolName: "Edit"},
		{Kind: types.EventToolStart, ToolName: "Read"},
	}
	got := Analyze(events, nil).ErrorToolNames
	if len(got) != 2 || got[0] != "Bash" || got[1] != "Edit" {
		t.Errorf("ErrorToolNames = %v, want [Bash Edit]", got)
	}
}
