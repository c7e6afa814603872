package types

// WorkflowLabel classifies a session's dominant tool-usage pattern.
type WorkflowLabel string

const (
	WorkflowReadHeavy  WorkflowLabel = "read-heavy"
	WorkflowWriteHeavy WorkflowLabel = "write-heavy"
	WorkflowBashHeavy  WorkflowLabel = "bash-heavy"
	WorkflowBalanced   WorkflowLabel = "balanced"
)

// ToolProfileEntry is one row of the top-5-by-count tool summary.
type ToolProfileEntry struct {
	ToolName      string  `json:"tool_name"`
	Count         int     `json:"count"`
	MeanDurationMs float64 `json:"mean_duration_ms"`
}

// FileProfileEntry is one row of the hot-files summary (>= 3 edits).
type FileProfileEntry struct {
	Path      string `json:"path"`
	EditCount int    `json:"edit_count"`
	DomainTag string `json:"domain_tag,omitempty"`
}

// InsightAnalysis is the Insight Analyzer's pure output (spec §4.6).
type InsightAnalysis struct {
	Workflow       WorkflowLabel      `json:"workflow"`
	ToolProfile    []ToolProfileEntry `json:"tool_profile"`
	FileProfile    []FileProfileEntry `json:"file_profile"`
	ErrorToolNames []string           `json:"error_tool_names"`
}
