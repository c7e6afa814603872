// Package insight implements the Insight Analyzer (spec §4.6): a pure
// function over a session's events and tool stats that classifies the
// workflow shape, ranks tools and files, and tags hot files by domain.
// It performs no I/O — every input is supplied by the caller, which owns
// the event store query.
package insight

import (
	"sort"
	"strings"

	"github.com/dkremnev/overstory/pkg/types"
)

// minToolCallsForClassification is the spec's "with >= 10 tool calls"
// threshold below which the workflow is left unclassified (balanced).
const minToolCallsForClassification = 10

// hotFileMinEdits is the spec's ">= 3 edits" hot-file floor.
const hotFileMinEdits = 3

// hotFileCap is the spec's "capped at top 3" hot-file list size.
const hotFileCap = 3

// toolProfileCap is the spec's "top 5 tools by count" list size.
const toolProfileCap = 5

// toolKind classifies a tool name into the dominant-kind buckets the
// workflow label dispatches on.
type toolKind string

const (
	kindRead    toolKind = "read"
	kindWrite   toolKind = "write"
	kindBash    toolKind = "bash"
	kindOther   toolKind = "other"
)

// toolKinds is the closed dispatch table mapping known tool names to
// their kind, mirroring the event store's FilterToolArgs tool-name set.
var toolKinds = map[string]toolKind{
	"Read":  kindRead,
	"Grep":  kindRead,
	"Glob":  kindRead,
	"Edit":  kindWrite,
	"Write": kindWrite,
	"Bash":  kindBash,
}

// domainTags maps a path prefix to a human domain label. Fixed
// configuration per spec §4.6 ("mapping table is fixed configuration").
var domainTags = []struct {
	prefix string
	tag    string
}{
	{"internal/", "internal"},
	{"pkg/", "pkg"},
	{"cmd/", "cmd"},
	{"test/", "test"},
	{"docs/", "docs"},
}

// Analyze classifies a workflow from its event log and tool_stats
// aggregate, producing an InsightAnalysis. events should be ordered by
// insertion (ascending) but Analyze does not require it.
func Analyze(events []*types.StoredEvent, toolStats []types.ToolStat) types.InsightAnalysis {
	return types.InsightAnalysis{
		Workflow:       classifyWorkflow(events),
		ToolProfile:    toolProfile(toolStats),
		FileProfile:    fileProfile(events),
		ErrorToolNames: errorToolNames(events),
	}
}

func classifyWorkflow(events []*types.StoredEvent) types.WorkflowLabel {
	counts := map[toolKind]int{}
	total := 0
	for _, e := range events {
		if e.Kind != types.EventToolStart {
			continue
		}
		total++
		counts[kindOf(e.ToolName)]++
	}
	if total < minToolCallsForClassification {
		return types.WorkflowBalanced
	}

	dominant := toolKind(kindOther)
	best := 0
	for k, c := range counts {
		if c > best {
			best = c
			dominant = k
		}
	}
	// A dominant kind must be a strict majority (more than half of all
	// calls) to label; otherwise the mix counts as balanced.
	if float64(best) <= float64(total)/2 {
		return types.WorkflowBalanced
	}

	switch dominant {
	case kindRead:
		return types.WorkflowReadHeavy
	case kindWrite:
		return types.WorkflowWriteHeavy
	case kindBash:
		return types.WorkflowBashHeavy
	default:
		return types.WorkflowBalanced
	}
}

func kindOf(toolName string) toolKind {
	if k, ok := toolKinds[toolName]; ok {
		return k
	}
	return kindOther
}

func toolProfile(stats []types.ToolStat) []types.ToolProfileEntry {
	sorted := make([]types.ToolStat, len(stats))
	copy(sorted, stats)
	sort.Slice(sorted, func(i, j int) bool { return sorted[i].Count > sorted[j].Count })

	n := len(sorted)
	if n > toolProfileCap {
		n = toolProfileCap
	}
	out := make([]types.ToolProfileEntry, 0, n)
	for _, s := range sorted[:n] {
		out = append(out, types.ToolProfileEntry{
			ToolName:       s.ToolName,
			Count:          s.Count,
			MeanDurationMs: s.AvgDurationMs,
		})
	}
	return out
}

func fileProfile(events []*types.StoredEvent) []types.FileProfileEntry {
	editCounts := map[string]int{}
	for _, e := range events {
		if e.Kind != types.EventToolStart {
			continue
		}
		if kindOf(e.ToolName) != kindWrite {
			continue
		}
		path := pathFromSummary(e.ToolArgsJSON)
		if path == "" {
			continue
		}
		editCounts[path]++
	}

	type kv struct {
		path  string
		count int
	}
	var hot []kv
	for p, c := range editCounts {
		if c >= hotFileMinEdits {
			hot = append(hot, kv{p, c})
		}
	}
	sort.Slice(hot, func(i, j int) bool {
		if hot[i].count != hot[j].count {
			return hot[i].count > hot[j].count
		}
		return hot[i].path < hot[j].path
	})

	n := len(hot)
	if n > hotFileCap {
		n = hotFileCap
	}
	out := make([]types.FileProfileEntry, 0, n)
	for _, h := range hot[:n] {
		out = append(out, types.FileProfileEntry{
			Path:      h.path,
			EditCount: h.count,
			DomainTag: domainTagFor(h.path),
		})
	}
	return out
}

// pathFromSummary recovers the edited file path from the event's stored
// tool_args payload. The event store persists Edit/Write args as a JSON
// object whose "file_path" key holds the path (see FilterToolArgs); a
// shallow substring scan avoids re-parsing JSON for a single field.
func pathFromSummary(toolArgsJSON string) string {
	const key = `"file_path":"`
	idx := strings.Index(toolArgsJSON, key)
	if idx < 0 {
		return ""
	}
	rest := toolArgsJSON[idx+len(key):]
	end := strings.IndexByte(rest, '"')
	if end < 0 {
		return ""
	}
	return rest[:end]
}

func domainTagFor(path string) string {
	for _, dt := range domainTags {
		if strings.HasPrefix(path, dt.prefix) {
			return dt.tag
		}
	}
	return ""
}

func errorToolNames(events []*types.StoredEvent) []string {
	seen := map[string]bool{}
	var out []string
	for _, e := range events {
		if e.Kind != types.EventError || e.ToolName == "" {
			continue
		}
		if !seen[e.ToolName] {
			seen[e.ToolName] = true
			out = append(out, e.ToolName)
		}
	}
	sort.Strings(out)
	return out
}
