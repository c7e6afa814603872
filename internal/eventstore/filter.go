package eventstore

import (
	"fmt"
	"sort"
	"strings"

	"github.com/dkremnev/overstory/pkg/types"
)

// FilterToolArgs reduces a tool's raw argument map to the compact
// {args, summary} shape the event store persists, before insertion
// (spec §4.2). It is pure, deterministic, and dispatches on a closed
// set of known tool names; unknown tools fall through to the default
// case. This is the "dynamic dispatch on tool kind" design note (§9)
// realized as a map[string]func literal rather than open polymorphism.
func FilterToolArgs(toolName string, rawArgs map[string]any) types.ToolFilterResult {
	if fn, ok := toolFilters[toolName]; ok {
		return fn(rawArgs)
	}
	return defaultFilter(rawArgs)
}

type filterFunc func(map[string]any) types.ToolFilterResult

var toolFilters = map[string]filterFunc{
	"Bash": func(raw map[string]any) types.ToolFilterResult {
		cmd, _ := raw["command"].(string)
		return types.ToolFilterResult{
			Args:    pick(raw, "command"),
			Summary: truncate(cmd, 120),
		}
	},
	"Read": func(raw map[string]any) types.ToolFilterResult {
		path, _ := raw["file_path"].(string)
		return types.ToolFilterResult{
			Args:    pick(raw, "file_path", "offset", "limit"),
			Summary: path,
		}
	},
	"Edit": func(raw map[string]any) types.ToolFilterResult {
		path, _ := raw["file_path"].(string)
		return types.ToolFilterResult{
			Args:    pick(raw, "file_path"),
			Summary: path,
		}
	},
	"Write": func(raw map[string]any) types.ToolFilterResult {
		path, _ := raw["file_path"].(string)
		return types.ToolFilterResult{
			Args:    pick(raw, "file_path"),
			Summary: path,
		}
	},
	"Grep": func(raw map[string]any) types.ToolFilterResult {
		pattern, _ := raw["pattern"].(string)
		return types.ToolFilterResult{
			Args:    pick(raw, "pattern", "path", "glob"),
			Summary: fmt.Sprintf("pattern=%q", pattern),
		}
	},
	"Glob": func(raw map[string]any) types.ToolFilterResult {
		pattern, _ := raw["pattern"].(string)
		return types.ToolFilterResult{
			Args:    pick(raw, "pattern", "path"),
			Summary: pattern,
		}
	},
	"WebFetch": func(raw map[string]any) types.ToolFilterResult {
		url, _ := raw["url"].(string)
		return types.ToolFilterResult{
			Args:    pick(raw, "url"),
			Summary: url,
		}
	},
}

// defaultFilter passes unknown tools through with an empty args object
// and a summary built from the key list, as required by spec §4.2.
func defaultFilter(raw map[string]any) types.ToolFilterResult {
	keys := make([]string, 0, len(raw))
	for k := range raw {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return types.ToolFilterResult{
		Args:    map[string]any{},
		Summary: strings.Join(keys, ","),
	}
}

func pick(raw map[string]any, keys ...string) map[string]any {
	out := make(map[string]any, len(keys))
	for _, k := range keys {
		if v, ok := raw[k]; ok {
			out[k] = v
		}
	}
	return out
}

func truncate(s string, max int) string {
	if len(s) <= max {
		return s
	}
	return s[:max] + "..."
}
