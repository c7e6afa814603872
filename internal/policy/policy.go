// Package policy holds the capability-keyed policy table that replaces
// inheritance-style agent roles with a flat enum + lookup (design note
// §9). It generalizes the teacher's orchestrator/policy.Config (a single
// tunables struct) into a per-Capability table of spawn rights, tool
// whitelist, and worktree path boundaries, and its protect package's
// glob matcher into the path-boundary check.
package policy

import "github.com/dkremnev/overstory/pkg/types"

// CapabilityPolicy is the full set of rules attached to one capability.
type CapabilityPolicy struct {
	// SpawnableChildren is the set of capabilities this capability may
	// spawn as direct children.
	SpawnableChildren map[types.Capability]bool

	// ToolWhitelist is the set of tool names this capability may invoke.
	// A nil whitelist means unrestricted (coordinator/supervisor).
	ToolWhitelist map[string]bool

	// PathBoundaries are glob patterns (teacher's ** / * syntax) this
	// capability's worktree writes must stay within. An empty slice
	// means unrestricted.
	PathBoundaries []string
}

// Table is the closed capability -> policy lookup (spec §4.7,
// "capability enum + lookup table").
var Table = map[types.Capability]CapabilityPolicy{
	types.CapabilityCoordinator: {
		SpawnableChildren: set(types.CapabilitySupervisor, types.CapabilityLead, types.CapabilityMonitor),
		ToolWhitelist:     nil,
		PathBoundaries:    nil,
	},
	types.CapabilitySupervisor: {
		SpawnableChildren: set(types.CapabilityLead, types.CapabilityBuilder, types.CapabilityScout),
		ToolWhitelist:     nil,
		PathBoundaries:    nil,
	},
	types.CapabilityLead: {
		SpawnableChildren: set(types.CapabilityBuilder, types.CapabilityScout, types.CapabilityReviewer),
		ToolWhitelist:     toolSet("Read", "Grep", "Glob", "Bash", "Edit", "Write"),
		PathBoundaries:    []string{"**"},
	},
	types.CapabilityBuilder: {
		SpawnableChildren: nil,
		ToolWhitelist:     toolSet("Read", "Grep", "Glob", "Bash", "Edit", "Write"),
		PathBoundaries:    []string{"**"},
	},
	types.CapabilityScout: {
		SpawnableChildren: nil,
		ToolWhitelist:     toolSet("Read", "Grep", "Glob", "WebFetch"),
		PathBoundaries:    []string{"**"},
	},
	types.CapabilityReviewer: {
		SpawnableChildren: nil,
		ToolWhitelist:     toolSet("Read", "Grep", "Glob"),
		PathBoundaries:    []string{"**"},
	},
	types.CapabilityMerger: {
		SpawnableChildren: nil,
		ToolWhitelist:     toolSet("Read", "Grep", "Glob", "Bash", "Edit"),
		PathBoundaries:    []string{"**"},
	},
	types.CapabilityMonitor: {
		SpawnableChildren: nil,
		ToolWhitelist:     toolSet("Read", "Grep", "Glob"),
		PathBoundaries:    nil,
	},
}

func set(caps ...types.Capability) map[types.Capability]bool {
	out := make(map[types.Capability]bool, len(caps))
	for _, c := range caps {
		out[c] = true
	}
	return out
}

func toolSet(names ...string) map[string]bool {
	out := make(map[string]bool, len(names))
	for _, n := range names {
		out[n] = true
	}
	return out
}

// CanSpawn reports whether parent may spawn a child of the given
// capability.
func CanSpawn(parent, child types.Capability) bool {
	p, ok := Table[parent]
	if !ok {
		return false
	}
	return p.SpawnableChildren[child]
}

// ToolAllowed reports whether a capability may invoke the named tool. A
// nil whitelist (coordinator, supervisor) permits every tool.
func ToolAllowed(cap types.Capability, toolName string) bool {
	p, ok := Table[cap]
	if !ok {
		return false
	}
	if p.ToolWhitelist == nil {
		return true
	}
	return p.ToolWhitelist[toolName]
}

// PathAllowed reports whether path falls within one of the capability's
// worktree path boundaries. No boundaries means unrestricted.
func PathAllowed(cap types.Capability, path string) bool {
	p, ok := Table[cap]
	if !ok {
		return false
	}
	if len(p.PathBoundaries) == 0 {
		return true
	}
	for _, pattern := range p.PathBoundaries {
		if matchGlobPattern(path, pattern) {
			return true
		}
	}
	return false
}
