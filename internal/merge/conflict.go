package merge

import (
	"fmt"
	"strings"
)

// conflictBlock is one parsed <<<<<<< / ======= / >>>>>>> region.
type conflictBlock struct {
	Ours     string
	Incoming string
}

// parseConflictMarkers extracts every three-way conflict block from
// content. Returns an error if the markers are not well-formed
// (unbalanced or missing a separator), per spec §4.4 tier 2 "abort this
// tier" rule.
func parseConflictMarkers(content string) ([]conflictBlock, error) {
	lines := strings.Split(content, "\n")
	var blocks []conflictBlock
	i := 0
	for i < len(lines) {
		if !strings.HasPrefix(lines[i], "<<<<<<<") {
			i++
			continue
		}
		start := i
		i++
		var ours []string
		for i < len(lines) && !strings.HasPrefix(lines[i], "=======") {
			ours = append(ours, lines[i])
			i++
		}
		if i >= len(lines) {
			return nil, fmt.Errorf("unterminated conflict block starting at line %d", start)
		}
		i++ // skip =======
		var incoming []string
		for i < len(lines) && !strings.HasPrefix(lines[i], ">>>>>>>") {
			incoming = append(incoming, lines[i])
			i++
		}
		if i >= len(lines) {
			return nil, fmt.Errorf("missing closing marker for conflict block starting at line %d", start)
		}
		i++ // skip >>>>>>>
		blocks = append(blocks, conflictBlock{
			Ours:     strings.Join(ours, "\n"),
			Incoming: strings.Join(incoming, "\n"),
		})
	}
	if len(blocks) == 0 {
		return nil, fmt.Errorf("no conflict markers found")
	}
	return blocks, nil
}

// stripKeepIncoming rewrites content, replacing every conflict block
// with its incoming (agent-branch) side — tier 2's "keep incoming"
// policy (spec §4.4): the canonical branch is the "theirs" baseline and
// the agent's work is what is being integrated.
func stripKeepIncoming(content string) (string, error) {
	lines := strings.Split(content, "\n")
	var out []string
	i := 0
	for i < len(lines) {
		if !strings.HasPrefix(lines[i], "<<<<<<<") {
			out = append(out, lines[i])
			i++
			continue
		}
		i++
		for i < len(lines) && !strings.HasPrefix(lines[i], "=======") {
			i++
		}
		if i >= len(lines) {
			return "", fmt.Errorf("unterminated conflict block")
		}
		i++
		for i < len(lines) && !strings.HasPrefix(lines[i], ">>>>>>>") {
			out = append(out, lines[i])
			i++
		}
		if i >= len(lines) {
			return "", fmt.Errorf("missing closing marker")
		}
		i++
	}
	return strings.Join(out, "\n"), nil
}
