// Package mail is the client-level mail API (spec §4.3): group address
// fan-out, atomic check-and-mark, and reply threading layered on top of
// internal/mailstore's plain row operations.
package mail

import (
	"github.com/dkremnev/overstory/pkg/types"
)

// capabilityGroups maps a group address to the capability it fans out
// to. "@all" is handled separately since it has no single capability.
var capabilityGroups = map[string]types.Capability{
	"@builders":  types.CapabilityBuilder,
	"@scouts":    types.CapabilityScout,
	"@reviewers": types.CapabilityReviewer,
	"@mergers":   types.CapabilityMerger,
	"@leads":     types.CapabilityLead,
}

// activeAgentLister is the narrow view of sessionstore.Store that group
// resolution needs.
type activeAgentLister interface {
	GetActive() ([]*types.AgentSession, error)
}

// resolveRecipients expands a `to` address into one or more concrete
// agent names. Plain (non-"@") addresses resolve to themselves. Group
// addresses consult the live active-session list and exclude the
// sender (spec §4.3 "group address resolution"). An unknown group
// address resolves to the empty set rather than erroring, matching the
// "empty set is a no-op" rule given for known groups.
func resolveRecipients(sessions activeAgentLister, to, from string) ([]string, error) {
	if len(to) == 0 || to[0] != '@' {
		return []string{to}, nil
	}

	active, err := sessions.GetActive()
	if err != nil {
		return nil, err
	}

	var recipients []string
	if to == "@all" {
		for _, sess := range active {
			if sess.AgentName != from {
				recipients = append(recipients, sess.AgentName)
			}
		}
		return recipients, nil
	}

	cap, ok := capabilityGroups[to]
	if !ok {
		return nil, nil
	}
	for _, sess := range active {
		if sess.AgentName != from && sess.Capability == cap {
			recipients = append(recipients, sess.AgentName)
		}
	}
	return recipients, nil
}
