package mail

import (
	"path/filepath"
	"testing"

	"github.com/dkremnev/overstory/internal/mailstore"
	"github.com/dkremnev/overstory/pkg/types"
)

type fakeLister struct {
	sessions []*types.AgentSession
}

func (f *fakeLister) GetActive() ([]*types.AgentSession, error) {
	return f.sessions, nil
}

func sess(name string, cap types.Capability) *types.AgentSession {
	return &types.AgentSession{AgentName: name, Capability: cap}
}

func newTestClient(t *testing.T, lister activeAgentLister) (*Client, *mailstore.Store) {
	t.Helper()
	dir := t.TempDir()
	store, err := mailstore.Open(filepath.Join(dir, "mail.db"))
	if err != nil {
		t.Fatalf("mailstore.Open() error = %v", err)
	}
	t.Cleanup(func() { store.Close() })
	return NewClient(store, lister), store
}

// TestSend_GroupFanOut covers P9 and the spec's concrete scenario 5.
func TestSend_GroupFanOut(t *testing.T) {
	lister := &fakeLister{sessions: []*types.AgentSession{
		sess("A", types.CapabilityBuilder),
		sess("B", types.CapabilityBuilder),
		sess("C", types.CapabilityScout),
	}}
	client, _ := newTestClient(t, lister)

	ids, err := client.Send("A", "@builders", "", "hi", types.MailStatus, types.PriorityNormal)
	if err != nil {
		t.Fatalf("Send(@builders) error = %v", err)
	}
	if len(ids) != 1 {
		t.Fatalf("Send(@builders) returned %d ids, want 1", len(ids))
	}

	ids, err = client.Send("A", "@all", "", "hi", types.MailStatus, types.PriorityNormal)
	if err != nil {
		t.Fatalf("Send(@all) error = %v", err)
	}
	if len(ids) != 2 {
		t.Fatalf("Send(@all) returned %d ids, want 2", len(ids))
	}
	seen := map[string]bool{}
	for _, id := range ids {
		if seen[id] {
			t.Errorf("duplicate id %q in fan-out", id)
		}
		seen[id] = true
	}
}

func TestSend_EmptyResolutionIsNoOp(t *testing.T) {
	lister := &fakeLister{}
	client, _ := newTestClient(t, lister)

	ids, err := client.Send("A", "@builders", "", "hi", types.MailStatus, types.PriorityNormal)
	if err != nil {
		t.Fatalf("Send() error = %v", err)
	}
	if ids != nil {
		t.Errorf("Send() with empty resolution = %v, want nil", ids)
	}
}

func TestCheck_AtomicReadAndMark(t *testing.T) {
	lister := &fakeLister{}
	client, store := newTestClient(t, lister)

	if err := store.Insert(&types.MailMessage{From: "x", To: "agent1", Type: types.MailStatus}); err != nil {
		t.Fatal(err)
	}

	snapshot, err := client.Check("agent1")
	if err != nil {
		t.Fatalf("Check() error = %v", err)
	}
	if len(snapshot) != 1 {
		t.Fatalf("Check() returned %d messages, want 1", len(snapshot))
	}

	again, err := client.Check("agent1")
	if err != nil {
		t.Fatalf("second Check() error = %v", err)
	}
	if len(again) != 0 {
		t.Errorf("second Check() returned %d messages, want 0 (already marked read)", len(again))
	}
}

func TestReply_InheritsThreadRoot(t *testing.T) {
	lister := &fakeLister{}
	client, store := newTestClient(t, lister)

	root := &types.MailMessage{From: "A", To: "B", Subject: "question", Body: "?", Type: types.MailQuestion}
	if err := store.Insert(root); err != nil {
		t.Fatal(err)
	}

	firstReplyID, err := client.Reply(root.ID, "B", "answer")
	if err != nil {
		t.Fatalf("Reply() error = %v", err)
	}
	firstReply, err := store.GetByID(firstReplyID)
	if err != nil {
		t.Fatal(err)
	}
	if firstReply.ThreadID == nil || *firstReply.ThreadID != root.ID {
		t.Fatalf("first reply thread_id = %v, want %s", firstReply.ThreadID, root.ID)
	}

	secondReplyID, err := client.Reply(firstReplyID, "A", "follow-up")
	if err != nil {
		t.Fatalf("second Reply() error = %v", err)
	}
	secondReply, err := store.GetByID(secondReplyID)
	if err != nil {
		t.Fatal(err)
	}
	if secondReply.ThreadID == nil || *secondReply.ThreadID != root.ID {
		t.Errorf("reply-to-reply thread_id = %v, want root id %s", secondReply.ThreadID, root.ID)
	}
}
