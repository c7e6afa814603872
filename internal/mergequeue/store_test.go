package mergequeue

import (
	"path/filepath"
	"testing"

	"github.com/dkremnev/overstory/pkg/types"
)

func newTestStore(t *testing.T) *Store {
	t.Helper()
	dir := t.TempDir()
	s, err := Open(filepath.Join(dir, "merge_queue.db"))
	if err != nil {
		t.Fatalf("Open() error = %v", err)
	}
	t.Cleanup(func() { s.Close() })
	return s
}

// TestDequeue_FIFOByInsertID covers P6.
func TestDequeue_FIFOByInsertID(t *testing.T) {
	s := newTestStore(t)

	names := []string{"branch-a", "branch-b", "branch-c"}
	for _, name := range names {
		entry := &types.MergeEntry{BranchName: name, Files: []string{"f.go"}}
		if err := s.Enqueue(entry); err != nil {
			t.Fatalf("Enqueue(%s) error = %v", name, err)
		}
	}

	for _, want := range names {
		got, err := s.Dequeue()
		if err != nil {
			t.Fatalf("Dequeue() error = %v", err)
		}
		if got == nil {
			t.Fatalf("Dequeue() returned nil, want %s", want)
		}
		if got.BranchName != want {
			t.Errorf("Dequeue() = %s, want %s", got.BranchName, want)
		}
		if got.Status != types.MergeMerging {
			t.Errorf("Dequeue() status = %s, want merging", got.Status)
		}
	}

	none, err := s.Dequeue()
	if err != nil {
		t.Fatalf("Dequeue() on empty queue error = %v", err)
	}
	if none != nil {
		t.Errorf("Dequeue() on empty queue = %+v, want nil", none)
	}
}

func TestUpdateStatus_SetsResolvedTier(t *testing.T) {
	s := newTestStore(t)
	entry := &types.MergeEntry{BranchName: "branch-a", Files: []string{"a.ts"}}
	if err := s.Enqueue(entry); err != nil {
		t.Fatal(err)
	}
	if _, err := s.Dequeue(); err != nil {
		t.Fatal(err)
	}

	tier := types.TierCleanMerge
	if err := s.UpdateStatus("branch-a", types.MergeMerged, &tier); err != nil {
		t.Fatalf("UpdateStatus() error = %v", err)
	}

	all, err := s.List(types.MergeMerged)
	if err != nil {
		t.Fatalf("List() error = %v", err)
	}
	if len(all) != 1 || all[0].ResolvedTier == nil || *all[0].ResolvedTier != types.TierCleanMerge {
		t.Errorf("List(merged) = %+v, want one entry with tier clean-merge", all)
	}
}

func TestUpdateStatus_NotFound(t *testing.T) {
	s := newTestStore(t)
	if err := s.UpdateStatus("does-not-exist", types.MergeFailed, nil); err != ErrNotFound {
		t.Errorf("UpdateStatus() error = %v, want ErrNotFound", err)
	}
}

func TestPeek_DoesNotClaim(t *testing.T) {
	s := newTestStore(t)
	if err := s.Enqueue(&types.MergeEntry{BranchName: "branch-a", Files: []string{"a.ts"}}); err != nil {
		t.Fatal(err)
	}

	peeked, err := s.Peek()
	if err != nil {
		t.Fatalf("Peek() error = %v", err)
	}
	if peeked.Status != types.MergePending {
		t.Errorf("Peek() status = %s, want pending", peeked.Status)
	}

	dequeued, err := s.Dequeue()
	if err != nil {
		t.Fatal(err)
	}
	if dequeued.BranchName != "branch-a" {
		t.Errorf("Dequeue() after Peek() = %s, want branch-a", dequeued.BranchName)
	}
}
