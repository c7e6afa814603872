package merge

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/dkremnev/overstory/internal/aiclient"
	"github.com/dkremnev/overstory/pkg/types"
)

// AIResolverTimeout bounds a single AI-resolve call per conflicted file
// (spec §5 "AI resolver 120s per file").
const AIResolverTimeout = 120 * time.Second

// Resolver runs a MergeEntry through the four escalation tiers
// (clean-merge, auto-resolve, ai-resolve, reimagine), short-circuiting
// on the first tier that succeeds.
type Resolver struct {
	git     GitOps
	ai      aiclient.Resolver
	history *HistoryClient
}

func NewResolver(git GitOps, ai aiclient.Resolver, history *HistoryClient) *Resolver {
	return &Resolver{git: git, ai: ai, history: history}
}

type tierFunc func(ctx context.Context, r *Resolver, entry *types.MergeEntry, history types.ConflictHistory) (types.MergeResult, bool)

// MergeTierWithFunc pairs a tier tag with its handler, preserving the
// spec's fixed escalation order while still being a closed dispatch
// table rather than open polymorphism (spec §9).
type MergeTierWithFunc struct {
	Tier types.MergeTier
	Fn   tierFunc
}

var tierHandlers = []MergeTierWithFunc{
	{types.TierCleanMerge, tierCleanMerge},
	{types.TierAutoResolve, tierAutoResolve},
	{types.TierAIResolve, tierAIResolve},
	{types.TierReimagine, tierReimagine},
}

// Resolve runs entry through every non-skipped tier in order, records
// the final outcome to the expertise service fire-and-forget, and
// returns the MergeResult. Status updates to the queue are the
// caller's responsibility (spec §4.4 "exactly once per entry").
func (r *Resolver) Resolve(ctx context.Context, entry *types.MergeEntry) types.MergeResult {
	history := r.history.Lookup(ctx, entry.Files)
	skip := make(map[types.MergeTier]bool, len(history.SkipTiers))
	for _, t := range history.SkipTiers {
		skip[t] = true
	}

	var last types.MergeResult
	for _, h := range tierHandlers {
		if skip[h.Tier] {
			continue
		}
		result, ok := h.Fn(ctx, r, entry, history)
		last = result
		if ok {
			go r.history.RecordOutcome(context.Background(), result)
			return result
		}
	}

	go r.history.RecordOutcome(context.Background(), last)
	return last
}

func tierCleanMerge(ctx context.Context, r *Resolver, entry *types.MergeEntry, _ types.ConflictHistory) (types.MergeResult, bool) {
	cctx, cancel := context.WithTimeout(ctx, GitDefaultTimeout)
	defer cancel()

	err := r.git.MergeNoFF(cctx, entry.BranchName)
	if err == nil {
		return types.MergeResult{Entry: entry, Success: true, Tier: types.TierCleanMerge}, true
	}

	conflicted, cErr := r.git.ConflictedFiles(cctx)
	if cErr != nil || len(conflicted) == 0 {
		_ = r.git.MergeAbort(cctx)
		return types.MergeResult{
			Entry: entry, Success: false, Tier: types.TierCleanMerge,
			ErrorMessage: fmt.Sprintf("merge failed with no conflicts detected: %v", err),
		}, false
	}

	return types.MergeResult{
		Entry: entry, Success: false, Tier: types.TierCleanMerge, ConflictFiles: conflicted,
		ErrorMessage: err.Error(),
	}, false
}

func tierAutoResolve(ctx context.Context, r *Resolver, entry *types.MergeEntry, _ types.ConflictHistory) (types.MergeResult, bool) {
	cctx, cancel := context.WithTimeout(ctx, GitDefaultTimeout)
	defer cancel()

	conflicted, err := r.git.ConflictedFiles(cctx)
	if err != nil || len(conflicted) == 0 {
		return abortTier(ctx, r, entry, types.TierAutoResolve, "no conflicted files to resolve")
	}

	for _, path := range conflicted {
		content, err := r.git.ReadWorkingFile(path)
		if err != nil {
			return abortTier(ctx, r, entry, types.TierAutoResolve, fmt.Sprintf("read %s: %v", path, err))
		}
		if _, err := parseConflictMarkers(content); err != nil {
			return abortTier(ctx, r, entry, types.TierAutoResolve, fmt.Sprintf("%s: %v", path, err))
		}
		resolved, err := stripKeepIncoming(content)
		if err != nil {
			return abortTier(ctx, r, entry, types.TierAutoResolve, fmt.Sprintf("%s: %v", path, err))
		}
		if err := r.git.WriteWorkingFile(path, resolved); err != nil {
			return abortTier(ctx, r, entry, types.TierAutoResolve, fmt.Sprintf("write %s: %v", path, err))
		}
	}

	if err := r.git.Add(cctx, conflicted...); err != nil {
		return abortTier(ctx, r, entry, types.TierAutoResolve, err.Error())
	}
	if err := r.git.Commit(cctx, fmt.Sprintf("Merge %s (auto-resolve: keep incoming)", entry.BranchName)); err != nil {
		return abortTier(ctx, r, entry, types.TierAutoResolve, err.Error())
	}

	return types.MergeResult{Entry: entry, Success: true, Tier: types.TierAutoResolve}, true
}

func tierAIResolve(ctx context.Context, r *Resolver, entry *types.MergeEntry, history types.ConflictHistory) (types.MergeResult, bool) {
	gctx, cancel := context.WithTimeout(ctx, GitDefaultTimeout)
	defer cancel()

	conflicted, err := r.git.ConflictedFiles(gctx)
	if err != nil || len(conflicted) == 0 {
		return abortTier(ctx, r, entry, types.TierAIResolve, "no conflicted files to resolve")
	}

	for _, path := range conflicted {
		ours, err := r.git.Show(gctx, "HEAD", path)
		if err != nil {
			return abortTier(ctx, r, entry, types.TierAIResolve, fmt.Sprintf("show ours %s: %v", path, err))
		}
		theirs, err := r.git.Show(gctx, entry.BranchName, path)
		if err != nil {
			return abortTier(ctx, r, entry, types.TierAIResolve, fmt.Sprintf("show theirs %s: %v", path, err))
		}
		conflictBody, err := r.git.ReadWorkingFile(path)
		if err != nil {
			return abortTier(ctx, r, entry, types.TierAIResolve, fmt.Sprintf("read %s: %v", path, err))
		}

		prompt := buildAIResolvePrompt(path, ours, theirs, conflictBody, history.PastResolutions)

		actx, acancel := context.WithTimeout(ctx, AIResolverTimeout)
		resp, err := r.ai.Complete(actx, aiclient.Request{Prompt: prompt, MaxTokens: 8192})
		acancel()
		if err != nil {
			return abortTier(ctx, r, entry, types.TierAIResolve, fmt.Sprintf("%s: %v", path, err))
		}
		if !looksLikeCode(resp.Text) {
			return abortTier(ctx, r, entry, types.TierAIResolve, fmt.Sprintf("%s: ai output failed looks_like_code validation", path))
		}
		if err := r.git.WriteWorkingFile(path, resp.Text); err != nil {
			return abortTier(ctx, r, entry, types.TierAIResolve, fmt.Sprintf("write %s: %v", path, err))
		}
	}

	if err := r.git.Add(gctx, conflicted...); err != nil {
		return abortTier(ctx, r, entry, types.TierAIResolve, err.Error())
	}
	if err := r.git.Commit(gctx, fmt.Sprintf("Merge %s (ai-resolve)", entry.BranchName)); err != nil {
		return abortTier(ctx, r, entry, types.TierAIResolve, err.Error())
	}

	return types.MergeResult{Entry: entry, Success: true, Tier: types.TierAIResolve}, true
}

// tierReimagine is the last-resort tier: it hands the whole file set to
// the AI with no conflict-marker scaffolding, asking for a from-scratch
// reconciliation. It always terminates the escalation ladder (success
// or failure), never escalating further.
func tierReimagine(ctx context.Context, r *Resolver, entry *types.MergeEntry, history types.ConflictHistory) (types.MergeResult, bool) {
	gctx, cancel := context.WithTimeout(ctx, GitDefaultTimeout)
	defer cancel()

	conflicted, err := r.git.ConflictedFiles(gctx)
	if err != nil || len(conflicted) == 0 {
		conflicted = entry.Files
	}

	for _, path := range conflicted {
		ours, _ := r.git.Show(gctx, "HEAD", path)
		theirs, _ := r.git.Show(gctx, entry.BranchName, path)

		prompt := buildReimaginePrompt(path, ours, theirs, history.PastResolutions)
		actx, acancel := context.WithTimeout(ctx, AIResolverTimeout)
		resp, err := r.ai.Complete(actx, aiclient.Request{Prompt: prompt, MaxTokens: 8192})
		acancel()
		if err != nil || !looksLikeCode(resp.Text) {
			_ = r.git.MergeAbort(gctx)
			return types.MergeResult{
				Entry: entry, Success: false, Tier: types.TierReimagine, ConflictFiles: conflicted,
				ErrorMessage: fmt.Sprintf("reimagine failed for %s", path),
			}, true
		}
		if err := r.git.WriteWorkingFile(path, resp.Text); err != nil {
			_ = r.git.MergeAbort(gctx)
			return types.MergeResult{
				Entry: entry, Success: false, Tier: types.TierReimagine, ConflictFiles: conflicted,
				ErrorMessage: err.Error(),
			}, true
		}
	}

	if err := r.git.Add(gctx, conflicted...); err != nil {
		return types.MergeResult{Entry: entry, Success: false, Tier: types.TierReimagine, ErrorMessage: err.Error()}, true
	}
	// Recorded as a synthetic merge with both the canonical tip and the
	// agent branch as parents, even though no real `git merge` ran
	// (spec §4.4 tier 4 "two parents recorded via the queue entry and
	// branch refs").
	if err := r.git.Commit(gctx, fmt.Sprintf("Merge %s (reimagine)", entry.BranchName), "HEAD", entry.BranchName); err != nil {
		return types.MergeResult{Entry: entry, Success: false, Tier: types.TierReimagine, ErrorMessage: err.Error()}, true
	}

	return types.MergeResult{Entry: entry, Success: true, Tier: types.TierReimagine}, true
}

func abortTier(ctx context.Context, r *Resolver, entry *types.MergeEntry, tier types.MergeTier, reason string) (types.MergeResult, bool) {
	cctx, cancel := context.WithTimeout(ctx, GitDefaultTimeout)
	defer cancel()
	_ = r.git.MergeAbort(cctx)
	return types.MergeResult{Entry: entry, Success: false, Tier: tier, ErrorMessage: reason}, false
}

func buildAIResolvePrompt(path, ours, theirs, conflictBody string, pastResolutions []string) string {
	var sb strings.Builder
	fmt.Fprintf(&sb, "Resolve the git merge conflict in %s.\n\nOurs (canonical):\n%s\n\nIncoming (agent branch):\n%s\n\nConflict markers:\n%s\n",
		path, ours, theirs, conflictBody)
	if len(pastResolutions) > 0 {
		sb.WriteString("\nPast resolutions for similar conflicts:\n")
		for _, p := range pastResolutions {
			sb.WriteString("- " + p + "\n")
		}
	}
	sb.WriteString("\nReturn only the fully resolved file content, no commentary.")
	return sb.String()
}

func buildReimaginePrompt(path, ours, theirs string, pastResolutions []string) string {
	var sb strings.Builder
	fmt.Fprintf(&sb, "Reconcile %s from scratch given two divergent versions.\n\nOurs:\n%s\n\nIncoming:\n%s\n", path, ours, theirs)
	if len(pastResolutions) > 0 {
		sb.WriteString("\nPast resolutions for similar conflicts:\n")
		for _, p := range pastResolutions {
			sb.WriteString("- " + p + "\n")
		}
	}
	sb.WriteString("\nReturn only the reconciled file content, no commentary.")
	return sb.String()
}
