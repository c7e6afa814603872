package main

import (
	"context"
	"log"
	"os"
	"os/signal"
	"path/filepath"
	"syscall"
	"time"

	"github.com/fsnotify/fsnotify"
	"github.com/spf13/cobra"

	"github.com/dkremnev/overstory/internal/aiclient"
	"github.com/dkremnev/overstory/internal/config"
	"github.com/dkremnev/overstory/internal/eventstore"
	"github.com/dkremnev/overstory/internal/mailstore"
	"github.com/dkremnev/overstory/internal/merge"
	"github.com/dkremnev/overstory/internal/mergequeue"
	"github.com/dkremnev/overstory/internal/sessionstore"
	"github.com/dkremnev/overstory/internal/watchdog"
	"github.com/dkremnev/overstory/pkg/types"
)

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Run the watchdog and merge resolver loops until interrupted",
	RunE:  runServe,
}

// stateDBPaths returns the four store file paths under
// <projectRoot>/.overstory/ (spec §6 state directory layout).
func stateDBPaths(root string) (sessions, mail, events, mergeQ string) {
	dir := filepath.Join(root, ".overstory")
	return filepath.Join(dir, "sessions.db"),
		filepath.Join(dir, "mail.db"),
		filepath.Join(dir, "events.db"),
		filepath.Join(dir, "merge-queue.db")
}

func runServe(cmd *cobra.Command, args []string) error {
	cfg, err := config.Load(projectRoot)
	if err != nil {
		return err
	}

	sessionsPath, mailPath, eventsPath, mergeQPath := stateDBPaths(projectRoot)

	// Four store handles, acquired once and released via defer in
	// reverse order (design note §9, "process-global state").
	sessions, _, err := sessionstore.Open(sessionsPath, "")
	if err != nil {
		return err
	}
	defer sessions.Close()

	events, err := eventstore.Open(eventsPath)
	if err != nil {
		return err
	}
	defer events.Close()

	// mail is a client-library concern invoked by external agent
	// launchers; serve itself performs no mail operations, but the
	// store is still opened and held open here so its lock file and
	// migrations are owned by the daemon's lifetime like every other
	// store.
	mailSt, err := mailstore.Open(mailPath)
	if err != nil {
		return err
	}
	defer mailSt.Close()

	mergeSt, err := mergequeue.Open(mergeQPath)
	if err != nil {
		return err
	}
	defer mergeSt.Close()

	ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	ai := aiclient.NewFromEnv()

	dCfg := watchdog.Config{
		PollInterval:      cfg.Policy.PollInterval,
		GracePeriod:       cfg.Policy.GracePeriod,
		StallThreshold:    cfg.Policy.StallThreshold,
		HardKillThreshold: cfg.Policy.HardKillThreshold,
	}
	mux := watchdog.NoopMultiplexer{}
	d := watchdog.NewDaemon(dCfg, sessions, events, mux, ai)

	resolver := merge.NewResolver(merge.NewGitOps(projectRoot), ai, merge.NewHistoryClient(cfg.Gateway.BaseURL))

	watchConfigReload(ctx, projectRoot)

	go d.Run(ctx)
	go runMergeLoop(ctx, mergeSt, resolver, cfg.Policy.PollInterval)

	<-ctx.Done()
	log.Println("overstoryd: shutting down")
	return nil
}

// runMergeLoop dequeues entries and resolves them one at a time until
// ctx is canceled (spec §4.4, FIFO by monotonic insert id). An empty
// queue backs off for idleInterval instead of spinning.
func runMergeLoop(ctx context.Context, queue *mergequeue.Store, resolver *merge.Resolver, idleInterval time.Duration) {
	for {
		select {
		case <-ctx.Done():
			return
		default:
		}

		entry, err := queue.Dequeue()
		if err != nil {
			log.Printf("overstoryd: merge dequeue error: %v", err)
			continue
		}
		if entry == nil {
			select {
			case <-ctx.Done():
				return
			case <-time.After(idleInterval):
			}
			continue
		}

		result := resolver.Resolve(ctx, entry)
		status := mergequeueStatusFor(result)
		if err := queue.UpdateStatus(entry.BranchName, status, &result.Tier); err != nil {
			log.Printf("overstoryd: merge status update error: %v", err)
		}
	}
}

// mergequeueStatusFor maps a resolver outcome to the queue status it
// settles into: a conflict result that exhausted every tier is
// recorded distinctly from a hard (non-conflict) failure.
func mergequeueStatusFor(result types.MergeResult) types.MergeStatus {
	if result.Success {
		return types.MergeMerged
	}
	if len(result.ConflictFiles) > 0 {
		return types.MergeConflict
	}
	return types.MergeFailed
}

// watchConfigReload watches .overstory/config.yaml with fsnotify and
// logs that a change is pending a restart on write events. It does not
// reload the running configuration.
func watchConfigReload(ctx context.Context, root string) {
	watcher, err := fsnotify.NewWatcher()
	if err != nil {
		log.Printf("overstoryd: config watch disabled: %v", err)
		return
	}

	configDir := filepath.Join(root, ".overstory")
	if err := watcher.Add(configDir); err != nil {
		log.Printf("overstoryd: config watch disabled: %v", err)
		watcher.Close()
		return
	}

	go func() {
		defer watcher.Close()
		for {
			select {
			case <-ctx.Done():
				return
			case ev, ok := <-watcher.Events:
				if !ok {
					return
				}
				if filepath.Base(ev.Name) == "config.yaml" && ev.Op&(fsnotify.Write|fsnotify.Create) != 0 {
					log.Println("overstoryd: config.yaml changed, reload pending restart")
				}
			case err, ok := <-watcher.Errors:
				if !ok {
					return
				}
				log.Printf("overstoryd: config watch error: %v", err)
			}
		}
	}()
}
