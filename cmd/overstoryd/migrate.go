package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/dkremnev/overstory/internal/eventstore"
	"github.com/dkremnev/overstory/internal/mailstore"
	"github.com/dkremnev/overstory/internal/mergequeue"
	"github.com/dkremnev/overstory/internal/sessionstore"
)

var migrateCmd = &cobra.Command{
	Use:   "migrate",
	Short: "Apply pending schema migrations to the four state stores",
	RunE:  runMigrate,
}

// runMigrate opens and closes each store in turn. Each store applies
// its own pending migrations during Open via schema_version
// bookkeeping, so this command has no migration logic of its own.
func runMigrate(cmd *cobra.Command, args []string) error {
	sessionsPath, mailPath, eventsPath, mergeQPath := stateDBPaths(projectRoot)

	sessions, _, err := sessionstore.Open(sessionsPath, "")
	if err != nil {
		return fmt.Errorf("sessions: %w", err)
	}
	sessions.Close()

	events, err := eventstore.Open(eventsPath)
	if err != nil {
		return fmt.Errorf("events: %w", err)
	}
	events.Close()

	mailSt, err := mailstore.Open(mailPath)
	if err != nil {
		return fmt.Errorf("mail: %w", err)
	}
	mailSt.Close()

	mergeSt, err := mergequeue.Open(mergeQPath)
	if err != nil {
		return fmt.Errorf("merge queue: %w", err)
	}
	mergeSt.Close()

	fmt.Println("overstoryd: migrations applied")
	return nil
}
