// Command overstoryd is the orchestration core's daemon entrypoint. It
// is deliberately a thin cobra front end — the full project-scouting,
// spawning, and TUI surface stays out of scope (spec's explicit
// boundary) and is owned by whatever launcher drives agent processes.
package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"
)

var projectRoot string

var rootCmd = &cobra.Command{
	Use:   "overstoryd",
	Short: "Overstory agent orchestration core",
	Long: `overstoryd runs the orchestration core's durable services: the
session/run, mail, event, and merge-queue stores, the ZFC watchdog, and
the tiered merge resolver. It does not spawn agents or render a TUI —
those are launcher concerns outside this core.`,
}

func Execute() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func init() {
	rootCmd.PersistentFlags().StringVar(&projectRoot, "project-root", ".", "project root containing .overstory/")
	rootCmd.AddCommand(serveCmd)
	rootCmd.AddCommand(migrateCmd)
}

func main() {
	Execute()
}
