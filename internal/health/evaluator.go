// Package health is the pure ZFC health evaluator (spec §4.5). It takes
// no store handle and performs no I/O: every suspension point (the
// multiplexer probe, the clock) is resolved by the caller before
// calling Evaluate.
package health

import (
	"time"

	"github.com/dkremnev/overstory/pkg/types"
)

// DefaultStallThreshold is the default duration after which a silent
// working session is considered stale.
const DefaultStallThreshold = 10 * time.Minute

// Config carries the evaluator's one configurable threshold: the stall
// threshold, which gates rule 3. The hard-kill threshold is not part of
// it; it lives in the watchdog's own Config.
type Config struct {
	StallThreshold time.Duration
}

func DefaultConfig() Config {
	return Config{StallThreshold: DefaultStallThreshold}
}

// Evaluate applies the six ordered rules of spec §4.5 against one
// session and its multiplexer-probed liveness, first match wins.
func Evaluate(cfg Config, sess *types.AgentSession, isAlive bool, now time.Time) types.HealthCheck {
	check := types.HealthCheck{CheckedAt: now}

	switch {
	case !isAlive:
		check.Status = types.HealthZombie
		check.SuggestedAction = types.ActionTerminate
		check.Reason = "multiplexer pane is not alive"

	case sess.State == types.SessionCompleted:
		check.Status = types.HealthHealthy
		check.SuggestedAction = types.ActionNone
		check.Reason = "session completed"

	case now.Sub(sess.LastActivity) > cfg.StallThreshold && sess.EscalationLevel == 0:
		check.Status = types.HealthStale
		check.SuggestedAction = types.ActionNudge
		check.Reason = "no activity since " + sess.LastActivity.Format(time.RFC3339)

	case sess.EscalationLevel == 1 || sess.EscalationLevel == 2:
		check.Status = types.HealthStale
		check.SuggestedAction = types.ActionEscalate
		check.Reason = "stale and previously nudged"

	case sess.EscalationLevel >= 3:
		check.Status = types.HealthZombie
		check.SuggestedAction = types.ActionTerminate
		check.Reason = "escalation ladder exhausted"

	default:
		check.Status = types.HealthHealthy
		check.SuggestedAction = types.ActionNone
		check.Reason = "active"
	}

	return check
}
