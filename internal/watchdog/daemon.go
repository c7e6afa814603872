package watchdog

import (
	"context"
	"log"
	"time"

	"github.com/dkremnev/overstory/internal/aiclient"
	"github.com/dkremnev/overstory/internal/eventstore"
	"github.com/dkremnev/overstory/internal/fanout"
	"github.com/dkremnev/overstory/internal/health"
	"github.com/dkremnev/overstory/internal/sessionstore"
	"github.com/dkremnev/overstory/pkg/types"
)

// Config carries the watchdog's tunables (spec §4.5, §6 policy keys).
// Zero values are replaced with documented defaults by Normalize.
type Config struct {
	PollInterval    time.Duration
	GracePeriod     time.Duration
	StallThreshold  time.Duration
	HardKillThreshold time.Duration
}

// Normalize clamps zero or invalid fields to their spec defaults,
// mirroring the teacher's policy.Config.Validate() behavior of
// clamping rather than erroring.
func (c Config) Normalize() Config {
	if c.PollInterval <= 0 {
		c.PollInterval = 30 * time.Second
	}
	if c.GracePeriod <= 0 {
		c.GracePeriod = 2 * time.Second
	}
	if c.StallThreshold <= 0 {
		c.StallThreshold = health.DefaultStallThreshold
	}
	if c.HardKillThreshold <= 0 {
		c.HardKillThreshold = 30 * time.Minute
	}
	return c
}

// failureRecord is what the fire-and-forget sink posts for a swallowed
// watchdog error.
type failureRecord struct {
	AgentName string
	Operation string
	Err       error
}

// Daemon is the Tier-0 mechanical poll loop: every PollInterval it
// enumerates active sessions, evaluates health, and applies the
// progressive escalation ladder (spec §4.5).
type Daemon struct {
	cfg      Config
	sessions *sessionstore.Store
	events   *eventstore.Store
	mux      Multiplexer
	ai       aiclient.Resolver
	failures *fanout.Sink[failureRecord]
}

func NewDaemon(cfg Config, sessions *sessionstore.Store, events *eventstore.Store, mux Multiplexer, ai aiclient.Resolver) *Daemon {
	cfg = cfg.Normalize()
	d := &Daemon{cfg: cfg, sessions: sessions, events: events, mux: mux, ai: ai}
	d.failures = fanout.NewSink(64, func(rec failureRecord) {
		log.Printf("watchdog: swallowed error during %s for %s: %v", rec.Operation, rec.AgentName, rec.Err)
	})
	return d
}

// Run blocks, polling every PollInterval until ctx is canceled.
func (d *Daemon) Run(ctx context.Context) {
	ticker := time.NewTicker(d.cfg.PollInterval)
	defer ticker.Stop()
	defer d.failures.Close()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			d.Tick(ctx)
		}
	}
}

// Tick runs one poll cycle: evaluate every active session and apply the
// ladder action for any non-healthy verdict.
func (d *Daemon) Tick(ctx context.Context) {
	sessions, err := d.sessions.GetActive()
	if err != nil {
		d.recordFailureErr("get_active", "", err)
		return
	}

	healthCfg := health.Config{StallThreshold: d.cfg.StallThreshold}
	now := time.Now()

	for _, sess := range sessions {
		alive := d.mux.IsPaneAlive(sess.PaneName)
		check := health.Evaluate(healthCfg, sess, alive, now)

		switch check.SuggestedAction {
		case types.ActionNone:
			continue
		case types.ActionTerminate:
			ladderLevel3(ctx, d, sess)
		case types.ActionNudge:
			ladderLevel0(ctx, d, sess)
		case types.ActionEscalate:
			fn, ok := ladder[sess.EscalationLevel]
			if !ok {
				fn = ladderLevel3
			}
			fn(ctx, d, sess)
		}
	}
}

func (d *Daemon) recordFailure(agentName, operation string, err error) {
	d.recordFailureErr(operation, agentName, err)
}

func (d *Daemon) recordFailureErr(operation, agentName string, err error) {
	d.failures.Submit(failureRecord{AgentName: agentName, Operation: operation, Err: err})
}

// recordEvent fire-and-forget-inserts a custom event describing a
// ladder action. Insert errors are swallowed per spec §4.5.
func (d *Daemon) recordEvent(sess *types.AgentSession, note string) {
	_, err := d.events.Insert(&types.StoredEvent{
		AgentName: sess.AgentName,
		RunID:     sess.RunID,
		Kind:      types.EventCustom,
		Level:     types.LevelWarn,
		PayloadJSON: note,
	})
	if err != nil {
		d.recordFailureErr("record_event", sess.AgentName, err)
	}
}
