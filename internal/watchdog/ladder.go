package watchdog

import (
	"context"
	"errors"
	"log"
	"time"

	"github.com/dkremnev/overstory/internal/procutil"
	"github.com/dkremnev/overstory/internal/sessionstore"
	"github.com/dkremnev/overstory/pkg/types"
)

// ladderFunc applies one escalation-level action to a stale/zombie
// session. It is a closed dispatch table keyed by level, per the
// spec §9 "dynamic dispatch" design note.
type ladderFunc func(ctx context.Context, d *Daemon, sess *types.AgentSession)

var ladder = map[int]ladderFunc{
	0: ladderLevel0,
	1: ladderLevel1,
	2: ladderLevel2,
	3: ladderLevel3,
}

func ladderLevel0(ctx context.Context, d *Daemon, sess *types.AgentSession) {
	log.Printf("watchdog: %s is stale, entering escalation ladder", sess.AgentName)
	now := time.Now()
	if sess.State == types.SessionWorking {
		if err := d.sessions.UpdateState(sess.AgentName, types.SessionStalled); err != nil && !errors.Is(err, sessionstore.ErrIllegalTransition) {
			d.recordFailure(sess.AgentName, "transition_stalled", err)
		}
	}
	if err := d.sessions.UpdateEscalation(sess.AgentName, 1, &now); err != nil {
		d.recordFailure(sess.AgentName, "update_escalation_level1", err)
	}
}

func ladderLevel1(ctx context.Context, d *Daemon, sess *types.AgentSession) {
	if err := d.mux.SendKeys(sess.PaneName, "\n[watchdog] are you still working? please report status.\n"); err != nil {
		d.recordFailure(sess.AgentName, "nudge_send_keys", err)
	}
	d.recordEvent(sess, "mail_sent-equivalent nudge")
	if err := d.sessions.UpdateEscalation(sess.AgentName, 2, sess.StalledSince); err != nil {
		d.recordFailure(sess.AgentName, "update_escalation_level2", err)
	}
}

func ladderLevel2(ctx context.Context, d *Daemon, sess *types.AgentSession) {
	if d.ai == nil {
		if err := d.sessions.UpdateEscalation(sess.AgentName, 3, sess.StalledSince); err != nil {
			d.recordFailure(sess.AgentName, "update_escalation_level3", err)
		}
		return
	}

	verdict := Triage(ctx, d.ai, d.mux, sess)
	switch verdict {
	case types.TriageRetry:
		if err := d.mux.SendKeys(sess.PaneName, "\n[watchdog] please continue.\n"); err != nil {
			d.recordFailure(sess.AgentName, "retry_send_keys", err)
		}
	case types.TriageTerminate:
		if err := d.sessions.UpdateEscalation(sess.AgentName, 3, sess.StalledSince); err != nil {
			d.recordFailure(sess.AgentName, "update_escalation_level3", err)
		}
	case types.TriageExtend:
		// Grant one free tick: level and stalled_since are untouched.
	}
}

func ladderLevel3(ctx context.Context, d *Daemon, sess *types.AgentSession) {
	if sess.PID != nil {
		procutil.KillTree(*sess.PID, d.cfg.GracePeriod)
	}
	if err := d.mux.KillPane(sess.PaneName); err != nil {
		d.recordFailure(sess.AgentName, "kill_pane", err)
	}
	if err := d.sessions.UpdateState(sess.AgentName, types.SessionZombie); err != nil {
		if !errors.Is(err, sessionstore.ErrIllegalTransition) {
			d.recordFailure(sess.AgentName, "transition_zombie", err)
		}
	}
	d.recordEvent(sess, "terminated by watchdog escalation ladder")
}
