package supervisor

import (
	"context"
	"fmt"
	"time"

	"github.com/swarmforge/swarmkit/internal/fileutil"
	"github.com/swarmforge/swarmkit/internal/types"
)

// progressTailBytes bounds how much of a growing log file runWatchdog
// rereads on every tick.
const progressTailBytes = 4096

// runWatchdog checks every still-running agent's log-file progress and
// escalates a stale one: first a soft shutdown_request, and — if it is
// still alive after WatchdogGrace — a hard kill followed by the normal
// retry/fail decision.
func (s *Supervisor) runWatchdog(ctx context.Context, ids []string) {
	now := time.Now()
	for _, id := range ids {
		rec, ok := s.agents[id]
		if !ok || rec.Status.Terminal() {
			continue
		}

		if !rec.SoftStoppedAt.IsZero() {
			if now.Sub(rec.SoftStoppedAt) >= s.timeouts.WatchdogGrace {
				s.log.RecordError(id, "watchdog grace expired, force killing", types.ClassTimeout, nil)
				_ = s.backend.Kill(id)
				s.retryOrFail(rec)
			}
			continue
		}

		s.updateProgress(rec, now)
		if now.Sub(rec.LastProgressAt) < s.timeouts.WatchdogTimeout {
			continue
		}

		s.log.RecordError(id, fmt.Sprintf("log progress stale for %s, issuing soft shutdown", now.Sub(rec.LastProgressAt)), types.ClassTimeout, nil)
		rec.StopMode = types.StopWatchdogSoftShutdown
		rec.SoftStoppedAt = now
		_, _ = s.leaderSend(rec.Identity, types.MessageShutdownRequest, "watchdog: no log progress")
	}
}

// updateProgress tails rec's log file for its most recent non-empty line;
// any change from the last observed line advances LastProgressAt to now.
// A log file that cannot be read yet (not created, transient I/O error)
// leaves LastProgressAt untouched rather than counting against the agent.
func (s *Supervisor) updateProgress(rec *AgentRecord, now time.Time) {
	line, ok := fileutil.TailLastNonEmptyLine(rec.LogPath, progressTailBytes)
	if !ok {
		return
	}
	if line != rec.LastProgressLine {
		rec.LastProgressLine = line
		rec.LastProgressAt = now
	}
}

// retryOrFail respawns rec under the retry policy when its stop was not
// operator-initiated and it has budget left; otherwise it is marked failed.
func (s *Supervisor) retryOrFail(rec *AgentRecord) {
	if rec.StopMode.OperatorInitiated() {
		rec.Status = types.StatusFailed
		return
	}
	if rec.RetryCount >= s.timeouts.MaxRetries {
		s.log.RecordError(rec.canonical(), "retry budget exhausted", types.ClassProcess, nil)
		rec.Status = types.StatusFailed
		return
	}
	rec.RetryCount++
	rec.SoftStoppedAt = time.Time{}
	rec.StopMode = types.StopNone
	s.log.Record(rec.canonical(), "status_change", fmt.Sprintf("retrying (attempt %d)", rec.RetryCount+1), nil)
	time.Sleep(s.timeouts.RetryCooldown)
	if err := s.spawnAgent(rec); err != nil {
		rec.Status = types.StatusFailed
	}
}
