package supervisor

import (
	"context"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/swarmforge/swarmkit/internal/types"
)

func TestRetryOrFailSkipsOperatorInitiatedStops(t *testing.T) {
	s := newTestSupervisor(t)
	rec := addAgent(s, "researcher", "task")
	rec.StopMode = types.StopGracefulShutdown

	s.retryOrFail(rec)
	if rec.Status != types.StatusFailed {
		t.Errorf("Status = %q, want failed (operator-initiated stops are never retried)", rec.Status)
	}
}

func TestRetryOrFailRespawnsWithinBudget(t *testing.T) {
	s := newTestSupervisor(t)
	rec := addAgent(s, "researcher", "task")
	rec.StopMode = types.StopWatchdogSoftShutdown

	s.retryOrFail(rec)
	if rec.Status != types.StatusRunning {
		t.Errorf("Status = %q, want running after a successful respawn", rec.Status)
	}
	if rec.RetryCount != 1 {
		t.Errorf("RetryCount = %d, want 1", rec.RetryCount)
	}
	if rec.StopMode != types.StopNone {
		t.Errorf("StopMode = %q, want none after respawn", rec.StopMode)
	}
}

func TestRetryOrFailFailsOnceBudgetExhausted(t *testing.T) {
	s := newTestSupervisor(t)
	s.timeouts.MaxRetries = 0
	rec := addAgent(s, "researcher", "task")
	rec.StopMode = types.StopWatchdogSoftShutdown

	s.retryOrFail(rec)
	if rec.Status != types.StatusFailed {
		t.Errorf("Status = %q, want failed (no retry budget)", rec.Status)
	}
}

func TestRunWatchdogIssuesSoftShutdownOnStaleLogProgress(t *testing.T) {
	s := newTestSupervisor(t)
	s.timeouts.WatchdogTimeout = 10 * time.Millisecond
	s.timeouts.WatchdogGrace = time.Hour
	rec := addAgent(s, "researcher", "task")
	rec.Status = types.StatusRunning

	logPath := filepath.Join(t.TempDir(), "researcher.log")
	if err := os.WriteFile(logPath, []byte("still working\n"), 0644); err != nil {
		t.Fatalf("WriteFile: %v", err)
	}
	rec.LogPath = logPath
	rec.LastProgressLine = "still working"
	rec.LastProgressAt = time.Now()
	time.Sleep(20 * time.Millisecond)

	s.runWatchdog(context.Background(), []string{rec.canonical()})
	if rec.StopMode != types.StopWatchdogSoftShutdown {
		t.Errorf("StopMode = %q, want watchdog_soft_shutdown", rec.StopMode)
	}
	if rec.SoftStoppedAt.IsZero() {
		t.Error("expected SoftStoppedAt to be set")
	}
}

func TestRunWatchdogToleratesLogStillGrowing(t *testing.T) {
	s := newTestSupervisor(t)
	s.timeouts.WatchdogTimeout = 10 * time.Millisecond
	s.timeouts.WatchdogGrace = time.Hour
	rec := addAgent(s, "researcher", "task")
	rec.Status = types.StatusRunning

	logPath := filepath.Join(t.TempDir(), "researcher.log")
	if err := os.WriteFile(logPath, []byte("line one\n"), 0644); err != nil {
		t.Fatalf("WriteFile: %v", err)
	}
	rec.LogPath = logPath
	rec.LastProgressLine = "line one"
	rec.LastProgressAt = time.Now()
	time.Sleep(20 * time.Millisecond)

	// A parallel agent mid-task beyond watchdog_timeout with a log that is
	// still actively growing must not be punished for not polling its
	// mailbox.
	if err := os.WriteFile(logPath, []byte("line one\nline two\n"), 0644); err != nil {
		t.Fatalf("WriteFile: %v", err)
	}

	s.runWatchdog(context.Background(), []string{rec.canonical()})
	if rec.StopMode == types.StopWatchdogSoftShutdown {
		t.Error("expected no soft shutdown while the log is still advancing")
	}
	if rec.LastProgressLine != "line two" {
		t.Errorf("LastProgressLine = %q, want line two", rec.LastProgressLine)
	}
}

func TestRunWatchdogForceKillsAfterGraceExpires(t *testing.T) {
	s := newTestSupervisor(t)
	s.timeouts.WatchdogGrace = 10 * time.Millisecond
	rec := addAgent(s, "researcher", "task")
	if err := s.spawnAgent(rec); err != nil {
		t.Fatalf("spawnAgent: %v", err)
	}
	rec.StopMode = types.StopWatchdogSoftShutdown
	rec.SoftStoppedAt = time.Now().Add(-time.Hour)

	s.runWatchdog(context.Background(), []string{rec.canonical()})

	// Either respawned (still running, new retry) or failed, but never left
	// dangling in the soft-stop state past grace expiry.
	if rec.Status != types.StatusRunning && rec.Status != types.StatusFailed {
		t.Errorf("Status = %q, want running or failed", rec.Status)
	}
}

func TestRunWatchdogIgnoresTerminalAgents(t *testing.T) {
	s := newTestSupervisor(t)
	rec := addAgent(s, "researcher", "task")
	rec.Status = types.StatusCompleted

	s.runWatchdog(context.Background(), []string{rec.canonical()})
	if rec.StopMode != types.StopNone {
		t.Errorf("StopMode = %q, want untouched (none) for a terminal agent", rec.StopMode)
	}
}
