package cli

import (
	"testing"

	"github.com/swarmforge/swarmkit/internal/mission"
	"github.com/swarmforge/swarmkit/internal/types"
)

func TestJoinArgsSingle(t *testing.T) {
	if got := joinArgs([]string{"fix"}); got != "fix" {
		t.Errorf("joinArgs(single) = %q, want %q", got, "fix")
	}
}

func TestJoinArgsMultiple(t *testing.T) {
	got := joinArgs([]string{"fix", "the", "login", "bug"})
	want := "fix the login bug"
	if got != want {
		t.Errorf("joinArgs(multi) = %q, want %q", got, want)
	}
}

func TestDefaultWorkerBinaryFallsBackToPathOrBareName(t *testing.T) {
	// No swarm-worker binary exists next to the test executable or on
	// PATH in the test sandbox, so this exercises the final fallback.
	got := defaultWorkerBinary()
	if got == "" {
		t.Error("defaultWorkerBinary() returned empty string")
	}
}

func TestRunCleanupStaleMarksLatestMissionFailed(t *testing.T) {
	stateDir := t.TempDir()
	origStateDir := stateDirFlag
	stateDirFlag = stateDir
	defer func() { stateDirFlag = origStateDir }()

	store := mission.NewStore(stateDir)
	m := mission.New("abandoned mission")
	_ = m.Transition(types.MissionRunning)
	if err := store.Save(m); err != nil {
		t.Fatalf("Save: %v", err)
	}

	if err := runCleanupStale(); err != nil {
		t.Fatalf("runCleanupStale: %v", err)
	}

	reloaded, err := store.Load(m.MissionID)
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if reloaded.Status != types.MissionFailed {
		t.Errorf("Status = %q, want failed", reloaded.Status)
	}
	if reloaded.FailureReason != "cleanup_stale" {
		t.Errorf("FailureReason = %q, want cleanup_stale", reloaded.FailureReason)
	}
}

func TestRunCleanupStaleLeavesTerminalMissionAlone(t *testing.T) {
	stateDir := t.TempDir()
	origStateDir := stateDirFlag
	stateDirFlag = stateDir
	defer func() { stateDirFlag = origStateDir }()

	store := mission.NewStore(stateDir)
	m := mission.New("already finished")
	_ = m.Transition(types.MissionRunning)
	_ = m.Transition(types.MissionCompleted)
	if err := store.Save(m); err != nil {
		t.Fatalf("Save: %v", err)
	}

	if err := runCleanupStale(); err != nil {
		t.Fatalf("runCleanupStale: %v", err)
	}

	reloaded, err := store.Load(m.MissionID)
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if reloaded.Status != types.MissionCompleted {
		t.Errorf("Status = %q, want unchanged completed", reloaded.Status)
	}
}

func TestRunCleanupStaleNoMissionsIsNotAnError(t *testing.T) {
	origStateDir := stateDirFlag
	stateDirFlag = t.TempDir()
	defer func() { stateDirFlag = origStateDir }()

	if err := runCleanupStale(); err != nil {
		t.Errorf("runCleanupStale with no missions: %v", err)
	}
}
