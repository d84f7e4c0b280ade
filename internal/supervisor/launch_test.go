package supervisor

import (
	"context"
	"testing"
	"time"

	"github.com/swarmforge/swarmkit/internal/config"
	"github.com/swarmforge/swarmkit/internal/mission"
	"github.com/swarmforge/swarmkit/internal/types"
)

func TestResumeErrorsWhenNothingIsResumable(t *testing.T) {
	opts := Options{StateDir: t.TempDir(), BackendKind: "process"}
	swarmCfg := &config.SwarmConfig{}
	swarmCfg.Defaults()

	_, err := Resume(context.Background(), opts, testRoster(), swarmCfg, "")
	if err == nil {
		t.Error("expected an error when no mission is resumable")
	}
}

func TestResumeFailsAStaleResumableMission(t *testing.T) {
	stateDir := t.TempDir()
	store := mission.NewStore(stateDir)

	m := mission.New("long-abandoned mission")
	_ = m.Transition(types.MissionRunning)
	m.Agents = []mission.AgentSummary{{Name: "Researcher", Status: types.StatusRunning}}
	m.StartedAt = time.Now().Add(-48 * time.Hour).UTC().Format(time.RFC3339)
	if err := store.Save(m); err != nil {
		t.Fatalf("Save: %v", err)
	}

	opts := Options{StateDir: stateDir, BackendKind: "process"}
	swarmCfg := &config.SwarmConfig{}
	swarmCfg.Defaults()

	_, err := Resume(context.Background(), opts, testRoster(), swarmCfg, "")
	if err == nil {
		t.Fatal("expected an error for a stale resumable mission")
	}

	reloaded, loadErr := store.Load(m.MissionID)
	if loadErr != nil {
		t.Fatalf("Load: %v", loadErr)
	}
	if reloaded.Status != types.MissionFailed {
		t.Errorf("Status = %q, want failed after a stale resume attempt", reloaded.Status)
	}
}

func TestResumeIncrementsAttempt(t *testing.T) {
	stateDir := t.TempDir()
	store := mission.NewStore(stateDir)

	m := mission.New("finish the migration")
	_ = m.Transition(types.MissionRunning)
	m.TeamName = "core"
	m.Agents = []mission.AgentSummary{
		{Name: "Researcher", Status: types.StatusPending},
		{Name: "Integrator", Status: types.StatusPending},
		{Name: config.QualityValidatorName, Status: types.StatusPending},
	}
	if err := store.Save(m); err != nil {
		t.Fatalf("Save: %v", err)
	}

	opts := Options{
		StateDir:     stateDir,
		WorkDir:      t.TempDir(),
		LogsDir:      t.TempDir(),
		BackendKind:  "process",
		WorkerBinary: "true",
	}
	swarmCfg := &config.SwarmConfig{}
	swarmCfg.Defaults()

	resumed, err := Resume(context.Background(), opts, testRoster(), swarmCfg, "")
	if err != nil {
		t.Fatalf("Resume: %v", err)
	}
	if resumed.Attempt != 2 {
		t.Errorf("Attempt = %d, want 2", resumed.Attempt)
	}

	reloaded, loadErr := store.Load(m.MissionID)
	if loadErr != nil {
		t.Fatalf("Load: %v", loadErr)
	}
	if reloaded.Attempt != 2 {
		t.Errorf("persisted Attempt = %d, want 2", reloaded.Attempt)
	}
}

func TestResumeByMissionIDTargetsThatMissionOverLatest(t *testing.T) {
	stateDir := t.TempDir()
	store := mission.NewStore(stateDir)

	older := mission.New("older mission")
	_ = older.Transition(types.MissionRunning)
	older.TeamName = "core"
	older.Agents = []mission.AgentSummary{{Name: "Researcher", Status: types.StatusPending}}
	older.StartedAt = time.Now().Add(-time.Hour).UTC().Format(time.RFC3339)
	if err := store.Save(older); err != nil {
		t.Fatalf("Save older: %v", err)
	}

	newer := mission.New("newer mission")
	_ = newer.Transition(types.MissionRunning)
	newer.TeamName = "core"
	newer.Agents = []mission.AgentSummary{{Name: "Researcher", Status: types.StatusPending}}
	if err := store.Save(newer); err != nil {
		t.Fatalf("Save newer: %v", err)
	}

	opts := Options{
		StateDir:     stateDir,
		WorkDir:      t.TempDir(),
		LogsDir:      t.TempDir(),
		BackendKind:  "process",
		WorkerBinary: "true",
	}
	swarmCfg := &config.SwarmConfig{}
	swarmCfg.Defaults()

	resumed, err := Resume(context.Background(), opts, testRoster(), swarmCfg, older.MissionID)
	if err != nil {
		t.Fatalf("Resume: %v", err)
	}
	if resumed.MissionID != older.MissionID {
		t.Errorf("MissionID = %s, want %s (the requested mission, not the latest)", resumed.MissionID, older.MissionID)
	}
}

func TestResumeByMissionIDRejectsNonResumableMission(t *testing.T) {
	stateDir := t.TempDir()
	store := mission.NewStore(stateDir)

	m := mission.New("already done")
	_ = m.Transition(types.MissionRunning)
	_ = m.Transition(types.MissionCompleted)
	if err := store.Save(m); err != nil {
		t.Fatalf("Save: %v", err)
	}

	opts := Options{StateDir: stateDir, BackendKind: "process"}
	swarmCfg := &config.SwarmConfig{}
	swarmCfg.Defaults()

	if _, err := Resume(context.Background(), opts, testRoster(), swarmCfg, m.MissionID); err == nil {
		t.Error("expected an error resuming a completed mission by id")
	}
}
