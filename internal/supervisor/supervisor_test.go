package supervisor

import (
	"testing"

	cfgpkg "github.com/swarmforge/swarmkit/internal/config"
	"github.com/swarmforge/swarmkit/internal/mission"
	"github.com/swarmforge/swarmkit/internal/types"
)

func testRoster() *cfgpkg.Roster {
	return &cfgpkg.Roster{Subagents: []cfgpkg.SubagentSpec{
		{Name: "Researcher", Mode: "parallel", Color: "cyan"},
		{Name: "Integrator", Mode: "serial", Color: "magenta"},
		{Name: cfgpkg.QualityValidatorName, Mode: "validator", Color: "yellow"},
	}}
}

func TestNewBuildsOnePendingAgentRecordPerRosterEntry(t *testing.T) {
	opts := Options{StateDir: t.TempDir(), BackendKind: "process"}
	swarmCfg := &cfgpkg.SwarmConfig{}
	swarmCfg.Defaults()

	sup, err := New(opts, "core", testRoster(), swarmCfg, "mission-1")
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	if len(sup.agents) != 3 {
		t.Fatalf("agents = %d, want 3", len(sup.agents))
	}
	id := types.Identity{Name: "Researcher", Team: "core"}
	rec, ok := sup.agents[id.Canonical()]
	if !ok {
		t.Fatalf("missing agent record for %s", id.Canonical())
	}
	if rec.Status != types.StatusPending {
		t.Errorf("Status = %q, want pending", rec.Status)
	}
	if sup.backend.Type() != "process" {
		t.Errorf("backend.Type() = %q, want process", sup.backend.Type())
	}
}

func TestNewExplicitOptsBackendOverridesConfigBackend(t *testing.T) {
	opts := Options{StateDir: t.TempDir(), BackendKind: "process"}
	swarmCfg := &cfgpkg.SwarmConfig{Backend: "tmux"}
	swarmCfg.Defaults()

	sup, err := New(opts, "core", testRoster(), swarmCfg, "mission-1")
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	if sup.backend.Type() != "process" {
		t.Errorf("backend.Type() = %q, want process (opts should win over config)", sup.backend.Type())
	}
}

func TestFinalizeCompletesMissionOnlyWhenEveryAgentCompleted(t *testing.T) {
	opts := Options{StateDir: t.TempDir(), BackendKind: "process"}
	swarmCfg := &cfgpkg.SwarmConfig{}
	swarmCfg.Defaults()

	sup, err := New(opts, "core", testRoster(), swarmCfg, "mission-1")
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	for _, rec := range sup.agents {
		rec.Status = types.StatusCompleted
	}

	m := mission.New("ship it")
	_ = m.Transition(types.MissionRunning)
	sup.mission = m
	sup.finalize(m)

	if m.Status != types.MissionCompleted {
		t.Errorf("Status = %q, want completed", m.Status)
	}
	if len(m.Agents) != 3 {
		t.Errorf("Agents = %+v, want 3 summaries", m.Agents)
	}
}

func TestFinalizeFailsMissionWhenAnAgentDidNotComplete(t *testing.T) {
	opts := Options{StateDir: t.TempDir(), BackendKind: "process"}
	swarmCfg := &cfgpkg.SwarmConfig{}
	swarmCfg.Defaults()

	sup, err := New(opts, "core", testRoster(), swarmCfg, "mission-1")
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	first := true
	for _, rec := range sup.agents {
		if first {
			rec.Status = types.StatusFailed
			first = false
			continue
		}
		rec.Status = types.StatusCompleted
	}

	m := mission.New("ship it")
	_ = m.Transition(types.MissionRunning)
	sup.mission = m
	sup.finalize(m)

	if m.Status != types.MissionFailed {
		t.Errorf("Status = %q, want failed", m.Status)
	}
	if m.FailureReason == "" {
		t.Error("expected a non-empty failure reason")
	}
}
