package config

import (
	"testing"
	"time"

	"github.com/swarmforge/swarmkit/internal/types"
)

func TestNewTeamConfigCopiesRosterMembers(t *testing.T) {
	r := &Roster{Subagents: []SubagentSpec{
		{Name: "Researcher", Color: "cyan", Mode: "parallel"},
		{Name: "Integrator", Color: "magenta", Mode: "serial"},
	}}
	swarmCfg := &SwarmConfig{}
	swarmCfg.Defaults()
	swarmCfg.PollIntervalMS = 500
	tc := NewTeamConfig("mission-1", "core", r, swarmCfg)
	if tc.MissionID != "mission-1" || tc.Team != "core" {
		t.Errorf("tc = %+v", tc)
	}
	if tc.Leader != types.LeaderName {
		t.Errorf("Leader = %q, want %q", tc.Leader, types.LeaderName)
	}
	if tc.Backend != swarmCfg.BackendKind() {
		t.Errorf("Backend = %q, want %q", tc.Backend, swarmCfg.BackendKind())
	}
	if tc.PollIntervalMS != 500 {
		t.Errorf("PollIntervalMS = %d, want 500", tc.PollIntervalMS)
	}
	if len(tc.Members) != 2 {
		t.Fatalf("Members = %+v, want 2 entries", tc.Members)
	}
	if tc.Members[0].Name != "Researcher" || tc.Members[0].Team != "core" || tc.Members[0].Color != "cyan" {
		t.Errorf("Members[0] = %+v", tc.Members[0])
	}
}

func TestSaveAndLoadTeamConfigRoundTrip(t *testing.T) {
	dir := t.TempDir()
	r := &Roster{Subagents: []SubagentSpec{{Name: "Researcher", Mode: "parallel"}}}
	swarmCfg := &SwarmConfig{}
	swarmCfg.Defaults()
	tc := NewTeamConfig("mission-1", "core", r, swarmCfg)

	if err := tc.Save(dir); err != nil {
		t.Fatalf("Save: %v", err)
	}
	got, err := LoadTeamConfig(dir)
	if err != nil {
		t.Fatalf("LoadTeamConfig: %v", err)
	}
	if got.MissionID != tc.MissionID || len(got.Members) != len(tc.Members) {
		t.Errorf("LoadTeamConfig() = %+v, want %+v", got, tc)
	}
	if got.PollIntervalMS != tc.PollIntervalMS || got.Backend != tc.Backend || got.Leader != tc.Leader {
		t.Errorf("LoadTeamConfig() = %+v, want %+v", got, tc)
	}
}

func TestPollIntervalDefaultsWhenUnset(t *testing.T) {
	tc := TeamConfig{}
	if got := tc.PollInterval(); got != time.Second {
		t.Errorf("PollInterval() = %v, want 1s", got)
	}
}

func TestPollIntervalHonorsConfiguredValue(t *testing.T) {
	tc := TeamConfig{PollIntervalMS: 250}
	if got := tc.PollInterval(); got != 250*time.Millisecond {
		t.Errorf("PollInterval() = %v, want 250ms", got)
	}
}

func TestLoadTeamConfigMissingFile(t *testing.T) {
	if _, err := LoadTeamConfig(t.TempDir()); err == nil {
		t.Error("expected an error when config.json is missing")
	}
}

func TestPeersExcludesSelfCaseInsensitively(t *testing.T) {
	tc := TeamConfig{
		Team: "core",
		Members: []TeamMember{
			{Name: "Researcher", Team: "core"},
			{Name: "Integrator", Team: "core"},
		},
	}
	peers := tc.Peers(types.Identity{Name: "researcher", Team: "Core"})
	if len(peers) != 1 || peers[0].Name != "Integrator" {
		t.Errorf("Peers() = %+v, want only Integrator", peers)
	}
}
