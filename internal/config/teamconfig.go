package config

import (
	"encoding/json"
	"fmt"
	"os"
	"time"

	"github.com/swarmforge/swarmkit/internal/fileutil"
	"github.com/swarmforge/swarmkit/internal/types"
)

// TeamMember is one entry of the team config the supervisor writes to
// state/config.json for every worker to read on startup, so each worker
// knows its peers without re-parsing subagents.yaml itself.
type TeamMember struct {
	Name  string `json:"name"`
	Team  string `json:"team"`
	Color string `json:"color"`
	Mode  string `json:"mode"`
}

// TeamConfig is the supervisor's view of the full roster for one mission,
// persisted so workers (and a resumed supervisor) can reconstruct it.
type TeamConfig struct {
	MissionID      string       `json:"mission_id"`
	Team           string       `json:"team"`
	Leader         string       `json:"leader"`
	Backend        string       `json:"backend"`
	PollIntervalMS int          `json:"poll_interval_ms"`
	Members        []TeamMember `json:"members"`
}

// NewTeamConfig builds a TeamConfig from a validated, normalized Roster and
// the swarm config every worker should agree on (backend kind, poll
// interval) for the lifetime of the mission.
func NewTeamConfig(missionID, team string, r *Roster, swarmCfg *SwarmConfig) TeamConfig {
	tc := TeamConfig{
		MissionID:      missionID,
		Team:           team,
		Leader:         types.LeaderName,
		Backend:        swarmCfg.BackendKind(),
		PollIntervalMS: swarmCfg.PollIntervalMS,
	}
	for _, a := range r.Subagents {
		tc.Members = append(tc.Members, TeamMember{
			Name:  a.Name,
			Team:  team,
			Color: a.Color,
			Mode:  a.Mode,
		})
	}
	return tc
}

// PollInterval converts PollIntervalMS to a time.Duration, defaulting to 1s
// when the team config predates this field or carries a non-positive value.
func (tc TeamConfig) PollInterval() time.Duration {
	if tc.PollIntervalMS <= 0 {
		return time.Second
	}
	return time.Duration(tc.PollIntervalMS) * time.Millisecond
}

// Save atomically writes state/config.json.
func (tc TeamConfig) Save(stateDir string) error {
	data, err := json.MarshalIndent(tc, "", "  ")
	if err != nil {
		return fmt.Errorf("marshaling team config: %w", err)
	}
	return fileutil.AtomicWrite(stateDir, "config.json", data, 0644)
}

// LoadTeamConfig reads state/config.json, as a worker does on startup to
// learn its peer roster.
func LoadTeamConfig(stateDir string) (TeamConfig, error) {
	var tc TeamConfig
	data, err := os.ReadFile(fileutil.ConfigPath(stateDir))
	if err != nil {
		return tc, fmt.Errorf("reading team config: %w", err)
	}
	if err := json.Unmarshal(data, &tc); err != nil {
		return tc, fmt.Errorf("parsing team config: %w", err)
	}
	return tc, nil
}

// Peers returns every member's Identity except self.
func (tc TeamConfig) Peers(self types.Identity) []types.Identity {
	var peers []types.Identity
	for _, m := range tc.Members {
		id := types.Identity{Name: m.Name, Team: m.Team}
		if !id.Equal(self) {
			peers = append(peers, id)
		}
	}
	return peers
}
