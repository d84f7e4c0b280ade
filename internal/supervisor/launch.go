package supervisor

import (
	"context"
	"fmt"

	"github.com/swarmforge/swarmkit/internal/config"
	"github.com/swarmforge/swarmkit/internal/mission"
	"github.com/swarmforge/swarmkit/internal/types"
)

// Launch is the single entry point the CLI's `swarm run` command drives: it
// validates the roster, runs the plan-mode confirmation, persists a fresh
// mission, writes the team config workers read on startup, and runs the
// full phased schedule. A non-empty token slice means validation failed and
// nothing was spawned.
func Launch(ctx context.Context, opts Options, description string, roster *config.Roster, swarmCfg *config.SwarmConfig) (*mission.Mission, []string, error) {
	if tokens := roster.PreRunValidation(); len(tokens) > 0 {
		return nil, tokens, nil
	}
	roster.Normalize()

	ok, err := ConfirmPlan(description, roster, opts.AutoConfirm)
	if err != nil {
		return nil, nil, fmt.Errorf("plan confirmation: %w", err)
	}
	if !ok {
		return nil, nil, fmt.Errorf("launch cancelled")
	}

	m := mission.New(description)
	store := mission.NewStore(opts.StateDir)
	if err := store.Save(m); err != nil {
		return nil, nil, fmt.Errorf("saving mission: %w", err)
	}

	tc := config.NewTeamConfig(m.MissionID, m.TeamName, roster, swarmCfg)
	if err := tc.Save(opts.StateDir); err != nil {
		return nil, nil, fmt.Errorf("saving team config: %w", err)
	}

	sup, err := New(opts, m.TeamName, roster, swarmCfg, m.MissionID)
	if err != nil {
		return nil, nil, err
	}
	return sup.Run(ctx, m)
}

// Resume continues missionID if given, or otherwise the latest resumable
// mission, provided staleAfter has not been exceeded; a stale resumable
// mission is instead marked failed so it stops showing up as resumable.
func Resume(ctx context.Context, opts Options, roster *config.Roster, swarmCfg *config.SwarmConfig, missionID string) (*mission.Mission, error) {
	store := mission.NewStore(opts.StateDir)
	m, err := resolveResumable(store, missionID)
	if err != nil {
		return nil, err
	}
	if m == nil {
		return nil, fmt.Errorf("no resumable mission found")
	}

	timeouts := config.LoadTimeouts()
	if m.IsStale(timeouts.ResumeStaleTimeout) {
		m.Fail("resume window exceeded")
		_ = store.Save(m)
		return m, fmt.Errorf("mission %s is stale, marked failed", m.MissionID)
	}

	roster.Normalize()
	sup, err := New(opts, m.TeamName, roster, swarmCfg, m.MissionID)
	if err != nil {
		return nil, err
	}
	for _, a := range m.Agents {
		id := types.Identity{Name: a.Name, Team: m.TeamName}.Canonical()
		if rec, ok := sup.agents[id]; ok {
			rec.Status = a.Status
		}
	}
	m.Attempt++
	return sup.Run(ctx, m)
}

// resolveResumable loads missionID directly when given (--resume
// --mission-id), otherwise falls back to the latest resumable mission
// (--resume alone). A missionID that isn't actually resumable is still an
// error, not silently ignored.
func resolveResumable(store *mission.Store, missionID string) (*mission.Mission, error) {
	if missionID == "" {
		m, err := store.LatestResumable()
		if err != nil {
			return nil, fmt.Errorf("scanning missions: %w", err)
		}
		return m, nil
	}
	m, err := store.Load(missionID)
	if err != nil {
		return nil, fmt.Errorf("loading mission %s: %w", missionID, err)
	}
	if !m.IsResumable() {
		return nil, fmt.Errorf("mission %s is not resumable (status=%s)", m.MissionID, m.Status)
	}
	return m, nil
}
