// Package supervisor implements the kernel that drives one mission: roster
// validation, phased scheduling (parallel -> serial -> validator), watchdog
// and retry, cooperative shutdown, and mission finalisation. It never talks
// to a worker process directly — only through internal/backend and
// internal/mailbox.
package supervisor

import (
	"context"
	"fmt"
	"time"

	"github.com/swarmforge/swarmkit/internal/audit"
	"github.com/swarmforge/swarmkit/internal/backend"
	cfgpkg "github.com/swarmforge/swarmkit/internal/config"
	"github.com/swarmforge/swarmkit/internal/mailbox"
	"github.com/swarmforge/swarmkit/internal/mission"
	"github.com/swarmforge/swarmkit/internal/types"
)

// tickInterval is how often the main loop polls liveness and the leader
// inbox. 100ms keeps the supervisor responsive without busy-looping.
const tickInterval = 100 * time.Millisecond

// AgentRecord is the supervisor's live, in-memory view of one roster entry.
// Only AgentSummary (name/mode/color/status) is durable; on resume each
// record is rebuilt from the roster and only Status is copied back from
// the mission.
type AgentRecord struct {
	Spec             cfgpkg.SubagentSpec
	Identity         types.Identity
	Status           types.AgentStatus
	RetryCount       int
	StartedAt        time.Time
	StopMode         types.StopMode
	SoftStoppedAt    time.Time // zero until a watchdog soft-shutdown has been issued
	LogPath          string    // tee file the watchdog tails for progress
	LastProgressLine string    // most recent non-empty line observed in LogPath
	LastProgressAt   time.Time // when LastProgressLine last changed
}

func (r *AgentRecord) canonical() string { return r.Identity.Canonical() }

// Options configures one supervisor run.
type Options struct {
	StateDir     string
	WorkDir      string
	LogsDir      string
	BackendKind  string // "auto" | "tmux" | "process"
	SessionName  string
	LLMPath      string
	WorkerBinary string // path to the cmd/swarm-worker executable
	AutoConfirm  bool
	Demo         bool // simulate execution; workers never invoke LLMPath
}

// Supervisor drives a single mission end to end.
type Supervisor struct {
	opts     Options
	team     string
	backend  backend.Backend
	leaderMB *mailbox.Mailbox
	log      *audit.Log
	store    *mission.Store
	roster   *cfgpkg.Roster
	swarmCfg *cfgpkg.SwarmConfig
	timeouts cfgpkg.Timeouts

	mission *mission.Mission
	agents  map[string]*AgentRecord // canonical id -> record, phase order preserved separately
}

// New constructs a Supervisor for one mission launch. Roster validation is
// the caller's responsibility (see cfgpkg.Roster.PreRunValidation) — New
// assumes a launchable roster.
func New(opts Options, team string, roster *cfgpkg.Roster, swarmCfg *cfgpkg.SwarmConfig, missionID string) (*Supervisor, error) {
	roster.Normalize()

	kind := swarmCfg.BackendKind()
	if opts.BackendKind != "" && opts.BackendKind != "auto" {
		kind = opts.BackendKind
	}
	b, err := backend.Select(kind, opts.SessionName)
	if err != nil {
		return nil, fmt.Errorf("selecting backend: %w", err)
	}

	s := &Supervisor{
		opts:     opts,
		team:     team,
		backend:  b,
		leaderMB: mailbox.New(opts.StateDir, types.Leader(team)),
		log:      audit.Open(opts.StateDir, missionID),
		store:    mission.NewStore(opts.StateDir),
		roster:   roster,
		swarmCfg: swarmCfg,
		timeouts: cfgpkg.LoadTimeouts(),
		agents:   make(map[string]*AgentRecord),
	}

	for _, a := range roster.Subagents {
		id := types.Identity{Name: a.Name, Team: team}
		s.agents[id.Canonical()] = &AgentRecord{
			Spec:     a,
			Identity: id,
			Status:   types.StatusPending,
			StopMode: types.StopNone,
		}
	}
	return s, nil
}

// Run executes the full phased schedule for m and returns the finalized
// mission record. m must already be persisted by the caller (Launch or
// Resume). Run always attempts cooperative shutdown and backend cleanup on
// the way out, even on error.
func (s *Supervisor) Run(ctx context.Context, m *mission.Mission) (*mission.Mission, error) {
	s.mission = m

	if s.timeouts.HardTimeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, s.timeouts.HardTimeout)
		defer cancel()
	}
	defer s.teardown(ctx)

	if err := m.Transition(types.MissionRunning); err != nil {
		return m, err
	}
	s.saveMission()

	parallel, serial, validator := s.roster.Phases()

	if err := s.runPhase(ctx, parallel, true); err != nil {
		m.Fail(err.Error())
		s.saveMission()
		return m, nil
	}
	if err := s.runPhase(ctx, serial, false); err != nil {
		m.Fail(err.Error())
		s.saveMission()
		return m, nil
	}
	if err := s.runPhase(ctx, validator, false); err != nil {
		m.Fail(err.Error())
		s.saveMission()
		return m, nil
	}

	s.finalize(m)
	s.saveMission()
	return m, nil
}

// finalize marks the mission completed iff every agent reached
// types.StatusCompleted; any other terminal status fails the mission.
func (s *Supervisor) finalize(m *mission.Mission) {
	allCompleted := true
	m.Agents = m.Agents[:0]
	for _, rec := range s.agents {
		m.Agents = append(m.Agents, mission.AgentSummary{
			Name:   rec.Spec.Name,
			Mode:   types.RoleMode(rec.Spec.Mode),
			Color:  rec.Spec.Color,
			Status: rec.Status,
		})
		if rec.Status != types.StatusCompleted {
			allCompleted = false
		}
	}
	if allCompleted {
		_ = m.Transition(types.MissionCompleted)
	} else {
		m.Fail("one or more agents did not complete")
	}
}

func (s *Supervisor) saveMission() {
	if s.mission == nil {
		return
	}
	_ = s.store.Save(s.mission)
}

// teardown sends a shutdown_request to every still-live agent, waits one
// grace period, then force-kills and releases the backend (tmux session or
// process group) unconditionally.
func (s *Supervisor) teardown(ctx context.Context) {
	var live []string
	for id, rec := range s.agents {
		if !rec.Status.Terminal() {
			live = append(live, id)
			rec.StopMode = types.StopGracefulShutdown
			_, _ = s.leaderSend(rec.Identity, types.MessageShutdownRequest, "mission ending")
		}
	}
	if len(live) > 0 {
		select {
		case <-ctx.Done():
		case <-time.After(time.Duration(backend.GracePeriod) * time.Second):
		}
		for _, id := range live {
			_ = s.backend.Kill(id)
			if rec, ok := s.agents[id]; ok {
				rec.Status = types.StatusShutdown
			}
		}
	}
	_ = s.backend.Cleanup()
}

func (s *Supervisor) leaderSend(to types.Identity, typ types.MessageType, content string) (types.Message, error) {
	return s.leaderMB.Send(to, typ, content, nil)
}
