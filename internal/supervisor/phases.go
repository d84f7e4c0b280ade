package supervisor

import (
	"context"
	"fmt"
	"time"

	cfgpkg "github.com/swarmforge/swarmkit/internal/config"
	"github.com/swarmforge/swarmkit/internal/fileutil"
	"github.com/swarmforge/swarmkit/internal/types"
)

// runPhase spawns every spec in the phase and waits for each to reach a
// terminal status. concurrent controls only how spawning happens — parallel
// phases launch every agent before waiting, serial phases launch and fully
// wait for one agent before starting the next. Either way, watchdog and
// retry apply uniformly via waitForAgents.
func (s *Supervisor) runPhase(ctx context.Context, specs []cfgpkg.SubagentSpec, concurrent bool) error {
	if len(specs) == 0 {
		return nil
	}
	if concurrent {
		var ids []string
		for _, spec := range specs {
			rec := s.agents[s.idFor(spec)]
			if rec.Status.Terminal() {
				continue // already finished a previous attempt, e.g. on resume
			}
			if err := s.spawnAgent(rec); err != nil {
				return err
			}
			ids = append(ids, rec.canonical())
		}
		return s.waitForAgents(ctx, ids)
	}

	for _, spec := range specs {
		rec := s.agents[s.idFor(spec)]
		if rec.Status.Terminal() {
			continue
		}
		if err := s.spawnAgent(rec); err != nil {
			return err
		}
		if err := s.waitForAgents(ctx, []string{rec.canonical()}); err != nil {
			return err
		}
	}
	return nil
}

func (s *Supervisor) idFor(spec cfgpkg.SubagentSpec) string {
	return types.Identity{Name: spec.Name, Team: s.team}.Canonical()
}

// spawnAgent builds the worker argv and hands it to the backend.
func (s *Supervisor) spawnAgent(rec *AgentRecord) error {
	// Demo runs skip context injection entirely (no task_plan.md/findings.md
	// shared-state block); the simulated worker never reads files either way.
	task := rec.Spec.Prompt
	if !s.opts.Demo {
		task = injectSharedState(s.opts.WorkDir, rec.Spec.Prompt)
	}
	logPath := fileutil.LogPath(s.opts.LogsDir, rec.Identity.Name)
	argv := []string{
		s.opts.WorkerBinary,
		"--identity", rec.canonical(),
		"--state-dir", s.opts.StateDir,
		"--work-dir", s.opts.WorkDir,
		"--mission-id", s.mission.MissionID,
		"--log-file", logPath,
		"--model", rec.Spec.Model,
		"--llm-path", s.opts.LLMPath,
		"--task", task,
		"--exit-on-idle",
	}
	if s.opts.Demo {
		argv = append(argv, "--demo")
	}
	if err := s.backend.Spawn(rec.canonical(), argv, rec.Spec.Color); err != nil {
		s.log.RecordError(rec.canonical(), fmt.Sprintf("spawn failed: %s", err), types.ClassProcess, nil)
		return fmt.Errorf("spawning %s: %w", rec.Spec.Name, err)
	}
	now := time.Now()
	rec.Status = types.StatusRunning
	rec.StartedAt = now
	rec.LogPath = logPath
	rec.LastProgressLine, _ = fileutil.TailLastNonEmptyLine(logPath, progressTailBytes)
	rec.LastProgressAt = now
	s.log.Record(rec.canonical(), "spawned", "agent spawned", nil)
	return nil
}

// waitForAgents blocks until every id in ids has reached a terminal status,
// driving liveness polling, completion-signal draining, and the watchdog on
// every tick.
func (s *Supervisor) waitForAgents(ctx context.Context, ids []string) error {
	ticker := time.NewTicker(tickInterval)
	defer ticker.Stop()

	for {
		if s.allTerminal(ids) {
			return nil
		}
		select {
		case <-ctx.Done():
			s.markInterrupted(ids)
			return nil
		case <-ticker.C:
			s.drainCompletions()
			s.checkLiveness(ids)
			s.runWatchdog(ctx, ids)
		}
	}
}

func (s *Supervisor) allTerminal(ids []string) bool {
	for _, id := range ids {
		if rec, ok := s.agents[id]; ok && !rec.Status.Terminal() {
			return false
		}
	}
	return true
}

func (s *Supervisor) markInterrupted(ids []string) {
	for _, id := range ids {
		if rec, ok := s.agents[id]; ok && !rec.Status.Terminal() {
			rec.Status = types.StatusFailed
			rec.StopMode = types.StopForceKill
			s.log.RecordError(id, "mission context cancelled", types.ClassInterrupted, nil)
		}
	}
}

// drainCompletions polls the leader's own inbox for status_update messages
// carrying the completion sentinel and marks the sender completed.
func (s *Supervisor) drainCompletions() {
	msgs, err := s.leaderMB.Poll()
	if err != nil {
		return
	}
	for _, m := range msgs {
		senderID, err := types.ParseIdentity(m.Sender)
		if err != nil {
			continue
		}
		rec, ok := s.agents[senderID.Canonical()]
		if !ok {
			continue
		}
		switch {
		case m.IsCompletionSignal():
			rec.Status = types.StatusCompleted
		case m.Type == types.MessageShutdownResponse:
			rec.Status = types.StatusShutdown
		}
	}
}

// checkLiveness reconciles the backend's view of each agent's process
// against its recorded status: a process that exited with a non-zero or
// unknown code is a failure, eligible for retry; a clean exit 0 counts as
// completed even without a completion signal.
func (s *Supervisor) checkLiveness(ids []string) {
	alive := s.backend.IsAliveMany(ids)
	for _, id := range ids {
		rec, ok := s.agents[id]
		if !ok || rec.Status.Terminal() {
			continue
		}
		if alive[id] {
			continue
		}
		code, known := s.backend.ReturnCode(id)
		if known && code == 0 {
			// Process exited cleanly but we never saw its completion
			// message (e.g. it raced the final inbox poll) — treat as
			// completed rather than punish a benign race.
			rec.Status = types.StatusCompleted
			continue
		}
		s.log.RecordError(id, fmt.Sprintf("process exited unexpectedly (code=%d)", code), types.ClassProcess, nil)
		s.retryOrFail(rec)
	}
}
