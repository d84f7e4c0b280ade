// Command swarm-worker is the process (or pane) a supervisor's backend
// spawns for one agent. It is not meant to be run interactively — the
// supervisor builds its argv — so its flags are parsed with the standard
// library rather than the cobra tree swarm itself uses.
package main

import (
	"context"
	"flag"
	"os"
	"os/signal"
	"syscall"

	"github.com/swarmforge/swarmkit/internal/config"
	"github.com/swarmforge/swarmkit/internal/telemetry"
	"github.com/swarmforge/swarmkit/internal/types"
	"github.com/swarmforge/swarmkit/internal/worker"
)

func main() {
	var (
		identity   = flag.String("identity", "", "canonical name@team identity")
		stateDir   = flag.String("state-dir", "", "supervisor state directory")
		workDir    = flag.String("work-dir", ".", "working directory for WRITE_FILE/RUN_COMMAND")
		missionID  = flag.String("mission-id", "", "mission id this worker belongs to")
		logFile    = flag.String("log-file", "", "path to tee the LLM's stdout to")
		model      = flag.String("model", "", "model name passed to the LLM binary")
		llmPath    = flag.String("llm-path", "claude", "LLM CLI binary to invoke")
		task       = flag.String("task", "", "initial task prompt")
		exitOnIdle = flag.Bool("exit-on-idle", false, "exit after the initial task instead of entering the idle loop")
		ignoreFile = flag.String("ignore-file", "", "optional .swarmignore path")
		demo       = flag.Bool("demo", false, "simulate task execution instead of invoking llm-path")
	)
	flag.Parse()

	log := telemetry.New("worker")

	id, err := types.ParseIdentity(*identity)
	if err != nil {
		log.Error().Err(err).Msg("invalid identity")
		os.Exit(1)
	}

	tc, err := config.LoadTeamConfig(*stateDir)
	var peers []types.Identity
	cfg := worker.DefaultConfig()
	if err == nil {
		peers = tc.Peers(id)
		cfg.PollInterval = tc.PollInterval()
	} else {
		log.Warn().Err(err).Msg("no team config found, running without peers")
	}

	cfg.Identity = id
	cfg.StateDir = *stateDir
	cfg.WorkDir = *workDir
	cfg.LogFilePath = *logFile
	cfg.Model = *model
	cfg.LLMPath = *llmPath
	cfg.ExitOnIdle = *exitOnIdle
	cfg.IgnoreFile = *ignoreFile
	cfg.Demo = *demo

	timeouts := config.LoadTimeouts()
	cfg.IdleTimeout = timeouts.IdleTimeout
	cfg.TaskTimeout = timeouts.TaskTimeout
	cfg.DemoFailRate = timeouts.DemoFailRate

	w, err := worker.New(cfg, *missionID, peers)
	if err != nil {
		log.Error().Err(err).Msg("failed to initialize worker")
		os.Exit(1)
	}
	defer w.Close()

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)
	go func() {
		<-sigCh
		cancel()
	}()

	code := w.Run(ctx, *task)
	os.Exit(code)
}
