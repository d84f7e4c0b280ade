package cli

import (
	"context"
	"fmt"
	"os"
	"os/exec"
	"os/signal"
	"path/filepath"
	"syscall"

	"github.com/swarmforge/swarmkit/internal/audit"
	"github.com/swarmforge/swarmkit/internal/config"
	"github.com/swarmforge/swarmkit/internal/mission"
	"github.com/swarmforge/swarmkit/internal/reporter"
	"github.com/swarmforge/swarmkit/internal/supervisor"
	"github.com/spf13/cobra"
)

var (
	rosterPath  string
	configFile  string
	workDir     string
	logsDir     string
	llmPath     string
	workerBin   string
	backendFlag string
	yesFlag     bool
	demoFlag    bool
	cleanupFlag bool
)

func init() {
	runCmd.Flags().StringVar(&rosterPath, "roster", "subagents.yaml", "Path to the subagent roster file")
	runCmd.Flags().StringVar(&configFile, "config", "swarm-config.yaml", "Path to the swarm config file")
	runCmd.Flags().StringVar(&workDir, "work-dir", ".", "Directory agent WRITE_FILE/RUN_COMMAND paths are relative to")
	runCmd.Flags().StringVar(&logsDir, "logs-dir", "logs", "Directory worker stdout logs are written to")
	runCmd.Flags().StringVar(&llmPath, "llm-path", "claude", "LLM CLI binary each worker invokes")
	runCmd.Flags().StringVar(&workerBin, "worker-bin", "", "Path to the swarm-worker binary (defaults to the sibling of this executable)")
	runCmd.Flags().StringVar(&backendFlag, "backend", "", "Override swarm-config.yaml's backend (auto|tmux|thread)")
	runCmd.Flags().BoolVarP(&yesFlag, "yes", "y", false, "Skip the plan-mode confirmation prompt")
	runCmd.Flags().BoolVar(&demoFlag, "demo", false, "Simulate execution instead of invoking a real LLM")
	runCmd.Flags().BoolVar(&cleanupFlag, "cleanup-stale", false, "Mark the latest mission failed (if not already terminal) and exit")
	rootCmd.AddCommand(runCmd)
}

var runCmd = &cobra.Command{
	Use:   "run <mission description>",
	Short: "Validate the roster, confirm the plan, and run a mission",
	Args:  cobra.ArbitraryArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		if cleanupFlag {
			return runCleanupStale()
		}
		if len(args) == 0 {
			return fmt.Errorf("accepts a mission description (or --cleanup-stale)")
		}
		description := joinArgs(args)

		roster, err := config.LoadRoster(rosterPath)
		if err != nil {
			return err
		}
		swarmCfg, err := config.LoadSwarmConfig(configFile)
		if err != nil {
			return err
		}

		opts, err := buildOptions()
		if err != nil {
			return err
		}
		opts.Demo = demoFlag

		ctx, cancel := context.WithCancel(context.Background())
		defer cancel()
		sigCh := make(chan os.Signal, 1)
		signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)
		go func() {
			sig := <-sigCh
			fmt.Printf("\nreceived %s, winding the mission down...\n", sig)
			cancel()
		}()

		m, tokens, err := supervisor.Launch(ctx, opts, description, roster, swarmCfg)
		if len(tokens) > 0 {
			fmt.Fprintln(os.Stderr, "roster failed pre-run validation:")
			for _, t := range tokens {
				fmt.Fprintf(os.Stderr, "  - %s\n", t)
			}
			return fmt.Errorf("%d validation error(s)", len(tokens))
		}
		if err != nil {
			return err
		}

		log := audit.Open(opts.StateDir, m.MissionID)
		if summary, rerr := reporter.Render(m, log); rerr == nil {
			fmt.Println()
			fmt.Println(summary)
		}

		if m.Status == "failed" {
			return fmt.Errorf("mission failed: %s", m.FailureReason)
		}
		return nil
	},
}

// runCleanupStale marks the most recently started mission failed, if it
// isn't already in a terminal state, and always exits 0 — it is meant to
// run unattended (e.g. a cron job) to reap missions an operator never came
// back to resume.
func runCleanupStale() error {
	stateDir, err := filepath.Abs(stateDirFlag)
	if err != nil {
		return err
	}
	store := mission.NewStore(stateDir)
	m, err := store.Latest()
	if err != nil {
		return fmt.Errorf("scanning missions: %w", err)
	}
	if m == nil {
		fmt.Println("no missions found")
		return nil
	}
	if m.Status.Terminal() {
		fmt.Printf("mission %s already terminal (%s), nothing to do\n", m.MissionID, m.Status)
		return nil
	}
	m.Fail("cleanup_stale")
	if err := store.Save(m); err != nil {
		return fmt.Errorf("saving mission %s: %w", m.MissionID, err)
	}
	fmt.Printf("mission %s marked failed\n", m.MissionID)
	return nil
}

func joinArgs(args []string) string {
	out := args[0]
	for _, a := range args[1:] {
		out += " " + a
	}
	return out
}

func buildOptions() (supervisor.Options, error) {
	stateDir, err := filepath.Abs(stateDirFlag)
	if err != nil {
		return supervisor.Options{}, err
	}
	wd, err := filepath.Abs(workDir)
	if err != nil {
		return supervisor.Options{}, err
	}
	bin := workerBin
	if bin == "" {
		bin = defaultWorkerBinary()
	}
	return supervisor.Options{
		StateDir:     stateDir,
		WorkDir:      wd,
		LogsDir:      logsDir,
		BackendKind:  (&config.SwarmConfig{Backend: backendFlag}).BackendKind(),
		LLMPath:      llmPath,
		WorkerBinary: bin,
		AutoConfirm:  yesFlag,
	}, nil
}

// defaultWorkerBinary looks for swarm-worker next to this executable,
// falling back to PATH lookup.
func defaultWorkerBinary() string {
	if self, err := os.Executable(); err == nil {
		candidate := filepath.Join(filepath.Dir(self), "swarm-worker")
		if _, err := os.Stat(candidate); err == nil {
			return candidate
		}
	}
	if p, err := exec.LookPath("swarm-worker"); err == nil {
		return p
	}
	return "swarm-worker"
}
