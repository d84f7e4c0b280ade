package cli

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/swarmforge/swarmkit/internal/audit"
	"github.com/swarmforge/swarmkit/internal/config"
	"github.com/swarmforge/swarmkit/internal/reporter"
	"github.com/swarmforge/swarmkit/internal/supervisor"
	"github.com/spf13/cobra"
)

var resumeMissionID string

func init() {
	resumeCmd.Flags().StringVar(&rosterPath, "roster", "subagents.yaml", "Path to the subagent roster file")
	resumeCmd.Flags().StringVar(&configFile, "config", "swarm-config.yaml", "Path to the swarm config file")
	resumeCmd.Flags().StringVar(&workDir, "work-dir", ".", "Directory agent WRITE_FILE/RUN_COMMAND paths are relative to")
	resumeCmd.Flags().StringVar(&logsDir, "logs-dir", "logs", "Directory worker stdout logs are written to")
	resumeCmd.Flags().StringVar(&llmPath, "llm-path", "claude", "LLM CLI binary each worker invokes")
	resumeCmd.Flags().StringVar(&workerBin, "worker-bin", "", "Path to the swarm-worker binary (defaults to the sibling of this executable)")
	resumeCmd.Flags().StringVar(&backendFlag, "backend", "", "Override swarm-config.yaml's backend (auto|tmux|thread)")
	resumeCmd.Flags().StringVar(&resumeMissionID, "mission-id", "", "Resume this specific mission instead of the latest resumable one")
	rootCmd.AddCommand(resumeCmd)
}

var resumeCmd = &cobra.Command{
	Use:   "resume",
	Short: "Continue the most recent resumable mission",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
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

		ctx, cancel := context.WithCancel(context.Background())
		defer cancel()
		sigCh := make(chan os.Signal, 1)
		signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)
		go func() {
			sig := <-sigCh
			fmt.Printf("\nreceived %s, winding the mission down...\n", sig)
			cancel()
		}()

		m, err := supervisor.Resume(ctx, opts, roster, swarmCfg, resumeMissionID)
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
