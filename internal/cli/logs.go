package cli

import (
	"fmt"
	"os"
	"os/exec"

	"github.com/swarmforge/swarmkit/internal/fileutil"
	"github.com/spf13/cobra"
)

var (
	logsFollow bool
	logsTail   int
	logsDirVar string
)

func init() {
	logsCmd.Flags().BoolVarP(&logsFollow, "follow", "f", false, "Follow log output (like tail -f)")
	logsCmd.Flags().IntVarP(&logsTail, "tail", "n", 50, "Number of lines to show")
	logsCmd.Flags().StringVar(&logsDirVar, "logs-dir", "logs", "Directory worker stdout logs are written to")
	rootCmd.AddCommand(logsCmd)
}

var logsCmd = &cobra.Command{
	Use:   "logs <agent-name>",
	Short: "Show one agent's stdout log",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		agentName := args[0]
		logPath := fileutil.LogPath(logsDirVar, agentName)
		if _, err := os.Stat(logPath); os.IsNotExist(err) {
			return fmt.Errorf("no log file found for %q (expected at %s)", agentName, logPath)
		}

		tailArgs := []string{"-n", fmt.Sprintf("%d", logsTail)}
		if logsFollow {
			tailArgs = append(tailArgs, "-f")
		}
		tailArgs = append(tailArgs, logPath)

		tailCmd := exec.Command("tail", tailArgs...)
		tailCmd.Stdout = os.Stdout
		tailCmd.Stderr = os.Stderr
		return tailCmd.Run()
	},
}
