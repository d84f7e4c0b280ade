package cli

import (
	"fmt"

	"github.com/spf13/cobra"
)

// Version is set at build time via ldflags.
var Version = "dev"

var stateDirFlag string

var rootCmd = &cobra.Command{
	Use:   "swarm",
	Short: "Orchestrate a team of LLM agents through a phased mission",
	Long: `swarm supervises a roster of LLM-backed agents through a mission: a
parallel phase, a serial phase, and a final validator phase. Agents talk to
each other and to the supervisor through a file-backed mailbox; every event
is captured in an append-only audit log.`,
}

func init() {
	rootCmd.PersistentFlags().StringVar(&stateDirFlag, "state-dir", ".swarm", "Supervisor state directory")
	rootCmd.AddCommand(versionCmd)
}

var versionCmd = &cobra.Command{
	Use:   "version",
	Short: "Print the version number",
	Run: func(cmd *cobra.Command, args []string) {
		fmt.Printf("swarm %s\n", Version)
	},
}

// Execute runs the root command.
func Execute() error {
	return rootCmd.Execute()
}
