package cli

import (
	"fmt"

	"github.com/swarmforge/swarmkit/internal/config"
	"github.com/spf13/cobra"
)

var vizRosterPath string

func init() {
	vizCmd.Flags().StringVar(&vizRosterPath, "roster", "subagents.yaml", "Path to the subagent roster file")
	rootCmd.AddCommand(vizCmd)
}

var vizCmd = &cobra.Command{
	Use:   "viz",
	Short: "Visualize the roster's phase schedule",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		roster, err := config.LoadRoster(vizRosterPath)
		if err != nil {
			return err
		}
		roster.Normalize()
		printPhases(roster)
		return nil
	},
}

func printPhases(r *config.Roster) {
	parallel, serial, validator := r.Phases()
	printPhase("parallel", parallel)
	printPhase("serial", serial)
	printPhase("validator", validator)
}

func printPhase(label string, agents []config.SubagentSpec) {
	fmt.Printf("[%s]\n", label)
	for i, a := range agents {
		connector := "├── "
		if i == len(agents)-1 {
			connector = "└── "
		}
		fmt.Printf("%s%s (%s)\n", connector, a.Name, a.Model)
	}
}
