package cli

import (
	"fmt"

	"github.com/swarmforge/swarmkit/internal/config"
	"github.com/spf13/cobra"
)

var validateRosterPath string

func init() {
	validateCmd.Flags().StringVar(&validateRosterPath, "roster", "subagents.yaml", "Path to the subagent roster file")
	rootCmd.AddCommand(validateCmd)
}

var validateCmd = &cobra.Command{
	Use:   "validate",
	Short: "Run the pre-run roster validation gate without launching a mission",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		roster, err := config.LoadRoster(validateRosterPath)
		if err != nil {
			return err
		}
		tokens := roster.PreRunValidation()
		if len(tokens) == 0 {
			fmt.Println("roster is valid.")
			return nil
		}
		for _, t := range tokens {
			fmt.Println(t)
		}
		return fmt.Errorf("%d validation error(s)", len(tokens))
	},
}
