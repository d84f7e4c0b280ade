package supervisor

import (
	"fmt"

	"github.com/AlecAivazis/survey/v2"
	"github.com/swarmforge/swarmkit/internal/config"
)

// ConfirmPlan renders the roster that is about to run and, unless
// autoConfirm is set, blocks on an interactive yes/no before the
// supervisor spawns anything. A "no" answer is the only way a launch is
// cancelled after pre-run validation has already passed.
func ConfirmPlan(description string, r *config.Roster, autoConfirm bool) (bool, error) {
	parallel, serial, validator := r.Phases()
	fmt.Printf("Mission: %s\n\n", description)
	fmt.Println("Phase 1 (parallel):")
	for _, a := range parallel {
		fmt.Printf("  - %s (%s)\n", a.Name, a.Model)
	}
	fmt.Println("Phase 2 (serial):")
	for _, a := range serial {
		fmt.Printf("  - %s (%s)\n", a.Name, a.Model)
	}
	fmt.Println("Phase 3 (validator):")
	for _, a := range validator {
		fmt.Printf("  - %s (%s)\n", a.Name, a.Model)
	}

	if autoConfirm {
		return true, nil
	}

	proceed := false
	prompt := &survey.Confirm{Message: "Launch this roster?", Default: true}
	if err := survey.AskOne(prompt, &proceed); err != nil {
		return false, err
	}
	return proceed, nil
}
