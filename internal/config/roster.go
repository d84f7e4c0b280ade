package config

import (
	"fmt"
	"os"

	"github.com/swarmforge/swarmkit/internal/types"
	"github.com/swarmforge/swarmkit/internal/worker"
	"gopkg.in/yaml.v3"
)

// QualityValidatorName is the one subagent every roster must contain, run
// last and always in validator mode regardless of what the roster file says.
const QualityValidatorName = "Quality_Validator"

// SubagentSpec is one entry of subagents.yaml.
type SubagentSpec struct {
	Name   string `yaml:"name"`
	Color  string `yaml:"color"`
	Model  string `yaml:"model"`
	Mode   string `yaml:"mode"` // parallel | serial | validator
	Prompt string `yaml:"prompt"`
}

// Roster is the full parsed subagents.yaml.
type Roster struct {
	Subagents []SubagentSpec `yaml:"subagents"`
}

// LoadRoster reads subagents.yaml. It does not validate — callers run
// PreRunValidation separately so the supervisor can surface every failure
// token at once instead of stopping at the first.
func LoadRoster(path string) (*Roster, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("reading %s: %w", path, err)
	}
	var r Roster
	if err := yaml.Unmarshal(data, &r); err != nil {
		return nil, fmt.Errorf("parsing %s: %w", path, err)
	}
	return &r, nil
}

// Normalize forces Quality_Validator (if present) into validator mode,
// since it always runs last regardless of what the roster file declared.
func (r *Roster) Normalize() {
	for i := range r.Subagents {
		if r.Subagents[i].Name == QualityValidatorName {
			r.Subagents[i].Mode = string(types.ModeValidator)
		}
	}
}

// PreRunValidation runs every pre-run gate check and returns the full set
// of stable failure tokens (never just the first).
// An empty slice means the roster is launchable.
func (r *Roster) PreRunValidation() []string {
	var tokens []string

	if r == nil || len(r.Subagents) == 0 {
		return []string{"missing_config"}
	}

	foundValidator := false
	seen := make(map[string]bool)
	for i, a := range r.Subagents {
		if a.Name == "" || a.Prompt == "" {
			tokens = append(tokens, "invalid_subagent_config")
		}
		if a.Name != "" {
			if seen[a.Name] {
				tokens = append(tokens, "invalid_subagent_config")
			}
			seen[a.Name] = true
		}
		switch a.Mode {
		case "", string(types.ModeParallel), string(types.ModeSerial), string(types.ModeValidator):
		default:
			tokens = append(tokens, "invalid_subagent_config")
		}
		if a.Name == QualityValidatorName {
			foundValidator = true
		}
		for _, missing := range worker.MissingSections(a.Prompt) {
			tokens = append(tokens, fmt.Sprintf("agent_%d_prompt_missing_section:%s", i, missing))
		}
	}

	if !foundValidator {
		tokens = append(tokens, "missing_quality_validator")
	}

	return tokens
}

// Phases partitions the roster into the three scheduler phases, in the
// fixed order parallel -> serial -> validator regardless of file order.
func (r *Roster) Phases() (parallel, serial, validator []SubagentSpec) {
	for _, a := range r.Subagents {
		switch types.RoleMode(a.Mode) {
		case types.ModeSerial:
			serial = append(serial, a)
		case types.ModeValidator:
			validator = append(validator, a)
		default:
			parallel = append(parallel, a)
		}
	}
	return parallel, serial, validator
}

// Names returns every subagent's name, in roster order.
func (r *Roster) Names() []string {
	names := make([]string, len(r.Subagents))
	for i, a := range r.Subagents {
		names[i] = a.Name
	}
	return names
}
