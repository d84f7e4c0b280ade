// Package backend abstracts over the two ways a worker child can be run:
// a directly-spawned detached process, or a pane inside a persistent
// terminal-multiplexer session. The supervisor never talks to a process or
// a pane directly — only through this sealed interface.
package backend

import (
	"fmt"
	"os/exec"
)

// Backend is the contract every spawn implementation must satisfy. The
// batched IsAliveMany form is required: the supervisor polls every ~200ms
// and a per-child scan would be quadratic against the multiplexer backend.
type Backend interface {
	// Spawn launches name with argv under the given display color. It must
	// not inherit the supervisor's stdin.
	Spawn(name string, argv []string, color string) error
	// Kill sends a graceful interrupt then force-kills after a short grace.
	Kill(name string) error
	IsAlive(name string) bool
	IsAliveMany(names []string) map[string]bool
	// ReturnCode reports the child's final status if it has exited.
	ReturnCode(name string) (code int, known bool)
	Cleanup() error
	Type() string
}

// GracePeriod is how long (in seconds) the process-group backend's Kill
// waits after the graceful signal before force-killing; the tmux backend
// waits half of it.
const GracePeriod = 5

// Select auto-picks a backend: the terminal multiplexer when tmux is on
// PATH and the supervisor is not itself already nested inside one,
// otherwise the process-group backend. An explicit kind ("tmux" |
// "process" | "auto") overrides auto-selection.
func Select(kind string, sessionName string) (Backend, error) {
	switch kind {
	case "process":
		return NewProcessGroup(), nil
	case "tmux":
		return NewTmux(sessionName)
	case "auto", "":
		if tmuxAvailable() {
			b, err := NewTmux(sessionName)
			if err == nil {
				return b, nil
			}
		}
		return NewProcessGroup(), nil
	default:
		return nil, fmt.Errorf("backend: unknown kind %q", kind)
	}
}

func tmuxAvailable() bool {
	if inTmux() {
		return false
	}
	_, err := exec.LookPath("tmux")
	return err == nil
}
