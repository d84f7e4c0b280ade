package backend

import (
	"fmt"
	"os"
	"os/exec"
	"strconv"
	"strings"
	"sync"
	"time"

	"github.com/kballard/go-shellquote"
	"golang.org/x/term"

	"github.com/swarmforge/swarmkit/internal/retry"
)

// TmuxBackend drives a real tmux binary: one session per supervisor run,
// one pane per worker. Liveness is always queried through one batched
// `tmux list-panes` call — per-child polls over a subprocess invocation do
// not scale, per the design note this backend is built against.
type TmuxBackend struct {
	session string

	mu     sync.Mutex
	panes  map[string]string // agent name -> pane id
	cache  map[string]paneState
	cached time.Time
}

type paneState struct {
	dead   bool
	status int
	known  bool
}

const tmuxCacheTTL = 300 * time.Millisecond

func inTmux() bool {
	return os.Getenv("TMUX") != ""
}

func isTransientTmuxErr(err error) bool {
	if err == nil {
		return false
	}
	msg := err.Error()
	return strings.Contains(msg, "no such file or directory") || strings.Contains(msg, "connect() failed")
}

// NewTmux creates a detached tmux session named sessionName (falling back
// to a generated name if empty) with remain-on-exit enabled so dead panes
// keep their #{pane_dead_status} readable.
func NewTmux(sessionName string) (*TmuxBackend, error) {
	if _, err := exec.LookPath("tmux"); err != nil {
		return nil, fmt.Errorf("tmux: binary not found on PATH: %w", err)
	}
	if sessionName == "" {
		sessionName = fmt.Sprintf("swarm-%d", time.Now().UnixNano())
	}

	// The tmux server may still be forking off its socket on the very first
	// session of a machine; a "no such file or directory" on the socket
	// path this soon after exec is transient, not a missing binary.
	newSessionErr := retry.DefaultPolicy().Do(isTransientTmuxErr, func() error {
		out, err := exec.Command("tmux", "new-session", "-d", "-s", sessionName, "-n", "main", "sh", "-c", "sleep 2147483647").CombinedOutput()
		if err != nil {
			return fmt.Errorf("tmux new-session: %s: %w", strings.TrimSpace(string(out)), err)
		}
		return nil
	})
	if newSessionErr != nil {
		return nil, newSessionErr
	}
	if out, err := exec.Command("tmux", "set-window-option", "-t", sessionName, "remain-on-exit", "on").CombinedOutput(); err != nil {
		return nil, fmt.Errorf("tmux set-window-option: %s: %w", strings.TrimSpace(string(out)), err)
	}

	return &TmuxBackend{
		session: sessionName,
		panes:   make(map[string]string),
		cache:   make(map[string]paneState),
	}, nil
}

func (b *TmuxBackend) Type() string { return "tmux" }

// Spawn shell-quotes argv and runs it as a new pane (the first call reuses
// the placeholder pane created in NewTmux), then rebalances the layout.
func (b *TmuxBackend) Spawn(name string, argv []string, color string) error {
	quoted := shellquote.Join(argv...)

	b.mu.Lock()
	first := len(b.panes) == 0
	b.mu.Unlock()

	var paneID string
	if first {
		if out, err := exec.Command("tmux", "respawn-pane", "-t", b.session+":main.0", "-k", "sh", "-c", quoted).CombinedOutput(); err != nil {
			return fmt.Errorf("tmux respawn-pane: %s: %w", strings.TrimSpace(string(out)), err)
		}
		out, err := exec.Command("tmux", "display-message", "-p", "-t", b.session+":main.0", "#{pane_id}").CombinedOutput()
		if err != nil {
			return fmt.Errorf("tmux display-message: %w", err)
		}
		paneID = strings.TrimSpace(string(out))
	} else {
		out, err := exec.Command("tmux", "split-window", "-t", b.session+":main", "-P", "-F", "#{pane_id}", "sh", "-c", quoted).CombinedOutput()
		if err != nil {
			return fmt.Errorf("tmux split-window: %s: %w", strings.TrimSpace(string(out)), err)
		}
		paneID = strings.TrimSpace(string(out))
	}

	b.mu.Lock()
	b.panes[name] = paneID
	b.mu.Unlock()

	b.rebalance()
	return nil
}

// rebalance picks a tiled layout, preferring a horizontal split when the
// terminal is wide enough for side-by-side panes.
func (b *TmuxBackend) rebalance() {
	layout := "tiled"
	if w, _, err := term.GetSize(int(os.Stdout.Fd())); err == nil && w > 0 {
		b.mu.Lock()
		n := len(b.panes)
		b.mu.Unlock()
		if w < 160 && n <= 2 {
			layout = "even-vertical"
		}
	}
	_ = exec.Command("tmux", "select-layout", "-t", b.session+":main", layout).Run()
}

// Kill sends an interrupt key sequence, waits briefly, then removes the
// pane outright.
func (b *TmuxBackend) Kill(name string) error {
	b.mu.Lock()
	paneID, ok := b.panes[name]
	b.mu.Unlock()
	if !ok {
		return nil
	}

	_ = exec.Command("tmux", "send-keys", "-t", paneID, "C-c").Run()
	time.Sleep(GracePeriod * time.Second / 2)
	_ = exec.Command("tmux", "kill-pane", "-t", paneID).Run()

	b.mu.Lock()
	delete(b.panes, name)
	delete(b.cache, paneID)
	b.mu.Unlock()
	return nil
}

func (b *TmuxBackend) refresh() {
	b.mu.Lock()
	if time.Since(b.cached) < tmuxCacheTTL {
		b.mu.Unlock()
		return
	}
	b.mu.Unlock()

	out, err := exec.Command("tmux", "list-panes", "-t", b.session, "-F", "#{pane_id} #{pane_dead} #{pane_dead_status}").CombinedOutput()
	b.mu.Lock()
	defer b.mu.Unlock()
	b.cached = time.Now()
	if err != nil {
		return
	}
	fresh := make(map[string]paneState)
	for _, line := range strings.Split(strings.TrimSpace(string(out)), "\n") {
		fields := strings.Fields(line)
		if len(fields) == 0 {
			continue
		}
		id := fields[0]
		st := paneState{}
		if len(fields) > 1 {
			st.dead = fields[1] == "1"
		}
		if len(fields) > 2 {
			if code, err := strconv.Atoi(fields[2]); err == nil {
				st.status = code
				st.known = true
			}
		}
		fresh[id] = st
	}
	b.cache = fresh
}

func (b *TmuxBackend) IsAlive(name string) bool {
	return b.IsAliveMany([]string{name})[name]
}

// IsAliveMany issues one batched `tmux list-panes` call (cached for a few
// hundred milliseconds) rather than a per-child query.
func (b *TmuxBackend) IsAliveMany(names []string) map[string]bool {
	b.refresh()
	b.mu.Lock()
	defer b.mu.Unlock()
	out := make(map[string]bool, len(names))
	for _, n := range names {
		paneID, ok := b.panes[n]
		if !ok {
			out[n] = false
			continue
		}
		st, ok := b.cache[paneID]
		out[n] = !ok || !st.dead
	}
	return out
}

func (b *TmuxBackend) ReturnCode(name string) (int, bool) {
	b.refresh()
	b.mu.Lock()
	defer b.mu.Unlock()
	paneID, ok := b.panes[name]
	if !ok {
		return 0, false
	}
	st, ok := b.cache[paneID]
	if !ok || !st.dead {
		return 0, false
	}
	return st.status, st.known
}

// Cleanup kills the whole tmux session.
func (b *TmuxBackend) Cleanup() error {
	out, err := exec.Command("tmux", "kill-session", "-t", b.session).CombinedOutput()
	b.mu.Lock()
	b.panes = make(map[string]string)
	b.cache = make(map[string]paneState)
	b.mu.Unlock()
	if err != nil && !strings.Contains(string(out), "can't find session") {
		return fmt.Errorf("tmux kill-session: %s: %w", strings.TrimSpace(string(out)), err)
	}
	return nil
}
