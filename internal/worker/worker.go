// Package worker implements the in-child agent lifecycle: prompt contract
// -> LLM subprocess -> stream-parsed side effects -> idle-poll mailbox ->
// follow-up tasks / shutdown. It runs inside the process (or pane) the
// supervisor's backend spawned.
package worker

import (
	"context"
	"fmt"
	"os"
	"time"

	ignore "github.com/sabhiram/go-gitignore"
	"github.com/swarmforge/swarmkit/internal/audit"
	"github.com/swarmforge/swarmkit/internal/mailbox"
	"github.com/swarmforge/swarmkit/internal/types"
)

// Config is the worker's launch configuration, sourced from its CLI flags.
type Config struct {
	Identity     types.Identity
	StateDir     string // mailbox/config/audit root shared with the supervisor
	WorkDir      string // cwd WRITE_FILE/RUN_COMMAND paths are relative to
	LogFilePath  string
	Model        string
	LLMPath      string
	ExitOnIdle   bool
	PollInterval time.Duration
	IdleTimeout  time.Duration
	TaskTimeout  time.Duration
	IgnoreFile   string // optional .swarmignore path
	Demo         bool   // simulate task execution instead of invoking LLMPath
	DemoFailRate float64
}

// DefaultConfig fills in the documented defaults, overridable by the
// AG_SWARM_* environment variables (see internal/config).
func DefaultConfig() Config {
	return Config{
		PollInterval: time.Second,
		IdleTimeout:  120 * time.Second,
		TaskTimeout:  240 * time.Second,
	}
}

// Worker drives one agent's state machine.
type Worker struct {
	cfg       Config
	mbox      *mailbox.Mailbox
	log       *audit.Log
	logFile   *os.File
	peers     []types.Identity
	ignore    *ignore.GitIgnore
	missionID string
}

// New constructs a Worker bound to cfg, opening its log-tee file and
// compiling cfg.IgnoreFile if set. peers is the broadcast roster the caller
// has already resolved from the team config.
func New(cfg Config, missionID string, peers []types.Identity) (*Worker, error) {
	if err := cfg.Identity.Validate(); err != nil {
		return nil, err
	}
	logFile, err := os.OpenFile(cfg.LogFilePath, os.O_CREATE|os.O_APPEND|os.O_WRONLY, 0644)
	if err != nil {
		return nil, fmt.Errorf("opening log file: %w", err)
	}

	var gi *ignore.GitIgnore
	if cfg.IgnoreFile != "" {
		if data, err := os.ReadFile(cfg.IgnoreFile); err == nil {
			gi = ignore.CompileIgnoreLines(splitLines(string(data))...)
		}
	}

	w := &Worker{
		cfg:       cfg,
		mbox:      mailbox.New(cfg.StateDir, cfg.Identity),
		log:       audit.Open(cfg.StateDir, missionID),
		logFile:   logFile,
		peers:     peers,
		ignore:    gi,
		missionID: missionID,
	}
	return w, nil
}

func (w *Worker) Close() error {
	if w.logFile != nil {
		return w.logFile.Close()
	}
	return nil
}

func splitLines(s string) []string {
	var out []string
	start := 0
	for i, c := range s {
		if c == '\n' {
			out = append(out, s[start:i])
			start = i + 1
		}
	}
	if start < len(s) {
		out = append(out, s[start:])
	}
	return out
}

// Run drives the worker's full lifecycle for initialTask and returns the
// process exit code (0 on normal completion, 1 on failure/signal).
func (w *Worker) Run(ctx context.Context, initialTask string) int {
	w.mbox.WriteHeartbeat()
	id := w.cfg.Identity.Canonical()
	w.log.Record(id, audit.EventSpawned, "worker started", nil)

	w.executeTask(ctx, initialTask)
	if ctx.Err() != nil {
		return w.notifyInterrupted()
	}

	if w.cfg.ExitOnIdle {
		w.notifyCompletion("initial_task")
		return 0
	}
	return w.idleLoop(ctx)
}

// idleLoop implements IDLE ─poll─► handle message ──► RUNNING ──► IDLE,
// with shutdown_request and idle-timeout exits per the worker state
// diagram.
func (w *Worker) idleLoop(ctx context.Context) int {
	lastActivity := time.Now()
	lastPrune := time.Now()

	for {
		select {
		case <-ctx.Done():
			return w.notifyInterrupted()
		default:
		}

		msgs, err := w.mbox.PollBlocking(ctx, w.cfg.PollInterval)
		w.mbox.WriteHeartbeat()
		if err != nil {
			if ctx.Err() != nil {
				return w.notifyInterrupted()
			}
			continue
		}

		if time.Since(lastPrune) > 5*time.Minute {
			w.mbox.CleanupProcessed(24 * time.Hour)
			lastPrune = time.Now()
		}

		if len(msgs) == 0 {
			if time.Since(lastActivity) >= w.cfg.IdleTimeout {
				w.notifyCompletion("idle_timeout")
				return 0
			}
			continue
		}

		for _, m := range msgs {
			lastActivity = time.Now()
			id := w.cfg.Identity.Canonical()
			switch m.Type {
			case types.MessageShutdownRequest:
				w.respondShutdown(m)
				return 0
			case types.MessageDirect, types.MessageBroadcast:
				w.log.Record(id, audit.EventMessageReceived, string(m.Type), map[string]interface{}{"from": m.Sender})
				w.executeTask(ctx, m.Content)
				if ctx.Err() != nil {
					return w.notifyInterrupted()
				}
			default:
				w.log.Record(id, audit.EventMessageReceived, string(m.Type), map[string]interface{}{"from": m.Sender})
			}
		}
	}
}

// executeTask runs one task through the LLM child and applies every
// streamed side effect. Task-level timeout and a non-zero LLM exit are
// audited but never terminate the idle loop.
func (w *Worker) executeTask(ctx context.Context, task string) {
	id := w.cfg.Identity.Canonical()
	full := EnsureRequiredSections(task)
	prompt := ShimPreamble + "\n\n" + full

	taskCtx, cancel := context.WithTimeout(ctx, w.cfg.TaskTimeout)
	defer cancel()

	scanner := NewScanner()
	onLine := func(line string) {
		fmt.Println(line)
		if w.logFile != nil {
			fmt.Fprintln(w.logFile, line)
		}
		effects, trimmed := scanner.Feed(line)
		if trimmed {
			w.log.Record(id, audit.EventWarning, "stream_buffer_trimmed", nil)
		}
		for _, e := range effects {
			w.applyEffect(e)
		}
	}

	var code int
	var err error
	if w.cfg.Demo {
		code, err = runDemo(taskCtx, id, w.cfg.DemoFailRate, onLine)
	} else {
		code, err = runLLM(taskCtx, w.cfg.LLMPath, w.cfg.Model, prompt, onLine)
	}
	for _, orphan := range scanner.Flush() {
		w.log.Record(id, audit.EventWarning, "stream_orphan_tags", map[string]interface{}{"kind": orphan})
	}

	if err != nil {
		if taskCtx.Err() != nil && ctx.Err() == nil {
			w.log.RecordError(id, "task timeout", types.ClassTimeout, nil)
		} else if ctx.Err() == nil {
			w.log.RecordError(id, fmt.Sprintf("llm invocation failed: %s", err), types.ClassProcess, nil)
		}
		return
	}
	if code != 0 {
		w.log.RecordError(id, fmt.Sprintf("llm exited with code %d", code), types.ClassProcess, nil)
	}
}

func (w *Worker) notifyCompletion(reason string) {
	id := w.cfg.Identity.Canonical()
	content := fmt.Sprintf("%s: %s", types.CompletionSentinel, reason)
	leader := types.Leader(w.cfg.Identity.Team)
	if _, err := w.mbox.Send(leader, types.MessageStatusUpdate, content, nil); err != nil {
		w.log.RecordError(id, fmt.Sprintf("notifying completion: %s", err), types.ClassMailbox, nil)
	}
	w.log.Record(id, audit.EventStatusChange, "completed: "+reason, nil)
}

func (w *Worker) respondShutdown(req types.Message) {
	id := w.cfg.Identity.Canonical()
	sender, err := req.SenderIdentity()
	if err != nil {
		sender = types.Leader(w.cfg.Identity.Team)
	}
	if _, err := w.mbox.Send(sender, types.MessageShutdownResponse, "ack", nil); err != nil {
		w.log.RecordError(id, fmt.Sprintf("sending shutdown_response: %s", err), types.ClassMailbox, nil)
	}
	w.log.Record(id, audit.EventShutdown, "graceful shutdown acknowledged", nil)
}

func (w *Worker) notifyInterrupted() int {
	id := w.cfg.Identity.Canonical()
	w.log.RecordError(id, "dispatcher_interrupted", types.ClassInterrupted, nil)
	leader := types.Leader(w.cfg.Identity.Team)
	_, _ = w.mbox.Send(leader, types.MessageStatusUpdate, "dispatcher_interrupted", nil)
	return 1
}
