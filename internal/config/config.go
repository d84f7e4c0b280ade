// Package config loads and validates the two YAML inputs the supervisor
// needs (swarm-config.yaml, subagents.yaml), the JSON team-roster file the
// supervisor writes for workers to read, and the AG_SWARM_* environment
// override layer. All are closed Go structs validated eagerly on load.
package config

import (
	"fmt"
	"os"
	"time"

	"gopkg.in/yaml.v3"
)

// SwarmConfig mirrors swarm-config.yaml. Absent keys take the documented
// defaults.
type SwarmConfig struct {
	Backend             string         `yaml:"backend"` // auto | tmux | thread
	DefaultModel        string         `yaml:"default_model"`
	MaxParallel         int            `yaml:"max_parallel"`
	PollIntervalMS      int            `yaml:"poll_interval_ms"`
	PermissionMode      string         `yaml:"permission_mode"`
	AuditEnabled        *bool          `yaml:"audit_enabled"`
	TUIRefreshRate      float64        `yaml:"tui_refresh_rate"`
	CompactionThreshold int            `yaml:"compaction_threshold"`
	Presets             map[string]any `yaml:"presets"`
}

// Defaults applies swarm-config.yaml's documented defaults in place.
func (c *SwarmConfig) Defaults() {
	if c.Backend == "" {
		c.Backend = "auto"
	}
	if c.PollIntervalMS == 0 {
		c.PollIntervalMS = 1000
	}
	if c.MaxParallel == 0 {
		c.MaxParallel = 4
	}
	if c.PermissionMode == "" {
		c.PermissionMode = "default"
	}
	if c.AuditEnabled == nil {
		t := true
		c.AuditEnabled = &t
	}
	if c.TUIRefreshRate == 0 {
		c.TUIRefreshRate = 1.0
	}
	if c.CompactionThreshold == 0 {
		c.CompactionThreshold = 50000
	}
}

// LoadSwarmConfig reads and validates a swarm-config.yaml; a missing file
// is not an error — an all-defaults config is returned.
func LoadSwarmConfig(path string) (*SwarmConfig, error) {
	cfg := &SwarmConfig{}
	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			cfg.Defaults()
			return cfg, nil
		}
		return nil, fmt.Errorf("reading %s: %w", path, err)
	}
	if err := yaml.Unmarshal(data, cfg); err != nil {
		return nil, fmt.Errorf("parsing %s: %w", path, err)
	}
	cfg.Defaults()
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// Validate rejects an unknown backend value.
func (c *SwarmConfig) Validate() error {
	switch c.Backend {
	case "auto", "tmux", "thread":
	default:
		return fmt.Errorf("config_error: swarm-config.yaml: unknown backend %q", c.Backend)
	}
	return nil
}

// BackendKind maps the config's {auto,tmux,thread} vocabulary onto the
// internal/backend package's {auto,tmux,process} kinds. "thread" names the
// non-multiplexer backend in the system this was adapted from, where each
// worker's subprocess ran under its own goroutine; the Go process-group
// backend is its direct analogue.
func (c *SwarmConfig) BackendKind() string {
	if c.Backend == "thread" {
		return "process"
	}
	return c.Backend
}

// Timeouts is the resolved set of AG_SWARM_* durations, read once at
// supervisor/worker startup.
type Timeouts struct {
	TaskTimeout        time.Duration
	IdleTimeout        time.Duration
	WatchdogTimeout    time.Duration
	WatchdogGrace      time.Duration
	MaxRetries         int
	RetryCooldown      time.Duration
	HardTimeout        time.Duration // 0 = off
	ResumeStaleTimeout time.Duration
	DemoFailRate       float64
}

// LoadTimeouts resolves every AG_SWARM_* environment variable against the
// documented defaults.
func LoadTimeouts() Timeouts {
	return Timeouts{
		TaskTimeout:        envSeconds("AG_SWARM_TASK_TIMEOUT_SECONDS", 240),
		IdleTimeout:        envSeconds("AG_SWARM_AGENT_IDLE_TIMEOUT_SECONDS", 120),
		WatchdogTimeout:    envSeconds("AG_SWARM_WATCHDOG_SECONDS", 90),
		WatchdogGrace:      envSeconds("AG_SWARM_WATCHDOG_GRACE_SECONDS", 15),
		MaxRetries:         clampRetries(envInt("AG_SWARM_MAX_RETRIES", 1)),
		RetryCooldown:      envFractionalSeconds("AG_SWARM_RETRY_COOLDOWN_SECONDS", 0.3),
		HardTimeout:        envSeconds("AG_SWARM_HARD_TIMEOUT_SECONDS", 0),
		ResumeStaleTimeout: envSeconds("AG_SWARM_RESUME_STALE_SECONDS", 1800),
		DemoFailRate:       envFloat("AG_SWARM_DEMO_FAIL_RATE", 0),
	}
}

func clampRetries(n int) int {
	if n < 0 {
		return 0
	}
	if n > 5 {
		return 5
	}
	return n
}
