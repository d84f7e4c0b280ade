package supervisor_test

import (
	"context"
	"os"
	"time"

	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"

	"github.com/swarmforge/swarmkit/internal/audit"
	"github.com/swarmforge/swarmkit/internal/config"
	"github.com/swarmforge/swarmkit/internal/mission"
	"github.com/swarmforge/swarmkit/internal/supervisor"
	"github.com/swarmforge/swarmkit/internal/types"
)

const lifecyclePrompt = `TASK
do the assigned work

EXPECTED OUTCOME
the work is done

REQUIRED TOOLS
none

MUST DO
finish promptly

MUST NOT DO
leave the task half done

CONTEXT
none`

func wellFormedRoster() *config.Roster {
	return &config.Roster{Subagents: []config.SubagentSpec{
		{Name: "Researcher", Mode: "parallel", Color: "cyan", Prompt: lifecyclePrompt},
		{Name: "Integrator", Mode: "serial", Color: "magenta", Prompt: lifecyclePrompt},
		{Name: config.QualityValidatorName, Mode: "validator", Color: "yellow", Prompt: lifecyclePrompt},
	}}
}

var _ = Describe("a mission launched end to end", func() {
	var (
		stateDir string
		opts     supervisor.Options
		swarmCfg *config.SwarmConfig
	)

	BeforeEach(func() {
		stateDir = GinkgoT().TempDir()
		opts = supervisor.Options{
			StateDir:     stateDir,
			WorkDir:      GinkgoT().TempDir(),
			LogsDir:      GinkgoT().TempDir(),
			BackendKind:  "process",
			WorkerBinary: "true", // ignores every flag spawnAgent passes it, always exits 0
			AutoConfirm:  true,
		}
		swarmCfg = &config.SwarmConfig{}
		swarmCfg.Defaults()

		os.Setenv("AG_SWARM_MAX_RETRIES", "1")
		os.Setenv("AG_SWARM_RETRY_COOLDOWN_SECONDS", "0.05")
		os.Setenv("AG_SWARM_WATCHDOG_SECONDS", "3600")
		os.Setenv("AG_SWARM_WATCHDOG_GRACE_SECONDS", "3600")
	})

	AfterEach(func() {
		os.Unsetenv("AG_SWARM_MAX_RETRIES")
		os.Unsetenv("AG_SWARM_RETRY_COOLDOWN_SECONDS")
		os.Unsetenv("AG_SWARM_WATCHDOG_SECONDS")
		os.Unsetenv("AG_SWARM_WATCHDOG_GRACE_SECONDS")
	})

	It("runs every roster agent through its phase and completes the mission", func() {
		ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()

		m, tokens, err := supervisor.Launch(ctx, opts, "ship the feature", wellFormedRoster(), swarmCfg)
		Expect(tokens).To(BeEmpty())
		Expect(err).NotTo(HaveOccurred())
		Expect(m).NotTo(BeNil())

		Expect(m.Status).To(Equal(types.MissionCompleted))
		Expect(m.Agents).To(HaveLen(3))
		for _, a := range m.Agents {
			Expect(a.Status).To(Equal(types.StatusCompleted))
		}

		store := mission.NewStore(stateDir)
		reloaded, loadErr := store.Load(m.MissionID)
		Expect(loadErr).NotTo(HaveOccurred())
		Expect(reloaded.Status).To(Equal(types.MissionCompleted))
	})

	It("records a spawn event for every agent in the audit log", func() {
		ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()

		m, tokens, err := supervisor.Launch(ctx, opts, "ship the feature", wellFormedRoster(), swarmCfg)
		Expect(tokens).To(BeEmpty())
		Expect(err).NotTo(HaveOccurred())

		log := audit.Open(stateDir, m.MissionID)
		summary, err := log.GetSummary()
		Expect(err).NotTo(HaveOccurred())
		Expect(summary.TotalEvents).To(BeNumerically(">=", 3))
	})
})

var _ = Describe("launching a roster that fails pre-run validation", func() {
	It("returns failure tokens instead of spawning anything", func() {
		stateDir := GinkgoT().TempDir()
		opts := supervisor.Options{
			StateDir:     stateDir,
			WorkDir:      GinkgoT().TempDir(),
			LogsDir:      GinkgoT().TempDir(),
			BackendKind:  "process",
			WorkerBinary: "true",
			AutoConfirm:  true,
		}
		swarmCfg := &config.SwarmConfig{}
		swarmCfg.Defaults()

		badRoster := &config.Roster{Subagents: []config.SubagentSpec{
			{Name: "Researcher", Mode: "parallel", Prompt: "do stuff"},
		}}

		m, tokens, err := supervisor.Launch(context.Background(), opts, "ship it", badRoster, swarmCfg)
		Expect(err).NotTo(HaveOccurred())
		Expect(m).To(BeNil())
		Expect(tokens).NotTo(BeEmpty())
	})
})
