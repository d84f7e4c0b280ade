package cli

import (
	"bytes"
	"fmt"
	"io"
	"os"
	"os/signal"
	"path/filepath"
	"syscall"
	"time"

	"github.com/swarmforge/swarmkit/internal/mailbox"
	"github.com/swarmforge/swarmkit/internal/mission"
	"github.com/swarmforge/swarmkit/internal/types"
	"github.com/spf13/cobra"
)

var (
	statusFollow   bool
	statusInterval float64
)

func init() {
	statusCmd.Flags().BoolVarP(&statusFollow, "follow", "f", false, "Live-update status (like watch)")
	statusCmd.Flags().Float64VarP(&statusInterval, "interval", "n", 2.0, "Seconds between updates (with --follow)")
	rootCmd.AddCommand(statusCmd)
}

var statusCmd = &cobra.Command{
	Use:   "status",
	Short: "Show the latest mission's per-agent status",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		stateDir, err := filepath.Abs(stateDirFlag)
		if err != nil {
			return err
		}
		if statusFollow {
			return followStatus(stateDir)
		}
		return renderStatus(os.Stdout, stateDir)
	},
}

func followStatus(stateDir string) error {
	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)
	defer signal.Stop(sigCh)

	interval := time.Duration(statusInterval * float64(time.Second))
	var lastOutput string

	for {
		var buf bytes.Buffer
		if err := renderStatus(&buf, stateDir); err != nil {
			fmt.Fprintf(os.Stderr, "\nerror: %s\n", err)
		}
		output := buf.String()

		if output != lastOutput {
			fmt.Print("\033[H\033[2J")
			fmt.Printf("Every %.1fs: swarm status\n\n", statusInterval)
			fmt.Print(output)
			lastOutput = output
		}

		select {
		case <-sigCh:
			fmt.Println()
			return nil
		case <-time.After(interval):
		}
	}
}

func renderStatus(w io.Writer, stateDir string) error {
	store := mission.NewStore(stateDir)
	m, err := store.Latest()
	if err != nil {
		return err
	}
	if m == nil {
		fmt.Fprintln(w, "no missions recorded yet.")
		return nil
	}

	fmt.Fprintf(w, "Mission %s (%s)\n", m.MissionID, m.Description)
	fmt.Fprintf(w, "Status: %s   Attempt: %d\n", m.Status, m.Attempt)
	fmt.Fprintln(w, "──────────────────────────────────────")

	for _, a := range m.Agents {
		symbol, style := stateDisplay(string(a.Status))
		id := types.Identity{Name: a.Name, Team: m.TeamName}
		ts, found := mailbox.ReadHeartbeat(stateDir, id)
		heartbeat := "no heartbeat"
		if found {
			heartbeat = fmt.Sprintf("last heartbeat %s ago", time.Since(time.Unix(0, int64(ts*1e9))).Round(time.Second))
		}
		fmt.Fprintf(w, "  %s  %-20s  %-9s  %s\n", style.Render(symbol), a.Name, a.Status, heartbeat)
	}
	return nil
}
