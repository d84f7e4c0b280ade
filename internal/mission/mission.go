// Package mission implements the supervisor's durable mission-state record:
// status transitions, resume/stale detection, and atomic persistence. The
// mission file is the only supervisor-owned file rewritten during a run.
package mission

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"regexp"
	"sort"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/swarmforge/swarmkit/internal/fileutil"
	"github.com/swarmforge/swarmkit/internal/types"
)

// AgentSummary is the roster-facing projection of one agent kept inside a
// Mission record — the supervisor's live AgentRecord carries much more,
// but only this subset is durable mission data.
type AgentSummary struct {
	Name   string           `json:"name"`
	Mode   types.RoleMode   `json:"mode"`
	Color  string           `json:"color"`
	Status types.AgentStatus `json:"status"`
}

// Mission is the durable top-level record for one execution of a roster.
type Mission struct {
	MissionID      string         `json:"mission_id"`
	Description    string         `json:"description"`
	TeamName       string         `json:"team_name"`
	StartedAt      string         `json:"started_at"`
	EndedAt        string         `json:"ended_at,omitempty"`
	Status         types.MissionStatus `json:"status"`
	Attempt        int            `json:"attempt"`
	FailureReason  string         `json:"failure_reason,omitempty"`
	Agents         []AgentSummary `json:"agents"`
}

// New creates a fresh planning-stage mission for description.
func New(description string) *Mission {
	return &Mission{
		MissionID:   uuid.NewString(),
		Description: description,
		TeamName:    DeriveTeamName(description),
		StartedAt:   nowRFC3339(),
		Status:      types.MissionPlanning,
		Attempt:     1,
	}
}

var tokenRe = regexp.MustCompile(`[A-Za-z0-9]+`)

// DeriveTeamName builds a short slug from the first alphanumeric tokens of
// a mission description, e.g. "Fix the login bug" -> "fix-the-login-bug".
func DeriveTeamName(description string) string {
	tokens := tokenRe.FindAllString(description, -1)
	const maxTokens = 4
	if len(tokens) > maxTokens {
		tokens = tokens[:maxTokens]
	}
	for i, t := range tokens {
		tokens[i] = strings.ToLower(t)
	}
	slug := strings.Join(tokens, "-")
	if slug == "" {
		slug = "mission"
	}
	return slug
}

// Transition moves the mission to next, rejecting any move that would
// regress the status lattice (planning -> running -> {completed|failed}).
// EndedAt is set iff next is terminal.
func (m *Mission) Transition(next types.MissionStatus) error {
	if !m.Status.CanTransition(next) {
		return fmt.Errorf("mission %s: illegal transition %s -> %s", m.MissionID, m.Status, next)
	}
	m.Status = next
	if next.Terminal() {
		m.EndedAt = nowRFC3339()
	}
	return nil
}

// Fail transitions the mission to failed with a reason, ignoring an
// already-terminal status (finalisation is idempotent).
func (m *Mission) Fail(reason string) {
	if m.Status.Terminal() {
		return
	}
	_ = m.Transition(types.MissionFailed)
	m.FailureReason = reason
}

func nowRFC3339() string {
	return time.Now().UTC().Format(time.RFC3339)
}

// Store persists and loads Mission records under a state directory.
type Store struct {
	StateDir string
}

func NewStore(stateDir string) *Store { return &Store{StateDir: stateDir} }

// Save writes m atomically (temp+rename) to its mission file.
func (s *Store) Save(m *Mission) error {
	data, err := json.MarshalIndent(m, "", "  ")
	if err != nil {
		return fmt.Errorf("marshaling mission: %w", err)
	}
	dir := fileutil.MissionsDir(s.StateDir)
	name := m.MissionID + ".json"
	if err := fileutil.AtomicWrite(dir, name, data, 0644); err != nil {
		return fmt.Errorf("saving mission %s: %w", m.MissionID, err)
	}
	return nil
}

// Load reads one mission record by id.
func (s *Store) Load(missionID string) (*Mission, error) {
	data, err := os.ReadFile(fileutil.MissionPath(s.StateDir, missionID))
	if err != nil {
		return nil, err
	}
	var m Mission
	if err := json.Unmarshal(data, &m); err != nil {
		return nil, fmt.Errorf("parsing mission %s: %w", missionID, err)
	}
	return &m, nil
}

// IsResumable reports whether m is eligible for --resume: its status is
// running or paused, and at least one agent has not reached a terminal
// status.
func (m *Mission) IsResumable() bool {
	if m.Status != types.MissionRunning && m.Status != types.MissionPaused {
		return false
	}
	for _, a := range m.Agents {
		if !a.Status.Terminal() {
			return true
		}
	}
	return false
}

// IsStale reports whether a resumable mission has aged past staleAfter,
// measured from StartedAt.
func (m *Mission) IsStale(staleAfter time.Duration) bool {
	started, err := time.Parse(time.RFC3339, m.StartedAt)
	if err != nil {
		return false
	}
	return time.Since(started) > staleAfter
}

// LatestResumable scans all mission files and returns the most recently
// started one that IsResumable, or nil if none qualify.
func (s *Store) LatestResumable() (*Mission, error) {
	dir := fileutil.MissionsDir(s.StateDir)
	entries, err := os.ReadDir(dir)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, nil
		}
		return nil, err
	}

	var candidates []*Mission
	for _, e := range entries {
		if e.IsDir() || !strings.HasSuffix(e.Name(), ".json") {
			continue
		}
		id := strings.TrimSuffix(e.Name(), ".json")
		m, err := s.Load(id)
		if err != nil {
			continue
		}
		if m.IsResumable() {
			candidates = append(candidates, m)
		}
	}
	if len(candidates) == 0 {
		return nil, nil
	}
	sort.Slice(candidates, func(i, j int) bool { return candidates[i].StartedAt > candidates[j].StartedAt })
	return candidates[0], nil
}

// Latest returns the most recently started mission regardless of status,
// used by --cleanup-stale.
func (s *Store) Latest() (*Mission, error) {
	dir := fileutil.MissionsDir(s.StateDir)
	entries, err := os.ReadDir(dir)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, nil
		}
		return nil, err
	}
	var latest *Mission
	for _, e := range entries {
		if e.IsDir() || !strings.HasSuffix(e.Name(), ".json") {
			continue
		}
		id := strings.TrimSuffix(e.Name(), ".json")
		m, err := s.Load(id)
		if err != nil {
			continue
		}
		if latest == nil || m.StartedAt > latest.StartedAt {
			latest = m
		}
	}
	return latest, nil
}

// path is a small helper kept for symmetry with fileutil's accessors.
func (s *Store) path(missionID string) string {
	return filepath.Join(fileutil.MissionsDir(s.StateDir), missionID+".json")
}
