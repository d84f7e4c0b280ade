// Package audit implements the supervisor's append-only JSONL event log:
// one file per mission, one event per line, tolerant of malformed lines and
// never allowed to propagate a logging failure to its caller.
package audit

import (
	"bufio"
	"encoding/json"
	"os"
	"sort"
	"strings"
	"time"

	"github.com/swarmforge/swarmkit/internal/fileutil"
	"github.com/swarmforge/swarmkit/internal/types"
)

// Event names recognized by the classifier and summary/timeline queries.
const (
	EventSpawned           = "spawned"
	EventStatusChange      = "status_change"
	EventFileWrite         = "file_write"
	EventCommandExec       = "command_exec"
	EventMessageSent       = "message_sent"
	EventMessageReceived   = "message_received"
	EventShutdown          = "shutdown"
	EventError             = "error"
	EventWarning           = "warning"
)

// Record is one immutable line in the JSONL file.
type Record struct {
	Ts           float64                `json:"ts"`
	Agent        string                 `json:"agent"`
	Event        string                 `json:"event"`
	Detail       string                 `json:"detail"`
	Meta         map[string]interface{} `json:"meta,omitempty"`
	FailureClass types.FailureClass     `json:"failure_class,omitempty"`
}

// classifyPattern is one (substring, class) rule in the ordered matcher.
type classifyPattern struct {
	substr string
	class  types.FailureClass
}

// defaultPatterns is the built-in substring matcher. The ordered list is
// fixed; there is no hook for callers to register additional patterns.
var defaultPatterns = []classifyPattern{
	{"config", types.ClassConfig},
	{"invalid_subagent", types.ClassConfig},
	{"missing_", types.ClassConfig},
	{"timeout", types.ClassTimeout},
	{"watchdog", types.ClassTimeout},
	{"mailbox", types.ClassMailbox},
	{"inbox", types.ClassMailbox},
	{"process", types.ClassProcess},
	{"exit code", types.ClassProcess},
	{"spawn", types.ClassProcess},
	{"interrupt", types.ClassInterrupted},
	{"sigint", types.ClassInterrupted},
	{"sigterm", types.ClassInterrupted},
}

// Classify synthesizes a FailureClass from detail by ordered substring
// match, used whenever an error event is recorded without one already set.
func Classify(detail string) types.FailureClass {
	lower := strings.ToLower(detail)
	for _, p := range defaultPatterns {
		if strings.Contains(lower, p.substr) {
			return p.class
		}
	}
	return types.ClassUnknown
}

// Log appends events for one mission to its JSONL file.
type Log struct {
	path string
}

// Open returns a Log bound to missionID under stateDir. The file is opened
// in append mode on every Record call, not held open, so a crash mid-write
// never corrupts prior lines.
func Open(stateDir, missionID string) *Log {
	return &Log{path: fileutil.AuditPath(stateDir, missionID)}
}

// Record appends one event. Detail is classified automatically when the
// event is "error" and no class was supplied. Append failures are
// swallowed — audit logging must never crash the caller.
func (l *Log) Record(agent, event, detail string, meta map[string]interface{}) {
	rec := Record{
		Ts:     nowUnix(),
		Agent:  agent,
		Event:  event,
		Detail: detail,
		Meta:   meta,
	}
	if event == EventError {
		rec.FailureClass = Classify(detail)
	}
	l.append(rec)
}

// RecordError is Record with an explicit failure class, bypassing the
// substring classifier when the caller already knows the cause.
func (l *Log) RecordError(agent, detail string, class types.FailureClass, meta map[string]interface{}) {
	l.append(Record{Ts: nowUnix(), Agent: agent, Event: EventError, Detail: detail, FailureClass: class, Meta: meta})
}

func (l *Log) append(rec Record) {
	if err := fileutil.EnsureDir(dirOf(l.path)); err != nil {
		return
	}
	data, err := json.Marshal(rec)
	if err != nil {
		return
	}
	f, err := os.OpenFile(l.path, os.O_APPEND|os.O_CREATE|os.O_WRONLY, 0644)
	if err != nil {
		return
	}
	defer f.Close()
	data = append(data, '\n')
	_, _ = f.Write(data)
}

// ReadAll scans the whole log, skipping malformed lines.
func (l *Log) ReadAll() ([]Record, error) {
	return readAll(l.path)
}

// ReadForAgent filters ReadAll to one agent's canonical id.
func (l *Log) ReadForAgent(canonicalID string) ([]Record, error) {
	all, err := readAll(l.path)
	if err != nil {
		return nil, err
	}
	var out []Record
	for _, r := range all {
		if strings.EqualFold(r.Agent, canonicalID) {
			out = append(out, r)
		}
	}
	return out, nil
}

func readAll(path string) ([]Record, error) {
	f, err := os.Open(path)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, nil
		}
		return nil, err
	}
	defer f.Close()

	var out []Record
	sc := bufio.NewScanner(f)
	sc.Buffer(make([]byte, 0, 64*1024), 8*1024*1024)
	for sc.Scan() {
		line := sc.Bytes()
		if len(strings.TrimSpace(string(line))) == 0 {
			continue
		}
		var rec Record
		if err := json.Unmarshal(line, &rec); err != nil {
			continue // malformed line, tolerated
		}
		out = append(out, rec)
	}
	return out, nil
}

func dirOf(path string) string {
	i := strings.LastIndexByte(path, '/')
	if i < 0 {
		return "."
	}
	return path[:i]
}

func nowUnix() float64 {
	return float64(time.Now().UnixNano()) / 1e9
}

// Summary aggregates per-agent and mission-wide counters for the reporter.
type Summary struct {
	TotalEvents    int
	Errors         int
	Warnings       int
	FailureClasses map[types.FailureClass]int
	FilesModified  map[string]bool
	PerAgent       map[string]*AgentCounters
}

// AgentCounters is the per-agent slice of a Summary.
type AgentCounters struct {
	Writes   int
	Commands int
	Sent     int
	Received int
}

// GetSummary computes totals and per-agent counters of writes/commands/
// messages, the error count, a failure-class histogram, and the distinct
// set of files modified across the mission.
func (l *Log) GetSummary() (Summary, error) {
	records, err := l.ReadAll()
	if err != nil {
		return Summary{}, err
	}
	s := Summary{
		FailureClasses: make(map[types.FailureClass]int),
		FilesModified:  make(map[string]bool),
		PerAgent:       make(map[string]*AgentCounters),
	}
	for _, r := range records {
		s.TotalEvents++
		ac, ok := s.PerAgent[r.Agent]
		if !ok {
			ac = &AgentCounters{}
			s.PerAgent[r.Agent] = ac
		}
		switch r.Event {
		case EventFileWrite:
			ac.Writes++
			if path, ok := r.Meta["path"].(string); ok {
				s.FilesModified[path] = true
			}
		case EventCommandExec:
			ac.Commands++
		case EventMessageSent:
			ac.Sent++
		case EventMessageReceived:
			ac.Received++
		case EventError:
			s.Errors++
			s.FailureClasses[r.FailureClass]++
		case EventWarning:
			s.Warnings++
		}
	}
	return s, nil
}

// TimelineEntry is one projected event for display.
type TimelineEntry struct {
	Ts     float64
	Agent  string
	Event  string
	Detail string
}

// GetTimeline returns the last limit events sorted by timestamp.
func (l *Log) GetTimeline(limit int) ([]TimelineEntry, error) {
	records, err := l.ReadAll()
	if err != nil {
		return nil, err
	}
	sort.Slice(records, func(i, j int) bool { return records[i].Ts < records[j].Ts })
	if limit > 0 && len(records) > limit {
		records = records[len(records)-limit:]
	}
	out := make([]TimelineEntry, len(records))
	for i, r := range records {
		out[i] = TimelineEntry{Ts: r.Ts, Agent: r.Agent, Event: r.Event, Detail: r.Detail}
	}
	return out, nil
}
