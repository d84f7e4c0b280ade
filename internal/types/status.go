package types

// AgentStatus is the lifecycle state of one AgentRecord, owned exclusively
// by the supervisor kernel.
type AgentStatus string

const (
	StatusPending   AgentStatus = "pending"
	StatusRunning   AgentStatus = "running"
	StatusIdle      AgentStatus = "idle"
	StatusCompleted AgentStatus = "completed"
	StatusFailed    AgentStatus = "failed"
	StatusShutdown  AgentStatus = "shutdown"
)

// Terminal reports whether the status can no longer transition.
func (s AgentStatus) Terminal() bool {
	switch s {
	case StatusCompleted, StatusFailed, StatusShutdown:
		return true
	}
	return false
}

// StopMode classifies *why* an agent is stopping, and gates retry policy.
type StopMode string

const (
	StopNone                 StopMode = "none"
	StopGracefulShutdown     StopMode = "graceful_shutdown"
	StopWatchdogSoftShutdown StopMode = "watchdog_soft_shutdown"
	StopForceKill            StopMode = "force_kill"
	StopHardTimeout          StopMode = "hard_timeout"
)

// OperatorInitiated reports whether this stop mode was requested by an
// operator/hard-timeout rather than arising from organic failure — such
// stops are never retried.
func (m StopMode) OperatorInitiated() bool {
	switch m {
	case StopGracefulShutdown, StopForceKill, StopHardTimeout:
		return true
	}
	return false
}

// RoleMode is the scheduling regime an agent belongs to.
type RoleMode string

const (
	ModeParallel  RoleMode = "parallel"
	ModeSerial    RoleMode = "serial"
	ModeValidator RoleMode = "validator"
)

// MissionStatus is the durable top-level status of a Mission. It follows a
// monotonic lattice: planning -> running -> {completed | failed}, with an
// optional running <-> paused detour on resume.
type MissionStatus string

const (
	MissionPlanning  MissionStatus = "planning"
	MissionRunning   MissionStatus = "running"
	MissionPaused    MissionStatus = "paused"
	MissionCompleted MissionStatus = "completed"
	MissionFailed    MissionStatus = "failed"
)

func (s MissionStatus) Terminal() bool {
	return s == MissionCompleted || s == MissionFailed
}

// missionRank orders statuses for the monotonicity check; paused and
// running share a rank since resume may cycle between them.
var missionRank = map[MissionStatus]int{
	MissionPlanning:  0,
	MissionRunning:   1,
	MissionPaused:    1,
	MissionCompleted: 2,
	MissionFailed:    2,
}

// CanTransition reports whether moving from s to next respects the
// monotonic lattice (never regresses to a strictly lower rank, except the
// running<->paused detour which shares a rank).
func (s MissionStatus) CanTransition(next MissionStatus) bool {
	if s == next {
		return true
	}
	return missionRank[next] >= missionRank[s]
}

// FailureClass is the synthesized classification of an audited error event.
type FailureClass string

const (
	ClassConfig      FailureClass = "config_error"
	ClassTimeout     FailureClass = "timeout_error"
	ClassMailbox     FailureClass = "mailbox_error"
	ClassProcess     FailureClass = "process_error"
	ClassInterrupted FailureClass = "interrupted"
	ClassUnknown     FailureClass = "unknown_error"
)
