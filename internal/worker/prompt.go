package worker

import (
	"fmt"
	"strings"
)

// ShimPreamble is prepended to every task prompt, instructing the LLM to
// emit side effects using the four bracketed tag pairs the stream parser
// understands. The LLM's only observable output is its textual
// completion, so this is the whole IPC surface between worker and model.
const ShimPreamble = `You are an autonomous agent collaborating with teammates through a
filesystem-backed mailbox. You have no other way to affect the world or
talk to teammates except the following tags, emitted literally in your
output:

  <<WRITE_FILE path="relative/path">>
  file contents
  <<END_WRITE>>

  <<RUN_COMMAND>>
  shell command
  <<END_COMMAND>>

  <<SEND_MESSAGE to="agent_name">>
  message body
  <<END_MESSAGE>>

  <<BROADCAST>>
  message body
  <<END_BROADCAST>>

Only complete tag pairs are acted on. Close every tag you open.`

// requiredSections are the six headings a task body must contain verbatim
// (case-insensitive) before it is considered well-formed.
var requiredSections = []string{
	"TASK",
	"EXPECTED OUTCOME",
	"REQUIRED TOOLS",
	"MUST DO",
	"MUST NOT DO",
	"CONTEXT",
}

// HasRequiredSections reports whether task already contains every
// required section heading.
func HasRequiredSections(task string) bool {
	upper := strings.ToUpper(task)
	for _, s := range requiredSections {
		if !strings.Contains(upper, s) {
			return false
		}
	}
	return true
}

// MissingSections returns the required sections task is missing, in order.
func MissingSections(task string) []string {
	upper := strings.ToUpper(task)
	var missing []string
	for _, s := range requiredSections {
		if !strings.Contains(upper, s) {
			missing = append(missing, s)
		}
	}
	return missing
}

// EnsureRequiredSections wraps task in the canonical template when any of
// the six required sections is missing; otherwise task is returned as-is.
func EnsureRequiredSections(task string) string {
	if HasRequiredSections(task) {
		return task
	}
	return fmt.Sprintf(`## TASK

%s

## EXPECTED OUTCOME

Complete the task above and report results to the team.

## REQUIRED TOOLS

Use whatever tools are necessary; prefer the smallest change that satisfies
the task.

## MUST DO

Verify your change before reporting it complete.

## MUST NOT DO

Do not perform destructive or irreversible actions without first checking
with a teammate via <<SEND_MESSAGE>>.

## CONTEXT

No additional context was supplied with this task.`, task)
}
