package supervisor

import (
	"fmt"
	"os"
	"path/filepath"
)

// sharedStateFiles are concatenated, in this order, into the
// [SHARED STATE]...[END SHARED STATE] block every task prompt is prefixed
// with, so later-phase agents see what earlier phases produced.
var sharedStateFiles = []string{"task_plan.md", "findings.md", "progress.md"}

// buildSharedState reads whichever of sharedStateFiles exist under workDir
// and wraps their concatenation in the shared-state delimiters. A task with
// no shared-state files yet gets an empty block, not an error.
func buildSharedState(workDir string) string {
	var body string
	for _, name := range sharedStateFiles {
		data, err := os.ReadFile(filepath.Join(workDir, name))
		if err != nil {
			continue
		}
		body += fmt.Sprintf("## %s\n\n%s\n\n", name, string(data))
	}
	return "[SHARED STATE]\n" + body + "[END SHARED STATE]"
}

// injectSharedState prefixes task with the current shared-state block.
func injectSharedState(workDir, task string) string {
	return buildSharedState(workDir) + "\n\n" + task
}
