package worker

import (
	"bufio"
	"context"
	"fmt"
	"os"
	"os/exec"
	"strings"
	"syscall"

	"github.com/creack/pty"
)

// runLLM invokes the LLM binary as an opaque child process: the prompt is
// piped on stdin and also written to a temp file passed as the final
// positional argument (so binaries that only read argv, like ones
// expecting `claude -p`, still work). stdout/stderr are captured through a
// pty so the child line-buffers instead of block-buffering, which is what
// lets the stream parser observe tags as they're emitted rather than only
// at EOF.
func runLLM(ctx context.Context, llmPath, model, prompt string, onLine func(string)) (exitCode int, err error) {
	promptFile, err := os.CreateTemp("", "swarm-prompt-*.txt")
	if err != nil {
		return 0, fmt.Errorf("creating prompt file: %w", err)
	}
	defer os.Remove(promptFile.Name())
	if _, err := promptFile.WriteString(prompt); err != nil {
		promptFile.Close()
		return 0, fmt.Errorf("writing prompt file: %w", err)
	}
	promptFile.Close()

	var args []string
	if model != "" {
		args = append(args, "--model", model)
	}
	args = append(args, promptFile.Name())

	cmd := exec.Command(llmPath, args...)
	cmd.Stdin = strings.NewReader(prompt)
	cmd.SysProcAttr = &syscall.SysProcAttr{Setpgid: true}

	ptmx, pts, err := pty.Open()
	if err != nil {
		return 0, fmt.Errorf("opening pty: %w", err)
	}
	defer ptmx.Close()
	cmd.Stdout = pts
	cmd.Stderr = pts

	if err := cmd.Start(); err != nil {
		pts.Close()
		return 0, fmt.Errorf("starting llm: %w", err)
	}
	pts.Close()

	done := make(chan error, 1)
	go func() { done <- cmd.Wait() }()

	lines := make(chan string)
	go func() {
		scanner := bufio.NewScanner(ptmx)
		scanner.Buffer(make([]byte, 0, 64*1024), 1<<20)
		for scanner.Scan() {
			lines <- scanner.Text()
		}
		close(lines)
	}()

	for {
		select {
		case <-ctx.Done():
			killGroup(cmd)
			<-done
			return 0, ctx.Err()
		case line, ok := <-lines:
			if !ok {
				werr := <-done
				return exitCodeOf(werr)
			}
			onLine(line)
		}
	}
}

func killGroup(cmd *exec.Cmd) {
	if cmd.Process == nil {
		return
	}
	if pgid, err := syscall.Getpgid(cmd.Process.Pid); err == nil {
		_ = syscall.Kill(-pgid, syscall.SIGKILL)
	} else {
		_ = cmd.Process.Kill()
	}
}

func exitCodeOf(err error) (int, error) {
	if err == nil {
		return 0, nil
	}
	if exitErr, ok := err.(*exec.ExitError); ok {
		return exitErr.ExitCode(), nil
	}
	return 0, err
}
