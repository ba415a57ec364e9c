package pipeline

import (
	"fmt"
	"os"
	"os/exec"
	"strings"
)

// Runner executes the external tools the pipeline drives (kind, kubectl,
// helm, docker). Everything that mutates cluster state goes through it, so
// tests can substitute a fake and assert on the exact invocations.
type Runner interface {
	// Run executes a command to completion and returns its combined output.
	Run(name string, args ...string) ([]byte, error)
	// RunAttached executes a command with stdout/stderr inherited, for
	// long-running operations whose progress the operator should see.
	RunAttached(name string, args ...string) error
	// Start launches a command in the background and returns a handle that
	// can kill it.
	Start(name string, args ...string) (Process, error)
}

// Process is a handle to a background command.
type Process interface {
	Kill() error
}

// ExecRunner is the production Runner backed by os/exec.
type ExecRunner struct{}

// NewExecRunner returns the default Runner.
func NewExecRunner() *ExecRunner {
	return &ExecRunner{}
}

func (r *ExecRunner) Run(name string, args ...string) ([]byte, error) {
	cmd := exec.Command(name, args...)
	output, err := cmd.CombinedOutput()
	if err != nil {
		return output, fmt.Errorf("%s %s: %w: %s", name, strings.Join(args, " "), err, strings.TrimSpace(string(output)))
	}
	return output, nil
}

func (r *ExecRunner) RunAttached(name string, args ...string) error {
	cmd := exec.Command(name, args...)
	cmd.Stdout = os.Stdout
	cmd.Stderr = os.Stderr
	if err := cmd.Run(); err != nil {
		return fmt.Errorf("%s %s: %w", name, strings.Join(args, " "), err)
	}
	return nil
}

func (r *ExecRunner) Start(name string, args ...string) (Process, error) {
	cmd := exec.Command(name, args...)
	if err := cmd.Start(); err != nil {
		return nil, fmt.Errorf("%s %s: %w", name, strings.Join(args, " "), err)
	}
	return &execProcess{cmd: cmd}, nil
}

type execProcess struct {
	cmd *exec.Cmd
}

func (p *execProcess) Kill() error {
	if p.cmd.Process == nil {
		return nil
	}
	err := p.cmd.Process.Kill()
	// Reap the child so it never lingers as a zombie.
	_ = p.cmd.Wait()
	return err
}
