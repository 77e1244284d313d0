package migrate

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"os/exec"
	"strings"
)

// Runner applies schema migrations. The entrypoint does not care whether
// that happens in-process or by delegating to an external tool.
type Runner interface {
	Run(ctx context.Context) error
}

// CommandRunner delegates to an externally supplied migration command, the
// way the original deployment invoked its migration tool. The command's
// output goes straight to the container log.
type CommandRunner struct {
	argv []string
	log  *slog.Logger
}

func NewCommandRunner(argv []string, log *slog.Logger) (*CommandRunner, error) {
	if len(argv) == 0 {
		return nil, fmt.Errorf("migration command must not be empty")
	}
	if log == nil {
		log = slog.Default()
	}
	return &CommandRunner{argv: argv, log: log}, nil
}

func (r *CommandRunner) Run(ctx context.Context) error {
	r.log.Info("running migration command", "command", strings.Join(r.argv, " "))

	cmd := exec.CommandContext(ctx, r.argv[0], r.argv[1:]...)
	cmd.Stdout = os.Stdout
	cmd.Stderr = os.Stderr
	if err := cmd.Run(); err != nil {
		return fmt.Errorf("migration command %s: %w", r.argv[0], err)
	}
	return nil
}
