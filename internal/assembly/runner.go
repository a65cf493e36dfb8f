package assembly

import (
	"bytes"
	"context"
	"errors"
	"io"
	"os/exec"

	"narrator/internal/services"
)

// CommandRunner executes an external tool. A failure must carry the exit
// status; the default runner returns *services.SubprocessError.
type CommandRunner func(ctx context.Context, name string, args ...string) error

var commandContext = exec.CommandContext

func defaultCommandRunner(ctx context.Context, name string, args ...string) error {
	cmd := commandContext(ctx, name, args...) //nolint:gosec
	var stderr bytes.Buffer
	cmd.Stdout = io.Discard
	cmd.Stderr = &stderr
	if err := cmd.Run(); err != nil {
		if ctx.Err() != nil {
			return ctx.Err()
		}
		exitCode := -1
		var exitErr *exec.ExitError
		if errors.As(err, &exitErr) {
			exitCode = exitErr.ExitCode()
		}
		return services.NewSubprocessError(name, args, exitCode, stderr.Bytes(), err)
	}
	return nil
}
