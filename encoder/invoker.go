package encoder

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"os/exec"
	"time"

	"pixscale/logger"
	"pixscale/models"
)

// Invoker runs one conversion job as a child process
type Invoker struct {
	templates map[string]Template
}

// Invoke runs the converter for desc and blocks until the child exits.
// Exit status zero is a success; anything else is a failure carrying the
// exit code and the combined stdout/stderr of the child.
func (inv *Invoker) Invoke(ctx context.Context, desc models.JobDescriptor) models.JobOutcome {
	start := time.Now()
	outcome := models.JobOutcome{Descriptor: desc}

	t, ok := inv.templates[normalizeType(desc.FileType)]
	if !ok {
		outcome.Status = models.StatusFailure
		outcome.ExitCode = -1
		outcome.Output = fmt.Sprintf("no converter resolved for file type %q", desc.FileType)
		return outcome
	}

	args := t.Args(desc.SourcePath, desc.TargetSize, desc.DestinationPath)
	cmd := exec.CommandContext(ctx, t.Binary(), args...)
	cmd.Stdin = nil

	var out bytes.Buffer
	cmd.Stdout = &out
	cmd.Stderr = &out

	logger.Debugf("running %s %v", t.Binary(), args)
	err := cmd.Run()
	outcome.Duration = time.Since(start)

	if err == nil {
		outcome.Status = models.StatusSuccess
		return outcome
	}

	outcome.Status = models.StatusFailure
	outcome.Output = out.String()

	var exitErr *exec.ExitError
	if errors.As(err, &exitErr) {
		outcome.ExitCode = exitErr.ExitCode()
		if ctx.Err() != nil {
			outcome.Output += fmt.Sprintf("\n%v", ctx.Err())
		}
		return outcome
	}

	// the child never started (or could not be waited on)
	outcome.ExitCode = -1
	if outcome.Output != "" {
		outcome.Output += "\n"
	}
	outcome.Output += err.Error()
	return outcome
}
