package toolrunner

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"
	"os/exec"
	"sync"
	"time"

	"shelf/internal/logging"
)

// waitDelay bounds how long Wait blocks on stream teardown after the
// process has been force-terminated.
const waitDelay = 5 * time.Second

// Outcome is the raw capture of one process run.
type Outcome struct {
	Stdout   []byte
	Stderr   []byte
	ExitCode int
}

// Executor abstracts command execution for testability.
type Executor interface {
	Run(ctx context.Context, binary string, args []string) (Outcome, error)
}

type commandExecutor struct {
	logger *slog.Logger
}

func newCommandExecutor(logger *slog.Logger) commandExecutor {
	if logger == nil {
		logger = logging.NewNop()
	}
	return commandExecutor{logger: logger}
}

// Run launches the binary with both output streams drained concurrently
// while waiting for exit. Capture is unbounded: a tool that floods either
// stream must not deadlock against a full pipe.
func (e commandExecutor) Run(ctx context.Context, binary string, args []string) (Outcome, error) {
	cmd := exec.CommandContext(ctx, binary, args...) //nolint:gosec
	cmd.WaitDelay = waitDelay
	cmd.Cancel = func() error {
		err := cmd.Process.Kill()
		if err != nil && !errors.Is(err, os.ErrProcessDone) {
			// The dominant outcome (no result) is already decided; a
			// failed kill only merits a log line.
			e.logger.Warn("terminate tool process",
				logging.String("binary", binary),
				logging.Error(err))
		}
		return err
	}

	stdout, err := cmd.StdoutPipe()
	if err != nil {
		return Outcome{}, fmt.Errorf("stdout pipe: %w", err)
	}
	stderr, err := cmd.StderrPipe()
	if err != nil {
		return Outcome{}, fmt.Errorf("stderr pipe: %w", err)
	}
	if err := cmd.Start(); err != nil {
		return Outcome{}, fmt.Errorf("start command: %w", err)
	}

	var outBuf, errBuf bytes.Buffer
	var wg sync.WaitGroup
	var copyErr error
	var once sync.Once

	drain := func(dst *bytes.Buffer, src io.Reader) {
		defer wg.Done()
		if _, err := io.Copy(dst, src); err != nil {
			once.Do(func() { copyErr = err })
		}
	}

	wg.Add(2)
	go drain(&outBuf, stdout)
	go drain(&errBuf, stderr)
	wg.Wait()

	waitErr := cmd.Wait()
	outcome := Outcome{
		Stdout:   outBuf.Bytes(),
		Stderr:   errBuf.Bytes(),
		ExitCode: cmd.ProcessState.ExitCode(),
	}

	if waitErr != nil {
		return outcome, waitErr
	}
	if copyErr != nil {
		return outcome, fmt.Errorf("drain output: %w", copyErr)
	}
	return outcome, nil
}
