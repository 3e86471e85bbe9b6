// Package engine starts the external IFC validation engine as a child process.
package engine

import (
	"context"
	"errors"
	"fmt"
	"os"
	"os/exec"
	"slices"
	"strconv"
	"sync"
	"time"

	"github.com/ifcvalidation/bff/internal/application/processing"
	"github.com/ifcvalidation/bff/internal/infrastructure/config"
	"go.uber.org/zap"
	"go.uber.org/zap/zapio"
)

// RequestIDEnv carries the request id to the engine process
const RequestIDEnv = "IFC_VALIDATION_REQUEST_ID"

// stderrTail is how much of the engine's stderr is kept
const stderrTail = 16 * 1024

// Ensure Runner implements EngineRunner
var _ processing.EngineRunner = (*Runner)(nil)

// Runner runs the engine command once per request. When the soft limit
// passes the process is interrupted; if it is still alive at the hard limit
// it is killed.
type Runner struct {
	command   string
	args      []string
	workDir   string
	softLimit time.Duration
	hardLimit time.Duration
	logger    *zap.Logger
}

// NewRunner creates a Runner from the engine and queue settings
func NewRunner(cfg config.EngineConfig, queueCfg config.QueueConfig, logger *zap.Logger) (*Runner, error) {
	if cfg.Command == "" {
		return nil, errors.New("engine command is required")
	}
	soft, hard := queueCfg.SoftTimeLimit, queueCfg.HardTimeLimit
	if hard > 0 && (soft <= 0 || soft > hard) {
		soft = hard
	}
	return &Runner{
		command:   cfg.Command,
		args:      slices.Clone(cfg.Args),
		workDir:   cfg.WorkDir,
		softLimit: soft,
		hardLimit: hard,
		logger:    logger,
	}, nil
}

// Run executes the engine with filePath as its last argument
func (r *Runner) Run(ctx context.Context, requestID int64, filePath string) (*processing.EngineResult, error) {
	runCtx, cancel := ctx, context.CancelFunc(func() {})
	if r.softLimit > 0 {
		runCtx, cancel = context.WithTimeout(ctx, r.softLimit)
	}
	defer cancel()

	args := append(slices.Clone(r.args), filePath)
	cmd := exec.CommandContext(runCtx, r.command, args...)
	cmd.Dir = r.workDir
	cmd.Env = append(os.Environ(), RequestIDEnv+"="+strconv.FormatInt(requestID, 10))
	cmd.Cancel = func() error {
		return cmd.Process.Signal(os.Interrupt)
	}
	if grace := r.hardLimit - r.softLimit; grace > 0 {
		cmd.WaitDelay = grace
	} else {
		cmd.WaitDelay = time.Second
	}

	stdout := &zapio.Writer{
		Log:   r.logger.With(zap.Int64("request_id", requestID), zap.String("stream", "stdout")),
		Level: zap.DebugLevel,
	}
	defer stdout.Close()
	stderr := newTailBuffer(stderrTail)
	cmd.Stdout = stdout
	cmd.Stderr = stderr

	r.logger.Debug("Starting validation engine",
		zap.Int64("request_id", requestID),
		zap.String("command", r.command),
		zap.Strings("args", args),
	)

	started := time.Now()
	err := cmd.Run()
	result := &processing.EngineResult{
		Duration: time.Since(started),
		Stderr:   stderr.String(),
	}
	if cmd.ProcessState == nil {
		return nil, fmt.Errorf("failed to start validation engine: %w", err)
	}
	result.ExitCode = cmd.ProcessState.ExitCode()
	if errors.Is(runCtx.Err(), context.DeadlineExceeded) {
		result.TimedOut = true
	}
	if err != nil && result.ExitCode == 0 {
		// killed after the grace period or interrupted without a status
		result.ExitCode = -1
	}
	return result, nil
}

// tailBuffer keeps the last limit bytes written to it
type tailBuffer struct {
	mu    sync.Mutex
	limit int
	buf   []byte
}

func newTailBuffer(limit int) *tailBuffer {
	return &tailBuffer{limit: limit}
}

func (b *tailBuffer) Write(p []byte) (int, error) {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.buf = append(b.buf, p...)
	if over := len(b.buf) - b.limit; over > 0 {
		b.buf = slices.Clone(b.buf[over:])
	}
	return len(p), nil
}

func (b *tailBuffer) String() string {
	b.mu.Lock()
	defer b.mu.Unlock()
	return string(b.buf)
}
