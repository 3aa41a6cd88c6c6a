package stream

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"os/exec"
	"strings"
	"sync"
	"sync/atomic"

	"github.com/google/uuid"

	"github.com/dshills/quickpick/internal/logging"
)

const defaultChunkSize = 64 * 1024

var (
	// ErrNoExecutable is returned by Start when the command names no executable.
	ErrNoExecutable = errors.New("stream: no executable given")
	// ErrKilled is returned by Wait when the process was stopped via Kill.
	ErrKilled = errors.New("stream: process killed")
)

// StderrError reports stderr output from a process. Any stderr output fails
// the whole operation, regardless of exit status.
type StderrError struct {
	Command string // executable name
	Output  string // complete captured stderr
}

// Error returns a single-line message built from the first non-blank stderr line.
func (e *StderrError) Error() string {
	return fmt.Sprintf("stream: %s: %s", e.Command, firstLine(e.Output))
}

func firstLine(s string) string {
	for _, line := range strings.Split(s, "\n") {
		if t := strings.TrimSpace(line); t != "" {
			return t
		}
	}
	return "(no output)"
}

// Command describes a process to spawn.
type Command struct {
	Executable string
	Args       []string
	Dir        string   // working directory; empty means inherit
	Env        []string // KEY=VALUE pairs appended to the parent environment
}

// State is the lifecycle phase of a spawned process.
type State int32

const (
	StateRunning State = iota
	StateExited
	StateKilled
)

func (s State) String() string {
	switch s {
	case StateRunning:
		return "running"
	case StateExited:
		return "exited"
	case StateKilled:
		return "killed"
	default:
		return "unknown"
	}
}

// Handle is a running process whose stdout is being delivered in chunks.
// All methods are safe for concurrent use.
type Handle struct {
	id  string
	pid int
	cmd *exec.Cmd
	ctx context.Context

	stdout io.ReadCloser
	stderr io.ReadCloser

	deliverMu sync.Mutex // serializes onChunk and gates it against Kill
	killed    bool

	state    atomic.Int32
	exitCode atomic.Int32
	readers  sync.WaitGroup
	done     chan struct{}
	waitErr  error // set before done closes

	stderrBuf bytes.Buffer // written by reader goroutine, read after done

	closeOnce sync.Once
}

// Start spawns the command and streams its stdout to onChunk. Chunks arrive
// in read order from a single goroutine; the byte slice is only valid for the
// duration of the callback. Stderr is captured in full and surfaced through
// Wait. Cancelling ctx kills the process.
func Start(ctx context.Context, cmd Command, onChunk func([]byte)) (*Handle, error) {
	if cmd.Executable == "" {
		return nil, ErrNoExecutable
	}
	if ctx == nil {
		ctx = context.Background()
	}

	c := exec.CommandContext(ctx, cmd.Executable, cmd.Args...)
	c.Dir = cmd.Dir
	if len(cmd.Env) > 0 {
		c.Env = append(os.Environ(), cmd.Env...)
	}

	stdout, err := c.StdoutPipe()
	if err != nil {
		return nil, fmt.Errorf("stream: stdout pipe: %w", err)
	}
	stderr, err := c.StderrPipe()
	if err != nil {
		stdout.Close()
		return nil, fmt.Errorf("stream: stderr pipe: %w", err)
	}
	if err := c.Start(); err != nil {
		stdout.Close()
		stderr.Close()
		return nil, fmt.Errorf("stream: start %s: %w", cmd.Executable, err)
	}

	h := &Handle{
		id:     uuid.New().String(),
		pid:    c.Process.Pid,
		cmd:    c,
		ctx:    ctx,
		stdout: stdout,
		stderr: stderr,
		done:   make(chan struct{}),
	}
	h.state.Store(int32(StateRunning))
	h.exitCode.Store(-1)

	logging.Default().WithComponent("stream").Debug("started %s pid=%d id=%s", cmd.Executable, h.pid, h.id)

	h.readers.Add(2)
	go h.readStdout(onChunk)
	go h.readStderr()
	go h.waitLoop()

	return h, nil
}

// ID returns a unique identifier for this run.
func (h *Handle) ID() string { return h.id }

// PID returns the OS process ID.
func (h *Handle) PID() int { return h.pid }

// State returns the current lifecycle phase.
func (h *Handle) State() State { return State(h.state.Load()) }

// ExitCode returns the process exit code, or -1 before exit or after a kill.
func (h *Handle) ExitCode() int { return int(h.exitCode.Load()) }

// Done returns a channel closed once the process has exited and all output
// has been drained.
func (h *Handle) Done() <-chan struct{} { return h.done }

func (h *Handle) readStdout(onChunk func([]byte)) {
	defer h.readers.Done()
	buf := make([]byte, defaultChunkSize)
	for {
		n, err := h.stdout.Read(buf)
		if n > 0 {
			h.deliver(onChunk, buf[:n])
		}
		if err != nil {
			return
		}
	}
}

func (h *Handle) deliver(onChunk func([]byte), chunk []byte) {
	h.deliverMu.Lock()
	defer h.deliverMu.Unlock()
	if h.killed || onChunk == nil {
		return
	}
	onChunk(chunk)
}

func (h *Handle) readStderr() {
	defer h.readers.Done()
	io.Copy(&h.stderrBuf, h.stderr)
}

func (h *Handle) waitLoop() {
	h.readers.Wait()
	err := h.cmd.Wait()

	h.deliverMu.Lock()
	killed := h.killed
	h.deliverMu.Unlock()

	if killed {
		h.state.Store(int32(StateKilled))
		h.exitCode.Store(-1)
		h.waitErr = ErrKilled
	} else {
		h.state.Store(int32(StateExited))
		h.waitErr = h.classify(err)
	}
	logging.Default().WithComponent("stream").Debug("finished pid=%d id=%s state=%s", h.pid, h.id, h.State())
	close(h.done)
}

// classify maps the raw wait result to the stream error policy: stderr output
// fails the run, a bare non-zero exit does not.
func (h *Handle) classify(waitErr error) error {
	var exitErr *exec.ExitError
	switch {
	case waitErr == nil:
		h.exitCode.Store(0)
	case errors.As(waitErr, &exitErr):
		h.exitCode.Store(int32(exitErr.ExitCode()))
	default:
		h.exitCode.Store(-1)
		return fmt.Errorf("stream: wait %s: %w", h.cmd.Path, waitErr)
	}
	if h.ctx.Err() != nil {
		return h.ctx.Err()
	}
	if out := h.stderrBuf.String(); strings.TrimSpace(out) != "" {
		return &StderrError{Command: h.cmd.Path, Output: out}
	}
	return nil
}

// Wait blocks until the process has exited and output is drained, then
// returns the run's outcome: nil on success (including non-zero exit with a
// silent stderr), a StderrError when stderr produced output, ErrKilled after
// a deliberate Kill, or the context error after cancellation.
func (h *Handle) Wait() error {
	<-h.done
	return h.waitErr
}

// Kill stops the process and closes its stdout. Once Kill returns, no further
// chunk callbacks are made for this handle. Killing an already-finished
// process is a no-op.
func (h *Handle) Kill() error {
	h.deliverMu.Lock()
	h.killed = true
	h.deliverMu.Unlock()

	h.stdout.Close()
	if err := h.cmd.Process.Kill(); err != nil && !errors.Is(err, os.ErrProcessDone) {
		return fmt.Errorf("stream: kill pid=%d: %w", h.pid, err)
	}
	return nil
}

// Close releases the handle's pipes without killing the process. It is
// idempotent and safe to call after Kill or Wait.
func (h *Handle) Close() error {
	h.closeOnce.Do(func() {
		h.stdout.Close()
		h.stderr.Close()
	})
	return nil
}
