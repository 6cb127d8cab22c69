// Package service wraps program compilation and execution in a form
// suitable for driving from a long-lived transport (HTTP, WebSocket)
// rather than a one-shot CLI invocation: output is streamed chunk by
// chunk as the program writes it, and input arrives asynchronously
// instead of being read from a pre-supplied stdin file.
package service

import (
	"io"
	"sync"

	"github.com/lookbusy1344/minilang/compiler"
	"github.com/lookbusy1344/minilang/diag"
	"github.com/lookbusy1344/minilang/vm"
)

// Status is the lifecycle state of a Runner.
type Status string

const (
	StatusRunning   Status = "running"
	StatusCompleted Status = "completed"
	StatusFailed    Status = "failed"
)

// OutputFunc receives each chunk written by a running program's write()
// statements, in order.
type OutputFunc func(chunk string)

// StatusFunc is called exactly once, when a run reaches a terminal
// state. runErr is nil on successful completion.
type StatusFunc func(status Status, runErr *diag.Error)

// outputSink adapts an OutputFunc to io.Writer, the role the teacher's
// EventWriter plays for its console stream.
type outputSink struct {
	fn OutputFunc
}

func (s *outputSink) Write(p []byte) (int, error) {
	if s.fn != nil {
		s.fn(string(p))
	}
	return len(p), nil
}

// Runner compiles a program once and executes it on a background
// goroutine, decoupling the VM's blocking run loop from whatever
// transport is driving it.
type Runner struct {
	mu      sync.Mutex
	prog    *compiler.Program
	machine *vm.VM
	status  Status
	runErr  *diag.Error

	stdinW *io.PipeWriter
	done   chan struct{}

	onStatus StatusFunc
}

// NewRunner compiles source and prepares a Runner. A compile error is
// returned immediately; no goroutine is started and Start must not be
// called.
func NewRunner(source, filename string, limits vm.Limits, onOutput OutputFunc, onStatus StatusFunc) (*Runner, *diag.Error) {
	prog, err := compiler.Compile(source, filename)
	if err != nil {
		return nil, err
	}

	stdinR, stdinW := io.Pipe()
	r := &Runner{
		prog:     prog,
		status:   StatusRunning,
		stdinW:   stdinW,
		onStatus: onStatus,
		done:     make(chan struct{}),
	}
	r.machine = vm.New(prog, stdinR, &outputSink{fn: onOutput}, limits)
	return r, nil
}

// Start runs the program on a new goroutine. Callers must not call it
// more than once per Runner.
func (r *Runner) Start() {
	go func() {
		runErr := r.machine.Run()

		r.mu.Lock()
		if runErr != nil {
			r.status = StatusFailed
			r.runErr = runErr
		} else {
			r.status = StatusCompleted
		}
		status := r.status
		r.mu.Unlock()

		// The VM has returned; close the input pipe so any later or
		// still-blocked ProvideInput call returns io.ErrClosedPipe.
		r.stdinW.Close()

		if r.onStatus != nil {
			r.onStatus(status, runErr)
		}
		close(r.done)
	}()
}

// ProvideInput feeds one line of input to a pending or future read()
// call. The input pipe has no buffer: the call blocks until the VM's
// input reader consumes the line, and returns io.ErrClosedPipe once
// the run has ended.
func (r *Runner) ProvideInput(line string) error {
	_, err := io.WriteString(r.stdinW, line+"\n")
	return err
}

// Status returns the run's current lifecycle state and, once terminal
// and failed, the fault that ended it.
func (r *Runner) Status() (Status, *diag.Error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.status, r.runErr
}

// Wait blocks until the run reaches a terminal state.
func (r *Runner) Wait() {
	<-r.done
}

// Stats exposes the VM's execution statistics. Nothing is counted
// unless Enabled is set before Start; the run goroutine updates the
// fields without locking.
func (r *Runner) Stats() *vm.Statistics {
	return r.machine.Stats
}
