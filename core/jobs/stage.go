package jobs

import (
	"errors"
	"fmt"
	"os"

	"golang.org/x/sys/unix"
)

// ErrWaitFailure is returned when the OS refuses to report a stage's status.
var ErrWaitFailure = errors.New("wait failed")

// StageState is the lifecycle state of a pipeline stage.
type StageState int

const (
	// StageRunning is a started process that hasn't been reaped.
	StageRunning StageState = iota
	// StageStopped is a started process that was stopped by a signal.
	StageStopped
	// StageExited is a process that terminated and was reaped.
	StageExited
	// StageFailed is a stage whose program could not be executed.
	StageFailed
	// StageLost is a stage whose status could not be collected.
	StageLost
)

func (s StageState) String() string {
	switch s {
	case StageRunning:
		return "Running"
	case StageStopped:
		return "Stopped"
	case StageExited:
		return "Exited"
	case StageFailed:
		return "Failed"
	case StageLost:
		return "Lost"
	default:
		return fmt.Sprintf("StageState(%d)", int(s))
	}
}

// Stage is the runtime handle of one process in a job.
type Stage struct {
	Process *Process
	Pid     int
	State   StageState
	// Status is the exit status once the stage is done, 128+N for a process
	// killed or stopped by signal N.
	Status int
	// Err holds the exec or wait failure, if any.
	Err error

	handle *os.Process
}

// NewStage wraps a started process.
func NewStage(p *Process, proc *os.Process) *Stage {
	return &Stage{
		Process: p,
		Pid:     proc.Pid,
		State:   StageRunning,
		handle:  proc,
	}
}

// NewFailedStage records a stage whose program never ran.
func NewFailedStage(p *Process, status int, err error) *Stage {
	return &Stage{
		Process: p,
		State:   StageFailed,
		Status:  status,
		Err:     err,
	}
}

// Done is true once no further status can be collected for the stage.
func (st *Stage) Done() bool {
	switch st.State {
	case StageExited, StageFailed, StageLost:
		return true
	default:
		return false
	}
}

// poll collects the stage's status with the given wait4 options. With
// WNOHANG it returns immediately if nothing changed.
func (st *Stage) poll(options int) error {
	if st.Done() {
		return nil
	}

	var ws unix.WaitStatus
	for {
		pid, err := unix.Wait4(st.Pid, &ws, options, nil)
		switch {
		case err == unix.EINTR:
			continue
		case err != nil:
			st.State = StageLost
			st.Status = 1
			st.Err = fmt.Errorf("%w: pid %d: %v", ErrWaitFailure, st.Pid, err)
			st.release()
			return st.Err
		case pid == 0:
			return nil
		}
		st.update(ws)
		return nil
	}
}

func (st *Stage) update(ws unix.WaitStatus) {
	switch {
	case ws.Exited():
		st.finish(ws.ExitStatus())
	case ws.Signaled():
		st.finish(128 + int(ws.Signal()))
	case ws.Stopped():
		st.State = StageStopped
		st.Status = 128 + int(ws.StopSignal())
	case ws.Continued():
		st.State = StageRunning
	}
}

func (st *Stage) finish(status int) {
	st.State = StageExited
	st.Status = status
	st.release()
}

// release drops the OS handle; the process itself is left alone.
func (st *Stage) release() {
	if st.handle != nil {
		_ = st.handle.Release()
		st.handle = nil
	}
}
