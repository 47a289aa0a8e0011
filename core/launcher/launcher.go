// Package launcher starts the processes of a pipeline, wiring stages
// together with pipes and placing them in a shared process group.
package launcher

import (
	"errors"
	"fmt"
	"io"
	"os"
	"syscall"

	"github.com/josephlewis42/wsh/core/jobs"
	"github.com/sirupsen/logrus"
)

const (
	// StatusNotFound is the stage status when the program doesn't exist.
	StatusNotFound = 127
	// StatusCannotExec is the stage status when the program can't be run.
	StatusCannotExec = 126
)

// ErrLaunchFailure is returned when a pipe or process couldn't be created.
// The pipeline is left partially started and the caller should give up.
var ErrLaunchFailure = errors.New("launch failed")

// Launcher starts jobs.
type Launcher struct {
	// SearchPath lists the directories searched for executables.
	SearchPath []string

	// Standard files handed to the pipeline's outer ends.
	Stdin  *os.File
	Stdout *os.File
	Stderr *os.File

	// Errors is where stage-local failures are reported, Stderr if nil.
	Errors io.Writer

	// Terminal, if set, is handed to the process group of foreground jobs.
	Terminal *jobs.Terminal

	Log logrus.FieldLogger
}

func (l *Launcher) errWriter() io.Writer {
	if l.Errors != nil {
		return l.Errors
	}
	return l.Stderr
}

func (l *Launcher) log() logrus.FieldLogger {
	if l.Log != nil {
		return l.Log
	}
	return logrus.StandardLogger()
}

// Launch starts every stage of the job and records the handles on it. On
// return the parent holds none of the pipes it created.
func (l *Launcher) Launch(job *jobs.Job) error {
	n := len(job.Processes)
	if n == 0 {
		return jobs.ErrEmptyCommand
	}

	job.Stages = make([]*jobs.Stage, 0, n)
	pgid := 0

	// Read end of the previous stage's output pipe.
	var upstream *os.File
	for i, proc := range job.Processes {
		stdin := l.Stdin
		if upstream != nil {
			stdin = upstream
		}

		stdout := l.Stdout
		var downstream, pipeWriter *os.File
		if i < n-1 {
			r, w, err := os.Pipe()
			if err != nil {
				closeFiles(upstream)
				return fmt.Errorf("%w: pipe: %v", ErrLaunchFailure, err)
			}
			downstream, pipeWriter, stdout = r, w, w
		}

		stage, err := l.spawnStage(proc, stdin, stdout, pgid, !job.Background)

		// The child has its own copies now.
		closeFiles(upstream, pipeWriter)
		upstream = downstream

		if err != nil {
			closeFiles(upstream)
			job.Pgid = pgid
			return err
		}

		if pgid == 0 && stage.Pid > 0 {
			pgid = stage.Pid
		}
		job.Stages = append(job.Stages, stage)
	}

	job.Pgid = pgid
	l.log().WithFields(logrus.Fields{
		"job_id":     job.ID,
		"pgid":       job.Pgid,
		"pids":       job.Pids(),
		"background": job.Background,
	}).Debug("launched job")
	return nil
}

// spawnStage starts one process reading stdin and writing stdout. A pgid
// of 0 puts the process in a new group of its own, which takes over the
// terminal if the job runs in the foreground.
func (l *Launcher) spawnStage(p *jobs.Process, stdin, stdout *os.File, pgid int, foreground bool) (*jobs.Stage, error) {
	path, err := LookPath(l.SearchPath, p.Name)
	if err != nil {
		return l.failedStage(p, err), nil
	}

	proc, err := os.StartProcess(path, p.Args, &os.ProcAttr{
		Files: []*os.File{stdin, stdout, l.Stderr},
		Sys:   l.sysProcAttr(pgid, foreground),
	})
	switch {
	case err == nil:
		return jobs.NewStage(p, proc), nil
	case isExecError(err):
		return l.failedStage(p, err), nil
	default:
		return nil, fmt.Errorf("%w: %s: %v", ErrLaunchFailure, p.Name, err)
	}
}

func (l *Launcher) sysProcAttr(pgid int, foreground bool) *syscall.SysProcAttr {
	sys := &syscall.SysProcAttr{
		Setpgid: true,
		Pgid:    pgid,
	}
	if pgid == 0 && foreground && l.Terminal != nil {
		// The child sets the terminal's group before exec; Ctty is the
		// descriptor as numbered in this process.
		sys.Foreground = true
		sys.Ctty = l.Terminal.Fd()
	}
	return sys
}

func (l *Launcher) failedStage(p *jobs.Process, err error) *jobs.Stage {
	status := StatusCannotExec
	msg := err.Error()
	var pathErr *os.PathError
	switch {
	case errors.Is(err, ErrNotFound):
		status = StatusNotFound
		msg = "command not found"
	case errors.Is(err, os.ErrNotExist):
		status = StatusNotFound
		msg = "No such file or directory"
	case errors.Is(err, os.ErrPermission):
		msg = "Permission denied"
	case errors.As(err, &pathErr):
		msg = pathErr.Err.Error()
	}

	fmt.Fprintf(l.errWriter(), "wsh: %s: %s\n", p.Name, msg)
	l.log().WithFields(logrus.Fields{
		"command": p.Name,
		"status":  status,
	}).WithError(err).Info("exec failed")

	return jobs.NewFailedStage(p, status, err)
}

// isExecError reports whether err came from replacing the program image
// rather than from creating the process.
func isExecError(err error) bool {
	var errno syscall.Errno
	if !errors.As(err, &errno) {
		return false
	}

	switch errno {
	case syscall.ENOENT, syscall.EACCES, syscall.EPERM, syscall.ENOEXEC,
		syscall.EISDIR, syscall.ENOTDIR, syscall.ELOOP, syscall.ENAMETOOLONG,
		syscall.ETXTBSY:
		return true
	default:
		return false
	}
}

func closeFiles(files ...*os.File) {
	for _, f := range files {
		if f != nil {
			_ = f.Close()
		}
	}
}
