package jobs

import (
	"os"
	"os/signal"
	"syscall"

	"golang.org/x/sys/unix"
)

// Terminal is the controlling terminal shared by the interpreter and its
// foreground jobs. A nil *Terminal is valid and does nothing.
type Terminal struct {
	file *os.File
	// Process group of the interpreter.
	pgid int
}

// NewTerminal wraps the interpreter's controlling terminal.
func NewTerminal(f *os.File) *Terminal {
	return &Terminal{
		file: f,
		pgid: unix.Getpgrp(),
	}
}

// Fd returns the terminal's descriptor in this process.
func (t *Terminal) Fd() int {
	return int(t.file.Fd())
}

// Foreground hands the terminal to the job's process group.
func (t *Terminal) Foreground(job *Job) error {
	if t == nil || job.Pgid <= 0 {
		return nil
	}
	return t.setForeground(job.Pgid)
}

// Reclaim makes the interpreter's process group the terminal's foreground
// group again.
func (t *Terminal) Reclaim() error {
	if t == nil {
		return nil
	}
	return t.setForeground(t.pgid)
}

func (t *Terminal) setForeground(pgid int) error {
	// A background group changing the foreground group gets SIGTTOU.
	signal.Ignore(syscall.SIGTTOU)
	defer signal.Reset(syscall.SIGTTOU)

	return unix.IoctlSetPointerInt(t.Fd(), unix.TIOCSPGRP, pgid)
}
