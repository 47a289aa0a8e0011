package core

import (
	"bufio"
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/abiosoft/readline"
	"github.com/josephlewis42/wsh/core/config"
	"github.com/josephlewis42/wsh/core/jobs"
	"github.com/josephlewis42/wsh/core/launcher"
	"github.com/josephlewis42/wsh/core/logger"
	"github.com/josephlewis42/wsh/core/shell"
	"github.com/sirupsen/logrus"
)

const (
	EnvPWD = "PWD"

	DefaultPrompt = "wsh> "
)

// Stdio holds the interpreter's standard files. Foreground and background
// pipelines inherit them directly.
type Stdio struct {
	Stdin  *os.File
	Stdout *os.File
	Stderr *os.File
}

// OSStdio is the process's own standard files.
func OSStdio() Stdio {
	return Stdio{
		Stdin:  os.Stdin,
		Stdout: os.Stdout,
		Stderr: os.Stderr,
	}
}

type lineReader interface {
	Readline() (string, error)
}

type Shell struct {
	Stdio
	// Readline is set when reading from a terminal.
	Readline *readline.Instance

	reader   lineReader
	term     *jobs.Terminal
	pool     *jobs.IDPool
	table    *jobs.Table
	launcher *launcher.Launcher
	color    *ColorPrinter
	log      *logrus.Entry

	lastRet int

	// Set to true to quit the shell
	Quit bool
}

// NewShell creates an interpreter reading from stdio.Stdin.
func NewShell(cfg *config.Configuration, stdio Stdio, log logrus.FieldLogger) (*Shell, error) {
	if log == nil {
		log = logger.Discard()
	}

	prompt := cfg.Prompt
	if prompt == "" {
		prompt = DefaultPrompt
	}

	pool := jobs.NewIDPool(cfg.MaxJobs)
	sh := &Shell{
		Stdio: stdio,
		pool:  pool,
		table: jobs.NewTable(pool, cfg.MaxJobs),
		launcher: &launcher.Launcher{
			SearchPath: cfg.SearchPath,
			Stdin:      stdio.Stdin,
			Stdout:     stdio.Stdout,
			Stderr:     stdio.Stderr,
			Log:        logger.WithComponent(log, "launcher"),
		},
		color: NewColorPrinter(cfg.Color, stdio.Stderr),
		log:   logger.WithComponent(log, "shell"),
	}

	if isTerminal(stdio.Stdin) {
		sh.term = jobs.NewTerminal(stdio.Stdin)
		sh.launcher.Terminal = sh.term
	}

	if isTerminal(stdio.Stdin) && isTerminal(stdio.Stdout) {
		rlCfg := &readline.Config{
			Prompt: prompt,
			Stdin:  readline.NewCancelableStdin(stdio.Stdin),
			Stdout: stdio.Stdout,
			Stderr: stdio.Stderr,
			FuncIsTerminal: func() bool {
				return true
			},
		}
		if err := rlCfg.Init(); err != nil {
			return nil, err
		}

		rl, err := readline.NewEx(rlCfg)
		if err != nil {
			return nil, err
		}
		sh.Readline = rl
		sh.reader = rl
	} else {
		sh.reader = &promptReader{
			prompt: prompt,
			out:    stdio.Stdout,
			in:     bufio.NewReader(stdio.Stdin),
		}
	}

	return sh, nil
}

func isTerminal(f *os.File) bool {
	return f != nil && readline.IsTerminal(int(f.Fd()))
}

// Run reads and executes lines until end of input or exit, returning the
// interpreter's exit status.
func (s *Shell) Run() int {
	for !s.Quit {
		line, err := s.reader.Readline()

		switch {
		case err == io.EOF:
			return 0 // Input closed, quit.

		case err == readline.ErrInterrupt:
			// Interrupt clears line.
			continue

		case err != nil:
			fmt.Fprintf(s.Stderr, "wsh: %v\n", err)
			s.log.WithError(err).Error("reading input")
			return 1
		}

		if err := s.RunLine(line); err != nil {
			fmt.Fprintf(s.Stderr, "wsh: %v\n", err)
			s.log.WithError(err).Error("fatal error")
			return 1
		}
	}
	return 0
}

// RunCommand runs a single line and returns its status.
func (s *Shell) RunCommand(line string) int {
	if err := s.RunLine(line); err != nil {
		fmt.Fprintf(s.Stderr, "wsh: %v\n", err)
		s.log.WithError(err).Error("fatal error")
		return 1
	}
	return s.lastRet
}

// RunLine executes one line of input. Finished background jobs are reaped
// first. A returned error is fatal to the interpreter.
func (s *Shell) RunLine(line string) error {
	s.Reap()

	pipeline, err := shell.Parse(line)
	switch {
	case err != nil:
		fmt.Fprintf(s.Stderr, "wsh: %v\n", err)
		s.lastRet = 2
		return nil
	case pipeline == nil:
		return nil // empty line
	}

	first := pipeline.Processes[0]
	if builtin, ok := AllBuiltins[first.Name]; ok {
		if len(pipeline.Processes) > 1 {
			fmt.Fprintf(s.Stderr, "wsh: %s: builtins can't be used in a pipeline\n", first.Name)
			s.lastRet = 1
			return nil
		}
		s.lastRet = builtin.Main(s, first.Args)
		return nil
	}

	return s.launch(pipeline)
}

// launch starts a pipeline. Only background jobs take a job ID up front;
// foreground jobs get one if they are stopped.
func (s *Shell) launch(pipeline *shell.Pipeline) error {
	job := pipeline.NewJob(0)
	if job.Background {
		id, err := s.pool.Allocate()
		if err != nil {
			return err
		}
		job.ID = id
	}

	if err := s.launcher.Launch(job); err != nil {
		job.Release()
		s.reclaimTerminal()
		if job.ID != 0 {
			_ = s.pool.Release(job.ID)
		}
		return err
	}

	log := logger.WithJob(s.log, job)
	if job.Background {
		err := s.table.Add(job)
		if err == nil {
			fmt.Fprintf(s.Stderr, "[%d] %d\n", job.ID, job.Pgid)
			log.Info("started background job")
			return nil
		}

		fmt.Fprintf(s.Stderr, "wsh: %v\n", err)
		log.WithError(err).Warn("waiting on job in the foreground")
	}

	s.wait(job)
	return nil
}

// wait blocks until a foreground job finishes or stops. A finished job gives
// back its ID; a stopped one moves to the background table.
func (s *Shell) wait(job *jobs.Job) int {
	log := logger.WithJob(s.log, job)

	for {
		status, err := jobs.Wait(job)
		s.reclaimTerminal()
		s.lastRet = status

		if job.Stopped() {
			if s.suspend(job) {
				return status
			}

			// Nowhere to track it, so it keeps the foreground.
			s.foreground(job)
			if err := jobs.Continue(job); err != nil {
				log.WithError(err).Warn("resuming job")
			}
			continue
		}

		if err != nil {
			fmt.Fprintf(s.Stderr, "wsh: %v\n", err)
			log.WithError(err).Warn("job status unknown")
		}
		if job.ID != 0 {
			if err := s.pool.Release(job.ID); err != nil {
				log.WithError(err).Error("releasing job ID")
			}
		}

		log.WithField("status", status).Debug("job finished")
		return status
	}
}

// suspend moves a stopped foreground job into the background table,
// giving it a job ID if it has none.
func (s *Shell) suspend(job *jobs.Job) bool {
	allocated := false
	if job.ID == 0 {
		id, err := s.pool.Allocate()
		if err != nil {
			fmt.Fprintf(s.Stderr, "wsh: %v\n", err)
			return false
		}
		job.ID, allocated = id, true
	}

	if err := s.table.Add(job); err != nil {
		fmt.Fprintf(s.Stderr, "wsh: %v\n", err)
		if allocated {
			_ = s.pool.Release(job.ID)
			job.ID = 0
		}
		return false
	}

	fmt.Fprintf(s.Stderr, "[%d] %s\t%s\n", job.ID, s.color.Sprintf(ColorBoldRed, "Stopped"), job)
	logger.WithJob(s.log, job).Info("job stopped")
	return true
}

// foreground hands the terminal to the job, if there is one.
func (s *Shell) foreground(job *jobs.Job) {
	if err := s.term.Foreground(job); err != nil {
		logger.WithJob(s.log, job).WithError(err).Warn("handing over terminal")
	}
}

// reclaimTerminal takes the terminal back after a foreground job.
func (s *Shell) reclaimTerminal() {
	if err := s.term.Reclaim(); err != nil {
		s.log.WithError(err).Warn("reclaiming terminal")
	}
}

// Reap collects finished background jobs and prints a notice for each.
func (s *Shell) Reap() {
	for _, notice := range s.table.Reap() {
		log := logger.WithJob(s.log, notice.Job)
		if notice.ReleaseErr != nil {
			log.WithError(notice.ReleaseErr).Error("releasing job ID")
		}

		var state string
		switch {
		case notice.Err != nil:
			state = s.color.Sprintf(ColorBoldRed, "Unknown")
			log.WithError(notice.Err).Warn("background job status unknown")
		case notice.Status == 0:
			state = s.color.Sprintf(ColorBoldGreen, "Done")
		default:
			state = s.color.Sprintf(ColorBoldRed, "Exit %d", notice.Status)
		}

		fmt.Fprintf(s.Stderr, "[%d] %s\t%s\n", notice.Job.ID, state, notice.Job)
		log.WithField("status", notice.Status).Info("reaped background job")
	}
}

// LastStatus is the status of the most recent foreground command.
func (s *Shell) LastStatus() int {
	return s.lastRet
}

// Jobs lists the background jobs in ID order.
func (s *Shell) Jobs() []*jobs.Job {
	return s.table.List()
}

// JobIDs exposes the job ID pool.
func (s *Shell) JobIDs() *jobs.IDPool {
	return s.pool
}

// Close releases the interpreter's resources. Background jobs are left
// running.
func (s *Shell) Close() error {
	err := s.table.Close()
	if s.Readline != nil {
		if rlErr := s.Readline.Close(); rlErr != nil {
			err = rlErr
		}
	}
	return err
}

// promptReader reads lines from a non-terminal, writing the prompt before
// each read.
type promptReader struct {
	prompt string
	out    io.Writer
	in     *bufio.Reader
}

func (p *promptReader) Readline() (string, error) {
	fmt.Fprint(p.out, p.prompt)

	line, err := p.in.ReadString('\n')
	if err == io.EOF && line != "" {
		// Run a final unterminated line before reporting the end.
		err = nil
	}
	if err != nil {
		return "", err
	}
	return strings.TrimSuffix(strings.TrimSuffix(line, "\n"), "\r"), nil
}
