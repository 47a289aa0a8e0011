package core

import (
	"fmt"
	"os"
	"sort"
	"strconv"
	"strings"

	"github.com/josephlewis42/wsh/core/jobs"
	"github.com/pborman/getopt/v2"
)

// AllBuiltins holds a list of all registered shell builtins
var AllBuiltins = make(map[string]ShellBuiltin)

type ShellBuiltin interface {
	Main(s *Shell, args []string) int
}

type ShellBuiltinFunc func(s *Shell, args []string) int

func (f ShellBuiltinFunc) Main(s *Shell, args []string) int {
	return f(s, args)
}

var _ ShellBuiltin = (ShellBuiltinFunc)(nil)

// ListBuiltins returns the sorted names of all builtins.
func ListBuiltins() []string {
	var builtins []string
	for k := range AllBuiltins {
		builtins = append(builtins, k)
	}
	sort.Strings(builtins)
	return builtins
}

// Cd is the cd shell builtin
func Cd(s *Shell, args []string) int {
	if len(args) != 2 {
		fmt.Fprintln(s.Stderr, "Usage: cd <directory>")
		return 1
	}

	if err := os.Chdir(args[1]); err != nil {
		fmt.Fprintf(s.Stderr, "%s: %v\n", args[0], err)
		return 1
	}

	if wd, err := os.Getwd(); err == nil {
		os.Setenv(EnvPWD, wd)
	}
	return 0
}

// Exit quits the shell
func Exit(s *Shell, args []string) int {
	s.Quit = true
	return 0
}

// Jobs prints the background jobs.
func Jobs(s *Shell, args []string) int {
	opts := getopt.New()
	long := opts.Bool('l', "show process group IDs and states")
	helpOpt := opts.BoolLong("help", 'h', "show help and exit")

	if err := opts.Getopt(args, nil); err != nil || *helpOpt || opts.NArgs() > 0 {
		w := s.Stderr
		if err != nil {
			fmt.Fprintln(w, err)
		}
		fmt.Fprintln(w, "Usage: jobs [-l]")
		fmt.Fprintln(w, "Display the background jobs in job ID order.")
		fmt.Fprintln(w)
		fmt.Fprintln(w, "Options:")
		opts.PrintOptions(w)
		if *helpOpt && err == nil {
			return 0
		}
		return 1
	}

	for _, job := range s.table.List() {
		if *long {
			fmt.Fprintf(s.Stdout, "%d: %d %s %s\n", job.ID, job.Pgid, job.State(), job)
		} else {
			fmt.Fprintf(s.Stdout, "%d: %s\n", job.ID, job)
		}
	}
	return 0
}

// Fg resumes a background job and waits for it.
func Fg(s *Shell, args []string) int {
	job, ok := s.lookupJob(args)
	if !ok {
		return 1
	}

	s.table.Remove(job.ID)
	job.Background = false
	fmt.Fprintln(s.Stdout, job)

	s.foreground(job)
	if err := jobs.Continue(job); err != nil {
		fmt.Fprintf(s.Stderr, "%s: %v\n", args[0], err)
	}
	return s.wait(job)
}

// Bg resumes a stopped background job without waiting for it.
func Bg(s *Shell, args []string) int {
	job, ok := s.lookupJob(args)
	if !ok {
		return 1
	}

	if !job.Stopped() {
		fmt.Fprintf(s.Stderr, "%s: job %d already in background\n", args[0], job.ID)
		return 0
	}

	if err := jobs.Continue(job); err != nil {
		fmt.Fprintf(s.Stderr, "%s: %v\n", args[0], err)
		return 1
	}
	job.Background = true
	fmt.Fprintf(s.Stdout, "[%d] %s\n", job.ID, job)
	return 0
}

// lookupJob resolves the single job ID argument of fg and bg, reporting
// problems to stderr.
func (s *Shell) lookupJob(args []string) (*jobs.Job, bool) {
	if len(args) != 2 {
		fmt.Fprintf(s.Stderr, "Usage: %s <id>\n", args[0])
		return nil, false
	}

	jobArg := strings.TrimPrefix(args[1], "%")
	id, err := strconv.Atoi(jobArg)
	if err != nil {
		fmt.Fprintf(s.Stderr, "%s: %s: no such job\n", args[0], args[1])
		return nil, false
	}

	job, ok := s.table.Get(id)
	if !ok {
		fmt.Fprintf(s.Stderr, "%s: %s: no such job\n", args[0], args[1])
		return nil, false
	}
	return job, true
}

func Help(s *Shell, args []string) int {
	w := s.Stdout
	fmt.Fprintln(w, "wsh, a job control shell")
	fmt.Fprintln(w, "These shell commands are defined internally.")
	fmt.Fprintln(w, "Everything else is run from the search path.")
	fmt.Fprintln(w)
	fmt.Fprintln(w, "Builtins:")
	fmt.Fprintln(w)
	fmt.Fprintln(w, strings.Join(ListBuiltins(), "\n"))

	return 0
}

func init() {
	AllBuiltins["cd"] = ShellBuiltinFunc(Cd)
	AllBuiltins["exit"] = ShellBuiltinFunc(Exit)
	AllBuiltins["jobs"] = ShellBuiltinFunc(Jobs)
	AllBuiltins["fg"] = ShellBuiltinFunc(Fg)
	AllBuiltins["bg"] = ShellBuiltinFunc(Bg)
	AllBuiltins["help"] = ShellBuiltinFunc(Help)
}
