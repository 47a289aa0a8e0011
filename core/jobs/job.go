// Package jobs tracks the jobs started by the interpreter: their identity,
// the state of each pipeline stage and the table of background jobs.
package jobs

import (
	"errors"
	"strings"
)

// ErrEmptyCommand is returned when a process is built from no words.
var ErrEmptyCommand = errors.New("empty command")

// Process is a single stage of a pipeline.
type Process struct {
	// Name of the executable, the same as Args[0].
	Name string
	// Args holds the argument vector including the command name.
	Args []string
}

// NewProcess creates a process from its argument vector. The slice is
// copied so the process owns its arguments.
func NewProcess(argv []string) (*Process, error) {
	if len(argv) == 0 || argv[0] == "" {
		return nil, ErrEmptyCommand
	}

	args := make([]string, len(argv))
	copy(args, argv)

	return &Process{
		Name: args[0],
		Args: args,
	}, nil
}

func (p *Process) String() string {
	return strings.Join(p.Args, " ")
}

// Job is one pipeline launched as a unit.
type Job struct {
	ID         int
	Pgid       int
	Background bool
	Processes  []*Process

	// Stages holds the runtime handles of the processes, populated at launch
	// in the same order as Processes.
	Stages []*Stage
}

// NewJob creates a job with the given ID.
func NewJob(id int, processes []*Process, background bool) *Job {
	return &Job{
		ID:         id,
		Background: background,
		Processes:  processes,
	}
}

// Piping is true if the job has more than one stage.
func (j *Job) Piping() bool {
	return len(j.Processes) > 1
}

// String returns the reconstructed command line for display.
func (j *Job) String() string {
	stages := make([]string, len(j.Processes))
	for i, p := range j.Processes {
		stages[i] = p.String()
	}

	out := strings.Join(stages, " | ")
	if j.Background {
		out += " &"
	}
	return out
}

// Done is true once every stage has terminated or can no longer be waited on.
func (j *Job) Done() bool {
	for _, st := range j.Stages {
		if !st.Done() {
			return false
		}
	}
	return true
}

// Stopped is true if any live stage has been stopped.
func (j *Job) Stopped() bool {
	for _, st := range j.Stages {
		if st.State == StageStopped {
			return true
		}
	}
	return false
}

// State summarizes the job for display.
func (j *Job) State() string {
	switch {
	case j.Done():
		return "Done"
	case j.Stopped():
		return "Stopped"
	default:
		return "Running"
	}
}

// Status is the reported status of the job, the status of the final stage.
func (j *Job) Status() int {
	if len(j.Stages) == 0 {
		return 0
	}
	return j.Stages[len(j.Stages)-1].Status
}

// Err returns the first wait failure of the job's stages, if any.
func (j *Job) Err() error {
	for _, st := range j.Stages {
		if st.State == StageLost {
			return st.Err
		}
	}
	return nil
}

// Pids returns the process IDs of the stages that were started.
func (j *Job) Pids() []int {
	var out []int
	for _, st := range j.Stages {
		if st.Pid > 0 {
			out = append(out, st.Pid)
		}
	}
	return out
}

// Release frees the OS handles of every stage without waiting on them.
func (j *Job) Release() {
	for _, st := range j.Stages {
		st.release()
	}
}
