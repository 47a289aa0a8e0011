package jobs

import (
	"errors"

	"golang.org/x/sys/unix"
)

// Wait blocks until every stage of the job has terminated or one of them
// has stopped. It returns the status of the final stage, or 128+N for a
// job stopped by signal N. If any stage couldn't be waited on the error
// wraps ErrWaitFailure; the remaining stages are still collected.
func Wait(job *Job) (int, error) {
	var firstErr error
	for _, st := range job.Stages {
		for !st.Done() && st.State != StageStopped {
			if err := st.poll(unix.WUNTRACED); err != nil && firstErr == nil {
				firstErr = err
			}
		}

		if st.State == StageStopped {
			return st.Status, firstErr
		}
	}
	return job.Status(), firstErr
}

// Poll updates every stage of the job without blocking and reports whether
// the job has finished.
func Poll(job *Job) bool {
	for _, st := range job.Stages {
		_ = st.poll(unix.WNOHANG | unix.WUNTRACED | unix.WCONTINUED)
	}
	return job.Done()
}

// Continue resumes a stopped job by signalling its process group.
func Continue(job *Job) error {
	if job.Pgid <= 0 || job.Done() {
		return nil
	}
	err := unix.Kill(-job.Pgid, unix.SIGCONT)
	if err != nil && !errors.Is(err, unix.ESRCH) {
		return err
	}
	for _, st := range job.Stages {
		if st.State == StageStopped {
			st.State = StageRunning
		}
	}
	return nil
}
