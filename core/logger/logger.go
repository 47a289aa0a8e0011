package logger

import (
	"io"
	"io/ioutil"

	"github.com/josephlewis42/wsh/core/config"
	"github.com/josephlewis42/wsh/core/jobs"
	"github.com/sirupsen/logrus"
)

// New creates a JSON logger writing to w at the given level.
func New(w io.Writer, level string) (*logrus.Logger, error) {
	lvl, err := logrus.ParseLevel(level)
	if err != nil {
		return nil, err
	}

	log := logrus.New()
	log.SetOutput(w)
	log.SetLevel(lvl)
	log.SetFormatter(&logrus.JSONFormatter{})
	return log, nil
}

// Discard returns a logger that drops everything.
func Discard() *logrus.Logger {
	log := logrus.New()
	log.SetOutput(ioutil.Discard)
	log.SetLevel(logrus.PanicLevel)
	return log
}

// FromConfig opens the configured application log. The returned closer must
// be closed when the logger is no longer used.
func FromConfig(cfg *config.Configuration) (*logrus.Logger, io.Closer, error) {
	if !cfg.HasAppLog() {
		return Discard(), ioutil.NopCloser(nil), nil
	}

	fd, err := cfg.OpenAppLog()
	if err != nil {
		return nil, nil, err
	}

	log, err := New(fd, cfg.LogLevel)
	if err != nil {
		fd.Close()
		return nil, nil, err
	}
	return log, fd, nil
}

// WithComponent returns a logger with the component field set.
func WithComponent(log logrus.FieldLogger, name string) *logrus.Entry {
	return log.WithField("component", name)
}

// WithJob returns a logger with the job's identity set.
func WithJob(log logrus.FieldLogger, job *jobs.Job) *logrus.Entry {
	return log.WithFields(logrus.Fields{
		"job_id":  job.ID,
		"pgid":    job.Pgid,
		"command": job.String(),
	})
}
