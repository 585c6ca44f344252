// Package scheduler runs recurring maintenance jobs on cron schedules:
// nightly reference solves, WAL checkpoints, and cloud backups.
package scheduler

import (
	"fmt"
	"sync"
	"time"

	"github.com/robfig/cron/v3"
	"github.com/rs/zerolog"
)

// Job is a unit of scheduled work.
type Job interface {
	Name() string
	Run() error
}

// Scheduler wraps a cron runner and tracks per-job outcomes for the status
// API.
type Scheduler struct {
	cron *cron.Cron
	log  zerolog.Logger

	mu     sync.RWMutex
	jobs   map[string]Job
	status map[string]*JobStatus
}

// JobStatus records the last outcome of a job.
type JobStatus struct {
	Name      string     `json:"name"`
	Schedule  string     `json:"schedule"`
	LastRun   *time.Time `json:"last_run,omitempty"`
	LastError string     `json:"last_error,omitempty"`
	RunCount  int        `json:"run_count"`
}

// New creates a scheduler with second-resolution cron expressions.
func New(log zerolog.Logger) *Scheduler {
	return &Scheduler{
		cron:   cron.New(cron.WithSeconds()),
		log:    log.With().Str("component", "scheduler").Logger(),
		jobs:   make(map[string]Job),
		status: make(map[string]*JobStatus),
	}
}

// AddJob schedules a job. The spec uses 6-field cron syntax (with seconds).
func (s *Scheduler) AddJob(spec string, job Job) error {
	s.mu.Lock()
	s.jobs[job.Name()] = job
	s.status[job.Name()] = &JobStatus{Name: job.Name(), Schedule: spec}
	s.mu.Unlock()

	_, err := s.cron.AddFunc(spec, func() {
		s.runJob(job)
	})
	if err != nil {
		return fmt.Errorf("failed to schedule %s: %w", job.Name(), err)
	}

	s.log.Info().Str("job", job.Name()).Str("schedule", spec).Msg("Job scheduled")
	return nil
}

// RunNow executes a registered job immediately, outside its schedule. The
// call is synchronous; status bookkeeping is the same as a scheduled run.
func (s *Scheduler) RunNow(name string) error {
	s.mu.RLock()
	job, ok := s.jobs[name]
	s.mu.RUnlock()
	if !ok {
		return fmt.Errorf("unknown job %q", name)
	}
	s.runJob(job)

	s.mu.RLock()
	defer s.mu.RUnlock()
	if lastErr := s.status[name].LastError; lastErr != "" {
		return fmt.Errorf("job %s failed: %s", name, lastErr)
	}
	return nil
}

func (s *Scheduler) runJob(job Job) {
	started := time.Now()
	s.log.Info().Str("job", job.Name()).Msg("Job starting")

	err := job.Run()

	s.mu.Lock()
	st := s.status[job.Name()]
	now := time.Now()
	st.LastRun = &now
	st.RunCount++
	if err != nil {
		st.LastError = err.Error()
	} else {
		st.LastError = ""
	}
	s.mu.Unlock()

	if err != nil {
		s.log.Error().Err(err).Str("job", job.Name()).Dur("duration", time.Since(started)).Msg("Job failed")
		return
	}
	s.log.Info().Str("job", job.Name()).Dur("duration", time.Since(started)).Msg("Job completed")
}

// Status returns a snapshot of all job statuses.
func (s *Scheduler) Status() []JobStatus {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := make([]JobStatus, 0, len(s.status))
	for _, st := range s.status {
		out = append(out, *st)
	}
	return out
}

// Start begins running scheduled jobs.
func (s *Scheduler) Start() {
	s.cron.Start()
	s.log.Info().Msg("Scheduler started")
}

// Stop halts the scheduler and waits for running jobs to finish.
func (s *Scheduler) Stop() {
	ctx := s.cron.Stop()
	<-ctx.Done()
	s.log.Info().Msg("Scheduler stopped")
}
