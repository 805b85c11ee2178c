package jobs

import "fmt"

// Job is a background task that can be started and stopped.
type Job interface {
	Start() error
	Stop()
}

// JobManager coordinates all background jobs in the application.
// Provides a unified interface to start and stop them.
type JobManager struct {
	jobs []Job
}

// NewJobManager creates a job manager for jobs, started in the given order.
func NewJobManager(jobs ...Job) *JobManager {
	return &JobManager{jobs: jobs}
}

// StartAll starts every job in order.
// Returns an error if any job fails to start.
func (jm *JobManager) StartAll() error {
	for i, job := range jm.jobs {
		if err := job.Start(); err != nil {
			// Stop already started jobs if this one fails
			for _, started := range jm.jobs[:i] {
				started.Stop()
			}
			return fmt.Errorf("failed to start job %d (%T): %w", i, job, err)
		}
	}
	return nil
}

// StopAll stops all jobs gracefully, in reverse start order.
func (jm *JobManager) StopAll() {
	for i := len(jm.jobs) - 1; i >= 0; i-- {
		jm.jobs[i].Stop()
	}
}
