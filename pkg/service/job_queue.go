package service

import (
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/sirupsen/logrus"
)

// RecipeJobStatus represents the status of a recipe translation job.
type RecipeJobStatus string

const (
	JobStatusQueued     RecipeJobStatus = "queued"
	JobStatusProcessing RecipeJobStatus = "processing"
	JobStatusCompleted  RecipeJobStatus = "completed"
	JobStatusFailed     RecipeJobStatus = "failed"
)

// ErrJobNotFound is returned for unknown or expired job ids.
var ErrJobNotFound = errors.New("job not found")

// RecipeJob is an asynchronous recipe detail translation. The UI shell polls
// it or follows its events while it shows a loading screen.
type RecipeJob struct {
	ID          string
	MealID      string
	Status      RecipeJobStatus
	CreatedAt   time.Time
	StartedAt   *time.Time
	CompletedAt *time.Time
	Error       string

	Result *RecipeDetail

	ProgressPercent int32
	ProgressMessage string

	mu sync.RWMutex
}

// JobSnapshot is a consistent copy of a job's state.
type JobSnapshot struct {
	ID              string          `json:"job_id"`
	MealID          string          `json:"meal_id"`
	Status          RecipeJobStatus `json:"status"`
	ProgressPercent int32           `json:"progress_percent"`
	ProgressMessage string          `json:"progress_message"`
	CreatedAt       time.Time       `json:"created_at"`
	StartedAt       *time.Time      `json:"started_at,omitempty"`
	CompletedAt     *time.Time      `json:"completed_at,omitempty"`
	Error           string          `json:"error,omitempty"`
	Result          *RecipeDetail   `json:"result,omitempty"`
}

// JobQueue manages asynchronous recipe jobs.
type JobQueue struct {
	jobs      map[string]*RecipeJob
	jobsMu    sync.RWMutex
	logger    *logrus.Logger
	processor *JobProcessor
}

// NewJobQueue creates a new job queue.
func NewJobQueue(logger *logrus.Logger) *JobQueue {
	if logger == nil {
		logger = logrus.New()
	}
	return &JobQueue{
		jobs:   make(map[string]*RecipeJob),
		logger: logger,
	}
}

// SetProcessor sets the job processor for this queue.
func (q *JobQueue) SetProcessor(processor *JobProcessor) {
	q.processor = processor
}

// CreateJob registers a job for mealID and starts it when a processor is set.
func (q *JobQueue) CreateJob(mealID string) (*RecipeJob, error) {
	if mealID == "" {
		return nil, fmt.Errorf("meal_id is required")
	}

	job := &RecipeJob{
		ID:              uuid.New().String(),
		MealID:          mealID,
		Status:          JobStatusQueued,
		CreatedAt:       time.Now(),
		ProgressMessage: "Na fila",
	}

	q.jobsMu.Lock()
	q.jobs[job.ID] = job
	q.jobsMu.Unlock()

	q.logger.WithFields(logrus.Fields{
		"job_id":  job.ID,
		"meal_id": mealID,
	}).Info("Created recipe job")

	if q.processor != nil {
		go q.processor.ProcessJob(job)
	}

	return job, nil
}

// GetJob retrieves a job by ID.
func (q *JobQueue) GetJob(jobID string) (*RecipeJob, error) {
	q.jobsMu.RLock()
	defer q.jobsMu.RUnlock()

	job, exists := q.jobs[jobID]
	if !exists {
		return nil, fmt.Errorf("%w: %s", ErrJobNotFound, jobID)
	}
	return job, nil
}

// Len returns the number of tracked jobs.
func (q *JobQueue) Len() int {
	q.jobsMu.RLock()
	defer q.jobsMu.RUnlock()
	return len(q.jobs)
}

// UpdateStatus updates the status of a job.
func (j *RecipeJob) UpdateStatus(status RecipeJobStatus, message string) {
	j.mu.Lock()
	defer j.mu.Unlock()

	j.Status = status
	j.ProgressMessage = message

	now := time.Now()
	switch status {
	case JobStatusProcessing:
		if j.StartedAt == nil {
			j.StartedAt = &now
		}
	case JobStatusCompleted, JobStatusFailed:
		if j.CompletedAt == nil {
			j.CompletedAt = &now
		}
	}
}

// UpdateProgress updates the progress of a job. Progress never goes backwards.
func (j *RecipeJob) UpdateProgress(percent int32, message string) {
	j.mu.Lock()
	defer j.mu.Unlock()

	if percent > j.ProgressPercent {
		j.ProgressPercent = percent
	}
	j.ProgressMessage = message
}

// SetError marks the job failed.
func (j *RecipeJob) SetError(err error) {
	j.mu.Lock()
	defer j.mu.Unlock()

	j.Error = err.Error()
	j.Status = JobStatusFailed
	now := time.Now()
	j.CompletedAt = &now
}

// SetResult marks the job completed with detail.
func (j *RecipeJob) SetResult(detail *RecipeDetail) {
	j.mu.Lock()
	defer j.mu.Unlock()

	j.Result = detail
	j.Status = JobStatusCompleted
	now := time.Now()
	j.CompletedAt = &now
	j.ProgressPercent = 100
	j.ProgressMessage = "Receita pronta"
}

// GetStatus returns a copy of the job status (thread-safe).
func (j *RecipeJob) GetStatus() (RecipeJobStatus, string, int32) {
	j.mu.RLock()
	defer j.mu.RUnlock()

	return j.Status, j.ProgressMessage, j.ProgressPercent
}

// Snapshot returns a copy of the whole job state.
func (j *RecipeJob) Snapshot() JobSnapshot {
	j.mu.RLock()
	defer j.mu.RUnlock()

	return JobSnapshot{
		ID:              j.ID,
		MealID:          j.MealID,
		Status:          j.Status,
		ProgressPercent: j.ProgressPercent,
		ProgressMessage: j.ProgressMessage,
		CreatedAt:       j.CreatedAt,
		StartedAt:       j.StartedAt,
		CompletedAt:     j.CompletedAt,
		Error:           j.Error,
		Result:          j.Result,
	}
}

// Done reports whether the job reached a final state.
func (s RecipeJobStatus) Done() bool {
	return s == JobStatusCompleted || s == JobStatusFailed
}

// CleanupOldJobs removes finished jobs older than maxAge.
func (q *JobQueue) CleanupOldJobs(maxAge time.Duration) int {
	q.jobsMu.Lock()
	defer q.jobsMu.Unlock()

	now := time.Now()
	removed := 0

	for id, job := range q.jobs {
		job.mu.RLock()
		expired := job.Status.Done() && job.CompletedAt != nil && now.Sub(*job.CompletedAt) > maxAge
		job.mu.RUnlock()

		if expired {
			delete(q.jobs, id)
			removed++
		}
	}

	if removed > 0 {
		q.logger.WithFields(logrus.Fields{
			"removed":   removed,
			"remaining": len(q.jobs),
		}).Info("Cleaned up old recipe jobs")
	}
	return removed
}
