package service

import (
	"context"
	"time"

	"github.com/sirupsen/logrus"
)

// DefaultJobTimeout bounds one recipe job. A long recipe through a sequential
// public API can take a minute or more.
const DefaultJobTimeout = 10 * time.Minute

// JobProcessor processes recipe jobs asynchronously.
type JobProcessor struct {
	recipes *RecipeService
	logger  *logrus.Logger
	timeout time.Duration
}

// NewJobProcessor creates a new job processor.
func NewJobProcessor(recipes *RecipeService, logger *logrus.Logger) *JobProcessor {
	if logger == nil {
		logger = logrus.New()
	}
	return &JobProcessor{
		recipes: recipes,
		logger:  logger,
		timeout: DefaultJobTimeout,
	}
}

// ProcessJob translates the job's recipe and stores the result on the job.
func (p *JobProcessor) ProcessJob(job *RecipeJob) {
	ctx, cancel := context.WithTimeout(context.Background(), p.timeout)
	defer cancel()

	startTime := time.Now()

	p.logger.WithFields(logrus.Fields{
		"job_id":  job.ID,
		"meal_id": job.MealID,
	}).Info("Starting recipe job processing")

	job.UpdateStatus(JobStatusProcessing, "Carregando receita...")

	detail, err := p.recipes.DetailWithProgress(ctx, job.MealID, job.UpdateProgress)
	if err != nil {
		p.logger.WithError(err).WithFields(logrus.Fields{
			"job_id":  job.ID,
			"meal_id": job.MealID,
		}).Error("Recipe job failed")
		job.SetError(err)
		return
	}

	job.SetResult(detail)

	p.logger.WithFields(logrus.Fields{
		"job_id":      job.ID,
		"meal_id":     job.MealID,
		"duration_ms": time.Since(startTime).Milliseconds(),
	}).Info("Recipe job completed successfully")
}
