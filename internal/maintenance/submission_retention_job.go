package maintenance

import (
	"context"
	"fmt"
	"time"

	"github.com/angelmondragon/cartflow/pkg/enums"
	"github.com/angelmondragon/cartflow/pkg/logger"
)

const (
	SubmissionRetentionJobName = "submission-retention"

	defaultAcceptedRetention = 90 * 24 * time.Hour
	defaultFailedRetention   = 30 * 24 * time.Hour
)

type submissionPruner interface {
	DeleteSubmissionsBefore(ctx context.Context, statuses []enums.SubmissionStatus, cutoff time.Time) (int64, error)
}

type rowsRecorder interface {
	AddRowsDeleted(job string, n int64)
}

type SubmissionRetentionParams struct {
	Logger            *logger.Logger
	Repository        submissionPruner
	Metrics           rowsRecorder
	AcceptedRetention time.Duration
	FailedRetention   time.Duration
}

// NewSubmissionRetentionJob prunes old order submission attempts. Accepted
// attempts are kept longer than rejected or failed ones.
func NewSubmissionRetentionJob(params SubmissionRetentionParams) (Job, error) {
	if params.Logger == nil {
		return nil, fmt.Errorf("logger required")
	}
	if params.Repository == nil {
		return nil, fmt.Errorf("submission repository required")
	}
	accepted := params.AcceptedRetention
	if accepted <= 0 {
		accepted = defaultAcceptedRetention
	}
	failed := params.FailedRetention
	if failed <= 0 {
		failed = defaultFailedRetention
	}
	return &submissionRetentionJob{
		logg:     params.Logger,
		repo:     params.Repository,
		metrics:  params.Metrics,
		accepted: accepted,
		failed:   failed,
		now:      time.Now,
	}, nil
}

type submissionRetentionJob struct {
	logg     *logger.Logger
	repo     submissionPruner
	metrics  rowsRecorder
	accepted time.Duration
	failed   time.Duration
	now      func() time.Time
}

func (j *submissionRetentionJob) Name() string { return SubmissionRetentionJobName }

func (j *submissionRetentionJob) Run(ctx context.Context) error {
	now := j.now().UTC()
	passes := []struct {
		statuses []enums.SubmissionStatus
		cutoff   time.Time
	}{
		{[]enums.SubmissionStatus{enums.SubmissionStatusAccepted}, now.Add(-j.accepted)},
		{[]enums.SubmissionStatus{enums.SubmissionStatusRejected, enums.SubmissionStatusFailed}, now.Add(-j.failed)},
	}

	var total int64
	for _, pass := range passes {
		deleted, err := j.repo.DeleteSubmissionsBefore(ctx, pass.statuses, pass.cutoff)
		total += deleted
		if err != nil {
			j.record(total)
			return fmt.Errorf("submission retention: %w", err)
		}
	}
	j.record(total)

	j.logg.Info(j.logg.WithFields(ctx, map[string]any{
		"accepted_retention": j.accepted.String(),
		"failed_retention":   j.failed.String(),
		"rows_deleted":       total,
	}), "submission retention complete")
	return nil
}

func (j *submissionRetentionJob) record(n int64) {
	if j.metrics != nil {
		j.metrics.AddRowsDeleted(SubmissionRetentionJobName, n)
	}
}
