package assigner

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/go-playground/validator/v10"

	"github.com/AlekseyZapadovnikov/code-review/internal/domain"
	"github.com/AlekseyZapadovnikov/code-review/internal/models"
)

var paramsValidator = validator.New()

// JobParams параметры джобы автоматического назначения ревьюеров.
type JobParams struct {
	Scope                  string `validate:"required"`
	ReviewerRole           string `validate:"required"`
	ReviewedItemsQuery     string `validate:"required"`
	ToBeReviewedItemsQuery string `validate:"required"`
	DebugMode              bool
	StrictFairness         bool
}

// Host возможности хоста, доступные джобе внутри транзакции.
type Host interface {
	HistorySource
	RoleSource
	Context
	ScopeConfig(ctx context.Context, scope string) (*models.ScopeConfig, error)
	UsersWithRole(ctx context.Context, role, scope string) ([]string, error)
	RunQuery(ctx context.Context, scope, query string) ([]*models.ReviewSubject, error)
}

// HostRunner выполняет функцию в транзакции хоста; rollback отменяет все изменения.
type HostRunner interface {
	RunInTx(ctx context.Context, rollback bool, fn func(Host) error) error
}

// Job джоба, назначающая ревьюеров на объекты, ожидающие ревью.
type Job struct {
	params   JobParams
	host     HostRunner
	logger   *slog.Logger
	location *time.Location
	now      func() time.Time
	rnd      Rand
}

// NewJob создаёт джобу назначения.
func NewJob(params JobParams, host HostRunner, logger *slog.Logger, location *time.Location) *Job {
	if logger == nil {
		logger = slog.Default()
	}
	if location == nil {
		location = time.Local
	}
	return &Job{
		params:   params,
		host:     host,
		logger:   logger.With("job", "code-review-assigner", "scope", params.Scope),
		location: location,
		now:      time.Now,
	}
}

// Run выполняет джобу и возвращает итоговый статус.
func (j *Job) Run(ctx context.Context) models.JobStatus {
	if ctx.Err() != nil {
		return models.JobStatus{State: models.JobStateCancelled, Message: "cancelled before start"}
	}
	if err := paramsValidator.Struct(j.params); err != nil {
		return j.failed(domain.NewConfigError("invalid assigner parameters: %v", err))
	}

	j.logger.Info("assigner started",
		"reviewer_role", j.params.ReviewerRole,
		"reviewed_items_query", j.params.ReviewedItemsQuery,
		"to_be_reviewed_items_query", j.params.ToBeReviewedItemsQuery,
		"debug_mode", j.params.DebugMode,
	)

	var stats *models.AssignmentStats
	err := j.host.RunInTx(ctx, j.params.DebugMode, func(h Host) error {
		var err error
		stats, err = j.execute(ctx, h)
		return err
	})
	if err != nil {
		if errors.Is(err, context.Canceled) {
			return models.JobStatus{State: models.JobStateCancelled, Message: err.Error()}
		}
		return j.failed(err)
	}

	msg := fmt.Sprintf("%d assigned, %d skipped, %d failed", len(stats.Assigned), len(stats.Skipped), len(stats.Failed))
	if j.params.DebugMode {
		msg += " (debug mode, changes rolled back)"
	}
	j.logger.Info("assigner finished", "result", msg)
	return models.JobStatus{State: models.JobStateOK, Message: msg, Stats: stats}
}

func (j *Job) execute(ctx context.Context, h Host) (*models.AssignmentStats, error) {
	cfg, err := h.ScopeConfig(ctx, j.params.Scope)
	if err != nil {
		return nil, err
	}
	if cfg.InReviewStatus == "" {
		return nil, domain.NewConfigError("inReviewStatus is not configured for scope %s", j.params.Scope)
	}

	targets, err := h.UsersWithRole(ctx, j.params.ReviewerRole, j.params.Scope)
	if err != nil {
		return nil, fmt.Errorf("users with role %s: %w", j.params.ReviewerRole, err)
	}
	j.logger.Info("target reviewers", "reviewers", strings.Join(targets, ", "))

	reviewed, err := h.RunQuery(ctx, j.params.Scope, j.params.ReviewedItemsQuery)
	if err != nil {
		return nil, fmt.Errorf("reviewed items query: %w", err)
	}
	pending, err := h.RunQuery(ctx, j.params.Scope, j.params.ToBeReviewedItemsQuery)
	if err != nil {
		return nil, fmt.Errorf("to be reviewed items query: %w", err)
	}
	j.logger.Info("subjects loaded", "reviewed", len(reviewed), "pending", len(pending))

	calc := NewCalculator(h, h, CalculatorConfig{
		ReviewerRole:   j.params.ReviewerRole,
		InReviewStatus: cfg.InReviewStatus,
		DecisionDate:   j.now(),
		Location:       j.location,
	})
	return NewScheduler(SchedulerConfig{
		Targets:        targets,
		Reviewed:       reviewed,
		Pending:        pending,
		Calculator:     calc,
		Host:           h,
		Rand:           j.rnd,
		Logger:         j.logger,
		StrictFairness: j.params.StrictFairness,
	}).Run(ctx)
}

func (j *Job) failed(err error) models.JobStatus {
	j.logger.Error("assigner failed", "error", err)
	return models.JobStatus{State: models.JobStateFailed, Message: err.Error()}
}
