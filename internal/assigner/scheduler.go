package assigner

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/AlekseyZapadovnikov/code-review/internal/models"
)

// TallyCalculator считает нагрузку ревьюеров по одному объекту.
type TallyCalculator interface {
	Tally(ctx context.Context, subject *models.ReviewSubject, targets []string) (*Tally, error)
}

// Context возможности хоста, нужные планировщику.
type Context interface {
	HasUnreviewedAuthoredBy(ctx context.Context, subject *models.ReviewSubject, userID string) (bool, error)
	AssignReviewerAndSave(ctx context.Context, subject *models.ReviewSubject, reviewerID string) error
	// WithinSubject выполняет обработку одного объекта так, что её ошибка откатывает
	// только изменения этого объекта.
	WithinSubject(ctx context.Context, fn func(Context) error) error
}

// SchedulerConfig входные данные одного прогона назначения.
type SchedulerConfig struct {
	Targets         []string
	Reviewed        []*models.ReviewSubject
	Pending         []*models.ReviewSubject
	Calculator      TallyCalculator
	Host            Context
	NewDistribution DistributionFactory
	Rand            Rand
	Logger          *slog.Logger
	// StrictFairness учитывает назначения, сделанные в текущем прогоне.
	StrictFairness bool
}

// Scheduler назначает ревьюеров на ожидающие объекты с учётом дневной нагрузки.
type Scheduler struct {
	cfg SchedulerConfig
}

// NewScheduler создаёт планировщик и подставляет значения по умолчанию.
func NewScheduler(cfg SchedulerConfig) *Scheduler {
	if cfg.NewDistribution == nil {
		cfg.NewDistribution = NewDistribution
	}
	if cfg.Rand == nil {
		cfg.Rand = globalRand{}
	}
	if cfg.Logger == nil {
		cfg.Logger = slog.Default()
	}
	return &Scheduler{cfg: cfg}
}

// Run выполняет один полный прогон. Ошибка подсчёта нагрузки прерывает прогон целиком,
// ошибки по отдельным объектам логируются и пропускаются.
func (s *Scheduler) Run(ctx context.Context) (*models.AssignmentStats, error) {
	log := s.cfg.Logger
	tally := NewTally()
	for _, subject := range s.cfg.Reviewed {
		t, err := s.cfg.Calculator.Tally(ctx, subject, s.cfg.Targets)
		if err != nil {
			return nil, fmt.Errorf("tally reviews of %s: %w", subject.Ref(), err)
		}
		tally.Merge(t)
	}
	for _, r := range s.cfg.Targets {
		tally.Seed(r)
	}
	log.Info("reviewer tally", "tally", tallyAttrs(tally))

	stats := &models.AssignmentStats{}
	for _, subject := range s.cfg.Pending {
		reviewer, ok, err := s.assign(ctx, subject, tally)
		switch {
		case err != nil:
			log.Error("assignment failed", "subject", subject.Ref(), "error", err)
			stats.Failed = append(stats.Failed, subject.Ref())
		case !ok:
			log.Info("no candidate reviewer, skipping", "subject", subject.Ref())
			stats.Skipped = append(stats.Skipped, subject.Ref())
		default:
			log.Info("reviewer assigned", "subject", subject.Ref(), "reviewer", reviewer)
			stats.Assigned = append(stats.Assigned, models.SubjectAssignment{SubjectId: subject.Ref(), Reviewer: reviewer})
			if s.cfg.StrictFairness {
				tally.Add(reviewer, 1)
			}
		}
	}

	for _, r := range tally.Reviewers() {
		n, _ := tally.Count(r)
		stats.ByUser = append(stats.ByUser, models.UserTallyStat{UserId: r, Reviews: n})
	}
	return stats, nil
}

// assign обрабатывает один объект в изолированной части транзакции хоста.
func (s *Scheduler) assign(ctx context.Context, subject *models.ReviewSubject, tally *Tally) (string, bool, error) {
	var (
		reviewer string
		ok       bool
	)
	err := s.cfg.Host.WithinSubject(ctx, func(h Context) error {
		var err error
		reviewer, ok, err = s.assignWith(ctx, h, subject, tally)
		return err
	})
	if err != nil {
		return "", false, err
	}
	return reviewer, ok, nil
}

// assignWith исключает авторов непросмотренных ревизий объекта и разыгрывает ревьюера.
func (s *Scheduler) assignWith(ctx context.Context, host Context, subject *models.ReviewSubject, tally *Tally) (string, bool, error) {
	var excludeErr error
	candidates := tally.Without(func(reviewer string) bool {
		if excludeErr != nil {
			return true
		}
		authored, err := host.HasUnreviewedAuthoredBy(ctx, subject, reviewer)
		if err != nil {
			excludeErr = fmt.Errorf("check authorship of %s: %w", reviewer, err)
			return true
		}
		return authored
	})
	if excludeErr != nil {
		return "", false, excludeErr
	}
	if candidates.Len() == 0 {
		return "", false, nil
	}

	dist, err := s.cfg.NewDistribution(candidates)
	if err != nil {
		return "", false, fmt.Errorf("build distribution: %w", err)
	}
	reviewer, ok := dist.SelectRandomly(s.cfg.Rand)
	if !ok {
		return "", false, nil
	}
	if err := host.AssignReviewerAndSave(ctx, subject, reviewer); err != nil {
		return "", false, fmt.Errorf("assign %s: %w", reviewer, err)
	}
	return reviewer, true, nil
}

func tallyAttrs(t *Tally) map[string]int {
	out := make(map[string]int, t.Len())
	for _, r := range t.Reviewers() {
		out[r], _ = t.Count(r)
	}
	return out
}
