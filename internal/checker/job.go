// Package checker находит ревизии без объектов ревью и объекты, которые нужно проверить повторно.
package checker

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/url"
	"sort"
	"strings"

	"github.com/go-playground/validator/v10"

	"github.com/AlekseyZapadovnikov/code-review/internal/domain"
	"github.com/AlekseyZapadovnikov/code-review/internal/models"
	"github.com/AlekseyZapadovnikov/code-review/internal/notify"
)

var paramsValidator = validator.New()

// RepositoryLocation репозиторий, ревизии которого проверяются.
type RepositoryLocation struct {
	Repository   string `validate:"required"`
	FromRevision string
	// GitPath путь к локальному клону; пустой путь означает чтение ревизий из хранилища.
	GitPath string
}

// JobParams параметры проверяющей джобы.
type JobParams struct {
	Scope                     string               `validate:"required"`
	RepositoryLocations       []RepositoryLocation `validate:"required,min=1,dive"`
	PermittedItemsQuery       string
	NotificationReceivers     []string `validate:"dive,required"`
	NotificationSender        string   `validate:"required_with=NotificationReceivers"`
	NotificationSubjectPrefix string
	BaseURL                   string
}

// Host возможности хоста, нужные проверяющей джобе.
type Host interface {
	RunQuery(ctx context.Context, scope, query string) ([]*models.ReviewSubject, error)
	ChangesInRepository(ctx context.Context, repository, fromRevision string) ([]models.ChangeRecord, error)
	SubjectsLinkedTo(ctx context.Context, scope string, change models.ChangeRecord) ([]*models.ReviewSubject, error)
	NeedsReviewAgain(ctx context.Context, subject *models.ReviewSubject) ([]string, error)
}

// ChangeSource читает ревизии из локального клона внешнего репозитория.
type ChangeSource interface {
	Changes(ctx context.Context, repository, path string) ([]models.ChangeRecord, error)
}

// Finding объект, который нужно проверить повторно, с причинами.
type Finding struct {
	Subject *models.ReviewSubject
	Reasons []string
}

// Report результат одного прогона проверки.
type Report struct {
	Orphaned []models.ChangeRecord
	Findings []Finding
}

// Empty сообщает, что проверка ничего не нашла.
func (r *Report) Empty() bool {
	return len(r.Orphaned) == 0 && len(r.Findings) == 0
}

// Job проверяющая джоба.
type Job struct {
	params   JobParams
	host     Host
	git      ChangeSource
	notifier notify.Notifier
	logger   *slog.Logger
}

// NewJob создаёт проверяющую джобу.
func NewJob(params JobParams, host Host, git ChangeSource, notifier notify.Notifier, logger *slog.Logger) *Job {
	if logger == nil {
		logger = slog.Default()
	}
	if notifier == nil {
		notifier = &notify.LogNotifier{Logger: logger}
	}
	return &Job{
		params:   params,
		host:     host,
		git:      git,
		notifier: notifier,
		logger:   logger.With("job", "code-review-checker", "scope", params.Scope),
	}
}

// Run выполняет проверку и отправляет уведомление, если что-то найдено.
func (j *Job) Run(ctx context.Context) models.JobStatus {
	if ctx.Err() != nil {
		return models.JobStatus{State: models.JobStateCancelled, Message: "cancelled before start"}
	}
	if err := paramsValidator.Struct(j.params); err != nil {
		return j.failed(domain.NewConfigError("invalid checker parameters: %v", err))
	}

	report, err := j.Check(ctx)
	if err != nil {
		if errors.Is(err, context.Canceled) {
			return models.JobStatus{State: models.JobStateCancelled, Message: err.Error()}
		}
		return j.failed(err)
	}

	msg := fmt.Sprintf("%d orphaned revisions, %d subjects to review again", len(report.Orphaned), len(report.Findings))
	if !report.Empty() && len(j.params.NotificationReceivers) > 0 {
		n := notify.Notification{
			Sender:    j.params.NotificationSender,
			Receivers: j.params.NotificationReceivers,
			Subject:   strings.TrimSpace(j.params.NotificationSubjectPrefix + " Code Review Checker Results"),
			Body:      j.body(report),
		}
		if err := j.notifier.Notify(ctx, n); err != nil {
			j.logger.Error("failed to send checker notification", "error", err)
		}
	}
	j.logger.Info("checker finished", "result", msg)
	return models.JobStatus{State: models.JobStateOK, Message: msg}
}

// Check собирает отчёт без отправки уведомления.
func (j *Job) Check(ctx context.Context) (*Report, error) {
	var permitted map[string]struct{}
	if j.params.PermittedItemsQuery != "" {
		items, err := j.host.RunQuery(ctx, j.params.Scope, j.params.PermittedItemsQuery)
		if err != nil {
			return nil, fmt.Errorf("permitted items query: %w", err)
		}
		permitted = make(map[string]struct{}, len(items))
		for _, s := range items {
			permitted[s.Ref()] = struct{}{}
		}
	}

	report := &Report{}
	seen := make(map[string]struct{})
	for _, loc := range j.params.RepositoryLocations {
		changes, err := j.changes(ctx, loc)
		if err != nil {
			return nil, err
		}
		j.logger.Info("checking revisions", "repository", loc.Repository, "count", len(changes))

		for _, change := range changes {
			if err := ctx.Err(); err != nil {
				return nil, err
			}
			subjects, err := j.host.SubjectsLinkedTo(ctx, j.params.Scope, change)
			if err != nil {
				return nil, fmt.Errorf("subjects linked to %s: %w", change.Key(), err)
			}
			if len(subjects) == 0 {
				report.Orphaned = append(report.Orphaned, change)
				continue
			}
			for _, subject := range subjects {
				if _, ok := seen[subject.Ref()]; ok {
					continue
				}
				seen[subject.Ref()] = struct{}{}

				reasons, err := j.host.NeedsReviewAgain(ctx, subject)
				if err != nil {
					return nil, fmt.Errorf("check %s: %w", subject.Ref(), err)
				}
				if permitted != nil {
					if _, ok := permitted[subject.Ref()]; !ok {
						reasons = append([]string{"forbidden"}, reasons...)
					}
				}
				if len(reasons) > 0 {
					report.Findings = append(report.Findings, Finding{Subject: subject, Reasons: reasons})
				}
			}
		}
	}

	sort.SliceStable(report.Findings, func(a, b int) bool {
		return report.Findings[a].Subject.Ref() < report.Findings[b].Subject.Ref()
	})
	return report, nil
}

// changes возвращает ревизии расположения начиная с FromRevision включительно.
func (j *Job) changes(ctx context.Context, loc RepositoryLocation) ([]models.ChangeRecord, error) {
	if loc.GitPath == "" || loc.Repository == models.DefaultRepository {
		changes, err := j.host.ChangesInRepository(ctx, loc.Repository, loc.FromRevision)
		if err != nil {
			return nil, fmt.Errorf("changes in %s: %w", loc.Repository, err)
		}
		return changes, nil
	}
	if j.git == nil {
		return nil, domain.NewConfigError("git source is not available for %s", loc.Repository)
	}

	changes, err := j.git.Changes(ctx, loc.Repository, loc.GitPath)
	if err != nil {
		return nil, fmt.Errorf("changes in %s: %w", loc.Repository, err)
	}
	if loc.FromRevision == "" {
		return changes, nil
	}
	for i, c := range changes {
		if c.Revision == loc.FromRevision || strings.HasPrefix(c.Revision, loc.FromRevision) {
			return changes[i:], nil
		}
	}
	return nil, domain.NewConfigError("revision %s not found in %s", loc.FromRevision, loc.Repository)
}

func (j *Job) body(r *Report) string {
	var b strings.Builder
	if len(r.Orphaned) > 0 {
		b.WriteString("Revisions without work item:\n")
		for _, c := range r.Orphaned {
			fmt.Fprintf(&b, "  %s by %s: %s\n", c.Key(), c.Author, firstLine(c.Message))
		}
		b.WriteString("\n")
	}
	if len(r.Findings) > 0 {
		b.WriteString("Work items to be reviewed again:\n")
		for _, f := range r.Findings {
			fmt.Fprintf(&b, "  %s %s\n    %s\n", f.Subject.Ref(), j.link(f.Subject), strings.Join(f.Reasons, "; "))
		}
	}
	return b.String()
}

func (j *Job) link(s *models.ReviewSubject) string {
	if j.params.BaseURL == "" {
		return ""
	}
	return strings.TrimRight(j.params.BaseURL, "/") + "/scopes/" + url.PathEscape(s.Scope) + "/subjects/" + url.PathEscape(s.ID) + "/review"
}

func firstLine(s string) string {
	if i := strings.IndexByte(s, '\n'); i >= 0 {
		return s[:i]
	}
	return s
}

func (j *Job) failed(err error) models.JobStatus {
	j.logger.Error("checker failed", "error", err)
	return models.JobStatus{State: models.JobStateFailed, Message: err.Error()}
}
