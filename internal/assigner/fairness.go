package assigner

import (
	"context"
	"fmt"
	"iter"
	"time"

	"github.com/AlekseyZapadovnikov/code-review/internal/models"
)

// HistorySource отдаёт историю объекта от новых состояний к старым.
type HistorySource interface {
	History(ctx context.Context, subject *models.ReviewSubject) iter.Seq2[models.HistorySnapshot, error]
}

// RoleSource отдаёт роли пользователя в области.
type RoleSource interface {
	RolesOf(ctx context.Context, userID, scope string) ([]string, error)
}

// CalculatorConfig параметры подсчёта нагрузки ревьюеров.
type CalculatorConfig struct {
	ReviewerRole   string
	InReviewStatus string
	DecisionDate   time.Time
	Location       *time.Location
}

// Calculator считает ревью, выполненные ревьюерами за день принятия решения.
type Calculator struct {
	history HistorySource
	roles   RoleSource
	cfg     CalculatorConfig
	day     civilDate
}

// NewCalculator создаёт калькулятор нагрузки.
func NewCalculator(history HistorySource, roles RoleSource, cfg CalculatorConfig) *Calculator {
	if cfg.Location == nil {
		cfg.Location = time.Local
	}
	return &Calculator{
		history: history,
		roles:   roles,
		cfg:     cfg,
		day:     dateOf(cfg.DecisionDate, cfg.Location),
	}
}

// Tally проходит историю объекта от новых записей к старым и считает ревью целевых ревьюеров.
// Обход прекращается на первой записи, сделанной раньше дня принятия решения.
// Роли авторов проверяются после обхода, когда курсор истории уже закрыт.
func (c *Calculator) Tally(ctx context.Context, subject *models.ReviewSubject, targets []string) (*Tally, error) {
	isTarget := make(map[string]struct{}, len(targets))
	for _, t := range targets {
		isTarget[t] = struct{}{}
	}

	var (
		authors []string
		newer   *models.HistorySnapshot
	)
	for snap, err := range c.history.History(ctx, subject) {
		if err != nil {
			return nil, fmt.Errorf("read history of %s: %w", subject.Ref(), err)
		}
		if newer != nil && c.qualifies(*newer, snap.Status, isTarget) {
			authors = append(authors, newer.Change.Author)
		}
		if dateOf(snap.Change.Created, c.cfg.Location).before(c.day) {
			break
		}
		s := snap
		newer = &s
	}

	tally := NewTally()
	isReviewer := make(map[string]bool)
	for _, author := range authors {
		ok, known := isReviewer[author]
		if !known {
			var err error
			if ok, err = c.holdsReviewerRole(ctx, author, subject.Scope); err != nil {
				return nil, err
			}
			isReviewer[author] = ok
		}
		if ok {
			tally.Add(author, 1)
		}
	}
	return tally, nil
}

// qualifies сообщает, что событие в день принятия решения выводит объект из статуса ревью
// и выполнено целевым ревьюером.
func (c *Calculator) qualifies(event models.HistorySnapshot, olderStatus string, isTarget map[string]struct{}) bool {
	if dateOf(event.Change.Created, c.cfg.Location) != c.day {
		return false
	}
	if _, ok := isTarget[event.Change.Author]; !ok {
		return false
	}
	return olderStatus == c.cfg.InReviewStatus && event.Status != c.cfg.InReviewStatus
}

func (c *Calculator) holdsReviewerRole(ctx context.Context, user, scope string) (bool, error) {
	roles, err := c.roles.RolesOf(ctx, user, scope)
	if err != nil {
		return false, fmt.Errorf("roles of %s: %w", user, err)
	}
	for _, r := range roles {
		if r == c.cfg.ReviewerRole {
			return true, nil
		}
	}
	return false, nil
}

type civilDate struct {
	year  int
	month time.Month
	day   int
}

func dateOf(t time.Time, loc *time.Location) civilDate {
	y, m, d := t.In(loc).Date()
	return civilDate{year: y, month: m, day: d}
}

func (d civilDate) before(o civilDate) bool {
	if d.year != o.year {
		return d.year < o.year
	}
	if d.month != o.month {
		return d.month < o.month
	}
	return d.day < o.day
}
