package service

import (
	"context"
	"errors"
	"fmt"
	"iter"
	"log/slog"
	"slices"
	"strconv"

	"github.com/AlekseyZapadovnikov/code-review/internal/domain"
	"github.com/AlekseyZapadovnikov/code-review/internal/models"
	"github.com/AlekseyZapadovnikov/code-review/internal/review"
	"github.com/AlekseyZapadovnikov/code-review/internal/scope"
)

// DefaultActor от имени этого пользователя сохраняются автоматические изменения.
const DefaultActor = "code-review"

// Store операции хранилища объектов ревью.
type Store interface {
	GetSubject(ctx context.Context, scope, id string) (*models.ReviewSubject, error)
	SaveSubject(ctx context.Context, subject *models.ReviewSubject, actor string) error
	LinkedChanges(ctx context.Context, subject *models.ReviewSubject) ([]models.ChangeRecord, error)
	History(ctx context.Context, subject *models.ReviewSubject) iter.Seq2[models.HistorySnapshot, error]
	UsersWithRole(ctx context.Context, role, scope string) ([]string, error)
	RolesOf(ctx context.Context, userID, scope string) ([]string, error)
	GetUser(ctx context.Context, userID string) (*models.User, error)
	RunQuery(ctx context.Context, scope, query string) ([]*models.ReviewSubject, error)
	PerformTransition(ctx context.Context, subject *models.ReviewSubject, name, resolution string) error
	AvailableTransitions(ctx context.Context, subject *models.ReviewSubject) ([]models.Transition, error)
	AddComment(ctx context.Context, subject *models.ReviewSubject, author, body string) error
	ChangesInRepository(ctx context.Context, repository, fromRevision string) ([]models.ChangeRecord, error)
	SubjectsLinkedTo(ctx context.Context, scope string, change models.ChangeRecord) ([]*models.ReviewSubject, error)
}

// ScopeConfigs отдаёт конфигурацию ревью области.
type ScopeConfigs interface {
	Get(ctx context.Context, scopeName string) (*scope.Settings, error)
}

// Transactor выполняет fn в транзакции хранилища; rollback отменяет изменения.
// nested открывает вложенную транзакцию поверх переданного store; nil выполняет fn без неё.
type Transactor func(ctx context.Context, rollback bool, fn func(store Store, nested Transactor) error) error

// Option настраивает ReviewManager.
type Option func(*ReviewManager)

// WithActor задаёт пользователя для автоматических изменений.
func WithActor(actor string) Option {
	return func(m *ReviewManager) { m.actor = actor }
}

// ReviewManager реализует интерактивное ревью и возможности хоста для джоб.
type ReviewManager struct {
	store  Store
	scopes ScopeConfigs
	tx     Transactor
	logger *slog.Logger
	actor  string
}

// NewReviewManager связывает менеджер с хранилищем и конфигурацией областей.
// Без tx операции выполняются прямо на store.
func NewReviewManager(store Store, scopes ScopeConfigs, tx Transactor, logger *slog.Logger, opts ...Option) *ReviewManager {
	if logger == nil {
		logger = slog.Default()
	}
	m := &ReviewManager{
		store:  store,
		scopes: scopes,
		tx:     tx,
		logger: logger,
		actor:  DefaultActor,
	}
	for _, opt := range opts {
		opt(m)
	}
	return m
}

// inTx выполняет fn с менеджером, привязанным к транзакционному хранилищу.
func (m *ReviewManager) inTx(ctx context.Context, rollback bool, fn func(*ReviewManager) error) error {
	if m.tx == nil {
		return fn(m)
	}
	return m.tx(ctx, rollback, func(s Store, nested Transactor) error {
		scoped := *m
		scoped.store = s
		scoped.tx = nested
		return fn(&scoped)
	})
}

// reviewState объект вместе с конфигурацией области и журналом ревью.
type reviewState struct {
	subject  *models.ReviewSubject
	settings *scope.Settings
	changes  []models.ChangeRecord
	set      *review.Set
}

func (m *ReviewManager) load(ctx context.Context, scopeName, id string) (*reviewState, error) {
	subject, err := m.store.GetSubject(ctx, scopeName, id)
	if err != nil {
		if errors.Is(err, domain.ErrNotFound) {
			return nil, domain.NewNotFoundError("subject " + scopeName + "/" + id)
		}
		return nil, fmt.Errorf("failed to get subject: %w", err)
	}
	return m.stateOf(ctx, subject)
}

func (m *ReviewManager) stateOf(ctx context.Context, subject *models.ReviewSubject) (*reviewState, error) {
	settings, err := m.scopes.Get(ctx, subject.Scope)
	if err != nil {
		return nil, err
	}
	changes, err := m.store.LinkedChanges(ctx, subject)
	if err != nil {
		return nil, fmt.Errorf("failed to get linked changes of %s: %w", subject.Ref(), err)
	}
	return &reviewState{
		subject:  subject,
		settings: settings,
		changes:  changes,
		set:      buildSet(settings, subject, changes),
	}, nil
}

// buildSet выбирает режим журнала: строка журнала, если поле настроено и заполнено
// или порог не настроен, иначе номер последней просмотренной ревизии.
func buildSet(settings *scope.Settings, subject *models.ReviewSubject, changes []models.ChangeRecord) *review.Set {
	if settings.ReviewedRevisionsField != "" {
		if rec, ok := subject.Field(settings.ReviewedRevisionsField); ok || settings.LastReviewedRevisionField == "" {
			return review.NewRecordSet(changes, review.DecodeRecord(rec))
		}
	}
	var last *int
	if v, ok := subject.Field(settings.LastReviewedRevisionField); ok {
		if n, err := strconv.Atoi(v); err == nil {
			last = &n
		}
	}
	return review.NewThresholdSet(changes, last)
}

// storeSet записывает журнал обратно в поля объекта.
func storeSet(st *reviewState) {
	if st.settings.ReviewedRevisionsField != "" {
		st.subject.SetField(st.settings.ReviewedRevisionsField, st.set.RecordString())
		return
	}
	if last, ok := st.set.LastReviewedRevision(); ok {
		st.subject.SetField(st.settings.LastReviewedRevisionField, strconv.Itoa(last))
	}
}

// identity возвращает пользователя с отображаемым именем; неизвестный пользователь узнаётся только по ID.
func (m *ReviewManager) identity(ctx context.Context, userID string) (review.Identity, error) {
	user, err := m.store.GetUser(ctx, userID)
	if err != nil {
		if errors.Is(err, domain.ErrNotFound) {
			return review.Identity{ID: userID}, nil
		}
		return review.Identity{}, fmt.Errorf("failed to get user %s: %w", userID, err)
	}
	return review.Identity{ID: user.UserId, Name: user.Username}, nil
}

// resolver кэширует пользователей в пределах одной операции. Первая ошибка сохраняется в errp.
func (m *ReviewManager) resolver(ctx context.Context, errp *error) review.Resolver {
	cache := make(map[string]review.Identity)
	return func(userID string) review.Identity {
		if id, ok := cache[userID]; ok {
			return id
		}
		id, err := m.identity(ctx, userID)
		if err != nil {
			if *errp == nil {
				*errp = err
			}
			id = review.Identity{ID: userID}
		}
		cache[userID] = id
		return id
	}
}

func (m *ReviewManager) hasReviewerRole(ctx context.Context, settings *scope.Settings, scopeName, userID string) (bool, error) {
	if settings.ReviewerRole == "" {
		return true, nil
	}
	roles, err := m.store.RolesOf(ctx, userID, scopeName)
	if err != nil {
		return false, fmt.Errorf("failed to get roles of %s: %w", userID, err)
	}
	return slices.Contains(roles, settings.ReviewerRole), nil
}

// isAllowedReviewer: роль ревьюера, ревьюер fast-track или бывший ревьюер.
func (m *ReviewManager) isAllowedReviewer(ctx context.Context, settings *scope.Settings, scopeName, userID string) (bool, error) {
	if userID == settings.FastTrackReviewer || settings.IsPastReviewer(userID) {
		return true, nil
	}
	return m.hasReviewerRole(ctx, settings, scopeName, userID)
}

func inReview(st *reviewState) bool {
	return st.settings.InReviewStatus == "" || st.subject.Status == st.settings.InReviewStatus
}

func currentReviewer(st *reviewState) string {
	v, _ := st.subject.Field(st.settings.ReviewerField)
	return v
}

func (m *ReviewManager) canReview(ctx context.Context, st *reviewState, userID string) (bool, error) {
	if !inReview(st) {
		return false, nil
	}
	allowed, err := m.isAllowedReviewer(ctx, st.settings, st.subject.Scope, userID)
	if err != nil || !allowed {
		return false, err
	}
	if st.settings.PreventConcurrentReview {
		reviewer := currentReviewer(st)
		return reviewer == "" || reviewer == userID, nil
	}
	return true, nil
}

func (m *ReviewManager) mustStartReview(ctx context.Context, st *reviewState, userID string) (bool, error) {
	if !st.settings.PreventConcurrentReview || st.settings.InReviewStatus == "" {
		return false, nil
	}
	if st.subject.Status != st.settings.InReviewStatus || currentReviewer(st) != "" {
		return false, nil
	}
	return m.hasReviewerRole(ctx, st.settings, st.subject.Scope, userID)
}

// fastTrackMessage возвращает пустую строку, если fast-track разрешён.
func fastTrackMessage(st *reviewState) string {
	if !st.settings.FastTrackConfigured() {
		return "fast track is not configured for scope " + st.subject.Scope
	}
	return review.CheckFastTrack(st.changes, st.settings.PathPermittedForFastTrack, st.settings.IsIgnoredRepository)
}
