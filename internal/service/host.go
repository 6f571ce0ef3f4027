package service

import (
	"context"
	"iter"

	"github.com/AlekseyZapadovnikov/code-review/internal/assigner"
	"github.com/AlekseyZapadovnikov/code-review/internal/checker"
	"github.com/AlekseyZapadovnikov/code-review/internal/models"
)

var (
	_ assigner.Host = (*ReviewManager)(nil)
	_ checker.Host  = (*ReviewManager)(nil)
)

// RunInTx выполняет fn джобы назначения в одной транзакции.
func (m *ReviewManager) RunInTx(ctx context.Context, rollback bool, fn func(assigner.Host) error) error {
	return m.inTx(ctx, rollback, func(tm *ReviewManager) error {
		return fn(tm)
	})
}

// WithinSubject выполняет обработку одного объекта во вложенной транзакции.
func (m *ReviewManager) WithinSubject(ctx context.Context, fn func(assigner.Context) error) error {
	return m.inTx(ctx, false, func(tm *ReviewManager) error {
		return fn(tm)
	})
}

// ScopeConfig возвращает конфигурацию ревью области.
func (m *ReviewManager) ScopeConfig(ctx context.Context, scopeName string) (*models.ScopeConfig, error) {
	settings, err := m.scopes.Get(ctx, scopeName)
	if err != nil {
		return nil, err
	}
	return &settings.ScopeConfig, nil
}

// HasUnreviewedAuthoredBy сообщает, есть ли у объекта непросмотренные ревизии пользователя.
func (m *ReviewManager) HasUnreviewedAuthoredBy(ctx context.Context, subject *models.ReviewSubject, userID string) (bool, error) {
	st, err := m.stateOf(ctx, subject)
	if err != nil {
		return false, err
	}
	user, err := m.identity(ctx, userID)
	if err != nil {
		return false, err
	}
	return st.set.HasUnreviewedAuthoredBy(user), nil
}

// AssignReviewerAndSave записывает ревьюера в поле объекта и сохраняет его.
func (m *ReviewManager) AssignReviewerAndSave(ctx context.Context, subject *models.ReviewSubject, reviewerID string) error {
	settings, err := m.scopes.Get(ctx, subject.Scope)
	if err != nil {
		return err
	}
	subject.SetField(settings.ReviewerField, reviewerID)
	return m.store.SaveSubject(ctx, subject, m.actor)
}

// NeedsReviewAgain возвращает причины, по которым объект нужно проверить повторно.
func (m *ReviewManager) NeedsReviewAgain(ctx context.Context, subject *models.ReviewSubject) ([]string, error) {
	st, err := m.stateOf(ctx, subject)
	if err != nil {
		return nil, err
	}

	var reasons []string
	resolved := subject.Resolution != ""
	if !resolved && subject.TimePoint == "" && len(st.changes) > 0 && st.settings.UnresolvedWithChangesNeedsPoint {
		reasons = append(reasons, "unresolved with revisions but without time point")
	}
	if resolved && st.set.HasUnreviewed() {
		reasons = append(reasons, "resolved with unreviewed revisions")
	}

	var lookupErr error
	disallowed := st.set.HasReviewedByDisallowedReviewer(func(reviewer string) bool {
		if lookupErr != nil {
			return true
		}
		ok, err := m.isAllowedReviewer(ctx, st.settings, subject.Scope, reviewer)
		if err != nil {
			lookupErr = err
			return true
		}
		return ok
	})
	if lookupErr != nil {
		return nil, lookupErr
	}
	if disallowed {
		reasons = append(reasons, "revisions reviewed by not allowed reviewer")
	}

	selfReviewed := st.set.HasSelfReviewedEntries(m.resolver(ctx, &lookupErr))
	if lookupErr != nil {
		return nil, lookupErr
	}
	if selfReviewed {
		reasons = append(reasons, "revisions reviewed by their author")
	}
	return reasons, nil
}

// History возвращает историю объекта от новых состояний к старым.
func (m *ReviewManager) History(ctx context.Context, subject *models.ReviewSubject) iter.Seq2[models.HistorySnapshot, error] {
	return m.store.History(ctx, subject)
}

// RolesOf возвращает роли пользователя в области.
func (m *ReviewManager) RolesOf(ctx context.Context, userID, scopeName string) ([]string, error) {
	return m.store.RolesOf(ctx, userID, scopeName)
}

// UsersWithRole возвращает пользователей с ролью в области.
func (m *ReviewManager) UsersWithRole(ctx context.Context, role, scopeName string) ([]string, error) {
	return m.store.UsersWithRole(ctx, role, scopeName)
}

// RunQuery выполняет запрос по объектам области.
func (m *ReviewManager) RunQuery(ctx context.Context, scopeName, query string) ([]*models.ReviewSubject, error) {
	return m.store.RunQuery(ctx, scopeName, query)
}

// ChangesInRepository возвращает ревизии репозитория начиная с fromRevision.
func (m *ReviewManager) ChangesInRepository(ctx context.Context, repository, fromRevision string) ([]models.ChangeRecord, error) {
	return m.store.ChangesInRepository(ctx, repository, fromRevision)
}

// SubjectsLinkedTo возвращает объекты области, связанные с ревизией.
func (m *ReviewManager) SubjectsLinkedTo(ctx context.Context, scopeName string, change models.ChangeRecord) ([]*models.ReviewSubject, error) {
	return m.store.SubjectsLinkedTo(ctx, scopeName, change)
}
