package repository

import (
	"context"
	"fmt"
	"iter"
	"sort"
	"strconv"
	"time"

	"github.com/jackc/pgx/v5"

	"github.com/AlekseyZapadovnikov/code-review/internal/domain"
	"github.com/AlekseyZapadovnikov/code-review/internal/models"
)

const subjectColumns = `s.scope, s.subject_id, s.title, s.status, s.resolution, s.time_point, s.updated_at`

// GetSubject возвращает объект ревью вместе со значениями полей.
func (s *Storage) GetSubject(ctx context.Context, scope, id string) (*models.ReviewSubject, error) {
	q := `SELECT ` + subjectColumns + ` FROM review_subjects s WHERE s.scope = $1 AND s.subject_id = $2`

	subjects, err := s.querySubjects(ctx, q, scope, id)
	if err != nil {
		return nil, err
	}
	if len(subjects) == 0 {
		return nil, domain.NewNotFoundError(fmt.Sprintf("subject %s/%s", scope, id))
	}
	return subjects[0], nil
}

// RunQuery выполняет запрос на языке поиска объектов в пределах области.
func (s *Storage) RunQuery(ctx context.Context, scope, text string) ([]*models.ReviewSubject, error) {
	compiled, err := compileQuery(text, 2, s.now(), s.location)
	if err != nil {
		return nil, err
	}
	q := `SELECT ` + subjectColumns + ` FROM review_subjects s WHERE s.scope = $1 AND ` + compiled.where + ` ORDER BY s.subject_id`

	args := append([]any{scope}, compiled.args...)
	return s.querySubjects(ctx, q, args...)
}

// querySubjects читает объекты и догружает их поля одним запросом.
func (s *Storage) querySubjects(ctx context.Context, q string, args ...any) ([]*models.ReviewSubject, error) {
	rows, err := s.db.Query(ctx, q, args...)
	if err != nil {
		return nil, fmt.Errorf("query review_subjects: %w", err)
	}
	subjects, err := scanSubjects(rows)
	if err != nil {
		return nil, err
	}
	if len(subjects) == 0 {
		return subjects, nil
	}
	if err := s.loadFields(ctx, subjects); err != nil {
		return nil, err
	}
	return subjects, nil
}

func scanSubjects(rows pgx.Rows) ([]*models.ReviewSubject, error) {
	defer rows.Close()

	var subjects []*models.ReviewSubject
	for rows.Next() {
		var (
			subj    models.ReviewSubject
			updated time.Time
		)
		if err := rows.Scan(&subj.Scope, &subj.ID, &subj.Title, &subj.Status, &subj.Resolution, &subj.TimePoint, &updated); err != nil {
			return nil, fmt.Errorf("scan review_subjects: %w", err)
		}
		subj.UpdatedAt = &updated
		subj.Fields = make(map[string]string)
		subjects = append(subjects, &subj)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate review_subjects: %w", err)
	}
	return subjects, nil
}

// loadFields заполняет поля объектов одной области.
func (s *Storage) loadFields(ctx context.Context, subjects []*models.ReviewSubject) error {
	const q = `SELECT subject_id, name, value FROM subject_fields WHERE scope = $1 AND subject_id = ANY($2)`

	byID := make(map[string]*models.ReviewSubject, len(subjects))
	ids := make([]string, 0, len(subjects))
	for _, subj := range subjects {
		byID[subj.ID] = subj
		ids = append(ids, subj.ID)
	}

	rows, err := s.db.Query(ctx, q, subjects[0].Scope, ids)
	if err != nil {
		return fmt.Errorf("query subject_fields: %w", err)
	}
	defer rows.Close()

	for rows.Next() {
		var id, name, value string
		if err := rows.Scan(&id, &name, &value); err != nil {
			return fmt.Errorf("scan subject_fields: %w", err)
		}
		if subj, ok := byID[id]; ok {
			subj.Fields[name] = value
		}
	}
	if err := rows.Err(); err != nil {
		return fmt.Errorf("iterate subject_fields: %w", err)
	}
	return nil
}

// SaveSubject сохраняет объект с полями и добавляет запись истории от имени actor.
func (s *Storage) SaveSubject(ctx context.Context, subject *models.ReviewSubject, actor string) error {
	if subject == nil {
		return fmt.Errorf("subject is nil")
	}
	now := s.now()

	return s.withTx(ctx, func(q querier) error {
		const upsertSubject = `
	INSERT INTO review_subjects (
		scope, subject_id, title, status, resolution, time_point, updated_at
	) VALUES ($1, $2, $3, $4, $5, $6, $7)
	ON CONFLICT (scope, subject_id) DO UPDATE
	SET title = EXCLUDED.title,
		status = EXCLUDED.status,
		resolution = EXCLUDED.resolution,
		time_point = EXCLUDED.time_point,
		updated_at = EXCLUDED.updated_at
`
		if _, err := q.Exec(ctx, upsertSubject,
			subject.Scope,
			subject.ID,
			subject.Title,
			subject.Status,
			subject.Resolution,
			subject.TimePoint,
			now,
		); err != nil {
			return fmt.Errorf("upsert review_subjects: %w", err)
		}

		const deleteFields = `DELETE FROM subject_fields WHERE scope = $1 AND subject_id = $2`
		if _, err := q.Exec(ctx, deleteFields, subject.Scope, subject.ID); err != nil {
			return fmt.Errorf("delete subject_fields: %w", err)
		}

		names := make([]string, 0, len(subject.Fields))
		for name := range subject.Fields {
			names = append(names, name)
		}
		sort.Strings(names)

		const insertField = `INSERT INTO subject_fields (scope, subject_id, name, value) VALUES ($1, $2, $3, $4)`
		for _, name := range names {
			if _, err := q.Exec(ctx, insertField, subject.Scope, subject.ID, name, subject.Fields[name]); err != nil {
				return fmt.Errorf("insert subject_field (%s): %w", name, err)
			}
		}

		const insertHistory = `INSERT INTO subject_history (scope, subject_id, status, author, created_at) VALUES ($1, $2, $3, $4, $5)`
		if _, err := q.Exec(ctx, insertHistory, subject.Scope, subject.ID, subject.Status, actor, now); err != nil {
			return fmt.Errorf("insert subject_history: %w", err)
		}

		subject.UpdatedAt = &now
		return nil
	})
}

// History возвращает историю объекта от новых состояний к старым.
// Строки читаются по мере обхода, прерванный обход закрывает курсор.
func (s *Storage) History(ctx context.Context, subject *models.ReviewSubject) iter.Seq2[models.HistorySnapshot, error] {
	const q = `
	SELECT data_revision, status, author, created_at
	FROM subject_history
	WHERE scope = $1 AND subject_id = $2
	ORDER BY created_at DESC, data_revision DESC
	`

	return func(yield func(models.HistorySnapshot, error) bool) {
		rows, err := s.db.Query(ctx, q, subject.Scope, subject.ID)
		if err != nil {
			yield(models.HistorySnapshot{}, fmt.Errorf("query subject_history: %w", err))
			return
		}
		defer rows.Close()

		for rows.Next() {
			var snap models.HistorySnapshot
			if err := rows.Scan(&snap.DataRevision, &snap.Status, &snap.Change.Author, &snap.Change.Created); err != nil {
				yield(models.HistorySnapshot{}, fmt.Errorf("scan subject_history: %w", err))
				return
			}
			snap.Change.Revision = strconv.FormatInt(snap.DataRevision, 10)
			if !yield(snap, nil) {
				return
			}
		}
		if err := rows.Err(); err != nil {
			yield(models.HistorySnapshot{}, fmt.Errorf("iterate subject_history: %w", err))
		}
	}
}

// PerformTransition применяет именованный переход к объекту в памяти; сохранение выполняет SaveSubject.
func (s *Storage) PerformTransition(ctx context.Context, subject *models.ReviewSubject, name, resolution string) error {
	const q = `
	SELECT to_status, requires_resolution
	FROM workflow_transitions
	WHERE scope = $1 AND name = $2 AND from_status = $3
	`

	rows, err := s.db.Query(ctx, q, subject.Scope, name, subject.Status)
	if err != nil {
		return fmt.Errorf("query workflow_transitions: %w", err)
	}
	defer rows.Close()

	if !rows.Next() {
		if err := rows.Err(); err != nil {
			return fmt.Errorf("iterate workflow_transitions: %w", err)
		}
		return domain.NewTransitionUnavailableError(name, subject.Status)
	}

	var (
		toStatus           string
		requiresResolution bool
	)
	if err := rows.Scan(&toStatus, &requiresResolution); err != nil {
		return fmt.Errorf("scan workflow_transitions: %w", err)
	}

	subject.Status = toStatus
	if requiresResolution && resolution != "" {
		subject.Resolution = resolution
	}
	return nil
}

// AddComment добавляет комментарий к объекту.
func (s *Storage) AddComment(ctx context.Context, subject *models.ReviewSubject, author, body string) error {
	const q = `INSERT INTO subject_comments (scope, subject_id, author, body, created_at) VALUES ($1, $2, $3, $4, $5)`
	if _, err := s.db.Exec(ctx, q, subject.Scope, subject.ID, author, body, s.now()); err != nil {
		return fmt.Errorf("insert subject_comments: %w", err)
	}
	return nil
}

// AvailableTransitions возвращает переходы, доступные из текущего статуса объекта.
func (s *Storage) AvailableTransitions(ctx context.Context, subject *models.ReviewSubject) ([]models.Transition, error) {
	const q = `
	SELECT name, from_status, to_status, requires_resolution
	FROM workflow_transitions
	WHERE scope = $1 AND from_status = $2
	ORDER BY name
	`

	rows, err := s.db.Query(ctx, q, subject.Scope, subject.Status)
	if err != nil {
		return nil, fmt.Errorf("query workflow_transitions: %w", err)
	}
	defer rows.Close()

	var transitions []models.Transition
	for rows.Next() {
		var t models.Transition
		if err := rows.Scan(&t.Name, &t.FromStatus, &t.ToStatus, &t.RequiresResolution); err != nil {
			return nil, fmt.Errorf("scan workflow_transitions: %w", err)
		}
		transitions = append(transitions, t)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate workflow_transitions: %w", err)
	}
	return transitions, nil
}
