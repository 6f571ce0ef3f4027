package repository

import (
	"context"
	"fmt"

	"github.com/jackc/pgx/v5"

	"github.com/AlekseyZapadovnikov/code-review/internal/models"
)

const changeColumns = `c.repository, c.revision, c.author, c.created_at, c.message, c.changed_paths`

// SaveChange сохраняет или обновляет ревизию.
func (s *Storage) SaveChange(ctx context.Context, change models.ChangeRecord) error {
	const q = `
	INSERT INTO change_records (repository, revision, author, created_at, message, changed_paths)
	VALUES ($1, $2, $3, $4, $5, $6)
	ON CONFLICT (repository, revision) DO UPDATE
	SET author = EXCLUDED.author,
		created_at = EXCLUDED.created_at,
		message = EXCLUDED.message,
		changed_paths = EXCLUDED.changed_paths
	`
	paths := change.ChangedPaths
	if paths == nil {
		paths = []string{}
	}
	if _, err := s.db.Exec(ctx, q, change.Repository, change.Revision, change.Author, change.Created, change.Message, paths); err != nil {
		return fmt.Errorf("upsert change_records: %w", err)
	}
	return nil
}

// LinkChange связывает ревизию с объектом, новая связь добавляется в конец списка.
func (s *Storage) LinkChange(ctx context.Context, subject *models.ReviewSubject, change models.ChangeRecord) error {
	const q = `
	INSERT INTO subject_changes (scope, subject_id, repository, revision, position)
	SELECT $1, $2, $3, $4, COALESCE(MAX(position), 0) + 1
	FROM subject_changes WHERE scope = $1 AND subject_id = $2
	ON CONFLICT DO NOTHING
	`
	if _, err := s.db.Exec(ctx, q, subject.Scope, subject.ID, change.Repository, change.Revision); err != nil {
		return fmt.Errorf("insert subject_changes: %w", err)
	}
	return nil
}

// LinkedChanges возвращает ревизии объекта в порядке связывания.
func (s *Storage) LinkedChanges(ctx context.Context, subject *models.ReviewSubject) ([]models.ChangeRecord, error) {
	const q = `
	SELECT ` + changeColumns + `
	FROM subject_changes sc
	JOIN change_records c ON c.repository = sc.repository AND c.revision = sc.revision
	WHERE sc.scope = $1 AND sc.subject_id = $2
	ORDER BY sc.position
	`

	rows, err := s.db.Query(ctx, q, subject.Scope, subject.ID)
	if err != nil {
		return nil, fmt.Errorf("query subject_changes: %w", err)
	}
	return scanChanges(rows)
}

// ChangesInRepository возвращает ревизии репозитория. В основном репозитории ревизии
// упорядочены по номеру начиная с fromRevision, в остальных по времени создания.
func (s *Storage) ChangesInRepository(ctx context.Context, repository, fromRevision string) ([]models.ChangeRecord, error) {
	var (
		rows pgx.Rows
		err  error
	)
	switch {
	case repository == models.DefaultRepository && fromRevision != "":
		const q = `SELECT ` + changeColumns + ` FROM change_records c
	WHERE c.repository = $1 AND c.revision::bigint >= $2::bigint ORDER BY c.revision::bigint`
		rows, err = s.db.Query(ctx, q, repository, fromRevision)
	case repository == models.DefaultRepository:
		const q = `SELECT ` + changeColumns + ` FROM change_records c
	WHERE c.repository = $1 ORDER BY c.revision::bigint`
		rows, err = s.db.Query(ctx, q, repository)
	default:
		const q = `SELECT ` + changeColumns + ` FROM change_records c
	WHERE c.repository = $1 ORDER BY c.created_at, c.revision`
		rows, err = s.db.Query(ctx, q, repository)
	}
	if err != nil {
		return nil, fmt.Errorf("query change_records: %w", err)
	}
	return scanChanges(rows)
}

// SubjectsLinkedTo возвращает объекты области, с которыми связана ревизия.
func (s *Storage) SubjectsLinkedTo(ctx context.Context, scope string, change models.ChangeRecord) ([]*models.ReviewSubject, error) {
	q := `SELECT ` + subjectColumns + `
	FROM subject_changes sc
	JOIN review_subjects s ON s.scope = sc.scope AND s.subject_id = sc.subject_id
	WHERE sc.scope = $1 AND sc.repository = $2 AND sc.revision = $3
	ORDER BY s.subject_id`

	return s.querySubjects(ctx, q, scope, change.Repository, change.Revision)
}

func scanChanges(rows pgx.Rows) ([]models.ChangeRecord, error) {
	defer rows.Close()

	var changes []models.ChangeRecord
	for rows.Next() {
		var c models.ChangeRecord
		if err := rows.Scan(&c.Repository, &c.Revision, &c.Author, &c.Created, &c.Message, &c.ChangedPaths); err != nil {
			return nil, fmt.Errorf("scan change_records: %w", err)
		}
		changes = append(changes, c)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate change_records: %w", err)
	}
	return changes, nil
}
