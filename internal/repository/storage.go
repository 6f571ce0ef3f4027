package repository

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/AlekseyZapadovnikov/code-review/conf"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"
)

// DBPool описывает минимальный интерфейс пула подключений к PostgreSQL.
type DBPool interface {
	Query(ctx context.Context, sql string, args ...any) (pgx.Rows, error)
	Exec(ctx context.Context, sql string, arguments ...any) (pgconn.CommandTag, error)
	Begin(ctx context.Context) (pgx.Tx, error)
	Close()
}

// querier общий интерфейс пула и открытой транзакции.
type querier interface {
	Query(ctx context.Context, sql string, args ...any) (pgx.Rows, error)
	Exec(ctx context.Context, sql string, arguments ...any) (pgconn.CommandTag, error)
	Begin(ctx context.Context) (pgx.Tx, error)
}

// Storage инкапсулирует пул подключений и реализует возможности хоста поверх PostgreSQL.
type Storage struct {
	pool     DBPool
	db       querier
	inTx     bool
	now      func() time.Time
	location *time.Location
}

// Option настраивает Storage.
type Option func(*Storage)

// WithClock задаёт источник текущего времени.
func WithClock(now func() time.Time) Option {
	return func(s *Storage) { s.now = now }
}

// WithLocation задаёт часовой пояс для календарных условий запросов.
func WithLocation(loc *time.Location) Option {
	return func(s *Storage) { s.location = loc }
}

// NewStorage создаёт пул подключений к PostgreSQL и проверяет соединение.
func NewStorage(ctx context.Context, cfg *conf.DbConf, opts ...Option) (*Storage, error) {
	pool, err := pgxpool.New(ctx, cfg.DSN())
	if err != nil {
		return nil, fmt.Errorf("unable to create connection pool: %w", err)
	}

	if err := pool.Ping(ctx); err != nil {
		pool.Close()
		return nil, fmt.Errorf("failed to ping database: %w", err)
	}

	return newStorage(pool, opts...), nil
}

func newStorage(pool DBPool, opts ...Option) *Storage {
	s := &Storage{
		pool:     pool,
		db:       pool,
		now:      time.Now,
		location: time.Local,
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Close закрывает пул подключений, когда он больше не нужен.
func (s *Storage) Close() {
	if s.pool != nil && !s.inTx {
		s.pool.Close()
	}
}

// RunInTx выполняет fn в одной транзакции. При rollback все изменения отменяются даже при успехе fn.
// Вложенный вызов открывает точку сохранения: ошибка внутри него откатывает только его изменения,
// и внешняя транзакция остаётся пригодной.
func (s *Storage) RunInTx(ctx context.Context, rollback bool, fn func(*Storage) error) (err error) {
	kind := "tx"
	if s.inTx {
		kind = "savepoint"
	}

	tx, err := s.db.Begin(ctx)
	if err != nil {
		return fmt.Errorf("begin %s: %w", kind, err)
	}

	committed := false
	defer func() {
		if !committed {
			if rollbackErr := tx.Rollback(ctx); rollbackErr != nil {
				err = errors.Join(err, fmt.Errorf("rollback %s: %w", kind, rollbackErr))
			}
		}
	}()

	scoped := &Storage{pool: s.pool, db: tx, inTx: true, now: s.now, location: s.location}
	if err := fn(scoped); err != nil {
		return err
	}
	if rollback {
		return nil
	}

	if err := tx.Commit(ctx); err != nil {
		return fmt.Errorf("commit %s: %w", kind, err)
	}
	committed = true
	return nil
}

// withTx выполняет fn в транзакции, открывая её только если Storage ещё не в транзакции.
func (s *Storage) withTx(ctx context.Context, fn func(q querier) error) error {
	if s.inTx {
		return fn(s.db)
	}
	return s.RunInTx(ctx, false, func(scoped *Storage) error {
		return fn(scoped.db)
	})
}
