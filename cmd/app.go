package main

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/AlekseyZapadovnikov/code-review/conf"
	"github.com/AlekseyZapadovnikov/code-review/internal/assigner"
	"github.com/AlekseyZapadovnikov/code-review/internal/checker"
	"github.com/AlekseyZapadovnikov/code-review/internal/gitsource"
	"github.com/AlekseyZapadovnikov/code-review/internal/logger"
	"github.com/AlekseyZapadovnikov/code-review/internal/notify"
	"github.com/AlekseyZapadovnikov/code-review/internal/repository"
	"github.com/AlekseyZapadovnikov/code-review/internal/scope"
	"github.com/AlekseyZapadovnikov/code-review/internal/service"
	"github.com/AlekseyZapadovnikov/code-review/internal/web"
)

var _ service.Store = (*repository.Storage)(nil)

// app собранные зависимости процесса.
type app struct {
	cfg     *conf.Config
	logger  *slog.Logger
	storage *repository.Storage
	manager *service.ReviewManager
}

// newApp загружает конфигурацию, подключается к базе и собирает менеджер ревью.
func newApp(ctx context.Context) (*app, error) {
	cfg, err := conf.Load(configPath)
	if err != nil {
		return nil, err
	}
	log := logger.Setup(cfg.Log)
	log.Info("Configuration loaded successfully", "config_path", configPath)
	log.Info("Database configuration", "host", cfg.DBConf.Host, "port", cfg.DBConf.Port, "user", cfg.DBConf.User, "database", cfg.DBConf.Name)

	storage, err := repository.NewStorage(ctx, &cfg.DBConf, repository.WithLocation(cfg.Location()))
	if err != nil {
		return nil, fmt.Errorf("database initialization failed: %w", err)
	}
	log.Info("Database storage initialized successfully")

	actor := service.DefaultActor
	if cfg.Assigner != nil && cfg.Assigner.Actor != "" {
		actor = cfg.Assigner.Actor
	}
	manager := service.NewReviewManager(storage, scope.NewLoader(cfg.ScopeConfigDir), transactor(storage), log, service.WithActor(actor))
	log.Info("Review manager created successfully", "scope_config_dir", cfg.ScopeConfigDir)

	return &app{cfg: cfg, logger: log, storage: storage, manager: manager}, nil
}

// transactor открывает транзакцию на s, а вложенные вызовы открывают точки сохранения.
func transactor(s *repository.Storage) service.Transactor {
	return func(ctx context.Context, rollback bool, fn func(service.Store, service.Transactor) error) error {
		return s.RunInTx(ctx, rollback, func(scoped *repository.Storage) error {
			return fn(scoped, transactor(scoped))
		})
	}
}

func (a *app) close() {
	a.storage.Close()
}

// assignJob возвращает джобу назначения или nil, если она не настроена.
func (a *app) assignJob() *assigner.Job {
	c := a.cfg.Assigner
	if c == nil {
		return nil
	}
	return assigner.NewJob(assigner.JobParams{
		Scope:                  c.Scope,
		ReviewerRole:           c.ReviewerRole,
		ReviewedItemsQuery:     c.ReviewedItemsQuery,
		ToBeReviewedItemsQuery: c.ToBeReviewedItemsQuery,
		DebugMode:              c.DebugMode,
		StrictFairness:         c.StrictFairness,
	}, a.manager, a.logger, a.cfg.Location())
}

// checkJob возвращает проверяющую джобу или nil, если она не настроена.
func (a *app) checkJob() *checker.Job {
	c := a.cfg.Checker
	if c == nil {
		return nil
	}
	locations := make([]checker.RepositoryLocation, 0, len(c.RepositoryLocations))
	for _, l := range c.RepositoryLocations {
		locations = append(locations, checker.RepositoryLocation{
			Repository:   l.Repository,
			FromRevision: l.FromRevision,
			GitPath:      l.GitPath,
		})
	}
	return checker.NewJob(checker.JobParams{
		Scope:                     c.Scope,
		RepositoryLocations:       locations,
		PermittedItemsQuery:       c.PermittedItemsQuery,
		NotificationReceivers:     c.NotificationReceivers,
		NotificationSender:        c.NotificationSender,
		NotificationSubjectPrefix: c.NotificationSubjectPrefix,
		BaseURL:                   a.cfg.HTTPServConf.BaseURL,
	}, a.manager, gitsource.NewReader(a.logger), a.notifier(), a.logger)
}

func (a *app) notifier() notify.Notifier {
	s := a.cfg.SMTP
	if s == nil {
		return &notify.LogNotifier{Logger: a.logger}
	}
	return notify.NewSMTPNotifier(s.Host, s.Port, s.User, s.Password, s.Attempts, a.logger)
}

// webJobs собирает джобы для HTTP-слоя без nil-указателей внутри интерфейсов.
func (a *app) webJobs() web.Jobs {
	var jobs web.Jobs
	if j := a.assignJob(); j != nil {
		jobs.Assign = j
	}
	if j := a.checkJob(); j != nil {
		jobs.Check = j
	}
	return jobs
}
