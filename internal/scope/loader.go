package scope

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"regexp"
	"sync"

	"github.com/go-playground/validator/v10"
	"gopkg.in/yaml.v3"

	"github.com/AlekseyZapadovnikov/code-review/internal/domain"
	"github.com/AlekseyZapadovnikov/code-review/internal/models"
	"github.com/AlekseyZapadovnikov/code-review/internal/review"
)

const fileExt = ".yaml"

var (
	scopeNameRegex  = regexp.MustCompile(`^[A-Za-z0-9][A-Za-z0-9_.-]*$`)
	settingsChecker = validator.New()
)

// Settings конфигурация ревью области с предкомпилированным шаблоном fast-track.
type Settings struct {
	models.ScopeConfig
	fastTrack *regexp.Regexp
}

// FastTrackConfigured сообщает, настроены ли шаблон путей и ревьюер fast-track.
func (s *Settings) FastTrackConfigured() bool {
	return s.fastTrack != nil && s.FastTrackReviewer != ""
}

// PathPermittedForFastTrack проверяет путь целиком по шаблону fast-track.
func (s *Settings) PathPermittedForFastTrack(path string) bool {
	if s.fastTrack == nil {
		return false
	}
	return s.fastTrack.MatchString(path)
}

// Parse разбирает и валидирует YAML-конфигурацию области.
func Parse(data []byte) (*Settings, error) {
	var cfg models.ScopeConfig
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return nil, fmt.Errorf("%w: parse scope config: %w", domain.ErrConfig, err)
	}
	if err := settingsChecker.Struct(cfg); err != nil {
		return nil, fmt.Errorf("%w: invalid scope config: %w", domain.ErrConfig, err)
	}

	if cfg.FastTrackReviewer != "" && !review.ValidReviewer(cfg.FastTrackReviewer) {
		return nil, fmt.Errorf("%w: fastTrackReviewer %q must not contain ',' or '\\'", domain.ErrConfig, cfg.FastTrackReviewer)
	}

	s := &Settings{ScopeConfig: cfg}
	if cfg.FastTrackPermittedPathPattern != "" {
		re, err := regexp.Compile(`^(?:` + cfg.FastTrackPermittedPathPattern + `)$`)
		if err != nil {
			return nil, fmt.Errorf("%w: fastTrackPermittedLocationPattern: %w", domain.ErrConfig, err)
		}
		s.fastTrack = re
	}
	return s, nil
}

// Loader загружает конфигурации областей из каталога и кэширует их.
type Loader struct {
	dir   string
	cache map[string]*Settings
	mu    sync.RWMutex
}

// NewLoader создаёт загрузчик для каталога с файлами <scope>.yaml.
func NewLoader(dir string) *Loader {
	return &Loader{
		dir:   dir,
		cache: make(map[string]*Settings),
	}
}

// Get возвращает конфигурацию области, читая файл только при первом обращении.
func (l *Loader) Get(_ context.Context, scope string) (*Settings, error) {
	l.mu.RLock()
	s, ok := l.cache[scope]
	l.mu.RUnlock()
	if ok {
		return s, nil
	}

	if !scopeNameRegex.MatchString(scope) {
		return nil, domain.NewConfigError("invalid scope name %q", scope)
	}
	path := filepath.Join(l.dir, scope+fileExt)
	data, err := os.ReadFile(path)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return nil, domain.NewConfigError("no review configuration for scope %s", scope)
		}
		return nil, fmt.Errorf("read %s: %w", path, err)
	}
	s, err = Parse(data)
	if err != nil {
		return nil, fmt.Errorf("scope %s: %w", scope, err)
	}

	l.mu.Lock()
	defer l.mu.Unlock()
	if cached, ok := l.cache[scope]; ok {
		return cached, nil
	}
	l.cache[scope] = s
	return s, nil
}

// Invalidate удаляет область из кэша, следующая загрузка перечитает файл.
func (l *Loader) Invalidate(scope string) {
	l.mu.Lock()
	defer l.mu.Unlock()
	delete(l.cache, scope)
}
