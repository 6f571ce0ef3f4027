package conf

import (
	"encoding/json"
	"fmt"
	"net"
	"net/url"
	"os"
	"regexp"
	"strconv"
	"strings"
	"time"

	"github.com/go-playground/validator/v10"
)

var (
	configValidator = newConfigValidator()
	numberRegex     = regexp.MustCompile(`^\d+$`)
)

type Config struct {
	HTTPServConf   HttpServConf  `json:"httpServer" validate:"required"`
	DBConf         DbConf        `json:"dataBase" validate:"required"`
	Log            LogConf       `json:"log"`
	ScopeConfigDir string        `json:"scopeConfigDir" validate:"required"`
	Timezone       string        `json:"timezone" validate:"omitempty,timezone"`
	Assigner       *AssignerConf `json:"assigner"`
	Checker        *CheckerConf  `json:"checker"`
	SMTP           *SmtpConf     `json:"smtp"`
}

type HttpServConf struct {
	Host    string `json:"host" validate:"required"`
	Port    string `json:"port" validate:"required,min=1,max=65535"`
	BaseURL string `json:"baseURL"`
}

// GetAddress возвращает строку host:port для запуска HTTP-сервера.
func (s *HttpServConf) GetAddress() string {
	return fmt.Sprintf("%s:%s", s.Host, s.Port)
}

type DbConf struct {
	Host     string `json:"host" validate:"required"`
	Port     string `json:"port" validate:"required,is-number"`
	User     string `json:"user" validate:"required"`
	Password string `json:"password" validate:"required"`
	Name     string `json:"name" validate:"required"`
}

// DSN возвращает строку подключения к PostgreSQL.
func (d *DbConf) DSN() string {
	u := url.URL{
		Scheme:   "postgres",
		User:     url.UserPassword(d.User, d.Password),
		Host:     net.JoinHostPort(d.Host, d.Port),
		Path:     d.Name,
		RawQuery: "sslmode=disable",
	}
	return u.String()
}

type LogConf struct {
	Level  string `json:"level" validate:"omitempty,oneof=debug info warn error"`
	Format string `json:"format" validate:"omitempty,oneof=json text"`
	Output string `json:"output" validate:"omitempty,oneof=stdout stderr"`
}

// AssignerConf параметры джобы назначения ревьюеров.
type AssignerConf struct {
	Scope                  string `json:"scope" validate:"required"`
	ReviewerRole           string `json:"reviewerRole" validate:"required"`
	ReviewedItemsQuery     string `json:"reviewedItemsQuery" validate:"required"`
	ToBeReviewedItemsQuery string `json:"toBeReviewedItemsQuery" validate:"required"`
	DebugMode              bool   `json:"debugMode"`
	StrictFairness         bool   `json:"strictFairness"`
	Actor                  string `json:"actor"`
}

// CheckerConf параметры проверяющей джобы.
type CheckerConf struct {
	Scope                     string                   `json:"scope" validate:"required"`
	NotificationReceivers     []string                 `json:"notificationReceivers" validate:"dive,email"`
	NotificationSender        string                   `json:"notificationSender" validate:"omitempty,email"`
	NotificationSubjectPrefix string                   `json:"notificationSubjectPrefix"`
	RepositoryLocations       []RepositoryLocationConf `json:"repositoryLocations" validate:"required,min=1,dive"`
	PermittedItemsQuery       string                   `json:"permittedItemsQuery"`
}

// RepositoryLocationConf расположение проверяемого репозитория.
type RepositoryLocationConf struct {
	Repository   string `json:"repository" validate:"required"`
	FromRevision string `json:"revision"`
	GitPath      string `json:"gitPath"`
}

type SmtpConf struct {
	Host     string `json:"host" validate:"required"`
	Port     string `json:"port" validate:"required,is-number"`
	User     string `json:"user"`
	Password string `json:"password"`
	Attempts uint   `json:"attempts"`
}

// Location возвращает часовой пояс для календарных вычислений; по умолчанию локальный.
func (c *Config) Location() *time.Location {
	if c.Timezone == "" {
		return time.Local
	}
	loc, err := time.LoadLocation(c.Timezone)
	if err != nil {
		return time.Local
	}
	return loc
}

// Load читает файл конфигурации, применяет значения из окружения и валидирует структуру.
func Load(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("could not read config file: %w", err)
	}

	var cfg Config
	if err := json.Unmarshal(data, &cfg); err != nil {
		return nil, fmt.Errorf("could not parse config file: %w", err)
	}

	applyEnvOverrides(&cfg)

	if err := configValidator.Struct(cfg); err != nil {
		return nil, fmt.Errorf("invalid config: %w", err)
	}

	return &cfg, nil
}

// MustLoad то же, что Load, но паникует при ошибке.
func MustLoad(path string) *Config {
	cfg, err := Load(path)
	if err != nil {
		panic(err.Error())
	}
	return cfg
}

// applyEnvOverrides подменяет поля конфигурации значениями из переменных окружения.
func applyEnvOverrides(cfg *Config) {
	override := func(key string, target *string) {
		if val := os.Getenv(key); val != "" {
			*target = val
		}
	}

	override("HTTP_HOST", &cfg.HTTPServConf.Host)
	override("HTTP_PORT", &cfg.HTTPServConf.Port)
	override("HTTP_BASE_URL", &cfg.HTTPServConf.BaseURL)

	override("DB_HOST", &cfg.DBConf.Host)
	override("DB_PORT", &cfg.DBConf.Port)
	override("DB_USER", &cfg.DBConf.User)
	override("DB_PASSWORD", &cfg.DBConf.Password)
	override("DB_NAME", &cfg.DBConf.Name)

	override("LOG_LEVEL", &cfg.Log.Level)
	override("LOG_FORMAT", &cfg.Log.Format)
	override("LOG_OUTPUT", &cfg.Log.Output)

	override("SCOPE_CONFIG_DIR", &cfg.ScopeConfigDir)
	override("TIMEZONE", &cfg.Timezone)

	if host := os.Getenv("SMTP_HOST"); host != "" && cfg.SMTP == nil {
		cfg.SMTP = &SmtpConf{Port: "25"}
	}
	if cfg.SMTP != nil {
		override("SMTP_HOST", &cfg.SMTP.Host)
		override("SMTP_PORT", &cfg.SMTP.Port)
		override("SMTP_USER", &cfg.SMTP.User)
		override("SMTP_PASSWORD", &cfg.SMTP.Password)
		if val := os.Getenv("SMTP_ATTEMPTS"); val != "" {
			if n, err := strconv.ParseUint(strings.TrimSpace(val), 10, 32); err == nil {
				cfg.SMTP.Attempts = uint(n)
			}
		}
	}
}

// newConfigValidator настраивает валидатор и регистрирует пользовательские проверки.
func newConfigValidator() *validator.Validate {
	v := validator.New()
	if err := v.RegisterValidation("is-number", func(fl validator.FieldLevel) bool {
		return numberRegex.MatchString(fl.Field().String())
	}); err != nil {
		panic("failed to register is-number validation: " + err.Error())
	}
	return v
}
