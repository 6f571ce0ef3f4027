// Package logger строит slog-логгер по конфигурации процесса.
package logger

import (
	"io"
	"log/slog"
	"os"

	"github.com/AlekseyZapadovnikov/code-review/conf"
)

// New возвращает логгер с уровнем, форматом и выводом из cfg. Непустой output заменяет cfg.Output.
func New(cfg conf.LogConf, output io.Writer) *slog.Logger {
	if output == nil {
		switch cfg.Output {
		case "stderr":
			output = os.Stderr
		default:
			output = os.Stdout
		}
	}

	level := new(slog.Level)
	if cfg.Level != "" {
		if err := level.UnmarshalText([]byte(cfg.Level)); err != nil {
			level = new(slog.Level)
		}
	}
	opts := &slog.HandlerOptions{Level: level}

	var handler slog.Handler
	switch cfg.Format {
	case "json":
		handler = slog.NewJSONHandler(output, opts)
	default:
		handler = slog.NewTextHandler(output, opts)
	}
	return slog.New(handler)
}

// Setup создаёт логгер и делает его логгером по умолчанию.
func Setup(cfg conf.LogConf) *slog.Logger {
	l := New(cfg, nil)
	slog.SetDefault(l)
	return l
}
