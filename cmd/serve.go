package main

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/AlekseyZapadovnikov/code-review/internal/web"
)

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Run the HTTP API",
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx := context.Background()
		a, err := newApp(ctx)
		if err != nil {
			return err
		}
		defer a.close()

		// Поднимаем HTTP-сервер.
		server := web.New(a.cfg.HTTPServConf, a.manager, a.webJobs())
		slog.Info("HTTP server created successfully", "address", server.Address)

		// Запускаем сервер в отдельной горутине.
		errCh := make(chan error, 1)
		go func() {
			if err := server.Start(); err != nil && !errors.Is(err, http.ErrServerClosed) {
				errCh <- err
			}
		}()

		slog.Info("Code review service started successfully", "address", server.Address)

		// Ожидаем сигнал остановки для плавного завершения работы.
		quit := make(chan os.Signal, 1)
		signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
		select {
		case err := <-errCh:
			return err
		case <-quit:
		}
		slog.Info("Shutting down server...")

		// Выполняем корректное завершение сервера с тайм-аутом.
		if err := server.Shutdown(ctx); err != nil {
			return err
		}

		slog.Info("Server exited properly")
		return nil
	},
}
