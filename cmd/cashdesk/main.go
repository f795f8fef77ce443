// Package main запускает HTTP-сервер сервиса сверки наличных.
package main

import (
	"context"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"github.com/mmeshcher/cashdesk/internal/config"
	"github.com/mmeshcher/cashdesk/internal/handler"
	"github.com/mmeshcher/cashdesk/internal/metrics"
	"github.com/mmeshcher/cashdesk/internal/middleware"
	"github.com/mmeshcher/cashdesk/internal/notify"
	"github.com/mmeshcher/cashdesk/internal/repository"
	"github.com/mmeshcher/cashdesk/internal/service"
)

func main() {
	logger, _ := zap.NewProduction()
	defer logger.Sync()

	sugar := logger.Sugar()

	cfg, err := config.Parse()
	if err != nil {
		sugar.Fatalw("configuration error", "error", err.Error())
	}

	repo, err := repository.NewPostgresRepository(cfg.DatabaseURI)
	if err != nil {
		sugar.Fatalw("database initialization error", "error", err.Error())
	}

	if cfg.EnsureStatusColumn {
		ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		changed, err := repo.EnsureStatusColumn(ctx)
		cancel()
		if err != nil {
			sugar.Fatalw("status column check failed", "error", err.Error())
		}
		sugar.Infow("status column checked", "altered", changed)
	}

	metrics.Init()

	sender, err := newSender(cfg, logger)
	if err != nil {
		sugar.Fatalw("mailer initialization error", "error", err.Error())
	}

	notifier, err := notify.NewNotifier(sender, nil, logger)
	if err != nil {
		sugar.Fatalw("notifier initialization error", "error", err.Error())
	}

	svc := service.NewService(repo, notifier, logger)
	defer func() {
		if err := svc.Close(); err != nil {
			sugar.Errorw("service close error", "error", err)
		}
	}()

	if cfg.SessionSecret == "" {
		sugar.Warn("SESSION_SECRET is empty, sessions will not survive a restart")
	}
	authMiddleware := middleware.NewAuthMiddleware(cfg.SessionSecret)
	h := handler.NewHandler(svc, logger, authMiddleware)

	server := &http.Server{
		Addr:              cfg.RunAddress,
		Handler:           h.SetupRouter(),
		ReadHeaderTimeout: 10 * time.Second,
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	g, ctx := errgroup.WithContext(ctx)

	g.Go(func() error {
		sugar.Infow("starting cashdesk server", "addr", cfg.RunAddress, "mail", cfg.MailEnabled())
		if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			return fmt.Errorf("server error: %w", err)
		}
		return nil
	})

	// Graceful shutdown при отмене контекста (сигнал или ошибка в другой горутине)
	g.Go(func() error {
		<-ctx.Done()
		sugar.Info("shutting down server...")

		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()

		if err := server.Shutdown(shutdownCtx); err != nil {
			return fmt.Errorf("server shutdown error: %w", err)
		}
		sugar.Info("server stopped gracefully")
		return nil
	})

	if err := g.Wait(); err != nil {
		sugar.Errorw("application terminated with error", "error", err)
	}
}

// newSender возвращает SMTP-отправителя, а без SMTP_HOST пишет письма в лог.
func newSender(cfg *config.Config, logger *zap.Logger) (notify.Sender, error) {
	if !cfg.MailEnabled() {
		return notify.NewLogSender(logger), nil
	}

	return notify.NewMailer(notify.MailerConfig{
		Host:     cfg.SMTPHost,
		Port:     cfg.SMTPPort,
		Username: cfg.SMTPUsername,
		Password: cfg.SMTPPassword,
		From:     cfg.MailFrom,
		FromName: cfg.MailFromName,
		Timeout:  30 * time.Second,
	})
}
