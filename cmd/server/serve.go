package main

import (
	"context"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"syscall"

	"github.com/labstack/echo/v4"
	"github.com/labstack/echo/v4/middleware"
	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"noteflow/internal/backup"
	"noteflow/internal/handler"
	"noteflow/internal/logger"
	authmw "noteflow/internal/middleware"
	"noteflow/internal/version"
)

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Run the HTTP API",
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
		defer stop()
		return serve(ctx)
	},
}

func serve(ctx context.Context) error {
	log().Info("Starting Noteflow",
		zap.String("version", version.Version),
		zap.String("data_dir", cfg.DataDir),
		zap.String("store", cfg.Store.Driver),
	)

	a, err := newApp(ctx, cfg, log())
	if err != nil {
		return err
	}
	defer a.Close()
	go a.sessions.Run(ctx)

	var hopts []handler.Option
	if a.assistant != nil {
		hopts = append(hopts, handler.WithAssistant(a.assistant))
	}
	if a.backups != nil {
		hopts = append(hopts, handler.WithBackups(a.backups))
		if cfg.Backup.Schedule != "" {
			sched, err := backup.NewScheduler(cfg.Backup.Schedule, a.backups, log())
			if err != nil {
				return err
			}
			sched.Start()
			defer sched.Stop()
		}
	}
	h := handler.NewHandler(a.sessions, a.gw, log(), hopts...)

	e := echo.New()
	e.HideBanner = true
	e.HidePort = true
	e.Logger.SetOutput(logger.GetLogWriter())

	e.Use(middleware.RequestID())
	e.Use(zapLoggerMiddleware())
	e.Use(middleware.Recover())
	e.Use(middleware.CORS())
	e.Use(middleware.Secure())
	e.Use(middleware.Gzip())
	e.Use(middleware.BodyLimit(cfg.Server.BodyLimit))

	api := e.Group("/api")
	api.GET("/version", func(c echo.Context) error {
		return c.JSON(http.StatusOK, version.GetInfo())
	})

	protected := api.Group("")
	protected.Use(authmw.JWTAuth(cfg.Auth.JWTSecret, cfg.Auth.JWTIssuer))
	h.Register(protected)

	if a.uploads != "" {
		e.Static(cfg.Media.URLPrefix, a.uploads)
	}

	errCh := make(chan error, 1)
	go func() {
		log().Info("Server starting", zap.String("addr", cfg.Server.Address()))
		if err := e.Start(cfg.Server.Address()); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
		close(errCh)
	}()

	select {
	case err := <-errCh:
		if err != nil {
			return err
		}
	case <-ctx.Done():
	}

	log().Info("Shutting down")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.Server.ShutdownTimeout)
	defer cancel()
	if err := e.Shutdown(shutdownCtx); err != nil {
		log().Warn("graceful shutdown failed", zap.Error(err))
	}
	return nil
}
