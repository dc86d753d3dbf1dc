// Package httpserver exposes health probes, metrics, and a read-only guild
// API over HTTP. All writes go through the external command layer, never
// through this surface.
package httpserver

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/labstack/echo/v4"
	"github.com/piabot/piastats/internal/domain"
	"github.com/piabot/piastats/internal/platform/config"
)

// appService is the slice of the application layer the HTTP surface needs.
type appService interface {
	GetSettings(ctx context.Context, guildID string) (*domain.GuildSettings, error)
	TotalLeaderboard(ctx context.Context, guildID string) []domain.MemberCount
	WeeklyLeaderboard(ctx context.Context, guildID string) []domain.MemberCount
}

type Server struct {
	echo         *echo.Echo
	config       *config.Config
	app          appService
	healthChecks []HealthCheck
}

func NewServer(cfg *config.Config, app appService, healthChecks []HealthCheck) *Server {
	e := echo.New()
	e.HideBanner = true
	e.HidePort = true

	srv := &Server{
		echo:         e,
		config:       cfg,
		app:          app,
		healthChecks: healthChecks,
	}
	srv.registerRoutes()
	return srv
}

func (s *Server) Start() error {
	slog.Info("Starting server", "port", s.config.Port)
	if err := s.echo.Start(":" + s.config.Port); err != nil {
		return fmt.Errorf("failed to start server: %w", err)
	}
	return nil
}

func (s *Server) Shutdown(ctx context.Context) error {
	if err := s.echo.Shutdown(ctx); err != nil {
		return fmt.Errorf("failed to shutdown server: %w", err)
	}
	return nil
}
