package httpserver

import (
	"errors"
	"fmt"
	"net/http"

	"github.com/labstack/echo/v4"
	"github.com/piabot/piastats/internal/domain"
	apperrors "github.com/piabot/piastats/internal/errors"
)

func (s *Server) registerAPIRoutes() {
	s.echo.GET("/api/guilds/:id/settings", s.handleGetSettings)
	s.echo.GET("/api/guilds/:id/leaderboard", s.handleGetLeaderboard)
}

func (s *Server) handleGetSettings(c echo.Context) error {
	guildID := c.Param("id")

	settings, err := s.app.GetSettings(c.Request().Context(), guildID)
	if errors.Is(err, domain.ErrSettingsNotFound) {
		return apperrors.NotFoundError("guild has no settings").WithContext("guild_id", guildID)
	}
	if err != nil {
		return apperrors.InternalError("failed to load settings", err).WithContext("guild_id", guildID)
	}

	if err := c.JSON(http.StatusOK, settings); err != nil {
		return fmt.Errorf("failed to send JSON response: %w", err)
	}
	return nil
}

type leaderboardResponse struct {
	GuildID string               `json:"guild_id"`
	Window  string               `json:"window"`
	Members []domain.MemberCount `json:"members"`
}

func (s *Server) handleGetLeaderboard(c echo.Context) error {
	guildID := c.Param("id")
	ctx := c.Request().Context()

	window := c.QueryParam("window")
	if window == "" {
		window = "total"
	}

	var counts []domain.MemberCount
	switch window {
	case "total":
		counts = s.app.TotalLeaderboard(ctx, guildID)
	case "weekly":
		counts = s.app.WeeklyLeaderboard(ctx, guildID)
	default:
		return apperrors.ValidationError("window must be 'total' or 'weekly'").WithContext("window", window)
	}
	if counts == nil {
		counts = []domain.MemberCount{}
	}

	response := leaderboardResponse{GuildID: guildID, Window: window, Members: counts}
	if err := c.JSON(http.StatusOK, response); err != nil {
		return fmt.Errorf("failed to send JSON response: %w", err)
	}
	return nil
}
