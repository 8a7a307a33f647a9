package bridge

import (
	"context"
	"net/http"

	"github.com/labstack/echo/v4"
	"github.com/labstack/echo/v4/middleware"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.uber.org/zap"

	"github.com/happypartner/voicelink/domain"
	"github.com/happypartner/voicelink/internal/auth"
)

// ErrorResponse is the JSON error envelope for bridge endpoints.
type ErrorResponse struct {
	Error   string `json:"error"`
	Message string `json:"message"`
}

// Server is the local UI bridge: a small HTTP server that exposes the
// conversation over a websocket, parental-control settings over REST,
// and operational endpoints. It binds to localhost next to the UI.
type Server struct {
	echo     *echo.Echo
	hub      *Hub
	settings *SettingsStore
	secret   []byte
	logger   *zap.Logger
}

// NewServer wires the bridge routes. An empty secret disables token
// validation on the websocket, for local development.
func NewServer(hub *Hub, settings *SettingsStore, secret string, logger *zap.Logger) *Server {
	s := &Server{
		echo:     echo.New(),
		hub:      hub,
		settings: settings,
		secret:   []byte(secret),
		logger:   logger,
	}

	s.echo.HideBanner = true
	s.echo.HidePort = true
	s.echo.Use(middleware.Recover())

	s.echo.GET("/health", s.health)
	s.echo.GET("/metrics", echo.WrapHandler(promhttp.Handler()))
	s.echo.GET("/ws", s.websocket)

	v1 := s.echo.Group("/api/v1")
	v1.GET("/parental-controls", s.getParentalControls)
	v1.PUT("/parental-controls", s.updateParentalControls)

	return s
}

// Start serves on address until Shutdown.
func (s *Server) Start(address string) error {
	s.logger.Info("bridge listening", zap.String("address", address))
	if err := s.echo.Start(address); err != nil && err != http.ErrServerClosed {
		return err
	}
	return nil
}

// Shutdown stops the HTTP server gracefully.
func (s *Server) Shutdown(ctx context.Context) error {
	return s.echo.Shutdown(ctx)
}

func (s *Server) health(c echo.Context) error {
	return c.JSON(http.StatusOK, map[string]string{
		"status":  "ok",
		"service": "voicelink-bridge",
	})
}

// websocket validates the session token when a secret is configured,
// then hands the connection to the hub.
func (s *Server) websocket(c echo.Context) error {
	userID := ""
	if len(s.secret) > 0 {
		token, err := auth.FromAuthorizationHeader(c.Request().Header.Get("Authorization"))
		if err != nil {
			// Browsers cannot set headers on websocket dials, so a
			// token query parameter is accepted too.
			token = c.QueryParam("token")
		}
		if token == "" {
			s.logger.Warn("websocket rejected: missing token")
			return c.JSON(http.StatusUnauthorized, ErrorResponse{
				Error:   "missing_token",
				Message: "A session token is required",
			})
		}

		claims, err := auth.ParseToken(token, s.secret)
		if err != nil {
			s.logger.Warn("websocket rejected: invalid token", zap.Error(err))
			return c.JSON(http.StatusUnauthorized, ErrorResponse{
				Error:   "invalid_token",
				Message: "Invalid or expired session token",
			})
		}
		userID = claims.UserID
	}

	return HandleWebSocket(s.hub, c, userID, s.logger)
}

func (s *Server) getParentalControls(c echo.Context) error {
	return c.JSON(http.StatusOK, s.settings.Get())
}

func (s *Server) updateParentalControls(c echo.Context) error {
	var settings domain.ParentControlSettings
	if err := c.Bind(&settings); err != nil {
		s.logger.Error("failed to bind parental-control request", zap.Error(err))
		return c.JSON(http.StatusBadRequest, ErrorResponse{
			Error:   "invalid_request",
			Message: "Invalid request format",
		})
	}

	if settings.UserID == "" {
		settings.UserID = s.settings.Get().UserID
	}

	if err := s.settings.Update(settings); err != nil {
		return c.JSON(http.StatusBadRequest, ErrorResponse{
			Error:   "invalid_settings",
			Message: err.Error(),
		})
	}

	s.logger.Info("parental controls updated",
		zap.Bool("safety_filter", settings.SafetyFilterOn),
		zap.Int("blocked_keywords", len(settings.BlockedKeywords)))

	return c.JSON(http.StatusOK, s.settings.Get())
}
