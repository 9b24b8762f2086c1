package api

import (
	"errors"
	"net/http"
	"strings"

	"github.com/labstack/echo/v4"

	"github.com/strmforge/strmforge/internal/auth"
)

type setupRequest struct {
	Password string `json:"password"`
}

type loginRequest struct {
	Password string `json:"password"`
}

type loginResponse struct {
	Token string `json:"token"`
}

type authStatusResponse struct {
	RequiresSetup bool `json:"requires_setup"`
	RequiresAuth  bool `json:"requires_auth"`
}

// POST /api/v1/auth/setup - first-time admin password setup
func (s *Server) authSetup(c echo.Context) error {
	ctx := c.Request().Context()

	if s.authService.IsPasswordSet(ctx) {
		return echo.NewHTTPError(http.StatusBadRequest, "password already configured")
	}

	var req setupRequest
	if err := c.Bind(&req); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "invalid request body")
	}
	if len(req.Password) < 8 {
		return echo.NewHTTPError(http.StatusBadRequest, "password must be at least 8 characters")
	}

	if err := s.authService.SetPassword(ctx, req.Password); err != nil {
		return echo.NewHTTPError(http.StatusInternalServerError, "failed to set password")
	}

	token, err := s.authService.GenerateToken()
	if err != nil {
		return echo.NewHTTPError(http.StatusInternalServerError, "failed to generate token")
	}
	return c.JSON(http.StatusCreated, loginResponse{Token: token})
}

// POST /api/v1/auth/login
func (s *Server) login(c echo.Context) error {
	ctx := c.Request().Context()
	ip := c.RealIP()

	if s.loginLimiter.isLockedOut(ip) {
		return echo.NewHTTPError(http.StatusTooManyRequests, "too many failed attempts, try again later")
	}

	var req loginRequest
	if err := c.Bind(&req); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "invalid request body")
	}

	token, err := s.authService.Login(ctx, req.Password)
	if err != nil {
		switch {
		case errors.Is(err, auth.ErrNoPasswordSet):
			return echo.NewHTTPError(http.StatusConflict, "no password configured, run setup first")
		case errors.Is(err, auth.ErrInvalidCredentials):
			s.loginLimiter.recordFailure(ip)
			return echo.NewHTTPError(http.StatusUnauthorized, "invalid credentials")
		default:
			return echo.NewHTTPError(http.StatusInternalServerError, "login failed")
		}
	}

	s.loginLimiter.recordSuccess(ip)
	return c.JSON(http.StatusOK, loginResponse{Token: token})
}

// GET /api/v1/auth/status
func (s *Server) authStatus(c echo.Context) error {
	return c.JSON(http.StatusOK, authStatusResponse{
		RequiresSetup: !s.authService.IsPasswordSet(c.Request().Context()),
		RequiresAuth:  true,
	})
}

// authMiddleware protects API routes with JWT authentication. The
// WebSocket endpoint also accepts the token as a query parameter
// because browsers cannot set headers on upgrade requests.
func (s *Server) authMiddleware() echo.MiddlewareFunc {
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			token := extractBearerToken(c)
			if token == "" {
				token = c.QueryParam("token")
			}
			if token == "" {
				return echo.NewHTTPError(http.StatusUnauthorized, "missing authorization token")
			}

			if _, err := s.authService.ValidateToken(token); err != nil {
				if errors.Is(err, auth.ErrTokenExpired) {
					return echo.NewHTTPError(http.StatusUnauthorized, "token expired")
				}
				return echo.NewHTTPError(http.StatusUnauthorized, "invalid token")
			}
			return next(c)
		}
	}
}

func extractBearerToken(c echo.Context) string {
	header := c.Request().Header.Get(echo.HeaderAuthorization)
	if header == "" {
		return ""
	}
	parts := strings.SplitN(header, " ", 2)
	if len(parts) != 2 || !strings.EqualFold(parts[0], "bearer") {
		return ""
	}
	return parts[1]
}
