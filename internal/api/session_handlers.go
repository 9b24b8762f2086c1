package api

import (
	"errors"
	"net/http"
	"strconv"

	"github.com/labstack/echo/v4"

	"github.com/strmforge/strmforge/internal/classifier"
	"github.com/strmforge/strmforge/internal/database"
	"github.com/strmforge/strmforge/internal/orchestrator"
	"github.com/strmforge/strmforge/internal/session"
)

// opResponse pairs the human-readable outcome with the state the
// operation changed.
type opResponse struct {
	Message string `json:"message"`
	*session.Delta
}

// opError maps pipeline errors onto HTTP status codes.
func opError(err error) *echo.HTTPError {
	switch {
	case errors.Is(err, session.ErrNotFound):
		return echo.NewHTTPError(http.StatusNotFound, "session not found")
	case errors.Is(err, orchestrator.ErrNotConnected):
		return echo.NewHTTPError(http.StatusConflict, err.Error())
	default:
		return echo.NewHTTPError(http.StatusInternalServerError, err.Error())
	}
}

// POST /api/v1/sessions
func (s *Server) createSession(c echo.Context) error {
	id, err := s.store.Create(c.Request().Context())
	if err != nil {
		return opError(err)
	}
	return c.JSON(http.StatusCreated, map[string]string{"session_id": id})
}

// GET /api/v1/sessions/:id
func (s *Server) getSession(c echo.Context) error {
	id := c.Param("id")
	state, err := s.store.Get(id)
	if err != nil {
		return opError(err)
	}
	s.store.Touch(c.Request().Context(), id)

	status, err := s.orch.Status(id)
	if err != nil {
		return opError(err)
	}
	return c.JSON(http.StatusOK, map[string]interface{}{
		"session_id":       id,
		"source":           status.Source,
		"target":           status.Target,
		"config":           state.Config,
		"scan_summary":     state.ScanSummary,
		"classify_summary": state.ClassifySummary,
		"failed_uploads":   len(state.FailedUploads),
	})
}

// DELETE /api/v1/sessions/:id
func (s *Server) deleteSession(c echo.Context) error {
	if err := s.store.Delete(c.Request().Context(), c.Param("id")); err != nil {
		return opError(err)
	}
	return c.NoContent(http.StatusNoContent)
}

// PUT /api/v1/sessions/:id/config
func (s *Server) updateConfig(c echo.Context) error {
	var patch session.UserConfigPatch
	if err := c.Bind(&patch); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "invalid request body")
	}

	msg, delta, err := s.orch.SetUserConfig(c.Request().Context(), c.Param("id"), patch)
	if err != nil {
		return opError(err)
	}
	return c.JSON(http.StatusOK, opResponse{Message: msg, Delta: delta})
}

// POST /api/v1/sessions/:id/source
func (s *Server) connectSource(c echo.Context) error {
	var cfg session.StorageConfig
	if err := c.Bind(&cfg); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "invalid request body")
	}

	msg, delta, err := s.orch.ConnectSource(c.Request().Context(), c.Param("id"), cfg)
	if err != nil {
		if errors.Is(err, session.ErrNotFound) {
			return opError(err)
		}
		return echo.NewHTTPError(http.StatusBadGateway, err.Error())
	}
	return c.JSON(http.StatusOK, opResponse{Message: msg, Delta: delta})
}

// POST /api/v1/sessions/:id/target
func (s *Server) connectTarget(c echo.Context) error {
	var cfg session.StorageConfig
	if err := c.Bind(&cfg); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "invalid request body")
	}

	msg, delta, err := s.orch.ConnectTarget(c.Request().Context(), c.Param("id"), cfg)
	if err != nil {
		if errors.Is(err, session.ErrNotFound) {
			return opError(err)
		}
		return echo.NewHTTPError(http.StatusBadGateway, err.Error())
	}
	return c.JSON(http.StatusOK, opResponse{Message: msg, Delta: delta})
}

// POST /api/v1/sessions/:id/scan
func (s *Server) scan(c echo.Context) error {
	var req orchestrator.ScanRequest
	if err := c.Bind(&req); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "invalid request body")
	}

	msg, delta, err := s.orch.Scan(c.Request().Context(), c.Param("id"), req)
	if err != nil {
		return opError(err)
	}
	return c.JSON(http.StatusOK, opResponse{Message: msg, Delta: delta})
}

// GET /api/v1/sessions/:id/files?type=video&offset=0&limit=100
func (s *Server) listFiles(c echo.Context) error {
	offset, _ := strconv.Atoi(c.QueryParam("offset"))
	limit, _ := strconv.Atoi(c.QueryParam("limit"))

	page, err := s.orch.ListFiles(c.Param("id"), c.QueryParam("type"), offset, limit)
	if err != nil {
		return opError(err)
	}
	return c.JSON(http.StatusOK, page)
}

type classifyRequest struct {
	Rules []classifier.Rule `json:"rules"`
}

// POST /api/v1/sessions/:id/classify
func (s *Server) classify(c echo.Context) error {
	var req classifyRequest
	if err := c.Bind(&req); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "invalid request body")
	}
	for _, r := range req.Rules {
		if err := r.Validate(); err != nil {
			return echo.NewHTTPError(http.StatusBadRequest, err.Error())
		}
	}

	msg, delta, err := s.orch.Classify(c.Request().Context(), c.Param("id"), req.Rules)
	if err != nil {
		return opError(err)
	}
	return c.JSON(http.StatusOK, opResponse{Message: msg, Delta: delta})
}

// POST /api/v1/sessions/:id/organize
func (s *Server) organize(c echo.Context) error {
	msg, delta, err := s.orch.Organize(c.Request().Context(), c.Param("id"))
	if err != nil {
		return opError(err)
	}
	return c.JSON(http.StatusOK, opResponse{Message: msg, Delta: delta})
}

// POST /api/v1/sessions/:id/strm
func (s *Server) generateSTRM(c echo.Context) error {
	msg, delta, err := s.orch.GenerateSTRM(c.Request().Context(), c.Param("id"))
	if err != nil {
		return opError(err)
	}
	return c.JSON(http.StatusOK, opResponse{Message: msg, Delta: delta})
}

// POST /api/v1/sessions/:id/retry
func (s *Server) retryFailed(c echo.Context) error {
	msg, delta, err := s.orch.RetryFailed(c.Request().Context(), c.Param("id"))
	if err != nil {
		return opError(err)
	}
	return c.JSON(http.StatusOK, opResponse{Message: msg, Delta: delta})
}

// GET /api/v1/sessions/:id/history
func (s *Server) sessionHistory(c echo.Context) error {
	limit, _ := strconv.Atoi(c.QueryParam("limit"))
	rows, err := s.orch.History(c.Request().Context(), c.Param("id"), limit)
	if err != nil {
		return opError(err)
	}
	if rows == nil {
		rows = []database.HistoryRow{}
	}
	return c.JSON(http.StatusOK, rows)
}

// GET /api/v1/sessions/:id/activities
func (s *Server) sessionActivities(c echo.Context) error {
	id := c.Param("id")
	if _, err := s.store.Get(id); err != nil {
		return opError(err)
	}
	return c.JSON(http.StatusOK, s.progress.BySession(id))
}
