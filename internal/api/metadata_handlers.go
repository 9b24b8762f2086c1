package api

import (
	"errors"
	"net/http"
	"strconv"

	"github.com/labstack/echo/v4"

	"github.com/strmforge/strmforge/internal/media"
	"github.com/strmforge/strmforge/internal/metadata/tmdb"
)

// GET /api/v1/metadata/search?type=tv&query=...&year=2023
func (s *Server) searchMetadata(c echo.Context) error {
	kind := media.Kind(c.QueryParam("type"))
	query := c.QueryParam("query")
	year, _ := strconv.Atoi(c.QueryParam("year"))

	results, err := s.orch.LookupMetadata(c.Request().Context(), kind, query, year)
	if err != nil {
		return metadataError(err)
	}
	return c.JSON(http.StatusOK, results)
}

// GET /api/v1/metadata/:type/:id
func (s *Server) metadataDetails(c echo.Context) error {
	kind := media.Kind(c.Param("type"))
	id, err := strconv.ParseInt(c.Param("id"), 10, 64)
	if err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "invalid id")
	}

	details, err := s.orch.MetadataDetails(c.Request().Context(), kind, id)
	if err != nil {
		return metadataError(err)
	}
	return c.JSON(http.StatusOK, details)
}

func metadataError(err error) *echo.HTTPError {
	switch {
	case errors.Is(err, tmdb.ErrNotFound):
		return echo.NewHTTPError(http.StatusNotFound, "title not found")
	case errors.Is(err, tmdb.ErrAPIKeyMissing):
		return echo.NewHTTPError(http.StatusServiceUnavailable, "metadata provider is not configured")
	case errors.Is(err, tmdb.ErrRateLimited):
		return echo.NewHTTPError(http.StatusTooManyRequests, "metadata provider rate limited")
	default:
		return echo.NewHTTPError(http.StatusBadGateway, err.Error())
	}
}
