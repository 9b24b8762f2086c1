package api

import (
	"net/http"
	"os"

	"github.com/labstack/echo/v4"

	"github.com/strmforge/strmforge/internal/logger"
)

// GET /api/v1/logs - recent entries from the streaming ring buffer.
func (s *Server) recentLogs(c echo.Context) error {
	logs := s.logsProvider.GetRecentLogs()
	if logs == nil {
		logs = []logger.LogEntry{}
	}
	return c.JSON(http.StatusOK, logs)
}

// GET /api/v1/logs/download - the current log file.
func (s *Server) downloadLogFile(c echo.Context) error {
	logPath := s.logsProvider.LogFilePath()
	if logPath == "" {
		return echo.NewHTTPError(http.StatusNotFound, "no log file configured")
	}
	if _, err := os.Stat(logPath); os.IsNotExist(err) {
		return echo.NewHTTPError(http.StatusNotFound, "log file not found")
	}
	return c.Attachment(logPath, "strmforge.log")
}
