package handler

import (
	"context"
	"net/http"
	"strconv"
	"time"

	"github.com/labstack/echo/v4"

	"github.com/radioplan/radioplan/pkg/calendar"
	apperrors "github.com/radioplan/radioplan/pkg/errors"
)

// Health 健康检查
func (h *Handler) Health(c echo.Context) error {
	ctx, cancel := context.WithTimeout(c.Request().Context(), 3*time.Second)
	defer cancel()

	status := "healthy"
	code := http.StatusOK
	checks := make(map[string]string, len(h.checks))
	for name, check := range h.checks {
		if err := check(ctx); err != nil {
			checks[name] = err.Error()
			status = "unhealthy"
			code = http.StatusServiceUnavailable
			continue
		}
		checks[name] = "ok"
	}

	return c.JSON(code, map[string]interface{}{
		"status": status,
		"checks": checks,
		"time":   h.now().Format(time.RFC3339),
	})
}

// Version 版本信息
func (h *Handler) Version(c echo.Context) error {
	return c.JSON(http.StatusOK, map[string]string{
		"name":    "radioplan",
		"version": h.version,
	})
}

// Holidays 某年的法定节假日
func (h *Handler) Holidays(c echo.Context) error {
	year, err := strconv.Atoi(c.Param("year"))
	if err != nil || year < 1900 || year > 2999 {
		return apperrors.InvalidInput("year", "应为四位年份")
	}
	return c.JSON(http.StatusOK, calendar.HolidaysForYear(year))
}
