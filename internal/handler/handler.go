// Package handler 提供HTTP请求处理器
package handler

import (
	"context"
	"errors"
	"net/http"
	"time"

	"github.com/labstack/echo/v4"

	"github.com/radioplan/radioplan/internal/repository"
	"github.com/radioplan/radioplan/pkg/calendar"
	apperrors "github.com/radioplan/radioplan/pkg/errors"
	"github.com/radioplan/radioplan/pkg/logger"
	"github.com/radioplan/radioplan/pkg/model"
	"github.com/radioplan/radioplan/pkg/planner"
)

// Handler 排班服务处理器
type Handler struct {
	planner *planner.Planner
	store   repository.SnapshotStore
	version string
	now     func() time.Time
	checks  map[string]HealthCheck
}

// HealthCheck 依赖健康检查
type HealthCheck func(ctx context.Context) error

// New 创建处理器
func New(p *planner.Planner, store repository.SnapshotStore, version string) *Handler {
	return &Handler{
		planner: p,
		store:   store,
		version: version,
		now:     time.Now,
		checks:  make(map[string]HealthCheck),
	}
}

// WithHealthCheck 注册依赖健康检查，/health 逐项执行
func (h *Handler) WithHealthCheck(name string, check HealthCheck) *Handler {
	h.checks[name] = check
	return h
}

// Register 注册路由
func (h *Handler) Register(e *echo.Echo) {
	e.GET("/health", h.Health)
	e.GET("/version", h.Version)

	api := e.Group("/api/v1")

	schedule := api.Group("/schedule")
	schedule.POST("/week", h.Week)
	schedule.POST("/month", h.Month)
	schedule.POST("/conflicts", h.Conflicts)
	schedule.POST("/available", h.Available)
	schedule.POST("/replacements", h.Replacements)
	schedule.POST("/replacements/apply", h.ApplyReplacement)

	api.GET("/config", h.GetConfig)
	api.PUT("/config", h.PutConfig)
	api.GET("/config/export", h.ExportConfig)
	api.GET("/config/versions", h.ListVersions)
	api.DELETE("/config/doctors/:id", h.DeleteDoctor)
	api.PUT("/config/rcp-types/:id", h.UpdateRcpType)
	api.POST("/config/rcp-types", h.AddRcpType)
	api.DELETE("/config/rcp-types/:id", h.DeleteRcpType)
	api.POST("/config/postes", h.AddPoste)
	api.DELETE("/config/postes/:name", h.DeletePoste)
	api.POST("/config/unavailabilities", h.AddUnavailability)
	api.DELETE("/config/unavailabilities/:id", h.DeleteUnavailability)
	api.PUT("/config/rcp-exceptions", h.PutRcpException)
	api.DELETE("/config/rcp-exceptions/:templateId/:date", h.DeleteRcpException)
	api.PUT("/config/attendance", h.PutAttendance)
	api.PUT("/config/overrides", h.PutOverrides)

	api.POST("/stats/equity", h.Equity)
	api.POST("/stats/coverage", h.Coverage)

	api.POST("/export", h.Export)

	api.GET("/holidays/:year", h.Holidays)
}

// ErrorHandler 统一错误响应格式
func ErrorHandler(err error, c echo.Context) {
	if c.Response().Committed {
		return
	}

	var appErr *apperrors.AppError
	var httpErr *echo.HTTPError
	switch {
	case errors.As(err, &appErr):
	case errors.As(err, &httpErr):
		msg, _ := httpErr.Message.(string)
		if msg == "" {
			msg = http.StatusText(httpErr.Code)
		}
		appErr = apperrors.New(codeForStatus(httpErr.Code), msg)
		appErr.HTTPStatus = httpErr.Code
	default:
		appErr = apperrors.Wrap(err, apperrors.CodeInternal, "服务器内部错误")
	}

	if appErr.HTTPStatus >= http.StatusInternalServerError {
		logger.WithContext(c.Request().Context()).Error().Err(err).Msg("请求处理失败")
	}

	body := map[string]interface{}{
		"error":   true,
		"code":    appErr.Code,
		"message": appErr.Message,
	}
	if appErr.Details != "" {
		body["details"] = appErr.Details
	}
	if len(appErr.Fields) > 0 {
		body["fields"] = appErr.Fields
	}

	if c.Request().Method == http.MethodHead {
		_ = c.NoContent(appErr.HTTPStatus)
		return
	}
	_ = c.JSON(appErr.HTTPStatus, body)
}

func codeForStatus(status int) apperrors.Code {
	switch status {
	case http.StatusBadRequest:
		return apperrors.CodeInvalidInput
	case http.StatusNotFound, http.StatusMethodNotAllowed:
		return apperrors.CodeNotFound
	case http.StatusTooManyRequests:
		return apperrors.CodeRateLimited
	case http.StatusUnauthorized:
		return apperrors.CodeUnauthorized
	case http.StatusForbidden:
		return apperrors.CodeForbidden
	default:
		return apperrors.CodeInternal
	}
}

// snapshotFor 请求内联快照优先，否则读取最新保存的快照
func (h *Handler) snapshotFor(ctx context.Context, inline *model.Snapshot) (*model.Snapshot, error) {
	if inline != nil {
		return inline, nil
	}
	record, err := h.store.Latest(ctx)
	if err != nil {
		return nil, err
	}
	return record.Snapshot, nil
}

// parseWeek 解析周参数，为空时取本周
func (h *Handler) parseWeek(field, value string) (time.Time, error) {
	if value == "" {
		return calendar.MondayOf(h.now()), nil
	}
	t, err := calendar.ParseDate(value)
	if err != nil {
		return time.Time{}, apperrors.InvalidDate(field, value)
	}
	return t, nil
}

func bind(c echo.Context, req interface{}) error {
	if err := c.Bind(req); err != nil {
		return apperrors.Wrap(err, apperrors.CodeInvalidInput, "解析请求失败")
	}
	return nil
}
