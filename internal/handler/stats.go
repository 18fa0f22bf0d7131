package handler

import (
	"net/http"

	"github.com/labstack/echo/v4"

	"github.com/radioplan/radioplan/internal/metrics"
	"github.com/radioplan/radioplan/pkg/calendar"
	apperrors "github.com/radioplan/radioplan/pkg/errors"
	"github.com/radioplan/radioplan/pkg/model"
	"github.com/radioplan/radioplan/pkg/stats"
)

// StatsRequest 统计请求，scope 为 week（默认）或 month
type StatsRequest struct {
	WeekRequest
	Scope string `json:"scope,omitempty"`
}

// EquityResponse 公平性报告，?compare=previous 时附带与上一窗口的比较
type EquityResponse struct {
	*stats.EquityReport
	Comparison map[string]float64 `json:"comparison,omitempty"`
}

// Equity 活动班次公平性
func (h *Handler) Equity(c echo.Context) error {
	var req StatsRequest
	if err := bind(c, &req); err != nil {
		return err
	}
	slots, _, snap, err := h.window(c, &req)
	if err != nil {
		return err
	}

	analyzer := stats.NewEquityAnalyzer()
	report := analyzer.Analyze(slots, snap.Doctors, snap.ActivityDefinitions, snap.ShiftHistory)
	for _, a := range report.Activities {
		metrics.RecordEquity(a.ActivityID, a.Score)
	}

	resp := EquityResponse{EquityReport: report}
	switch c.QueryParam("compare") {
	case "":
	case "previous":
		before, err := h.previousWindow(&req, snap)
		if err != nil {
			return err
		}
		resp.Comparison = analyzer.CompareWindows(before, slots, snap.Doctors, snap.ActivityDefinitions, snap.ShiftHistory)
	default:
		return apperrors.InvalidInput("compare", "仅支持 previous")
	}
	return c.JSON(http.StatusOK, resp)
}

// Coverage 覆盖率，?format=text 返回文本报告
func (h *Handler) Coverage(c echo.Context) error {
	var req StatsRequest
	if err := bind(c, &req); err != nil {
		return err
	}
	slots, _, _, err := h.window(c, &req)
	if err != nil {
		return err
	}

	analyzer := stats.NewCoverageAnalyzer()
	report := analyzer.Analyze(slots)
	if c.QueryParam("format") == "text" {
		return c.String(http.StatusOK, analyzer.Report(report))
	}
	return c.JSON(http.StatusOK, report)
}

// window 按统计范围解析排班位，月范围不做冲突检测
func (h *Handler) window(c echo.Context, req *StatsRequest) ([]model.ScheduleSlot, []model.Conflict, *model.Snapshot, error) {
	snap, err := h.snapshotFor(c.Request().Context(), req.Snapshot)
	if err != nil {
		return nil, nil, nil, err
	}

	if req.Scope != "month" {
		result, err := h.pipeline(c, req.Week, snap, req.autoFill())
		if err != nil {
			return nil, nil, nil, err
		}
		return result.Slots, result.Conflicts, snap, nil
	}

	start, err := h.parseWeek("week", req.Week)
	if err != nil {
		return nil, nil, nil, err
	}
	return h.planner.ResolveMonth(calendar.MondayOf(start), snap), nil, snap, nil
}

// previousWindow 紧邻当前统计范围之前、长度相同的窗口
func (h *Handler) previousWindow(req *StatsRequest, snap *model.Snapshot) ([]model.ScheduleSlot, error) {
	start, err := h.parseWeek("week", req.Week)
	if err != nil {
		return nil, err
	}
	monday := calendar.MondayOf(start)
	if req.Scope == "month" {
		weeks := h.planner.Options().MonthWeeks
		return h.planner.ResolveMonth(calendar.AddDays(monday, -7*weeks), snap), nil
	}
	return h.planner.Pipeline(calendar.AddDays(monday, -7), snap, req.autoFill()).Slots, nil
}
