package handler

import (
	"net/http"
	"time"

	"github.com/labstack/echo/v4"

	"github.com/radioplan/radioplan/internal/metrics"
	"github.com/radioplan/radioplan/pkg/calendar"
	apperrors "github.com/radioplan/radioplan/pkg/errors"
	"github.com/radioplan/radioplan/pkg/logger"
	"github.com/radioplan/radioplan/pkg/model"
	"github.com/radioplan/radioplan/pkg/planner"
	"github.com/radioplan/radioplan/pkg/snapshot"
	"github.com/radioplan/radioplan/pkg/swap"
)

// WeekRequest 周排班请求
type WeekRequest struct {
	Week     string          `json:"week"`               // YYYY-MM-DD，任意一天，默认本周
	AutoFill *bool           `json:"autoFill,omitempty"` // 默认 true
	Snapshot *model.Snapshot `json:"snapshot,omitempty"` // 为空时使用最新保存的配置
}

func (r *WeekRequest) autoFill() bool {
	return r.AutoFill == nil || *r.AutoFill
}

// MonthRequest 月视图请求
type MonthRequest struct {
	Start    string          `json:"start"` // 网格起始日期
	Snapshot *model.Snapshot `json:"snapshot,omitempty"`
}

// MonthResponse 月视图响应
type MonthResponse struct {
	Start string               `json:"start"`
	Weeks int                  `json:"weeks"`
	Slots []model.ScheduleSlot `json:"slots"`
}

// AvailableRequest 可用医生请求
type AvailableRequest struct {
	Date     string          `json:"date"` // 为空时返回全部医生
	Period   model.Period    `json:"period"`
	SlotType model.SlotType  `json:"slotType"`
	Snapshot *model.Snapshot `json:"snapshot,omitempty"`
}

// ReplacementsRequest 替班推荐请求
type ReplacementsRequest struct {
	Week       string          `json:"week"`
	ConflictID string          `json:"conflictId"`
	Snapshot   *model.Snapshot `json:"snapshot,omitempty"`
}

// ReplacementsResponse 替班推荐响应
type ReplacementsResponse struct {
	Conflict      model.Conflict                `json:"conflict"`
	SlotConflicts []model.Conflict              `json:"slotConflicts"` // 同一排班位上的全部冲突
	Suggestions   []model.ReplacementSuggestion `json:"suggestions"`
}

// ApplyReplacementRequest 采纳替班：doctorId 为空时采用得分最高的推荐
// 只作用于最新保存的配置
type ApplyReplacementRequest struct {
	Week       string `json:"week"`
	ConflictID string `json:"conflictId"`
	DoctorID   string `json:"doctorId,omitempty"`
}

// ApplyReplacementResponse 采纳替班的结果
type ApplyReplacementResponse struct {
	Version    int                         `json:"version"`
	Suggestion model.ReplacementSuggestion `json:"suggestion"`
	Slot       model.ScheduleSlot          `json:"slot"`
	Remaining  []model.Conflict            `json:"remaining"` // 替换后该排班位仍存在的冲突
}

// Week 解析一周：自动分配、叠加手动覆盖并检测冲突
func (h *Handler) Week(c echo.Context) error {
	var req WeekRequest
	if err := bind(c, &req); err != nil {
		return err
	}
	result, err := h.pipeline(c, req.Week, req.Snapshot, req.autoFill())
	if err != nil {
		return err
	}
	return c.JSON(http.StatusOK, result)
}

// Conflicts 只返回一周的冲突
func (h *Handler) Conflicts(c echo.Context) error {
	var req WeekRequest
	if err := bind(c, &req); err != nil {
		return err
	}
	result, err := h.pipeline(c, req.Week, req.Snapshot, req.autoFill())
	if err != nil {
		return err
	}
	return c.JSON(http.StatusOK, map[string]interface{}{
		"weekStart": result.WeekStart,
		"conflicts": result.Conflicts,
		"unfilled":  result.Unfilled,
	})
}

// Month 月视图，连续解析多周，不应用会诊例外与手动覆盖
func (h *Handler) Month(c echo.Context) error {
	var req MonthRequest
	if err := bind(c, &req); err != nil {
		return err
	}
	start, err := h.parseWeek("start", req.Start)
	if err != nil {
		return err
	}
	snap, err := h.snapshotFor(c.Request().Context(), req.Snapshot)
	if err != nil {
		return err
	}

	begin := time.Now()
	slots := h.planner.ResolveMonth(start, snap)
	metrics.RecordResolution("month", time.Since(begin))

	return c.JSON(http.StatusOK, MonthResponse{
		Start: calendar.FormatDate(calendar.MondayOf(start)),
		Weeks: h.planner.Options().MonthWeeks,
		Slots: slots,
	})
}

// Available 返回某日期时段可接班的医生
func (h *Handler) Available(c echo.Context) error {
	var req AvailableRequest
	if err := bind(c, &req); err != nil {
		return err
	}
	snap, err := h.snapshotFor(c.Request().Context(), req.Snapshot)
	if err != nil {
		return err
	}

	if req.Date == "" {
		return c.JSON(http.StatusOK, h.planner.GetAvailableDoctors(snap.Doctors, nil, snap.Unavailabilities, "", req.Period, "", req.SlotType))
	}

	t, err := calendar.ParseDate(req.Date)
	if err != nil {
		return apperrors.InvalidDate("date", req.Date)
	}
	if !req.Period.IsHalfDay() {
		return apperrors.InvalidInput("period", "应为 MORNING 或 AFTERNOON")
	}
	day, ok := calendar.WeekdayOf(req.Date)
	if !ok {
		return apperrors.InvalidInput("date", "周末不排班")
	}

	week := h.planner.Pipeline(t, snap, true)
	doctors := h.planner.GetAvailableDoctors(snap.Doctors, week.Slots, snap.Unavailabilities, day, req.Period, req.Date, req.SlotType)
	return c.JSON(http.StatusOK, doctors)
}

// Replacements 为某个冲突推荐替班医生
func (h *Handler) Replacements(c echo.Context) error {
	var req ReplacementsRequest
	if err := bind(c, &req); err != nil {
		return err
	}
	if req.ConflictID == "" {
		return apperrors.InvalidInput("conflictId", "不能为空")
	}
	week, err := h.parseWeek("week", req.Week)
	if err != nil {
		return err
	}
	snap, err := h.snapshotFor(c.Request().Context(), req.Snapshot)
	if err != nil {
		return err
	}

	result := h.planner.Pipeline(week, snap, true)
	conflict := findConflict(result.Conflicts, req.ConflictID)
	if conflict == nil {
		return apperrors.NotFound("conflict", req.ConflictID)
	}
	suggestions, err := h.planner.SuggestForConflict(conflict, result.Slots, snap)
	if err != nil {
		return err
	}
	slotConflicts := h.planner.ConflictsForSlot(conflict.SlotID, result.Slots, snap)
	return c.JSON(http.StatusOK, ReplacementsResponse{
		Conflict:      *conflict,
		SlotConflicts: slotConflicts,
		Suggestions:   suggestions,
	})
}

// ApplyReplacement 采纳替班：以手动覆盖强制分配替班医生并保存为新版本
// 只能替换排班位的主医生
func (h *Handler) ApplyReplacement(c echo.Context) error {
	ctx := c.Request().Context()
	var req ApplyReplacementRequest
	if err := bind(c, &req); err != nil {
		return err
	}
	if req.ConflictID == "" {
		return apperrors.InvalidInput("conflictId", "不能为空")
	}
	week, err := h.parseWeek("week", req.Week)
	if err != nil {
		return err
	}
	current, err := h.store.Latest(ctx)
	if err != nil {
		return err
	}
	snap := current.Snapshot

	result := h.planner.Pipeline(week, snap, true)
	conflict := findConflict(result.Conflicts, req.ConflictID)
	if conflict == nil {
		return apperrors.NotFound("conflict", req.ConflictID)
	}
	slot := model.FindSlot(result.Slots, conflict.SlotID)
	if slot == nil {
		return apperrors.SlotNotFound(conflict.SlotID)
	}
	if slot.AssignedDoctorID != conflict.DoctorID {
		return apperrors.InvalidInput("conflictId", "只能替换排班位的主医生")
	}

	var suggestion model.ReplacementSuggestion
	if req.DoctorID == "" {
		best, err := h.planner.BestReplacement(conflict, result.Slots, snap)
		if err != nil {
			return err
		}
		if best == nil {
			return apperrors.NotFound("replacement", conflict.ID)
		}
		suggestion = *best
	} else {
		if snap.FindPhysician(req.DoctorID) == nil {
			return apperrors.PhysicianUnknown(req.DoctorID)
		}
		suggestion = model.ReplacementSuggestion{
			OriginalDoctorID:  conflict.DoctorID,
			SuggestedDoctorID: req.DoctorID,
			Reasoning:         "Choix manuel",
		}
	}

	replaced := swap.ApplyReplacement(*slot, suggestion)
	replaced.IsLocked = true
	preview := model.CloneSlots(result.Slots)
	for i := range preview {
		if preview[i].ID == replaced.ID {
			preview[i] = replaced
		}
	}

	updated := snapshot.SetOverride(snap, slot.ID, suggestion.SuggestedDoctorID)
	record, err := h.store.Save(ctx, updated, c.QueryParam("label"))
	if err != nil {
		return err
	}
	metrics.RecordSnapshotSaved()

	logger.WithContext(ctx).Info().
		Str("slot_id", slot.ID).
		Str("original", suggestion.OriginalDoctorID).
		Str("replacement", suggestion.SuggestedDoctorID).
		Int("version", record.Version).
		Msg("替班已采纳")

	return c.JSON(http.StatusOK, ApplyReplacementResponse{
		Version:    record.Version,
		Suggestion: suggestion,
		Slot:       replaced,
		Remaining:  h.planner.ConflictsForSlot(slot.ID, preview, snap),
	})
}

func findConflict(conflicts []model.Conflict, id string) *model.Conflict {
	for i := range conflicts {
		if conflicts[i].ID == id {
			return &conflicts[i]
		}
	}
	return nil
}

// pipeline 解析一周并记录指标
func (h *Handler) pipeline(c echo.Context, weekParam string, inline *model.Snapshot, autoFill bool) (*planner.WeekResult, error) {
	week, err := h.parseWeek("week", weekParam)
	if err != nil {
		return nil, err
	}
	snap, err := h.snapshotFor(c.Request().Context(), inline)
	if err != nil {
		return nil, err
	}

	begin := time.Now()
	result := h.planner.Pipeline(week, snap, autoFill)
	metrics.RecordResolution("week", time.Since(begin))

	byType := make(map[string]int)
	for _, conflict := range result.Conflicts {
		byType[string(conflict.Type)]++
	}
	metrics.RecordConflicts(byType, len(result.Unfilled))

	logger.WithContext(c.Request().Context()).Debug().
		Str("week_start", result.WeekStart).
		Int("slots", len(result.Slots)).
		Int("conflicts", len(result.Conflicts)).
		Msg("周排班已解析")
	return result, nil
}
