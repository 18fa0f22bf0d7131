// Package planner 排班引擎入口：周/月解析、冲突检测、可用医生与替班推荐
//
// 所有入口都是纯计算：不修改输入快照，每次返回新分配的结果。
// 调用方在任何输入变化后重新运行完整流程。
package planner

import (
	"time"

	"github.com/radioplan/radioplan/pkg/calendar"
	"github.com/radioplan/radioplan/pkg/errors"
	"github.com/radioplan/radioplan/pkg/logger"
	"github.com/radioplan/radioplan/pkg/model"
	"github.com/radioplan/radioplan/pkg/overlay"
	"github.com/radioplan/radioplan/pkg/scheduler/resolver"
	"github.com/radioplan/radioplan/pkg/scheduler/solver"
	"github.com/radioplan/radioplan/pkg/swap"
	"github.com/radioplan/radioplan/pkg/validator"
)

// Options 引擎选项
type Options struct {
	MonthWeeks     int // 月视图包含的周数
	MaxSuggestions int // 替班推荐数量上限
}

// DefaultOptions 返回默认选项
func DefaultOptions() Options {
	return Options{
		MonthWeeks:     5,
		MaxSuggestions: 3,
	}
}

// Planner 排班引擎，无内部可变状态，可并发使用
type Planner struct {
	opts        Options
	resolver    *resolver.TemplateResolver
	solver      solver.Solver
	detector    *validator.ConflictDetector
	recommender *swap.Recommender
	logger      *logger.SchedulerLogger
}

// New 创建排班引擎
func New(opts Options) *Planner {
	defaults := DefaultOptions()
	if opts.MonthWeeks <= 0 {
		opts.MonthWeeks = defaults.MonthWeeks
	}
	if opts.MaxSuggestions <= 0 {
		opts.MaxSuggestions = defaults.MaxSuggestions
	}
	return &Planner{
		opts:        opts,
		resolver:    resolver.NewTemplateResolver(),
		solver:      solver.NewGreedySolver(),
		detector:    validator.NewConflictDetector(validator.DefaultDetectorConfig()),
		recommender: swap.NewRecommender(),
		logger:      logger.NewSchedulerLogger(),
	}
}

// Options 返回引擎选项
func (p *Planner) Options() Options {
	return p.opts
}

// WeekResult 完整流程的结果
type WeekResult struct {
	WeekStart       string               `json:"weekStart"`
	Slots           []model.ScheduleSlot `json:"slots"`
	Conflicts       []model.Conflict     `json:"conflicts"`
	Unfilled        []string             `json:"unfilled"`        // 无人可排的活动排班位
	Locked          []string             `json:"locked"`          // 被手动覆盖锁定的排班位
	UnusedOverrides []string             `json:"unusedOverrides"` // 本周没有对应排班位的覆盖键
	ShiftCounts     map[string]int       `json:"shiftCounts,omitempty"`
	Statistics      *solver.Statistics   `json:"statistics,omitempty"`
}

// ResolveWeek 解析一周排班：模板排班位 + 活动排班位，autoFill 时自动分配活动
// 不叠加手动覆盖
func (p *Planner) ResolveWeek(weekStart time.Time, snap *model.Snapshot, autoFill bool) []model.ScheduleSlot {
	snap = orEmpty(snap)
	slots, _ := p.resolveWeek(calendar.MondayOf(weekStart), snap, snap.RcpExceptions, autoFill)
	return slots
}

// ResolveMonth 从 gridStart 所在周起连续解析多周并拼接，不应用会诊例外
func (p *Planner) ResolveMonth(gridStart time.Time, snap *model.Snapshot) []model.ScheduleSlot {
	snap = orEmpty(snap)
	monday := calendar.MondayOf(gridStart)
	var all []model.ScheduleSlot
	for i := 0; i < p.opts.MonthWeeks; i++ {
		slots, _ := p.resolveWeek(calendar.AddDays(monday, 7*i), snap, nil, true)
		all = append(all, slots...)
	}
	return all
}

// DetectConflicts 检测冲突（调用方已叠加手动覆盖）
func (p *Planner) DetectConflicts(
	slots []model.ScheduleSlot,
	unavailabilities []model.Unavailability,
	physicians []model.Physician,
	activities []model.ActivityDefinition,
) []model.Conflict {
	return p.detector.DetectAll(slots, unavailabilities, physicians, activities)
}

// GetAvailableDoctors 返回目标日期时段可接班的医生；date 为空时返回全部
func (p *Planner) GetAvailableDoctors(
	physicians []model.Physician,
	slots []model.ScheduleSlot,
	unavailabilities []model.Unavailability,
	day model.Weekday,
	period model.Period,
	date string,
	slotType model.SlotType,
) []model.Physician {
	return swap.AvailableDoctors(physicians, slots, unavailabilities, day, period, date, slotType)
}

// SuggestReplacements 为冲突排班位推荐替班医生
func (p *Planner) SuggestReplacements(
	slot *model.ScheduleSlot,
	unavailable *model.Physician,
	candidates []model.Physician,
	allSlots []model.ScheduleSlot,
) []model.ReplacementSuggestion {
	return p.recommender.SuggestReplacements(slot, unavailable, candidates, allSlots, &swap.RecommendOptions{
		MaxRecommendations: p.opts.MaxSuggestions,
	})
}

// Pipeline 完整流程：解析 → 自动分配 → 叠加手动覆盖 → 冲突检测
// 自动分配看不到手动覆盖，结果与 overlay.Apply(ResolveWeek(...)) 一致
func (p *Planner) Pipeline(weekStart time.Time, snap *model.Snapshot, autoFill bool) *WeekResult {
	snap = orEmpty(snap)
	monday := calendar.MondayOf(weekStart)
	slots, solved := p.resolveWeek(monday, snap, snap.RcpExceptions, autoFill)
	slots = overlay.Apply(slots, snap.ManualOverrides)

	result := &WeekResult{
		WeekStart:       calendar.FormatDate(monday),
		Slots:           slots,
		Conflicts:       p.detector.DetectAll(slots, snap.Unavailabilities, snap.Doctors, snap.ActivityDefinitions),
		Unfilled:        unfilled(slots),
		Locked:          overlay.Locked(slots),
		UnusedOverrides: overlay.Unused(slots, snap.ManualOverrides),
	}
	if solved != nil {
		result.ShiftCounts = solved.ShiftCounts
		result.Statistics = solved.Statistics
	}
	return result
}

// SuggestForConflict 针对某个冲突：按排班位的日期时段筛选可用医生后推荐
// 原医生本人不会出现在推荐中
func (p *Planner) SuggestForConflict(conflict *model.Conflict, slots []model.ScheduleSlot, snap *model.Snapshot) ([]model.ReplacementSuggestion, error) {
	slot, unavailable, candidates, err := p.candidatesFor(conflict, slots, orEmpty(snap))
	if err != nil {
		return nil, err
	}
	return p.recommender.SuggestReplacements(slot, unavailable, candidates, slots, &swap.RecommendOptions{
		MaxRecommendations: p.opts.MaxSuggestions,
	}), nil
}

// BestReplacement 返回冲突的最佳替班医生，没有可用医生时返回 nil
func (p *Planner) BestReplacement(conflict *model.Conflict, slots []model.ScheduleSlot, snap *model.Snapshot) (*model.ReplacementSuggestion, error) {
	slot, unavailable, candidates, err := p.candidatesFor(conflict, slots, orEmpty(snap))
	if err != nil {
		return nil, err
	}
	return p.recommender.FindBestMatch(slot, unavailable, candidates, slots), nil
}

// ConflictsForSlot 返回涉及某排班位的冲突（含以该排班位为第二方的重复排班）
func (p *Planner) ConflictsForSlot(slotID string, slots []model.ScheduleSlot, snap *model.Snapshot) []model.Conflict {
	snap = orEmpty(snap)
	return p.detector.DetectForSlot(slotID, slots, snap.Unavailabilities, snap.Doctors, snap.ActivityDefinitions)
}

// candidatesFor 查找冲突排班位与原医生，返回除原医生外的可用医生
func (p *Planner) candidatesFor(conflict *model.Conflict, slots []model.ScheduleSlot, snap *model.Snapshot) (*model.ScheduleSlot, *model.Physician, []model.Physician, error) {
	slot := model.FindSlot(slots, conflict.SlotID)
	if slot == nil {
		return nil, nil, nil, errors.SlotNotFound(conflict.SlotID)
	}
	unavailable := snap.FindPhysician(conflict.DoctorID)
	if unavailable == nil {
		return nil, nil, nil, errors.PhysicianUnknown(conflict.DoctorID)
	}

	available := swap.AvailableDoctors(snap.Doctors, slots, snap.Unavailabilities, slot.Day, slot.Period, slot.Date, slot.Type)
	candidates := make([]model.Physician, 0, len(available))
	for _, d := range available {
		if d.ID != unavailable.ID {
			candidates = append(candidates, d)
		}
	}
	return slot, unavailable, candidates, nil
}

// resolveWeek 解析一周，不叠加手动覆盖
func (p *Planner) resolveWeek(
	monday time.Time,
	snap *model.Snapshot,
	exceptions []model.RcpException,
	autoFill bool,
) ([]model.ScheduleSlot, *solver.Result) {
	startTime := time.Now()
	weekStart := calendar.FormatDate(monday)
	p.logger.StartWeek(weekStart, len(snap.Doctors), len(snap.Template))

	slots := p.resolver.Resolve(&resolver.Request{
		WeekStart:      monday,
		Template:       snap.Template,
		Physicians:     snap.Doctors,
		RcpDefinitions: snap.RcpTypes,
		Attendance:     snap.RcpAttendance,
		Exceptions:     exceptions,
	})
	slots = append(slots, resolver.ActivitySlots(monday, snap.ActivityDefinitions)...)

	if !autoFill {
		p.logger.WeekResolved(weekStart, len(slots), 0, time.Since(startTime))
		return slots, nil
	}

	solved := p.solver.Solve(&solver.Request{
		Slots:            slots,
		Activities:       snap.ActivityDefinitions,
		Physicians:       snap.Doctors,
		Unavailabilities: snap.Unavailabilities,
		History:          snap.ShiftHistory,
	})

	p.logger.WeekResolved(weekStart, len(solved.Slots), solved.Statistics.UnfilledSlots, time.Since(startTime))
	return solved.Slots, solved
}

// unfilled 返回仍无人分配且未关闭的活动排班位ID
func unfilled(slots []model.ScheduleSlot) []string {
	ids := []string{}
	for i := range slots {
		s := &slots[i]
		if s.IsActivity() && !s.IsAssigned() && !s.IsClosed {
			ids = append(ids, s.ID)
		}
	}
	return ids
}

func orEmpty(snap *model.Snapshot) *model.Snapshot {
	if snap == nil {
		return &model.Snapshot{}
	}
	return snap
}
