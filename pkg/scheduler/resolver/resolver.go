// Package resolver 将周模板解析为具体日期的排班位
package resolver

import (
	"fmt"
	"time"

	"github.com/radioplan/radioplan/pkg/calendar"
	"github.com/radioplan/radioplan/pkg/logger"
	"github.com/radioplan/radioplan/pkg/model"
)

// Request 模板解析输入
type Request struct {
	WeekStart      time.Time // 周一
	Template       []model.WeeklyTemplateSlot
	Physicians     []model.Physician
	RcpDefinitions []model.RcpDefinition
	Attendance     model.RcpAttendance
	Exceptions     []model.RcpException
}

// TemplateResolver 模板解析器
type TemplateResolver struct {
	logger *logger.SchedulerLogger
}

// NewTemplateResolver 创建模板解析器
func NewTemplateResolver() *TemplateResolver {
	return &TemplateResolver{
		logger: logger.NewSchedulerLogger(),
	}
}

// Resolve 解析一周的模板排班位，按模板顺序输出
func (r *TemplateResolver) Resolve(req *Request) []model.ScheduleSlot {
	roster := model.NewRoster(req.Physicians)
	odd := calendar.IsOddWeek(req.WeekStart)

	slots := make([]model.ScheduleSlot, 0, len(req.Template))
	for i := range req.Template {
		t := &req.Template[i]

		// 1. 频率过滤
		if !occursInWeek(t, req.RcpDefinitions, odd) {
			continue
		}

		// 2. 日期解析（含会诊例外）
		standardDate := calendar.DateForWeekday(req.WeekStart, t.Day)
		date, day, period := standardDate, t.Day, t.Period
		timeOfDay := t.Time
		if t.Type == model.SlotRCP {
			if ex := findException(req.Exceptions, t.ID, standardDate); ex != nil {
				if ex.IsCancelled {
					continue
				}
				if ex.NewDate != "" {
					date = ex.NewDate
					if d, ok := calendar.WeekdayOf(date); ok {
						day = d
					}
					if ex.NewPeriod != "" {
						period = ex.NewPeriod
					}
					if ex.NewTime != "" {
						timeOfDay = ex.NewTime
					}
				}
			}
		}

		slot := model.ScheduleSlot{
			ID:          SlotID(t.ID, standardDate),
			Date:        date,
			Day:         day,
			Period:      period,
			Time:        timeOfDay,
			Location:    t.Location,
			Type:        t.Type,
			SubType:     t.SubType,
			IsBlocking:  t.Blocking(),
			IsGenerated: true,
		}

		// 3. 人员解析
		if t.Type == model.SlotRCP {
			r.assignRcp(&slot, t, req.Attendance[slot.ID])
		} else {
			slot.AssignedDoctorID, slot.SecondaryDoctorIDs = t.Assignees()
		}
		slot.BackupDoctorID = t.BackupDoctorID

		// 4. 清理已删除医生的引用
		r.dropZombies(&slot, roster)

		slots = append(slots, slot)
	}
	return slots
}

// assignRcp 会诊排班：已确认出席优先，否则按日期确定性选择
func (r *TemplateResolver) assignRcp(slot *model.ScheduleSlot, t *model.WeeklyTemplateSlot, attendance model.AttendanceRecord) {
	if present := attendance.Present(); len(present) > 0 {
		slot.AssignedDoctorID = present[0]
		slot.SecondaryDoctorIDs = present[1:]
		return
	}

	slot.IsUnconfirmed = true
	pool := t.DoctorList()
	if len(pool) == 0 {
		return
	}
	slot.AssignedDoctorID = pool[UnconfirmedIndex(slot.Date, len(pool))]
}

// dropZombies 移除名册中已不存在的医生
func (r *TemplateResolver) dropZombies(slot *model.ScheduleSlot, roster *model.Roster) {
	if slot.AssignedDoctorID != "" && !roster.Has(slot.AssignedDoctorID) {
		r.logger.ZombieReference(slot.ID, slot.AssignedDoctorID)
		slot.AssignedDoctorID = ""
	}
	if slot.BackupDoctorID != "" && !roster.Has(slot.BackupDoctorID) {
		r.logger.ZombieReference(slot.ID, slot.BackupDoctorID)
		slot.BackupDoctorID = ""
	}
	if len(slot.SecondaryDoctorIDs) > 0 {
		slot.SecondaryDoctorIDs = roster.Filter(slot.SecondaryDoctorIDs)
	}
}

// UnconfirmedIndex 未确认会诊的主医生下标：日期中的日 mod 候选人数
func UnconfirmedIndex(date string, poolSize int) int {
	if poolSize <= 0 {
		return 0
	}
	return calendar.DayOfMonth(date) % poolSize
}

// SlotID 模板排班位ID，始终基于标准日期，改期后保持不变
func SlotID(templateID, standardDate string) string {
	return fmt.Sprintf("%s-%s", templateID, standardDate)
}

// occursInWeek 检查模板排班位在该周是否出现
func occursInWeek(t *model.WeeklyTemplateSlot, defs []model.RcpDefinition, odd bool) bool {
	if def := findRcpDefinition(defs, t.Location); def != nil && def.Frequency == model.FrequencyBiweekly {
		switch def.WeekParity {
		case model.ParityEven:
			return !odd
		default:
			// ODD 与未设置时都只在奇数周出现
			return odd
		}
	}
	if t.IsBiweekly() {
		return odd
	}
	return true
}

func findRcpDefinition(defs []model.RcpDefinition, location string) *model.RcpDefinition {
	for i := range defs {
		if defs[i].Name == location {
			return &defs[i]
		}
	}
	return nil
}

func findException(exceptions []model.RcpException, templateID, standardDate string) *model.RcpException {
	for i := range exceptions {
		if exceptions[i].Matches(templateID, standardDate) {
			return &exceptions[i]
		}
	}
	return nil
}
