// Package validator 提供排班冲突检测
package validator

import (
	"fmt"

	"github.com/radioplan/radioplan/pkg/eligibility"
	"github.com/radioplan/radioplan/pkg/logger"
	"github.com/radioplan/radioplan/pkg/model"
)

// ConflictDetector 冲突检测器
type ConflictDetector struct {
	config *DetectorConfig
	logger *logger.SchedulerLogger
}

// DetectorConfig 检测器配置
type DetectorConfig struct {
	CheckAvailability  bool // 缺勤冲突
	CheckExcludedDays  bool // 不上班的工作日
	CheckActivities    bool // 被排除的活动
	CheckDoubleBooking bool // 重复排班
}

// DefaultDetectorConfig 返回默认配置
func DefaultDetectorConfig() *DetectorConfig {
	return &DetectorConfig{
		CheckAvailability:  true,
		CheckExcludedDays:  true,
		CheckActivities:    true,
		CheckDoubleBooking: true,
	}
}

// NewConflictDetector 创建冲突检测器
func NewConflictDetector(config *DetectorConfig) *ConflictDetector {
	if config == nil {
		config = DefaultDetectorConfig()
	}
	return &ConflictDetector{
		config: config,
		logger: logger.NewSchedulerLogger(),
	}
}

// doctorSlots 医生 -> 排班位索引，按首次出现顺序
type doctorSlots struct {
	order []string
	slots map[string][]*model.ScheduleSlot
}

// groupByDoctor 按主医生和副医生分组
func groupByDoctor(slots []model.ScheduleSlot) *doctorSlots {
	idx := &doctorSlots{slots: make(map[string][]*model.ScheduleSlot)}
	for i := range slots {
		s := &slots[i]
		seen := make(map[string]bool, 2)
		for _, id := range s.Doctors() {
			if seen[id] {
				continue
			}
			seen[id] = true
			if _, ok := idx.slots[id]; !ok {
				idx.order = append(idx.order, id)
			}
			idx.slots[id] = append(idx.slots[id], s)
		}
	}
	return idx
}

// DetectAll 检测所有冲突
// 输出顺序：缺勤记录的输入顺序，然后按医生首次出现顺序
func (d *ConflictDetector) DetectAll(
	slots []model.ScheduleSlot,
	unavailabilities []model.Unavailability,
	physicians []model.Physician,
	activities []model.ActivityDefinition,
) []model.Conflict {
	idx := groupByDoctor(slots)
	roster := model.NewRoster(physicians)
	c := &collector{conflicts: []model.Conflict{}, seen: make(map[string]bool)}

	// 1. 缺勤
	if d.config.CheckAvailability {
		for i := range unavailabilities {
			d.detectAbsence(c, &unavailabilities[i], idx.slots[unavailabilities[i].DoctorID])
		}
	}

	// 2. 个人排除项与重复排班
	for _, doctorID := range idx.order {
		mine := idx.slots[doctorID]
		if p := roster.Get(doctorID); p != nil {
			d.detectExclusions(c, p, mine, activities)
		}
		if d.config.CheckDoubleBooking {
			d.detectDoubleBooking(c, doctorID, mine)
		}
	}

	d.logger.ConflictsDetected(len(slots), len(c.conflicts))
	return c.conflicts
}

// DetectForSlot 返回涉及某排班位的冲突
func (d *ConflictDetector) DetectForSlot(
	slotID string,
	slots []model.ScheduleSlot,
	unavailabilities []model.Unavailability,
	physicians []model.Physician,
	activities []model.ActivityDefinition,
) []model.Conflict {
	result := []model.Conflict{}
	for _, c := range d.DetectAll(slots, unavailabilities, physicians, activities) {
		// 重复排班冲突挂在第一个排班位上，第二个需按ID匹配
		if c.SlotID == slotID || c.ID == pairID(c.SlotID, slotID, c.DoctorID) {
			result = append(result, c)
		}
	}
	return result
}

// detectAbsence 检测缺勤冲突
func (d *ConflictDetector) detectAbsence(c *collector, u *model.Unavailability, mine []*model.ScheduleSlot) {
	for _, s := range mine {
		if !eligibility.Covers(u, u.DoctorID, s.Date, s.Period) {
			continue
		}
		c.add(model.Conflict{
			ID:          fmt.Sprintf("conflict-abs-%s-%s", s.ID, u.DoctorID),
			SlotID:      s.ID,
			DoctorID:    u.DoctorID,
			Type:        model.ConflictUnavailable,
			Description: absenceDescription(u),
			Severity:    model.SeverityHigh,
		})
	}
}

// detectExclusions 检测工作日排除和活动排除
func (d *ConflictDetector) detectExclusions(c *collector, p *model.Physician, mine []*model.ScheduleSlot, activities []model.ActivityDefinition) {
	for _, s := range mine {
		if d.config.CheckExcludedDays && p.IsExcludedDay(s.Day) {
			c.add(model.Conflict{
				ID:          fmt.Sprintf("conflict-day-excl-%s-%s", s.ID, p.ID),
				SlotID:      s.ID,
				DoctorID:    p.ID,
				Type:        model.ConflictUnavailable,
				Description: fmt.Sprintf("Ne travaille pas le %s", s.Day),
				Severity:    model.SeverityMedium,
			})
		}
		if d.config.CheckActivities && s.IsActivity() && p.IsExcludedActivity(s.ActivityID) {
			c.add(model.Conflict{
				ID:          fmt.Sprintf("conflict-act-excl-%s-%s", s.ID, p.ID),
				SlotID:      s.ID,
				DoctorID:    p.ID,
				Type:        model.ConflictCompetenceMismatch,
				Description: fmt.Sprintf("Exclu de l'activité : %s", activityLabel(s, activities)),
				Severity:    model.SeverityHigh,
			})
		}
	}
}

// detectDoubleBooking 检测同一时段的重复排班，每对排班位只报告一次
func (d *ConflictDetector) detectDoubleBooking(c *collector, doctorID string, mine []*model.ScheduleSlot) {
	for i := 0; i < len(mine); i++ {
		for j := i + 1; j < len(mine); j++ {
			s1, s2 := mine[i], mine[j]
			if s1.ID == s2.ID || !s1.SameTime(s2) {
				continue
			}
			// 非阻塞排班位不参与
			if !s1.IsBlocking || !s2.IsBlocking {
				continue
			}
			c.add(model.Conflict{
				ID:          pairID(s1.ID, s2.ID, doctorID),
				SlotID:      s1.ID,
				DoctorID:    doctorID,
				Type:        model.ConflictDoubleBooking,
				Description: "Double réservation",
				Severity:    model.SeverityHigh,
			})
		}
	}
}

// collector 按ID去重收集冲突
type collector struct {
	conflicts []model.Conflict
	seen      map[string]bool
}

func (c *collector) add(conflict model.Conflict) {
	if c.seen[conflict.ID] {
		return
	}
	c.seen[conflict.ID] = true
	c.conflicts = append(c.conflicts, conflict)
}

func absenceDescription(u *model.Unavailability) string {
	if u.IsAllDay() {
		return fmt.Sprintf("Absent (%s)", u.Reason)
	}
	return fmt.Sprintf("Absent (%s - %s)", u.Reason, u.Period)
}

// activityLabel 优先使用排班位子类型，缺失时取活动名称
func activityLabel(s *model.ScheduleSlot, activities []model.ActivityDefinition) string {
	if s.SubType != "" {
		return s.SubType
	}
	for i := range activities {
		if activities[i].ID == s.ActivityID {
			return activities[i].Name
		}
	}
	return s.ActivityID
}

func pairID(slotA, slotB, doctorID string) string {
	return fmt.Sprintf("conflict-db-%s-%s-%s", slotA, slotB, doctorID)
}
