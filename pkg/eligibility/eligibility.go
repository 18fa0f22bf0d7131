// Package eligibility 提供医生可排班资格判断
package eligibility

import (
	"github.com/radioplan/radioplan/pkg/calendar"
	"github.com/radioplan/radioplan/pkg/model"
)

// IsAbsent 检查医生在某日期某时段是否缺勤
// 全天缺勤覆盖所有时段，半天缺勤只覆盖相同时段
func IsAbsent(doctorID, date string, period model.Period, unavailabilities []model.Unavailability) bool {
	for i := range unavailabilities {
		if Covers(&unavailabilities[i], doctorID, date, period) {
			return true
		}
	}
	return false
}

// Covers 检查单条不可用记录是否覆盖医生的某日期时段
func Covers(u *model.Unavailability, doctorID, date string, period model.Period) bool {
	if u.DoctorID != doctorID {
		return false
	}
	if !calendar.InRange(date, u.StartDate, u.EndDate) {
		return false
	}
	if u.IsAllDay() {
		return true
	}
	return u.Period == period
}

// IsEligibleForActivity 检查医生能否被分配到某活动的排班位
func IsEligibleForActivity(p *model.Physician, activityID string, day model.Weekday, date string, period model.Period, unavailabilities []model.Unavailability) bool {
	// 1. 个人排除项
	if p.IsExcludedActivity(activityID) {
		return false
	}
	if p.IsExcludedDay(day) {
		return false
	}

	// 2. 缺勤
	return !IsAbsent(p.ID, date, period, unavailabilities)
}

// IsAvailable 检查医生在某日期时段是否可接班（缺勤、工作日、类别排除）
// slotType 为空时不检查类别
func IsAvailable(p *model.Physician, day model.Weekday, date string, period model.Period, slotType model.SlotType, unavailabilities []model.Unavailability) bool {
	if IsAbsent(p.ID, date, period, unavailabilities) {
		return false
	}
	if p.IsExcludedDay(day) {
		return false
	}
	if slotType != "" && IsExcludedFromSlotType(p, slotType) {
		return false
	}
	return true
}

// IsExcludedFromSlotType 检查医生是否被排除在某排班类别之外
func IsExcludedFromSlotType(p *model.Physician, slotType model.SlotType) bool {
	return p.IsExcludedSlotType(slotType)
}
