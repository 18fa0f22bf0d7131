// Package swap 提供替班候选与推荐
package swap

import (
	"github.com/radioplan/radioplan/pkg/eligibility"
	"github.com/radioplan/radioplan/pkg/model"
)

// AvailableDoctors 返回在目标日期时段可接班的医生，保持名册顺序
// date 为空时不做任何过滤；slotType 为空时不检查类别排除
func AvailableDoctors(
	physicians []model.Physician,
	slots []model.ScheduleSlot,
	unavailabilities []model.Unavailability,
	day model.Weekday,
	period model.Period,
	date string,
	slotType model.SlotType,
) []model.Physician {
	result := make([]model.Physician, 0, len(physicians))
	for i := range physicians {
		p := &physicians[i]
		if date != "" {
			if !eligibility.IsAvailable(p, day, date, period, slotType, unavailabilities) {
				continue
			}
			if isBusy(slots, p.ID, date, period) {
				continue
			}
		}
		result = append(result, *p)
	}
	return result
}

// isBusy 检查医生是否已占用同一日期时段的阻塞排班位（主医生或副医生）
func isBusy(slots []model.ScheduleSlot, doctorID, date string, period model.Period) bool {
	for i := range slots {
		s := &slots[i]
		if s.Date == date && s.Period == period && s.IsBlocking && s.HasDoctor(doctorID) {
			return true
		}
	}
	return false
}
