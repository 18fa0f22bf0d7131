package resolver

import (
	"fmt"
	"time"

	"github.com/radioplan/radioplan/pkg/calendar"
	"github.com/radioplan/radioplan/pkg/model"
)

// ActivitySlots 为每个活动生成一周的空排班位（工作日 × 上午/下午）
func ActivitySlots(weekStart time.Time, activities []model.ActivityDefinition) []model.ScheduleSlot {
	slots := make([]model.ScheduleSlot, 0, len(activities)*len(model.Weekdays)*len(model.HalfDays))
	for i := range activities {
		act := &activities[i]
		for _, day := range model.Weekdays {
			date := calendar.DateForWeekday(weekStart, day)
			for _, period := range model.HalfDays {
				slots = append(slots, model.ScheduleSlot{
					ID:         ActivitySlotID(act.ID, date, period),
					Date:       date,
					Day:        day,
					Period:     period,
					Location:   act.Name,
					Type:       model.SlotActivity,
					SubType:    act.Name,
					ActivityID: act.ID,
					IsBlocking: !act.AllowDoubleBooking,
				})
			}
		}
	}
	return slots
}

// ActivitySlotID 活动排班位ID
func ActivitySlotID(activityID, date string, period model.Period) string {
	return fmt.Sprintf("act-%s-%s-%s", activityID, date, period)
}
