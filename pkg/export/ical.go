package export

import (
	"fmt"
	"strings"
	"time"

	ics "github.com/arran4/golang-ical"

	"github.com/radioplan/radioplan/pkg/calendar"
	"github.com/radioplan/radioplan/pkg/model"
)

// 时段默认起止时间
var periodHours = map[model.Period][2]string{
	model.PeriodMorning:   {"08:00", "13:00"},
	model.PeriodAfternoon: {"13:00", "18:00"},
}

// CalendarOptions 日历导出选项
type CalendarOptions struct {
	DoctorID string         // 为空时导出所有已分配排班位
	Location *time.Location // 排班时间所在时区，默认 UTC
	Now      time.Time      // DTSTAMP
}

// Calendar 将已分配的排班位导出为 iCalendar 文本，关闭的排班位跳过
func Calendar(slots []model.ScheduleSlot, physicians []model.Physician, opts CalendarOptions) (string, error) {
	loc := opts.Location
	if loc == nil {
		loc = time.UTC
	}
	names := nameIndex(physicians)

	cal := ics.NewCalendar()
	cal.SetMethod(ics.MethodPublish)
	cal.SetProductId("-//radioplan//planning//FR")
	if opts.DoctorID != "" {
		cal.SetXWRCalName("Planning " + displayName(opts.DoctorID, names))
	} else {
		cal.SetXWRCalName("Planning")
	}

	for i := range slots {
		s := &slots[i]
		if s.IsClosed || !s.IsAssigned() {
			continue
		}
		if opts.DoctorID != "" && !s.HasDoctor(opts.DoctorID) {
			continue
		}

		start, end, err := slotTimes(s, loc)
		if err != nil {
			return "", err
		}

		event := cal.AddEvent(s.ID + "@radioplan")
		event.SetDtStampTime(opts.Now)
		event.SetStartAt(start)
		event.SetEndAt(end)
		event.SetSummary(summary(s))
		event.SetLocation(s.Location)
		event.SetDescription(description(s, names))
		event.AddProperty(ics.ComponentPropertyCategories, string(s.Type))
		if s.IsUnconfirmed {
			event.SetStatus(ics.ObjectStatusTentative)
		} else {
			event.SetStatus(ics.ObjectStatusConfirmed)
		}
	}
	return cal.Serialize(), nil
}

// slotTimes 排班位的起止时间，设置了时刻时以其为开始
func slotTimes(s *model.ScheduleSlot, loc *time.Location) (time.Time, time.Time, error) {
	hours, ok := periodHours[s.Period]
	if !ok {
		return time.Time{}, time.Time{}, fmt.Errorf("排班位 %s 时段无效: %q", s.ID, s.Period)
	}
	day, err := calendar.ParseDate(s.Date)
	if err != nil {
		return time.Time{}, time.Time{}, fmt.Errorf("排班位 %s 日期无效: %w", s.ID, err)
	}

	startClock := hours[0]
	if s.Time != "" {
		startClock = s.Time
	}
	start, err := atClock(day, startClock, loc)
	if err != nil {
		return time.Time{}, time.Time{}, fmt.Errorf("排班位 %s 时刻无效: %w", s.ID, err)
	}
	end, _ := atClock(day, hours[1], loc)
	if !end.After(start) {
		end = start.Add(time.Hour)
	}
	return start, end, nil
}

func atClock(day time.Time, clock string, loc *time.Location) (time.Time, error) {
	t, err := time.Parse("15:04", clock)
	if err != nil {
		return time.Time{}, err
	}
	return time.Date(day.Year(), day.Month(), day.Day(), t.Hour(), t.Minute(), 0, 0, loc), nil
}

func summary(s *model.ScheduleSlot) string {
	switch s.Type {
	case model.SlotRCP:
		return s.Location
	case model.SlotActivity:
		if s.SubType != "" {
			return s.SubType
		}
	}
	return "Consultation " + s.Location
}

func description(s *model.ScheduleSlot, names map[string]string) string {
	var b strings.Builder
	fmt.Fprintf(&b, "Titulaire: %s", displayName(s.AssignedDoctorID, names))
	if len(s.SecondaryDoctorIDs) > 0 {
		others := make([]string, 0, len(s.SecondaryDoctorIDs))
		for _, id := range s.SecondaryDoctorIDs {
			others = append(others, displayName(id, names))
		}
		fmt.Fprintf(&b, "\nAutres: %s", strings.Join(others, ", "))
	}
	if s.BackupDoctorID != "" {
		fmt.Fprintf(&b, "\nBackup: %s", displayName(s.BackupDoctorID, names))
	}
	return b.String()
}
