package calendar

import (
	"testing"
	"time"

	"github.com/radioplan/radioplan/pkg/model"
)

func TestDateForWeekday(t *testing.T) {
	monday := time.Date(2024, 6, 3, 0, 0, 0, 0, time.UTC)

	tests := []struct {
		day      model.Weekday
		expected string
	}{
		{model.Monday, "2024-06-03"},
		{model.Wednesday, "2024-06-05"},
		{model.Friday, "2024-06-07"},
	}

	for _, tt := range tests {
		t.Run(string(tt.day), func(t *testing.T) {
			if got := DateForWeekday(monday, tt.day); got != tt.expected {
				t.Errorf("DateForWeekday() = %s, expected %s", got, tt.expected)
			}
		})
	}
}

func TestDateForWeekday_LocalFields(t *testing.T) {
	// 周一本地零点在 UTC 中仍是周日
	loc := time.FixedZone("UTC+2", 2*3600)
	monday := time.Date(2024, 6, 3, 0, 0, 0, 0, loc)

	if got := DateForWeekday(monday, model.Monday); got != "2024-06-03" {
		t.Errorf("DateForWeekday() = %s, expected 2024-06-03", got)
	}
}

func TestDateForWeekday_MonthBoundary(t *testing.T) {
	monday := time.Date(2024, 12, 30, 0, 0, 0, 0, time.UTC)
	if got := DateForWeekday(monday, model.Friday); got != "2025-01-03" {
		t.Errorf("DateForWeekday() = %s, expected 2025-01-03", got)
	}
}

func TestWeekNumber(t *testing.T) {
	tests := []struct {
		name     string
		date     time.Time
		expected int
	}{
		{"年初周一", time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC), 1},
		{"6月3日", time.Date(2024, 6, 3, 0, 0, 0, 0, time.UTC), 23},
		{"6月10日", time.Date(2024, 6, 10, 0, 0, 0, 0, time.UTC), 24},
		{"跨年属于次年第1周", time.Date(2024, 12, 30, 0, 0, 0, 0, time.UTC), 1},
		{"跨年属于上年第53周", time.Date(2021, 1, 1, 0, 0, 0, 0, time.UTC), 53},
		{"周日", time.Date(2024, 6, 9, 0, 0, 0, 0, time.UTC), 23},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := WeekNumber(tt.date)
			if got != tt.expected {
				t.Errorf("WeekNumber() = %d, expected %d", got, tt.expected)
			}
			if _, iso := tt.date.ISOWeek(); iso != got {
				t.Errorf("WeekNumber() = %d, ISOWeek() = %d", got, iso)
			}
			if IsOddWeek(tt.date) != (tt.expected%2 != 0) {
				t.Errorf("IsOddWeek() = %v for week %d", IsOddWeek(tt.date), tt.expected)
			}
		})
	}
}

func TestInRange(t *testing.T) {
	tests := []struct {
		name     string
		date     string
		expected bool
	}{
		{"起始日", "2024-06-03", true},
		{"结束日", "2024-06-07", true},
		{"区间内", "2024-06-05", true},
		{"之前", "2024-06-02", false},
		{"之后", "2024-06-08", false},
		{"无效日期", "n/a", false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := InRange(tt.date, "2024-06-03", "2024-06-07"); got != tt.expected {
				t.Errorf("InRange(%s) = %v, expected %v", tt.date, got, tt.expected)
			}
		})
	}
}

func TestMondayOf(t *testing.T) {
	tests := []struct {
		date     time.Time
		expected string
	}{
		{time.Date(2024, 6, 5, 15, 0, 0, 0, time.UTC), "2024-06-03"},
		{time.Date(2024, 6, 3, 0, 0, 0, 0, time.UTC), "2024-06-03"},
		{time.Date(2024, 6, 9, 0, 0, 0, 0, time.UTC), "2024-06-03"},
	}

	for _, tt := range tests {
		if got := FormatDate(MondayOf(tt.date)); got != tt.expected {
			t.Errorf("MondayOf(%s) = %s, expected %s", tt.date, got, tt.expected)
		}
	}
}

func TestWeekdayOf(t *testing.T) {
	if day, ok := WeekdayOf("2024-06-05"); !ok || day != model.Wednesday {
		t.Errorf("WeekdayOf() = %s, %v", day, ok)
	}
	if _, ok := WeekdayOf("2024-06-08"); ok {
		t.Error("Saturday should not map to a scheduling weekday")
	}
}

func TestDayOfMonth(t *testing.T) {
	if DayOfMonth("2024-06-17") != 17 {
		t.Error("DayOfMonth mismatch")
	}
	if DayOfMonth("bad") != 0 {
		t.Error("invalid date should return 0")
	}
}

func TestEasterSunday(t *testing.T) {
	tests := map[int]string{
		2024: "2024-03-31",
		2025: "2025-04-20",
		2026: "2026-04-05",
	}
	for year, expected := range tests {
		if got := FormatDate(EasterSunday(year)); got != expected {
			t.Errorf("EasterSunday(%d) = %s, expected %s", year, got, expected)
		}
	}
}

func TestLookupHoliday(t *testing.T) {
	tests := []struct {
		date     string
		name     string
		expected bool
	}{
		{"2024-07-14", "Fête Nationale", true},
		{"2024-04-01", "Lundi de Pâques", true},
		{"2024-05-09", "Ascension", true},
		{"2024-05-20", "Lundi de Pentecôte", true},
		{"2024-06-03", "", false},
		{"bad", "", false},
	}

	for _, tt := range tests {
		t.Run(tt.date, func(t *testing.T) {
			h, ok := LookupHoliday(tt.date)
			if ok != tt.expected || h.Name != tt.name {
				t.Errorf("LookupHoliday() = %+v, %v", h, ok)
			}
		})
	}

	if len(HolidaysForYear(2024)) != 11 {
		t.Error("expected 11 public holidays")
	}
}
