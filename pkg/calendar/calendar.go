// Package calendar 提供排班日期计算
package calendar

import (
	"math"
	"time"

	"github.com/radioplan/radioplan/pkg/model"
)

// ParseDate 解析 YYYY-MM-DD，结果为 UTC 零点
func ParseDate(date string) (time.Time, error) {
	return time.Parse(model.DateLayout, date)
}

// FormatDate 使用日历字段格式化日期，不做时区换算
func FormatDate(t time.Time) string {
	return time.Date(t.Year(), t.Month(), t.Day(), 0, 0, 0, 0, time.UTC).Format(model.DateLayout)
}

// MondayOf 返回所在周的周一（周日归入前一周）
func MondayOf(t time.Time) time.Time {
	offset := int(t.Weekday()) - 1
	if offset < 0 {
		offset = 6
	}
	return time.Date(t.Year(), t.Month(), t.Day()-offset, 0, 0, 0, 0, t.Location())
}

// AddDays 按日历字段加减天数
func AddDays(t time.Time, days int) time.Time {
	return time.Date(t.Year(), t.Month(), t.Day()+days, 0, 0, 0, 0, t.Location())
}

// DateForWeekday 返回 weekStart 所在周某工作日的日期
// weekStart 应为周一；使用本地日历字段计算，避免 UTC 换算造成的错位
func DateForWeekday(weekStart time.Time, day model.Weekday) string {
	offset := day.Offset()
	if offset < 0 {
		offset = 0
	}
	return FormatDate(AddDays(weekStart, offset))
}

// WeekdayOf 返回日期对应的排班工作日，周末返回 false
func WeekdayOf(date string) (model.Weekday, bool) {
	t, err := ParseDate(date)
	if err != nil {
		return "", false
	}
	idx := int(t.Weekday()) - 1
	if idx < 0 || idx >= len(model.Weekdays) {
		return "", false
	}
	return model.Weekdays[idx], true
}

// WeekNumber 计算 ISO 周数
// 移到本周周四，再计算 ceil((距1月1日天数+1)/7)
func WeekNumber(t time.Time) int {
	d := time.Date(t.Year(), t.Month(), t.Day(), 0, 0, 0, 0, time.UTC)
	dayNum := int(d.Weekday())
	if dayNum == 0 {
		dayNum = 7
	}
	d = d.AddDate(0, 0, 4-dayNum)
	yearStart := time.Date(d.Year(), 1, 1, 0, 0, 0, 0, time.UTC)
	days := d.Sub(yearStart).Hours()/24 + 1
	return int(math.Ceil(days / 7))
}

// IsOddWeek 检查是否为奇数周
func IsOddWeek(t time.Time) bool {
	return WeekNumber(t)%2 != 0
}

// InRange 检查日期是否在闭区间 [start, end] 内，任一日期无效返回 false
func InRange(date, start, end string) bool {
	d, err := ParseDate(date)
	if err != nil {
		return false
	}
	s, err := ParseDate(start)
	if err != nil {
		return false
	}
	e, err := ParseDate(end)
	if err != nil {
		return false
	}
	return !d.Before(s) && !d.After(e)
}

// DayOfMonth 返回日期中的日，无效日期返回 0
func DayOfMonth(date string) int {
	t, err := ParseDate(date)
	if err != nil {
		return 0
	}
	return t.Day()
}
