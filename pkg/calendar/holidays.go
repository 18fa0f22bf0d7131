package calendar

import (
	"sort"
	"time"
)

// Holiday 法定节假日
type Holiday struct {
	Date string `json:"date"`
	Name string `json:"name"`
}

// HolidaysForYear 返回某年的法国法定节假日，按日期排序
func HolidaysForYear(year int) []Holiday {
	easter := EasterSunday(year)
	fixed := func(month time.Month, day int) string {
		return FormatDate(time.Date(year, month, day, 0, 0, 0, 0, time.UTC))
	}

	holidays := []Holiday{
		{Date: fixed(time.January, 1), Name: "Jour de l'an"},
		{Date: FormatDate(AddDays(easter, 1)), Name: "Lundi de Pâques"},
		{Date: fixed(time.May, 1), Name: "Fête du Travail"},
		{Date: fixed(time.May, 8), Name: "Victoire 1945"},
		{Date: FormatDate(AddDays(easter, 39)), Name: "Ascension"},
		{Date: FormatDate(AddDays(easter, 50)), Name: "Lundi de Pentecôte"},
		{Date: fixed(time.July, 14), Name: "Fête Nationale"},
		{Date: fixed(time.August, 15), Name: "Assomption"},
		{Date: fixed(time.November, 1), Name: "Toussaint"},
		{Date: fixed(time.November, 11), Name: "Armistice 1918"},
		{Date: fixed(time.December, 25), Name: "Noël"},
	}

	sort.Slice(holidays, func(i, j int) bool {
		return holidays[i].Date < holidays[j].Date
	})
	return holidays
}

// LookupHoliday 按日期字符串精确查找节假日
func LookupHoliday(date string) (Holiday, bool) {
	t, err := ParseDate(date)
	if err != nil {
		return Holiday{}, false
	}
	for _, h := range HolidaysForYear(t.Year()) {
		if h.Date == date {
			return h, true
		}
	}
	return Holiday{}, false
}

// EasterSunday 计算复活节（格里高利历，Meeus/Jones/Butcher 算法）
func EasterSunday(year int) time.Time {
	a := year % 19
	b := year / 100
	c := year % 100
	d := b / 4
	e := b % 4
	f := (b + 8) / 25
	g := (b - f + 1) / 3
	h := (19*a + b - d - g + 15) % 30
	i := c / 4
	k := c % 4
	l := (32 + 2*e + 2*i - h - k) % 7
	m := (a + 11*h + 22*l) / 451
	month := (h + l - 7*m + 114) / 31
	day := (h+l-7*m+114)%31 + 1
	return time.Date(year, time.Month(month), day, 0, 0, 0, 0, time.UTC)
}

// IsHoliday 检查日期是否为法定节假日
func IsHoliday(date string) bool {
	_, ok := LookupHoliday(date)
	return ok
}
