package stats

import (
	"fmt"
	"sort"
	"strings"

	"github.com/radioplan/radioplan/pkg/calendar"
	"github.com/radioplan/radioplan/pkg/model"
)

// CoverageReport 覆盖率指标
// 未分配的排班位在这里统计，不属于冲突
type CoverageReport struct {
	TotalSlots    int     `json:"totalSlots"`
	AssignedSlots int     `json:"assignedSlots"`
	ClosedSlots   int     `json:"closedSlots"`
	UnfilledSlots int     `json:"unfilledSlots"`
	Coverage      float64 `json:"coverage"` // 已分配 / (总数 - 关闭) (%)

	ByType   map[model.SlotType]TypeCoverage `json:"byType"`
	Daily    []DayCoverage                   `json:"daily"` // 按日期升序
	Unfilled []UnfilledSlot                  `json:"unfilled"`
}

// TypeCoverage 按类别统计
type TypeCoverage struct {
	Total    int     `json:"total"`
	Assigned int     `json:"assigned"`
	Closed   int     `json:"closed"`
	Coverage float64 `json:"coverage"`
}

// DayCoverage 每日覆盖情况
type DayCoverage struct {
	Date       string  `json:"date"`
	Total      int     `json:"total"`
	Assigned   int     `json:"assigned"`
	Closed     int     `json:"closed"`
	Coverage   float64 `json:"coverage"`
	StaffCount int     `json:"staffCount"` // 当天出现的不同医生数
	Holiday    string  `json:"holiday,omitempty"`
}

// UnfilledSlot 无人分配的排班位
type UnfilledSlot struct {
	SlotID     string         `json:"slotId"`
	Date       string         `json:"date"`
	Period     model.Period   `json:"period"`
	Location   string         `json:"location"`
	Type       model.SlotType `json:"type"`
	ActivityID string         `json:"activityId,omitempty"`
}

// CoverageAnalyzer 覆盖率分析器
type CoverageAnalyzer struct{}

// NewCoverageAnalyzer 创建覆盖率分析器
func NewCoverageAnalyzer() *CoverageAnalyzer {
	return &CoverageAnalyzer{}
}

// Analyze 分析覆盖率，关闭的排班位不计入未分配
func (c *CoverageAnalyzer) Analyze(slots []model.ScheduleSlot) *CoverageReport {
	report := &CoverageReport{
		ByType:   make(map[model.SlotType]TypeCoverage),
		Daily:    []DayCoverage{},
		Unfilled: []UnfilledSlot{},
		Coverage: 100,
	}
	if len(slots) == 0 {
		return report
	}

	daily := make(map[string]*DayCoverage)
	staff := make(map[string]map[string]bool)

	for i := range slots {
		s := &slots[i]
		report.TotalSlots++

		tc := report.ByType[s.Type]
		tc.Total++

		day, ok := daily[s.Date]
		if !ok {
			day = &DayCoverage{Date: s.Date}
			if h, found := calendar.LookupHoliday(s.Date); found {
				day.Holiday = h.Name
			}
			daily[s.Date] = day
			staff[s.Date] = make(map[string]bool)
		}
		day.Total++

		for _, id := range s.Doctors() {
			staff[s.Date][id] = true
		}

		switch {
		case s.IsClosed:
			report.ClosedSlots++
			tc.Closed++
			day.Closed++
		case s.IsAssigned():
			report.AssignedSlots++
			tc.Assigned++
			day.Assigned++
		default:
			report.UnfilledSlots++
			report.Unfilled = append(report.Unfilled, UnfilledSlot{
				SlotID:     s.ID,
				Date:       s.Date,
				Period:     s.Period,
				Location:   s.Location,
				Type:       s.Type,
				ActivityID: s.ActivityID,
			})
		}
		report.ByType[s.Type] = tc
	}

	report.Coverage = rate(report.AssignedSlots, report.TotalSlots-report.ClosedSlots)
	for t, tc := range report.ByType {
		tc.Coverage = rate(tc.Assigned, tc.Total-tc.Closed)
		report.ByType[t] = tc
	}

	for date, day := range daily {
		day.Coverage = rate(day.Assigned, day.Total-day.Closed)
		day.StaffCount = len(staff[date])
		report.Daily = append(report.Daily, *day)
	}
	sort.Slice(report.Daily, func(i, j int) bool {
		return report.Daily[i].Date < report.Daily[j].Date
	})

	return report
}

// AnalyzeRange 只统计 [start, end] 内的排班位（YYYY-MM-DD，含两端）
func (c *CoverageAnalyzer) AnalyzeRange(slots []model.ScheduleSlot, start, end string) *CoverageReport {
	var filtered []model.ScheduleSlot
	for i := range slots {
		if calendar.InRange(slots[i].Date, start, end) {
			filtered = append(filtered, slots[i])
		}
	}
	return c.Analyze(filtered)
}

// Report 生成文本报告
func (c *CoverageAnalyzer) Report(r *CoverageReport) string {
	var b strings.Builder
	b.WriteString("=== 覆盖率分析报告 ===\n\n")
	b.WriteString("【整体覆盖情况】\n")
	fmt.Fprintf(&b, "  排班位总数: %d\n", r.TotalSlots)
	fmt.Fprintf(&b, "  已分配: %d\n", r.AssignedSlots)
	fmt.Fprintf(&b, "  已关闭: %d\n", r.ClosedSlots)
	fmt.Fprintf(&b, "  覆盖率: %.1f%%\n", r.Coverage)

	if len(r.Unfilled) > 0 {
		b.WriteString("\n【未分配排班位】\n")
		for _, u := range r.Unfilled {
			fmt.Fprintf(&b, "  - %s %s %s (%s)\n", u.Date, u.Period, u.Location, u.SlotID)
		}
	}

	var holidays []string
	for _, d := range r.Daily {
		if d.Holiday != "" {
			holidays = append(holidays, fmt.Sprintf("%s %s", d.Date, d.Holiday))
		}
	}
	if len(holidays) > 0 {
		b.WriteString("\n【节假日】\n")
		for _, h := range holidays {
			fmt.Fprintf(&b, "  - %s\n", h)
		}
	}
	return b.String()
}

func rate(part, whole int) float64 {
	if whole <= 0 {
		return 100
	}
	return float64(part) / float64(whole) * 100
}
