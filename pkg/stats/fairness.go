// Package stats 提供排班统计分析功能
package stats

import (
	"math"
	"sort"

	"github.com/radioplan/radioplan/pkg/model"
)

// EquityReport 活动班次公平性报告
type EquityReport struct {
	Activities   []ActivityEquity `json:"activities"`
	OverallScore float64          `json:"overallScore"` // 各活动评分的平均值 (0-100)
}

// ActivityEquity 单个活动的公平性指标
type ActivityEquity struct {
	ActivityID string          `json:"activityId"`
	Name       string          `json:"name"`
	Loads      []PhysicianLoad `json:"loads"` // 名册顺序

	// 以下指标只统计未被排除在该活动之外的医生
	Gini     float64 `json:"gini"` // 0=完全公平, 1=完全不公平
	Mean     float64 `json:"mean"`
	StdDev   float64 `json:"stdDev"`
	MaxTotal int     `json:"maxTotal"`
	MinTotal int     `json:"minTotal"`
	Score    float64 `json:"score"` // 0-100
}

// PhysicianLoad 医生在某活动上的班次
type PhysicianLoad struct {
	DoctorID  string  `json:"doctorId"`
	Name      string  `json:"name"`
	History   int     `json:"history"` // 历史累计
	Current   int     `json:"current"` // 当前窗口（周或月）
	Total     int     `json:"total"`
	Excluded  bool    `json:"excluded,omitempty"`
	Deviation float64 `json:"deviation"` // 与平均值的偏差百分比
}

// EquityAnalyzer 公平性分析器
type EquityAnalyzer struct {
	giniWeight float64
	cvWeight   float64
}

// NewEquityAnalyzer 创建公平性分析器
func NewEquityAnalyzer() *EquityAnalyzer {
	return &EquityAnalyzer{
		giniWeight: 0.8,
		cvWeight:   0.2,
	}
}

// Analyze 按活动统计当前窗口的班次与历史累计
func (f *EquityAnalyzer) Analyze(
	slots []model.ScheduleSlot,
	physicians []model.Physician,
	activities []model.ActivityDefinition,
	history model.ShiftHistory,
) *EquityReport {
	report := &EquityReport{
		Activities:   make([]ActivityEquity, 0, len(activities)),
		OverallScore: 100,
	}
	if len(activities) == 0 {
		return report
	}

	scoreSum := 0.0
	for i := range activities {
		eq := f.analyzeActivity(slots, physicians, &activities[i], history)
		scoreSum += eq.Score
		report.Activities = append(report.Activities, eq)
	}
	report.OverallScore = scoreSum / float64(len(activities))
	return report
}

// analyzeActivity 统计单个活动
func (f *EquityAnalyzer) analyzeActivity(
	slots []model.ScheduleSlot,
	physicians []model.Physician,
	act *model.ActivityDefinition,
	history model.ShiftHistory,
) ActivityEquity {
	current := make(map[string]int)
	for i := range slots {
		if slots[i].ActivityID == act.ID && slots[i].IsAssigned() {
			current[slots[i].AssignedDoctorID]++
		}
	}

	eq := ActivityEquity{
		ActivityID: act.ID,
		Name:       act.Name,
		Loads:      make([]PhysicianLoad, 0, len(physicians)),
	}

	var totals []float64
	for i := range physicians {
		p := &physicians[i]
		load := PhysicianLoad{
			DoctorID: p.ID,
			Name:     p.Name,
			History:  history.Count(p.ID, act.ID),
			Current:  current[p.ID],
			Excluded: p.IsExcludedActivity(act.ID),
		}
		load.Total = load.History + load.Current
		eq.Loads = append(eq.Loads, load)
		if !load.Excluded {
			totals = append(totals, float64(load.Total))
		}
	}

	eq.Mean = mean(totals)
	eq.StdDev = math.Sqrt(variance(totals, eq.Mean))
	maxV, minV := valueRange(totals)
	eq.MaxTotal, eq.MinTotal = int(maxV), int(minV)
	eq.Gini = gini(totals)

	for i := range eq.Loads {
		if eq.Mean > 0 && !eq.Loads[i].Excluded {
			eq.Loads[i].Deviation = (float64(eq.Loads[i].Total) - eq.Mean) / eq.Mean * 100
		}
	}

	eq.Score = f.score(eq.Gini, eq.StdDev, eq.Mean)
	return eq
}

// score 基尼系数与变异系数加权
func (f *EquityAnalyzer) score(g, stdDev, avg float64) float64 {
	giniScore := (1 - g) * 100

	cvScore := 100.0
	if avg > 0 {
		cvScore = math.Max(0, 100-stdDev/avg*200)
	}

	s := f.giniWeight*giniScore + f.cvWeight*cvScore
	return math.Max(0, math.Min(100, s))
}

// CompareWindows 比较两个排班窗口的公平性
func (f *EquityAnalyzer) CompareWindows(
	before, after []model.ScheduleSlot,
	physicians []model.Physician,
	activities []model.ActivityDefinition,
	history model.ShiftHistory,
) map[string]float64 {
	r1 := f.Analyze(before, physicians, activities, history)
	r2 := f.Analyze(after, physicians, activities, history)
	return map[string]float64{
		"overall_score_diff": r2.OverallScore - r1.OverallScore,
		"before_score":       r1.OverallScore,
		"after_score":        r2.OverallScore,
	}
}

func mean(values []float64) float64 {
	if len(values) == 0 {
		return 0
	}
	sum := 0.0
	for _, v := range values {
		sum += v
	}
	return sum / float64(len(values))
}

func variance(values []float64, avg float64) float64 {
	if len(values) == 0 {
		return 0
	}
	sumSquares := 0.0
	for _, v := range values {
		diff := v - avg
		sumSquares += diff * diff
	}
	return sumSquares / float64(len(values))
}

func valueRange(values []float64) (max, min float64) {
	if len(values) == 0 {
		return 0, 0
	}
	max, min = values[0], values[0]
	for _, v := range values[1:] {
		if v > max {
			max = v
		}
		if v < min {
			min = v
		}
	}
	return
}

// gini 计算基尼系数
func gini(values []float64) float64 {
	n := len(values)
	if n == 0 {
		return 0
	}

	sorted := make([]float64, n)
	copy(sorted, values)
	sort.Float64s(sorted)

	sum := 0.0
	for _, v := range sorted {
		sum += v
	}
	if sum == 0 {
		return 0
	}

	g := 0.0
	for i, v := range sorted {
		g += (2*float64(i+1) - float64(n) - 1) * v
	}
	g = g / (float64(n) * sum)
	return math.Max(0, math.Min(1, g))
}
