// Package model 定义排班引擎的核心数据模型
package model

// Weekday 工作日（仅周一至周五排班）
type Weekday string

const (
	Monday    Weekday = "MONDAY"
	Tuesday   Weekday = "TUESDAY"
	Wednesday Weekday = "WEDNESDAY"
	Thursday  Weekday = "THURSDAY"
	Friday    Weekday = "FRIDAY"
)

// Weekdays 按顺序排列的排班工作日
var Weekdays = []Weekday{Monday, Tuesday, Wednesday, Thursday, Friday}

// Offset 返回相对周一的天数偏移，未知值返回 -1
func (d Weekday) Offset() int {
	for i, w := range Weekdays {
		if w == d {
			return i
		}
	}
	return -1
}

// IsValid 检查是否为合法工作日
func (d Weekday) IsValid() bool {
	return d.Offset() >= 0
}

// Period 时段
type Period string

const (
	PeriodMorning   Period = "MORNING"
	PeriodAfternoon Period = "AFTERNOON"
	PeriodAllDay    Period = "ALL_DAY" // 仅用于缺勤粒度
)

// HalfDays 可排班的半天时段
var HalfDays = []Period{PeriodMorning, PeriodAfternoon}

// IsHalfDay 检查是否为上午/下午
func (p Period) IsHalfDay() bool {
	return p == PeriodMorning || p == PeriodAfternoon
}

// SlotType 排班位类别
type SlotType string

const (
	SlotConsultation SlotType = "CONSULTATION" // 门诊
	SlotRCP          SlotType = "RCP"          // 多学科会诊
	SlotActivity     SlotType = "ACTIVITY"     // 轮换活动（值班等）
)

// IsValid 检查类别是否合法
func (t SlotType) IsValid() bool {
	switch t {
	case SlotConsultation, SlotRCP, SlotActivity:
		return true
	}
	return false
}

// Frequency 重复频率
type Frequency string

const (
	FrequencyWeekly   Frequency = "WEEKLY"
	FrequencyBiweekly Frequency = "BIWEEKLY"
)

// WeekParity 双周奇偶
type WeekParity string

const (
	ParityOdd  WeekParity = "ODD"
	ParityEven WeekParity = "EVEN"
)

// Granularity 活动分配粒度
type Granularity string

const (
	GranularityHalfDay Granularity = "HALF_DAY" // 每个半天独立分配
	GranularityWeekly  Granularity = "WEEKLY"   // 整周一人
)

// ConflictKind 冲突类型
type ConflictKind string

const (
	ConflictUnavailable        ConflictKind = "UNAVAILABLE"
	ConflictCompetenceMismatch ConflictKind = "COMPETENCE_MISMATCH"
	ConflictDoubleBooking      ConflictKind = "DOUBLE_BOOKING"
)

// Severity 冲突严重程度
type Severity string

const (
	SeverityHigh   Severity = "HIGH"
	SeverityMedium Severity = "MEDIUM"
)

// DateLayout 日期格式 YYYY-MM-DD
const DateLayout = "2006-01-02"
