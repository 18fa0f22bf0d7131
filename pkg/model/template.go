// Package model 定义排班引擎的核心数据模型
package model

// WeeklyTemplateSlot 周模板排班位
type WeeklyTemplateSlot struct {
	ID        string    `json:"id"`
	Day       Weekday   `json:"day"`
	Period    Period    `json:"period"`
	Time      string    `json:"time,omitempty"` // HH:MM，可为空
	Location  string    `json:"location"`
	Type      SlotType  `json:"type"`
	SubType   string    `json:"subType,omitempty"`
	Frequency Frequency `json:"frequency,omitempty"`

	// 新版有序医生列表，优先于旧字段
	DoctorIDs []string `json:"doctorIds,omitempty"`

	// 旧版字段（导入兼容）
	DefaultDoctorID    string   `json:"defaultDoctorId,omitempty"`
	SecondaryDoctorIDs []string `json:"secondaryDoctorIds,omitempty"`

	BackupDoctorID string `json:"backupDoctorId,omitempty"`
	IsBlocking     *bool  `json:"isBlocking,omitempty"` // 未设置视为 true
	IsRequired     bool   `json:"isRequired,omitempty"`
}

// Blocking 返回是否参与重复排班检测
func (t *WeeklyTemplateSlot) Blocking() bool {
	return t.IsBlocking == nil || *t.IsBlocking
}

// IsBiweekly 检查是否为双周
func (t *WeeklyTemplateSlot) IsBiweekly() bool {
	return t.Frequency == FrequencyBiweekly
}

// Assignees 返回主医生与副医生
// 有 DoctorIDs 时取列表，否则回退到旧字段
func (t *WeeklyTemplateSlot) Assignees() (primary string, secondary []string) {
	if len(t.DoctorIDs) > 0 {
		return t.DoctorIDs[0], append([]string(nil), t.DoctorIDs[1:]...)
	}
	return t.DefaultDoctorID, append([]string(nil), t.SecondaryDoctorIDs...)
}

// DoctorList 返回规范化的有序医生池
// 旧字段只在设置了主医生时参与
func (t *WeeklyTemplateSlot) DoctorList() []string {
	if len(t.DoctorIDs) > 0 {
		return append([]string(nil), t.DoctorIDs...)
	}
	if t.DefaultDoctorID == "" {
		return nil
	}
	list := make([]string, 0, 1+len(t.SecondaryDoctorIDs))
	list = append(list, t.DefaultDoctorID)
	return append(list, t.SecondaryDoctorIDs...)
}

// ReferencesDoctor 检查模板是否引用某医生
func (t *WeeklyTemplateSlot) ReferencesDoctor(id string) bool {
	if t.DefaultDoctorID == id || t.BackupDoctorID == id {
		return true
	}
	for _, d := range t.DoctorIDs {
		if d == id {
			return true
		}
	}
	for _, d := range t.SecondaryDoctorIDs {
		if d == id {
			return true
		}
	}
	return false
}

// ActivityDefinition 轮换活动定义
type ActivityDefinition struct {
	ID                 string      `json:"id"`
	Name               string      `json:"name"`
	Granularity        Granularity `json:"granularity"`
	AllowDoubleBooking bool        `json:"allowDoubleBooking"`
	Color              string      `json:"color,omitempty"`
}

// IsWeekly 检查是否整周分配
func (a *ActivityDefinition) IsWeekly() bool {
	return a.Granularity == GranularityWeekly
}

// RcpDefinition 多学科会诊定义
type RcpDefinition struct {
	ID         string     `json:"id"`
	Name       string     `json:"name"` // 与模板 Location 匹配
	Frequency  Frequency  `json:"frequency"`
	WeekParity WeekParity `json:"weekParity,omitempty"`
}

// RcpException 会诊例外（取消或改期）
type RcpException struct {
	ID            string `json:"id,omitempty"`
	RcpTemplateID string `json:"rcpTemplateId"`
	OriginalDate  string `json:"originalDate"` // YYYY-MM-DD
	IsCancelled   bool   `json:"isCancelled,omitempty"`
	NewDate       string `json:"newDate,omitempty"`
	NewPeriod     Period `json:"newPeriod,omitempty"`
	NewTime       string `json:"newTime,omitempty"`
}

// Matches 检查例外是否绑定到指定模板和原日期
func (e *RcpException) Matches(templateID, originalDate string) bool {
	return e.RcpTemplateID == templateID && e.OriginalDate == originalDate
}

// Unavailability 医生不可用记录
type Unavailability struct {
	ID        string `json:"id"`
	DoctorID  string `json:"doctorId"`
	StartDate string `json:"startDate"` // 含
	EndDate   string `json:"endDate"`   // 含
	Reason    string `json:"reason"`
	Period    Period `json:"period,omitempty"` // 空或 ALL_DAY 表示全天
}

// IsAllDay 检查是否为全天缺勤
func (u *Unavailability) IsAllDay() bool {
	return u.Period == "" || u.Period == PeriodAllDay
}

// ShiftHistory 历史班次计数 doctorID -> activityID -> count
type ShiftHistory map[string]map[string]int

// Total 返回医生在所有活动上的历史班次总数
func (h ShiftHistory) Total(doctorID string) int {
	total := 0
	for _, c := range h[doctorID] {
		total += c
	}
	return total
}

// Count 返回医生在某活动上的历史班次数
func (h ShiftHistory) Count(doctorID, activityID string) int {
	return h[doctorID][activityID]
}

// ClosedSentinel 手动覆盖中表示"关闭该排班位"的值
const ClosedSentinel = "__CLOSED__"

// ManualOverrides 手动覆盖 slotID -> doctorID 或 ClosedSentinel
type ManualOverrides map[string]string
