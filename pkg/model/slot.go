// Package model 定义排班引擎的核心数据模型
package model

// ScheduleSlot 排班位（引擎输出，每次计算重新生成）
type ScheduleSlot struct {
	ID         string   `json:"id"`
	Date       string   `json:"date"` // YYYY-MM-DD
	Day        Weekday  `json:"day"`
	Period     Period   `json:"period"`
	Time       string   `json:"time,omitempty"`
	Location   string   `json:"location"`
	Type       SlotType `json:"type"`
	SubType    string   `json:"subType,omitempty"`
	ActivityID string   `json:"activityId,omitempty"`

	AssignedDoctorID   string   `json:"assignedDoctorId"`
	SecondaryDoctorIDs []string `json:"secondaryDoctorIds,omitempty"`
	BackupDoctorID     string   `json:"backupDoctorId,omitempty"`

	IsBlocking    bool `json:"isBlocking"`
	IsUnconfirmed bool `json:"isUnconfirmed,omitempty"`
	IsGenerated   bool `json:"isGenerated"`

	// 由手动覆盖层设置
	IsLocked bool `json:"isLocked,omitempty"`
	IsClosed bool `json:"isClosed,omitempty"`
}

// Doctors 返回主医生和副医生（跳过空值）
func (s *ScheduleSlot) Doctors() []string {
	ids := make([]string, 0, 1+len(s.SecondaryDoctorIDs))
	if s.AssignedDoctorID != "" {
		ids = append(ids, s.AssignedDoctorID)
	}
	for _, id := range s.SecondaryDoctorIDs {
		if id != "" {
			ids = append(ids, id)
		}
	}
	return ids
}

// HasDoctor 检查医生是否为主医生或副医生
func (s *ScheduleSlot) HasDoctor(id string) bool {
	if id == "" {
		return false
	}
	if s.AssignedDoctorID == id {
		return true
	}
	for _, d := range s.SecondaryDoctorIDs {
		if d == id {
			return true
		}
	}
	return false
}

// IsAssigned 检查是否已分配主医生
func (s *ScheduleSlot) IsAssigned() bool {
	return s.AssignedDoctorID != ""
}

// SameTime 检查两个排班位是否在同一日期同一时段
func (s *ScheduleSlot) SameTime(other *ScheduleSlot) bool {
	return s.Date == other.Date && s.Period == other.Period
}

// IsActivity 检查是否属于某轮换活动
func (s *ScheduleSlot) IsActivity() bool {
	return s.ActivityID != ""
}

// Clone 深拷贝
func (s ScheduleSlot) Clone() ScheduleSlot {
	if s.SecondaryDoctorIDs != nil {
		s.SecondaryDoctorIDs = append([]string(nil), s.SecondaryDoctorIDs...)
	}
	return s
}

// CloneSlots 深拷贝排班位列表
func CloneSlots(slots []ScheduleSlot) []ScheduleSlot {
	if slots == nil {
		return nil
	}
	out := make([]ScheduleSlot, len(slots))
	for i := range slots {
		out[i] = slots[i].Clone()
	}
	return out
}

// FindSlot 按ID查找排班位
func FindSlot(slots []ScheduleSlot, id string) *ScheduleSlot {
	for i := range slots {
		if slots[i].ID == id {
			return &slots[i]
		}
	}
	return nil
}

// Conflict 冲突
type Conflict struct {
	ID          string       `json:"id"`
	SlotID      string       `json:"slotId"`
	DoctorID    string       `json:"doctorId"`
	Type        ConflictKind `json:"type"`
	Description string       `json:"description"`
	Severity    Severity     `json:"severity"`
}

// ReplacementSuggestion 替班建议
type ReplacementSuggestion struct {
	OriginalDoctorID  string `json:"originalDoctorId"`
	SuggestedDoctorID string `json:"suggestedDoctorId"`
	Reasoning         string `json:"reasoning"`
	Score             int    `json:"score"` // 0-100
}
