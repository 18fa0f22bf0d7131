// Package model 定义排班引擎的核心数据模型
package model

import "strings"

// Physician 医生
type Physician struct {
	ID    string `json:"id"`
	Name  string `json:"name"`
	Color string `json:"color,omitempty"` // 仅用于展示

	Specialties []string `json:"specialty"`

	// 排班排除项
	ExcludedDays       []Weekday  `json:"excludedDays"`
	ExcludedActivities []string   `json:"excludedActivities"`
	ExcludedSlotTypes  []SlotType `json:"excludedSlotTypes,omitempty"`
}

// IsExcludedDay 检查医生是否不在该工作日上班
func (p *Physician) IsExcludedDay(day Weekday) bool {
	for _, d := range p.ExcludedDays {
		if d == day {
			return true
		}
	}
	return false
}

// IsExcludedActivity 检查医生是否被排除在某活动之外
func (p *Physician) IsExcludedActivity(activityID string) bool {
	for _, a := range p.ExcludedActivities {
		if a == activityID {
			return true
		}
	}
	return false
}

// IsExcludedSlotType 检查医生是否被排除在某类别之外
func (p *Physician) IsExcludedSlotType(t SlotType) bool {
	for _, s := range p.ExcludedSlotTypes {
		if s == t {
			return true
		}
	}
	return false
}

// HasSpecialty 检查医生是否具备某专科
func (p *Physician) HasSpecialty(specialty string) bool {
	for _, s := range p.Specialties {
		if s == specialty {
			return true
		}
	}
	return false
}

// SharedSpecialties 返回与另一医生共有的专科（保持本医生的顺序）
func (p *Physician) SharedSpecialties(other *Physician) []string {
	var shared []string
	for _, s := range p.Specialties {
		if other.HasSpecialty(s) {
			shared = append(shared, s)
		}
	}
	return shared
}

// SpecialtyIn 返回第一个以不区分大小写子串形式出现在 text 中的专科
func (p *Physician) SpecialtyIn(text string) (string, bool) {
	lower := strings.ToLower(text)
	for _, s := range p.Specialties {
		if strings.Contains(lower, strings.ToLower(s)) {
			return s, true
		}
	}
	return "", false
}

// Roster 医生名册索引（只读）
type Roster struct {
	byID  map[string]*Physician
	order []string
}

// NewRoster 创建名册索引
func NewRoster(physicians []Physician) *Roster {
	r := &Roster{
		byID:  make(map[string]*Physician, len(physicians)),
		order: make([]string, 0, len(physicians)),
	}
	for i := range physicians {
		p := &physicians[i]
		if _, exists := r.byID[p.ID]; exists {
			continue
		}
		r.byID[p.ID] = p
		r.order = append(r.order, p.ID)
	}
	return r
}

// Has 检查医生是否仍在名册中
func (r *Roster) Has(id string) bool {
	if id == "" {
		return false
	}
	_, ok := r.byID[id]
	return ok
}

// Get 获取医生，不存在返回 nil
func (r *Roster) Get(id string) *Physician {
	return r.byID[id]
}

// Len 返回医生数量
func (r *Roster) Len() int {
	return len(r.order)
}

// Filter 过滤掉不在名册中的ID，保持顺序
func (r *Roster) Filter(ids []string) []string {
	result := make([]string, 0, len(ids))
	for _, id := range ids {
		if r.Has(id) {
			result = append(result, id)
		}
	}
	return result
}
