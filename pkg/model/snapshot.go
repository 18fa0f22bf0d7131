// Package model 定义排班引擎的核心数据模型
package model

// Snapshot 排班配置快照，由调用方持有，引擎只读
// JSON 键与前端导出的配置文件一致
type Snapshot struct {
	Doctors             []Physician          `json:"doctors"`
	Template            []WeeklyTemplateSlot `json:"template"`
	RcpTypes            []RcpDefinition      `json:"rcpTypes"`
	Postes              []string             `json:"postes"`
	ActivityDefinitions []ActivityDefinition `json:"activityDefinitions"`
	Unavailabilities    []Unavailability     `json:"unavailabilities"`
	ShiftHistory        ShiftHistory         `json:"shiftHistory"`
	ManualOverrides     ManualOverrides      `json:"manualOverrides"`
	RcpAttendance       RcpAttendance        `json:"rcpAttendance"`
	RcpExceptions       []RcpException       `json:"rcpExceptions"`
}

// FindPhysician 按ID查找医生
func (s *Snapshot) FindPhysician(id string) *Physician {
	for i := range s.Doctors {
		if s.Doctors[i].ID == id {
			return &s.Doctors[i]
		}
	}
	return nil
}

// FindActivity 按ID查找活动
func (s *Snapshot) FindActivity(id string) *ActivityDefinition {
	for i := range s.ActivityDefinitions {
		if s.ActivityDefinitions[i].ID == id {
			return &s.ActivityDefinitions[i]
		}
	}
	return nil
}

// Clone 深拷贝快照，编辑操作基于副本进行
func (s *Snapshot) Clone() *Snapshot {
	if s == nil {
		return &Snapshot{}
	}
	out := &Snapshot{
		Postes:              append([]string(nil), s.Postes...),
		RcpTypes:            append([]RcpDefinition(nil), s.RcpTypes...),
		ActivityDefinitions: append([]ActivityDefinition(nil), s.ActivityDefinitions...),
		Unavailabilities:    append([]Unavailability(nil), s.Unavailabilities...),
		RcpExceptions:       append([]RcpException(nil), s.RcpExceptions...),
	}

	if s.Doctors != nil {
		out.Doctors = make([]Physician, len(s.Doctors))
		for i, d := range s.Doctors {
			d.Specialties = append([]string(nil), d.Specialties...)
			d.ExcludedDays = append([]Weekday(nil), d.ExcludedDays...)
			d.ExcludedActivities = append([]string(nil), d.ExcludedActivities...)
			d.ExcludedSlotTypes = append([]SlotType(nil), d.ExcludedSlotTypes...)
			out.Doctors[i] = d
		}
	}

	if s.Template != nil {
		out.Template = make([]WeeklyTemplateSlot, len(s.Template))
		for i, t := range s.Template {
			t.DoctorIDs = append([]string(nil), t.DoctorIDs...)
			t.SecondaryDoctorIDs = append([]string(nil), t.SecondaryDoctorIDs...)
			if t.IsBlocking != nil {
				b := *t.IsBlocking
				t.IsBlocking = &b
			}
			out.Template[i] = t
		}
	}

	if s.ShiftHistory != nil {
		out.ShiftHistory = make(ShiftHistory, len(s.ShiftHistory))
		for doc, counts := range s.ShiftHistory {
			inner := make(map[string]int, len(counts))
			for act, c := range counts {
				inner[act] = c
			}
			out.ShiftHistory[doc] = inner
		}
	}

	if s.ManualOverrides != nil {
		out.ManualOverrides = make(ManualOverrides, len(s.ManualOverrides))
		for k, v := range s.ManualOverrides {
			out.ManualOverrides[k] = v
		}
	}

	if s.RcpAttendance != nil {
		out.RcpAttendance = make(RcpAttendance, len(s.RcpAttendance))
		for k, v := range s.RcpAttendance {
			out.RcpAttendance[k] = append(AttendanceRecord(nil), v...)
		}
	}

	return out
}
