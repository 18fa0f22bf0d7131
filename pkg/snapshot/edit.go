package snapshot

import (
	"strings"

	"github.com/google/uuid"

	"github.com/radioplan/radioplan/pkg/logger"
	"github.com/radioplan/radioplan/pkg/model"
)

// RemovePhysician 删除医生并清理所有引用
// 模板中的主/副/备用医生、缺勤记录、指向该医生的手动覆盖、会诊出席记录、历史班次
func RemovePhysician(snap *model.Snapshot, doctorID string) *model.Snapshot {
	out := snap.Clone()

	doctors := out.Doctors[:0]
	for _, d := range out.Doctors {
		if d.ID != doctorID {
			doctors = append(doctors, d)
		}
	}
	out.Doctors = doctors

	for i := range out.Template {
		t := &out.Template[i]
		if t.DefaultDoctorID == doctorID {
			t.DefaultDoctorID = ""
		}
		if t.BackupDoctorID == doctorID {
			t.BackupDoctorID = ""
		}
		t.DoctorIDs = without(t.DoctorIDs, doctorID)
		t.SecondaryDoctorIDs = without(t.SecondaryDoctorIDs, doctorID)
	}

	unav := out.Unavailabilities[:0]
	for _, u := range out.Unavailabilities {
		if u.DoctorID != doctorID {
			unav = append(unav, u)
		}
	}
	out.Unavailabilities = unav

	for slotID, value := range out.ManualOverrides {
		if value == doctorID {
			delete(out.ManualOverrides, slotID)
		}
	}

	for key, record := range out.RcpAttendance {
		if _, ok := record.Status(doctorID); ok {
			out.RcpAttendance[key] = record.Without(doctorID)
		}
	}

	delete(out.ShiftHistory, doctorID)

	logger.Info().Str("doctor_id", doctorID).Msg("医生已删除，引用已清理")
	return out
}

// AddRcpDefinition 新增会诊定义，同名已存在时原样返回
func AddRcpDefinition(snap *model.Snapshot, def model.RcpDefinition) *model.Snapshot {
	out := snap.Clone()
	def.Name = strings.TrimSpace(def.Name)
	for _, r := range out.RcpTypes {
		if r.Name == def.Name {
			return out
		}
	}
	if def.ID == "" {
		def.ID = "rcp_" + uuid.New().String()
	}
	if def.Frequency == "" {
		def.Frequency = model.FrequencyWeekly
	}
	out.RcpTypes = append(out.RcpTypes, def)
	return out
}

// UpdateRcpDefinition 按ID替换会诊定义（频率、奇偶）
func UpdateRcpDefinition(snap *model.Snapshot, def model.RcpDefinition) *model.Snapshot {
	out := snap.Clone()
	for i := range out.RcpTypes {
		if out.RcpTypes[i].ID == def.ID {
			out.RcpTypes[i] = def
		}
	}
	return out
}

// RemoveRcpDefinition 删除会诊定义及其绑定的模板排班位
// 模板按地点或子类别匹配名称；键中包含该名称的手动覆盖一并删除
func RemoveRcpDefinition(snap *model.Snapshot, id string) *model.Snapshot {
	out := snap.Clone()

	var name string
	defs := out.RcpTypes[:0]
	for _, r := range out.RcpTypes {
		if r.ID == id {
			name = r.Name
			continue
		}
		defs = append(defs, r)
	}
	out.RcpTypes = defs
	if name == "" {
		return out
	}

	template := out.Template[:0]
	for _, t := range out.Template {
		if t.Location != name && t.SubType != name {
			template = append(template, t)
		}
	}
	out.Template = template

	for key := range out.ManualOverrides {
		if strings.Contains(key, name) {
			delete(out.ManualOverrides, key)
		}
	}
	return out
}

// RenameRcpDefinition 重命名会诊定义，同步模板中的地点
func RenameRcpDefinition(snap *model.Snapshot, oldName, newName string) *model.Snapshot {
	out := snap.Clone()
	newName = strings.TrimSpace(newName)
	if newName == "" || newName == oldName {
		return out
	}
	for i := range out.RcpTypes {
		if out.RcpTypes[i].Name == oldName {
			out.RcpTypes[i].Name = newName
		}
	}
	for i := range out.Template {
		if out.Template[i].Location == oldName {
			out.Template[i].Location = newName
		}
	}
	return out
}

// AddPoste 新增门诊地点，已存在时原样返回
func AddPoste(snap *model.Snapshot, name string) *model.Snapshot {
	out := snap.Clone()
	name = strings.TrimSpace(name)
	for _, p := range out.Postes {
		if p == name {
			return out
		}
	}
	out.Postes = append(out.Postes, name)
	return out
}

// RemovePoste 删除门诊地点及该地点的模板排班位
func RemovePoste(snap *model.Snapshot, name string) *model.Snapshot {
	out := snap.Clone()
	out.Postes = without(out.Postes, name)

	template := out.Template[:0]
	for _, t := range out.Template {
		if t.Location != name {
			template = append(template, t)
		}
	}
	out.Template = template
	return out
}

// UpsertRcpException 新增或替换会诊例外，以 (模板ID, 原日期) 为键
// 新记录追加在末尾
func UpsertRcpException(snap *model.Snapshot, ex model.RcpException) *model.Snapshot {
	out := removeException(snap.Clone(), ex.RcpTemplateID, ex.OriginalDate)
	out.RcpExceptions = append(out.RcpExceptions, ex)
	return out
}

// RemoveRcpException 删除会诊例外
func RemoveRcpException(snap *model.Snapshot, templateID, originalDate string) *model.Snapshot {
	return removeException(snap.Clone(), templateID, originalDate)
}

func removeException(out *model.Snapshot, templateID, originalDate string) *model.Snapshot {
	kept := out.RcpExceptions[:0]
	for _, e := range out.RcpExceptions {
		if !e.Matches(templateID, originalDate) {
			kept = append(kept, e)
		}
	}
	out.RcpExceptions = kept
	return out
}

// SetAttendance 记录医生对某次会诊的出席决定
func SetAttendance(snap *model.Snapshot, slotID, doctorID string, status model.AttendanceStatus) *model.Snapshot {
	out := snap.Clone()
	if out.RcpAttendance == nil {
		out.RcpAttendance = make(model.RcpAttendance)
	}
	out.RcpAttendance[slotID] = out.RcpAttendance[slotID].Set(doctorID, status)
	return out
}

// SetOverride 设置单个排班位的手动覆盖，value 为空时删除
// value 可以是医生ID或 model.ClosedSentinel
func SetOverride(snap *model.Snapshot, slotID, value string) *model.Snapshot {
	return SetWeeklyOverride(snap, []string{slotID}, value)
}

// SetWeeklyOverride 对一组排班位（通常是整周活动）设置相同的手动覆盖
func SetWeeklyOverride(snap *model.Snapshot, slotIDs []string, value string) *model.Snapshot {
	out := snap.Clone()
	if out.ManualOverrides == nil {
		out.ManualOverrides = make(model.ManualOverrides)
	}
	for _, id := range slotIDs {
		if value == "" {
			delete(out.ManualOverrides, id)
			continue
		}
		out.ManualOverrides[id] = value
	}
	return out
}

// AddUnavailability 追加缺勤记录，缺少ID时自动分配
func AddUnavailability(snap *model.Snapshot, u model.Unavailability) *model.Snapshot {
	out := snap.Clone()
	if u.ID == "" {
		u.ID = uuid.New().String()
	}
	out.Unavailabilities = append(out.Unavailabilities, u)
	return out
}

// RemoveUnavailability 按ID删除缺勤记录
func RemoveUnavailability(snap *model.Snapshot, id string) *model.Snapshot {
	out := snap.Clone()
	kept := out.Unavailabilities[:0]
	for _, u := range out.Unavailabilities {
		if u.ID != id {
			kept = append(kept, u)
		}
	}
	out.Unavailabilities = kept
	return out
}

func without(ids []string, id string) []string {
	if ids == nil {
		return nil
	}
	out := make([]string, 0, len(ids))
	for _, v := range ids {
		if v != id {
			out = append(out, v)
		}
	}
	return out
}
