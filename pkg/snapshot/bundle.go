// Package snapshot 管理调用方持有的排班配置：导入导出与不可变编辑
//
// 所有编辑操作返回新快照，不修改入参。
package snapshot

import (
	"encoding/json"
	"fmt"
	"time"

	"github.com/google/uuid"

	"github.com/radioplan/radioplan/pkg/calendar"
	"github.com/radioplan/radioplan/pkg/errors"
	"github.com/radioplan/radioplan/pkg/model"
)

// Bundle 导出的配置文件
type Bundle struct {
	*model.Snapshot
	Timestamp string `json:"timestamp"`
}

// Export 将快照序列化为配置文件
func Export(snap *model.Snapshot, now time.Time) ([]byte, error) {
	data, err := json.MarshalIndent(Bundle{
		Snapshot:  snap.Clone(),
		Timestamp: now.UTC().Format(time.RFC3339),
	}, "", "  ")
	if err != nil {
		return nil, errors.Wrap(err, errors.CodeExportFailed, "配置导出失败")
	}
	return data, nil
}

// Import 将配置文件合并到 base 上，只替换文件中出现的部分
// 缺少 ID 的缺勤记录和会诊例外会分配新 ID
func Import(base *model.Snapshot, data []byte) (*model.Snapshot, error) {
	var sections map[string]json.RawMessage
	if err := json.Unmarshal(data, &sections); err != nil {
		return nil, errors.ImportFailed(err)
	}

	out := base.Clone()
	for _, sec := range sectionsOf(out) {
		raw, ok := sections[sec.key]
		if !ok || string(raw) == "null" {
			continue
		}
		if err := sec.decode(raw); err != nil {
			return nil, errors.ImportFailed(fmt.Errorf("%s: %w", sec.key, err))
		}
	}

	for i := range out.Unavailabilities {
		if out.Unavailabilities[i].ID == "" {
			out.Unavailabilities[i].ID = uuid.New().String()
		}
	}
	for i := range out.RcpExceptions {
		if out.RcpExceptions[i].ID == "" {
			out.RcpExceptions[i].ID = uuid.New().String()
		}
	}

	if ve := Validate(out); ve.HasErrors() {
		return nil, ve.ToAppError()
	}
	return out, nil
}

type section struct {
	key    string
	decode func(raw json.RawMessage) error
}

// sectionsOf 按导出顺序列出可导入的部分，解码结果整体替换原值
func sectionsOf(out *model.Snapshot) []section {
	return []section{
		{"doctors", func(raw json.RawMessage) error { return replace(raw, &out.Doctors) }},
		{"template", func(raw json.RawMessage) error { return replace(raw, &out.Template) }},
		{"rcpTypes", func(raw json.RawMessage) error { return replace(raw, &out.RcpTypes) }},
		{"postes", func(raw json.RawMessage) error { return replace(raw, &out.Postes) }},
		{"activityDefinitions", func(raw json.RawMessage) error { return replace(raw, &out.ActivityDefinitions) }},
		{"unavailabilities", func(raw json.RawMessage) error { return replace(raw, &out.Unavailabilities) }},
		{"shiftHistory", func(raw json.RawMessage) error { return replace(raw, &out.ShiftHistory) }},
		{"manualOverrides", func(raw json.RawMessage) error { return replace(raw, &out.ManualOverrides) }},
		{"rcpAttendance", func(raw json.RawMessage) error { return replace(raw, &out.RcpAttendance) }},
		{"rcpExceptions", func(raw json.RawMessage) error { return replace(raw, &out.RcpExceptions) }},
	}
}

// replace 解码到新值后再赋给 dst，map 不会与旧内容合并
func replace[T any](raw json.RawMessage, dst *T) error {
	var v T
	if err := json.Unmarshal(raw, &v); err != nil {
		return err
	}
	*dst = v
	return nil
}

// Validate 检查快照的结构合法性
// 悬空的医生引用不算错误，引擎会在解析时过滤
func Validate(snap *model.Snapshot) *errors.ValidationErrors {
	ve := &errors.ValidationErrors{}

	seen := make(map[string]bool, len(snap.Doctors))
	for i, d := range snap.Doctors {
		field := fmt.Sprintf("doctors[%d]", i)
		if d.ID == "" {
			ve.Add(field+".id", "不能为空")
			continue
		}
		if seen[d.ID] {
			ve.Add(field+".id", fmt.Sprintf("重复的医生ID %q", d.ID))
		}
		seen[d.ID] = true
		for _, day := range d.ExcludedDays {
			if !day.IsValid() {
				ve.Add(field+".excludedDays", fmt.Sprintf("未知工作日 %q", day))
			}
		}
	}

	for i, t := range snap.Template {
		field := fmt.Sprintf("template[%d]", i)
		if t.ID == "" {
			ve.Add(field+".id", "不能为空")
		}
		if !t.Day.IsValid() {
			ve.Add(field+".day", fmt.Sprintf("未知工作日 %q", t.Day))
		}
		if !t.Period.IsHalfDay() {
			ve.Add(field+".period", fmt.Sprintf("未知时段 %q", t.Period))
		}
		if !t.Type.IsValid() {
			ve.Add(field+".type", fmt.Sprintf("未知类别 %q", t.Type))
		}
		if t.Frequency != "" && t.Frequency != model.FrequencyWeekly && t.Frequency != model.FrequencyBiweekly {
			ve.Add(field+".frequency", fmt.Sprintf("未知频率 %q", t.Frequency))
		}
	}

	for i, r := range snap.RcpTypes {
		field := fmt.Sprintf("rcpTypes[%d]", i)
		if r.Name == "" {
			ve.Add(field+".name", "不能为空")
		}
		if r.WeekParity != "" && r.WeekParity != model.ParityOdd && r.WeekParity != model.ParityEven {
			ve.Add(field+".weekParity", fmt.Sprintf("未知奇偶 %q", r.WeekParity))
		}
	}

	for i, a := range snap.ActivityDefinitions {
		field := fmt.Sprintf("activityDefinitions[%d]", i)
		if a.ID == "" {
			ve.Add(field+".id", "不能为空")
		}
		if a.Granularity != model.GranularityHalfDay && a.Granularity != model.GranularityWeekly {
			ve.Add(field+".granularity", fmt.Sprintf("未知粒度 %q", a.Granularity))
		}
	}

	for i, u := range snap.Unavailabilities {
		field := fmt.Sprintf("unavailabilities[%d]", i)
		start, err1 := calendar.ParseDate(u.StartDate)
		end, err2 := calendar.ParseDate(u.EndDate)
		if err1 != nil {
			ve.Add(field+".startDate", fmt.Sprintf("日期格式无效 %q", u.StartDate))
		}
		if err2 != nil {
			ve.Add(field+".endDate", fmt.Sprintf("日期格式无效 %q", u.EndDate))
		}
		if err1 == nil && err2 == nil && end.Before(start) {
			ve.Add(field+".endDate", "早于开始日期")
		}
		if u.Period != "" && u.Period != model.PeriodAllDay && !u.Period.IsHalfDay() {
			ve.Add(field+".period", fmt.Sprintf("未知时段 %q", u.Period))
		}
	}

	for i, e := range snap.RcpExceptions {
		field := fmt.Sprintf("rcpExceptions[%d]", i)
		if _, err := calendar.ParseDate(e.OriginalDate); err != nil {
			ve.Add(field+".originalDate", fmt.Sprintf("日期格式无效 %q", e.OriginalDate))
		}
		if e.NewDate != "" {
			if _, err := calendar.ParseDate(e.NewDate); err != nil {
				ve.Add(field+".newDate", fmt.Sprintf("日期格式无效 %q", e.NewDate))
			}
		}
		if e.NewPeriod != "" && !e.NewPeriod.IsHalfDay() {
			ve.Add(field+".newPeriod", fmt.Sprintf("未知时段 %q", e.NewPeriod))
		}
	}

	return ve
}
