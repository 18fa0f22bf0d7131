// Package overlay 将手动覆盖叠加到计算出的排班位上
package overlay

import (
	"sort"

	"github.com/radioplan/radioplan/pkg/model"
)

// Apply 返回叠加手动覆盖后的新排班位列表
// 覆盖值为医生ID时强制分配并锁定；为 ClosedSentinel 时清空分配并标记关闭
// 不改变排班位ID集合
func Apply(slots []model.ScheduleSlot, overrides model.ManualOverrides) []model.ScheduleSlot {
	out := model.CloneSlots(slots)
	if len(overrides) == 0 {
		return out
	}
	for i := range out {
		value, ok := overrides[out[i].ID]
		if !ok || value == "" {
			continue
		}
		out[i].IsLocked = true
		if value == model.ClosedSentinel {
			out[i].AssignedDoctorID = ""
			out[i].IsClosed = true
			continue
		}
		out[i].AssignedDoctorID = value
	}
	return out
}

// Locked 返回被手动覆盖锁定的排班位ID
func Locked(slots []model.ScheduleSlot) []string {
	ids := []string{}
	for i := range slots {
		if slots[i].IsLocked {
			ids = append(ids, slots[i].ID)
		}
	}
	return ids
}

// Unused 返回找不到对应排班位的覆盖键，按字典序排序
func Unused(slots []model.ScheduleSlot, overrides model.ManualOverrides) []string {
	ids := make(map[string]bool, len(slots))
	for i := range slots {
		ids[slots[i].ID] = true
	}
	keys := []string{}
	for k := range overrides {
		if !ids[k] {
			keys = append(keys, k)
		}
	}
	sort.Strings(keys)
	return keys
}
