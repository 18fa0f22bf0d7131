package overlay

import (
	"testing"

	"github.com/radioplan/radioplan/pkg/model"
)

func baseSlots() []model.ScheduleSlot {
	return []model.ScheduleSlot{
		{ID: "s1", AssignedDoctorID: "d1", SecondaryDoctorIDs: []string{"d2"}},
		{ID: "s2", AssignedDoctorID: "d2"},
		{ID: "s3"},
	}
}

func TestApply(t *testing.T) {
	slots := baseSlots()
	overrides := model.ManualOverrides{
		"s1":    model.ClosedSentinel,
		"s3":    "d3",
		"s2":    "",
		"other": "d1",
	}

	out := Apply(slots, overrides)
	if len(out) != len(slots) {
		t.Fatalf("Apply() changed slot count: %d", len(out))
	}

	if out[0].AssignedDoctorID != "" || !out[0].IsClosed || !out[0].IsLocked {
		t.Errorf("closed slot = %+v", out[0])
	}
	if out[1].IsLocked || out[1].AssignedDoctorID != "d2" {
		t.Errorf("empty override should be ignored: %+v", out[1])
	}
	if out[2].AssignedDoctorID != "d3" || !out[2].IsLocked || out[2].IsClosed {
		t.Errorf("forced slot = %+v", out[2])
	}

	// 输入不被修改
	if slots[0].AssignedDoctorID != "d1" || slots[2].IsLocked {
		t.Error("Apply() mutated its input")
	}
}

func TestApply_KeepsIDs(t *testing.T) {
	slots := baseSlots()
	out := Apply(slots, model.ManualOverrides{"s2": "d9"})
	for i := range slots {
		if out[i].ID != slots[i].ID {
			t.Errorf("slot %d id = %s, expected %s", i, out[i].ID, slots[i].ID)
		}
	}
}

func TestLockedAndUnused(t *testing.T) {
	overrides := model.ManualOverrides{"s2": "d9", "zz": "d1", "aa": model.ClosedSentinel}
	out := Apply(baseSlots(), overrides)

	if locked := Locked(out); len(locked) != 1 || locked[0] != "s2" {
		t.Errorf("Locked() = %v", locked)
	}
	unused := Unused(out, overrides)
	if len(unused) != 2 || unused[0] != "aa" || unused[1] != "zz" {
		t.Errorf("Unused() = %v", unused)
	}
}
