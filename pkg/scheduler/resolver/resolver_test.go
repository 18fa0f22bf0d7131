package resolver

import (
	"testing"
	"time"

	"github.com/radioplan/radioplan/pkg/model"
)

var (
	oddWeek  = time.Date(2024, 6, 3, 0, 0, 0, 0, time.UTC)  // 第23周
	evenWeek = time.Date(2024, 6, 10, 0, 0, 0, 0, time.UTC) // 第24周
)

func testPhysicians() []model.Physician {
	return []model.Physician{
		{ID: "d1", Name: "Dr A", Specialties: []string{"Onco"}},
		{ID: "d2", Name: "Dr B", Specialties: []string{"Sein"}},
		{ID: "d3", Name: "Dr C", Specialties: []string{"ORL"}},
	}
}

func rcpTemplate() model.WeeklyTemplateSlot {
	return model.WeeklyTemplateSlot{
		ID:        "t-rcp",
		Day:       model.Tuesday,
		Period:    model.PeriodMorning,
		Time:      "08:30",
		Location:  "RCP Onco",
		Type:      model.SlotRCP,
		SubType:   "RCP Onco",
		DoctorIDs: []string{"d1", "d2", "d3"},
	}
}

func TestResolve_RcpParity(t *testing.T) {
	tests := []struct {
		name     string
		parity   model.WeekParity
		week     time.Time
		expected int
	}{
		{"ODD 奇数周", model.ParityOdd, oddWeek, 1},
		{"ODD 偶数周", model.ParityOdd, evenWeek, 0},
		{"EVEN 奇数周", model.ParityEven, oddWeek, 0},
		{"EVEN 偶数周", model.ParityEven, evenWeek, 1},
		{"未设置 奇数周", "", oddWeek, 1},
		{"未设置 偶数周", "", evenWeek, 0},
	}

	r := NewTemplateResolver()
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			slots := r.Resolve(&Request{
				WeekStart:  tt.week,
				Template:   []model.WeeklyTemplateSlot{rcpTemplate()},
				Physicians: testPhysicians(),
				RcpDefinitions: []model.RcpDefinition{
					{ID: "r1", Name: "RCP Onco", Frequency: model.FrequencyBiweekly, WeekParity: tt.parity},
				},
			})
			if len(slots) != tt.expected {
				t.Errorf("Resolve() returned %d slots, expected %d", len(slots), tt.expected)
			}
		})
	}
}

func TestResolve_WeeklyRcpDefinition(t *testing.T) {
	// 周频率的会诊定义不取消模板自身的双周标记
	tpl := rcpTemplate()
	tpl.Frequency = model.FrequencyBiweekly

	r := NewTemplateResolver()
	slots := r.Resolve(&Request{
		WeekStart:      evenWeek,
		Template:       []model.WeeklyTemplateSlot{tpl},
		Physicians:     testPhysicians(),
		RcpDefinitions: []model.RcpDefinition{{ID: "r1", Name: "RCP Onco", Frequency: model.FrequencyWeekly}},
	})
	if len(slots) != 0 {
		t.Errorf("biweekly template slot should still be skipped on even weeks, got %d", len(slots))
	}
}

func TestResolve_BiweeklyTemplateSlotEvenWeek(t *testing.T) {
	tpl := model.WeeklyTemplateSlot{
		ID:        "t-consult",
		Day:       model.Monday,
		Period:    model.PeriodMorning,
		Location:  "Box 1",
		Type:      model.SlotConsultation,
		Frequency: model.FrequencyBiweekly,
		DoctorIDs: []string{"d1"},
	}

	r := NewTemplateResolver()
	if slots := r.Resolve(&Request{WeekStart: evenWeek, Template: []model.WeeklyTemplateSlot{tpl}, Physicians: testPhysicians()}); len(slots) != 0 {
		t.Errorf("expected no slot on even week, got %d", len(slots))
	}
	slots := r.Resolve(&Request{WeekStart: oddWeek, Template: []model.WeeklyTemplateSlot{tpl}, Physicians: testPhysicians()})
	if len(slots) != 1 {
		t.Fatalf("expected one slot on odd week, got %d", len(slots))
	}
	if slots[0].ID != "t-consult-2024-06-03" || slots[0].Date != "2024-06-03" {
		t.Errorf("unexpected slot %+v", slots[0])
	}
}

func TestResolve_Exceptions(t *testing.T) {
	r := NewTemplateResolver()

	t.Run("取消", func(t *testing.T) {
		slots := r.Resolve(&Request{
			WeekStart:  oddWeek,
			Template:   []model.WeeklyTemplateSlot{rcpTemplate()},
			Physicians: testPhysicians(),
			Exceptions: []model.RcpException{
				{RcpTemplateID: "t-rcp", OriginalDate: "2024-06-04", IsCancelled: true},
			},
		})
		if len(slots) != 0 {
			t.Errorf("cancelled occurrence should not be emitted, got %d", len(slots))
		}
	})

	t.Run("改期", func(t *testing.T) {
		slots := r.Resolve(&Request{
			WeekStart:  oddWeek,
			Template:   []model.WeeklyTemplateSlot{rcpTemplate()},
			Physicians: testPhysicians(),
			Exceptions: []model.RcpException{
				{RcpTemplateID: "t-rcp", OriginalDate: "2024-06-04", NewDate: "2024-06-06", NewPeriod: model.PeriodAfternoon},
			},
		})
		if len(slots) != 1 {
			t.Fatalf("expected one slot, got %d", len(slots))
		}
		s := slots[0]
		if s.ID != "t-rcp-2024-06-04" {
			t.Errorf("ID = %s, expected id keyed on standard date", s.ID)
		}
		if s.Date != "2024-06-06" || s.Period != model.PeriodAfternoon || s.Day != model.Thursday {
			t.Errorf("moved slot = %s %s %s", s.Date, s.Day, s.Period)
		}
		if s.Time != "08:30" {
			t.Errorf("Time = %s, expected template time", s.Time)
		}
	})

	t.Run("其他日期不受影响", func(t *testing.T) {
		slots := r.Resolve(&Request{
			WeekStart:  oddWeek,
			Template:   []model.WeeklyTemplateSlot{rcpTemplate()},
			Physicians: testPhysicians(),
			Exceptions: []model.RcpException{
				{RcpTemplateID: "t-rcp", OriginalDate: "2024-05-21", IsCancelled: true},
			},
		})
		if len(slots) != 1 || slots[0].Date != "2024-06-04" {
			t.Errorf("unrelated exception changed the slot: %+v", slots)
		}
	})

	t.Run("取消优先于频率", func(t *testing.T) {
		slots := r.Resolve(&Request{
			WeekStart:      oddWeek,
			Template:       []model.WeeklyTemplateSlot{rcpTemplate()},
			Physicians:     testPhysicians(),
			RcpDefinitions: []model.RcpDefinition{{ID: "r1", Name: "RCP Onco", Frequency: model.FrequencyBiweekly, WeekParity: model.ParityOdd}},
			Exceptions:     []model.RcpException{{RcpTemplateID: "t-rcp", OriginalDate: "2024-06-04", IsCancelled: true}},
		})
		if len(slots) != 0 {
			t.Errorf("expected cancellation to win, got %d slots", len(slots))
		}
	})
}

func TestResolve_ZombieReferences(t *testing.T) {
	tpl := model.WeeklyTemplateSlot{
		ID:             "t-consult",
		Day:            model.Wednesday,
		Period:         model.PeriodAfternoon,
		Location:       "Box 2",
		Type:           model.SlotConsultation,
		DoctorIDs:      []string{"gone", "d1", "ghost", "d2"},
		BackupDoctorID: "ghost",
	}

	r := NewTemplateResolver()
	slots := r.Resolve(&Request{WeekStart: oddWeek, Template: []model.WeeklyTemplateSlot{tpl}, Physicians: testPhysicians()})
	if len(slots) != 1 {
		t.Fatalf("expected one slot, got %d", len(slots))
	}
	s := slots[0]
	if s.AssignedDoctorID != "" {
		t.Errorf("AssignedDoctorID = %s, expected empty", s.AssignedDoctorID)
	}
	if len(s.SecondaryDoctorIDs) != 2 || s.SecondaryDoctorIDs[0] != "d1" || s.SecondaryDoctorIDs[1] != "d2" {
		t.Errorf("SecondaryDoctorIDs = %v", s.SecondaryDoctorIDs)
	}
	if s.BackupDoctorID != "" {
		t.Errorf("BackupDoctorID = %s, expected empty", s.BackupDoctorID)
	}
}

func TestResolve_LegacyFields(t *testing.T) {
	tpl := model.WeeklyTemplateSlot{
		ID:                 "t-legacy",
		Day:                model.Monday,
		Period:             model.PeriodMorning,
		Location:           "Box 3",
		Type:               model.SlotConsultation,
		DefaultDoctorID:    "d2",
		SecondaryDoctorIDs: []string{"d3"},
		BackupDoctorID:     "d1",
	}

	r := NewTemplateResolver()
	s := r.Resolve(&Request{WeekStart: oddWeek, Template: []model.WeeklyTemplateSlot{tpl}, Physicians: testPhysicians()})[0]
	if s.AssignedDoctorID != "d2" || len(s.SecondaryDoctorIDs) != 1 || s.SecondaryDoctorIDs[0] != "d3" || s.BackupDoctorID != "d1" {
		t.Errorf("unexpected legacy resolution %+v", s)
	}
}

func TestResolve_UnconfirmedRcp(t *testing.T) {
	r := NewTemplateResolver()
	slots := r.Resolve(&Request{
		WeekStart:  oddWeek,
		Template:   []model.WeeklyTemplateSlot{rcpTemplate()},
		Physicians: testPhysicians(),
	})
	s := slots[0]
	// 4 % 3 = 1
	if s.AssignedDoctorID != "d2" {
		t.Errorf("AssignedDoctorID = %s, expected d2", s.AssignedDoctorID)
	}
	if !s.IsUnconfirmed {
		t.Error("slot should be unconfirmed")
	}
	if len(s.SecondaryDoctorIDs) != 0 {
		t.Errorf("unconfirmed slot should have no secondaries, got %v", s.SecondaryDoctorIDs)
	}

	// 改期后按新日期计算：6 % 3 = 0
	moved := r.Resolve(&Request{
		WeekStart:  oddWeek,
		Template:   []model.WeeklyTemplateSlot{rcpTemplate()},
		Physicians: testPhysicians(),
		Exceptions: []model.RcpException{{RcpTemplateID: "t-rcp", OriginalDate: "2024-06-04", NewDate: "2024-06-06"}},
	})[0]
	if moved.AssignedDoctorID != "d1" {
		t.Errorf("AssignedDoctorID = %s, expected d1", moved.AssignedDoctorID)
	}
}

func TestResolve_UnconfirmedRcpEmptyPool(t *testing.T) {
	tpl := rcpTemplate()
	tpl.DoctorIDs = nil

	r := NewTemplateResolver()
	s := r.Resolve(&Request{WeekStart: oddWeek, Template: []model.WeeklyTemplateSlot{tpl}, Physicians: testPhysicians()})[0]
	if s.AssignedDoctorID != "" || !s.IsUnconfirmed {
		t.Errorf("unexpected assignment %+v", s)
	}
}

func TestResolve_ConfirmedAttendance(t *testing.T) {
	r := NewTemplateResolver()
	slots := r.Resolve(&Request{
		WeekStart:  oddWeek,
		Template:   []model.WeeklyTemplateSlot{rcpTemplate()},
		Physicians: testPhysicians(),
		Attendance: model.RcpAttendance{
			"t-rcp-2024-06-04": {
				{DoctorID: "d3", Status: model.AttendancePresent},
				{DoctorID: "d1", Status: model.AttendanceAbsent},
				{DoctorID: "d2", Status: model.AttendancePresent},
			},
		},
	})
	s := slots[0]
	if s.AssignedDoctorID != "d3" {
		t.Errorf("AssignedDoctorID = %s, expected d3", s.AssignedDoctorID)
	}
	if len(s.SecondaryDoctorIDs) != 1 || s.SecondaryDoctorIDs[0] != "d2" {
		t.Errorf("SecondaryDoctorIDs = %v, expected [d2]", s.SecondaryDoctorIDs)
	}
	if s.IsUnconfirmed {
		t.Error("slot should be confirmed")
	}
}

func TestResolve_ConfirmedAttendanceZombie(t *testing.T) {
	r := NewTemplateResolver()
	s := r.Resolve(&Request{
		WeekStart:  oddWeek,
		Template:   []model.WeeklyTemplateSlot{rcpTemplate()},
		Physicians: testPhysicians(),
		Attendance: model.RcpAttendance{
			"t-rcp-2024-06-04": {
				{DoctorID: "gone", Status: model.AttendancePresent},
				{DoctorID: "d1", Status: model.AttendancePresent},
			},
		},
	})[0]
	if s.AssignedDoctorID != "" {
		t.Errorf("deleted physician surfaced as primary: %s", s.AssignedDoctorID)
	}
	if len(s.SecondaryDoctorIDs) != 1 || s.SecondaryDoctorIDs[0] != "d1" {
		t.Errorf("SecondaryDoctorIDs = %v", s.SecondaryDoctorIDs)
	}
}

func TestResolve_Blocking(t *testing.T) {
	nonBlocking := false
	optional := rcpTemplate()
	optional.ID = "t-opt"
	optional.IsBlocking = &nonBlocking

	r := NewTemplateResolver()
	slots := r.Resolve(&Request{
		WeekStart:  oddWeek,
		Template:   []model.WeeklyTemplateSlot{rcpTemplate(), optional},
		Physicians: testPhysicians(),
	})
	if len(slots) != 2 {
		t.Fatalf("expected 2 slots, got %d", len(slots))
	}
	if !slots[0].IsBlocking {
		t.Error("unset blocking flag should default to true")
	}
	if slots[1].IsBlocking {
		t.Error("explicit non-blocking flag lost")
	}
}

func TestResolve_Deterministic(t *testing.T) {
	req := &Request{
		WeekStart:  oddWeek,
		Template:   []model.WeeklyTemplateSlot{rcpTemplate()},
		Physicians: testPhysicians(),
	}

	r := NewTemplateResolver()
	a := r.Resolve(req)
	b := r.Resolve(req)
	if len(a) != len(b) || a[0].ID != b[0].ID || a[0].AssignedDoctorID != b[0].AssignedDoctorID {
		t.Errorf("Resolve() not deterministic: %+v vs %+v", a, b)
	}
}

func TestActivitySlots(t *testing.T) {
	activities := []model.ActivityDefinition{
		{ID: "a1", Name: "Astreinte", Granularity: model.GranularityWeekly},
		{ID: "a2", Name: "Unity", Granularity: model.GranularityHalfDay, AllowDoubleBooking: true},
	}

	slots := ActivitySlots(oddWeek, activities)
	if len(slots) != 20 {
		t.Fatalf("expected 20 slots, got %d", len(slots))
	}

	first := slots[0]
	if first.ID != "act-a1-2024-06-03-MORNING" {
		t.Errorf("ID = %s", first.ID)
	}
	if first.Location != "Astreinte" || first.SubType != "Astreinte" || first.ActivityID != "a1" {
		t.Errorf("unexpected activity slot %+v", first)
	}
	if !first.IsBlocking || first.IsAssigned() {
		t.Errorf("activity slot should be blocking and unassigned: %+v", first)
	}
	if slots[9].ID != "act-a1-2024-06-07-AFTERNOON" {
		t.Errorf("last slot of first activity = %s", slots[9].ID)
	}
	if slots[10].IsBlocking {
		t.Error("double-bookable activity should produce non-blocking slots")
	}
	for _, s := range slots {
		if s.IsGenerated {
			t.Errorf("activity slot %s should not be flagged as generated", s.ID)
		}
	}
}

func TestResolve_GeneratedFlag(t *testing.T) {
	slots := NewTemplateResolver().Resolve(&Request{
		WeekStart:  oddWeek,
		Template:   []model.WeeklyTemplateSlot{rcpTemplate()},
		Physicians: testPhysicians(),
	})
	if len(slots) == 0 || !slots[0].IsGenerated {
		t.Errorf("template slots should be flagged as generated: %+v", slots)
	}
}

func TestOccursInWeek(t *testing.T) {
	defs := []model.RcpDefinition{
		{ID: "r-odd", Name: "RCP Odd", Frequency: model.FrequencyBiweekly, WeekParity: model.ParityOdd},
		{ID: "r-even", Name: "RCP Even", Frequency: model.FrequencyBiweekly, WeekParity: model.ParityEven},
	}
	tests := []struct {
		name string
		slot model.WeeklyTemplateSlot
		odd  bool
		want bool
	}{
		{"奇数周定义-奇数周", model.WeeklyTemplateSlot{Location: "RCP Odd", Type: model.SlotRCP}, true, true},
		{"奇数周定义-偶数周", model.WeeklyTemplateSlot{Location: "RCP Odd", Type: model.SlotRCP}, false, false},
		{"偶数周定义-偶数周", model.WeeklyTemplateSlot{Location: "RCP Even", Type: model.SlotRCP}, false, true},
		{"偶数周定义-奇数周", model.WeeklyTemplateSlot{Location: "RCP Even", Type: model.SlotRCP}, true, false},
		{"双周模板-偶数周", model.WeeklyTemplateSlot{Location: "Box", Frequency: model.FrequencyBiweekly}, false, false},
		{"每周模板", model.WeeklyTemplateSlot{Location: "Box"}, false, true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := occursInWeek(&tt.slot, defs, tt.odd); got != tt.want {
				t.Errorf("occursInWeek() = %v, want %v", got, tt.want)
			}
		})
	}
}
