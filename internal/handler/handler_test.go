package handler

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/labstack/echo/v4"

	"github.com/radioplan/radioplan/internal/repository"
	"github.com/radioplan/radioplan/pkg/model"
	"github.com/radioplan/radioplan/pkg/planner"
)

const bundle = `{
	"doctors": [
		{"id": "X", "name": "Dr X", "specialty": ["Onco"]},
		{"id": "Y", "name": "Dr Y", "specialty": ["Onco"]},
		{"id": "Z", "name": "Dr Z", "specialty": ["Cardio"]}
	],
	"template": [
		{"id": "t-consult", "day": "MONDAY", "period": "MORNING", "location": "Box 1", "type": "CONSULTATION", "doctorIds": ["Z"]}
	],
	"postes": ["Box 1"],
	"unavailabilities": [
		{"id": "u1", "doctorId": "Z", "startDate": "2024-06-03", "endDate": "2024-06-03", "reason": "Congrès", "period": "MORNING"}
	]
}`

func newTestServer(t *testing.T) *echo.Echo {
	t.Helper()
	h := New(planner.New(planner.DefaultOptions()), repository.NewMemorySnapshotStore(), "test")
	h.now = func() time.Time { return time.Date(2024, 6, 5, 10, 0, 0, 0, time.UTC) }

	e := echo.New()
	e.HTTPErrorHandler = ErrorHandler
	h.Register(e)
	return e
}

func do(e *echo.Echo, method, path, body string) *httptest.ResponseRecorder {
	req := httptest.NewRequest(method, path, strings.NewReader(body))
	if body != "" {
		req.Header.Set(echo.HeaderContentType, echo.MIMEApplicationJSON)
	}
	rec := httptest.NewRecorder()
	e.ServeHTTP(rec, req)
	return rec
}

func decode(t *testing.T, rec *httptest.ResponseRecorder, v interface{}) {
	t.Helper()
	if err := json.Unmarshal(rec.Body.Bytes(), v); err != nil {
		t.Fatalf("decode %q: %v", rec.Body.String(), err)
	}
}

func TestWeek_NoSnapshot(t *testing.T) {
	e := newTestServer(t)
	rec := do(e, http.MethodPost, "/api/v1/schedule/week", `{}`)
	if rec.Code != http.StatusNotFound {
		t.Fatalf("expected 404, got %d: %s", rec.Code, rec.Body.String())
	}
	var body map[string]interface{}
	decode(t, rec, &body)
	if body["code"] != "NOT_FOUND" {
		t.Errorf("unexpected error body: %v", body)
	}
}

func TestConfigAndSchedule(t *testing.T) {
	e := newTestServer(t)

	rec := do(e, http.MethodPut, "/api/v1/config?label=initial", bundle)
	if rec.Code != http.StatusOK {
		t.Fatalf("put config: %d %s", rec.Code, rec.Body.String())
	}
	var saved repository.SnapshotRecord
	decode(t, rec, &saved)
	if saved.Version != 1 || saved.Label != "initial" {
		t.Errorf("unexpected record: %+v", saved)
	}

	// 周中任意日期归到周一
	rec = do(e, http.MethodPost, "/api/v1/schedule/week", `{"week": "2024-06-05"}`)
	if rec.Code != http.StatusOK {
		t.Fatalf("week: %d %s", rec.Code, rec.Body.String())
	}
	var week planner.WeekResult
	decode(t, rec, &week)
	if week.WeekStart != "2024-06-03" {
		t.Errorf("weekStart = %s", week.WeekStart)
	}
	const conflictID = "conflict-abs-t-consult-2024-06-03-Z"
	found := false
	for _, c := range week.Conflicts {
		if c.ID == conflictID {
			found = true
		}
	}
	if !found {
		t.Fatalf("conflict %s missing: %+v", conflictID, week.Conflicts)
	}

	rec = do(e, http.MethodPost, "/api/v1/schedule/replacements", `{"week": "2024-06-03", "conflictId": "`+conflictID+`"}`)
	if rec.Code != http.StatusOK {
		t.Fatalf("replacements: %d %s", rec.Code, rec.Body.String())
	}
	var repl ReplacementsResponse
	decode(t, rec, &repl)
	if len(repl.Suggestions) != 2 {
		t.Fatalf("expected 2 suggestions, got %+v", repl.Suggestions)
	}
	for _, s := range repl.Suggestions {
		if s.SuggestedDoctorID == "Z" {
			t.Error("absent physician suggested")
		}
		if s.Score < 0 || s.Score > 100 {
			t.Errorf("score out of range: %d", s.Score)
		}
	}

	rec = do(e, http.MethodPost, "/api/v1/schedule/replacements", `{"week": "2024-06-03", "conflictId": "nope"}`)
	if rec.Code != http.StatusNotFound {
		t.Errorf("unknown conflict: expected 404, got %d", rec.Code)
	}

	rec = do(e, http.MethodPost, "/api/v1/schedule/available", `{"date": "2024-06-03", "period": "MORNING"}`)
	if rec.Code != http.StatusOK {
		t.Fatalf("available: %d %s", rec.Code, rec.Body.String())
	}
	var doctors []model.Physician
	decode(t, rec, &doctors)
	if len(doctors) != 2 || doctors[0].ID != "X" || doctors[1].ID != "Y" {
		t.Errorf("unexpected available doctors: %+v", doctors)
	}
}

func TestPutConfig_PartialBundleKeepsSections(t *testing.T) {
	e := newTestServer(t)
	if rec := do(e, http.MethodPut, "/api/v1/config", bundle); rec.Code != http.StatusOK {
		t.Fatalf("put: %d", rec.Code)
	}
	rec := do(e, http.MethodPut, "/api/v1/config", `{"postes": ["Box 1", "Box 2"]}`)
	if rec.Code != http.StatusOK {
		t.Fatalf("partial put: %d %s", rec.Code, rec.Body.String())
	}

	rec = do(e, http.MethodGet, "/api/v1/config", "")
	var latest repository.SnapshotRecord
	decode(t, rec, &latest)
	if latest.Version != 2 || len(latest.Snapshot.Doctors) != 3 || len(latest.Snapshot.Postes) != 2 {
		t.Errorf("unexpected merged config: version=%d doctors=%d postes=%v",
			latest.Version, len(latest.Snapshot.Doctors), latest.Snapshot.Postes)
	}

	rec = do(e, http.MethodGet, "/api/v1/config/versions?limit=1", "")
	var versions struct {
		Versions []repository.SnapshotRecord `json:"versions"`
		Total    int                         `json:"total"`
	}
	decode(t, rec, &versions)
	if versions.Total != 2 || len(versions.Versions) != 1 || versions.Versions[0].Version != 2 {
		t.Errorf("unexpected versions: %+v", versions)
	}
}

func TestPutConfig_Errors(t *testing.T) {
	tests := []struct {
		name string
		body string
		code string
	}{
		{"malformed", `{not json`, "IMPORT_FAILED"},
		{"invalid template", `{"template": [{"id": "t1", "day": "SUNDAY", "period": "MORNING", "type": "CONSULTATION"}]}`, "VALIDATION_FAILED"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			e := newTestServer(t)
			rec := do(e, http.MethodPut, "/api/v1/config", tt.body)
			if rec.Code != http.StatusBadRequest {
				t.Fatalf("expected 400, got %d", rec.Code)
			}
			var body map[string]interface{}
			decode(t, rec, &body)
			if body["code"] != tt.code {
				t.Errorf("code = %v, want %s", body["code"], tt.code)
			}
		})
	}
}

func TestExportConfig(t *testing.T) {
	e := newTestServer(t)
	do(e, http.MethodPut, "/api/v1/config", bundle)

	rec := do(e, http.MethodGet, "/api/v1/config/export", "")
	if rec.Code != http.StatusOK {
		t.Fatalf("export: %d", rec.Code)
	}
	if !strings.Contains(rec.Header().Get(echo.HeaderContentDisposition), "radioplan-v1.json") {
		t.Errorf("content disposition = %q", rec.Header().Get(echo.HeaderContentDisposition))
	}
	var out map[string]interface{}
	decode(t, rec, &out)
	if out["timestamp"] != "2024-06-05T10:00:00Z" {
		t.Errorf("timestamp = %v", out["timestamp"])
	}
}

func TestMonthAndStats(t *testing.T) {
	e := newTestServer(t)
	do(e, http.MethodPut, "/api/v1/config", bundle)

	rec := do(e, http.MethodPost, "/api/v1/schedule/month", `{"start": "2024-06-03"}`)
	var month MonthResponse
	decode(t, rec, &month)
	if month.Weeks != 5 || len(month.Slots) != 5 {
		t.Errorf("expected 5 weekly consultations, got weeks=%d slots=%d", month.Weeks, len(month.Slots))
	}

	rec = do(e, http.MethodPost, "/api/v1/stats/coverage", `{"week": "2024-06-03"}`)
	if rec.Code != http.StatusOK {
		t.Fatalf("coverage: %d %s", rec.Code, rec.Body.String())
	}
	var coverage map[string]interface{}
	decode(t, rec, &coverage)
	if coverage["totalSlots"] != float64(1) {
		t.Errorf("totalSlots = %v", coverage["totalSlots"])
	}

	rec = do(e, http.MethodPost, "/api/v1/stats/equity", `{"week": "2024-06-03"}`)
	if rec.Code != http.StatusOK {
		t.Fatalf("equity: %d", rec.Code)
	}
}

func TestHolidaysAndSystem(t *testing.T) {
	e := newTestServer(t)

	rec := do(e, http.MethodGet, "/api/v1/holidays/2024", "")
	if rec.Code != http.StatusOK || !strings.Contains(rec.Body.String(), "2024-05-01") {
		t.Errorf("holidays: %d %s", rec.Code, rec.Body.String())
	}
	if rec := do(e, http.MethodGet, "/api/v1/holidays/abc", ""); rec.Code != http.StatusBadRequest {
		t.Errorf("invalid year: expected 400, got %d", rec.Code)
	}
	if rec := do(e, http.MethodGet, "/health", ""); rec.Code != http.StatusOK {
		t.Errorf("health: %d", rec.Code)
	}
	if rec := do(e, http.MethodGet, "/version", ""); !strings.Contains(rec.Body.String(), `"test"`) {
		t.Errorf("version: %s", rec.Body.String())
	}
	if rec := do(e, http.MethodGet, "/unknown", ""); rec.Code != http.StatusNotFound {
		t.Errorf("unknown route: %d", rec.Code)
	}
}

func TestExport(t *testing.T) {
	e := newTestServer(t)
	do(e, http.MethodPut, "/api/v1/config", bundle)

	rec := do(e, http.MethodPost, "/api/v1/export", `{"week": "2024-06-03"}`)
	if rec.Code != http.StatusOK {
		t.Fatalf("xlsx: %d %s", rec.Code, rec.Body.String())
	}
	if rec.Header().Get(echo.HeaderContentType) != mimeXLSX || rec.Body.Len() == 0 {
		t.Errorf("unexpected xlsx response: %s (%d bytes)", rec.Header().Get(echo.HeaderContentType), rec.Body.Len())
	}

	rec = do(e, http.MethodPost, "/api/v1/export?format=ics&doctor=Z", `{"week": "2024-06-03"}`)
	if rec.Code != http.StatusOK {
		t.Fatalf("ics: %d %s", rec.Code, rec.Body.String())
	}
	if !strings.Contains(rec.Body.String(), "UID:t-consult-2024-06-03@radioplan") {
		t.Errorf("ics missing slot:\n%s", rec.Body.String())
	}

	if rec := do(e, http.MethodPost, "/api/v1/export?format=ics&doctor=nobody", `{}`); rec.Code != http.StatusNotFound {
		t.Errorf("unknown doctor: expected 404, got %d", rec.Code)
	}
	if rec := do(e, http.MethodPost, "/api/v1/export?format=pdf", `{}`); rec.Code != http.StatusBadRequest {
		t.Errorf("unknown format: expected 400, got %d", rec.Code)
	}
}

func TestApplyReplacement(t *testing.T) {
	e := newTestServer(t)
	do(e, http.MethodPut, "/api/v1/config", bundle)
	const conflictID = "conflict-abs-t-consult-2024-06-03-Z"

	rec := do(e, http.MethodPost, "/api/v1/schedule/replacements", `{"week": "2024-06-03", "conflictId": "`+conflictID+`"}`)
	var repl ReplacementsResponse
	decode(t, rec, &repl)
	if len(repl.SlotConflicts) != 1 || repl.SlotConflicts[0].ID != conflictID {
		t.Errorf("slotConflicts = %+v", repl.SlotConflicts)
	}

	// 未指定医生时采用得分最高者，X 与 Y 同分取名册顺序
	rec = do(e, http.MethodPost, "/api/v1/schedule/replacements/apply", `{"week": "2024-06-03", "conflictId": "`+conflictID+`"}`)
	if rec.Code != http.StatusOK {
		t.Fatalf("apply: %d %s", rec.Code, rec.Body.String())
	}
	var applied ApplyReplacementResponse
	decode(t, rec, &applied)
	if applied.Version != 2 || applied.Suggestion.SuggestedDoctorID != "X" || applied.Suggestion.OriginalDoctorID != "Z" {
		t.Errorf("unexpected apply response: %+v", applied)
	}
	if applied.Slot.AssignedDoctorID != "X" || !applied.Slot.IsLocked {
		t.Errorf("slot = %+v", applied.Slot)
	}
	if applied.Remaining == nil || len(applied.Remaining) != 0 {
		t.Errorf("remaining = %+v", applied.Remaining)
	}

	rec = do(e, http.MethodPost, "/api/v1/schedule/week", `{"week": "2024-06-03"}`)
	var week planner.WeekResult
	decode(t, rec, &week)
	if len(week.Conflicts) != 0 {
		t.Errorf("conflict should be resolved, got %+v", week.Conflicts)
	}
	if len(week.Locked) != 1 || week.Locked[0] != "t-consult-2024-06-03" {
		t.Errorf("locked = %v", week.Locked)
	}
	if slot := model.FindSlot(week.Slots, "t-consult-2024-06-03"); slot == nil || slot.AssignedDoctorID != "X" {
		t.Errorf("consultation slot = %+v", slot)
	}

	rec = do(e, http.MethodPost, "/api/v1/schedule/replacements/apply", `{"week": "2024-06-03", "conflictId": "`+conflictID+`"}`)
	if rec.Code != http.StatusNotFound {
		t.Errorf("resolved conflict: expected 404, got %d", rec.Code)
	}
}

func TestApplyReplacement_ChosenDoctorAndErrors(t *testing.T) {
	e := newTestServer(t)
	const conflictID = "conflict-abs-t-consult-2024-06-03-Z"

	rec := do(e, http.MethodPost, "/api/v1/schedule/replacements/apply", `{"conflictId": "`+conflictID+`"}`)
	if rec.Code != http.StatusNotFound {
		t.Errorf("no snapshot: expected 404, got %d", rec.Code)
	}

	do(e, http.MethodPut, "/api/v1/config", bundle)

	tests := []struct {
		name   string
		body   string
		status int
		code   string
	}{
		{"缺少冲突ID", `{"week": "2024-06-03"}`, http.StatusBadRequest, "INVALID_INPUT"},
		{"未知医生", `{"week": "2024-06-03", "conflictId": "` + conflictID + `", "doctorId": "ghost"}`, http.StatusNotFound, "PHYSICIAN_UNKNOWN"},
		{"无效周", `{"week": "bad", "conflictId": "` + conflictID + `"}`, http.StatusBadRequest, "INVALID_DATE"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			rec := do(e, http.MethodPost, "/api/v1/schedule/replacements/apply", tt.body)
			if rec.Code != tt.status {
				t.Fatalf("expected %d, got %d: %s", tt.status, rec.Code, rec.Body.String())
			}
			var body map[string]interface{}
			decode(t, rec, &body)
			if body["code"] != tt.code {
				t.Errorf("code = %v, expected %s", body["code"], tt.code)
			}
		})
	}

	rec = do(e, http.MethodPost, "/api/v1/schedule/replacements/apply", `{"week": "2024-06-03", "conflictId": "`+conflictID+`", "doctorId": "Y"}`)
	if rec.Code != http.StatusOK {
		t.Fatalf("apply: %d %s", rec.Code, rec.Body.String())
	}
	var applied ApplyReplacementResponse
	decode(t, rec, &applied)
	if applied.Slot.AssignedDoctorID != "Y" || applied.Suggestion.Reasoning != "Choix manuel" {
		t.Errorf("unexpected apply response: %+v", applied)
	}

	rec = do(e, http.MethodGet, "/api/v1/config", "")
	var record repository.SnapshotRecord
	decode(t, rec, &record)
	if record.Snapshot.ManualOverrides["t-consult-2024-06-03"] != "Y" {
		t.Errorf("override not saved: %v", record.Snapshot.ManualOverrides)
	}
}

const cascadeBundle = `{
	"doctors": [
		{"id": "X", "name": "Dr X"},
		{"id": "Y", "name": "Dr Y"}
	],
	"template": [
		{"id": "t-consult", "day": "MONDAY", "period": "MORNING", "location": "Box 1", "type": "CONSULTATION", "doctorIds": ["Y"]},
		{"id": "t-rcp", "day": "TUESDAY", "period": "AFTERNOON", "location": "RCP Onco", "type": "RCP", "doctorIds": ["X", "Y"]}
	],
	"rcpTypes": [{"id": "r1", "name": "RCP Onco", "frequency": "WEEKLY"}],
	"manualOverrides": {"t-consult-2024-06-03": "X", "t-gone-2024-06-03": "Y"},
	"shiftHistory": {"X": {"astreinte": 3}}
}`

func latestSnapshot(t *testing.T, e *echo.Echo) *model.Snapshot {
	t.Helper()
	rec := do(e, http.MethodGet, "/api/v1/config", "")
	if rec.Code != http.StatusOK {
		t.Fatalf("get config: %d %s", rec.Code, rec.Body.String())
	}
	var record repository.SnapshotRecord
	decode(t, rec, &record)
	return record.Snapshot
}

func TestConfigCascades(t *testing.T) {
	e := newTestServer(t)
	do(e, http.MethodPut, "/api/v1/config", cascadeBundle)

	// 过期的覆盖键在周结果中报告
	rec := do(e, http.MethodPost, "/api/v1/schedule/week", `{"week": "2024-06-03"}`)
	var week planner.WeekResult
	decode(t, rec, &week)
	if len(week.UnusedOverrides) != 1 || week.UnusedOverrides[0] != "t-gone-2024-06-03" {
		t.Errorf("unusedOverrides = %v", week.UnusedOverrides)
	}

	rec = do(e, http.MethodDelete, "/api/v1/config/doctors/X", "")
	if rec.Code != http.StatusOK {
		t.Fatalf("delete doctor: %d %s", rec.Code, rec.Body.String())
	}
	snap := latestSnapshot(t, e)
	if len(snap.Doctors) != 1 || snap.Doctors[0].ID != "Y" {
		t.Errorf("doctors = %+v", snap.Doctors)
	}
	if ids := snap.Template[1].DoctorIDs; len(ids) != 1 || ids[0] != "Y" {
		t.Errorf("rcp doctors = %v", ids)
	}
	if _, ok := snap.ManualOverrides["t-consult-2024-06-03"]; ok {
		t.Error("override pointing at removed doctor kept")
	}
	if _, ok := snap.ShiftHistory["X"]; ok {
		t.Error("history of removed doctor kept")
	}

	if rec := do(e, http.MethodDelete, "/api/v1/config/doctors/ghost", ""); rec.Code != http.StatusNotFound {
		t.Errorf("unknown doctor: expected 404, got %d", rec.Code)
	}

	rec = do(e, http.MethodPut, "/api/v1/config/rcp-types/r1", `{"name": "RCP Sein", "frequency": "BIWEEKLY", "weekParity": "EVEN"}`)
	if rec.Code != http.StatusOK {
		t.Fatalf("update rcp type: %d %s", rec.Code, rec.Body.String())
	}
	snap = latestSnapshot(t, e)
	def := snap.RcpTypes[0]
	if def.Name != "RCP Sein" || def.Frequency != model.FrequencyBiweekly || def.WeekParity != model.ParityEven {
		t.Errorf("rcp type = %+v", def)
	}
	if snap.Template[1].Location != "RCP Sein" {
		t.Errorf("template location = %s", snap.Template[1].Location)
	}

	for _, tc := range []struct {
		path, body string
		status     int
	}{
		{"/api/v1/config/rcp-types/r1", `{"weekParity": "X"}`, http.StatusBadRequest},
		{"/api/v1/config/rcp-types/r1", `{"frequency": "DAILY"}`, http.StatusBadRequest},
		{"/api/v1/config/rcp-types/missing", `{"name": "RCP"}`, http.StatusNotFound},
	} {
		if rec := do(e, http.MethodPut, tc.path, tc.body); rec.Code != tc.status {
			t.Errorf("PUT %s %s: expected %d, got %d", tc.path, tc.body, tc.status, rec.Code)
		}
	}

	rec = do(e, http.MethodDelete, "/api/v1/config/rcp-types/r1", "")
	if rec.Code != http.StatusOK {
		t.Fatalf("delete rcp type: %d %s", rec.Code, rec.Body.String())
	}
	snap = latestSnapshot(t, e)
	if len(snap.RcpTypes) != 0 || len(snap.Template) != 1 || snap.Template[0].ID != "t-consult" {
		t.Errorf("rcp cascade failed: types=%+v template=%+v", snap.RcpTypes, snap.Template)
	}
	if rec := do(e, http.MethodDelete, "/api/v1/config/rcp-types/r1", ""); rec.Code != http.StatusNotFound {
		t.Errorf("removed rcp type: expected 404, got %d", rec.Code)
	}
}

func TestEquity_ComparePrevious(t *testing.T) {
	e := newTestServer(t)
	do(e, http.MethodPut, "/api/v1/config", bundle)

	rec := do(e, http.MethodPost, "/api/v1/stats/equity?compare=previous", `{"week": "2024-06-03"}`)
	if rec.Code != http.StatusOK {
		t.Fatalf("equity: %d %s", rec.Code, rec.Body.String())
	}
	var body map[string]interface{}
	decode(t, rec, &body)
	comparison, ok := body["comparison"].(map[string]interface{})
	if !ok {
		t.Fatalf("comparison missing: %v", body)
	}
	for _, key := range []string{"before_score", "after_score", "overall_score_diff"} {
		if _, ok := comparison[key]; !ok {
			t.Errorf("comparison lacks %s: %v", key, comparison)
		}
	}
	if _, ok := body["overallScore"]; !ok {
		t.Errorf("report fields missing: %v", body)
	}

	rec = do(e, http.MethodPost, "/api/v1/stats/equity?compare=bogus", `{"week": "2024-06-03"}`)
	if rec.Code != http.StatusBadRequest {
		t.Errorf("unknown compare: expected 400, got %d", rec.Code)
	}
}
