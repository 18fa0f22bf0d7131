// Package export 将解析后的排班导出为 Excel 工作簿与 iCalendar 日历
package export

import (
	"bytes"
	"fmt"
	"sort"
	"strings"

	"github.com/xuri/excelize/v2"

	"github.com/radioplan/radioplan/pkg/calendar"
	"github.com/radioplan/radioplan/pkg/model"
)

var dayHeaders = []string{"Lundi", "Mardi", "Mercredi", "Jeudi", "Vendredi"}

var periodLabels = map[model.Period]string{
	model.PeriodMorning:   "Matin",
	model.PeriodAfternoon: "Après-midi",
}

// typeOrder 工作簿中的分区顺序
var typeOrder = map[model.SlotType]int{
	model.SlotConsultation: 0,
	model.SlotRCP:          1,
	model.SlotActivity:     2,
}

// rowKey 工作簿的一行：同一地点同一时段
type rowKey struct {
	slotType model.SlotType
	location string
	period   model.Period
}

// Workbook 生成排班工作簿，每周一个工作表
// 行为 (地点, 时段)，列为周一至周五；conflicts 非空时追加 Conflits 工作表
func Workbook(slots []model.ScheduleSlot, conflicts []model.Conflict, physicians []model.Physician) (*bytes.Buffer, error) {
	names := nameIndex(physicians)

	weeks := make(map[string][]model.ScheduleSlot)
	for _, s := range slots {
		t, err := calendar.ParseDate(s.Date)
		if err != nil {
			continue
		}
		week := calendar.FormatDate(calendar.MondayOf(t))
		weeks[week] = append(weeks[week], s)
	}
	weekStarts := make([]string, 0, len(weeks))
	for w := range weeks {
		weekStarts = append(weekStarts, w)
	}
	sort.Strings(weekStarts)

	f := excelize.NewFile()
	defer f.Close()

	headerStyle, err := f.NewStyle(&excelize.Style{
		Font:      &excelize.Font{Bold: true, Size: 11, Color: "#FFFFFF"},
		Fill:      excelize.Fill{Type: "pattern", Color: []string{"#4472C4"}, Pattern: 1},
		Alignment: &excelize.Alignment{Horizontal: "center", Vertical: "center"},
	})
	if err != nil {
		return nil, fmt.Errorf("创建样式失败: %w", err)
	}
	closedStyle, err := f.NewStyle(&excelize.Style{
		Font: &excelize.Font{Italic: true, Color: "#808080"},
		Fill: excelize.Fill{Type: "pattern", Color: []string{"#EDEDED"}, Pattern: 1},
	})
	if err != nil {
		return nil, fmt.Errorf("创建样式失败: %w", err)
	}

	if len(weekStarts) == 0 {
		weekStarts = []string{""}
	}
	for i, week := range weekStarts {
		sheet := "Planning"
		if week != "" {
			sheet = "Semaine " + week
		}
		if i == 0 {
			if err := f.SetSheetName("Sheet1", sheet); err != nil {
				return nil, err
			}
		} else if _, err := f.NewSheet(sheet); err != nil {
			return nil, err
		}
		if err := writeWeek(f, sheet, weeks[week], names, headerStyle, closedStyle); err != nil {
			return nil, err
		}
	}

	if len(conflicts) > 0 {
		if err := writeConflicts(f, conflicts, names, headerStyle); err != nil {
			return nil, err
		}
	}
	f.SetActiveSheet(0)

	buf := new(bytes.Buffer)
	if err := f.Write(buf); err != nil {
		return nil, fmt.Errorf("写入 Excel 失败: %w", err)
	}
	return buf, nil
}

func writeWeek(f *excelize.File, sheet string, slots []model.ScheduleSlot, names map[string]string, headerStyle, closedStyle int) error {
	_ = f.SetColWidth(sheet, "A", "A", 22)
	_ = f.SetColWidth(sheet, "B", "B", 12)
	_ = f.SetColWidth(sheet, "C", "G", 24)

	headers := append([]string{"Poste", "Période"}, dayHeaders...)
	for i, h := range headers {
		if err := f.SetCellValue(sheet, cell(i, 1), h); err != nil {
			return err
		}
	}
	if err := f.SetCellStyle(sheet, cell(0, 1), cell(len(headers)-1, 1), headerStyle); err != nil {
		return err
	}

	grid := make(map[rowKey]map[int]*model.ScheduleSlot)
	for i := range slots {
		s := &slots[i]
		offset := s.Day.Offset()
		if offset < 0 {
			continue
		}
		k := rowKey{slotType: s.Type, location: s.Location, period: s.Period}
		if grid[k] == nil {
			grid[k] = make(map[int]*model.ScheduleSlot)
		}
		grid[k][offset] = s
	}

	keys := make([]rowKey, 0, len(grid))
	for k := range grid {
		keys = append(keys, k)
	}
	sort.Slice(keys, func(i, j int) bool {
		a, b := keys[i], keys[j]
		if typeOrder[a.slotType] != typeOrder[b.slotType] {
			return typeOrder[a.slotType] < typeOrder[b.slotType]
		}
		if a.location != b.location {
			return a.location < b.location
		}
		return a.period < b.period
	})

	for r, k := range keys {
		row := r + 2
		_ = f.SetCellValue(sheet, cell(0, row), k.location)
		_ = f.SetCellValue(sheet, cell(1, row), periodLabel(k.period))
		for offset := range dayHeaders {
			s, ok := grid[k][offset]
			if !ok {
				continue
			}
			ref := cell(2+offset, row)
			if err := f.SetCellValue(sheet, ref, cellText(s, names)); err != nil {
				return err
			}
			if s.IsClosed {
				_ = f.SetCellStyle(sheet, ref, ref, closedStyle)
			}
		}
	}
	return nil
}

func writeConflicts(f *excelize.File, conflicts []model.Conflict, names map[string]string, headerStyle int) error {
	const sheet = "Conflits"
	if _, err := f.NewSheet(sheet); err != nil {
		return err
	}
	_ = f.SetColWidth(sheet, "A", "A", 18)
	_ = f.SetColWidth(sheet, "B", "B", 10)
	_ = f.SetColWidth(sheet, "C", "C", 36)
	_ = f.SetColWidth(sheet, "D", "E", 30)

	for i, h := range []string{"Type", "Gravité", "Créneau", "Médecin", "Description"} {
		_ = f.SetCellValue(sheet, cell(i, 1), h)
	}
	if err := f.SetCellStyle(sheet, cell(0, 1), cell(4, 1), headerStyle); err != nil {
		return err
	}

	for i, c := range conflicts {
		row := i + 2
		values := []interface{}{string(c.Type), string(c.Severity), c.SlotID, displayName(c.DoctorID, names), c.Description}
		for col, v := range values {
			if err := f.SetCellValue(sheet, cell(col, row), v); err != nil {
				return err
			}
		}
	}
	return nil
}

// cellText 单元格内容：主医生在前，副医生用 " / " 连接
func cellText(s *model.ScheduleSlot, names map[string]string) string {
	if s.IsClosed {
		return "Fermé"
	}
	doctors := s.Doctors()
	if len(doctors) == 0 {
		return "-"
	}
	parts := make([]string, len(doctors))
	for i, id := range doctors {
		parts[i] = displayName(id, names)
	}
	text := strings.Join(parts, " / ")
	if s.IsUnconfirmed {
		text += " (?)"
	}
	return text
}

func periodLabel(p model.Period) string {
	if l, ok := periodLabels[p]; ok {
		return l
	}
	return string(p)
}

func nameIndex(physicians []model.Physician) map[string]string {
	names := make(map[string]string, len(physicians))
	for _, p := range physicians {
		names[p.ID] = p.Name
	}
	return names
}

func displayName(id string, names map[string]string) string {
	if n, ok := names[id]; ok && n != "" {
		return n
	}
	return id
}

func cell(col, row int) string {
	name, _ := excelize.CoordinatesToCellName(col+1, row)
	return name
}
