// Package solver 提供活动排班自动分配
package solver

import (
	"sort"
	"time"

	"github.com/radioplan/radioplan/pkg/eligibility"
	"github.com/radioplan/radioplan/pkg/logger"
	"github.com/radioplan/radioplan/pkg/model"
)

// Solver 求解器接口
type Solver interface {
	// Solve 为活动排班位分配医生，返回新的排班位列表
	Solve(req *Request) *Result

	// Name 返回求解器名称
	Name() string
}

// Request 自动分配输入
type Request struct {
	Slots            []model.ScheduleSlot // 模板排班位 + 活动排班位
	Activities       []model.ActivityDefinition
	Physicians       []model.Physician
	Unavailabilities []model.Unavailability
	History          model.ShiftHistory
}

// Result 求解结果
type Result struct {
	Slots       []model.ScheduleSlot `json:"slots"`
	ShiftCounts map[string]int       `json:"shift_counts"` // 含历史的累计班次
	Statistics  *Statistics          `json:"statistics"`
	Duration    time.Duration        `json:"duration"`
}

// Statistics 分配统计
type Statistics struct {
	ActivitySlots int     `json:"activity_slots"`
	PreAssigned   int     `json:"pre_assigned"`
	FilledSlots   int     `json:"filled_slots"`
	UnfilledSlots int     `json:"unfilled_slots"`
	FillRate      float64 `json:"fill_rate"`
}

// GreedySolver 贪心求解器：班次最少者优先
type GreedySolver struct {
	logger *logger.SchedulerLogger
}

// NewGreedySolver 创建贪心求解器
func NewGreedySolver() *GreedySolver {
	return &GreedySolver{
		logger: logger.NewSchedulerLogger(),
	}
}

// Name 返回求解器名称
func (s *GreedySolver) Name() string {
	return "GreedySolver"
}

// Solve 按活动顺序分配，不修改输入
func (s *GreedySolver) Solve(req *Request) *Result {
	startTime := time.Now()

	result := &Result{
		Slots:      model.CloneSlots(req.Slots),
		Statistics: &Statistics{},
	}

	// 以历史班次总数作为起始计数
	counts := make(map[string]int, len(req.Physicians))
	for _, p := range req.Physicians {
		counts[p.ID] = req.History.Total(p.ID)
	}

	for i := range req.Activities {
		act := &req.Activities[i]

		// 按下标收集，直接修改结果中的排班位
		var idx []int
		for j := range result.Slots {
			if result.Slots[j].ActivityID == act.ID {
				idx = append(idx, j)
			}
		}
		if len(idx) == 0 {
			continue
		}

		if act.IsWeekly() {
			s.fillWeekly(result, act, idx, req, counts)
		} else {
			s.fillHalfDay(result, act, idx, req, counts)
		}
	}

	result.ShiftCounts = counts
	if st := result.Statistics; st.ActivitySlots > 0 {
		st.FillRate = float64(st.PreAssigned+st.FilledSlots) / float64(st.ActivitySlots) * 100
	}
	result.Duration = time.Since(startTime)
	return result
}

// fillWeekly 整周活动：整周无缺勤、无排除日的医生中，班次最少者包揽全部空位
func (s *GreedySolver) fillWeekly(result *Result, act *model.ActivityDefinition, idx []int, req *Request, counts map[string]int) {
	candidates := make([]*model.Physician, 0, len(req.Physicians))
	for i := range req.Physicians {
		p := &req.Physicians[i]
		if p.IsExcludedActivity(act.ID) {
			continue
		}
		ok := true
		for _, j := range idx {
			slot := &result.Slots[j]
			if p.IsExcludedDay(slot.Day) || eligibility.IsAbsent(p.ID, slot.Date, slot.Period, req.Unavailabilities) {
				ok = false
				break
			}
		}
		if ok {
			candidates = append(candidates, p)
		}
	}
	sortByLoad(candidates, counts)

	st := result.Statistics
	st.ActivitySlots += len(idx)

	if len(candidates) == 0 {
		for _, j := range idx {
			if result.Slots[j].IsAssigned() {
				st.PreAssigned++
				continue
			}
			st.UnfilledSlots++
			s.logger.UnfilledSlot(result.Slots[j].ID, act.Name)
		}
		return
	}

	chosen := candidates[0].ID
	for _, j := range idx {
		if result.Slots[j].IsAssigned() {
			st.PreAssigned++
			continue
		}
		result.Slots[j].AssignedDoctorID = chosen
		st.FilledSlots++
	}
	// 整周只计一次：按活动排班位数累加
	counts[chosen] += len(idx)
}

// fillHalfDay 半天活动：逐个排班位分配
func (s *GreedySolver) fillHalfDay(result *Result, act *model.ActivityDefinition, idx []int, req *Request, counts map[string]int) {
	st := result.Statistics
	st.ActivitySlots += len(idx)

	for _, j := range idx {
		slot := &result.Slots[j]
		if slot.IsAssigned() {
			counts[slot.AssignedDoctorID]++
			st.PreAssigned++
			continue
		}

		candidates := make([]*model.Physician, 0, len(req.Physicians))
		for i := range req.Physicians {
			p := &req.Physicians[i]
			if !eligibility.IsEligibleForActivity(p, act.ID, slot.Day, slot.Date, slot.Period, req.Unavailabilities) {
				continue
			}
			if !act.AllowDoubleBooking && busyAt(result.Slots, slot, p.ID) {
				continue
			}
			candidates = append(candidates, p)
		}

		if len(candidates) == 0 {
			st.UnfilledSlots++
			s.logger.UnfilledSlot(slot.ID, act.Name)
			continue
		}

		sortByLoad(candidates, counts)
		chosen := candidates[0].ID
		slot.AssignedDoctorID = chosen
		counts[chosen]++
		st.FilledSlots++
	}
}

// busyAt 检查医生是否已是同一日期时段其他排班位的主医生
func busyAt(slots []model.ScheduleSlot, target *model.ScheduleSlot, doctorID string) bool {
	for i := range slots {
		s := &slots[i]
		if s.ID != target.ID && s.AssignedDoctorID == doctorID && s.SameTime(target) {
			return true
		}
	}
	return false
}

// sortByLoad 按累计班次升序排序，相同时保持名册顺序
func sortByLoad(candidates []*model.Physician, counts map[string]int) {
	sort.SliceStable(candidates, func(i, j int) bool {
		return counts[candidates[i].ID] < counts[candidates[j].ID]
	})
}
