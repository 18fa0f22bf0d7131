package swap

import (
	"fmt"
	"strings"

	"github.com/radioplan/radioplan/pkg/eligibility"
	"github.com/radioplan/radioplan/pkg/model"
)

// 评分参数
const (
	BaseScore          = 50
	SpecialtyBonus     = 30
	EquityBonus        = 40 // 活动排班位且负载不超过 EquityLoadLimit
	EquityLoadLimit    = 2
	IdleBonus          = 15 // 本周无负载
	BusyThreshold      = 6
	BusyPenaltyPerSlot = 5
	ExpertiseBonus     = 20
	MaxScore           = 100
)

// 推荐理由
const (
	reasonSeparator = " • "
	reasonEquity    = "Choix équitable (Recommandé)"
	reasonIdle      = "Aucune charge cette semaine"
	reasonBusy      = "Planning chargé"
	reasonDefault   = "Disponible"
)

// SwapEvaluator 替班评估器
type SwapEvaluator struct{}

// NewSwapEvaluator 创建替班评估器
func NewSwapEvaluator() *SwapEvaluator {
	return &SwapEvaluator{}
}

// SwapRequest 替班请求
type SwapRequest struct {
	Slot        *model.ScheduleSlot  `json:"slot"`        // 冲突排班位
	Unavailable *model.Physician     `json:"unavailable"` // 无法到岗的医生
	Candidate   *model.Physician     `json:"candidate"`
	Schedule    []model.ScheduleSlot `json:"-"` // 用于计算负载
}

// SwapEvaluation 替班评估结果
type SwapEvaluation struct {
	Feasible bool     `json:"feasible"`
	Issue    string   `json:"issue,omitempty"` // 不可行原因
	Score    int      `json:"score"`           // 0-100
	RawScore int      `json:"raw_score"`       // 截断前
	Load     int      `json:"load"`            // 候选人本周其他主班数
	Reasons  []string `json:"reasons"`
}

// Reasoning 以 " • " 连接的理由
func (e *SwapEvaluation) Reasoning() string {
	if len(e.Reasons) == 0 {
		return reasonDefault
	}
	return strings.Join(e.Reasons, reasonSeparator)
}

// CanSwap 检查硬性排除：排班类别和活动
func (e *SwapEvaluator) CanSwap(request *SwapRequest) (bool, string) {
	c, slot := request.Candidate, request.Slot
	if eligibility.IsExcludedFromSlotType(c, slot.Type) {
		return false, fmt.Sprintf("排除类别 %s", slot.Type)
	}
	if slot.IsActivity() && c.IsExcludedActivity(slot.ActivityID) {
		return false, fmt.Sprintf("排除活动 %s", slot.ActivityID)
	}
	return true, ""
}

// Evaluate 评估候选人
func (e *SwapEvaluator) Evaluate(request *SwapRequest) *SwapEvaluation {
	result := &SwapEvaluation{}

	if ok, issue := e.CanSwap(request); !ok {
		result.Issue = issue
		return result
	}
	result.Feasible = true

	c, slot := request.Candidate, request.Slot
	score := BaseScore

	// 1. 专科相同
	if request.Unavailable != nil {
		if shared := c.SharedSpecialties(request.Unavailable); len(shared) > 0 {
			score += SpecialtyBonus
			result.Reasons = append(result.Reasons, fmt.Sprintf("Même spécialité (%s)", strings.Join(shared, ", ")))
		}
	}

	// 2. 负载均衡
	load := Load(request.Schedule, c.ID, slot.ID)
	result.Load = load
	if slot.IsActivity() && load <= EquityLoadLimit {
		score += EquityBonus
		result.Reasons = append(result.Reasons, reasonEquity)
	}
	if load == 0 {
		score += IdleBonus
		result.Reasons = append(result.Reasons, reasonIdle)
	} else if load > BusyThreshold {
		score -= load * BusyPenaltyPerSlot
		result.Reasons = append(result.Reasons, reasonBusy)
	}

	// 3. 地点与专科相关
	if specialty, ok := c.SpecialtyIn(slot.Location); ok {
		score += ExpertiseBonus
		result.Reasons = append(result.Reasons, fmt.Sprintf("Expertise pertinente (%s)", specialty))
	}

	result.RawScore = score
	result.Score = clamp(score, 0, MaxScore)
	return result
}

// Load 统计医生作为主医生的排班位数，不含 excludeSlotID
func Load(schedule []model.ScheduleSlot, doctorID, excludeSlotID string) int {
	n := 0
	for i := range schedule {
		if schedule[i].AssignedDoctorID == doctorID && schedule[i].ID != excludeSlotID {
			n++
		}
	}
	return n
}

func clamp(v, lo, hi int) int {
	if v < lo {
		return lo
	}
	if v > hi {
		return hi
	}
	return v
}
