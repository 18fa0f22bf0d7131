package swap

import (
	"sort"

	"github.com/radioplan/radioplan/pkg/model"
)

// Recommender 替班推荐器
type Recommender struct {
	evaluator *SwapEvaluator
}

// NewRecommender 创建替班推荐器
func NewRecommender() *Recommender {
	return &Recommender{
		evaluator: NewSwapEvaluator(),
	}
}

// RecommendOptions 推荐选项
type RecommendOptions struct {
	MaxRecommendations int      // 最大推荐数量
	ExcludeEmployees   []string // 排除的医生
	MinScore           int      // 最低得分
}

// DefaultRecommendOptions 返回默认选项
func DefaultRecommendOptions() *RecommendOptions {
	return &RecommendOptions{
		MaxRecommendations: 3,
	}
}

// SuggestReplacements 为冲突排班位推荐替班医生
// 按得分降序，得分相同保持候选输入顺序
func (r *Recommender) SuggestReplacements(
	slot *model.ScheduleSlot,
	unavailable *model.Physician,
	candidates []model.Physician,
	schedule []model.ScheduleSlot,
	options *RecommendOptions,
) []model.ReplacementSuggestion {
	if options == nil {
		options = DefaultRecommendOptions()
	}

	excludeSet := make(map[string]bool, len(options.ExcludeEmployees))
	for _, id := range options.ExcludeEmployees {
		excludeSet[id] = true
	}

	originalID := ""
	if unavailable != nil {
		originalID = unavailable.ID
	}

	suggestions := make([]model.ReplacementSuggestion, 0, len(candidates))
	for i := range candidates {
		c := &candidates[i]
		if excludeSet[c.ID] {
			continue
		}

		evaluation := r.evaluator.Evaluate(&SwapRequest{
			Slot:        slot,
			Unavailable: unavailable,
			Candidate:   c,
			Schedule:    schedule,
		})
		if !evaluation.Feasible || evaluation.Score < options.MinScore {
			continue
		}

		suggestions = append(suggestions, model.ReplacementSuggestion{
			OriginalDoctorID:  originalID,
			SuggestedDoctorID: c.ID,
			Reasoning:         evaluation.Reasoning(),
			Score:             evaluation.Score,
		})
	}

	sort.SliceStable(suggestions, func(i, j int) bool {
		return suggestions[i].Score > suggestions[j].Score
	})

	if options.MaxRecommendations > 0 && len(suggestions) > options.MaxRecommendations {
		suggestions = suggestions[:options.MaxRecommendations]
	}
	return suggestions
}

// FindBestMatch 返回得分最高的替班医生，没有时返回 nil
func (r *Recommender) FindBestMatch(
	slot *model.ScheduleSlot,
	unavailable *model.Physician,
	candidates []model.Physician,
	schedule []model.ScheduleSlot,
) *model.ReplacementSuggestion {
	suggestions := r.SuggestReplacements(slot, unavailable, candidates, schedule, &RecommendOptions{
		MaxRecommendations: 1,
	})
	if len(suggestions) == 0 {
		return nil
	}
	return &suggestions[0]
}

// ApplyReplacement 返回用替班医生替换原医生后的排班位副本
// 原医生不在该排班位上时返回未修改的副本
func ApplyReplacement(slot model.ScheduleSlot, suggestion model.ReplacementSuggestion) model.ScheduleSlot {
	out := slot.Clone()
	if out.AssignedDoctorID == suggestion.OriginalDoctorID {
		out.AssignedDoctorID = suggestion.SuggestedDoctorID
		return out
	}
	for i, id := range out.SecondaryDoctorIDs {
		if id == suggestion.OriginalDoctorID {
			out.SecondaryDoctorIDs[i] = suggestion.SuggestedDoctorID
			break
		}
	}
	return out
}
