package domain

import "math"

const (
	maxSummaryItems      = 5
	excerptLimit         = 50
	strengthThreshold    = 8.0
	weaknessThreshold    = 6.0
	confidenceBonusAbove = 7.0
	confidenceBonus      = 2.0
)

type PerformanceSummary struct {
	OverallScore     float64  `json:"overall_score"`
	ContentScore     float64  `json:"content_score"`
	NonVerbalScore   float64  `json:"non_verbal_score"`
	Strengths        []string `json:"strengths"`
	Weaknesses       []string `json:"weaknesses"`
	ImprovementAreas []string `json:"improvement_areas"`
	TotalPoints      float64  `json:"total_points"`
	BonusPoints      float64  `json:"bonus_points"`
}

// ComputePerformance aggregates per-question scores into a session summary.
// Every question counts toward the averages, answered or not.
func ComputePerformance(questions []Question) PerformanceSummary {
	out := PerformanceSummary{
		Strengths:        []string{},
		Weaknesses:       []string{},
		ImprovementAreas: []string{},
	}
	if len(questions) == 0 {
		return out
	}

	var content, nonVerbal float64
	var improvements []string
	for _, q := range questions {
		if q.Evaluation != nil {
			score := q.Evaluation.OverallScore
			content += score
			out.TotalPoints += score
			switch {
			case score > strengthThreshold:
				out.Strengths = append(out.Strengths, excerpt(q.Text))
			case score < weaknessThreshold:
				out.Weaknesses = append(out.Weaknesses, excerpt(q.Text))
				if q.Evaluation.Feedback != "" {
					improvements = append(improvements, q.Evaluation.Feedback)
				}
			}
		}
		if q.NonVerbal != nil {
			nonVerbal += q.NonVerbal.OverallScore
			out.TotalPoints += q.NonVerbal.OverallScore
			if q.NonVerbal.Confidence > confidenceBonusAbove {
				out.BonusPoints += confidenceBonus
			}
		}
	}

	n := float64(len(questions))
	out.OverallScore = round1((content + nonVerbal) / (n * 2))
	out.ContentScore = round1(content / n)
	out.NonVerbalScore = round1(nonVerbal / n)
	out.Strengths = firstN(out.Strengths, maxSummaryItems)
	out.Weaknesses = firstN(out.Weaknesses, maxSummaryItems)
	out.ImprovementAreas = firstN(distinct(improvements), maxSummaryItems)
	return out
}

// distinct drops exact repeats and keeps first-seen order.
func distinct(in []string) []string {
	out := make([]string, 0, len(in))
	seen := make(map[string]struct{}, len(in))
	for _, v := range in {
		if _, ok := seen[v]; ok {
			continue
		}
		seen[v] = struct{}{}
		out = append(out, v)
	}
	return out
}

func round1(v float64) float64 {
	return math.Round(v*10) / 10
}

func excerpt(text string) string {
	runes := []rune(text)
	if len(runes) <= excerptLimit {
		return text
	}
	return string(runes[:excerptLimit-3]) + "..."
}

func firstN(items []string, n int) []string {
	if len(items) <= n {
		return items
	}
	return items[:n]
}
