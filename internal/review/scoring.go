package review

import "math"

// ScoreWeights are the empirical penalty weights of the fallback scoring formula
type ScoreWeights struct {
	Error      float64 `json:"error"`
	Fatal      float64 `json:"fatal"`
	Warning    float64 `json:"warning"`
	Convention float64 `json:"convention"`
	Refactor   float64 `json:"refactor"`
	Security   float64 `json:"security"`
	Info       float64 `json:"info"`
	// PerIssueCap bounds the total penalty at issueCount*PerIssueCap
	PerIssueCap float64 `json:"per_issue_cap"`
	// MaxPenalty is the absolute penalty ceiling
	MaxPenalty float64 `json:"max_penalty"`
}

// DefaultScoreWeights returns the tuned weights used when nothing is configured
func DefaultScoreWeights() ScoreWeights {
	return ScoreWeights{
		Error:       2.0,
		Fatal:       2.0,
		Warning:     0.5,
		Convention:  0.25,
		Refactor:    0.2,
		Security:    2.5,
		Info:        0,
		PerIssueCap: 0.5,
		MaxPenalty:  10.0,
	}
}

func (w ScoreWeights) weight(c Category) float64 {
	switch c {
	case CategoryError:
		return w.Error
	case CategoryFatal:
		return w.Fatal
	case CategoryWarning:
		return w.Warning
	case CategoryConvention:
		return w.Convention
	case CategoryRefactor:
		return w.Refactor
	case CategorySecurity:
		return w.Security
	default:
		return w.Info
	}
}

// FallbackScore approximates a pylint rating from normalized issues:
// 10 - min(sum(weights), min(MaxPenalty, count*PerIssueCap)), floored at 0.
func FallbackScore(issues []Issue, w ScoreWeights) ScoreValue {
	if len(issues) == 0 {
		return ScorePerfect
	}
	penalty := 0.0
	for _, iss := range issues {
		penalty += w.weight(iss.Category)
	}
	limit := math.Min(w.MaxPenalty, float64(len(issues))*w.PerIssueCap)
	penalty = math.Min(penalty, limit)
	return NewScore(math.Max(0, 10.0-penalty))
}
