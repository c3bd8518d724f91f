package metrics

import (
	"github.com/talgya/ivle-sim/internal/agents"
)

// column addresses one numeric field of a Row.
type column func(r *Row) *float64

var numericColumns = []column{
	func(r *Row) *float64 { return &r.TotalInteractionTime },
	func(r *Row) *float64 { return &r.InteractionFrequency },
	func(r *Row) *float64 { return &r.InteractionDiversity },
	func(r *Row) *float64 { return &r.InteractionDepth },
	func(r *Row) *float64 { return &r.EngagementScore },
}

// Normalise returns a copy of rows with each numeric column min-max scaled
// to [0, 1]. A constant column is copied unchanged. Identity and level are
// never touched.
func Normalise(rows []Row) []Row {
	out := make([]Row, len(rows))
	copy(out, rows)
	if len(out) == 0 {
		return out
	}

	for _, col := range numericColumns {
		lo, hi := *col(&out[0]), *col(&out[0])
		for i := range out {
			v := *col(&out[i])
			if v < lo {
				lo = v
			}
			if v > hi {
				hi = v
			}
		}
		if hi <= lo {
			continue
		}
		span := hi - lo
		for i := range out {
			p := col(&out[i])
			*p = (*p - lo) / span
		}
	}
	return out
}

// LevelSummary aggregates engagement scores for one level.
type LevelSummary struct {
	Level     agents.Level `json:"engagement_level"`
	Count     int          `json:"count"`
	MeanScore float64      `json:"mean_score"`
	MinScore  float64      `json:"min_score"`
	MaxScore  float64      `json:"max_score"`
}

// Summarise groups rows by level, in level order. Levels with no rows are
// omitted.
func Summarise(rows []Row) []LevelSummary {
	byLevel := make(map[agents.Level]*LevelSummary)
	for _, r := range rows {
		s, ok := byLevel[r.Level]
		if !ok {
			s = &LevelSummary{Level: r.Level, MinScore: r.EngagementScore, MaxScore: r.EngagementScore}
			byLevel[r.Level] = s
		}
		s.Count++
		s.MeanScore += r.EngagementScore
		if r.EngagementScore < s.MinScore {
			s.MinScore = r.EngagementScore
		}
		if r.EngagementScore > s.MaxScore {
			s.MaxScore = r.EngagementScore
		}
	}

	var out []LevelSummary
	for _, level := range agents.Levels {
		s, ok := byLevel[level]
		if !ok {
			continue
		}
		s.MeanScore /= float64(s.Count)
		out = append(out, *s)
	}
	return out
}
