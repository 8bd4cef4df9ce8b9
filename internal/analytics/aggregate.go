// Package analytics computes funnel, distribution, and per-path aggregates
// from merged call rows. Every function is total: empty input yields
// zero-valued results, never an error.
package analytics

import (
	"math"
	"sort"

	"github.com/sells-group/ivr-analytics/internal/flow"
	"github.com/sells-group/ivr-analytics/internal/model"
)

// CompletionThreshold is the number of selections at which a call counts as
// having completed the IVR rather than dropped early.
const CompletionThreshold = 2

// FunnelLevel is one rung of the IVR navigation funnel.
type FunnelLevel struct {
	Label string `json:"label"`
	Count int    `json:"count"`
}

// Funnel counts calls reaching each selection depth. Only calls with IVR
// data participate; counts are non-increasing across levels.
func Funnel(calls []model.MergedCall) []FunnelLevel {
	levels := []FunnelLevel{
		{Label: "Entered IVR"},
		{Label: "Level 1 Selection"},
		{Label: "Level 2 Selection"},
		{Label: "Level 3 Selection"},
	}

	for _, c := range calls {
		if !c.HasIVR() {
			continue
		}
		levels[0].Count++
		for depth := 1; depth <= 3; depth++ {
			if len(c.IVRSelections) >= depth {
				levels[depth].Count++
			}
		}
	}
	return levels
}

// FirstChoice is one slice of the first-option distribution.
type FirstChoice struct {
	Digit string `json:"digit"`
	Label string `json:"label"`
	Count int    `json:"count"`
}

// FirstChoices counts calls by the digit pressed at the first step
// (language). Unknown digits group under the step's fallback label.
func FirstChoices(calls []model.MergedCall) []FirstChoice {
	counts := map[string]int{}
	for _, c := range calls {
		if len(c.IVRSelections) == 0 {
			continue
		}
		counts[c.IVRSelections[0]]++
	}

	choices := make([]FirstChoice, 0, len(counts))
	for digit, n := range counts {
		choices = append(choices, FirstChoice{
			Digit: digit,
			Label: flow.StepLabel(0, digit),
			Count: n,
		})
	}
	sort.Slice(choices, func(i, j int) bool {
		if choices[i].Count != choices[j].Count {
			return choices[i].Count > choices[j].Count
		}
		return choices[i].Digit < choices[j].Digit
	})
	return choices
}

// CompletionStats buckets calls into completed / dropped-early / no-IVR and
// derives the rates over calls that entered the IVR.
type CompletionStats struct {
	Completed     int     `json:"completed"`
	DroppedEarly  int     `json:"dropped_early"`
	NoIVR         int     `json:"no_ivr"`
	CompletionPct float64 `json:"completion_pct"`
	DropOffPct    float64 `json:"drop_off_pct"`
	AvgSelections float64 `json:"avg_selections"`
}

// Completion classifies each call. A call completes at CompletionThreshold
// selections; calls with no path record at all land in NoIVR.
func Completion(calls []model.MergedCall) CompletionStats {
	var stats CompletionStats
	var selections int

	for _, c := range calls {
		if !c.HasIVR() {
			stats.NoIVR++
			continue
		}
		selections += len(c.IVRSelections)
		if len(c.IVRSelections) >= CompletionThreshold {
			stats.Completed++
		} else {
			stats.DroppedEarly++
		}
	}

	entered := stats.Completed + stats.DroppedEarly
	if entered > 0 {
		stats.CompletionPct = round1(float64(stats.Completed) / float64(entered) * 100)
		stats.DropOffPct = round1(100 - stats.CompletionPct)
		stats.AvgSelections = round1(float64(selections) / float64(entered))
	}
	return stats
}

// PathFrequency is one entry of the top-paths ranking, with its decoded label.
type PathFrequency struct {
	Path  string `json:"path"`
	Label string `json:"label"`
	Count int    `json:"count"`
}

// TopPaths groups calls by complete path and returns the n most frequent,
// ties broken by path for a stable order.
func TopPaths(calls []model.MergedCall, n int) []PathFrequency {
	counts := map[string]int{}
	for _, c := range calls {
		if c.IVRPath == nil {
			continue
		}
		counts[*c.IVRPath]++
	}

	freqs := make([]PathFrequency, 0, len(counts))
	for path, count := range counts {
		freqs = append(freqs, PathFrequency{
			Path:  path,
			Label: flow.DecodeLabel(path),
			Count: count,
		})
	}
	sort.Slice(freqs, func(i, j int) bool {
		if freqs[i].Count != freqs[j].Count {
			return freqs[i].Count > freqs[j].Count
		}
		return freqs[i].Path < freqs[j].Path
	})

	if n > 0 && len(freqs) > n {
		freqs = freqs[:n]
	}
	return freqs
}

// PathDetail is one row of the per-path analysis table.
type PathDetail struct {
	Path          string  `json:"path"`
	Label         string  `json:"label"`
	Calls         int     `json:"calls"`
	AvgDuration   float64 `json:"avg_duration"` // seconds, rounded to whole
	Completed     int     `json:"completed"`    // calls with completed status
	CompletionPct float64 `json:"completion_pct"`
}

// PathDetails aggregates per distinct complete path: call count, mean
// duration, completed-status count, and completion percentage to one decimal.
// Ordered by call count descending.
func PathDetails(calls []model.MergedCall) []PathDetail {
	type acc struct {
		calls     int
		duration  int
		completed int
	}
	byPath := map[string]*acc{}

	for _, c := range calls {
		if c.IVRPath == nil {
			continue
		}
		a := byPath[*c.IVRPath]
		if a == nil {
			a = &acc{}
			byPath[*c.IVRPath] = a
		}
		a.calls++
		a.duration += c.Duration
		if c.Status == model.CallStatusCompleted {
			a.completed++
		}
	}

	details := make([]PathDetail, 0, len(byPath))
	for path, a := range byPath {
		details = append(details, PathDetail{
			Path:          path,
			Label:         flow.DecodeLabel(path),
			Calls:         a.calls,
			AvgDuration:   math.Round(float64(a.duration) / float64(a.calls)),
			Completed:     a.completed,
			CompletionPct: round1(float64(a.completed) / float64(a.calls) * 100),
		})
	}
	sort.Slice(details, func(i, j int) bool {
		if details[i].Calls != details[j].Calls {
			return details[i].Calls > details[j].Calls
		}
		return details[i].Path < details[j].Path
	})
	return details
}

func round1(f float64) float64 {
	return math.Round(f*10) / 10
}
