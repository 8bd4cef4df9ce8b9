package analytics

import (
	"fmt"
	"sort"

	"github.com/sells-group/ivr-analytics/internal/model"
)

// CallMetrics summarizes volume, outcome, duration, and cost across calls.
type CallMetrics struct {
	TotalCalls     int     `json:"total_calls"`
	CompletedCalls int     `json:"completed_calls"`
	FailedCalls    int     `json:"failed_calls"`
	SuccessPct     float64 `json:"success_pct"`
	AvgDuration    float64 `json:"avg_duration"` // over calls with duration > 0
	TotalDuration  int     `json:"total_duration"`
	TotalCost      float64 `json:"total_cost"`
	AvgCost        float64 `json:"avg_cost"`
}

// Metrics computes call-level KPIs. Empty input yields zeros.
func Metrics(calls []model.MergedCall) CallMetrics {
	var m CallMetrics
	m.TotalCalls = len(calls)

	var connected int
	for _, c := range calls {
		switch {
		case c.Status == model.CallStatusCompleted:
			m.CompletedCalls++
		case c.Status.Failed():
			m.FailedCalls++
		}
		if c.Duration > 0 {
			connected++
			m.AvgDuration += float64(c.Duration)
		}
		m.TotalDuration += c.Duration
		m.TotalCost += c.Price
	}

	if connected > 0 {
		m.AvgDuration /= float64(connected)
	}
	if m.TotalCalls > 0 {
		m.SuccessPct = round1(float64(m.CompletedCalls) / float64(m.TotalCalls) * 100)
		m.AvgCost = m.TotalCost / float64(m.TotalCalls)
	}
	return m
}

// PeakHours returns the top 3 hours of day by call volume, busiest first.
func PeakHours(calls []model.MergedCall) []int {
	counts := map[int]int{}
	for _, c := range calls {
		counts[c.DateCreated.Hour()]++
	}

	hours := make([]int, 0, len(counts))
	for h := range counts {
		hours = append(hours, h)
	}
	sort.Slice(hours, func(i, j int) bool {
		if counts[hours[i]] != counts[hours[j]] {
			return counts[hours[i]] > counts[hours[j]]
		}
		return hours[i] < hours[j]
	})

	if len(hours) > 3 {
		hours = hours[:3]
	}
	return hours
}

// FormatDuration renders seconds as "45s", "3m 20s", or "1h 15m".
func FormatDuration(seconds int) string {
	switch {
	case seconds < 60:
		return fmt.Sprintf("%ds", seconds)
	case seconds < 3600:
		return fmt.Sprintf("%dm %ds", seconds/60, seconds%60)
	default:
		return fmt.Sprintf("%dh %dm", seconds/3600, (seconds%3600)/60)
	}
}
