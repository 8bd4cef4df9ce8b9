// Package sample generates demonstration call data over the real menu flows,
// for running reports without provider credentials or stored webhook data.
package sample

import (
	"fmt"
	"math/rand/v2"
	"strings"
	"time"

	"github.com/sells-group/ivr-analytics/internal/flow"
	"github.com/sells-group/ivr-analytics/internal/model"
)

// flows lists realistic selection sequences through the menu tree. A nil
// entry stands for a call with no IVR interaction at all.
var flows = [][]string{
	// Language + state + service
	{"1", "1", "1"}, // Hindi → Rajasthan → Sell Machine
	{"1", "1", "2"},
	{"1", "1", "3"},
	{"1", "1", "4"},
	{"1", "1", "5"},
	{"1", "2", "1"},
	{"1", "2", "2"},
	{"1", "2", "4"},
	{"1", "3", "1"},
	{"1", "3", "2"},
	{"1", "4"}, // Other State ends the flow
	{"2", "1", "1"},
	{"2", "1", "2"},
	{"2", "2", "2"},
	{"2", "3", "4"},

	// Buy Old with vintage band, some down to horsepower
	{"1", "1", "2", "1"},
	{"1", "1", "2", "2"},
	{"1", "1", "2", "3"},
	{"1", "1", "2", "4"},
	{"1", "2", "2", "1", "1"},
	{"1", "2", "2", "1", "2"},

	// Sell Machine with vintage
	{"1", "1", "1", "1"},
	{"1", "1", "1", "2"},
	{"1", "1", "1", "3"},
	{"1", "1", "1", "4"},
	{"2", "2", "1", "2"},

	// Finance sub-types
	{"1", "1", "4", "1"},
	{"1", "1", "4", "2"},
	{"2", "1", "4", "1"},

	// Consultant requests
	{"1", "1", "9"},
	{"2", "2", "9"},

	nil, // dropped before pressing anything
}

var statuses = []model.CallStatus{
	model.CallStatusCompleted,
	model.CallStatusBusy,
	model.CallStatusNoAnswer,
	model.CallStatusFailed,
	model.CallStatusCanceled,
}

var directions = []model.CallDirection{model.DirectionInbound, model.DirectionOutbound}

// Calls generates n merged call rows spread over the past days, seeded for
// reproducibility.
func Calls(n, days int, seed uint64) []model.MergedCall {
	rng := rand.New(rand.NewPCG(seed, seed))
	now := time.Now()

	calls := make([]model.MergedCall, 0, n)
	for i := 0; i < n; i++ {
		created := now.
			Add(-time.Duration(rng.IntN(days+1)) * 24 * time.Hour).
			Add(-time.Duration(rng.IntN(24)) * time.Hour).
			Add(-time.Duration(rng.IntN(60)) * time.Minute)

		duration := 0
		if rng.IntN(3) == 0 {
			duration = 10 + rng.IntN(590)
		}

		row := model.MergedCall{
			CallRecord: model.CallRecord{
				CallSid:     fmt.Sprintf("CA%08d", i),
				DateCreated: created,
				From:        fmt.Sprintf("+91%d", 6000000000+rng.Int64N(4000000000)),
				To:          fmt.Sprintf("+91%d", 6000000000+rng.Int64N(4000000000)),
				Status:      statuses[rng.IntN(len(statuses))],
				Duration:    duration,
				Direction:   directions[rng.IntN(len(directions))],
				Price:       0.5 + rng.Float64()*4.5,
			},
		}

		if sel := flows[rng.IntN(len(flows))]; sel != nil {
			path := strings.Join(sel, flow.Delimiter)
			row.IVRPath = &path
			row.IVRSelections = append([]string(nil), sel...)
		}

		calls = append(calls, row)
	}
	return calls
}
