// Package merge joins provider call logs with stored IVR path records.
package merge

import (
	"github.com/sells-group/ivr-analytics/internal/model"
)

// Calls left-joins call records with path records on call SID.
//
// Calls without a path record keep nil IVRPath and nil IVRSelections. Calls
// with a path record get the serialized path and a non-nil selections slice —
// empty when the record exists but every choice is unset. Downstream funnel
// logic depends on that nil/empty distinction.
func Calls(calls []model.CallRecord, paths []model.PathRecord) []model.MergedCall {
	byCallSid := make(map[string]*model.PathRecord, len(paths))
	for i := range paths {
		byCallSid[paths[i].CallSid] = &paths[i]
	}

	merged := make([]model.MergedCall, 0, len(calls))
	for _, c := range calls {
		row := model.MergedCall{CallRecord: c}
		if p, ok := byCallSid[c.CallSid]; ok {
			path := p.CompletePath
			row.IVRPath = &path
			row.IVRSelections = p.Selections()
		}
		merged = append(merged, row)
	}
	return merged
}

// Paths converts bare path records into merged rows, for aggregation when no
// call log is available. Every row has IVR data by construction.
func Paths(paths []model.PathRecord) []model.MergedCall {
	merged := make([]model.MergedCall, 0, len(paths))
	for _, p := range paths {
		path := p.CompletePath
		row := model.MergedCall{
			CallRecord: model.CallRecord{
				CallSid:     p.CallSid,
				DateCreated: p.UpdatedAt,
			},
			IVRPath:       &path,
			IVRSelections: p.Selections(),
		}
		if p.FromNumber != nil {
			row.From = *p.FromNumber
		}
		if p.ToNumber != nil {
			row.To = *p.ToNumber
		}
		merged = append(merged, row)
	}
	return merged
}
