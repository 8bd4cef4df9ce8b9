// Package report writes analytics output as an XLSX workbook.
package report

import (
	"github.com/rotisserie/eris"
	"github.com/tealeg/xlsx/v2"

	"github.com/sells-group/ivr-analytics/internal/analytics"
	"github.com/sells-group/ivr-analytics/internal/flow"
	"github.com/sells-group/ivr-analytics/internal/model"
)

const dateFormat = "2006-01-02 15:04:05"

// WriteXLSX writes a workbook with a per-path analysis sheet and a raw call
// log sheet.
func WriteXLSX(path string, details []analytics.PathDetail, calls []model.MergedCall) error {
	f := xlsx.NewFile()

	if err := addPathSheet(f, details); err != nil {
		return err
	}
	if err := addCallSheet(f, calls); err != nil {
		return err
	}

	return eris.Wrapf(f.Save(path), "report: save %s", path)
}

func addPathSheet(f *xlsx.File, details []analytics.PathDetail) error {
	sheet, err := f.AddSheet("Path Analysis")
	if err != nil {
		return eris.Wrap(err, "report: add path sheet")
	}

	header := sheet.AddRow()
	for _, h := range []string{"Path Label", "IVR Path", "Total Calls", "Avg Duration (s)", "Completed Calls", "Completion %"} {
		header.AddCell().Value = h
	}

	for _, d := range details {
		row := sheet.AddRow()
		row.AddCell().Value = d.Label
		row.AddCell().Value = d.Path
		row.AddCell().SetInt(d.Calls)
		row.AddCell().SetFloat(d.AvgDuration)
		row.AddCell().SetInt(d.Completed)
		row.AddCell().SetFloatWithFormat(d.CompletionPct, "0.0")
	}
	return nil
}

func addCallSheet(f *xlsx.File, calls []model.MergedCall) error {
	sheet, err := f.AddSheet("Call Log")
	if err != nil {
		return eris.Wrap(err, "report: add call sheet")
	}

	header := sheet.AddRow()
	for _, h := range []string{"CallSid", "Date", "From", "To", "Status", "Duration (s)", "Direction", "Price", "IVR Path", "Path Description"} {
		header.AddCell().Value = h
	}

	for _, c := range calls {
		row := sheet.AddRow()
		row.AddCell().Value = c.CallSid
		row.AddCell().Value = c.DateCreated.Format(dateFormat)
		row.AddCell().Value = c.From
		row.AddCell().Value = c.To
		row.AddCell().Value = string(c.Status)
		row.AddCell().SetInt(c.Duration)
		row.AddCell().Value = string(c.Direction)
		row.AddCell().SetFloatWithFormat(c.Price, "0.00")

		ivrPath := ""
		label := flow.NoIVRLabel
		if c.IVRPath != nil {
			ivrPath = *c.IVRPath
			label = flow.DecodeLabel(ivrPath)
		}
		row.AddCell().Value = ivrPath
		row.AddCell().Value = label
	}
	return nil
}
