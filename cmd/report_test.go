package main

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/sells-group/ivr-analytics/internal/model"
	"github.com/sells-group/ivr-analytics/internal/sample"
)

func TestFormatReport(t *testing.T) {
	calls := sample.Calls(50, 7, 1)

	var buf strings.Builder
	formatReport(&buf, calls, 5)
	out := buf.String()

	assert.Contains(t, out, "Total calls:      50")
	assert.Contains(t, out, "IVR funnel:")
	assert.Contains(t, out, "Entered IVR")
	assert.Contains(t, out, "IVR completion:")
	assert.Contains(t, out, "paths:")
}

func TestFormatReport_Empty(t *testing.T) {
	var buf strings.Builder
	formatReport(&buf, nil, 5)
	out := buf.String()

	assert.Contains(t, out, "Total calls:      0")
	assert.NotContains(t, out, "Top ")
}

func TestFormatPathsList(t *testing.T) {
	from := "+919876543210"
	var buf strings.Builder
	formatPathsList(&buf, []model.PathRecord{
		{CallSid: "CA700", FromNumber: &from, CompletePath: "1-1-1--"},
	})
	out := buf.String()

	assert.Contains(t, out, "CA700")
	assert.Contains(t, out, "1-1-1--")
	assert.Contains(t, out, "Hindi → Rajasthan → Sell Machine")
}
