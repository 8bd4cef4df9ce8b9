package merge

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/sells-group/ivr-analytics/internal/model"
)

func str(s string) *string { return &s }

func TestCalls(t *testing.T) {
	calls := []model.CallRecord{
		{CallSid: "CA300", Status: model.CallStatusCompleted, Duration: 90},
		{CallSid: "CA301", Status: model.CallStatusNoAnswer},
		{CallSid: "CA302", Status: model.CallStatusCompleted},
	}
	paths := []model.PathRecord{
		{
			CallSid:        "CA300",
			LanguageChoice: str("1"),
			StateChoice:    str("2"),
			CompletePath:   "1-2---",
		},
		{
			CallSid:      "CA302",
			CompletePath: "----",
		},
	}

	merged := Calls(calls, paths)
	require.Len(t, merged, 3)

	// Path record with choices.
	require.NotNil(t, merged[0].IVRPath)
	assert.Equal(t, "1-2---", *merged[0].IVRPath)
	assert.Equal(t, []string{"1", "2"}, merged[0].IVRSelections)
	assert.True(t, merged[0].HasIVR())

	// No path record: nil path, nil selections.
	assert.Nil(t, merged[1].IVRPath)
	assert.Nil(t, merged[1].IVRSelections)
	assert.False(t, merged[1].HasIVR())

	// Path record with no choices: non-nil empty selections.
	require.NotNil(t, merged[2].IVRPath)
	assert.Equal(t, "----", *merged[2].IVRPath)
	require.NotNil(t, merged[2].IVRSelections)
	assert.Empty(t, merged[2].IVRSelections)
	assert.True(t, merged[2].HasIVR())
}

func TestCalls_Empty(t *testing.T) {
	assert.Empty(t, Calls(nil, nil))

	// Paths without matching calls produce no rows.
	merged := Calls(nil, []model.PathRecord{{CallSid: "CA303"}})
	assert.Empty(t, merged)
}

func TestPaths(t *testing.T) {
	now := time.Now().UTC()
	paths := []model.PathRecord{
		{
			CallSid:        "CA304",
			FromNumber:     str("+919876543210"),
			LanguageChoice: str("1"),
			CompletePath:   "1----",
			UpdatedAt:      now,
		},
		{
			CallSid:      "CA305",
			CompletePath: "----",
			UpdatedAt:    now,
		},
	}

	merged := Paths(paths)
	require.Len(t, merged, 2)

	assert.Equal(t, "CA304", merged[0].CallSid)
	assert.Equal(t, "+919876543210", merged[0].From)
	assert.Equal(t, now, merged[0].DateCreated)
	assert.Equal(t, []string{"1"}, merged[0].IVRSelections)

	assert.Empty(t, merged[1].From)
	require.NotNil(t, merged[1].IVRSelections)
	assert.Empty(t, merged[1].IVRSelections)
}
