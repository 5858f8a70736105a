package etl

import (
	"testing"
	"time"

	"github.com/stretchr/testify/require"
)

func TestNewWindow_RejectsInvertedRange(t *testing.T) {
	start := time.Date(2024, 6, 10, 0, 0, 0, 0, time.UTC)
	_, err := NewWindow(start, start.AddDate(0, 0, -1))
	require.Error(t, err)
}

func TestWindow_ContainsIncludesBoundaries(t *testing.T) {
	w, err := NewWindow(
		time.Date(2024, 6, 1, 0, 0, 0, 0, time.UTC),
		time.Date(2024, 6, 10, 23, 59, 59, 0, time.UTC),
	)
	require.NoError(t, err)

	require.True(t, w.Contains(w.Start))
	require.True(t, w.Contains(w.End))
	require.True(t, w.Contains(time.Date(2024, 6, 5, 12, 0, 0, 0, time.UTC)))
	require.False(t, w.Contains(w.Start.Add(-time.Nanosecond)))
	require.False(t, w.Contains(w.End.Add(time.Nanosecond)))
}

func TestParseWindow_CoversWholeEndDay(t *testing.T) {
	loc, err := time.LoadLocation("Europe/London")
	require.NoError(t, err)

	w, err := ParseWindow("2024-06-01", "2024-06-10", loc)
	require.NoError(t, err)

	require.Equal(t, time.Date(2024, 6, 1, 0, 0, 0, 0, loc), w.Start)
	// A sale at one second to midnight on the end day still belongs to it.
	require.True(t, w.Contains(time.Date(2024, 6, 10, 23, 59, 59, 0, loc)))
	require.False(t, w.Contains(time.Date(2024, 6, 11, 0, 0, 0, 0, loc)))
}

func TestParseWindow_EmptyEndDefaultsToToday(t *testing.T) {
	loc, err := time.LoadLocation("Europe/London")
	require.NoError(t, err)

	w, err := ParseWindow("2023-12-03", "", loc)
	require.NoError(t, err)
	require.True(t, w.Contains(time.Now().In(loc)))
}

func TestParseWindow_BadDate(t *testing.T) {
	_, err := ParseWindow("10/06/2024", "", time.UTC)
	require.Error(t, err)
}

func TestWindow_String(t *testing.T) {
	w, err := NewWindow(
		time.Date(2023, 12, 3, 0, 0, 0, 0, time.UTC),
		time.Date(2024, 6, 10, 0, 0, 0, 0, time.UTC),
	)
	require.NoError(t, err)
	require.Equal(t, "2023-12-03..2024-06-10", w.String())
}
