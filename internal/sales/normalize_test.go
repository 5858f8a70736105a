package sales

import (
	"encoding/json"
	"testing"
	"time"

	"cloud.google.com/go/civil"
	"github.com/stretchr/testify/require"

	"github.com/brightonpier/sales-etl/internal/etl"
	"github.com/brightonpier/sales-etl/internal/sumup"
)

// mustWindow builds a window spanning whole calendar days in the display
// timezone. Boundaries in the same timezone as the derived fields keep the
// derived dates inside the window.
func mustWindow(t *testing.T, start, end string) etl.Window {
	t.Helper()
	loc, err := time.LoadLocation("Europe/London")
	require.NoError(t, err)
	s, err := time.ParseInLocation("2006-01-02", start, loc)
	require.NoError(t, err)
	e, err := time.ParseInLocation("2006-01-02", end, loc)
	require.NoError(t, err)
	w, err := etl.NewWindow(s, e.Add(24*time.Hour-time.Nanosecond))
	require.NoError(t, err)
	return w
}

func tx(id, ts, status, amount string) sumup.Transaction {
	return sumup.Transaction{
		ID:        id,
		Timestamp: ts,
		Status:    status,
		Amount:    json.Number(amount),
		Currency:  "GBP",
	}
}

func newTestNormalizer(t *testing.T) *Normalizer {
	t.Helper()
	loc, err := time.LoadLocation("Europe/London")
	require.NoError(t, err)
	return NewNormalizer(loc)
}

func TestNormalize_ProjectsAndDerivesFields(t *testing.T) {
	n := newTestNormalizer(t)
	w := mustWindow(t, "2024-06-01", "2024-06-30")

	// 09:30 UTC in June is 10:30 BST.
	rows, report := n.Normalize([]sumup.Transaction{
		tx("tx-1", "2024-06-10T09:30:00.000Z", "SUCCESSFUL", "4.50"),
	}, w)

	require.Len(t, rows, 1)
	require.Equal(t, civil.Date{Year: 2024, Month: time.June, Day: 10}, rows[0].Date)
	require.Equal(t, civil.Time{Hour: 10, Minute: 30}, rows[0].Time)
	require.Equal(t, "Monday", rows[0].DayOfWeek)
	require.InDelta(t, 4.50, rows[0].Amount, 1e-9)
	require.Equal(t, 1, report.Output)
}

func TestNormalize_DropsNonSuccessfulAndUnparseable(t *testing.T) {
	n := newTestNormalizer(t)
	w := mustWindow(t, "2024-06-01", "2024-06-30")

	rows, report := n.Normalize([]sumup.Transaction{
		tx("tx-1", "2024-06-10T09:30:00.000Z", "SUCCESSFUL", "4.50"),
		tx("tx-2", "2024-06-10T09:31:00.000Z", "FAILED", "2.00"),
		tx("tx-3", "2024-06-10T09:32:00.000Z", "successful", "2.00"), // case-sensitive
		tx("tx-4", "not-a-timestamp", "SUCCESSFUL", "2.00"),
		tx("tx-5", "2024-06-10T09:33:00.000Z", "SUCCESSFUL", "n/a"),
	}, w)

	require.Len(t, rows, 1)
	require.Equal(t, 5, report.Input)
	require.Equal(t, 2, report.WrongStatus)
	require.Equal(t, 1, report.BadTimestamp)
	require.Equal(t, 1, report.BadAmount)
}

func TestNormalize_WindowReFilterIsInclusive(t *testing.T) {
	n := newTestNormalizer(t)
	w := mustWindow(t, "2024-06-10", "2024-06-11")

	rows, report := n.Normalize([]sumup.Transaction{
		tx("tx-1", "2024-06-10T00:00:00+01:00", "SUCCESSFUL", "1.00"), // start boundary
		tx("tx-2", "2024-06-11T23:59:59+01:00", "SUCCESSFUL", "2.00"), // end boundary
		tx("tx-3", "2024-06-09T23:59:59+01:00", "SUCCESSFUL", "3.00"), // before window
		tx("tx-4", "2024-06-12T00:00:00+01:00", "SUCCESSFUL", "4.00"), // after window
	}, w)

	require.Len(t, rows, 2)
	require.Equal(t, 2, report.OutOfWindow)
}

func TestNormalize_DeduplicatesOnIDInstantAmount(t *testing.T) {
	n := newTestNormalizer(t)
	w := mustWindow(t, "2024-06-01", "2024-06-30")

	rows, report := n.Normalize([]sumup.Transaction{
		tx("tx-1", "2024-06-10T09:30:00.000Z", "SUCCESSFUL", "4.50"),
		tx("tx-1", "2024-06-10T09:30:00.000Z", "SUCCESSFUL", "4.50"), // exact duplicate
		tx("tx-2", "2024-06-10T09:30:00.000Z", "SUCCESSFUL", "4.50"), // different id
	}, w)

	require.Len(t, rows, 2)
	require.Equal(t, 1, report.Duplicates)
}

func TestNormalize_NoDuplicateTriplesInOutput(t *testing.T) {
	n := newTestNormalizer(t)
	w := mustWindow(t, "2024-06-01", "2024-06-30")

	var input []sumup.Transaction
	for i := 0; i < 3; i++ {
		input = append(input,
			tx("tx-1", "2024-06-10T09:30:00.000Z", "SUCCESSFUL", "4.50"),
			tx("tx-2", "2024-06-10T10:30:00.000Z", "SUCCESSFUL", "7.25"),
		)
	}

	rows, _ := n.Normalize(input, w)
	require.Len(t, rows, 2)

	seen := map[Row]struct{}{}
	for _, r := range rows {
		_, dup := seen[r]
		require.False(t, dup, "duplicate row %v", r)
		seen[r] = struct{}{}
	}
}

func TestNormalize_EmptyInput(t *testing.T) {
	n := newTestNormalizer(t)
	w := mustWindow(t, "2024-06-01", "2024-06-30")

	rows, report := n.Normalize(nil, w)
	require.Empty(t, rows)
	require.Equal(t, Report{}, report)
}

func TestNormalize_OutputDatesStayInsideWindow(t *testing.T) {
	n := newTestNormalizer(t)
	w := mustWindow(t, "2024-06-01", "2024-06-30")

	rows, _ := n.Normalize([]sumup.Transaction{
		tx("tx-1", "2024-06-01T00:00:00.000Z", "SUCCESSFUL", "1.00"),
		tx("tx-2", "2024-06-30T22:00:00.000Z", "SUCCESSFUL", "2.00"),
		tx("tx-3", "2024-05-31T12:00:00.000Z", "SUCCESSFUL", "3.00"),
	}, w)

	start := civil.Date{Year: 2024, Month: time.June, Day: 1}
	end := civil.Date{Year: 2024, Month: time.June, Day: 30}
	for _, r := range rows {
		require.False(t, r.Date.Before(start), "row date %v before window", r.Date)
		require.False(t, r.Date.After(end), "row date %v after window", r.Date)
	}
}
