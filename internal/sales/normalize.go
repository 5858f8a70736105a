// Package sales normalizes raw SumUp transactions into the fixed tabular
// shape the TotalSales warehouse table expects.
package sales

import (
	"time"

	"cloud.google.com/go/civil"

	"github.com/brightonpier/sales-etl/internal/etl"
	"github.com/brightonpier/sales-etl/internal/sumup"
)

// statusSuccessful is the only transaction status that reaches the table.
// The match is case-sensitive; the API uses upper-case status constants.
const statusSuccessful = "SUCCESSFUL"

// Row is one normalized sales record. Column order here is the artifact
// column order and must match the declared warehouse schema.
type Row struct {
	Date      civil.Date `csv:"date"`
	Time      civil.Time `csv:"time"`
	DayOfWeek string     `csv:"day_of_week"`
	Amount    float64    `csv:"amount"`
}

// Report counts what happened to the input during normalization. Row-level
// drops are absorbed here, never raised as errors.
type Report struct {
	Input        int
	BadTimestamp int
	WrongStatus  int
	OutOfWindow  int
	Duplicates   int
	BadAmount    int
	Output       int
}

type dedupeKey struct {
	id      string
	instant int64
	amount  string
}

// Normalizer converts raw transactions into Rows, deriving calendar fields
// in a fixed display timezone (the business runs on local time, not UTC).
type Normalizer struct {
	loc *time.Location
}

// NewNormalizer builds a normalizer that renders dates and times in loc.
func NewNormalizer(loc *time.Location) *Normalizer {
	return &Normalizer{loc: loc}
}

// Normalize filters, deduplicates and projects the raw records. Each step
// narrows the candidate set, in this order: timestamp parse, status filter,
// defensive window re-filter (the fetch window is a hint to the API, not a
// guarantee), dedupe on (id, instant, amount) keeping the first occurrence,
// then amount coercion and projection. An empty input yields an empty
// output, not an error.
func (n *Normalizer) Normalize(records []sumup.Transaction, window etl.Window) ([]Row, Report) {
	report := Report{Input: len(records)}

	seen := make(map[dedupeKey]struct{}, len(records))
	rows := make([]Row, 0, len(records))

	for _, rec := range records {
		instant, err := time.Parse(time.RFC3339, rec.Timestamp)
		if err != nil {
			report.BadTimestamp++
			continue
		}

		if rec.Status != statusSuccessful {
			report.WrongStatus++
			continue
		}

		if !window.Contains(instant) {
			report.OutOfWindow++
			continue
		}

		key := dedupeKey{id: rec.ID, instant: instant.UnixNano(), amount: rec.Amount.String()}
		if _, dup := seen[key]; dup {
			report.Duplicates++
			continue
		}
		seen[key] = struct{}{}

		amount, err := rec.Amount.Float64()
		if err != nil {
			report.BadAmount++
			continue
		}

		local := instant.In(n.loc)
		rows = append(rows, Row{
			Date:      civil.DateOf(local),
			Time:      civil.TimeOf(local),
			DayOfWeek: local.Weekday().String(),
			Amount:    amount,
		})
	}

	report.Output = len(rows)
	return rows, report
}
