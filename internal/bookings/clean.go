package bookings

import (
	"strconv"
	"strings"
	"time"

	"cloud.google.com/go/civil"

	"github.com/brightonpier/sales-etl/internal/etl"
)

// Row is one cleaned booking. Column names match the historical CSV export,
// including the Under_4 rename.
type Row struct {
	Date    civil.Date `csv:"Date"`
	Time    civil.Time `csv:"Time"`
	Adult   int        `csv:"Adult"`
	Child   int        `csv:"Child"`
	Under4  int        `csv:"Under_4"`
	Name    string     `csv:"Name"`
	Contact string     `csv:"Contact"`
}

// contactLabels canonicalizes the free-text contact channel. Keys are the
// trimmed, lower-cased cell values the sheet actually contains.
var contactLabels = map[string]string{
	"email":     "Email",
	"insta":     "Insta",
	"call":      "Call",
	"walk in":   "Walk In",
	"whatsapp":  "WhatsApp",
	"in person": "In Person",
	"phone":     "Phone",
}

// Report counts cleaning outcomes.
type Report struct {
	Input      int
	BadDate    int
	BadTime    int
	NoAdults   int
	NoContact  int
	Duplicates int
	Output     int
}

// Clean coerces and filters raw sheet rows: dates are day-first
// ("31.12.24"), times 24h ("14:30"), party counts numeric with blanks as
// zero. Rows without a valid date, a valid time, at least one adult, or a
// contact are dropped; exact duplicate rows are collapsed to the first
// occurrence. All whitespace is stripped from the surviving string cells,
// matching the historical export.
func Clean(records []Record, _ etl.Window) ([]Row, Report) {
	report := Report{Input: len(records)}

	seen := make(map[Row]struct{}, len(records))
	rows := make([]Row, 0, len(records))

	for _, rec := range records {
		date, err := time.Parse("2.1.06", strings.TrimSpace(rec.Date))
		if err != nil {
			report.BadDate++
			continue
		}

		tod, err := time.Parse("15:04", strings.TrimSpace(rec.Time))
		if err != nil {
			report.BadTime++
			continue
		}

		adult := coerceCount(rec.Adult)
		if adult < 1 {
			report.NoAdults++
			continue
		}

		contact := cleanContact(rec.Contact)
		if contact == "" {
			report.NoContact++
			continue
		}

		row := Row{
			Date:    civil.DateOf(date),
			Time:    civil.Time{Hour: tod.Hour(), Minute: tod.Minute()},
			Adult:   adult,
			Child:   coerceCount(rec.Child),
			Under4:  coerceCount(rec.Under4),
			Name:    stripWhitespace(rec.Name),
			Contact: stripWhitespace(contact),
		}

		if _, dup := seen[row]; dup {
			report.Duplicates++
			continue
		}
		seen[row] = struct{}{}
		rows = append(rows, row)
	}

	report.Output = len(rows)
	return rows, report
}

// coerceCount parses a party-size cell; anything non-numeric counts as zero.
func coerceCount(s string) int {
	n, err := strconv.Atoi(strings.TrimSpace(s))
	if err != nil || n < 0 {
		return 0
	}
	return n
}

func cleanContact(s string) string {
	key := strings.ToLower(strings.TrimSpace(s))
	if canonical, ok := contactLabels[key]; ok {
		return canonical
	}
	return key
}

// stripWhitespace removes all whitespace, not just the edges. The export
// has always done this, and the warehouse queries depend on it.
func stripWhitespace(s string) string {
	return strings.Join(strings.Fields(s), "")
}
