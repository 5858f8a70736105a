// Package bookings pulls the bookings tab of the logs spreadsheet and
// cleans it into the fixed shape the Bookings warehouse table expects.
package bookings

import (
	"context"
	"fmt"

	"google.golang.org/api/option"
	"google.golang.org/api/sheets/v4"

	"github.com/brightonpier/sales-etl/internal/etl"
	"github.com/brightonpier/sales-etl/internal/logger"
)

// expectedHeaders pins the sheet columns we read. The sheet historically
// carries duplicated header cells; matching on the first occurrence of each
// expected header works around that.
var expectedHeaders = []string{"Date", "Time", "Adult", "Child", "Under 4", "Name", "Contact"}

// Record is one raw row read from the sheet, everything still stringly
// typed the way the spreadsheet serves it.
type Record struct {
	Date    string
	Time    string
	Adult   string
	Child   string
	Under4  string
	Name    string
	Contact string
}

// Source reads the bookings tab of one spreadsheet.
type Source struct {
	svc           *sheets.Service
	spreadsheetID string
	sheetName     string
}

// NewSource builds a source for the given spreadsheet. credentialsFile may
// be empty to use application default credentials.
func NewSource(ctx context.Context, spreadsheetID, sheetName, credentialsFile string) (*Source, error) {
	if spreadsheetID == "" {
		return nil, fmt.Errorf("%w: bookings spreadsheet id not set", etl.ErrMissingCredential)
	}

	var opts []option.ClientOption
	opts = append(opts, option.WithScopes(sheets.SpreadsheetsReadonlyScope))
	if credentialsFile != "" {
		opts = append(opts, option.WithCredentialsFile(credentialsFile))
	}

	svc, err := sheets.NewService(ctx, opts...)
	if err != nil {
		return nil, fmt.Errorf("NewSource: sheets service: %w", err)
	}

	return &Source{svc: svc, spreadsheetID: spreadsheetID, sheetName: sheetName}, nil
}

// Fetch reads every data row under the expected headers. The window is not
// applied here; bookings rows carry their own dates and the cleaner drops
// anything unparseable.
func (s *Source) Fetch(ctx context.Context, _ etl.Window) ([]Record, error) {
	log := logger.FromContext(ctx)

	resp, err := s.svc.Spreadsheets.Values.Get(s.spreadsheetID, s.sheetName).Context(ctx).Do()
	if err != nil {
		return nil, fmt.Errorf("fetching sheet %s!%s: %w", s.spreadsheetID, s.sheetName, err)
	}
	if len(resp.Values) == 0 {
		return nil, nil
	}

	cols, err := headerColumns(resp.Values[0])
	if err != nil {
		return nil, err
	}

	records := make([]Record, 0, len(resp.Values)-1)
	for _, row := range resp.Values[1:] {
		records = append(records, Record{
			Date:    cellAt(row, cols["Date"]),
			Time:    cellAt(row, cols["Time"]),
			Adult:   cellAt(row, cols["Adult"]),
			Child:   cellAt(row, cols["Child"]),
			Under4:  cellAt(row, cols["Under 4"]),
			Name:    cellAt(row, cols["Name"]),
			Contact: cellAt(row, cols["Contact"]),
		})
	}

	log.Info().Int("rows", len(records)).Msg("bookings sheet fetched")
	return records, nil
}

// headerColumns maps each expected header to the index of its first
// occurrence in the header row.
func headerColumns(header []interface{}) (map[string]int, error) {
	cols := make(map[string]int, len(expectedHeaders))
	for i, cell := range header {
		name := fmt.Sprint(cell)
		if _, seen := cols[name]; !seen {
			cols[name] = i
		}
	}
	for _, want := range expectedHeaders {
		if _, ok := cols[want]; !ok {
			return nil, fmt.Errorf("%w: sheet header missing column %q", etl.ErrProtocol, want)
		}
	}
	return cols, nil
}

func cellAt(row []interface{}, idx int) string {
	if idx >= len(row) {
		return ""
	}
	return fmt.Sprint(row[idx])
}
