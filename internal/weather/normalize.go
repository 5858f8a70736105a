package weather

import (
	"time"

	"github.com/brightonpier/sales-etl/internal/etl"
)

// Observation timestamps come back in this layout, already in local time
// for the requested point.
const timeLayout = "2006-01-02 15:04:05"

// Trading hours: readings are kept from openingHour up to but excluding
// closingHour. The kiosk is shut on Tuesdays.
const (
	openingHour = 9
	closingHour = 16
)

const closedWeekday = time.Tuesday

// Row is one normalized hourly reading.
type Row struct {
	Time        string  `csv:"time"`
	Temperature float64 `csv:"temperature"`
	Rain        float64 `csv:"rain"`
	WindSpeed   float64 `csv:"wind_speed"`
}

// Report counts what normalization dropped.
type Report struct {
	Input      int
	BadTime    int
	OutOfHours int
	ClosedDay  int
	BadReading int
	Duplicates int
	Output     int
}

// Normalize keeps readings taken during trading hours on open days. A
// reading without temperature or wind speed is dropped (the table declares
// both as FLOAT64, there is no N/A); missing rain counts as zero. Duplicate
// timestamps collapse to the first occurrence.
func Normalize(observations []Observation, _ etl.Window) ([]Row, Report) {
	report := Report{Input: len(observations)}

	seen := make(map[string]struct{}, len(observations))
	rows := make([]Row, 0, len(observations))

	for _, obs := range observations {
		ts, err := time.Parse(timeLayout, obs.Time)
		if err != nil {
			report.BadTime++
			continue
		}

		if ts.Hour() < openingHour || ts.Hour() >= closingHour {
			report.OutOfHours++
			continue
		}
		if ts.Weekday() == closedWeekday {
			report.ClosedDay++
			continue
		}

		if obs.Temp == nil || obs.Wspd == nil {
			report.BadReading++
			continue
		}

		if _, dup := seen[obs.Time]; dup {
			report.Duplicates++
			continue
		}
		seen[obs.Time] = struct{}{}

		rain := 0.0
		if obs.Prcp != nil {
			rain = *obs.Prcp
		}

		rows = append(rows, Row{
			Time:        ts.Format(timeLayout),
			Temperature: *obs.Temp,
			Rain:        rain,
			WindSpeed:   *obs.Wspd,
		})
	}

	report.Output = len(rows)
	return rows, report
}
