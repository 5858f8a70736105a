package weather

import (
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/brightonpier/sales-etl/internal/etl"
)

func ptr(f float64) *float64 { return &f }

func obs(ts string, temp, prcp, wspd *float64) Observation {
	return Observation{Time: ts, Temp: temp, Prcp: prcp, Wspd: wspd}
}

func TestNormalize_KeepsTradingHourReadings(t *testing.T) {
	// 2024-06-10 is a Monday.
	rows, report := Normalize([]Observation{
		obs("2024-06-10 09:00:00", ptr(15.2), ptr(0.4), ptr(10.3)),
		obs("2024-06-10 15:00:00", ptr(18.0), nil, ptr(8.0)),
	}, etl.Window{})

	require.Len(t, rows, 2)
	require.Equal(t, Row{Time: "2024-06-10 09:00:00", Temperature: 15.2, Rain: 0.4, WindSpeed: 10.3}, rows[0])
	// Missing rain reads as zero.
	require.Zero(t, rows[1].Rain)
	require.Equal(t, 2, report.Output)
}

func TestNormalize_FiltersOutOfHoursAndClosedDays(t *testing.T) {
	rows, report := Normalize([]Observation{
		obs("2024-06-10 08:00:00", ptr(12.0), nil, ptr(5.0)), // before opening
		obs("2024-06-10 16:00:00", ptr(17.0), nil, ptr(5.0)), // closing hour is exclusive
		obs("2024-06-11 12:00:00", ptr(17.0), nil, ptr(5.0)), // Tuesday, closed
		obs("2024-06-12 12:00:00", ptr(17.0), nil, ptr(5.0)), // Wednesday, open
	}, etl.Window{})

	require.Len(t, rows, 1)
	require.Equal(t, "2024-06-12 12:00:00", rows[0].Time)
	require.Equal(t, 2, report.OutOfHours)
	require.Equal(t, 1, report.ClosedDay)
}

func TestNormalize_DropsIncompleteReadings(t *testing.T) {
	rows, report := Normalize([]Observation{
		obs("2024-06-10 10:00:00", nil, nil, ptr(5.0)),      // no temperature
		obs("2024-06-10 11:00:00", ptr(15.0), nil, nil),     // no wind speed
		obs("not a timestamp", ptr(15.0), nil, ptr(5.0)),    // unparseable time
		obs("2024-06-10 12:00:00", ptr(15.0), nil, ptr(5.0)),
	}, etl.Window{})

	require.Len(t, rows, 1)
	require.Equal(t, 2, report.BadReading)
	require.Equal(t, 1, report.BadTime)
}

func TestNormalize_DeduplicatesTimestamps(t *testing.T) {
	rows, report := Normalize([]Observation{
		obs("2024-06-10 10:00:00", ptr(15.0), nil, ptr(5.0)),
		obs("2024-06-10 10:00:00", ptr(15.5), nil, ptr(6.0)),
	}, etl.Window{})

	require.Len(t, rows, 1)
	require.InDelta(t, 15.0, rows[0].Temperature, 1e-9)
	require.Equal(t, 1, report.Duplicates)
}

func TestNormalize_EmptyInput(t *testing.T) {
	rows, report := Normalize(nil, etl.Window{})
	require.Empty(t, rows)
	require.Equal(t, Report{}, report)
}
