package warehouse

import "cloud.google.com/go/bigquery"

// Destination schemas are declared explicitly at load time and never
// inferred from the artifact. Field order must match the artifact column
// order.

// SalesSchema is the TotalSales table layout.
func SalesSchema() bigquery.Schema {
	return bigquery.Schema{
		{Name: "date", Type: bigquery.DateFieldType},
		{Name: "time", Type: bigquery.TimeFieldType},
		{Name: "day_of_week", Type: bigquery.StringFieldType},
		{Name: "amount", Type: bigquery.FloatFieldType},
	}
}

// BookingsSchema is the Bookings table layout.
func BookingsSchema() bigquery.Schema {
	return bigquery.Schema{
		{Name: "Date", Type: bigquery.DateFieldType},
		{Name: "Time", Type: bigquery.TimeFieldType},
		{Name: "Adult", Type: bigquery.IntegerFieldType},
		{Name: "Child", Type: bigquery.IntegerFieldType},
		{Name: "Under_4", Type: bigquery.IntegerFieldType},
		{Name: "Name", Type: bigquery.StringFieldType},
		{Name: "Contact", Type: bigquery.StringFieldType},
	}
}

// WeatherSchema is the Weather table layout.
func WeatherSchema() bigquery.Schema {
	return bigquery.Schema{
		{Name: "time", Type: bigquery.TimestampFieldType},
		{Name: "temperature", Type: bigquery.FloatFieldType},
		{Name: "rain", Type: bigquery.FloatFieldType},
		{Name: "wind_speed", Type: bigquery.FloatFieldType},
	}
}
