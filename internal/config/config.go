// Package config centralizes run configuration for the ETL binaries.
// The original scripts scattered base URLs, credentials and directories as
// module-level globals; everything is collected here and handed to the
// fetcher and loader constructors explicitly.
package config

import (
	"fmt"
	"strings"

	"github.com/spf13/viper"
)

// Config holds the full application configuration.
type Config struct {
	SumUp     SumUpConfig     `mapstructure:"sumup"`
	Warehouse WarehouseConfig `mapstructure:"warehouse"`
	Artifacts ArtifactsConfig `mapstructure:"artifacts"`
	Archive   ArchiveConfig   `mapstructure:"archive"`
	Bookings  BookingsConfig  `mapstructure:"bookings"`
	Weather   WeatherConfig   `mapstructure:"weather"`
}

// SumUpConfig holds the transaction API credentials and endpoint.
type SumUpConfig struct {
	APIKey  string `mapstructure:"api_key"`
	BaseURL string `mapstructure:"base_url"`
}

// WarehouseConfig holds the BigQuery project and credential handle.
type WarehouseConfig struct {
	ProjectID       string `mapstructure:"project_id"`
	CredentialsFile string `mapstructure:"credentials_file"`

	SalesDataset    string `mapstructure:"sales_dataset"`
	SalesTable      string `mapstructure:"sales_table"`
	BookingsDataset string `mapstructure:"bookings_dataset"`
	BookingsTable   string `mapstructure:"bookings_table"`
	WeatherDataset  string `mapstructure:"weather_dataset"`
	WeatherTable    string `mapstructure:"weather_table"`
}

// ArtifactsConfig controls where CSV artifacts are written.
type ArtifactsConfig struct {
	Dir string `mapstructure:"dir"`
}

// ArchiveConfig controls optional GCS archival of artifacts after a
// successful load. Empty bucket disables archival.
type ArchiveConfig struct {
	Bucket string `mapstructure:"bucket"`
	Prefix string `mapstructure:"prefix"`
}

// BookingsConfig identifies the bookings spreadsheet.
type BookingsConfig struct {
	SpreadsheetID string `mapstructure:"spreadsheet_id"`
	SheetName     string `mapstructure:"sheet_name"`
}

// WeatherConfig holds the weather station coordinates.
type WeatherConfig struct {
	Latitude  float64 `mapstructure:"latitude"`
	Longitude float64 `mapstructure:"longitude"`
	BaseURL   string  `mapstructure:"base_url"`
	APIKey    string  `mapstructure:"api_key"`
}

// Load reads configuration from an optional YAML file and the environment.
// Environment variables use the SALESETL_ prefix with underscores, e.g.
// SALESETL_SUMUP_API_KEY. An empty path skips the file and relies on
// environment and defaults only.
func Load(path string) (*Config, error) {
	v := viper.New()

	v.SetDefault("sumup.base_url", "https://api.sumup.com/v0.1")
	v.SetDefault("warehouse.project_id", "sumup-integration")
	v.SetDefault("warehouse.sales_dataset", "TotalSales")
	v.SetDefault("warehouse.sales_table", "TotalSalesTable")
	v.SetDefault("warehouse.bookings_dataset", "Bookings")
	v.SetDefault("warehouse.bookings_table", "BookingsTable")
	v.SetDefault("warehouse.weather_dataset", "Weather")
	v.SetDefault("warehouse.weather_table", "WeatherTable")
	v.SetDefault("artifacts.dir", "data")
	v.SetDefault("bookings.sheet_name", "Bookings")
	v.SetDefault("weather.base_url", "https://meteostat.p.rapidapi.com")
	// Brighton seafront
	v.SetDefault("weather.latitude", 50.8225)
	v.SetDefault("weather.longitude", -0.1372)

	v.SetEnvPrefix("SALESETL")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	// Legacy variable names the cron jobs already export.
	_ = v.BindEnv("sumup.api_key", "SALESETL_SUMUP_API_KEY", "SUMUP_API_KEY")
	_ = v.BindEnv("warehouse.credentials_file", "SALESETL_WAREHOUSE_CREDENTIALS_FILE", "GOOGLE_APPLICATION_CREDENTIALS")

	if path != "" {
		v.SetConfigFile(path)
		if err := v.ReadInConfig(); err != nil {
			return nil, fmt.Errorf("config: reading %s: %w", path, err)
		}
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("config: unmarshal: %w", err)
	}
	return &cfg, nil
}
