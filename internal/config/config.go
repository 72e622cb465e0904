package config

import (
	"fmt"
	"strings"
	"time"

	"github.com/go-viper/mapstructure/v2"
	"github.com/spf13/viper"

	"gridwatch/internal/logging"
)

// Config materialises application configuration.
type Config struct {
	App       AppConfig       `mapstructure:"app"`
	Logging   logging.Config  `mapstructure:"logging"`
	Database  DatabaseConfig  `mapstructure:"database"`
	Scheduler SchedulerConfig `mapstructure:"scheduler"`
	Elexon    ElexonConfig    `mapstructure:"elexon"`
	Carbon    CarbonConfig    `mapstructure:"carbon"`
	Fetch     FetchConfig     `mapstructure:"fetch"`
}

// AppConfig general metadata.
type AppConfig struct {
	Name        string `mapstructure:"name"`
	Environment string `mapstructure:"environment"`
}

// DatabaseConfig encapsulates PostgreSQL connectivity.
type DatabaseConfig struct {
	DSN             string        `mapstructure:"dsn"`
	MaxOpenConns    int           `mapstructure:"max_open_conns"`
	MaxIdleConns    int           `mapstructure:"max_idle_conns"`
	ConnMaxLifetime time.Duration `mapstructure:"conn_max_lifetime"`
	MigrationsPath  string        `mapstructure:"migrations_path"`
	AutoMigrate     bool          `mapstructure:"auto_migrate"`
}

// SchedulerConfig governs job cadences. Settlement data is published roughly
// half an hour after each period, so prices and carbon poll every 30 minutes.
type SchedulerConfig struct {
	SystemPriceInterval time.Duration `mapstructure:"system_price_interval"`
	DayAheadInterval    time.Duration `mapstructure:"day_ahead_interval"`
	CarbonInterval      time.Duration `mapstructure:"carbon_interval"`
	MaintenanceCron     string        `mapstructure:"maintenance_cron"`
	MaintenanceDaysBack int           `mapstructure:"maintenance_days_back"`
}

// ElexonConfig covers BMRS API connectivity.
type ElexonConfig struct {
	BaseURL          string        `mapstructure:"base_url"`
	RequestTimeout   time.Duration `mapstructure:"request_timeout"`
	MaxRetries       int           `mapstructure:"max_retries"`
	DataProvider     string        `mapstructure:"data_provider"`
	ChunkDays        int           `mapstructure:"chunk_days"`
	RangeConcurrency int           `mapstructure:"range_concurrency"`
}

// CarbonConfig covers Carbon Intensity API connectivity.
type CarbonConfig struct {
	BaseURL        string        `mapstructure:"base_url"`
	RequestTimeout time.Duration `mapstructure:"request_timeout"`
	MaxRetries     int           `mapstructure:"max_retries"`
}

// FetchConfig sets one-shot fetch behaviour.
type FetchConfig struct {
	DaysBack int `mapstructure:"days_back"`
}

// Load builds configuration from file, environment, and defaults.
func Load(path string) (*Config, error) {
	v := viper.New()
	v.SetEnvPrefix("GRIDWATCH")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	setDefaults(v)

	if path != "" {
		v.SetConfigFile(path)
	} else {
		v.SetConfigName("config")
		v.SetConfigType("yaml")
		v.AddConfigPath(".")
	}

	if err := readConfig(v); err != nil {
		return nil, err
	}

	var cfg Config
	if err := v.Unmarshal(&cfg, decodeHook()); err != nil {
		return nil, fmt.Errorf("unmarshal config: %w", err)
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	return &cfg, nil
}

func readConfig(v *viper.Viper) error {
	if err := v.ReadInConfig(); err != nil {
		if _, ok := err.(viper.ConfigFileNotFoundError); ok {
			return nil
		}
		return fmt.Errorf("read config: %w", err)
	}
	return nil
}

func setDefaults(v *viper.Viper) {
	v.SetDefault("app.name", "gridwatch")
	v.SetDefault("app.environment", "development")

	v.SetDefault("logging.level", "info")
	v.SetDefault("logging.format", "json")

	// An empty default registers the key so GRIDWATCH_DATABASE_DSN is
	// visible to Unmarshal.
	v.SetDefault("database.dsn", "")
	v.SetDefault("database.max_open_conns", 10)
	v.SetDefault("database.max_idle_conns", 5)
	v.SetDefault("database.conn_max_lifetime", "30m")
	v.SetDefault("database.migrations_path", "migrations")
	v.SetDefault("database.auto_migrate", true)

	v.SetDefault("scheduler.system_price_interval", "30m")
	v.SetDefault("scheduler.day_ahead_interval", "1h")
	v.SetDefault("scheduler.carbon_interval", "30m")
	v.SetDefault("scheduler.maintenance_cron", "0 3 * * *")
	v.SetDefault("scheduler.maintenance_days_back", 7)

	v.SetDefault("elexon.base_url", "https://data.elexon.co.uk/bmrs/api/v1")
	v.SetDefault("elexon.request_timeout", "30s")
	v.SetDefault("elexon.max_retries", 3)
	v.SetDefault("elexon.data_provider", "APXMIDP")
	v.SetDefault("elexon.chunk_days", 7)
	v.SetDefault("elexon.range_concurrency", 4)

	v.SetDefault("carbon.base_url", "https://api.carbonintensity.org.uk")
	v.SetDefault("carbon.request_timeout", "30s")
	v.SetDefault("carbon.max_retries", 3)

	v.SetDefault("fetch.days_back", 2)
}

func decodeHook() viper.DecoderConfigOption {
	return func(dc *mapstructure.DecoderConfig) {
		dc.TagName = "mapstructure"
		dc.DecodeHook = mapstructure.ComposeDecodeHookFunc(
			mapstructure.StringToTimeDurationHookFunc(),
			mapstructure.StringToSliceHookFunc(","),
		)
	}
}

// Validate performs basic sanity checks on the configuration values.
func (c *Config) Validate() error {
	if c.Scheduler.SystemPriceInterval <= 0 {
		return fmt.Errorf("scheduler.system_price_interval must be greater than zero")
	}
	if c.Scheduler.DayAheadInterval <= 0 {
		return fmt.Errorf("scheduler.day_ahead_interval must be greater than zero")
	}
	if c.Scheduler.CarbonInterval <= 0 {
		return fmt.Errorf("scheduler.carbon_interval must be greater than zero")
	}
	if c.Scheduler.MaintenanceDaysBack < 1 {
		return fmt.Errorf("scheduler.maintenance_days_back must be at least 1")
	}
	if c.Elexon.ChunkDays < 1 || c.Elexon.ChunkDays > 7 {
		return fmt.Errorf("elexon.chunk_days must be between 1 and 7")
	}
	if c.Elexon.MaxRetries < 1 {
		return fmt.Errorf("elexon.max_retries must be at least 1")
	}
	if c.Carbon.MaxRetries < 1 {
		return fmt.Errorf("carbon.max_retries must be at least 1")
	}
	if c.Fetch.DaysBack < 0 {
		return fmt.Errorf("fetch.days_back cannot be negative")
	}
	return nil
}
