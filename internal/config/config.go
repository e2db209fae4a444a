// Package config defines simulator/server configuration: venues, fee
// schedules, market maker parameters, and the listen address. Loaded
// from a YAML file with environment variable overrides.
//
// Grounded on 0xtitan6-polymarket-mm/internal/config/config.go — same
// viper-backed Load/Validate shape and mapstructure tagging, generalized
// from that bot's wallet/API/risk sections to this module's venue and
// strategy sections.
package config

import (
	"fmt"
	"strings"
	"time"

	"github.com/spf13/viper"
)

// Config is the top-level simulator configuration.
type Config struct {
	Server     ServerConfig      `mapstructure:"server"`
	Venues     []VenueConfig     `mapstructure:"venues"`
	Router     RouterConfig      `mapstructure:"router"`
	Strategy   MarketMakerConfig `mapstructure:"strategy"`
	Replay     ReplayConfig      `mapstructure:"replay"`
	Feed       FeedConfig        `mapstructure:"feed"`
	Logging    LoggingConfig     `mapstructure:"logging"`
	Telemetry  TelemetryConfig   `mapstructure:"telemetry"`
}

// ServerConfig is the TCP listen address for the wire protocol server.
type ServerConfig struct {
	Address string `mapstructure:"address"`
	Port    int    `mapstructure:"port"`
}

// VenueConfig describes one simulated venue to register with the router.
type VenueConfig struct {
	Name          string  `mapstructure:"name"`
	MakerRate     float64 `mapstructure:"maker_rate"`
	TakerRate     float64 `mapstructure:"taker_rate"`
	AvgLatencyMS  float64 `mapstructure:"avg_latency_ms"`
	FillRate      float64 `mapstructure:"fill_rate"`
	Uptime        float64 `mapstructure:"uptime"`
}

// RouterConfig toggles the SOR's optional scoring factors.
type RouterConfig struct {
	ConsiderLatency bool `mapstructure:"consider_latency"`
	ConsiderFees    bool `mapstructure:"consider_fees"`
}

// MarketMakerConfig seeds a marketmaker.Parameters value plus the
// starting inventory the simulator initializes the strategy with.
type MarketMakerConfig struct {
	BaseSpreadBps        float64       `mapstructure:"base_spread_bps"`
	MinSpreadBps         float64       `mapstructure:"min_spread_bps"`
	MaxSpreadBps         float64       `mapstructure:"max_spread_bps"`
	MaxBaseInventory     float64       `mapstructure:"max_base_inventory"`
	MaxQuoteInventory    float64       `mapstructure:"max_quote_inventory"`
	TargetBaseInventory  float64       `mapstructure:"target_base_inventory"`
	InventorySkewFactor  float64       `mapstructure:"inventory_skew_factor"`
	VolatilityAdjustment float64       `mapstructure:"volatility_adjustment"`
	BaseQuoteSize        float64       `mapstructure:"base_quote_size"`
	MinQuoteSize         float64       `mapstructure:"min_quote_size"`
	MaxQuoteSize         float64       `mapstructure:"max_quote_size"`
	InitialBaseInventory float64       `mapstructure:"initial_base_inventory"`
	InitialQuoteInventory float64      `mapstructure:"initial_quote_inventory"`
	TickInterval         time.Duration `mapstructure:"tick_interval"`
}

// ReplayConfig points at a historical market-data CSV file to ingest.
type ReplayConfig struct {
	Enabled bool   `mapstructure:"enabled"`
	Path    string `mapstructure:"path"`
	Venue   string `mapstructure:"venue"`
}

// FeedConfig points at a live depth-feed websocket to ingest.
type FeedConfig struct {
	Enabled bool   `mapstructure:"enabled"`
	URL     string `mapstructure:"url"`
	Venue   string `mapstructure:"venue"`
}

type LoggingConfig struct {
	Level  string `mapstructure:"level"`
	Format string `mapstructure:"format"`
}

// TelemetryConfig controls the Prometheus metrics endpoint.
type TelemetryConfig struct {
	Enabled bool   `mapstructure:"enabled"`
	Address string `mapstructure:"address"`
}

// Load reads configuration from a YAML file at path, with SIM_*
// environment variables overriding any key (dots replaced by
// underscores, e.g. SIM_SERVER_PORT overrides server.port).
func Load(path string) (*Config, error) {
	v := viper.New()
	v.SetConfigFile(path)
	v.SetEnvPrefix("SIM")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	if err := v.ReadInConfig(); err != nil {
		return nil, fmt.Errorf("read config: %w", err)
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("unmarshal config: %w", err)
	}
	return &cfg, nil
}

// Validate checks required fields and value ranges.
func (c *Config) Validate() error {
	if c.Server.Port <= 0 {
		return fmt.Errorf("server.port must be > 0")
	}
	if len(c.Venues) == 0 {
		return fmt.Errorf("at least one venue must be configured")
	}
	for _, venue := range c.Venues {
		if venue.Name == "" {
			return fmt.Errorf("venue name must not be empty")
		}
		if venue.MakerRate < 0 || venue.TakerRate < 0 {
			return fmt.Errorf("venue %q: fee rates must be non-negative", venue.Name)
		}
	}
	if c.Strategy.TargetBaseInventory < 0 {
		return fmt.Errorf("strategy.target_base_inventory must be >= 0")
	}
	if c.Strategy.BaseQuoteSize <= 0 {
		return fmt.Errorf("strategy.base_quote_size must be > 0")
	}
	return nil
}
