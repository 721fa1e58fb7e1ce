package infra

import (
	"fmt"
	"os"
	"strings"

	"gopkg.in/yaml.v3"
)

// Trading modes.
const (
	ModeSim  = "sim"
	ModeLive = "live"
)

// SymbolConfig declares one tradable instrument. PipMicros is the pip size
// in price micros (100 for five-decimal majors, 10000 for JPY pairs).
type SymbolConfig struct {
	Name      string `yaml:"name"`
	PipMicros int64  `yaml:"pip_micros"`
}

// Config holds the full engine configuration. Loaded once at startup;
// every field is validated before any worker starts.
type Config struct {
	App struct {
		Name    string `yaml:"name"`
		Version string `yaml:"version"`
	} `yaml:"app"`

	Trading struct {
		Mode string `yaml:"mode"` // sim | live
	} `yaml:"trading"`

	Symbols []SymbolConfig `yaml:"symbols"`

	Risk struct {
		StopLossPips        int64  `yaml:"stop_loss_pips"`
		TakeProfitPips      int64  `yaml:"take_profit_pips"`
		MaxSpreadPips       int64  `yaml:"max_spread_pips"`
		MinConfidenceMicros int64  `yaml:"min_confidence_micros"`
		TieBreak            string `yaml:"tie_break"` // stop_loss | take_profit
	} `yaml:"risk"`

	Signal struct {
		OpenBiasMicros      int64 `yaml:"open_bias_micros"`
		OpenImbalanceMicros int64 `yaml:"open_imbalance_micros"`
		ReverseBiasMicros   int64 `yaml:"reverse_bias_micros"`
	} `yaml:"signal"`

	Feed struct {
		WSURL                  string `yaml:"ws_url"`
		ReadTimeoutMS          int    `yaml:"read_timeout_ms"`
		MaxConsecutiveTimeouts int    `yaml:"max_consecutive_timeouts"`
		TickWindow             int    `yaml:"tick_window"`
		BiasLookback           int    `yaml:"bias_lookback"`
	} `yaml:"feed"`

	Gateway struct {
		FillDelayMS       int     `yaml:"fill_delay_ms"`
		SlippageMicros    int64   `yaml:"slippage_micros"`
		RejectPerMille    int     `yaml:"reject_per_mille"`
		Seed              int64   `yaml:"seed"`
		MaxRequestsBurst  int     `yaml:"max_requests_burst"`
		RequestsPerSecond float64 `yaml:"requests_per_second"`
	} `yaml:"gateway"`

	Storage struct {
		DBPath string `yaml:"db_path"`
	} `yaml:"storage"`

	Latency struct {
		Window int `yaml:"window"`
	} `yaml:"latency"`

	Logging struct {
		Level string `yaml:"level"`
	} `yaml:"logging"`
}

// LoadConfig reads, overrides and validates the configuration. Any invalid
// field aborts startup; nothing trades on defaults it did not declare.
func LoadConfig(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}

	cfg := defaultConfig()
	if err := yaml.Unmarshal(data, cfg); err != nil {
		return nil, err
	}

	overrideWithEnv(cfg)

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid configuration: %w", err)
	}
	return cfg, nil
}

// defaultConfig carries only the operational knobs that have sane universal
// values. Risk and symbol settings have no defaults on purpose.
func defaultConfig() *Config {
	cfg := &Config{}
	cfg.Trading.Mode = ModeSim
	cfg.Risk.TieBreak = "stop_loss"
	cfg.Feed.ReadTimeoutMS = 1000
	cfg.Feed.MaxConsecutiveTimeouts = 5
	cfg.Feed.TickWindow = 256
	cfg.Feed.BiasLookback = 10
	cfg.Gateway.FillDelayMS = 5
	cfg.Gateway.Seed = 1
	cfg.Gateway.MaxRequestsBurst = 20
	cfg.Gateway.RequestsPerSecond = 100
	cfg.Storage.DBPath = "journal.db"
	cfg.Latency.Window = 8192
	cfg.Logging.Level = "info"
	return cfg
}

// Validate fails fast on any inconsistency.
func (c *Config) Validate() error {
	if c.Trading.Mode != ModeSim && c.Trading.Mode != ModeLive {
		return fmt.Errorf("trading mode must be %q or %q, got %q", ModeSim, ModeLive, c.Trading.Mode)
	}

	if len(c.Symbols) == 0 {
		return fmt.Errorf("at least one symbol is required")
	}
	seen := make(map[string]bool, len(c.Symbols))
	for _, s := range c.Symbols {
		if s.Name == "" {
			return fmt.Errorf("symbol with empty name")
		}
		if seen[s.Name] {
			return fmt.Errorf("duplicate symbol %s", s.Name)
		}
		seen[s.Name] = true
		if s.PipMicros <= 0 {
			return fmt.Errorf("symbol %s: pip_micros must be positive, got %d", s.Name, s.PipMicros)
		}
	}

	if c.Risk.StopLossPips <= 0 {
		return fmt.Errorf("risk.stop_loss_pips must be positive, got %d", c.Risk.StopLossPips)
	}
	if c.Risk.TakeProfitPips <= 0 {
		return fmt.Errorf("risk.take_profit_pips must be positive, got %d", c.Risk.TakeProfitPips)
	}
	if c.Risk.MaxSpreadPips <= 0 {
		return fmt.Errorf("risk.max_spread_pips must be positive, got %d", c.Risk.MaxSpreadPips)
	}
	if c.Risk.MinConfidenceMicros <= 0 {
		return fmt.Errorf("risk.min_confidence_micros must be positive, got %d", c.Risk.MinConfidenceMicros)
	}
	if c.Risk.TieBreak != "stop_loss" && c.Risk.TieBreak != "take_profit" {
		return fmt.Errorf("risk.tie_break must be stop_loss or take_profit, got %q", c.Risk.TieBreak)
	}

	if c.Signal.OpenBiasMicros <= 0 || c.Signal.OpenImbalanceMicros <= 0 || c.Signal.ReverseBiasMicros <= 0 {
		return fmt.Errorf("signal thresholds must be positive")
	}

	if c.Trading.Mode == ModeLive {
		if c.Feed.WSURL == "" || (!strings.HasPrefix(c.Feed.WSURL, "ws://") && !strings.HasPrefix(c.Feed.WSURL, "wss://")) {
			return fmt.Errorf("invalid feed ws_url: %q", c.Feed.WSURL)
		}
	}
	if c.Feed.ReadTimeoutMS <= 0 {
		return fmt.Errorf("feed.read_timeout_ms must be positive")
	}
	if c.Feed.MaxConsecutiveTimeouts <= 0 {
		return fmt.Errorf("feed.max_consecutive_timeouts must be positive")
	}
	if c.Feed.BiasLookback <= 0 || c.Feed.TickWindow < c.Feed.BiasLookback {
		return fmt.Errorf("feed.tick_window %d must cover bias_lookback %d", c.Feed.TickWindow, c.Feed.BiasLookback)
	}

	if c.Gateway.FillDelayMS < 0 || c.Gateway.SlippageMicros < 0 {
		return fmt.Errorf("gateway latency and slippage must be non-negative")
	}
	if c.Gateway.RejectPerMille < 0 || c.Gateway.RejectPerMille > 1000 {
		return fmt.Errorf("gateway.reject_per_mille %d out of [0,1000]", c.Gateway.RejectPerMille)
	}
	if c.Gateway.MaxRequestsBurst <= 0 || c.Gateway.RequestsPerSecond <= 0 {
		return fmt.Errorf("gateway rate limit must be positive")
	}

	if c.Storage.DBPath == "" {
		return fmt.Errorf("storage.db_path is required")
	}
	if c.Latency.Window <= 0 {
		return fmt.Errorf("latency.window must be positive")
	}
	return nil
}

// overrideWithEnv lets the environment take precedence over the file for
// deployment-specific values.
func overrideWithEnv(cfg *Config) {
	if mode := os.Getenv("FX_TRADING_MODE"); mode != "" {
		cfg.Trading.Mode = mode
	}
	if url := os.Getenv("FX_FEED_WS_URL"); url != "" {
		cfg.Feed.WSURL = url
	}
	if path := os.Getenv("FX_DB_PATH"); path != "" {
		cfg.Storage.DBPath = path
	}
	if level := os.Getenv("FX_LOG_LEVEL"); level != "" {
		cfg.Logging.Level = level
	}
}
