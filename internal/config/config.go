// Package config provides configuration management for probedge.
package config

import (
	"os"
	"path/filepath"

	"github.com/spf13/viper"

	perrors "probedge/internal/errors"
)

// Config holds all application configuration.
type Config struct {
	Symbols         []string       `mapstructure:"symbols"`
	Paths           PathsConfig    `mapstructure:"paths"`
	Risk            RiskConfig     `mapstructure:"risk"`
	Cutovers        CutoverConfig  `mapstructure:"cutovers"`
	Picker          PickerConfig   `mapstructure:"picker"`
	Logging         LoggingConfig  `mapstructure:"logging"`
	Broker          BrokerConfig   `mapstructure:"broker"`
	HTTP            HTTPConfig     `mapstructure:"http"`
	CredentialsPath string         `mapstructure:"credentials_path"`
	Mode            string         `mapstructure:"-"` // from MODE env var, not the file
	ResetState      bool           `mapstructure:"-"` // from RESET_STATE env var, not the file
}

// PathsConfig holds the on-disk locations the runtime reads from and writes to.
type PathsConfig struct {
	Intraday string `mapstructure:"intraday"`
	Masters  string `mapstructure:"masters"`
	Journal  string `mapstructure:"journal"`
	State    string `mapstructure:"state"`
}

// RiskConfig holds the daily and per-trade risk budget.
type RiskConfig struct {
	DailyRs    float64 `mapstructure:"daily_rs"`
	PerTradeRs float64 `mapstructure:"per_trade_rs"`
	RATRMult   float64 `mapstructure:"r_atr_mult"`
}

// CutoverConfig holds the hard IST cutover times that gate tag and plan reveal.
type CutoverConfig struct {
	PDC         string `mapstructure:"pdc"`
	OL          string `mapstructure:"ol"`
	OT          string `mapstructure:"ot"`
	EODFlatten  string `mapstructure:"eod_flatten"`
}

// PickerConfig holds the frequency-table picker's sample-size and
// confidence thresholds.
type PickerConfig struct {
	NminL3               int     `mapstructure:"nmin_l3"`
	NminL2               int     `mapstructure:"nmin_l2"`
	NminL1               int     `mapstructure:"nmin_l1"`
	ConfMin              float64 `mapstructure:"conf_min"`
	TRGuardConf          float64 `mapstructure:"tr_guard_conf"`
	OpeningTrendThreshPct float64 `mapstructure:"opening_trend_threshold_pct"`
}

// LoggingConfig mirrors internal/logging's LogConfig for YAML loading.
type LoggingConfig struct {
	Level      string `mapstructure:"level"`
	File       bool   `mapstructure:"file"`
	FilePath   string `mapstructure:"file_path"`
	MaxSizeMB  int    `mapstructure:"max_size_mb"`
	MaxBackups int    `mapstructure:"max_backups"`
	MaxAgeDays int    `mapstructure:"max_age_days"`
}

// BrokerConfig holds the LIVE-mode ticker credentials. No login flow: the
// access token is assumed already minted by an external collaborator.
type BrokerConfig struct {
	APIKey      string `mapstructure:"api_key"`
	AccessToken string `mapstructure:"access_token"`
}

// HTTPConfig holds the bind address for the read-only /healthz endpoint.
type HTTPConfig struct {
	Addr string `mapstructure:"addr"`
}

// Credentials holds API credentials loaded from a separate file so they
// can be kept out of the main config and out of version control.
type Credentials struct {
	Broker BrokerConfig `mapstructure:"broker"`
}

// DefaultConfigDir returns the default configuration directory.
func DefaultConfigDir() string {
	home, err := os.UserHomeDir()
	if err != nil {
		return ".config/probedge"
	}
	return filepath.Join(home, ".config", "probedge")
}

func defaults() Config {
	return Config{
		Paths: PathsConfig{
			Intraday: "data/intraday",
			Masters:  "data/masters",
			Journal:  "data/journal.db",
			State:    "data/state",
		},
		Risk: RiskConfig{
			DailyRs:    10000,
			PerTradeRs: 1000,
			RATRMult:   1.0,
		},
		Cutovers: CutoverConfig{
			PDC:        "09:25:00",
			OL:         "09:30:00",
			OT:         "09:40:01",
			EODFlatten: "15:05:00",
		},
		Picker: PickerConfig{
			NminL3:                8,
			NminL2:                12,
			NminL1:                20,
			ConfMin:               0.55,
			TRGuardConf:           0.65,
			OpeningTrendThreshPct: 0.35,
		},
		Logging: LoggingConfig{
			Level:      "info",
			File:       true,
			FilePath:   filepath.Join(DefaultConfigDir(), "logs", "probedge.log"),
			MaxSizeMB:  100,
			MaxBackups: 7,
			MaxAgeDays: 30,
		},
		HTTP: HTTPConfig{
			Addr: ":8080",
		},
		Mode: "PAPER",
	}
}

// Load loads configuration from the specified directory. If configDir is
// empty, uses the default config directory.
func Load(configDir string) (*Config, error) {
	if configDir == "" {
		configDir = DefaultConfigDir()
	}

	cfg := defaults()

	v := viper.New()
	v.SetConfigName("config")
	v.SetConfigType("yaml")
	v.AddConfigPath(configDir)
	if err := v.ReadInConfig(); err != nil {
		if _, ok := err.(viper.ConfigFileNotFoundError); !ok {
			return nil, perrors.Wrap(err, "reading config.yaml")
		}
	} else if err := v.Unmarshal(&cfg); err != nil {
		return nil, perrors.Wrap(err, "parsing config.yaml")
	}

	if cfg.CredentialsPath == "" {
		cfg.CredentialsPath = filepath.Join(configDir, "credentials.yaml")
	}
	if err := loadCredentials(cfg.CredentialsPath, &cfg.Broker); err != nil {
		return nil, perrors.Wrap(err, "loading credentials")
	}

	applyEnvOverrides(&cfg)

	if err := cfg.Validate(); err != nil {
		return nil, perrors.Wrap(err, "validating config")
	}

	return &cfg, nil
}

func loadCredentials(path string, broker *BrokerConfig) error {
	v := viper.New()
	v.SetConfigFile(path)
	v.SetConfigType("yaml")

	if err := v.ReadInConfig(); err != nil {
		if _, ok := err.(viper.ConfigFileNotFoundError); ok {
			return nil // credentials are optional in PAPER/SIM mode
		}
		if os.IsNotExist(err) {
			return nil
		}
		return err
	}

	var creds Credentials
	if err := v.Unmarshal(&creds); err != nil {
		return err
	}
	*broker = creds.Broker
	return nil
}

func applyEnvOverrides(cfg *Config) {
	if v := os.Getenv("MODE"); v != "" {
		cfg.Mode = v
	} else if cfg.Mode == "" {
		cfg.Mode = "PAPER"
	}
	if v := os.Getenv("DATA_DIR"); v != "" {
		cfg.Paths.Intraday = filepath.Join(v, "intraday")
		cfg.Paths.Masters = filepath.Join(v, "masters")
		cfg.Paths.Journal = filepath.Join(v, "journal.db")
		cfg.Paths.State = filepath.Join(v, "state")
	}
	if v := os.Getenv("PROBEDGE_BROKER_API_KEY"); v != "" {
		cfg.Broker.APIKey = v
	}
	if v := os.Getenv("PROBEDGE_BROKER_ACCESS_TOKEN"); v != "" {
		cfg.Broker.AccessToken = v
	}
	switch os.Getenv("RESET_STATE") {
	case "1", "true", "TRUE", "yes":
		cfg.ResetState = true
	}
}

// Validate validates the configuration.
func (c *Config) Validate() error {
	switch c.Mode {
	case "LIVE", "PAPER", "SIM":
	default:
		return perrors.NewConfigError("mode", c.Mode, "must be one of LIVE, PAPER, SIM")
	}
	if len(c.Symbols) == 0 {
		return perrors.NewConfigError("symbols", c.Symbols, "universe must not be empty")
	}
	if c.Risk.DailyRs <= 0 {
		return perrors.NewConfigError("risk.daily_rs", c.Risk.DailyRs, "must be positive")
	}
	if c.Risk.PerTradeRs <= 0 {
		return perrors.NewConfigError("risk.per_trade_rs", c.Risk.PerTradeRs, "must be positive")
	}
	if c.Risk.PerTradeRs > c.Risk.DailyRs {
		return perrors.NewConfigError("risk.per_trade_rs", c.Risk.PerTradeRs, "must not exceed risk.daily_rs")
	}
	if c.Picker.ConfMin < 0 || c.Picker.ConfMin > 1 {
		return perrors.NewConfigError("picker.conf_min", c.Picker.ConfMin, "must be between 0 and 1")
	}
	if c.Picker.TRGuardConf < 0 || c.Picker.TRGuardConf > 1 {
		return perrors.NewConfigError("picker.tr_guard_conf", c.Picker.TRGuardConf, "must be between 0 and 1")
	}
	if c.Mode == "LIVE" && (c.Broker.APIKey == "" || c.Broker.AccessToken == "") {
		return perrors.NewConfigError("broker", nil, "api_key and access_token are required in LIVE mode")
	}
	return nil
}

// IsPaperMode returns true if the run mode is PAPER or SIM (i.e. no real
// broker connection is used).
func (c *Config) IsPaperMode() bool {
	return c.Mode == "PAPER" || c.Mode == "SIM"
}
