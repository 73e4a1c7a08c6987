package config

import (
	"errors"
	"fmt"
	"path/filepath"
	"strings"
	"time"

	"github.com/gookit/validate"
	"github.com/spf13/viper"
)

// Config is the single source of truth for all application configuration.
type Config struct {
	AppName   string
	Debug     bool
	Server    ServerConfig    `mapstructure:"server"`
	Upstream  UpstreamConfig  `mapstructure:"upstream"`
	History   HistoryConfig   `mapstructure:"history"`
	Broadcast BroadcastConfig `mapstructure:"broadcast"`
	Simulate  SimulateConfig  `mapstructure:"simulate"`
	Auth      AuthConfig      `mapstructure:"auth"`
	Cache     CacheConfig     `mapstructure:"cache"`
	Metrics   MetricsConfig   `mapstructure:"metrics"`
	Logger    LoggerConfig    `mapstructure:"logger"`
}

// ServerConfig holds the HTTP server settings.
type ServerConfig struct {
	Addr         string        `mapstructure:"addr" validate:"required"`
	ReadTimeout  time.Duration `mapstructure:"readTimeout"`
	WriteTimeout time.Duration `mapstructure:"writeTimeout"`
	IdleTimeout  time.Duration `mapstructure:"idleTimeout"`
}

// UpstreamConfig holds the mempool.space endpoint URLs and the per-request
// timeout shared by all three calls.
type UpstreamConfig struct {
	FeesURL       string        `mapstructure:"feesURL" validate:"required|fullUrl"`
	MempoolURL    string        `mapstructure:"mempoolURL" validate:"required|fullUrl"`
	DifficultyURL string        `mapstructure:"difficultyURL" validate:"required|fullUrl"`
	Timeout       time.Duration `mapstructure:"timeout"`
}

// HistoryConfig holds the rolling-window settings for the in-memory series.
// The two known deployments disagree on the window (24h vs 60m), so it is a
// knob rather than a constant.
type HistoryConfig struct {
	Window time.Duration `mapstructure:"window"`
}

// BroadcastConfig holds the websocket feed settings. The feed binds
// PreferredPort and falls back to FallbackPort exactly once.
type BroadcastConfig struct {
	Host          string        `mapstructure:"host" validate:"required"`
	PreferredPort int           `mapstructure:"preferredPort" validate:"required|uint|min:1"`
	FallbackPort  int           `mapstructure:"fallbackPort" validate:"required|uint|min:1"`
	Interval      time.Duration `mapstructure:"interval"`
	SendBuffer    int           `mapstructure:"sendBuffer"`
	MaxClients    int           `mapstructure:"maxClients"`
}

// SimulateConfig holds the shapes and ranges of the synthesized fallback
// series. Deployment variants tune these, so they are all configurable.
type SimulateConfig struct {
	FeePoints   int           `mapstructure:"feePoints"`
	FeeStep     time.Duration `mapstructure:"feeStep"`
	FeeMin      int64         `mapstructure:"feeMin"`
	FeeMax      int64         `mapstructure:"feeMax"`
	LowFee      int64         `mapstructure:"lowFee"`
	LowFeeLimit int64         `mapstructure:"lowFeeLimit"`
	LowFeeAge   time.Duration `mapstructure:"lowFeeAge"`

	MempoolPoints int           `mapstructure:"mempoolPoints"`
	MempoolStep   time.Duration `mapstructure:"mempoolStep"`
	MempoolMin    int64         `mapstructure:"mempoolMin"`
	MempoolMax    int64         `mapstructure:"mempoolMax"`

	VolumePoints int           `mapstructure:"volumePoints"`
	VolumeStep   time.Duration `mapstructure:"volumeStep"`
	VolumeMin    float64       `mapstructure:"volumeMin"`
	VolumeMax    float64       `mapstructure:"volumeMax"`
}

// AuthConfig holds the session cookie settings.
type AuthConfig struct {
	SessionKey    string `mapstructure:"sessionKey" validate:"required"`
	SessionName   string `mapstructure:"sessionName" validate:"required"`
	SessionMaxAge int    `mapstructure:"sessionMaxAge"`
}

// CacheConfig controls the short-TTL response cache on /network-data.
type CacheConfig struct {
	Enabled bool          `mapstructure:"enabled"`
	Size    int           `mapstructure:"size"`
	TTL     time.Duration `mapstructure:"ttl"`
}

// MetricsConfig controls the prometheus /metrics endpoint.
type MetricsConfig struct {
	Enabled bool `mapstructure:"enabled"`
}

// LoggerConfig holds logging settings.
type LoggerConfig struct {
	Level  string `mapstructure:"level" validate:"required|in:trace,debug,info,warn,error,fatal,panic"`
	Pretty bool   `mapstructure:"pretty"`
}

// DefaultConfig returns the configuration matching the primary deployment
// variant (24h retention, 60s broadcast period, websocket on 8765/8766).
func DefaultConfig() *Config {
	return &Config{
		AppName: "mempool-backend",
		Server: ServerConfig{
			Addr:         ":8080",
			ReadTimeout:  5 * time.Second,
			WriteTimeout: 10 * time.Second,
			IdleTimeout:  60 * time.Second,
		},
		Upstream: UpstreamConfig{
			FeesURL:       "https://mempool.space/api/v1/fees/recommended",
			MempoolURL:    "https://mempool.space/api/mempool",
			DifficultyURL: "https://mempool.space/api/v1/difficulty-adjustment",
			Timeout:       5 * time.Second,
		},
		History: HistoryConfig{
			Window: 24 * time.Hour,
		},
		Broadcast: BroadcastConfig{
			Host:          "localhost",
			PreferredPort: 8765,
			FallbackPort:  8766,
			Interval:      60 * time.Second,
			SendBuffer:    256,
			MaxClients:    1000,
		},
		Simulate: SimulateConfig{
			FeePoints:   24,
			FeeStep:     time.Hour,
			FeeMin:      10,
			FeeMax:      50,
			LowFee:      14,
			LowFeeLimit: 15,
			LowFeeAge:   30 * time.Minute,

			MempoolPoints: 60,
			MempoolStep:   10 * time.Minute,
			MempoolMin:    3000,
			MempoolMax:    10000,

			VolumePoints: 24,
			VolumeStep:   time.Hour,
			VolumeMin:    100,
			VolumeMax:    1000,
		},
		Auth: AuthConfig{
			SessionKey:    "dev-only-session-key-change-me",
			SessionName:   "mempool_session",
			SessionMaxAge: 86400,
		},
		Cache: CacheConfig{
			Enabled: true,
			Size:    1 << 20,
			TTL:     5 * time.Second,
		},
		Metrics: MetricsConfig{
			Enabled: true,
		},
		Logger: LoggerConfig{
			Level:  "info",
			Pretty: false,
		},
	}
}

// Load reads configuration from the given YAML file, applies environment
// overrides, and validates the result. An empty path yields the defaults with
// environment overrides applied.
func Load(path string) (*Config, error) {
	conf := DefaultConfig()

	v := viper.New()
	v.SetConfigType("yaml")

	bindEnv(v)

	if path != "" {
		filename := filepath.Base(path)
		v.AddConfigPath(filepath.Dir(path))
		v.SetConfigName(strings.TrimSuffix(filename, filepath.Ext(filename)))
		if err := v.ReadInConfig(); err != nil {
			return nil, err
		}
	}

	if err := v.Unmarshal(conf); err != nil {
		return nil, fmt.Errorf("unable to decode into config struct: %w", err)
	}

	if err := conf.Validate(); err != nil {
		return nil, err
	}
	return conf, nil
}

func bindEnv(v *viper.Viper) {
	v.BindEnv("server.addr", "MEMPOOL_SERVER_ADDR")
	v.BindEnv("history.window", "MEMPOOL_HISTORY_WINDOW")
	v.BindEnv("broadcast.preferredPort", "MEMPOOL_WS_PORT")
	v.BindEnv("broadcast.fallbackPort", "MEMPOOL_WS_FALLBACK_PORT")
	v.BindEnv("broadcast.interval", "MEMPOOL_WS_INTERVAL")
	v.BindEnv("auth.sessionKey", "MEMPOOL_SESSION_KEY")
	v.BindEnv("cache.enabled", "MEMPOOL_CACHE_ENABLED")
	v.BindEnv("metrics.enabled", "MEMPOOL_METRICS_ENABLED")
	v.BindEnv("logger.level", "MEMPOOL_LOG_LEVEL")
}

// Validate checks tag-level constraints plus the duration and range rules the
// tags cannot express.
func (c *Config) Validate() error {
	vd := validate.Struct(c)
	if !vd.Validate() {
		return fmt.Errorf("config validation: %s", vd.Errors.One())
	}

	if c.History.Window <= 0 {
		return errors.New("config validation: history.window must be positive")
	}
	if c.Broadcast.Interval <= 0 {
		return errors.New("config validation: broadcast.interval must be positive")
	}
	if c.Upstream.Timeout <= 0 {
		return errors.New("config validation: upstream.timeout must be positive")
	}
	if c.Broadcast.PreferredPort == c.Broadcast.FallbackPort {
		return errors.New("config validation: broadcast ports must differ")
	}
	if c.Simulate.FeePoints <= 0 || c.Simulate.MempoolPoints <= 0 || c.Simulate.VolumePoints <= 0 {
		return errors.New("config validation: simulate point counts must be positive")
	}
	if c.Simulate.FeeMin > c.Simulate.FeeMax || c.Simulate.MempoolMin > c.Simulate.MempoolMax || c.Simulate.VolumeMin > c.Simulate.VolumeMax {
		return errors.New("config validation: simulate ranges must be ordered")
	}
	return nil
}
