// Package config lê a configuração do gateway.
//
// Ordem de precedência: valores padrão, depois o arquivo YAML apontado por
// DEFENSE_CONFIG_FILE (limites, detector, capacidade do log) e por fim as
// variáveis de ambiente, que sempre vencem.
package config

import (
	"errors"
	"fmt"
	"os"
	"strings"
	"time"

	"checkout-gateway/internal/securitylog"

	"gopkg.in/yaml.v3"
)

type Config struct {
	ListenAddr      string
	LogLevel        string
	LogFormat       string
	ShutdownTimeout time.Duration
	MaxBodyBytes    int64

	StripeSecretKey     string
	StripeWebhookSecret string
	StripeRPS           float64
	StripeBurst         int

	RateEnabled       bool
	RatePrefix        string
	RateStrictMarkers []string
	RateStrictMax     int
	RateDefaultMax    int
	RateWindow        time.Duration
	RateMaxKeys       int
	RateCleanupEvery  time.Duration
	RateBypassIPs     []string

	RateStatsEnabled       bool
	RateStatsRedisAddr     string
	RateStatsRedisPassword string
	RateStatsRedisDB       int
	RateStatsPrefix        string
	RateStatsTTL           time.Duration
	RateStatsBucket        string
	RateStatsTrackIPs      bool

	ConcurrencyMax     int
	ConcurrencyTimeout time.Duration

	SecurityLogCapacity int
	Detector            securitylog.DetectorConfig

	AllowedOrigins []string
	AdminToken     string
	MetricsEnabled bool

	ConfigFile string
}

func Defaults() Config {
	return Config{
		ListenAddr:      ":8080",
		LogLevel:        "info",
		LogFormat:       "json",
		ShutdownTimeout: 10 * time.Second,
		MaxBodyBytes:    1 << 20,

		StripeBurst: 5,

		RateEnabled:       true,
		RatePrefix:        "/api/",
		RateStrictMarkers: []string{"payment", "webhook"},
		RateStrictMax:     10,
		RateDefaultMax:    100,
		RateWindow:        15 * time.Minute,
		RateMaxKeys:       100_000,
		RateCleanupEvery:  2 * time.Minute,

		RateStatsPrefix: "checkout:ratelimit",
		RateStatsTTL:    24 * time.Hour,
		RateStatsBucket: "minute",

		ConcurrencyMax: 100,

		SecurityLogCapacity: securitylog.DefaultCapacity,
		Detector:            securitylog.DefaultDetectorConfig(),

		MetricsEnabled: true,
	}
}

// FileConfig é o formato do arquivo YAML de políticas.
type FileConfig struct {
	RateLimit struct {
		Window        time.Duration `yaml:"window"`
		StrictMax     int           `yaml:"strict_max"`
		DefaultMax    int           `yaml:"default_max"`
		StrictMarkers []string      `yaml:"strict_markers"`
		BypassIPs     []string      `yaml:"bypass_ips"`
		MaxKeys       int           `yaml:"max_keys"`
	} `yaml:"rate_limit"`
	SecurityLog struct {
		Capacity int          `yaml:"capacity"`
		Detector FileDetector `yaml:"detector"`
	} `yaml:"security_log"`
	AllowedOrigins []string `yaml:"allowed_origins"`
}

// FileDetector usa ponteiros para distinguir campo ausente de limite 0
// ("marcar na primeira ocorrência").
type FileDetector struct {
	LookbackEvents     *int           `yaml:"lookback_events"`
	MaxRateLimitEvents *int           `yaml:"max_rate_limit_events"`
	MaxInvalidRequests *int           `yaml:"max_invalid_requests"`
	MaxFailedPayments  *int           `yaml:"max_failed_payments"`
	BurstWindow        *time.Duration `yaml:"burst_window"`
	MaxBurstEvents     *int           `yaml:"max_burst_events"`
}

// Load monta a configuração a partir do ambiente do processo.
func Load() (Config, error) {
	cfg := Defaults()

	cfg.ConfigFile = os.Getenv("DEFENSE_CONFIG_FILE")
	if cfg.ConfigFile != "" {
		fc, err := ReadFile(cfg.ConfigFile)
		if err != nil {
			return Config{}, err
		}
		cfg.applyFile(fc)
	}

	cfg.ListenAddr = getenvDefault("LISTEN_ADDR", cfg.ListenAddr)
	cfg.LogLevel = getenvDefault("LOG_LEVEL", cfg.LogLevel)
	cfg.LogFormat = getenvDefault("LOG_FORMAT", cfg.LogFormat)
	cfg.ShutdownTimeout = getenvDurationDefault("SHUTDOWN_TIMEOUT", cfg.ShutdownTimeout)
	cfg.MaxBodyBytes = int64(getenvIntDefault("MAX_BODY_BYTES", int(cfg.MaxBodyBytes)))

	cfg.StripeSecretKey = os.Getenv("STRIPE_SECRET_KEY")
	cfg.StripeWebhookSecret = os.Getenv("STRIPE_WEBHOOK_SECRET")
	cfg.StripeRPS = getenvFloatDefault("STRIPE_RPS", cfg.StripeRPS)
	cfg.StripeBurst = getenvIntDefault("STRIPE_BURST", cfg.StripeBurst)

	cfg.RateEnabled = getenvBoolDefault("RATE_ENABLED", cfg.RateEnabled)
	cfg.RateStrictMax = getenvIntDefault("RATE_STRICT_MAX", cfg.RateStrictMax)
	cfg.RateDefaultMax = getenvIntDefault("RATE_DEFAULT_MAX", cfg.RateDefaultMax)
	cfg.RateWindow = getenvDurationDefault("RATE_WINDOW", cfg.RateWindow)
	cfg.RateMaxKeys = getenvIntDefault("RATE_MAX_KEYS", cfg.RateMaxKeys)
	cfg.RateCleanupEvery = getenvDurationDefault("RATE_CLEANUP_EVERY", cfg.RateCleanupEvery)
	cfg.RateBypassIPs = getenvListDefault("RATE_BYPASS_IPS", cfg.RateBypassIPs)

	cfg.RateStatsEnabled = getenvBoolDefault("RATE_STATS_ENABLED", cfg.RateStatsEnabled)
	cfg.RateStatsRedisAddr = getenvDefault("RATE_STATS_REDIS_ADDR", cfg.RateStatsRedisAddr)
	cfg.RateStatsRedisPassword = os.Getenv("RATE_STATS_REDIS_PASSWORD")
	cfg.RateStatsRedisDB = getenvIntDefault("RATE_STATS_REDIS_DB", cfg.RateStatsRedisDB)
	cfg.RateStatsPrefix = getenvDefault("RATE_STATS_PREFIX", cfg.RateStatsPrefix)
	cfg.RateStatsTTL = getenvDurationDefault("RATE_STATS_TTL", cfg.RateStatsTTL)
	cfg.RateStatsBucket = getenvDefault("RATE_STATS_BUCKET", cfg.RateStatsBucket)
	cfg.RateStatsTrackIPs = getenvBoolDefault("RATE_STATS_TRACK_IPS", cfg.RateStatsTrackIPs)

	cfg.ConcurrencyMax = getenvIntDefault("CONCURRENCY_MAX", cfg.ConcurrencyMax)
	cfg.ConcurrencyTimeout = getenvDurationDefault("CONCURRENCY_TIMEOUT", cfg.ConcurrencyTimeout)

	cfg.SecurityLogCapacity = getenvIntDefault("SECURITY_LOG_CAPACITY", cfg.SecurityLogCapacity)

	cfg.AllowedOrigins = getenvListDefault("ALLOWED_ORIGINS", cfg.AllowedOrigins)
	cfg.AdminToken = os.Getenv("ADMIN_TOKEN")
	cfg.MetricsEnabled = getenvBoolDefault("METRICS_ENABLED", cfg.MetricsEnabled)

	if err := cfg.Validate(); err != nil {
		return Config{}, err
	}
	return cfg, nil
}

// ReadFile lê e decodifica o YAML de políticas. Campos desconhecidos são erro.
func ReadFile(path string) (FileConfig, error) {
	var fc FileConfig
	f, err := os.Open(path)
	if err != nil {
		return fc, fmt.Errorf("open config file: %w", err)
	}
	defer f.Close()

	dec := yaml.NewDecoder(f)
	dec.KnownFields(true)
	if err := dec.Decode(&fc); err != nil {
		return fc, fmt.Errorf("parse config file %s: %w", path, err)
	}
	return fc, nil
}

func (c *Config) applyFile(fc FileConfig) {
	rl := fc.RateLimit
	if rl.Window > 0 {
		c.RateWindow = rl.Window
	}
	if rl.StrictMax > 0 {
		c.RateStrictMax = rl.StrictMax
	}
	if rl.DefaultMax > 0 {
		c.RateDefaultMax = rl.DefaultMax
	}
	if len(rl.StrictMarkers) > 0 {
		c.RateStrictMarkers = rl.StrictMarkers
	}
	if len(rl.BypassIPs) > 0 {
		c.RateBypassIPs = rl.BypassIPs
	}
	if rl.MaxKeys > 0 {
		c.RateMaxKeys = rl.MaxKeys
	}

	if fc.SecurityLog.Capacity > 0 {
		c.SecurityLogCapacity = fc.SecurityLog.Capacity
	}
	d := fc.SecurityLog.Detector
	setInt(&c.Detector.LookbackEvents, d.LookbackEvents)
	setInt(&c.Detector.MaxRateLimitEvents, d.MaxRateLimitEvents)
	setInt(&c.Detector.MaxInvalidRequests, d.MaxInvalidRequests)
	setInt(&c.Detector.MaxFailedPayments, d.MaxFailedPayments)
	setInt(&c.Detector.MaxBurstEvents, d.MaxBurstEvents)
	if d.BurstWindow != nil {
		c.Detector.BurstWindow = *d.BurstWindow
	}

	if len(fc.AllowedOrigins) > 0 {
		c.AllowedOrigins = fc.AllowedOrigins
	}
}

func setInt(dst *int, v *int) {
	if v != nil {
		*dst = *v
	}
}

func (c Config) Validate() error {
	var errs []error
	if strings.TrimSpace(c.ListenAddr) == "" {
		errs = append(errs, errors.New("LISTEN_ADDR must not be empty"))
	}
	if c.RateStrictMax <= 0 {
		errs = append(errs, errors.New("RATE_STRICT_MAX must be > 0"))
	}
	if c.RateDefaultMax <= 0 {
		errs = append(errs, errors.New("RATE_DEFAULT_MAX must be > 0"))
	}
	if c.RateWindow <= 0 {
		errs = append(errs, errors.New("RATE_WINDOW must be > 0"))
	}
	if c.RateMaxKeys <= 0 {
		errs = append(errs, errors.New("RATE_MAX_KEYS must be > 0"))
	}
	if c.RateStatsEnabled && strings.TrimSpace(c.RateStatsRedisAddr) == "" {
		errs = append(errs, errors.New("RATE_STATS_REDIS_ADDR is required when RATE_STATS_ENABLED=true"))
	}
	if b := strings.ToLower(c.RateStatsBucket); b != "minute" && b != "none" {
		errs = append(errs, fmt.Errorf("RATE_STATS_BUCKET must be minute or none, got %q", c.RateStatsBucket))
	}
	if c.ConcurrencyMax < 0 {
		errs = append(errs, errors.New("CONCURRENCY_MAX must be >= 0"))
	}
	d := c.Detector
	if d.LookbackEvents <= 0 {
		errs = append(errs, errors.New("security_log.detector.lookback_events must be > 0"))
	}
	if d.BurstWindow <= 0 {
		errs = append(errs, errors.New("security_log.detector.burst_window must be > 0"))
	}
	if d.MaxRateLimitEvents < 0 || d.MaxInvalidRequests < 0 || d.MaxFailedPayments < 0 || d.MaxBurstEvents < 0 {
		errs = append(errs, errors.New("security_log.detector thresholds must be >= 0"))
	}
	if c.SecurityLogCapacity <= 0 {
		errs = append(errs, errors.New("SECURITY_LOG_CAPACITY must be > 0"))
	}
	if c.StripeRPS < 0 {
		errs = append(errs, errors.New("STRIPE_RPS must be >= 0"))
	}
	if c.MaxBodyBytes <= 0 {
		errs = append(errs, errors.New("MAX_BODY_BYTES must be > 0"))
	}
	return errors.Join(errs...)
}
