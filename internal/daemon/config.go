// Package daemon loads configuration and wires the ecobin service together.
package daemon

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/BurntSushi/toml"
	"github.com/caarlos0/env/v10"
	"github.com/joho/godotenv"
	"github.com/shopspring/decimal"

	"github.com/ecobin-network/ecobin/internal/domain"
	"github.com/ecobin-network/ecobin/internal/infra/classifier"
	"github.com/ecobin-network/ecobin/internal/infra/logger"
)

// EnvPrefix prefixes every environment override.
const EnvPrefix = "ECOBIN_"

// Config is the full daemon configuration, read from config.toml and then
// overridden by ECOBIN_* environment variables.
type Config struct {
	API        APIConfig        `toml:"api" envPrefix:"API_"`
	Ledger     LedgerConfig     `toml:"ledger" envPrefix:"LEDGER_"`
	History    HistoryConfig    `toml:"history" envPrefix:"HISTORY_"`
	Cooldown   CooldownConfig   `toml:"cooldown" envPrefix:"COOLDOWN_"`
	Redis      RedisConfig      `toml:"redis" envPrefix:"REDIS_"`
	Rewards    RewardsConfig    `toml:"rewards" envPrefix:"REWARDS_"`
	Redemption RedemptionConfig `toml:"redemption" envPrefix:"REDEMPTION_"`
	Impact     ImpactConfig     `toml:"impact" envPrefix:"IMPACT_"`
	Classifier ClassifierConfig `toml:"classifier" envPrefix:"CLASSIFIER_"`
	Log        logger.Config    `toml:"log" envPrefix:"LOG_"`
	Metrics    MetricsConfig    `toml:"metrics" envPrefix:"METRICS_"`
}

// APIConfig controls the HTTP listener.
type APIConfig struct {
	Host            string `toml:"host" env:"HOST"`
	Port            int    `toml:"port" env:"PORT"`
	ShutdownTimeout string `toml:"shutdown_timeout" env:"SHUTDOWN_TIMEOUT"`
}

// LedgerConfig points at the CSV balance file.
type LedgerConfig struct {
	Path string `toml:"path" env:"PATH"`
}

// HistoryConfig selects where deposit and redemption events live.
type HistoryConfig struct {
	Retention string `toml:"retention" env:"RETENTION"` // durable, session
	Path      string `toml:"path" env:"PATH"`           // sqlite database for durable retention
}

// CooldownConfig configures the deposit rate limiter.
type CooldownConfig struct {
	Window  string `toml:"window" env:"WINDOW"`
	Scope   string `toml:"scope" env:"SCOPE"`     // bin, user
	Backend string `toml:"backend" env:"BACKEND"` // memory, redis
}

// RedisConfig is only used by the redis cooldown backend.
type RedisConfig struct {
	Addr      string `toml:"addr" env:"ADDR"`
	Password  string `toml:"password" env:"PASSWORD"`
	DB        int    `toml:"db" env:"DB"`
	KeyPrefix string `toml:"key_prefix" env:"KEY_PREFIX"`
}

// RewardsConfig holds points-per-gram multipliers as decimal strings.
type RewardsConfig struct {
	Plastic string `toml:"plastic" env:"PLASTIC"`
	Metal   string `toml:"metal" env:"METAL"`
	Paper   string `toml:"paper" env:"PAPER"`
}

// RedemptionConfig is the static reward catalog.
type RedemptionConfig struct {
	PointsPerUnit int64        `toml:"points_per_unit" env:"POINTS_PER_UNIT"`
	MinCash       string       `toml:"min_cash" env:"MIN_CASH"`
	Coupons       []ItemConfig `toml:"coupons"`
	GiftCards     []ItemConfig `toml:"gift_cards"`
}

// ItemConfig is one coupon or gift card entry.
type ItemConfig struct {
	ID    string `toml:"id"`
	Name  string `toml:"name"`
	Value string `toml:"value"`
}

// ImpactConfig holds the displayed-savings coefficients.
type ImpactConfig struct {
	CO2KgPerKg string `toml:"co2_kg_per_kg" env:"CO2_KG_PER_KG"`
	TreesPerKg string `toml:"trees_per_kg" env:"TREES_PER_KG"`
}

// ClassifierConfig locates the camera's detection file and the scale range.
type ClassifierConfig struct {
	Enabled       bool   `toml:"enabled" env:"ENABLED"`
	DetectionFile string `toml:"detection_file" env:"DETECTION_FILE"`
	MinWeight     int64  `toml:"min_weight" env:"MIN_WEIGHT"`
	MaxWeight     int64  `toml:"max_weight" env:"MAX_WEIGHT"`
}

// MetricsConfig toggles the /metrics endpoint.
type MetricsConfig struct {
	Enabled bool `toml:"enabled" env:"ENABLED"`
}

// Home returns $ECOBIN_HOME, or ~/.ecobin.
func Home() string {
	if h := os.Getenv(EnvPrefix + "HOME"); h != "" {
		return h
	}
	home, err := os.UserHomeDir()
	if err != nil {
		return ".ecobin"
	}
	return filepath.Join(home, ".ecobin")
}

// DefaultConfig returns the configuration used when no file is present.
func DefaultConfig() Config {
	home := Home()
	rates := domain.DefaultRewardRates()
	impact := domain.DefaultImpactCoefficients()
	catalog := domain.DefaultCatalog()

	return Config{
		API: APIConfig{
			Host:            "127.0.0.1",
			Port:            8080,
			ShutdownTimeout: "15s",
		},
		Ledger: LedgerConfig{
			Path: filepath.Join(home, "users.csv"),
		},
		History: HistoryConfig{
			Retention: RetentionDurable,
			Path:      filepath.Join(home, "history.db"),
		},
		Cooldown: CooldownConfig{
			Window:  "10s",
			Scope:   string(domain.ScopeBin),
			Backend: BackendMemory,
		},
		Redis: RedisConfig{
			Addr:      "localhost:6379",
			KeyPrefix: "ecobin:cooldown:",
		},
		Rewards: RewardsConfig{
			Plastic: rates.Plastic.String(),
			Metal:   rates.Metal.String(),
			Paper:   rates.Paper.String(),
		},
		Redemption: RedemptionConfig{
			PointsPerUnit: catalog.PointsPerUnit,
			MinCash:       catalog.MinCash.String(),
			Coupons:       itemConfigs(catalog.Coupons),
			GiftCards:     itemConfigs(catalog.GiftCards),
		},
		Impact: ImpactConfig{
			CO2KgPerKg: impact.CO2KgPerKg.String(),
			TreesPerKg: impact.TreesPerKg.String(),
		},
		Classifier: ClassifierConfig{
			Enabled:       true,
			DetectionFile: classifier.DefaultDetectionFile,
			MinWeight:     classifier.DefaultMinWeight,
			MaxWeight:     classifier.DefaultMaxWeight,
		},
		Log: logger.Config{
			Level:   "info",
			Console: true,
		},
		Metrics: MetricsConfig{
			Enabled: true,
		},
	}
}

func itemConfigs(items []domain.CatalogItem) []ItemConfig {
	out := make([]ItemConfig, len(items))
	for i, it := range items {
		out[i] = ItemConfig{ID: it.ID, Name: it.DisplayName, Value: it.MonetaryValue.String()}
	}
	return out
}

// Retention and backend names.
const (
	RetentionDurable = "durable"
	RetentionSession = "session"

	BackendMemory = "memory"
	BackendRedis  = "redis"
)

// ─── Loading ────────────────────────────────────────────────────────────────

// Load reads an optional .env, then path (or $ECOBIN_HOME/config.toml when
// path is empty), then applies ECOBIN_* overrides and validates the result.
// A missing config file is not an error.
func Load(path string) (Config, error) {
	if err := godotenv.Load(); err != nil && !errors.Is(err, fs.ErrNotExist) {
		return Config{}, fmt.Errorf("load .env: %w", err)
	}

	cfg := DefaultConfig()
	if path == "" {
		path = filepath.Join(Home(), "config.toml")
	}
	if err := decodeFile(path, &cfg); err != nil {
		return Config{}, err
	}

	if err := env.ParseWithOptions(&cfg, env.Options{Prefix: EnvPrefix}); err != nil {
		return Config{}, fmt.Errorf("environment overrides: %w", err)
	}

	if err := cfg.Validate(); err != nil {
		return Config{}, err
	}
	return cfg, nil
}

// decodeFile overlays path onto cfg. Catalog lists in the file replace the
// defaults instead of merging into them element by element.
func decodeFile(path string, cfg *Config) error {
	coupons, cards := cfg.Redemption.Coupons, cfg.Redemption.GiftCards
	cfg.Redemption.Coupons, cfg.Redemption.GiftCards = nil, nil

	md, err := toml.DecodeFile(path, cfg)
	if err != nil && !errors.Is(err, fs.ErrNotExist) {
		return fmt.Errorf("parse %s: %w", path, err)
	}
	if !md.IsDefined("redemption", "coupons") {
		cfg.Redemption.Coupons = coupons
	}
	if !md.IsDefined("redemption", "gift_cards") {
		cfg.Redemption.GiftCards = cards
	}
	return nil
}

// Validate parses every string-typed setting once so wiring cannot fail on
// a typo later.
func (c Config) Validate() error {
	if c.API.Port <= 0 || c.API.Port > 65535 {
		return fmt.Errorf("api.port %d out of range", c.API.Port)
	}
	if _, err := parseDuration("api.shutdown_timeout", c.API.ShutdownTimeout); err != nil {
		return err
	}
	if strings.TrimSpace(c.Ledger.Path) == "" {
		return errors.New("ledger.path must be set")
	}
	switch c.History.Retention {
	case RetentionDurable:
		if strings.TrimSpace(c.History.Path) == "" {
			return errors.New("history.path must be set for durable retention")
		}
	case RetentionSession:
	default:
		return fmt.Errorf("history.retention must be %q or %q, got %q", RetentionDurable, RetentionSession, c.History.Retention)
	}
	if _, err := c.CooldownWindow(); err != nil {
		return err
	}
	if _, err := c.CooldownScope(); err != nil {
		return err
	}
	switch c.Cooldown.Backend {
	case BackendMemory, BackendRedis:
	default:
		return fmt.Errorf("cooldown.backend must be %q or %q, got %q", BackendMemory, BackendRedis, c.Cooldown.Backend)
	}
	if _, err := c.RewardRates(); err != nil {
		return err
	}
	if _, err := c.Catalog(); err != nil {
		return err
	}
	if _, err := c.ImpactCoefficients(); err != nil {
		return err
	}
	if c.Classifier.MinWeight <= 0 || c.Classifier.MaxWeight < c.Classifier.MinWeight {
		return fmt.Errorf("classifier weight range [%d, %d] invalid", c.Classifier.MinWeight, c.Classifier.MaxWeight)
	}
	if _, err := logger.ParseLevel(c.Log.Level); err != nil {
		return err
	}
	return nil
}

// ─── Typed Accessors ────────────────────────────────────────────────────────

// Addr is the listen address.
func (c Config) Addr() string { return fmt.Sprintf("%s:%d", c.API.Host, c.API.Port) }

// ShutdownTimeout bounds graceful shutdown.
func (c Config) ShutdownTimeout() time.Duration {
	d, err := parseDuration("api.shutdown_timeout", c.API.ShutdownTimeout)
	if err != nil {
		return 15 * time.Second
	}
	return d
}

// CooldownWindow parses cooldown.window.
func (c Config) CooldownWindow() (time.Duration, error) {
	d, err := parseDuration("cooldown.window", c.Cooldown.Window)
	if err != nil {
		return 0, err
	}
	if d <= 0 {
		return 0, fmt.Errorf("cooldown.window must be positive, got %s", d)
	}
	return d, nil
}

// CooldownScope parses cooldown.scope.
func (c Config) CooldownScope() (domain.CooldownScope, error) {
	switch s := domain.CooldownScope(c.Cooldown.Scope); s {
	case domain.ScopeBin, domain.ScopeUser:
		return s, nil
	default:
		return "", fmt.Errorf("cooldown.scope must be %q or %q, got %q", domain.ScopeBin, domain.ScopeUser, c.Cooldown.Scope)
	}
}

// RewardRates parses the [rewards] multipliers.
func (c Config) RewardRates() (domain.RewardRates, error) {
	var r domain.RewardRates
	var err error
	if r.Plastic, err = parseDecimal("rewards.plastic", c.Rewards.Plastic); err != nil {
		return r, err
	}
	if r.Metal, err = parseDecimal("rewards.metal", c.Rewards.Metal); err != nil {
		return r, err
	}
	if r.Paper, err = parseDecimal("rewards.paper", c.Rewards.Paper); err != nil {
		return r, err
	}
	return r, nil
}

// Catalog builds the redemption catalog from [redemption].
func (c Config) Catalog() (domain.Catalog, error) {
	minCash, err := parseDecimal("redemption.min_cash", c.Redemption.MinCash)
	if err != nil {
		return domain.Catalog{}, err
	}
	coupons, err := catalogItems("redemption.coupons", c.Redemption.Coupons)
	if err != nil {
		return domain.Catalog{}, err
	}
	cards, err := catalogItems("redemption.gift_cards", c.Redemption.GiftCards)
	if err != nil {
		return domain.Catalog{}, err
	}
	cat, err := domain.NewCatalog(c.Redemption.PointsPerUnit, minCash, coupons, cards)
	if err != nil {
		return domain.Catalog{}, fmt.Errorf("redemption: %w", err)
	}
	return cat, nil
}

func catalogItems(field string, in []ItemConfig) ([]domain.CatalogItem, error) {
	out := make([]domain.CatalogItem, 0, len(in))
	for i, it := range in {
		v, err := parseDecimal(fmt.Sprintf("%s[%d].value", field, i), it.Value)
		if err != nil {
			return nil, err
		}
		out = append(out, domain.CatalogItem{ID: it.ID, DisplayName: it.Name, MonetaryValue: v})
	}
	return out, nil
}

// ImpactCoefficients parses [impact].
func (c Config) ImpactCoefficients() (domain.ImpactCoefficients, error) {
	var im domain.ImpactCoefficients
	var err error
	if im.CO2KgPerKg, err = parseDecimal("impact.co2_kg_per_kg", c.Impact.CO2KgPerKg); err != nil {
		return im, err
	}
	if im.TreesPerKg, err = parseDecimal("impact.trees_per_kg", c.Impact.TreesPerKg); err != nil {
		return im, err
	}
	return im, nil
}

func parseDuration(field, s string) (time.Duration, error) {
	d, err := time.ParseDuration(strings.TrimSpace(s))
	if err != nil {
		return 0, fmt.Errorf("%s: invalid duration %q", field, s)
	}
	return d, nil
}

// parseDecimal rejects empty and negative values.
func parseDecimal(field, s string) (decimal.Decimal, error) {
	d, err := decimal.NewFromString(strings.TrimSpace(s))
	if err != nil {
		return decimal.Zero, fmt.Errorf("%s: invalid number %q", field, s)
	}
	if d.IsNegative() {
		return decimal.Zero, fmt.Errorf("%s: must not be negative, got %s", field, d)
	}
	return d, nil
}
