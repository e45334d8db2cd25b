// Package config handles loading and validating the application configuration
// from YAML files with environment variable substitution.
package config

import (
	"errors"
	"fmt"
	"os"
	"slices"
	"strings"
	"time"

	"gopkg.in/yaml.v3"

	"github.com/donaldgifford/marketplace-sync/internal/credential"
)

// Credential store backends.
const (
	BackendFile     = "file"
	BackendPostgres = "postgres"
)

// Config is the top-level application configuration.
type Config struct {
	Server      ServerConfig      `yaml:"server"`
	Logging     LoggingConfig     `yaml:"logging"`
	Credentials CredentialsConfig `yaml:"credentials"`
	Database    DatabaseConfig    `yaml:"database"`
	Shopee      PlatformConfig    `yaml:"shopee"`
	Lazada      PlatformConfig    `yaml:"lazada"`
	TikTok      PlatformConfig    `yaml:"tiktok"`
	Sink        SinkConfig        `yaml:"sink"`
	Fetch       FetchConfig       `yaml:"fetch"`
	Schedule    ScheduleConfig    `yaml:"schedule"`
	APILog      APILogConfig      `yaml:"api_log"`
	Export      ExportConfig      `yaml:"export"`
	Notify      NotifyConfig      `yaml:"notify"`
}

// ServerConfig defines the Echo HTTP server settings.
type ServerConfig struct {
	Host         string        `yaml:"host"`
	Port         int           `yaml:"port"`
	ReadTimeout  time.Duration `yaml:"read_timeout"`
	WriteTimeout time.Duration `yaml:"write_timeout"`
}

// LoggingConfig defines logging settings.
type LoggingConfig struct {
	Level  string `yaml:"level"`  // debug, info, warn, error
	Format string `yaml:"format"` // text, json
}

// CredentialsConfig selects where platform credentials persist.
type CredentialsConfig struct {
	Backend string `yaml:"backend"` // file, postgres
	Dir     string `yaml:"dir"`
}

// DatabaseConfig defines PostgreSQL connection settings. It is required when
// credentials.backend is postgres and enables scheduler job bookkeeping.
type DatabaseConfig struct {
	Host     string `yaml:"host"`
	Port     int    `yaml:"port"`
	Name     string `yaml:"name"`
	User     string `yaml:"user"`
	Password string `yaml:"password"`
	SSLMode  string `yaml:"sslmode"`
}

// Configured reports whether a database was configured at all.
func (d *DatabaseConfig) Configured() bool {
	return d.Host != ""
}

// DSN returns a PostgreSQL connection string.
func (d *DatabaseConfig) DSN() string {
	return fmt.Sprintf(
		"host=%s port=%d dbname=%s user=%s password=%s sslmode=%s",
		d.Host, d.Port, d.Name, d.User, d.Password, d.SSLMode,
	)
}

// PlatformConfig configures one marketplace integration. Identity fields sit
// inline: partner_id, partner_key, shop_id, app_key, app_secret, shop_cipher.
type PlatformConfig struct {
	Enabled             bool `yaml:"enabled"`
	credential.Identity `yaml:",inline"`

	BaseURL        string        `yaml:"base_url"`
	AuthURL        string        `yaml:"auth_url"`
	RedirectURL    string        `yaml:"redirect_url"`
	RequestTimeout time.Duration `yaml:"request_timeout"`
	// Lifetime overrides for tokens whose grant omits an expiry.
	AccessLifetime  time.Duration `yaml:"access_lifetime"`
	RefreshLifetime time.Duration `yaml:"refresh_lifetime"`
	// RefreshMargin refreshes access tokens this long before they expire.
	RefreshMargin time.Duration `yaml:"refresh_margin"`
}

// SinkConfig defines the spreadsheet sink.
type SinkConfig struct {
	SpreadsheetID   string        `yaml:"spreadsheet_id"`
	CredentialFiles []string      `yaml:"credential_files"`
	BaseDelay       time.Duration `yaml:"base_delay"`
	MaxDelay        time.Duration `yaml:"max_delay"`
	MaxAttempts     int           `yaml:"max_attempts"`
	RotateAfter     int           `yaml:"rotate_after"`
	QuotaIndicators []string      `yaml:"quota_indicators"`
	ChunkRows       int           `yaml:"chunk_rows"`
}

// Configured reports whether a sink was configured.
func (s *SinkConfig) Configured() bool {
	return s.SpreadsheetID != "" || len(s.CredentialFiles) > 0
}

// FetchConfig defines pagination behavior.
type FetchConfig struct {
	MaxWindowDays int           `yaml:"max_window_days"`
	PageSize      int           `yaml:"page_size"`
	MinPageDelay  time.Duration `yaml:"min_page_delay"`
	PageRetries   int           `yaml:"page_retries"`
	Timezone      string        `yaml:"timezone"`
}

// Location resolves Timezone.
func (f *FetchConfig) Location() (*time.Location, error) {
	return time.LoadLocation(f.Timezone)
}

// ScheduleConfig defines cron intervals. A zero interval disables the job.
type ScheduleConfig struct {
	TokenCheckInterval time.Duration `yaml:"token_check_interval"`
	OrderSyncInterval  time.Duration `yaml:"order_sync_interval"`
	OrderStatus        string        `yaml:"order_status"`
	OrderDays          int           `yaml:"order_days"`
	LockTTL            time.Duration `yaml:"lock_ttl"`
}

// APILogConfig controls the raw platform response recorder.
type APILogConfig struct {
	Enabled bool   `yaml:"enabled"`
	Dir     string `yaml:"dir"`
	Buffer  int    `yaml:"buffer"`
}

// ExportConfig controls identifier export files.
type ExportConfig struct {
	Dir string `yaml:"dir"`
}

// NotifyConfig controls operator notifications. An empty webhook URL
// disables delivery.
type NotifyConfig struct {
	DiscordWebhookURL string        `yaml:"discord_webhook_url"`
	Username          string        `yaml:"username"`
	Timeout           time.Duration `yaml:"timeout"`
}

// Platform returns the section for p.
func (c *Config) Platform(p credential.Platform) *PlatformConfig {
	switch p {
	case credential.Shopee:
		return &c.Shopee
	case credential.Lazada:
		return &c.Lazada
	case credential.TikTok:
		return &c.TikTok
	default:
		return nil
	}
}

// EnabledPlatforms lists the enabled platforms in canonical order.
func (c *Config) EnabledPlatforms() []credential.Platform {
	var out []credential.Platform
	for _, p := range credential.Platforms() {
		if c.Platform(p).Enabled {
			out = append(out, p)
		}
	}
	return out
}

// Load reads and parses a YAML config file, performing environment variable
// substitution and validation.
func Load(path string) (*Config, error) {
	data, err := os.ReadFile(path) //nolint:gosec // config path from trusted CLI flag
	if err != nil {
		return nil, fmt.Errorf("reading config file: %w", err)
	}
	return Parse(data)
}

// Parse expands, decodes, defaults and validates raw YAML.
func Parse(data []byte) (*Config, error) {
	expanded := os.ExpandEnv(string(data))

	cfg := &Config{}
	if err := yaml.Unmarshal([]byte(expanded), cfg); err != nil {
		return nil, fmt.Errorf("parsing config YAML: %w", err)
	}

	applyDefaults(cfg)

	if err := validate(cfg); err != nil {
		return nil, fmt.Errorf("validating config: %w", err)
	}

	return cfg, nil
}

func applyDefaults(cfg *Config) {
	applyServerDefaults(&cfg.Server)
	applyLoggingDefaults(&cfg.Logging)
	applyCredentialsDefaults(&cfg.Credentials)
	applyDatabaseDefaults(&cfg.Database)
	applyPlatformDefaults(&cfg.Shopee, "https://partner.shopeemobile.com", "")
	applyPlatformDefaults(&cfg.Lazada, "https://api.lazada.co.id/rest", "https://auth.lazada.com/rest")
	applyPlatformDefaults(&cfg.TikTok, "https://open-api.tiktokglobalshop.com", "https://auth.tiktok-shops.com")
	applySinkDefaults(&cfg.Sink)
	applyFetchDefaults(&cfg.Fetch)
	applyScheduleDefaults(&cfg.Schedule)
	applyAPILogDefaults(&cfg.APILog)
	if cfg.Export.Dir == "" {
		cfg.Export.Dir = "exports"
	}
	if cfg.Notify.Timeout == 0 {
		cfg.Notify.Timeout = 10 * time.Second
	}
}

func applyServerDefaults(s *ServerConfig) {
	if s.Host == "" {
		s.Host = "0.0.0.0"
	}
	if s.Port == 0 {
		s.Port = 8080
	}
	if s.ReadTimeout == 0 {
		s.ReadTimeout = 30 * time.Second
	}
	// On-demand syncs respond only after the sink write.
	if s.WriteTimeout == 0 {
		s.WriteTimeout = 10 * time.Minute
	}
}

func applyLoggingDefaults(l *LoggingConfig) {
	if l.Level == "" {
		l.Level = "info"
	}
	if l.Format == "" {
		l.Format = "text"
	}
}

func applyCredentialsDefaults(c *CredentialsConfig) {
	if c.Backend == "" {
		c.Backend = BackendFile
	}
	if c.Dir == "" {
		c.Dir = "config"
	}
}

func applyDatabaseDefaults(d *DatabaseConfig) {
	if d.Port == 0 {
		d.Port = 5432
	}
	if d.SSLMode == "" {
		d.SSLMode = "disable"
	}
}

func applyPlatformDefaults(p *PlatformConfig, baseURL, authURL string) {
	if p.BaseURL == "" {
		p.BaseURL = baseURL
	}
	if p.AuthURL == "" {
		p.AuthURL = authURL
	}
	if p.RequestTimeout == 0 {
		p.RequestTimeout = 30 * time.Second
	}
}

func applySinkDefaults(s *SinkConfig) {
	if s.BaseDelay == 0 {
		s.BaseDelay = 1500 * time.Millisecond
	}
	if s.MaxDelay == 0 {
		s.MaxDelay = 60 * time.Second
	}
	if s.MaxAttempts == 0 {
		s.MaxAttempts = 5
	}
	if s.RotateAfter == 0 {
		s.RotateAfter = 2
	}
	if s.QuotaIndicators == nil {
		s.QuotaIndicators = []string{"quota", "exceeded", "rate limit"}
	}
	if s.ChunkRows == 0 {
		s.ChunkRows = 1000
	}
}

func applyFetchDefaults(f *FetchConfig) {
	if f.MaxWindowDays == 0 {
		f.MaxWindowDays = 15
	}
	if f.PageSize == 0 {
		f.PageSize = 100
	}
	if f.MinPageDelay == 0 {
		f.MinPageDelay = 500 * time.Millisecond
	}
	if f.PageRetries == 0 {
		f.PageRetries = 3
	}
	if f.Timezone == "" {
		f.Timezone = "UTC"
	}
}

func applyScheduleDefaults(s *ScheduleConfig) {
	if s.TokenCheckInterval == 0 {
		s.TokenCheckInterval = time.Hour
	}
	if s.OrderStatus == "" {
		s.OrderStatus = "COMPLETED"
	}
	if s.OrderDays == 0 {
		s.OrderDays = 1
	}
	if s.LockTTL == 0 {
		s.LockTTL = 30 * time.Minute
	}
}

func applyAPILogDefaults(a *APILogConfig) {
	if a.Dir == "" {
		a.Dir = "api_logs"
	}
	if a.Buffer == 0 {
		a.Buffer = 256
	}
}

var (
	validLevels  = []string{"debug", "info", "warn", "warning", "error"}
	validFormats = []string{"text", "json"}
)

func validate(cfg *Config) error {
	var errs []error

	if !slices.Contains(validLevels, strings.ToLower(cfg.Logging.Level)) {
		errs = append(errs, fmt.Errorf("logging.level must be one of: debug, info, warn, error (got %q)", cfg.Logging.Level))
	}
	if !slices.Contains(validFormats, strings.ToLower(cfg.Logging.Format)) {
		errs = append(errs, fmt.Errorf("logging.format must be one of: text, json (got %q)", cfg.Logging.Format))
	}

	switch cfg.Credentials.Backend {
	case BackendFile:
	case BackendPostgres:
		if cfg.Database.Host == "" {
			errs = append(errs, fmt.Errorf("database.host is required when credentials.backend is postgres"))
		}
		if cfg.Database.Name == "" {
			errs = append(errs, fmt.Errorf("database.name is required when credentials.backend is postgres"))
		}
		if cfg.Database.User == "" {
			errs = append(errs, fmt.Errorf("database.user is required when credentials.backend is postgres"))
		}
	default:
		errs = append(errs, fmt.Errorf(
			"credentials.backend must be one of: file, postgres (got %q)", cfg.Credentials.Backend,
		))
	}

	enabled := cfg.EnabledPlatforms()
	if len(enabled) == 0 {
		errs = append(errs, fmt.Errorf("at least one of shopee, lazada, tiktok must be enabled"))
	}
	for _, p := range enabled {
		if err := credential.ValidateIdentity(p, cfg.Platform(p).Identity); err != nil {
			errs = append(errs, fmt.Errorf("%s: %w", p, err))
		}
	}

	if cfg.Sink.Configured() {
		if cfg.Sink.SpreadsheetID == "" {
			errs = append(errs, fmt.Errorf("sink.spreadsheet_id is required when sink credential files are set"))
		}
		if len(cfg.Sink.CredentialFiles) == 0 {
			errs = append(errs, fmt.Errorf("sink.credential_files requires at least one file"))
		}
	}
	if cfg.Sink.MaxDelay < cfg.Sink.BaseDelay {
		errs = append(errs, fmt.Errorf("sink.max_delay must not be less than sink.base_delay"))
	}

	if u := cfg.Notify.DiscordWebhookURL; u != "" && !strings.HasPrefix(u, "https://") && !strings.HasPrefix(u, "http://") {
		errs = append(errs, fmt.Errorf("notify.discord_webhook_url must be an http(s) URL"))
	}

	if cfg.Fetch.MaxWindowDays < 1 || cfg.Fetch.MaxWindowDays > 15 {
		errs = append(errs, fmt.Errorf("fetch.max_window_days must be between 1 and 15 (got %d)", cfg.Fetch.MaxWindowDays))
	}
	if cfg.Fetch.PageSize < 1 || cfg.Fetch.PageSize > 100 {
		errs = append(errs, fmt.Errorf("fetch.page_size must be between 1 and 100 (got %d)", cfg.Fetch.PageSize))
	}
	if cfg.Fetch.PageRetries < 0 {
		errs = append(errs, fmt.Errorf("fetch.page_retries must not be negative (got %d)", cfg.Fetch.PageRetries))
	}
	if _, err := cfg.Fetch.Location(); err != nil {
		errs = append(errs, fmt.Errorf("fetch.timezone: %w", err))
	}

	if cfg.Schedule.OrderDays < 1 || cfg.Schedule.OrderDays > 15 {
		errs = append(errs, fmt.Errorf("schedule.order_days must be between 1 and 15 (got %d)", cfg.Schedule.OrderDays))
	}

	return errors.Join(errs...)
}
