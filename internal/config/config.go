// File: internal/config/config.go
package config

import (
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/spf13/viper"
)

// Interface defines the contract for accessing application configuration.
// This allows for dependency injection and mocking in tests.
type Interface interface {
	Logger() LoggerConfig
	Browser() BrowserConfig
	Network() NetworkConfig
	Site() SiteConfig
	Paths() PathsConfig
	Extraction() ExtractionConfig
	Analysis() AnalysisConfig
	Database() DatabaseConfig

	// Setters for values that CLI flags override after loading.
	SetBrowserHeadless(bool)
	SetLoggerLevel(string)
}

// Config holds the application settings. These are the tool's own knobs; the
// credentials and default form values live in the run configuration (see runconfig.go).
type Config struct {
	LoggerCfg     LoggerConfig     `mapstructure:"logger" yaml:"logger"`
	BrowserCfg    BrowserConfig    `mapstructure:"browser" yaml:"browser"`
	NetworkCfg    NetworkConfig    `mapstructure:"network" yaml:"network"`
	SiteCfg       SiteConfig       `mapstructure:"site" yaml:"site"`
	PathsCfg      PathsConfig      `mapstructure:"paths" yaml:"paths"`
	ExtractionCfg ExtractionConfig `mapstructure:"extraction" yaml:"extraction"`
	AnalysisCfg   AnalysisConfig   `mapstructure:"analysis" yaml:"analysis"`
	DatabaseCfg   DatabaseConfig   `mapstructure:"database" yaml:"database"`
}

var _ Interface = (*Config)(nil)

func (c *Config) Logger() LoggerConfig         { return c.LoggerCfg }
func (c *Config) Browser() BrowserConfig       { return c.BrowserCfg }
func (c *Config) Network() NetworkConfig       { return c.NetworkCfg }
func (c *Config) Site() SiteConfig             { return c.SiteCfg }
func (c *Config) Paths() PathsConfig           { return c.PathsCfg }
func (c *Config) Extraction() ExtractionConfig { return c.ExtractionCfg }
func (c *Config) Analysis() AnalysisConfig     { return c.AnalysisCfg }
func (c *Config) Database() DatabaseConfig     { return c.DatabaseCfg }

func (c *Config) SetBrowserHeadless(b bool)  { c.BrowserCfg.Headless = b }
func (c *Config) SetLoggerLevel(lvl string) { c.LoggerCfg.Level = lvl }

// LoggerConfig holds all the configuration for the logger.
type LoggerConfig struct {
	Level       string      `mapstructure:"level" yaml:"level" validate:"oneof=debug info warn error dpanic panic fatal"`
	Format      string      `mapstructure:"format" yaml:"format" validate:"oneof=console json"`
	AddSource   bool        `mapstructure:"add_source" yaml:"add_source"`
	ServiceName string      `mapstructure:"service_name" yaml:"service_name"`
	LogFile     string      `mapstructure:"log_file" yaml:"log_file"`
	MaxSize     int         `mapstructure:"max_size" yaml:"max_size" validate:"gte=0"`
	MaxBackups  int         `mapstructure:"max_backups" yaml:"max_backups" validate:"gte=0"`
	MaxAge      int         `mapstructure:"max_age" yaml:"max_age" validate:"gte=0"`
	Compress    bool        `mapstructure:"compress" yaml:"compress"`
	Colors      ColorConfig `mapstructure:"colors" yaml:"colors"`
}

// ColorConfig defines the color codes for different log levels.
type ColorConfig struct {
	Debug  string `mapstructure:"debug" yaml:"debug"`
	Info   string `mapstructure:"info" yaml:"info"`
	Warn   string `mapstructure:"warn" yaml:"warn"`
	Error  string `mapstructure:"error" yaml:"error"`
	DPanic string `mapstructure:"dpanic" yaml:"dpanic"`
	Panic  string `mapstructure:"panic" yaml:"panic"`
	Fatal  string `mapstructure:"fatal" yaml:"fatal"`
}

// BrowserConfig holds settings for the rendering browser.
type BrowserConfig struct {
	Headless        bool           `mapstructure:"headless" yaml:"headless"`
	DisableCache    bool           `mapstructure:"disable_cache" yaml:"disable_cache"`
	IgnoreTLSErrors bool           `mapstructure:"ignore_tls_errors" yaml:"ignore_tls_errors"`
	Args            []string       `mapstructure:"args" yaml:"args"`
	Viewport        map[string]int `mapstructure:"viewport" yaml:"viewport"`
	UserAgent       string         `mapstructure:"user_agent" yaml:"user_agent"`
	// NavigationTimeout bounds a single page load including the settle wait.
	NavigationTimeout time.Duration `mapstructure:"navigation_timeout" yaml:"navigation_timeout" validate:"gt=0"`
	// ActionTimeout bounds single DOM interactions (fill, click, query).
	ActionTimeout time.Duration `mapstructure:"action_timeout" yaml:"action_timeout" validate:"gt=0"`
	// SettleWait is the quiet period after DOM ready before the page is inspected.
	SettleWait time.Duration `mapstructure:"settle_wait" yaml:"settle_wait" validate:"gte=0"`
}

// NetworkConfig tunes the static-fetch HTTP client.
type NetworkConfig struct {
	Timeout         time.Duration     `mapstructure:"timeout" yaml:"timeout" validate:"gt=0"`
	UserAgent       string            `mapstructure:"user_agent" yaml:"user_agent" validate:"required"`
	Headers         map[string]string `mapstructure:"headers" yaml:"headers"`
	IgnoreTLSErrors bool              `mapstructure:"ignore_tls_errors" yaml:"ignore_tls_errors"`
	// RateLimit is requests per second across the static client; 0 disables limiting.
	RateLimit float64 `mapstructure:"rate_limit" yaml:"rate_limit" validate:"gte=0"`
	RateBurst int     `mapstructure:"rate_burst" yaml:"rate_burst" validate:"gte=1"`
}

// SiteConfig describes the destination site.
type SiteConfig struct {
	LoginURL  string `mapstructure:"login_url" yaml:"login_url" validate:"required,url"`
	FormURL   string `mapstructure:"form_url" yaml:"form_url" validate:"required,url"`
	APIPrefix string `mapstructure:"api_prefix" yaml:"api_prefix" validate:"required,url"`
	// LoginMarker is the path fragment that identifies the login surface.
	LoginMarker string `mapstructure:"login_marker" yaml:"login_marker" validate:"required"`
	// StorageTokenKey is the localStorage key the site reads its access token from.
	StorageTokenKey string `mapstructure:"storage_token_key" yaml:"storage_token_key" validate:"required"`
	// LoginWait bounds the wait for leaving the login surface after a submit.
	LoginWait time.Duration `mapstructure:"login_wait" yaml:"login_wait" validate:"gt=0"`
	// SubmitWait bounds the post-submit success race.
	SubmitWait time.Duration `mapstructure:"submit_wait" yaml:"submit_wait" validate:"gt=0"`
}

// PathsConfig holds the conventional locations of persisted state.
type PathsConfig struct {
	TokenCache       string `mapstructure:"token_cache" yaml:"token_cache" validate:"required"`
	AnalysisSnapshot string `mapstructure:"analysis_snapshot" yaml:"analysis_snapshot" validate:"required"`
	RunConfig        string `mapstructure:"run_config" yaml:"run_config" validate:"required"`
	DotEnv           string `mapstructure:"dotenv" yaml:"dotenv"`
}

// ExtractionConfig holds the extraction profile limits and site classification.
type ExtractionConfig struct {
	DocumentHosts         []string `mapstructure:"document_hosts" yaml:"document_hosts" validate:"min=1,dive,required"`
	IdentityProviderHosts []string `mapstructure:"identity_provider_hosts" yaml:"identity_provider_hosts" validate:"min=1,dive,required"`
	DescriptionMaxLength  int      `mapstructure:"description_max_length" yaml:"description_max_length" validate:"gt=0"`
	MaxImages             int      `mapstructure:"max_images" yaml:"max_images" validate:"gt=0"`
	MinImageDimension     int      `mapstructure:"min_image_dimension" yaml:"min_image_dimension" validate:"gte=0"`
	MaxTags               int      `mapstructure:"max_tags" yaml:"max_tags" validate:"gt=0"`
	TagProbeThreshold     int      `mapstructure:"tag_probe_threshold" yaml:"tag_probe_threshold" validate:"gte=0"`
	MaxTagLength          int      `mapstructure:"max_tag_length" yaml:"max_tag_length" validate:"gt=0"`
	// ArticleMetadata enables byline/site name/excerpt harvesting on generic pages.
	ArticleMetadata bool `mapstructure:"article_metadata" yaml:"article_metadata"`
}

// AnalysisConfig tunes the site-structure analyzer.
type AnalysisConfig struct {
	// ProbeClicks clicks every input/button on the form page to surface API calls.
	ProbeClicks bool          `mapstructure:"probe_clicks" yaml:"probe_clicks"`
	CaptureWait time.Duration `mapstructure:"capture_wait" yaml:"capture_wait" validate:"gte=0"`
}

// DatabaseConfig holds the optional batch-history database connection.
type DatabaseConfig struct {
	URL string `mapstructure:"url" yaml:"url" validate:"omitempty,url"`
}

// NewDefaultConfig creates a configuration populated only with the defaults.
func NewDefaultConfig() *Config {
	v := viper.New()
	SetDefaults(v)
	var cfg Config
	// Defaults are static and always decode.
	_ = v.Unmarshal(&cfg)
	return &cfg
}

// SetDefaults registers every default with the provided viper instance.
func SetDefaults(v *viper.Viper) {
	// -- Logger --
	v.SetDefault("logger.level", "info")
	v.SetDefault("logger.format", "console")
	v.SetDefault("logger.add_source", false)
	v.SetDefault("logger.service_name", "pathfinder")
	v.SetDefault("logger.log_file", "pathfinder.log")
	v.SetDefault("logger.max_size", 20)
	v.SetDefault("logger.max_backups", 3)
	v.SetDefault("logger.max_age", 14)
	v.SetDefault("logger.compress", true)
	v.SetDefault("logger.colors.debug", "cyan")
	v.SetDefault("logger.colors.info", "green")
	v.SetDefault("logger.colors.warn", "yellow")
	v.SetDefault("logger.colors.error", "red")
	v.SetDefault("logger.colors.fatal", "magenta")

	// -- Browser --
	v.SetDefault("browser.headless", false)
	v.SetDefault("browser.disable_cache", false)
	v.SetDefault("browser.ignore_tls_errors", false)
	v.SetDefault("browser.user_agent", DefaultUserAgent)
	v.SetDefault("browser.navigation_timeout", "60s")
	v.SetDefault("browser.action_timeout", "10s")
	v.SetDefault("browser.settle_wait", "500ms")

	// -- Network --
	v.SetDefault("network.timeout", "30s")
	v.SetDefault("network.user_agent", DefaultUserAgent)
	v.SetDefault("network.rate_limit", 2.0)
	v.SetDefault("network.rate_burst", 1)

	// -- Site --
	v.SetDefault("site.login_url", "https://pathfinder.xtech-sg.net/login")
	v.SetDefault("site.form_url", "https://pathfinder.xtech-sg.net/add")
	v.SetDefault("site.api_prefix", "https://pathfinder.xtech-sg.net/api/")
	v.SetDefault("site.login_marker", "/login")
	v.SetDefault("site.storage_token_key", "accessToken")
	v.SetDefault("site.login_wait", "10s")
	v.SetDefault("site.submit_wait", "5s")

	// -- Paths --
	v.SetDefault("paths.token_cache", ".auth_cache.json")
	v.SetDefault("paths.analysis_snapshot", ".pathfinder_analysis.json")
	v.SetDefault("paths.run_config", "config.json")
	v.SetDefault("paths.dotenv", ".env")

	// -- Extraction --
	v.SetDefault("extraction.document_hosts", []string{"sharepoint.com"})
	v.SetDefault("extraction.identity_provider_hosts", []string{"login.microsoftonline.com"})
	v.SetDefault("extraction.description_max_length", 500)
	v.SetDefault("extraction.max_images", 5)
	v.SetDefault("extraction.min_image_dimension", 100)
	v.SetDefault("extraction.max_tags", 10)
	v.SetDefault("extraction.tag_probe_threshold", 5)
	v.SetDefault("extraction.max_tag_length", 20)
	v.SetDefault("extraction.article_metadata", true)

	// -- Analysis --
	v.SetDefault("analysis.probe_clicks", false)
	v.SetDefault("analysis.capture_wait", "2s")
}

// DefaultUserAgent is the desktop Chrome string presented by both backends.
const DefaultUserAgent = "Mozilla/5.0 (Windows NT 10.0; Win64; x64) AppleWebKit/537.36 (KHTML, like Gecko) Chrome/96.0.4664.110 Safari/537.36"

// NewConfigFromViper creates and validates a Config from a populated viper instance.
func NewConfigFromViper(v *viper.Viper) (*Config, error) {
	var cfg Config

	// The database URL is a secret; allow the conventional variable name.
	_ = v.BindEnv("database.url", "PATHFINDER_DATABASE_URL")

	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("error unmarshaling config: %w", err)
	}

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid configuration: %w", err)
	}
	return &cfg, nil
}

// Validate checks the configuration for required fields and sane values.
func (c *Config) Validate() error {
	validate := validator.New()
	if err := validate.Struct(c); err != nil {
		var verrs validator.ValidationErrors
		if errors.As(err, &verrs) {
			msgs := make([]string, 0, len(verrs))
			for _, fe := range verrs {
				msgs = append(msgs, fmt.Sprintf("%s failed '%s' (value: %v)", fieldPath(fe.Namespace()), fe.Tag(), fe.Value()))
			}
			return errors.New(strings.Join(msgs, "; "))
		}
		return err
	}
	return nil
}

// fieldPath turns "Config.SiteCfg.LoginURL" into "site.LoginURL" so errors read like config keys.
func fieldPath(ns string) string {
	parts := strings.Split(ns, ".")
	if len(parts) > 1 {
		parts = parts[1:]
	}
	if len(parts) > 0 {
		parts[0] = strings.ToLower(strings.TrimSuffix(parts[0], "Cfg"))
	}
	return strings.Join(parts, ".")
}
