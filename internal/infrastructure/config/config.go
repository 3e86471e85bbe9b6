package config

import (
	"fmt"
	"net/url"
	"strings"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/spf13/viper"
)

// Environment names after normalization
const (
	EnvDevelopment = "development"
	EnvStaging     = "staging"
	EnvProduction  = "production"
)

// Config holds all application configuration
type Config struct {
	App       AppConfig
	Database  DatabaseConfig
	Redis     RedisConfig
	Storage   StorageConfig
	Queue     QueueConfig
	Engine    EngineConfig
	Auth      AuthConfig
	Session   SessionConfig
	Upload    UploadConfig
	Log       LogConfig
	HTTP      HTTPConfig
	Swagger   SwaggerConfig
	Telemetry TelemetryConfig
}

// LogConfig holds logging configuration
type LogConfig struct {
	Level  string `validate:"oneof=debug info warn error"`
	Format string `validate:"oneof=json console"`
	Output string // stdout, stderr, or file path
	Folder string // when set, Output "file" writes to <Folder>/bff.log
}

// AppConfig holds application-specific settings
type AppConfig struct {
	Name         string
	Env          string `validate:"oneof=development staging production"`
	Port         string
	PublicURL    string `validate:"required,url"`
	Version      string
	ContactEmail string
	AdminEmail   string
}

// IsDevelopment reports whether the service runs in the development environment
func (a AppConfig) IsDevelopment() bool {
	return a.Env == EnvDevelopment
}

// IsProduction reports whether the service runs in the production environment
func (a AppConfig) IsProduction() bool {
	return a.Env == EnvProduction
}

// LoginURL is where unauthenticated users are sent
func (a AppConfig) LoginURL() string {
	return strings.TrimRight(a.PublicURL, "/") + "/login"
}

// LogoutURL is the local logout route
func (a AppConfig) LogoutURL() string {
	return strings.TrimRight(a.PublicURL, "/") + "/logout"
}

// CallbackURL is the OAuth redirect URI registered with the identity provider
func (a AppConfig) CallbackURL() string {
	return strings.TrimRight(a.PublicURL, "/") + "/callback"
}

// PostLoginRedirectURL is where users land after a successful login
func (a AppConfig) PostLoginRedirectURL() string {
	return strings.TrimRight(a.PublicURL, "/") + "/dashboard"
}

// DatabaseConfig holds database connection settings
type DatabaseConfig struct {
	Driver          string `validate:"oneof=sqlite postgres"`
	Path            string // sqlite database file
	Host            string
	Port            int
	User            string
	Password        string
	DBName          string
	SSLMode         string
	MaxOpenConns    int
	MaxIdleConns    int
	ConnMaxLifetime int // in minutes
	ConnMaxIdleTime int // in minutes
}

// RedisConfig holds Redis connection settings shared by sessions and the task queue
type RedisConfig struct {
	URL      string // takes precedence over the discrete fields, e.g. redis://localhost:6379/0
	Host     string
	Port     int
	Password string
	DB       int
}

// Addr returns host:port
func (r RedisConfig) Addr() string {
	return fmt.Sprintf("%s:%d", r.Host, r.Port)
}

// StorageConfig selects where uploaded files are kept
type StorageConfig struct {
	Backend      string `validate:"oneof=filesystem s3"`
	MediaRoot    string
	Endpoint     string
	Region       string
	Bucket       string
	AccessKey    string
	SecretKey    string
	UseSSL       bool
	UsePathStyle bool
}

// QueueConfig holds validation task queue settings
type QueueConfig struct {
	Name          string
	Concurrency   int `validate:"gte=1"`
	SoftTimeLimit time.Duration
	HardTimeLimit time.Duration
	Retention     time.Duration
	MaxRetry      int `validate:"gte=0"`
}

// EngineConfig describes how the worker invokes the validation engine
type EngineConfig struct {
	Command string
	Args    []string
	WorkDir string
}

// AuthConfig holds the identity provider (Azure AD B2C) client settings
type AuthConfig struct {
	ClientID     string
	ClientSecret string
	Authority    string
	UserFlow     string
	Scopes       []string
	StateSecret  string
	StateTTL     time.Duration
	LogoutURL    string // identity provider end-session endpoint, optional
}

// Enabled reports whether SSO login is configured
func (a AuthConfig) Enabled() bool {
	return a.ClientID != "" && a.Authority != ""
}

// IssuerURL is the OIDC issuer base for the configured user flow
func (a AuthConfig) IssuerURL() string {
	return fmt.Sprintf("%s/%s/v2.0/", strings.TrimRight(a.Authority, "/"), a.UserFlow)
}

// MetadataURL is the OpenID discovery document of the user flow
func (a AuthConfig) MetadataURL() string {
	return a.IssuerURL() + ".well-known/openid-configuration"
}

// SessionConfig holds browser session settings
type SessionConfig struct {
	Store      string `validate:"oneof=redis memory"`
	CookieName string
	Domain     string
	Path       string
	TTL        time.Duration
	Secure     bool
	SameSite   string `validate:"oneof=strict lax none"`
	KeyPrefix  string
}

// UploadConfig limits multipart uploads
type UploadConfig struct {
	MaxFiles    int   `validate:"gte=1"`
	MaxFileSize int64 `validate:"gte=0"`
}

// HTTPConfig holds HTTP server configuration
type HTTPConfig struct {
	ReadTimeout      time.Duration
	WriteTimeout     time.Duration
	IdleTimeout      time.Duration
	MaxHeaderBytes   int
	MaxBodySize      int64
	AllowedHosts     []string
	CORSAllowOrigins []string
	CORSAllowMethods []string
	CORSAllowHeaders []string
	TrustedProxies   []string
	LoginRateLimit   int           // requests per window on /login and /callback, negative disables
	LoginRateWindow  time.Duration
}

// SwaggerConfig holds Swagger documentation endpoint configuration
type SwaggerConfig struct {
	Enabled     bool     // Whether to enable Swagger endpoint
	RequireAuth bool     // Require an authenticated session to access Swagger
	AllowedIPs  []string // IP whitelist (empty = allow all)
}

// TelemetryConfig holds OpenTelemetry configuration
type TelemetryConfig struct {
	Enabled           bool    // Whether to enable tracing
	CollectorEndpoint string  // OTEL Collector endpoint (e.g., "localhost:4317")
	SamplingRatio     float64 // Sampling ratio (0.0-1.0, 1.0 = 100%)
	ServiceName       string  // Service name for traces
	Insecure          bool    // Use insecure (non-TLS) connection (development only)
	MetricsEnabled    bool
	MetricsInterval   time.Duration
	LogsEnabled       bool
	// Database tracing options
	DBTraceEnabled    bool          // Enable database query tracing (otelgorm)
	DBLogFullSQL      bool          // Log full SQL statements (dev only)
	DBSlowQueryThresh time.Duration // Slow query threshold for warnings (default: 200ms)
}

// Load loads configuration from TOML file and environment variables
// Priority (highest to lowest):
// 1. Environment variables with IFC_ prefix (e.g., IFC_DATABASE_PASSWORD)
// 2. Deployment variables kept from the previous stack (ENV, POSTGRES_HOST, MEDIA_ROOT, ...)
// 3. config.toml
// 4. Built-in defaults
func Load() (*Config, error) {
	v := viper.New()

	v.SetConfigName("config")
	v.SetConfigType("toml")
	v.AddConfigPath(".")
	v.AddConfigPath("./config")
	v.AddConfigPath("/etc/ifc-bff")

	if err := v.ReadInConfig(); err != nil {
		if _, ok := err.(viper.ConfigFileNotFoundError); !ok {
			return nil, fmt.Errorf("error reading config file: %w", err)
		}
	}

	v.SetEnvPrefix("IFC")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	if err := bindLegacyEnv(v); err != nil {
		return nil, err
	}

	cfg := &Config{
		App: AppConfig{
			Name:         v.GetString("app.name"),
			Env:          v.GetString("app.env"),
			Port:         v.GetString("app.port"),
			PublicURL:    v.GetString("app.public_url"),
			Version:      v.GetString("app.version"),
			ContactEmail: v.GetString("app.contact_email"),
			AdminEmail:   v.GetString("app.admin_email"),
		},
		Database: DatabaseConfig{
			Driver:          v.GetString("database.driver"),
			Path:            v.GetString("database.path"),
			Host:            v.GetString("database.host"),
			Port:            v.GetInt("database.port"),
			User:            v.GetString("database.user"),
			Password:        v.GetString("database.password"),
			DBName:          v.GetString("database.dbname"),
			SSLMode:         v.GetString("database.sslmode"),
			MaxOpenConns:    v.GetInt("database.max_open_conns"),
			MaxIdleConns:    v.GetInt("database.max_idle_conns"),
			ConnMaxLifetime: v.GetInt("database.conn_max_lifetime"),
			ConnMaxIdleTime: v.GetInt("database.conn_max_idle_time"),
		},
		Redis: RedisConfig{
			URL:      v.GetString("redis.url"),
			Host:     v.GetString("redis.host"),
			Port:     v.GetInt("redis.port"),
			Password: v.GetString("redis.password"),
			DB:       v.GetInt("redis.db"),
		},
		Storage: StorageConfig{
			Backend:      v.GetString("storage.backend"),
			MediaRoot:    v.GetString("storage.media_root"),
			Endpoint:     v.GetString("storage.endpoint"),
			Region:       v.GetString("storage.region"),
			Bucket:       v.GetString("storage.bucket"),
			AccessKey:    v.GetString("storage.access_key"),
			SecretKey:    v.GetString("storage.secret_key"),
			UseSSL:       v.GetBool("storage.use_ssl"),
			UsePathStyle: v.GetBool("storage.use_path_style"),
		},
		Queue: QueueConfig{
			Name:          v.GetString("queue.name"),
			Concurrency:   v.GetInt("queue.concurrency"),
			SoftTimeLimit: v.GetDuration("queue.soft_time_limit"),
			HardTimeLimit: v.GetDuration("queue.hard_time_limit"),
			Retention:     v.GetDuration("queue.retention"),
			MaxRetry:      v.GetInt("queue.max_retry"),
		},
		Engine: EngineConfig{
			Command: v.GetString("engine.command"),
			Args:    v.GetStringSlice("engine.args"),
			WorkDir: v.GetString("engine.work_dir"),
		},
		Auth: AuthConfig{
			ClientID:     v.GetString("auth.client_id"),
			ClientSecret: v.GetString("auth.client_secret"),
			Authority:    v.GetString("auth.authority"),
			UserFlow:     v.GetString("auth.user_flow"),
			Scopes:       v.GetStringSlice("auth.scopes"),
			StateSecret:  v.GetString("auth.state_secret"),
			StateTTL:     v.GetDuration("auth.state_ttl"),
			LogoutURL:    v.GetString("auth.logout_url"),
		},
		Session: SessionConfig{
			Store:      v.GetString("session.store"),
			CookieName: v.GetString("session.cookie_name"),
			Domain:     v.GetString("session.domain"),
			Path:       v.GetString("session.path"),
			TTL:        v.GetDuration("session.ttl"),
			Secure:     v.GetBool("session.secure"),
			SameSite:   v.GetString("session.same_site"),
			KeyPrefix:  v.GetString("session.key_prefix"),
		},
		Upload: UploadConfig{
			MaxFiles:    v.GetInt("upload.max_files"),
			MaxFileSize: v.GetInt64("upload.max_file_size"),
		},
		Log: LogConfig{
			Level:  v.GetString("log.level"),
			Format: v.GetString("log.format"),
			Output: v.GetString("log.output"),
			Folder: v.GetString("log.folder"),
		},
		HTTP: HTTPConfig{
			ReadTimeout:      v.GetDuration("http.read_timeout"),
			WriteTimeout:     v.GetDuration("http.write_timeout"),
			IdleTimeout:      v.GetDuration("http.idle_timeout"),
			MaxHeaderBytes:   v.GetInt("http.max_header_bytes"),
			MaxBodySize:      v.GetInt64("http.max_body_size"),
			AllowedHosts:     splitList(v.GetStringSlice("http.allowed_hosts")),
			CORSAllowOrigins: splitList(v.GetStringSlice("http.cors_allow_origins")),
			CORSAllowMethods: v.GetStringSlice("http.cors_allow_methods"),
			CORSAllowHeaders: v.GetStringSlice("http.cors_allow_headers"),
			TrustedProxies:   v.GetStringSlice("http.trusted_proxies"),
			LoginRateLimit:   v.GetInt("http.login_rate_limit"),
			LoginRateWindow:  v.GetDuration("http.login_rate_window"),
		},
		Swagger: SwaggerConfig{
			Enabled:     v.GetBool("swagger.enabled"),
			RequireAuth: v.GetBool("swagger.require_auth"),
			AllowedIPs:  v.GetStringSlice("swagger.allowed_ips"),
		},
		Telemetry: TelemetryConfig{
			Enabled:           v.GetBool("telemetry.enabled"),
			CollectorEndpoint: v.GetString("telemetry.collector_endpoint"),
			SamplingRatio:     v.GetFloat64("telemetry.sampling_ratio"),
			ServiceName:       v.GetString("telemetry.service_name"),
			Insecure:          v.GetBool("telemetry.insecure"),
			MetricsEnabled:    v.GetBool("telemetry.metrics_enabled"),
			MetricsInterval:   v.GetDuration("telemetry.metrics_interval"),
			LogsEnabled:       v.GetBool("telemetry.logs_enabled"),
			DBTraceEnabled:    v.GetBool("telemetry.db_trace_enabled"),
			DBLogFullSQL:      v.GetBool("telemetry.db_log_full_sql"),
			DBSlowQueryThresh: v.GetDuration("telemetry.db_slow_query_threshold"),
		},
	}

	cfg.App.Env = NormalizeEnv(cfg.App.Env)
	applyDefaults(cfg)

	if err := cfg.validate(); err != nil {
		return nil, err
	}

	return cfg, nil
}

// bindLegacyEnv maps the variable names existing deployments already set.
// The IFC_ prefixed name always wins because it is listed first.
func bindLegacyEnv(v *viper.Viper) error {
	bindings := map[string][]string{
		"app.env":            {"IFC_APP_ENV", "ENV"},
		"app.public_url":     {"IFC_APP_PUBLIC_URL", "PUBLIC_URL"},
		"app.version":        {"IFC_APP_VERSION", "VERSION"},
		"app.contact_email":  {"IFC_APP_CONTACT_EMAIL", "CONTACT_EMAIL"},
		"app.admin_email":    {"IFC_APP_ADMIN_EMAIL", "ADMIN_EMAIL"},
		"database.driver":    {"IFC_DATABASE_DRIVER", "DJANGO_DB"},
		"database.host":      {"IFC_DATABASE_HOST", "POSTGRES_HOST"},
		"database.port":      {"IFC_DATABASE_PORT", "POSTGRES_PORT"},
		"database.user":      {"IFC_DATABASE_USER", "POSTGRES_USER"},
		"database.password":  {"IFC_DATABASE_PASSWORD", "POSTGRES_PASSWORD"},
		"database.dbname":    {"IFC_DATABASE_DBNAME", "POSTGRES_NAME"},
		"redis.url":          {"IFC_REDIS_URL", "CELERY_BROKER_URL"},
		"storage.media_root": {"IFC_STORAGE_MEDIA_ROOT", "MEDIA_ROOT"},
		"auth.client_id":     {"IFC_AUTH_CLIENT_ID", "B2C_CLIENT_ID"},
		"auth.client_secret": {"IFC_AUTH_CLIENT_SECRET", "B2C_CLIENT_SECRET"},
		"auth.authority":     {"IFC_AUTH_AUTHORITY", "B2C_AUTHORITY"},
		"auth.user_flow":     {"IFC_AUTH_USER_FLOW", "B2C_USER_FLOW"},
		"log.level":          {"IFC_LOG_LEVEL", "DJANGO_LOG_LEVEL"},
		"log.folder":         {"IFC_LOG_FOLDER", "DJANGO_LOG_FOLDER"},
		"http.allowed_hosts": {"IFC_HTTP_ALLOWED_HOSTS", "DJANGO_ALLOWED_HOSTS"},

		"http.cors_allow_origins": {"IFC_HTTP_CORS_ALLOW_ORIGINS", "DJANGO_TRUSTED_ORIGINS"},
	}
	for key, envs := range bindings {
		args := append([]string{key}, envs...)
		if err := v.BindEnv(args...); err != nil {
			return fmt.Errorf("bind env for %s: %w", key, err)
		}
	}
	return nil
}

// NormalizeEnv maps the accepted environment aliases onto development,
// staging or production. An unset environment is production. Unknown values
// are returned lower-cased so that validation rejects them.
func NormalizeEnv(env string) string {
	switch strings.ToUpper(strings.TrimSpace(env)) {
	case "DEV", "DEVELOP", "DEVELOPMENT":
		return EnvDevelopment
	case "STAGE", "STAGING", "QA":
		return EnvStaging
	case "", "PROD", "PRODUCTION", "PRD":
		return EnvProduction
	default:
		return strings.ToLower(env)
	}
}

// DefaultAllowedHosts are always accepted in the Host header, in addition to
// http.allowed_hosts
var DefaultAllowedHosts = []string{"127.0.0.1", "0.0.0.0", "localhost", "backend"}

// mergeHosts returns defaults followed by the configured hosts, without duplicates
func mergeHosts(defaults, configured []string) []string {
	out := make([]string, 0, len(defaults)+len(configured))
	seen := make(map[string]struct{}, cap(out))
	for _, host := range append(append([]string(nil), defaults...), configured...) {
		if _, ok := seen[host]; ok {
			continue
		}
		seen[host] = struct{}{}
		out = append(out, host)
	}
	return out
}

// splitList accepts both TOML arrays and space separated env values
func splitList(in []string) []string {
	var out []string
	for _, item := range in {
		for _, part := range strings.FieldsFunc(item, func(r rune) bool { return r == ' ' || r == ',' }) {
			if part != "" {
				out = append(out, part)
			}
		}
	}
	return out
}

// applyDefaults sets default values for any empty config fields
func applyDefaults(cfg *Config) {
	if cfg.App.Name == "" {
		cfg.App.Name = "ifc-validation-bff"
	}
	if cfg.App.Port == "" {
		cfg.App.Port = "8000"
	}
	if cfg.App.PublicURL == "" {
		cfg.App.PublicURL = "http://localhost:3000"
	}
	if cfg.App.Version == "" {
		cfg.App.Version = "dev"
	}
	cfg.Database.Driver = strings.ToLower(cfg.Database.Driver)
	switch cfg.Database.Driver {
	case "", "sqlite", "sqlite3":
		cfg.Database.Driver = "sqlite"
	case "postgresql", "postgres":
		cfg.Database.Driver = "postgres"
	}
	if cfg.Database.Path == "" {
		cfg.Database.Path = "db.sqlite3"
	}
	if cfg.Database.Host == "" {
		cfg.Database.Host = "localhost"
	}
	if cfg.Database.Port == 0 {
		cfg.Database.Port = 5432
	}
	if cfg.Database.User == "" {
		cfg.Database.User = "postgres"
	}
	if cfg.Database.DBName == "" {
		cfg.Database.DBName = "postgres"
	}
	if cfg.Database.SSLMode == "" {
		cfg.Database.SSLMode = "disable"
	}
	if cfg.Database.MaxOpenConns == 0 {
		cfg.Database.MaxOpenConns = 25
	}
	if cfg.Database.MaxIdleConns == 0 {
		cfg.Database.MaxIdleConns = 5
	}
	if cfg.Database.ConnMaxLifetime == 0 {
		cfg.Database.ConnMaxLifetime = 60
	}
	if cfg.Database.ConnMaxIdleTime == 0 {
		cfg.Database.ConnMaxIdleTime = 30
	}
	if cfg.Redis.Host == "" {
		cfg.Redis.Host = "localhost"
	}
	if cfg.Redis.Port == 0 {
		cfg.Redis.Port = 6379
	}
	if cfg.Storage.Backend == "" {
		cfg.Storage.Backend = "filesystem"
	}
	if cfg.Storage.MediaRoot == "" {
		cfg.Storage.MediaRoot = "/files_storage"
	}
	if cfg.Queue.Name == "" {
		cfg.Queue.Name = "default"
	}
	if cfg.Queue.Concurrency == 0 {
		cfg.Queue.Concurrency = 4
	}
	if cfg.Queue.SoftTimeLimit == 0 {
		cfg.Queue.SoftTimeLimit = 25 * time.Minute
	}
	if cfg.Queue.HardTimeLimit == 0 {
		cfg.Queue.HardTimeLimit = 30 * time.Minute
	}
	if cfg.Queue.Retention == 0 {
		cfg.Queue.Retention = 90 * 24 * time.Hour
	}
	if cfg.Engine.Command == "" {
		cfg.Engine.Command = "ifc-validate"
	}
	if len(cfg.Auth.Scopes) == 0 {
		cfg.Auth.Scopes = []string{"openid", "profile", "email"}
	}
	if cfg.Auth.StateTTL == 0 {
		cfg.Auth.StateTTL = 10 * time.Minute
	}
	if cfg.Session.Store == "" {
		cfg.Session.Store = "redis"
	}
	if cfg.Session.CookieName == "" {
		cfg.Session.CookieName = "sessionid"
	}
	if cfg.Session.Path == "" {
		cfg.Session.Path = "/"
	}
	if cfg.Session.TTL == 0 {
		cfg.Session.TTL = 14 * 24 * time.Hour
	}
	if cfg.Session.SameSite == "" {
		cfg.Session.SameSite = "lax"
	}
	if cfg.Session.KeyPrefix == "" {
		cfg.Session.KeyPrefix = "session:"
	}
	if cfg.Upload.MaxFiles == 0 {
		cfg.Upload.MaxFiles = 100
	}
	if cfg.Log.Level == "" {
		cfg.Log.Level = "info"
	}
	cfg.Log.Level = strings.ToLower(cfg.Log.Level)
	if cfg.Log.Format == "" {
		cfg.Log.Format = "console"
	}
	if cfg.Log.Output == "" {
		cfg.Log.Output = "stdout"
	}
	if cfg.HTTP.ReadTimeout == 0 {
		cfg.HTTP.ReadTimeout = 60 * time.Second
	}
	if cfg.HTTP.WriteTimeout == 0 {
		cfg.HTTP.WriteTimeout = 60 * time.Second
	}
	if cfg.HTTP.IdleTimeout == 0 {
		cfg.HTTP.IdleTimeout = 120 * time.Second
	}
	if cfg.HTTP.MaxHeaderBytes == 0 {
		cfg.HTTP.MaxHeaderBytes = 1 << 20 // 1MB
	}
	if cfg.HTTP.MaxBodySize == 0 {
		cfg.HTTP.MaxBodySize = 512 << 20 // 512MB, IFC files are large
	}
	if cfg.HTTP.LoginRateLimit == 0 {
		cfg.HTTP.LoginRateLimit = 20
	}
	if cfg.HTTP.LoginRateWindow == 0 {
		cfg.HTTP.LoginRateWindow = time.Minute
	}
	cfg.HTTP.AllowedHosts = mergeHosts(DefaultAllowedHosts, cfg.HTTP.AllowedHosts)
	if len(cfg.HTTP.CORSAllowMethods) == 0 {
		cfg.HTTP.CORSAllowMethods = []string{"DELETE", "GET", "OPTIONS", "PATCH", "POST", "PUT"}
	}
	if len(cfg.HTTP.CORSAllowHeaders) == 0 {
		cfg.HTTP.CORSAllowHeaders = []string{
			"accept", "authorization", "content-type", "user-agent",
			"x-csrftoken", "x-csrf-token", "x-requested-with", "cache-control", "x-request-id",
		}
	}
	if cfg.Telemetry.CollectorEndpoint == "" {
		cfg.Telemetry.CollectorEndpoint = "localhost:4317"
	}
	if cfg.Telemetry.SamplingRatio == 0 {
		cfg.Telemetry.SamplingRatio = 1.0
	}
	if cfg.Telemetry.ServiceName == "" {
		cfg.Telemetry.ServiceName = cfg.App.Name
	}
	if cfg.Telemetry.MetricsInterval == 0 {
		cfg.Telemetry.MetricsInterval = 60 * time.Second
	}
	if cfg.Telemetry.DBSlowQueryThresh == 0 {
		cfg.Telemetry.DBSlowQueryThresh = 200 * time.Millisecond
	}
}

// validate performs validation on the configuration
func (c *Config) validate() error {
	validate := validator.New()
	if err := validate.Struct(c); err != nil {
		return fmt.Errorf("invalid configuration: %w", err)
	}

	if c.Database.MaxOpenConns <= 0 {
		return fmt.Errorf("database.max_open_conns must be positive")
	}
	if c.Database.MaxIdleConns < 0 {
		return fmt.Errorf("database.max_idle_conns cannot be negative")
	}
	if c.Database.MaxIdleConns > c.Database.MaxOpenConns {
		return fmt.Errorf("database.max_idle_conns (%d) cannot exceed database.max_open_conns (%d)",
			c.Database.MaxIdleConns, c.Database.MaxOpenConns)
	}
	if c.Queue.SoftTimeLimit > c.Queue.HardTimeLimit {
		return fmt.Errorf("queue.soft_time_limit (%s) cannot exceed queue.hard_time_limit (%s)",
			c.Queue.SoftTimeLimit, c.Queue.HardTimeLimit)
	}
	if c.Storage.Backend == "s3" && c.Storage.Bucket == "" {
		return fmt.Errorf("storage.bucket is required for the s3 backend")
	}
	if c.Auth.Enabled() && len(c.Auth.StateSecret) < 32 {
		return fmt.Errorf("auth.state_secret must be at least 32 characters when SSO is configured")
	}

	if c.App.IsProduction() {
		if !c.Auth.Enabled() {
			return fmt.Errorf("auth.client_id and auth.authority are required in production")
		}
		if c.Database.Driver == "postgres" && c.Database.Password == "" {
			return fmt.Errorf("database.password is required in production")
		}
		if !c.Session.Secure {
			return fmt.Errorf("session.secure must be true in production (HTTPS required for secure cookies)")
		}
		if c.Session.Store == "memory" {
			return fmt.Errorf("session.store=memory is not allowed in production")
		}
		for _, origin := range c.HTTP.CORSAllowOrigins {
			if origin == "*" {
				return fmt.Errorf("cors_allow_origins cannot be '*' in production (use specific origins)")
			}
		}
		if c.Swagger.Enabled && !c.Swagger.RequireAuth && len(c.Swagger.AllowedIPs) == 0 {
			return fmt.Errorf("swagger endpoint must be disabled, require authentication, or have IP restriction in production")
		}
		if c.Telemetry.DBLogFullSQL {
			return fmt.Errorf("telemetry.db_log_full_sql must be false in production to prevent sensitive data exposure in traces")
		}
	}

	if c.Session.SameSite == "none" && !c.Session.Secure {
		return fmt.Errorf("session.same_site=none requires session.secure=true")
	}
	if c.HTTP.LoginRateWindow <= 0 {
		return fmt.Errorf("http.login_rate_window must be positive, got %s", c.HTTP.LoginRateWindow)
	}
	if c.Telemetry.SamplingRatio < 0.0 || c.Telemetry.SamplingRatio > 1.0 {
		return fmt.Errorf("telemetry.sampling_ratio must be between 0.0 and 1.0, got %f", c.Telemetry.SamplingRatio)
	}

	return nil
}

// DSN returns the postgres connection string with properly escaped values
func (d *DatabaseConfig) DSN() string {
	u := url.URL{
		Scheme: "postgres",
		User:   url.UserPassword(d.User, d.Password),
		Host:   fmt.Sprintf("%s:%d", d.Host, d.Port),
		Path:   d.DBName,
	}
	q := u.Query()
	q.Set("sslmode", d.SSLMode)
	u.RawQuery = q.Encode()
	return u.String()
}

// MigrationURL returns the golang-migrate database URL for the configured driver
func (d *DatabaseConfig) MigrationURL() string {
	if d.Driver == "sqlite" {
		return "sqlite3://" + d.Path
	}
	return d.DSN()
}
