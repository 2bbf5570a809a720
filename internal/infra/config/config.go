package config

import (
	"fmt"
	"strings"
	"time"

	"github.com/spf13/viper"
)

const envPrefix = "HOMESCOUT"

type AppConfig struct {
	App       AppSettings       `mapstructure:"app"`
	HTTP      HTTPSettings      `mapstructure:"http"`
	Postgres  PostgresSettings  `mapstructure:"postgres"`
	Redis     RedisSettings     `mapstructure:"redis"`
	Kafka     KafkaSettings     `mapstructure:"kafka"`
	Identity  IdentitySettings  `mapstructure:"identity"`
	Telemetry TelemetrySettings `mapstructure:"telemetry"`
	Client    ClientSettings    `mapstructure:"client"`
}

type AppSettings struct {
	Name     string `mapstructure:"name"`
	Env      string `mapstructure:"env"`
	Host     string `mapstructure:"host"`
	Port     int    `mapstructure:"port"`
	LogLevel string `mapstructure:"log_level"`
}

// HTTPSettings tunes the API listener.
type HTTPSettings struct {
	AllowedOrigins    []string      `mapstructure:"allowed_origins"`
	ReadHeaderTimeout time.Duration `mapstructure:"read_header_timeout"`
	ShutdownTimeout   time.Duration `mapstructure:"shutdown_timeout"`
}

type PostgresSettings struct {
	Host              string        `mapstructure:"host"`
	Port              int           `mapstructure:"port"`
	User              string        `mapstructure:"user"`
	Password          string        `mapstructure:"password"`
	Database          string        `mapstructure:"database"`
	SSLMode           string        `mapstructure:"ssl_mode"`
	Schema            string        `mapstructure:"schema"`
	MaxConns          int32         `mapstructure:"max_conns"`
	MinConns          int32         `mapstructure:"min_conns"`
	MaxConnLifetime   time.Duration `mapstructure:"max_conn_lifetime"`
	MaxConnIdleTime   time.Duration `mapstructure:"max_conn_idle_time"`
	HealthCheckPeriod time.Duration `mapstructure:"health_check_period"`
}

// RedisSettings configures the installation navigation store.
type RedisSettings struct {
	Host             string        `mapstructure:"host"`
	Port             int           `mapstructure:"port"`
	DB               int           `mapstructure:"db"`
	Password         string        `mapstructure:"password"`
	TLSEnabled       bool          `mapstructure:"tls_enabled"`
	NavigationPrefix string        `mapstructure:"navigation_prefix"`
	NavigationTTL    time.Duration `mapstructure:"navigation_ttl"`
}

// KafkaSettings configures the onboarding event producer. An empty broker list
// disables publishing.
type KafkaSettings struct {
	Brokers     []string `mapstructure:"brokers"`
	TopicPrefix string   `mapstructure:"topic_prefix"`
}

// IdentitySettings selects how bearer ID tokens are verified.
// Provider is one of "firebase", "dev" or "none".
type IdentitySettings struct {
	Provider                string        `mapstructure:"provider"`
	FirebaseProjectID       string        `mapstructure:"firebase_project_id"`
	FirebaseCredentialsFile string        `mapstructure:"firebase_credentials_file"`
	DevSecret               string        `mapstructure:"dev_secret"`
	DevIssuer               string        `mapstructure:"dev_issuer"`
	DevTokenTTL             time.Duration `mapstructure:"dev_token_ttl"`
}

type TelemetrySettings struct {
	Enabled      bool    `mapstructure:"enabled"`
	OTLPEndpoint string  `mapstructure:"otlp_endpoint"`
	ServiceName  string  `mapstructure:"service_name"`
	SamplingRate float64 `mapstructure:"sampling_rate"`
}

// ClientSettings configures the onboarding command-line client.
type ClientSettings struct {
	StatePath      string        `mapstructure:"state_path"`
	APIBaseURL     string        `mapstructure:"api_base_url"`
	RequestTimeout time.Duration `mapstructure:"request_timeout"`
}

// Addr returns the listen address of the API.
func (s AppSettings) Addr() string {
	return fmt.Sprintf("%s:%d", s.Host, s.Port)
}

func Load() (*AppConfig, error) {
	v := viper.New()

	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.SetEnvPrefix(envPrefix)

	setDefaults(v)

	if err := bindEnvs(v, []string{
		"app.name",
		"app.env",
		"app.host",
		"app.port",
		"app.log_level",
		"http.allowed_origins",
		"http.read_header_timeout",
		"http.shutdown_timeout",
		"postgres.host",
		"postgres.port",
		"postgres.user",
		"postgres.password",
		"postgres.database",
		"postgres.ssl_mode",
		"postgres.schema",
		"postgres.max_conns",
		"postgres.min_conns",
		"postgres.max_conn_lifetime",
		"postgres.max_conn_idle_time",
		"postgres.health_check_period",
		"redis.host",
		"redis.port",
		"redis.db",
		"redis.password",
		"redis.tls_enabled",
		"redis.navigation_prefix",
		"redis.navigation_ttl",
		"kafka.brokers",
		"kafka.topic_prefix",
		"identity.provider",
		"identity.firebase_project_id",
		"identity.firebase_credentials_file",
		"identity.dev_secret",
		"identity.dev_issuer",
		"identity.dev_token_ttl",
		"telemetry.enabled",
		"telemetry.otlp_endpoint",
		"telemetry.service_name",
		"telemetry.sampling_rate",
		"client.state_path",
		"client.api_base_url",
		"client.request_timeout",
	}); err != nil {
		return nil, err
	}

	v.AutomaticEnv()

	var cfg AppConfig
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("unmarshal config: %w", err)
	}

	if err := cfg.validate(); err != nil {
		return nil, err
	}

	return &cfg, nil
}

func (c *AppConfig) validate() error {
	switch c.Identity.Provider {
	case "firebase", "none":
	case "dev":
		if c.Identity.DevSecret == "" {
			return fmt.Errorf("identity.dev_secret is required for the dev identity provider")
		}
	default:
		return fmt.Errorf("unknown identity provider %q", c.Identity.Provider)
	}
	if c.Redis.NavigationTTL < 0 {
		return fmt.Errorf("redis.navigation_ttl must not be negative")
	}
	return nil
}

func setDefaults(v *viper.Viper) {
	v.SetDefault("app.name", "homescout-onboarding")
	v.SetDefault("app.env", "development")
	v.SetDefault("app.host", "0.0.0.0")
	v.SetDefault("app.port", 8080)
	v.SetDefault("app.log_level", "")

	v.SetDefault("http.allowed_origins", []string{"*"})
	v.SetDefault("http.read_header_timeout", "5s")
	v.SetDefault("http.shutdown_timeout", "10s")

	v.SetDefault("postgres.host", "localhost")
	v.SetDefault("postgres.port", 5432)
	v.SetDefault("postgres.user", "homescout")
	v.SetDefault("postgres.password", "homescout_password")
	v.SetDefault("postgres.database", "homescout")
	v.SetDefault("postgres.ssl_mode", "disable")
	v.SetDefault("postgres.schema", "homescout")
	v.SetDefault("postgres.max_conns", 10)
	v.SetDefault("postgres.min_conns", 2)
	v.SetDefault("postgres.max_conn_lifetime", "60m")
	v.SetDefault("postgres.max_conn_idle_time", "15m")
	v.SetDefault("postgres.health_check_period", "30s")

	v.SetDefault("redis.host", "localhost")
	v.SetDefault("redis.port", 6379)
	v.SetDefault("redis.db", 0)
	v.SetDefault("redis.password", "")
	v.SetDefault("redis.tls_enabled", false)
	v.SetDefault("redis.navigation_prefix", "homescout:navigation")
	v.SetDefault("redis.navigation_ttl", "24h")

	v.SetDefault("kafka.brokers", []string{})
	v.SetDefault("kafka.topic_prefix", "homescout")

	v.SetDefault("identity.provider", "none")
	v.SetDefault("identity.firebase_project_id", "")
	v.SetDefault("identity.firebase_credentials_file", "")
	v.SetDefault("identity.dev_secret", "")
	v.SetDefault("identity.dev_issuer", "homescout-dev")
	v.SetDefault("identity.dev_token_ttl", "1h")

	v.SetDefault("telemetry.enabled", false)
	v.SetDefault("telemetry.otlp_endpoint", "")
	v.SetDefault("telemetry.service_name", "homescout-onboarding")
	v.SetDefault("telemetry.sampling_rate", 1.0)

	v.SetDefault("client.state_path", "./.homescout/state.db")
	v.SetDefault("client.api_base_url", "http://localhost:8080")
	v.SetDefault("client.request_timeout", "10s")
}

func bindEnvs(v *viper.Viper, keys []string) error {
	for _, key := range keys {
		envKey := strings.ToUpper(strings.ReplaceAll(key, ".", "_"))
		if err := v.BindEnv(key, envPrefix+"_"+envKey, envKey); err != nil {
			return fmt.Errorf("bind env for %s: %w", key, err)
		}
	}
	return nil
}
