package config

import (
	"errors"
	"fmt"
	"net/url"
	"strconv"
	"strings"
	"time"

	"github.com/spf13/viper"
)

// EnvPrefix prefixes every environment override, e.g. MEDALLION_DB_HOST.
const EnvPrefix = "MEDALLION"

// Config holds the configuration for the application.
type Config struct {
	Environment   string `mapstructure:"environment"`
	DevModeBypass bool   `mapstructure:"dev_mode_bypass"`

	DB struct {
		URL      string `mapstructure:"url"`
		Host     string `mapstructure:"host"`
		Port     int    `mapstructure:"port"`
		User     string `mapstructure:"user"`
		Password string `mapstructure:"password"`
		Name     string `mapstructure:"name"`
		SSLMode  string `mapstructure:"sslmode"`
		MaxConns int32  `mapstructure:"max_conns"`
	} `mapstructure:"db"`
	Source struct {
		// Path is a directory of CSV exports or an .xlsx workbook.
		Path string `mapstructure:"path"`
	} `mapstructure:"source"`
	Pipeline struct {
		// ProcessingDate is YYYY-MM-DD; empty means today in UTC.
		ProcessingDate string `mapstructure:"processing_date"`
		ParallelStages bool   `mapstructure:"parallel_stages"`
		Strict         bool   `mapstructure:"strict"`
	} `mapstructure:"pipeline"`
	Server struct {
		Addr            string        `mapstructure:"addr"`
		ShutdownTimeout time.Duration `mapstructure:"shutdown_timeout"`
	} `mapstructure:"server"`
	Auth struct {
		OktaDomain      string `mapstructure:"okta_domain"`
		ClientID        string `mapstructure:"client_id"`
		ClientSecret    string `mapstructure:"client_secret"`
		RedirectURL     string `mapstructure:"redirect_url"`
		SwaggerClientID string `mapstructure:"swagger_client_id"`
	} `mapstructure:"auth"`
	TLS struct {
		Enable    bool     `mapstructure:"enable"`
		CertFile  string   `mapstructure:"cert_file"`
		KeyFile   string   `mapstructure:"key_file"`
		Hostnames []string `mapstructure:"hostnames"`
	} `mapstructure:"tls"`
	Logging struct {
		Level  string `mapstructure:"level"`
		Format string `mapstructure:"format"`
	} `mapstructure:"logging"`
	Cache struct {
		RedisURL string        `mapstructure:"redis_url"`
		TTL      time.Duration `mapstructure:"ttl"`
	} `mapstructure:"cache"`
	Metrics struct {
		PushgatewayURL string `mapstructure:"pushgateway_url"`
		Job            string `mapstructure:"job"`
	} `mapstructure:"metrics"`
}

// New returns a viper instance with defaults and environment overrides
// applied. Callers may bind flags to it before Load.
func New() *viper.Viper {
	v := viper.New()
	v.SetDefault("environment", "PROD")
	v.SetDefault("dev_mode_bypass", false)
	v.SetDefault("db.host", "localhost")
	v.SetDefault("db.port", 5432)
	v.SetDefault("db.user", "postgres")
	v.SetDefault("db.name", "medallion")
	v.SetDefault("db.sslmode", "disable")
	v.SetDefault("db.max_conns", 8)
	v.SetDefault("source.path", "./data")
	v.SetDefault("pipeline.parallel_stages", true)
	v.SetDefault("pipeline.strict", false)
	v.SetDefault("server.addr", ":8080")
	v.SetDefault("server.shutdown_timeout", 30*time.Second)
	v.SetDefault("logging.level", "info")
	v.SetDefault("logging.format", "json")
	v.SetDefault("cache.ttl", 10*time.Minute)
	v.SetDefault("metrics.job", "medallion_etl")

	v.SetEnvPrefix(EnvPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()
	return v
}

// Load reads the configuration file and unmarshals it. With an empty path
// config.yaml is searched in . and ./config and may be absent; an explicit
// path must exist.
func Load(v *viper.Viper, path string) (*Config, error) {
	if path != "" {
		v.SetConfigFile(path)
	} else {
		v.SetConfigName("config")
		v.SetConfigType("yaml")
		v.AddConfigPath(".")
		v.AddConfigPath("./config")
	}

	if err := v.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if path != "" || !errors.As(err, &notFound) {
			return nil, fmt.Errorf("read config: %w", err)
		}
	}

	// AutomaticEnv only covers keys viper already knows; bind the ones with
	// no default so they can still come from the environment.
	for _, key := range []string{"db.url", "db.password", "auth.okta_domain", "auth.client_id",
		"auth.client_secret", "auth.redirect_url", "auth.swagger_client_id", "cache.redis_url",
		"metrics.pushgateway_url", "pipeline.processing_date", "tls.cert_file", "tls.key_file"} {
		if err := v.BindEnv(key); err != nil {
			return nil, fmt.Errorf("bind env %s: %w", key, err)
		}
	}

	var config Config
	if err := v.Unmarshal(&config); err != nil {
		return nil, fmt.Errorf("decode config: %w", err)
	}

	// normalize OKTA issuer url (strip trailing slash if any)
	config.Auth.OktaDomain = normalizeOktaIssuer(config.Auth.OktaDomain)

	return &config, nil
}

// IsDev reports whether the environment is DEV.
func (c *Config) IsDev() bool {
	return strings.EqualFold(c.Environment, "DEV")
}

// DSN is the pgx connection string. db.url wins over the discrete fields.
func (c *Config) DSN() string {
	if c.DB.URL != "" {
		return c.DB.URL
	}
	u := url.URL{
		Scheme: "postgres",
		User:   url.UserPassword(c.DB.User, c.DB.Password),
		Host:   c.DB.Host + ":" + strconv.Itoa(c.DB.Port),
		Path:   "/" + c.DB.Name,
	}
	q := url.Values{}
	if c.DB.SSLMode != "" {
		q.Set("sslmode", c.DB.SSLMode)
	}
	if c.DB.MaxConns > 0 {
		q.Set("pool_max_conns", strconv.Itoa(int(c.DB.MaxConns)))
	}
	u.RawQuery = q.Encode()
	return u.String()
}

// ProcessingDate parses pipeline.processing_date, falling back to the UTC
// day of now.
func (c *Config) ProcessingDate(now time.Time) (time.Time, error) {
	if c.Pipeline.ProcessingDate == "" {
		y, m, d := now.UTC().Date()
		return time.Date(y, m, d, 0, 0, 0, 0, time.UTC), nil
	}
	t, err := time.Parse("2006-01-02", c.Pipeline.ProcessingDate)
	if err != nil {
		return time.Time{}, fmt.Errorf("pipeline.processing_date %q: %w", c.Pipeline.ProcessingDate, err)
	}
	return t, nil
}

// normalizeOktaIssuer ensures the provided Okta issuer string is in a
// predictable form. It removes any trailing slash and leaves the scheme and
// path intact.
func normalizeOktaIssuer(input string) string {
	return strings.TrimRight(strings.TrimSpace(input), "/")
}
