// Package config loads the service configuration from defaults, an optional YAML
// file and environment variables (APP_PORT, DATABASE_DSN, JWT_SECRET, ...).
package config

import (
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/spf13/pflag"
	"github.com/spf13/viper"
)

const configFileEnvName = "OVO_CONFIG_FILE"

type AppConfig struct {
	Port      string `mapstructure:"port"`
	StoreName string `mapstructure:"store_name"`
	BaseURL   string `mapstructure:"base_url"`
}

type DatabaseConfig struct {
	Type          string `mapstructure:"type"` // sqlite, postgres, mongo or memory
	DSN           string `mapstructure:"dsn"`
	MongoURI      string `mapstructure:"mongo_uri"`
	MongoDatabase string `mapstructure:"mongo_database"`
	Seed          bool   `mapstructure:"seed"`
}

type RabbitMQConfig struct {
	URL      string `mapstructure:"url"` // empty disables cross-instance fan-out
	Exchange string `mapstructure:"exchange"`
}

type JWTConfig struct {
	Secret string        `mapstructure:"secret"`
	TTL    time.Duration `mapstructure:"ttl"`
}

type SessionConfig struct {
	StorePath     string `mapstructure:"store_path"`
	PurgeSchedule string `mapstructure:"purge_schedule"`
}

type CartConfig struct {
	IdleTTL       time.Duration `mapstructure:"idle_ttl"`
	EvictSchedule string        `mapstructure:"evict_schedule"`
}

type CheckoutConfig struct {
	MessagingHost string `mapstructure:"messaging_host"`
	StorePhone    string `mapstructure:"store_phone"`
	Currency      string `mapstructure:"currency"`
}

type GoogleConfig struct {
	ClientID     string `mapstructure:"client_id"`
	ClientSecret string `mapstructure:"client_secret"`
	RedirectURL  string `mapstructure:"redirect_url"`
	AuthURL      string `mapstructure:"auth_url"`
	TokenURL     string `mapstructure:"token_url"`
	UserInfoURL  string `mapstructure:"userinfo_url"`
}

// Enabled reports whether federated sign-in is configured.
func (g GoogleConfig) Enabled() bool {
	return g.ClientID != "" && g.ClientSecret != ""
}

type LoggerConfig struct {
	Mode       string `mapstructure:"mode"` // development or production
	Level      string `mapstructure:"level"`
	FileEnable bool   `mapstructure:"file_enable"`
	Filename   string `mapstructure:"filename"`
}

type AdminConfig struct {
	Emails []string `mapstructure:"emails"` // empty allows any signed-in user
}

type Config struct {
	App      AppConfig      `mapstructure:"app"`
	Database DatabaseConfig `mapstructure:"database"`
	RabbitMQ RabbitMQConfig `mapstructure:"rabbitmq"`
	JWT      JWTConfig      `mapstructure:"jwt"`
	Session  SessionConfig  `mapstructure:"session"`
	Cart     CartConfig     `mapstructure:"cart"`
	Checkout CheckoutConfig `mapstructure:"checkout"`
	Google   GoogleConfig   `mapstructure:"google"`
	Logger   LoggerConfig   `mapstructure:"logger"`
	Admin    AdminConfig    `mapstructure:"admin"`
}

func setDefaults(v *viper.Viper) {
	v.SetDefault("app.port", ":8080")
	v.SetDefault("app.store_name", "OVO Store")
	v.SetDefault("app.base_url", "http://localhost:8080")

	v.SetDefault("database.type", "sqlite")
	v.SetDefault("database.dsn", "data/ovostore.db")
	v.SetDefault("database.mongo_uri", "mongodb://localhost:27017")
	v.SetDefault("database.mongo_database", "ovostore")
	v.SetDefault("database.seed", false)

	v.SetDefault("rabbitmq.url", "")
	v.SetDefault("rabbitmq.exchange", "catalog_events")

	v.SetDefault("jwt.secret", "change-me")
	v.SetDefault("jwt.ttl", 24*time.Hour)

	v.SetDefault("session.store_path", "data/sessions.db")
	v.SetDefault("session.purge_schedule", "@every 10m")

	v.SetDefault("cart.idle_ttl", 24*time.Hour)
	v.SetDefault("cart.evict_schedule", "@every 15m")

	v.SetDefault("checkout.messaging_host", "wa.me")
	v.SetDefault("checkout.store_phone", "201092940685")
	v.SetDefault("checkout.currency", "$")

	v.SetDefault("google.client_id", "")
	v.SetDefault("google.client_secret", "")
	v.SetDefault("google.redirect_url", "http://localhost:8080/api/v1/auth/google/callback")
	v.SetDefault("google.auth_url", "https://accounts.google.com/o/oauth2/auth")
	v.SetDefault("google.token_url", "https://oauth2.googleapis.com/token")
	v.SetDefault("google.userinfo_url", "https://openidconnect.googleapis.com/v1/userinfo")

	v.SetDefault("logger.mode", "development")
	v.SetDefault("logger.level", "info")
	v.SetDefault("logger.file_enable", false)
	v.SetDefault("logger.filename", "data/ovostore.log")

	v.SetDefault("admin.emails", []string{})
}

// Default returns the configuration made of defaults and environment variables only.
func Default() (*Config, error) {
	return load(viper.New(), "")
}

// Load reads the configuration. The file comes from --config in args or from
// OVO_CONFIG_FILE; without either only defaults and environment apply.
func Load(args []string) (*Config, error) {
	return load(viper.New(), configFilePath(args))
}

func load(v *viper.Viper, path string) (*Config, error) {
	setDefaults(v)
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	if path != "" {
		v.SetConfigFile(path)
		if err := v.ReadInConfig(); err != nil {
			return nil, fmt.Errorf("failed to read config file %s: %w", path, err)
		}
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("failed to decode config: %w", err)
	}
	return &cfg, nil
}

func configFilePath(args []string) string {
	if env, ok := os.LookupEnv(configFileEnvName); ok {
		return env
	}
	cmdLine := pflag.NewFlagSet("ovostore", pflag.ContinueOnError)
	cmdLine.ParseErrorsWhitelist.UnknownFlags = true
	path := cmdLine.String("config", "", "config file")
	_ = cmdLine.Parse(args)
	return *path
}
