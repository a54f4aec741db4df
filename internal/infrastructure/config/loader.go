package config

import (
	"errors"
	"fmt"
	"os"
	"strings"

	"github.com/joho/godotenv"
	"github.com/spf13/viper"
)

// Environment constants
const (
	Development = "development"
	Production  = "production"
	Test        = "test"
)

// EnvPrefix prefixes every environment override, e.g. RP_DATABASE_HOST
const EnvPrefix = "RP"

// ConfigPaths defines the paths to look for config files
var ConfigPaths = []string{
	"./configs",
	"../configs",
	"../../configs",
}

// DotEnvPaths defines the paths to look for .env files
var DotEnvPaths = []string{
	".env",
	"../.env",
	"../../.env",
	"./configs/.env",
	"../configs/.env",
}

// LoadConfig loads configuration for the environment named by RP_ENV.
// The config file may be absent; defaults and environment variables still apply.
func LoadConfig() (*Config, error) {
	return LoadEnvironment("", nil)
}

// LoadEnvironment is LoadConfig with an explicit environment and search paths.
// Empty values fall back to RP_ENV and ConfigPaths.
func LoadEnvironment(env string, paths []string) (*Config, error) {
	loadDotEnvFile()
	if env == "" {
		env = getEnvironment()
	}
	if len(paths) == 0 {
		paths = ConfigPaths
	}
	return Load(strings.ToLower(env), paths...)
}

// Load reads <env>.yaml from the first path that has it and applies RP_ overrides
func Load(env string, paths ...string) (*Config, error) {
	v := viper.New()
	v.SetConfigName(env)
	v.SetConfigType("yaml")
	for _, path := range paths {
		v.AddConfigPath(path)
	}

	setDefaults(v)

	if err := v.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if !errors.As(err, &notFound) {
			return nil, fmt.Errorf("error reading config file: %w", err)
		}
	}

	v.SetEnvPrefix(EnvPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()
	bindSecrets(v)

	var config Config
	if err := v.Unmarshal(&config); err != nil {
		return nil, fmt.Errorf("unable to decode config into struct: %w", err)
	}
	config.Environment = env

	if err := config.Validate(); err != nil {
		return nil, fmt.Errorf("invalid configuration: %w", err)
	}
	return &config, nil
}

// loadDotEnvFile loads the first .env file found. A missing file is not an error.
func loadDotEnvFile() {
	for _, path := range DotEnvPaths {
		if _, err := os.Stat(path); err == nil {
			if err := godotenv.Load(path); err == nil {
				return
			}
		}
	}
}

// setDefaults sets default values for every setting that has a sensible one
func setDefaults(v *viper.Viper) {
	v.SetDefault("server.host", "0.0.0.0")
	v.SetDefault("server.port", 8080)
	v.SetDefault("server.readTimeout", "15s")
	v.SetDefault("server.writeTimeout", "15s")
	v.SetDefault("server.idleTimeout", "60s")
	v.SetDefault("server.readHeaderTimeout", "10s")
	v.SetDefault("server.shutdownTimeout", "10s")

	v.SetDefault("database.driver", "postgres")
	v.SetDefault("database.port", "5432")
	v.SetDefault("database.sslMode", "disable")
	v.SetDefault("database.maxOpenConns", 50)
	v.SetDefault("database.maxIdleConns", 25)
	v.SetDefault("database.connMaxLifetime", "30m")
	v.SetDefault("database.connMaxIdleTime", "15m")
	v.SetDefault("database.queryTimeout", "5s")
	v.SetDefault("database.slowThreshold", "200ms")
	v.SetDefault("database.retryAttempts", 3)
	v.SetDefault("database.retryDelay", "1s")

	v.SetDefault("logger.level", "info")
	v.SetDefault("logger.format", "json")
	v.SetDefault("logger.output", "stdout")
	v.SetDefault("logger.callerInfo", true)

	v.SetDefault("webhook.maxBodySize", 1<<20)

	v.SetDefault("gateway.timeout", "10s")

	v.SetDefault("dispatcher.interval", "5s")
	v.SetDefault("dispatcher.batchSize", 50)
	v.SetDefault("dispatcher.workers", 4)
	v.SetDefault("dispatcher.maxAttempts", 5)
	v.SetDefault("dispatcher.initialBackoff", "10s")
	v.SetDefault("dispatcher.maxBackoff", "10m")
	v.SetDefault("dispatcher.leaseTimeout", "2m")
	v.SetDefault("dispatcher.effectTimeout", "15s")

	v.SetDefault("poller.interval", "1m")
	v.SetDefault("poller.graceWindow", "30m")
	v.SetDefault("poller.initialBackoff", "1m")
	v.SetDefault("poller.maxBackoff", "30m")
	v.SetDefault("poller.maxStaleness", "48h")
	v.SetDefault("poller.batchSize", 100)
	v.SetDefault("poller.replayWindow", "5m")

	v.SetDefault("scheduler.leaseBackend", "database")
	v.SetDefault("scheduler.leaseTtl", "2m")

	v.SetDefault("notification.timeout", "10s")
	v.SetDefault("alert.timeout", "5s")

	v.SetDefault("invoice.numberPrefix", "INV")
}

// bindSecrets wires environment variables for keys that have no default and so are
// invisible to AutomaticEnv during Unmarshal
func bindSecrets(v *viper.Viper) {
	keys := []string{
		"database.host",
		"database.username",
		"database.password",
		"database.database",
		"gateway.baseUrl",
		"gateway.keyId",
		"gateway.keySecret",
		"redis.addr",
		"redis.password",
		"notification.url",
		"alert.url",
		"invoice.organizationName",
		"invoice.taxId",
		"ticket.imageBaseUrl",
	}
	for _, key := range keys {
		_ = v.BindEnv(key)
	}

	// Provider secrets: RP_WEBHOOK_SECRET_<PROVIDER>
	for _, kv := range os.Environ() {
		name, value, ok := strings.Cut(kv, "=")
		if !ok || !strings.HasPrefix(name, EnvPrefix+"_WEBHOOK_SECRET_") {
			continue
		}
		provider := strings.ToLower(strings.TrimPrefix(name, EnvPrefix+"_WEBHOOK_SECRET_"))
		v.Set("webhook.secrets."+provider, value)
	}
}

// getEnvironment determines the environment from RP_ENV
func getEnvironment() string {
	env := os.Getenv(EnvPrefix + "_ENV")
	if env == "" {
		env = Development
	}
	return strings.ToLower(env)
}
