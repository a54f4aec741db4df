package database

import (
	"strconv"

	"github.com/amirhossein-jamali/payment-reconciler/internal/infrastructure/config"
)

// CreateConfigFromViperConfig overlays the database section of the application
// configuration onto DefaultConfig. Zero values keep the default.
func CreateConfigFromViperConfig(conf *config.Config) *Config {
	dbConf := DefaultConfig()
	db := conf.Database

	dbConf.Host = db.Host
	dbConf.Username = db.Username
	dbConf.Password = db.Password
	dbConf.Database = db.Database

	if db.Driver != "" {
		dbConf.Driver = db.Driver
	}
	if p := ParsePort(db.Port); p > 0 {
		dbConf.Port = p
	}
	if db.SSLMode != "" {
		dbConf.SSLMode = db.SSLMode
	}
	if db.MaxOpenConns > 0 {
		dbConf.MaxOpenConns = db.MaxOpenConns
	}
	if db.MaxIdleConns > 0 {
		dbConf.MaxIdleConns = db.MaxIdleConns
	}
	if db.ConnMaxLifetime > 0 {
		dbConf.ConnMaxLifetime = db.ConnMaxLifetime
	}
	if db.ConnMaxIdleTime > 0 {
		dbConf.ConnMaxIdleTime = db.ConnMaxIdleTime
	}
	if db.QueryTimeout > 0 {
		dbConf.QueryTimeout = db.QueryTimeout
	}
	if db.SlowThreshold > 0 {
		dbConf.SlowThreshold = db.SlowThreshold
	}
	if db.RetryAttempts > 0 {
		dbConf.RetryAttempts = db.RetryAttempts
	}
	if db.RetryDelay > 0 {
		dbConf.RetryDelay = db.RetryDelay
	}
	// SQL tracing follows the application log level
	if conf.Logger.Level != "" {
		dbConf.LogLevel = conf.Logger.Level
	}

	return dbConf
}

// ParsePort converts a port string to an int, returning 0 when it is not a valid port
func ParsePort(port string) int {
	p, err := strconv.Atoi(port)
	if err != nil || p <= 0 || p > 65535 {
		return 0
	}
	return p
}
