package config

import (
	"fmt"
	"github.com/spf13/viper"
)

type DBConfig struct {
	// sqlite file path, or a postgres URL / keyword DSN
	ConnectionString   string `mapstructure:"connection_string"`
	MaxOpenConnections int    `mapstructure:"max_open_connections"`
}

func (config DBConfig) validate() error {
	var errs []error

	if config.ConnectionString == "" {
		errs = append(errs, fmt.Errorf("missing variable: db connection string"))
	}
	if config.MaxOpenConnections < 0 {
		errs = append(errs, fmt.Errorf("max_open_connections can't be negative"))
	}

	if len(errs) > 0 {
		return createMultiError(errs)
	}

	return nil
}

func (config DBConfig) bindEnvironmentVariables() error {
	if err := viper.BindEnv("db.connection_string", "DB_CONNECTION_STRING"); err != nil {
		return err
	}
	return viper.BindEnv("db.max_open_connections", "DB_MAX_OPEN_CONNECTIONS")
}
