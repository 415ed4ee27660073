package config

import (
	"errors"
	"fmt"
	"github.com/fsnotify/fsnotify"
	"github.com/joho/godotenv"
	log "github.com/sirupsen/logrus"
	"github.com/spf13/viper"
	"os"
)

type Config struct {
	Logger  LoggerConfig  `mapstructure:"logger"`
	Bot     BotConfig     `mapstructure:"bot"`
	DB      DBConfig      `mapstructure:"db"`
	API     APIConfig     `mapstructure:"api"`
	Watcher WatcherConfig `mapstructure:"watcher"`
	Metrics MetricsConfig `mapstructure:"metrics"`
}

type MetricsConfig struct {
	Address string `mapstructure:"address"`
}

var configFile = "./configs/config.yaml"

func Get() *Config {

	if value, ok := os.LookupEnv("CONFIG_PATH"); ok {
		configFile = value
	} else if value, _ := os.LookupEnv("MODE"); value == "test" {
		configFile = "../../configs/config.yaml"
	}

	// .env is optional and only used for local runs
	if err := godotenv.Load(); err != nil && !errors.Is(err, os.ErrNotExist) {
		log.Warnf("failed to load .env file: %v", err)
	}

	config, err := loadConfig(configFile)
	if err != nil {
		log.Fatal(err)
	}

	return config
}

// OnLoggerChange re-reads the logger section whenever the config file changes on disk.
func OnLoggerChange(callback func(LoggerConfig)) {
	viper.OnConfigChange(func(event fsnotify.Event) {
		if !event.Has(fsnotify.Write) && !event.Has(fsnotify.Create) {
			return
		}

		var cfg LoggerConfig
		if err := viper.UnmarshalKey("logger", &cfg); err != nil {
			log.Errorf("failed to reload logger config from %s: %v", event.Name, err)
			return
		}
		callback(cfg)
	})
	viper.WatchConfig()
}

func loadConfig(file string) (*Config, error) {

	viper.SetConfigFile(file)
	viper.AutomaticEnv()

	viper.SetDefault("metrics.address", ":8080")
	viper.SetDefault("bot.update_timeout", 60)
	viper.SetDefault("watcher.schedule", "@every 5m")
	viper.SetDefault("api.timeout", "10s")
	viper.SetDefault("api.max_requests_per_second", 5)
	viper.SetDefault("logger.output_file", "./logs/errors.log")
	viper.SetDefault("logger.log_level", string(LevelInfo))

	err := bindEnvironmentVariables()
	if err != nil {
		return nil, err
	}

	if err := viper.ReadInConfig(); err != nil {
		return nil, fmt.Errorf("error reading config file %s: %w", file, err)
	}

	config := Config{}
	if err := viper.Unmarshal(&config); err != nil {
		return nil, err
	}

	err = config.validate()
	if err != nil {
		return nil, err
	}

	return &config, nil
}

func bindEnvironmentVariables() error {
	var errs []error

	bot, db, logger, api, watcher := BotConfig{}, DBConfig{}, LoggerConfig{}, APIConfig{}, WatcherConfig{}

	if err := bot.bindEnvironmentVariables(); err != nil {
		errs = append(errs, fmt.Errorf("BotConfig: %w", err))
	}

	if err := db.bindEnvironmentVariables(); err != nil {
		errs = append(errs, fmt.Errorf("DBConfig: %w", err))
	}

	if err := logger.bindEnvironmentVariables(); err != nil {
		errs = append(errs, fmt.Errorf("LoggerConfig: %w", err))
	}

	if err := api.bindEnvironmentVariables(); err != nil {
		errs = append(errs, fmt.Errorf("APIConfig: %w", err))
	}

	if err := watcher.bindEnvironmentVariables(); err != nil {
		errs = append(errs, fmt.Errorf("WatcherConfig: %w", err))
	}

	if err := viper.BindEnv("metrics.address", "METRICS_ADDRESS"); err != nil {
		errs = append(errs, fmt.Errorf("MetricsConfig: %w", err))
	}

	if len(errs) > 0 {
		return createMultiError(errs)
	}

	return nil
}

func (config Config) validate() error {
	var errs []error

	if err := config.DB.validate(); err != nil {
		errs = append(errs, fmt.Errorf("DBConfig: %w", err))
	}

	if err := config.Bot.validate(); err != nil {
		errs = append(errs, fmt.Errorf("BotConfig: %w", err))
	}

	if err := config.Logger.validate(); err != nil {
		errs = append(errs, fmt.Errorf("LoggerConfig: %w", err))
	}

	if err := config.API.validate(); err != nil {
		errs = append(errs, fmt.Errorf("APIConfig: %w", err))
	}

	if err := config.Watcher.validate(); err != nil {
		errs = append(errs, fmt.Errorf("WatcherConfig: %w", err))
	}

	if len(errs) > 0 {
		return createMultiError(errs)
	}

	return nil
}

func createMultiError(errs []error) error {
	return fmt.Errorf("multiple errors occurred: %w", errors.Join(errs...))
}
