package config

import (
	"fmt"
	"github.com/spf13/viper"
	"strings"
)

type BotConfig struct {
	Token string `mapstructure:"token"`
	// long polling timeout in seconds
	UpdateTimeout int  `mapstructure:"update_timeout"`
	Debug         bool `mapstructure:"debug"`
}

func (config BotConfig) validate() error {

	var problems []string

	if config.Token == "" {
		problems = append(problems, "missing token")
	} else if !strings.Contains(config.Token, ":") {
		problems = append(problems, "token must look like <bot id>:<secret>")
	}

	if config.UpdateTimeout <= 0 {
		problems = append(problems, "update_timeout must be greater than zero")
	}

	if len(problems) > 0 {
		return fmt.Errorf("invalid bot config: %s", strings.Join(problems, ", "))
	}

	return nil
}

func (config BotConfig) bindEnvironmentVariables() error {
	var errs []error

	if err := viper.BindEnv("bot.token", "TG_TOKEN"); err != nil {
		errs = append(errs, err)
	}

	if err := viper.BindEnv("bot.debug", "TG_DEBUG"); err != nil {
		errs = append(errs, err)
	}

	if len(errs) > 0 {
		return createMultiError(errs)
	}

	return nil
}
