// Package config layers runtime configuration: command-line flags beat
// environment variables, which beat the workspace config file, which
// beats built-in defaults. Environment variables use the IC_ prefix
// (IC_DB, IC_IDENTITY, IC_LOG_FILE).
package config

import (
	"fmt"
	"strings"

	"github.com/spf13/viper"
)

// Initialize sets up the environment binding and defaults. Call once at
// process start.
func Initialize() error {
	viper.SetEnvPrefix("IC")
	viper.SetEnvKeyReplacer(strings.NewReplacer(".", "_", "-", "_"))
	viper.AutomaticEnv()

	viper.SetDefault("db", "")
	viper.SetDefault("identity", "")
	viper.SetDefault("log-file", "")
	viper.SetDefault("debug", false)

	for _, key := range []string{"db", "identity", "log-file", "debug"} {
		if err := viper.BindEnv(key); err != nil {
			return fmt.Errorf("binding %s: %w", key, err)
		}
	}
	return nil
}

// Database returns the database path from the environment, or empty.
func Database() string {
	return viper.GetString("db")
}

// Identity returns the acting username from the environment, or empty.
func Identity() string {
	return viper.GetString("identity")
}

// LogFile returns the debug log path from the environment, or empty.
func LogFile() string {
	return viper.GetString("log-file")
}

// Debug reports whether IC_DEBUG asked for debug logging to the default
// workspace log file.
func Debug() bool {
	return viper.GetBool("debug")
}
