// Package config resolves hop's own CLI-wide settings: output format,
// verbosity, and the handful of toggles that apply across every verb. It is
// a thin viper wrapper in the same spirit as the ambient config singleton
// other half-orm-dev tooling uses, scoped down to what a Git-centric CLI
// actually needs (connection parameters live in dbconfig, not here).
package config

import (
	"strings"

	"github.com/spf13/viper"

	"github.com/half-orm/half-orm-dev/internal/debug"
)

var v *viper.Viper

// Initialize sets up the viper singleton: defaults, then ~/.hoprc (if
// present), then HOP_* environment variables, then — last, via BindPFlag in
// cmd/hop/root.go — command-line flags.
func Initialize() error {
	v = viper.New()
	v.SetConfigName(".hoprc")
	v.SetConfigType("yaml")
	v.AddConfigPath("$HOME")

	v.SetEnvPrefix("HOP")
	v.SetEnvKeyReplacer(strings.NewReplacer("-", "_"))
	v.AutomaticEnv()

	v.SetDefault("json", false)
	v.SetDefault("verbose", false)
	v.SetDefault("color", true)

	if err := v.ReadInConfig(); err != nil {
		if _, ok := err.(viper.ConfigFileNotFoundError); !ok {
			return err
		}
		debug.Logf("Debug: no .hoprc found; using defaults and environment variables\n")
	} else {
		debug.Logf("Debug: loaded config from %s\n", v.ConfigFileUsed())
	}
	return nil
}

// V returns the initialized viper instance, for callers (root.go) that need
// BindPFlag directly against a *pflag.Flag.
func V() *viper.Viper { return v }

// JSON reports whether output should be rendered as JSON.
func JSON() bool { return v.GetBool("json") }

// Verbose reports whether HOP_DEBUG-style tracing should be on.
func Verbose() bool { return v.GetBool("verbose") }

// Color reports whether ANSI color output is permitted.
func Color() bool { return v.GetBool("color") }
