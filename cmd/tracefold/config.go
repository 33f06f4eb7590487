// Configuration and diagnostics for the CLI
// Flags, tracefold.yaml and TRACEFOLD_* environment variables, merged by viper
package main

import (
	"errors"
	"strings"

	"github.com/rs/zerolog"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"
)

type settings struct {
	configFile string

	format  string
	api     string
	traceID string
	verbose bool

	log zerolog.Logger
	// v also serves subcommand flags, so tracefold.yaml can set any of them.
	v *viper.Viper
}

// load resolves settings for cmd. Explicit flags win over environment
// variables, which win over the config file.
func (s *settings) load(cmd *cobra.Command) error {
	v := viper.New()
	v.SetEnvPrefix("TRACEFOLD")
	v.SetEnvKeyReplacer(strings.NewReplacer("-", "_"))
	v.AutomaticEnv()
	if err := v.BindPFlags(cmd.Flags()); err != nil {
		return err
	}

	if s.configFile != "" {
		v.SetConfigFile(s.configFile)
	} else {
		v.SetConfigName("tracefold")
		v.SetConfigType("yaml")
		v.AddConfigPath(".")
		v.AddConfigPath("$HOME/.config/tracefold")
	}
	if err := v.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if s.configFile != "" || !errors.As(err, &notFound) {
			return err
		}
	}

	s.v = v
	s.format = v.GetString("format")
	s.api = v.GetString("api")
	s.traceID = v.GetString("trace-id")
	s.verbose = v.GetBool("verbose")

	level := zerolog.InfoLevel
	if s.verbose {
		level = zerolog.DebugLevel
	}
	s.log = zerolog.New(zerolog.ConsoleWriter{Out: cmd.ErrOrStderr(), NoColor: true}).
		Level(level).With().Timestamp().Logger()

	if used := v.ConfigFileUsed(); used != "" {
		s.log.Debug().Str("file", used).Msg("loaded config")
	}
	return nil
}
