/*
Copyright © 2026 GyroArena contributors
*/

package main

import (
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/spf13/cobra"
	"github.com/spf13/pflag"
	"github.com/spf13/viper"
)

type Config struct {
	bind           string
	joinTimeout    time.Duration
	logFile        string
	physicsProfile string
	port           int
	prefix         string
	profile        bool
	sessionTimeout time.Duration
	tlsCert        string
	tlsKey         string
	transport      string
	verbose        bool
	version        bool
}

func (c *Config) validate() error {
	if (c.tlsCert == "") != (c.tlsKey == "") {
		return errors.New("both --tls-cert and --tls-key must be provided together")
	}
	if c.port < 1 || c.port > 65535 {
		return fmt.Errorf("invalid port (must be between 1-65535 inclusive): %d", c.port)
	}
	if c.joinTimeout <= 0 {
		return fmt.Errorf("invalid join timeout (must be positive): %s", c.joinTimeout)
	}
	if _, err := profileByName(c.physicsProfile); err != nil {
		return err
	}
	if c.transport != "row" && c.transport != "channel" {
		return fmt.Errorf("invalid transport (must be row or channel): %q", c.transport)
	}
	return nil
}

func (c *Config) newTransport() Transport {
	if c.transport == "channel" {
		return NewChannelTransport()
	}
	return NewRowTransport()
}

func (c *Config) scheme() string {
	if c.tlsCert != "" && c.tlsKey != "" {
		return "https"
	}
	return "http"
}

func newCmd(cfg *Config) *cobra.Command {
	v := viper.New()
	v.SetEnvPrefix("GYROARENA")
	v.SetEnvKeyReplacer(strings.NewReplacer("-", "_"))
	v.AutomaticEnv()

	cmd := &cobra.Command{
		Use:           "gyroarena",
		Short:         "A couch party game: phones become tilt controllers for a big-screen platformer.",
		Args:          cobra.ExactArgs(0),
		SilenceErrors: true,
		Version:       releaseVersion,
		RunE: func(cmd *cobra.Command, args []string) error {
			if err := cfg.validate(); err != nil {
				return err
			}
			if err := initLogger(cfg); err != nil {
				return err
			}
			defer syncLogger()
			return ServePage(cmd.Context(), cfg, args)
		},
	}

	fs := cmd.Flags()

	fs.SetNormalizeFunc(func(_ *pflag.FlagSet, name string) pflag.NormalizedName {
		return pflag.NormalizedName(strings.ReplaceAll(name, "_", "-"))
	})

	fs.StringVarP(&cfg.bind, "bind", "b", "0.0.0.0", "address to bind to (env: GYROARENA_BIND)")
	fs.DurationVar(&cfg.joinTimeout, "join-timeout", 5*time.Second, "time a controller waits for the host acknowledgement (env: GYROARENA_JOIN_TIMEOUT)")
	fs.StringVar(&cfg.logFile, "log-file", "gyroarena.log", "path to the rolling log file (env: GYROARENA_LOG_FILE)")
	fs.StringVar(&cfg.physicsProfile, "physics-profile", "snappy", "movement tuning profile, snappy or floaty (env: GYROARENA_PHYSICS_PROFILE)")
	fs.IntVarP(&cfg.port, "port", "p", 8080, "port to listen on (env: GYROARENA_PORT)")
	fs.StringVar(&cfg.prefix, "prefix", "", "path to prepend to all URLs, for use behind reverse proxy (env: GYROARENA_PREFIX)")
	fs.BoolVar(&cfg.profile, "profile", false, "register net/http/pprof handlers (env: GYROARENA_PROFILE)")
	fs.DurationVar(&cfg.sessionTimeout, "session-timeout", 60*time.Minute, "time before idle rooms are retired (env: GYROARENA_SESSION_TIMEOUT)")
	fs.StringVar(&cfg.tlsCert, "tls-cert", "", "path to tls certificate (env: GYROARENA_TLS_CERT)")
	fs.StringVar(&cfg.tlsKey, "tls-key", "", "path to tls keyfile (env: GYROARENA_TLS_KEY)")
	fs.StringVar(&cfg.transport, "transport", "row", "room transport backend, row or channel (env: GYROARENA_TRANSPORT)")
	fs.BoolVarP(&cfg.verbose, "verbose", "v", false, "tee logs to the console as well as the log file (env: GYROARENA_VERBOSE)")
	fs.BoolVarP(&cfg.version, "version", "V", false, "display version and exit (env: GYROARENA_VERSION)")

	fs.VisitAll(func(f *pflag.Flag) {
		_ = v.BindPFlag(f.Name, f)
		_ = v.BindEnv(f.Name)
		if !f.Changed && v.IsSet(f.Name) {
			_ = fs.Set(f.Name, fmt.Sprintf("%v", v.Get(f.Name)))
		}
	})

	cmd.CompletionOptions.HiddenDefaultCmd = true
	cmd.SetHelpCommand(&cobra.Command{Hidden: true})
	cmd.SetVersionTemplate("gyroarena v{{.Version}}\n")

	cmd.SilenceErrors = true
	cmd.SilenceUsage = true

	return cmd
}
