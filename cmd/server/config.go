package main

import (
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/spf13/cobra"
	"github.com/spf13/pflag"
	"github.com/spf13/viper"

	"github.com/DoyleJ11/slot-draft-backend/internal/calendar"
	"github.com/DoyleJ11/slot-draft-backend/internal/slot"
)

type Config struct {
	bind              string
	port              int
	names             string
	admin             string
	weekMode          int
	commitConcurrency int
	calendarTimeout   time.Duration
	publicURL         string
	origins           []string
	verbose           bool
}

func (c *Config) validate() error {
	if c.port < 1 || c.port > 65535 {
		return fmt.Errorf("invalid port (must be between 1-65535 inclusive): %d", c.port)
	}
	if _, err := slot.ParseWeekMode(c.weekMode); err != nil {
		return fmt.Errorf("--week-mode: %w", err)
	}
	if c.commitConcurrency < 1 {
		return errors.New("--commit-concurrency must be at least 1")
	}
	if c.calendarTimeout <= 0 {
		return errors.New("--calendar-timeout must be positive")
	}
	return nil
}

func newCmd(cfg *Config) *cobra.Command {
	v := viper.New()
	v.SetEnvPrefix("SLOTDRAFT")
	v.SetEnvKeyReplacer(strings.NewReplacer("-", "_"))
	v.AutomaticEnv()

	cmd := &cobra.Command{
		Use:     "slot-draft",
		Short:   "Turn-based room slot booking board with calendar commit.",
		Args:    cobra.ExactArgs(0),
		Version: releaseVersion,
		RunE: func(cmd *cobra.Command, args []string) error {
			if err := cfg.validate(); err != nil {
				return err
			}
			return serve(cmd.Context(), cfg)
		},
	}

	fs := cmd.Flags()

	fs.SetNormalizeFunc(func(_ *pflag.FlagSet, name string) pflag.NormalizedName {
		return pflag.NormalizedName(strings.ReplaceAll(name, "_", "-"))
	})

	fs.StringVarP(&cfg.bind, "bind", "b", "0.0.0.0", "address to bind to (env: SLOTDRAFT_BIND)")
	fs.IntVarP(&cfg.port, "port", "p", 8000, "port to listen on (env: SLOTDRAFT_PORT)")
	fs.StringVar(&cfg.names, "names", "", "YAML file mapping display names to initials; built-in list if empty (env: SLOTDRAFT_NAMES)")
	fs.StringVar(&cfg.admin, "admin", "", "display name allowed to delete and manually add slots (env: SLOTDRAFT_ADMIN)")
	fs.IntVar(&cfg.weekMode, "week-mode", int(slot.DefaultWeekMode), "starting week: 0 this week, 1 next week, 2 the week after (env: SLOTDRAFT_WEEK_MODE)")
	fs.IntVar(&cfg.commitConcurrency, "commit-concurrency", 4, "calendar inserts run in parallel during a commit (env: SLOTDRAFT_COMMIT_CONCURRENCY)")
	fs.DurationVar(&cfg.calendarTimeout, "calendar-timeout", calendar.DefaultTimeout, "time limit for one calendar insert (env: SLOTDRAFT_CALENDAR_TIMEOUT)")
	fs.StringVar(&cfg.publicURL, "public-url", "", "board address encoded by /qr; derived from the request if empty (env: SLOTDRAFT_PUBLIC_URL)")
	fs.StringSliceVar(&cfg.origins, "origins", nil, "extra websocket origin patterns, e.g. localhost:* (env: SLOTDRAFT_ORIGINS)")
	fs.BoolVarP(&cfg.verbose, "verbose", "v", false, "display additional output (env: SLOTDRAFT_VERBOSE)")

	fs.VisitAll(func(f *pflag.Flag) {
		_ = v.BindPFlag(f.Name, f)
		_ = v.BindEnv(f.Name)
		if !f.Changed && v.IsSet(f.Name) {
			_ = fs.Set(f.Name, fmt.Sprintf("%v", v.Get(f.Name)))
		}
	})

	cmd.AddCommand(newAuthorizeCmd())

	cmd.CompletionOptions.HiddenDefaultCmd = true
	cmd.SetHelpCommand(&cobra.Command{Hidden: true})
	cmd.SetVersionTemplate("slot-draft v{{.Version}}\n")

	cmd.SilenceErrors = true
	cmd.SilenceUsage = true

	return cmd
}
