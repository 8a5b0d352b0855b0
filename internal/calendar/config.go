package calendar

import (
	"fmt"
	"time"

	"github.com/caarlos0/env/v11"
)

const CalendarScope = "https://www.googleapis.com/auth/calendar.events"

type Config struct {
	ClientID     string            `env:"SLOTDRAFT_GOOGLE_CLIENT_ID"`
	ClientSecret string            `env:"SLOTDRAFT_GOOGLE_CLIENT_SECRET"`
	RedirectURL  string            `env:"SLOTDRAFT_GOOGLE_REDIRECT_URL"  envDefault:"http://localhost"`
	TokenFile    string            `env:"SLOTDRAFT_GOOGLE_TOKEN_FILE"    envDefault:"calendar_token.json"`
	CalendarIDs  map[string]string `env:"SLOTDRAFT_CALENDAR_IDS"         envSeparator:"," envKeyValSeparator:"=" envDefault:"1F=q2ipgq5e47l7d9g24ibbq08avo@group.calendar.google.com,3F=cmhg0lmmdk66tmd9nc6ug7fob0@group.calendar.google.com"`
	TimeZone     string            `env:"SLOTDRAFT_TIMEZONE"             envDefault:"Asia/Seoul"`
	APIBase      string            `env:"SLOTDRAFT_CALENDAR_API_BASE"    envDefault:"https://www.googleapis.com/calendar/v3"`
	Timeout      time.Duration     `env:"SLOTDRAFT_CALENDAR_TIMEOUT"     envDefault:"10s"`
}

// LoadConfig reads calendar settings from the environment.
func LoadConfig() (Config, error) {
	var cfg Config
	if err := env.Parse(&cfg); err != nil {
		return Config{}, fmt.Errorf("parse calendar env: %w", err)
	}
	if cfg.Timeout <= 0 {
		cfg.Timeout = DefaultTimeout
	}
	return cfg, nil
}

func (c Config) Location() (*time.Location, error) {
	loc, err := time.LoadLocation(c.TimeZone)
	if err != nil {
		return nil, fmt.Errorf("load time zone %q: %w", c.TimeZone, err)
	}
	return loc, nil
}
