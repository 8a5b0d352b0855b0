package main

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNewCmd_EnvOverridesDefaults(t *testing.T) {
	t.Setenv("SLOTDRAFT_PORT", "9090")
	t.Setenv("SLOTDRAFT_ADMIN", "성현")
	t.Setenv("SLOTDRAFT_WEEK_MODE", "2")

	cfg := &Config{}
	newCmd(cfg)

	assert.Equal(t, 9090, cfg.port)
	assert.Equal(t, "성현", cfg.admin)
	assert.Equal(t, 2, cfg.weekMode)
	assert.Equal(t, 4, cfg.commitConcurrency)
	assert.Equal(t, 10*time.Second, cfg.calendarTimeout)
	require.NoError(t, cfg.validate())
}

func TestConfigValidate(t *testing.T) {
	valid := Config{port: 8000, weekMode: 1, commitConcurrency: 1, calendarTimeout: time.Second}
	require.NoError(t, valid.validate())

	cases := map[string]func(c *Config){
		"port":        func(c *Config) { c.port = 0 },
		"week mode":   func(c *Config) { c.weekMode = 3 },
		"concurrency": func(c *Config) { c.commitConcurrency = 0 },
		"timeout":     func(c *Config) { c.calendarTimeout = 0 },
	}
	for name, mutate := range cases {
		t.Run(name, func(t *testing.T) {
			c := valid
			mutate(&c)
			assert.Error(t, c.validate())
		})
	}
}

func TestCalendarConfig_UsesFlagTimeout(t *testing.T) {
	t.Setenv("SLOTDRAFT_CALENDAR_TIMEOUT", "10s")

	calCfg, err := calendarConfig(&Config{calendarTimeout: 30 * time.Second})
	require.NoError(t, err)
	assert.Equal(t, 30*time.Second, calCfg.Timeout)
}

func TestAuthCode(t *testing.T) {
	cases := []struct {
		in      string
		want    string
		wantErr bool
	}{
		{in: "4/abc", want: "4/abc"},
		{in: "  4/abc\n", want: "4/abc"},
		{in: "http://localhost/?state=x&code=4%2Fxyz&scope=s", want: "4/xyz"},
		{in: "http://localhost/?state=x", wantErr: true},
		{in: "http://localhost/?state=y&code=4%2Fxyz&scope=s", wantErr: true},
		{in: "http://localhost/?code=4%2Fxyz", wantErr: true},
		{in: "", wantErr: true},
	}
	for _, tc := range cases {
		got, err := authCode(tc.in, "x")
		if tc.wantErr {
			assert.Error(t, err, tc.in)
			continue
		}
		require.NoError(t, err, tc.in)
		assert.Equal(t, tc.want, got)
	}
}
