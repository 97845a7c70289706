package config

import (
	"context"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/DoyleJ11/spotshot-backend/internal/engine"
)

func execute(t *testing.T, args ...string) (*Config, error) {
	t.Helper()
	cfg := &Config{}
	var got *Config
	cmd := NewCommand(cfg, func(_ context.Context, c *Config) error {
		got = c
		return nil
	})
	cmd.SetArgs(append([]string{}, args...))
	err := cmd.Execute()
	return got, err
}

func TestDefaults(t *testing.T) {
	cfg, err := execute(t)
	require.NoError(t, err)

	assert.Equal(t, 8080, cfg.Port)
	assert.Equal(t, "info", cfg.LogLevel)
	assert.Equal(t, engine.DefaultRules(), cfg.Rules())
}

func TestFlagsOverrideDefaults(t *testing.T) {
	cfg, err := execute(t,
		"--port", "9000",
		"--grid_size", "8",
		"--time-limit", "20s",
		"--shapes", "line,ell",
		"--disconnect-policy", "reopen",
		"--shooter-sees-result",
	)
	require.NoError(t, err)

	r := cfg.Rules()
	assert.Equal(t, 9000, cfg.Port)
	assert.Equal(t, 8, r.GridSize)
	assert.Equal(t, 20*time.Second, r.TimeLimit)
	assert.Equal(t, []string{"line", "ell"}, r.Shapes)
	assert.Equal(t, engine.PolicyReopen, r.Disconnect)
	assert.True(t, r.ShooterSeesResult)
}

func TestEnvironment(t *testing.T) {
	t.Setenv("SPOTSHOT_CLICK_LIMIT", "7")
	t.Setenv("SPOTSHOT_ROUNDS", "2")
	t.Setenv("SPOTSHOT_PORT", "7000")

	cfg, err := execute(t, "--port", "7001")
	require.NoError(t, err)

	assert.Equal(t, 7, cfg.ClickLimit)
	assert.Equal(t, 2, cfg.MaxLevels)
	assert.Equal(t, 7001, cfg.Port, "command line wins over environment")
}

func TestLoadDotEnv(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "test.env")
	require.NoError(t, os.WriteFile(path, []byte("SPOTSHOT_NUM_OBJECTS=2\n"), 0o600))
	t.Setenv("SPOTSHOT_NUM_OBJECTS", "")
	require.NoError(t, os.Unsetenv("SPOTSHOT_NUM_OBJECTS"))

	require.NoError(t, LoadDotEnv(path, filepath.Join(dir, "missing.env")))

	cfg, err := execute(t)
	require.NoError(t, err)
	assert.Equal(t, 2, cfg.NumObjects)
}

func TestValidate(t *testing.T) {
	cases := []struct {
		name   string
		mutate func(*Config)
		ok     bool
	}{
		{"defaults", func(*Config) {}, true},
		{"bad port", func(c *Config) { c.Port = 0 }, false},
		{"bad log level", func(c *Config) { c.LogLevel = "loud" }, false},
		{"negative ttl", func(c *Config) { c.SessionTTL = -time.Second }, false},
		{"relative public url", func(c *Config) { c.PublicURL = "/play" }, false},
		{"absolute public url", func(c *Config) { c.PublicURL = "https://spotshot.example" }, true},
		{"unknown shape", func(c *Config) { c.Shapes = []string{"hexagon"} }, false},
		{"unknown policy", func(c *Config) { c.DisconnectPolicy = "kick" }, false},
		{"grid too crowded", func(c *Config) { c.GridSize = 5; c.NumObjects = 3 }, false},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			cfg, err := execute(t)
			require.NoError(t, err)
			tc.mutate(cfg)
			if tc.ok {
				assert.NoError(t, cfg.Validate())
			} else {
				assert.Error(t, cfg.Validate())
			}
		})
	}
}
