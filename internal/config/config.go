package config

import (
	"context"
	"errors"
	"fmt"
	"io/fs"
	"net/url"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/spf13/cobra"
	"github.com/spf13/pflag"
	"github.com/spf13/viper"
	"go.uber.org/zap/zapcore"

	"github.com/DoyleJ11/spotshot-backend/internal/engine"
)

const EnvPrefix = "SPOTSHOT"

type Config struct {
	Bind           string
	Port           int
	PublicURL      string
	LogLevel       string
	DatabaseURL    string
	SessionTTL     time.Duration
	ReadTimeout    time.Duration
	OriginPatterns []string
	ResultBuffer   int

	GridSize          int
	ClickLimit        int
	TimeLimit         time.Duration
	NumObjects        int
	MaxLevels         int
	Shapes            []string
	ObjectsPerLevel   int
	ClicksPerLevel    int
	MinClickLimit     int
	ShooterSeesResult bool
	DisconnectPolicy  string
}

// LoadDotEnv copies variables from the given files (default .env) into the
// process environment. Missing files are ignored; variables already set win.
func LoadDotEnv(files ...string) error {
	if len(files) == 0 {
		files = []string{".env"}
	}
	for _, f := range files {
		if err := godotenv.Load(f); err != nil && !errors.Is(err, fs.ErrNotExist) {
			return fmt.Errorf("load %s: %w", f, err)
		}
	}
	return nil
}

func (c *Config) Rules() engine.Rules {
	return engine.Rules{
		GridSize:          c.GridSize,
		ClickLimit:        c.ClickLimit,
		TimeLimit:         c.TimeLimit,
		NumObjects:        c.NumObjects,
		MaxLevels:         c.MaxLevels,
		Shapes:            append([]string(nil), c.Shapes...),
		ObjectsPerLevel:   c.ObjectsPerLevel,
		ClicksPerLevel:    c.ClicksPerLevel,
		MinClickLimit:     c.MinClickLimit,
		ShooterSeesResult: c.ShooterSeesResult,
		Disconnect:        engine.DisconnectPolicy(c.DisconnectPolicy),
	}
}

func (c *Config) Validate() error {
	if c.Port < 1 || c.Port > 65535 {
		return fmt.Errorf("invalid port (must be between 1-65535 inclusive): %d", c.Port)
	}
	if _, err := zapcore.ParseLevel(c.LogLevel); err != nil {
		return fmt.Errorf("invalid log level: %w", err)
	}
	if c.SessionTTL < 0 || c.ReadTimeout < 0 {
		return errors.New("timeouts cannot be negative")
	}
	if c.ResultBuffer < 1 {
		return fmt.Errorf("result buffer must be positive: %d", c.ResultBuffer)
	}
	if c.PublicURL != "" {
		u, err := url.Parse(c.PublicURL)
		if err != nil || u.Scheme == "" || u.Host == "" {
			return fmt.Errorf("invalid public url: %q", c.PublicURL)
		}
	}

	rules := c.Rules()
	if err := rules.Validate(); err != nil {
		return err
	}
	return rules.CheckPlacement()
}

// NewCommand builds the root command. Every flag can also be set through a
// SPOTSHOT_ prefixed environment variable; flags given on the command line
// take precedence.
func NewCommand(cfg *Config, run func(ctx context.Context, cfg *Config) error) *cobra.Command {
	v := viper.New()
	v.SetEnvPrefix(EnvPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer("-", "_"))
	v.AutomaticEnv()

	cmd := &cobra.Command{
		Use:   "spotshot",
		Short: "Cooperative spotter/shooter grid game server.",
		Args:  cobra.ExactArgs(0),
		RunE: func(cmd *cobra.Command, args []string) error {
			if err := cfg.Validate(); err != nil {
				return err
			}
			return run(cmd.Context(), cfg)
		},
	}

	fs := cmd.Flags()

	fs.SetNormalizeFunc(func(_ *pflag.FlagSet, name string) pflag.NormalizedName {
		return pflag.NormalizedName(strings.ReplaceAll(name, "_", "-"))
	})

	def := engine.DefaultRules()

	fs.StringVarP(&cfg.Bind, "bind", "b", "0.0.0.0", "address to bind to (env: SPOTSHOT_BIND)")
	fs.IntVarP(&cfg.Port, "port", "p", 8080, "port to listen on (env: SPOTSHOT_PORT)")
	fs.StringVar(&cfg.PublicURL, "public-url", "", "externally visible base url, encoded in invite codes (env: SPOTSHOT_PUBLIC_URL)")
	fs.StringVar(&cfg.LogLevel, "log-level", "info", "debug, info, warn or error (env: SPOTSHOT_LOG_LEVEL)")
	fs.StringVar(&cfg.DatabaseURL, "database-url", "", "postgres dsn for finished games; in-memory when empty (env: SPOTSHOT_DATABASE_URL)")
	fs.DurationVar(&cfg.SessionTTL, "session-ttl", 30*time.Minute, "time before sessions nobody is connected to are ended, 0 to keep them (env: SPOTSHOT_SESSION_TTL)")
	fs.DurationVar(&cfg.ReadTimeout, "read-timeout", 10*time.Minute, "close connections idle for this long, 0 to never (env: SPOTSHOT_READ_TIMEOUT)")
	fs.StringSliceVar(&cfg.OriginPatterns, "origin", nil, "extra websocket origin patterns to accept (env: SPOTSHOT_ORIGIN)")
	fs.IntVar(&cfg.ResultBuffer, "result-buffer", 64, "finished games queued for saving before new ones are dropped (env: SPOTSHOT_RESULT_BUFFER)")

	fs.IntVar(&cfg.GridSize, "grid-size", def.GridSize, "board width and height (env: SPOTSHOT_GRID_SIZE)")
	fs.IntVar(&cfg.ClickLimit, "click-limit", def.ClickLimit, "shots per turn (env: SPOTSHOT_CLICK_LIMIT)")
	fs.DurationVar(&cfg.TimeLimit, "time-limit", def.TimeLimit, "time per turn, started by the first shot (env: SPOTSHOT_TIME_LIMIT)")
	fs.IntVar(&cfg.NumObjects, "num-objects", def.NumObjects, "hidden objects on the first level (env: SPOTSHOT_NUM_OBJECTS)")
	fs.IntVar(&cfg.MaxLevels, "rounds", def.MaxLevels, "levels per game (env: SPOTSHOT_ROUNDS)")
	fs.StringSliceVar(&cfg.Shapes, "shapes", def.Shapes, "object shapes to place (env: SPOTSHOT_SHAPES)")
	fs.IntVar(&cfg.ObjectsPerLevel, "objects-per-level", def.ObjectsPerLevel, "extra objects added each level (env: SPOTSHOT_OBJECTS_PER_LEVEL)")
	fs.IntVar(&cfg.ClicksPerLevel, "clicks-per-level", def.ClicksPerLevel, "shots removed each level (env: SPOTSHOT_CLICKS_PER_LEVEL)")
	fs.IntVar(&cfg.MinClickLimit, "min-click-limit", def.MinClickLimit, "floor for the per-level shot count (env: SPOTSHOT_MIN_CLICK_LIMIT)")
	fs.BoolVar(&cfg.ShooterSeesResult, "shooter-sees-result", def.ShooterSeesResult, "show hits and misses to the shooter (env: SPOTSHOT_SHOOTER_SEES_RESULT)")
	fs.StringVar(&cfg.DisconnectPolicy, "disconnect-policy", string(def.Disconnect), "hold or reopen a dropped player's seat (env: SPOTSHOT_DISCONNECT_POLICY)")

	fs.VisitAll(func(f *pflag.Flag) {
		_ = v.BindPFlag(f.Name, f)
		_ = v.BindEnv(f.Name)
		if !f.Changed && v.IsSet(f.Name) {
			_ = fs.Set(f.Name, fmt.Sprintf("%v", v.Get(f.Name)))
		}
	})

	cmd.CompletionOptions.HiddenDefaultCmd = true
	cmd.SetHelpCommand(&cobra.Command{Hidden: true})

	cmd.SilenceErrors = true
	cmd.SilenceUsage = true

	return cmd
}
