package app

import (
	"errors"
	"flag"
	"fmt"
	"io"
	"io/fs"
	"os"
	"strings"

	"github.com/go-playground/validator/v10"
	"github.com/joho/godotenv"
	"github.com/kelseyhightower/envconfig"
	"gopkg.in/yaml.v3"

	"github.com/roman-kulish/pipeline-latency/internal/frame"
	"github.com/roman-kulish/pipeline-latency/internal/latency"
	"github.com/roman-kulish/pipeline-latency/internal/schema"
	"github.com/roman-kulish/pipeline-latency/internal/source"
	"github.com/roman-kulish/pipeline-latency/internal/stats"
)

// EnvPrefix prefixes every environment variable read into Config.
const EnvPrefix = "LATENCY"

// Config is the run configuration. Values are layered: defaults, then the
// YAML file given with -c, then .env and the environment, then flags.
type Config struct {
	InputPath string `yaml:"-" ignored:"true" validate:"required"`

	Profile  string `yaml:"profile" envconfig:"PROFILE" validate:"required"`
	Table    string `yaml:"table" envconfig:"TABLE" validate:"required"`
	LogLevel string `yaml:"logLevel" envconfig:"LOG_LEVEL" validate:"oneof=debug info warn error"`
	Workers  int    `yaml:"workers" envconfig:"WORKERS" validate:"gte=0"`

	// Profile overrides.
	GlitchThreshold *float64          `yaml:"glitchThreshold" envconfig:"GLITCH_THRESHOLD" validate:"omitempty,gte=0"`
	TailPercentile  *stats.Percentile `yaml:"tailPercentile" ignored:"true"`
	DiffMode        *latency.DiffMode `yaml:"diffMode" ignored:"true"`
	WarmupFrames    *int              `yaml:"warmupFrames" envconfig:"WARMUP_FRAMES" validate:"omitempty,gte=0"`

	// Ceilings caps group roles by sample number, e.g. {"captures": 3}.
	Ceilings map[string]int `yaml:"ceilings" envconfig:"CEILINGS" validate:"dive,gte=0"`

	ClockJump ClockJumpConfig `yaml:"clockJump" envconfig:"CLOCK_JUMP"`

	// Profiles adds to or replaces the built-in profiles.
	Profiles []latency.Profile `yaml:"profiles" ignored:"true" validate:"dive"`
}

// profileEnv holds the overrides whose types decode through a pointer
// receiver. envconfig would call Decode on the nil pointer, so they are read
// as text and parsed afterwards.
type profileEnv struct {
	TailPercentile string `envconfig:"TAIL_PERCENTILE"`
	DiffMode       string `envconfig:"DIFF_MODE"`
}

// ClockJumpConfig configures the clock jump scan of the frame extractor.
type ClockJumpConfig struct {
	Enabled     bool    `yaml:"enabled" envconfig:"ENABLED"`
	Min         float64 `yaml:"min" envconfig:"MIN" validate:"gte=0"`
	Max         float64 `yaml:"max" envconfig:"MAX" validate:"gtfield=Min"`
	ContextRows int     `yaml:"contextRows" envconfig:"CONTEXT_ROWS" validate:"gte=0"`
	FromColumn  int     `yaml:"fromColumn" envconfig:"FROM_COLUMN" validate:"gte=0"`
	ToColumn    int     `yaml:"toColumn" envconfig:"TO_COLUMN" validate:"gte=0"`
}

func NewConfig() *Config {
	cj := frame.DefaultClockJumpConfig()

	return &Config{
		Profile:  latency.ProfileFiltered,
		Table:    source.DefaultTable,
		LogLevel: "info",
		ClockJump: ClockJumpConfig{
			Enabled:     true,
			Min:         cj.Min,
			Max:         cj.Max,
			ContextRows: cj.ContextRows,
			FromColumn:  cj.FromColumn,
			ToColumn:    cj.ToColumn,
		},
	}
}

// NewConfigFromCLI builds the configuration from os.Args.
func NewConfigFromCLI() (*Config, error) {
	return parseConfig(flag.CommandLine, os.Args[1:])
}

func parseConfig(flags *flag.FlagSet, args []string) (*Config, error) {
	var (
		configPath      string
		profile         string
		table           string
		logLevel        string
		workers         int
		glitchThreshold float64
		tailPercentile  stats.Percentile
		diffMode        latency.DiffMode
		warmupFrames    int
		noClockJumps    bool
	)
	flags.StringVar(&configPath, "c", "", "Path to the YAML configuration file")
	flags.StringVar(&profile, "profile", latency.ProfileFiltered, "Report profile. [filtered, legacy, or one defined in the configuration file]")
	flags.StringVar(&table, "table", source.DefaultTable, "Frame table of a SQLite capture database")
	flags.StringVar(&logLevel, "log-level", "info", "Log level. [debug, info, warn, error]")
	flags.IntVar(&workers, "workers", 0, "Extract rows on up to n goroutines; 0 or 1, or a log of at most 1024 rows, extracts sequentially")
	flags.Float64Var(&glitchThreshold, "glitch-threshold", 0, "Override the profile glitch threshold, in seconds (format n.nn)")
	flags.Var(&tailPercentile, "tail", "Override the profile tail percentile (format nn.n or pnn.n)")
	flags.Var(&diffMode, "diff-mode", "Override the profile diff mode. [row, adjacent]")
	flags.IntVar(&warmupFrames, "warmup", 0, "Override the number of leading frames left out of every series")
	flags.BoolVar(&noClockJumps, "no-clock-jumps", false, "Disable the clock jump scan")
	flags.Usage = func() {
		fmt.Fprintf(flags.Output(), "Usage: %s [flags] <frame log>\n", flags.Name())
		flags.PrintDefaults()
	}

	if err := flags.Parse(args); err != nil {
		return nil, err
	}

	c := NewConfig()
	if configPath != "" {
		if err := c.loadFile(configPath); err != nil {
			return nil, fmt.Errorf("failed to load configuration file: %w", err)
		}
	}

	if err := c.loadEnv(); err != nil {
		return nil, err
	}

	flags.Visit(func(f *flag.Flag) {
		switch f.Name {
		case "profile":
			c.Profile = profile
		case "table":
			c.Table = table
		case "log-level":
			c.LogLevel = logLevel
		case "workers":
			c.Workers = workers
		case "glitch-threshold":
			c.GlitchThreshold = &glitchThreshold
		case "tail":
			c.TailPercentile = &tailPercentile
		case "diff-mode":
			c.DiffMode = &diffMode
		case "warmup":
			c.WarmupFrames = &warmupFrames
		case "no-clock-jumps":
			c.ClockJump.Enabled = !noClockJumps
		}
	})

	var err error
	switch flags.NArg() {
	case 0:
		err = errors.New("frame log path is required")
	case 1:
		c.InputPath = flags.Arg(0)
	default:
		err = fmt.Errorf("exactly one frame log path expected, %d given", flags.NArg())
	}
	if err == nil {
		err = c.Validate()
	}

	if err != nil {
		flags.Usage()
		return nil, err
	}

	return c, nil
}

func (c *Config) loadFile(path string) (err error) {
	f, err := os.Open(path)
	if err != nil {
		return err
	}
	defer closeWithError(f, &err)

	return c.decodeYAML(f)
}

func (c *Config) decodeYAML(r io.Reader) error {
	dec := yaml.NewDecoder(r)
	dec.KnownFields(true)

	if err := dec.Decode(c); err != nil && !errors.Is(err, io.EOF) {
		return err
	}
	return nil
}

// loadEnv reads .env from the working directory when present, then applies
// LATENCY_* variables.
func (c *Config) loadEnv() error {
	if err := godotenv.Load(); err != nil && !errors.Is(err, fs.ErrNotExist) {
		return fmt.Errorf("failed to load .env: %w", err)
	}

	if err := envconfig.Process(EnvPrefix, c); err != nil {
		return fmt.Errorf("failed to load configuration from environment: %w", err)
	}

	var env profileEnv
	if err := envconfig.Process(EnvPrefix, &env); err != nil {
		return fmt.Errorf("failed to load configuration from environment: %w", err)
	}
	if env.TailPercentile != "" {
		p, err := stats.ParsePercentile(env.TailPercentile)
		if err != nil {
			return fmt.Errorf("%s_TAIL_PERCENTILE: %w", EnvPrefix, err)
		}
		c.TailPercentile = &p
	}
	if env.DiffMode != "" {
		m, err := latency.ParseDiffMode(env.DiffMode)
		if err != nil {
			return fmt.Errorf("%s_DIFF_MODE: %w", EnvPrefix, err)
		}
		c.DiffMode = &m
	}
	return nil
}

var validate = validator.New()

// Validate checks field constraints and that the selected profile and
// ceilings can be resolved.
func (c *Config) Validate() error {
	c.LogLevel = strings.ToLower(c.LogLevel)

	if err := validate.Struct(c); err != nil {
		return fmt.Errorf("invalid configuration: %w", err)
	}

	if c.TailPercentile != nil {
		if err := c.TailPercentile.Validate(); err != nil {
			return err
		}
	}

	if _, err := c.ceilings(); err != nil {
		return err
	}

	if _, err := c.ResolveProfile(); err != nil {
		return err
	}

	return nil
}

// ResolveProfile returns the selected profile with overrides applied.
func (c *Config) ResolveProfile() (latency.Profile, error) {
	profiles := latency.DefaultProfiles()
	if len(c.Profiles) > 0 {
		custom := make(latency.Profiles, len(c.Profiles))
		for _, p := range c.Profiles {
			if err := p.Validate(); err != nil {
				return latency.Profile{}, err
			}
			custom[p.Name] = p
		}
		profiles = profiles.Merge(custom)
	}

	p, err := profiles.Get(c.Profile)
	if err != nil {
		return latency.Profile{}, err
	}

	if c.GlitchThreshold != nil {
		p.GlitchThreshold = *c.GlitchThreshold
	}
	if c.TailPercentile != nil {
		p.TailPercentile = *c.TailPercentile
	}
	if c.DiffMode != nil {
		p.DiffMode = *c.DiffMode
	}
	if c.WarmupFrames != nil {
		p.WarmupFrames = *c.WarmupFrames
	}

	if err = p.Validate(); err != nil {
		return latency.Profile{}, err
	}
	return p, nil
}

// ceilings converts the configured ceilings into schema options.
func (c *Config) ceilings() ([]schema.Option, error) {
	var opts []schema.Option
	for name, n := range c.Ceilings {
		role, ok := schema.ParseRole(name)
		if !ok || !role.IsGroup() {
			return nil, fmt.Errorf("ceiling: %q is not a group role", name)
		}
		opts = append(opts, schema.WithCeiling(role, n))
	}
	return opts, nil
}

// clockJumps returns the extractor clock jump configuration, or nil when
// the scan is disabled.
func (c *Config) clockJumps() *frame.ClockJumpConfig {
	if !c.ClockJump.Enabled {
		return nil
	}
	return &frame.ClockJumpConfig{
		Min:         c.ClockJump.Min,
		Max:         c.ClockJump.Max,
		ContextRows: c.ClockJump.ContextRows,
		FromColumn:  c.ClockJump.FromColumn,
		ToColumn:    c.ClockJump.ToColumn,
	}
}

func closeWithError(cl interface{ Close() error }, err *error) {
	if cErr := cl.Close(); cErr != nil && *err == nil {
		*err = cErr
	}
}
