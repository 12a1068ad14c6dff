// Package config holds the pipeline's configuration surface: pflag
// flags layered over an optional YAML config file via viper. Every
// knob has a documented default.
package config

import (
	"errors"
	"fmt"
	"time"

	"github.com/spf13/pflag"
	"github.com/spf13/viper"
)

// Defaults match the historical book-building runs.
const (
	DefaultPGNPath    = "lichess_db_standard_rated_2014-10.pgn"
	DefaultOutputPath = "balanced_book.epd"
	DefaultEnginePath = "/usr/games/stockfish"

	DefaultMaxGames = 200000
	DefaultTarget   = 1000

	DefaultMinPly     = 16
	DefaultMaxPly     = 40
	DefaultOpeningPly = 12

	DefaultMoveTime  = 100 * time.Millisecond
	DefaultThreshold = 50
)

type Config struct {
	PGNPath    string `mapstructure:"pgn"`
	OutputPath string `mapstructure:"output"`
	YAMLBook   string `mapstructure:"yaml-book"`
	EnginePath string `mapstructure:"engine"`

	MaxGames int `mapstructure:"max-games"`
	Target   int `mapstructure:"target"`

	MinPly     int `mapstructure:"min-ply"`
	MaxPly     int `mapstructure:"max-ply"`
	OpeningPly int `mapstructure:"opening-ply"`

	MoveTime  time.Duration `mapstructure:"move-time"`
	Threshold int           `mapstructure:"threshold"`

	Seed     string `mapstructure:"seed"`
	LogLevel string `mapstructure:"log-level"`
}

// Load parses flags, merges in the optional config file, validates and
// returns the configuration. Flag values set explicitly win over the
// config file, which wins over defaults.
func Load(args []string) (*Config, error) {
	fs := pflag.NewFlagSet("balancedbook", pflag.ContinueOnError)

	fs.String("pgn", DefaultPGNPath, "path to the PGN game archive")
	fs.String("output", DefaultOutputPath, "path for the output EPD file")
	fs.String("yaml-book", "", "optional path for a YAML copy of the book")
	fs.String("engine", DefaultEnginePath, "path to the UCI engine executable")
	fs.Int("max-games", DefaultMaxGames, "maximum number of games to process")
	fs.Int("target", DefaultTarget, "number of balanced positions to find")
	fs.Int("min-ply", DefaultMinPly, "minimum truncation ply")
	fs.Int("max-ply", DefaultMaxPly, "maximum truncation ply")
	fs.Int("opening-ply", DefaultOpeningPly, "opening fingerprint depth in half-moves")
	fs.Duration("move-time", DefaultMoveTime, "engine time budget per evaluation")
	fs.Int("threshold", DefaultThreshold, "balanced score threshold in centipawns")
	fs.String("seed", "", "RNG seed for reproducible ply selection (empty = random)")
	fs.String("log-level", "info", "log level (debug, info, warn, error)")
	configPath := fs.String("config", "", "optional YAML config file")

	if err := fs.Parse(args); err != nil {
		return nil, err
	}

	v := viper.New()
	if err := v.BindPFlags(fs); err != nil {
		return nil, err
	}

	if *configPath != "" {
		v.SetConfigFile(*configPath)
		if err := v.ReadInConfig(); err != nil {
			return nil, fmt.Errorf("read config file: %w", err)
		}
	}

	var c Config
	if err := v.Unmarshal(&c); err != nil {
		return nil, fmt.Errorf("unmarshal config: %w", err)
	}

	if err := c.Validate(); err != nil {
		return nil, err
	}
	return &c, nil
}

func (c *Config) Validate() error {
	if c.PGNPath == "" || c.OutputPath == "" || c.EnginePath == "" {
		return errors.New("pgn, output and engine paths must be set")
	}
	if c.MaxGames <= 0 || c.Target <= 0 {
		return errors.New("max-games and target must be positive")
	}
	if c.OpeningPly <= 0 {
		return errors.New("opening-ply must be positive")
	}
	if c.OpeningPly > c.MinPly {
		return fmt.Errorf("opening-ply (%d) must not exceed min-ply (%d)", c.OpeningPly, c.MinPly)
	}
	if c.MinPly > c.MaxPly {
		return fmt.Errorf("min-ply (%d) must not exceed max-ply (%d)", c.MinPly, c.MaxPly)
	}
	if c.MoveTime <= 0 {
		return errors.New("move-time must be positive")
	}
	if c.Threshold < 0 {
		return errors.New("threshold must not be negative")
	}
	return nil
}
