package main

import (
	"context"
	"errors"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
	"github.com/spf13/pflag"

	"balancedbook/analyze"
	"balancedbook/book"
	"balancedbook/commas"
	"balancedbook/config"
	"balancedbook/epd"
	"balancedbook/fen"
)

func main() {
	cfg, err := config.Load(os.Args[1:])
	if errors.Is(err, pflag.ErrHelp) {
		os.Exit(0)
	}
	if err != nil {
		fmt.Fprintf(os.Stderr, "%v\n", err)
		os.Exit(2)
	}

	level, err := zerolog.ParseLevel(cfg.LogLevel)
	if err != nil {
		fmt.Fprintf(os.Stderr, "bad log level %q\n", cfg.LogLevel)
		os.Exit(2)
	}
	zerolog.SetGlobalLevel(level)
	log.Logger = log.Output(zerolog.ConsoleWriter{Out: os.Stderr})

	if err := run(cfg); err != nil {
		log.Fatal().Err(err).Msg("book build failed")
	}
}

func run(cfg *config.Config) error {
	// both collaborators must exist before the stream opens
	if _, err := os.Stat(cfg.EnginePath); err != nil {
		return fmt.Errorf("engine executable: %w", err)
	}
	if _, err := os.Stat(cfg.PGNPath); err != nil {
		return fmt.Errorf("PGN archive: %w", err)
	}

	log.Info().
		Str("pgn", cfg.PGNPath).
		Str("output", cfg.OutputPath).
		Str("engine", cfg.EnginePath).
		Int("opening_ply", cfg.OpeningPly).
		Msg("starting book generation")

	pgnFile, err := os.Open(cfg.PGNPath)
	if err != nil {
		return fmt.Errorf("open PGN archive: %w", err)
	}
	defer pgnFile.Close()

	outFile, err := os.Create(cfg.OutputPath)
	if err != nil {
		return fmt.Errorf("create output file: %w", err)
	}
	defer outFile.Close()

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	sig := make(chan os.Signal, 1)
	signal.Notify(sig, os.Interrupt, syscall.SIGTERM)
	defer signal.Stop(sig)
	go func() {
		select {
		case <-sig:
			log.Info().Msg("got quit signal...")
			cancel()
		case <-ctx.Done():
		}
	}()

	gate := analyze.NewGatekeeper(cfg.EnginePath, cfg.Threshold)
	if err := gate.Start(ctx); err != nil {
		return fmt.Errorf("start engine: %w", err)
	}
	defer gate.Shutdown()

	writer := epd.NewWriter(outFile)
	selector := book.NewSelector(cfg.MinPly, cfg.MaxPly, cfg.OpeningPly, book.NewRNG(cfg.Seed))
	runner := book.NewRunner(book.Options{
		MaxGames: cfg.MaxGames,
		Target:   cfg.Target,
		MoveTime: cfg.MoveTime,
	}, selector, gate, writer)

	summary, err := runner.Run(ctx, fen.NewGameReader(pgnFile))

	log.Info().
		Str("games", commas.Int(summary.GamesProcessed)).
		Int("positions", summary.PositionsFound).
		Int("skipped", summary.SkippedGames).
		Int("relaunches", gate.Relaunches()).
		Dur("elapsed", summary.Elapsed).
		Msg("finished")

	if err != nil && !errors.Is(err, context.Canceled) {
		return err
	}

	if cfg.YAMLBook != "" {
		if err := writer.File().SaveAsYAML(cfg.YAMLBook); err != nil {
			return err
		}
		log.Info().Str("path", cfg.YAMLBook).Msg("YAML book saved")
	}

	log.Info().Str("path", cfg.OutputPath).Msg("book saved")
	return nil
}
