package app

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"os"
	"time"

	"github.com/dustin/go-humanize"

	"github.com/roman-kulish/pipeline-latency/internal/frame"
	"github.com/roman-kulish/pipeline-latency/internal/latency"
	"github.com/roman-kulish/pipeline-latency/internal/report"
	"github.com/roman-kulish/pipeline-latency/internal/schema"
	"github.com/roman-kulish/pipeline-latency/internal/source"
)

// Run analyses the frame log and writes the report to stdout.
func Run(ctx context.Context, config *Config, logger *slog.Logger) error {
	return run(ctx, config, logger, os.Stdout)
}

func run(ctx context.Context, config *Config, logger *slog.Logger, out io.Writer) error {
	if _, err := os.Stat(config.InputPath); err != nil && os.IsNotExist(err) {
		return fmt.Errorf("frame log '%s' does not exist: %w", config.InputPath, err)
	}

	started := time.Now()

	profile, err := config.ResolveProfile()
	if err != nil {
		return err
	}

	src, err := source.Open(config.InputPath, source.WithTable(config.Table), source.WithLogger(logger))
	if err != nil {
		return err
	}
	defer src.Close()

	table, err := src.Read(ctx)
	if err != nil {
		return err
	}

	schemaOpts, err := config.ceilings()
	if err != nil {
		return err
	}
	schemaOpts = append(schemaOpts,
		schema.WithLogger(logger),
		schema.WithRequiredGroups(schema.Timestamps))

	s, err := schema.Resolve(table.Header, schemaOpts...)
	if err != nil {
		return fmt.Errorf("resolving schema: %w", err)
	}

	logger.Info("schema resolved",
		slog.Int("columns", len(table.Header)),
		slog.Int("unknown", len(s.Unknown())),
		slog.Bool("upload", s.HasUpload()))

	extractOpts := []frame.Option{
		frame.WithLogger(logger),
		frame.WithWorkers(config.Workers),
	}
	if cj := config.clockJumps(); cj != nil {
		extractOpts = append(extractOpts, frame.WithClockJumps(*cj))
	}

	records, err := frame.NewExtractor(s, extractOpts...).ExtractAll(ctx, table.Rows)
	if err != nil {
		return fmt.Errorf("extracting frames: %w", err)
	}

	rep, err := latency.NewAggregator(profile, latency.WithLogger(logger)).Aggregate(s, records)
	if err != nil {
		return err
	}

	if err = report.Write(out, rep); err != nil {
		return fmt.Errorf("writing report: %w", err)
	}

	logger.Info("run finished",
		slog.String("profile", profile.Name),
		slog.String("frames", humanize.Comma(int64(len(records)))),
		slog.Int("lines", len(rep.Lines)),
		slog.String("elapsed", time.Since(started).Round(time.Millisecond).String()))

	return nil
}
