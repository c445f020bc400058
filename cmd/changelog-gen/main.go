// Package main implements changelog-gen, a CLI that converts a Model, Diff,
// or Mapping MDF document into Cypher changelog text.
package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"syscall"

	"github.com/bentomdb/graphchangelog/engine/changelog"
	"github.com/bentomdb/graphchangelog/engine/diff"
	"github.com/bentomdb/graphchangelog/engine/mapper"
	"github.com/bentomdb/graphchangelog/engine/mapping"
	"github.com/bentomdb/graphchangelog/engine/model"
)

// Config holds all environment-based configuration.
type Config struct {
	Author      string
	Commit      string
	ConfigFile  string
}

func loadConfig() Config {
	return Config{
		Author:     envOr("CHANGELOG_AUTHOR", "changelog-gen"),
		Commit:     envOr("CHANGELOG_COMMIT", ""),
		ConfigFile: envOr("CHANGELOG_CONFIG", "changelog.ini"),
	}
}

func envOr(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}

func main() {
	logger := slog.New(slog.NewJSONHandler(os.Stderr, &slog.HandlerOptions{Level: slog.LevelInfo}))
	slog.SetDefault(logger)

	if err := run(os.Args[1:], loadConfig(), logger, os.Stdout); err != nil {
		logger.Error("changelog-gen exited with error", "err", err)
		os.Exit(1)
	}
}

func run(args []string, cfg Config, logger *slog.Logger, out *os.File) error {
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	if len(args) == 0 {
		return errors.New("usage: changelog-gen <model|diff|mapping> -in <path>")
	}

	fs := flag.NewFlagSet(args[0], flag.ExitOnError)
	inPath := fs.String("in", "", "path to the input document")
	if err := fs.Parse(args[1:]); err != nil {
		return err
	}
	if *inPath == "" {
		return fmt.Errorf("changelog-gen %s: -in is required", args[0])
	}

	seq, err := changelog.NewChangesetIDSequence(cfg.ConfigFile)
	if err != nil {
		return fmt.Errorf("load changeset sequence: %w", err)
	}

	var cl *changelog.Changelog
	switch args[0] {
	case "model":
		cl, err = runModel(ctx, *inPath, cfg, seq)
	case "diff":
		cl, err = runDiff(ctx, *inPath, cfg, seq)
	case "mapping":
		cl, err = runMapping(ctx, *inPath, cfg, seq)
	default:
		return fmt.Errorf("changelog-gen: unknown subcommand %q", args[0])
	}
	if err != nil {
		return err
	}

	logger.Info("changelog generated", "subcommand", args[0], "changesets", cl.Len())
	return writeChangelog(out, cl)
}

func runModel(_ context.Context, path string, cfg Config, seq *changelog.ChangesetIDSequence) (*changelog.Changelog, error) {
	doc, err := model.LoadDoc(path)
	if err != nil {
		return nil, err
	}
	m, err := doc.ToModel()
	if err != nil {
		return nil, err
	}
	conv := mapper.NewConverter(m, cfg.Author, cfg.Commit)
	return conv.Convert(seq)
}

func runDiff(_ context.Context, path string, cfg Config, seq *changelog.ChangesetIDSequence) (*changelog.Changelog, error) {
	doc, err := diff.LoadDoc(path)
	if err != nil {
		return nil, err
	}
	d, err := doc.ToDiff()
	if err != nil {
		return nil, err
	}
	splitter := diff.NewSplitter(d)
	return splitter.ConvertDiffToChangelog(cfg.Author, seq)
}

func runMapping(_ context.Context, path string, cfg Config, seq *changelog.ChangesetIDSequence) (*changelog.Changelog, error) {
	return mapping.ConvertMappingsToChangelog(path, cfg.Author, cfg.Commit, seq)
}

func writeChangelog(out *os.File, cl *changelog.Changelog) error {
	for _, cs := range cl.Changesets {
		fmt.Fprintf(out, "-- changeset %s:%s\n", cs.Author, cs.ID)
		fmt.Fprintln(out, cs.Change.Text)
		if cs.Change.HasRollback() {
			fmt.Fprintf(out, "-- rollback %s\n", cs.Change.RollbackText)
		}
		fmt.Fprintln(out)
	}
	return nil
}
