package app

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"

	"github.com/vk/refinery/internal/codec"
	"github.com/vk/refinery/internal/ctxlog"
	"github.com/vk/refinery/refinery"
)

// ErrEmptyInput is returned when the input document has no content.
var ErrEmptyInput = errors.New("input document is empty")

// Run reads the input document, refines it with the configured view and
// writes the result. in is read when the config selects standard input.
func (a *App) Run(ctx context.Context, in io.Reader) error {
	ctx = ctxlog.WithLogger(ctx, a.logger)
	a.logger.Debug("App.Run method started.")

	rels, err := refinery.ParseRelations(a.config.Bring...)
	if err != nil {
		return fmt.Errorf("parsing bring paths: %w", err)
	}
	ref, err := a.registry.Open(a.config.View, rels...)
	if err != nil {
		return err
	}
	a.logger.Debug("Refiner opened.", "view", a.config.View, "refiner", ref.Definition().Name(), "brought", ref.Brought())

	raw, err := a.readInput(in)
	if err != nil {
		return err
	}

	opts := []refinery.RefineOption{refinery.Concurrency(a.config.WorkerCount)}
	if a.config.RetainKeys {
		opts = append(opts, refinery.RetainKeys())
	}

	a.logger.Info("Refining input.", "view", a.config.View, "workers", a.config.WorkerCount, "retain_keys", a.config.RetainKeys)
	out, err := ref.Refine(ctx, raw, opts...)
	if err != nil {
		return fmt.Errorf("refine failed: %w", err)
	}

	if err := codec.Encode(a.outW, out, a.config.OutputFormat); err != nil {
		return fmt.Errorf("writing output: %w", err)
	}
	a.logger.Info("🏁 Refine finished.", "format", a.config.OutputFormat)
	return nil
}

func (a *App) readInput(in io.Reader) (any, error) {
	path := a.config.InputPath
	if path == "" || path == StdinPath {
		a.logger.Debug("Reading input from stdin.", "format", a.config.InputFormat)
		if in == nil {
			return nil, ErrEmptyInput
		}
		return a.decode(in)
	}

	a.logger.Debug("Reading input file.", "path", path, "format", a.config.InputFormat)
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("opening input: %w", err)
	}
	defer f.Close()
	return a.decode(f)
}

func (a *App) decode(r io.Reader) (any, error) {
	raw, err := codec.Decode(r, a.config.InputFormat)
	if err != nil {
		return nil, err
	}
	if raw == nil {
		return nil, ErrEmptyInput
	}
	return raw, nil
}
