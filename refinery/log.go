package refinery

import (
	"context"
	"log/slog"

	"github.com/vk/refinery/internal/ctxlog"
)

// WithLogger returns a copy of ctx that makes Refine log to logger. Without
// it the engine logs to slog.Default().
func WithLogger(ctx context.Context, logger *slog.Logger) context.Context {
	return ctxlog.WithLogger(ctx, logger)
}
