package automaxprocs

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"runtime"

	"github.com/cockroachdb/errors"
	"github.com/gaze-network/ord-indexer/pkg/logger"
	"github.com/gaze-network/ord-indexer/pkg/logger/slogx"
	"go.uber.org/automaxprocs/maxprocs"
)

// Init sets GOMAXPROCS to the container CPU quota, if any. A GOMAXPROCS environment variable wins.
// It returns a function restoring the previous value.
func Init(ctx context.Context) (undo func(), err error) {
	prev := runtime.GOMAXPROCS(0)
	log := logger.FromContext(ctx).With(
		slogx.String("event", "set_gomaxprocs"),
		slogx.Int("prev_maxprocs", prev),
	)

	undo, err = maxprocs.Set(maxprocs.Min(1), maxprocs.Logger(func(format string, v ...any) {
		attrs := []slog.Attr{slogx.Int("maxprocs", runtime.GOMAXPROCS(0))}
		if _, ok := os.LookupEnv("GOMAXPROCS"); ok {
			attrs = append(attrs, slogx.Bool("from_env", true))
		}
		log.LogAttrs(ctx, slog.LevelInfo, fmt.Sprintf(format, v...), attrs...)
	}))
	if err != nil {
		return func() {}, errors.Wrap(err, "can't set GOMAXPROCS")
	}
	return undo, nil
}
