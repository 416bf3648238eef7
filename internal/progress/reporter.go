// Package progress delivers per-window progress ticks and final import
// results to subscribers identified by an opaque run token.
package progress

import (
	"go.uber.org/zap"

	"github.com/sells-group/cadence-sync/internal/model"
)

// Reporter publishes progress for one import run. Delivery is
// fire-and-forget relative to the pipeline: implementations must never fail
// the run, only surface publish problems in their own way (typically a log
// line).
type Reporter interface {
	// Tick publishes one per-window progress message.
	Tick(token string, processed, total int)
	// Final publishes the single aggregated result message that ends the
	// stream for this token.
	Final(token string, result *model.ImportResult)
}

// NopReporter discards all messages. Used when no subscriber is listening.
type NopReporter struct{}

func (NopReporter) Tick(string, int, int) {}

func (NopReporter) Final(string, *model.ImportResult) {}

// LogReporter writes progress to the global logger. The CLI import commands
// use it so runs are observable without a streaming subscriber.
type LogReporter struct{}

func (LogReporter) Tick(token string, processed, total int) {
	zap.L().Info("import progress",
		zap.String("token", token),
		zap.Int("processed", processed),
		zap.Int("total", total),
	)
}

func (LogReporter) Final(token string, result *model.ImportResult) {
	zap.L().Info("import complete",
		zap.String("token", token),
		zap.Int("total_success", result.TotalSuccess),
		zap.Int("total_error", result.TotalError),
	)
}
