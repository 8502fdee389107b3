// Package ticksource supplies the single capability every downstream
// component consumes: a sequence of ticks. Two implementations back the
// same interface — Live, which subscribes to the broker's push feed, and
// Replay, which synthesizes a deterministic tick sequence from a 5-minute
// OHLCV CSV so a backtest run produces byte-identical output twice.
package ticksource

import (
	"context"
	"errors"

	"probedge/internal/models"
)

// ErrEndOfStream is returned by Next once a source has no more ticks to
// give, e.g. a Replay source has exhausted its CSVs.
var ErrEndOfStream = errors.New("ticksource: end of stream")

// Source is the capability every tick producer implements.
type Source interface {
	// Next blocks until a tick is available, ctx is cancelled, or the
	// stream ends (ErrEndOfStream).
	Next(ctx context.Context) (models.RawTick, error)
	// Close releases the source's underlying connection or file handles.
	Close() error
	// Mode reports the run mode this source feeds into snapshot metadata.
	Mode() models.RunMode
}
