// Package broker provides broker integration interfaces and implementations.
// probedge only ever reads market data from the broker and streams ticks
// from it; all order execution is simulated in internal/paperengine, so
// the order/GTT/holdings/options surface of a full Kite wrapper has no
// home here.
package broker

import (
	"context"

	"probedge/internal/models"
)

// Broker defines the market-data operations probedge needs from a broker.
type Broker interface {
	GetQuote(ctx context.Context, symbol string) (*models.Quote, error)
	GetInstrumentToken(ctx context.Context, symbol string, exchange models.Exchange) (uint32, error)
	GetInstruments(ctx context.Context, exchange models.Exchange) ([]models.Instrument, error)
}

// Ticker defines the interface for real-time market data streaming. It
// satisfies internal/ticksource.TickStream.
type Ticker interface {
	Connect(ctx context.Context) error
	Disconnect() error
	Subscribe(symbols []string) error
	RegisterSymbols(symbolTokens map[string]uint32)
	OnTick(handler func(models.RawTick))
	OnError(handler func(error))
	OnDisconnect(handler func())
}
