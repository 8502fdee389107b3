package ticksource

import (
	"context"
	"sync"

	"probedge/internal/models"
)

// TickStream is the narrow slice of broker.Ticker that Live needs: connect,
// subscribe, and register a callback. Kept separate from the broker
// package's interface so ticksource does not depend on the broker SDK's
// wider surface (orders, GTTs, holdings).
type TickStream interface {
	Connect(ctx context.Context) error
	Disconnect() error
	Subscribe(symbols []string) error
	RegisterSymbols(symbolTokens map[string]uint32)
	OnTick(handler func(models.RawTick))
	OnError(handler func(error))
	OnDisconnect(handler func())
}

// LiveConfig configures the bounded buffer between the broker's callback
// thread and whatever goroutine calls Next.
type LiveConfig struct {
	Symbols      []string
	SymbolTokens map[string]uint32
	BufferSize   int // default 256
}

// Live wraps a broker push feed behind the Source interface. Incoming
// ticks are buffered in a bounded channel; when the buffer is full the
// oldest buffered tick is dropped to make room for the newest one, since
// a stale quote is worthless once a fresher one has arrived — this is the
// drop-oldest backpressure policy spec.md calls for.
type Live struct {
	stream TickStream
	buf    chan models.RawTick

	mu     sync.Mutex
	closed bool
	errCh  chan error
}

// NewLive connects and subscribes to the given symbols, then returns a
// Source that streams ticks from the broker's callback thread.
func NewLive(ctx context.Context, stream TickStream, cfg LiveConfig) (*Live, error) {
	size := cfg.BufferSize
	if size <= 0 {
		size = 256
	}

	l := &Live{
		stream: stream,
		buf:    make(chan models.RawTick, size),
		errCh:  make(chan error, 1),
	}

	stream.RegisterSymbols(cfg.SymbolTokens)
	stream.OnTick(l.onTick)
	stream.OnError(l.onError)
	stream.OnDisconnect(func() {})

	if err := stream.Connect(ctx); err != nil {
		return nil, err
	}
	if err := stream.Subscribe(cfg.Symbols); err != nil {
		return nil, err
	}
	return l, nil
}

func (l *Live) onTick(tick models.RawTick) {
	select {
	case l.buf <- tick:
		return
	default:
	}
	// Buffer full: drop the oldest tick and make room for this one.
	select {
	case <-l.buf:
	default:
	}
	select {
	case l.buf <- tick:
	default:
	}
}

func (l *Live) onError(err error) {
	select {
	case l.errCh <- err:
	default:
	}
}

// Next returns the next buffered tick, a broker error surfaced via the
// callback thread, or ctx.Err() if the context is cancelled first.
func (l *Live) Next(ctx context.Context) (models.RawTick, error) {
	select {
	case tick := <-l.buf:
		return tick, nil
	case err := <-l.errCh:
		return models.RawTick{}, err
	case <-ctx.Done():
		return models.RawTick{}, ctx.Err()
	}
}

// Close disconnects the underlying broker stream.
func (l *Live) Close() error {
	l.mu.Lock()
	defer l.mu.Unlock()
	if l.closed {
		return nil
	}
	l.closed = true
	return l.stream.Disconnect()
}

// Mode always reports LIVE.
func (l *Live) Mode() models.RunMode { return models.ModeLive }
