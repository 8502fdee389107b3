package broker

import (
	"context"
	"fmt"
	"math"
	"sync"
	"time"

	kitemodels "github.com/zerodha/gokiteconnect/v4/models"
	kiteticker "github.com/zerodha/gokiteconnect/v4/ticker"

	"probedge/internal/models"
)

// ZerodhaTicker implements Ticker for Zerodha's WebSocket tick stream. It
// reconnects with exponential backoff and resubscribes to every token it
// was previously watching, since a dropped connection must not silently
// stop the bar aggregator.
type ZerodhaTicker struct {
	ticker      *kiteticker.Ticker
	apiKey      string
	accessToken string

	onTick       func(models.RawTick)
	onError      func(error)
	onDisconnect func()

	connected    bool
	reconnecting bool
	subscribed   map[uint32]struct{}
	symbolTokens map[string]uint32
	tokenSymbols map[uint32]string

	maxRetries int
	baseDelay  time.Duration

	mu      sync.RWMutex
	writeMu sync.Mutex
}

// ZerodhaTickerConfig holds configuration for the ticker.
type ZerodhaTickerConfig struct {
	APIKey      string
	AccessToken string
	MaxRetries  int
	BaseDelay   time.Duration
}

// NewZerodhaTicker creates a new Zerodha ticker instance.
func NewZerodhaTicker(cfg ZerodhaTickerConfig) *ZerodhaTicker {
	maxRetries := cfg.MaxRetries
	if maxRetries == 0 {
		maxRetries = 5
	}
	baseDelay := cfg.BaseDelay
	if baseDelay == 0 {
		baseDelay = time.Second
	}

	return &ZerodhaTicker{
		apiKey:       cfg.APIKey,
		accessToken:  cfg.AccessToken,
		subscribed:   make(map[uint32]struct{}),
		symbolTokens: make(map[string]uint32),
		tokenSymbols: make(map[uint32]string),
		maxRetries:   maxRetries,
		baseDelay:    baseDelay,
	}
}

// Connect establishes the WebSocket connection with Kite Connect.
func (t *ZerodhaTicker) Connect(ctx context.Context) error {
	t.mu.Lock()
	if t.connected {
		t.mu.Unlock()
		return nil
	}

	t.ticker = kiteticker.New(t.apiKey, t.accessToken)
	connectedCh := make(chan struct{})
	firstConnect := true

	t.ticker.OnConnect(func() {
		t.mu.Lock()
		t.connected = true
		t.reconnecting = false
		isFirst := firstConnect
		firstConnect = false
		t.mu.Unlock()

		select {
		case connectedCh <- struct{}{}:
		default:
		}

		if !isFirst {
			t.resubscribe()
		}
	})

	t.ticker.OnClose(func(code int, reason string) {
		t.mu.Lock()
		wasConnected := t.connected
		t.connected = false
		t.mu.Unlock()

		if t.onDisconnect != nil && wasConnected {
			go t.onDisconnect()
		}
		go t.reconnect(ctx)
	})

	t.ticker.OnError(func(err error) {
		if t.onError != nil {
			go t.onError(err)
		}
	})

	t.ticker.OnTick(func(tick kitemodels.Tick) {
		if t.onTick != nil {
			go t.onTick(t.convertTick(tick))
		}
	})

	t.ticker.OnReconnect(func(attempt int, delay time.Duration) {
		t.mu.Lock()
		t.reconnecting = true
		t.mu.Unlock()
	})

	t.mu.Unlock()

	go t.ticker.Serve()

	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-connectedCh:
		return nil
	case <-time.After(30 * time.Second):
		t.mu.RLock()
		connected := t.connected
		t.mu.RUnlock()
		if !connected {
			return fmt.Errorf("broker: ticker connection timeout")
		}
		return nil
	}
}

// Disconnect closes the WebSocket connection.
func (t *ZerodhaTicker) Disconnect() error {
	t.mu.Lock()
	defer t.mu.Unlock()
	if t.ticker != nil {
		t.ticker.Close()
		t.connected = false
	}
	return nil
}

// Subscribe subscribes to symbols in full mode, the only mode probedge
// needs: LTP, volume, and exchange timestamp for every tick.
func (t *ZerodhaTicker) Subscribe(symbols []string) error {
	t.mu.Lock()
	if !t.connected {
		t.mu.Unlock()
		return fmt.Errorf("broker: ticker not connected")
	}

	tokens := make([]uint32, 0, len(symbols))
	for _, symbol := range symbols {
		token, ok := t.symbolTokens[symbol]
		if !ok {
			continue
		}
		tokens = append(tokens, token)
		t.subscribed[token] = struct{}{}
	}
	t.mu.Unlock()

	if len(tokens) == 0 {
		return nil
	}

	t.writeMu.Lock()
	defer t.writeMu.Unlock()

	if err := t.ticker.Subscribe(tokens); err != nil {
		return fmt.Errorf("broker: subscribe: %w", err)
	}
	if err := t.ticker.SetMode(kiteticker.ModeFull, tokens); err != nil {
		return fmt.Errorf("broker: set mode: %w", err)
	}
	return nil
}

// RegisterSymbols registers symbol-to-token mappings ahead of subscribing.
func (t *ZerodhaTicker) RegisterSymbols(symbolTokens map[string]uint32) {
	t.mu.Lock()
	defer t.mu.Unlock()
	for symbol, token := range symbolTokens {
		t.symbolTokens[symbol] = token
		t.tokenSymbols[token] = symbol
	}
}

// OnTick sets the tick handler.
func (t *ZerodhaTicker) OnTick(handler func(models.RawTick)) {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.onTick = handler
}

// OnError sets the error handler.
func (t *ZerodhaTicker) OnError(handler func(error)) {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.onError = handler
}

// OnDisconnect sets the disconnect handler.
func (t *ZerodhaTicker) OnDisconnect(handler func()) {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.onDisconnect = handler
}

// IsConnected reports whether the ticker is currently connected.
func (t *ZerodhaTicker) IsConnected() bool {
	t.mu.RLock()
	defer t.mu.RUnlock()
	return t.connected
}

func (t *ZerodhaTicker) convertTick(tick kitemodels.Tick) models.RawTick {
	t.mu.RLock()
	symbol := t.tokenSymbols[tick.InstrumentToken]
	t.mu.RUnlock()

	return models.RawTick{
		Token:     tick.InstrumentToken,
		Symbol:    symbol,
		LTP:       tick.LastPrice,
		Volume:    int64(tick.VolumeTraded),
		Timestamp: tick.Timestamp.Time,
	}
}

func (t *ZerodhaTicker) reconnect(ctx context.Context) {
	t.mu.Lock()
	if t.reconnecting {
		t.mu.Unlock()
		return
	}
	t.reconnecting = true
	t.mu.Unlock()

	for attempt := 0; attempt < t.maxRetries; attempt++ {
		select {
		case <-ctx.Done():
			return
		default:
		}

		time.Sleep(backoffDelay(attempt, t.baseDelay))

		t.mu.Lock()
		if t.connected {
			t.reconnecting = false
			t.mu.Unlock()
			return
		}
		t.mu.Unlock()

		if err := t.Connect(ctx); err == nil {
			return
		}
	}

	t.mu.Lock()
	t.reconnecting = false
	t.mu.Unlock()

	if t.onError != nil {
		t.onError(fmt.Errorf("broker: max reconnection attempts reached"))
	}
}

func (t *ZerodhaTicker) resubscribe() {
	t.mu.RLock()
	tokens := make([]uint32, 0, len(t.subscribed))
	for token := range t.subscribed {
		tokens = append(tokens, token)
	}
	t.mu.RUnlock()

	if len(tokens) == 0 {
		return
	}

	t.writeMu.Lock()
	defer t.writeMu.Unlock()
	t.ticker.Subscribe(tokens)
	t.ticker.SetMode(kiteticker.ModeFull, tokens)
}

// backoffDelay returns the exponential reconnect delay for a given retry
// attempt (0-indexed), capped at 30 seconds.
func backoffDelay(attempt int, base time.Duration) time.Duration {
	delay := base * time.Duration(math.Pow(2, float64(attempt)))
	if delay > 30*time.Second {
		delay = 30 * time.Second
	}
	return delay
}

// Ensure ZerodhaTicker implements Ticker.
var _ Ticker = (*ZerodhaTicker)(nil)
