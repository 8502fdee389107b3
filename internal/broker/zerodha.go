package broker

import (
	"context"
	"fmt"
	"sync"

	kiteconnect "github.com/zerodha/gokiteconnect/v4"

	"probedge/internal/models"
)

// ZerodhaBroker implements Broker for Zerodha Kite Connect market data.
// It never logs in on its own behalf: probedge obtains an access token
// out-of-band (internal/config's credentials file) and hands it to the
// client directly, since the interactive OAuth request-token exchange is
// out of scope for an unattended intraday process.
type ZerodhaBroker struct {
	client      *kiteconnect.Client
	instruments map[string]models.Instrument
	mu          sync.RWMutex
}

// ZerodhaConfig holds the credentials loaded from internal/config.
type ZerodhaConfig struct {
	APIKey      string
	AccessToken string
}

// NewZerodhaBroker creates a broker client already carrying a valid
// access token.
func NewZerodhaBroker(cfg ZerodhaConfig) *ZerodhaBroker {
	client := kiteconnect.New(cfg.APIKey)
	client.SetAccessToken(cfg.AccessToken)

	return &ZerodhaBroker{
		client:      client,
		instruments: make(map[string]models.Instrument),
	}
}

// GetQuote fetches the latest traded price and today's OHLC for a symbol.
func (z *ZerodhaBroker) GetQuote(ctx context.Context, symbol string) (*models.Quote, error) {
	quotes, err := z.client.GetQuote(symbol)
	if err != nil {
		return nil, fmt.Errorf("broker: get quote: %w", err)
	}

	q, ok := quotes[symbol]
	if !ok {
		return nil, fmt.Errorf("broker: quote not found for symbol: %s", symbol)
	}

	changePct := 0.0
	if q.OHLC.Close != 0 {
		changePct = (q.NetChange / q.OHLC.Close) * 100
	}

	return &models.Quote{
		Symbol:        symbol,
		LTP:           q.LastPrice,
		LastUpdateTS:  q.LastTradeTime.Time,
		TodayOpen:     q.OHLC.Open,
		High:          q.OHLC.High,
		Low:           q.OHLC.Low,
		Close:         q.OHLC.Close,
		Volume:        int64(q.Volume),
		ChangePercent: changePct,
	}, nil
}

// GetInstruments fetches and caches all instruments for an exchange.
func (z *ZerodhaBroker) GetInstruments(ctx context.Context, exchange models.Exchange) ([]models.Instrument, error) {
	instruments, err := z.client.GetInstruments()
	if err != nil {
		return nil, fmt.Errorf("broker: get instruments: %w", err)
	}

	var result []models.Instrument
	z.mu.Lock()
	for _, inst := range instruments {
		if inst.Exchange != string(exchange) {
			continue
		}
		m := models.Instrument{
			Token:    uint32(inst.InstrumentToken),
			Symbol:   inst.Tradingsymbol,
			Exchange: models.Exchange(inst.Exchange),
			TickSize: inst.TickSize,
		}
		z.instruments[instrumentKey(exchange, inst.Tradingsymbol)] = m
		result = append(result, m)
	}
	z.mu.Unlock()

	return result, nil
}

// GetInstrumentToken resolves a symbol's instrument token, fetching and
// caching the exchange's full instrument list on first use.
func (z *ZerodhaBroker) GetInstrumentToken(ctx context.Context, symbol string, exchange models.Exchange) (uint32, error) {
	key := instrumentKey(exchange, symbol)

	z.mu.RLock()
	inst, ok := z.instruments[key]
	z.mu.RUnlock()
	if ok {
		return inst.Token, nil
	}

	if _, err := z.GetInstruments(ctx, exchange); err != nil {
		return 0, err
	}

	z.mu.RLock()
	inst, ok = z.instruments[key]
	z.mu.RUnlock()
	if !ok {
		return 0, fmt.Errorf("broker: instrument not found: %s:%s", exchange, symbol)
	}
	return inst.Token, nil
}

func instrumentKey(exchange models.Exchange, symbol string) string {
	return string(exchange) + ":" + symbol
}
