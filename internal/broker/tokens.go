package broker

import (
	"context"

	"github.com/sourcegraph/conc/pool"

	"probedge/internal/models"
)

// maxTokenResolveConcurrency bounds how many GetInstrumentToken calls run
// at once against the broker API during startup.
const maxTokenResolveConcurrency = 8

// ResolveTokens looks up every symbol's subscription token concurrently,
// bounded so a large universe does not open one goroutine per symbol
// against the broker's rate limit. Used once at startup before the LIVE
// ticker subscribes; a failure for any symbol fails the whole resolution,
// since a ticker missing even one token cannot build a complete
// RegisterSymbols map.
func ResolveTokens(ctx context.Context, b Broker, symbols []string, exchange models.Exchange) (map[string]uint32, error) {
	type result struct {
		symbol string
		token  uint32
	}

	p := pool.NewWithResults[result]().WithContext(ctx).WithMaxGoroutines(maxTokenResolveConcurrency).WithCancelOnError()

	for _, symbol := range symbols {
		symbol := symbol
		p.Go(func(ctx context.Context) (result, error) {
			token, err := b.GetInstrumentToken(ctx, symbol, exchange)
			if err != nil {
				return result{}, err
			}
			return result{symbol: symbol, token: token}, nil
		})
	}

	results, err := p.Wait()
	if err != nil {
		return nil, err
	}

	tokens := make(map[string]uint32, len(results))
	for _, r := range results {
		tokens[r.symbol] = r.token
	}
	return tokens, nil
}
