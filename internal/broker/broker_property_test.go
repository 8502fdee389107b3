package broker

import (
	"testing"
	"time"

	"github.com/leanovate/gopter"
	"github.com/leanovate/gopter/gen"
	"github.com/leanovate/gopter/prop"

	"probedge/internal/models"
)

// Property: the reconnect backoff delay for any non-negative attempt
// number is always between the base delay and the 30-second cap,
// monotonically non-decreasing in attempt.
func TestProperty_BackoffDelayStaysWithinBounds(t *testing.T) {
	parameters := gopter.DefaultTestParameters()
	parameters.MinSuccessfulTests = 100
	parameters.Rng.Seed(time.Now().UnixNano())

	properties := gopter.NewProperties(parameters)

	properties.Property("backoff delay is bounded and non-decreasing", prop.ForAll(
		func(attempt int) bool {
			base := time.Second
			d := backoffDelay(attempt, base)
			if d < base || d > 30*time.Second {
				return false
			}
			if attempt > 0 {
				prev := backoffDelay(attempt-1, base)
				if d < prev {
					return false
				}
			}
			return true
		},
		gen.IntRange(0, 20),
	))

	properties.TestingRun(t)
}

// Property: instrumentKey never collides two distinct (exchange, symbol)
// pairs and always round-trips the exchange/symbol it was built from.
func TestProperty_InstrumentKeyIsInjective(t *testing.T) {
	parameters := gopter.DefaultTestParameters()
	parameters.MinSuccessfulTests = 200
	parameters.Rng.Seed(time.Now().UnixNano())

	properties := gopter.NewProperties(parameters)

	symbols := gen.OneConstOf("RELIANCE", "TCS", "INFY", "HDFCBANK", "ICICIBANK", "SBIN")
	exchanges := gen.OneConstOf(models.NSE, models.BSE)

	properties.Property("distinct inputs never produce the same key", prop.ForAll(
		func(sym1, sym2 string, ex1, ex2 models.Exchange) bool {
			k1 := instrumentKey(ex1, sym1)
			k2 := instrumentKey(ex2, sym2)
			same := ex1 == ex2 && sym1 == sym2
			return (k1 == k2) == same
		},
		symbols, symbols, exchanges, exchanges,
	))

	properties.TestingRun(t)
}

func TestZerodhaTicker_ImplementsTicker(t *testing.T) {
	var _ Ticker = NewZerodhaTicker(ZerodhaTickerConfig{APIKey: "x", AccessToken: "y"})
}
