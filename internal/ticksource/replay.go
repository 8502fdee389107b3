package ticksource

import (
	"context"
	"encoding/csv"
	"fmt"
	"math/rand"
	"os"
	"path/filepath"
	"sort"
	"time"

	"probedge/internal/models"
)

// csvBar is one row of a per-symbol 5-minute OHLCV file.
type csvBar struct {
	start  time.Time
	open   float64
	high   float64
	low    float64
	close  float64
	volume int64
}

// ReplayConfig locates the per-symbol 5-minute CSVs and fixes the random
// seed that decides tick synthesis order within each bar.
type ReplayConfig struct {
	Dir     string // directory containing "<symbol>.csv"
	Symbols []string
	Seed    int64
}

// Replay synthesizes a deterministic tick sequence from 5-minute bars. The
// same input CSVs and seed always produce the same tick sequence, which is
// what makes a replay run's output byte-identical across executions.
type Replay struct {
	ticks []models.RawTick
	pos   int
}

// NewReplay reads every symbol's CSV under cfg.Dir and synthesizes the
// full tick sequence up front, interleaved in chronological order.
func NewReplay(cfg ReplayConfig) (*Replay, error) {
	rng := rand.New(rand.NewSource(cfg.Seed))

	var ticks []models.RawTick
	for _, symbol := range cfg.Symbols {
		bars, err := readBarCSV(filepath.Join(cfg.Dir, symbol+".csv"))
		if err != nil {
			return nil, fmt.Errorf("ticksource: reading %s: %w", symbol, err)
		}
		for _, bar := range bars {
			ticks = append(ticks, synthesizeTicks(symbol, bar, rng)...)
		}
	}

	sort.SliceStable(ticks, func(i, j int) bool {
		return ticks[i].Timestamp.Before(ticks[j].Timestamp)
	})

	return &Replay{ticks: ticks}, nil
}

// synthesizeTicks emits, for a bar (o,h,l,c), ticks at (start:o),
// (start+2m: h or l by seed-fixed random sign), (start+3m: the other
// extreme), (start+4:59:c).
func synthesizeTicks(symbol string, bar csvBar, rng *rand.Rand) []models.RawTick {
	highFirst := rng.Intn(2) == 0
	second, third := bar.high, bar.low
	if !highFirst {
		second, third = bar.low, bar.high
	}

	return []models.RawTick{
		{Symbol: symbol, LTP: bar.open, Volume: bar.volume / 4, Timestamp: bar.start},
		{Symbol: symbol, LTP: second, Volume: bar.volume / 4, Timestamp: bar.start.Add(2 * time.Minute)},
		{Symbol: symbol, LTP: third, Volume: bar.volume / 4, Timestamp: bar.start.Add(3 * time.Minute)},
		{Symbol: symbol, LTP: bar.close, Volume: bar.volume - 3*(bar.volume/4), Timestamp: bar.start.Add(4*time.Minute + 59*time.Second)},
	}
}

func readBarCSV(path string) ([]csvBar, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer f.Close()

	r := csv.NewReader(f)
	rows, err := r.ReadAll()
	if err != nil {
		return nil, err
	}
	if len(rows) == 0 {
		return nil, fmt.Errorf("empty file")
	}

	start := 0
	if _, err := time.Parse(time.RFC3339, rows[0][0]); err != nil {
		start = 1 // header row
	}

	bars := make([]csvBar, 0, len(rows)-start)
	for _, row := range rows[start:] {
		if len(row) < 6 {
			return nil, fmt.Errorf("malformed row %v", row)
		}
		ts, err := time.Parse(time.RFC3339, row[0])
		if err != nil {
			return nil, fmt.Errorf("parsing timestamp %q: %w", row[0], err)
		}
		bar := csvBar{start: ts}
		fields := []*float64{&bar.open, &bar.high, &bar.low, &bar.close}
		for i, dst := range fields {
			v, err := parseFloat(row[i+1])
			if err != nil {
				return nil, fmt.Errorf("parsing column %d: %w", i+1, err)
			}
			*dst = v
		}
		vol, err := parseFloat(row[5])
		if err != nil {
			return nil, fmt.Errorf("parsing volume: %w", err)
		}
		bar.volume = int64(vol)
		bars = append(bars, bar)
	}
	return bars, nil
}

func parseFloat(s string) (float64, error) {
	var v float64
	_, err := fmt.Sscanf(s, "%g", &v)
	return v, err
}

// Next returns the next synthesized tick, or ErrEndOfStream once the
// sequence is exhausted.
func (r *Replay) Next(ctx context.Context) (models.RawTick, error) {
	if err := ctx.Err(); err != nil {
		return models.RawTick{}, err
	}
	if r.pos >= len(r.ticks) {
		return models.RawTick{}, ErrEndOfStream
	}
	tick := r.ticks[r.pos]
	r.pos++
	return tick, nil
}

// Close is a no-op; Replay holds no open resources after construction.
func (r *Replay) Close() error { return nil }

// Mode always reports SIM.
func (r *Replay) Mode() models.RunMode { return models.ModeSim }
