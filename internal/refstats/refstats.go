// Package refstats builds and loads the per-column reference baseline
// the drift signal compares new batches against. The baseline is built
// once from a snapshot dataset and regenerated out-of-band; the
// controller only ever reads it.
package refstats

import (
	"encoding/json"
	"fmt"
	"math"
	"os"
	"path/filepath"
	"sort"
	"time"

	"github.com/santhosh-tekuri/jsonschema/v5"

	"github.com/meshops/retrain-controller/internal/dataset"
)

// #region types
// ColumnStats is the per-column baseline: mean, std, and the
// (p5, p25, p50, p75, p95) quantiles.
type ColumnStats struct {
	Mean float64    `json:"mean"`
	Std  float64    `json:"std"`
	Q    [5]float64 `json:"q"`
}

// Stats is the full reference-statistics document.
type Stats struct {
	CreatedTS float64                `json:"created_ts"`
	Columns   map[string]ColumnStats `json:"columns"`
}

// #endregion types

// #region schema
const statsSchema = `{
	"type": "object",
	"required": ["created_ts", "columns"],
	"properties": {
		"created_ts": {"type": "number"},
		"columns": {
			"type": "object",
			"additionalProperties": {
				"type": "object",
				"required": ["mean", "std", "q"],
				"properties": {
					"mean": {"type": "number"},
					"std":  {"type": "number"},
					"q":    {"type": "array", "items": {"type": "number"}, "minItems": 5, "maxItems": 5}
				}
			}
		}
	}
}`

var compiledStatsSchema = jsonschema.MustCompileString("reference_stats.json", statsSchema)

// #endregion schema

// #region load
// Load reads and validates a reference-stats file. Any failure here is
// fatal for a decision cycle; there is no default baseline to fall
// back to.
func Load(path string) (Stats, error) {
	raw, err := os.ReadFile(path)
	if err != nil {
		return Stats{}, fmt.Errorf("read reference stats: %w", err)
	}
	var payload any
	if err := json.Unmarshal(raw, &payload); err != nil {
		return Stats{}, fmt.Errorf("parse reference stats: %w", err)
	}
	if err := compiledStatsSchema.Validate(payload); err != nil {
		return Stats{}, fmt.Errorf("validate reference stats: %w", err)
	}
	var st Stats
	if err := json.Unmarshal(raw, &st); err != nil {
		return Stats{}, fmt.Errorf("decode reference stats: %w", err)
	}
	return st, nil
}

// #endregion load

// #region save
// Save writes the stats document with temp-then-rename semantics,
// creating the parent directory if needed.
func Save(path string, st Stats) error {
	if dir := filepath.Dir(path); dir != "." && dir != "" {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return fmt.Errorf("mkdir: %w", err)
		}
	}
	data, err := json.MarshalIndent(st, "", "  ")
	if err != nil {
		return fmt.Errorf("marshal reference stats: %w", err)
	}
	tmp := path + ".tmp"
	if err := os.WriteFile(tmp, data, 0o644); err != nil {
		return fmt.Errorf("write temp: %w", err)
	}
	if err := os.Rename(tmp, path); err != nil {
		os.Remove(tmp)
		return fmt.Errorf("rename: %w", err)
	}
	return nil
}

// #endregion save

// #region build
// MaxBuildRows caps how much of the snapshot feeds each column's
// baseline.
const MaxBuildRows = 200_000

// Build computes per-column mean/std/quantiles from a header-row CSV
// snapshot. Columns with no finite values are skipped. The std carries
// a small floor so downstream ratios never divide by zero.
func Build(csvPath string, maxRows int) (Stats, error) {
	if maxRows <= 0 {
		maxRows = MaxBuildRows
	}
	cols, err := dataset.NumericColumns(csvPath)
	if err != nil {
		return Stats{}, fmt.Errorf("load snapshot: %w", err)
	}

	st := Stats{
		CreatedTS: float64(time.Now().Unix()),
		Columns:   make(map[string]ColumnStats, len(cols)),
	}
	for name, col := range cols {
		if len(col) == 0 {
			continue
		}
		if len(col) > maxRows {
			col = col[:maxRows]
		}
		st.Columns[name] = ColumnStats{
			Mean: mean(col),
			Std:  std(col) + 1e-12,
			Q:    quantiles(col),
		}
	}
	return st, nil
}

// #endregion build

// #region math-helpers
func mean(xs []float64) float64 {
	var sum float64
	for _, x := range xs {
		sum += x
	}
	return sum / float64(len(xs))
}

// std is the population standard deviation.
func std(xs []float64) float64 {
	m := mean(xs)
	var sum float64
	for _, x := range xs {
		d := x - m
		sum += d * d
	}
	return math.Sqrt(sum / float64(len(xs)))
}

// quantiles returns (p5, p25, p50, p75, p95) with linear interpolation
// between order statistics.
func quantiles(xs []float64) [5]float64 {
	sorted := make([]float64, len(xs))
	copy(sorted, xs)
	sort.Float64s(sorted)

	ps := [5]float64{0.05, 0.25, 0.50, 0.75, 0.95}
	var out [5]float64
	for i, p := range ps {
		out[i] = quantile(sorted, p)
	}
	return out
}

func quantile(sorted []float64, p float64) float64 {
	n := len(sorted)
	if n == 1 {
		return sorted[0]
	}
	pos := p * float64(n-1)
	lo := int(math.Floor(pos))
	hi := int(math.Ceil(pos))
	if lo == hi {
		return sorted[lo]
	}
	frac := pos - float64(lo)
	return sorted[lo]*(1-frac) + sorted[hi]*frac
}

// #endregion math-helpers
