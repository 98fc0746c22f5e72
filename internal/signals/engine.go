// Package signals computes the four normalized retrain signals: drift,
// entropy, cost, and fatigue. Every function degrades to 0 rather than
// failing, so the decision path stays live when inputs are partial.
package signals

import (
	"math"
	"math/rand"
	"os"
	"sort"
	"time"

	"github.com/meshops/retrain-controller/internal/refstats"
)

// #region config

// EngineConfig holds tuning knobs for signal computation.
type EngineConfig struct {
	Seed               int64   // drift sampling seed; fixed so decide stays idempotent
	DriftSampleCap     int     // max per-column sample size for drift
	ThroughputMBPerMin float64 // training throughput model for cost
}

// DefaultEngineConfig returns the documented defaults.
func DefaultEngineConfig() EngineConfig {
	return EngineConfig{
		Seed:               1,
		DriftSampleCap:     5000,
		ThroughputMBPerMin: 200,
	}
}

// #endregion config

// #region engine

// Engine computes signals. The numeric-backend capability is resolved
// once at construction; when absent, every signal returns 0 instead of
// failing per call.
type Engine struct {
	config     EngineConfig
	hasBackend bool
}

// NewEngine creates an engine, probing the numeric backend once.
func NewEngine(config EngineConfig) *Engine {
	if config.DriftSampleCap <= 0 {
		config.DriftSampleCap = 5000
	}
	if config.ThroughputMBPerMin <= 0 {
		config.ThroughputMBPerMin = 200
	}
	return &Engine{config: config, hasBackend: numericBackendAvailable()}
}

// HasNumericBackend reports the capability resolved at construction.
func (e *Engine) HasNumericBackend() bool { return e.hasBackend }

// numericBackendAvailable is the one-time capability probe. Kill
// switch: AMRC_NUMERIC_BACKEND=off forces the degraded path.
func numericBackendAvailable() bool {
	return os.Getenv("AMRC_NUMERIC_BACKEND") != "off"
}

// #endregion engine

// #region drift

// Drift returns the raw mean 1-D Wasserstein distance across columns
// shared between the reference baseline and the new batch, capped to
// [0, 10]. For each comparable column a synthetic reference sample is
// drawn from Normal(mean, std) and compared against the first k new
// values, k = min(len(column), DriftSampleCap). Returns 0 when no
// column is comparable or no column has k > 1.
func (e *Engine) Drift(ref refstats.Stats, newCols map[string][]float64) float64 {
	if !e.hasBackend {
		return 0
	}

	// Iterate columns in sorted order so the seeded sampler produces
	// the same distances on every call with the same inputs.
	names := make([]string, 0, len(newCols))
	for name := range newCols {
		if _, ok := ref.Columns[name]; ok {
			names = append(names, name)
		}
	}
	sort.Strings(names)

	rng := rand.New(rand.NewSource(e.config.Seed))
	var scores []float64
	for _, name := range names {
		col := newCols[name]
		cs := ref.Columns[name]
		if cs.Std <= 0 {
			continue
		}
		k := len(col)
		if k > e.config.DriftSampleCap {
			k = e.config.DriftSampleCap
		}
		if k <= 1 {
			continue
		}
		refSample := make([]float64, k)
		for i := range refSample {
			refSample[i] = rng.NormFloat64()*cs.Std + cs.Mean
		}
		scores = append(scores, wasserstein1D(refSample, col[:k]))
	}
	if len(scores) == 0 {
		return 0
	}
	var sum float64
	for _, s := range scores {
		sum += s
	}
	return clampRange(sum/float64(len(scores)), 0, 10)
}

// NormalizeDrift rescales a raw drift distance into [0, 1].
func NormalizeDrift(raw float64) float64 {
	return clamp01(raw / 5.0)
}

// wasserstein1D is the exact first Wasserstein distance between two
// equal-size 1-D samples: the mean absolute difference of the sorted
// samples.
func wasserstein1D(a, b []float64) float64 {
	as := make([]float64, len(a))
	bs := make([]float64, len(b))
	copy(as, a)
	copy(bs, b)
	sort.Float64s(as)
	sort.Float64s(bs)

	var sum float64
	for i := range as {
		sum += math.Abs(as[i] - bs[i])
	}
	return sum / float64(len(as))
}

// #endregion drift

// #region entropy

const entropyEps = 1e-12

// Entropy returns the mean per-row Shannon entropy of a class
// probability matrix, normalized by ln(numClasses) into [0, 1].
// Malformed input (empty, ragged, or fewer than 2 classes) returns 0.
func (e *Engine) Entropy(probs [][]float64) float64 {
	if !e.hasBackend {
		return 0
	}
	if len(probs) == 0 || len(probs[0]) < 2 {
		return 0
	}
	classes := len(probs[0])
	var total float64
	for _, row := range probs {
		if len(row) != classes {
			return 0
		}
		var h float64
		for _, p := range row {
			h -= p * math.Log(p+entropyEps)
		}
		total += h
	}
	norm := total / float64(len(probs)) / math.Log(float64(classes))
	return clamp01(norm)
}

// #endregion entropy

// #region cost

// CostMinutes estimates raw training minutes from dataset size with a
// simple throughput model, floored at 0.1 minutes.
func (e *Engine) CostMinutes(sizeMB float64) float64 {
	if !e.hasBackend {
		return 0
	}
	rate := math.Max(e.config.ThroughputMBPerMin, 1e-3)
	return math.Max(sizeMB/rate, 0.1)
}

// NormalizeCost rescales raw minutes into [0, 1]; 30 minutes maps to 1.
func NormalizeCost(minutes float64) float64 {
	return clamp01(minutes / 30.0)
}

// #endregion cost

// #region fatigue

// Fatigue is the cooldown signal: 1.0 immediately after a retrain,
// decaying linearly to 0 over minGapMinutes. A lastTS <= 0 means never
// retrained, which carries no fatigue.
func (e *Engine) Fatigue(lastRetrainTS, minGapMinutes float64, now time.Time) float64 {
	if !e.hasBackend {
		return 0
	}
	if lastRetrainTS <= 0 || minGapMinutes <= 0 {
		return 0
	}
	elapsedMin := (float64(now.Unix()) - lastRetrainTS) / 60.0
	return clamp01((minGapMinutes - elapsedMin) / minGapMinutes)
}

// #endregion fatigue

// #region helpers

// clamp01 restricts v to [0, 1].
func clamp01(v float64) float64 {
	if v < 0 {
		return 0
	}
	if v > 1 {
		return 1
	}
	return v
}

func clampRange(v, lo, hi float64) float64 {
	if v < lo {
		return lo
	}
	if v > hi {
		return hi
	}
	return v
}

// #endregion helpers
