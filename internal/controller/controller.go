// Package controller implements the Adaptive Multi-Signal Retrain
// Controller: score R = w · [α·drift, β·entropy, −γ·cost, −δ·fatigue],
// retrain when R > θ, then adapt w and θ from observed outcomes.
package controller

import (
	"log"
	"time"

	"github.com/google/uuid"

	"github.com/meshops/retrain-controller/internal/config"
	"github.com/meshops/retrain-controller/internal/dataset"
	"github.com/meshops/retrain-controller/internal/refstats"
	"github.com/meshops/retrain-controller/internal/signals"
	"github.com/meshops/retrain-controller/internal/state"
)

// #region controller

// Controller combines the state store's parameters with the signal
// engine's output into retrain decisions, and feeds outcomes back into
// the store.
type Controller struct {
	store    *state.Store
	engine   *signals.Engine
	cfg      config.Config
	fallback bool

	now func() time.Time
}

// New wires a controller over a persisted state file.
func New(statePath string, cfg config.Config) (*Controller, error) {
	store, err := state.NewStore(statePath)
	if err != nil {
		return nil, err
	}
	return &Controller{
		store:  store,
		engine: signals.NewEngine(signals.DefaultEngineConfig()),
		cfg:    cfg,
		now:    time.Now,
	}, nil
}

// NewFallback builds a controller for when the state store cannot be
// constructed at all (e.g. unwritable path). Decide returns a constant
// non-retrain record flagged Fallback; Adapt and MarkRetrained are
// no-ops.
func NewFallback(cfg config.Config) *Controller {
	return &Controller{
		engine:   signals.NewEngine(signals.DefaultEngineConfig()),
		cfg:      cfg,
		fallback: true,
		now:      time.Now,
	}
}

// Fallback reports whether the controller runs in degraded
// initialization mode.
func (c *Controller) Fallback() bool { return c.fallback }

// #endregion controller

// #region decide

// Decide computes a DecisionRecord from the reference baseline, the
// new-data file, and an optional probability CSV. Pure with respect to
// state: it reads parameters but never writes them. A missing or
// schema-invalid reference-stats file and an unreadable dataset path
// are fatal InputErrors; a state read failure propagates unmodified.
func (c *Controller) Decide(refStatsPath, newDataPath, probsPath string) (DecisionRecord, error) {
	rec := DecisionRecord{
		ID:        uuid.New().String(),
		CreatedAt: c.now().UTC(),
	}
	if c.fallback {
		rec.Fallback = true
		return rec, nil
	}

	st, err := c.store.Get()
	if err != nil {
		return DecisionRecord{}, err
	}

	ref, err := refstats.Load(refStatsPath)
	if err != nil {
		return DecisionRecord{}, &InputError{Path: refStatsPath, Err: err}
	}
	newCols, err := dataset.NumericColumns(newDataPath)
	if err != nil {
		return DecisionRecord{}, &InputError{Path: newDataPath, Err: err}
	}

	rawDrift := c.engine.Drift(ref, newCols)
	s1 := signals.NormalizeDrift(rawDrift)

	// Entropy degrades to 0 when probs are absent or unreadable.
	s2 := 0.0
	if probsPath != "" {
		if probs, err := dataset.ProbMatrix(probsPath); err == nil {
			s2 = c.engine.Entropy(probs)
		} else {
			log.Printf("[AMRC] probs unreadable, entropy degraded to 0: %v", err)
		}
	}

	mb := dataset.FileSizeMB(newDataPath)
	costMin := c.engine.CostMinutes(mb)
	costVal := costMin
	if c.cfg.CostPerMin > 0 {
		costVal = costMin * c.cfg.CostPerMin
	}
	s3 := signals.NormalizeCost(costVal)

	s4 := c.engine.Fatigue(st.LastRetrainTS, c.cfg.MinGapMinutes, c.now())

	rec.Signals = SignalSet{Drift: s1, Entropy: s2, Cost: s3, Fatigue: s4}
	rec.Raw = RawValues{DriftWasserstein: rawDrift, DataMB: mb, CostMin: costMin}
	rec.Weights = st.W
	rec.Theta = st.Theta
	rec.Score, rec.Retrain = Score(st, c.cfg, rec.Signals)
	return rec, nil
}

// #endregion decide

// #region adapt

// Adapt folds an observed outcome back into the persisted weights and
// threshold via ApplyOutcome. Error and cost each move their two
// weights identically; attribution to the specific signal that caused
// the outcome is a known tuning limitation, preserved as-is.
func (c *Controller) Adapt(outcomeError, outcomeCostMinutes float64) error {
	if c.fallback {
		log.Printf("[AMRC] adapt ignored in fallback mode")
		return nil
	}

	st, err := c.store.Get()
	if err != nil {
		return err
	}

	next := ApplyOutcome(st, c.cfg, outcomeError, outcomeCostMinutes)
	out, err := c.store.Update(state.Partial{W: &next.W, Theta: &next.Theta})
	if err != nil {
		return err
	}
	if !out.Applied {
		log.Printf("[AMRC] adapt dropped: %s", out.Reason)
	}
	return nil
}

// #endregion adapt

// #region mark-retrained

// MarkRetrained stamps the cooldown clock after an actual retrain.
func (c *Controller) MarkRetrained() error {
	if c.fallback {
		log.Printf("[AMRC] mark-retrained ignored in fallback mode")
		return nil
	}
	out, err := c.store.MarkRetrainNow()
	if err != nil {
		return err
	}
	if !out.Applied {
		log.Printf("[AMRC] mark-retrained dropped: %s", out.Reason)
	}
	return nil
}

// #endregion mark-retrained

// #region helpers

func clamp01(v float64) float64 {
	if v < 0 {
		return 0
	}
	if v > 1 {
		return 1
	}
	return v
}

// #endregion helpers
