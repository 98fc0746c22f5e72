package controller

import (
	"fmt"
	"time"
)

// #region input-error
// InputError marks a missing or malformed decision input: the
// reference-stats file or an unreadable dataset path. Fatal for
// Decide; there is nothing sensible to fabricate.
type InputError struct {
	Path string
	Err  error
}

func (e *InputError) Error() string {
	return fmt.Sprintf("decision input %s: %v", e.Path, e.Err)
}

func (e *InputError) Unwrap() error { return e.Err }

// #endregion input-error

// #region signal-set
// SignalSet holds the four normalized signals in [0, 1].
type SignalSet struct {
	Drift   float64 `json:"drift"`
	Entropy float64 `json:"entropy"`
	Cost    float64 `json:"cost"`
	Fatigue float64 `json:"fatigue"`
}

// #endregion signal-set

// #region raw-values
// RawValues carries pre-normalization detail so an operator can notice
// systematic zeroing of a signal (e.g. a dead drift pipeline behind a
// healthy-looking record).
type RawValues struct {
	DriftWasserstein float64 `json:"drift_wasserstein"`
	DataMB           float64 `json:"data_mb"`
	CostMin          float64 `json:"cost_min"`
}

// #endregion raw-values

// #region decision-record
// DecisionRecord is the full output of one decision cycle: signals,
// the parameter snapshot they were scored against, and the verdict.
// Ephemeral from the controller's point of view; callers own logging.
type DecisionRecord struct {
	ID        string     `json:"id"`
	CreatedAt time.Time  `json:"created_at"`
	Signals   SignalSet  `json:"signals"`
	Raw       RawValues  `json:"raw"`
	Weights   [4]float64 `json:"weights"`
	Theta     float64    `json:"theta"`
	Score     float64    `json:"score"`
	Retrain   bool       `json:"retrain"`
	Fallback  bool       `json:"fallback,omitempty"`
}

// #endregion decision-record
