package state

import "fmt"

// #region signal-index
// Signal indices into EngineState.W. The ordering is fixed and must
// never be reordered: persisted weight vectors are positional.
const (
	IdxDrift = iota
	IdxEntropy
	IdxCost
	IdxFatigue
)

// #endregion signal-index

// #region bounds
// Clamp bounds for the tunable parameters.
const (
	WeightMin = 0.0
	WeightMax = 2.0
	ThetaMin  = 0.1
	ThetaMax  = 1.5
)

// ClampWeight restricts a weight to [WeightMin, WeightMax].
func ClampWeight(w float64) float64 {
	if w < WeightMin {
		return WeightMin
	}
	if w > WeightMax {
		return WeightMax
	}
	return w
}

// ClampTheta restricts the threshold to [ThetaMin, ThetaMax].
func ClampTheta(t float64) float64 {
	if t < ThetaMin {
		return ThetaMin
	}
	if t > ThetaMax {
		return ThetaMax
	}
	return t
}

// #endregion bounds

// #region engine-state
// EngineState is the controller's persisted tunable configuration.
// All three fields are written together atomically; no reader observes
// a half-updated state.
type EngineState struct {
	W             [4]float64 `json:"w"`
	Theta         float64    `json:"theta"`
	LastRetrainTS float64    `json:"last_retrain_ts"`
}

// DefaultState returns the documented bootstrap state written on first
// access when no persisted file exists.
func DefaultState() EngineState {
	return EngineState{
		W:             [4]float64{0.4, 0.3, 0.2, 0.1},
		Theta:         0.5,
		LastRetrainTS: 0,
	}
}

// #endregion engine-state

// #region partial
// Partial is a partial update merged into the stored state. Nil fields
// keep their persisted values.
type Partial struct {
	W             *[4]float64
	Theta         *float64
	LastRetrainTS *float64
}

// #endregion partial

// #region outcome
// Outcome reports whether an update reached disk. Reason is set when
// the write was skipped after exhausting rename retries. A skipped
// update drops the merge; callers must log it.
type Outcome struct {
	Applied bool
	Reason  string
}

// #endregion outcome

// #region io-error
// IOError marks an unrecoverable state-file failure: the backing file
// is unreadable, unwritable at bootstrap, or fails schema validation.
type IOError struct {
	Path string
	Op   string
	Err  error
}

func (e *IOError) Error() string {
	return fmt.Sprintf("state %s %s: %v", e.Op, e.Path, e.Err)
}

func (e *IOError) Unwrap() error { return e.Err }

// #endregion io-error
