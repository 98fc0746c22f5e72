package controller

import (
	"github.com/meshops/retrain-controller/internal/config"
	"github.com/meshops/retrain-controller/internal/state"
)

// Pure decision and adaptation rules, shared by the live controller
// and the in-memory replay harness.

// #region score

// Score computes R = w · [α·s1, β·s2, −γ·s3, −δ·s4] against the given
// parameters and reports whether R crosses theta.
func Score(st state.EngineState, cfg config.Config, sig SignalSet) (float64, bool) {
	signed := [4]float64{
		cfg.Alpha * sig.Drift,
		cfg.Beta * sig.Entropy,
		-cfg.Gamma * sig.Cost,
		-cfg.Delta * sig.Fatigue,
	}
	var score float64
	for i := range signed {
		score += st.W[i] * signed[i]
	}
	return score, score > st.Theta
}

// #endregion score

// #region apply-outcome

// ApplyOutcome returns the adapted parameters for an observed outcome.
// High error raises drift and entropy sensitivity; high cost raises
// cost and fatigue sensitivity; theta moves down under combined
// pressure and up when outcomes are good and cheap. All clamps are
// enforced here.
func ApplyOutcome(st state.EngineState, cfg config.Config, outcomeError, outcomeCostMinutes float64) state.EngineState {
	errN := clamp01(outcomeError)
	cstN := clamp01(outcomeCostMinutes / 30.0)
	lr := cfg.LR

	st.W[state.IdxDrift] = state.ClampWeight(st.W[state.IdxDrift] + lr*errN)
	st.W[state.IdxEntropy] = state.ClampWeight(st.W[state.IdxEntropy] + lr*errN)
	st.W[state.IdxCost] = state.ClampWeight(st.W[state.IdxCost] + lr*cstN)
	st.W[state.IdxFatigue] = state.ClampWeight(st.W[state.IdxFatigue] + lr*cstN)

	st.Theta = state.ClampTheta(st.Theta + lr*(0.5-0.5*errN-0.5*cstN))
	return st
}

// #endregion apply-outcome
