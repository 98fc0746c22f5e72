// Package replay runs recorded decision cycles through the scoring and
// adaptation rules entirely in memory, so weight/threshold trajectories
// can be studied without touching a live state file.
package replay

import (
	"github.com/meshops/retrain-controller/internal/config"
	"github.com/meshops/retrain-controller/internal/controller"
	"github.com/meshops/retrain-controller/internal/state"
)

// #region types
// Cycle is one recorded decision opportunity: the normalized signals
// observed, and the outcome feedback that followed if a retrain ran.
type Cycle struct {
	Signals            controller.SignalSet `json:"signals"`
	OutcomeError       float64              `json:"outcome_error"`
	OutcomeCostMinutes float64              `json:"outcome_cost_minutes"`
}

// Result captures one simulated cycle.
type Result struct {
	Index   int               `json:"index"`
	Score   float64           `json:"score"`
	Retrain bool              `json:"retrain"`
	State   state.EngineState `json:"state"` // parameters after this cycle
}

// Summary aggregates a simulation run.
type Summary struct {
	Cycles   int               `json:"cycles"`
	Retrains int               `json:"retrains"`
	Final    state.EngineState `json:"final"`
}

// #endregion types

// #region run
// Run replays the cycles against an in-memory copy of start. Outcome
// feedback adapts the parameters only on cycles whose score crossed
// theta, mirroring the live loop where outcomes exist only after an
// actual retrain.
func Run(start state.EngineState, cycles []Cycle, cfg config.Config) ([]Result, Summary) {
	cur := start
	results := make([]Result, 0, len(cycles))
	retrains := 0

	for i, cy := range cycles {
		score, retrain := controller.Score(cur, cfg, cy.Signals)
		if retrain {
			retrains++
			cur = controller.ApplyOutcome(cur, cfg, cy.OutcomeError, cy.OutcomeCostMinutes)
		}
		results = append(results, Result{
			Index:   i,
			Score:   score,
			Retrain: retrain,
			State:   cur,
		})
	}

	return results, Summary{
		Cycles:   len(cycles),
		Retrains: retrains,
		Final:    cur,
	}
}

// #endregion run
