package replay

import (
	"testing"

	"github.com/meshops/retrain-controller/internal/config"
	"github.com/meshops/retrain-controller/internal/controller"
	"github.com/meshops/retrain-controller/internal/state"
)

func TestRunNoRetrains(t *testing.T) {
	start := state.DefaultState()
	cycles := []Cycle{
		{Signals: controller.SignalSet{Drift: 0.1}},
		{Signals: controller.SignalSet{Drift: 0.2, Fatigue: 0.5}},
	}

	results, sum := Run(start, cycles, config.DefaultConfig())
	if sum.Retrains != 0 {
		t.Fatalf("expected 0 retrains, got %d", sum.Retrains)
	}
	if sum.Final != start {
		t.Fatalf("parameters must not move without outcomes: %+v", sum.Final)
	}
	if len(results) != 2 || results[1].Index != 1 {
		t.Fatalf("unexpected results: %+v", results)
	}
}

func TestRunAdaptsOnRetrain(t *testing.T) {
	start := state.EngineState{W: [4]float64{2, 0, 0, 0}, Theta: 0.5}
	cycles := []Cycle{
		{Signals: controller.SignalSet{Drift: 0.9}, OutcomeError: 1.0, OutcomeCostMinutes: 30},
	}

	results, sum := Run(start, cycles, config.DefaultConfig())
	if sum.Retrains != 1 || !results[0].Retrain {
		t.Fatalf("expected a retrain, got %+v", sum)
	}
	// Drift weight was already at the cap; entropy weight moved up.
	if sum.Final.W[state.IdxDrift] != 2 {
		t.Fatalf("capped weight moved: %f", sum.Final.W[state.IdxDrift])
	}
	if sum.Final.W[state.IdxEntropy] != 0.05 {
		t.Fatalf("expected entropy weight 0.05, got %f", sum.Final.W[state.IdxEntropy])
	}
}

func TestRunStaysWithinBounds(t *testing.T) {
	start := state.DefaultState()
	var cycles []Cycle
	for i := 0; i < 100; i++ {
		cycles = append(cycles, Cycle{
			Signals:            controller.SignalSet{Drift: 1, Entropy: 1},
			OutcomeError:       1,
			OutcomeCostMinutes: 60,
		})
	}

	_, sum := Run(start, cycles, config.DefaultConfig())
	for i, w := range sum.Final.W {
		if w < state.WeightMin || w > state.WeightMax {
			t.Fatalf("weight %d out of bounds: %f", i, w)
		}
	}
	if sum.Final.Theta < state.ThetaMin || sum.Final.Theta > state.ThetaMax {
		t.Fatalf("theta out of bounds: %f", sum.Final.Theta)
	}
}
