package controller

import (
	"errors"
	"fmt"
	"math"
	"math/rand"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/meshops/retrain-controller/internal/config"
	"github.com/meshops/retrain-controller/internal/refstats"
	"github.com/meshops/retrain-controller/internal/state"
)

// #region fixtures

type fixture struct {
	dir       string
	statePath string
	refPath   string
	dataPath  string
}

func newFixture(t *testing.T) fixture {
	t.Helper()
	dir := t.TempDir()
	return fixture{
		dir:       dir,
		statePath: filepath.Join(dir, "amrc_state.json"),
		refPath:   filepath.Join(dir, "ref_stats.json"),
		dataPath:  filepath.Join(dir, "new_data.csv"),
	}
}

func (f fixture) writeState(t *testing.T, content string) {
	t.Helper()
	if err := os.WriteFile(f.statePath, []byte(content), 0o644); err != nil {
		t.Fatalf("write state: %v", err)
	}
}

func (f fixture) writeRefStats(t *testing.T, mean, std float64) {
	t.Helper()
	st := refstats.Stats{
		CreatedTS: 1,
		Columns:   map[string]refstats.ColumnStats{"x": {Mean: mean, Std: std}},
	}
	if err := refstats.Save(f.refPath, st); err != nil {
		t.Fatalf("save ref stats: %v", err)
	}
}

func (f fixture) writeData(t *testing.T, n int, mean, std float64, seed int64) {
	t.Helper()
	rng := rand.New(rand.NewSource(seed))
	var b strings.Builder
	b.WriteString("x\n")
	for i := 0; i < n; i++ {
		fmt.Fprintf(&b, "%f\n", rng.NormFloat64()*std+mean)
	}
	if err := os.WriteFile(f.dataPath, []byte(b.String()), 0o644); err != nil {
		t.Fatalf("write data: %v", err)
	}
}

func newController(t *testing.T, f fixture, cfg config.Config) *Controller {
	t.Helper()
	c, err := New(f.statePath, cfg)
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	return c
}

// #endregion fixtures

func TestDecideScenarioShiftedMean(t *testing.T) {
	// Reference x ~ N(0,1), new batch ~ N(2,1), weights all on drift,
	// theta 0.2: the shift must trip the retrain decision.
	f := newFixture(t)
	f.writeState(t, `{"w":[1,0,0,0],"theta":0.2,"last_retrain_ts":0}`)
	f.writeRefStats(t, 0, 1)
	f.writeData(t, 5000, 2, 1, 42)

	c := newController(t, f, config.DefaultConfig())
	rec, err := c.Decide(f.refPath, f.dataPath, "")
	if err != nil {
		t.Fatalf("Decide: %v", err)
	}
	if rec.Signals.Drift <= 0.3 {
		t.Fatalf("expected drift > 0.3, got %f (raw %f)", rec.Signals.Drift, rec.Raw.DriftWasserstein)
	}
	if !rec.Retrain {
		t.Fatalf("expected retrain=true, score=%f theta=%f", rec.Score, rec.Theta)
	}
}

func TestDecideScenarioSameDistribution(t *testing.T) {
	f := newFixture(t)
	f.writeRefStats(t, 0, 1)
	f.writeData(t, 5000, 0, 1, 43)

	c := newController(t, f, config.DefaultConfig())
	rec, err := c.Decide(f.refPath, f.dataPath, "")
	if err != nil {
		t.Fatalf("Decide: %v", err)
	}
	if rec.Signals.Drift >= 0.1 {
		t.Fatalf("expected drift < 0.1, got %f", rec.Signals.Drift)
	}
	if rec.Theta != 0.5 {
		t.Fatalf("expected default theta 0.5, got %f", rec.Theta)
	}
	if rec.Retrain {
		t.Fatalf("expected retrain=false, score=%f", rec.Score)
	}
}

func TestDecideIdempotent(t *testing.T) {
	f := newFixture(t)
	f.writeRefStats(t, 0, 1)
	f.writeData(t, 500, 1, 1, 7)

	c := newController(t, f, config.DefaultConfig())
	fixed := time.Now()
	c.now = func() time.Time { return fixed }

	r1, err := c.Decide(f.refPath, f.dataPath, "")
	if err != nil {
		t.Fatalf("Decide: %v", err)
	}
	r2, err := c.Decide(f.refPath, f.dataPath, "")
	if err != nil {
		t.Fatalf("Decide: %v", err)
	}
	// IDs differ; everything the decision depends on must not.
	r1.ID, r2.ID = "", ""
	if r1 != r2 {
		t.Fatalf("decide not idempotent:\n%+v\n%+v", r1, r2)
	}
}

func TestDecideEntropyFromProbs(t *testing.T) {
	f := newFixture(t)
	f.writeRefStats(t, 0, 1)
	f.writeData(t, 100, 0, 1, 1)
	probsPath := filepath.Join(f.dir, "probs.csv")
	os.WriteFile(probsPath, []byte("0.5,0.5\n0.5,0.5\n"), 0o644)

	c := newController(t, f, config.DefaultConfig())
	rec, err := c.Decide(f.refPath, f.dataPath, probsPath)
	if err != nil {
		t.Fatalf("Decide: %v", err)
	}
	if math.Abs(rec.Signals.Entropy-1.0) > 1e-9 {
		t.Fatalf("expected entropy 1.0, got %f", rec.Signals.Entropy)
	}

	// Absent probs path degrades entropy to zero.
	rec, _ = c.Decide(f.refPath, f.dataPath, "")
	if rec.Signals.Entropy != 0 {
		t.Fatalf("expected entropy 0 without probs, got %f", rec.Signals.Entropy)
	}

	// Unreadable probs path degrades rather than failing.
	rec, err = c.Decide(f.refPath, f.dataPath, filepath.Join(f.dir, "missing.csv"))
	if err != nil {
		t.Fatalf("Decide with missing probs: %v", err)
	}
	if rec.Signals.Entropy != 0 {
		t.Fatalf("expected entropy 0 for unreadable probs, got %f", rec.Signals.Entropy)
	}
}

func TestDecideMissingRefStatsFatal(t *testing.T) {
	f := newFixture(t)
	f.writeData(t, 100, 0, 1, 1)

	c := newController(t, f, config.DefaultConfig())
	_, err := c.Decide(f.refPath, f.dataPath, "")
	var inErr *InputError
	if !errors.As(err, &inErr) {
		t.Fatalf("expected InputError, got %v", err)
	}
}

func TestDecideMissingDataFatal(t *testing.T) {
	f := newFixture(t)
	f.writeRefStats(t, 0, 1)

	c := newController(t, f, config.DefaultConfig())
	var inErr *InputError
	if _, err := c.Decide(f.refPath, f.dataPath, ""); !errors.As(err, &inErr) {
		t.Fatalf("expected InputError for unreadable dataset path, got %v", err)
	}
}

func TestDecideCorruptDataDegrades(t *testing.T) {
	// A file that opens but contains garbage skews drift to zero
	// instead of crashing the decision.
	f := newFixture(t)
	f.writeRefStats(t, 0, 1)
	os.WriteFile(f.dataPath, []byte("\"unterminated\nnot,a,csv"), 0o644)

	c := newController(t, f, config.DefaultConfig())
	rec, err := c.Decide(f.refPath, f.dataPath, "")
	if err != nil {
		t.Fatalf("Decide: %v", err)
	}
	if rec.Signals.Drift != 0 {
		t.Fatalf("expected drift 0 for corrupt data, got %f", rec.Signals.Drift)
	}
	// Raw detail still reports the observed file size.
	if rec.Raw.DataMB <= 0 {
		t.Fatal("expected positive data size in raw detail")
	}
}

func TestDecideStateErrorPropagates(t *testing.T) {
	f := newFixture(t)
	f.writeRefStats(t, 0, 1)
	f.writeData(t, 100, 0, 1, 1)

	c := newController(t, f, config.DefaultConfig())
	f.writeState(t, `{"w":[1,2],"theta":"bad"}`) // corrupt after construction

	var ioErr *state.IOError
	if _, err := c.Decide(f.refPath, f.dataPath, ""); !errors.As(err, &ioErr) {
		t.Fatalf("expected state.IOError, got %v", err)
	}
}

func TestAdaptExactRule(t *testing.T) {
	f := newFixture(t)
	c := newController(t, f, config.DefaultConfig())

	// Defaults w=[0.4,0.3,0.2,0.1], theta=0.5, lr=0.05.
	// error=1, cost=30min → errN=1, cstN=1.
	if err := c.Adapt(1.0, 30.0); err != nil {
		t.Fatalf("Adapt: %v", err)
	}

	st, err := c.store.Get()
	if err != nil {
		t.Fatalf("Get: %v", err)
	}
	want := [4]float64{0.45, 0.35, 0.25, 0.15}
	for i := range want {
		if math.Abs(st.W[i]-want[i]) > 1e-9 {
			t.Fatalf("weight %d: expected %f, got %f", i, want[i], st.W[i])
		}
	}
	if math.Abs(st.Theta-0.475) > 1e-9 {
		t.Fatalf("expected theta 0.475, got %f", st.Theta)
	}
}

func TestAdaptGoodCheapOutcomeRaisesTheta(t *testing.T) {
	f := newFixture(t)
	c := newController(t, f, config.DefaultConfig())

	if err := c.Adapt(0.0, 0.0); err != nil {
		t.Fatalf("Adapt: %v", err)
	}
	st, _ := c.store.Get()
	if math.Abs(st.Theta-0.525) > 1e-9 {
		t.Fatalf("expected theta 0.525, got %f", st.Theta)
	}
}

func TestAdaptClampInvariant(t *testing.T) {
	f := newFixture(t)
	c := newController(t, f, config.DefaultConfig())

	rng := rand.New(rand.NewSource(99))
	for i := 0; i < 200; i++ {
		// Deliberately out-of-range inputs as well.
		if err := c.Adapt(rng.Float64()*3-1, rng.Float64()*120-10); err != nil {
			t.Fatalf("Adapt %d: %v", i, err)
		}
		st, err := c.store.Get()
		if err != nil {
			t.Fatalf("Get %d: %v", i, err)
		}
		for j, w := range st.W {
			if w < state.WeightMin || w > state.WeightMax {
				t.Fatalf("weight %d out of bounds after %d adapts: %f", j, i+1, w)
			}
		}
		if st.Theta < state.ThetaMin || st.Theta > state.ThetaMax {
			t.Fatalf("theta out of bounds after %d adapts: %f", i+1, st.Theta)
		}
	}
}

func TestMarkRetrainedFeedsFatigue(t *testing.T) {
	f := newFixture(t)
	f.writeRefStats(t, 0, 1)
	f.writeData(t, 100, 0, 1, 1)

	c := newController(t, f, config.DefaultConfig())
	if err := c.MarkRetrained(); err != nil {
		t.Fatalf("MarkRetrained: %v", err)
	}

	st, _ := c.store.Get()
	if st.LastRetrainTS <= 0 {
		t.Fatalf("expected positive last_retrain_ts, got %f", st.LastRetrainTS)
	}

	rec, err := c.Decide(f.refPath, f.dataPath, "")
	if err != nil {
		t.Fatalf("Decide: %v", err)
	}
	if rec.Signals.Fatigue < 0.99 {
		t.Fatalf("expected fatigue ~1.0 right after retrain, got %f", rec.Signals.Fatigue)
	}
}

func TestFallbackMode(t *testing.T) {
	c := NewFallback(config.DefaultConfig())

	if !c.Fallback() {
		t.Fatal("expected fallback controller")
	}
	rec, err := c.Decide("ignored.json", "ignored.csv", "")
	if err != nil {
		t.Fatalf("fallback Decide: %v", err)
	}
	if !rec.Fallback || rec.Retrain {
		t.Fatalf("expected flagged non-retrain record, got %+v", rec)
	}
	if err := c.Adapt(1, 30); err != nil {
		t.Fatalf("fallback Adapt: %v", err)
	}
	if err := c.MarkRetrained(); err != nil {
		t.Fatalf("fallback MarkRetrained: %v", err)
	}
}
