package store

import (
	"bytes"
	"errors"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/san-kum/sphsim/internal/config"
	"github.com/san-kum/sphsim/internal/sim"
	"gonum.org/v1/gonum/spatial/r3"
)

func testResult() *sim.Result {
	return &sim.Result{
		StepsTaken: 2,
		Time:       0.006,
		Particles:  2,
		Samples: []sim.Sample{
			{Step: 0, Time: 0, Values: map[string]float64{"max_speed": 0, "kinetic_energy": 0}},
			{Step: 2, Time: 0.006, Values: map[string]float64{"max_speed": 0.05, "kinetic_energy": 1.5}},
		},
		Frames: []sim.Frame{
			{Step: 2, Time: 0.006, Positions: []r3.Vec{{X: 1, Y: 2, Z: 3}, {X: -1}}},
		},
		Metrics: map[string]float64{"max_speed": 0.05, "kinetic_energy": 1.5},
		Wall:    10 * time.Millisecond,
	}
}

func TestStoreSaveLoad(t *testing.T) {
	tmpDir := t.TempDir()
	st := New(tmpDir)

	if err := st.Init(); err != nil {
		t.Fatalf("init failed: %v", err)
	}

	cfg := config.GetPreset("drop")
	cfg.Run.Seed = 42
	runID, err := st.Save(cfg, testResult())
	if err != nil {
		t.Fatalf("save failed: %v", err)
	}

	if !strings.HasPrefix(runID, "drop_") {
		t.Errorf("expected run id to start with the scene name, got %q", runID)
	}

	meta, err := st.Load(runID)
	if err != nil {
		t.Fatalf("load failed: %v", err)
	}

	if meta.Scene != "drop" {
		t.Errorf("expected scene 'drop', got '%s'", meta.Scene)
	}
	if meta.Seed != 42 {
		t.Errorf("expected seed 42, got %d", meta.Seed)
	}
	if meta.Metrics["kinetic_energy"] != 1.5 {
		t.Errorf("expected kinetic energy 1.5, got %f", meta.Metrics["kinetic_energy"])
	}

	records, err := st.LoadMetrics(runID)
	if err != nil {
		t.Fatalf("load metrics failed: %v", err)
	}
	if len(records) != 4 {
		t.Fatalf("expected 4 metric records, got %d", len(records))
	}
	if records[0].Metric != "kinetic_energy" {
		t.Errorf("expected metrics in name order, got %s first", records[0].Metric)
	}

	steps, values := Series(records, "max_speed")
	if len(steps) != 2 || steps[1] != 2 || values[1] != 0.05 {
		t.Errorf("unexpected series %v %v", steps, values)
	}

	frames, err := st.LoadFrames(runID)
	if err != nil {
		t.Fatalf("load frames failed: %v", err)
	}
	if len(frames) != 2 {
		t.Fatalf("expected 2 frame records, got %d", len(frames))
	}
	if frames[0].Z != 3 || frames[1].Particle != 1 {
		t.Errorf("unexpected frame records %+v", frames)
	}

	loaded, err := st.LoadConfig(runID)
	if err != nil {
		t.Fatalf("load config failed: %v", err)
	}
	if loaded.Run.Seed != 42 || len(loaded.Fill) != len(cfg.Fill) {
		t.Errorf("config did not round trip: %+v", loaded.Run)
	}
}

func TestStoreList(t *testing.T) {
	tmpDir := t.TempDir()
	st := New(tmpDir)

	if err := st.Init(); err != nil {
		t.Fatalf("init failed: %v", err)
	}

	runs, err := st.List()
	if err != nil {
		t.Fatalf("list failed: %v", err)
	}
	if len(runs) != 0 {
		t.Errorf("expected 0 runs, got %d", len(runs))
	}

	result := &sim.Result{Metrics: map[string]float64{}}
	for i := 0; i < 2; i++ {
		if _, err := st.Save(config.DefaultConfig(), result); err != nil {
			t.Fatalf("save failed: %v", err)
		}
	}

	runs, err = st.List()
	if err != nil {
		t.Fatalf("list failed: %v", err)
	}
	if len(runs) != 2 {
		t.Fatalf("expected 2 runs, got %d", len(runs))
	}
	if runs[1].Timestamp.Before(runs[0].Timestamp) {
		t.Error("runs should be oldest first")
	}
}

func TestStoreListMissingDir(t *testing.T) {
	st := New(filepath.Join(t.TempDir(), "missing"))
	runs, err := st.List()
	if err != nil {
		t.Fatalf("list failed: %v", err)
	}
	if len(runs) != 0 {
		t.Errorf("expected 0 runs, got %d", len(runs))
	}
}

func TestStoreFileStructure(t *testing.T) {
	tmpDir := t.TempDir()
	st := New(tmpDir)

	if err := st.Init(); err != nil {
		t.Fatalf("init failed: %v", err)
	}

	result := &sim.Result{
		Metrics: map[string]float64{},
		Errors:  []error{errors.New("boom")},
	}
	runID, err := st.Save(config.DefaultConfig(), result)
	if err != nil {
		t.Fatalf("save failed: %v", err)
	}

	runDir := filepath.Join(tmpDir, runID)
	for _, name := range []string{"metadata.json", "config.yaml"} {
		if _, err := os.Stat(filepath.Join(runDir, name)); os.IsNotExist(err) {
			t.Errorf("%s not created", name)
		}
	}
	for _, name := range []string{"metrics.csv", "frames.csv"} {
		if _, err := os.Stat(filepath.Join(runDir, name)); err == nil {
			t.Errorf("%s should be skipped for an empty result", name)
		}
	}

	records, err := st.LoadMetrics(runID)
	if err != nil || len(records) != 0 {
		t.Errorf("expected no records, got %v (%v)", records, err)
	}

	meta, err := st.Load(runID)
	if err != nil {
		t.Fatal(err)
	}
	if len(meta.Errors) != 1 || meta.Errors[0] != "boom" {
		t.Errorf("expected errors to be recorded, got %v", meta.Errors)
	}
}

func TestExport(t *testing.T) {
	cfg := config.GetPreset("dam")
	result := testResult()

	var buf bytes.Buffer
	if err := WriteJSON(&buf, cfg, result); err != nil {
		t.Fatal(err)
	}
	if !strings.Contains(buf.String(), `"scene": "dam"`) {
		t.Errorf("unexpected JSON: %s", buf.String())
	}

	buf.Reset()
	if err := WriteMetricsCSV(&buf, result); err != nil {
		t.Fatal(err)
	}
	lines := strings.Split(strings.TrimSpace(buf.String()), "\n")
	if lines[0] != "step,time,metric,value" {
		t.Errorf("unexpected header %q", lines[0])
	}
	if len(lines) != 5 {
		t.Errorf("expected 5 lines, got %d", len(lines))
	}

	path := filepath.Join(t.TempDir(), "out.json")
	if err := ExportJSON(path, cfg, result); err != nil {
		t.Fatal(err)
	}
	if _, err := os.Stat(path); err != nil {
		t.Error(err)
	}
}
