package store

import (
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"time"

	"github.com/gocarina/gocsv"
	"github.com/san-kum/sphsim/internal/config"
	"github.com/san-kum/sphsim/internal/sim"
)

const (
	metadataFile = "metadata.json"
	configFile   = "config.yaml"
	metricsFile  = "metrics.csv"
	framesFile   = "frames.csv"
)

// Store keeps one directory per run under baseDir.
type Store struct {
	baseDir string
}

func New(baseDir string) *Store {
	return &Store{baseDir: baseDir}
}

func (s *Store) Init() error {
	return os.MkdirAll(s.baseDir, 0755)
}

func (s *Store) Dir() string { return s.baseDir }

type RunMetadata struct {
	ID          string             `json:"id"`
	Scene       string             `json:"scene"`
	Timestamp   time.Time          `json:"timestamp"`
	Seed        int64              `json:"seed"`
	Solver      string             `json:"solver"`
	TimeStep    float64            `json:"time_step"`
	Steps       int                `json:"steps"`
	SimTime     float64            `json:"sim_time"`
	Particles   int                `json:"particles"`
	WallSeconds float64            `json:"wall_seconds"`
	Errors      []string           `json:"errors,omitempty"`
	Metrics     map[string]float64 `json:"metrics"`
}

// MetricRecord is one row of metrics.csv.
type MetricRecord struct {
	Step   int     `csv:"step"`
	Time   float64 `csv:"time"`
	Metric string  `csv:"metric"`
	Value  float64 `csv:"value"`
}

// FrameRecord is one row of frames.csv.
type FrameRecord struct {
	Step     int     `csv:"step"`
	Time     float64 `csv:"time"`
	Fluid    int     `csv:"fluid"`
	Particle int     `csv:"particle"`
	X        float64 `csv:"x"`
	Y        float64 `csv:"y"`
	Z        float64 `csv:"z"`
}

// Save writes cfg and result into a new run directory and returns its id.
func (s *Store) Save(cfg *config.Config, result *sim.Result) (string, error) {
	name := cfg.Name
	if name == "" {
		name = "scene"
	}
	now := time.Now()
	runID := fmt.Sprintf("%s_%d", name, now.UnixNano())
	runDir := filepath.Join(s.baseDir, runID)

	if err := os.MkdirAll(runDir, 0755); err != nil {
		return "", err
	}

	meta := RunMetadata{
		ID:          runID,
		Scene:       name,
		Timestamp:   now,
		Seed:        cfg.Run.Seed,
		Solver:      cfg.Run.Solver,
		TimeStep:    cfg.Global.TimeStep,
		Steps:       result.StepsTaken,
		SimTime:     result.Time,
		Particles:   result.Particles,
		WallSeconds: result.Wall.Seconds(),
		Metrics:     result.Metrics,
	}
	for _, err := range result.Errors {
		meta.Errors = append(meta.Errors, err.Error())
	}

	if err := writeJSON(filepath.Join(runDir, metadataFile), meta); err != nil {
		return "", err
	}
	if err := config.Save(filepath.Join(runDir, configFile), cfg); err != nil {
		return "", err
	}
	if len(result.Samples) > 0 {
		if err := writeCSV(filepath.Join(runDir, metricsFile), MetricRecords(result)); err != nil {
			return "", err
		}
	}
	if len(result.Frames) > 0 {
		if err := writeCSV(filepath.Join(runDir, framesFile), FrameRecords(result)); err != nil {
			return "", err
		}
	}

	return runID, nil
}

// MetricRecords flattens the sampled series into long format, metrics in
// name order within each step.
func MetricRecords(result *sim.Result) []MetricRecord {
	records := make([]MetricRecord, 0, len(result.Samples)*len(result.Metrics))
	for _, sample := range result.Samples {
		names := make([]string, 0, len(sample.Values))
		for name := range sample.Values {
			names = append(names, name)
		}
		sort.Strings(names)
		for _, name := range names {
			records = append(records, MetricRecord{
				Step:   sample.Step,
				Time:   sample.Time,
				Metric: name,
				Value:  sample.Values[name],
			})
		}
	}
	return records
}

func FrameRecords(result *sim.Result) []FrameRecord {
	var records []FrameRecord
	for _, frame := range result.Frames {
		for i, p := range frame.Positions {
			records = append(records, FrameRecord{
				Step:     frame.Step,
				Time:     frame.Time,
				Fluid:    frame.Fluid,
				Particle: i,
				X:        p.X,
				Y:        p.Y,
				Z:        p.Z,
			})
		}
	}
	return records
}

func writeJSON(path string, v any) error {
	f, err := os.Create(path)
	if err != nil {
		return err
	}
	defer f.Close()

	enc := json.NewEncoder(f)
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}

func writeCSV(path string, records any) error {
	f, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("creating %s: %w", filepath.Base(path), err)
	}
	defer f.Close()

	if err := gocsv.Marshal(records, f); err != nil {
		return fmt.Errorf("writing %s: %w", filepath.Base(path), err)
	}
	return nil
}

// List returns the metadata of every readable run, oldest first.
func (s *Store) List() ([]RunMetadata, error) {
	entries, err := os.ReadDir(s.baseDir)
	if err != nil {
		if os.IsNotExist(err) {
			return []RunMetadata{}, nil
		}
		return nil, err
	}

	runs := make([]RunMetadata, 0)
	for _, entry := range entries {
		if !entry.IsDir() {
			continue
		}
		meta, err := s.Load(entry.Name())
		if err != nil {
			continue
		}
		runs = append(runs, *meta)
	}

	sort.Slice(runs, func(i, j int) bool { return runs[i].Timestamp.Before(runs[j].Timestamp) })
	return runs, nil
}

func (s *Store) Load(runID string) (*RunMetadata, error) {
	data, err := os.ReadFile(filepath.Join(s.baseDir, runID, metadataFile))
	if err != nil {
		return nil, err
	}

	var meta RunMetadata
	if err := json.Unmarshal(data, &meta); err != nil {
		return nil, err
	}

	return &meta, nil
}

// LoadConfig reads the scene configuration saved with a run.
func (s *Store) LoadConfig(runID string) (*config.Config, error) {
	return config.Load(filepath.Join(s.baseDir, runID, configFile))
}

// LoadMetrics reads metrics.csv. A run without samples yields no records.
func (s *Store) LoadMetrics(runID string) ([]MetricRecord, error) {
	var records []MetricRecord
	if err := readCSV(filepath.Join(s.baseDir, runID, metricsFile), &records); err != nil {
		return nil, err
	}
	return records, nil
}

// LoadFrames reads frames.csv. A run without frames yields no records.
func (s *Store) LoadFrames(runID string) ([]FrameRecord, error) {
	var records []FrameRecord
	if err := readCSV(filepath.Join(s.baseDir, runID, framesFile), &records); err != nil {
		return nil, err
	}
	return records, nil
}

func readCSV(path string, out any) error {
	f, err := os.Open(path)
	if errors.Is(err, os.ErrNotExist) {
		return nil
	}
	if err != nil {
		return err
	}
	defer f.Close()

	if err := gocsv.UnmarshalFile(f, out); err != nil {
		return fmt.Errorf("reading %s: %w", filepath.Base(path), err)
	}
	return nil
}

// Series extracts one metric from long-format records in file order.
func Series(records []MetricRecord, name string) (steps []int, values []float64) {
	for _, r := range records {
		if r.Metric == name {
			steps = append(steps, r.Step)
			values = append(values, r.Value)
		}
	}
	return steps, values
}
