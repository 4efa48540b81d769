package store

import (
	"encoding/json"
	"io"
	"os"

	"github.com/gocarina/gocsv"
	"github.com/san-kum/sphsim/internal/config"
	"github.com/san-kum/sphsim/internal/sim"
)

type ExportData struct {
	Scene     string             `json:"scene"`
	Solver    string             `json:"solver"`
	TimeStep  float64            `json:"time_step"`
	Steps     int                `json:"steps"`
	SimTime   float64            `json:"sim_time"`
	Particles int                `json:"particles"`
	Samples   []sim.Sample       `json:"samples"`
	Metrics   map[string]float64 `json:"metrics"`
}

func newExportData(cfg *config.Config, result *sim.Result) ExportData {
	return ExportData{
		Scene:     cfg.Name,
		Solver:    cfg.Run.Solver,
		TimeStep:  cfg.Global.TimeStep,
		Steps:     result.StepsTaken,
		SimTime:   result.Time,
		Particles: result.Particles,
		Samples:   result.Samples,
		Metrics:   result.Metrics,
	}
}

func ExportJSON(path string, cfg *config.Config, result *sim.Result) error {
	file, err := os.Create(path)
	if err != nil {
		return err
	}
	defer file.Close()
	return WriteJSON(file, cfg, result)
}

func WriteJSON(w io.Writer, cfg *config.Config, result *sim.Result) error {
	encoder := json.NewEncoder(w)
	encoder.SetIndent("", "  ")
	return encoder.Encode(newExportData(cfg, result))
}

// WriteMetricsCSV writes the sampled series in the metrics.csv layout.
func WriteMetricsCSV(w io.Writer, result *sim.Result) error {
	return gocsv.Marshal(MetricRecords(result), w)
}

// WriteFramesCSV writes recorded frames in the frames.csv layout.
func WriteFramesCSV(w io.Writer, result *sim.Result) error {
	return gocsv.Marshal(FrameRecords(result), w)
}
