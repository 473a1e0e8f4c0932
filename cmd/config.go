package cmd

import (
	"bytes"
	"os"

	"github.com/sirupsen/logrus"
	"gopkg.in/yaml.v3"

	"gonum.org/v1/gonum/mat"

	"github.com/inference-sim/kernelshap/shap"
)

// ModelSpec describes the toy linear model the explain command predicts
// with. Real integrations swap this out for their own shap.PredictFunc;
// this is the demo wiring exercised by the CLI.
type ModelSpec struct {
	Intercept float64   `yaml:"intercept"`
	Weights   []float64 `yaml:"weights"`
}

// BackgroundSpec describes the background rows and optional per-row case
// weights.
type BackgroundSpec struct {
	Rows    [][]float64 `yaml:"rows"`
	Weights []float64   `yaml:"weights"`
}

// OptionsSpec mirrors shap.ExplainOptions for YAML configuration.
type OptionsSpec struct {
	Exact        bool    `yaml:"exact"`
	HybridDegree int     `yaml:"hybrid_degree"`
	M            int     `yaml:"m"`
	Paired       bool    `yaml:"paired"`
	Tol          float64 `yaml:"tol"`
	MaxIter      int     `yaml:"max_iter"`
	Seed         int64   `yaml:"seed"`
	BatchBudget  int     `yaml:"batch_budget"`
}

// ExplainConfig is the full explain.yaml structure accepted by the
// "explain" subcommand.
type ExplainConfig struct {
	LogLevel   string         `yaml:"log_level"`
	Model      ModelSpec      `yaml:"model"`
	Background BackgroundSpec `yaml:"background"`
	Instance   []float64      `yaml:"instance"`
	Options    OptionsSpec    `yaml:"options"`
}

// loadExplainConfig parses an explain.yaml config file with strict field
// checking so a typo'd key fails loudly rather than being silently ignored.
func loadExplainConfig(path string) ExplainConfig {
	data, err := os.ReadFile(path)
	if err != nil {
		logrus.Fatalf("Failed to read config file %s: %v", path, err)
	}
	var cfg ExplainConfig
	decoder := yaml.NewDecoder(bytes.NewReader(data))
	decoder.KnownFields(true)
	if err := decoder.Decode(&cfg); err != nil {
		logrus.Fatalf("Failed to parse config YAML: %v", err)
	}
	return cfg
}

// toExplainOptions converts the YAML options block into shap.ExplainOptions,
// filling in demo defaults for anything left at or below zero that would
// otherwise wedge the driver: M=100, MaxIter=50, Tol=0.01.
func (o OptionsSpec) toExplainOptions() shap.ExplainOptions {
	m := o.M
	if m <= 0 {
		m = 100
	}
	maxIter := o.MaxIter
	if maxIter <= 0 {
		maxIter = 50
	}
	tol := o.Tol
	if tol <= 0 {
		tol = 0.01
	}
	return shap.ExplainOptions{
		Exact:        o.Exact,
		HybridDegree: o.HybridDegree,
		M:            m,
		Paired:       o.Paired,
		Tol:          tol,
		MaxIter:      maxIter,
		Seed:         o.Seed,
		BatchBudget:  o.BatchBudget,
	}
}

func backgroundFromSpec(spec BackgroundSpec) shap.Background {
	p := 0
	if len(spec.Rows) > 0 {
		p = len(spec.Rows[0])
	}
	data := make([]float64, 0, len(spec.Rows)*p)
	for _, row := range spec.Rows {
		data = append(data, row...)
	}
	table := shap.NewNumericTable(mat.NewDense(len(spec.Rows), p, data))
	return shap.Background{Table: table, Weights: spec.Weights}
}
