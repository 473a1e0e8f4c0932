// cmd/root.go
package cmd

import (
	"context"
	"fmt"
	"os"

	"github.com/sirupsen/logrus"
	"github.com/spf13/cobra"

	"github.com/inference-sim/kernelshap/shap"
)

var (
	configPath string
	logLevel   string
)

var rootCmd = &cobra.Command{
	Use:   "kernelshap",
	Short: "Kernel SHAP attribution engine",
}

var explainCmd = &cobra.Command{
	Use:   "explain",
	Short: "Explain a single instance against a background distribution",
	Run: func(cmd *cobra.Command, args []string) {
		level, err := logrus.ParseLevel(logLevel)
		if err != nil {
			logrus.Fatalf("Invalid log level: %s", logLevel)
		}
		logrus.SetLevel(level)

		cfg := loadExplainConfig(configPath)
		bg := backgroundFromSpec(cfg.Background)
		model := LinearModel{Intercept: cfg.Model.Intercept, Weights: cfg.Model.Weights}
		opts := cfg.Options.toExplainOptions()

		logrus.WithFields(logrus.Fields{
			"p":      len(cfg.Instance),
			"n_bg":   len(cfg.Background.Rows),
			"exact":  opts.Exact,
			"degree": opts.HybridDegree,
		}).Info("kernelshap: explaining instance")

		res, err := shap.ExplainOne(context.Background(), shap.NumericRow(cfg.Instance), bg, model.Predict, opts)
		if err != nil {
			logrus.Warnf("explain: %v", err)
		}
		printResult(res)
	},
}

func printResult(res shap.Result) {
	rows, k := res.Beta.Dims()
	fmt.Printf("strategy=%s converged=%t n_iter=%d\n", res.Strategy, res.Converged, res.NIter)
	for i := 0; i < rows; i++ {
		for col := 0; col < k; col++ {
			fmt.Printf("feature[%d] beta=%.6f sigma=%.6f\n", i, res.Beta.At(i, col), res.Sigma.At(i, col))
		}
	}
}

// Execute runs the kernelshap CLI and exits the process with a nonzero
// status on error.
func Execute() {
	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}

func init() {
	explainCmd.Flags().StringVar(&configPath, "config", "explain.yaml", "Path to the explain config file")
	explainCmd.Flags().StringVar(&logLevel, "log", "info", "Log level (debug, info, warn, error)")

	rootCmd.AddCommand(explainCmd)
}
