package cmd

import (
	"context"
	"os"

	"github.com/sirupsen/logrus"
	"github.com/spf13/cobra"

	sim "github.com/cookiefactory/line-sim/sim"
	"github.com/cookiefactory/line-sim/sim/record"
)

var (
	logLevel string // Log verbosity level

	// CLI flags for the run command
	seed           int64   // Seed for failure injection
	horizon        float64 // Virtual minutes to simulate
	lineConfigPath string  // Optional YAML line description
	telemetryOut   string  // Telemetry stream file
	oeeOut         string  // OEE stream file
	appendStreams  bool    // Keep existing stream records
	sqlitePath     string  // Optional SQLite database to record into
	printSummary   bool    // Print the end-of-run summary to stdout
)

// rootCmd is the base command for the CLI
var rootCmd = &cobra.Command{
	Use:   "line-sim",
	Short: "Discrete-event simulator for production line telemetry",
	PersistentPreRun: func(cmd *cobra.Command, args []string) {
		level, err := logrus.ParseLevel(logLevel)
		if err != nil {
			logrus.Fatalf("Invalid log level: %s", logLevel)
		}
		logrus.SetLevel(level)
	},
}

// runCmd executes the simulation using parameters from CLI flags
var runCmd = &cobra.Command{
	Use:   "run",
	Short: "Simulate the line and write telemetry and OEE streams",
	Run: func(cmd *cobra.Command, args []string) {
		cfg, err := resolveLineConfig(cmd)
		if err != nil {
			logrus.Fatalf("%v", err)
		}

		sink, err := openSinks(cmd.Context(), cfg.ID)
		if err != nil {
			logrus.Fatalf("Failed to open record sinks: %v", err)
		}
		var recorded *record.MemorySink
		if printSummary {
			recorded = record.NewMemorySink()
			sink = record.Tee(sink, recorded)
		}

		logrus.Infof("Starting simulation of %s: %d units, horizon=%.3f, seed=%d",
			cfg.ID, len(cfg.Units), cfg.Horizon, cfg.Seed)

		line, err := sim.NewLine(cfg, sink)
		if err != nil {
			_ = sink.Close()
			logrus.Fatalf("Failed to assemble line: %v", err)
		}
		runErr := line.Run()
		if err := sink.Close(); err != nil {
			logrus.Fatalf("Failed to close record sinks: %v", err)
		}
		if runErr != nil {
			logrus.Fatalf("Simulation recording failed: %v", runErr)
		}

		if printSummary {
			line.Summary().Print(os.Stdout, line.UnitIDs())
			record.Summarize(recorded).Print(os.Stdout)
		}
		logrus.Info("Simulation complete.")
	},
}

// resolveLineConfig loads the line description and applies flag overrides.
// Flags only override the file when explicitly set.
func resolveLineConfig(cmd *cobra.Command) (sim.LineConfig, error) {
	cfg := sim.DefaultLineConfig()
	if lineConfigPath != "" {
		loaded, err := sim.LoadLineConfig(lineConfigPath)
		if err != nil {
			return cfg, err
		}
		cfg = loaded
	}
	if cmd.Flags().Changed("seed") {
		cfg.Seed = seed
	}
	if cmd.Flags().Changed("horizon") {
		cfg.Horizon = horizon
	}
	return cfg, cfg.Validate()
}

func openSinks(ctx context.Context, lineID string) (record.Sink, error) {
	if ctx == nil {
		ctx = context.Background()
	}
	jsonl, err := record.NewJSONLSink(record.JSONLConfig{
		TelemetryPath: telemetryOut,
		OEEPath:       oeeOut,
		Append:        appendStreams,
	})
	if err != nil {
		return nil, err
	}
	if sqlitePath == "" {
		return jsonl, nil
	}
	db, err := record.NewSQLiteSink(ctx, sqlitePath, lineID)
	if err != nil {
		_ = jsonl.Close()
		return nil, err
	}
	logrus.Infof("Recording run %s into %s", db.RunID(), sqlitePath)
	return record.Tee(jsonl, db), nil
}

// Execute runs the CLI root command
func Execute() {
	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}

// init sets up CLI flags and subcommands
func init() {
	defaults := sim.DefaultLineConfig()

	rootCmd.PersistentFlags().StringVar(&logLevel, "log", "warn", "Log level (trace, debug, info, warn, error, fatal, panic)")

	runCmd.Flags().Int64Var(&seed, "seed", defaults.Seed, "Seed for failure injection")
	runCmd.Flags().Float64Var(&horizon, "horizon", defaults.Horizon, "Simulation horizon (virtual minutes)")
	runCmd.Flags().StringVar(&lineConfigPath, "line-config", "", "Path to a YAML line description (defaults to the built-in cookie line)")
	runCmd.Flags().StringVar(&telemetryOut, "telemetry-out", record.DefaultTelemetryFile, "Telemetry stream output file")
	runCmd.Flags().StringVar(&oeeOut, "oee-out", record.DefaultOEEFile, "OEE stream output file")
	runCmd.Flags().BoolVar(&appendStreams, "append", false, "Append to existing stream files instead of starting fresh")
	runCmd.Flags().StringVar(&sqlitePath, "sqlite", "", "Also record the run into this SQLite database")
	runCmd.Flags().BoolVar(&printSummary, "summary", true, "Print the end-of-run summary")

	// Attach `run` as a subcommand to `root`
	rootCmd.AddCommand(runCmd)
}
