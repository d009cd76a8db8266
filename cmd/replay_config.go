package cmd

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/sirupsen/logrus"
	"github.com/spf13/viper"

	"github.com/cookiefactory/line-sim/sim/record"
	"github.com/cookiefactory/line-sim/sim/replay"
)

// Environment keys read by the replay commands.
const (
	envOEEInterval       = "TELEMETRY_OEE_TIME_INTERVAL_SECONDS"
	envOEEFile           = "TELEMETRY_OEE_FILE_NAME"
	envTelemetryInterval = "TELEMETRY_DATA_TIME_INTERVAL_SECONDS"
	envTelemetryFile     = "TELEMETRY_DATA_FILE_NAME"
	envPort              = "PORT"
)

// ReplayConfig is the environment-driven configuration of the query service.
type ReplayConfig struct {
	OEEInterval       time.Duration
	OEEFile           string
	TelemetryInterval time.Duration
	TelemetryFile     string
	Port              int
	SQLitePath        string // when set, streams are read from this database instead of files
	RunID             string // SQLite run to replay; empty selects the latest
}

// loadReplayConfig reads ReplayConfig from the environment. Blank or
// unparsable values fall back to the defaults.
func loadReplayConfig() ReplayConfig {
	v := viper.New()
	v.AutomaticEnv()
	v.SetDefault(envOEEInterval, 30)
	v.SetDefault(envOEEFile, record.DefaultOEEFile)
	v.SetDefault(envTelemetryInterval, 10)
	v.SetDefault(envTelemetryFile, record.DefaultTelemetryFile)
	v.SetDefault(envPort, 8080)

	cfg := ReplayConfig{
		OEEInterval:       positiveSeconds(v.GetInt(envOEEInterval), 30),
		OEEFile:           nonBlank(v.GetString(envOEEFile), record.DefaultOEEFile),
		TelemetryInterval: positiveSeconds(v.GetInt(envTelemetryInterval), 10),
		TelemetryFile:     nonBlank(v.GetString(envTelemetryFile), record.DefaultTelemetryFile),
		Port:              v.GetInt(envPort),
	}
	if cfg.Port <= 0 {
		cfg.Port = 8080
	}
	return cfg
}

func positiveSeconds(n, fallback int) time.Duration {
	if n <= 0 {
		n = fallback
	}
	return time.Duration(n) * time.Second
}

func nonBlank(s, fallback string) string {
	if strings.TrimSpace(s) == "" {
		return fallback
	}
	return s
}

// buildReplayService loads both streams and wraps them in a replay.Service.
// A missing telemetry stream is tolerated; the OEE stream is required.
func buildReplayService(ctx context.Context, cfg ReplayConfig, metrics *replay.Metrics) (*replay.Service, error) {
	var oeeRecs []record.OEE
	var telemetryRecs []record.Telemetry

	if cfg.SQLitePath != "" {
		mem, err := record.ReadSQLite(ctx, cfg.SQLitePath, cfg.RunID)
		if err != nil {
			return nil, fmt.Errorf("loading replay data: %w", err)
		}
		oeeRecs, telemetryRecs = mem.OEE, mem.Telemetry
	} else {
		var err error
		oeeRecs, err = record.ReadOEEFile(cfg.OEEFile)
		if err != nil {
			return nil, fmt.Errorf("loading replay data: %w", err)
		}
		telemetryRecs, err = record.ReadTelemetryFile(cfg.TelemetryFile)
		if err != nil {
			logrus.Warnf("Telemetry stream unavailable, serving OEE only: %v", err)
		}
	}

	logrus.Infof("Loaded %d OEE and %d telemetry records", len(oeeRecs), len(telemetryRecs))
	return replay.NewService(metrics,
		replay.NewOEEDataset(cfg.OEEInterval, oeeRecs),
		replay.NewTelemetryDataset(cfg.TelemetryInterval, telemetryRecs),
	), nil
}
