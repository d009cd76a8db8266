package cmd

import (
	"encoding/json"
	"os"
	"time"

	"github.com/sirupsen/logrus"
	"github.com/spf13/cobra"

	"github.com/cookiefactory/line-sim/sim/replay"
)

var (
	queryEntity     string
	queryProperties []string
	queryStart      string
	queryEnd        string
	queryMaxRows    int
	replaySQLite    string
	replayRunID     string
)

// queryCmd replays one query against the recorded streams and prints the rows as JSON.
var queryCmd = &cobra.Command{
	Use:   "query",
	Short: "Replay recorded streams for one entity over a time range",
	Run: func(cmd *cobra.Command, args []string) {
		start, err := time.Parse(time.RFC3339, queryStart)
		if err != nil {
			logrus.Fatalf("Invalid --start %q: %v", queryStart, err)
		}
		end, err := time.Parse(time.RFC3339, queryEnd)
		if err != nil {
			logrus.Fatalf("Invalid --end %q: %v", queryEnd, err)
		}

		cfg := loadReplayConfig()
		cfg.SQLitePath, cfg.RunID = replaySQLite, replayRunID
		svc, err := buildReplayService(cmd.Context(), cfg, nil)
		if err != nil {
			logrus.Fatalf("%v", err)
		}

		rows, err := svc.Query(replay.Request{
			EntityID:           queryEntity,
			SelectedProperties: queryProperties,
			Start:              start,
			End:                end,
			MaxRows:            queryMaxRows,
		})
		if err != nil {
			logrus.Fatalf("Query failed: %v", err)
		}
		enc := json.NewEncoder(os.Stdout)
		enc.SetIndent("", "  ")
		if err := enc.Encode(rows); err != nil {
			logrus.Fatalf("Failed to write rows: %v", err)
		}
	},
}

func init() {
	queryCmd.Flags().StringVar(&queryEntity, "entity", "", "Entity id to query")
	queryCmd.Flags().StringSliceVar(&queryProperties, "property", []string{"OEE"}, "Property to select (can be repeated)")
	queryCmd.Flags().StringVar(&queryStart, "start", "", "Start of the range (RFC 3339)")
	queryCmd.Flags().StringVar(&queryEnd, "end", "", "End of the range (RFC 3339)")
	queryCmd.Flags().IntVar(&queryMaxRows, "max-rows", 100, "Maximum rows per property (0 = default of 100, at most 10000)")
	queryCmd.Flags().StringVar(&replaySQLite, "sqlite", "", "Read streams from this SQLite database instead of files")
	queryCmd.Flags().StringVar(&replayRunID, "run-id", "", "SQLite run to replay (default: latest)")
	_ = queryCmd.MarkFlagRequired("entity")
	_ = queryCmd.MarkFlagRequired("start")
	_ = queryCmd.MarkFlagRequired("end")

	rootCmd.AddCommand(queryCmd)
}
