package cmd

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/sirupsen/logrus"
	"github.com/spf13/cobra"

	"github.com/cookiefactory/line-sim/sim/replay"
)

var servePort int

// serveCmd exposes the replay service over HTTP.
var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Serve replay queries over HTTP",
	Run: func(cmd *cobra.Command, args []string) {
		cfg := loadReplayConfig()
		cfg.SQLitePath, cfg.RunID = replaySQLite, replayRunID
		if cmd.Flags().Changed("port") {
			cfg.Port = servePort
		}

		metrics := replay.NewMetrics("line_sim")
		svc, err := buildReplayService(context.Background(), cfg, metrics)
		if err != nil {
			logrus.Fatalf("%v", err)
		}

		srv := &http.Server{
			Addr:              fmt.Sprintf(":%d", cfg.Port),
			Handler:           newRouter(svc, metrics),
			ReadHeaderTimeout: 10 * time.Second,
		}

		ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
		defer stop()
		go func() {
			<-ctx.Done()
			logrus.Info("Received termination signal.")
			shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
			defer cancel()
			_ = srv.Shutdown(shutdownCtx)
		}()

		logrus.Infof("Serving replay queries on %s", srv.Addr)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logrus.Errorf("Server failed: %v", err)
			os.Exit(1)
		}
	},
}

// newRouter wires the query, health and metrics endpoints.
func newRouter(svc *replay.Service, metrics *replay.Metrics) *gin.Engine {
	r := gin.New()
	r.Use(gin.Recovery())

	r.GET("/health", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"status": "healthy"})
	})

	r.POST("/query", func(c *gin.Context) {
		var req replay.Request
		if err := c.ShouldBindJSON(&req); err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
			return
		}
		rows, err := svc.Query(req)
		if err != nil {
			status := http.StatusInternalServerError
			if replay.IsClientError(err) {
				status = http.StatusBadRequest
			}
			c.JSON(status, gin.H{"error": err.Error()})
			return
		}
		c.JSON(http.StatusOK, gin.H{"rows": rows})
	})

	if metrics != nil {
		r.GET("/metrics", gin.WrapH(metrics.Handler()))
	}
	return r
}

func init() {
	serveCmd.Flags().IntVar(&servePort, "port", 8080, "Listen port (overrides PORT)")
	serveCmd.Flags().StringVar(&replaySQLite, "sqlite", "", "Read streams from this SQLite database instead of files")
	serveCmd.Flags().StringVar(&replayRunID, "run-id", "", "SQLite run to replay (default: latest)")

	rootCmd.AddCommand(serveCmd)
}
