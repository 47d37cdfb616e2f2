package main

import (
	"os"

	"github.com/spf13/cobra"

	"github.com/jackzampolin/sift/internal/server"
)

var (
	serveHost string
	servePort string
)

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Start the Sift server",
	Long: `Start the Sift HTTP server and web UI.

The server keeps sessions in memory; they expire after the configured
idle time and are discarded on shutdown. Changes to the config file are
picked up without a restart.

The server provides:
  - /        - Web UI
  - /api/... - Session API (see /swagger/)
  - /health  - Basic server health check
  - /ready   - Readiness check (includes LLM provider status)

Examples:
  sift serve                    # Start on default port 8080
  sift serve --port 3000        # Start on custom port
  sift serve --host 0.0.0.0     # Bind to all interfaces`,
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx := cmd.Context()

		h, cm, err := loadEnv()
		if err != nil {
			return err
		}

		path := logFile
		if path == "" {
			path = h.LogPath()
		}
		logger, closeLog, err := newLogger(os.Stdout, path)
		if err != nil {
			return err
		}
		defer closeLog()

		if f := cm.ConfigFile(); f != "" {
			logger.Info("using config file", "path", f)
			cm.WatchConfig()
		} else {
			logger.Info("no config file found, using defaults", "hint", "sift config init")
		}

		srv, err := server.New(server.Config{
			Host:          serveHost,
			Port:          servePort,
			ConfigManager: cm,
			Home:          h,
			Logger:        logger,
		})
		if err != nil {
			return err
		}

		// Start server (blocks until shutdown)
		return srv.Start(ctx)
	},
}

func init() {
	serveCmd.Flags().StringVar(&serveHost, "host", "127.0.0.1", "Host to bind to")
	serveCmd.Flags().StringVar(&servePort, "port", "8080", "Port to listen on")

	rootCmd.AddCommand(serveCmd)
}
