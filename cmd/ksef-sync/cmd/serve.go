package cmd

import (
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"

	"github.com/rezonia/ksef-sync/internal/export"
	"github.com/rezonia/ksef-sync/internal/server"
	syncsvc "github.com/rezonia/ksef-sync/internal/sync"
)

var (
	serverAddr   string
	serverDebug  bool
	readTimeout  time.Duration
	writeTimeout time.Duration
)

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Start the HTTP API server",
	Long: `Start an HTTP API server over the sync/export pipeline.

Endpoints:
  POST /api/v1/entities/:id/sync      - Run one sync page
  POST /api/v1/entities/:id/export    - Export invoices to Symfonia FK
  GET  /api/v1/entities/:id/invoices  - List stored invoices
  POST /api/v1/invoices/:id/archive   - Archive one invoice
  GET  /api/v1/entities/:id/batches   - Export batch history
  GET  /api/v1/batches/:id            - One batch with its invoices
  GET  /health                        - Health check`,
	RunE: runServe,
}

func init() {
	rootCmd.AddCommand(serveCmd)

	serveCmd.Flags().StringVar(&serverAddr, "address", ":8080", "Server listen address")
	serveCmd.Flags().BoolVar(&serverDebug, "debug", false, "Enable debug mode")
	serveCmd.Flags().DurationVar(&readTimeout, "read-timeout", 30*time.Second, "HTTP read timeout")
	serveCmd.Flags().DurationVar(&writeTimeout, "write-timeout", 5*time.Minute, "HTTP write timeout")
}

func runServe(cmd *cobra.Command, args []string) error {
	cfg, log, db, err := setup()
	if err != nil {
		return err
	}
	defer db.Close()

	if err := os.MkdirAll(cfg.ExportDir, 0o755); err != nil {
		return fmt.Errorf("create export directory: %w", err)
	}

	srv := server.NewServer(&server.Config{
		Address:      serverAddr,
		ExportDir:    cfg.ExportDir,
		ReadTimeout:  readTimeout,
		WriteTimeout: writeTimeout,
		Debug:        serverDebug,
	},
		syncsvc.NewService(db, db, log).WithTimeout(cfg.HTTPTimeout),
		export.NewService(db, db, db, log),
		db,
		log,
	)

	go func() {
		sigCh := make(chan os.Signal, 1)
		signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)
		<-sigCh
		fmt.Println("\nShutting down server...")
		os.Exit(0)
	}()

	log.Info().Str("address", serverAddr).Msg("starting server")
	return srv.Run()
}
