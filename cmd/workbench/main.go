package main

import (
	"context"
	"fmt"
	"net/http"
	"os"

	"github.com/gadgetbot/zitadel-workbench/internal/api"
	"github.com/gadgetbot/zitadel-workbench/internal/config"
	"github.com/gadgetbot/zitadel-workbench/internal/logging"
	"github.com/gadgetbot/zitadel-workbench/internal/models"
	"github.com/gadgetbot/zitadel-workbench/internal/platform"
)

var (
	version = "dev"
	commit  = "none"
	date    = "unknown"
)

func main() {
	for _, arg := range os.Args[1:] {
		if arg == "--version" || arg == "-v" {
			fmt.Printf("workbench %s (commit: %s, built: %s)\n", version, commit, date)
			os.Exit(0)
		}
	}

	cfg := config.Parse()
	log := logging.New(logging.Config{
		Level:  logging.ParseLevel(cfg.Log.Level),
		Format: logging.ParseFormat(cfg.Log.Format),
	})

	server := &api.Server{
		Connections: models.NewConnectionStore(),
		Jobs:        models.NewJobStore(),
		Previews:    api.NewPreviewStore(),
		Snapshots:   api.NewSnapshotStore(),
		Import:      cfg.ImportOptions(),
		LedgerPath:  cfg.Import.Ledger,
		Log:         log,
	}

	// Load pre-configured connections and verify connectivity and auth early
	progress := logging.Lines(os.Stdout)
	for _, cc := range cfg.Connections {
		conn := cc.Connection(cfg.Zitadel.Timeout)
		server.Connections.Create(conn)
		progress(fmt.Sprintf("Loaded connection: %s (%s, %s)", conn.Name, conn.BaseURL(), conn.Role))
		platform.CheckConnection(context.Background(), conn, server.Connections, progress)
	}

	log.Info("workbench starting", "version", version, "listen", cfg.Listen,
		"connections", len(cfg.Connections), "ledger", cfg.Import.Ledger)
	fmt.Printf("Zitadel Workbench %s API listening on %s\n", version, cfg.Listen)

	if err := http.ListenAndServe(cfg.Listen, api.NewRouter(server)); err != nil {
		log.Error("server stopped", "error", err)
		os.Exit(1)
	}
}
