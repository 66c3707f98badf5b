// zitadel-export writes the projects, roles, applications and grants of a
// Zitadel instance to a JSON snapshot.
package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/gadgetbot/zitadel-workbench/internal/config"
	"github.com/gadgetbot/zitadel-workbench/internal/logging"
	"github.com/gadgetbot/zitadel-workbench/internal/migration"
	"github.com/gadgetbot/zitadel-workbench/internal/platform"
	"github.com/gadgetbot/zitadel-workbench/internal/snapshot"
)

var (
	version = "dev"
	commit  = "none"
	date    = "unknown"
)

const defaultOutput = "zitadel/export.json"

func newRootCmd() *cobra.Command {
	var (
		output     string
		configPath string
		logLevel   string
		insecure   bool
		skipSystem bool
	)

	cmd := &cobra.Command{
		Use:           "zitadel-export",
		Short:         "Export Zitadel configuration to a JSON snapshot",
		Long:          "Reads every project with its roles, OIDC applications and grants from the\ninstance at ZITADEL_ISSUER_URL and writes them to a snapshot file.",
		Version:       fmt.Sprintf("%s (commit: %s, built: %s)", version, commit, date),
		Args:          cobra.NoArgs,
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := config.Load(configPath)
			if err != nil {
				return err
			}
			if cmd.Flags().Changed("insecure") {
				cfg.Zitadel.Insecure = insecure
			}
			if logLevel != "" {
				cfg.Log.Level = logLevel
			}

			log := logging.New(logging.Config{
				Level:  logging.ParseLevel(cfg.Log.Level),
				Format: logging.ParseFormat(cfg.Log.Format),
			})
			progress := logging.Lines(cmd.OutOrStdout())

			conn := cfg.Zitadel.Connection()
			client := platform.NewClient(conn).WithLogger(log)
			progress("Exporting Zitadel configuration from " + conn.BaseURL())
			progress("")

			snap, err := migration.Export(cmd.Context(), client, migration.ExportOptions{SkipSystem: skipSystem}, progress)
			if err != nil {
				return fmt.Errorf("export failed: %w", err)
			}
			if err := snapshot.Write(output, snap); err != nil {
				return err
			}
			log.Debug("snapshot written", "path", output, "projects", len(snap.Projects))

			progress("")
			progress("Export written to " + output)
			migration.LogSummary(snap, progress)
			return nil
		},
	}

	f := cmd.Flags()
	f.StringVarP(&output, "output", "o", defaultOutput, "Snapshot file to write")
	f.StringVar(&configPath, "config", "", "Path to config file (YAML); defaults to $WORKBENCH_CONFIG")
	f.StringVar(&logLevel, "log-level", "", "Diagnostic log level (debug, info, warn, error)")
	f.BoolVar(&insecure, "insecure", false, "Skip TLS certificate verification")
	f.BoolVar(&skipSystem, "skip-system", false, "Leave out the instance's built-in ZITADEL project")
	return cmd
}

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	err := newRootCmd().ExecuteContext(ctx)
	stop()
	if err != nil {
		fmt.Fprintln(os.Stderr, "Error:", err)
		os.Exit(1)
	}
}
