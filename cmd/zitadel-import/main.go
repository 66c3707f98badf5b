// zitadel-import replays a snapshot written by zitadel-export into a Zitadel
// instance, remapping project ids as it goes.
package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/gadgetbot/zitadel-workbench/internal/config"
	"github.com/gadgetbot/zitadel-workbench/internal/ledger"
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

const defaultInput = "zitadel-export.json"

type importFlags struct {
	input        string
	configPath   string
	ledgerPath   string
	logLevel     string
	dryRun       bool
	plan         bool
	resetLedger  bool
	insecure     bool
	tolerateRole bool
	validateIDs  bool
}

func newRootCmd() *cobra.Command {
	var fl importFlags

	cmd := &cobra.Command{
		Use:           "zitadel-import",
		Short:         "Import a Zitadel configuration snapshot",
		Long:          "Creates the projects, roles, OIDC applications and grants of a snapshot in the\ninstance at ZITADEL_ISSUER_URL. Objects that already exist are skipped.",
		Version:       fmt.Sprintf("%s (commit: %s, built: %s)", version, commit, date),
		Args:          cobra.NoArgs,
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runImport(cmd, fl)
		},
	}

	f := cmd.Flags()
	f.StringVarP(&fl.input, "input", "i", defaultInput, "Snapshot file to read")
	f.BoolVar(&fl.dryRun, "dry-run", false, "Print the requests instead of sending them")
	f.BoolVar(&fl.plan, "plan", false, "Compare the snapshot with the instance and print what would change")
	f.StringVar(&fl.configPath, "config", "", "Path to config file (YAML); defaults to $WORKBENCH_CONFIG")
	f.StringVar(&fl.ledgerPath, "ledger", "", "SQLite file recording replayed objects, so re-runs skip them")
	f.BoolVar(&fl.resetLedger, "reset-ledger", false, "Forget the ledger entries for this instance before importing")
	f.BoolVar(&fl.tolerateRole, "tolerate-role-conflicts", false, "Treat an existing role as skipped instead of failing")
	f.BoolVar(&fl.validateIDs, "validate-client-ids", false, "Compare application client ids with ZITADEL_CLIENT_ID")
	f.StringVar(&fl.logLevel, "log-level", "", "Diagnostic log level (debug, info, warn, error)")
	f.BoolVar(&fl.insecure, "insecure", false, "Skip TLS certificate verification")
	return cmd
}

func runImport(cmd *cobra.Command, fl importFlags) error {
	ctx := cmd.Context()
	flags := cmd.Flags()

	if fl.resetLedger && (fl.plan || fl.dryRun) {
		return fmt.Errorf("--reset-ledger cannot be combined with --plan or --dry-run")
	}

	cfg, err := config.Load(fl.configPath)
	if err != nil {
		return err
	}
	if flags.Changed("insecure") {
		cfg.Zitadel.Insecure = fl.insecure
	}
	if flags.Changed("tolerate-role-conflicts") {
		cfg.Import.TolerateRoleConflicts = fl.tolerateRole
	}
	if flags.Changed("validate-client-ids") {
		cfg.Import.ValidateClientIDs = fl.validateIDs
	}
	if fl.ledgerPath != "" {
		cfg.Import.Ledger = fl.ledgerPath
	}
	if fl.logLevel != "" {
		cfg.Log.Level = fl.logLevel
	}

	log := logging.New(logging.Config{
		Level:  logging.ParseLevel(cfg.Log.Level),
		Format: logging.ParseFormat(cfg.Log.Format),
	})
	progress := logging.Lines(cmd.OutOrStdout())

	snap, err := snapshot.Read(fl.input)
	if err != nil {
		return err
	}
	log.Debug("snapshot loaded", "path", fl.input, "exportedAt", snap.ExportedAt)

	conn := cfg.Zitadel.Connection()
	client := platform.NewClient(conn).WithLogger(log)

	opts := cfg.ImportOptions()
	opts.DryRun = fl.dryRun
	if flags.Changed("validate-client-ids") {
		opts.ValidateClientIDs = fl.validateIDs
	}

	var l *ledger.Ledger
	if cfg.Import.Ledger != "" {
		l, err = ledger.Open(cfg.Import.Ledger, conn.BaseURL())
		if err != nil {
			return err
		}
		defer l.Close()
		if fl.resetLedger {
			if err := l.Reset(ctx); err != nil {
				return err
			}
			progress("Ledger reset for " + conn.BaseURL())
		}
		opts.Ledger = l
	} else if fl.resetLedger {
		return fmt.Errorf("--reset-ledger needs --ledger or import.ledger in the config file")
	}

	if fl.plan {
		progress("Planning import into " + conn.BaseURL())
		progress("")
		preview, err := migration.Plan(ctx, snap, client, opts, progress)
		if err != nil {
			return fmt.Errorf("plan failed: %w", err)
		}
		progress("")
		migration.LogPlan(preview, progress)
		return nil
	}

	progress("Importing Zitadel configuration into " + conn.BaseURL())
	progress("")

	result, err := migration.Import(ctx, client, snap, opts, progress)
	if err != nil {
		return fmt.Errorf("import failed: %w", err)
	}

	if l != nil {
		entries, err := l.Entries(ctx)
		if err != nil {
			return err
		}
		progress(fmt.Sprintf("Ledger: %d objects recorded for %s", len(entries), conn.BaseURL()))
	}
	if !fl.dryRun {
		progress("")
		if result.Applications.Created > 0 {
			progress(fmt.Sprintf("%d applications were created with new client ids.", result.Applications.Created))
		}
		progress("IMPORTANT: update downstream configuration with the new credentials:")
		progress("  - ZITADEL_CLIENT_ID")
		progress("  - ZITADEL_CLIENT_SECRET (if applicable)")
		progress("Find them in the Zitadel console under Projects > Applications.")
	}
	return nil
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
