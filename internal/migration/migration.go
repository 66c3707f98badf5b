package migration

import (
	"context"
	"fmt"

	"github.com/gadgetbot/zitadel-workbench/internal/models"
	"github.com/gadgetbot/zitadel-workbench/internal/platform"
	"github.com/gadgetbot/zitadel-workbench/internal/snapshot"
)

// ExportConnection exports a stored connection after checking it is reachable.
func ExportConnection(ctx context.Context, src *models.Connection, opts ExportOptions, logger func(string)) (*snapshot.ConfigSnapshot, error) {
	client := platform.NewClient(src).WithLogger(opts.Log)
	logger("Checking source connectivity...")
	if err := client.Ping(ctx); err != nil {
		return nil, fmt.Errorf("source connection failed: %w", err)
	}
	logger("Source OK: " + src.Name)
	logger("")
	return Export(ctx, client, opts, logger)
}

// Preview exports the source and plans the import against the destination.
// It returns the plan (for the UI) and the snapshot (for the run step).
func Preview(ctx context.Context, src, dst *models.Connection, opts ImportOptions, logger func(string)) (*models.MigrationPreview, *snapshot.ConfigSnapshot, error) {
	dstClient := platform.NewClient(dst).WithLogger(opts.Log)
	logger("Checking destination connectivity...")
	if err := dstClient.CheckAuth(ctx); err != nil {
		return nil, nil, fmt.Errorf("destination connection failed: %w", err)
	}
	logger("Destination OK: " + dst.Name)
	logger("")

	snap, err := ExportConnection(ctx, src, ExportOptions{SkipSystem: true, Log: opts.Log}, logger)
	if err != nil {
		return nil, nil, fmt.Errorf("export failed: %w", err)
	}

	logger("")
	logger("=== Checking destination ===")
	preview, err := Plan(ctx, snap, dstClient, opts, logger)
	if err != nil {
		return nil, nil, fmt.Errorf("preflight failed: %w", err)
	}
	preview.SourceID = src.ID
	preview.DestinationID = dst.ID

	logger("")
	logger(fmt.Sprintf("Preview complete: %d to create, %d to skip",
		preview.Count(models.ActionCreate),
		preview.Count(models.ActionSkipExists)+preview.Count(models.ActionSkipExcluded)+preview.Count(models.ActionSkipUnresolved)))
	return preview, snap, nil
}

// Run imports a previously exported snapshot into the destination.
func Run(ctx context.Context, dst *models.Connection, snap *snapshot.ConfigSnapshot, opts ImportOptions, logger func(string)) (*ImportResult, error) {
	logger("=== Starting import to " + dst.Name + " ===")
	logger("")
	return Import(ctx, platform.NewClient(dst).WithLogger(opts.Log), snap, opts, logger)
}
