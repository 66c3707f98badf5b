package migration

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/gadgetbot/zitadel-workbench/internal/models"
	"github.com/gadgetbot/zitadel-workbench/internal/platform"
	"github.com/gadgetbot/zitadel-workbench/internal/snapshot"
)

const mgmt = "/management/v1"

// Source is an instance the exporter reads from. *platform.Client satisfies it.
type Source interface {
	HasToken() bool
	SearchAll(ctx context.Context, path string, queries []interface{}) ([]models.Resource, error)
}

// System projects every instance carries; never worth exporting.
var skipNames = map[string]map[string]bool{
	"projects": {"ZITADEL": true},
}

// DefaultExclusions returns the names skipped when system projects are left out.
func DefaultExclusions() map[string][]string {
	result := make(map[string][]string)
	for typeName, names := range skipNames {
		for name := range names {
			result[typeName] = append(result[typeName], name)
		}
	}
	return result
}

// ExportOptions tunes the export traversal.
type ExportOptions struct {
	// SkipSystem leaves out the instance's built-in projects.
	SkipSystem bool
	// Now stamps exportedAt; defaults to time.Now.
	Now func() time.Time
	// Log receives request-level diagnostics from clients built for the
	// export. Nil discards them.
	Log *slog.Logger
}

// Export walks every project of src and collects its applications, roles and
// grants into a snapshot. The first failing request aborts the export.
func Export(ctx context.Context, src Source, opts ExportOptions, logger func(string)) (*snapshot.ConfigSnapshot, error) {
	if !src.HasToken() {
		return nil, platform.ErrMissingToken
	}
	now := time.Now
	if opts.Now != nil {
		now = opts.Now
	}
	snap := snapshot.New(now())

	logger("=== Exporting projects ===")
	projects, err := src.SearchAll(ctx, mgmt+"/projects/_search", nil)
	if err != nil {
		return nil, fmt.Errorf("projects: %w", err)
	}
	for _, p := range projects {
		if opts.SkipSystem && skipNames["projects"][resourceName(p)] {
			logger(fmt.Sprintf("  SKIP (system): %s", resourceName(p)))
			continue
		}
		if resourceID(p) == "" {
			// Nothing could reference it, and the snapshot format requires an id.
			logger(fmt.Sprintf("  SKIP (no id): %s", resourceName(p)))
			continue
		}
		snap.Projects = append(snap.Projects, p)
	}
	logger(fmt.Sprintf("  ✓ %d projects", len(snap.Projects)))

	for _, project := range snap.Projects {
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		id := resourceID(project)
		logger("")
		logger(fmt.Sprintf("Exporting details for project: %s", resourceName(project)))

		apps, err := fetchScoped(ctx, src, id, "apps")
		if err != nil {
			return nil, err
		}
		snap.Applications = append(snap.Applications, apps...)
		logger(fmt.Sprintf("  ✓ %d applications", len(apps)))

		roles, err := fetchScoped(ctx, src, id, "roles")
		if err != nil {
			return nil, err
		}
		snap.Roles = append(snap.Roles, roles...)
		logger(fmt.Sprintf("  ✓ %d roles", len(roles)))

		grants, err := fetchScoped(ctx, src, id, "grants")
		if err != nil {
			return nil, err
		}
		snap.Grants = append(snap.Grants, grants...)
		logger(fmt.Sprintf("  ✓ %d grants", len(grants)))
	}

	return snap, nil
}

// fetchScoped lists one child collection of a project and stamps each item
// with the owning project's id. Applications are always stamped since the API
// omits it; roles and grants keep a projectId they already carry.
func fetchScoped(ctx context.Context, src Source, projectID, collection string) ([]models.Resource, error) {
	path := fmt.Sprintf("%s/projects/%s/%s/_search", mgmt, projectID, collection)
	items, err := src.SearchAll(ctx, path, nil)
	if err != nil {
		return nil, fmt.Errorf("%s of project %s: %w", collection, projectID, err)
	}
	out := make([]models.Resource, 0, len(items))
	for _, item := range items {
		if collection == "apps" || projectRef(item) == "" {
			item = item.Clone()
			item["projectId"] = projectID
		}
		out = append(out, item)
	}
	return out, nil
}

// LogSummary prints the per-kind counts of a finished export.
func LogSummary(snap *snapshot.ConfigSnapshot, logger func(string)) {
	s := snap.Summary()
	logger("Summary:")
	logger(fmt.Sprintf("  - Projects: %d", s.Projects))
	logger(fmt.Sprintf("  - Applications: %d", s.Applications))
	logger(fmt.Sprintf("  - Roles: %d", s.Roles))
	logger(fmt.Sprintf("  - Grants: %d", s.Grants))
}
