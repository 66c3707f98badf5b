package migration

import (
	"context"
	"fmt"

	"github.com/gadgetbot/zitadel-workbench/internal/models"
	"github.com/gadgetbot/zitadel-workbench/internal/platform"
	"github.com/gadgetbot/zitadel-workbench/internal/snapshot"
)

// ProjectFinder looks projects up by name on the destination.
// *platform.Client satisfies it.
type ProjectFinder interface {
	HasToken() bool
	FindProjectByName(ctx context.Context, name string) (models.Resource, error)
}

// Resource kinds in the order they appear in a plan.
var planOrder = []string{"projects", "roles", "applications", "grants"}

// Plan classifies every snapshot entity as create, skip_exists,
// skip_excluded or skip_unresolved without writing anything. Existence is
// only probed for projects; the other kinds are planned as creates.
func Plan(ctx context.Context, snap *snapshot.ConfigSnapshot, dst ProjectFinder, opts ImportOptions, logger func(string)) (*models.MigrationPreview, error) {
	if !dst.HasToken() {
		return nil, platform.ErrMissingToken
	}
	preview := &models.MigrationPreview{
		Resources: make(map[string][]models.MigrationResource),
	}
	names := make(map[string]string)
	planned := make(map[string]bool) // source project ids that will exist on the destination
	excluded := make(map[string]bool)

	logger("Checking projects on destination...")
	for _, proj := range snap.Projects {
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		srcID := resourceID(proj)
		name := resourceName(proj)
		names[srcID] = name
		mr := models.MigrationResource{SourceID: srcID, Name: name, Type: "projects", Action: models.ActionCreate}

		if isExcluded(opts.Exclude, "projects", name) {
			mr.Action = models.ActionSkipExcluded
			excluded[srcID] = true
		} else {
			existing, err := dst.FindProjectByName(ctx, name)
			if err != nil {
				return nil, fmt.Errorf("checking project %s: %w", name, err)
			}
			if id := resourceID(existing); id != "" {
				mr.Action = models.ActionSkipExists
				mr.DestID = id
				logger(fmt.Sprintf("  %s: exists (dest ID %s)", name, id))
			}
			planned[srcID] = true
		}
		preview.Resources["projects"] = append(preview.Resources["projects"], mr)
	}

	for _, role := range snap.Roles {
		src := projectRef(role)
		mr := models.MigrationResource{
			Name:    resourceName(role),
			Type:    "roles",
			Project: names[src],
			Action:  models.ActionCreate,
		}
		switch {
		case excluded[src] || isExcluded(opts.Exclude, "roles", mr.Name):
			mr.Action = models.ActionSkipExcluded
		case !planned[src]:
			mr.Action = models.ActionSkipUnresolved
		}
		preview.Resources["roles"] = append(preview.Resources["roles"], mr)
	}

	assoc := newAssociator(snap.Projects, opts.Rules, func(id string) bool { return planned[id] })
	for _, app := range snap.Applications {
		mr := models.MigrationResource{
			SourceID: resourceID(app),
			Name:     resourceName(app),
			Type:     "applications",
			Action:   models.ActionCreate,
		}
		if excluded[projectRef(app)] || isExcluded(opts.Exclude, "applications", mr.Name) {
			mr.Action = models.ActionSkipExcluded
		} else if src, strategy, ok := assoc.associate(app); ok {
			mr.Project = names[src]
			mr.Strategy = string(strategy)
		} else {
			mr.Action = models.ActionSkipUnresolved
			logger(fmt.Sprintf("  %s: no project resolved (client id %q)", mr.Name, clientID(app)))
		}
		preview.Resources["applications"] = append(preview.Resources["applications"], mr)
	}

	for _, grant := range snap.Grants {
		src := projectRef(grant)
		mr := models.MigrationResource{
			SourceID: stringField(grant, "grantId"),
			Name:     grantLabel(grant),
			Type:     "grants",
			Project:  names[src],
			Action:   models.ActionCreate,
		}
		switch {
		case excluded[src] || isExcluded(opts.Exclude, "grants", mr.Name):
			mr.Action = models.ActionSkipExcluded
		case !planned[src]:
			mr.Action = models.ActionSkipUnresolved
		}
		preview.Resources["grants"] = append(preview.Resources["grants"], mr)
	}

	if opts.ValidateClientIDs {
		preview.Warnings = append(preview.Warnings, ValidateClientIDs(snap.Applications, opts.ClientIDCheck, logger)...)
	}
	if len(snap.Applications) > 0 {
		preview.Warnings = append(preview.Warnings,
			"Applications get new client ids and secrets on the destination. Update ZITADEL_CLIENT_ID and any stored client secrets after the import.")
	}
	if n := preview.Count(models.ActionSkipUnresolved); n > 0 {
		preview.Warnings = append(preview.Warnings,
			fmt.Sprintf("%d resources have no resolvable project and will be skipped.", n))
	}
	return preview, nil
}

// LogPlan prints a plan grouped by kind.
func LogPlan(preview *models.MigrationPreview, logger func(string)) {
	for _, kind := range planOrder {
		items := preview.Resources[kind]
		if len(items) == 0 {
			continue
		}
		logger(fmt.Sprintf("%s:", kind))
		for _, item := range items {
			line := fmt.Sprintf("  %-16s %s", item.Action, item.Name)
			if item.Project != "" {
				line += " [" + item.Project + "]"
			}
			if item.Strategy != "" {
				line += " via " + item.Strategy
			}
			logger(line)
		}
	}
	for _, w := range preview.Warnings {
		logger("WARNING: " + w)
	}
	logger(fmt.Sprintf("Plan: %d to create, %d existing, %d excluded, %d unresolved",
		preview.Count(models.ActionCreate), preview.Count(models.ActionSkipExists),
		preview.Count(models.ActionSkipExcluded), preview.Count(models.ActionSkipUnresolved)))
}
