package migration

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"

	"github.com/gadgetbot/zitadel-workbench/internal/models"
	"github.com/gadgetbot/zitadel-workbench/internal/platform"
	"github.com/gadgetbot/zitadel-workbench/internal/snapshot"
)

// Target is the instance an import writes to. *platform.Client satisfies it.
type Target interface {
	HasToken() bool
	Post(ctx context.Context, path string, payload interface{}) ([]byte, int, error)
	FindProjectByName(ctx context.Context, name string) (models.Resource, error)
}

// Ledger remembers what earlier runs created so a re-run can skip it without
// asking the destination. Keys are natural keys (names), never source ids.
type Ledger interface {
	Lookup(ctx context.Context, kind, key string) (string, bool, error)
	Record(ctx context.Context, kind, key, sourceID, targetID string) error
}

// Ledger kinds.
const (
	KindProject     = "project"
	KindRole        = "role"
	KindApplication = "application"
	KindGrant       = "grant"
)

// ImportOptions controls a replay.
type ImportOptions struct {
	DryRun bool
	// TolerateRoleConflicts turns a 409 on role creation into a skip.
	TolerateRoleConflicts bool
	Rules                 []Rule
	// Exclude maps a kind ("projects", "roles", "applications", "grants") to
	// names left out of the import.
	Exclude map[string][]string
	Ledger  Ledger

	ValidateClientIDs bool
	ClientIDCheck     ClientIDCheck

	// Log receives request-level diagnostics from clients built for the
	// run. Nil discards them.
	Log *slog.Logger
}

// KindStats counts outcomes for one resource kind.
type KindStats struct {
	Created  int `json:"created"`
	Existing int `json:"existing"`
	Skipped  int `json:"skipped"`
	Excluded int `json:"excluded"`
}

// ImportResult summarizes a replay.
type ImportResult struct {
	Projects     KindStats     `json:"projects"`
	Roles        KindStats     `json:"roles"`
	Applications KindStats     `json:"applications"`
	Grants       KindStats     `json:"grants"`
	ProjectIDs   *ProjectIDMap `json:"-"`
	Warnings     []string      `json:"warnings,omitempty"`
}

// replay carries the state of one import run.
type replay struct {
	target Target
	snap   *snapshot.ConfigSnapshot
	opts   ImportOptions
	logger func(string)

	ids      *ProjectIDMap
	excluded map[string]bool   // source project ids left out
	names    map[string]string // source project id -> name
	result   *ImportResult
}

// Import replays snap into target: projects, then roles, applications and
// grants, with project ids remapped as they are created. A 409 on projects and
// applications means "already there"; any other failure aborts the run.
func Import(ctx context.Context, target Target, snap *snapshot.ConfigSnapshot, opts ImportOptions, logger func(string)) (*ImportResult, error) {
	if !target.HasToken() {
		return nil, platform.ErrMissingToken
	}
	if opts.Exclude == nil {
		opts.Exclude = make(map[string][]string)
	}
	if opts.DryRun {
		target = &dryRunTarget{Target: target, logger: logger}
		logger("DRY RUN: no changes will be made")
		logger("")
	}

	r := &replay{
		target:   target,
		snap:     snap,
		opts:     opts,
		logger:   logger,
		ids:      NewProjectIDMap(),
		excluded: make(map[string]bool),
		names:    make(map[string]string),
	}
	r.result = &ImportResult{ProjectIDs: r.ids}
	for _, p := range snap.Projects {
		r.names[resourceID(p)] = resourceName(p)
	}

	if opts.ValidateClientIDs {
		r.result.Warnings = append(r.result.Warnings, ValidateClientIDs(snap.Applications, opts.ClientIDCheck, logger)...)
		logger("")
	}

	stages := []struct {
		name string
		run  func(context.Context) error
	}{
		{"projects", r.importProjects},
		{"roles", r.importRoles},
		{"applications", r.importApplications},
		{"grants", r.importGrants},
	}
	for _, stage := range stages {
		if err := ctx.Err(); err != nil {
			logger("Import cancelled")
			return r.result, err
		}
		if err := stage.run(ctx); err != nil {
			return r.result, fmt.Errorf("importing %s: %w", stage.name, err)
		}
		logger("")
	}

	logger("=== Import complete ===")
	logger(fmt.Sprintf("  Projects: %d created, %d existing, %d excluded",
		r.result.Projects.Created, r.result.Projects.Existing, r.result.Projects.Excluded))
	logger(fmt.Sprintf("  Roles: %d created, %d existing, %d skipped",
		r.result.Roles.Created, r.result.Roles.Existing, r.result.Roles.Skipped+r.result.Roles.Excluded))
	logger(fmt.Sprintf("  Applications: %d created, %d existing, %d skipped",
		r.result.Applications.Created, r.result.Applications.Existing, r.result.Applications.Skipped+r.result.Applications.Excluded))
	logger(fmt.Sprintf("  Grants: %d created, %d skipped",
		r.result.Grants.Created, r.result.Grants.Skipped+r.result.Grants.Excluded))
	if r.ids.Len() > 0 {
		logger(fmt.Sprintf("  Project ids (%d):", r.ids.Len()))
		for _, src := range r.ids.Sources() {
			target, _ := r.ids.Lookup(src)
			logger(fmt.Sprintf("    %s -> %s", src, target))
		}
	}
	return r.result, nil
}

func (r *replay) importProjects(ctx context.Context) error {
	r.logger("=== Importing projects ===")
	stats := &r.result.Projects
	for _, proj := range r.snap.Projects {
		if err := ctx.Err(); err != nil {
			return err
		}
		srcID := resourceID(proj)
		name := resourceName(proj)

		if isExcluded(r.opts.Exclude, "projects", name) {
			r.excluded[srcID] = true
			stats.Excluded++
			r.logger(fmt.Sprintf("  EXCLUDED: %s (user exclusion)", name))
			continue
		}

		if id, ok, err := r.lookup(ctx, KindProject, name); err != nil {
			return err
		} else if ok {
			r.ids.Set(srcID, id)
			stats.Existing++
			r.logger(fmt.Sprintf("  SKIP (ledger): %s -> %s", name, id))
			continue
		}

		body, _, err := r.target.Post(ctx, mgmt+"/projects", proj.Without("id", "details"))
		if err != nil {
			if !platform.IsConflict(err) {
				return fmt.Errorf("project %s: %w", name, err)
			}
			existing, ferr := r.target.FindProjectByName(ctx, name)
			if ferr != nil {
				return fmt.Errorf("looking up existing project %s: %w", name, ferr)
			}
			stats.Existing++
			if id := resourceID(existing); id != "" {
				r.ids.Set(srcID, id)
				r.logger(fmt.Sprintf("  SKIP (exists): %s -> %s", name, id))
				if err := r.record(ctx, KindProject, name, srcID, id); err != nil {
					return err
				}
				continue
			}
			r.ids.Set(srcID, srcID)
			r.warn(fmt.Sprintf("project %s exists but could not be found by name; keeping source id %s", name, srcID))
			continue
		}

		newID, err := createdID(body)
		if err != nil {
			return fmt.Errorf("project %s: %w", name, err)
		}
		if newID == "" {
			// Dry run: nothing was created, keep references pointing at the source.
			newID = srcID
		}
		r.ids.Set(srcID, newID)
		stats.Created++
		r.logger(fmt.Sprintf("  CREATED: %s (ID %s)", name, newID))
		if err := r.record(ctx, KindProject, name, srcID, newID); err != nil {
			return err
		}
	}
	return nil
}

func (r *replay) importRoles(ctx context.Context) error {
	r.logger("=== Importing roles ===")
	stats := &r.result.Roles
	for _, role := range r.snap.Roles {
		if err := ctx.Err(); err != nil {
			return err
		}
		key := resourceName(role)
		srcProject := projectRef(role)

		if r.excluded[srcProject] || isExcluded(r.opts.Exclude, "roles", key) {
			stats.Excluded++
			r.logger(fmt.Sprintf("  EXCLUDED: %s", key))
			continue
		}
		if srcProject == "" {
			stats.Skipped++
			r.warn(fmt.Sprintf("role %s has no project reference, skipped", key))
			continue
		}

		natural := r.naturalKey(srcProject, key)
		if _, ok, err := r.lookup(ctx, KindRole, natural); err != nil {
			return err
		} else if ok {
			stats.Existing++
			r.logger(fmt.Sprintf("  SKIP (ledger): %s", natural))
			continue
		}

		pid := r.resolveProject(srcProject, "role "+key)
		_, _, err := r.target.Post(ctx, fmt.Sprintf("%s/projects/%s/roles", mgmt, pid), role.Without("projectId"))
		if err != nil {
			if platform.IsConflict(err) && r.opts.TolerateRoleConflicts {
				stats.Existing++
				r.logger(fmt.Sprintf("  SKIP (exists): %s", natural))
				if err := r.record(ctx, KindRole, natural, srcProject, pid); err != nil {
					return err
				}
				continue
			}
			return fmt.Errorf("role %s: %w", natural, err)
		}
		stats.Created++
		r.logger(fmt.Sprintf("  CREATED: %s", natural))
		if err := r.record(ctx, KindRole, natural, srcProject, pid); err != nil {
			return err
		}
	}
	return nil
}

func (r *replay) importApplications(ctx context.Context) error {
	r.logger("=== Importing applications ===")
	stats := &r.result.Applications
	assoc := newAssociator(r.snap.Projects, r.opts.Rules, r.ids.Has)
	for _, app := range r.snap.Applications {
		if err := ctx.Err(); err != nil {
			return err
		}
		name := resourceName(app)
		if r.excluded[projectRef(app)] || isExcluded(r.opts.Exclude, "applications", name) {
			stats.Excluded++
			r.logger(fmt.Sprintf("  EXCLUDED: %s", name))
			continue
		}

		srcProject, strategy, ok := assoc.associate(app)
		if !ok {
			stats.Skipped++
			r.logger(fmt.Sprintf("  SKIP: %s (no project resolved; client id %q, source project %q)",
				name, clientID(app), projectRef(app)))
			continue
		}

		natural := r.naturalKey(srcProject, name)
		if _, ok, err := r.lookup(ctx, KindApplication, natural); err != nil {
			return err
		} else if ok {
			stats.Existing++
			r.logger(fmt.Sprintf("  SKIP (ledger): %s", natural))
			continue
		}

		pid, _ := r.ids.Resolve(srcProject)
		body, _, err := r.target.Post(ctx, fmt.Sprintf("%s/projects/%s/apps/oidc", mgmt, pid),
			app.Without("id", "projectId", "details"))
		if err != nil {
			if !platform.IsConflict(err) {
				return fmt.Errorf("application %s: %w", name, err)
			}
			stats.Existing++
			r.logger(fmt.Sprintf("  SKIP (exists): %s", natural))
			if err := r.record(ctx, KindApplication, natural, resourceID(app), ""); err != nil {
				return err
			}
			continue
		}
		newID, err := createdID(body)
		if err != nil {
			return fmt.Errorf("application %s: %w", name, err)
		}
		stats.Created++
		r.logger(fmt.Sprintf("  CREATED: %s in project %s (via %s)", name, pid, strategy))
		if err := r.record(ctx, KindApplication, natural, resourceID(app), newID); err != nil {
			return err
		}
	}
	return nil
}

func (r *replay) importGrants(ctx context.Context) error {
	r.logger("=== Importing grants ===")
	stats := &r.result.Grants
	for _, grant := range r.snap.Grants {
		if err := ctx.Err(); err != nil {
			return err
		}
		srcProject := projectRef(grant)
		label := grantLabel(grant)

		if r.excluded[srcProject] || isExcluded(r.opts.Exclude, "grants", label) {
			stats.Excluded++
			r.logger(fmt.Sprintf("  EXCLUDED: %s", label))
			continue
		}
		if srcProject == "" {
			stats.Skipped++
			r.warn(fmt.Sprintf("grant %s has no project reference, skipped", label))
			continue
		}

		natural := r.naturalKey(srcProject, label)
		if _, ok, err := r.lookup(ctx, KindGrant, natural); err != nil {
			return err
		} else if ok {
			stats.Existing++
			r.logger(fmt.Sprintf("  SKIP (ledger): %s", natural))
			continue
		}

		pid := r.resolveProject(srcProject, "grant "+label)
		body, _, err := r.target.Post(ctx, fmt.Sprintf("%s/projects/%s/grants", mgmt, pid),
			grant.Without("id", "projectId"))
		if err != nil {
			return fmt.Errorf("grant %s: %w", natural, err)
		}
		newID, err := createdID(body)
		if err != nil {
			return fmt.Errorf("grant %s: %w", natural, err)
		}
		stats.Created++
		r.logger(fmt.Sprintf("  CREATED: grant %s", natural))
		if err := r.record(ctx, KindGrant, natural, label, newID); err != nil {
			return err
		}
	}
	return nil
}

// resolveProject maps a source project id, warning when it falls back to the
// source id itself.
func (r *replay) resolveProject(srcProject, what string) string {
	pid, mapped := r.ids.Resolve(srcProject)
	if !mapped {
		r.warn(fmt.Sprintf("%s references unknown project %s; using the source id", what, srcProject))
	}
	return pid
}

// naturalKey names an entity by its project's name, which survives across
// instances where ids do not.
func (r *replay) naturalKey(srcProject, name string) string {
	projectName := r.names[srcProject]
	if projectName == "" {
		projectName = srcProject
	}
	return projectName + "/" + name
}

func (r *replay) lookup(ctx context.Context, kind, key string) (string, bool, error) {
	if r.opts.Ledger == nil {
		return "", false, nil
	}
	id, ok, err := r.opts.Ledger.Lookup(ctx, kind, key)
	if err != nil {
		return "", false, fmt.Errorf("ledger lookup %s %s: %w", kind, key, err)
	}
	return id, ok, nil
}

func (r *replay) record(ctx context.Context, kind, key, sourceID, targetID string) error {
	if r.opts.Ledger == nil || r.opts.DryRun {
		return nil
	}
	if err := r.opts.Ledger.Record(ctx, kind, key, sourceID, targetID); err != nil {
		return fmt.Errorf("ledger record %s %s: %w", kind, key, err)
	}
	return nil
}

func (r *replay) warn(msg string) {
	r.result.Warnings = append(r.result.Warnings, msg)
	r.logger("  WARNING: " + msg)
}

// grantLabel identifies a project grant: its grant id, else the granted org.
func grantLabel(grant models.Resource) string {
	for _, f := range []string{"grantId", "id", "grantedOrgId"} {
		if v := stringField(grant, f); v != "" {
			return v
		}
	}
	return "(unnamed)"
}

// isExcluded checks whether a resource should be excluded from the import.
func isExcluded(exclude map[string][]string, typeName, name string) bool {
	for _, n := range exclude[typeName] {
		if n == name {
			return true
		}
	}
	return false
}

// dryRunTarget logs mutations instead of sending them. Reads never reach it:
// without real writes there is no conflict to resolve.
type dryRunTarget struct {
	Target
	logger func(string)
}

func (d *dryRunTarget) Post(_ context.Context, path string, payload interface{}) ([]byte, int, error) {
	d.logger("[DRY RUN] POST " + path)
	if payload != nil {
		data, err := json.MarshalIndent(payload, "", "  ")
		if err == nil {
			d.logger("[DRY RUN] Body: " + string(data))
		}
	}
	return []byte(`{"dryRun":true}`), 0, nil
}

func (d *dryRunTarget) FindProjectByName(context.Context, string) (models.Resource, error) {
	return nil, nil
}
