package migration

import (
	"context"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/gadgetbot/zitadel-workbench/internal/models"
	"github.com/gadgetbot/zitadel-workbench/internal/platform"
)

func actions(items []models.MigrationResource) map[string]string {
	out := make(map[string]string)
	for _, item := range items {
		out[item.Name] = item.Action
	}
	return out
}

func TestPlan(t *testing.T) {
	f, ts := newFakeZitadel(t)
	f.addProject("t-gb", "gadgetbot")

	snap := fullSnapshot()
	snap.Applications = append(snap.Applications, models.Resource{"id": "a3", "name": "Stray", "projectId": "nope"})

	var logs []string
	preview, err := Plan(context.Background(), snap, f.client(ts), ImportOptions{}, collect(&logs))
	require.NoError(t, err)

	assert.Empty(t, f.creates(), "planning never creates")
	assert.Equal(t, map[string]string{
		"gadgetbot": models.ActionSkipExists,
		"billing":   models.ActionCreate,
	}, actions(preview.Resources["projects"]))
	assert.Equal(t, "t-gb", preview.Resources["projects"][0].DestID)

	apps := preview.Resources["applications"]
	require.Len(t, apps, 3)
	assert.Equal(t, string(StrategyClientIDSuffix), apps[0].Strategy)
	assert.Equal(t, "billing", apps[0].Project)
	assert.Equal(t, string(StrategyProjectID), apps[1].Strategy)
	assert.Equal(t, models.ActionSkipUnresolved, apps[2].Action)

	assert.Equal(t, 3, len(preview.Resources["roles"]))
	assert.Equal(t, "billing", preview.Resources["grants"][0].Project)
	assert.Equal(t, 1, preview.Count(models.ActionSkipUnresolved))
	assert.Len(t, preview.Warnings, 2)
}

func TestPlan_MissingToken(t *testing.T) {
	f, ts := newFakeZitadel(t)
	tokenless := platform.NewClient(&models.Connection{IssuerURL: ts.URL})

	_, err := Plan(context.Background(), fullSnapshot(), tokenless, ImportOptions{}, func(string) {})
	require.ErrorIs(t, err, platform.ErrMissingToken)
	assert.Zero(t, f.callCount(), "no request without a token")
}

func TestPlan_Exclusions(t *testing.T) {
	f, ts := newFakeZitadel(t)
	opts := ImportOptions{Exclude: map[string][]string{"projects": {"billing"}, "roles": {"user"}}}

	preview, err := Plan(context.Background(), fullSnapshot(), f.client(ts), opts, func(string) {})
	require.NoError(t, err)

	assert.Equal(t, models.ActionSkipExcluded, actions(preview.Resources["projects"])["billing"])
	assert.Equal(t, map[string]string{
		"admin":      models.ActionCreate,
		"user":       models.ActionSkipExcluded,
		"accountant": models.ActionSkipExcluded,
	}, actions(preview.Resources["roles"]))
	assert.Equal(t, models.ActionSkipExcluded, actions(preview.Resources["applications"])["Billing Portal"])
	assert.Equal(t, models.ActionSkipExcluded, preview.Resources["grants"][0].Action)

	for _, c := range f.calls {
		assert.True(t, strings.HasSuffix(c.Path, "/_search"))
	}
}

func TestLogPlan(t *testing.T) {
	preview := &models.MigrationPreview{
		Resources: map[string][]models.MigrationResource{
			"projects":     {{Name: "gadgetbot", Action: models.ActionCreate}},
			"applications": {{Name: "Web", Action: models.ActionCreate, Project: "gadgetbot", Strategy: "client_id_suffix"}},
		},
		Warnings: []string{"check client ids"},
	}
	var logs []string
	LogPlan(preview, collect(&logs))

	assert.Equal(t, "projects:", logs[0])
	assert.Contains(t, logs, "  create           Web [gadgetbot] via client_id_suffix")
	assert.Contains(t, logs, "WARNING: check client ids")
	assert.Equal(t, "Plan: 2 to create, 0 existing, 0 excluded, 0 unresolved", logs[len(logs)-1])
}
