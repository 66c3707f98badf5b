package snapshot

import (
	"bytes"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/gadgetbot/zitadel-workbench/internal/models"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func sample() *ConfigSnapshot {
	s := New(time.Date(2026, 10, 1, 12, 0, 0, 0, time.UTC))
	s.Projects = append(s.Projects, models.Resource{"id": "p1", "name": "gadgetbot", "projectRoleAssertion": true})
	s.Applications = append(s.Applications, models.Resource{
		"id":         "a1",
		"name":       "GadgetBot Web",
		"projectId":  "p1",
		"oidcConfig": map[string]interface{}{"clientId": "123@gadgetbot"},
	})
	s.Roles = append(s.Roles, models.Resource{"key": "admin", "displayName": "Admin", "projectId": "p1"})
	s.Grants = append(s.Grants, models.Resource{"id": "g1", "projectId": "p1", "grantedOrgId": "o2"})
	return s
}

func TestNew(t *testing.T) {
	s := New(time.Date(2026, 10, 1, 12, 0, 0, 0, time.UTC))
	assert.Equal(t, "2026-10-01T12:00:00Z", s.ExportedAt)

	var buf bytes.Buffer
	require.NoError(t, Encode(&buf, s))
	// Empty collections serialize as arrays, not null.
	assert.Contains(t, buf.String(), `"projects": []`)
	assert.NotContains(t, buf.String(), "zitadelVersion")
}

func TestWriteRead(t *testing.T) {
	path := filepath.Join(t.TempDir(), "zitadel", "export.json")
	want := sample()

	require.NoError(t, Write(path, want))

	raw, err := os.ReadFile(path)
	require.NoError(t, err)
	assert.True(t, strings.HasPrefix(string(raw), "{\n  \"exportedAt\""), "snapshot should be indented JSON")

	got, err := Read(path)
	require.NoError(t, err)
	assert.Equal(t, want.ExportedAt, got.ExportedAt)
	assert.Equal(t, Summary{Projects: 1, Applications: 1, Roles: 1, Grants: 1}, got.Summary())
	assert.Equal(t, "123@gadgetbot", got.Applications[0]["oidcConfig"].(map[string]interface{})["clientId"])
	assert.Equal(t, true, got.Projects[0]["projectRoleAssertion"])

	entries, err := os.ReadDir(filepath.Dir(path))
	require.NoError(t, err)
	assert.Len(t, entries, 1, "temp files must not be left behind")
}

func TestDecode_Errors(t *testing.T) {
	tests := []struct {
		name    string
		doc     string
		wantErr string
	}{
		{"malformed", `{"exportedAt": `, "parsing snapshot"},
		{"not an object", `[]`, "invalid snapshot"},
		{"missing arrays", `{"exportedAt":"2026-10-01T00:00:00Z","projects":[]}`, "invalid snapshot"},
		{"project without name", `{"exportedAt":"x","projects":[{"id":"p1"}],"applications":[],"roles":[],"grants":[]}`, "/projects/0"},
		{"role without key", `{"exportedAt":"x","projects":[],"applications":[],"roles":[{"displayName":"A"}],"grants":[]}`, "/roles/0"},
		{"projects not array", `{"exportedAt":"x","projects":{},"applications":[],"roles":[],"grants":[]}`, "/projects"},
	}
	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			_, err := Decode(strings.NewReader(tc.doc))
			require.Error(t, err)
			assert.Contains(t, err.Error(), tc.wantErr)
		})
	}
}

func TestDecode_PassthroughFields(t *testing.T) {
	doc := `{
  "exportedAt": "2026-10-01T00:00:00Z",
  "projects": [{"id": "p1", "name": "gadgetbot", "details": {"sequence": "42"}}],
  "applications": [],
  "roles": [],
  "grants": [{"id": "g1", "projectId": "p1", "roleKeys": ["admin", "viewer"]}]
}`
	s, err := Decode(strings.NewReader(doc))
	require.NoError(t, err)
	assert.Equal(t, []interface{}{"admin", "viewer"}, s.Grants[0]["roleKeys"])
	assert.NotNil(t, s.Projects[0]["details"])
}

func TestRead_MissingFile(t *testing.T) {
	_, err := Read(filepath.Join(t.TempDir(), "nope.json"))
	require.Error(t, err)
	assert.Contains(t, err.Error(), "nope.json")
}
