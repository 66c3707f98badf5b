package migration

import (
	"encoding/json"
	"testing"

	"github.com/gadgetbot/zitadel-workbench/internal/models"
)

func TestStringField(t *testing.T) {
	obj := map[string]interface{}{
		"name":   "hello",
		"count":  float64(42),
		"number": json.Number("1234567890123"),
		"flag":   true,
		"empty":  nil,
	}
	tests := []struct {
		field  string
		expect string
	}{
		{"name", "hello"},
		{"count", "42"},
		{"number", "1234567890123"},
		{"flag", ""},
		{"empty", ""},
		{"missing", ""},
	}
	for _, tc := range tests {
		t.Run(tc.field, func(t *testing.T) {
			if got := stringField(obj, tc.field); got != tc.expect {
				t.Errorf("stringField(%s) = %q, want %q", tc.field, got, tc.expect)
			}
		})
	}
}

func TestResourceName(t *testing.T) {
	if got := resourceName(models.Resource{"name": "gadgetbot"}); got != "gadgetbot" {
		t.Errorf("resourceName(project) = %q", got)
	}
	if got := resourceName(models.Resource{"key": "admin", "displayName": "Admin"}); got != "admin" {
		t.Errorf("resourceName(role) = %q, want admin", got)
	}
	if got := resourceName(models.Resource{}); got != "" {
		t.Errorf("resourceName(empty) = %q", got)
	}
}

func TestNestedField(t *testing.T) {
	r := models.Resource{
		"oidcConfig": map[string]interface{}{"clientId": "123@gadgetbot"},
	}
	if got, ok := nestedField(r, "oidcConfig", "clientId").(string); !ok || got != "123@gadgetbot" {
		t.Errorf("nestedField(oidcConfig, clientId) = %v", got)
	}
	if got := nestedField(r, "oidcConfig", "missing"); got != nil {
		t.Errorf("nestedField(missing) = %v, want nil", got)
	}
	if got := nestedField(r, "apiConfig", "clientId"); got != nil {
		t.Errorf("nestedField(no section) = %v, want nil", got)
	}
}

func TestClientID(t *testing.T) {
	tests := []struct {
		name string
		app  models.Resource
		want string
	}{
		{"oidc", models.Resource{"oidcConfig": map[string]interface{}{"clientId": "123@gadgetbot"}}, "123@gadgetbot"},
		{"api", models.Resource{"apiConfig": map[string]interface{}{"clientId": "9876543210"}}, "9876543210"},
		{"top level", models.Resource{"clientId": "abc"}, "abc"},
		{"none", models.Resource{"name": "x"}, ""},
	}
	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			if got := clientID(tc.app); got != tc.want {
				t.Errorf("clientID = %q, want %q", got, tc.want)
			}
		})
	}
}

func TestCreatedID(t *testing.T) {
	tests := []struct {
		name string
		body string
		want string
	}{
		{"id", `{"id":"p1-new","details":{}}`, "p1-new"},
		{"appId", `{"appId":"a1-new","clientId":"x"}`, "a1-new"},
		{"dry run", `{"dryRun":true}`, ""},
		{"empty body", ``, ""},
	}
	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			got, err := createdID([]byte(tc.body))
			if err != nil {
				t.Fatalf("createdID returned error: %v", err)
			}
			if got != tc.want {
				t.Errorf("createdID = %q, want %q", got, tc.want)
			}
		})
	}
	if _, err := createdID([]byte("not json")); err == nil {
		t.Error("createdID should fail on invalid JSON")
	}
}
