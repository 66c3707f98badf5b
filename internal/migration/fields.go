package migration

import (
	"encoding/json"
	"fmt"
	"strconv"

	"github.com/gadgetbot/zitadel-workbench/internal/models"
)

// resourceID returns the string id of a Resource.
func resourceID(r models.Resource) string {
	return stringField(r, "id")
}

// resourceName returns the name (or role key) of a Resource.
func resourceName(r models.Resource) string {
	if n := stringField(r, "name"); n != "" {
		return n
	}
	return stringField(r, "key")
}

// projectRef returns the source project id an entity points at.
func projectRef(r models.Resource) string {
	return stringField(r, "projectId")
}

// stringField safely extracts a string field, returning "" if absent.
// Numbers are rendered without a fraction so numeric ids survive.
func stringField(obj map[string]interface{}, field string) string {
	switch v := obj[field].(type) {
	case string:
		return v
	case float64:
		return strconv.FormatFloat(v, 'f', -1, 64)
	case json.Number:
		return v.String()
	}
	return ""
}

// nestedField navigates {section}.{field}.
func nestedField(r models.Resource, section, field string) interface{} {
	sec, ok := r[section].(map[string]interface{})
	if !ok {
		return nil
	}
	return sec[field]
}

// clientID returns the OIDC or API client id of an application.
func clientID(app models.Resource) string {
	for _, section := range []string{"oidcConfig", "apiConfig"} {
		if v, ok := nestedField(app, section, "clientId").(string); ok && v != "" {
			return v
		}
	}
	return stringField(app, "clientId")
}

// createdID extracts the "id" from a creation response body.
func createdID(body []byte) (string, error) {
	if len(body) == 0 {
		return "", nil
	}
	var result map[string]interface{}
	if err := json.Unmarshal(body, &result); err != nil {
		return "", fmt.Errorf("parsing response: %w", err)
	}
	if id := stringField(result, "id"); id != "" {
		return id, nil
	}
	// Application creation answers with appId rather than id.
	return stringField(result, "appId"), nil
}
