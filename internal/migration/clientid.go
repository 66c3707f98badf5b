package migration

import (
	"fmt"
	"strings"

	"github.com/gadgetbot/zitadel-workbench/internal/models"
)

// ClientIDFormat classifies a Zitadel client id.
type ClientIDFormat string

const (
	// FormatSingleTenant ids look like "<opaque>@<project-slug>".
	FormatSingleTenant ClientIDFormat = "single-tenant"
	// FormatMultiTenant ids are purely numeric.
	FormatMultiTenant ClientIDFormat = "multi-tenant"
	FormatUnknown     ClientIDFormat = "unknown"
)

// ClassifyClientID reports which deployment style produced id.
func ClassifyClientID(id string) ClientIDFormat {
	if strings.Contains(id, "@") {
		return FormatSingleTenant
	}
	if id == "" {
		return FormatUnknown
	}
	for _, r := range id {
		if r < '0' || r > '9' {
			return FormatUnknown
		}
	}
	return FormatMultiTenant
}

// clientIDBase strips an "@suffix".
func clientIDBase(id string) string {
	if i := strings.Index(id, "@"); i >= 0 {
		return id[:i]
	}
	return id
}

// ClientIDCheck configures the advisory client id validation.
type ClientIDCheck struct {
	ExpectedClientID string   // usually ZITADEL_CLIENT_ID
	SentinelApps     []string // application names whose client id must match
}

// ValidateClientIDs logs the client id format of every application and, when
// an expected id is configured, warns if a sentinel application's id differs
// in its base portion. It never fails; the returned warnings are advisory.
func ValidateClientIDs(apps []models.Resource, check ClientIDCheck, logger func(string)) []string {
	var warnings []string
	logger("=== Validating client ids ===")
	for _, app := range apps {
		name := resourceName(app)
		id := clientID(app)
		format := ClassifyClientID(id)
		if id == "" {
			logger(fmt.Sprintf("  %s: no client id", name))
			continue
		}
		logger(fmt.Sprintf("  %s: %s (%s)", name, id, format))

		if check.ExpectedClientID == "" || !isSentinel(name, check.SentinelApps) {
			continue
		}
		if clientIDBase(id) != clientIDBase(check.ExpectedClientID) {
			w := fmt.Sprintf("client id of %q is %s but ZITADEL_CLIENT_ID is %s", name, id, check.ExpectedClientID)
			warnings = append(warnings, w)
			logger("  WARNING: " + w)
		}
	}
	return warnings
}

func isSentinel(name string, sentinels []string) bool {
	for _, s := range sentinels {
		if strings.EqualFold(strings.TrimSpace(s), strings.TrimSpace(name)) {
			return true
		}
	}
	return false
}
