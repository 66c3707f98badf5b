package platform

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"

	"github.com/gadgetbot/zitadel-workbench/internal/models"
)

// DiscoveryDocument holds the fields of /.well-known/openid-configuration the
// workbench cares about.
type DiscoveryDocument struct {
	Issuer                string `json:"issuer"`
	AuthorizationEndpoint string `json:"authorization_endpoint"`
	TokenEndpoint         string `json:"token_endpoint"`
	UserinfoEndpoint      string `json:"userinfo_endpoint"`
}

// ParseDiscovery parses an OIDC discovery document.
func ParseDiscovery(body []byte) (*DiscoveryDocument, error) {
	var doc DiscoveryDocument
	if err := json.Unmarshal(body, &doc); err != nil {
		return nil, fmt.Errorf("parsing discovery document: %w", err)
	}
	if doc.Issuer == "" {
		return nil, fmt.Errorf("discovery document missing issuer field")
	}
	return &doc, nil
}

// IssuerMatches reports whether the advertised issuer is the URL we were
// configured with. Zitadel rejects tokens minted for a different issuer, so a
// mismatch usually means a wrong ZITADEL_ISSUER_URL or a missing
// ExternalDomain setting on the instance.
func IssuerMatches(doc *DiscoveryDocument, baseURL string) bool {
	if doc == nil {
		return false
	}
	return strings.TrimRight(doc.Issuer, "/") == strings.TrimRight(baseURL, "/")
}

// Discover fetches the discovery document for the client's instance.
func (c *Client) Discover(ctx context.Context) (*DiscoveryDocument, error) {
	body, err := c.Get(ctx, "/.well-known/openid-configuration")
	if err != nil {
		return nil, err
	}
	return ParseDiscovery(body)
}

// DiscoverAndStore runs discovery for conn and records the advertised issuer.
// Failures are logged and leave the connection untouched.
func DiscoverAndStore(ctx context.Context, client *Client, conn *models.Connection, store *models.ConnectionStore, logger func(string)) {
	doc, err := client.Discover(ctx)
	if err != nil {
		logger(fmt.Sprintf("  DISCOVERY: %s: %v", conn.Name, err))
		return
	}
	store.SetIssuer(conn.ID, doc.Issuer)
	if !IssuerMatches(doc, conn.BaseURL()) {
		logger(fmt.Sprintf("  WARNING: %s advertises issuer %s, configured %s", conn.Name, doc.Issuer, conn.BaseURL()))
		return
	}
	logger(fmt.Sprintf("  ISSUER: %s: %s", conn.Name, doc.Issuer))
}
