package platform

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/gadgetbot/zitadel-workbench/internal/models"
)

func TestParseDiscovery(t *testing.T) {
	body := []byte(`{"issuer":"https://auth.gadgetbot.dev","authorization_endpoint":"https://auth.gadgetbot.dev/oauth/v2/authorize","token_endpoint":"https://auth.gadgetbot.dev/oauth/v2/token"}`)
	doc, err := ParseDiscovery(body)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if doc.Issuer != "https://auth.gadgetbot.dev" {
		t.Errorf("Issuer = %q, want %q", doc.Issuer, "https://auth.gadgetbot.dev")
	}
	if doc.TokenEndpoint != "https://auth.gadgetbot.dev/oauth/v2/token" {
		t.Errorf("TokenEndpoint = %q", doc.TokenEndpoint)
	}
}

func TestParseDiscovery_MissingIssuer(t *testing.T) {
	_, err := ParseDiscovery([]byte(`{"token_endpoint":"x"}`))
	if err == nil {
		t.Fatal("expected error for missing issuer, got nil")
	}
}

func TestParseDiscovery_InvalidJSON(t *testing.T) {
	_, err := ParseDiscovery([]byte(`not json`))
	if err == nil {
		t.Fatal("expected error for invalid JSON, got nil")
	}
}

func TestIssuerMatches(t *testing.T) {
	tests := []struct {
		name    string
		issuer  string
		baseURL string
		want    bool
	}{
		{"exact", "http://localhost:8080", "http://localhost:8080", true},
		{"trailing slash", "http://localhost:8080/", "http://localhost:8080", true},
		{"different host", "https://auth.gadgetbot.dev", "http://localhost:8080", false},
	}
	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			got := IssuerMatches(&DiscoveryDocument{Issuer: tc.issuer}, tc.baseURL)
			if got != tc.want {
				t.Errorf("IssuerMatches(%q, %q) = %v, want %v", tc.issuer, tc.baseURL, got, tc.want)
			}
		})
	}
	if IssuerMatches(nil, "http://localhost:8080") {
		t.Error("IssuerMatches(nil) = true, want false")
	}
}

func TestDiscoverAndStore(t *testing.T) {
	var ts *httptest.Server
	ts = httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/.well-known/openid-configuration" {
			t.Errorf("path = %s, want discovery path", r.URL.Path)
		}
		json.NewEncoder(w).Encode(map[string]string{"issuer": ts.URL})
	}))
	defer ts.Close()

	store := models.NewConnectionStore()
	conn := &models.Connection{Name: "local", IssuerURL: ts.URL}
	store.Create(conn)

	var lines []string
	DiscoverAndStore(context.Background(), newTestClient(ts), conn, store, func(s string) { lines = append(lines, s) })

	if got := store.Get(conn.ID).Issuer; got != ts.URL {
		t.Errorf("Issuer = %q, want %q", got, ts.URL)
	}
	if len(lines) != 1 {
		t.Fatalf("logged %d lines, want 1: %v", len(lines), lines)
	}
}
