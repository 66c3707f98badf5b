package models

import (
	"sync"
	"testing"
)

func TestBaseURL(t *testing.T) {
	tests := []struct {
		name   string
		conn   Connection
		expect string
	}{
		{"plain", Connection{IssuerURL: "https://auth.gadgetbot.dev"}, "https://auth.gadgetbot.dev"},
		{"trailing slash", Connection{IssuerURL: "http://localhost:8080/"}, "http://localhost:8080"},
		{"empty", Connection{}, ""},
	}
	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			got := tc.conn.BaseURL()
			if got != tc.expect {
				t.Errorf("BaseURL() = %q, want %q", got, tc.expect)
			}
		})
	}
}

func TestMaskedToken(t *testing.T) {
	tests := []struct {
		name   string
		token  string
		expect string
	}{
		{"non-empty", "pat-123", "••••••••"},
		{"empty", "", ""},
	}
	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			c := &Connection{Token: tc.token}
			got := c.MaskedToken()
			if got != tc.expect {
				t.Errorf("MaskedToken() = %q, want %q", got, tc.expect)
			}
		})
	}
}

func TestRedacted(t *testing.T) {
	c := &Connection{Name: "prod", Token: "pat-123"}
	r := c.Redacted()
	if r.Token == "pat-123" {
		t.Error("Redacted leaked the token")
	}
	if c.Token != "pat-123" {
		t.Error("Redacted mutated the original")
	}
}

func TestConnectionStore_CRUD(t *testing.T) {
	store := NewConnectionStore()

	conn := &Connection{Name: "local", IssuerURL: "http://localhost:8080", Token: "pat"}
	store.Create(conn)
	if conn.ID == "" {
		t.Fatal("Create did not assign an ID")
	}
	if conn.PingStatus != "unknown" || conn.AuthStatus != "unknown" {
		t.Errorf("Create should set statuses to 'unknown', got %q/%q", conn.PingStatus, conn.AuthStatus)
	}

	got := store.Get(conn.ID)
	if got == nil || got.Name != "local" {
		t.Fatalf("Get(%s) returned %v", conn.ID, got)
	}
	if store.Get("nonexistent") != nil {
		t.Error("Get(nonexistent) should return nil")
	}
	if list := store.List(); len(list) != 1 {
		t.Fatalf("List() returned %d items, want 1", len(list))
	}

	// Update without a token keeps the stored token
	updated := &Connection{ID: conn.ID, Name: "renamed", IssuerURL: conn.IssuerURL}
	if !store.Update(updated) {
		t.Fatal("Update returned false for existing connection")
	}
	if got := store.Get(conn.ID); got.Name != "renamed" || got.Token != "pat" {
		t.Errorf("after Update: name=%q token=%q, want renamed/pat", got.Name, got.Token)
	}
	if store.Update(&Connection{ID: "missing"}) {
		t.Error("Update should return false for missing ID")
	}

	if !store.Delete(conn.ID) {
		t.Fatal("Delete returned false for existing connection")
	}
	if store.Get(conn.ID) != nil {
		t.Error("Get after Delete should return nil")
	}
	if store.Delete("missing") {
		t.Error("Delete should return false for missing ID")
	}
}

func TestConnectionStore_SetHealth(t *testing.T) {
	store := NewConnectionStore()
	conn := &Connection{Name: "test", IssuerURL: "http://localhost:8080"}
	store.Create(conn)

	store.SetHealth(conn.ID, "ok", "", "error", "missing token")
	got := store.Get(conn.ID)
	if got.PingStatus != "ok" {
		t.Errorf("PingStatus = %q, want ok", got.PingStatus)
	}
	if got.AuthStatus != "error" || got.AuthError != "missing token" {
		t.Errorf("auth = (%q, %q), want (error, missing token)", got.AuthStatus, got.AuthError)
	}
	if got.LastChecked == nil {
		t.Error("LastChecked should be set after SetHealth")
	}

	store.SetIssuer(conn.ID, "http://localhost:8080")
	if got := store.Get(conn.ID).Issuer; got != "http://localhost:8080" {
		t.Errorf("Issuer = %q", got)
	}

	// Missing IDs are ignored
	store.SetHealth("nonexistent", "ok", "", "ok", "")
	store.SetIssuer("nonexistent", "x")
}

func TestConnectionStore_Concurrent(t *testing.T) {
	store := NewConnectionStore()
	var wg sync.WaitGroup

	for i := 0; i < 50; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			store.Create(&Connection{Name: "concurrent", IssuerURL: "http://localhost:8080"})
		}()
	}
	wg.Wait()

	list := store.List()
	if len(list) != 50 {
		t.Fatalf("expected 50 connections, got %d", len(list))
	}

	for _, c := range list {
		wg.Add(2)
		go func(id string) {
			defer wg.Done()
			store.Get(id)
		}(c.ID)
		go func(id string) {
			defer wg.Done()
			store.SetHealth(id, "ok", "", "ok", "")
		}(c.ID)
	}
	wg.Wait()
}
