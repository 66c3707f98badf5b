package models

import (
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"
)

// Connection represents a user-configured Zitadel instance.
type Connection struct {
	ID        string        `json:"id"`
	Name      string        `json:"name"`
	Role      string        `json:"role"` // "source" or "destination"
	IssuerURL string        `json:"issuer_url"`
	Token     string        `json:"token,omitempty"`
	Insecure  bool          `json:"insecure"` // skip TLS verification
	CACert    string        `json:"ca_cert,omitempty"`
	Timeout   time.Duration `json:"-"`

	// Health, filled in by ping/auth checks.
	PingStatus  string     `json:"ping_status"`
	PingError   string     `json:"ping_error,omitempty"`
	AuthStatus  string     `json:"auth_status"`
	AuthError   string     `json:"auth_error,omitempty"`
	Issuer      string     `json:"issuer,omitempty"` // as advertised by discovery
	LastChecked *time.Time `json:"last_checked,omitempty"`
}

// BaseURL returns the instance URL without a trailing slash.
func (c *Connection) BaseURL() string {
	return strings.TrimRight(c.IssuerURL, "/")
}

// MaskedToken returns a display-safe placeholder for the token.
func (c *Connection) MaskedToken() string {
	if c.Token == "" {
		return ""
	}
	return "••••••••"
}

// Redacted returns a copy safe to serialize to API clients.
func (c *Connection) Redacted() Connection {
	cp := *c
	cp.Token = c.MaskedToken()
	return cp
}

// ConnectionStore is an in-memory thread-safe store for connections.
type ConnectionStore struct {
	mu    sync.RWMutex
	conns map[string]*Connection
}

// NewConnectionStore creates an empty connection store.
func NewConnectionStore() *ConnectionStore {
	return &ConnectionStore{conns: make(map[string]*Connection)}
}

// Create adds a new connection, assigning it a UUID.
func (s *ConnectionStore) Create(c *Connection) {
	s.mu.Lock()
	defer s.mu.Unlock()
	c.ID = uuid.New().String()
	c.PingStatus = "unknown"
	c.AuthStatus = "unknown"
	s.conns[c.ID] = c
}

// Get returns a connection by ID, or nil if not found.
func (s *ConnectionStore) Get(id string) *Connection {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.conns[id]
}

// List returns all connections ordered by name.
func (s *ConnectionStore) List() []*Connection {
	s.mu.RLock()
	defer s.mu.RUnlock()
	result := make([]*Connection, 0, len(s.conns))
	for _, c := range s.conns {
		result = append(result, c)
	}
	sort.Slice(result, func(i, j int) bool { return result[i].Name < result[j].Name })
	return result
}

// Update replaces an existing connection's settings. An empty token keeps the
// stored one so clients can edit without re-sending secrets.
func (s *ConnectionStore) Update(c *Connection) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	old, ok := s.conns[c.ID]
	if !ok {
		return false
	}
	if c.Token == "" {
		c.Token = old.Token
	}
	s.conns[c.ID] = c
	return true
}

// Delete removes a connection by ID.
func (s *ConnectionStore) Delete(id string) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.conns[id]; !ok {
		return false
	}
	delete(s.conns, id)
	return true
}

// SetHealth records the result of a ping and auth check.
func (s *ConnectionStore) SetHealth(id, pingStatus, pingError, authStatus, authError string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	c, ok := s.conns[id]
	if !ok {
		return
	}
	now := time.Now()
	c.PingStatus = pingStatus
	c.PingError = pingError
	c.AuthStatus = authStatus
	c.AuthError = authError
	c.LastChecked = &now
}

// SetIssuer records the issuer advertised by the instance.
func (s *ConnectionStore) SetIssuer(id, issuer string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if c, ok := s.conns[id]; ok {
		c.Issuer = issuer
	}
}
