package platform

import (
	"context"
	"errors"
	"fmt"

	"github.com/gadgetbot/zitadel-workbench/internal/models"
)

// Health status values.
const (
	StatusOK      = "ok"
	StatusError   = "error"
	StatusUnknown = "unknown"
)

// Health is the outcome of probing an instance.
type Health struct {
	PingStatus string `json:"ping_status"`
	PingError  string `json:"ping_error,omitempty"`
	AuthStatus string `json:"auth_status"`
	AuthError  string `json:"auth_error,omitempty"`
}

// OK reports whether the instance is reachable and the token accepted.
func (h Health) OK() bool {
	return h.PingStatus == StatusOK && h.AuthStatus == StatusOK
}

// Probe pings the instance (unauthenticated) and, when it answers, verifies
// the token. Auth is left unknown when the ping fails.
func Probe(ctx context.Context, c *Client) Health {
	h := Health{PingStatus: StatusOK, AuthStatus: StatusUnknown}
	if err := c.Ping(ctx); err != nil {
		h.PingStatus = StatusError
		h.PingError = err.Error()
		return h
	}
	if err := c.CheckAuth(ctx); err != nil {
		h.AuthStatus = StatusError
		h.AuthError = err.Error()
		if errors.Is(err, ErrMissingToken) {
			h.AuthError = "no token configured"
		}
		return h
	}
	h.AuthStatus = StatusOK
	return h
}

// CheckConnection probes conn, stores the result and, once authenticated,
// records the issuer advertised by discovery.
func CheckConnection(ctx context.Context, conn *models.Connection, store *models.ConnectionStore, logger func(string)) Health {
	client := NewClient(conn)
	h := Probe(ctx, client)

	if h.PingStatus == StatusOK {
		logger(fmt.Sprintf("  PING OK: %s: reachable", conn.Name))
	} else {
		logger(fmt.Sprintf("  PING FAILED: %s: %s", conn.Name, h.PingError))
	}
	switch h.AuthStatus {
	case StatusOK:
		logger(fmt.Sprintf("  AUTH OK: %s: authenticated successfully", conn.Name))
		DiscoverAndStore(ctx, client, conn, store, logger)
	case StatusError:
		logger(fmt.Sprintf("  AUTH FAILED: %s: %s", conn.Name, h.AuthError))
	}

	store.SetHealth(conn.ID, h.PingStatus, h.PingError, h.AuthStatus, h.AuthError)
	return h
}
