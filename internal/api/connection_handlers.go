package api

import (
	"encoding/json"
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/gadgetbot/zitadel-workbench/internal/models"
	"github.com/gadgetbot/zitadel-workbench/internal/platform"
)

func (s *Server) CreateConnection(w http.ResponseWriter, r *http.Request) {
	var conn models.Connection
	if err := json.NewDecoder(r.Body).Decode(&conn); err != nil {
		writeError(w, http.StatusBadRequest, "invalid JSON: "+err.Error())
		return
	}
	if conn.IssuerURL == "" {
		writeError(w, http.StatusBadRequest, "issuer_url is required")
		return
	}
	if conn.Role == "" {
		conn.Role = "source"
	}
	if conn.Name == "" {
		conn.Name = conn.BaseURL()
	}
	s.Connections.Create(&conn)
	writeJSON(w, http.StatusCreated, conn.Redacted())
}

func (s *Server) ListConnections(w http.ResponseWriter, r *http.Request) {
	conns := s.Connections.List()
	out := make([]models.Connection, 0, len(conns))
	for _, c := range conns {
		out = append(out, c.Redacted())
	}
	writeJSON(w, http.StatusOK, out)
}

func (s *Server) UpdateConnection(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")
	var conn models.Connection
	if err := json.NewDecoder(r.Body).Decode(&conn); err != nil {
		writeError(w, http.StatusBadRequest, "invalid JSON: "+err.Error())
		return
	}
	conn.ID = id
	if conn.Token == conn.MaskedToken() && conn.Token != "" {
		// The UI echoes the mask back when the token was not edited.
		conn.Token = ""
	}
	if !s.Connections.Update(&conn) {
		writeError(w, http.StatusNotFound, "connection not found")
		return
	}
	writeJSON(w, http.StatusOK, conn.Redacted())
}

func (s *Server) DeleteConnection(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")
	if !s.Connections.Delete(id) {
		writeError(w, http.StatusNotFound, "connection not found")
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// TestConnection re-runs the health and auth probes for a connection.
func (s *Server) TestConnection(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")
	conn := s.Connections.Get(id)
	if conn == nil {
		writeError(w, http.StatusNotFound, "connection not found")
		return
	}
	var lines []string
	h := platform.CheckConnection(r.Context(), conn, s.Connections, func(line string) {
		lines = append(lines, line)
	})
	resp := map[string]interface{}{
		"ok":     h.OK(),
		"health": h,
		"log":    lines,
	}
	if !h.OK() {
		resp["error"] = h.PingError + h.AuthError
	}
	writeJSON(w, http.StatusOK, resp)
}
