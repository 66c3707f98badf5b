package api

import (
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/gadgetbot/zitadel-workbench/internal/models"
	"github.com/gadgetbot/zitadel-workbench/internal/platform"
)

// ListProjects lists every project of a connection.
func (s *Server) ListProjects(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")
	conn := s.Connections.Get(id)
	if conn == nil {
		writeError(w, http.StatusNotFound, "connection not found")
		return
	}
	client := platform.NewClient(conn).WithLogger(s.Log)
	if !client.HasToken() {
		writeError(w, http.StatusBadRequest, platform.ErrMissingToken.Error())
		return
	}
	projects, err := client.SearchAll(r.Context(), "/management/v1/projects/_search", nil)
	if err != nil {
		writeError(w, http.StatusBadGateway, err.Error())
		return
	}
	// Ensure we return [] not null for empty results
	if projects == nil {
		projects = []models.Resource{}
	}
	writeJSON(w, http.StatusOK, projects)
}
