package api

import (
	"net/http"

	"github.com/gadgetbot/zitadel-workbench/internal/migration"
)

// GetExclusions returns the built-in system skip list and the user
// exclusions applied on import.
func (s *Server) GetExclusions(w http.ResponseWriter, r *http.Request) {
	configured := s.Import.Exclude
	if configured == nil {
		configured = map[string][]string{}
	}
	writeJSON(w, http.StatusOK, map[string]interface{}{
		"system":     migration.DefaultExclusions(),
		"configured": configured,
	})
}
