package api

import (
	"encoding/json"
	"net/http"
	"sync"

	"github.com/go-chi/chi/v5"

	"github.com/gadgetbot/zitadel-workbench/internal/ledger"
	"github.com/gadgetbot/zitadel-workbench/internal/migration"
	"github.com/gadgetbot/zitadel-workbench/internal/models"
	"github.com/gadgetbot/zitadel-workbench/internal/snapshot"
)

// previewCache holds the preview result and exported snapshot between
// the preview and run steps.
type previewCache struct {
	Preview  *models.MigrationPreview
	Snapshot *snapshot.ConfigSnapshot
}

// PreviewStore provides thread-safe storage for migration previews.
type PreviewStore struct {
	mu       sync.RWMutex
	previews map[string]*previewCache
}

func NewPreviewStore() *PreviewStore {
	return &PreviewStore{previews: make(map[string]*previewCache)}
}

func (ps *PreviewStore) Store(jobID string, pc *previewCache) {
	ps.mu.Lock()
	defer ps.mu.Unlock()
	ps.previews[jobID] = pc
}

func (ps *PreviewStore) Get(jobID string) *previewCache {
	ps.mu.RLock()
	defer ps.mu.RUnlock()
	return ps.previews[jobID]
}

func (ps *PreviewStore) Delete(jobID string) {
	ps.mu.Lock()
	defer ps.mu.Unlock()
	delete(ps.previews, jobID)
}

// MigrationPreviewHandler starts an async preview job (export + plan).
func (s *Server) MigrationPreviewHandler(w http.ResponseWriter, r *http.Request) {
	var req struct {
		SourceID      string `json:"source_id"`
		DestinationID string `json:"destination_id"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid JSON: "+err.Error())
		return
	}

	src := s.Connections.Get(req.SourceID)
	if src == nil {
		writeError(w, http.StatusNotFound, "source connection not found")
		return
	}
	dst := s.Connections.Get(req.DestinationID)
	if dst == nil {
		writeError(w, http.StatusNotFound, "destination connection not found")
		return
	}

	job := s.Jobs.Create("migration-preview", req.SourceID)
	opts := s.Import
	opts.Log = s.Log

	go func() {
		preview, snap, err := migration.Preview(job.Context(), src, dst, opts, job.AppendLog)
		if err != nil {
			job.AppendLog("ERROR: " + err.Error())
			job.Fail(err.Error())
			return
		}

		s.Previews.Store(job.ID, &previewCache{
			Preview:  preview,
			Snapshot: snap,
		})

		job.Complete()
	}()

	writeJSON(w, http.StatusAccepted, map[string]string{"job_id": job.ID})
}

// GetMigrationPreview returns the cached preview result for a completed preview job.
func (s *Server) GetMigrationPreview(w http.ResponseWriter, r *http.Request) {
	jobID := chi.URLParam(r, "jobId")

	job := s.Jobs.Get(jobID)
	if job == nil {
		writeError(w, http.StatusNotFound, "job not found")
		return
	}

	switch job.CurrentStatus() {
	case models.JobRunning:
		writeJSON(w, http.StatusConflict, map[string]string{
			"status":  models.JobRunning,
			"message": "preview is still in progress",
		})
		return
	case models.JobFailed, models.JobCancelled:
		snap := job.Snapshot()
		writeJSON(w, http.StatusOK, map[string]interface{}{
			"status": snap.Status,
			"error":  snap.Error,
		})
		return
	}

	cached := s.Previews.Get(jobID)
	if cached == nil {
		writeError(w, http.StatusNotFound, "preview data not found")
		return
	}

	writeJSON(w, http.StatusOK, cached.Preview)
}

// MigrationRunHandler starts the import from a previously cached preview.
// A dry run keeps the preview so the real run can follow.
func (s *Server) MigrationRunHandler(w http.ResponseWriter, r *http.Request) {
	var req struct {
		DestinationID string `json:"destination_id"`
		PreviewJobID  string `json:"preview_job_id"`
		DryRun        bool   `json:"dry_run"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid JSON: "+err.Error())
		return
	}

	cached := s.Previews.Get(req.PreviewJobID)
	if cached == nil {
		writeError(w, http.StatusNotFound, "preview not found, run preview first")
		return
	}

	destID := req.DestinationID
	if destID == "" {
		destID = cached.Preview.DestinationID
	}
	dst := s.Connections.Get(destID)
	if dst == nil {
		writeError(w, http.StatusNotFound, "destination connection not found")
		return
	}

	jobType := "migration-run"
	if req.DryRun {
		jobType = "migration-dry-run"
	}
	job := s.Jobs.Create(jobType, destID)
	opts := s.Import
	opts.DryRun = req.DryRun
	opts.Log = s.Log

	go func() {
		if s.LedgerPath != "" {
			l, err := ledger.Open(s.LedgerPath, dst.BaseURL())
			if err != nil {
				job.AppendLog("ERROR: " + err.Error())
				job.Fail(err.Error())
				return
			}
			defer l.Close()
			opts.Ledger = l
		}

		result, err := migration.Run(job.Context(), dst, cached.Snapshot, opts, job.AppendLog)
		if err != nil {
			job.AppendLog("ERROR: " + err.Error())
			job.Fail(err.Error())
			return
		}
		for _, warning := range result.Warnings {
			job.AppendLog("WARNING: " + warning)
		}
		job.Complete()
		if !req.DryRun {
			s.Previews.Delete(req.PreviewJobID)
		}
	}()

	writeJSON(w, http.StatusAccepted, map[string]string{"job_id": job.ID})
}
