package api

import (
	"fmt"
	"net/http"
	"sync"

	"github.com/go-chi/chi/v5"

	"github.com/gadgetbot/zitadel-workbench/internal/migration"
	"github.com/gadgetbot/zitadel-workbench/internal/models"
	"github.com/gadgetbot/zitadel-workbench/internal/snapshot"
)

// SnapshotStore keeps the snapshots produced by export jobs, keyed by job ID.
type SnapshotStore struct {
	mu        sync.RWMutex
	snapshots map[string]*snapshot.ConfigSnapshot
}

func NewSnapshotStore() *SnapshotStore {
	return &SnapshotStore{snapshots: make(map[string]*snapshot.ConfigSnapshot)}
}

func (ss *SnapshotStore) Store(jobID string, snap *snapshot.ConfigSnapshot) {
	ss.mu.Lock()
	defer ss.mu.Unlock()
	ss.snapshots[jobID] = snap
}

func (ss *SnapshotStore) Get(jobID string) *snapshot.ConfigSnapshot {
	ss.mu.RLock()
	defer ss.mu.RUnlock()
	return ss.snapshots[jobID]
}

// RunExport starts an async export of a connection. The snapshot is kept in
// memory for download once the job completes.
func (s *Server) RunExport(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")
	conn := s.Connections.Get(id)
	if conn == nil {
		writeError(w, http.StatusNotFound, "connection not found")
		return
	}
	opts := migration.ExportOptions{
		SkipSystem: r.URL.Query().Get("skip_system") == "true",
		Log:        s.Log,
	}

	job := s.Jobs.Create("export", id)

	go func() {
		job.AppendLog(fmt.Sprintf("Exporting %s (%s)", conn.Name, conn.BaseURL()))
		snap, err := migration.ExportConnection(job.Context(), conn, opts, job.AppendLog)
		if err != nil {
			job.AppendLog("ERROR: " + err.Error())
			job.Fail(err.Error())
			return
		}
		s.Snapshots.Store(job.ID, snap)
		job.AppendLog("")
		migration.LogSummary(snap, job.AppendLog)
		job.Complete()
	}()

	writeJSON(w, http.StatusAccepted, map[string]interface{}{
		"job_id":   job.ID,
		"download": "/api/snapshots/" + job.ID,
	})
}

// DownloadSnapshot serves the snapshot of a completed export job as a JSON
// attachment.
func (s *Server) DownloadSnapshot(w http.ResponseWriter, r *http.Request) {
	jobID := chi.URLParam(r, "jobId")
	job := s.Jobs.Get(jobID)
	if job == nil {
		writeError(w, http.StatusNotFound, "job not found")
		return
	}
	if job.CurrentStatus() == models.JobRunning {
		writeJSON(w, http.StatusConflict, map[string]string{
			"status":  models.JobRunning,
			"message": "export is still in progress",
		})
		return
	}
	snap := s.Snapshots.Get(jobID)
	if snap == nil {
		writeError(w, http.StatusNotFound, "snapshot not found")
		return
	}

	short := jobID
	if len(short) > 8 {
		short = short[:8]
	}
	w.Header().Set("Content-Type", "application/json")
	w.Header().Set("Content-Disposition", fmt.Sprintf(`attachment; filename="zitadel-export-%s.json"`, short))
	if err := snapshot.Encode(w, snap); err != nil {
		s.Log.Warn("writing snapshot", "job", jobID, "error", err)
	}
}
