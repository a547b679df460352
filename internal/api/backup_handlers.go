package api

import (
	"encoding/json"
	"net/http"
	"strconv"

	"ferro.is/voxic/internal/validation"
)

func (s *Server) handleListBackups(w http.ResponseWriter, r *http.Request) {
	backups, err := s.manager.Backups().ListBackups()
	if err != nil {
		WriteError(w, http.StatusInternalServerError, "failed to list backups", err.Error())
		return
	}
	WriteJSON(w, http.StatusOK, map[string]any{"backups": backups, "count": len(backups)})
}

func (s *Server) handleCreateBackup(w http.ResponseWriter, r *http.Request) {
	var req struct {
		Description string `json:"description"`
	}
	if r.ContentLength > 0 {
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			WriteError(w, http.StatusBadRequest, "invalid request body", err.Error())
			return
		}
	}
	if req.Description == "" {
		req.Description = "manual backup"
	}

	info, err := s.manager.Backups().CreatePinnedBackup(req.Description)
	s.recordAudit(r, "backup", "", nil, err)
	if err != nil {
		WriteError(w, http.StatusInternalServerError, "failed to create backup", err.Error())
		return
	}
	WriteJSON(w, http.StatusCreated, info)
}

func (s *Server) handleRestoreBackup(w http.ResponseWriter, r *http.Request) {
	version, err := validation.ValidateBackupVersion(r.PathValue("version"))
	if err != nil {
		WriteError(w, http.StatusBadRequest, err.Error())
		return
	}

	res, err := s.manager.Restore(r.Context(), version)
	s.recordAudit(r, "restore", "", res, err)
	if err != nil {
		s.writeProvisionError(w, err)
		return
	}
	WriteJSON(w, http.StatusOK, operationView(res))
}

func (s *Server) handleAuditLog(w http.ResponseWriter, r *http.Request) {
	if s.audit == nil {
		WriteError(w, http.StatusNotFound, "audit trail disabled")
		return
	}

	limit := 50
	if v := r.URL.Query().Get("limit"); v != "" {
		n, err := strconv.Atoi(v)
		if err != nil || n < 1 || n > 1000 {
			WriteError(w, http.StatusBadRequest, "limit must be 1-1000")
			return
		}
		limit = n
	}

	events, err := s.audit.Recent(limit)
	if err != nil {
		WriteError(w, http.StatusInternalServerError, "failed to query audit trail", err.Error())
		return
	}
	WriteJSON(w, http.StatusOK, map[string]any{"events": events, "count": len(events)})
}
