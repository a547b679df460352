package api

import (
	"encoding/json"
	"errors"
	"net/http"
	"strconv"
	"strings"

	"ferro.is/voxic/internal/audit"
	"ferro.is/voxic/internal/confdoc"
	"ferro.is/voxic/internal/pjsip"
	"ferro.is/voxic/internal/provision"
	"ferro.is/voxic/internal/validation"
)

// EndpointResponse is the read shape for one endpoint. The flat fields
// mirror what first-generation clients expect; the section maps carry
// the full resolved view, defaults included and secrets redacted.
type EndpointResponse struct {
	ID          string   `json:"id"`
	Context     string   `json:"context"`
	Transport   string   `json:"transport,omitempty"`
	CallerID    string   `json:"callerid,omitempty"`
	Codecs      []string `json:"codecs"`
	Username    string   `json:"username,omitempty"`
	MaxContacts int      `json:"max_contacts,omitempty"`

	Endpoint map[string]string `json:"endpoint"`
	Auth     map[string]string `json:"auth,omitempty"`
	AOR      map[string]string `json:"aor,omitempty"`
}

func endpointView(e *pjsip.Endpoint) *EndpointResponse {
	resp := &EndpointResponse{
		ID:       e.ID,
		Endpoint: pairMap(pjsip.Resolved(e, pjsip.SectionEndpoint)),
		Auth:     pairMap(pjsip.Resolved(e, pjsip.SectionAuth)),
		AOR:      pairMap(pjsip.Resolved(e, pjsip.SectionAOR)),
	}

	resp.Context = resp.Endpoint["context"]
	resp.Transport = resp.Endpoint["transport"]
	resp.CallerID = resp.Endpoint["callerid"]
	if allow := resp.Endpoint["allow"]; allow != "" {
		resp.Codecs = strings.Split(allow, ",")
	}
	resp.Username = resp.Auth["username"]
	if n, err := strconv.Atoi(resp.AOR["max_contacts"]); err == nil {
		resp.MaxContacts = n
	}
	return resp
}

func pairMap(pairs []confdoc.Pair) map[string]string {
	if len(pairs) == 0 {
		return nil
	}
	out := make(map[string]string, len(pairs))
	for _, p := range pairs {
		out[p.Key] = p.Value
	}
	return out
}

// OperationResponse is the envelope for a completed mutation.
type OperationResponse struct {
	OperationID   string            `json:"operation_id"`
	Action        string            `json:"action"`
	Endpoint      *EndpointResponse `json:"endpoint,omitempty"`
	Warnings      []string          `json:"warnings,omitempty"`
	Diff          string            `json:"diff,omitempty"`
	BackupVersion int               `json:"backup_version,omitempty"`
	Reloaded      bool              `json:"reloaded"`
	ReloadError   string            `json:"reload_error,omitempty"`
}

func operationView(res *provision.Result) *OperationResponse {
	out := &OperationResponse{
		OperationID: res.OperationID,
		Action:      res.Action,
		Warnings:    res.Warnings,
		Diff:        res.Diff,
		Reloaded:    res.Reloaded,
		ReloadError: res.ReloadError,
	}
	if res.Endpoint != nil {
		out.Endpoint = endpointView(res.Endpoint)
	}
	if res.Backup != nil {
		out.BackupVersion = res.Backup.Version
	}
	return out
}

func (s *Server) handleListEndpoints(w http.ResponseWriter, r *http.Request) {
	endpoints, err := s.manager.List()
	if err != nil {
		WriteError(w, http.StatusInternalServerError, "failed to read config", err.Error())
		return
	}

	out := make([]*EndpointResponse, 0, len(endpoints))
	for _, e := range endpoints {
		out = append(out, endpointView(e))
	}
	WriteJSON(w, http.StatusOK, map[string]any{"endpoints": out, "count": len(out)})
}

func (s *Server) handleGetEndpoint(w http.ResponseWriter, r *http.Request) {
	id := r.PathValue("id")
	if err := validation.ValidateEndpointID(id); err != nil {
		WriteError(w, http.StatusBadRequest, err.Error())
		return
	}

	e, err := s.manager.Get(id)
	if err != nil {
		s.writeProvisionError(w, err)
		return
	}
	WriteJSON(w, http.StatusOK, endpointView(e))
}

func (s *Server) handleCreateEndpoint(w http.ResponseWriter, r *http.Request) {
	var req pjsip.Request
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		WriteError(w, http.StatusBadRequest, "invalid request body", err.Error())
		return
	}

	res, err := s.manager.Create(r.Context(), &req)
	s.recordAudit(r, "create", req.ID, res, err)
	if err != nil {
		s.writeProvisionError(w, err)
		return
	}
	WriteJSON(w, http.StatusCreated, operationView(res))
}

func (s *Server) handleUpdateEndpoint(w http.ResponseWriter, r *http.Request) {
	id := r.PathValue("id")
	if err := validation.ValidateEndpointID(id); err != nil {
		WriteError(w, http.StatusBadRequest, err.Error())
		return
	}

	var req pjsip.Request
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		WriteError(w, http.StatusBadRequest, "invalid request body", err.Error())
		return
	}

	res, err := s.manager.Update(r.Context(), id, &req)
	s.recordAudit(r, "update", id, res, err)
	if err != nil {
		s.writeProvisionError(w, err)
		return
	}
	WriteJSON(w, http.StatusOK, operationView(res))
}

func (s *Server) handleDeleteEndpoint(w http.ResponseWriter, r *http.Request) {
	id := r.PathValue("id")
	if err := validation.ValidateEndpointID(id); err != nil {
		WriteError(w, http.StatusBadRequest, err.Error())
		return
	}

	res, err := s.manager.Delete(r.Context(), id)
	s.recordAudit(r, "delete", id, res, err)
	if err != nil {
		s.writeProvisionError(w, err)
		return
	}
	WriteJSON(w, http.StatusOK, operationView(res))
}

func (s *Server) handleAvailability(w http.ResponseWriter, r *http.Request) {
	id := r.PathValue("id")

	available, err := s.manager.Available(id)
	var verr *pjsip.ValidationError
	if errors.As(err, &verr) {
		WriteJSON(w, http.StatusOK, map[string]any{
			"id": id, "available": false, "violations": verr.Violations,
		})
		return
	}
	if err != nil {
		WriteError(w, http.StatusInternalServerError, "failed to read config", err.Error())
		return
	}
	WriteJSON(w, http.StatusOK, map[string]any{"id": id, "available": available})
}

func (s *Server) handleReload(w http.ResponseWriter, r *http.Request) {
	err := s.manager.Reload(r.Context())
	s.recordAudit(r, "reload", "", nil, err)
	if err != nil {
		WriteError(w, http.StatusBadGateway, "reload failed", err.Error())
		return
	}
	WriteJSON(w, http.StatusOK, map[string]any{"reloaded": true})
}

func (s *Server) handleRawConfig(w http.ResponseWriter, r *http.Request) {
	data, err := s.manager.Raw()
	if err != nil {
		WriteError(w, http.StatusInternalServerError, "failed to read config", err.Error())
		return
	}
	w.Header().Set("Content-Type", "text/plain; charset=utf-8")
	w.WriteHeader(http.StatusOK)
	w.Write(data)
}

// writeProvisionError maps pipeline errors onto HTTP status codes.
func (s *Server) writeProvisionError(w http.ResponseWriter, err error) {
	var verr *pjsip.ValidationError
	var ierr *provision.IntegrityError

	switch {
	case errors.As(err, &verr):
		WriteValidationError(w, verr)
	case errors.Is(err, pjsip.ErrNotFound):
		WriteError(w, http.StatusNotFound, "endpoint not found")
	case errors.Is(err, pjsip.ErrDuplicate):
		WriteError(w, http.StatusConflict, "endpoint already exists")
	case errors.Is(err, provision.ErrBusy):
		w.Header().Set("Retry-After", "1")
		WriteError(w, http.StatusServiceUnavailable, "another operation is in progress")
	case errors.As(err, &ierr):
		WriteError(w, http.StatusInternalServerError, "write verification failed", err.Error())
	default:
		WriteError(w, http.StatusInternalServerError, "operation failed", err.Error())
	}
}

func (s *Server) recordAudit(r *http.Request, action, id string, res *provision.Result, opErr error) {
	if s.audit == nil {
		return
	}

	evt := audit.Event{
		Actor:      Actor(r.Context()),
		Action:     action,
		EndpointID: id,
		Status:     "ok",
		IP:         getClientIP(r),
	}
	if res != nil {
		evt.OperationID = res.OperationID
		if len(res.Warnings) > 0 {
			evt.Details = map[string]any{"warnings": res.Warnings}
		}
		if res.ReloadError != "" {
			if evt.Details == nil {
				evt.Details = map[string]any{}
			}
			evt.Details["reload_error"] = res.ReloadError
		}
	}
	if opErr != nil {
		evt.Status = "error"
		evt.Details = map[string]any{"error": opErr.Error()}
	}

	if err := s.audit.Write(evt); err != nil {
		s.logger.Warn("audit write failed", "error", err)
	}
}
