package server

import (
	"encoding/json"
	"errors"
	"io"
	"net/http"

	"mercator-hq/janus/pkg/evaluator"
	"mercator-hq/janus/pkg/hitl"
	"mercator-hq/janus/pkg/rules"
)

type errorResponse struct {
	Error string `json:"error"`
}

func (s *Server) writeJSON(w http.ResponseWriter, status int, v interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		s.logger.Error("failed to encode response", "error", err)
	}
}

func (s *Server) writeError(w http.ResponseWriter, status int, msg string) {
	s.writeJSON(w, status, errorResponse{Error: msg})
}

// writeWorkflowError maps workflow errors to HTTP statuses.
func (s *Server) writeWorkflowError(w http.ResponseWriter, err error) {
	switch {
	case errors.Is(err, hitl.ErrNotFound):
		s.writeError(w, http.StatusNotFound, err.Error())
	case errors.Is(err, hitl.ErrNotPending):
		s.writeError(w, http.StatusConflict, err.Error())
	default:
		s.logger.Error("request failed", "error", err)
		s.writeError(w, http.StatusInternalServerError, err.Error())
	}
}

func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	s.writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

type evaluateRequest struct {
	TenantID   string                 `json:"tenant_id"`
	AgentID    string                 `json:"agent_id,omitempty"`
	Intent     string                 `json:"intent,omitempty"`
	Risk       string                 `json:"risk,omitempty"`
	Department string                 `json:"department,omitempty"`
	Fields     map[string]interface{} `json:"fields,omitempty"`
}

func (s *Server) handleEvaluate(w http.ResponseWriter, r *http.Request) {
	var req evaluateRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		s.writeError(w, http.StatusBadRequest, "invalid request body: "+err.Error())
		return
	}
	if req.TenantID == "" {
		s.writeError(w, http.StatusBadRequest, "tenant_id is required")
		return
	}

	decision, err := s.engine.Evaluate(r.Context(), &evaluator.Context{
		TenantID:   req.TenantID,
		AgentID:    req.AgentID,
		Intent:     req.Intent,
		Risk:       req.Risk,
		Department: req.Department,
		Fields:     req.Fields,
	})
	if err != nil {
		s.writeWorkflowError(w, err)
		return
	}
	s.writeJSON(w, http.StatusOK, decision)
}

type createApprovalRequest struct {
	TenantID string                 `json:"tenant_id"`
	Mode     string                 `json:"mode"`
	Payload  map[string]interface{} `json:"payload,omitempty"`
}

func (s *Server) handleCreateApproval(w http.ResponseWriter, r *http.Request) {
	var req createApprovalRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		s.writeError(w, http.StatusBadRequest, "invalid request body: "+err.Error())
		return
	}
	if req.TenantID == "" {
		s.writeError(w, http.StatusBadRequest, "tenant_id is required")
		return
	}
	mode := rules.HITLMode(req.Mode)
	if !mode.Valid() {
		s.writeError(w, http.StatusBadRequest, "unknown mode: "+req.Mode)
		return
	}

	request, err := s.engine.CreateApproval(r.Context(), req.TenantID, mode, req.Payload)
	if err != nil {
		s.writeWorkflowError(w, err)
		return
	}
	s.writeJSON(w, http.StatusCreated, request)
}

func (s *Server) handleListApprovals(w http.ResponseWriter, r *http.Request) {
	filter := hitl.Filter{
		Status: hitl.Status(r.URL.Query().Get("status")),
		Mode:   rules.HITLMode(r.URL.Query().Get("mode")),
	}

	requests, err := s.engine.ListApprovals(r.Context(), filter)
	if err != nil {
		s.writeWorkflowError(w, err)
		return
	}
	if requests == nil {
		requests = []*hitl.ApprovalRequest{}
	}
	s.writeJSON(w, http.StatusOK, requests)
}

func (s *Server) handleGetApproval(w http.ResponseWriter, r *http.Request) {
	request, err := s.engine.GetApproval(r.Context(), r.PathValue("id"))
	if err != nil {
		s.writeWorkflowError(w, err)
		return
	}
	s.writeJSON(w, http.StatusOK, request)
}

type resolveRequest struct {
	ReviewerID string `json:"reviewer_id"`
	Notes      string `json:"notes,omitempty"`
	Reason     string `json:"reason,omitempty"`
	ActorID    string `json:"actor_id,omitempty"`
}

// decodeResolve parses the optional resolution body. An empty body is
// accepted so transitions can be triggered without arguments.
func decodeResolve(r *http.Request) (resolveRequest, error) {
	var req resolveRequest
	if r.Body == nil {
		return req, nil
	}
	err := json.NewDecoder(r.Body).Decode(&req)
	if errors.Is(err, io.EOF) {
		return req, nil
	}
	return req, err
}

func (s *Server) handleApprove(w http.ResponseWriter, r *http.Request) {
	req, err := decodeResolve(r)
	if err != nil {
		s.writeError(w, http.StatusBadRequest, "invalid request body: "+err.Error())
		return
	}
	request, err := s.engine.Approve(r.Context(), r.PathValue("id"), req.ReviewerID, req.Notes)
	if err != nil {
		s.writeWorkflowError(w, err)
		return
	}
	s.writeJSON(w, http.StatusOK, request)
}

func (s *Server) handleReject(w http.ResponseWriter, r *http.Request) {
	req, err := decodeResolve(r)
	if err != nil {
		s.writeError(w, http.StatusBadRequest, "invalid request body: "+err.Error())
		return
	}
	request, err := s.engine.Reject(r.Context(), r.PathValue("id"), req.ReviewerID, req.Reason)
	if err != nil {
		s.writeWorkflowError(w, err)
		return
	}
	s.writeJSON(w, http.StatusOK, request)
}

func (s *Server) handleEscalate(w http.ResponseWriter, r *http.Request) {
	req, err := decodeResolve(r)
	if err != nil {
		s.writeError(w, http.StatusBadRequest, "invalid request body: "+err.Error())
		return
	}
	actor := req.ActorID
	if actor == "" {
		actor = "operator"
	}
	request, err := s.engine.Escalate(r.Context(), r.PathValue("id"), req.Reason, actor)
	if err != nil {
		s.writeWorkflowError(w, err)
		return
	}
	s.writeJSON(w, http.StatusOK, request)
}

func (s *Server) handleCancel(w http.ResponseWriter, r *http.Request) {
	req, err := decodeResolve(r)
	if err != nil {
		s.writeError(w, http.StatusBadRequest, "invalid request body: "+err.Error())
		return
	}
	actor := req.ActorID
	if actor == "" {
		actor = "operator"
	}
	request, err := s.engine.Cancel(r.Context(), r.PathValue("id"), actor)
	if err != nil {
		s.writeWorkflowError(w, err)
		return
	}
	s.writeJSON(w, http.StatusOK, request)
}

func (s *Server) handleVerifyChain(w http.ResponseWriter, r *http.Request) {
	result, err := s.engine.VerifyChain(r.Context(), r.PathValue("tenant"))
	if err != nil {
		s.writeWorkflowError(w, err)
		return
	}
	s.writeJSON(w, http.StatusOK, result)
}
