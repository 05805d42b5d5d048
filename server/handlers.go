package server

import (
	"encoding/json"
	"errors"
	"net/http"

	"github.com/aegisinsight/aegis/compliance"
	"github.com/aegisinsight/aegis/intel"
	"github.com/aegisinsight/aegis/llm"
	"github.com/aegisinsight/aegis/store"
)

type scanRequest struct {
	OrgID          string `json:"org_id"`
	SubjectName    string `json:"subject_name"`
	SubjectURL     string `json:"subject_url,omitempty"`
	ReportID       string `json:"report_id,omitempty"`
	ToolID         string `json:"tool_id,omitempty"`
	RequestID      string `json:"request_id,omitempty"`
	VendorResearch bool   `json:"vendor_research,omitempty"`
}

type scanResponse struct {
	Success    bool              `json:"success"`
	ReportID   string            `json:"report_id"`
	Assessment *intel.Assessment `json:"assessment"`
}

func (s *Server) handleScan(w http.ResponseWriter, r *http.Request) {
	var req scanRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}

	result, err := s.pipeline.Scan(r.Context(), intel.ScanRequest{
		OrgID:          req.OrgID,
		SubjectName:    req.SubjectName,
		SubjectURL:     req.SubjectURL,
		ReportID:       req.ReportID,
		ToolID:         req.ToolID,
		RequestID:      req.RequestID,
		VendorResearch: req.VendorResearch,
	})
	if err != nil {
		s.writeScanError(w, r, err)
		return
	}

	s.logActivity(r, req.OrgID, "scan", "Security scan completed for "+req.SubjectName)

	writeJSON(w, http.StatusOK, scanResponse{
		Success:    true,
		ReportID:   result.Report.ID,
		Assessment: result.Assessment,
	})
}

func (s *Server) handleGetReport(w http.ResponseWriter, r *http.Request) {
	report, err := s.store.GetReport(r.Context(), r.PathValue("id"))
	if err != nil {
		if errors.Is(err, store.ErrNotFound) {
			writeError(w, http.StatusNotFound, "report not found")
			return
		}
		s.logger.Error("report lookup failed", "error", err)
		writeError(w, http.StatusInternalServerError, "report lookup failed")
		return
	}
	writeJSON(w, http.StatusOK, report)
}

func (s *Server) handleListReports(w http.ResponseWriter, r *http.Request) {
	orgID := r.URL.Query().Get("org_id")
	if orgID == "" {
		writeError(w, http.StatusBadRequest, "org_id is required")
		return
	}
	reports, err := s.store.ListReports(r.Context(), orgID)
	if err != nil {
		s.logger.Error("report list failed", "error", err)
		writeError(w, http.StatusInternalServerError, "report list failed")
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"reports": reports})
}

type maturityRequest struct {
	OrgID string `json:"org_id"`
}

func (s *Server) handleMaturity(w http.ResponseWriter, r *http.Request) {
	var req maturityRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}

	result, err := s.assessor.Assess(r.Context(), req.OrgID)
	if err != nil {
		var valErr *intel.ValidationError
		if errors.As(err, &valErr) {
			writeError(w, http.StatusBadRequest, valErr.Error())
			return
		}
		s.logger.Error("maturity assessment failed", "org_id", req.OrgID, "error", err)
		writeError(w, http.StatusInternalServerError, "maturity assessment failed")
		return
	}

	writeJSON(w, http.StatusOK, map[string]any{"success": true, "assessment": result})
}

func (s *Server) handleListFrameworks(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, map[string]any{"frameworks": compliance.Frameworks})
}

type attestRequest struct {
	OrgID      string `json:"org_id"`
	Framework  string `json:"framework"`
	ControlRef string `json:"control_ref"`
	Status     string `json:"status"`
	Attestor   string `json:"attestor,omitempty"`
	Notes      string `json:"notes,omitempty"`
}

func (s *Server) handleAttest(w http.ResponseWriter, r *http.Request) {
	var req attestRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}

	control, err := s.compliance.Attest(r.Context(), compliance.Attestation{
		OrgID:      req.OrgID,
		Framework:  req.Framework,
		ControlRef: req.ControlRef,
		Status:     store.ControlStatus(req.Status),
		Attestor:   req.Attestor,
		Notes:      req.Notes,
	})
	if err != nil {
		var valErr *intel.ValidationError
		if errors.As(err, &valErr) {
			writeError(w, http.StatusBadRequest, valErr.Error())
			return
		}
		s.logger.Error("attestation failed", "error", err)
		writeError(w, http.StatusInternalServerError, "attestation failed")
		return
	}

	s.logActivity(r, req.OrgID, "attestation", req.Framework+" "+req.ControlRef+" marked "+req.Status)

	writeJSON(w, http.StatusOK, control)
}

func (s *Server) handleComplianceStats(w http.ResponseWriter, r *http.Request) {
	orgID := r.URL.Query().Get("org_id")
	if orgID == "" {
		writeError(w, http.StatusBadRequest, "org_id is required")
		return
	}
	stats, err := s.compliance.Stats(r.Context(), orgID)
	if err != nil {
		s.logger.Error("compliance stats failed", "error", err)
		writeError(w, http.StatusInternalServerError, "compliance stats failed")
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"stats": stats})
}

type planRequest struct {
	ReportID    string `json:"report_id,omitempty"`
	ServiceName string `json:"service_name"`
}

func (s *Server) handleGeneratePlan(w http.ResponseWriter, r *http.Request) {
	var req planRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}

	serviceName := req.ServiceName
	var vulns intel.Vulnerabilities
	if req.ReportID != "" {
		report, err := s.store.GetReport(r.Context(), req.ReportID)
		if err != nil {
			if errors.Is(err, store.ErrNotFound) {
				writeError(w, http.StatusNotFound, "report not found")
				return
			}
			s.logger.Error("report lookup failed", "error", err)
			writeError(w, http.StatusInternalServerError, "report lookup failed")
			return
		}
		var assessment intel.Assessment
		if err := json.Unmarshal(report.Analysis, &assessment); err != nil {
			writeError(w, http.StatusConflict, "report has no completed analysis")
			return
		}
		vulns = assessment.Vulnerabilities
		if serviceName == "" {
			serviceName = report.ToolName
		}
	}

	plan, err := s.planner.GeneratePlan(r.Context(), serviceName, vulns)
	if err != nil {
		s.writeScanError(w, r, err)
		return
	}

	writeJSON(w, http.StatusOK, map[string]any{"success": true, "plan": plan})
}

func (s *Server) handleListActivities(w http.ResponseWriter, r *http.Request) {
	orgID := r.URL.Query().Get("org_id")
	if orgID == "" {
		writeError(w, http.StatusBadRequest, "org_id is required")
		return
	}
	activities, err := s.store.ListActivities(r.Context(), orgID, 50)
	if err != nil {
		s.logger.Error("activity list failed", "error", err)
		writeError(w, http.StatusInternalServerError, "activity list failed")
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"activities": activities})
}

// writeScanError maps pipeline failures onto HTTP statuses, keeping
// rate-limit and quota exhaustion distinguishable for the client.
func (s *Server) writeScanError(w http.ResponseWriter, r *http.Request, err error) {
	var valErr *intel.ValidationError
	switch {
	case errors.As(err, &valErr):
		writeError(w, http.StatusBadRequest, valErr.Error())
	case llm.IsRateLimited(err):
		writeError(w, http.StatusTooManyRequests, "Rate limit exceeded. Please try again shortly.")
	case llm.IsQuotaExceeded(err):
		writeError(w, http.StatusPaymentRequired, "AI usage limit reached. Please add credits.")
	default:
		s.logger.Error("scan failed", "path", r.URL.Path, "error", err)
		writeError(w, http.StatusInternalServerError, err.Error())
	}
}

// logActivity writes an audit entry best-effort.
func (s *Server) logActivity(r *http.Request, orgID, kind, message string) {
	if orgID == "" {
		return
	}
	err := s.store.AppendActivity(r.Context(), &store.Activity{
		OrgID:   orgID,
		Kind:    kind,
		Message: message,
		Actor:   r.Header.Get("X-User-ID"),
	})
	if err != nil {
		s.logger.Warn("activity write failed", "org_id", orgID, "error", err)
	}
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

func writeError(w http.ResponseWriter, status int, message string) {
	writeJSON(w, status, map[string]string{"error": message})
}
