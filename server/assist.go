package server

import (
	"encoding/json"
	"errors"
	"fmt"
	"net/http"

	"github.com/aegisinsight/aegis/advisor"
	"github.com/aegisinsight/aegis/intel"
	"github.com/aegisinsight/aegis/llm"
)

type assistRequest struct {
	Messages []llm.Message `json:"messages"`
	OrgID    string        `json:"org_id,omitempty"`
	OrgName  string        `json:"org_name,omitempty"`
}

// assistChunk frames one delta in the outbound event stream.
type assistChunk struct {
	Choices []assistChoice `json:"choices"`
}

type assistChoice struct {
	Delta assistDelta `json:"delta"`
}

type assistDelta struct {
	Content string `json:"content,omitempty"`
}

// handleAssist relays the advisor's delta stream to the client as
// data: lines terminated by [DONE]. Deltas are forwarded one at a
// time; the client disconnecting cancels the upstream via the request
// context.
func (s *Server) handleAssist(w http.ResponseWriter, r *http.Request) {
	var req assistRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}

	deltas, err := s.advisor.Advise(r.Context(), advisor.AdviseRequest{
		Messages: req.Messages,
		OrgID:    req.OrgID,
		OrgName:  req.OrgName,
	})
	if err != nil {
		s.writeAssistError(w, err)
		return
	}

	w.Header().Set("Content-Type", "text/event-stream")
	w.Header().Set("Cache-Control", "no-cache")
	w.Header().Set("X-Accel-Buffering", "no") // Disable nginx buffering

	flusher, ok := w.(http.Flusher)
	if !ok {
		writeError(w, http.StatusInternalServerError, "streaming not supported")
		return
	}
	flusher.Flush()

	for delta := range deltas {
		if delta.Err != nil {
			s.logger.Warn("assist stream interrupted", "error", delta.Err)
			break
		}
		chunk := assistChunk{Choices: []assistChoice{{Delta: assistDelta{Content: delta.Content}}}}
		data, err := json.Marshal(chunk)
		if err != nil {
			continue
		}
		if _, err := fmt.Fprintf(w, "data: %s\n\n", data); err != nil {
			// Client went away; the request context cancels upstream.
			return
		}
		flusher.Flush()
	}

	_, _ = fmt.Fprint(w, "data: [DONE]\n\n")
	flusher.Flush()
}

func (s *Server) writeAssistError(w http.ResponseWriter, err error) {
	var valErr *intel.ValidationError
	switch {
	case errors.As(err, &valErr):
		writeError(w, http.StatusBadRequest, valErr.Error())
	case llm.IsRateLimited(err):
		writeError(w, http.StatusTooManyRequests, "Rate limit exceeded. Please try again shortly.")
	case llm.IsQuotaExceeded(err):
		writeError(w, http.StatusPaymentRequired, "AI usage limit reached. Please add credits.")
	default:
		s.logger.Error("assist failed", "error", err)
		writeError(w, http.StatusInternalServerError, "AI service error")
	}
}
