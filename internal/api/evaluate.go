package api

import "net/http"

type evaluateRequest struct {
	// Force runs the pass even when autoMode is disabled.
	Force bool `json:"force,omitempty"`
	// BypassCache probes fresh instead of reusing cached results.
	BypassCache bool `json:"bypassCache,omitempty"`
}

// handleEvaluate triggers one evaluation pass and returns its outcome. An
// activation failure is reported alongside the pass result rather than as a
// bare 500, so callers still see which rule matched.
func (s *Server) handleEvaluate(w http.ResponseWriter, r *http.Request) {
	req := evaluateRequest{}
	if r.ContentLength != 0 {
		if err := decodeJSON(r, &req); err != nil {
			BadRequestError(w, r, ErrCodeInvalidJSON, "invalid JSON body")
			return
		}
	}

	res, err := s.orch.RunPass(r.Context(), req.Force, !req.BypassCache)
	type response struct {
		Status     string `json:"status"`
		Error      string `json:"error,omitempty"`
		Evaluation any    `json:"evaluation"`
		State      any    `json:"state"`
	}
	resp := response{Status: res.Status, Evaluation: res.Evaluation, State: res.State}
	if err != nil {
		resp.Error = err.Error()
	}
	writeJSON(w, http.StatusOK, resp)
}
