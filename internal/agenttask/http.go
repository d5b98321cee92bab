package agenttask

import (
	"encoding/json"
	"fmt"
	"log/slog"
	"net/http"
)

const maxRequestBody = 1 << 20

// ServeHTTP exposes Run as the POST task endpoint.
func (h *Handler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		w.Header().Set("Allow", http.MethodPost)
		writeResponse(w, http.StatusMethodNotAllowed, &Response{Error: "method not allowed"})
		return
	}

	var req Request
	if err := json.NewDecoder(http.MaxBytesReader(w, r.Body, maxRequestBody)).Decode(&req); err != nil {
		status, msg := StatusFor(fmt.Errorf("%w: %v", ErrInvalidRequest, err))
		writeResponse(w, status, &Response{Error: msg})
		return
	}

	resp, err := h.Run(r.Context(), req)
	if err != nil {
		slog.Error("agent task failed", "agent", req.AgentName, "error", err)
		status, msg := StatusFor(err)
		writeResponse(w, status, &Response{Error: msg})
		return
	}
	writeResponse(w, http.StatusOK, resp)
}

func writeResponse(w http.ResponseWriter, status int, resp *Response) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(resp)
}
