package handlers

import (
	"encoding/json"
	"log"
	"net/http"
	"sla-attribution-service/internal/platform/obs"
)

type errorResponse struct {
	Error     string `json:"error"`
	RequestID string `json:"request_id,omitempty"`
}

func writeJSON(w http.ResponseWriter, r *http.Request, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		log.Printf("req_id=%s encode failed: method=%s path=%s err=%v", requestID(r), r.Method, r.URL.Path, err)
	}
}

// writeError echoes the request id so a client report can be matched to server logs.
func writeError(w http.ResponseWriter, r *http.Request, status int, msg string) {
	writeJSON(w, r, status, errorResponse{Error: msg, RequestID: requestID(r)})
}

func requestID(r *http.Request) string {
	id, _ := r.Context().Value(obs.RequestIDKey).(string)
	return id
}
