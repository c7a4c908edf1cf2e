package api

import (
	"encoding/json"
	"net/http"

	"github.com/rs/zerolog/log"
)

// Problem is an RFC 7807 error body. Instance is the request path and
// RequestID matches the X-Request-ID response header.
type Problem struct {
	Type      string `json:"type"`
	Title     string `json:"title"`
	Status    int    `json:"status"`
	Detail    string `json:"detail,omitempty"`
	Instance  string `json:"instance,omitempty"`
	RequestID string `json:"requestId,omitempty"`
}

func encodeJSON(w http.ResponseWriter, contentType string, status int, v any) {
	w.Header().Set("Content-Type", contentType)
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		log.Debug().Err(err).Int("status", status).Msg("response write failed")
	}
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	encodeJSON(w, "application/json", status, v)
}

func writeProblem(w http.ResponseWriter, r *http.Request, status int, title, detail string) {
	encodeJSON(w, "application/problem+json", status, Problem{
		Type:      "about:blank",
		Title:     title,
		Status:    status,
		Detail:    detail,
		Instance:  r.URL.Path,
		RequestID: RequestID(r.Context()),
	})
}
