package server

import (
	"net/http"

	"github.com/ArseniyKD/yt-history-analysis/internal/logctx"
	"github.com/goccy/go-json"
)

// Error codes returned in the error envelope.
const (
	codeBadRequest = "BAD_REQUEST"
	codeNotFound   = "NOT_FOUND"
	codeQuery      = "QUERY_FAILED"
	codeUnhealthy  = "UNHEALTHY"
)

// envelope is the body of every API response.
type envelope struct {
	Status string    `json:"status"`
	Data   any       `json:"data,omitempty"`
	Error  *apiError `json:"error,omitempty"`
}

type apiError struct {
	Code    string `json:"code"`
	Message string `json:"message"`
}

// respondJSON writes data in an ok envelope.
func respondJSON(w http.ResponseWriter, r *http.Request, status int, data any) {
	writeEnvelope(w, r, status, &envelope{Status: "ok", Data: data})
}

// respondError writes an error envelope. err, when non-nil, is logged but
// never sent to the client.
func respondError(w http.ResponseWriter, r *http.Request, status int, code, message string, err error) {
	if err != nil {
		log := logctx.FromContext(r.Context())
		log.Error().
			Err(err).
			Str("code", code).
			Msg("api error")
	}
	writeEnvelope(w, r, status, &envelope{
		Status: "error",
		Error:  &apiError{Code: code, Message: message},
	})
}

func writeEnvelope(w http.ResponseWriter, r *http.Request, status int, body *envelope) {
	data, err := json.Marshal(body)
	if err != nil {
		log := logctx.FromContext(r.Context())
		log.Error().Err(err).Msg("marshal response")
		w.WriteHeader(http.StatusInternalServerError)
		return
	}

	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if _, err := w.Write(data); err != nil {
		log := logctx.FromContext(r.Context())
		log.Debug().Err(err).Msg("write response")
	}
}
