package handlers

import (
	"encoding/json"
	"errors"
	"io"
	"net/http"

	"github.com/shrimpsizemoose/trekker/logger"

	"github.com/shrimpsizemoose/semla/internal/apperr"
)

const maxBodyBytes = 1 << 20

type errorResponse struct {
	Error string      `json:"error"`
	Code  apperr.Code `json:"code"`
}

func writeJSON(w http.ResponseWriter, status int, v interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		logger.Debug.Printf("Error encoding response: %v", err)
	}
}

func writeError(w http.ResponseWriter, r *http.Request, err error) {
	status := apperr.HTTPStatus(err)
	msg := err.Error()
	if status == http.StatusInternalServerError {
		logger.Error.Printf("%s %s failed: %v", r.Method, r.URL.Path, err)
		msg = "internal server error"
	}
	writeJSON(w, status, errorResponse{Error: msg, Code: apperr.CodeOf(err)})
}

// decodeJSON reads a single JSON document into v. An empty body is allowed
// when optional is set and leaves v untouched.
func decodeJSON(r *http.Request, v interface{}, optional bool) error {
	dec := json.NewDecoder(io.LimitReader(r.Body, maxBodyBytes))
	if err := dec.Decode(v); err != nil {
		if optional && errors.Is(err, io.EOF) {
			return nil
		}
		return apperr.Validationf("invalid request body: %v", err)
	}
	return nil
}
