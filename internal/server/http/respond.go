package http

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"

	"github.com/belikesnab/peach/internal/shared"
)

// maxBodyBytes caps request bodies; auth payloads are tiny.
const maxBodyBytes = 1 << 16

func writeJSON(w http.ResponseWriter, status int, data any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(data)
}

func writeError(w http.ResponseWriter, status int, message string) {
	writeJSON(w, status, shared.ErrorResponse{
		Error:   http.StatusText(status),
		Message: message,
	})
}

func writeValidation(w http.ResponseWriter, fields shared.FieldErrors) {
	writeJSON(w, http.StatusBadRequest, shared.ErrorResponse{
		Error:   http.StatusText(http.StatusBadRequest),
		Message: shared.MsgValidation,
		Fields:  fields,
	})
}

var errEmptyBody = errors.New("request body is empty")

// decodeJSON reads a single JSON object into target. Unknown fields are
// rejected.
func decodeJSON(w http.ResponseWriter, r *http.Request, target any) error {
	dec := json.NewDecoder(http.MaxBytesReader(w, r.Body, maxBodyBytes))
	dec.DisallowUnknownFields()

	if err := dec.Decode(target); err != nil {
		if errors.Is(err, io.EOF) {
			return errEmptyBody
		}
		return fmt.Errorf("malformed JSON: %w", err)
	}
	if dec.More() {
		return errors.New("body must contain a single JSON object")
	}
	return nil
}
