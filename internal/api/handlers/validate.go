package handlers

import (
	"encoding/json"
	"errors"
	"fmt"
	"net/http"

	"github.com/creasty/defaults"
	"github.com/go-playground/validator/v10"
)

var validate = validator.New()

// ValidationError is one field-level request problem
type ValidationError struct {
	Field   string `json:"field,omitempty"`
	Message string `json:"message"`
}

// readAndValidate decodes the JSON body into req, applies struct defaults
// and runs validation. 요청 파싱/검증은 모든 핸들러가 이 함수로 통일.
func readAndValidate(r *http.Request, req interface{}) []ValidationError {
	if err := json.NewDecoder(r.Body).Decode(req); err != nil {
		return []ValidationError{{Message: fmt.Sprintf("invalid JSON body: %v", err)}}
	}

	if err := defaults.Set(req); err != nil {
		return []ValidationError{{Message: err.Error()}}
	}

	if err := validate.StructCtx(r.Context(), req); err != nil {
		var validationErrors validator.ValidationErrors
		if errors.As(err, &validationErrors) {
			errs := make([]ValidationError, 0, len(validationErrors))
			for _, e := range validationErrors {
				errs = append(errs, ValidationError{
					Field:   e.Field(),
					Message: fmt.Sprintf("%s failed validation: %s", e.Field(), e.Tag()),
				})
			}
			return errs
		}
		return []ValidationError{{Message: err.Error()}}
	}

	return nil
}

// writeJSON writes a JSON response with status code
func writeJSON(w http.ResponseWriter, status int, body interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(body)
}

// writeError writes a JSON error response
func writeError(w http.ResponseWriter, status int, message string) {
	writeJSON(w, status, map[string]string{"error": message})
}
