package api

import (
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"

	validation "github.com/go-ozzo/ozzo-validation/v4"
)

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json; charset=utf-8")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		slog.Error("json encode failed", slog.String("error", err.Error()))
	}
}

type errResponse struct {
	Error string `json:"error" validate:"required"`
	// Fields maps query or body fields to their validation message.
	Fields map[string]string `json:"fields,omitempty"`
}

func errorBody(msg string) errResponse {
	return errResponse{Error: msg}
}

// invalidBody reports a validation failure, one message per field when err
// is a validation.Errors.
func invalidBody(err error) errResponse {
	var verrs validation.Errors
	if !errors.As(err, &verrs) {
		return errorBody(err.Error())
	}
	body := errResponse{Error: "invalid parameters", Fields: make(map[string]string, len(verrs))}
	for field, ferr := range verrs {
		body.Fields[field] = ferr.Error()
	}
	return body
}
