package api

import (
	"encoding/json"
	"errors"
	"fmt"
	"net/http"

	"investai/internal/logger"
	"investai/internal/model"
)

// errorBody is the JSON shape of every error response.
type errorBody struct {
	Kind    model.Kind `json:"kind"`
	Message string     `json:"message"`
}

// StatusFor maps an error kind to its HTTP status.
func StatusFor(kind model.Kind) int {
	switch kind {
	case model.KindBadRequest, model.KindEmailTaken, model.KindInvalidCredentials, model.KindInvalidSymbol:
		return http.StatusBadRequest
	case model.KindUnauthorized, model.KindOTPRequired:
		return http.StatusUnauthorized
	case model.KindNotFound:
		return http.StatusNotFound
	case model.KindDataInsufficient:
		return http.StatusUnprocessableEntity
	case model.KindUpstreamUnavailable:
		return http.StatusBadGateway
	default:
		return http.StatusInternalServerError
	}
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(v)
}

// writeError renders err as {"kind","message"}. Internal errors are logged
// and their details withheld from the client.
func writeError(w http.ResponseWriter, r *http.Request, err error) {
	kind := model.ErrorKind(err)
	status := StatusFor(kind)
	msg := err.Error()
	if kind == model.KindInternal {
		logger.FromContext(r.Context()).Error("request failed", "path", r.URL.Path, "error", err)
		msg = "internal error"
	}
	writeJSON(w, status, errorBody{Kind: kind, Message: msg})
}

// decodeJSON reads a bounded JSON body into v.
func decodeJSON(w http.ResponseWriter, r *http.Request, v any) error {
	dec := json.NewDecoder(http.MaxBytesReader(w, r.Body, 1<<20))
	if err := dec.Decode(v); err != nil {
		var maxErr *http.MaxBytesError
		if errors.As(err, &maxErr) {
			return fmt.Errorf("%w: body too large", model.ErrBadRequest)
		}
		return fmt.Errorf("%w: invalid JSON body", model.ErrBadRequest)
	}
	return nil
}
