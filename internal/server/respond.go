package server

import (
	"encoding/json"
	"errors"
	"maps"
	"net/http"
	"slices"

	"github.com/desertthunder/mixtape/internal/shared"
)

type messageResponse struct {
	Message string            `json:"message"`
	Errors  map[string]string `json:"errors,omitempty"`
}

type dataResponse struct {
	Data any `json:"data"`
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(v)
}

func writeMessage(w http.ResponseWriter, status int, msg string) {
	writeJSON(w, status, messageResponse{Message: msg})
}

func writeData(w http.ResponseWriter, status int, v any) {
	writeJSON(w, status, dataResponse{Data: v})
}

// writeValidation answers 400 with the first field message and every field error.
func writeValidation(w http.ResponseWriter, err error) {
	var ve *shared.ValidationError
	if !errors.As(err, &ve) {
		writeMessage(w, http.StatusBadRequest, err.Error())
		return
	}
	first := slices.Sorted(maps.Keys(ve.Fields))[0]
	writeJSON(w, http.StatusBadRequest, messageResponse{Message: ve.Fields[first], Errors: ve.Fields})
}

func decodeBody(w http.ResponseWriter, r *http.Request, v any) error {
	return json.NewDecoder(http.MaxBytesReader(w, r.Body, 1<<20)).Decode(v)
}
