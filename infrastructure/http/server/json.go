package server

import (
	"encoding/json"
	"fanous-live/errors"
	"fmt"
	"net/http"
)

const maxBodyBytes = 1 << 20

// Response is the document every endpoint answers with.
type Response struct {
	ResponseCode    int    `json:"responseCode"`
	ResponseMessage string `json:"responseMessage"`
	ResponseResult  any    `json:"responseResult,omitempty"`
}

func writeJSON(w http.ResponseWriter, status int, body any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(body)
}

func writeResult(w http.ResponseWriter, status int, message string, result any) {
	writeJSON(w, status, Response{ResponseCode: status, ResponseMessage: message, ResponseResult: result})
}

// writeError never leaks unexpected error details.
func writeError(w http.ResponseWriter, err error) {
	status := errors.HTTPStatus(err)
	writeJSON(w, status, Response{ResponseCode: status, ResponseMessage: errors.PublicMessage(err)})
}

func unauthorized(w http.ResponseWriter, _ *http.Request) {
	writeError(w, errors.ErrUnauthorized)
}

func decodeJSON(w http.ResponseWriter, r *http.Request, v any) bool {
	decoder := json.NewDecoder(http.MaxBytesReader(w, r.Body, maxBodyBytes))
	decoder.DisallowUnknownFields()
	if err := decoder.Decode(v); err != nil {
		writeError(w, fmt.Errorf("%w: %v", errors.ErrInvalidPayload, err))
		return false
	}
	return true
}
