package api

import (
	"encoding/json"
	"net/http"

	"github.com/nefro313/jobfit-ai-backend/errors"
)

// errorBody is the JSON shape of every error response.
type errorBody struct {
	Error struct {
		Code    string `json:"code"`
		Message string `json:"message"`
	} `json:"error"`
	RequestID string `json:"request_id,omitempty"`
}

func writeJSON(w http.ResponseWriter, status int, v interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

// writeError maps a pipeline error to an HTTP status and writes the
// structured error body.
func writeError(w http.ResponseWriter, r *http.Request, err error) {
	code := errors.ErrCodeInternal
	message := "internal server error"

	if perr := errors.AsPipelineError(err); perr != nil {
		code = perr.Code()
		message = perr.Error()
	}

	body := errorBody{RequestID: requestID(r)}
	body.Error.Code = code.String()
	body.Error.Message = message
	writeJSON(w, statusFor(code), body)
}

func statusFor(code errors.ErrorCode) int {
	switch code {
	case errors.ErrCodeInvalidInput, errors.ErrCodeUnsupported, errors.ErrCodeMissingVariable:
		return http.StatusBadRequest
	case errors.ErrCodeUnknownTask, errors.ErrCodeUnknownPipeline:
		return http.StatusNotFound
	case errors.ErrCodeRateLimit, errors.ErrCodeQuotaExceeded:
		return http.StatusTooManyRequests
	case errors.ErrCodeTimeout:
		return http.StatusGatewayTimeout
	case errors.ErrCodeNetworkErr, errors.ErrCodeUnavailable, errors.ErrCodeProvider:
		return http.StatusBadGateway
	default:
		return http.StatusInternalServerError
	}
}
