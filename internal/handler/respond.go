package handler

import (
	"encoding/json"
	"errors"
	"io"
	"net/http"

	"github.com/attaboy/walletcenter/internal/domain"
)

// Envelope is the body of every JSON response.
type Envelope struct {
	Code     domain.ErrorCode `json:"code"`
	Data     interface{}      `json:"data,omitempty"`
	ErrorMsg string           `json:"errorMsg"`
}

// RespondJSON writes a JSON response with the given status code.
func RespondJSON(w http.ResponseWriter, status int, data interface{}) {
	w.WriteHeader(status)
	if data != nil {
		json.NewEncoder(w).Encode(data)
	}
}

// RespondOK writes a success envelope carrying data.
func RespondOK(w http.ResponseWriter, data interface{}) {
	RespondJSON(w, http.StatusOK, Envelope{Code: domain.Success, Data: data})
}

// RespondError writes an error envelope, detecting domain.AppError for status and code.
func RespondError(w http.ResponseWriter, err error) {
	if appErr, ok := domain.AsAppError(err); ok {
		status := appErr.Status
		if status == 0 {
			status = http.StatusInternalServerError
		}
		RespondJSON(w, status, Envelope{Code: appErr.Code, Data: appErr.Data, ErrorMsg: appErr.Message})
		return
	}
	RespondJSON(w, http.StatusInternalServerError, Envelope{
		Code:     domain.SystemError,
		ErrorMsg: domain.Message(domain.SystemError),
	})
}

// DecodeJSON reads and decodes a JSON request body into dst.
// A missing or malformed body is an InvalidParameter error.
func DecodeJSON(r *http.Request, dst interface{}) error {
	if err := json.NewDecoder(r.Body).Decode(dst); err != nil {
		if errors.Is(err, io.EOF) {
			return domain.ErrValidation("request body is required")
		}
		return domain.ErrValidation("malformed request body: " + err.Error())
	}
	return nil
}
