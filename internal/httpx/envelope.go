package httpx

import (
	"encoding/json"
	"log/slog"
	"net/http"
	"time"

	"github.com/joao-fontenele/lampslot/internal/apperr"
)

// Envelope is the uniform response body for every API call.
type Envelope struct {
	Success      bool      `json:"success"`
	Data         any       `json:"data,omitempty"`
	ErrorCode    string    `json:"errorCode,omitempty"`
	ErrorMessage string    `json:"errorMessage,omitempty"`
	Timestamp    time.Time `json:"timestamp"`
}

func WriteJSON(w http.ResponseWriter, logger *slog.Logger, status int, body any) {
	w.Header().Set("Content-Type", "application/json; charset=utf-8")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(body); err != nil {
		logger.Error("failed to encode response", "error", err)
	}
}

func WriteOK(w http.ResponseWriter, logger *slog.Logger, status int, data any) {
	WriteJSON(w, logger, status, Envelope{
		Success:   true,
		Data:      data,
		Timestamp: time.Now().UTC(),
	})
}

// WriteFail writes an unsuccessful envelope with an explicit status.
func WriteFail(w http.ResponseWriter, logger *slog.Logger, status int, code apperr.Code, message string) {
	WriteJSON(w, logger, status, Envelope{
		Success:      false,
		ErrorCode:    string(code),
		ErrorMessage: message,
		Timestamp:    time.Now().UTC(),
	})
}

// WriteError renders err as an envelope. Coded errors keep their code and
// message; anything else is logged and reported as a generic system error.
func WriteError(w http.ResponseWriter, r *http.Request, logger *slog.Logger, err error) {
	appErr, ok := apperr.From(err)
	if !ok {
		logger.Error("unhandled error", "error", err, "method", r.Method, "path", r.URL.Path)
		WriteFail(w, logger, http.StatusInternalServerError, apperr.SystemError, "internal server error")
		return
	}

	status := appErr.HTTPStatus()
	switch {
	case status >= http.StatusInternalServerError:
		logger.Error("request failed",
			"error", err, "error_name", appErr.Code.Name(), "method", r.Method, "path", r.URL.Path)
	case status == http.StatusConflict:
		logger.Warn("request conflict",
			"error_name", appErr.Code.Name(), "message", appErr.Message, "path", r.URL.Path)
	default:
		logger.Info("request rejected",
			"error_name", appErr.Code.Name(), "message", appErr.Message, "path", r.URL.Path)
	}

	WriteFail(w, logger, status, appErr.Code, appErr.Message)
}
