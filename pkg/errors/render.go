package errors

import (
	"log/slog"
	"net/http"

	"github.com/go-chi/render"
)

// Body is the JSON shape of every error response.
type Body struct {
	Code    ErrorCode              `json:"code"`
	Message string                 `json:"message"`
	Details map[string]interface{} `json:"details,omitempty"`
}

// Render writes e as JSON with its mapped status. Server-side failures are
// logged with the wrapped cause, which is never sent to the client.
func Render(w http.ResponseWriter, r *http.Request, e *Error) {
	status := e.HTTPStatusCode()
	if status >= http.StatusInternalServerError {
		slog.Error("Request failed", "method", r.Method, "path", r.URL.Path, "code", e.Code, "err", e.Err)
	} else {
		slog.Info("Request rejected", "method", r.Method, "path", r.URL.Path, "code", e.Code, "message", e.Message)
	}
	render.Status(r, status)
	render.JSON(w, r, Body{Code: e.Code, Message: e.Message, Details: e.Details})
}
