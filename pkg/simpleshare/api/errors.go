package api

import (
	"errors"
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/render"

	"github.com/tendant/simple-share/pkg/simpleshare"
)

// ErrorResponse is the JSON error body of the upload API.
type ErrorResponse struct {
	Error     string `json:"error"`
	RequestID string `json:"request_id,omitempty"`
}

var (
	errMissingPayload = errors.New("missing pushfile field")
	errBadForm        = errors.New("malformed upload form")
	errReservedName   = errors.New("name is reserved")
)

// statusFor maps service errors to HTTP status codes for the management
// and upload endpoints.
func statusFor(err error) int {
	var maxBytes *http.MaxBytesError
	switch {
	case errors.As(err, &maxBytes):
		return http.StatusRequestEntityTooLarge
	case errors.Is(err, errMissingPayload),
		errors.Is(err, errBadForm),
		errors.Is(err, errReservedName),
		errors.Is(err, simpleshare.ErrInvalidName),
		errors.Is(err, simpleshare.ErrInvalidKind),
		errors.Is(err, simpleshare.ErrNoFilename),
		errors.Is(err, simpleshare.ErrInvalidText):
		return http.StatusBadRequest
	case errors.Is(err, simpleshare.ErrNotFound),
		errors.Is(err, simpleshare.ErrMalformed),
		errors.Is(err, simpleshare.ErrUnreadable):
		return http.StatusNotFound
	case errors.Is(err, simpleshare.ErrConflict),
		errors.Is(err, simpleshare.ErrAlreadyExists):
		return http.StatusConflict
	case errors.Is(err, simpleshare.ErrNameExhausted):
		return http.StatusServiceUnavailable
	default:
		return http.StatusInternalServerError
	}
}

// resolveStatusFor maps resolver errors for public GETs. Invalid names are
// reported as 404 because the path may just as well be a missing asset.
func resolveStatusFor(err error) int {
	switch {
	case errors.Is(err, simpleshare.ErrInvalidName),
		errors.Is(err, simpleshare.ErrNotFound):
		return http.StatusNotFound
	case errors.Is(err, simpleshare.ErrInvalidURL):
		return http.StatusBadGateway
	default:
		return http.StatusInternalServerError
	}
}

// errorMessage hides the cause of server side failures from clients.
func errorMessage(status int, err error) string {
	if status >= http.StatusInternalServerError {
		return http.StatusText(status)
	}
	return err.Error()
}

// plainError answers with a text/plain error body.
func (s *Server) plainError(w http.ResponseWriter, r *http.Request, op string, err error) {
	status := statusFor(err)
	s.logFailure(r, op, status, err)
	http.Error(w, errorMessage(status, err), status)
}

// jsonError answers with an ErrorResponse body.
func (s *Server) jsonError(w http.ResponseWriter, r *http.Request, op string, err error) {
	status := statusFor(err)
	s.logFailure(r, op, status, err)
	render.Status(r, status)
	render.JSON(w, r, ErrorResponse{
		Error:     errorMessage(status, err),
		RequestID: middleware.GetReqID(r.Context()),
	})
}

func (s *Server) logFailure(r *http.Request, op string, status int, err error) {
	level := slog.LevelInfo
	if status >= http.StatusInternalServerError {
		level = slog.LevelError
	}
	s.logger.Log(r.Context(), level, "Request failed", "op", op, "status", status, "error", err)
}
