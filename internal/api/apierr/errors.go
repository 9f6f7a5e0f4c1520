package apierr

import (
	"encoding/json"
	"errors"
	"fmt"
	"net/http"

	"github.com/mcoot/chessgame-go/internal/model"
)

// APIError represents an API error response
type APIError struct {
	Code    string `json:"code"`
	Message string `json:"message"`
}

// ErrorResponse wraps an APIError
type ErrorResponse struct {
	Error APIError `json:"error"`
}

// Common error codes
const (
	CodeInvalidRequest  = "INVALID_REQUEST"
	CodeGameNotFound    = "GAME_NOT_FOUND"
	CodeGameNotActive   = "GAME_NOT_ACTIVE"
	CodeAlreadyJoined   = "ALREADY_JOINED"
	CodeStaleState      = "STALE_STATE"
	CodeInvalidSecret   = "INVALID_SECRET"
	CodeNotYourTurn     = "NOT_YOUR_TURN"
	CodeInvalidMove     = "INVALID_MOVE"
	CodeIllegalMove     = "ILLEGAL_MOVE"
	CodeInvalidPosition = "INVALID_POSITION"
	CodeUnknownCommand  = "UNKNOWN_COMMAND"
	CodeInternalError   = "INTERNAL_ERROR"
)

// httpError combines an HTTP status code with an APIError
type httpError struct {
	status   int
	apiError APIError
}

// Error implements error interface
func (e *httpError) Error() string {
	return e.apiError.Message
}

// WriteError writes an error response to the response writer
func WriteError(w http.ResponseWriter, err error) {
	he := toHTTPError(err)
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(he.status)
	_ = json.NewEncoder(w).Encode(ErrorResponse{Error: he.apiError})
}

// Status returns the HTTP status an error is reported with
func Status(err error) int {
	return toHTTPError(err).status
}

// Message returns the caller-facing text for an error.
// Unclassified errors never leak their detail.
func Message(err error) string {
	return toHTTPError(err).apiError.Message
}

// IsInternal reports whether err is an unclassified failure
func IsInternal(err error) bool {
	return toHTTPError(err).status == http.StatusInternalServerError
}

// toHTTPError converts an error to an httpError
func toHTTPError(err error) *httpError {
	// Check for specific error types
	var he *httpError
	if errors.As(err, &he) {
		return he
	}

	move := ""
	var me *model.MoveError
	if errors.As(err, &me) {
		move = me.Move
	}

	// Map model errors
	switch {
	case errors.Is(err, model.ErrSessionNotFound):
		return &httpError{http.StatusNotFound, APIError{CodeGameNotFound, "Game not found"}}
	case errors.Is(err, model.ErrSessionNotActive):
		return &httpError{http.StatusBadRequest, APIError{CodeGameNotActive, "Game is not active"}}
	case errors.Is(err, model.ErrAlreadyJoined):
		return &httpError{http.StatusConflict, APIError{CodeAlreadyJoined, "Game already has two players"}}
	case errors.Is(err, model.ErrStaleSession):
		return &httpError{http.StatusConflict, APIError{CodeStaleState, "Game changed while the move was being applied"}}
	case errors.Is(err, model.ErrInvalidSecret):
		return &httpError{http.StatusUnauthorized, APIError{CodeInvalidSecret, "Invalid secret"}}
	case errors.Is(err, model.ErrNotYourTurn):
		return &httpError{http.StatusBadRequest, APIError{CodeNotYourTurn, "Not your turn"}}
	case errors.Is(err, model.ErrInvalidMove):
		return &httpError{http.StatusBadRequest, APIError{CodeInvalidMove, fmt.Sprintf("Invalid UCI move: %s", move)}}
	case errors.Is(err, model.ErrIllegalMove):
		return &httpError{http.StatusBadRequest, APIError{CodeIllegalMove, fmt.Sprintf("Illegal move: %s", move)}}
	case errors.Is(err, model.ErrInvalidPosition):
		return &httpError{http.StatusBadRequest, APIError{CodeInvalidPosition, "Invalid FEN"}}
	case errors.Is(err, model.ErrUnknownCommand):
		return &httpError{http.StatusBadRequest, APIError{CodeUnknownCommand, "Unknown command type"}}

	default:
		return &httpError{http.StatusInternalServerError, APIError{CodeInternalError, "Internal server error"}}
	}
}

// NewInvalidRequestError creates an invalid request error
func NewInvalidRequestError(message string) error {
	return &httpError{http.StatusBadRequest, APIError{CodeInvalidRequest, message}}
}

// NewInternalError creates an internal server error
func NewInternalError() error {
	return &httpError{http.StatusInternalServerError, APIError{CodeInternalError, "Internal server error"}}
}
