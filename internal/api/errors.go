package api

import (
	"errors"
	"net/http"

	"github.com/phrazzld/pillbox-api/internal/api/shared"
	"github.com/phrazzld/pillbox-api/internal/domain"
	"github.com/phrazzld/pillbox-api/internal/service"
)

// User-facing flash messages.
const (
	MsgServerError         = "An error occurred, contact system admin for more info."
	MsgPillNotFound        = "Pill doesn't exist."
	MsgNotAuthorizedView   = "You are not authorized to view this page."
	MsgNotAuthorizedEdit   = "You are not authorized to edit this pill."
	MsgNotAuthorizedDelete = "You are not authorized to delete this pill."
	MsgPillCreated         = "New pill added successfully."
	MsgPillUpdated         = "Pill has been updated."
	MsgPillDeleted         = "Pill has been deleted."
	MsgInvalidRequest      = "Invalid request body."
)

// action names the operation a request attempted, which decides the wording
// of authorization failures.
type action int

const (
	actionView action = iota
	actionEdit
	actionDelete
)

func (a action) notAuthorizedMessage() string {
	switch a {
	case actionEdit:
		return MsgNotAuthorizedEdit
	case actionDelete:
		return MsgNotAuthorizedDelete
	default:
		return MsgNotAuthorizedView
	}
}

// MapErrorToStatusCode maps internal errors to appropriate HTTP status codes
// based on the error type. This prevents leaking internal error types or
// messages to clients.
func MapErrorToStatusCode(err error) int {
	switch {
	case errors.Is(err, domain.ErrValidation):
		return http.StatusBadRequest
	case errors.Is(err, service.ErrNotOwned):
		return http.StatusForbidden
	case errors.Is(err, service.ErrPillNotFound):
		return http.StatusNotFound
	default:
		return http.StatusInternalServerError
	}
}

// handlePillError writes the error response for err. Validation failures
// carry every message; everything else gets a single safe message.
func handlePillError(w http.ResponseWriter, r *http.Request, err error, act action) {
	status := MapErrorToStatusCode(err)

	switch status {
	case http.StatusBadRequest:
		messages := domain.ValidationMessages(err)
		shared.RespondWithErrorAndLog(w, r, status, "validation failed", err,
			shared.WithFlashMessages(messages...))
	case http.StatusForbidden:
		shared.RespondWithErrorAndLog(w, r, status, act.notAuthorizedMessage(), err,
			shared.WithElevatedLogLevel())
	case http.StatusNotFound:
		shared.RespondWithErrorAndLog(w, r, status, MsgPillNotFound, err)
	default:
		shared.RespondWithErrorAndLog(w, r, status, MsgServerError, err)
	}
}
