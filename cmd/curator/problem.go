package main

import (
	"errors"
	"net/http"

	"github.com/dukex/curator/pkg/services"
	"github.com/moogar0880/problems"
)

// problemFor renders an operation error the way an HTTP front end would report it.
func problemFor(err error) *problems.Problem {
	status, kind := http.StatusInternalServerError, "internal_error"

	switch {
	case services.IsPreconditionFailed(err):
		status, kind = http.StatusPreconditionFailed, "precondition_failed"
	case services.IsUnprocessableInput(err):
		status, kind = http.StatusUnprocessableEntity, "unprocessable_input"
	case services.IsResourceNotFound(err):
		status, kind = http.StatusNotFound, "not_found"
	}

	var serviceErr *services.ServiceError
	if errors.As(err, &serviceErr) && serviceErr.Code != "" {
		kind = serviceErr.Code
	}

	return problems.NewStatusProblem(status).
		WithType(kind).
		WithDetail(err.Error())
}

func exitCode(status int) int {
	switch status {
	case http.StatusPreconditionFailed:
		return 3
	case http.StatusUnprocessableEntity:
		return 2
	case http.StatusNotFound:
		return 4
	default:
		return 1
	}
}
