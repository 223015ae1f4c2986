package api

import (
	"errors"
	"net/http"

	"Moatline/internal/domain/models"
	domrepo "Moatline/internal/domain/repository"
	"Moatline/internal/domain/service"
	"Moatline/internal/usecase"
	xhttp "Moatline/pkg/http"
)

// toAppError maps domain errors onto the HTTP error envelope.
func toAppError(err error) *xhttp.AppError {
	var (
		appErr *xhttp.AppError
		ie     *models.InputError
		ce     *models.ConfigurationError
		pe     *models.RuleParseError
		ve     *models.ValuationError
	)
	switch {
	case errors.As(err, &appErr):
		return appErr
	case errors.As(err, &ie):
		return xhttp.UnprocessableError("ERR_INPUT", ie.Field, ie.Reason).WithError(err)
	case errors.As(err, &ce):
		return xhttp.NewAppError("ERR_CONFIGURATION", ce.Field, ce.Reason, http.StatusBadRequest).WithError(err)
	case errors.As(err, &pe):
		return xhttp.NewAppError("ERR_RULE_PARSE", pe.Rule, pe.Reason, http.StatusBadRequest).
			WithParam("offset", pe.Offset).
			WithParam("expression", pe.Expression).
			WithError(err)
	case errors.As(err, &ve):
		return xhttp.UnprocessableError("ERR_VALUATION", string(ve.Scenario), ve.Reason).WithError(err)
	case errors.Is(err, domrepo.ErrNotFound), errors.Is(err, service.ErrSnapshotNotFound):
		return xhttp.NotFoundError(err.Error()).WithError(err)
	case errors.Is(err, usecase.ErrNoSnapshotSource):
		return xhttp.NewAppError("ERR_UNAVAILABLE", "", err.Error(), http.StatusServiceUnavailable).WithError(err)
	case errors.Is(err, service.ErrUpstream):
		return xhttp.BadGatewayError(err.Error()).WithError(err)
	default:
		return xhttp.InternalError("analysis failed").WithError(err)
	}
}
