package middleware

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/yigit/studentregistry/internal/app/models/dto"
	"github.com/yigit/studentregistry/internal/pkg/apperrors"
)

// HandleAPIError maps registry errors to HTTP responses.
// Validation and not-found messages are surfaced verbatim; anything else is a 500.
func HandleAPIError(c *gin.Context, err error) {
	var detail *dto.ErrorDetail
	status := http.StatusInternalServerError

	switch {
	case errors.Is(err, apperrors.ErrValidationFailed):
		status = http.StatusBadRequest
		detail = dto.NewErrorDetail(dto.ErrorCodeValidationFailed, apperrors.Message(err))
	case errors.Is(err, apperrors.ErrResourceNotFound):
		status = http.StatusNotFound
		detail = dto.NewErrorDetail(dto.ErrorCodeResourceNotFound, apperrors.Message(err))
	case errors.Is(err, apperrors.ErrStorageFault):
		detail = dto.NewErrorDetail(dto.ErrorCodeDatabaseError, apperrors.Message(err)).
			WithSeverity(dto.ErrorSeverityCritical)
	default:
		detail = dto.NewErrorDetail(dto.ErrorCodeInternalServer, "Internal server error")
	}

	if details := apperrors.Details(err); details != nil {
		detail = detail.WithDetails(details)
	}

	_ = c.Error(err)
	c.JSON(status, dto.NewErrorResponse(detail))
}
