package handlers

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/sirupsen/logrus"

	"github.com/finportal/marketing-console-backend/internal/apperrors"
	"github.com/finportal/marketing-console-backend/internal/models"
	"github.com/finportal/marketing-console-backend/internal/utils"
)

// statusFor maps a service error onto an HTTP status
func statusFor(err error) int {
	switch {
	case apperrors.IsValidation(err), apperrors.IsScheduling(err):
		return http.StatusUnprocessableEntity
	case apperrors.IsStateTransition(err):
		return http.StatusConflict
	case apperrors.IsNotFound(err):
		return http.StatusNotFound
	case apperrors.IsProvider(err):
		return http.StatusBadGateway
	}
	return http.StatusInternalServerError
}

// respondError writes err as JSON. Unclassified errors are logged, reported
// and answered with the fallback message.
func respondError(c *gin.Context, err error, fallback string) {
	status := statusFor(err)
	if status == http.StatusInternalServerError {
		logrus.WithError(err).WithField("path", c.FullPath()).Error(fallback)
		utils.CaptureError(err, map[string]string{"path": c.FullPath()})
		c.JSON(status, gin.H{"error": fallback, "details": err.Error()})
		return
	}

	body := gin.H{"error": err.Error(), "code": apperrors.CodeOf(err)}
	var ve *apperrors.ValidationError
	var se *apperrors.SchedulingError
	switch {
	case errors.As(err, &ve) && ve.Field != "":
		body["field"] = ve.Field
	case errors.As(err, &se) && se.Field != "":
		body["field"] = se.Field
	}
	c.JSON(status, body)
}

func respondBadRequest(c *gin.Context, err error) {
	c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid request data", "details": err.Error()})
}

// tenantFrom returns the tenant set by the auth middleware
func tenantFrom(c *gin.Context) models.Tenant {
	return c.MustGet("tenant").(models.Tenant)
}

func paginated(data interface{}, total int64, page utils.Page) gin.H {
	info := page.Describe(total)
	return gin.H{
		"data":         data,
		"total":        total,
		"page":         info.Page,
		"limit":        info.PageSize,
		"total_pages":  info.TotalPages,
		"has_next":     info.HasNext,
		"has_previous": info.HasPrevious,
	}
}
