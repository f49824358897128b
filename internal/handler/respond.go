package handler

import (
	"github.com/GoPolymarket/ginauditor/internal/pkg/apperrors"
	"github.com/gin-gonic/gin"
)

// respondError answers with the mapped status right away so the audit
// record sees the final status; ErrorHandler only logs it.
func respondError(c *gin.Context, err error) {
	appErr := apperrors.Wrap(err)
	_ = c.Error(appErr)
	c.AbortWithStatusJSON(appErr.HTTPStatus, appErr)
}
