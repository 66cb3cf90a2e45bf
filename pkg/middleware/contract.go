package middleware

import (
	stderrors "errors"

	"github.com/gin-gonic/gin"

	"github.com/wms-platform/inbound-service/pkg/contracts/openapi"
	"github.com/wms-platform/inbound-service/pkg/errors"
)

// ContractValidation rejects requests that do not match the published
// OpenAPI document. Routes absent from the document pass through untouched.
func ContractValidation(v *openapi.Validator) gin.HandlerFunc {
	return func(c *gin.Context) {
		err := v.ValidateRequest(c.Request.Context(), c.Request)
		switch {
		case err == nil, stderrors.Is(err, openapi.ErrRouteNotFound):
			c.Next()
		default:
			AbortWithAppError(c, errors.ErrValidation("request does not match the API contract").
				WithDetail("contract", err.Error()))
		}
	}
}
