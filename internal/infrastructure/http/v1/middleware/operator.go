package middleware

import (
	"strings"

	"github.com/gin-gonic/gin"

	appctx "pharmadesk/internal/core/context"
)

const (
	HeaderOperatorID   = "X-Operator-ID"
	HeaderOperatorName = "X-Operator-Name"
)

// maxOperatorIDLen matches the created_by/updated_by columns.
const maxOperatorIDLen = 100

// Operator puts the acting staff member into the request context.
// The header is trusted as sent; requests without it run anonymously.
func Operator() gin.HandlerFunc {
	return func(c *gin.Context) {
		opID := strings.TrimSpace(c.GetHeader(HeaderOperatorID))
		if len(opID) > maxOperatorIDLen {
			opID = opID[:maxOperatorIDLen]
		}
		if opID != "" {
			ctx := appctx.WithOperator(c.Request.Context(), &appctx.Operator{
				ID:   opID,
				Name: strings.TrimSpace(c.GetHeader(HeaderOperatorName)),
			})
			c.Request = c.Request.WithContext(ctx)
		}
		c.Next()
	}
}
