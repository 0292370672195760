package middleware

import (
	"github.com/gin-gonic/gin"
	"github.com/newrelic/go-agent/v3/integrations/nrgin"
)

// NewRelicIdentity tags the request's New Relic transaction with the caller's
// identity. It must run after nrgin.Middleware and AuthMiddleware.
func NewRelicIdentity() gin.HandlerFunc {
	return func(c *gin.Context) {
		txn := nrgin.Transaction(c)
		if txn == nil {
			c.Next()
			return
		}

		if userID := UserID(c); userID != "" {
			txn.AddAttribute("user_id", userID)
		}
		if orgID := OrganizationID(c); orgID != "" {
			txn.AddAttribute("organization_id", orgID)
		}

		c.Next()

		for _, err := range c.Errors {
			txn.NoticeError(err.Err)
		}
	}
}
