package httpapi

import (
	"invoice-console/internal/session"

	"github.com/gin-gonic/gin"
)

// RequireSession is the authenticated boundary: protected routes only run while
// the gateway holds a credential. It performs no network call.
func RequireSession(gw *session.Gateway) gin.HandlerFunc {
	h := Handlers{Gateway: gw}
	return func(c *gin.Context) {
		if !gw.Check(c.Request.Context()).Authenticated {
			h.sessionEnded(c)
			return
		}
		c.Next()
	}
}
