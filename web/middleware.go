package web

import (
	"github.com/gin-gonic/gin"

	"github.com/pulseobs/pulse/ctxutil"
	"github.com/pulseobs/pulse/monitor"
)

// Middleware brackets every request through the server collector. The
// endpoint label is method plus route pattern so path parameters do not
// explode the per-endpoint aggregates.
func Middleware(m *monitor.Monitor) gin.HandlerFunc {
	return func(c *gin.Context) {
		ctx, _ := ctxutil.EnsureTraceID(c.Request.Context())
		c.Request = c.Request.WithContext(ctx)

		token := m.Server().StartRequest()
		c.Next()

		route := c.FullPath()
		if route == "" {
			route = "unmatched"
		}
		m.Server().EndRequest(token, c.Request.Method+" "+route, c.Writer.Status())
	}
}
