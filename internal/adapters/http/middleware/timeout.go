package middleware

import (
	"context"
	"time"

	"github.com/gin-gonic/gin"
)

// Deadline returns middleware that puts a deadline on the request context.
// It does not write a response itself: handlers observe ctx.Done() and map
// the error. Waiting on a quote refresh honours it, while the refresh keeps
// running for other readers.
func Deadline(timeout time.Duration) gin.HandlerFunc {
	return func(c *gin.Context) {
		if timeout <= 0 {
			c.Next()
			return
		}

		ctx, cancel := context.WithTimeout(c.Request.Context(), timeout)
		defer cancel()

		c.Request = c.Request.WithContext(ctx)
		c.Next()
	}
}
