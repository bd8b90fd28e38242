package logger

import (
	"net/http"
	"slices"
	"time"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"
)

// ginRequestIDKey mirrors the key the request id middleware stores the id under
const ginRequestIDKey = "request_id"

type accessLogOptions struct {
	skipPaths []string
}

// AccessLogOption configures GinMiddleware
type AccessLogOption func(*accessLogOptions)

// WithSkipPaths suppresses access lines for successful requests to the given
// paths, typically load balancer probes. Failures are still logged.
func WithSkipPaths(paths ...string) AccessLogOption {
	return func(o *accessLogOptions) {
		o.skipPaths = append(o.skipPaths, paths...)
	}
}

// GinMiddleware writes one access line per request. The request context gets
// the request id and a logger scoped to the route, which handlers and the
// services below them reach through Ctx.
func GinMiddleware(base *zap.Logger, opts ...AccessLogOption) gin.HandlerFunc {
	var o accessLogOptions
	for _, opt := range opts {
		opt(&o)
	}

	return func(c *gin.Context) {
		start := time.Now()

		ctx := c.Request.Context()
		if id := c.GetString(ginRequestIDKey); id != "" {
			ctx = WithRequest(ctx, id)
		}
		scoped := base.With(zap.String("method", c.Request.Method), zap.String("path", c.Request.URL.Path))
		c.Request = c.Request.WithContext(Into(ctx, scoped))

		c.Next()

		status := c.Writer.Status()
		if status < http.StatusBadRequest && slices.Contains(o.skipPaths, c.Request.URL.Path) {
			return
		}

		fields := []zap.Field{
			zap.String("route", c.FullPath()),
			zap.Int("status", status),
			zap.Duration("latency", time.Since(start)),
			zap.String("client_ip", c.ClientIP()),
			zap.Int("response_bytes", c.Writer.Size()),
		}
		if q := c.Request.URL.RawQuery; q != "" {
			fields = append(fields, zap.String("query", q))
		}
		if ua := c.Request.UserAgent(); ua != "" {
			fields = append(fields, zap.String("user_agent", ua))
		}
		if len(c.Errors) > 0 {
			fields = append(fields, zap.Strings("errors", c.Errors.Errors()))
		}

		log := Ctx(c.Request.Context())
		switch {
		case status >= http.StatusInternalServerError:
			log.Error("request failed", fields...)
		case status >= http.StatusBadRequest:
			log.Warn("request rejected", fields...)
		default:
			log.Info("request served", fields...)
		}
	}
}

// Recovery turns a handler panic into a 500 with the error envelope the API
// uses everywhere else, and logs the stack.
func Recovery(base *zap.Logger) gin.HandlerFunc {
	return func(c *gin.Context) {
		defer func() {
			r := recover()
			if r == nil {
				return
			}
			requestID := c.GetString(ginRequestIDKey)
			ctx := c.Request.Context()
			if RequestID(ctx) == "" && requestID != "" {
				ctx = WithRequest(ctx, requestID)
			}
			For(ctx, base).Error("panic in handler",
				zap.String("method", c.Request.Method),
				zap.String("path", c.Request.URL.Path),
				zap.Any("panic", r),
				zap.Stack("stacktrace"),
			)
			if c.Writer.Written() {
				c.Abort()
				return
			}
			c.AbortWithStatusJSON(http.StatusInternalServerError, gin.H{
				"success": false,
				"error": gin.H{
					"code":       "ERR_INTERNAL",
					"message":    "internal server error",
					"request_id": requestID,
				},
			})
		}()
		c.Next()
	}
}
