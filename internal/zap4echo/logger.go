// Package zap4echo wires zap structured logging into echo's middleware
// chain: one middleware logs each completed request, the other recovers
// panics and logs them before converting them into a 500 response.
package zap4echo

import (
	"net/http"
	"time"

	"github.com/labstack/echo/v4"
	"go.uber.org/zap"
)

const requestIDHeader = echo.HeaderXRequestID

// Logger returns middleware that logs one structured line per request.
func Logger(log *zap.Logger) echo.MiddlewareFunc {
	log = log.WithOptions(zap.WithCaller(false))

	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			start := time.Now()
			herr := next(c)
			if herr != nil {
				c.Error(herr)
			}

			req := c.Request()
			resp := c.Response()
			reqID := req.Header.Get(requestIDHeader)
			if reqID == "" {
				reqID = resp.Header().Get(requestIDHeader)
			}

			fields := []zap.Field{
				zap.String("method", req.Method),
				zap.String("path", req.RequestURI),
				zap.Int("status", resp.Status),
				zap.Int64("response_size", resp.Size),
				zap.Duration("latency", time.Since(start)),
				zap.String("client_ip", c.RealIP()),
			}
			if reqID != "" {
				fields = append(fields, zap.String("request_id", reqID))
			}

			msg := "served"
			if herr != nil {
				fields = append(fields, zap.Error(herr))
				log.Error(msg, fields...)
				return nil
			}
			if resp.Status >= http.StatusInternalServerError {
				log.Error(msg, fields...)
			} else {
				log.Info(msg, fields...)
			}
			return nil
		}
	}
}
