package zap4echo

import (
	"fmt"
	"runtime"

	"github.com/labstack/echo/v4"
	"go.uber.org/zap"
)

const stackTraceSize = 4 << 10

// Recover returns middleware that turns a panic in a later handler into a
// logged error and a 500 response, instead of killing the server.
func Recover(log *zap.Logger) echo.MiddlewareFunc {
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			defer func() {
				r := recover()
				if r == nil {
					return
				}
				err, ok := r.(error)
				if !ok {
					err = fmt.Errorf("panic: %v", r)
				}
				c.Error(err)

				stack := make([]byte, stackTraceSize)
				n := runtime.Stack(stack, false)

				req := c.Request()
				log.Error("recovered",
					zap.Error(err),
					zap.String("method", req.Method),
					zap.String("path", req.RequestURI),
					zap.String("client_ip", c.RealIP()),
					zap.ByteString("stacktrace", stack[:n]),
				)
			}()
			return next(c)
		}
	}
}
