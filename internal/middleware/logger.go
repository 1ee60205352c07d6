package middleware

import (
	"github.com/Eursukkul/booking-microservice/payment-service/pkg/logging"
	"github.com/google/uuid"
	"github.com/labstack/echo/v4"
	echoMw "github.com/labstack/echo/v4/middleware"
	"go.uber.org/zap"
)

// ContextLogger puts a request-scoped zap logger, tagged with the request id,
// into the request context.
func ContextLogger(base *zap.Logger) echo.MiddlewareFunc {
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			req := c.Request()
			requestID := req.Header.Get(echo.HeaderXRequestID)
			if requestID == "" {
				requestID = uuid.NewString()
			}
			c.Response().Header().Set(echo.HeaderXRequestID, requestID)

			logger := base.With(zap.String("request_id", requestID))
			c.SetRequest(req.WithContext(logging.ContextWithLogger(req.Context(), logger)))
			return next(c)
		}
	}
}

// RequestLogger logs one line per request through the context logger.
func RequestLogger() echo.MiddlewareFunc {
	return echoMw.RequestLoggerWithConfig(echoMw.RequestLoggerConfig{
		LogStatus:   true,
		LogURI:      true,
		LogMethod:   true,
		LogLatency:  true,
		HandleError: true,
		LogValuesFunc: func(c echo.Context, v echoMw.RequestLoggerValues) error {
			logging.FromContext(c.Request().Context()).Info("http_request",
				zap.String("method", v.Method),
				zap.String("uri", v.URI),
				zap.Int("status", v.Status),
				zap.Duration("latency", v.Latency),
			)
			return nil
		},
	})
}
