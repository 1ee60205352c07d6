package middleware

import (
	"errors"
	"net/http"

	"github.com/Eursukkul/booking-microservice/payment-service/internal/dto"
	"github.com/Eursukkul/booking-microservice/payment-service/pkg/logging"
	"github.com/labstack/echo/v4"
	"go.uber.org/zap"
)

// ErrorHandler renders every handler error as {"message": ...}. Unexpected
// errors are logged and hidden behind a generic message.
func ErrorHandler(err error, c echo.Context) {
	if c.Response().Committed {
		return
	}

	code := http.StatusInternalServerError
	msg := http.StatusText(code)

	var he *echo.HTTPError
	if errors.As(err, &he) {
		code = he.Code
		if m, ok := he.Message.(string); ok {
			msg = m
		} else {
			msg = http.StatusText(code)
		}
	}

	if code >= http.StatusInternalServerError {
		logging.FromContext(c.Request().Context()).Error("http_request_failed",
			zap.String("path", c.Path()),
			zap.Int("status", code),
			zap.Error(err),
		)
	}

	if c.Request().Method == http.MethodHead {
		_ = c.NoContent(code)
		return
	}
	_ = c.JSON(code, dto.ErrorResponse{Message: msg})
}
