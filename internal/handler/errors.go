package handler

import (
	"errors"
	"net/http"

	"github.com/labstack/echo/v4"
	"go.uber.org/zap"

	"github.com/iliyamo/backend-service-lab3/internal/validation"
)

// ErrorHandler renders every error as a {"detail": ...} body.  Validation
// errors become 422 with the field list; echo HTTP errors keep their code;
// anything else is logged and answered with a bare 500.
func ErrorHandler(log *zap.Logger) echo.HTTPErrorHandler {
	if log == nil {
		log = zap.NewNop()
	}
	return func(err error, c echo.Context) {
		if c.Response().Committed {
			return
		}

		var (
			verr *validation.Error
			herr *echo.HTTPError
		)
		status := http.StatusInternalServerError
		var detail any = http.StatusText(http.StatusInternalServerError)

		switch {
		case errors.As(err, &verr):
			status = http.StatusUnprocessableEntity
			detail = verr.Detail
		case errors.As(err, &herr):
			status = herr.Code
			if msg, ok := herr.Message.(string); ok && msg != "" {
				detail = msg
			} else {
				detail = http.StatusText(herr.Code)
			}
		default:
			log.Error("unhandled error",
				zap.String("method", c.Request().Method),
				zap.String("uri", c.Request().URL.RequestURI()),
				zap.Error(err),
			)
		}

		var werr error
		if c.Request().Method == http.MethodHead {
			werr = c.NoContent(status)
		} else {
			werr = c.JSON(status, map[string]any{"detail": detail})
		}
		if werr != nil {
			log.Warn("write error response", zap.Error(werr))
		}
	}
}
