package middleware

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/sirupsen/logrus"

	"github.com/avtoscan/reports-backend/internal/dto"
	"github.com/avtoscan/reports-backend/internal/logger"
	"github.com/avtoscan/reports-backend/internal/pkg/apperror"
)

// ErrorHandler обрабатывает ошибки централизованно. AppError уходит клиенту
// со своим кодом и статусом, всё остальное маскируется до INTERNAL_ERROR:
// тексты внутренних ошибок наружу не попадают.
func ErrorHandler() gin.HandlerFunc {
	return func(c *gin.Context) {
		c.Next()

		if c.Writer.Written() || len(c.Errors) == 0 {
			return
		}

		err := c.Errors.Last().Err

		if logger.Log != nil {
			logger.Log.WithFields(logrus.Fields{
				"error":  err.Error(),
				"path":   c.Request.URL.Path,
				"method": c.Request.Method,
			}).Error("ошибка обработки запроса")
		}

		if appErr, ok := apperror.AsAppError(err); ok {
			c.JSON(appErr.HTTPStatus, dto.ErrorResponse{
				Code:    string(appErr.Code),
				Message: appErr.Message,
			})
			return
		}

		c.JSON(http.StatusInternalServerError, dto.ErrorResponse{
			Code:    string(apperror.ErrCodeInternal),
			Message: "внутренняя ошибка сервера",
		})
	}
}
