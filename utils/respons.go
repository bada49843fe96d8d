package utils

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/sirupsen/logrus"
)

// JSONResponse is the envelope of every API answer.
type JSONResponse struct {
	Status  bool        `json:"status"`
	Message string      `json:"message"`
	Data    interface{} `json:"data,omitempty"`
}

func RespondJSON(c *gin.Context, code int, message string, data interface{}) {
	c.JSON(code, JSONResponse{
		Status:  code >= 200 && code < 300,
		Message: message,
		Data:    data,
	})
}

// RespondError answers with the error message. Server-side failures are
// logged with the route that produced them.
func RespondError(c *gin.Context, code int, err error) {
	if code >= http.StatusInternalServerError {
		Error().WithFields(logrus.Fields{
			"method": c.Request.Method,
			"route":  c.FullPath(),
			"status": code,
		}).Error(err)
	}
	c.JSON(code, JSONResponse{
		Status:  false,
		Message: err.Error(),
	})
}
