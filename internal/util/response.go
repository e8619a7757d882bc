package util

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/sirupsen/logrus"
)

// Response is the success envelope shared by every endpoint.
type Response struct {
	StatusCode int         `json:"statusCode"`
	Data       interface{} `json:"data"`
	Message    string      `json:"message"`
	Success    bool        `json:"success"`
}

// ErrorBody is the error envelope.
type ErrorBody struct {
	Success bool     `json:"success"`
	Message string   `json:"message"`
	Errors  []string `json:"errors"`
}

func SuccessResponse(c *gin.Context, statusCode int, message string, data interface{}) {
	c.JSON(statusCode, Response{
		StatusCode: statusCode,
		Data:       data,
		Message:    message,
		Success:    statusCode < http.StatusBadRequest,
	})
}

func ErrorResponse(c *gin.Context, statusCode int, message string, errs []string) {
	if errs == nil {
		errs = []string{}
	}
	c.JSON(statusCode, ErrorBody{
		Success: false,
		Message: message,
		Errors:  errs,
	})
}

func BadRequest(c *gin.Context, message string) {
	ErrorResponse(c, http.StatusBadRequest, message, nil)
}

func Unauthorized(c *gin.Context, message string) {
	ErrorResponse(c, http.StatusUnauthorized, message, nil)
}

func NotFound(c *gin.Context, message string) {
	ErrorResponse(c, http.StatusNotFound, message, nil)
}

func InternalServerError(c *gin.Context, message string) {
	ErrorResponse(c, http.StatusInternalServerError, message, nil)
}

// HandleError renders err. Errors that are not ApiErrors are reported as a generic 500;
// their detail only reaches the log.
func HandleError(c *gin.Context, err error) {
	apiErr, ok := AsApiError(err)
	if !ok {
		apiErr = NewInternalError(err, "internal server error")
	}
	if apiErr.Kind == KindInternal {
		logrus.WithError(err).WithField("path", c.Request.URL.Path).Error("request failed")
	}
	_ = c.Error(err)
	ErrorResponse(c, apiErr.StatusCode, apiErr.Message, apiErr.Errors)
}
