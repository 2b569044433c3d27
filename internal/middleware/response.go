package middleware

import (
	"errors"
	"net/http"

	contextutils "prepx/internal/utils"

	"github.com/gin-gonic/gin"
)

// Envelope is the body of every API response. Success is false exactly when StatusCode >= 400.
type Envelope struct {
	Success    bool        `json:"success"`
	StatusCode int         `json:"statusCode"`
	Data       interface{} `json:"data"`
	Message    string      `json:"message"`
	Code       string      `json:"code,omitempty"`
}

// Respond writes data inside a success envelope
func Respond(c *gin.Context, status int, data interface{}, message string) {
	c.JSON(status, Envelope{
		Success:    status < http.StatusBadRequest,
		StatusCode: status,
		Data:       data,
		Message:    message,
	})
}

// HandleAppError records err on the context and writes the matching error envelope.
// Non-AppErrors and server-side codes are reported with a generic message.
func HandleAppError(c *gin.Context, err error) {
	_ = c.Error(err)

	var appErr *contextutils.AppError
	if !errors.As(err, &appErr) {
		appErr = contextutils.NewAppErrorWithCause(contextutils.ErrorCodeInternalError, contextutils.SeverityError,
			"Internal server error", "", err)
	}

	status := StatusForCode(appErr.Code)
	message := appErr.Message
	if status == http.StatusInternalServerError {
		message = "Internal server error"
	}
	c.AbortWithStatusJSON(status, Envelope{
		Success:    false,
		StatusCode: status,
		Data:       nil,
		Message:    message,
		Code:       string(appErr.Code),
	})
}

// StatusForCode maps AppError codes to HTTP status codes
func StatusForCode(code contextutils.ErrorCode) int {
	switch code {
	case contextutils.ErrorCodeInvalidInput, contextutils.ErrorCodeMissingRequired,
		contextutils.ErrorCodeValidationFailed, contextutils.ErrorCodeInvalidAnswerIndex:
		return http.StatusBadRequest

	case contextutils.ErrorCodeUnauthorized, contextutils.ErrorCodeInvalidCredentials:
		return http.StatusUnauthorized

	case contextutils.ErrorCodeForbidden, contextutils.ErrorCodeAccountBanned:
		return http.StatusForbidden

	case contextutils.ErrorCodeRecordNotFound, contextutils.ErrorCodeQuestionNotFound,
		contextutils.ErrorCodeUserNotFound, contextutils.ErrorCodePostNotFound,
		contextutils.ErrorCodeCommentNotFound, contextutils.ErrorCodeNoQuestionsAvailable:
		return http.StatusNotFound

	case contextutils.ErrorCodeRecordExists:
		return http.StatusConflict

	case contextutils.ErrorCodeRateLimit:
		return http.StatusTooManyRequests

	case contextutils.ErrorCodeServiceUnavailable:
		return http.StatusServiceUnavailable

	default:
		return http.StatusInternalServerError
	}
}
