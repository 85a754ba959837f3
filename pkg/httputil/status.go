package httputil

import (
	"errors"
	"fmt"
	"net/http"

	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

// ErrUnexpectedStatus is returned by sinks whose endpoint answered with a
// status other than 200.
var ErrUnexpectedStatus = errors.New("unexpected status code")

// StatusMessage maps the status code of a sink response to its log message.
func StatusMessage(code int) string {
	switch code {
	case http.StatusOK:
		return "Data sent successfully!"
	case http.StatusUnauthorized:
		return "Status Code: 401 Authentication error. Check your API key or token."
	case http.StatusForbidden:
		return "Status Code: 403 Authorization error. Insufficient permissions."
	case http.StatusNotFound:
		return "Status Code: 404 API endpoint not found."
	case http.StatusInternalServerError:
		return "Status Code: 500 Internal server error. Check the API server logs."
	default:
		return fmt.Sprintf("Unexpected error: %d", code)
	}
}

// FailureMessage is the log message of a request that never got a response.
func FailureMessage(err error) string {
	return fmt.Sprintf("Request failed: %v", err)
}

// LogOutcome logs the outcome of a single sink request. Exactly one of resp
// and err is expected to be meaningful: err wins when both are set.
func LogOutcome(logger *zap.Logger, resp *Response, err error, fields ...zap.Field) {
	if err != nil {
		logger.Error(FailureMessage(err), append(fields, zap.Error(err))...)
		return
	}

	level := zapcore.WarnLevel
	if resp.StatusCode == http.StatusOK {
		level = zapcore.InfoLevel
	}
	fields = append(fields, zap.Int("status", resp.StatusCode))
	if ce := logger.Check(level, StatusMessage(resp.StatusCode)); ce != nil {
		ce.Write(fields...)
	}
}
