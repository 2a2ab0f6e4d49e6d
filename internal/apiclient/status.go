package apiclient

import (
	"encoding/json"
	"fmt"
	"net/http"
	"strings"

	clierrors "github.com/chazuruo/circli/internal/errors"
)

// commonMessages apply to every endpoint unless its own map overrides them.
var commonMessages = map[int]string{
	http.StatusBadRequest:          "Bad Request",
	http.StatusUnauthorized:        "Unauthorized",
	http.StatusForbidden:           "Forbidden",
	http.StatusNotFound:            "Not Found",
	http.StatusTooManyRequests:     "Too Many Requests",
	http.StatusInternalServerError: "Internal Server Error",
	http.StatusBadGateway:          "Bad Gateway",
	http.StatusServiceUnavailable:  "Service Unavailable",
}

// StatusMessage picks the message for status: the endpoint map first, then
// the common table, then a generic fallback naming the status.
func StatusMessage(status int, statusText string, errors map[int]string) string {
	if msg, ok := errors[status]; ok {
		return msg
	}
	if msg, ok := commonMessages[status]; ok {
		return msg
	}
	return fmt.Sprintf("Generic Error: status: %d; status text: %s", status, statusText)
}

// newHTTPError classifies a non-2xx response.
func newHTTPError(req *Request, url string, resp *http.Response, body []byte) *clierrors.HTTPError {
	statusText := strings.TrimSpace(strings.TrimPrefix(resp.Status, fmt.Sprint(resp.StatusCode)))
	if statusText == "" {
		statusText = http.StatusText(resp.StatusCode)
	}
	return &clierrors.HTTPError{
		Method:     req.Method,
		URL:        url,
		Status:     resp.StatusCode,
		StatusText: statusText,
		Body:       body,
		Message:    StatusMessage(resp.StatusCode, statusText, req.Errors),
		Detail:     serverMessage(body),
	}
}

// serverMessage extracts the {"message": "..."} field CircleCI puts in
// error bodies.
func serverMessage(body []byte) string {
	var payload struct {
		Message string `json:"message"`
	}
	if json.Unmarshal(body, &payload) != nil {
		return ""
	}
	return strings.TrimSpace(payload.Message)
}
