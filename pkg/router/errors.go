package router

import (
	"errors"
	"maps"
	"net/http"

	"github.com/Suhaibinator/SDispatch/pkg/common"
)

// TranslateError converts an application error into the response sent to the client.
// A map detail becomes the payload as-is; any other detail is wrapped as
// {"detail": <detail>}. A nil error, or one with a status outside 100..599,
// translates to 500. Headers carried by the error are copied onto the response.
func TranslateError(err *common.AppError) *common.Response {
	if err == nil {
		return internalError()
	}

	status := err.StatusCode
	if status < 100 || status > 599 {
		status = http.StatusInternalServerError
	}

	// Map details are copied since error values may be shared between requests
	var data any
	switch detail := err.Detail.(type) {
	case map[string]any:
		data = maps.Clone(detail)
	case map[string]string:
		data = maps.Clone(detail)
	default:
		data = map[string]any{"detail": detail}
	}

	resp := common.NewResponse(status, data)
	for key, values := range err.Header {
		resp.Header[key] = append([]string(nil), values...)
	}
	return resp
}

// statusResponse builds the {"detail": <status text>} response for status.
func statusResponse(status int) *common.Response {
	return common.NewResponse(status, map[string]any{"detail": http.StatusText(status)})
}

func notFound() *common.Response {
	return statusResponse(http.StatusNotFound)
}

func internalError() *common.Response {
	return statusResponse(http.StatusInternalServerError)
}

func serviceUnavailable() *common.Response {
	return statusResponse(http.StatusServiceUnavailable)
}

// errRequestTimeout is raised for handlers that outlive the request deadline.
var errRequestTimeout = common.NewAppError(http.StatusRequestTimeout, "Request Timeout")

// bodyError converts a body read failure into an application error.
func bodyError(err error) *common.AppError {
	var maxBytesErr *http.MaxBytesError
	if errors.As(err, &maxBytesErr) {
		return common.NewAppError(http.StatusRequestEntityTooLarge, "Request body too large.")
	}
	return common.NewAppError(http.StatusBadRequest, "Failed to read request body.")
}
