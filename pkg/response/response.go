package response

// Response represents a standard API response format
type Response struct {
	Status     string      `json:"status"`      // "success" or "error"
	StatusCode int         `json:"status_code"` // HTTP status code
	Data       interface{} `json:"data,omitempty"`
	Error      string      `json:"error,omitempty"`
	Reason     string      `json:"reason,omitempty"` // machine-readable deny/error code
}

// Success returns a standard success response wrapping the data
func Success(statusCode int, data interface{}) Response {
	return Response{
		Status:     "success",
		StatusCode: statusCode,
		Data:       data,
	}
}

// Error returns a standard error response wrapping the error message
func Error(statusCode int, err string) Response {
	return Response{
		Status:     "error",
		StatusCode: statusCode,
		Error:      err,
	}
}

// Deny returns an error response carrying a stable reason code alongside
// the human-readable message, so clients can branch without string
// matching.
func Deny(statusCode int, err string, reason string) Response {
	return Response{
		Status:     "error",
		StatusCode: statusCode,
		Error:      err,
		Reason:     reason,
	}
}
