package errx

// HTTPErrorResponse is the JSON body written for failed requests
type HTTPErrorResponse struct {
	Code       string         `json:"code"`
	Message    string         `json:"message"`
	Type       string         `json:"type"`
	Details    map[string]any `json:"details,omitempty"`
	StatusCode int            `json:"status_code"`
}

func (e *Error) ToHTTPResponse() HTTPErrorResponse {
	details := e.Details
	if len(details) == 0 {
		details = nil
	}
	return HTTPErrorResponse{
		Code:       e.Code,
		Message:    e.Message,
		Type:       string(e.Type),
		Details:    details,
		StatusCode: e.HTTPStatus,
	}
}

// FromError converts any error into an *Error. Uncoded errors become
// internal errors that hide the original message.
func FromError(err error) *Error {
	if e, ok := As(err); ok {
		return e
	}
	internal := New("Internal server error", TypeInternal)
	internal.Err = err
	return internal
}
