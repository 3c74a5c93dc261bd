package handler

type errorPayload struct {
	Code    string `json:"code"`
	Message string `json:"message"`
	Field   string `json:"field,omitempty"`
}

type ErrorResponse struct {
	Error errorPayload `json:"error"`
}

func NewErrorResponse(code, message string) ErrorResponse {
	return ErrorResponse{
		Error: errorPayload{
			Code:    code,
			Message: message,
		},
	}
}

// NewFieldErrorResponse names the input field that failed local validation.
func NewFieldErrorResponse(code, message, field string) ErrorResponse {
	resp := NewErrorResponse(code, message)
	resp.Error.Field = field
	return resp
}
