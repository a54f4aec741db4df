package dto

// ErrorResponse is the body of every non-2xx API response
type ErrorResponse struct {
	Code      int    `json:"code"`
	Message   string `json:"message"`
	RequestID string `json:"requestId,omitempty"`
}

// NewErrorResponse builds an error body correlated with the request id
func NewErrorResponse(code int, message, requestID string) ErrorResponse {
	return ErrorResponse{Code: code, Message: message, RequestID: requestID}
}
