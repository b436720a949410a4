package models

// ErrorResponse is the JSON body returned for all failed requests
type ErrorResponse struct {
	Code    int    `json:"code"`
	Message string `json:"message"`
	Details string `json:"details,omitempty"`
}

// MessageResponse is the JSON body returned for mutations without a payload
type MessageResponse struct {
	Message string `json:"message"`
}
