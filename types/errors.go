package types

import "fmt"

// ProtocolError provides structured error information reported by the
// remote analysis service, either over the event stream or on a control call.
type ProtocolError struct {
	Code    string                 `json:"code"`
	Message string                 `json:"message"`
	Details map[string]interface{} `json:"details,omitempty"`
}

func (e *ProtocolError) Error() string {
	return fmt.Sprintf("%s: %s", e.Code, e.Message)
}

// NewProtocolError creates a new structured protocol error
func NewProtocolError(code string, message string, details map[string]interface{}) *ProtocolError {
	return &ProtocolError{
		Code:    code,
		Message: message,
		Details: details,
	}
}
