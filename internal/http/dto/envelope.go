package dto

// Envelope is the uniform success wrapper: {"success": true, "data": ...}.
type Envelope struct {
	Success bool `json:"success"`
	Data    any  `json:"data"`
}

type ErrorBody struct {
	Message string `json:"message"`
	Code    string `json:"code"`
	Details any    `json:"details,omitempty"`
}

// ErrorEnvelope wraps failures: {"error": {"message": ..., "code": ...}}.
type ErrorEnvelope struct {
	Error ErrorBody `json:"error"`
}

func OK(data any) Envelope {
	return Envelope{Success: true, Data: data}
}

func Err(code, message string) ErrorEnvelope {
	return ErrorEnvelope{Error: ErrorBody{Message: message, Code: code}}
}

func ErrWithDetails(code, message string, details any) ErrorEnvelope {
	return ErrorEnvelope{Error: ErrorBody{Message: message, Code: code, Details: details}}
}
