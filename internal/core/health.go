package core

import "fmt"

const (
	// UnreachableCode is reported when the health endpoint cannot be reached.
	UnreachableCode = 500
	// UnreachableMessage accompanies UnreachableCode.
	UnreachableMessage = "service unreachable"
)

// SystemHealth is a backend-reported error condition. A nil *SystemHealth
// means the system is healthy.
type SystemHealth struct {
	Code    int    `json:"code"`
	Message string `json:"message"`
	DevInfo string `json:"dev_info,omitempty"`
}

func (h *SystemHealth) String() string {
	if h == nil {
		return "healthy"
	}
	return fmt.Sprintf("%d %s", h.Code, h.Message)
}

// Unreachable builds the health value used when the backend cannot be contacted.
func Unreachable(cause error) *SystemHealth {
	h := &SystemHealth{Code: UnreachableCode, Message: UnreachableMessage}
	if cause != nil {
		h.DevInfo = cause.Error()
	}
	return h
}
