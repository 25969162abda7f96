package rag

import "fmt"

// QueryRequest is the JSON payload sent to the answer service.
type QueryRequest struct {
	Name     string `json:"name"`
	UserType string `json:"user_type"`
	Message  string `json:"message"`
	Context  string `json:"context,omitempty"`
}

// QueryResponse is the JSON reply from the answer service.
type QueryResponse struct {
	Response   string   `json:"response"`
	Confidence float64  `json:"confidence,omitempty"`
	Sources    []string `json:"sources,omitempty"`
	Timestamp  float64  `json:"timestamp,omitempty"`
}

// ServiceError describes a failed answer-service call: transport failure,
// non-2xx status, or a malformed reply body.
type ServiceError struct {
	StatusCode int    // 0 for transport-level failures
	Reason     string // short category: "request", "status", "decode"
	Err        error
}

func (e *ServiceError) Error() string {
	if e.StatusCode != 0 {
		return fmt.Sprintf("answer service %s error (status %d): %v", e.Reason, e.StatusCode, e.Err)
	}
	return fmt.Sprintf("answer service %s error: %v", e.Reason, e.Err)
}

func (e *ServiceError) Unwrap() error {
	return e.Err
}
