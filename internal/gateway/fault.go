package gateway

import "fmt"

// FaultKind classifies why a gateway call produced no usable answer.
type FaultKind string

const (
	// FaultUnavailable covers transport and network failures
	FaultUnavailable FaultKind = "backend_unavailable"
	// FaultRejected covers non-success HTTP statuses
	FaultRejected FaultKind = "backend_rejected"
	// FaultMalformed covers success statuses missing the expected field
	FaultMalformed FaultKind = "malformed_response"
)

// Fault is the tagged failure every gateway call reports. The response
// router discriminates on Kind instead of matching error types, and
// maps every kind to the same user-visible apology.
type Fault struct {
	Kind   FaultKind
	Detail string
}

func (f *Fault) Error() string {
	return fmt.Sprintf("%s: %s", f.Kind, f.Detail)
}

// NewFault builds a Fault with a formatted detail message.
func NewFault(kind FaultKind, format string, args ...any) *Fault {
	return &Fault{Kind: kind, Detail: fmt.Sprintf(format, args...)}
}
