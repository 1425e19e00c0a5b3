// Package result defines the uniform shape every protocol module
// returns to its caller: a Result Envelope collapsing heterogeneous
// protocol outcomes into {success, protocol, operation, latency,
// payload, error}.
package result

import "time"

// Envelope is the terminal value returned by every operation in this
// repository, destined to be serialized as JSON by the Handler Adapter
// (C9) or rendered as a table by the CLI.
type Envelope struct {
	Success    bool   `json:"success"`
	Protocol   string `json:"protocol"`
	Operation  string `json:"operation"`
	LatencyMS  uint32 `json:"latencyMs"`
	Payload    any    `json:"payload,omitempty"`
	Error      *Error `json:"error,omitempty"`
	SessionID  string `json:"sessionId,omitempty"`
}

// Ok builds a successful envelope, stamping the latency from start to
// now.
func Ok(protocol, operation string, start time.Time, payload any) Envelope {
	return Envelope{
		Success:   true,
		Protocol:  protocol,
		Operation: operation,
		LatencyMS: latencyMS(start),
		Payload:   payload,
	}
}

// Fail builds a failed envelope from any error, classifying it via
// AsError if it isn't already a *Error.
func Fail(protocol, operation string, start time.Time, err error) Envelope {
	return Envelope{
		Success:   false,
		Protocol:  protocol,
		Operation: operation,
		LatencyMS: latencyMS(start),
		Error:     AsError(err),
	}
}

func latencyMS(start time.Time) uint32 {
	d := time.Since(start)
	if d < 0 {
		return 0
	}
	ms := d.Milliseconds()
	if ms > int64(^uint32(0)) {
		return ^uint32(0)
	}
	return uint32(ms)
}
