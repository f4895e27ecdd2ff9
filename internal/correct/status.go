package correct

import "fmt"

// Status is the lifecycle state of a correction request.
type Status int

const (
	// StatusIdle means nothing has been submitted yet
	StatusIdle Status = iota
	// StatusPending means a request is streaming
	StatusPending
	// StatusSuccess means the last request completed
	StatusSuccess
	// StatusError means the last request failed
	StatusError
)

var statusNames = [...]string{
	StatusIdle:    "idle",
	StatusPending: "pending",
	StatusSuccess: "success",
	StatusError:   "error",
}

// String returns the string representation of a status.
func (s Status) String() string {
	if s < 0 || int(s) >= len(statusNames) {
		return "unknown"
	}
	return statusNames[s]
}

// MarshalText encodes the status as its name.
func (s Status) MarshalText() ([]byte, error) {
	if s < 0 || int(s) >= len(statusNames) {
		return nil, fmt.Errorf("invalid status %d", int(s))
	}
	return []byte(statusNames[s]), nil
}

// UnmarshalText decodes a status name.
func (s *Status) UnmarshalText(text []byte) error {
	for i, name := range statusNames {
		if name == string(text) {
			*s = Status(i)
			return nil
		}
	}
	return fmt.Errorf("unknown status %q", text)
}

// Terminal reports whether the status ends a request.
func (s Status) Terminal() bool {
	return s == StatusSuccess || s == StatusError
}
