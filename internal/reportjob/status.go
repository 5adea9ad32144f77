package reportjob

import (
	"encoding/json"
	"slices"
)

type Status string

const (
	StatusIdle     Status = "idle"
	StatusInflight Status = "inflight"
	StatusAccepted Status = "accepted"
	StatusDone     Status = "done"
	StatusError    Status = "error"
)

func (s Status) Terminal() bool {
	return s == StatusDone || s == StatusError
}

// Snapshot is the client-observed view of the current report job.
type Snapshot struct {
	Status  Status
	PollURL string
	Result  json.RawMessage
	// Err holds the cause when Status is StatusError.
	Err error
	// Token is the idempotency key sent with the current job.
	Token string
}

func (s Snapshot) clone() Snapshot {
	s.Result = slices.Clone(s.Result)
	return s
}
