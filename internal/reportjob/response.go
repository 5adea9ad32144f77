package reportjob

import (
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"strings"
)

var ErrUnexpectedResponse = errors.New("unexpected report job response")

type responseKind int

const (
	kindPending responseKind = iota + 1
	kindDone
)

// jobResponse is a job-service reply decoded once at the boundary. Kind
// decides which of the other fields are meaningful.
type jobResponse struct {
	Kind    responseKind
	Status  Status
	PollURL string
	Result  json.RawMessage
}

type wireResponse struct {
	Status string          `json:"status"`
	Poll   string          `json:"poll"`
	Result json.RawMessage `json:"result"`
}

func decodeCreate(code int, body []byte) (jobResponse, error) {
	w, err := decodeWire(body)
	if err != nil {
		return jobResponse{}, err
	}

	if code == http.StatusAccepted {
		switch Status(w.Status) {
		case StatusAccepted, StatusInflight:
			poll := strings.TrimSpace(w.Poll)
			if poll == "" {
				return jobResponse{}, fmt.Errorf("%w: missing poll url", ErrUnexpectedResponse)
			}
			return jobResponse{Kind: kindPending, Status: Status(w.Status), PollURL: poll}, nil
		}
	}

	if isSuccess(code) && (hasResult(w.Result) || Status(w.Status) == StatusDone) {
		return jobResponse{Kind: kindDone, Status: StatusDone, Result: resultOrNil(w.Result)}, nil
	}

	return jobResponse{}, fmt.Errorf("%w: http %d status %q", ErrUnexpectedResponse, code, w.Status)
}

func decodePoll(code int, body []byte) (jobResponse, error) {
	if !isSuccess(code) {
		return jobResponse{}, fmt.Errorf("%w: http %d", ErrUnexpectedResponse, code)
	}
	w, err := decodeWire(body)
	if err != nil {
		return jobResponse{}, err
	}

	switch {
	case hasResult(w.Result):
		return jobResponse{Kind: kindDone, Status: StatusDone, Result: w.Result}, nil
	case Status(w.Status) == StatusInflight:
		return jobResponse{Kind: kindPending, Status: StatusInflight}, nil
	default:
		return jobResponse{}, fmt.Errorf("%w: status %q", ErrUnexpectedResponse, w.Status)
	}
}

func decodeWire(body []byte) (wireResponse, error) {
	var w wireResponse
	if err := json.Unmarshal(body, &w); err != nil {
		return wireResponse{}, fmt.Errorf("%w: %w", ErrUnexpectedResponse, err)
	}
	return w, nil
}

func isSuccess(code int) bool {
	return code >= 200 && code <= 299
}

func hasResult(raw json.RawMessage) bool {
	s := strings.TrimSpace(string(raw))
	return s != "" && s != "null"
}

func resultOrNil(raw json.RawMessage) json.RawMessage {
	if !hasResult(raw) {
		return nil
	}
	return raw
}
