// README: Dispatch requests, per-ride outcomes and batch summaries.
package dispatch

import (
	"errors"

	"fleetops/internal/platform"
	"fleetops/internal/types"
)

type Kind string

const (
	KindAssign   Kind = "assign"
	KindCancel   Kind = "cancel"
	KindReassign Kind = "reassign"
)

// DefaultCancelReason is sent with a cancel when the operator gives none.
const DefaultCancelReason = "driver cancel"

var ErrBadRequest = errors.New("bad request")

// Request is one mutation against one ride. It is executed once and never retried here.
type Request struct {
	Kind        Kind     `json:"kind"`
	RideID      types.ID `json:"ride_id"`
	DriverID    types.ID `json:"driver_id,omitempty"`
	NewDriverID types.ID `json:"new_driver_id,omitempty"`
	Reason      string   `json:"reason,omitempty"`
}

func (r Request) validate() error {
	if r.RideID <= 0 {
		return errors.New("ride_id is required")
	}
	switch r.Kind {
	case KindAssign:
		if r.DriverID <= 0 {
			return errors.New("driver_id is required to assign")
		}
	case KindReassign:
		if r.NewDriverID <= 0 {
			return errors.New("new_driver_id is required to reassign")
		}
	case KindCancel:
	default:
		return errors.New("unknown kind " + string(r.Kind))
	}
	return nil
}

type OutcomeStatus string

const (
	OutcomeSuccess OutcomeStatus = "success"
	OutcomeFailure OutcomeStatus = "failure"
)

// Outcome reports one request. ErrorKind keeps the gateway classification so surfaces can
// tell auth, state mismatch and transport failures apart.
type Outcome struct {
	RideID    types.ID      `json:"ride_id"`
	Kind      Kind          `json:"kind"`
	Status    OutcomeStatus `json:"status"`
	ErrorKind platform.Kind `json:"error_kind,omitempty"`
	Retryable bool          `json:"retryable,omitempty"`
	Detail    string        `json:"detail,omitempty"`
}

func (o Outcome) OK() bool { return o.Status == OutcomeSuccess }

type Summary struct {
	Total         int `json:"total"`
	Succeeded     int `json:"succeeded"`
	Failed        int `json:"failed"`
	StateMismatch int `json:"state_mismatch"`
	AuthFailed    int `json:"auth_failed"`
}

func Summarize(outcomes []Outcome) Summary {
	s := Summary{Total: len(outcomes)}
	for _, o := range outcomes {
		if o.OK() {
			s.Succeeded++
			continue
		}
		s.Failed++
		switch o.ErrorKind {
		case platform.KindStateMismatch:
			s.StateMismatch++
		case platform.KindUnauthorized, platform.KindForbidden:
			s.AuthFailed++
		}
	}
	return s
}
