// README: Batch mutation executor: assign, cancel (revive) and reassign (switch driver).
package dispatch

import (
	"context"
	"fmt"

	"go.uber.org/zap"

	"fleetops/internal/logger"
	"fleetops/internal/platform"
)

// Poster is the slice of the platform gateway mutations need.
type Poster interface {
	Post(ctx context.Context, path string, body any, out any) error
}

// BatchProgress is called after each request with the running count.
type BatchProgress func(done, total int, last Outcome)

type Executor struct {
	api Poster
	log *zap.Logger
}

func NewExecutor(api Poster, log *zap.Logger) *Executor {
	return &Executor{api: api, log: logger.OrNop(log)}
}

func (e *Executor) Execute(ctx context.Context, req Request) Outcome {
	out := Outcome{RideID: req.RideID, Kind: req.Kind}
	if err := req.validate(); err != nil {
		out.Status = OutcomeFailure
		out.Detail = fmt.Sprintf("%v: %v", ErrBadRequest, err)
		return out
	}

	path, body := wireCall(req)
	if err := e.api.Post(ctx, path, body, nil); err != nil {
		out.Status = OutcomeFailure
		out.ErrorKind = platform.KindOf(err)
		out.Retryable = platform.IsRetryable(err)
		out.Detail = failureDetail(err)
		e.log.Warn("dispatch failed",
			zap.String("kind", string(req.Kind)),
			zap.Int64("ride_id", int64(req.RideID)),
			zap.String("error_kind", string(out.ErrorKind)),
			zap.Error(err))
		return out
	}
	out.Status = OutcomeSuccess
	e.log.Info("dispatch applied",
		zap.String("kind", string(req.Kind)),
		zap.Int64("ride_id", int64(req.RideID)))
	return out
}

// ExecuteBatch runs every request in order, one outcome per request. A failure never stops
// the remaining requests.
func (e *Executor) ExecuteBatch(ctx context.Context, reqs []Request, progress BatchProgress) []Outcome {
	outcomes := make([]Outcome, 0, len(reqs))
	for i, req := range reqs {
		o := e.Execute(ctx, req)
		outcomes = append(outcomes, o)
		if progress != nil {
			progress(i+1, len(reqs), o)
		}
	}
	sum := Summarize(outcomes)
	e.log.Info("dispatch batch complete",
		zap.Int("total", sum.Total),
		zap.Int("succeeded", sum.Succeeded),
		zap.Int("failed", sum.Failed),
		zap.Int("state_mismatch", sum.StateMismatch))
	return outcomes
}

func wireCall(req Request) (string, any) {
	switch req.Kind {
	case KindAssign:
		return fmt.Sprintf("/rides/%d/assign", req.RideID), map[string]any{
			"driver_id": int64(req.DriverID),
		}
	case KindReassign:
		return fmt.Sprintf("/rides/%d", req.RideID), map[string]any{
			"entity_id":   int64(req.NewDriverID),
			"entity_type": "driver",
			"status":      "switch_driver",
		}
	default:
		reason := req.Reason
		if reason == "" {
			reason = DefaultCancelReason
		}
		return fmt.Sprintf("/rides/%d", req.RideID), map[string]any{
			"status": "revive",
			"reason": reason,
		}
	}
}

func failureDetail(err error) string {
	switch platform.KindOf(err) {
	case platform.KindStateMismatch:
		return "ride does not permit this transition in its current status"
	case platform.KindForbidden:
		return "permission denied"
	case platform.KindUnauthorized:
		return "credentials rejected"
	default:
		return err.Error()
	}
}
