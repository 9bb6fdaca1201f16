// README: Dispatch workflows: window cancel/reassign and high-price assignment.
package dispatch

import (
	"context"
	"fmt"

	"go.uber.org/zap"

	"fleetops/internal/logger"
	"fleetops/internal/modules/fleet"
	"fleetops/internal/modules/matching"
	"fleetops/internal/modules/pricing"
	"fleetops/internal/types"
)

// RideSource is the part of the fleet service dispatch workflows read from.
type RideSource interface {
	Rides(ctx context.Context, date string, progress fleet.Progress, statuses ...fleet.Status) ([]fleet.Ride, error)
	TryEnrichRides(ctx context.Context, rides []fleet.Ride, progress fleet.Progress) ([]fleet.Ride, []fleet.DetailFailure)
}

type Service struct {
	rides   RideSource
	matcher *matching.Matcher
	exec    *Executor
	log     *zap.Logger
}

func NewService(rides RideSource, matcher *matching.Matcher, exec *Executor, log *zap.Logger) *Service {
	return &Service{rides: rides, matcher: matcher, exec: exec, log: logger.OrNop(log)}
}

func (s *Service) Executor() *Executor { return s.exec }

type WindowResult struct {
	Date     string             `json:"date"`
	Range    matching.TimeRange `json:"range"`
	Matched  []fleet.Ride       `json:"matched"`
	Outcomes []Outcome          `json:"outcomes"`
	Summary  Summary            `json:"summary"`
}

type HighPriceResult struct {
	Date          string               `json:"date"`
	Range         matching.TimeRange   `json:"range"`
	Pending       int                  `json:"pending"`
	InWindow      int                  `json:"in_window"`
	DetailFailed  []types.ID           `json:"detail_failed,omitempty"`
	BelowMinPrice int                  `json:"below_min_price"`
	Selected      []pricing.PricedRide `json:"selected"`
	Outcomes      []Outcome            `json:"outcomes"`
	Summary       Summary              `json:"summary"`
}

// CancelWindow revives every ride of driverID on date whose pickup is in tr.
func (s *Service) CancelWindow(ctx context.Context, driverID types.ID, date string, tr matching.TimeRange, reason string) (WindowResult, error) {
	matched, err := s.windowRides(ctx, driverID, date, tr)
	if err != nil {
		return WindowResult{}, err
	}
	reqs := make([]Request, len(matched))
	for i, r := range matched {
		reqs[i] = Request{Kind: KindCancel, RideID: r.ID, DriverID: driverID, Reason: reason}
	}
	return s.runWindow(ctx, date, tr, matched, reqs), nil
}

// ReassignWindow moves driverID's rides in tr on date to newDriverID.
func (s *Service) ReassignWindow(ctx context.Context, driverID, newDriverID types.ID, date string, tr matching.TimeRange) (WindowResult, error) {
	if newDriverID <= 0 {
		return WindowResult{}, fmt.Errorf("%w: new driver id is required", ErrBadRequest)
	}
	matched, err := s.windowRides(ctx, driverID, date, tr)
	if err != nil {
		return WindowResult{}, err
	}
	reqs := make([]Request, len(matched))
	for i, r := range matched {
		reqs[i] = Request{Kind: KindReassign, RideID: r.ID, DriverID: driverID, NewDriverID: newDriverID}
	}
	return s.runWindow(ctx, date, tr, matched, reqs), nil
}

// AssignHighPrice assigns every pending ride in tr on date settling at minPrice or more to
// target. Rides whose detail cannot be read are skipped and listed.
func (s *Service) AssignHighPrice(ctx context.Context, date string, tr matching.TimeRange, minPrice types.Money, target types.ID) (HighPriceResult, error) {
	if target <= 0 {
		return HighPriceResult{}, fmt.Errorf("%w: target driver id is required", ErrBadRequest)
	}
	res := HighPriceResult{Date: date, Range: tr}
	pending, err := s.rides.Rides(ctx, date, nil, fleet.StatusPending)
	if err != nil {
		return HighPriceResult{}, err
	}
	res.Pending = len(pending)

	inWindow := s.matcher.InWindow(pending, tr)
	res.InWindow = len(inWindow)

	enriched, failed := s.rides.TryEnrichRides(ctx, inWindow, nil)
	for _, f := range failed {
		res.DetailFailed = append(res.DetailFailed, f.RideID)
		s.log.Warn("ride detail skipped", zap.Int64("ride_id", int64(f.RideID)), zap.Error(f.Err))
	}

	priced := pricing.ReconstructAll(enriched)
	res.Selected = matching.FilterByMinPrice(priced, minPrice)
	res.BelowMinPrice = len(priced) - len(res.Selected)

	reqs := make([]Request, len(res.Selected))
	for i, p := range res.Selected {
		reqs[i] = Request{Kind: KindAssign, RideID: p.ID, DriverID: target}
	}
	res.Outcomes = s.exec.ExecuteBatch(ctx, reqs, nil)
	res.Summary = Summarize(res.Outcomes)
	s.log.Info("high price assignment",
		zap.String("date", date),
		zap.String("range", tr.String()),
		zap.Int("pending", res.Pending),
		zap.Int("in_window", res.InWindow),
		zap.Int("selected", len(res.Selected)),
		zap.Int("succeeded", res.Summary.Succeeded))
	return res, nil
}

func (s *Service) windowRides(ctx context.Context, driverID types.ID, date string, tr matching.TimeRange) ([]fleet.Ride, error) {
	if driverID <= 0 {
		return nil, fmt.Errorf("%w: driver id is required", ErrBadRequest)
	}
	rides, err := s.rides.Rides(ctx, date, nil)
	if err != nil {
		return nil, err
	}
	matched := s.matcher.Match(rides, driverID, date, tr)
	s.log.Info("window matched",
		zap.Int64("driver_id", int64(driverID)),
		zap.String("date", date),
		zap.String("range", tr.String()),
		zap.Int("rides", len(rides)),
		zap.Int("matched", len(matched)))
	return matched, nil
}

func (s *Service) runWindow(ctx context.Context, date string, tr matching.TimeRange, matched []fleet.Ride, reqs []Request) WindowResult {
	outcomes := s.exec.ExecuteBatch(ctx, reqs, nil)
	return WindowResult{
		Date:     date,
		Range:    tr,
		Matched:  matched,
		Outcomes: outcomes,
		Summary:  Summarize(outcomes),
	}
}
