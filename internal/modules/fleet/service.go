// README: Fleet read service: collections per resource/date and bounded detail enrichment.
package fleet

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/url"
	"sync"
	"time"

	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"fleetops/internal/config"
	"fleetops/internal/logger"
	"fleetops/internal/types"
)

const DateLayout = "2006-01-02"

var (
	ErrInvalidDate      = errors.New("invalid date, expected YYYY-MM-DD")
	ErrInvalidDateRange = errors.New("invalid date range")

	errNotFetched = errors.New("detail not fetched")
)

// RideCache stores detail records for rides that can no longer change.
type RideCache interface {
	GetRide(ctx context.Context, id types.ID) (Ride, bool, error)
	PutRide(ctx context.Context, ride Ride) error
}

type Service struct {
	api       Getter
	collector *Collector
	cache     RideCache
	cfg       config.PlatformConfig
	log       *zap.Logger
}

// NewService wires the collector to api. cache may be nil.
func NewService(api Getter, cfg config.PlatformConfig, cache RideCache, log *zap.Logger) *Service {
	log = logger.OrNop(log)
	return &Service{
		api:       api,
		collector: NewCollector(api, cfg.PageDelay, log),
		cache:     cache,
		cfg:       cfg,
		log:       log,
	}
}

func (s *Service) Drivers(ctx context.Context, search string, progress Progress) ([]Driver, error) {
	raw, err := s.collector.FetchAll(ctx, ResourceDrivers, Filter{
		PerPage: s.cfg.DriversPerPage,
		Params: url.Values{
			"search":       {search},
			"sort_by":      {"drivers.id"},
			"sort_by_type": {"true"},
		},
		Progress: progress,
	})
	if err != nil {
		return nil, err
	}
	return decodeAll[Driver](raw)
}

func (s *Service) Routes(ctx context.Context, date string, progress Progress) ([]Route, error) {
	if err := ValidateDate(date); err != nil {
		return nil, err
	}
	raw, err := s.collector.FetchAll(ctx, ResourceRoutes, Filter{
		PerPage: s.cfg.RoutesPerPage,
		Params: url.Values{
			"statuses":      {""},
			"route_brokers": {""},
			"company_ids":   {""},
			"fleet_ids":     {""},
			"sort_by":       {"routes.id"},
			"sort_by_type":  {"true"},
			"from_datetime": {date + "T00:00"},
			"to_datetime":   {date + "T23:59"},
		},
		Progress: progress,
	})
	if err != nil {
		return nil, err
	}
	return decodeAll[Route](raw)
}

// Rides collects one calendar day of rides; no statuses means every status.
func (s *Service) Rides(ctx context.Context, date string, progress Progress, statuses ...Status) ([]Ride, error) {
	if err := ValidateDate(date); err != nil {
		return nil, err
	}
	raw, err := s.collector.FetchAll(ctx, ResourceRides, Filter{
		PerPage: s.cfg.RidesPerPage,
		Params: url.Values{
			"search":        {""},
			"sort_by":       {"rides.pickup_at"},
			"sort_by_type":  {"false"},
			"statuses":      {JoinStatuses(statuses)},
			"all_rides":     {"true"},
			"from_datetime": {date + "T00:00"},
			"to_datetime":   {date + "T23:59"},
			"filters":       {""},
		},
		Progress: progress,
	})
	if err != nil {
		return nil, err
	}
	return decodeAll[Ride](raw)
}

// RidesBetween collects each day in [from, to] in order and stops at the first failing day.
func (s *Service) RidesBetween(ctx context.Context, from, to string, statuses ...Status) ([]Ride, error) {
	days, err := Days(from, to)
	if err != nil {
		return nil, err
	}
	var all []Ride
	for _, d := range days {
		rides, err := s.Rides(ctx, d, nil, statuses...)
		if err != nil {
			return nil, fmt.Errorf("rides for %s: %w", d, err)
		}
		s.log.Info("collected day", zap.String("date", d), zap.Int("rides", len(rides)))
		all = append(all, rides...)
	}
	return all, nil
}

func (s *Service) RideDetail(ctx context.Context, id types.ID) (Ride, error) {
	if s.cache != nil {
		if r, ok, err := s.cache.GetRide(ctx, id); err != nil {
			s.log.Warn("ride cache read failed", zap.Int64("ride_id", int64(id)), zap.Error(err))
		} else if ok {
			return r, nil
		}
	}

	var body map[string]json.RawMessage
	if err := s.api.Get(ctx, fmt.Sprintf("/fleet/rides/%d", id), nil, &body); err != nil {
		return Ride{}, err
	}
	var r Ride
	if err := json.Unmarshal(unwrap(body, "ride"), &r); err != nil {
		return Ride{}, fmt.Errorf("decode ride %d: %w", id, err)
	}
	if r.ID == 0 {
		r.ID = id
	}
	if s.cache != nil && r.Status.IsTerminal() {
		if err := s.cache.PutRide(ctx, r); err != nil {
			s.log.Warn("ride cache write failed", zap.Int64("ride_id", int64(id)), zap.Error(err))
		}
	}
	return r, nil
}

// DriverDetail reads the driver record and, when the driver has a car, the car record. A
// failed car lookup keeps the car summary from the driver record.
func (s *Service) DriverDetail(ctx context.Context, id types.ID) (Driver, error) {
	var body map[string]json.RawMessage
	if err := s.api.Get(ctx, fmt.Sprintf("/fleet/drivers/%d", id), nil, &body); err != nil {
		return Driver{}, err
	}
	var d Driver
	if err := json.Unmarshal(unwrap(body, "driver"), &d); err != nil {
		return Driver{}, fmt.Errorf("decode driver %d: %w", id, err)
	}
	if d.ID == 0 {
		d.ID = id
	}
	if raw, ok := body["cars"]; ok && len(d.Cars) == 0 && !isNull(raw) {
		_ = json.Unmarshal(raw, &d.Cars)
	}
	if len(d.Cars) == 0 {
		return d, nil
	}

	first := d.Cars[0]
	d.Vehicle = &first
	if first.ID == 0 {
		return d, nil
	}
	var carBody map[string]json.RawMessage
	if err := s.api.Get(ctx, fmt.Sprintf("/fleet/cars/%d", first.ID), nil, &carBody); err != nil {
		s.log.Warn("car detail failed", zap.Int64("driver_id", int64(id)), zap.Int64("car_id", int64(first.ID)), zap.Error(err))
		return d, nil
	}
	var car Car
	if err := json.Unmarshal(unwrap(carBody, "car"), &car); err == nil {
		d.Vehicle = &car
	}
	return d, nil
}

// DriversWithDetails collects the driver list and then fetches every driver's detail on the
// worker pool. Output keeps list order.
func (s *Service) DriversWithDetails(ctx context.Context, progress Progress) ([]Driver, error) {
	drivers, err := s.Drivers(ctx, "", nil)
	if err != nil {
		return nil, err
	}
	out := make([]Driver, len(drivers))
	err = s.fanOut(ctx, len(drivers), progress, func(ctx context.Context, i int) error {
		d, err := s.DriverDetail(ctx, drivers[i].ID)
		if err != nil {
			return fmt.Errorf("driver %d: %w", drivers[i].ID, err)
		}
		out[i] = d
		return nil
	})
	if err != nil {
		return nil, err
	}
	return out, nil
}

// EnrichRides fetches every ride's detail and merges it over the list record. The first
// failure cancels outstanding fetches and is returned.
func (s *Service) EnrichRides(ctx context.Context, rides []Ride, progress Progress) ([]Ride, error) {
	out := make([]Ride, len(rides))
	err := s.fanOut(ctx, len(rides), progress, func(ctx context.Context, i int) error {
		detail, err := s.RideDetail(ctx, rides[i].ID)
		if err != nil {
			return fmt.Errorf("ride %d: %w", rides[i].ID, err)
		}
		out[i] = MergeDetail(rides[i], detail)
		return nil
	})
	if err != nil {
		return nil, err
	}
	return out, nil
}

// DetailFailure records a ride whose detail could not be read.
type DetailFailure struct {
	RideID types.ID
	Err    error
}

// TryEnrichRides is EnrichRides for callers that can skip rides: failed fetches are
// reported instead of aborting, and the enriched rides keep input order.
func (s *Service) TryEnrichRides(ctx context.Context, rides []Ride, progress Progress) ([]Ride, []DetailFailure) {
	out := make([]Ride, len(rides))
	errs := make([]error, len(rides))
	for i := range errs {
		errs[i] = errNotFetched
	}
	err := s.fanOut(ctx, len(rides), progress, func(ctx context.Context, i int) error {
		detail, err := s.RideDetail(ctx, rides[i].ID)
		if err != nil {
			errs[i] = err
			return nil
		}
		out[i] = MergeDetail(rides[i], detail)
		errs[i] = nil
		return nil
	})

	var ok []Ride
	var failed []DetailFailure
	for i := range rides {
		if errs[i] == errNotFetched && err != nil {
			errs[i] = err
		}
		if errs[i] != nil {
			failed = append(failed, DetailFailure{RideID: rides[i].ID, Err: errs[i]})
			continue
		}
		ok = append(ok, out[i])
	}
	return ok, failed
}

// fanOut runs fn for 0..n-1 on at most Workers goroutines. Each call owns index i, so
// results written by index need no locking.
func (s *Service) fanOut(ctx context.Context, n int, progress Progress, fn func(context.Context, int) error) error {
	workers := s.cfg.Workers
	if workers <= 0 {
		workers = 10
	}
	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(workers)

	var mu sync.Mutex
	done := 0
	for i := 0; i < n; i++ {
		g.Go(func() error {
			if err := gctx.Err(); err != nil {
				return err
			}
			if err := fn(gctx, i); err != nil {
				return err
			}
			if progress != nil {
				mu.Lock()
				done++
				progress(done, n)
				mu.Unlock()
			}
			return nil
		})
	}
	return g.Wait()
}

// ValidateDate checks a YYYY-MM-DD calendar date.
func ValidateDate(date string) error {
	if _, err := time.Parse(DateLayout, date); err != nil {
		return fmt.Errorf("%w: %q", ErrInvalidDate, date)
	}
	return nil
}

// Days lists every calendar date from from to to inclusive.
func Days(from, to string) ([]string, error) {
	start, err := time.Parse(DateLayout, from)
	if err != nil {
		return nil, fmt.Errorf("%w: %q", ErrInvalidDate, from)
	}
	end, err := time.Parse(DateLayout, to)
	if err != nil {
		return nil, fmt.Errorf("%w: %q", ErrInvalidDate, to)
	}
	if end.Before(start) {
		return nil, fmt.Errorf("%w: %s is after %s", ErrInvalidDateRange, from, to)
	}
	var days []string
	for d := start; !d.After(end); d = d.AddDate(0, 0, 1) {
		days = append(days, d.Format(DateLayout))
	}
	return days, nil
}

func unwrap(body map[string]json.RawMessage, key string) json.RawMessage {
	if inner, ok := body[key]; ok && !isNull(inner) {
		return inner
	}
	b, _ := json.Marshal(body)
	return b
}

func decodeAll[T any](raw []json.RawMessage) ([]T, error) {
	out := make([]T, 0, len(raw))
	for i, r := range raw {
		var v T
		if err := json.Unmarshal(r, &v); err != nil {
			return nil, fmt.Errorf("decode record %d: %w", i, err)
		}
		out = append(out, v)
	}
	return out, nil
}
