// README: Billing service: collect, enrich, price and aggregate a date range.
package billing

import (
	"context"
	"errors"
	"time"

	"go.uber.org/zap"

	"fleetops/internal/logger"
	"fleetops/internal/modules/fleet"
	"fleetops/internal/modules/pricing"
)

// RideSource is the part of the fleet service billing reads from.
type RideSource interface {
	RidesBetween(ctx context.Context, from, to string, statuses ...fleet.Status) ([]fleet.Ride, error)
	EnrichRides(ctx context.Context, rides []fleet.Ride, progress fleet.Progress) ([]fleet.Ride, error)
}

// ErrReportNotFound is returned for an archived report id with no stored rows.
var ErrReportNotFound = errors.New("billing report not found")

// ReportStore archives generated reports.
type ReportStore interface {
	SaveReport(ctx context.Context, r *Report) error
	ListReports(ctx context.Context, limit int) ([]ReportSummary, error)
	DriverTotals(ctx context.Context, reportID int64) ([]DriverBilling, error)
}

// BilledStatuses are the ride statuses a billing run collects.
var BilledStatuses = []fleet.Status{fleet.StatusFinished, fleet.StatusNoShow, fleet.StatusDriverCanceled}

type Service struct {
	rides RideSource
	store ReportStore
	log   *zap.Logger
	now   func() time.Time
}

// NewService builds a billing service; store may be nil to skip archiving.
func NewService(rides RideSource, store ReportStore, log *zap.Logger) *Service {
	return &Service{rides: rides, store: store, log: logger.OrNop(log), now: time.Now}
}

// Generate builds the report for [from, to]. Any collection or enrichment failure aborts
// the run; an archive failure is logged and the report is still returned.
func (s *Service) Generate(ctx context.Context, from, to string, progress fleet.Progress) (*Report, error) {
	if _, err := fleet.Days(from, to); err != nil {
		return nil, err
	}
	rides, err := s.rides.RidesBetween(ctx, from, to, BilledStatuses...)
	if err != nil {
		return nil, err
	}
	s.log.Info("billing rides collected", zap.String("from", from), zap.String("to", to), zap.Int("rides", len(rides)))

	enriched, err := s.rides.EnrichRides(ctx, rides, progress)
	if err != nil {
		return nil, err
	}
	drivers := SortedDrivers(Aggregate(pricing.ReconstructAll(enriched)))
	report := &Report{
		From:        from,
		To:          to,
		GeneratedAt: s.now().UTC(),
		Drivers:     drivers,
		Totals:      computeTotals(drivers),
	}
	s.log.Info("billing report generated",
		zap.Int("drivers", report.Totals.Drivers),
		zap.Int("rides", report.Totals.Rides),
		zap.String("amount", report.Totals.Amount.String()))

	if s.store != nil {
		if err := s.store.SaveReport(ctx, report); err != nil {
			s.log.Warn("billing report archive failed", zap.Error(err))
		}
	}
	return report, nil
}

// History lists archived reports, newest first. It returns nothing when no store is set.
func (s *Service) History(ctx context.Context, limit int) ([]ReportSummary, error) {
	if s.store == nil {
		return nil, nil
	}
	if limit <= 0 {
		limit = 20
	}
	return s.store.ListReports(ctx, limit)
}

// ArchivedDrivers returns the stored per-driver totals of report id.
func (s *Service) ArchivedDrivers(ctx context.Context, id int64) ([]DriverBilling, error) {
	if s.store == nil {
		return nil, ErrReportNotFound
	}
	drivers, err := s.store.DriverTotals(ctx, id)
	if err != nil {
		return nil, err
	}
	if len(drivers) == 0 {
		return nil, ErrReportNotFound
	}
	return drivers, nil
}
