// README: Auto-revive monitor: cancels configured drivers' rides a fixed lead before pickup.
package dispatch

import (
	"context"
	"time"

	"go.uber.org/zap"

	"fleetops/internal/config"
	"fleetops/internal/logger"
	"fleetops/internal/modules/fleet"
	"fleetops/internal/modules/matching"
	"fleetops/internal/types"
)

// MonitorReason is the cancel reason the monitor sends.
const MonitorReason = "Driver Cancel"

// Notifier hears about every cancel the monitor issued, successful or not. Retryable
// failures are not reported until a later tick settles them.
type Notifier interface {
	MonitorAction(ctx context.Context, driverID types.ID, ride fleet.Ride, out Outcome) error
}

// Backend hands out the ride source and executor for one tick. Both must be bound to the
// same platform credential; the monitor asks once per tick and uses that pair throughout.
type Backend func() (RideSource, *Executor)

type Monitor struct {
	notifier  Notifier
	backend   Backend
	matcher   *matching.Matcher
	processed ProcessedStore
	cfg       config.MonitorConfig
	log       *zap.Logger
	now       func() time.Time
}

func NewMonitor(backend Backend, matcher *matching.Matcher, processed ProcessedStore, cfg config.MonitorConfig, log *zap.Logger) *Monitor {
	if processed == nil {
		processed = NewMemoryStore()
	}
	return &Monitor{
		backend:   backend,
		matcher:   matcher,
		processed: processed,
		cfg:       cfg,
		log:       logger.OrNop(log),
		now:       time.Now,
	}
}

// SetNotifier attaches n; nil turns notifications off.
func (m *Monitor) SetNotifier(n Notifier) {
	m.notifier = n
}

// Run checks on every Interval until ctx is done.
func (m *Monitor) Run(ctx context.Context) {
	interval := m.cfg.Interval
	if interval <= 0 {
		interval = 30 * time.Second
	}
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	m.log.Info("auto-revive monitor started",
		zap.Int("drivers", len(m.cfg.DriverIDs)),
		zap.Int("lead_minutes", m.cfg.LeadMinutes),
		zap.Duration("interval", interval))
	m.Tick(ctx)
	for {
		select {
		case <-ctx.Done():
			m.log.Info("auto-revive monitor stopped")
			return
		case <-ticker.C:
			m.Tick(ctx)
		}
	}
}

// Tick runs one pass over every configured driver and returns the outcomes of the cancels
// it issued. One driver's failure does not stop the others.
func (m *Monitor) Tick(ctx context.Context) []Outcome {
	now := m.now().In(m.matcher.Location())
	today := now.Format(fleet.DateLayout)
	lead := time.Duration(m.cfg.LeadMinutes) * time.Minute

	source, exec := m.backend()
	rides, err := source.Rides(ctx, today, nil, fleet.StatusAssigned, fleet.StatusAccepted)
	if err != nil {
		m.log.Warn("monitor collection failed", zap.String("date", today), zap.Error(err))
		return nil
	}

	var outcomes []Outcome
	for _, driverID := range m.cfg.DriverIDs {
		outcomes = append(outcomes, m.checkDriver(ctx, exec, driverID, rides, now, lead)...)
	}
	return outcomes
}

func (m *Monitor) checkDriver(ctx context.Context, exec *Executor, driverID types.ID, rides []fleet.Ride, now time.Time, lead time.Duration) []Outcome {
	var outcomes []Outcome
	for _, r := range rides {
		if !r.AssignedTo(driverID) {
			continue
		}
		pickup, ok := m.matcher.ParsePickup(r.Pickup())
		if !ok {
			continue
		}
		// not yet inside the lead window
		if pickup.Sub(now) > lead {
			continue
		}

		first, err := m.processed.Claim(ctx, r.ID)
		if err != nil {
			m.log.Warn("monitor dedupe failed", zap.Int64("ride_id", int64(r.ID)), zap.Error(err))
			continue
		}
		if !first {
			continue
		}

		o := exec.Execute(ctx, Request{Kind: KindCancel, RideID: r.ID, DriverID: driverID, Reason: MonitorReason})
		if !o.OK() && o.Retryable {
			// transport failures are tried again next tick
			if err := m.processed.Release(ctx, r.ID); err != nil {
				m.log.Warn("monitor release failed", zap.Int64("ride_id", int64(r.ID)), zap.Error(err))
			}
		} else if m.notifier != nil {
			if err := m.notifier.MonitorAction(ctx, driverID, r, o); err != nil {
				m.log.Warn("monitor notification failed", zap.Int64("ride_id", int64(r.ID)), zap.Error(err))
			}
		}
		m.log.Info("auto-revive",
			zap.Int64("driver_id", int64(driverID)),
			zap.Int64("ride_id", int64(r.ID)),
			zap.Time("pickup", pickup),
			zap.String("status", string(o.Status)),
			zap.String("detail", o.Detail))
		outcomes = append(outcomes, o)
	}
	return outcomes
}
