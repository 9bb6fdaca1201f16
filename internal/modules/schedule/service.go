// README: Schedule service: collect a day's routes and group them per driver.
package schedule

import (
	"context"
	"sort"

	"go.uber.org/zap"

	"fleetops/internal/logger"
	"fleetops/internal/modules/fleet"
)

// RouteSource is the fleet read the schedule report needs.
type RouteSource interface {
	Routes(ctx context.Context, date string, progress fleet.Progress) ([]fleet.Route, error)
}

type Service struct {
	routes RouteSource
	log    *zap.Logger
}

func NewService(routes RouteSource, log *zap.Logger) *Service {
	return &Service{routes: routes, log: logger.OrNop(log)}
}

func (s *Service) ForDate(ctx context.Context, date string) ([]DriverSchedule, error) {
	routes, err := s.routes.Routes(ctx, date, nil)
	if err != nil {
		return nil, err
	}
	out := Summarize(routes)
	s.log.Info("schedules summarized", zap.String("date", date), zap.Int("routes", len(routes)), zap.Int("drivers", len(out)))
	return out, nil
}

// Summarize groups routes by driver id, or by driver name when the id is missing. Routes
// with neither are skipped. Timestamps compare as strings, which orders the platform's
// ISO-style values correctly. Output is sorted by route count, most first, then driver id.
func Summarize(routes []fleet.Route) []DriverSchedule {
	index := make(map[string]int)
	var out []DriverSchedule

	for _, r := range routes {
		name := r.Driver()
		var key string
		switch {
		case r.DriverID != nil && *r.DriverID != 0:
			key = "id:" + r.DriverID.String()
		case name != "":
			key = "name:" + name
		default:
			continue
		}

		i, ok := index[key]
		if !ok {
			d := DriverSchedule{DriverName: name, Statuses: make(map[string]int)}
			if r.DriverID != nil {
				d.DriverID = *r.DriverID
			}
			out = append(out, d)
			i = len(out) - 1
			index[key] = i
		}
		d := &out[i]
		if d.DriverName == "" {
			d.DriverName = name
		}
		d.TotalRoutes++
		d.RouteIDs = append(d.RouteIDs, r.ID)
		if start := r.Start(); start != "" && (d.EarliestStart == "" || start < d.EarliestStart) {
			d.EarliestStart = start
		}
		if end := r.End(); end != "" && end > d.LatestEnd {
			d.LatestEnd = end
		}
		if r.Status != "" {
			d.Statuses[r.Status]++
		}
	}

	sort.SliceStable(out, func(i, j int) bool {
		if out[i].TotalRoutes != out[j].TotalRoutes {
			return out[i].TotalRoutes > out[j].TotalRoutes
		}
		return out[i].DriverID < out[j].DriverID
	})
	return out
}
