// README: Per-driver work-schedule statistics derived from a day's routes.
package schedule

import "fleetops/internal/types"

// DriverSchedule summarizes one driver's routes. DriverID is zero when the routes only
// carried a driver name.
type DriverSchedule struct {
	DriverID      types.ID       `json:"driver_id,omitempty"`
	DriverName    string         `json:"driver_name"`
	TotalRoutes   int            `json:"total_routes"`
	EarliestStart string         `json:"earliest_start,omitempty"`
	LatestEnd     string         `json:"latest_end,omitempty"`
	Statuses      map[string]int `json:"statuses"`
	RouteIDs      []types.ID     `json:"route_ids"`
}

// WorkHours renders the start~end span the way the schedule report prints it.
func (d DriverSchedule) WorkHours() string {
	start, end := d.EarliestStart, d.LatestEnd
	if start == "" {
		start = "N/A"
	}
	if end == "" {
		end = "N/A"
	}
	return start + " ~ " + end
}
