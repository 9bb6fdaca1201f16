// README: Time-window ride matcher: selects a driver's rides by local pickup clock time.
package matching

import (
	"strings"
	"time"

	"fleetops/internal/modules/fleet"
	"fleetops/internal/modules/pricing"
	"fleetops/internal/types"
)

// Offset layouts beyond RFC 3339: minute precision and offsets without a colon.
var offsetLayouts = []string{
	time.RFC3339Nano,
	"2006-01-02T15:04Z07:00",
	"2006-01-02T15:04:05Z0700",
	"2006-01-02T15:04:05.999999999Z0700",
	"2006-01-02T15:04Z0700",
	"2006-01-02 15:04:05Z07:00",
}

// Local-clock layouts the platform uses when it omits an offset.
var localLayouts = []string{
	"2006-01-02 15:04:05",
	"2006-01-02T15:04:05",
	"2006-01-02 15:04",
	"2006-01-02T15:04",
}

type Matcher struct {
	loc *time.Location
}

// NewMatcher compares pickups on loc's wall clock. A nil loc means UTC.
func NewMatcher(loc *time.Location) *Matcher {
	if loc == nil {
		loc = time.UTC
	}
	return &Matcher{loc: loc}
}

func (m *Matcher) Location() *time.Location {
	return m.loc
}

// Match returns driverID's rides whose pickup falls in tr, in input order. Rides without a
// pickup are kept. A pickup that is present but unreadable drops the ride, since its clock
// time cannot be placed inside the window.
// date is not compared; rides are expected to be collected for that day already.
func (m *Matcher) Match(rides []fleet.Ride, driverID types.ID, date string, tr TimeRange) []fleet.Ride {
	var out []fleet.Ride
	for _, r := range rides {
		if !r.AssignedTo(driverID) {
			continue
		}
		ts := r.Pickup()
		if strings.TrimSpace(ts) == "" {
			out = append(out, r)
			continue
		}
		if hhmm, ok := m.Clock(ts); ok && tr.Contains(hhmm) {
			out = append(out, r)
		}
	}
	return out
}

// InWindow keeps rides of any driver whose pickup is known and inside tr.
func (m *Matcher) InWindow(rides []fleet.Ride, tr TimeRange) []fleet.Ride {
	var out []fleet.Ride
	for _, r := range rides {
		if hhmm, ok := m.Clock(r.Pickup()); ok && tr.Contains(hhmm) {
			out = append(out, r)
		}
	}
	return out
}

// Clock formats a pickup timestamp as local HH:MM. ok is false when ts is empty or unreadable.
func (m *Matcher) Clock(ts string) (string, bool) {
	t, ok := m.ParsePickup(ts)
	if !ok {
		return "", false
	}
	return t.Format("15:04"), true
}

// ParsePickup reads an ISO 8601 timestamp with offset (converted to the matcher's zone) or a local
// clock timestamp without offset.
func (m *Matcher) ParsePickup(ts string) (time.Time, bool) {
	ts = strings.TrimSpace(ts)
	if ts == "" {
		return time.Time{}, false
	}
	for _, layout := range offsetLayouts {
		if t, err := time.Parse(layout, ts); err == nil {
			return t.In(m.loc), true
		}
	}
	for _, layout := range localLayouts {
		if t, err := time.ParseInLocation(layout, ts, m.loc); err == nil {
			return t, true
		}
	}
	return time.Time{}, false
}

// FilterByMinPrice keeps rides whose settled amount is at least floor, in input order.
func FilterByMinPrice(rides []pricing.PricedRide, floor types.Money) []pricing.PricedRide {
	var out []pricing.PricedRide
	for _, r := range rides {
		if r.VendorAmount >= floor {
			out = append(out, r)
		}
	}
	return out
}
