// README: Billing aggregation over priced rides, grouped by driver.
package billing

import (
	"sort"

	"fleetops/internal/modules/fleet"
	"fleetops/internal/modules/pricing"
	"fleetops/internal/types"
)

// Aggregate groups rides by driver. Rides without a driver are left out. Totals use the
// settled vendor amount, or FlatFee for no-show and driver-canceled rides. Rides are sorted
// by id first, so the result does not depend on enrichment order.
func Aggregate(priced []pricing.PricedRide) map[types.ID]*DriverBilling {
	sorted := make([]pricing.PricedRide, len(priced))
	copy(sorted, priced)
	sort.SliceStable(sorted, func(i, j int) bool { return sorted[i].ID < sorted[j].ID })

	out := make(map[types.ID]*DriverBilling)
	for _, p := range sorted {
		if !p.HasDriver() {
			continue
		}
		id := *p.DriverID
		b, ok := out[id]
		if !ok {
			b = &DriverBilling{DriverID: id}
			out[id] = b
		}
		if b.DriverName == "" {
			b.DriverName = p.DriverName()
		}

		switch p.Status {
		case fleet.StatusFinished:
			b.FinishedCount++
		case fleet.StatusNoShow:
			b.NoShowCount++
		case fleet.StatusDriverCanceled:
			b.DriverCanceledCount++
		}
		if p.Status.IsFallbackPriced() {
			b.TotalAmount += FlatFee
		} else {
			b.TotalAmount += p.VendorAmount
		}
		b.Rides = append(b.Rides, p)
	}
	return out
}

// SortedDrivers flattens an aggregation in driver id order.
func SortedDrivers(m map[types.ID]*DriverBilling) []DriverBilling {
	out := make([]DriverBilling, 0, len(m))
	for _, b := range m {
		out = append(out, *b)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].DriverID < out[j].DriverID })
	return out
}

// RideBreakdown is one ride's export columns. Fallback-priced rides show their fee in the
// no-show column only, so income does not count it twice.
func RideBreakdown(p pricing.PricedRide) Breakdown {
	if p.Status.IsFallbackPriced() {
		return Breakdown{NoShowFee: p.NoShowFee()}
	}
	return Breakdown{OrderPrice: p.OrderPrice, CoPay: p.CoPay, TollFee: p.TollFee}
}

func DriverBreakdown(b DriverBilling) Breakdown {
	var sum Breakdown
	for _, r := range b.Rides {
		sum.add(RideBreakdown(r))
	}
	return sum
}

func computeTotals(drivers []DriverBilling) Totals {
	t := Totals{Drivers: len(drivers)}
	for _, d := range drivers {
		t.Rides += len(d.Rides)
		t.Finished += d.FinishedCount
		t.NoShow += d.NoShowCount
		t.DriverCanceled += d.DriverCanceledCount
		t.Amount += d.TotalAmount
		t.Breakdown.add(DriverBreakdown(d))
	}
	return t
}
