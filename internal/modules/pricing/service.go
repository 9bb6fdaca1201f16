// README: Price reconstruction from vendor amount, reservation events and co-pay notes.
package pricing

import (
	"regexp"
	"strings"

	"fleetops/internal/modules/fleet"
	"fleetops/internal/types"
)

var (
	reservedPriceRe = regexp.MustCompile(`(?i)reserved.*for\s+\$([0-9]+\.?[0-9]*)`)
	dollarAmountRe  = regexp.MustCompile(`\$([0-9]+\.?[0-9]*)`)
)

// Reconstruct derives the ride's original price, co-pay, order price and toll. It never
// fails: missing or unreadable fields count as zero.
func Reconstruct(ride fleet.Ride) PricedRide {
	p := PricedRide{Ride: ride}
	gross := ride.VendorAmount

	notesPrice := NotesPrice(ride.Events)
	p.HasNotesPrice = notesPrice > 0
	coPay, note := CoPay(ride.Notes)

	switch {
	case ride.Status.IsFallbackPriced():
		p.OriginalPrice = FallbackFee
		p.OrderPrice = FallbackFee
	case notesPrice == 0:
		p.CoPay, p.CoPayNote = coPay, note
		p.OriginalPrice = gross
		p.OrderPrice = gross - coPay
	default:
		p.CoPay, p.CoPayNote = coPay, note
		p.OriginalPrice = notesPrice
		p.OrderPrice = notesPrice - coPay
		p.TollFee = gross - p.OrderPrice
	}
	return p
}

// ReconstructAll prices rides in input order.
func ReconstructAll(rides []fleet.Ride) []PricedRide {
	out := make([]PricedRide, len(rides))
	for i, r := range rides {
		out[i] = Reconstruct(r)
	}
	return out
}

// NotesPrice returns the amount of the first "reserved ... for $X" event, or 0.
func NotesPrice(events []fleet.Event) types.Money {
	for _, e := range events {
		m := reservedPriceRe.FindStringSubmatch(e.Body)
		if m == nil {
			continue
		}
		if amt, err := types.ParseAmount(m[1]); err == nil {
			return amt
		}
	}
	return 0
}

// CoPay returns the amount and note of the first note whose label carries a dollar amount
// and that is marked private or asks the driver to collect cash.
func CoPay(notes []fleet.Note) (types.Money, *fleet.Note) {
	for i := range notes {
		n := notes[i]
		if !qualifiesAsCoPay(n) {
			continue
		}
		m := dollarAmountRe.FindStringSubmatch(n.Label)
		if m == nil {
			continue
		}
		amt, err := types.ParseAmount(m[1])
		if err != nil {
			continue
		}
		return amt, &n
	}
	return 0, nil
}

func qualifiesAsCoPay(n fleet.Note) bool {
	if n.Icon == "private" {
		return true
	}
	desc := strings.ToLower(n.Description)
	return strings.Contains(desc, "collect") || strings.Contains(desc, "cash")
}
