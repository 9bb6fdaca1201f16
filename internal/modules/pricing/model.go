// README: Priced ride: the four billing figures reconstructed from a ride's text fields.
package pricing

import (
	"fleetops/internal/modules/fleet"
	"fleetops/internal/types"
)

// FallbackFee is charged for no-show and driver-canceled rides in the per-ride breakdown.
// Billing roll-ups carry their own flat fee.
var FallbackFee = types.Dollars(5)

type PricedRide struct {
	fleet.Ride
	OriginalPrice types.Money `json:"original_price"`
	CoPay         types.Money `json:"co_pay"`
	OrderPrice    types.Money `json:"order_price"`
	TollFee       types.Money `json:"toll_fee"`
	// HasNotesPrice is true when an event quoted the reserved price.
	HasNotesPrice bool `json:"has_notes_price"`
	// CoPayNote is the note the co-pay was read from, kept for audit.
	CoPayNote *fleet.Note `json:"co_pay_note,omitempty"`
}

// NoShowFee is the fee column of the export: the fallback fee for fallback-priced rides.
func (p PricedRide) NoShowFee() types.Money {
	if p.Status.IsFallbackPriced() {
		return p.OrderPrice
	}
	return 0
}
