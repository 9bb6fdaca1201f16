// README: Billing report types: per-driver roll-ups and grand totals.
package billing

import (
	"time"

	"fleetops/internal/modules/pricing"
	"fleetops/internal/types"
)

// FlatFee is what a no-show or driver-canceled ride adds to a driver's total. It is kept
// apart from pricing.FallbackFee; the two conventions only happen to agree today.
var FlatFee = types.Dollars(5)

type DriverBilling struct {
	DriverID            types.ID             `json:"driver_id"`
	DriverName          string               `json:"driver_name"`
	FinishedCount       int                  `json:"finished_count"`
	NoShowCount         int                  `json:"no_show_count"`
	DriverCanceledCount int                  `json:"driver_canceled_count"`
	TotalAmount         types.Money          `json:"total_amount"`
	Rides               []pricing.PricedRide `json:"rides"`
}

// Breakdown sums the per-ride export columns.
type Breakdown struct {
	OrderPrice types.Money `json:"order_price"`
	NoShowFee  types.Money `json:"no_show_fee"`
	CoPay      types.Money `json:"co_pay"`
	TollFee    types.Money `json:"toll_fee"`
}

// Income is the export's total: order price, no-show fees, co-pay and toll.
func (b Breakdown) Income() types.Money {
	return b.OrderPrice + b.NoShowFee + b.CoPay + b.TollFee
}

func (b *Breakdown) add(o Breakdown) {
	b.OrderPrice += o.OrderPrice
	b.NoShowFee += o.NoShowFee
	b.CoPay += o.CoPay
	b.TollFee += o.TollFee
}

type Totals struct {
	Drivers        int         `json:"drivers"`
	Rides          int         `json:"rides"`
	Finished       int         `json:"finished"`
	NoShow         int         `json:"no_show"`
	DriverCanceled int         `json:"driver_canceled"`
	Amount         types.Money `json:"amount"`
	Breakdown
}

type Report struct {
	ID          int64           `json:"id,omitempty"`
	From        string          `json:"from"`
	To          string          `json:"to"`
	GeneratedAt time.Time       `json:"generated_at"`
	Drivers     []DriverBilling `json:"drivers"`
	Totals      Totals          `json:"totals"`
}

// ReportSummary is the archived header of a report.
type ReportSummary struct {
	ID          int64       `json:"id"`
	From        string      `json:"from"`
	To          string      `json:"to"`
	GeneratedAt time.Time   `json:"generated_at"`
	Drivers     int         `json:"drivers"`
	Rides       int         `json:"rides"`
	Amount      types.Money `json:"amount"`
}
