// README: Flat export rows (per ride, per driver summary, grand total) and CSV output.
package billing

import (
	"encoding/csv"
	"io"
	"strconv"
)

type RowKind string

const (
	RowRide    RowKind = "ride"
	RowSummary RowKind = "summary"
	RowTotal   RowKind = "total"
)

// Row is one line of the billing export.
type Row struct {
	Kind          RowKind `json:"kind"`
	DriverName    string  `json:"driver_name"`
	FinishedCount int     `json:"finished_count,omitempty"`
	Income        string  `json:"income,omitempty"`
	TotalAmount   string  `json:"total_amount,omitempty"`
	RideID        string  `json:"ride_id,omitempty"`
	PickupAt      string  `json:"pickup_at,omitempty"`
	From          string  `json:"from,omitempty"`
	To            string  `json:"to,omitempty"`
	Passenger     string  `json:"passenger,omitempty"`
	OrderPrice    string  `json:"order_price"`
	NoShowFee     string  `json:"no_show_fee"`
	CoPay         string  `json:"co_pay"`
	TollFee       string  `json:"toll_fee"`
	Status        string  `json:"status,omitempty"`
	HasNotesPrice string  `json:"has_notes_price,omitempty"`
}

var header = []string{
	"driver_name", "finished_count", "income", "total_amount", "ride_id", "pickup_at",
	"from", "to", "passenger", "order_price", "no_show_fee", "co_pay", "toll_fee",
	"status", "has_notes_price",
}

// Rows lays the report out driver by driver: every ride, then the driver's summary, and a
// grand total last.
func Rows(r *Report) []Row {
	var rows []Row
	for _, d := range r.Drivers {
		for _, p := range d.Rides {
			b := RideBreakdown(p)
			rows = append(rows, Row{
				Kind:          RowRide,
				DriverName:    d.DriverName,
				RideID:        p.ID.String(),
				PickupAt:      p.Pickup(),
				From:          p.From(),
				To:            p.To(),
				Passenger:     p.PassengerName(),
				OrderPrice:    b.OrderPrice.String(),
				NoShowFee:     b.NoShowFee.String(),
				CoPay:         b.CoPay.String(),
				TollFee:       b.TollFee.String(),
				Status:        string(p.Status),
				HasNotesPrice: strconv.FormatBool(p.HasNotesPrice),
			})
		}
		sum := DriverBreakdown(d)
		rows = append(rows, Row{
			Kind:          RowSummary,
			DriverName:    d.DriverName,
			FinishedCount: d.FinishedCount,
			Income:        sum.Income().String(),
			TotalAmount:   d.TotalAmount.String(),
			OrderPrice:    sum.OrderPrice.String(),
			NoShowFee:     sum.NoShowFee.String(),
			CoPay:         sum.CoPay.String(),
			TollFee:       sum.TollFee.String(),
		})
	}
	t := r.Totals
	rows = append(rows, Row{
		Kind:          RowTotal,
		DriverName:    "TOTAL",
		FinishedCount: t.Finished,
		Income:        t.Income().String(),
		TotalAmount:   t.Amount.String(),
		OrderPrice:    t.OrderPrice.String(),
		NoShowFee:     t.NoShowFee.String(),
		CoPay:         t.CoPay.String(),
		TollFee:       t.TollFee.String(),
	})
	return rows
}

func WriteCSV(w io.Writer, r *Report) error {
	cw := csv.NewWriter(w)
	if err := cw.Write(header); err != nil {
		return err
	}
	for _, row := range Rows(r) {
		finished := ""
		if row.Kind != RowRide {
			finished = strconv.Itoa(row.FinishedCount)
		}
		if err := cw.Write([]string{
			row.DriverName, finished, row.Income, row.TotalAmount, row.RideID, row.PickupAt,
			row.From, row.To, row.Passenger, row.OrderPrice, row.NoShowFee, row.CoPay, row.TollFee,
			row.Status, row.HasNotesPrice,
		}); err != nil {
			return err
		}
	}
	cw.Flush()
	return cw.Error()
}
