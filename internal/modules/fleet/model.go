// README: Fleet records (rides, drivers, cars, routes) with default-on-absence decoding.
package fleet

import (
	"errors"
	"fmt"
	"strings"

	"fleetops/internal/types"
)

type Status string

const (
	StatusPending        Status = "pending"
	StatusAssigned       Status = "assigned"
	StatusAccepted       Status = "accepted"
	StatusInProgress     Status = "in_progress"
	StatusFinished       Status = "finished"
	StatusNoShow         Status = "no_show"
	StatusDriverCanceled Status = "driver_canceled"
	StatusCanceled       Status = "canceled"
)

// IsTerminal reports whether the ride can no longer change, which makes its detail safe to cache.
func (s Status) IsTerminal() bool {
	switch s {
	case StatusFinished, StatusNoShow, StatusDriverCanceled, StatusCanceled:
		return true
	}
	return false
}

// IsFallbackPriced marks the statuses billed at a flat fee instead of the settled amount.
func (s Status) IsFallbackPriced() bool {
	return s == StatusNoShow || s == StatusDriverCanceled
}

var ErrUnknownStatus = errors.New("unknown ride status")

// ParseStatuses reads a comma list of status names. Blank input means every status.
func ParseStatuses(s string) ([]Status, error) {
	var out []Status
	for _, part := range strings.Split(s, ",") {
		st := Status(strings.ToLower(strings.TrimSpace(part)))
		switch st {
		case "":
			continue
		case StatusPending, StatusAssigned, StatusAccepted, StatusInProgress,
			StatusFinished, StatusNoShow, StatusDriverCanceled, StatusCanceled:
			out = append(out, st)
		default:
			return nil, fmt.Errorf("%w: %q", ErrUnknownStatus, part)
		}
	}
	return out, nil
}

// JoinStatuses renders the comma list the platform's statuses filter expects.
func JoinStatuses(statuses []Status) string {
	parts := make([]string, 0, len(statuses))
	for _, s := range statuses {
		if s != "" {
			parts = append(parts, string(s))
		}
	}
	return strings.Join(parts, ",")
}

type Event struct {
	Body string `json:"body"`
}

type Note struct {
	Label       string `json:"label"`
	Description string `json:"description"`
	Icon        string `json:"icon"`
}

// Ride mirrors the platform's ride record. Every field is optional upstream; absent values
// decode to their zero value.
type Ride struct {
	ID              types.ID    `json:"id"`
	Status          Status      `json:"status"`
	DriverID        *types.ID   `json:"driver_id"`
	PickupAt        string      `json:"pickup_at"`
	ScheduleTime    string      `json:"schedule_time,omitempty"`
	VendorAmount    types.Money `json:"vendor_amount"`
	Events          []Event     `json:"events"`
	Notes           []Note      `json:"notes"`
	DriverFirstName string      `json:"driver_first_name,omitempty"`
	DriverLastName  string      `json:"driver_last_name,omitempty"`
	FirstName       string      `json:"first_name,omitempty"`
	LastName        string      `json:"last_name,omitempty"`
	CustomerName    string      `json:"customer_name,omitempty"`
	StartAddress    string      `json:"start_address,omitempty"`
	PickupAddress   string      `json:"pickup_address,omitempty"`
	DestAddress     string      `json:"destination_address,omitempty"`
	DropoffAddress  string      `json:"dropoff_address,omitempty"`
}

// Pickup returns the scheduled pickup timestamp, falling back to schedule_time.
func (r Ride) Pickup() string {
	if r.PickupAt != "" {
		return r.PickupAt
	}
	return r.ScheduleTime
}

func (r Ride) HasDriver() bool {
	return r.DriverID != nil && *r.DriverID != 0
}

// AssignedTo reports whether the ride belongs to the given driver.
func (r Ride) AssignedTo(id types.ID) bool {
	return r.HasDriver() && *r.DriverID == id
}

func (r Ride) DriverName() string {
	return strings.TrimSpace(r.DriverFirstName + " " + r.DriverLastName)
}

func (r Ride) PassengerName() string {
	if n := strings.TrimSpace(r.FirstName + " " + r.LastName); n != "" {
		return n
	}
	return r.CustomerName
}

func (r Ride) From() string {
	if r.StartAddress != "" {
		return r.StartAddress
	}
	return r.PickupAddress
}

func (r Ride) To() string {
	if r.DestAddress != "" {
		return r.DestAddress
	}
	return r.DropoffAddress
}

// MergeDetail overlays a detail record on the list record it was fetched for. Fields the
// detail leaves empty keep the list value.
func MergeDetail(list, detail Ride) Ride {
	out := list
	if detail.ID != 0 {
		out.ID = detail.ID
	}
	if detail.Status != "" {
		out.Status = detail.Status
	}
	if detail.DriverID != nil {
		out.DriverID = detail.DriverID
	}
	out.PickupAt = firstNonEmpty(detail.PickupAt, list.PickupAt)
	out.ScheduleTime = firstNonEmpty(detail.ScheduleTime, list.ScheduleTime)
	if detail.VendorAmount != 0 {
		out.VendorAmount = detail.VendorAmount
	}
	if len(detail.Events) > 0 {
		out.Events = detail.Events
	}
	if len(detail.Notes) > 0 {
		out.Notes = detail.Notes
	}
	out.DriverFirstName = firstNonEmpty(detail.DriverFirstName, list.DriverFirstName)
	out.DriverLastName = firstNonEmpty(detail.DriverLastName, list.DriverLastName)
	out.FirstName = firstNonEmpty(detail.FirstName, list.FirstName)
	out.LastName = firstNonEmpty(detail.LastName, list.LastName)
	out.CustomerName = firstNonEmpty(detail.CustomerName, list.CustomerName)
	out.StartAddress = firstNonEmpty(detail.StartAddress, list.StartAddress)
	out.PickupAddress = firstNonEmpty(detail.PickupAddress, list.PickupAddress)
	out.DestAddress = firstNonEmpty(detail.DestAddress, list.DestAddress)
	out.DropoffAddress = firstNonEmpty(detail.DropoffAddress, list.DropoffAddress)
	return out
}

type Car struct {
	ID          types.ID `json:"id"`
	Make        string   `json:"make"`
	Model       string   `json:"model"`
	Color       string   `json:"color"`
	PlateNumber string   `json:"plate_number"`
	VIN         string   `json:"vin"`
}

type Driver struct {
	ID        types.ID `json:"id"`
	FirstName string   `json:"first_name"`
	LastName  string   `json:"last_name"`
	Name      string   `json:"name,omitempty"`
	Email     string   `json:"email"`
	Phone     string   `json:"phone"`
	Status    string   `json:"status"`
	City      string   `json:"address_city,omitempty"`
	State     string   `json:"address_state,omitempty"`
	License   string   `json:"driver_license_number,omitempty"`
	Cars      []Car    `json:"cars,omitempty"`
	// Vehicle is filled by DriverDetail from the car endpoint.
	Vehicle *Car `json:"vehicle,omitempty"`
}

func (d Driver) FullName() string {
	if n := strings.TrimSpace(d.FirstName + " " + d.LastName); n != "" {
		return n
	}
	return d.Name
}

type Route struct {
	ID             types.ID  `json:"id"`
	DriverID       *types.ID `json:"driver_id"`
	DriverFullName string    `json:"driver_full_name,omitempty"`
	DriverName     string    `json:"driver_name,omitempty"`
	Status         string    `json:"status"`
	Requested      string    `json:"requested,omitempty"`
	StartTime      string    `json:"start_time,omitempty"`
	FromDatetime   string    `json:"from_datetime,omitempty"`
	EndTime        string    `json:"end_time,omitempty"`
	ToDatetime     string    `json:"to_datetime,omitempty"`
}

func (r Route) Driver() string {
	return firstNonEmpty(r.DriverFullName, r.DriverName)
}

func (r Route) Start() string {
	return firstNonEmpty(r.Requested, r.StartTime, r.FromDatetime)
}

func (r Route) End() string {
	return firstNonEmpty(r.EndTime, r.ToDatetime)
}

func firstNonEmpty(vals ...string) string {
	for _, v := range vals {
		if v != "" {
			return v
		}
	}
	return ""
}
