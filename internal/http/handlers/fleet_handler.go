// README: Read-only fleet handlers: drivers, rides with price breakdown, schedules.
package handlers

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"fleetops/internal/modules/fleet"
	"fleetops/internal/modules/pricing"
)

type FleetHandler struct {
	session Session
}

func NewFleetHandler(session Session) *FleetHandler {
	return &FleetHandler{session: session}
}

// ListDrivers collects every driver; details=true also fetches driver and car detail.
func (h *FleetHandler) ListDrivers(c *gin.Context) {
	st := h.session.Current()
	var (
		drivers []fleet.Driver
		err     error
	)
	if queryBool(c, "details") {
		drivers, err = st.Fleet.DriversWithDetails(c.Request.Context(), nil)
	} else {
		drivers, err = st.Fleet.Drivers(c.Request.Context(), c.Query("search"), nil)
	}
	if err != nil {
		writeServiceError(c, err)
		return
	}
	writeJSON(c, http.StatusOK, gin.H{"drivers": drivers, "count": len(drivers)})
}

func (h *FleetHandler) GetDriver(c *gin.Context) {
	id, ok := pathID(c, "id")
	if !ok {
		return
	}
	d, err := h.session.Current().Fleet.DriverDetail(c.Request.Context(), id)
	if err != nil {
		writeServiceError(c, err)
		return
	}
	writeJSON(c, http.StatusOK, gin.H{"driver": d})
}

// ListRides collects one day of rides. enrich=true merges ride detail and adds the
// reconstructed price breakdown.
func (h *FleetHandler) ListRides(c *gin.Context) {
	date := c.Query("date")
	if date == "" {
		writeError(c, http.StatusBadRequest, "missing date")
		return
	}
	statuses, err := fleet.ParseStatuses(c.Query("statuses"))
	if err != nil {
		writeServiceError(c, err)
		return
	}
	st := h.session.Current()
	ctx := c.Request.Context()
	rides, err := st.Fleet.Rides(ctx, date, nil, statuses...)
	if err != nil {
		writeServiceError(c, err)
		return
	}
	if !queryBool(c, "enrich") {
		writeJSON(c, http.StatusOK, gin.H{"date": date, "rides": rides, "count": len(rides)})
		return
	}
	enriched, err := st.Fleet.EnrichRides(ctx, rides, nil)
	if err != nil {
		writeServiceError(c, err)
		return
	}
	priced := pricing.ReconstructAll(enriched)
	writeJSON(c, http.StatusOK, gin.H{"date": date, "rides": priced, "count": len(priced)})
}

func (h *FleetHandler) GetRide(c *gin.Context) {
	id, ok := pathID(c, "id")
	if !ok {
		return
	}
	r, err := h.session.Current().Fleet.RideDetail(c.Request.Context(), id)
	if err != nil {
		writeServiceError(c, err)
		return
	}
	writeJSON(c, http.StatusOK, gin.H{"ride": pricing.Reconstruct(r)})
}

func (h *FleetHandler) Schedules(c *gin.Context) {
	date := c.Query("date")
	if date == "" {
		writeError(c, http.StatusBadRequest, "missing date")
		return
	}
	out, err := h.session.Current().Schedule.ForDate(c.Request.Context(), date)
	if err != nil {
		writeServiceError(c, err)
		return
	}
	writeJSON(c, http.StatusOK, gin.H{"date": date, "drivers": out})
}
