// README: Dispatch handlers: single-ride mutations, batches and the window/high-price workflows.
package handlers

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"fleetops/internal/modules/dispatch"
	"fleetops/internal/modules/matching"
	"fleetops/internal/types"
)

type DispatchHandler struct {
	session Session
}

func NewDispatchHandler(session Session) *DispatchHandler {
	return &DispatchHandler{session: session}
}

type rideActionReq struct {
	DriverID    types.ID `json:"driver_id"`
	NewDriverID types.ID `json:"new_driver_id"`
	Reason      string   `json:"reason"`
}

func (h *DispatchHandler) Assign(c *gin.Context)   { h.rideAction(c, dispatch.KindAssign) }
func (h *DispatchHandler) Cancel(c *gin.Context)   { h.rideAction(c, dispatch.KindCancel) }
func (h *DispatchHandler) Reassign(c *gin.Context) { h.rideAction(c, dispatch.KindReassign) }

func (h *DispatchHandler) rideAction(c *gin.Context, kind dispatch.Kind) {
	id, ok := pathID(c, "id")
	if !ok {
		return
	}
	var req rideActionReq
	if c.Request.ContentLength != 0 {
		if err := c.ShouldBindJSON(&req); err != nil {
			writeError(c, http.StatusBadRequest, "invalid json")
			return
		}
	}
	out := h.session.Current().Dispatch.Executor().Execute(c.Request.Context(), dispatch.Request{
		Kind:        kind,
		RideID:      id,
		DriverID:    req.DriverID,
		NewDriverID: req.NewDriverID,
		Reason:      req.Reason,
	})
	status := http.StatusOK
	if !out.OK() {
		status = http.StatusBadRequest
		if out.ErrorKind != "" {
			status = statusForKind(out.ErrorKind)
		}
	}
	writeJSON(c, status, gin.H{"outcome": out})
}

type batchReq struct {
	Requests []dispatch.Request `json:"requests"`
}

// Batch runs every request and answers 200 with per-request outcomes, even when some fail.
func (h *DispatchHandler) Batch(c *gin.Context) {
	var req batchReq
	if err := c.ShouldBindJSON(&req); err != nil {
		writeError(c, http.StatusBadRequest, "invalid json")
		return
	}
	if len(req.Requests) == 0 {
		writeError(c, http.StatusBadRequest, "no requests")
		return
	}
	outcomes := h.session.Current().Dispatch.Executor().ExecuteBatch(c.Request.Context(), req.Requests, nil)
	writeJSON(c, http.StatusOK, gin.H{"outcomes": outcomes, "summary": dispatch.Summarize(outcomes)})
}

type windowReq struct {
	Action      dispatch.Kind `json:"action" binding:"required"`
	DriverID    types.ID      `json:"driver_id" binding:"required"`
	NewDriverID types.ID      `json:"new_driver_id"`
	Date        string        `json:"date" binding:"required"`
	Range       string        `json:"range" binding:"required"`
	Reason      string        `json:"reason"`
}

// Window cancels or reassigns every ride of one driver whose pickup falls in the range.
func (h *DispatchHandler) Window(c *gin.Context) {
	var req windowReq
	if err := c.ShouldBindJSON(&req); err != nil {
		writeError(c, http.StatusBadRequest, "invalid request: "+err.Error())
		return
	}
	tr, err := matching.ParseTimeRange(req.Range)
	if err != nil {
		writeServiceError(c, err)
		return
	}
	svc := h.session.Current().Dispatch
	var res dispatch.WindowResult
	switch req.Action {
	case dispatch.KindCancel:
		res, err = svc.CancelWindow(c.Request.Context(), req.DriverID, req.Date, tr, req.Reason)
	case dispatch.KindReassign:
		res, err = svc.ReassignWindow(c.Request.Context(), req.DriverID, req.NewDriverID, req.Date, tr)
	default:
		writeError(c, http.StatusBadRequest, "action must be cancel or reassign")
		return
	}
	if err != nil {
		writeServiceError(c, err)
		return
	}
	writeJSON(c, http.StatusOK, res)
}

type highPriceReq struct {
	Date     string      `json:"date" binding:"required"`
	Range    string      `json:"range" binding:"required"`
	MinPrice types.Money `json:"min_price" binding:"gt=0"`
	DriverID types.ID    `json:"driver_id" binding:"required"`
}

func (h *DispatchHandler) HighPrice(c *gin.Context) {
	var req highPriceReq
	if err := c.ShouldBindJSON(&req); err != nil {
		writeError(c, http.StatusBadRequest, "invalid request: "+err.Error())
		return
	}
	tr, err := matching.ParseTimeRange(req.Range)
	if err != nil {
		writeServiceError(c, err)
		return
	}
	res, err := h.session.Current().Dispatch.AssignHighPrice(c.Request.Context(), req.Date, tr, req.MinPrice, req.DriverID)
	if err != nil {
		writeServiceError(c, err)
		return
	}
	writeJSON(c, http.StatusOK, res)
}
