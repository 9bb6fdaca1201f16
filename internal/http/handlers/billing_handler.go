// README: Billing handlers: generate a report as JSON or CSV, list archived reports.
package handlers

import (
	"errors"
	"fmt"
	"net/http"

	"github.com/gin-gonic/gin"

	"fleetops/internal/modules/billing"
)

type BillingHandler struct {
	session Session
}

func NewBillingHandler(session Session) *BillingHandler {
	return &BillingHandler{session: session}
}

// Report generates billing for from..to. format=csv streams the flat export.
func (h *BillingHandler) Report(c *gin.Context) {
	from, to := c.Query("from"), c.Query("to")
	if from == "" || to == "" {
		writeError(c, http.StatusBadRequest, "from and to are required")
		return
	}
	format := c.DefaultQuery("format", "json")
	if format != "json" && format != "csv" {
		writeError(c, http.StatusBadRequest, "format must be json or csv")
		return
	}
	rep, err := h.session.Current().Billing.Generate(c.Request.Context(), from, to, nil)
	if err != nil {
		writeServiceError(c, err)
		return
	}
	if format == "json" {
		writeJSON(c, http.StatusOK, gin.H{"report": rep, "rows": billing.Rows(rep)})
		return
	}
	c.Header("Content-Type", "text/csv; charset=utf-8")
	c.Header("Content-Disposition", fmt.Sprintf(`attachment; filename="billing_%s_%s.csv"`, from, to))
	c.Status(http.StatusOK)
	if err := billing.WriteCSV(c.Writer, rep); err != nil {
		_ = c.Error(err)
	}
}

func (h *BillingHandler) History(c *gin.Context) {
	list, err := h.session.Current().Billing.History(c.Request.Context(), queryInt(c, "limit", 20))
	if err != nil {
		writeServiceError(c, err)
		return
	}
	if list == nil {
		list = []billing.ReportSummary{}
	}
	writeJSON(c, http.StatusOK, gin.H{"reports": list})
}

// ArchivedReport returns the stored per-driver totals of one archived report.
func (h *BillingHandler) ArchivedReport(c *gin.Context) {
	id, ok := pathID(c, "id")
	if !ok {
		return
	}
	drivers, err := h.session.Current().Billing.ArchivedDrivers(c.Request.Context(), int64(id))
	if errors.Is(err, billing.ErrReportNotFound) {
		writeError(c, http.StatusNotFound, err.Error())
		return
	}
	if err != nil {
		writeServiceError(c, err)
		return
	}
	writeJSON(c, http.StatusOK, gin.H{"report_id": id, "drivers": drivers})
}
