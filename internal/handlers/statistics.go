package handlers

import (
	"bytes"
	"errors"
	"fmt"
	"net/http"
	"strconv"
	"time"

	"trackify/internal/aggregate"
	"trackify/internal/charts"
	"trackify/internal/log"
)

// referenceDate reads year and month from the query string, defaulting to
// the current month. Invalid values are ignored.
func (h *Handlers) referenceDate(r *http.Request) time.Time {
	now := h.now()
	year := now.Year()
	month := int(now.Month())

	if y, err := strconv.Atoi(r.URL.Query().Get("year")); err == nil && y > 0 && y < 10000 {
		year = y
	}
	if m, err := strconv.Atoi(r.URL.Query().Get("month")); err == nil && m >= 1 && m <= 12 {
		month = m
	}
	return time.Date(year, time.Month(month), 1, 0, 0, 0, 0, time.UTC)
}

// Summary returns totals, chart series and the category-filtered
// transaction list for the requested month.
func (h *Handlers) Summary(w http.ResponseWriter, r *http.Request) {
	user := GetUserFromContext(r)
	expenses, err := h.expenses.List(r.Context(), user.ID)
	if err != nil {
		h.writeError(w, r, err)
		return
	}
	ref := h.referenceDate(r)
	writeJSON(w, http.StatusOK, aggregate.BuildDashboard(expenses, ref, r.URL.Query().Get("q")))
}

// CategoryChart renders the expense breakdown of the requested month as a
// PNG pie chart.
func (h *Handlers) CategoryChart(w http.ResponseWriter, r *http.Request) {
	user := GetUserFromContext(r)
	expenses, err := h.expenses.List(r.Context(), user.ID)
	if err != nil {
		h.writeError(w, r, err)
		return
	}
	ref := h.referenceDate(r)
	series := aggregate.NewPieSeries(aggregate.MonthlyCategoryBreakdown(expenses, ref))

	var buf bytes.Buffer
	err = h.charts.CategoryPie(&buf, ref.Format("January 2006"), series)
	h.writePNG(w, r, &buf, err)
}

// MonthlyChart renders the monthly expense totals of the requested year as
// a PNG bar chart.
func (h *Handlers) MonthlyChart(w http.ResponseWriter, r *http.Request) {
	user := GetUserFromContext(r)
	expenses, err := h.expenses.List(r.Context(), user.ID)
	if err != nil {
		h.writeError(w, r, err)
		return
	}
	year := h.referenceDate(r).Year()

	var buf bytes.Buffer
	err = h.charts.MonthlyBars(&buf, fmt.Sprintf("Expenses %d", year), aggregate.YearlyMonthlyTotals(expenses, year))
	h.writePNG(w, r, &buf, err)
}

func (h *Handlers) writePNG(w http.ResponseWriter, r *http.Request, buf *bytes.Buffer, err error) {
	if errors.Is(err, charts.ErrNoData) {
		w.WriteHeader(http.StatusNoContent)
		return
	}
	if err != nil {
		log.FromContext(r.Context()).WithComponent(log.ComponentCharts).
			Error("Chart rendering failed", log.FieldOperation, log.OpRender, log.FieldError, err)
		writeJSON(w, http.StatusInternalServerError, errorResponse{Error: "Server error"})
		return
	}
	w.Header().Set("Content-Type", "image/png")
	w.Header().Set("Cache-Control", "no-store")
	w.Header().Set("Content-Length", strconv.Itoa(buf.Len()))
	w.WriteHeader(http.StatusOK)
	_, _ = buf.WriteTo(w)
}
