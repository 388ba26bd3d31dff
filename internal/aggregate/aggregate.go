// Package aggregate turns a list of transactions into the totals and chart
// series shown on the dashboard. Every function is pure.
package aggregate

import (
	"fmt"
	"sort"
	"strings"
	"time"

	"trackify/internal/models"
)

// MonthLabels are the short month names used on the yearly chart.
var MonthLabels = [12]string{"Jan", "Feb", "Mar", "Apr", "May", "Jun", "Jul", "Aug", "Sep", "Oct", "Nov", "Dec"}

// Summary holds the headline totals.
type Summary struct {
	TotalIncome  float64 `json:"totalIncome"`
	TotalExpense float64 `json:"totalExpense"`
	Balance      float64 `json:"balance"`
}

// Summarize sums income and expense amounts. Balance is income minus expense.
func Summarize(txs []models.Expense) Summary {
	var s Summary
	for _, t := range txs {
		switch t.Type {
		case models.TypeIncome:
			s.TotalIncome += t.Amount
		case models.TypeExpense:
			s.TotalExpense += t.Amount
		}
	}
	s.Balance = s.TotalIncome - s.TotalExpense
	return s
}

func parseDate(s string) (time.Time, bool) {
	t, err := time.Parse(models.DateLayout, s)
	return t, err == nil
}

// MonthlyCategoryBreakdown sums expenses per category for the calendar month
// of ref. Income and unparseable dates are ignored.
func MonthlyCategoryBreakdown(txs []models.Expense, ref time.Time) map[string]float64 {
	out := make(map[string]float64)
	for _, t := range txs {
		if t.Type != models.TypeExpense {
			continue
		}
		d, ok := parseDate(t.Date)
		if !ok || d.Year() != ref.Year() || d.Month() != ref.Month() {
			continue
		}
		out[t.Category] += t.Amount
	}
	return out
}

// PieSeries is a chart-ready view of a category breakdown.
type PieSeries struct {
	Labels []string  `json:"labels"`
	Values []float64 `json:"values"`
	Hues   []float64 `json:"-"`
	Colors []string  `json:"colors"`
}

// NewPieSeries orders the breakdown by category name and assigns the i-th of
// n categories the hue i*360/n.
func NewPieSeries(breakdown map[string]float64) PieSeries {
	labels := make([]string, 0, len(breakdown))
	for k := range breakdown {
		labels = append(labels, k)
	}
	sort.Strings(labels)

	n := len(labels)
	p := PieSeries{
		Labels: labels,
		Values: make([]float64, n),
		Hues:   make([]float64, n),
		Colors: make([]string, n),
	}
	for i, l := range labels {
		hue := float64(i) * 360 / float64(n)
		p.Values[i] = breakdown[l]
		p.Hues[i] = hue
		p.Colors[i] = fmt.Sprintf("hsl(%g, 70%%, 60%%)", hue)
	}
	return p
}

// Total returns the sum of all values.
func (p PieSeries) Total() float64 {
	var sum float64
	for _, v := range p.Values {
		sum += v
	}
	return sum
}

// YearlyMonthlyTotals sums expenses per month of year, January first.
func YearlyMonthlyTotals(txs []models.Expense, year int) [12]float64 {
	var out [12]float64
	for _, t := range txs {
		if t.Type != models.TypeExpense {
			continue
		}
		d, ok := parseDate(t.Date)
		if !ok || d.Year() != year {
			continue
		}
		out[d.Month()-1] += t.Amount
	}
	return out
}

// FilterByCategory keeps transactions whose category contains query,
// ignoring case. An empty query keeps everything.
func FilterByCategory(txs []models.Expense, query string) []models.Expense {
	out := make([]models.Expense, 0, len(txs))
	q := strings.ToLower(query)
	for _, t := range txs {
		if strings.Contains(strings.ToLower(t.Category), q) {
			out = append(out, t)
		}
	}
	return out
}

// Dashboard bundles everything the client renders for one reference date.
type Dashboard struct {
	Summary      Summary          `json:"summary"`
	Categories   PieSeries        `json:"categories"`
	Year         int              `json:"year"`
	Month        int              `json:"month"`
	MonthLabels  [12]string       `json:"monthLabels"`
	Monthly      [12]float64      `json:"monthly"`
	Transactions []models.Expense `json:"transactions"`
}

// BuildDashboard computes the summary over all transactions, the charts for
// the month and year of ref, and the transaction list filtered by query.
func BuildDashboard(txs []models.Expense, ref time.Time, query string) Dashboard {
	return Dashboard{
		Summary:      Summarize(txs),
		Categories:   NewPieSeries(MonthlyCategoryBreakdown(txs, ref)),
		Year:         ref.Year(),
		Month:        int(ref.Month()),
		MonthLabels:  MonthLabels,
		Monthly:      YearlyMonthlyTotals(txs, ref.Year()),
		Transactions: FilterByCategory(txs, query),
	}
}
