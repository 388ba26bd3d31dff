package aggregate

import (
	"math/rand"
	"testing"
	"time"

	"trackify/internal/models"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func tx(typ models.TransactionType, amount float64, category, date string) models.Expense {
	return models.Expense{Type: typ, Amount: amount, Category: category, Date: date}
}

func TestSummarize(t *testing.T) {
	txs := []models.Expense{
		tx(models.TypeIncome, 1000, "salary", "2024-01-01"),
		tx(models.TypeExpense, 250, "food", "2024-01-02"),
		tx(models.TypeExpense, 50, "transport", "2024-01-03"),
		tx(models.TypeIncome, 20, "gift", "2024-01-04"),
	}

	s := Summarize(txs)
	assert.Equal(t, 1020.0, s.TotalIncome)
	assert.Equal(t, 300.0, s.TotalExpense)
	assert.Equal(t, 720.0, s.Balance)

	assert.Equal(t, Summary{}, Summarize(nil))
}

func TestSummarizeBalanceProperty(t *testing.T) {
	rng := rand.New(rand.NewSource(42))
	for range 200 {
		n := rng.Intn(30)
		txs := make([]models.Expense, n)
		var income, expense float64
		for i := range txs {
			amount := float64(rng.Intn(100000)) / 100
			typ := models.TypeExpense
			if rng.Intn(2) == 0 {
				typ = models.TypeIncome
				income += amount
			} else {
				expense += amount
			}
			txs[i] = tx(typ, amount, "c", "2024-01-01")
		}

		s := Summarize(txs)
		assert.InDelta(t, income, s.TotalIncome, 1e-6)
		assert.InDelta(t, expense, s.TotalExpense, 1e-6)
		assert.InDelta(t, s.TotalIncome-s.TotalExpense, s.Balance, 1e-9)
		assert.GreaterOrEqual(t, s.TotalIncome, 0.0)
		assert.GreaterOrEqual(t, s.TotalExpense, 0.0)
	}
}

func TestMonthlyCategoryBreakdown(t *testing.T) {
	ref := time.Date(2024, time.May, 17, 0, 0, 0, 0, time.UTC)
	txs := []models.Expense{
		tx(models.TypeExpense, 10, "food", "2024-05-01"),
		tx(models.TypeExpense, 15, "food", "2024-05-31"),
		tx(models.TypeExpense, 7, "transport", "2024-05-10"),
		tx(models.TypeIncome, 500, "salary", "2024-05-02"),
		tx(models.TypeExpense, 99, "food", "2024-04-30"),
		tx(models.TypeExpense, 99, "food", "2023-05-15"),
		tx(models.TypeExpense, 99, "food", "not a date"),
	}

	got := MonthlyCategoryBreakdown(txs, ref)
	assert.Equal(t, map[string]float64{"food": 25, "transport": 7}, got)
}

func TestNewPieSeries(t *testing.T) {
	p := NewPieSeries(map[string]float64{"transport": 7, "food": 25, "bills": 40, "fun": 3})

	assert.Equal(t, []string{"bills", "food", "fun", "transport"}, p.Labels)
	assert.Equal(t, []float64{40, 25, 3, 7}, p.Values)
	assert.Equal(t, []float64{0, 90, 180, 270}, p.Hues)
	assert.Equal(t, "hsl(90, 70%, 60%)", p.Colors[1])
	assert.Equal(t, 75.0, p.Total())

	empty := NewPieSeries(nil)
	assert.Empty(t, empty.Labels)
	assert.Zero(t, empty.Total())
}

func TestYearlyMonthlyTotals(t *testing.T) {
	txs := []models.Expense{
		tx(models.TypeExpense, 10, "food", "2024-01-05"),
		tx(models.TypeExpense, 5, "food", "2024-01-20"),
		tx(models.TypeExpense, 30, "rent", "2024-12-01"),
		tx(models.TypeIncome, 1000, "salary", "2024-03-01"),
		tx(models.TypeExpense, 70, "rent", "2023-12-01"),
	}

	got := YearlyMonthlyTotals(txs, 2024)
	assert.Len(t, got, 12)
	assert.Equal(t, 15.0, got[0])
	assert.Equal(t, 0.0, got[2])
	assert.Equal(t, 30.0, got[11])
}

func TestYearlyMonthlyTotalsSumsToYearlyExpense(t *testing.T) {
	rng := rand.New(rand.NewSource(7))
	for range 100 {
		var txs []models.Expense
		var want float64
		for range rng.Intn(50) {
			year := 2023 + rng.Intn(2)
			month := 1 + rng.Intn(12)
			amount := float64(rng.Intn(10000))
			typ := models.TypeExpense
			if rng.Intn(3) == 0 {
				typ = models.TypeIncome
			}
			date := time.Date(year, time.Month(month), 1+rng.Intn(28), 0, 0, 0, 0, time.UTC).Format(models.DateLayout)
			txs = append(txs, tx(typ, amount, "c", date))
			if year == 2024 && typ == models.TypeExpense {
				want += amount
			}
		}

		got := YearlyMonthlyTotals(txs, 2024)
		var sum float64
		for _, v := range got {
			sum += v
		}
		assert.InDelta(t, want, sum, 1e-6)
	}
}

func TestFilterByCategory(t *testing.T) {
	txs := []models.Expense{
		tx(models.TypeExpense, 1, "Food", "2024-01-01"),
		tx(models.TypeExpense, 2, "fast food", "2024-01-01"),
		tx(models.TypeExpense, 3, "Transport", "2024-01-01"),
	}

	assert.Len(t, FilterByCategory(txs, ""), 3)
	got := FilterByCategory(txs, "FOOD")
	require.Len(t, got, 2)
	assert.Equal(t, 1.0, got[0].Amount)
	assert.Equal(t, 2.0, got[1].Amount)
	assert.Empty(t, FilterByCategory(txs, "rent"))
}

func TestBuildDashboard(t *testing.T) {
	ref := time.Date(2024, time.March, 3, 0, 0, 0, 0, time.UTC)
	txs := []models.Expense{
		tx(models.TypeIncome, 100, "salary", "2024-03-01"),
		tx(models.TypeExpense, 40, "food", "2024-03-02"),
		tx(models.TypeExpense, 10, "bus", "2024-02-02"),
	}

	d := BuildDashboard(txs, ref, "foo")
	assert.Equal(t, 50.0, d.Summary.Balance)
	assert.Equal(t, []string{"food"}, d.Categories.Labels)
	assert.Equal(t, 2024, d.Year)
	assert.Equal(t, 3, d.Month)
	assert.Equal(t, 10.0, d.Monthly[1])
	assert.Equal(t, 40.0, d.Monthly[2])
	assert.Len(t, d.Transactions, 1)
	assert.Equal(t, "Jan", d.MonthLabels[0])
}
