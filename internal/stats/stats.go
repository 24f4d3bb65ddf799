// Package stats holds the pure aggregation reducers behind the dashboard,
// analysis and tax report endpoints. Every function is deterministic, takes
// the wall clock as an explicit parameter and never touches storage; callers
// pass an owner-scoped invoice slice and get fully populated buckets back,
// zero-valued where no sales landed.
package stats

import (
	"fmt"
	"time"

	"salepoint/backend/internal/domain"
	"salepoint/backend/internal/money"
)

var weekdayLabels = [7]string{"Monday", "Tuesday", "Wednesday", "Thursday", "Friday", "Saturday", "Sunday"}

// WeekStart returns midnight UTC of the Monday of the week containing t.
func WeekStart(t time.Time) time.Time {
	t = t.UTC()
	day := time.Date(t.Year(), t.Month(), t.Day(), 0, 0, 0, 0, time.UTC)
	offset := (int(day.Weekday()) + 6) % 7 // Monday=0 .. Sunday=6
	return day.AddDate(0, 0, -offset)
}

// DailyBreakdown buckets invoice totals per weekday for the Monday-to-Sunday
// week containing reference. All seven buckets are always present, in
// Monday-first order.
func DailyBreakdown(invoices []domain.Invoice, reference time.Time) []domain.WeekdayBucket {
	start := WeekStart(reference)
	end := start.AddDate(0, 0, 7)

	buckets := make([]domain.WeekdayBucket, 7)
	for i := range buckets {
		buckets[i].Weekday = weekdayLabels[i]
	}
	for _, inv := range invoices {
		at := inv.CreatedAt.UTC()
		if at.Before(start) || !at.Before(end) {
			continue
		}
		idx := (int(at.Weekday()) + 6) % 7
		buckets[idx].Total = buckets[idx].Total.Add(inv.Total)
		buckets[idx].Count++
	}
	return buckets
}

// WeeklyBreakdown buckets invoice totals into the given number of
// Monday-start weeks ending with the week containing now, oldest first.
// Labels are the ISO date of each week's Monday.
func WeeklyBreakdown(invoices []domain.Invoice, weeks int, now time.Time) []domain.WeekBucket {
	if weeks < 1 {
		weeks = 1
	}
	latest := WeekStart(now)
	buckets := make([]domain.WeekBucket, weeks)
	for i := range buckets {
		start := latest.AddDate(0, 0, -7*(weeks-1-i))
		buckets[i].Label = start.Format("2006-01-02")
	}

	oldest := latest.AddDate(0, 0, -7*(weeks-1))
	end := latest.AddDate(0, 0, 7)
	for _, inv := range invoices {
		at := inv.CreatedAt.UTC()
		if at.Before(oldest) || !at.Before(end) {
			continue
		}
		idx := int(WeekStart(at).Sub(oldest).Hours()) / (24 * 7)
		buckets[idx].Total = buckets[idx].Total.Add(inv.Total)
		buckets[idx].Count++
	}
	return buckets
}

// MonthlyTaxBreakdown buckets tax and sales per calendar month of the given
// year, January first. Months without sales stay zero-valued.
func MonthlyTaxBreakdown(invoices []domain.Invoice, year int) []domain.MonthTaxBucket {
	buckets := make([]domain.MonthTaxBucket, 12)
	for i := range buckets {
		buckets[i].Month = time.Month(i + 1).String()
	}
	for _, inv := range invoices {
		at := inv.CreatedAt.UTC()
		if at.Year() != year {
			continue
		}
		idx := int(at.Month()) - 1
		buckets[idx].Tax = buckets[idx].Tax.Add(inv.Tax)
		buckets[idx].Sales = buckets[idx].Sales.Add(inv.Total)
		buckets[idx].InvoiceCount++
	}
	return buckets
}

// QuarterlyTaxBreakdown folds a year's monthly buckets into four quarters.
func QuarterlyTaxBreakdown(invoices []domain.Invoice, year int) []domain.QuarterTaxBucket {
	monthly := MonthlyTaxBreakdown(invoices, year)
	buckets := make([]domain.QuarterTaxBucket, 4)
	for i := range buckets {
		buckets[i].Quarter = fmt.Sprintf("Q%d", i+1)
	}
	for i, m := range monthly {
		q := i / 3
		buckets[q].Tax = buckets[q].Tax.Add(m.Tax)
		buckets[q].Sales = buckets[q].Sales.Add(m.Sales)
		buckets[q].InvoiceCount += m.InvoiceCount
	}
	return buckets
}

// YearTotals sums tax, sales and invoice count for the given year.
func YearTotals(invoices []domain.Invoice, year int) domain.TaxReportTotals {
	var totals domain.TaxReportTotals
	for _, inv := range invoices {
		if inv.CreatedAt.UTC().Year() != year {
			continue
		}
		totals.Tax = totals.Tax.Add(inv.Tax)
		totals.Sales = totals.Sales.Add(inv.Total)
		totals.InvoiceCount++
	}
	return totals
}

// SumWindow totals invoices created inside [w.From, w.To).
func SumWindow(invoices []domain.Invoice, w domain.Window) money.Amount {
	var total money.Amount
	for _, inv := range invoices {
		at := inv.CreatedAt.UTC()
		if at.Before(w.From) || !at.Before(w.To) {
			continue
		}
		total = total.Add(inv.Total)
	}
	return total
}

// ComparePeriods totals the two windows and reports the percentage change
// from previous to current. Both zero yields 0%; a previous of zero with a
// positive current is reported as 100% growth rather than a division error.
func ComparePeriods(invoices []domain.Invoice, current, previous domain.Window) domain.PeriodComparison {
	cur := SumWindow(invoices, current)
	prev := SumWindow(invoices, previous)

	var change float64
	switch {
	case cur == 0 && prev == 0:
		change = 0
	case prev == 0:
		change = 100
	default:
		change = (cur.Float64() - prev.Float64()) / prev.Float64() * 100
	}
	return domain.PeriodComparison{
		CurrentTotal:  cur,
		PreviousTotal: prev,
		PercentChange: change,
	}
}

// MonthWindow returns [first of month, first of next month) for the month
// containing t, in UTC.
func MonthWindow(t time.Time) domain.Window {
	t = t.UTC()
	from := time.Date(t.Year(), t.Month(), 1, 0, 0, 0, 0, time.UTC)
	return domain.Window{From: from, To: from.AddDate(0, 1, 0)}
}

// WeekWindow returns the Monday-start week containing t as a half-open
// window, in UTC.
func WeekWindow(t time.Time) domain.Window {
	from := WeekStart(t)
	return domain.Window{From: from, To: from.AddDate(0, 0, 7)}
}
