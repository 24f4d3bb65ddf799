package stats

import (
	"testing"
	"time"

	"salepoint/backend/internal/domain"
	"salepoint/backend/internal/money"
)

func invoiceAt(at time.Time, total money.Amount, tax money.Amount) domain.Invoice {
	return domain.Invoice{
		ID:        at.Format("20060102150405.000000000"),
		OwnerID:   "owner-1",
		Number:    "INV-" + at.Format("20060102150405"),
		Total:     total,
		Tax:       tax,
		CreatedAt: at,
	}
}

func TestWeekStartIsMonday(t *testing.T) {
	// 2026-08-26 is a Wednesday; its week starts Monday 2026-08-24.
	ref := time.Date(2026, time.August, 26, 15, 30, 0, 0, time.UTC)
	got := WeekStart(ref)
	want := time.Date(2026, time.August, 24, 0, 0, 0, 0, time.UTC)
	if !got.Equal(want) {
		t.Fatalf("WeekStart = %v, want %v", got, want)
	}

	// A Monday maps to itself, a Sunday to the previous Monday.
	monday := time.Date(2026, time.August, 24, 0, 0, 0, 0, time.UTC)
	if got := WeekStart(monday); !got.Equal(monday) {
		t.Fatalf("WeekStart(monday) = %v, want %v", got, monday)
	}
	sunday := time.Date(2026, time.August, 30, 23, 59, 0, 0, time.UTC)
	if got := WeekStart(sunday); !got.Equal(monday) {
		t.Fatalf("WeekStart(sunday) = %v, want %v", got, monday)
	}
}

func TestDailyBreakdownEmptyInput(t *testing.T) {
	ref := time.Date(2026, time.August, 26, 12, 0, 0, 0, time.UTC)
	buckets := DailyBreakdown(nil, ref)
	if len(buckets) != 7 {
		t.Fatalf("expected 7 buckets, got %d", len(buckets))
	}
	labels := []string{"Monday", "Tuesday", "Wednesday", "Thursday", "Friday", "Saturday", "Sunday"}
	for i, b := range buckets {
		if b.Weekday != labels[i] {
			t.Errorf("bucket %d weekday = %q, want %q", i, b.Weekday, labels[i])
		}
		if b.Total != 0 || b.Count != 0 {
			t.Errorf("bucket %d not zero-valued: %+v", i, b)
		}
	}
}

func TestDailyBreakdownBucketsByWeekday(t *testing.T) {
	ref := time.Date(2026, time.August, 26, 12, 0, 0, 0, time.UTC)
	invoices := []domain.Invoice{
		invoiceAt(time.Date(2026, time.August, 24, 9, 0, 0, 0, time.UTC), 10000, 750),  // Monday
		invoiceAt(time.Date(2026, time.August, 24, 17, 0, 0, 0, time.UTC), 5000, 375),  // Monday
		invoiceAt(time.Date(2026, time.August, 30, 11, 0, 0, 0, time.UTC), 20000, 1500), // Sunday
		invoiceAt(time.Date(2026, time.August, 23, 11, 0, 0, 0, time.UTC), 99999, 1),   // previous week, excluded
		invoiceAt(time.Date(2026, time.August, 31, 11, 0, 0, 0, time.UTC), 99999, 1),   // next week, excluded
	}

	buckets := DailyBreakdown(invoices, ref)
	if buckets[0].Total != 15000 || buckets[0].Count != 2 {
		t.Fatalf("Monday bucket = %+v, want total 15000 count 2", buckets[0])
	}
	if buckets[6].Total != 20000 || buckets[6].Count != 1 {
		t.Fatalf("Sunday bucket = %+v, want total 20000 count 1", buckets[6])
	}
	for i := 1; i < 6; i++ {
		if buckets[i].Count != 0 {
			t.Errorf("bucket %d should be empty: %+v", i, buckets[i])
		}
	}
}

func TestWeeklyBreakdownOrderAndBounds(t *testing.T) {
	now := time.Date(2026, time.August, 26, 12, 0, 0, 0, time.UTC)
	invoices := []domain.Invoice{
		invoiceAt(time.Date(2026, time.August, 25, 9, 0, 0, 0, time.UTC), 30000, 2250), // current week
		invoiceAt(time.Date(2026, time.August, 18, 9, 0, 0, 0, time.UTC), 10000, 750),  // one week back
		invoiceAt(time.Date(2026, time.July, 1, 9, 0, 0, 0, time.UTC), 99999, 1),       // outside 4-week span
	}

	buckets := WeeklyBreakdown(invoices, 4, now)
	if len(buckets) != 4 {
		t.Fatalf("expected 4 buckets, got %d", len(buckets))
	}
	if buckets[0].Label != "2026-08-03" || buckets[3].Label != "2026-08-24" {
		t.Fatalf("labels = %q .. %q, want 2026-08-03 .. 2026-08-24", buckets[0].Label, buckets[3].Label)
	}
	if buckets[3].Total != 30000 || buckets[3].Count != 1 {
		t.Fatalf("current week bucket = %+v", buckets[3])
	}
	if buckets[2].Total != 10000 || buckets[2].Count != 1 {
		t.Fatalf("previous week bucket = %+v", buckets[2])
	}
	if buckets[0].Count != 0 || buckets[1].Count != 0 {
		t.Fatalf("old buckets should be empty: %+v %+v", buckets[0], buckets[1])
	}
}

func TestMonthlyTaxBreakdownIsOrderIndependent(t *testing.T) {
	a := invoiceAt(time.Date(2026, time.March, 5, 9, 0, 0, 0, time.UTC), 10000, 750)
	b := invoiceAt(time.Date(2026, time.March, 20, 9, 0, 0, 0, time.UTC), 20000, 1500)
	c := invoiceAt(time.Date(2026, time.November, 1, 9, 0, 0, 0, time.UTC), 5000, 375)
	other := invoiceAt(time.Date(2025, time.March, 1, 9, 0, 0, 0, time.UTC), 77777, 7777)

	forward := MonthlyTaxBreakdown([]domain.Invoice{a, b, c, other}, 2026)
	backward := MonthlyTaxBreakdown([]domain.Invoice{other, c, b, a}, 2026)

	if len(forward) != 12 {
		t.Fatalf("expected 12 buckets, got %d", len(forward))
	}
	for i := range forward {
		if forward[i] != backward[i] {
			t.Fatalf("bucket %d differs by input order: %+v vs %+v", i, forward[i], backward[i])
		}
	}

	march := forward[2]
	if march.Tax != 2250 || march.Sales != 30000 || march.InvoiceCount != 2 {
		t.Fatalf("march bucket = %+v", march)
	}
	if forward[10].InvoiceCount != 1 {
		t.Fatalf("november bucket = %+v", forward[10])
	}
	// Other-year invoice must not leak in.
	var sales money.Amount
	for _, m := range forward {
		sales = sales.Add(m.Sales)
	}
	if sales != 35000 {
		t.Fatalf("year sales = %d, want 35000", sales)
	}
}

func TestQuarterlyTaxBreakdownFoldsMonths(t *testing.T) {
	invoices := []domain.Invoice{
		invoiceAt(time.Date(2026, time.January, 5, 9, 0, 0, 0, time.UTC), 10000, 750),
		invoiceAt(time.Date(2026, time.March, 5, 9, 0, 0, 0, time.UTC), 20000, 1500),
		invoiceAt(time.Date(2026, time.December, 5, 9, 0, 0, 0, time.UTC), 40000, 3000),
	}

	quarters := QuarterlyTaxBreakdown(invoices, 2026)
	if len(quarters) != 4 {
		t.Fatalf("expected 4 quarters, got %d", len(quarters))
	}
	if quarters[0].Quarter != "Q1" || quarters[3].Quarter != "Q4" {
		t.Fatalf("quarter labels = %q %q", quarters[0].Quarter, quarters[3].Quarter)
	}
	if quarters[0].Sales != 30000 || quarters[0].Tax != 2250 || quarters[0].InvoiceCount != 2 {
		t.Fatalf("Q1 = %+v", quarters[0])
	}
	if quarters[1].InvoiceCount != 0 || quarters[2].InvoiceCount != 0 {
		t.Fatalf("Q2/Q3 should be empty: %+v %+v", quarters[1], quarters[2])
	}
	if quarters[3].Sales != 40000 {
		t.Fatalf("Q4 = %+v", quarters[3])
	}
}

func TestComparePeriods(t *testing.T) {
	current := domain.Window{
		From: time.Date(2026, time.August, 1, 0, 0, 0, 0, time.UTC),
		To:   time.Date(2026, time.September, 1, 0, 0, 0, 0, time.UTC),
	}
	previous := domain.Window{
		From: time.Date(2026, time.July, 1, 0, 0, 0, 0, time.UTC),
		To:   time.Date(2026, time.August, 1, 0, 0, 0, 0, time.UTC),
	}

	t.Run("both empty", func(t *testing.T) {
		got := ComparePeriods(nil, current, previous)
		if got.PercentChange != 0 {
			t.Fatalf("percent change = %v, want 0", got.PercentChange)
		}
	})

	t.Run("previous empty", func(t *testing.T) {
		invoices := []domain.Invoice{
			invoiceAt(time.Date(2026, time.August, 10, 9, 0, 0, 0, time.UTC), 50000, 3750),
		}
		got := ComparePeriods(invoices, current, previous)
		if got.PercentChange != 100 {
			t.Fatalf("percent change = %v, want 100", got.PercentChange)
		}
		if got.CurrentTotal != 50000 || got.PreviousTotal != 0 {
			t.Fatalf("totals = %+v", got)
		}
	})

	t.Run("growth", func(t *testing.T) {
		invoices := []domain.Invoice{
			invoiceAt(time.Date(2026, time.July, 10, 9, 0, 0, 0, time.UTC), 40000, 3000),
			invoiceAt(time.Date(2026, time.August, 10, 9, 0, 0, 0, time.UTC), 50000, 3750),
		}
		got := ComparePeriods(invoices, current, previous)
		if got.PercentChange != 25 {
			t.Fatalf("percent change = %v, want 25", got.PercentChange)
		}
	})

	t.Run("decline", func(t *testing.T) {
		invoices := []domain.Invoice{
			invoiceAt(time.Date(2026, time.July, 10, 9, 0, 0, 0, time.UTC), 40000, 3000),
			invoiceAt(time.Date(2026, time.August, 10, 9, 0, 0, 0, time.UTC), 30000, 2250),
		}
		got := ComparePeriods(invoices, current, previous)
		if got.PercentChange != -25 {
			t.Fatalf("percent change = %v, want -25", got.PercentChange)
		}
	})
}

func TestSumWindowBoundsAreHalfOpen(t *testing.T) {
	w := domain.Window{
		From: time.Date(2026, time.August, 1, 0, 0, 0, 0, time.UTC),
		To:   time.Date(2026, time.September, 1, 0, 0, 0, 0, time.UTC),
	}
	invoices := []domain.Invoice{
		invoiceAt(w.From, 100, 8),                       // inclusive start
		invoiceAt(w.To, 200, 15),                        // exclusive end
		invoiceAt(w.To.Add(-time.Second), 300, 23),      // last second
		invoiceAt(w.From.Add(-time.Second), 400, 30),    // before window
	}
	if got := SumWindow(invoices, w); got != 400 {
		t.Fatalf("SumWindow = %d, want 400", got)
	}
}
