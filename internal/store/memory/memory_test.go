package memory

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"salepoint/backend/internal/domain"
	"salepoint/backend/internal/money"
	"salepoint/backend/internal/store"
)

func seedProduct(t *testing.T, s *Store, ownerID string, name string, stock int) domain.Product {
	t.Helper()
	product, err := s.CreateProduct(context.Background(), domain.Product{
		OwnerID:   ownerID,
		Name:      name,
		UnitPrice: money.FromUnits(100),
		Stock:     stock,
	})
	if err != nil {
		t.Fatalf("seed product: %v", err)
	}
	return *product
}

func TestReserveStockAtomicUnderConcurrency(t *testing.T) {
	s := New()
	const startingStock = 50
	product := seedProduct(t, s, "owner-1", "Contended Part", startingStock)

	const workers = 40
	const qtyPerWorker = 2

	var wg sync.WaitGroup
	var successMu sync.Mutex
	successes := 0

	for i := 0; i < workers; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			remaining, err := s.ReserveStock(context.Background(), "owner-1", product.ID, qtyPerWorker)
			if err != nil {
				if !errors.Is(err, store.ErrInsufficientStock) {
					t.Errorf("unexpected reserve error: %v", err)
				}
				return
			}
			if remaining < 0 {
				t.Errorf("reserve returned negative stock %d", remaining)
			}
			successMu.Lock()
			successes++
			successMu.Unlock()
		}()
	}
	wg.Wait()

	final, err := s.GetProduct(context.Background(), "owner-1", product.ID)
	if err != nil {
		t.Fatalf("get product: %v", err)
	}
	if final.Stock < 0 {
		t.Fatalf("stock went negative: %d", final.Stock)
	}
	if want := startingStock - successes*qtyPerWorker; final.Stock != want {
		t.Fatalf("stock = %d, want %d after %d successful reservations", final.Stock, want, successes)
	}
	if successes > startingStock/qtyPerWorker {
		t.Fatalf("%d successes exceed available stock", successes)
	}
}

func TestReserveStockShortfallDoesNotMutate(t *testing.T) {
	s := New()
	product := seedProduct(t, s, "owner-1", "Scarce Part", 2)

	remaining, err := s.ReserveStock(context.Background(), "owner-1", product.ID, 5)
	if !errors.Is(err, store.ErrInsufficientStock) {
		t.Fatalf("expected ErrInsufficientStock, got %v", err)
	}
	if remaining != 2 {
		t.Fatalf("reported remaining = %d, want 2", remaining)
	}

	after, err := s.GetProduct(context.Background(), "owner-1", product.ID)
	if err != nil {
		t.Fatalf("get product: %v", err)
	}
	if after.Stock != 2 {
		t.Fatalf("stock = %d, want unchanged 2", after.Stock)
	}
}

func TestReserveStockScopedToOwner(t *testing.T) {
	s := New()
	product := seedProduct(t, s, "owner-1", "Private Part", 5)

	if _, err := s.ReserveStock(context.Background(), "owner-2", product.ID, 1); !errors.Is(err, store.ErrNotFound) {
		t.Fatalf("cross-owner reserve: expected ErrNotFound, got %v", err)
	}
	if _, err := s.GetProduct(context.Background(), "owner-2", product.ID); !errors.Is(err, store.ErrNotFound) {
		t.Fatalf("cross-owner get: expected ErrNotFound, got %v", err)
	}
}

func TestReleaseStockRestores(t *testing.T) {
	s := New()
	product := seedProduct(t, s, "owner-1", "Round Trip Part", 10)

	if _, err := s.ReserveStock(context.Background(), "owner-1", product.ID, 4); err != nil {
		t.Fatalf("reserve: %v", err)
	}
	remaining, err := s.ReleaseStock(context.Background(), "owner-1", product.ID, 4)
	if err != nil {
		t.Fatalf("release: %v", err)
	}
	if remaining != 10 {
		t.Fatalf("stock = %d, want 10", remaining)
	}
}

func invoiceFor(ownerID string, number string, at time.Time) domain.Invoice {
	return domain.Invoice{
		OwnerID:   ownerID,
		Number:    number,
		Items:     []domain.LineItem{{Name: "Thing", UnitPrice: money.FromUnits(10), Qty: 1}},
		Subtotal:  money.FromUnits(10),
		Total:     money.FromUnits(10),
		CreatedAt: at,
	}
}

func TestInsertInvoiceRejectsDuplicateNumber(t *testing.T) {
	s := New()
	now := time.Now().UTC()

	if _, err := s.InsertInvoice(context.Background(), invoiceFor("owner-1", "INV-0001", now)); err != nil {
		t.Fatalf("first insert: %v", err)
	}
	_, err := s.InsertInvoice(context.Background(), invoiceFor("owner-1", "INV-0001", now))
	if !errors.Is(err, store.ErrDuplicateInvoiceNumber) {
		t.Fatalf("expected ErrDuplicateInvoiceNumber, got %v", err)
	}

	// Same number under another owner is a different invoice book.
	if _, err := s.InsertInvoice(context.Background(), invoiceFor("owner-2", "INV-0001", now)); err != nil {
		t.Fatalf("cross-owner insert: %v", err)
	}
}

func TestDeletedInvoiceNumberStaysBurned(t *testing.T) {
	s := New()
	now := time.Now().UTC()

	created, err := s.InsertInvoice(context.Background(), invoiceFor("owner-1", "INV-0002", now))
	if err != nil {
		t.Fatalf("insert: %v", err)
	}
	if err := s.DeleteInvoice(context.Background(), "owner-1", created.ID); err != nil {
		t.Fatalf("delete: %v", err)
	}

	if _, err := s.GetInvoice(context.Background(), "owner-1", created.ID); !errors.Is(err, store.ErrNotFound) {
		t.Fatalf("expected ErrNotFound after delete, got %v", err)
	}
	_, err = s.InsertInvoice(context.Background(), invoiceFor("owner-1", "INV-0002", now))
	if !errors.Is(err, store.ErrDuplicateInvoiceNumber) {
		t.Fatalf("deleted number should stay burned, got %v", err)
	}
}

func TestListInvoicesFiltersAndOrders(t *testing.T) {
	s := New()
	base := time.Date(2026, time.August, 1, 10, 0, 0, 0, time.UTC)

	for i, tc := range []struct {
		number string
		at     time.Time
	}{
		{number: "INV-A", at: base},
		{number: "INV-B", at: base.AddDate(0, 0, 3)},
		{number: "INV-C", at: base.AddDate(0, 0, 6)},
		{number: "INV-OLD", at: base.AddDate(-1, 0, 0)},
	} {
		if _, err := s.InsertInvoice(context.Background(), invoiceFor("owner-1", tc.number, tc.at)); err != nil {
			t.Fatalf("insert %d: %v", i, err)
		}
	}

	all, err := s.ListInvoices(context.Background(), "owner-1", domain.InvoiceFilter{})
	if err != nil {
		t.Fatalf("list: %v", err)
	}
	if len(all) != 4 {
		t.Fatalf("list returned %d invoices, want 4", len(all))
	}
	if all[0].Number != "INV-C" || all[3].Number != "INV-OLD" {
		t.Fatalf("order = %q .. %q, want newest first", all[0].Number, all[3].Number)
	}

	year, err := s.ListInvoices(context.Background(), "owner-1", domain.InvoiceFilter{Year: 2026})
	if err != nil {
		t.Fatalf("list by year: %v", err)
	}
	if len(year) != 3 {
		t.Fatalf("year filter returned %d, want 3", len(year))
	}

	from := base.AddDate(0, 0, 1)
	to := base.AddDate(0, 0, 5)
	windowed, err := s.ListInvoices(context.Background(), "owner-1", domain.InvoiceFilter{From: &from, To: &to})
	if err != nil {
		t.Fatalf("list by window: %v", err)
	}
	if len(windowed) != 1 || windowed[0].Number != "INV-B" {
		t.Fatalf("window filter = %+v", windowed)
	}

	limited, err := s.ListInvoices(context.Background(), "owner-1", domain.InvoiceFilter{Limit: 2})
	if err != nil {
		t.Fatalf("list limited: %v", err)
	}
	if len(limited) != 2 {
		t.Fatalf("limit returned %d, want 2", len(limited))
	}

	years, err := s.ListInvoiceYears(context.Background(), "owner-1")
	if err != nil {
		t.Fatalf("years: %v", err)
	}
	if len(years) != 2 || years[0] != 2026 || years[1] != 2025 {
		t.Fatalf("years = %v, want [2026 2025]", years)
	}
}

func TestNewSeededHasDemoCatalog(t *testing.T) {
	s := NewSeeded()

	products, err := s.ListProducts(context.Background(), "demo")
	if err != nil {
		t.Fatalf("list products: %v", err)
	}
	if len(products) == 0 {
		t.Fatal("seeded store has no products")
	}

	user, err := s.GetUser(context.Background(), "demo")
	if err != nil {
		t.Fatalf("demo user missing: %v", err)
	}
	if !user.Active {
		t.Fatal("demo user inactive")
	}
}
