package service

import (
	"context"
	"encoding/json"
	"fmt"
	"log"
	"strings"
	"time"

	"salepoint/backend/internal/cache"
	"salepoint/backend/internal/domain"
	"salepoint/backend/internal/ids"
	"salepoint/backend/internal/sale"
	"salepoint/backend/internal/stats"
	"salepoint/backend/internal/store"
)

type ownerContextKey struct{}

func WithOwner(ctx context.Context, ownerID string) context.Context {
	return context.WithValue(ctx, ownerContextKey{}, ownerID)
}

func OwnerFromContext(ctx context.Context) (string, bool) {
	ownerID, ok := ctx.Value(ownerContextKey{}).(string)
	return ownerID, ok && ownerID != ""
}

type Service struct {
	repo              store.Repository
	coordinator       *sale.Coordinator
	reports           cache.ReportCache
	reportTTL         time.Duration
	lowStockThreshold int
	now               func() time.Time
}

func New(repo store.Repository, coordinator *sale.Coordinator, reports cache.ReportCache, reportTTL time.Duration, lowStockThreshold int) *Service {
	if reports == nil {
		reports = cache.NoopReportCache{}
	}
	if lowStockThreshold < 1 {
		lowStockThreshold = 5
	}

	return &Service{
		repo:              repo,
		coordinator:       coordinator,
		reports:           reports,
		reportTTL:         reportTTL,
		lowStockThreshold: lowStockThreshold,
		now:               func() time.Time { return time.Now().UTC() },
	}
}

// SetClock overrides the wall clock, for tests.
func (s *Service) SetClock(now func() time.Time) {
	if now != nil {
		s.now = now
	}
}

func ownerOrErr(ctx context.Context) (string, error) {
	ownerID, ok := OwnerFromContext(ctx)
	if !ok {
		return "", fmt.Errorf("owner identity required")
	}
	return ownerID, nil
}

// SubmitSale runs one cart through the sale coordinator. The result is
// always terminal; the error return is reserved for missing identity.
func (s *Service) SubmitSale(ctx context.Context, req domain.SaleRequest) (domain.SaleResult, error) {
	ownerID, err := ownerOrErr(ctx)
	if err != nil {
		return domain.SaleResult{}, err
	}
	result := s.coordinator.Submit(ctx, ownerID, req)
	if result.State == domain.SaleCommitted {
		s.invalidateReports(ctx, ownerID)
	}
	return result, nil
}

func (s *Service) ListProducts(ctx context.Context) ([]domain.Product, error) {
	ownerID, err := ownerOrErr(ctx)
	if err != nil {
		return nil, err
	}
	return s.repo.ListProducts(ctx, ownerID)
}

func (s *Service) CreateProduct(ctx context.Context, req domain.ProductCreateRequest) (domain.Product, error) {
	ownerID, err := ownerOrErr(ctx)
	if err != nil {
		return domain.Product{}, err
	}

	req.Name = strings.TrimSpace(req.Name)
	req.Category = strings.TrimSpace(req.Category)
	if req.Name == "" {
		return domain.Product{}, fmt.Errorf("%w: product name required", store.ErrInvalidInput)
	}
	if req.UnitPrice <= 0 {
		return domain.Product{}, fmt.Errorf("%w: unit price must be positive", store.ErrInvalidInput)
	}
	if req.Stock < 0 {
		return domain.Product{}, fmt.Errorf("%w: stock must not be negative", store.ErrInvalidInput)
	}

	product := domain.Product{
		ID:        ids.New(),
		OwnerID:   ownerID,
		Name:      req.Name,
		Category:  req.Category,
		UnitPrice: req.UnitPrice,
		Stock:     req.Stock,
		CreatedAt: s.now(),
	}

	created, err := s.repo.CreateProduct(ctx, product)
	if err != nil {
		return domain.Product{}, err
	}
	s.invalidateReports(ctx, ownerID)
	return *created, nil
}

// RestockProduct adds qty units to a product's stock. It rides the same
// release operation used for sale compensation so every stock increment
// shares one code path.
func (s *Service) RestockProduct(ctx context.Context, productID string, req domain.RestockRequest) (domain.Product, error) {
	ownerID, err := ownerOrErr(ctx)
	if err != nil {
		return domain.Product{}, err
	}
	if req.Qty < 1 {
		return domain.Product{}, fmt.Errorf("%w: restock qty must be at least 1", store.ErrInvalidInput)
	}

	if _, err := s.repo.ReleaseStock(ctx, ownerID, productID, req.Qty); err != nil {
		return domain.Product{}, err
	}
	product, err := s.repo.GetProduct(ctx, ownerID, productID)
	if err != nil {
		return domain.Product{}, err
	}
	s.invalidateReports(ctx, ownerID)
	return *product, nil
}

func (s *Service) GetInvoice(ctx context.Context, invoiceID string) (domain.Invoice, error) {
	ownerID, err := ownerOrErr(ctx)
	if err != nil {
		return domain.Invoice{}, err
	}
	inv, err := s.repo.GetInvoice(ctx, ownerID, invoiceID)
	if err != nil {
		return domain.Invoice{}, err
	}
	return *inv, nil
}

func (s *Service) ListInvoices(ctx context.Context, filter domain.InvoiceFilter) ([]domain.Invoice, error) {
	ownerID, err := ownerOrErr(ctx)
	if err != nil {
		return nil, err
	}
	return s.repo.ListInvoices(ctx, ownerID, filter)
}

// DeleteInvoice removes an invoice record. Its number stays burned: a later
// sale reusing the same number is still rejected as a duplicate.
func (s *Service) DeleteInvoice(ctx context.Context, invoiceID string) error {
	ownerID, err := ownerOrErr(ctx)
	if err != nil {
		return err
	}
	if err := s.repo.DeleteInvoice(ctx, ownerID, invoiceID); err != nil {
		return err
	}
	s.invalidateReports(ctx, ownerID)
	return nil
}

func (s *Service) GetDashboardStats(ctx context.Context) (domain.DashboardStats, error) {
	ownerID, err := ownerOrErr(ctx)
	if err != nil {
		return domain.DashboardStats{}, err
	}

	cacheKey := "reports:dashboard:" + ownerID
	var cached domain.DashboardStats
	if s.fromCache(ctx, cacheKey, &cached) {
		return cached, nil
	}

	invoices, err := s.repo.ListInvoices(ctx, ownerID, domain.InvoiceFilter{})
	if err != nil {
		return domain.DashboardStats{}, err
	}
	products, err := s.repo.ListProducts(ctx, ownerID)
	if err != nil {
		return domain.DashboardStats{}, err
	}

	result := domain.DashboardStats{
		TotalInvoices:    len(invoices),
		TotalProducts:    len(products),
		LowStockProducts: []domain.Product{},
	}
	for _, inv := range invoices {
		result.TotalSales = result.TotalSales.Add(inv.Total)
	}
	for _, p := range products {
		if p.Stock <= s.lowStockThreshold {
			result.LowStockProducts = append(result.LowStockProducts, p)
		}
	}
	result.LowStockCount = len(result.LowStockProducts)

	s.toCache(ctx, cacheKey, result)
	return result, nil
}

// GetAnalysis builds the sales analysis view: a daily breakdown of the
// current week, twelve trailing weeks, the current year's monthly buckets
// and week/month totals for the current and previous period.
func (s *Service) GetAnalysis(ctx context.Context) (domain.AnalysisResponse, error) {
	ownerID, err := ownerOrErr(ctx)
	if err != nil {
		return domain.AnalysisResponse{}, err
	}

	now := s.now()
	invoices, err := s.repo.ListInvoices(ctx, ownerID, domain.InvoiceFilter{})
	if err != nil {
		return domain.AnalysisResponse{}, err
	}

	thisWeek := stats.WeekWindow(now)
	lastWeek := stats.WeekWindow(now.AddDate(0, 0, -7))
	thisMonth := stats.MonthWindow(now)
	lastMonth := stats.MonthWindow(thisMonth.From.AddDate(0, 0, -1))

	return domain.AnalysisResponse{
		Daily:          stats.DailyBreakdown(invoices, now),
		Weekly:         stats.WeeklyBreakdown(invoices, 12, now),
		Monthly:        stats.MonthlyTaxBreakdown(invoices, now.Year()),
		ThisWeekTotal:  stats.SumWindow(invoices, thisWeek),
		LastWeekTotal:  stats.SumWindow(invoices, lastWeek),
		ThisMonthTotal: stats.SumWindow(invoices, thisMonth),
		LastMonthTotal: stats.SumWindow(invoices, lastMonth),
	}, nil
}

// CompareAnalysisPeriods reports month-over-month growth for the month
// containing the current clock reading.
func (s *Service) CompareAnalysisPeriods(ctx context.Context) (domain.PeriodComparison, error) {
	ownerID, err := ownerOrErr(ctx)
	if err != nil {
		return domain.PeriodComparison{}, err
	}

	now := s.now()
	invoices, err := s.repo.ListInvoices(ctx, ownerID, domain.InvoiceFilter{})
	if err != nil {
		return domain.PeriodComparison{}, err
	}

	current := stats.MonthWindow(now)
	previous := stats.MonthWindow(current.From.AddDate(0, 0, -1))
	return stats.ComparePeriods(invoices, current, previous), nil
}

func (s *Service) GetTaxReport(ctx context.Context, year int) (domain.TaxReport, error) {
	ownerID, err := ownerOrErr(ctx)
	if err != nil {
		return domain.TaxReport{}, err
	}
	if year < 1 {
		year = s.now().Year()
	}

	cacheKey := fmt.Sprintf("reports:tax:%s:%d", ownerID, year)
	var cached domain.TaxReport
	if s.fromCache(ctx, cacheKey, &cached) {
		return cached, nil
	}

	invoices, err := s.repo.ListInvoices(ctx, ownerID, domain.InvoiceFilter{Year: year})
	if err != nil {
		return domain.TaxReport{}, err
	}
	years, err := s.repo.ListInvoiceYears(ctx, ownerID)
	if err != nil {
		return domain.TaxReport{}, err
	}

	report := domain.TaxReport{
		Year:           year,
		Monthly:        stats.MonthlyTaxBreakdown(invoices, year),
		Quarterly:      stats.QuarterlyTaxBreakdown(invoices, year),
		Totals:         stats.YearTotals(invoices, year),
		AvailableYears: years,
	}

	s.toCache(ctx, cacheKey, report)
	return report, nil
}

func (s *Service) fromCache(ctx context.Context, key string, dst any) bool {
	if s.reportTTL <= 0 {
		return false
	}
	payload, ok, err := s.reports.Get(ctx, key)
	if err != nil {
		log.Printf("[service] WARN: report cache get key=%s: %v", key, err)
		return false
	}
	if !ok {
		return false
	}
	if err := json.Unmarshal(payload, dst); err != nil {
		log.Printf("[service] WARN: report cache decode key=%s: %v", key, err)
		return false
	}
	return true
}

func (s *Service) toCache(ctx context.Context, key string, value any) {
	if s.reportTTL <= 0 {
		return
	}
	payload, err := json.Marshal(value)
	if err != nil {
		log.Printf("[service] WARN: report cache encode key=%s: %v", key, err)
		return
	}
	if err := s.reports.Set(ctx, key, payload, s.reportTTL); err != nil {
		log.Printf("[service] WARN: report cache set key=%s: %v", key, err)
	}
}

// invalidateReports evicts the owner's cached dashboard and the tax report
// for the year a write most plausibly touched. Best effort; stale entries
// still expire by TTL.
func (s *Service) invalidateReports(ctx context.Context, ownerID string) {
	if s.reportTTL <= 0 {
		return
	}
	keys := []string{
		"reports:dashboard:" + ownerID,
		fmt.Sprintf("reports:tax:%s:%d", ownerID, s.now().Year()),
	}
	if err := s.reports.Del(ctx, keys...); err != nil {
		log.Printf("[service] WARN: report cache evict owner=%s: %v", ownerID, err)
	}
}
