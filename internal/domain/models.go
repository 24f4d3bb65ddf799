package domain

import (
	"time"

	"salepoint/backend/internal/money"
)

// Product is one catalog entry, owned by exactly one account. Stock is only
// mutated through the store's reserve/release operations.
type Product struct {
	ID        string       `json:"id"`
	OwnerID   string       `json:"-"`
	Name      string       `json:"name"`
	Category  string       `json:"category"`
	UnitPrice money.Amount `json:"unit_price"`
	Stock     int          `json:"stock"`
	CreatedAt time.Time    `json:"created_at"`
}

type ProductCreateRequest struct {
	Name      string       `json:"name"`
	Category  string       `json:"category"`
	UnitPrice money.Amount `json:"unit_price"`
	Stock     int          `json:"stock"`
}

type RestockRequest struct {
	Qty int `json:"qty"`
}

// LineItem is one entry of a submitted cart, frozen verbatim onto the
// invoice. The unit price is the price at submission time, not a live
// catalog reference, so later catalog price changes never alter historical
// invoices. An empty ProductID marks a custom (non-catalog) item.
type LineItem struct {
	ProductID string       `json:"product_id,omitempty"`
	Name      string       `json:"name"`
	UnitPrice money.Amount `json:"unit_price"`
	Qty       int          `json:"qty"`
}

func (li LineItem) IsCustom() bool {
	return li.ProductID == ""
}

// Invoice is the immutable persisted sale record. Subtotal, tax and total
// reconcile with Items forever after; there is no update path, only delete.
type Invoice struct {
	ID        string       `json:"id"`
	OwnerID   string       `json:"-"`
	Number    string       `json:"number"`
	Company   string       `json:"company"`
	Customer  string       `json:"customer"`
	Issuer    string       `json:"issuer"`
	Items     []LineItem   `json:"items"`
	Subtotal  money.Amount `json:"subtotal"`
	Tax       money.Amount `json:"tax"`
	Total     money.Amount `json:"total"`
	CreatedAt time.Time    `json:"created_at"`
}

type SaleRequest struct {
	InvoiceNumber string     `json:"invoice_number,omitempty"`
	Company       string     `json:"company"`
	Customer      string     `json:"customer"`
	Issuer        string     `json:"issuer"`
	Items         []LineItem `json:"items"`
}

// StockWarning records a line item whose stock reservation was skipped. The
// sale still commits; the warning lets a caller distinguish "saved with a
// stock notice" from "not saved".
type StockWarning struct {
	ProductID string `json:"product_id"`
	Name      string `json:"name"`
	Requested int    `json:"requested"`
	Reason    string `json:"reason"`
}

const (
	StockWarningInsufficient    = "insufficient_stock"
	StockWarningProductNotFound = "product_not_found"
)

type SaleState string

const (
	SaleCommitted SaleState = "committed"
	SaleRejected  SaleState = "rejected"
	SaleFailed    SaleState = "failed"
)

const (
	SaleCodeValidation      = "validation"
	SaleCodeDuplicateNumber = "duplicate_invoice_number"
	SaleCodeStorage         = "storage"
)

// SaleResult is the terminal outcome of one submitted cart. Committed
// carries the persisted invoice; Rejected and Failed carry a reason and a
// machine-readable code. A failed attempt is never retried internally; the
// caller resubmits with a fresh invoice number.
type SaleResult struct {
	State         SaleState      `json:"state"`
	Invoice       *Invoice       `json:"invoice,omitempty"`
	StockWarnings []StockWarning `json:"stock_warnings,omitempty"`
	Code          string         `json:"code,omitempty"`
	Reason        string         `json:"reason,omitempty"`
}

type InvoiceFilter struct {
	From  *time.Time
	To    *time.Time
	Year  int
	Limit int
}

type DashboardStats struct {
	TotalSales       money.Amount `json:"total_sales"`
	TotalInvoices    int          `json:"total_invoices"`
	TotalProducts    int          `json:"total_products"`
	LowStockCount    int          `json:"low_stock_count"`
	LowStockProducts []Product    `json:"low_stock_products"`
}

// WeekdayBucket is one literal-weekday cell of a daily breakdown. A week
// with no sales on that weekday still emits a zero-valued bucket.
type WeekdayBucket struct {
	Weekday string       `json:"weekday"`
	Total   money.Amount `json:"total"`
	Count   int          `json:"count"`
}

type WeekBucket struct {
	Label string       `json:"label"`
	Total money.Amount `json:"total"`
	Count int          `json:"count"`
}

type MonthTaxBucket struct {
	Month        string       `json:"month"`
	Tax          money.Amount `json:"tax"`
	Sales        money.Amount `json:"sales"`
	InvoiceCount int          `json:"invoice_count"`
}

type QuarterTaxBucket struct {
	Quarter      string       `json:"quarter"`
	Tax          money.Amount `json:"tax"`
	Sales        money.Amount `json:"sales"`
	InvoiceCount int          `json:"invoice_count"`
}

type Window struct {
	From time.Time
	To   time.Time
}

type PeriodComparison struct {
	CurrentTotal  money.Amount `json:"current_total"`
	PreviousTotal money.Amount `json:"previous_total"`
	PercentChange float64      `json:"percent_change"`
}

type AnalysisResponse struct {
	Daily          []WeekdayBucket  `json:"daily"`
	Weekly         []WeekBucket     `json:"weekly"`
	Monthly        []MonthTaxBucket `json:"monthly"`
	ThisWeekTotal  money.Amount     `json:"this_week_total"`
	LastWeekTotal  money.Amount     `json:"last_week_total"`
	ThisMonthTotal money.Amount     `json:"this_month_total"`
	LastMonthTotal money.Amount     `json:"last_month_total"`
}

type TaxReportTotals struct {
	Tax          money.Amount `json:"tax"`
	Sales        money.Amount `json:"sales"`
	InvoiceCount int          `json:"invoice_count"`
}

type TaxReport struct {
	Year           int                `json:"year"`
	Monthly        []MonthTaxBucket   `json:"monthly"`
	Quarterly      []QuarterTaxBucket `json:"quarterly"`
	Totals         TaxReportTotals    `json:"totals"`
	AvailableYears []int              `json:"available_years"`
}

type LoginRequest struct {
	Username string `json:"username"`
	Password string `json:"password"`
}

type LoginResponse struct {
	AccessToken string `json:"access_token"`
	ExpiresAt   string `json:"expires_at"`
}

type RegisterRequest struct {
	Username string `json:"username"`
	Password string `json:"password"`
}

type OwnerUser struct {
	Username  string    `json:"username"`
	Active    bool      `json:"active"`
	CreatedAt time.Time `json:"created_at"`
}

// UserAccount is an internal persistence model for auth credentials.
type UserAccount struct {
	Username  string
	Password  string
	Active    bool
	CreatedAt time.Time
}
