package store

import (
	"context"
	"errors"

	"salepoint/backend/internal/domain"
)

var (
	ErrNotFound               = errors.New("not found")
	ErrInsufficientStock      = errors.New("insufficient stock")
	ErrDuplicateInvoiceNumber = errors.New("duplicate invoice number")
	ErrInvalidInput           = errors.New("invalid input")
)

// Repository is the persistence surface for one owner-scoped POS ledger.
// Every operation takes the owner explicitly; a record belonging to another
// owner is indistinguishable from a missing one (ErrNotFound), so existence
// of other owners' data never leaks.
type Repository interface {
	// Catalog.
	ListProducts(ctx context.Context, ownerID string) ([]domain.Product, error)
	CreateProduct(ctx context.Context, product domain.Product) (*domain.Product, error)
	GetProduct(ctx context.Context, ownerID string, productID string) (*domain.Product, error)

	// ReserveStock atomically decrements stock by qty only when
	// qty <= current stock, returning the new stock level. It is the single
	// decrement path; ErrInsufficientStock leaves state untouched.
	ReserveStock(ctx context.Context, ownerID string, productID string, qty int) (int, error)
	// ReleaseStock is the compensating increment, also used for restocking.
	ReleaseStock(ctx context.Context, ownerID string, productID string, qty int) (int, error)

	// Invoices are write-once. InsertInvoice relies on a storage-level
	// uniqueness constraint on (owner, number), never check-then-write.
	InsertInvoice(ctx context.Context, invoice domain.Invoice) (*domain.Invoice, error)
	GetInvoice(ctx context.Context, ownerID string, invoiceID string) (*domain.Invoice, error)
	ListInvoices(ctx context.Context, ownerID string, filter domain.InvoiceFilter) ([]domain.Invoice, error)
	DeleteInvoice(ctx context.Context, ownerID string, invoiceID string) error
	InvoiceNumberExists(ctx context.Context, ownerID string, number string) (bool, error)
	ListInvoiceYears(ctx context.Context, ownerID string) ([]int, error)

	// Auth accounts.
	CreateUser(ctx context.Context, user domain.UserAccount) error
	GetUser(ctx context.Context, username string) (*domain.UserAccount, error)
	ListUsers(ctx context.Context) ([]domain.UserAccount, error)
	UpdateUserPassword(ctx context.Context, username string, password string) error
}
