package postgres

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/jackc/pgx/v5/pgconn"
	_ "github.com/jackc/pgx/v5/stdlib"

	"salepoint/backend/internal/domain"
	"salepoint/backend/internal/ids"
	"salepoint/backend/internal/store"
)

// Store is the PostgreSQL-backed Repository. Schema expectations:
//
//	products(id, owner_id, name, category, unit_price_cents, stock,
//	         created_at, updated_at) with UNIQUE(owner_id, name),
//	         CHECK(stock >= 0)
//	invoices(id, owner_id, number, company, customer, issuer, items JSONB,
//	         subtotal_cents, tax_cents, total_cents, created_at, deleted_at)
//	         with UNIQUE(owner_id, number)
//
// Invoices are soft-deleted: the row survives so the unique constraint keeps
// the number burned after deletion.
//	users(username, password, active, created_at)
type Store struct {
	db *sql.DB
}

func New(ctx context.Context, databaseURL string) (*Store, error) {
	db, err := sql.Open("pgx", databaseURL)
	if err != nil {
		return nil, err
	}

	db.SetMaxIdleConns(8)
	db.SetMaxOpenConns(30)
	db.SetConnMaxLifetime(30 * time.Minute)

	pingCtx, cancel := context.WithTimeout(ctx, 6*time.Second)
	defer cancel()
	if err := db.PingContext(pingCtx); err != nil {
		_ = db.Close()
		return nil, err
	}

	return &Store{db: db}, nil
}

// NewWithDB wraps an existing connection pool. Used by tests.
func NewWithDB(db *sql.DB) *Store {
	return &Store{db: db}
}

func (s *Store) Close() error {
	return s.db.Close()
}

func (s *Store) ListProducts(ctx context.Context, ownerID string) ([]domain.Product, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT id, owner_id, name, category, unit_price_cents, stock, created_at
		FROM products
		WHERE owner_id = $1
		ORDER BY category, name
	`, ownerID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	products := make([]domain.Product, 0, 64)
	for rows.Next() {
		var p domain.Product
		if err := rows.Scan(&p.ID, &p.OwnerID, &p.Name, &p.Category, &p.UnitPrice, &p.Stock, &p.CreatedAt); err != nil {
			return nil, err
		}
		products = append(products, p)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return products, nil
}

func (s *Store) CreateProduct(ctx context.Context, product domain.Product) (*domain.Product, error) {
	if product.OwnerID == "" || product.Name == "" || product.UnitPrice.IsNegative() || product.Stock < 0 {
		return nil, store.ErrInvalidInput
	}
	if product.ID == "" {
		product.ID = ids.New()
	}
	if product.CreatedAt.IsZero() {
		product.CreatedAt = time.Now().UTC()
	}

	_, err := s.db.ExecContext(ctx, `
		INSERT INTO products (id, owner_id, name, category, unit_price_cents, stock, created_at, updated_at)
		VALUES ($1,$2,$3,$4,$5,$6,$7,now())
	`, product.ID, product.OwnerID, product.Name, product.Category, int64(product.UnitPrice), product.Stock, product.CreatedAt)
	if err != nil {
		if isUniqueViolation(err) {
			return nil, store.ErrInvalidInput
		}
		return nil, err
	}

	created := product
	return &created, nil
}

func (s *Store) GetProduct(ctx context.Context, ownerID string, productID string) (*domain.Product, error) {
	var p domain.Product
	err := s.db.QueryRowContext(ctx, `
		SELECT id, owner_id, name, category, unit_price_cents, stock, created_at
		FROM products
		WHERE owner_id = $1 AND id = $2
	`, ownerID, productID).Scan(&p.ID, &p.OwnerID, &p.Name, &p.Category, &p.UnitPrice, &p.Stock, &p.CreatedAt)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, store.ErrNotFound
		}
		return nil, err
	}
	return &p, nil
}

// ReserveStock performs the single atomic check-and-decrement: the guarded
// UPDATE either applies the full decrement or touches nothing, so two
// concurrent sales of the same product cannot lose an update.
func (s *Store) ReserveStock(ctx context.Context, ownerID string, productID string, qty int) (int, error) {
	if qty < 1 {
		return 0, store.ErrInvalidInput
	}

	var newStock int
	err := s.db.QueryRowContext(ctx, `
		UPDATE products
		SET stock = stock - $1, updated_at = now()
		WHERE owner_id = $2 AND id = $3 AND stock >= $1
		RETURNING stock
	`, qty, ownerID, productID).Scan(&newStock)
	if err == nil {
		return newStock, nil
	}
	if !errors.Is(err, sql.ErrNoRows) {
		return 0, err
	}

	// No row matched: either the product does not exist for this owner or
	// its stock is short. Distinguish the two for the caller's warning.
	var currentStock int
	err = s.db.QueryRowContext(ctx, `
		SELECT stock FROM products WHERE owner_id = $1 AND id = $2
	`, ownerID, productID).Scan(&currentStock)
	if errors.Is(err, sql.ErrNoRows) {
		return 0, store.ErrNotFound
	}
	if err != nil {
		return 0, err
	}
	return currentStock, store.ErrInsufficientStock
}

func (s *Store) ReleaseStock(ctx context.Context, ownerID string, productID string, qty int) (int, error) {
	if qty < 1 {
		return 0, store.ErrInvalidInput
	}

	var newStock int
	err := s.db.QueryRowContext(ctx, `
		UPDATE products
		SET stock = stock + $1, updated_at = now()
		WHERE owner_id = $2 AND id = $3
		RETURNING stock
	`, qty, ownerID, productID).Scan(&newStock)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return 0, store.ErrNotFound
		}
		return 0, err
	}
	return newStock, nil
}

func (s *Store) InsertInvoice(ctx context.Context, invoice domain.Invoice) (*domain.Invoice, error) {
	if invoice.OwnerID == "" || invoice.Number == "" || len(invoice.Items) == 0 {
		return nil, store.ErrInvalidInput
	}
	if invoice.ID == "" {
		invoice.ID = ids.New()
	}
	if invoice.CreatedAt.IsZero() {
		invoice.CreatedAt = time.Now().UTC()
	}

	itemsJSON, err := json.Marshal(invoice.Items)
	if err != nil {
		return nil, fmt.Errorf("encode line items: %w", err)
	}

	_, err = s.db.ExecContext(ctx, `
		INSERT INTO invoices (
			id, owner_id, number, company, customer, issuer, items,
			subtotal_cents, tax_cents, total_cents, created_at
		)
		VALUES ($1,$2,$3,$4,$5,$6,$7,$8,$9,$10,$11)
	`, invoice.ID, invoice.OwnerID, invoice.Number, invoice.Company, invoice.Customer,
		invoice.Issuer, itemsJSON, int64(invoice.Subtotal), int64(invoice.Tax),
		int64(invoice.Total), invoice.CreatedAt)
	if err != nil {
		if isUniqueViolation(err) {
			return nil, store.ErrDuplicateInvoiceNumber
		}
		return nil, err
	}

	created := invoice
	return &created, nil
}

func (s *Store) GetInvoice(ctx context.Context, ownerID string, invoiceID string) (*domain.Invoice, error) {
	row := s.db.QueryRowContext(ctx, `
		SELECT id, owner_id, number, company, customer, issuer, items,
		       subtotal_cents, tax_cents, total_cents, created_at
		FROM invoices
		WHERE owner_id = $1 AND id = $2 AND deleted_at IS NULL
	`, ownerID, invoiceID)

	invoice, err := scanInvoice(row)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, store.ErrNotFound
		}
		return nil, err
	}
	return invoice, nil
}

func (s *Store) ListInvoices(ctx context.Context, ownerID string, filter domain.InvoiceFilter) ([]domain.Invoice, error) {
	conditions := []string{"owner_id = $1", "deleted_at IS NULL"}
	args := []any{ownerID}

	if filter.Year > 0 {
		args = append(args, filter.Year)
		conditions = append(conditions, fmt.Sprintf("EXTRACT(YEAR FROM created_at)::int = $%d", len(args)))
	}
	if filter.From != nil {
		args = append(args, filter.From.UTC())
		conditions = append(conditions, fmt.Sprintf("created_at >= $%d", len(args)))
	}
	if filter.To != nil {
		args = append(args, filter.To.UTC())
		conditions = append(conditions, fmt.Sprintf("created_at < $%d", len(args)))
	}

	query := `
		SELECT id, owner_id, number, company, customer, issuer, items,
		       subtotal_cents, tax_cents, total_cents, created_at
		FROM invoices
		WHERE ` + strings.Join(conditions, " AND ") + `
		ORDER BY created_at DESC, id DESC`
	if filter.Limit > 0 {
		args = append(args, filter.Limit)
		query += fmt.Sprintf(" LIMIT $%d", len(args))
	}

	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	invoices := make([]domain.Invoice, 0, 64)
	for rows.Next() {
		invoice, err := scanInvoice(rows)
		if err != nil {
			return nil, err
		}
		invoices = append(invoices, *invoice)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return invoices, nil
}

func (s *Store) DeleteInvoice(ctx context.Context, ownerID string, invoiceID string) error {
	result, err := s.db.ExecContext(ctx, `
		UPDATE invoices SET deleted_at = now()
		WHERE owner_id = $1 AND id = $2 AND deleted_at IS NULL
	`, ownerID, invoiceID)
	if err != nil {
		return err
	}
	affected, err := result.RowsAffected()
	if err != nil {
		return err
	}
	if affected == 0 {
		return store.ErrNotFound
	}
	return nil
}

// InvoiceNumberExists deliberately checks soft-deleted rows too: a deleted
// invoice's number is never handed out again.
func (s *Store) InvoiceNumberExists(ctx context.Context, ownerID string, number string) (bool, error) {
	var exists bool
	err := s.db.QueryRowContext(ctx, `
		SELECT EXISTS(SELECT 1 FROM invoices WHERE owner_id = $1 AND number = $2)
	`, ownerID, number).Scan(&exists)
	if err != nil {
		return false, err
	}
	return exists, nil
}

func (s *Store) ListInvoiceYears(ctx context.Context, ownerID string) ([]int, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT DISTINCT EXTRACT(YEAR FROM created_at)::int AS year
		FROM invoices
		WHERE owner_id = $1 AND deleted_at IS NULL
		ORDER BY year DESC
	`, ownerID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	years := make([]int, 0, 8)
	for rows.Next() {
		var year int
		if err := rows.Scan(&year); err != nil {
			return nil, err
		}
		years = append(years, year)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return years, nil
}

func (s *Store) CreateUser(ctx context.Context, user domain.UserAccount) error {
	username := strings.ToLower(strings.TrimSpace(user.Username))
	if username == "" || user.Password == "" {
		return store.ErrInvalidInput
	}
	if user.CreatedAt.IsZero() {
		user.CreatedAt = time.Now().UTC()
	}

	_, err := s.db.ExecContext(ctx, `
		INSERT INTO users (username, password, active, created_at)
		VALUES ($1,$2,$3,$4)
	`, username, user.Password, user.Active, user.CreatedAt)
	if err != nil {
		if isUniqueViolation(err) {
			return store.ErrInvalidInput
		}
		return err
	}
	return nil
}

func (s *Store) GetUser(ctx context.Context, username string) (*domain.UserAccount, error) {
	var user domain.UserAccount
	err := s.db.QueryRowContext(ctx, `
		SELECT username, password, active, created_at
		FROM users
		WHERE username = $1
	`, strings.ToLower(strings.TrimSpace(username))).Scan(&user.Username, &user.Password, &user.Active, &user.CreatedAt)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, store.ErrNotFound
		}
		return nil, err
	}
	return &user, nil
}

func (s *Store) ListUsers(ctx context.Context) ([]domain.UserAccount, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT username, password, active, created_at
		FROM users
		ORDER BY username
	`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	users := make([]domain.UserAccount, 0, 16)
	for rows.Next() {
		var user domain.UserAccount
		if err := rows.Scan(&user.Username, &user.Password, &user.Active, &user.CreatedAt); err != nil {
			return nil, err
		}
		users = append(users, user)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return users, nil
}

func (s *Store) UpdateUserPassword(ctx context.Context, username string, password string) error {
	if password == "" {
		return store.ErrInvalidInput
	}

	result, err := s.db.ExecContext(ctx, `
		UPDATE users SET password = $1 WHERE username = $2
	`, password, strings.ToLower(strings.TrimSpace(username)))
	if err != nil {
		return err
	}
	affected, err := result.RowsAffected()
	if err != nil {
		return err
	}
	if affected == 0 {
		return store.ErrNotFound
	}
	return nil
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanInvoice(row rowScanner) (*domain.Invoice, error) {
	var invoice domain.Invoice
	var itemsJSON []byte
	err := row.Scan(&invoice.ID, &invoice.OwnerID, &invoice.Number, &invoice.Company,
		&invoice.Customer, &invoice.Issuer, &itemsJSON, &invoice.Subtotal,
		&invoice.Tax, &invoice.Total, &invoice.CreatedAt)
	if err != nil {
		return nil, err
	}
	if err := json.Unmarshal(itemsJSON, &invoice.Items); err != nil {
		return nil, fmt.Errorf("decode line items for invoice %s: %w", invoice.ID, err)
	}
	return &invoice, nil
}

func isUniqueViolation(err error) bool {
	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) {
		return pgErr.Code == "23505"
	}
	return false
}
