package memory

import (
	"context"
	"log"
	"os"
	"slices"
	"strings"
	"sync"
	"time"

	"golang.org/x/crypto/bcrypt"

	"salepoint/backend/internal/domain"
	"salepoint/backend/internal/ids"
	"salepoint/backend/internal/money"
	"salepoint/backend/internal/store"
)

// Store is an in-memory Repository used for dev mode and tests. All methods
// take the same mutex, so ReserveStock is an atomic check-and-decrement with
// respect to concurrent callers, matching the postgres implementation.
type Store struct {
	mu        sync.RWMutex
	products  map[string]domain.Product
	invoices  map[string]domain.Invoice
	numberSet map[string]struct{}
	users     map[string]domain.UserAccount
}

func New() *Store {
	return &Store{
		products:  make(map[string]domain.Product),
		invoices:  make(map[string]domain.Invoice),
		numberSet: make(map[string]struct{}),
		users:     make(map[string]domain.UserAccount),
	}
}

// NewSeeded returns a store pre-populated with a demo owner account and a
// small catalog, for running the backend without a database.
func NewSeeded() *Store {
	s := New()

	now := time.Now().UTC()
	seed := []domain.Product{
		{Name: "Oil Filter", Category: "parts", UnitPrice: money.FromUnits(1500), Stock: 24},
		{Name: "Brake Pad Set", Category: "parts", UnitPrice: money.FromUnits(4800), Stock: 10},
		{Name: "Wiper Blade", Category: "parts", UnitPrice: money.FromUnits(900), Stock: 40},
		{Name: "Engine Oil 5W-30", Category: "fluids", UnitPrice: money.FromUnits(3200), Stock: 18},
		{Name: "Coolant 1L", Category: "fluids", UnitPrice: money.FromUnits(1100), Stock: 4},
		{Name: "Car Battery", Category: "electrical", UnitPrice: money.FromUnits(9500), Stock: 3},
		{Name: "Headlight Bulb", Category: "electrical", UnitPrice: money.FromUnits(650), Stock: 30},
		{Name: "Air Freshener", Category: "accessories", UnitPrice: money.FromUnits(250), Stock: 60},
	}
	for _, p := range seed {
		p.ID = ids.New()
		p.OwnerID = "demo"
		p.CreatedAt = now
		s.products[p.ID] = p
	}

	s.users["demo"] = seedOwner(now)
	return s
}

// seedOwner builds the initial demo account. The password is read from
// SEED_OWNER_PASSWORD; if unset, a hardcoded dev default is used with a
// warning printed to stdout. The seeded store is never used in production
// (the backend requires PostgreSQL when DATABASE_URL is set).
func seedOwner(now time.Time) domain.UserAccount {
	password := os.Getenv("SEED_OWNER_PASSWORD")
	if password == "" {
		password = "demo1234"
		log.Println("[memory-store] WARNING: using default dev credentials. Set SEED_OWNER_PASSWORD to override.")
	}
	hash, err := bcrypt.GenerateFromPassword([]byte(password), bcrypt.DefaultCost)
	if err != nil {
		log.Fatalf("[memory-store] failed to hash seed password: %v", err)
	}
	return domain.UserAccount{
		Username:  "demo",
		Password:  string(hash),
		Active:    true,
		CreatedAt: now,
	}
}

func (s *Store) ListProducts(_ context.Context, ownerID string) ([]domain.Product, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	products := make([]domain.Product, 0, len(s.products))
	for _, p := range s.products {
		if p.OwnerID != ownerID {
			continue
		}
		products = append(products, p)
	}

	slices.SortFunc(products, func(a, b domain.Product) int {
		if a.Category == b.Category {
			return strings.Compare(a.Name, b.Name)
		}
		return strings.Compare(a.Category, b.Category)
	})
	return products, nil
}

func (s *Store) CreateProduct(_ context.Context, product domain.Product) (*domain.Product, error) {
	if product.OwnerID == "" || product.Name == "" || product.UnitPrice.IsNegative() || product.Stock < 0 {
		return nil, store.ErrInvalidInput
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	for _, existing := range s.products {
		if existing.OwnerID == product.OwnerID && existing.Name == product.Name {
			return nil, store.ErrInvalidInput
		}
	}

	if product.ID == "" {
		product.ID = ids.New()
	}
	if product.CreatedAt.IsZero() {
		product.CreatedAt = time.Now().UTC()
	}
	s.products[product.ID] = product
	created := product
	return &created, nil
}

func (s *Store) GetProduct(_ context.Context, ownerID string, productID string) (*domain.Product, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	product, exists := s.products[productID]
	if !exists || product.OwnerID != ownerID {
		return nil, store.ErrNotFound
	}
	copyProduct := product
	return &copyProduct, nil
}

func (s *Store) ReserveStock(_ context.Context, ownerID string, productID string, qty int) (int, error) {
	if qty < 1 {
		return 0, store.ErrInvalidInput
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	product, exists := s.products[productID]
	if !exists || product.OwnerID != ownerID {
		return 0, store.ErrNotFound
	}
	if product.Stock < qty {
		return product.Stock, store.ErrInsufficientStock
	}
	product.Stock -= qty
	s.products[productID] = product
	return product.Stock, nil
}

func (s *Store) ReleaseStock(_ context.Context, ownerID string, productID string, qty int) (int, error) {
	if qty < 1 {
		return 0, store.ErrInvalidInput
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	product, exists := s.products[productID]
	if !exists || product.OwnerID != ownerID {
		return 0, store.ErrNotFound
	}
	product.Stock += qty
	s.products[productID] = product
	return product.Stock, nil
}

func (s *Store) InsertInvoice(_ context.Context, invoice domain.Invoice) (*domain.Invoice, error) {
	if invoice.OwnerID == "" || invoice.Number == "" || len(invoice.Items) == 0 {
		return nil, store.ErrInvalidInput
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	numberKey := invoice.OwnerID + "\x00" + invoice.Number
	if _, taken := s.numberSet[numberKey]; taken {
		return nil, store.ErrDuplicateInvoiceNumber
	}

	if invoice.ID == "" {
		invoice.ID = ids.New()
	}
	if invoice.CreatedAt.IsZero() {
		invoice.CreatedAt = time.Now().UTC()
	}
	invoice.Items = slices.Clone(invoice.Items)
	s.invoices[invoice.ID] = invoice
	s.numberSet[numberKey] = struct{}{}
	created := invoice
	return &created, nil
}

func (s *Store) GetInvoice(_ context.Context, ownerID string, invoiceID string) (*domain.Invoice, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	invoice, exists := s.invoices[invoiceID]
	if !exists || invoice.OwnerID != ownerID {
		return nil, store.ErrNotFound
	}
	copyInvoice := invoice
	copyInvoice.Items = slices.Clone(invoice.Items)
	return &copyInvoice, nil
}

func (s *Store) ListInvoices(_ context.Context, ownerID string, filter domain.InvoiceFilter) ([]domain.Invoice, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	result := make([]domain.Invoice, 0, 32)
	for _, invoice := range s.invoices {
		if invoice.OwnerID != ownerID {
			continue
		}
		if filter.Year > 0 && invoice.CreatedAt.UTC().Year() != filter.Year {
			continue
		}
		if filter.From != nil && invoice.CreatedAt.Before(*filter.From) {
			continue
		}
		if filter.To != nil && !invoice.CreatedAt.Before(*filter.To) {
			continue
		}
		copyInvoice := invoice
		copyInvoice.Items = slices.Clone(invoice.Items)
		result = append(result, copyInvoice)
	}

	// Newest first; ULIDs break creation-time ties deterministically.
	slices.SortFunc(result, func(a, b domain.Invoice) int {
		if a.CreatedAt.Equal(b.CreatedAt) {
			return strings.Compare(b.ID, a.ID)
		}
		if a.CreatedAt.After(b.CreatedAt) {
			return -1
		}
		return 1
	})
	if filter.Limit > 0 && len(result) > filter.Limit {
		result = result[:filter.Limit]
	}
	return result, nil
}

func (s *Store) DeleteInvoice(_ context.Context, ownerID string, invoiceID string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	invoice, exists := s.invoices[invoiceID]
	if !exists || invoice.OwnerID != ownerID {
		return store.ErrNotFound
	}
	delete(s.invoices, invoiceID)
	// The number stays burned: a deleted invoice is not re-creatable with
	// the same number.
	return nil
}

func (s *Store) InvoiceNumberExists(_ context.Context, ownerID string, number string) (bool, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	_, taken := s.numberSet[ownerID+"\x00"+number]
	return taken, nil
}

func (s *Store) ListInvoiceYears(_ context.Context, ownerID string) ([]int, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	seen := make(map[int]struct{}, 8)
	for _, invoice := range s.invoices {
		if invoice.OwnerID != ownerID {
			continue
		}
		seen[invoice.CreatedAt.UTC().Year()] = struct{}{}
	}

	years := make([]int, 0, len(seen))
	for year := range seen {
		years = append(years, year)
	}
	slices.Sort(years)
	slices.Reverse(years)
	return years, nil
}

func (s *Store) CreateUser(_ context.Context, user domain.UserAccount) error {
	username := strings.ToLower(strings.TrimSpace(user.Username))
	if username == "" || user.Password == "" {
		return store.ErrInvalidInput
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	if _, exists := s.users[username]; exists {
		return store.ErrInvalidInput
	}
	user.Username = username
	if user.CreatedAt.IsZero() {
		user.CreatedAt = time.Now().UTC()
	}
	s.users[username] = user
	return nil
}

func (s *Store) GetUser(_ context.Context, username string) (*domain.UserAccount, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	user, exists := s.users[strings.ToLower(strings.TrimSpace(username))]
	if !exists {
		return nil, store.ErrNotFound
	}
	copyUser := user
	return &copyUser, nil
}

func (s *Store) ListUsers(_ context.Context) ([]domain.UserAccount, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	users := make([]domain.UserAccount, 0, len(s.users))
	for _, user := range s.users {
		users = append(users, user)
	}
	slices.SortFunc(users, func(a, b domain.UserAccount) int {
		return strings.Compare(a.Username, b.Username)
	})
	return users, nil
}

func (s *Store) UpdateUserPassword(_ context.Context, username string, password string) error {
	if password == "" {
		return store.ErrInvalidInput
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	user, exists := s.users[strings.ToLower(strings.TrimSpace(username))]
	if !exists {
		return store.ErrNotFound
	}
	user.Password = password
	s.users[user.Username] = user
	return nil
}
