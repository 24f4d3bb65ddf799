package sale

import (
	"context"
	"crypto/rand"
	"encoding/hex"
	"fmt"
	"strings"
	"time"

	"salepoint/backend/internal/domain"
	"salepoint/backend/internal/ids"
	"salepoint/backend/internal/money"
	"salepoint/backend/internal/store"
)

// NumberChecker is the slice of the invoice store the assembler needs to
// guarantee invoice-number uniqueness before any stock is touched.
type NumberChecker interface {
	InvoiceNumberExists(ctx context.Context, ownerID string, number string) (bool, error)
}

// Assembler validates a submitted cart and prices it into an invoice draft.
// Unit prices come from the cart as submitted; the live catalog is never
// consulted here, so a receipt printed at the register stays accurate even
// if the catalog changes a moment later.
type Assembler struct {
	numbers        NumberChecker
	taxRatePercent float64
	now            func() time.Time
}

func NewAssembler(numbers NumberChecker, taxRatePercent float64, now func() time.Time) *Assembler {
	if now == nil {
		now = func() time.Time { return time.Now().UTC() }
	}
	return &Assembler{
		numbers:        numbers,
		taxRatePercent: taxRatePercent,
		now:            now,
	}
}

// Assemble returns an unpersisted invoice draft or a validation error.
// Validation errors wrap store.ErrInvalidInput; a taken caller-supplied
// number wraps store.ErrDuplicateInvoiceNumber.
func (a *Assembler) Assemble(ctx context.Context, ownerID string, req domain.SaleRequest) (*domain.Invoice, error) {
	if ownerID == "" {
		return nil, fmt.Errorf("%w: owner required", store.ErrInvalidInput)
	}
	if len(req.Items) == 0 {
		return nil, fmt.Errorf("%w: cart is empty", store.ErrInvalidInput)
	}

	items := make([]domain.LineItem, 0, len(req.Items))
	subtotal := money.Amount(0)
	for i, item := range req.Items {
		item.Name = strings.TrimSpace(item.Name)
		item.ProductID = strings.TrimSpace(item.ProductID)
		if item.Name == "" {
			return nil, fmt.Errorf("%w: item %d has no name", store.ErrInvalidInput, i+1)
		}
		if item.Qty < 1 {
			return nil, fmt.Errorf("%w: item %q has non-positive quantity", store.ErrInvalidInput, item.Name)
		}
		if item.UnitPrice <= 0 {
			return nil, fmt.Errorf("%w: item %q has non-positive price", store.ErrInvalidInput, item.Name)
		}
		subtotal = subtotal.Add(item.UnitPrice.MulQty(item.Qty))
		items = append(items, item)
	}

	number, err := a.resolveNumber(ctx, ownerID, req.InvoiceNumber)
	if err != nil {
		return nil, err
	}

	tax := subtotal.MulRate(a.taxRatePercent)
	return &domain.Invoice{
		ID:       ids.New(),
		OwnerID:  ownerID,
		Number:   number,
		Company:  strings.TrimSpace(req.Company),
		Customer: strings.TrimSpace(req.Customer),
		Issuer:   strings.TrimSpace(req.Issuer),
		Items:    items,
		Subtotal: subtotal,
		Tax:      tax,
		Total:    subtotal.Add(tax),
	}, nil
}

// resolveNumber accepts a caller-supplied number after a uniqueness check,
// or generates one. A collision on a supplied number is the caller's to fix;
// a collision on a generated number gets one fresh retry before giving up.
func (a *Assembler) resolveNumber(ctx context.Context, ownerID string, supplied string) (string, error) {
	supplied = strings.TrimSpace(supplied)
	if supplied != "" {
		taken, err := a.numbers.InvoiceNumberExists(ctx, ownerID, supplied)
		if err != nil {
			return "", fmt.Errorf("check invoice number: %w", err)
		}
		if taken {
			return "", fmt.Errorf("%w: %s", store.ErrDuplicateInvoiceNumber, supplied)
		}
		return supplied, nil
	}

	for attempt := 0; attempt < 2; attempt++ {
		candidate := GenerateNumber(a.now())
		taken, err := a.numbers.InvoiceNumberExists(ctx, ownerID, candidate)
		if err != nil {
			return "", fmt.Errorf("check invoice number: %w", err)
		}
		if !taken {
			return candidate, nil
		}
	}
	return "", fmt.Errorf("%w: could not generate a unique number", store.ErrDuplicateInvoiceNumber)
}

// GenerateNumber derives a monotonic-enough invoice number from the clock,
// with a short random suffix to keep same-millisecond submissions apart.
func GenerateNumber(t time.Time) string {
	buf := make([]byte, 3)
	if _, err := rand.Read(buf); err != nil {
		return fmt.Sprintf("INV-%d", t.UnixNano())
	}
	return fmt.Sprintf("INV-%d-%s", t.UnixMilli(), strings.ToUpper(hex.EncodeToString(buf)))
}
