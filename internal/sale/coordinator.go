package sale

import (
	"context"
	"errors"
	"log"
	"time"

	"salepoint/backend/internal/domain"
	"salepoint/backend/internal/obs"
	"salepoint/backend/internal/store"
)

// Coordinator drives one submitted cart through validating, reserving and
// persisting, always ending in a terminal state: Committed, Rejected or
// Failed. It never retries a failed attempt; idempotency belongs to the
// caller via a fresh invoice number.
type Coordinator struct {
	repo      store.Repository
	assembler *Assembler
	now       func() time.Time
}

func NewCoordinator(repo store.Repository, assembler *Assembler, now func() time.Time) *Coordinator {
	if now == nil {
		now = func() time.Time { return time.Now().UTC() }
	}
	return &Coordinator{
		repo:      repo,
		assembler: assembler,
		now:       now,
	}
}

type reservation struct {
	productID string
	qty       int
}

// Submit runs the sale state machine. Stock reservation is deliberately
// soft: an item that cannot be stocked out is logged and reported as a
// warning on the committed result rather than aborting the sale, because
// the financial record outranks inventory accuracy in this domain.
func (c *Coordinator) Submit(ctx context.Context, ownerID string, req domain.SaleRequest) domain.SaleResult {
	invoice, err := c.assembler.Assemble(ctx, ownerID, req)
	if err != nil {
		return c.rejectOrFail(err)
	}

	reserved := make([]reservation, 0, len(invoice.Items))
	warnings := make([]domain.StockWarning, 0, 2)
	for _, item := range invoice.Items {
		if item.IsCustom() {
			continue
		}

		_, err := c.repo.ReserveStock(ctx, ownerID, item.ProductID, item.Qty)
		switch {
		case err == nil:
			reserved = append(reserved, reservation{productID: item.ProductID, qty: item.Qty})
		case errors.Is(err, store.ErrInsufficientStock):
			log.Printf("[sale] WARN: stock reservation skipped owner=%s product=%s qty=%d: insufficient stock", ownerID, item.ProductID, item.Qty)
			obs.StockReservationSkip()
			warnings = append(warnings, domain.StockWarning{
				ProductID: item.ProductID,
				Name:      item.Name,
				Requested: item.Qty,
				Reason:    domain.StockWarningInsufficient,
			})
		case errors.Is(err, store.ErrNotFound):
			log.Printf("[sale] WARN: stock reservation skipped owner=%s product=%s qty=%d: product not found", ownerID, item.ProductID, item.Qty)
			obs.StockReservationSkip()
			warnings = append(warnings, domain.StockWarning{
				ProductID: item.ProductID,
				Name:      item.Name,
				Requested: item.Qty,
				Reason:    domain.StockWarningProductNotFound,
			})
		default:
			c.compensate(ctx, ownerID, reserved)
			obs.SaleFailed()
			return domain.SaleResult{
				State:  domain.SaleFailed,
				Code:   domain.SaleCodeStorage,
				Reason: "stock reservation error: " + err.Error(),
			}
		}
	}

	invoice.CreatedAt = c.now()
	persisted, err := c.repo.InsertInvoice(ctx, *invoice)
	if err != nil {
		c.compensate(ctx, ownerID, reserved)
		if errors.Is(err, store.ErrDuplicateInvoiceNumber) {
			// A concurrent submission won the number between the pre-check
			// and the insert. Retryable by the caller with a fresh number.
			obs.SaleRejected()
			return domain.SaleResult{
				State:  domain.SaleRejected,
				Code:   domain.SaleCodeDuplicateNumber,
				Reason: err.Error(),
			}
		}
		obs.SaleFailed()
		return domain.SaleResult{
			State:  domain.SaleFailed,
			Code:   domain.SaleCodeStorage,
			Reason: "persist invoice: " + err.Error(),
		}
	}

	obs.SaleCommitted()
	return domain.SaleResult{
		State:         domain.SaleCommitted,
		Invoice:       persisted,
		StockWarnings: warnings,
	}
}

func (c *Coordinator) rejectOrFail(err error) domain.SaleResult {
	switch {
	case errors.Is(err, store.ErrDuplicateInvoiceNumber):
		obs.SaleRejected()
		return domain.SaleResult{
			State:  domain.SaleRejected,
			Code:   domain.SaleCodeDuplicateNumber,
			Reason: err.Error(),
		}
	case errors.Is(err, store.ErrInvalidInput):
		obs.SaleRejected()
		return domain.SaleResult{
			State:  domain.SaleRejected,
			Code:   domain.SaleCodeValidation,
			Reason: err.Error(),
		}
	default:
		obs.SaleFailed()
		return domain.SaleResult{
			State:  domain.SaleFailed,
			Code:   domain.SaleCodeStorage,
			Reason: err.Error(),
		}
	}
}

// compensate releases stock reserved earlier in a sale that did not commit.
// Best-effort only: a release that fails is logged for manual
// reconciliation, never escalated into a second error path.
func (c *Coordinator) compensate(ctx context.Context, ownerID string, reserved []reservation) {
	for _, r := range reserved {
		if _, err := c.repo.ReleaseStock(ctx, ownerID, r.productID, r.qty); err != nil {
			log.Printf("[sale] WARN: compensation release failed owner=%s product=%s qty=%d: %v", ownerID, r.productID, r.qty, err)
			continue
		}
		obs.StockCompensation()
	}
}
