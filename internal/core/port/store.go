package port

import (
	"context"
	"errors"

	"admarket/internal/core/domain"
	"admarket/internal/core/rules"
)

var (
	// ErrNotFound is returned by stores when a document does not exist or is
	// soft-deleted.
	ErrNotFound = errors.New("not found")
	// ErrVersionConflict is returned by OrderStore.UpdateOrder when the
	// order's stored version no longer matches the expected one. Callers
	// should re-read and retry.
	ErrVersionConflict = errors.New("order version conflict")
	// ErrOrdersExist guards insertion-order generation: a campaign that
	// already has live orders cannot generate a second set.
	ErrOrdersExist = errors.New("insertion orders already exist for campaign")
)

// CampaignStore is the outbound port for campaign documents. Implementations
// must resolve GetCampaign by either the internal storage id or the external
// campaign id.
type CampaignStore interface {
	GetCampaign(ctx context.Context, id string) (*domain.Campaign, error)
	UpdateCampaign(ctx context.Context, c *domain.Campaign) error
}

// OrderStore is the outbound port for insertion orders. UpdateOrder must be
// conditional on expectedVersion and bump the stored version atomically;
// a mismatch returns ErrVersionConflict. Orders are only ever soft-deleted.
type OrderStore interface {
	GetOrder(ctx context.Context, id string) (*domain.InsertionOrder, error)
	ListOrdersByCampaign(ctx context.Context, campaignID string) ([]domain.InsertionOrder, error)
	ListOrdersByStatus(ctx context.Context, statuses ...domain.OrderStatus) ([]domain.InsertionOrder, error)
	InsertOrders(ctx context.Context, orders []domain.InsertionOrder) error
	UpdateOrder(ctx context.Context, order *domain.InsertionOrder, expectedVersion int64) error
	SoftDeleteOrder(ctx context.Context, id string) error
}

// PerformanceStore is the outbound port for the delivery-metrics ledger.
type PerformanceStore interface {
	// SumImpressions totals metrics.impressions over all entries for one
	// order/placement pair.
	SumImpressions(ctx context.Context, orderID, itemPath string) (int64, error)
	RecordEntry(ctx context.Context, entry *domain.PerformanceEntry) error
}

// ProofStore is the outbound port for proof-of-performance artifacts.
type ProofStore interface {
	// CountProofs counts live proofs for one order/placement pair. Under
	// rules.ScopeOrderWide, proofs with no item path are included in every
	// placement's count.
	CountProofs(ctx context.Context, orderID, itemPath string, scope rules.ProofScope) (int64, error)
	AttachProof(ctx context.Context, proof *domain.ProofOfPerformance) error
}
