// Package memory provides an in-memory implementation of the store ports.
// It backs the usecase tests and local development runs where no MongoDB is
// available. All methods honour context cancellation before touching state so
// timeout behaviour can be exercised in tests.
package memory

import (
	"context"
	"strings"
	"sync"
	"time"

	"go.mongodb.org/mongo-driver/bson/primitive"

	"admarket/internal/core/domain"
	"admarket/internal/core/port"
	"admarket/internal/core/rules"
)

// Store implements port.CampaignStore, port.OrderStore,
// port.PerformanceStore and port.ProofStore over process memory.
type Store struct {
	mu        sync.RWMutex
	campaigns map[string]domain.Campaign // keyed by external campaign id
	orders    map[string]domain.InsertionOrder
	entries   []domain.PerformanceEntry
	proofs    []domain.ProofOfPerformance
}

// NewStore returns an empty store.
func NewStore() *Store {
	return &Store{
		campaigns: make(map[string]domain.Campaign),
		orders:    make(map[string]domain.InsertionOrder),
	}
}

// PutCampaign seeds or replaces a campaign.
func (s *Store) PutCampaign(c domain.Campaign) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if c.ID.IsZero() {
		c.ID = primitive.NewObjectID()
	}
	s.campaigns[c.CampaignID] = c
}

// GetCampaign resolves a campaign by external campaign id or by the hex form
// of its storage id.
func (s *Store) GetCampaign(ctx context.Context, id string) (*domain.Campaign, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	s.mu.RLock()
	defer s.mu.RUnlock()
	if c, ok := s.campaigns[id]; ok {
		out := c
		return &out, nil
	}
	for _, c := range s.campaigns {
		if c.ID.Hex() == id {
			out := c
			return &out, nil
		}
	}
	return nil, port.ErrNotFound
}

// UpdateCampaign replaces a stored campaign.
func (s *Store) UpdateCampaign(ctx context.Context, c *domain.Campaign) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.campaigns[c.CampaignID]; !ok {
		return port.ErrNotFound
	}
	s.campaigns[c.CampaignID] = *c
	return nil
}

// GetOrder returns a live order by id.
func (s *Store) GetOrder(ctx context.Context, id string) (*domain.InsertionOrder, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	s.mu.RLock()
	defer s.mu.RUnlock()
	o, ok := s.orders[id]
	if !ok || o.DeletedAt != nil {
		return nil, port.ErrNotFound
	}
	out := cloneOrder(o)
	return &out, nil
}

// ListOrdersByCampaign returns all orders for a campaign, deleted included;
// callers inspect DeletedAt themselves.
func (s *Store) ListOrdersByCampaign(ctx context.Context, campaignID string) ([]domain.InsertionOrder, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	s.mu.RLock()
	defer s.mu.RUnlock()
	var out []domain.InsertionOrder
	for _, o := range s.orders {
		if o.CampaignID == campaignID {
			out = append(out, cloneOrder(o))
		}
	}
	return out, nil
}

// ListOrdersByStatus returns live orders in any of the given statuses.
func (s *Store) ListOrdersByStatus(ctx context.Context, statuses ...domain.OrderStatus) ([]domain.InsertionOrder, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	s.mu.RLock()
	defer s.mu.RUnlock()
	var out []domain.InsertionOrder
	for _, o := range s.orders {
		if o.DeletedAt != nil {
			continue
		}
		for _, st := range statuses {
			if o.Status == st {
				out = append(out, cloneOrder(o))
				break
			}
		}
	}
	return out, nil
}

// InsertOrders stores a batch of new orders.
func (s *Store) InsertOrders(ctx context.Context, orders []domain.InsertionOrder) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, o := range orders {
		s.orders[o.ID] = cloneOrder(o)
	}
	return nil
}

// UpdateOrder replaces an order if its stored version still matches
// expectedVersion, then bumps the version.
func (s *Store) UpdateOrder(ctx context.Context, order *domain.InsertionOrder, expectedVersion int64) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	current, ok := s.orders[order.ID]
	if !ok || current.DeletedAt != nil {
		return port.ErrNotFound
	}
	if current.Version != expectedVersion {
		return port.ErrVersionConflict
	}
	order.Version = expectedVersion + 1
	s.orders[order.ID] = cloneOrder(*order)
	return nil
}

// SoftDeleteOrder marks an order deleted without removing it.
func (s *Store) SoftDeleteOrder(ctx context.Context, id string) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	o, ok := s.orders[id]
	if !ok {
		return port.ErrNotFound
	}
	now := time.Now()
	o.DeletedAt = &now
	s.orders[id] = o
	return nil
}

// SumImpressions totals metrics.impressions for one order/placement pair.
func (s *Store) SumImpressions(ctx context.Context, orderID, itemPath string) (int64, error) {
	if err := ctx.Err(); err != nil {
		return 0, err
	}
	s.mu.RLock()
	defer s.mu.RUnlock()
	var total int64
	for _, e := range s.entries {
		if e.OrderID == orderID && e.ItemPath == itemPath {
			total += e.Metrics.Impressions
		}
	}
	return total, nil
}

// RecordEntry appends a performance entry.
func (s *Store) RecordEntry(ctx context.Context, entry *domain.PerformanceEntry) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	e := *entry
	if e.ID.IsZero() {
		e.ID = primitive.NewObjectID()
	}
	if e.CreatedAt.IsZero() {
		e.CreatedAt = time.Now()
	}
	s.entries = append(s.entries, e)
	return nil
}

// CountProofs counts live proofs for one order/placement pair, including
// order-level proofs under the order-wide scope.
func (s *Store) CountProofs(ctx context.Context, orderID, itemPath string, scope rules.ProofScope) (int64, error) {
	if err := ctx.Err(); err != nil {
		return 0, err
	}
	s.mu.RLock()
	defer s.mu.RUnlock()
	var count int64
	for _, p := range s.proofs {
		if p.OrderID != orderID || p.DeletedAt != nil {
			continue
		}
		if p.ItemPath == itemPath {
			count++
			continue
		}
		if scope == rules.ScopeOrderWide && strings.TrimSpace(p.ItemPath) == "" {
			count++
		}
	}
	return count, nil
}

// AttachProof appends a proof artifact.
func (s *Store) AttachProof(ctx context.Context, proof *domain.ProofOfPerformance) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	p := *proof
	if p.ID.IsZero() {
		p.ID = primitive.NewObjectID()
	}
	if p.UploadedAt.IsZero() {
		p.UploadedAt = time.Now()
	}
	s.proofs = append(s.proofs, p)
	return nil
}

// cloneOrder deep-copies the mutable collections so callers never share maps
// or history slices with stored state.
func cloneOrder(o domain.InsertionOrder) domain.InsertionOrder {
	out := o
	if o.PlacementStatuses != nil {
		out.PlacementStatuses = make(map[string]domain.PlacementStatus, len(o.PlacementStatuses))
		for k, v := range o.PlacementStatuses {
			out.PlacementStatuses[k] = v
		}
	}
	if o.DeliveryGoals != nil {
		out.DeliveryGoals = make(map[string]domain.DeliveryGoal, len(o.DeliveryGoals))
		for k, v := range o.DeliveryGoals {
			out.DeliveryGoals[k] = v
		}
	}
	out.StatusHistory = append([]domain.OrderStatusChange(nil), o.StatusHistory...)
	out.PlacementStatusHistory = append([]domain.PlacementStatusChange(nil), o.PlacementStatusHistory...)
	return out
}
