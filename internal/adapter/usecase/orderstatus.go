package usecase

import (
	"context"
	"fmt"
	"log/slog"
	"sort"
	"time"

	"github.com/google/uuid"

	"admarket/internal/core/domain"
	"admarket/internal/core/port"
)

// orderTransitions is the legal transition table for insertion orders.
// delivered is terminal.
var orderTransitions = map[domain.OrderStatus][]domain.OrderStatus{
	domain.OrderDraft:        {domain.OrderSent},
	domain.OrderSent:         {domain.OrderConfirmed, domain.OrderRejected},
	domain.OrderConfirmed:    {domain.OrderInProduction, domain.OrderRejected},
	domain.OrderRejected:     {domain.OrderDraft},
	domain.OrderInProduction: {domain.OrderDelivered},
	domain.OrderDelivered:    {},
}

// placementTransitions is the legal transition table for placements.
// suspended is reachable from every non-terminal status; leaving it requires
// an explicit manual transition back to pending (never automatic).
var placementTransitions = map[domain.PlacementStatus][]domain.PlacementStatus{
	domain.PlacementPending:      {domain.PlacementAccepted, domain.PlacementSuspended},
	domain.PlacementAccepted:     {domain.PlacementInProduction, domain.PlacementSuspended},
	domain.PlacementInProduction: {domain.PlacementDelivered, domain.PlacementSuspended},
	domain.PlacementSuspended:    {domain.PlacementPending},
	domain.PlacementDelivered:    {},
}

// OrderStatusUseCase guards insertion-order and placement status transitions.
// It implements port.OrderStatusService.
type OrderStatusUseCase struct {
	orders port.OrderStore
	logger *slog.Logger
	now    func() time.Time
}

// NewOrderStatusUseCase constructs the guard over an order store.
func NewOrderStatusUseCase(orders port.OrderStore, logger *slog.Logger) *OrderStatusUseCase {
	return &OrderStatusUseCase{orders: orders, logger: logger, now: time.Now}
}

// ValidateStatusTransition checks an order transition against the table. The
// error message names the allowed alternatives; callers render it directly.
func (u *OrderStatusUseCase) ValidateStatusTransition(current, next domain.OrderStatus) port.TransitionResult {
	if current == next {
		return port.TransitionResult{Valid: false, Error: fmt.Sprintf("order status is already %q", current)}
	}
	allowed, ok := orderTransitions[current]
	if !ok {
		return port.TransitionResult{Valid: false, Error: fmt.Sprintf("unknown order status %q", current)}
	}
	for _, s := range allowed {
		if s == next {
			return port.TransitionResult{Valid: true}
		}
	}
	if len(allowed) == 0 {
		return port.TransitionResult{Valid: false, Error: fmt.Sprintf("order status %q is terminal", current)}
	}
	return port.TransitionResult{Valid: false, Error: fmt.Sprintf("cannot move order from %q to %q; allowed: %s", current, next, joinStatuses(allowed))}
}

// TransitionOrder applies a guarded transition and appends to statusHistory.
// An illegal transition is reported in the result, not as an error; errors
// are reserved for store failures.
func (u *OrderStatusUseCase) TransitionOrder(ctx context.Context, orderID string, next domain.OrderStatus, actor, notes string) (port.TransitionResult, error) {
	order, err := u.orders.GetOrder(ctx, orderID)
	if err != nil {
		return port.TransitionResult{}, err
	}

	if res := u.ValidateStatusTransition(order.Status, next); !res.Valid {
		return res, nil
	}

	appendOrderHistory(order, next, actor, notes, u.now())
	if err := u.orders.UpdateOrder(ctx, order, order.Version); err != nil {
		return port.TransitionResult{}, err
	}

	u.logger.Info("order status changed",
		slog.String("orderId", orderID),
		slog.String("status", string(next)),
		slog.String("actor", actor))
	return port.TransitionResult{Valid: true}, nil
}

// validatePlacementTransition checks a placement transition against the table.
func validatePlacementTransition(current, next domain.PlacementStatus) port.TransitionResult {
	if current == next {
		return port.TransitionResult{Valid: false, Error: fmt.Sprintf("placement status is already %q", current)}
	}
	allowed, ok := placementTransitions[current]
	if !ok {
		return port.TransitionResult{Valid: false, Error: fmt.Sprintf("unknown placement status %q", current)}
	}
	for _, s := range allowed {
		if s == next {
			return port.TransitionResult{Valid: true}
		}
	}
	if len(allowed) == 0 {
		return port.TransitionResult{Valid: false, Error: fmt.Sprintf("placement status %q is terminal", current)}
	}
	return port.TransitionResult{Valid: false, Error: fmt.Sprintf("cannot move placement from %q to %q; allowed: %s", current, next, joinPlacementStatuses(allowed))}
}

// TransitionPlacement applies a manual placement transition (accept, suspend,
// un-suspend) and re-derives the order status from the new placement set.
func (u *OrderStatusUseCase) TransitionPlacement(ctx context.Context, orderID, itemPath string, next domain.PlacementStatus, actor, notes string) (port.TransitionResult, error) {
	order, err := u.orders.GetOrder(ctx, orderID)
	if err != nil {
		return port.TransitionResult{}, err
	}

	current := order.PlacementStatus(itemPath)
	if res := validatePlacementTransition(current, next); !res.Valid {
		return res, nil
	}

	setPlacementStatus(order, itemPath, next, actor, notes, u.now())
	if derived := DeriveOrderStatus(order); derived != nil && *derived != order.Status {
		appendOrderHistory(order, *derived, domain.SystemActor, "derived from placement statuses", u.now())
	}

	if err := u.orders.UpdateOrder(ctx, order, order.Version); err != nil {
		return port.TransitionResult{}, err
	}

	u.logger.Info("placement status changed",
		slog.String("orderId", orderID),
		slog.String("itemPath", itemPath),
		slog.String("status", string(next)),
		slog.String("actor", actor))
	return port.TransitionResult{Valid: true}, nil
}

// DeriveOrderStatus derives the order's aggregate status from its placements.
// Suspended placements are treated as resolved and ignored. All active
// placements delivered means the order is delivered. Any active placement in
// production (or delivered) promotes a confirmed order to in_production.
// A nil return means leave the status as-is: derivation never demotes, and
// never moves an order out of draft, sent or rejected.
func DeriveOrderStatus(order *domain.InsertionOrder) *domain.OrderStatus {
	if len(order.PlacementStatuses) == 0 {
		return nil
	}

	active := 0
	delivered := 0
	started := false
	for _, status := range order.PlacementStatuses {
		if status == domain.PlacementSuspended {
			continue
		}
		active++
		switch status {
		case domain.PlacementDelivered:
			delivered++
			started = true
		case domain.PlacementInProduction:
			started = true
		}
	}

	if active > 0 && delivered == active && order.Status != domain.OrderDelivered {
		s := domain.OrderDelivered
		return &s
	}
	if started && order.Status == domain.OrderConfirmed {
		s := domain.OrderInProduction
		return &s
	}
	return nil
}

// appendOrderHistory sets the order status and appends the audit entry.
func appendOrderHistory(order *domain.InsertionOrder, next domain.OrderStatus, actor, notes string, at time.Time) {
	order.StatusHistory = append(order.StatusHistory, domain.OrderStatusChange{
		ID:        uuid.NewString(),
		From:      order.Status,
		To:        next,
		ChangedBy: actor,
		ChangedAt: at,
		Notes:     notes,
	})
	order.Status = next
	order.UpdatedAt = at
}

// setPlacementStatus sets one placement's status and appends the audit entry.
func setPlacementStatus(order *domain.InsertionOrder, itemPath string, next domain.PlacementStatus, actor, notes string, at time.Time) {
	if order.PlacementStatuses == nil {
		order.PlacementStatuses = make(map[string]domain.PlacementStatus)
	}
	order.PlacementStatusHistory = append(order.PlacementStatusHistory, domain.PlacementStatusChange{
		ID:        uuid.NewString(),
		ItemPath:  itemPath,
		From:      order.PlacementStatus(itemPath),
		To:        next,
		ChangedBy: actor,
		ChangedAt: at,
		Notes:     notes,
	})
	order.PlacementStatuses[itemPath] = next
	order.UpdatedAt = at
}

func joinStatuses(statuses []domain.OrderStatus) string {
	names := make([]string, len(statuses))
	for i, s := range statuses {
		names[i] = string(s)
	}
	sort.Strings(names)
	out := ""
	for i, n := range names {
		if i > 0 {
			out += ", "
		}
		out += n
	}
	return out
}

func joinPlacementStatuses(statuses []domain.PlacementStatus) string {
	names := make([]domain.OrderStatus, len(statuses))
	for i, s := range statuses {
		names[i] = domain.OrderStatus(s)
	}
	return joinStatuses(names)
}
