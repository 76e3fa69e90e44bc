package usecase

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"admarket/internal/core/domain"
	"admarket/internal/core/port"
	"admarket/internal/core/rules"
)

// graceWindow is how long before the campaign start date placement activity
// is already accepted for auto-promotion.
const graceWindow = 7 * 24 * time.Hour

// defaultStoreTimeout bounds each store round trip inside a completion check.
const defaultStoreTimeout = 5 * time.Second

// CompletionUseCase drives the placement delivery state machine. It
// implements port.CompletionEngine: every failure mode, including store
// timeouts and version conflicts, is folded into the returned result rather
// than propagated.
type CompletionUseCase struct {
	orders       port.OrderStore
	campaigns    port.CampaignStore
	performance  port.PerformanceStore
	proofs       port.ProofStore
	proofScope   rules.ProofScope
	storeTimeout time.Duration
	logger       *slog.Logger
	now          func() time.Time
}

// NewCompletionUseCase wires the completion engine to its stores. Proofs
// attached at order level (no item path) count toward every placement under
// the default order-wide scope; pass rules.ScopePlacement to restrict counts
// to path-matched proofs.
func NewCompletionUseCase(
	orders port.OrderStore,
	campaigns port.CampaignStore,
	performance port.PerformanceStore,
	proofs port.ProofStore,
	scope rules.ProofScope,
	logger *slog.Logger,
) *CompletionUseCase {
	if scope == "" {
		scope = rules.ScopeOrderWide
	}
	return &CompletionUseCase{
		orders:       orders,
		campaigns:    campaigns,
		performance:  performance,
		proofs:       proofs,
		proofScope:   scope,
		storeTimeout: defaultStoreTimeout,
		logger:       logger,
		now:          time.Now,
	}
}

// PlacementTransition is a decided-but-not-applied placement status change.
type PlacementTransition struct {
	ItemPath string
	From     domain.PlacementStatus
	To       domain.PlacementStatus
	Reason   string
}

// DetectActivity decides whether an accepted placement should be promoted to
// in_production at the given instant. Promotion requires the instant to be
// inside the campaign grace window (start date minus seven days) or later.
// The decision is pure; applying it is the caller's concern.
func DetectActivity(order *domain.InsertionOrder, itemPath string, campaign *domain.Campaign, now time.Time) *PlacementTransition {
	if order.PlacementStatus(itemPath) != domain.PlacementAccepted {
		return nil
	}
	if now.Before(campaign.Timeline.StartDate.Add(-graceWindow)) {
		return nil
	}
	return &PlacementTransition{
		ItemPath: itemPath,
		From:     domain.PlacementAccepted,
		To:       domain.PlacementInProduction,
		Reason:   "Activity detected",
	}
}

// CheckAndCompleteIfReady runs the full promotion-and-completion pass for one
// placement. Accepted placements inside the grace window are opportunistically
// promoted to in_production first (this is the only path into in_production);
// only in-production placements are then eligible for the channel-specific
// completion check.
func (u *CompletionUseCase) CheckAndCompleteIfReady(ctx context.Context, orderID, itemPath string, channel domain.Channel) (result port.CompletionCheckResult) {
	defer u.recoverInto(&result)

	order, res := u.loadOrder(ctx, orderID)
	if order == nil {
		return res
	}

	switch order.PlacementStatus(itemPath) {
	case domain.PlacementDelivered:
		return port.CompletionCheckResult{AlreadyDelivered: true, Reason: "placement already delivered"}
	case domain.PlacementSuspended:
		return port.CompletionCheckResult{Reason: "placement is suspended; completion is blocked until it is manually resumed"}
	}

	campaign, res := u.loadCampaign(ctx, order.CampaignID)
	if campaign == nil {
		return res
	}

	now := u.now()
	dirty := false

	if order.PlacementStatus(itemPath) == domain.PlacementAccepted {
		transition := DetectActivity(order, itemPath, campaign, now)
		if transition == nil {
			opens := campaign.Timeline.StartDate.Add(-graceWindow)
			return port.CompletionCheckResult{
				Reason: fmt.Sprintf("campaign has not started; activity window opens %s", opens.Format(time.RFC3339)),
			}
		}
		u.applyTransition(order, transition, now)
		dirty = true
	}

	if status := order.PlacementStatus(itemPath); status != domain.PlacementInProduction {
		if dirty {
			if res := u.saveOrder(ctx, order); res != nil {
				return *res
			}
		}
		return port.CompletionCheckResult{
			Reason: fmt.Sprintf("placement status is %q; only in-production placements are checked for completion", status),
		}
	}

	rule := rules.ForChannel(channel)
	var check port.CompletionCheckResult
	var completionReason string
	switch rule.Type {
	case rules.ImpressionsOrEndDate:
		check, completionReason = u.checkDigitalCompletion(ctx, order, itemPath, campaign, now)
	default:
		check, completionReason = u.checkOfflineCompletion(ctx, order, campaign, itemPath, rule)
	}

	if completionReason != "" {
		setPlacementStatus(order, itemPath, domain.PlacementDelivered, domain.SystemActor, completionReason, now)
		if derived := DeriveOrderStatus(order); derived != nil && *derived != order.Status {
			appendOrderHistory(order, *derived, domain.SystemActor, "derived from placement statuses", now)
		}
		dirty = true
	}

	if dirty {
		if res := u.saveOrder(ctx, order); res != nil {
			return *res
		}
	}
	if check.Completed {
		u.logger.Info("placement delivered",
			slog.String("orderId", orderID),
			slog.String("itemPath", itemPath),
			slog.String("reason", check.Reason))
	}
	return check
}

// checkDigitalCompletion judges a digital placement against its impressions
// goal, with the campaign end date as an unconditional backstop: once the
// campaign has ended the placement is closed out even if the goal was never
// met. The second return value carries the history note when delivery should
// be recorded.
func (u *CompletionUseCase) checkDigitalCompletion(ctx context.Context, order *domain.InsertionOrder, itemPath string, campaign *domain.Campaign, now time.Time) (port.CompletionCheckResult, string) {
	var goal int64
	if g, ok := order.DeliveryGoals[itemPath]; ok {
		goal = g.GoalValue
	}

	callCtx, cancel := context.WithTimeout(ctx, u.storeTimeout)
	delivered, err := u.performance.SumImpressions(callCtx, order.ID, itemPath)
	cancel()
	if err != nil {
		return u.storeFailure("summing delivered impressions", err), ""
	}

	if goal > 0 && delivered >= goal {
		reason := fmt.Sprintf("impressions goal achieved: %d of %d delivered", delivered, goal)
		return port.CompletionCheckResult{Completed: true, Reason: reason}, reason
	}
	if !campaign.Timeline.EndDate.After(now) {
		reason := fmt.Sprintf("campaign ended %s; closing out delivery", campaign.Timeline.EndDate.Format("2006-01-02"))
		return port.CompletionCheckResult{Completed: true, Reason: reason}, reason
	}

	return port.CompletionCheckResult{
		Reason:   "impressions goal not yet met",
		Progress: progress(delivered, goal),
	}, ""
}

// checkOfflineCompletion judges an offline placement by counting attached
// proofs against the expected occurrence count. When the channel rule uses
// frequency the denominator is the item's currentFrequency (falling back to
// quantity, then 1); otherwise a single proof suffices.
func (u *CompletionUseCase) checkOfflineCompletion(ctx context.Context, order *domain.InsertionOrder, campaign *domain.Campaign, itemPath string, rule rules.CompletionRule) (port.CompletionCheckResult, string) {
	expected := int64(1)
	if rule.UsesFrequency {
		if pub := campaign.Publication(order.PublicationID); pub != nil {
			if item := pub.Item(itemPath); item != nil {
				switch {
				case item.CurrentFrequency > 0:
					expected = int64(item.CurrentFrequency)
				case item.Quantity > 0:
					expected = int64(item.Quantity)
				}
			}
		}
	}

	callCtx, cancel := context.WithTimeout(ctx, u.storeTimeout)
	count, err := u.proofs.CountProofs(callCtx, order.ID, itemPath, u.proofScope)
	cancel()
	if err != nil {
		return u.storeFailure("counting proofs of performance", err), ""
	}

	if count >= expected {
		reason := fmt.Sprintf("proof requirement met: %d of %d proofs attached", count, expected)
		return port.CompletionCheckResult{Completed: true, Reason: reason}, reason
	}
	return port.CompletionCheckResult{
		Reason:   fmt.Sprintf("awaiting proofs of performance: %d of %d attached", count, expected),
		Progress: progress(count, expected),
	}, ""
}

// CheckAllPlacementsInOrder runs the single-placement check for every
// non-excluded inventory item in the order's publication selection.
func (u *CompletionUseCase) CheckAllPlacementsInOrder(ctx context.Context, orderID string) port.BatchCheckResult {
	return u.sweepOrder(ctx, orderID, func(*domain.InsertionOrder, domain.InventoryItem) bool { return true })
}

// CheckDigitalPlacementsForCampaignEnd sweeps only digital placements
// currently in production. Intended to run once a campaign's end date has
// passed, to close out placements that never hit their impressions goal.
func (u *CompletionUseCase) CheckDigitalPlacementsForCampaignEnd(ctx context.Context, orderID string) port.BatchCheckResult {
	return u.sweepOrder(ctx, orderID, func(order *domain.InsertionOrder, item domain.InventoryItem) bool {
		return item.Channel.IsDigital() && order.PlacementStatus(item.ItemPath) == domain.PlacementInProduction
	})
}

func (u *CompletionUseCase) sweepOrder(ctx context.Context, orderID string, include func(*domain.InsertionOrder, domain.InventoryItem) bool) port.BatchCheckResult {
	batch := port.BatchCheckResult{Results: make(map[string]port.CompletionCheckResult)}

	order, res := u.loadOrder(ctx, orderID)
	if order == nil {
		batch.Results[""] = res
		return batch
	}
	campaign, res := u.loadCampaign(ctx, order.CampaignID)
	if campaign == nil {
		batch.Results[""] = res
		return batch
	}
	pub := campaign.Publication(order.PublicationID)
	if pub == nil {
		batch.Results[""] = port.CompletionCheckResult{
			Reason: fmt.Sprintf("campaign %q has no inventory for publication %q", order.CampaignID, order.PublicationID),
		}
		return batch
	}

	for _, item := range pub.InventoryItems {
		if item.Excluded || !include(order, item) {
			continue
		}
		// Each check re-reads the order so version bumps from earlier
		// placements in the same sweep do not conflict.
		result := u.CheckAndCompleteIfReady(ctx, orderID, item.ItemPath, item.Channel)
		batch.Checked++
		if result.Completed {
			batch.Completed++
		}
		batch.Results[item.ItemPath] = result
	}
	return batch
}

// applyTransition applies a detected placement transition to the in-memory
// order, including the cascading confirmed→in_production order promotion.
func (u *CompletionUseCase) applyTransition(order *domain.InsertionOrder, t *PlacementTransition, at time.Time) {
	setPlacementStatus(order, t.ItemPath, t.To, domain.SystemActor, t.Reason, at)
	if t.To == domain.PlacementInProduction && order.Status == domain.OrderConfirmed {
		appendOrderHistory(order, domain.OrderInProduction, domain.SystemActor, "placement activity detected", at)
	}
}

// loadOrder reads the order within the store timeout, converting any failure
// into a result. A nil order means the accompanying result must be returned.
func (u *CompletionUseCase) loadOrder(ctx context.Context, orderID string) (*domain.InsertionOrder, port.CompletionCheckResult) {
	callCtx, cancel := context.WithTimeout(ctx, u.storeTimeout)
	defer cancel()
	order, err := u.orders.GetOrder(callCtx, orderID)
	if err != nil {
		if errors.Is(err, port.ErrNotFound) {
			return nil, port.CompletionCheckResult{Reason: fmt.Sprintf("order %q not found", orderID)}
		}
		return nil, u.storeFailure("loading order", err)
	}
	return order, port.CompletionCheckResult{}
}

func (u *CompletionUseCase) loadCampaign(ctx context.Context, campaignID string) (*domain.Campaign, port.CompletionCheckResult) {
	callCtx, cancel := context.WithTimeout(ctx, u.storeTimeout)
	defer cancel()
	campaign, err := u.campaigns.GetCampaign(callCtx, campaignID)
	if err != nil {
		if errors.Is(err, port.ErrNotFound) {
			return nil, port.CompletionCheckResult{Reason: fmt.Sprintf("campaign %q not found", campaignID)}
		}
		return nil, u.storeFailure("loading campaign", err)
	}
	return campaign, port.CompletionCheckResult{}
}

// saveOrder writes the mutated order under its optimistic version. A nil
// return means success; otherwise the result to hand back to the caller.
func (u *CompletionUseCase) saveOrder(ctx context.Context, order *domain.InsertionOrder) *port.CompletionCheckResult {
	callCtx, cancel := context.WithTimeout(ctx, u.storeTimeout)
	defer cancel()
	err := u.orders.UpdateOrder(callCtx, order, order.Version)
	if err == nil {
		return nil
	}
	if errors.Is(err, port.ErrVersionConflict) {
		return &port.CompletionCheckResult{
			Retryable: true,
			Reason:    "order was updated concurrently; retry the check",
		}
	}
	res := u.storeFailure("saving order", err)
	return &res
}

// storeFailure classifies a store error into a result. Deadline expiry is
// retryable; anything else is reported verbatim.
func (u *CompletionUseCase) storeFailure(op string, err error) port.CompletionCheckResult {
	if errors.Is(err, context.DeadlineExceeded) {
		return port.CompletionCheckResult{
			Retryable: true,
			Reason:    fmt.Sprintf("store timeout while %s; retry the check", op),
		}
	}
	u.logger.Error("completion check store failure", slog.String("operation", op), slog.Any("error", err))
	return port.CompletionCheckResult{Reason: fmt.Sprintf("%s failed: %v", op, err)}
}

// recoverInto converts a panic inside a completion check into a
// failure-shaped result; checks never propagate exceptions.
func (u *CompletionUseCase) recoverInto(result *port.CompletionCheckResult) {
	if r := recover(); r != nil {
		u.logger.Error("completion check panicked", slog.Any("panic", r))
		*result = port.CompletionCheckResult{Reason: fmt.Sprintf("completion check failed: %v", r)}
	}
}

func progress(delivered, expected int64) *port.CompletionProgress {
	p := &port.CompletionProgress{Delivered: delivered, Expected: expected}
	if expected > 0 {
		p.Percent = float64(delivered) / float64(expected) * 100
	}
	return p
}
