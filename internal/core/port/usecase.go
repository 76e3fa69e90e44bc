package port

import (
	"context"

	"admarket/internal/core/domain"
	"admarket/internal/core/pricing"
)

// ValidationResult is the advisory outcome of comparing a recomputed metric
// against its stored snapshot. Message strings are rendered by the dashboard
// and must stay stable and descriptive.
type ValidationResult struct {
	IsValid     bool    `json:"isValid"`
	Stored      float64 `json:"stored"`
	Calculated  float64 `json:"calculated"`
	Discrepancy float64 `json:"discrepancy"` // percent of stored value
	Message     string  `json:"message"`
}

// RecalculatedMetrics carries freshly computed pricing and reach numbers for
// the caller to persist (or not) over the campaign snapshot.
type RecalculatedMetrics struct {
	Pricing PricingTotals        `json:"pricing"`
	Reach   pricing.ReachSummary `json:"reach"`
}

// PricingTotals is the recomputed pricing family.
type PricingTotals struct {
	Subtotal          float64            `json:"subtotal"`
	PublicationTotals map[string]float64 `json:"publicationTotals"`
}

// CampaignValidator recomputes campaign metrics and flags drift against
// stored snapshots. Validation is advisory: operations never return an error
// and never panic; internal failures surface as invalid results with a
// message. All methods are pure reads of the campaign document.
type CampaignValidator interface {
	ValidatePricing(campaign *domain.Campaign) ValidationResult
	ValidateReach(campaign *domain.Campaign) ValidationResult
	RecalculateMetrics(campaign *domain.Campaign) RecalculatedMetrics
}

// CompletionProgress reports how far a not-yet-complete placement has come.
type CompletionProgress struct {
	Delivered int64   `json:"delivered"`
	Expected  int64   `json:"expected"`
	Percent   float64 `json:"percent"`
}

// CompletionCheckResult is the discriminated outcome of a completion check.
// Completed is true only when the check marked the placement delivered during
// this call; AlreadyDelivered flags the idempotent no-op case. Retryable
// marks transient failures (store timeout, version conflict) worth retrying
// on the next sweep.
type CompletionCheckResult struct {
	Completed        bool                `json:"completed"`
	AlreadyDelivered bool                `json:"alreadyDelivered,omitempty"`
	Retryable        bool                `json:"retryable,omitempty"`
	Reason           string              `json:"reason"`
	Progress         *CompletionProgress `json:"progress,omitempty"`
}

// BatchCheckResult aggregates per-placement checks over one order.
type BatchCheckResult struct {
	Checked   int                              `json:"checked"`
	Completed int                              `json:"completed"`
	Results   map[string]CompletionCheckResult `json:"results"`
}

// CompletionEngine drives placement delivery state. Checks never propagate
// errors; every failure mode is folded into the result's Reason.
type CompletionEngine interface {
	// CheckAndCompleteIfReady runs the full promotion-and-completion pass for
	// one placement: opportunistic accepted→in_production promotion inside
	// the campaign grace window, then the channel-specific completion check.
	CheckAndCompleteIfReady(ctx context.Context, orderID, itemPath string, channel domain.Channel) CompletionCheckResult
	// CheckAllPlacementsInOrder checks every non-excluded placement of the
	// order's publication selection.
	CheckAllPlacementsInOrder(ctx context.Context, orderID string) BatchCheckResult
	// CheckDigitalPlacementsForCampaignEnd sweeps only digital placements
	// currently in production, intended for after the campaign end date to
	// close out placements that never met their impressions goal.
	CheckDigitalPlacementsForCampaignEnd(ctx context.Context, orderID string) BatchCheckResult
}

// TransitionResult reports whether a requested status change is legal.
type TransitionResult struct {
	Valid bool   `json:"valid"`
	Error string `json:"error,omitempty"`
}

// OrderStatusService guards order and placement status transitions and
// derives order status from placement statuses.
type OrderStatusService interface {
	ValidateStatusTransition(current, next domain.OrderStatus) TransitionResult
	// TransitionOrder applies a guarded order transition, appending to the
	// status history. Illegal transitions come back as TransitionResult with
	// Valid=false; store failures as an error.
	TransitionOrder(ctx context.Context, orderID string, next domain.OrderStatus, actor, notes string) (TransitionResult, error)
	// TransitionPlacement applies a manual placement transition (accept,
	// suspend, un-suspend). Un-suspending returns the placement to pending.
	TransitionPlacement(ctx context.Context, orderID, itemPath string, next domain.PlacementStatus, actor, notes string) (TransitionResult, error)
}

// CampaignLifecycle covers the coarse campaign status machine and
// post-approval insertion-order generation.
type CampaignLifecycle interface {
	SubmitForApproval(ctx context.Context, campaignID, actor string) (TransitionResult, error)
	Approve(ctx context.Context, campaignID, approver string) (TransitionResult, error)
	Reject(ctx context.Context, campaignID, approver, reason string) (TransitionResult, error)
	// GenerateInsertionOrders creates one order per participating
	// publication. Generation is idempotent-guarded: it fails with
	// ErrOrdersExist when the campaign already has live orders.
	GenerateInsertionOrders(ctx context.Context, campaignID, actor string) ([]domain.InsertionOrder, error)
}
