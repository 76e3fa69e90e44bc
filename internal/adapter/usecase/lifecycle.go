package usecase

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/google/uuid"

	"admarket/internal/core/domain"
	"admarket/internal/core/port"
)

// campaignTransitions is the coarse campaign lifecycle, separate from the
// per-order machine.
var campaignTransitions = map[domain.CampaignStatus][]domain.CampaignStatus{
	domain.CampaignDraft:           {domain.CampaignPendingApproval, domain.CampaignCancelled},
	domain.CampaignPendingApproval: {domain.CampaignApproved, domain.CampaignDraft, domain.CampaignCancelled},
	domain.CampaignApproved:        {domain.CampaignActive, domain.CampaignCancelled},
	domain.CampaignActive:          {domain.CampaignPaused, domain.CampaignCompleted, domain.CampaignCancelled},
	domain.CampaignPaused:          {domain.CampaignActive, domain.CampaignCancelled},
	domain.CampaignCompleted:       {},
	domain.CampaignCancelled:       {},
}

// CampaignLifecycleUseCase drives the campaign approval machine and
// post-approval insertion-order generation. It implements
// port.CampaignLifecycle.
type CampaignLifecycleUseCase struct {
	campaigns port.CampaignStore
	orders    port.OrderStore
	logger    *slog.Logger
	now       func() time.Time
}

// NewCampaignLifecycleUseCase wires the lifecycle over its stores.
func NewCampaignLifecycleUseCase(campaigns port.CampaignStore, orders port.OrderStore, logger *slog.Logger) *CampaignLifecycleUseCase {
	return &CampaignLifecycleUseCase{campaigns: campaigns, orders: orders, logger: logger, now: time.Now}
}

func validateCampaignTransition(current, next domain.CampaignStatus) port.TransitionResult {
	if current == next {
		return port.TransitionResult{Valid: false, Error: fmt.Sprintf("campaign status is already %q", current)}
	}
	allowed, ok := campaignTransitions[current]
	if !ok {
		return port.TransitionResult{Valid: false, Error: fmt.Sprintf("unknown campaign status %q", current)}
	}
	for _, s := range allowed {
		if s == next {
			return port.TransitionResult{Valid: true}
		}
	}
	return port.TransitionResult{Valid: false, Error: fmt.Sprintf("cannot move campaign from %q to %q", current, next)}
}

// SubmitForApproval moves a draft campaign into pending_approval.
func (u *CampaignLifecycleUseCase) SubmitForApproval(ctx context.Context, campaignID, actor string) (port.TransitionResult, error) {
	return u.transition(ctx, campaignID, domain.CampaignPendingApproval, func(c *domain.Campaign) {})
}

// Approve moves a pending campaign to approved and records the approver.
func (u *CampaignLifecycleUseCase) Approve(ctx context.Context, campaignID, approver string) (port.TransitionResult, error) {
	at := u.now()
	return u.transition(ctx, campaignID, domain.CampaignApproved, func(c *domain.Campaign) {
		c.Approval = &domain.Approval{ApprovedBy: approver, ApprovedAt: &at}
	})
}

// Reject returns a pending campaign to draft and records the rejection.
func (u *CampaignLifecycleUseCase) Reject(ctx context.Context, campaignID, approver, reason string) (port.TransitionResult, error) {
	at := u.now()
	return u.transition(ctx, campaignID, domain.CampaignDraft, func(c *domain.Campaign) {
		c.Approval = &domain.Approval{RejectedBy: approver, RejectedAt: &at, RejectionReason: reason}
	})
}

func (u *CampaignLifecycleUseCase) transition(ctx context.Context, campaignID string, next domain.CampaignStatus, apply func(*domain.Campaign)) (port.TransitionResult, error) {
	campaign, err := u.campaigns.GetCampaign(ctx, campaignID)
	if err != nil {
		return port.TransitionResult{}, err
	}
	if res := validateCampaignTransition(campaign.Status, next); !res.Valid {
		return res, nil
	}

	campaign.Status = next
	campaign.UpdatedAt = u.now()
	apply(campaign)
	if err := u.campaigns.UpdateCampaign(ctx, campaign); err != nil {
		return port.TransitionResult{}, err
	}

	u.logger.Info("campaign status changed",
		slog.String("campaignId", campaign.CampaignID),
		slog.String("status", string(next)))
	return port.TransitionResult{Valid: true}, nil
}

// GenerateInsertionOrders creates one draft order per participating
// publication of an approved campaign. Placement statuses are seeded pending
// and digital placements get impressions goals derived from their monthly
// estimates over the flight duration. Generation is idempotent-guarded: a
// campaign that already has live orders fails with port.ErrOrdersExist.
func (u *CampaignLifecycleUseCase) GenerateInsertionOrders(ctx context.Context, campaignID, actor string) ([]domain.InsertionOrder, error) {
	campaign, err := u.campaigns.GetCampaign(ctx, campaignID)
	if err != nil {
		return nil, err
	}
	if campaign.Status != domain.CampaignApproved && campaign.Status != domain.CampaignActive {
		return nil, fmt.Errorf("campaign %q is %q; insertion orders are generated after approval", campaign.CampaignID, campaign.Status)
	}

	existing, err := u.orders.ListOrdersByCampaign(ctx, campaign.CampaignID)
	if err != nil {
		return nil, err
	}
	for _, o := range existing {
		if o.DeletedAt == nil {
			return nil, port.ErrOrdersExist
		}
	}

	months := campaign.Timeline.DurationMonths
	if months <= 0 {
		months = 1
	}

	now := u.now()
	orders := make([]domain.InsertionOrder, 0, len(campaign.SelectedInventory.Publications))
	for _, pub := range campaign.SelectedInventory.Publications {
		order := domain.InsertionOrder{
			ID:                uuid.NewString(),
			CampaignID:        campaign.CampaignID,
			PublicationID:     pub.PublicationID,
			Status:            domain.OrderDraft,
			PlacementStatuses: make(map[string]domain.PlacementStatus),
			DeliveryGoals:     make(map[string]domain.DeliveryGoal),
			Version:           1,
			CreatedAt:         now,
			UpdatedAt:         now,
		}
		order.StatusHistory = []domain.OrderStatusChange{{
			ID:        uuid.NewString(),
			To:        domain.OrderDraft,
			ChangedBy: actor,
			ChangedAt: now,
			Notes:     "order generated from approved campaign",
		}}
		for _, item := range pub.InventoryItems {
			if item.Excluded {
				continue
			}
			order.PlacementStatuses[item.ItemPath] = domain.PlacementPending
			if item.Channel.IsDigital() && item.MonthlyImpressions > 0 {
				order.DeliveryGoals[item.ItemPath] = domain.DeliveryGoal{
					GoalValue: int64(float64(item.MonthlyImpressions) * months),
					Metric:    "impressions",
				}
			}
		}
		orders = append(orders, order)
	}

	if err := u.orders.InsertOrders(ctx, orders); err != nil {
		return nil, err
	}
	u.logger.Info("insertion orders generated",
		slog.String("campaignId", campaign.CampaignID),
		slog.Int("orders", len(orders)))
	return orders, nil
}
