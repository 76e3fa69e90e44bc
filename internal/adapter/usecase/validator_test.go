package usecase

import (
	"io"
	"log/slog"
	"testing"

	"github.com/stretchr/testify/require"

	"admarket/internal/core/domain"
)

func testLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

// campaignWithFlatItem builds a one-item campaign whose recalculated subtotal
// is exactly rate, so the stored/calculated discrepancy is fully controlled.
func campaignWithFlatItem(storedSubtotal, rate float64) *domain.Campaign {
	return &domain.Campaign{
		CampaignID: "cmp-1",
		Timeline:   domain.Timeline{DurationMonths: 1},
		Pricing:    domain.PricingSnapshot{Subtotal: storedSubtotal},
		SelectedInventory: domain.SelectedInventory{
			Publications: []domain.PublicationSelection{{
				PublicationID: "pub-1",
				InventoryItems: []domain.InventoryItem{{
					ItemPath:     "pub-1/site/banner",
					Channel:      domain.ChannelWebsite,
					PricingModel: domain.PricingFlat,
					Rate:         rate,
				}},
			}},
		},
	}
}

func TestValidatePricingWithinTolerance(t *testing.T) {
	v := NewCampaignValidator(testLogger())

	result := v.ValidatePricing(campaignWithFlatItem(1000, 1005))
	require.True(t, result.IsValid, "0.5%% drift must pass the 1%% band: %s", result.Message)
	require.InDelta(t, 0.5, result.Discrepancy, 1e-9)
	require.Equal(t, 1000.0, result.Stored)
	require.Equal(t, 1005.0, result.Calculated)
}

func TestValidatePricingBeyondTolerance(t *testing.T) {
	v := NewCampaignValidator(testLogger())

	result := v.ValidatePricing(campaignWithFlatItem(1000, 1020))
	require.False(t, result.IsValid, "2%% drift must fail the 1%% band")
	require.InDelta(t, 2.0, result.Discrepancy, 1e-9)
	require.NotEmpty(t, result.Message)
}

func TestValidatePricingNoInventoryIsTriviallyValid(t *testing.T) {
	v := NewCampaignValidator(testLogger())

	result := v.ValidatePricing(&domain.Campaign{CampaignID: "cmp-empty"})
	require.True(t, result.IsValid)
	require.Zero(t, result.Stored)
	require.Zero(t, result.Calculated)
}

func TestValidatePricingDefaultsDurationToOneMonth(t *testing.T) {
	v := NewCampaignValidator(testLogger())

	campaign := campaignWithFlatItem(1000, 1000)
	campaign.Timeline.DurationMonths = 0
	campaign.SelectedInventory.Publications[0].InventoryItems[0].PricingModel = domain.PricingMonthly

	result := v.ValidatePricing(campaign)
	require.True(t, result.IsValid)
	require.Equal(t, 1000.0, result.Calculated)
}

func campaignWithAudience(storedMin, audience int64) *domain.Campaign {
	return &domain.Campaign{
		CampaignID: "cmp-2",
		Timeline:   domain.Timeline{DurationMonths: 1},
		EstimatedPerformance: domain.PerformanceSnapshot{
			Reach: domain.ReachEstimate{Min: storedMin},
		},
		SelectedInventory: domain.SelectedInventory{
			Publications: []domain.PublicationSelection{{
				PublicationID: "pub-1",
				InventoryItems: []domain.InventoryItem{{
					ItemPath:     "pub-1/site/banner",
					Channel:      domain.ChannelWebsite,
					AudienceSize: audience,
				}},
			}},
		},
	}
}

func TestValidateReachWithinTolerance(t *testing.T) {
	v := NewCampaignValidator(testLogger())

	result := v.ValidateReach(campaignWithAudience(10000, 10900))
	require.True(t, result.IsValid, "9%% drift must pass the 10%% band: %s", result.Message)
	require.InDelta(t, 9.0, result.Discrepancy, 1e-9)
}

func TestValidateReachBeyondTolerance(t *testing.T) {
	v := NewCampaignValidator(testLogger())

	result := v.ValidateReach(campaignWithAudience(10000, 11500))
	require.False(t, result.IsValid, "15%% drift must fail the 10%% band")
	require.InDelta(t, 15.0, result.Discrepancy, 1e-9)
}

func TestValidateReachFallsBackToMax(t *testing.T) {
	v := NewCampaignValidator(testLogger())

	campaign := campaignWithAudience(0, 10000)
	campaign.EstimatedPerformance.Reach = domain.ReachEstimate{Max: 10000}

	result := v.ValidateReach(campaign)
	require.True(t, result.IsValid)
	require.Equal(t, 10000.0, result.Stored)
}

func TestRecalculateMetricsDoesNotMutateCampaign(t *testing.T) {
	v := NewCampaignValidator(testLogger())

	campaign := campaignWithFlatItem(999, 1234)
	metrics := v.RecalculateMetrics(campaign)

	require.Equal(t, 1234.0, metrics.Pricing.Subtotal)
	require.Equal(t, 1234.0, metrics.Pricing.PublicationTotals["pub-1"])
	// Snapshot stays untouched; persisting is the caller's decision.
	require.Equal(t, 999.0, campaign.Pricing.Subtotal)
}
