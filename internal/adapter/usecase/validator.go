package usecase

import (
	"fmt"
	"log/slog"
	"math"

	"admarket/internal/core/domain"
	"admarket/internal/core/port"
	"admarket/internal/core/pricing"
)

// Drift tolerances. Pricing is exact arithmetic so the band is tight; reach
// estimates are inherently fuzzy and get a looser one.
const (
	pricingTolerancePercent = 1.0
	reachTolerancePercent   = 10.0
)

// CampaignValidator recomputes pricing and reach from raw inventory and
// compares against the stored snapshot. It implements port.CampaignValidator.
// Validation is advisory: a discrepancy is logged at warn level and returned,
// never raised, so campaign persistence proceeds regardless.
type CampaignValidator struct {
	logger *slog.Logger
}

// NewCampaignValidator returns a validator logging through the given logger.
func NewCampaignValidator(logger *slog.Logger) *CampaignValidator {
	return &CampaignValidator{logger: logger}
}

// ValidatePricing recomputes the campaign subtotal from selected inventory
// and compares it against pricing.subtotal. Valid when the discrepancy is
// under 1% of the stored value. A campaign with no inventory is trivially
// valid with zero totals.
func (v *CampaignValidator) ValidatePricing(campaign *domain.Campaign) (result port.ValidationResult) {
	defer v.recoverInto(&result, "pricing validation")

	pubs := campaign.SelectedInventory.Publications
	if len(pubs) == 0 {
		return port.ValidationResult{IsValid: true, Message: "no inventory selected; nothing to validate"}
	}

	months := campaign.Timeline.DurationMonths
	if months <= 0 {
		months = 1
	}

	stored := campaign.Pricing.Subtotal
	calculated := pricing.CampaignTotal(pubs, months).InexactFloat64()
	discrepancy := percentDiscrepancy(stored, calculated)

	result = port.ValidationResult{
		IsValid:     discrepancy < pricingTolerancePercent,
		Stored:      stored,
		Calculated:  calculated,
		Discrepancy: discrepancy,
	}
	if result.IsValid {
		result.Message = "stored pricing matches recalculated total"
	} else {
		result.Message = fmt.Sprintf("stored subtotal %.2f differs from recalculated total %.2f by %.2f%%", stored, calculated, discrepancy)
		v.logger.Warn("campaign pricing drift detected",
			slog.String("campaignId", campaign.CampaignID),
			slog.Float64("stored", stored),
			slog.Float64("calculated", calculated),
			slog.Float64("discrepancyPercent", discrepancy))
	}
	return result
}

// ValidateReach recomputes estimated unique reach and compares it against
// estimatedPerformance.reach (min, falling back to max). Valid when the
// discrepancy is under 10% of the stored value.
func (v *CampaignValidator) ValidateReach(campaign *domain.Campaign) (result port.ValidationResult) {
	defer v.recoverInto(&result, "reach validation")

	pubs := campaign.SelectedInventory.Publications
	if len(pubs) == 0 {
		return port.ValidationResult{IsValid: true, Message: "no inventory selected; nothing to validate"}
	}

	stored := float64(campaign.EstimatedPerformance.Reach.StoredReach())
	calculated := float64(pricing.PackageReach(pubs).EstimatedUniqueReach)
	discrepancy := percentDiscrepancy(stored, calculated)

	result = port.ValidationResult{
		IsValid:     discrepancy < reachTolerancePercent,
		Stored:      stored,
		Calculated:  calculated,
		Discrepancy: discrepancy,
	}
	if result.IsValid {
		result.Message = "stored reach matches recalculated estimate"
	} else {
		result.Message = fmt.Sprintf("stored reach %.0f differs from recalculated estimate %.0f by %.2f%%", stored, calculated, discrepancy)
		v.logger.Warn("campaign reach drift detected",
			slog.String("campaignId", campaign.CampaignID),
			slog.Float64("stored", stored),
			slog.Float64("calculated", calculated),
			slog.Float64("discrepancyPercent", discrepancy))
	}
	return result
}

// RecalculateMetrics recomputes both metric families for persistence. It does
// not write anything; the caller decides whether to overwrite the snapshot.
func (v *CampaignValidator) RecalculateMetrics(campaign *domain.Campaign) port.RecalculatedMetrics {
	pubs := campaign.SelectedInventory.Publications
	months := campaign.Timeline.DurationMonths
	if months <= 0 {
		months = 1
	}

	return port.RecalculatedMetrics{
		Pricing: port.PricingTotals{
			Subtotal:          pricing.CampaignTotal(pubs, months).InexactFloat64(),
			PublicationTotals: pricing.PublicationTotals(pubs, months),
		},
		Reach: pricing.PackageReach(pubs),
	}
}

// recoverInto converts a panic inside a validation pass into a
// validation-failure result. Validation must never crash campaign creation.
func (v *CampaignValidator) recoverInto(result *port.ValidationResult, op string) {
	if r := recover(); r != nil {
		v.logger.Error("validation failed unexpectedly", slog.String("operation", op), slog.Any("panic", r))
		*result = port.ValidationResult{
			IsValid: false,
			Message: fmt.Sprintf("%s failed: %v", op, r),
		}
	}
}

// percentDiscrepancy returns |stored-calculated| as a percentage of stored.
// A zero stored value with a nonzero calculated one is full drift.
func percentDiscrepancy(stored, calculated float64) float64 {
	if stored == 0 {
		if calculated == 0 {
			return 0
		}
		return 100
	}
	return math.Abs(stored-calculated) / math.Abs(stored) * 100
}
