// Package pricing holds the pure cost and reach calculators. Everything here
// is stateless and deterministic: the validator recomputes campaign totals
// through these functions and compares them against stored snapshots, so the
// same inventory and duration must always produce the same numbers.
package pricing

import (
	"github.com/shopspring/decimal"

	"admarket/internal/core/domain"
)

// ItemCost resolves an inventory item's rate and pricing model into a total
// cost for the given flight duration. Duration may be fractional for
// sub-month flights. Missing or nonsensical data yields zero rather than an
// error; downstream validation tolerates zero baselines.
func ItemCost(item domain.InventoryItem, durationMonths float64) decimal.Decimal {
	if item.Excluded || item.Rate <= 0 || durationMonths < 0 {
		return decimal.Zero
	}

	rate := decimal.NewFromFloat(item.Rate)
	months := decimal.NewFromFloat(durationMonths)

	switch item.PricingModel {
	case domain.PricingFlat:
		return rate
	case domain.PricingMonthly:
		return rate.Mul(months)
	case domain.PricingCPM:
		if item.MonthlyImpressions <= 0 {
			return decimal.Zero
		}
		thousands := decimal.NewFromInt(item.MonthlyImpressions).Div(decimal.NewFromInt(1000))
		return rate.Mul(thousands).Mul(months)
	case domain.PricingPerOccurrence:
		occurrences := item.CurrentFrequency
		if occurrences <= 0 {
			occurrences = item.Quantity
		}
		if occurrences <= 0 {
			occurrences = 1
		}
		return rate.Mul(decimal.NewFromInt(int64(occurrences))).Mul(months)
	default:
		// Unknown model: charge the rate once so the line is not silently free.
		return rate
	}
}

// PublicationTotal sums ItemCost over all non-excluded items of one
// publication selection.
func PublicationTotal(pub domain.PublicationSelection, durationMonths float64) decimal.Decimal {
	total := decimal.Zero
	for _, item := range pub.InventoryItems {
		if item.Excluded {
			continue
		}
		total = total.Add(ItemCost(item, durationMonths))
	}
	return total
}

// CampaignTotal sums PublicationTotal over all publications. Order of
// publications and of items within a publication does not affect the result.
func CampaignTotal(pubs []domain.PublicationSelection, durationMonths float64) decimal.Decimal {
	total := decimal.Zero
	for _, pub := range pubs {
		total = total.Add(PublicationTotal(pub, durationMonths))
	}
	return total
}

// PublicationTotals returns the per-publication breakdown keyed by
// publication id, for persisting alongside the subtotal.
func PublicationTotals(pubs []domain.PublicationSelection, durationMonths float64) map[string]float64 {
	totals := make(map[string]float64, len(pubs))
	for _, pub := range pubs {
		totals[pub.PublicationID] = PublicationTotal(pub, durationMonths).InexactFloat64()
	}
	return totals
}

// ReachSummary aggregates audience and impression estimates across a
// campaign's selected inventory.
type ReachSummary struct {
	EstimatedUniqueReach    int64 `json:"estimatedUniqueReach"`
	EstimatedTotalReach     int64 `json:"estimatedTotalReach"`
	TotalMonthlyImpressions int64 `json:"totalMonthlyImpressions"`
	TotalMonthlyExposures   int64 `json:"totalMonthlyExposures"`
}

// PackageReach aggregates reach across publications. Audiences within one
// publication are assumed to overlap heavily, so a publication contributes
// its largest single-item audience. Across publications the largest audience
// counts in full and the rest count at half, approximating cross-publication
// overlap. Total reach is the plain sum of publication audiences. The
// heuristic is deterministic: identical inventory always yields identical
// numbers regardless of ordering.
func PackageReach(pubs []domain.PublicationSelection) ReachSummary {
	var summary ReachSummary
	var largest int64
	var audienceSum int64

	for _, pub := range pubs {
		var pubAudience int64
		for _, item := range pub.InventoryItems {
			if item.Excluded {
				continue
			}
			if item.AudienceSize > pubAudience {
				pubAudience = item.AudienceSize
			}
			summary.TotalMonthlyImpressions += item.MonthlyImpressions
			if item.Channel.IsDigital() {
				summary.TotalMonthlyExposures += item.MonthlyImpressions
			} else {
				freq := int64(item.CurrentFrequency)
				if freq <= 0 {
					freq = 1
				}
				summary.TotalMonthlyExposures += item.AudienceSize * freq
			}
		}
		audienceSum += pubAudience
		if pubAudience > largest {
			largest = pubAudience
		}
	}

	summary.EstimatedTotalReach = audienceSum
	summary.EstimatedUniqueReach = largest + (audienceSum-largest)/2
	return summary
}
