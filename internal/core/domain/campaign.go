package domain

import (
	"math"
	"time"

	"go.mongodb.org/mongo-driver/bson/primitive"
)

// CampaignStatus is the coarse campaign lifecycle, separate from the
// per-publication insertion-order status.
type CampaignStatus string

const (
	CampaignDraft           CampaignStatus = "draft"
	CampaignPendingApproval CampaignStatus = "pending_approval"
	CampaignApproved        CampaignStatus = "approved"
	CampaignActive          CampaignStatus = "active"
	CampaignPaused          CampaignStatus = "paused"
	CampaignCompleted       CampaignStatus = "completed"
	CampaignCancelled       CampaignStatus = "cancelled"
)

// Campaign is an advertising buy spanning one or more publications and
// channels. Pricing and reach snapshots are last-computed values; the
// validator recomputes them from SelectedInventory on demand.
// Collection: campaigns.
type Campaign struct {
	ID                   primitive.ObjectID  `bson:"_id,omitempty" json:"id,omitempty"`
	CampaignID           string              `bson:"campaignId" json:"campaignId"`
	Name                 string              `bson:"name" json:"name"`
	Timeline             Timeline            `bson:"timeline" json:"timeline"`
	SelectedInventory    SelectedInventory   `bson:"selectedInventory" json:"selectedInventory"`
	Pricing              PricingSnapshot     `bson:"pricing" json:"pricing"`
	EstimatedPerformance PerformanceSnapshot `bson:"estimatedPerformance" json:"estimatedPerformance"`
	Status               CampaignStatus      `bson:"status" json:"status"`
	Approval             *Approval           `bson:"approval,omitempty" json:"approval,omitempty"`
	CreatedAt            time.Time           `bson:"createdAt" json:"createdAt"`
	UpdatedAt            time.Time           `bson:"updatedAt" json:"updatedAt"`
}

// Timeline holds the campaign flight dates plus derived durations. Durations
// are computed once by NewTimeline; DurationMonths may be fractional for
// sub-month flights.
type Timeline struct {
	StartDate      time.Time `bson:"startDate" json:"startDate"`
	EndDate        time.Time `bson:"endDate" json:"endDate"`
	DurationWeeks  float64   `bson:"durationWeeks" json:"durationWeeks"`
	DurationMonths float64   `bson:"durationMonths" json:"durationMonths"`
}

// NewTimeline derives weekly and monthly durations from a start/end pair.
// Flights shorter than 28 days express months as a fraction of 4-week months
// (weeks/4); longer flights round to whole 30-day months, never below 1.
// Per-occurrence pricing multiplies by this value, so the rule must stay
// stable to keep stored totals reconcilable with recomputed ones.
func NewTimeline(start, end time.Time) Timeline {
	days := end.Sub(start).Hours() / 24
	if days < 0 {
		days = 0
	}
	weeks := days / 7

	var months float64
	if days < 28 {
		months = weeks / 4
	} else {
		months = math.Round(days / 30)
		if months < 1 {
			months = 1
		}
	}

	return Timeline{
		StartDate:      start,
		EndDate:        end,
		DurationWeeks:  weeks,
		DurationMonths: months,
	}
}

// SelectedInventory is the ordered set of per-publication inventory
// selections the buyer assembled.
type SelectedInventory struct {
	Publications []PublicationSelection `bson:"publications" json:"publications"`
}

// PublicationSelection is one publication's slice of the campaign: the
// publication reference plus its chosen inventory line items.
type PublicationSelection struct {
	PublicationID   string          `bson:"publicationId" json:"publicationId"`
	PublicationName string          `bson:"publicationName,omitempty" json:"publicationName,omitempty"`
	InventoryItems  []InventoryItem `bson:"inventoryItems" json:"inventoryItems"`
}

// PricingModel determines how an inventory item's rate converts to cost.
type PricingModel string

const (
	// PricingFlat is a one-time charge regardless of flight length.
	PricingFlat PricingModel = "flat"
	// PricingMonthly charges the rate once per month of the flight.
	PricingMonthly PricingModel = "monthly"
	// PricingCPM charges the rate per thousand monthly impressions, per month.
	PricingCPM PricingModel = "cpm"
	// PricingPerOccurrence charges the rate per scheduled occurrence, per month.
	PricingPerOccurrence PricingModel = "per_occurrence"
)

// InventoryItem is one line of ad inventory within a publication selection.
// ItemPath is the stable key used in placementStatuses, deliveryGoals and the
// performance/proof ledgers. Paths use '/' separators so they remain legal
// MongoDB map keys.
type InventoryItem struct {
	ItemPath           string       `bson:"itemPath" json:"itemPath"`
	SourcePath         string       `bson:"sourcePath,omitempty" json:"sourcePath,omitempty"`
	Name               string       `bson:"name,omitempty" json:"name,omitempty"`
	Channel            Channel      `bson:"channel" json:"channel"`
	PricingModel       PricingModel `bson:"pricingModel" json:"pricingModel"`
	Rate               float64      `bson:"rate" json:"rate"`
	MonthlyImpressions int64        `bson:"monthlyImpressions,omitempty" json:"monthlyImpressions,omitempty"`
	AudienceSize       int64        `bson:"audienceSize,omitempty" json:"audienceSize,omitempty"`
	CurrentFrequency   int          `bson:"currentFrequency,omitempty" json:"currentFrequency,omitempty"`
	Quantity           int          `bson:"quantity,omitempty" json:"quantity,omitempty"`
	Excluded           bool         `bson:"excluded,omitempty" json:"excluded,omitempty"`
}

// PricingSnapshot is the last persisted pricing computation.
type PricingSnapshot struct {
	Subtotal          float64            `bson:"subtotal" json:"subtotal"`
	PublicationTotals map[string]float64 `bson:"publicationTotals,omitempty" json:"publicationTotals,omitempty"`
}

// PerformanceSnapshot is the last persisted reach estimate.
type PerformanceSnapshot struct {
	Reach ReachEstimate `bson:"reach" json:"reach"`
}

// ReachEstimate brackets estimated unique reach. Validation reads Min and
// falls back to Max when Min is unset.
type ReachEstimate struct {
	Min int64 `bson:"min,omitempty" json:"min,omitempty"`
	Max int64 `bson:"max,omitempty" json:"max,omitempty"`
}

// StoredReach returns the snapshot value validation compares against: Min
// when present, otherwise Max.
func (r ReachEstimate) StoredReach() int64 {
	if r.Min > 0 {
		return r.Min
	}
	return r.Max
}

// Approval carries the metadata attached to campaign approval transitions.
type Approval struct {
	ApprovedBy      string     `bson:"approvedBy,omitempty" json:"approvedBy,omitempty"`
	ApprovedAt      *time.Time `bson:"approvedAt,omitempty" json:"approvedAt,omitempty"`
	RejectedBy      string     `bson:"rejectedBy,omitempty" json:"rejectedBy,omitempty"`
	RejectedAt      *time.Time `bson:"rejectedAt,omitempty" json:"rejectedAt,omitempty"`
	RejectionReason string     `bson:"rejectionReason,omitempty" json:"rejectionReason,omitempty"`
}

// Publication returns the selection for the given publication id, or nil.
func (c *Campaign) Publication(publicationID string) *PublicationSelection {
	for i := range c.SelectedInventory.Publications {
		if c.SelectedInventory.Publications[i].PublicationID == publicationID {
			return &c.SelectedInventory.Publications[i]
		}
	}
	return nil
}

// Item returns the inventory item with the given path within a publication
// selection, or nil. SourcePath is accepted as an alias for legacy documents.
func (p *PublicationSelection) Item(itemPath string) *InventoryItem {
	for i := range p.InventoryItems {
		if p.InventoryItems[i].ItemPath == itemPath || p.InventoryItems[i].SourcePath == itemPath {
			return &p.InventoryItems[i]
		}
	}
	return nil
}
