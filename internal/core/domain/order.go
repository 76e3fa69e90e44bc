package domain

import "time"

// OrderStatus is the insertion order's own lifecycle, independent from the
// statuses of its placements.
type OrderStatus string

const (
	OrderDraft        OrderStatus = "draft"
	OrderSent         OrderStatus = "sent"
	OrderConfirmed    OrderStatus = "confirmed"
	OrderRejected     OrderStatus = "rejected"
	OrderInProduction OrderStatus = "in_production"
	OrderDelivered    OrderStatus = "delivered"
)

// PlacementStatus tracks one inventory line within an order. Suspended is
// orthogonal: reachable from any non-terminal status, left only by an
// explicit manual transition back to pending.
type PlacementStatus string

const (
	PlacementPending      PlacementStatus = "pending"
	PlacementAccepted     PlacementStatus = "accepted"
	PlacementInProduction PlacementStatus = "in_production"
	PlacementDelivered    PlacementStatus = "delivered"
	PlacementSuspended    PlacementStatus = "suspended"
)

// SystemActor is recorded as ChangedBy on transitions the completion engine
// performs on its own.
const SystemActor = "system"

// InsertionOrder is the order one publication receives for one campaign.
// Placement state lives exclusively in PlacementStatuses, keyed by item path;
// placements themselves carry no mutable status. Orders are never hard
// deleted, only marked with DeletedAt. Version backs optimistic concurrency
// on the read-modify-write cycle. Collection: insertion_orders.
type InsertionOrder struct {
	ID                     string                     `bson:"_id" json:"id"`
	CampaignID             string                     `bson:"campaignId" json:"campaignId"`
	PublicationID          string                     `bson:"publicationId" json:"publicationId"`
	Status                 OrderStatus                `bson:"status" json:"status"`
	PlacementStatuses      map[string]PlacementStatus `bson:"placementStatuses" json:"placementStatuses"`
	PlacementStatusHistory []PlacementStatusChange    `bson:"placementStatusHistory,omitempty" json:"placementStatusHistory,omitempty"`
	StatusHistory          []OrderStatusChange        `bson:"statusHistory,omitempty" json:"statusHistory,omitempty"`
	DeliveryGoals          map[string]DeliveryGoal    `bson:"deliveryGoals,omitempty" json:"deliveryGoals,omitempty"`
	Version                int64                      `bson:"version" json:"version"`
	CreatedAt              time.Time                  `bson:"createdAt" json:"createdAt"`
	UpdatedAt              time.Time                  `bson:"updatedAt" json:"updatedAt"`
	DeletedAt              *time.Time                 `bson:"deletedAt,omitempty" json:"deletedAt,omitempty"`
}

// DeliveryGoal is the impressions target for one digital placement.
type DeliveryGoal struct {
	GoalValue int64  `bson:"goalValue" json:"goalValue"`
	Metric    string `bson:"metric,omitempty" json:"metric,omitempty"`
}

// OrderStatusChange is one entry in the order's append-only status audit log.
type OrderStatusChange struct {
	ID        string      `bson:"id" json:"id"`
	From      OrderStatus `bson:"from,omitempty" json:"from,omitempty"`
	To        OrderStatus `bson:"to" json:"to"`
	ChangedBy string      `bson:"changedBy" json:"changedBy"`
	ChangedAt time.Time   `bson:"changedAt" json:"changedAt"`
	Notes     string      `bson:"notes,omitempty" json:"notes,omitempty"`
}

// PlacementStatusChange is one entry in the placement-level audit log.
type PlacementStatusChange struct {
	ID        string          `bson:"id" json:"id"`
	ItemPath  string          `bson:"itemPath" json:"itemPath"`
	From      PlacementStatus `bson:"from,omitempty" json:"from,omitempty"`
	To        PlacementStatus `bson:"to" json:"to"`
	ChangedBy string          `bson:"changedBy" json:"changedBy"`
	ChangedAt time.Time       `bson:"changedAt" json:"changedAt"`
	Notes     string          `bson:"notes,omitempty" json:"notes,omitempty"`
}

// PlacementStatus returns the tracked status for an item path, defaulting to
// pending when the path has never been recorded.
func (o *InsertionOrder) PlacementStatus(itemPath string) PlacementStatus {
	if s, ok := o.PlacementStatuses[itemPath]; ok {
		return s
	}
	return PlacementPending
}
