package domain

import (
	"time"

	"go.mongodb.org/mongo-driver/bson/primitive"
)

// PerformanceEntry is one timestamped delivery-metric record for a digital
// placement, keyed by order and item path. Entries are append-only and
// aggregated by summing metrics.impressions. Collection: performance_entries.
type PerformanceEntry struct {
	ID        primitive.ObjectID `bson:"_id,omitempty" json:"id,omitempty"`
	OrderID   string             `bson:"orderId" json:"orderId"`
	ItemPath  string             `bson:"itemPath" json:"itemPath"`
	Date      time.Time          `bson:"date" json:"date"`
	Metrics   PerformanceMetrics `bson:"metrics" json:"metrics"`
	CreatedAt time.Time          `bson:"createdAt" json:"createdAt"`
}

// PerformanceMetrics are the per-entry delivery counters.
type PerformanceMetrics struct {
	Impressions int64 `bson:"impressions" json:"impressions"`
	Clicks      int64 `bson:"clicks,omitempty" json:"clicks,omitempty"`
}

// ProofKind is the kind of evidence artifact attached to an order.
type ProofKind string

const (
	ProofTearSheet  ProofKind = "tear_sheet"
	ProofAffidavit  ProofKind = "affidavit"
	ProofScreenshot ProofKind = "screenshot"
)

// ProofOfPerformance is an uploaded evidence artifact for an offline
// placement. ItemPath is optional: an empty path marks an order-level proof,
// which under the order-wide proof scope counts toward every placement.
// Soft-deleted proofs are excluded from counts. Collection: proofs.
type ProofOfPerformance struct {
	ID         primitive.ObjectID `bson:"_id,omitempty" json:"id,omitempty"`
	OrderID    string             `bson:"orderId" json:"orderId"`
	ItemPath   string             `bson:"itemPath,omitempty" json:"itemPath,omitempty"`
	Kind       ProofKind          `bson:"kind" json:"kind"`
	FileURL    string             `bson:"fileUrl,omitempty" json:"fileUrl,omitempty"`
	UploadedBy string             `bson:"uploadedBy,omitempty" json:"uploadedBy,omitempty"`
	UploadedAt time.Time          `bson:"uploadedAt" json:"uploadedAt"`
	DeletedAt  *time.Time         `bson:"deletedAt,omitempty" json:"deletedAt,omitempty"`
}
