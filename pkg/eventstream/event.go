package eventstream

import "time"

const (
	// SchemaVersionV1 is the first version of the event payload schema.
	SchemaVersionV1 = 1

	// EventTypePointInserted is emitted after a point is committed to the index.
	EventTypePointInserted = "imghash.point.inserted"

	// EventTypeVantagePointPromoted is emitted after a new vantage point is added.
	EventTypeVantagePointPromoted = "imghash.vantage_point.promoted"

	// EventTypeBalanced is emitted after a vantage point's shell boundaries are recomputed.
	EventTypeBalanced = "imghash.balanced"
)

// Event is a transport-neutral event payload describing an index mutation.
// Exactly one of the payload fields is populated, matching Type.
type Event struct {
	SchemaVersion int       `json:"schema_version"`
	Type          string    `json:"type"`
	EmittedAt     time.Time `json:"emitted_at"`

	PointInserted        *PointInsertedPayload         `json:"point_inserted,omitempty"`
	VantagePointPromoted *VantagePointPromotedPayload  `json:"vantage_point_promoted,omitempty"`
	Balanced             *BalancedPayload              `json:"balanced,omitempty"`
}

// PointInsertedPayload describes a single point committed to the index.
type PointInsertedPayload struct {
	PointID int64  `json:"point_id"`
	Hash    string `json:"hash"`
}

// VantagePointPromotedPayload describes a point promoted to vantage point status.
type VantagePointPromotedPayload struct {
	VantagePointID int64  `json:"vantage_point_id"`
	Value          string `json:"value"`
	PointCount     int64  `json:"point_count"`
}

// BalancedPayload describes a vantage point whose shell boundaries were
// recomputed. pkg/mvp's Balance publishes PartitionID as 0.
type BalancedPayload struct {
	PartitionID    int64 `json:"partition_id"`
	VantagePointID int64 `json:"vantage_point_id"`
	PointCount     int   `json:"point_count"`
}

// NewPointInsertedEvent builds an Event for a committed point insertion.
func NewPointInsertedEvent(pointID int64, hash string) Event {
	return Event{
		SchemaVersion: SchemaVersionV1,
		Type:          EventTypePointInserted,
		PointInserted: &PointInsertedPayload{PointID: pointID, Hash: hash},
	}
}

// NewVantagePointPromotedEvent builds an Event for a newly promoted vantage
// point. pointCount is the number of existing points backfilled with a
// distance to the new vantage point.
func NewVantagePointPromotedEvent(vpID int64, value string, pointCount int64) Event {
	return Event{
		SchemaVersion: SchemaVersionV1,
		Type:          EventTypeVantagePointPromoted,
		VantagePointPromoted: &VantagePointPromotedPayload{
			VantagePointID: vpID,
			Value:          value,
			PointCount:     pointCount,
		},
	}
}

// NewBalancedEvent builds an Event for a vantage point whose balance was recomputed.
func NewBalancedEvent(partitionID, vpID int64, pointCount int) Event {
	return Event{
		SchemaVersion: SchemaVersionV1,
		Type:          EventTypeBalanced,
		Balanced: &BalancedPayload{
			PartitionID:    partitionID,
			VantagePointID: vpID,
			PointCount:     pointCount,
		},
	}
}
