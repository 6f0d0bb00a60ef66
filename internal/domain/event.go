package domain

import "time"

// Event types emitted by moderation actions
const (
	EventRecordApproved  = "record.approved"
	EventRecordRejected  = "record.rejected"
	EventRecordDeleted   = "record.deleted"
	EventDemonsReordered = "demons.reordered"
)

// Event represents a moderation action for downstream consumers
type Event struct {
	Type      string                 `json:"type"`
	ActorID   string                 `json:"actor_id,omitempty"`
	RecordID  string                 `json:"record_id,omitempty"`
	DemonID   string                 `json:"demon_id,omitempty"`
	UserID    string                 `json:"user_id,omitempty"`
	ListType  ListType               `json:"list_type,omitempty"`
	Timestamp time.Time              `json:"timestamp"`
	Metadata  map[string]interface{} `json:"metadata,omitempty"`
}
