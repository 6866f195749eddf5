package entity

import (
	"encoding/json"
	"time"
)

// Milestone event actions
const (
	EventActionComplete = "complete"
	EventActionRollback = "rollback"
	EventActionUpdate   = "update"
)

// MilestoneEvent 里程碑变更审计事件，只追加，永不修改或删除
type MilestoneEvent struct {
	ID          string `json:"id" gorm:"primaryKey;size:32"`
	ComponentID string `json:"component_id" gorm:"size:32;not null;index"`
	Milestone   string `json:"milestone" gorm:"size:64;not null"`
	Action      string `json:"action" gorm:"size:16;not null"` // complete/rollback/update

	NewValue  json.RawMessage `json:"new_value" gorm:"type:jsonb"`
	PrevValue json.RawMessage `json:"prev_value" gorm:"type:jsonb"` // null when the milestone was not set

	ActorID   string    `json:"actor_id" gorm:"size:32;not null"`
	Metadata  JSONB     `json:"metadata" gorm:"type:jsonb"`
	CreatedAt time.Time `json:"created_at" gorm:"index"`
}

func (MilestoneEvent) TableName() string {
	return "milestone_events"
}
