package entity

import (
	"database/sql/driver"
	"encoding/json"
	"fmt"
	"time"
)

// JSONB jsonb column type
type JSONB map[string]interface{}

func (j JSONB) Value() (driver.Value, error) {
	if j == nil {
		return nil, nil
	}
	return json.Marshal(j)
}

func (j *JSONB) Scan(value interface{}) error {
	if value == nil {
		*j = nil
		return nil
	}
	bytes, ok := value.([]byte)
	if !ok {
		return fmt.Errorf("failed to scan JSONB: %v", value)
	}
	return json.Unmarshal(bytes, j)
}

// Component types
const (
	ComponentTypeSpool      = "spool"
	ComponentTypeValve      = "valve"
	ComponentTypeFitting    = "fitting"
	ComponentTypeFlange     = "flange"
	ComponentTypeGasket     = "gasket"
	ComponentTypeSupport    = "support"
	ComponentTypeInstrument = "instrument"
	ComponentTypeFieldWeld  = "field_weld"
	ComponentTypeThreaded   = "threaded"
)

// Component 可追踪的管道安装构件（阀门、管段、现场焊口等）
type Component struct {
	ID            string `json:"id" gorm:"primaryKey;size:32"`
	DrawingID     string `json:"drawing_id" gorm:"size:32;not null;index"`
	ComponentType string `json:"component_type" gorm:"size:32;not null;index"`

	// Identity key: commodity code + size + sequence within the drawing
	CommodityCode string `json:"commodity_code" gorm:"size:64"`
	Size          string `json:"size" gorm:"size:32"`
	Seq           int    `json:"seq" gorm:"default:1"`
	Description   string `json:"description" gorm:"type:text"`

	// Milestone name -> bool (discrete) or 0-100 number (partial).
	// Keys are constrained to the resolved template for the component type.
	CurrentMilestones JSONB   `json:"current_milestones" gorm:"type:jsonb;not null;default:'{}'"`
	PercentComplete   float64 `json:"percent_complete" gorm:"type:numeric(5,2);not null;default:0"`

	Retired   bool      `json:"retired" gorm:"default:false;index"`
	CreatedBy string    `json:"created_by" gorm:"size:32"`
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

func (Component) TableName() string {
	return "components"
}

// MilestoneValue 返回某里程碑的当前值，不存在时 ok=false
func (c *Component) MilestoneValue(name string) (interface{}, bool) {
	if c.CurrentMilestones == nil {
		return nil, false
	}
	v, ok := c.CurrentMilestones[name]
	return v, ok
}

// Drawing 图纸（ISO 图号），构件的归属分组
type Drawing struct {
	ID        string    `json:"id" gorm:"primaryKey;size:32"`
	ProjectID string    `json:"project_id" gorm:"size:32;not null;uniqueIndex:idx_drawings_project_number"`
	Number    string    `json:"number" gorm:"size:64;not null;uniqueIndex:idx_drawings_project_number"`
	Title     string    `json:"title" gorm:"size:200"`
	Retired   bool      `json:"retired" gorm:"default:false"`
	CreatedBy string    `json:"created_by" gorm:"size:32"`
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

func (Drawing) TableName() string {
	return "drawings"
}

// DrawingProgress 图纸级进度汇总（物化缓存视图，非事实来源）
type DrawingProgress struct {
	DrawingID           string   `json:"drawing_id"`
	TotalComponents     int64    `json:"total_components"`
	CompletedComponents int64    `json:"completed_components"`
	AvgPercentComplete  *float64 `json:"avg_percent_complete"` // nil when the drawing has no components
}
