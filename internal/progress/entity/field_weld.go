package entity

import "time"

// Weld statuses
const (
	WeldStatusActive   = "active"
	WeldStatusAccepted = "accepted"
	WeldStatusRejected = "rejected"
)

// NDE results
const (
	NDEResultPass    = "PASS"
	NDEResultFail    = "FAIL"
	NDEResultPending = "PENDING"
)

// Well-known field weld milestone names (field_weld template)
const (
	MilestoneFitUp        = "Fit-up"
	MilestoneWeldComplete = "Weld Complete"
	MilestoneAccepted     = "Accepted"
)

// FieldWeld 现场焊口扩展记录，与 field_weld 类型的 Component 一一对应
type FieldWeld struct {
	ID          string `json:"id" gorm:"primaryKey;size:32"`
	ComponentID string `json:"component_id" gorm:"size:32;not null;uniqueIndex"`

	// Weld spec
	WeldType  string `json:"weld_type" gorm:"size:16"` // BW/SW/FW/TW
	WeldSize  string `json:"weld_size" gorm:"size:32"`
	Schedule  string `json:"schedule" gorm:"size:16"`
	BaseMetal string `json:"base_metal" gorm:"size:64"`
	SpecCode  string `json:"spec_code" gorm:"size:32"`

	WelderID *string    `json:"welder_id" gorm:"size:32;index"`
	WeldDate *time.Time `json:"weld_date"`

	// NDE (non-destructive examination)
	NDERequired bool       `json:"nde_required" gorm:"default:false"`
	NDEType     string     `json:"nde_type" gorm:"size:32"` // RT/UT/PT/MT/VT
	NDEResult   string     `json:"nde_result" gorm:"size:16"`
	NDEDate     *time.Time `json:"nde_date"`
	NDENotes    string     `json:"nde_notes" gorm:"type:text"`

	Status string `json:"status" gorm:"size:16;not null;default:'active'"` // active/accepted/rejected

	// Set when this weld repairs a rejected weld. Nullified if the
	// referenced record is deleted; traversal treats that as chain terminus.
	OriginalWeldID *string `json:"original_weld_id" gorm:"size:32;index"`

	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

func (FieldWeld) TableName() string {
	return "field_welds"
}

// IsRepair 是否为修复焊口
func (w *FieldWeld) IsRepair() bool {
	return w.OriginalWeldID != nil && *w.OriginalWeldID != ""
}
