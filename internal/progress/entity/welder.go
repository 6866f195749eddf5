package entity

import "time"

// Welder verification statuses
const (
	WelderUnverified = "unverified"
	WelderVerified   = "verified"
)

// Welder 项目内焊工名册，钢印号在项目内唯一
type Welder struct {
	ID        string `json:"id" gorm:"primaryKey;size:32"`
	ProjectID string `json:"project_id" gorm:"size:32;not null;uniqueIndex:idx_welders_project_stencil"`
	Stencil   string `json:"stencil" gorm:"size:16;not null;uniqueIndex:idx_welders_project_stencil"`
	Name      string `json:"name" gorm:"size:100"`

	// Reserved for qualification workflow; not consulted by progress logic
	VerificationStatus string `json:"verification_status" gorm:"size:16;not null;default:'unverified'"`

	CreatedBy string    `json:"created_by" gorm:"size:32"`
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

func (Welder) TableName() string {
	return "welders"
}
