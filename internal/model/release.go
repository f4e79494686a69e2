package model

import "time"

// Release is a planned material release against a quota.
type Release struct {
	ID             int64    `gorm:"primaryKey" json:"id"`
	Quota          int64    `gorm:"not null" json:"quota"`
	Sequence       int64    `gorm:"not null" json:"sequence"`
	MaterialTypeID int64    `gorm:"index;not null" json:"material_type_id"`
	PlannedMass    *float64 `json:"planned_mass"`
	ModelGrade     *float64 `json:"model_grade"`
	PlannedGrade   *float64 `json:"planned_grade"`
	Status         Status   `gorm:"size:16;not null;default:'active'" json:"status"`

	// MaterialTypeName is denormalized from the joined material type.
	MaterialTypeName string `gorm:"-" json:"material_type_name"`

	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`

	// Associations
	MaterialType *MaterialType `gorm:"foreignKey:MaterialTypeID;constraint:OnDelete:RESTRICT" json:"-"`
}

func (Release) TableName() string { return "releases" }
