package model

import "time"

// MaterialType classifies the material referenced by a release.
type MaterialType struct {
	ID          int64     `gorm:"primaryKey" json:"id"`
	Name        string    `gorm:"size:100;not null" json:"name"`
	Description *string   `json:"description"`
	Status      Status    `gorm:"size:16;not null;default:'active'" json:"status"`
	CreatedAt   time.Time `json:"created_at"`
	UpdatedAt   time.Time `json:"updated_at"`
}

func (MaterialType) TableName() string { return "material_types" }
