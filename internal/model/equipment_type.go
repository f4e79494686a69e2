package model

import "time"

// EquipmentType groups equipment. It carries no status.
type EquipmentType struct {
	ID          int64     `gorm:"primaryKey" json:"id"`
	Name        string    `gorm:"size:100;not null" json:"name"`
	Description *string   `json:"description"`
	CreatedAt   time.Time `json:"created_at"`
	UpdatedAt   time.Time `json:"updated_at"`
}

func (EquipmentType) TableName() string { return "equipment_types" }
