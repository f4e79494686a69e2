package model

import "time"

// Equipment is a tagged piece of plant equipment.
type Equipment struct {
	ID     int64  `gorm:"primaryKey" json:"id"`
	SeqID  *int64 `gorm:"column:seq_id;->;-:migration" json:"seq_id"`
	Tag    string `gorm:"size:100;not null" json:"tag"`
	TypeID *int64 `gorm:"index" json:"type_id"`
	Status Status `gorm:"size:16;not null;default:'active'" json:"status"`

	// TypeName is denormalized from the joined equipment type.
	TypeName string `gorm:"-" json:"type_name"`

	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`

	// Associations
	Type *EquipmentType `gorm:"foreignKey:TypeID;constraint:OnDelete:SET NULL" json:"-"`
}

func (Equipment) TableName() string { return "equipment" }
