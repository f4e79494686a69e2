package model

import "time"

// Operator is a person allowed to work the line. The PIN is stored as
// entered (four digits, no hashing).
type Operator struct {
	ID        int64     `gorm:"primaryKey" json:"id"`
	SeqID     *int64    `gorm:"column:seq_id;->;-:migration" json:"seq_id"`
	Name      string    `gorm:"size:60;not null" json:"name"`
	PIN       string    `gorm:"column:pin;size:4;not null" json:"pin"`
	Status    Status    `gorm:"size:16;not null;default:'active'" json:"status"`
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

func (Operator) TableName() string { return "operators" }
