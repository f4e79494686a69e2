package resource

import (
	"strconv"

	"ops-console-backend/internal/model"
	"ops-console-backend/internal/store"
	"ops-console-backend/internal/view"
)

// OperatorInput is the create payload for operators. The PIN is kept as
// typed, four digits in clear text.
type OperatorInput struct {
	Name   string       `json:"name" validate:"required,min=3,max=60"`
	PIN    string       `json:"pin" validate:"required,pin4"`
	Status model.Status `json:"status" validate:"required,oneof=active inactive"`
}

func (in *OperatorInput) Normalize() {
	trim(&in.Name)
	if in.Status == "" {
		in.Status = model.StatusActive
	}
}

func (in *OperatorInput) Model() model.Operator {
	return model.Operator{Name: in.Name, PIN: in.PIN, Status: in.Status}
}

type OperatorPatch struct {
	Name   *string       `json:"name,omitempty" validate:"omitempty,min=3,max=60"`
	PIN    *string       `json:"pin,omitempty" validate:"omitempty,pin4"`
	Status *model.Status `json:"status,omitempty" validate:"omitempty,oneof=active inactive"`
}

func (p *OperatorPatch) Normalize() { trim(p.Name) }

func (p *OperatorPatch) Updates() map[string]any {
	u := map[string]any{}
	if p.Name != nil {
		u["name"] = *p.Name
	}
	if p.PIN != nil {
		u["pin"] = *p.PIN
	}
	if p.Status != nil {
		u["status"] = *p.Status
	}
	return u
}

func (p *OperatorPatch) Apply(row *model.Operator) {
	if p.Name != nil {
		row.Name = *p.Name
	}
	if p.PIN != nil {
		row.PIN = *p.PIN
	}
	if p.Status != nil {
		row.Status = *p.Status
	}
}

// Operator lists by display sequence, falling back to creation order on
// schemas without seq_id.
var Operator = &Definition[model.Operator]{
	Kind:      "operators",
	Label:     "Operator",
	Tag:       TagOperators,
	NewInput:  func() Input[model.Operator] { return &OperatorInput{} },
	NewPatch:  func() Patch[model.Operator] { return &OperatorPatch{} },
	ID:        func(o model.Operator) int64 { return o.ID },
	SetID:     func(o *model.Operator, id int64) { o.ID = id },
	Status:    func(o model.Operator) model.Status { return o.Status },
	SetStatus: func(o *model.Operator, s model.Status) { o.Status = s },
	Gateway: []store.Option[model.Operator]{
		store.SequenceOrder("seq_id", "created_at", func(o *model.Operator, seq int64) { o.SeqID = &seq }),
	},
	View: &view.Table[model.Operator]{
		Columns: []view.Column[model.Operator]{
			{Key: "id", Header: "ID", Kind: view.Numeric, Value: func(o model.Operator) any { return o.ID }},
			{Key: "name", Header: "Name", Kind: view.Text, Value: func(o model.Operator) any { return o.Name }},
			{Key: "pin", Header: "PIN", Kind: view.Text, Value: func(o model.Operator) any { return o.PIN }},
			{Key: "status", Header: "Status", Kind: view.Text, Value: func(o model.Operator) any { return o.Status }},
			{Key: "created_at", Header: "Created", Kind: view.Date, Value: func(o model.Operator) any { return o.CreatedAt }},
		},
		DefaultSort: "id",
		Search: func(o model.Operator) []string {
			return []string{strconv.FormatInt(o.ID, 10), o.Name, o.PIN}
		},
		Status: func(o model.Operator) model.Status { return o.Status },
	},
}
