package resource

import (
	"strconv"

	"ops-console-backend/internal/model"
	"ops-console-backend/internal/store"
	"ops-console-backend/internal/view"
)

// EquipmentInput is the create payload for equipment.
type EquipmentInput struct {
	Tag    string       `json:"tag" validate:"required,max=100"`
	TypeID *int64       `json:"type_id,omitempty" validate:"omitempty,gt=0"`
	Status model.Status `json:"status" validate:"required,oneof=active inactive"`
}

func (in *EquipmentInput) Normalize() {
	trim(&in.Tag)
	if in.Status == "" {
		in.Status = model.StatusActive
	}
}

func (in *EquipmentInput) Model() model.Equipment {
	return model.Equipment{Tag: in.Tag, TypeID: in.TypeID, Status: in.Status}
}

// EquipmentPatch is a partial equipment update. An explicit null type_id
// detaches the equipment from its type.
type EquipmentPatch struct {
	Tag    *string         `json:"tag,omitempty" validate:"omitempty,min=1,max=100"`
	TypeID Nullable[int64] `json:"type_id,omitzero" validate:"omitempty,gt=0"`
	Status *model.Status   `json:"status,omitempty" validate:"omitempty,oneof=active inactive"`
}

func (p *EquipmentPatch) Normalize() { trim(p.Tag) }

func (p *EquipmentPatch) Updates() map[string]any {
	u := map[string]any{}
	if p.Tag != nil {
		u["tag"] = *p.Tag
	}
	if p.TypeID.Set {
		u["type_id"] = p.TypeID.column()
	}
	if p.Status != nil {
		u["status"] = *p.Status
	}
	return u
}

func (p *EquipmentPatch) Apply(row *model.Equipment) {
	if p.Tag != nil {
		row.Tag = *p.Tag
	}
	if p.TypeID.Set {
		row.TypeID = p.TypeID.ptr()
		if row.TypeID == nil {
			row.TypeName = ""
		}
	}
	if p.Status != nil {
		row.Status = *p.Status
	}
}

// Equipment lists by display sequence and carries its type name.
var Equipment = &Definition[model.Equipment]{
	Kind:     "equipment",
	Label:    "Equipment",
	Tag:      TagEquipment,
	NewInput: func() Input[model.Equipment] { return &EquipmentInput{} },
	NewPatch: func() Patch[model.Equipment] { return &EquipmentPatch{} },
	ID:       func(e model.Equipment) int64 { return e.ID },
	SetID:    func(e *model.Equipment, id int64) { e.ID = id },
	Status:   func(e model.Equipment) model.Status { return e.Status },
	SetStatus: func(e *model.Equipment, s model.Status) {
		e.Status = s
	},
	Gateway: []store.Option[model.Equipment]{
		store.SequenceOrder("seq_id", "created_at", func(e *model.Equipment, seq int64) { e.SeqID = &seq }),
		store.Join("Type", func(e *model.Equipment) {
			if e.Type != nil {
				e.TypeName = e.Type.Name
			}
		}),
	},
	View: &view.Table[model.Equipment]{
		Columns: []view.Column[model.Equipment]{
			{Key: "seq_id", Header: "#", Kind: view.Numeric, Value: func(e model.Equipment) any { return e.SeqID }},
			{Key: "tag", Header: "Tag", Kind: view.Text, Value: func(e model.Equipment) any { return e.Tag }},
			{Key: "type_name", Header: "Type", Kind: view.Text, Value: func(e model.Equipment) any { return e.TypeName }},
			{Key: "status", Header: "Status", Kind: view.Text, Value: func(e model.Equipment) any { return e.Status }},
			{Key: "created_at", Header: "Created", Kind: view.Date, Value: func(e model.Equipment) any { return e.CreatedAt }},
		},
		DefaultSort: "seq_id",
		Search: func(e model.Equipment) []string {
			return []string{strconv.FormatInt(e.ID, 10), e.Tag, e.TypeName}
		},
		Status: func(e model.Equipment) model.Status { return e.Status },
	},
}
