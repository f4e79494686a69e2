package resource

import (
	"ops-console-backend/internal/model"
	"ops-console-backend/internal/store"
	"ops-console-backend/internal/view"
)

type EquipmentTypeInput struct {
	Name        string  `json:"name" validate:"required,max=100"`
	Description *string `json:"description,omitempty"`
}

func (in *EquipmentTypeInput) Normalize() {
	trim(&in.Name)
	in.Description = optionalText(in.Description)
}

func (in *EquipmentTypeInput) Model() model.EquipmentType {
	return model.EquipmentType{Name: in.Name, Description: in.Description}
}

type EquipmentTypePatch struct {
	Name        *string          `json:"name,omitempty" validate:"omitempty,min=1,max=100"`
	Description Nullable[string] `json:"description,omitzero"`
}

func (p *EquipmentTypePatch) Normalize() {
	trim(p.Name)
	p.Description = normalizeText(p.Description)
}

func (p *EquipmentTypePatch) Updates() map[string]any {
	u := map[string]any{}
	if p.Name != nil {
		u["name"] = *p.Name
	}
	if p.Description.Set {
		u["description"] = p.Description.column()
	}
	return u
}

func (p *EquipmentTypePatch) Apply(row *model.EquipmentType) {
	if p.Name != nil {
		row.Name = *p.Name
	}
	if p.Description.Set {
		row.Description = p.Description.ptr()
	}
}

// normalizeText trims a nullable text and turns blank into null.
func normalizeText(n Nullable[string]) Nullable[string] {
	if !n.Valid {
		return n
	}
	if t := optionalText(&n.Value); t != nil {
		return Value(*t)
	}
	return Null[string]()
}

// EquipmentType has no status; toggling it is unsupported.
var EquipmentType = &Definition[model.EquipmentType]{
	Kind:     "equipment_types",
	Label:    "Equipment type",
	Tag:      TagEquipmentTypes,
	NewInput: func() Input[model.EquipmentType] { return &EquipmentTypeInput{} },
	NewPatch: func() Patch[model.EquipmentType] { return &EquipmentTypePatch{} },
	ID:       func(e model.EquipmentType) int64 { return e.ID },
	SetID:    func(e *model.EquipmentType, id int64) { e.ID = id },
	Gateway: []store.Option[model.EquipmentType]{
		store.OrderBy[model.EquipmentType]("name", false),
	},
	View: &view.Table[model.EquipmentType]{
		Columns: []view.Column[model.EquipmentType]{
			{Key: "id", Header: "ID", Kind: view.Numeric, Value: func(e model.EquipmentType) any { return e.ID }},
			{Key: "name", Header: "Name", Kind: view.Text, Value: func(e model.EquipmentType) any { return e.Name }},
			{Key: "description", Header: "Description", Kind: view.Text, Value: func(e model.EquipmentType) any { return e.Description }},
			{Key: "created_at", Header: "Created", Kind: view.Date, Value: func(e model.EquipmentType) any { return e.CreatedAt }},
		},
		DefaultSort: "name",
		Search: func(e model.EquipmentType) []string {
			return []string{e.Name, view.Format(e.Description)}
		},
	},
}
