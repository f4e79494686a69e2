package resource

import (
	"strconv"

	"ops-console-backend/internal/model"
	"ops-console-backend/internal/store"
	"ops-console-backend/internal/view"
)

type MaterialTypeInput struct {
	Name        string       `json:"name" validate:"required,max=100"`
	Description *string      `json:"description,omitempty"`
	Status      model.Status `json:"status" validate:"required,oneof=active inactive"`
}

func (in *MaterialTypeInput) Normalize() {
	trim(&in.Name)
	in.Description = optionalText(in.Description)
	if in.Status == "" {
		in.Status = model.StatusActive
	}
}

func (in *MaterialTypeInput) Model() model.MaterialType {
	return model.MaterialType{Name: in.Name, Description: in.Description, Status: in.Status}
}

type MaterialTypePatch struct {
	Name        *string          `json:"name,omitempty" validate:"omitempty,min=1,max=100"`
	Description Nullable[string] `json:"description,omitzero"`
	Status      *model.Status    `json:"status,omitempty" validate:"omitempty,oneof=active inactive"`
}

func (p *MaterialTypePatch) Normalize() {
	trim(p.Name)
	p.Description = normalizeText(p.Description)
}

func (p *MaterialTypePatch) Updates() map[string]any {
	u := map[string]any{}
	if p.Name != nil {
		u["name"] = *p.Name
	}
	if p.Description.Set {
		u["description"] = p.Description.column()
	}
	if p.Status != nil {
		u["status"] = *p.Status
	}
	return u
}

func (p *MaterialTypePatch) Apply(row *model.MaterialType) {
	if p.Name != nil {
		row.Name = *p.Name
	}
	if p.Description.Set {
		row.Description = p.Description.ptr()
	}
	if p.Status != nil {
		row.Status = *p.Status
	}
}

var MaterialType = &Definition[model.MaterialType]{
	Kind:      "material_types",
	Label:     "Material type",
	Tag:       TagMaterialTypes,
	NewInput:  func() Input[model.MaterialType] { return &MaterialTypeInput{} },
	NewPatch:  func() Patch[model.MaterialType] { return &MaterialTypePatch{} },
	ID:        func(m model.MaterialType) int64 { return m.ID },
	SetID:     func(m *model.MaterialType, id int64) { m.ID = id },
	Status:    func(m model.MaterialType) model.Status { return m.Status },
	SetStatus: func(m *model.MaterialType, s model.Status) { m.Status = s },
	Gateway: []store.Option[model.MaterialType]{
		store.OrderBy[model.MaterialType]("name", false),
	},
	View: &view.Table[model.MaterialType]{
		Columns: []view.Column[model.MaterialType]{
			{Key: "id", Header: "ID", Kind: view.Numeric, Value: func(m model.MaterialType) any { return m.ID }},
			{Key: "name", Header: "Name", Kind: view.Text, Value: func(m model.MaterialType) any { return m.Name }},
			{Key: "description", Header: "Description", Kind: view.Text, Value: func(m model.MaterialType) any { return m.Description }},
			{Key: "status", Header: "Status", Kind: view.Text, Value: func(m model.MaterialType) any { return m.Status }},
			{Key: "created_at", Header: "Created", Kind: view.Date, Value: func(m model.MaterialType) any { return m.CreatedAt }},
		},
		DefaultSort: "id",
		Search: func(m model.MaterialType) []string {
			return []string{strconv.FormatInt(m.ID, 10), m.Name, view.Format(m.Description)}
		},
		Status: func(m model.MaterialType) model.Status { return m.Status },
	},
}
