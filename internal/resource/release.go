package resource

import (
	"strconv"

	"ops-console-backend/internal/model"
	"ops-console-backend/internal/store"
	"ops-console-backend/internal/view"
)

type ReleaseInput struct {
	Quota          int64        `json:"quota" validate:"required,gt=0"`
	Sequence       int64        `json:"sequence" validate:"required,gt=0"`
	MaterialTypeID int64        `json:"material_type_id" validate:"required,gt=0"`
	PlannedMass    *float64     `json:"planned_mass,omitempty" validate:"omitempty,gt=0"`
	ModelGrade     *float64     `json:"model_grade,omitempty" validate:"omitempty,gt=0"`
	PlannedGrade   *float64     `json:"planned_grade,omitempty" validate:"omitempty,gt=0"`
	Status         model.Status `json:"status" validate:"required,oneof=active inactive"`
}

func (in *ReleaseInput) Normalize() {
	if in.Status == "" {
		in.Status = model.StatusActive
	}
}

func (in *ReleaseInput) Model() model.Release {
	return model.Release{
		Quota:          in.Quota,
		Sequence:       in.Sequence,
		MaterialTypeID: in.MaterialTypeID,
		PlannedMass:    in.PlannedMass,
		ModelGrade:     in.ModelGrade,
		PlannedGrade:   in.PlannedGrade,
		Status:         in.Status,
	}
}

type ReleasePatch struct {
	Quota          *int64            `json:"quota,omitempty" validate:"omitempty,gt=0"`
	Sequence       *int64            `json:"sequence,omitempty" validate:"omitempty,gt=0"`
	MaterialTypeID *int64            `json:"material_type_id,omitempty" validate:"omitempty,gt=0"`
	PlannedMass    Nullable[float64] `json:"planned_mass,omitzero" validate:"omitempty,gt=0"`
	ModelGrade     Nullable[float64] `json:"model_grade,omitzero" validate:"omitempty,gt=0"`
	PlannedGrade   Nullable[float64] `json:"planned_grade,omitzero" validate:"omitempty,gt=0"`
	Status         *model.Status     `json:"status,omitempty" validate:"omitempty,oneof=active inactive"`
}

func (p *ReleasePatch) Normalize() {}

func (p *ReleasePatch) Updates() map[string]any {
	u := map[string]any{}
	if p.Quota != nil {
		u["quota"] = *p.Quota
	}
	if p.Sequence != nil {
		u["sequence"] = *p.Sequence
	}
	if p.MaterialTypeID != nil {
		u["material_type_id"] = *p.MaterialTypeID
	}
	for col, n := range map[string]Nullable[float64]{
		"planned_mass":  p.PlannedMass,
		"model_grade":   p.ModelGrade,
		"planned_grade": p.PlannedGrade,
	} {
		if n.Set {
			u[col] = n.column()
		}
	}
	if p.Status != nil {
		u["status"] = *p.Status
	}
	return u
}

func (p *ReleasePatch) Apply(row *model.Release) {
	if p.Quota != nil {
		row.Quota = *p.Quota
	}
	if p.Sequence != nil {
		row.Sequence = *p.Sequence
	}
	if p.MaterialTypeID != nil && *p.MaterialTypeID != row.MaterialTypeID {
		row.MaterialTypeID = *p.MaterialTypeID
		row.MaterialTypeName = ""
	}
	if p.PlannedMass.Set {
		row.PlannedMass = p.PlannedMass.ptr()
	}
	if p.ModelGrade.Set {
		row.ModelGrade = p.ModelGrade.ptr()
	}
	if p.PlannedGrade.Set {
		row.PlannedGrade = p.PlannedGrade.ptr()
	}
	if p.Status != nil {
		row.Status = *p.Status
	}
}

// Release lists newest first and carries its material type name.
var Release = &Definition[model.Release]{
	Kind:      "releases",
	Label:     "Release",
	Tag:       TagReleases,
	NewInput:  func() Input[model.Release] { return &ReleaseInput{} },
	NewPatch:  func() Patch[model.Release] { return &ReleasePatch{} },
	ID:        func(r model.Release) int64 { return r.ID },
	SetID:     func(r *model.Release, id int64) { r.ID = id },
	Status:    func(r model.Release) model.Status { return r.Status },
	SetStatus: func(r *model.Release, s model.Status) { r.Status = s },
	Gateway: []store.Option[model.Release]{
		store.OrderBy[model.Release]("created_at", true),
		store.Join("MaterialType", func(r *model.Release) {
			if r.MaterialType != nil {
				r.MaterialTypeName = r.MaterialType.Name
			}
		}),
	},
	View: &view.Table[model.Release]{
		Columns: []view.Column[model.Release]{
			{Key: "id", Header: "ID", Kind: view.Numeric, Value: func(r model.Release) any { return r.ID }},
			{Key: "quota", Header: "Quota", Kind: view.Numeric, Value: func(r model.Release) any { return r.Quota }},
			{Key: "sequence", Header: "Sequence", Kind: view.Numeric, Value: func(r model.Release) any { return r.Sequence }},
			{Key: "material_type_name", Header: "Material type", Kind: view.Text, Value: func(r model.Release) any { return r.MaterialTypeName }},
			{Key: "planned_mass", Header: "Planned mass", Kind: view.Numeric, Value: func(r model.Release) any { return r.PlannedMass }},
			{Key: "model_grade", Header: "Model grade", Kind: view.Numeric, Value: func(r model.Release) any { return r.ModelGrade }},
			{Key: "planned_grade", Header: "Planned grade", Kind: view.Numeric, Value: func(r model.Release) any { return r.PlannedGrade }},
			{Key: "status", Header: "Status", Kind: view.Text, Value: func(r model.Release) any { return r.Status }},
			{Key: "created_at", Header: "Created", Kind: view.Date, Value: func(r model.Release) any { return r.CreatedAt }},
		},
		DefaultSort: "id",
		Search: func(r model.Release) []string {
			return []string{
				strconv.FormatInt(r.ID, 10),
				strconv.FormatInt(r.Quota, 10),
				strconv.FormatInt(r.Sequence, 10),
				r.MaterialTypeName,
			}
		},
		Status: func(r model.Release) model.Status { return r.Status },
	},
}
