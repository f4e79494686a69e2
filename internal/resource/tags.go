package resource

// Cache tags, one per kind plus the dashboard aggregate.
const (
	TagEquipment      = "equipment:list"
	TagEquipmentTypes = "equipment_types:list"
	TagMaterialTypes  = "material_types:list"
	TagOperators      = "operators:list"
	TagReleases       = "releases:list"
	TagDashboard      = "dashboard:data"
)
