// Package resource provides file-backed persistence for the content library.
// Every record is one JSON file under a type-specific directory; the Store
// handles single-record I/O and the Manager adds enumeration, caching, and
// the library fingerprint used to detect out-of-band changes.
package resource

// Type identifies a kind of content record. Each type owns one directory
// under the library root.
type Type string

const (
	TypeTemplate  Type = "template"
	TypeInstance  Type = "instance"
	TypeGraph     Type = "graph"
	TypeComposite Type = "composite"

	TypePlayerTemplate Type = "player_template"
	TypePlayerClass    Type = "player_class"
	TypeUnitStatus     Type = "unit_status"
	TypeSkill          Type = "skill"
	TypeProjectile     Type = "projectile"
	TypeItem           Type = "item"
)

// typeDirs maps each resource type to its directory relative to the library
// root. Management types are appended in init below.
var typeDirs = map[Type]string{
	TypeTemplate:  "templates",
	TypeInstance:  "instances",
	TypeGraph:     "graphs",
	TypeComposite: "composites",

	TypePlayerTemplate: "combat/player_templates",
	TypePlayerClass:    "combat/player_classes",
	TypeUnitStatus:     "combat/unit_statuses",
	TypeSkill:          "combat/skills",
	TypeProjectile:     "combat/projectiles",
	TypeItem:           "combat/items",
}

// Dir returns the directory for the type relative to the library root.
// Unknown types fall back to their own name so a stray record still lands
// somewhere deterministic.
func (t Type) Dir() string {
	if dir, ok := typeDirs[t]; ok {
		return dir
	}
	return string(t)
}

// Valid reports whether the type is one of the known content types.
func (t Type) Valid() bool {
	_, ok := typeDirs[t]
	return ok
}

// CombatBucket is one of the fixed combat-preset groupings inside a package
// manifest. Each bucket maps to exactly one resource type.
type CombatBucket string

const (
	BucketPlayerTemplates CombatBucket = "player_templates"
	BucketPlayerClasses   CombatBucket = "player_classes"
	BucketUnitStatuses    CombatBucket = "unit_statuses"
	BucketSkills          CombatBucket = "skills"
	BucketProjectiles     CombatBucket = "projectiles"
	BucketItems           CombatBucket = "items"
)

// CombatBuckets lists every bucket in manifest order.
var CombatBuckets = []CombatBucket{
	BucketPlayerTemplates,
	BucketPlayerClasses,
	BucketUnitStatuses,
	BucketSkills,
	BucketProjectiles,
	BucketItems,
}

type combatBucketInfo struct {
	resourceType Type
	idField      string
}

var combatBucketTable = map[CombatBucket]combatBucketInfo{
	BucketPlayerTemplates: {TypePlayerTemplate, "template_id"},
	BucketPlayerClasses:   {TypePlayerClass, "class_id"},
	BucketUnitStatuses:    {TypeUnitStatus, "status_id"},
	BucketSkills:          {TypeSkill, "skill_id"},
	BucketProjectiles:     {TypeProjectile, "projectile_id"},
	BucketItems:           {TypeItem, "item_id"},
}

// ResourceType returns the resource type backing the bucket.
func (b CombatBucket) ResourceType() Type { return combatBucketTable[b].resourceType }

// IDField returns the payload field that carries the bucket-specific ID.
func (b CombatBucket) IDField() string { return combatBucketTable[b].idField }

// Valid reports whether the bucket is one of the fixed combat buckets.
func (b CombatBucket) Valid() bool {
	_, ok := combatBucketTable[b]
	return ok
}

// ManagementField is one of the fixed management-configuration groupings
// inside a package manifest. Each field maps to its own resource type stored
// under management/<field>.
type ManagementField string

const (
	FieldTimers                 ManagementField = "timers"
	FieldLevelVariables         ManagementField = "level_variables"
	FieldPresetPoints           ManagementField = "preset_points"
	FieldSkillResources         ManagementField = "skill_resources"
	FieldCurrencyBackpack       ManagementField = "currency_backpack"
	FieldEquipmentData          ManagementField = "equipment_data"
	FieldShopTemplates          ManagementField = "shop_templates"
	FieldUILayouts              ManagementField = "ui_layouts"
	FieldUIWidgetTemplates      ManagementField = "ui_widget_templates"
	FieldMultiLanguage          ManagementField = "multi_language"
	FieldMainCameras            ManagementField = "main_cameras"
	FieldLightSources           ManagementField = "light_sources"
	FieldBackgroundMusic        ManagementField = "background_music"
	FieldPaths                  ManagementField = "paths"
	FieldEntityDeploymentGroups ManagementField = "entity_deployment_groups"
	FieldUnitTags               ManagementField = "unit_tags"
	FieldScanTags               ManagementField = "scan_tags"
	FieldShields                ManagementField = "shields"
	FieldPeripheralSystems      ManagementField = "peripheral_systems"
	FieldSavePoints             ManagementField = "save_points"
	FieldChatChannels           ManagementField = "chat_channels"
	FieldLevelSettings          ManagementField = "level_settings"
	FieldSignals                ManagementField = "signals"
	FieldStructDefinitions      ManagementField = "struct_definitions"
)

// ManagementFields lists every management field in manifest order.
var ManagementFields = []ManagementField{
	FieldTimers,
	FieldLevelVariables,
	FieldPresetPoints,
	FieldSkillResources,
	FieldCurrencyBackpack,
	FieldEquipmentData,
	FieldShopTemplates,
	FieldUILayouts,
	FieldUIWidgetTemplates,
	FieldMultiLanguage,
	FieldMainCameras,
	FieldLightSources,
	FieldBackgroundMusic,
	FieldPaths,
	FieldEntityDeploymentGroups,
	FieldUnitTags,
	FieldScanTags,
	FieldShields,
	FieldPeripheralSystems,
	FieldSavePoints,
	FieldChatChannels,
	FieldLevelSettings,
	FieldSignals,
	FieldStructDefinitions,
}

// singleConfigFields are management fields that hold one aggregate config
// body per package rather than many independent records.
var singleConfigFields = map[ManagementField]bool{
	FieldSavePoints:    true,
	FieldLevelSettings: true,
}

// ResourceType returns the resource type backing the management field.
func (f ManagementField) ResourceType() Type {
	return Type("management_" + string(f))
}

// SingleConfig reports whether the field holds a single aggregate config
// body per package instead of many records.
func (f ManagementField) SingleConfig() bool { return singleConfigFields[f] }

// Valid reports whether the field is one of the fixed management fields.
func (f ManagementField) Valid() bool {
	for _, known := range ManagementFields {
		if known == f {
			return true
		}
	}
	return false
}

func init() {
	for _, field := range ManagementFields {
		typeDirs[field.ResourceType()] = "management/" + string(field)
	}
}

// AllTypes returns every known resource type in deterministic order:
// base types, combat types, then management types in manifest order.
func AllTypes() []Type {
	types := []Type{TypeTemplate, TypeInstance, TypeGraph, TypeComposite}
	for _, bucket := range CombatBuckets {
		types = append(types, bucket.ResourceType())
	}
	for _, field := range ManagementFields {
		types = append(types, field.ResourceType())
	}
	return types
}
