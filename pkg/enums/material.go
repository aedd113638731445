package enums

// MaterialCondition describes the physical state of a material.
type MaterialCondition string

const (
	MaterialConditionNew             MaterialCondition = "new"
	MaterialConditionGood            MaterialCondition = "good"
	MaterialConditionSlightlyDamaged MaterialCondition = "slightly_damaged"
	MaterialConditionNeedsRepair     MaterialCondition = "needs_repair"
	MaterialConditionScrap           MaterialCondition = "scrap"
)

var materialConditions = []MaterialCondition{
	MaterialConditionNew, MaterialConditionGood, MaterialConditionSlightlyDamaged,
	MaterialConditionNeedsRepair, MaterialConditionScrap,
}

func (c MaterialCondition) String() string { return string(c) }
func (c MaterialCondition) IsValid() bool  { return oneOf(c, materialConditions) }

// ParseMaterialCondition accepts any casing and surrounding whitespace.
func ParseMaterialCondition(raw string) (MaterialCondition, error) {
	return parse("material condition", raw, materialConditions)
}

// MaterialStatus tracks where a material is in its lifecycle.
type MaterialStatus string

const (
	MaterialStatusAvailable   MaterialStatus = "available"
	MaterialStatusReserved    MaterialStatus = "reserved"
	MaterialStatusTransferred MaterialStatus = "transferred"
	MaterialStatusArchived    MaterialStatus = "archived"
)

var materialStatuses = []MaterialStatus{
	MaterialStatusAvailable, MaterialStatusReserved, MaterialStatusTransferred, MaterialStatusArchived,
}

func (s MaterialStatus) String() string { return string(s) }
func (s MaterialStatus) IsValid() bool  { return oneOf(s, materialStatuses) }

// IsTerminal is true once the material has left circulation.
func (s MaterialStatus) IsTerminal() bool {
	return s == MaterialStatusTransferred || s == MaterialStatusArchived
}
