package auth

// Farm-scoped actions checked by the access gate.
const (
	// FarmAdmin allows creating, editing, completing and reopening sessions on a farm.
	FarmAdmin = "farm:admin"

	// FarmScout allows scouting work on a farm the actor is assigned to.
	FarmScout = "farm:scout"

	// FarmView allows reading sessions, sync deltas and heatmaps of a farm.
	FarmView = "farm:view"

	// FarmWildcard grants every farm action.
	FarmWildcard = "farm:*"
)

// Relations between an actor and a farm, used as the casbin object.
const (
	RelationOwner = "owner"
	RelationScout = "scout"
	RelationNone  = "none"
)

// ValidateAction checks if an action string is known to the gate.
func ValidateAction(action string) bool {
	switch action {
	case FarmAdmin, FarmScout, FarmView, FarmWildcard:
		return true
	}
	return false
}
