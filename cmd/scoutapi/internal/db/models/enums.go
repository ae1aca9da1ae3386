package models

import "strings"

// SessionStatus is the lifecycle status of a scouting session.
type SessionStatus string

const (
	StatusDraft      SessionStatus = "DRAFT"
	StatusNew        SessionStatus = "NEW"
	StatusInProgress SessionStatus = "IN_PROGRESS"
	StatusSubmitted  SessionStatus = "SUBMITTED"
	StatusReopened   SessionStatus = "REOPENED"
	StatusCompleted  SessionStatus = "COMPLETED"
	StatusIncomplete SessionStatus = "INCOMPLETE"
	StatusCancelled  SessionStatus = "CANCELLED"
)

// AllStatuses lists every session status in declaration order.
var AllStatuses = []SessionStatus{
	StatusDraft, StatusNew, StatusInProgress, StatusSubmitted,
	StatusReopened, StatusCompleted, StatusIncomplete, StatusCancelled,
}

// Valid reports whether s is a known status.
func (s SessionStatus) Valid() bool {
	for _, known := range AllStatuses {
		if s == known {
			return true
		}
	}
	return false
}

// AcceptsObservations reports whether observations may be written while the session has this status.
func (s SessionStatus) AcceptsObservations() bool {
	switch s {
	case StatusDraft, StatusNew, StatusInProgress, StatusReopened:
		return true
	}
	return false
}

// LockedForEditing reports whether session fields are frozen until the session is reopened.
func (s SessionStatus) LockedForEditing() bool {
	switch s {
	case StatusCompleted, StatusSubmitted, StatusIncomplete, StatusCancelled:
		return true
	}
	return false
}

// Role is the caller's platform role.
type Role string

const (
	RoleScout      Role = "SCOUT"
	RoleManager    Role = "MANAGER"
	RoleFarmAdmin  Role = "FARM_ADMIN"
	RoleSuperAdmin Role = "SUPER_ADMIN"
	RoleEdgeSync   Role = "EDGE_SYNC"
)

// AllRoles lists every role in declaration order.
var AllRoles = []Role{RoleScout, RoleManager, RoleFarmAdmin, RoleSuperAdmin, RoleEdgeSync}

// Valid reports whether r is a known role.
func (r Role) Valid() bool {
	for _, known := range AllRoles {
		if r == known {
			return true
		}
	}
	return false
}

// IsAdminFamily reports whether r may perform privileged lifecycle transitions.
func (r Role) IsAdminFamily() bool {
	return r == RoleSuperAdmin || r == RoleFarmAdmin || r == RoleManager
}

// ObservationCategory groups species codes.
type ObservationCategory string

const (
	CategoryPest       ObservationCategory = "PEST"
	CategoryDisease    ObservationCategory = "DISEASE"
	CategoryBeneficial ObservationCategory = "BENEFICIAL"
)

// SpeciesCode identifies a pest, disease or beneficial organism from the fixed catalog.
type SpeciesCode string

const (
	SpeciesThrips           SpeciesCode = "THRIPS"
	SpeciesRedSpiderMite    SpeciesCode = "RED_SPIDER_MITE"
	SpeciesWhiteflies       SpeciesCode = "WHITEFLIES"
	SpeciesMealybugs        SpeciesCode = "MEALYBUGS"
	SpeciesCaterpillars     SpeciesCode = "CATERPILLARS"
	SpeciesFalseCodlingMoth SpeciesCode = "FALSE_CODLING_MOTH"
	SpeciesPestOther        SpeciesCode = "PEST_OTHER"

	SpeciesDownyMildew   SpeciesCode = "DOWNY_MILDEW"
	SpeciesPowderyMildew SpeciesCode = "POWDERY_MILDEW"
	SpeciesBotrytis      SpeciesCode = "BOTRYTIS"
	SpeciesVerticillium  SpeciesCode = "VERTICILLIUM"
	SpeciesBacterialWilt SpeciesCode = "BACTERIAL_WILT"
	SpeciesDiseaseOther  SpeciesCode = "DISEASE_OTHER"

	SpeciesBeneficialPP SpeciesCode = "BENEFICIAL_PP"
)

type speciesInfo struct {
	category    ObservationCategory
	displayName string
}

var speciesCatalog = map[SpeciesCode]speciesInfo{
	SpeciesThrips:           {CategoryPest, "Thrips"},
	SpeciesRedSpiderMite:    {CategoryPest, "Red Spider Mite"},
	SpeciesWhiteflies:       {CategoryPest, "Whiteflies"},
	SpeciesMealybugs:        {CategoryPest, "Mealybugs"},
	SpeciesCaterpillars:     {CategoryPest, "Caterpillars"},
	SpeciesFalseCodlingMoth: {CategoryPest, "False Codling Moth"},
	SpeciesPestOther:        {CategoryPest, "Other Pest"},
	SpeciesDownyMildew:      {CategoryDisease, "Downy Mildew"},
	SpeciesPowderyMildew:    {CategoryDisease, "Powdery Mildew"},
	SpeciesBotrytis:         {CategoryDisease, "Botrytis"},
	SpeciesVerticillium:     {CategoryDisease, "Verticillium"},
	SpeciesBacterialWilt:    {CategoryDisease, "Bacterial Wilt"},
	SpeciesDiseaseOther:     {CategoryDisease, "Other Disease"},
	SpeciesBeneficialPP:     {CategoryBeneficial, "PP"},
}

// Valid reports whether c is in the species catalog.
func (c SpeciesCode) Valid() bool {
	_, ok := speciesCatalog[c]
	return ok
}

// Category returns the fixed category of the species. Unknown codes return "".
func (c SpeciesCode) Category() ObservationCategory {
	return speciesCatalog[c].category
}

// DisplayName returns the human readable species name.
func (c SpeciesCode) DisplayName() string {
	if info, ok := speciesCatalog[c]; ok {
		return info.displayName
	}
	return string(c)
}

// RecommendationType keys the free-form recommendations attached to a session.
type RecommendationType string

const (
	RecommendationBiologicalControl RecommendationType = "BIOLOGICAL_CONTROL"
	RecommendationChemicalSprays    RecommendationType = "CHEMICAL_SPRAYS"
	RecommendationOtherMethods      RecommendationType = "OTHER_METHODS"
)

// Valid reports whether t is a known recommendation type.
func (t RecommendationType) Valid() bool {
	switch t {
	case RecommendationBiologicalControl, RecommendationChemicalSprays, RecommendationOtherMethods:
		return true
	}
	return false
}

// AuditAction names a recorded lifecycle action.
type AuditAction string

const (
	AuditSessionCreated          AuditAction = "SESSION_CREATED"
	AuditSessionStarted          AuditAction = "SESSION_STARTED"
	AuditSessionSubmitted        AuditAction = "SESSION_SUBMITTED"
	AuditSessionCompleted        AuditAction = "SESSION_COMPLETED"
	AuditSessionReopened         AuditAction = "SESSION_REOPENED"
	AuditSessionMarkedIncomplete AuditAction = "SESSION_MARKED_INCOMPLETE"
)

// PhotoSyncStatus tracks whether a photo's binary has reached object storage.
type PhotoSyncStatus string

const (
	PhotoPendingUpload PhotoSyncStatus = "PENDING_UPLOAD"
	PhotoSynced        PhotoSyncStatus = "SYNCED"
)

// NormalizeTags trims tags, drops blanks and removes duplicates while keeping first-seen order.
func NormalizeTags(tags []string) []string {
	seen := make(map[string]struct{}, len(tags))
	out := make([]string, 0, len(tags))
	for _, tag := range tags {
		trimmed := strings.TrimSpace(tag)
		if trimmed == "" {
			continue
		}
		if _, dup := seen[trimmed]; dup {
			continue
		}
		seen[trimmed] = struct{}{}
		out = append(out, trimmed)
	}
	return out
}
