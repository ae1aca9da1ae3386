package auth

import (
	_ "embed"
	"fmt"

	"github.com/casbin/casbin/v2"
	"github.com/casbin/casbin/v2/model"
	stringadapter "github.com/casbin/casbin/v2/persist/string-adapter"

	"github.com/katlaang/pestscan-sub000/cmd/scoutapi/internal/apperr"
	"github.com/katlaang/pestscan-sub000/cmd/scoutapi/internal/db/models"
)

//go:embed model.conf
var casbinModelContent string

//go:embed policy.csv
var casbinPolicyContent string

// Gate exposes the farm access predicates consumed by services.
type Gate interface {
	RequireAdmin(actor Actor, farm *models.Farm) error
	RequireScoutOfFarm(actor Actor, farm *models.Farm) error
	RequireViewAccess(actor Actor, farm *models.Farm) error
	HasViewAccess(actor Actor, farm *models.Farm) bool
}

// CasbinGate evaluates farm access with an embedded role/relation policy.
type CasbinGate struct {
	enforcer casbin.IEnforcer
}

// InitEnforcer creates a Casbin enforcer with the embedded model and policy.
func InitEnforcer() (casbin.IEnforcer, error) {
	m, err := model.NewModelFromString(casbinModelContent)
	if err != nil {
		return nil, fmt.Errorf("parse casbin model: %w", err)
	}

	enforcer, err := casbin.NewSyncedEnforcer(m, stringadapter.NewAdapter(casbinPolicyContent))
	if err != nil {
		return nil, fmt.Errorf("create casbin enforcer: %w", err)
	}

	if err := enforcer.LoadPolicy(); err != nil {
		return nil, fmt.Errorf("load casbin policies: %w", err)
	}

	return enforcer, nil
}

// NewCasbinGate builds a gate over a fresh enforcer.
func NewCasbinGate() (*CasbinGate, error) {
	enforcer, err := InitEnforcer()
	if err != nil {
		return nil, err
	}
	return &CasbinGate{enforcer: enforcer}, nil
}

// RequireAdmin allows super admins and admin-family owners of the farm.
func (g *CasbinGate) RequireAdmin(actor Actor, farm *models.Farm) error {
	return g.require(actor, farm, FarmAdmin)
}

// RequireScoutOfFarm allows super admins and the scout assigned to the farm.
func (g *CasbinGate) RequireScoutOfFarm(actor Actor, farm *models.Farm) error {
	return g.require(actor, farm, FarmScout)
}

// RequireViewAccess allows anyone with admin or scout access and edge sync devices.
func (g *CasbinGate) RequireViewAccess(actor Actor, farm *models.Farm) error {
	return g.require(actor, farm, FarmView)
}

// HasViewAccess is RequireViewAccess as a predicate.
func (g *CasbinGate) HasViewAccess(actor Actor, farm *models.Farm) bool {
	return g.require(actor, farm, FarmView) == nil
}

func (g *CasbinGate) require(actor Actor, farm *models.Farm, action string) error {
	if actor.IsZero() {
		return apperr.Unauthorized("authentication required")
	}

	for _, rel := range relations(actor, farm) {
		ok, err := g.enforcer.Enforce(string(actor.Role), rel, action)
		if err != nil {
			return fmt.Errorf("enforce %s: %w", action, err)
		}
		if ok {
			return nil
		}
	}

	return apperr.Forbidden("%s %s is not allowed %s on farm %s", actor.Role, actor.ID, action, farm.ID)
}

func relations(actor Actor, farm *models.Farm) []string {
	var rels []string
	if farm.OwnerID != nil && *farm.OwnerID == actor.ID {
		rels = append(rels, RelationOwner)
	}
	if farm.ScoutID != nil && *farm.ScoutID == actor.ID {
		rels = append(rels, RelationScout)
	}
	return append(rels, RelationNone)
}
