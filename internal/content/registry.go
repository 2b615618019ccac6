package content

import (
	"errors"
	"fmt"
	"sort"
)

// ErrUnknownID is matched (via errors.Is) by every lookup failure.
var ErrUnknownID = errors.New("unknown id")

// UnknownIDError reports a lookup for an id that is not in the registry.
type UnknownIDError struct {
	Kind string
	ID   string
}

func (e *UnknownIDError) Error() string {
	return fmt.Sprintf("unknown %s %q", e.Kind, e.ID)
}

// Is lets errors.Is(err, ErrUnknownID) match any UnknownIDError.
func (e *UnknownIDError) Is(target error) bool {
	return target == ErrUnknownID
}

func unknown(kind, id string) error {
	return &UnknownIDError{Kind: kind, ID: id}
}

// Registry is the validated, read-only view of a Catalog.
// It is safe for concurrent reads.
type Registry struct {
	economy EconomyDef

	resources    map[ResourceID]*ResourceDef
	recipes      map[RecipeID]*RecipeDef
	technologies map[TechnologyID]*TechnologyDef
	modules      map[ModuleID]*ModuleDef
	missions     map[MissionID]*MissionDef

	resourceOrder []ResourceID
	missionOrder  []MissionID
}

// NewRegistry indexes a catalog and checks referential integrity: every
// id referenced by a recipe, technology, module or mission must exist.
func NewRegistry(c Catalog) (*Registry, error) {
	r := &Registry{
		economy:      c.Economy,
		resources:    make(map[ResourceID]*ResourceDef, len(c.Resources)),
		recipes:      make(map[RecipeID]*RecipeDef, len(c.Recipes)),
		technologies: make(map[TechnologyID]*TechnologyDef, len(c.Technologies)),
		modules:      make(map[ModuleID]*ModuleDef, len(c.Modules)),
		missions:     make(map[MissionID]*MissionDef, len(c.Missions)),
	}

	for i := range c.Resources {
		def := &c.Resources[i]
		if _, dup := r.resources[def.ID]; dup {
			return nil, fmt.Errorf("duplicate resource %q", def.ID)
		}
		r.resources[def.ID] = def
		r.resourceOrder = append(r.resourceOrder, def.ID)
	}
	for i := range c.Recipes {
		def := &c.Recipes[i]
		if _, dup := r.recipes[def.ID]; dup {
			return nil, fmt.Errorf("duplicate recipe %q", def.ID)
		}
		r.recipes[def.ID] = def
	}
	for i := range c.Technologies {
		def := &c.Technologies[i]
		if _, dup := r.technologies[def.ID]; dup {
			return nil, fmt.Errorf("duplicate technology %q", def.ID)
		}
		r.technologies[def.ID] = def
	}
	for i := range c.Modules {
		def := &c.Modules[i]
		if _, dup := r.modules[def.ID]; dup {
			return nil, fmt.Errorf("duplicate module %q", def.ID)
		}
		r.modules[def.ID] = def
	}
	for i := range c.Missions {
		def := &c.Missions[i]
		if _, dup := r.missions[def.ID]; dup {
			return nil, fmt.Errorf("duplicate mission %q", def.ID)
		}
		r.missions[def.ID] = def
		r.missionOrder = append(r.missionOrder, def.ID)
	}

	// Stable so missions sharing a chapter keep file order.
	sort.SliceStable(r.missionOrder, func(i, j int) bool {
		return r.missions[r.missionOrder[i]].Chapter < r.missions[r.missionOrder[j]].Chapter
	})

	if err := r.checkReferences(); err != nil {
		return nil, err
	}
	return r, nil
}

func (r *Registry) checkReferences() error {
	for _, rec := range r.recipes {
		for _, in := range rec.Inputs {
			if _, err := r.Resource(in.Resource); err != nil {
				return fmt.Errorf("recipe %q input: %w", rec.ID, err)
			}
		}
		if _, err := r.Resource(rec.Output.Resource); err != nil {
			return fmt.Errorf("recipe %q output: %w", rec.ID, err)
		}
	}
	for _, tech := range r.technologies {
		if _, err := r.Module(tech.Module); err != nil {
			return fmt.Errorf("technology %q: %w", tech.ID, err)
		}
		for _, pre := range tech.Prerequisites {
			if _, err := r.Technology(pre); err != nil {
				return fmt.Errorf("technology %q prerequisite: %w", tech.ID, err)
			}
		}
		for _, rec := range tech.Unlocks.Recipes {
			if _, err := r.Recipe(rec); err != nil {
				return fmt.Errorf("technology %q unlock: %w", tech.ID, err)
			}
		}
	}
	for _, mod := range r.modules {
		for _, res := range mod.BaseResources {
			if _, err := r.Resource(res); err != nil {
				return fmt.Errorf("module %q: %w", mod.ID, err)
			}
		}
		for _, rec := range mod.BaseRecipes {
			if _, err := r.Recipe(rec); err != nil {
				return fmt.Errorf("module %q: %w", mod.ID, err)
			}
		}
	}
	for _, id := range r.economy.StarterModules {
		if _, err := r.Module(id); err != nil {
			return fmt.Errorf("economy starter module: %w", err)
		}
	}
	if r.economy.FirstMission != "" {
		if _, err := r.Mission(r.economy.FirstMission); err != nil {
			return fmt.Errorf("economy first mission: %w", err)
		}
	}
	for _, m := range r.missions {
		for _, c := range m.Conditions {
			if err := r.checkCondition(c); err != nil {
				return fmt.Errorf("mission %q: %w", m.ID, err)
			}
		}
		for res := range m.Rewards.Resources {
			if _, err := r.Resource(res); err != nil {
				return fmt.Errorf("mission %q reward: %w", m.ID, err)
			}
		}
		if m.Rewards.UnlockModule != "" {
			if _, err := r.Module(m.Rewards.UnlockModule); err != nil {
				return fmt.Errorf("mission %q reward: %w", m.ID, err)
			}
		}
	}
	return nil
}

func (r *Registry) checkCondition(c ConditionDef) error {
	var err error
	switch c.Type {
	case ConditionProduceResource, ConditionProductionRate:
		_, err = r.Resource(c.Resource)
	case ConditionResearchTech:
		_, err = r.Technology(c.Technology)
	case ConditionUnlockModule:
		_, err = r.Module(c.Module)
	}
	return err
}

// Economy returns the global tuning values.
func (r *Registry) Economy() EconomyDef {
	return r.economy
}

// Resource looks up a resource definition.
func (r *Registry) Resource(id ResourceID) (*ResourceDef, error) {
	def, ok := r.resources[id]
	if !ok {
		return nil, unknown("resource", string(id))
	}
	return def, nil
}

// Recipe looks up a recipe definition.
func (r *Registry) Recipe(id RecipeID) (*RecipeDef, error) {
	def, ok := r.recipes[id]
	if !ok {
		return nil, unknown("recipe", string(id))
	}
	return def, nil
}

// Technology looks up a technology definition.
func (r *Registry) Technology(id TechnologyID) (*TechnologyDef, error) {
	def, ok := r.technologies[id]
	if !ok {
		return nil, unknown("technology", string(id))
	}
	return def, nil
}

// Module looks up a module definition.
func (r *Registry) Module(id ModuleID) (*ModuleDef, error) {
	def, ok := r.modules[id]
	if !ok {
		return nil, unknown("module", string(id))
	}
	return def, nil
}

// Mission looks up a mission definition.
func (r *Registry) Mission(id MissionID) (*MissionDef, error) {
	def, ok := r.missions[id]
	if !ok {
		return nil, unknown("mission", string(id))
	}
	return def, nil
}

// Resources returns resource ids in declaration order.
func (r *Registry) Resources() []ResourceID {
	return append([]ResourceID(nil), r.resourceOrder...)
}

// Missions returns mission ids sorted by ascending chapter.
func (r *Registry) Missions() []MissionID {
	return append([]MissionID(nil), r.missionOrder...)
}
