package components

import (
	"strings"
	"sync"

	"github.com/koscakluka/overlay-core/core/commands"
	"github.com/koscakluka/overlay-core/core/posemath"
	"github.com/koscakluka/overlay-core/core/scene"
)

// Component is one toggleable part of a loaded model.
type Component struct {
	ID       commands.Component
	Entity   scene.Entity
	Enabled  bool
	Baseline posemath.Pose

	// generation invalidates delayed settle checks from earlier changes.
	generation uint64
}

// Registry holds the components discovered in the current model. It is
// written by the Applier loop only.
type Registry struct {
	mu         sync.RWMutex
	components map[commands.Component]*Component
}

func NewRegistry() *Registry {
	return &Registry{components: map[commands.Component]*Component{}}
}

func (r *Registry) register(id commands.Component, entity scene.Entity, baseline posemath.Pose) {
	r.mu.Lock()
	defer r.mu.Unlock()

	r.components[id] = &Component{ID: id, Entity: entity, Enabled: true, Baseline: baseline}
}

func (r *Registry) reset() {
	r.mu.Lock()
	defer r.mu.Unlock()

	r.components = map[commands.Component]*Component{}
}

func (r *Registry) lookup(id commands.Component) (*Component, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	c, ok := r.components[id]
	return c, ok
}

func (r *Registry) update(c *Component, mutate func(*Component)) {
	r.mu.Lock()
	defer r.mu.Unlock()

	mutate(c)
}

// Get returns a copy of the registered component.
func (r *Registry) Get(id commands.Component) (Component, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	c, ok := r.components[id]
	if !ok {
		return Component{}, false
	}
	return *c, true
}

// Registered returns the registered component IDs in catalog order.
func (r *Registry) Registered() []commands.Component {
	r.mu.RLock()
	defer r.mu.RUnlock()

	var registered []commands.Component
	for _, id := range commands.Catalog() {
		if _, ok := r.components[id]; ok {
			registered = append(registered, id)
		}
	}
	return registered
}

func (r *Registry) Len() int {
	r.mu.RLock()
	defer r.mu.RUnlock()

	return len(r.components)
}

var nameVariants = map[string]commands.Component{
	"softtissue":  commands.SoftTissue,
	"soft_tissue": commands.SoftTissue,
	"tumors":      commands.Tumers,
	"tumor":       commands.Tumers,
}

// ComponentForName maps an entity name from a model file to a component.
func ComponentForName(name string) (commands.Component, bool) {
	if name == "" {
		return commands.NoComponent, false
	}
	if id, ok := commands.ParseComponent(name); ok && id != commands.All {
		return id, true
	}

	lowered := strings.ToLower(name)
	if id, ok := nameVariants[lowered]; ok {
		return id, true
	}
	if strings.Contains(lowered, "soft") && strings.Contains(lowered, "tissue") {
		return commands.SoftTissue, true
	}
	if strings.Contains(lowered, "tumor") {
		return commands.Tumers, true
	}
	return commands.NoComponent, false
}

// Discover walks the entity tree under root and returns the entity found for
// each component. The first entity in depth-first order wins. When nothing
// matched by name and root has exactly one child per catalog entry, the
// children are assigned in catalog order.
func Discover(renderer scene.Renderer, root scene.Entity) map[commands.Component]scene.Entity {
	found := map[commands.Component]scene.Entity{}

	var walk func(entity scene.Entity)
	walk = func(entity scene.Entity) {
		if id, ok := ComponentForName(entity.Name); ok {
			if _, seen := found[id]; !seen {
				found[id] = entity
			}
		}
		for _, child := range renderer.Children(entity) {
			walk(child)
		}
	}
	walk(root)

	if len(found) > 0 {
		return found
	}

	children := renderer.Children(root)
	catalog := commands.Catalog()
	if len(children) == len(catalog) {
		for i, id := range catalog {
			found[id] = children[i]
		}
	}
	return found
}
