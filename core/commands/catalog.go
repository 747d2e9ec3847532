package commands

import "strings"

// Component identifies one named part of the anatomical model. The set is
// closed; voice input is looked up against it rather than used as a key.
type Component int

const (
	NoComponent Component = iota
	Bone
	Brain
	Skin
	SoftTissue
	Temporalis
	Tumers
	Venous
	Ventricles

	// All targets every component in the catalog.
	All
)

var catalog = []Component{Bone, Brain, Skin, SoftTissue, Temporalis, Tumers, Venous, Ventricles}

var componentNames = map[Component]string{
	Bone:       "Bone",
	Brain:      "Brain",
	Skin:       "Skin",
	SoftTissue: "Soft Tissue",
	Temporalis: "Temporalis",
	Tumers:     "Tumers",
	Venous:     "Venous",
	Ventricles: "Ventricles",
	All:        "all",
}

// Catalog returns the components in their canonical order. The order is
// also the tie-break order of fuzzy matching.
func Catalog() []Component {
	out := make([]Component, len(catalog))
	copy(out, catalog)
	return out
}

func CatalogNames() []string {
	names := make([]string, 0, len(catalog))
	for _, component := range catalog {
		names = append(names, component.String())
	}
	return names
}

func (c Component) String() string {
	if name, ok := componentNames[c]; ok {
		return name
	}
	return "none"
}

// ParseComponent looks a canonical name up case-insensitively. "all" maps to
// All.
func ParseComponent(name string) (Component, bool) {
	name = strings.TrimSpace(name)
	for component, canonical := range componentNames {
		if strings.EqualFold(canonical, name) {
			return component, true
		}
	}
	return NoComponent, false
}
