package config

import (
	"errors"
	"fmt"
	"os"

	"github.com/invopop/jsonschema"
	"github.com/koscakluka/overlay-core/core/tracking"
	"gopkg.in/yaml.v3"
)

// Catalog lists the reference objects the tracker recognizes and the asset
// that visualizes each of them.
type Catalog struct {
	Reference    string            `yaml:"reference" json:"reference" jsonschema:"description=Name of the reference object that carries the model"`
	DefaultModel string            `yaml:"default_model" json:"default_model" jsonschema:"description=Asset used for objects without a model"`
	Objects      []ReferenceObject `yaml:"objects" json:"objects" jsonschema:"minItems=1"`
}

type ReferenceObject struct {
	Name  string `yaml:"name" json:"name" jsonschema:"minLength=1"`
	Model string `yaml:"model,omitempty" json:"model,omitempty"`
}

// LoadCatalog reads, parses and validates a catalog file.
func LoadCatalog(path string) (*Catalog, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read catalog: %w", err)
	}

	return ParseCatalog(data)
}

func ParseCatalog(data []byte) (*Catalog, error) {
	var catalog Catalog
	if err := yaml.Unmarshal(data, &catalog); err != nil {
		return nil, fmt.Errorf("failed to parse YAML: %w", err)
	}

	if err := catalog.Validate(); err != nil {
		return nil, fmt.Errorf("invalid catalog: %w", err)
	}

	return &catalog, nil
}

func (c *Catalog) Validate() error {
	if c.DefaultModel == "" {
		return errors.New("default_model is required")
	}
	if len(c.Objects) == 0 {
		return errors.New("at least one reference object is required")
	}

	seen := make(map[string]bool, len(c.Objects))
	for i, object := range c.Objects {
		if object.Name == "" {
			return fmt.Errorf("object %d: name is required", i)
		}
		if seen[object.Name] {
			return fmt.Errorf("duplicate reference object %q", object.Name)
		}
		seen[object.Name] = true
	}

	if c.Reference != "" && !seen[c.Reference] {
		return fmt.Errorf("reference %q is not listed in objects", c.Reference)
	}

	return nil
}

// ReferenceName is the configured reference object, or the tracker default.
func (c *Catalog) ReferenceName() string {
	if c.Reference != "" {
		return c.Reference
	}
	return tracking.DefaultReferenceName
}

func (c *Catalog) Selector() tracking.ModelSelector {
	assets := make(map[string]string, len(c.Objects))
	for _, object := range c.Objects {
		assets[object.Name] = object.Model
	}
	return tracking.NewModelSelector(c.DefaultModel, assets)
}

// DefaultCatalog maps the tracked phantom to the default model.
func DefaultCatalog() *Catalog {
	return &Catalog{
		Reference:    tracking.DefaultReferenceName,
		DefaultModel: "Phantom",
		Objects:      []ReferenceObject{{Name: tracking.DefaultReferenceName}},
	}
}

// CatalogSchema returns the JSON schema of the catalog file format.
func CatalogSchema() ([]byte, error) {
	reflector := jsonschema.Reflector{DoNotReference: true}
	schema := reflector.Reflect(&Catalog{})
	data, err := schema.MarshalJSON()
	if err != nil {
		return nil, fmt.Errorf("failed to marshal catalog schema: %w", err)
	}
	return data, nil
}
