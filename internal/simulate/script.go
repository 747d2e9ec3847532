// Package simulate replays scripted anchor and transcript input through an
// orchestrator backed by the in-memory scene.
package simulate

import (
	"errors"
	"fmt"
	"os"
	"time"

	"github.com/go-gl/mathgl/mgl64"
	"github.com/google/uuid"
	"github.com/koscakluka/overlay-core/core/posemath"
	"github.com/koscakluka/overlay-core/core/scene"
	"github.com/koscakluka/overlay-core/core/tracking"
	"gopkg.in/yaml.v3"
)

// Script describes the assets of the in-memory scene and the input steps
// replayed against it.
type Script struct {
	Assets []Asset `yaml:"assets"`
	Steps  []Step  `yaml:"steps"`
}

type Asset struct {
	Name string   `yaml:"name"`
	Root NodeSpec `yaml:"root"`
}

type NodeSpec struct {
	Name     string     `yaml:"name"`
	Position [3]float64 `yaml:"position,omitempty"`
	Scale    float64    `yaml:"scale,omitempty"`
	Hidden   bool       `yaml:"hidden,omitempty"`
	Children []NodeSpec `yaml:"children,omitempty"`
}

// Step is one scripted input. Exactly one of its fields is set.
type Step struct {
	Add    *AnchorSpec   `yaml:"add,omitempty"`
	Update *AnchorSpec   `yaml:"update,omitempty"`
	Remove *AnchorSpec   `yaml:"remove,omitempty"`
	Say    *SaySpec      `yaml:"say,omitempty"`
	Wait   time.Duration `yaml:"wait,omitempty"`
}

// AnchorSpec places an anchor in world space. Rotation holds XYZ Euler
// angles in degrees.
type AnchorSpec struct {
	ID        string     `yaml:"id"`
	Reference string     `yaml:"reference,omitempty"`
	Position  [3]float64 `yaml:"position,omitempty"`
	Rotation  [3]float64 `yaml:"rotation,omitempty"`
}

type SaySpec struct {
	Text    string `yaml:"text"`
	Partial bool   `yaml:"partial,omitempty"`
}

func LoadScript(path string) (*Script, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read script: %w", err)
	}

	return ParseScript(data)
}

func ParseScript(data []byte) (*Script, error) {
	var script Script
	if err := yaml.Unmarshal(data, &script); err != nil {
		return nil, fmt.Errorf("failed to parse YAML: %w", err)
	}

	if err := script.Validate(); err != nil {
		return nil, fmt.Errorf("invalid script: %w", err)
	}

	return &script, nil
}

func (s *Script) Validate() error {
	assets := make(map[string]bool, len(s.Assets))
	for i, asset := range s.Assets {
		if asset.Name == "" {
			return fmt.Errorf("asset %d: name is required", i)
		}
		if assets[asset.Name] {
			return fmt.Errorf("duplicate asset %q", asset.Name)
		}
		assets[asset.Name] = true
	}

	for i, step := range s.Steps {
		if err := step.validate(); err != nil {
			return fmt.Errorf("step %d: %w", i, err)
		}
	}
	return nil
}

func (s Step) validate() error {
	set := 0
	for _, present := range []bool{s.Add != nil, s.Update != nil, s.Remove != nil, s.Say != nil, s.Wait != 0} {
		if present {
			set++
		}
	}
	if set != 1 {
		return errors.New("exactly one of add, update, remove, say or wait must be set")
	}

	for _, anchor := range []*AnchorSpec{s.Add, s.Update, s.Remove} {
		if anchor != nil && anchor.ID == "" {
			return errors.New("anchor id is required")
		}
	}
	if s.Wait < 0 {
		return errors.New("wait must be positive")
	}
	return nil
}

// AnchorID maps a script anchor id to a stable UUID.
func AnchorID(id string) uuid.UUID {
	return uuid.NewSHA1(uuid.NameSpaceOID, []byte(id))
}

func (a AnchorSpec) referenceName() string {
	if a.Reference != "" {
		return a.Reference
	}
	return tracking.DefaultReferenceName
}

func (a AnchorSpec) pose() posemath.Pose {
	return posemath.FromRotationTranslation(
		posemath.EulerRotation(a.Rotation[0], a.Rotation[1], a.Rotation[2]),
		mgl64.Vec3(a.Position),
	)
}

func (a AnchorSpec) event(kind tracking.AnchorEventKind) tracking.AnchorEvent {
	switch kind {
	case tracking.AnchorAdded:
		return tracking.Added(AnchorID(a.ID), a.referenceName(), a.pose())
	case tracking.AnchorUpdated:
		return tracking.Updated(AnchorID(a.ID), a.referenceName(), a.pose())
	default:
		return tracking.Removed(AnchorID(a.ID), a.referenceName())
	}
}

func (n NodeSpec) node() *scene.Node {
	node := scene.NewNode(n.Name)
	node.Local = posemath.TranslationOnly(mgl64.Vec3(n.Position))
	if n.Scale != 0 {
		node.Local = posemath.WithScale(node.Local, n.Scale)
	}
	node.Enabled = !n.Hidden
	for _, child := range n.Children {
		node.Children = append(node.Children, child.node())
	}
	return node
}

// NewScene builds the in-memory scene holding the script assets.
func (s *Script) NewScene() *scene.Memory {
	opts := make([]scene.MemoryOption, 0, len(s.Assets))
	for _, asset := range s.Assets {
		opts = append(opts, scene.WithAsset(asset.Name, asset.Root.node()))
	}
	return scene.NewMemory(opts...)
}
