package components

import (
	"context"
	"testing"

	"github.com/koscakluka/overlay-core/core/commands"
	"github.com/koscakluka/overlay-core/core/scene"
)

func TestComponentForName(t *testing.T) {
	testCases := []struct {
		name     string
		expected commands.Component
		ok       bool
	}{
		{name: "Bone", expected: commands.Bone, ok: true},
		{name: "VENTRICLES", expected: commands.Ventricles, ok: true},
		{name: "Soft Tissue", expected: commands.SoftTissue, ok: true},
		{name: "SoftTissue", expected: commands.SoftTissue, ok: true},
		{name: "Soft_Tissue", expected: commands.SoftTissue, ok: true},
		{name: "mesh_soft_tissue_lod0", expected: commands.SoftTissue, ok: true},
		{name: "Tumors", expected: commands.Tumers, ok: true},
		{name: "tumor_left", expected: commands.Tumers, ok: true},
		{name: "all", ok: false},
		{name: "", ok: false},
		{name: "Cube", ok: false},
	}

	for _, testCase := range testCases {
		got, ok := ComponentForName(testCase.name)
		if ok != testCase.ok || got != testCase.expected {
			t.Fatalf("expected %q to map to (%s, %t), got (%s, %t)", testCase.name, testCase.expected, testCase.ok, got, ok)
		}
	}
}

func loadModel(t *testing.T, tree *scene.Node) (*scene.Memory, scene.Entity) {
	t.Helper()

	mem := scene.NewMemory(scene.WithAsset("model", tree))
	model, err := mem.Load(context.Background(), "model")
	if err != nil {
		t.Fatalf("expected model to load, got %v", err)
	}
	return mem, model
}

func TestDiscoverByName(t *testing.T) {
	mem, model := loadModel(t, scene.NewNode("Root",
		scene.NewNode("Group",
			scene.NewNode("Bone"),
			scene.NewNode("Tumor_A"),
		),
		scene.NewNode("Tumor_B"),
		scene.NewNode("Ventricles"),
	))

	found := Discover(mem, model)
	if len(found) != 3 {
		t.Fatalf("expected 3 components, got %d: %v", len(found), found)
	}
	if got := found[commands.Tumers].Name; got != "Tumor_A" {
		t.Fatalf("expected the first tumor in depth-first order, got %q", got)
	}
	if got := found[commands.Bone].Name; got != "Bone" {
		t.Fatalf("expected Bone, got %q", got)
	}
}

func TestDiscoverFallsBackToChildIndex(t *testing.T) {
	var children []*scene.Node
	for i := 0; i < len(commands.Catalog()); i++ {
		children = append(children, scene.NewNode("mesh"))
	}
	mem, model := loadModel(t, scene.NewNode("Root", children...))

	found := Discover(mem, model)
	meshes := mem.Children(model)
	for i, id := range commands.Catalog() {
		if found[id] != meshes[i] {
			t.Fatalf("expected %s to map to child %d", id, i)
		}
	}
}

func TestDiscoverSkipsIndexFallbackWhenShapeDiffers(t *testing.T) {
	mem, model := loadModel(t, scene.NewNode("Root", scene.NewNode("a"), scene.NewNode("b")))

	if found := Discover(mem, model); len(found) != 0 {
		t.Fatalf("expected no components, got %v", found)
	}
}
