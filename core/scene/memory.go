package scene

import (
	"context"
	"fmt"
	"slices"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/jinzhu/copier"
	"github.com/koscakluka/overlay-core/core/posemath"
)

// Node is a design-time description of an entity subtree. Assets registered
// with a Memory scene are described as Node trees.
type Node struct {
	Name     string
	Local    posemath.Pose
	Enabled  bool
	Children []*Node
}

// NewNode returns an enabled node at the identity pose.
func NewNode(name string, children ...*Node) *Node {
	return &Node{Name: name, Local: posemath.Identity(), Enabled: true, Children: children}
}

type Animation struct {
	To        posemath.Pose
	Duration  time.Duration
	Easing    Easing
	StartedAt time.Time
}

type OperationKind string

const (
	OpAttach         OperationKind = "attach"
	OpDetach         OperationKind = "detach"
	OpSetLocalPose   OperationKind = "set_local_pose"
	OpSetEnabled     OperationKind = "set_enabled"
	OpAnimate        OperationKind = "animate"
	OpStopAnimations OperationKind = "stop_animations"
)

// Operation records a mutating call made against a Memory scene.
type Operation struct {
	Kind    OperationKind
	Entity  Entity
	Parent  Entity
	Pose    posemath.Pose
	Enabled bool
}

type memoryNode struct {
	entity     Entity
	parent     uuid.UUID
	children   []uuid.UUID
	local      posemath.Pose
	enabled    bool
	animations []Animation
}

// Memory is an in-process scene graph and asset catalog. It backs the CLI
// simulator and the package tests.
type Memory struct {
	mu         sync.RWMutex
	root       Entity
	nodes      map[uuid.UUID]*memoryNode
	assets     map[string]*Node
	operations []Operation

	loadHook func(ctx context.Context, name string) error
	now      func() time.Time
}

type MemoryOption func(*Memory)

// WithLoadHook installs a hook that runs before every Load. Returning an
// error fails the load; blocking delays it.
func WithLoadHook(hook func(ctx context.Context, name string) error) MemoryOption {
	return func(m *Memory) { m.loadHook = hook }
}

func WithAsset(name string, tree *Node) MemoryOption {
	return func(m *Memory) { m.assets[name] = tree }
}

func NewMemory(opts ...MemoryOption) *Memory {
	m := &Memory{
		nodes:  map[uuid.UUID]*memoryNode{},
		assets: map[string]*Node{},
		now:    time.Now,
	}
	m.root = m.newNodeLocked("root")

	for _, opt := range opts {
		opt(m)
	}

	return m
}

func (m *Memory) AddAsset(name string, tree *Node) {
	m.mu.Lock()
	defer m.mu.Unlock()

	m.assets[name] = tree
}

func (m *Memory) Root() Entity { return m.root }

func (m *Memory) NewEntity(name string) (Entity, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	return m.newNodeLocked(name), nil
}

func (m *Memory) newNodeLocked(name string) Entity {
	entity := Entity{ID: uuid.New(), Name: name}
	m.nodes[entity.ID] = &memoryNode{entity: entity, local: posemath.Identity(), enabled: true}
	return entity
}

func (m *Memory) Load(ctx context.Context, name string) (Entity, error) {
	if m.loadHook != nil {
		if err := m.loadHook(ctx, name); err != nil {
			return Entity{}, &LoadError{Asset: name, Err: err}
		}
	}
	if err := ctx.Err(); err != nil {
		return Entity{}, &LoadError{Asset: name, Err: err}
	}

	m.mu.Lock()
	defer m.mu.Unlock()

	template, ok := m.assets[name]
	if !ok || template == nil {
		return Entity{}, &LoadError{Asset: name, Err: ErrAssetNotFound}
	}

	var instance Node
	if err := copier.CopyWithOption(&instance, template, copier.Option{DeepCopy: true}); err != nil {
		return Entity{}, &LoadError{Asset: name, Err: err}
	}

	return m.instantiateLocked(&instance, uuid.Nil), nil
}

func (m *Memory) Clone(_ context.Context, entity Entity) (Entity, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	if _, ok := m.nodes[entity.ID]; !ok {
		return Entity{}, fmt.Errorf("clone %s: %w", entity, ErrUnknownEntity)
	}

	return m.instantiateLocked(m.snapshotLocked(entity.ID), uuid.Nil), nil
}

func (m *Memory) snapshotLocked(id uuid.UUID) *Node {
	n := m.nodes[id]
	snapshot := &Node{Name: n.entity.Name, Local: n.local, Enabled: n.enabled}
	for _, childID := range n.children {
		snapshot.Children = append(snapshot.Children, m.snapshotLocked(childID))
	}
	return snapshot
}

func (m *Memory) instantiateLocked(tree *Node, parent uuid.UUID) Entity {
	entity := m.newNodeLocked(tree.Name)
	n := m.nodes[entity.ID]
	n.local = tree.Local
	n.enabled = tree.Enabled
	n.parent = parent

	for _, child := range tree.Children {
		childEntity := m.instantiateLocked(child, entity.ID)
		n.children = append(n.children, childEntity.ID)
	}
	return entity
}

func (m *Memory) Attach(child, parent Entity, offset posemath.Pose) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	c, ok := m.nodes[child.ID]
	if !ok {
		return fmt.Errorf("attach %s: %w", child, ErrUnknownEntity)
	}
	p, ok := m.nodes[parent.ID]
	if !ok {
		return fmt.Errorf("attach to %s: %w", parent, ErrUnknownEntity)
	}

	m.unlinkLocked(c)
	c.parent = parent.ID
	c.local = offset
	p.children = append(p.children, child.ID)

	m.record(Operation{Kind: OpAttach, Entity: child, Parent: parent, Pose: offset})
	return nil
}

func (m *Memory) Detach(entity Entity) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	n, ok := m.nodes[entity.ID]
	if !ok {
		return fmt.Errorf("detach %s: %w", entity, ErrUnknownEntity)
	}

	m.unlinkLocked(n)
	m.record(Operation{Kind: OpDetach, Entity: entity})
	return nil
}

func (m *Memory) unlinkLocked(n *memoryNode) {
	if n.parent == uuid.Nil {
		return
	}
	if p, ok := m.nodes[n.parent]; ok {
		p.children = slices.DeleteFunc(p.children, func(id uuid.UUID) bool { return id == n.entity.ID })
	}
	n.parent = uuid.Nil
}

func (m *Memory) SetLocalPose(entity Entity, pose posemath.Pose) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	n, ok := m.nodes[entity.ID]
	if !ok {
		return fmt.Errorf("set local pose of %s: %w", entity, ErrUnknownEntity)
	}

	n.local = pose
	m.record(Operation{Kind: OpSetLocalPose, Entity: entity, Pose: pose})
	return nil
}

func (m *Memory) SetEnabled(entity Entity, enabled bool) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	n, ok := m.nodes[entity.ID]
	if !ok {
		return fmt.Errorf("set enabled of %s: %w", entity, ErrUnknownEntity)
	}

	n.enabled = enabled
	m.record(Operation{Kind: OpSetEnabled, Entity: entity, Enabled: enabled})
	return nil
}

// Animate records the animation and moves the entity to its target pose
// right away; the memory scene has no frame clock.
func (m *Memory) Animate(entity Entity, to posemath.Pose, duration time.Duration, easing Easing) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	n, ok := m.nodes[entity.ID]
	if !ok {
		return fmt.Errorf("animate %s: %w", entity, ErrUnknownEntity)
	}

	n.animations = append(n.animations, Animation{To: to, Duration: duration, Easing: easing, StartedAt: m.now()})
	n.local = to
	m.record(Operation{Kind: OpAnimate, Entity: entity, Pose: to})
	return nil
}

func (m *Memory) StopAnimations(entity Entity) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	n, ok := m.nodes[entity.ID]
	if !ok {
		return fmt.Errorf("stop animations of %s: %w", entity, ErrUnknownEntity)
	}

	n.animations = nil
	m.record(Operation{Kind: OpStopAnimations, Entity: entity})
	return nil
}

func (m *Memory) LocalPose(entity Entity) (posemath.Pose, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	n, ok := m.nodes[entity.ID]
	if !ok {
		return posemath.Identity(), fmt.Errorf("local pose of %s: %w", entity, ErrUnknownEntity)
	}
	return n.local, nil
}

func (m *Memory) WorldPose(entity Entity) (posemath.Pose, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	n, ok := m.nodes[entity.ID]
	if !ok {
		return posemath.Identity(), fmt.Errorf("world pose of %s: %w", entity, ErrUnknownEntity)
	}

	world := n.local
	for parentID := n.parent; parentID != uuid.Nil; {
		p, ok := m.nodes[parentID]
		if !ok {
			break
		}
		world = posemath.Compose(p.local, world)
		parentID = p.parent
	}
	return world, nil
}

func (m *Memory) Parent(entity Entity) (Entity, bool) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	n, ok := m.nodes[entity.ID]
	if !ok || n.parent == uuid.Nil {
		return Entity{}, false
	}
	return m.nodes[n.parent].entity, true
}

func (m *Memory) Children(entity Entity) []Entity {
	m.mu.RLock()
	defer m.mu.RUnlock()

	n, ok := m.nodes[entity.ID]
	if !ok {
		return nil
	}

	children := make([]Entity, 0, len(n.children))
	for _, id := range n.children {
		children = append(children, m.nodes[id].entity)
	}
	return children
}

// IsEnabled reports the entity's own enabled flag.
func (m *Memory) IsEnabled(entity Entity) bool {
	m.mu.RLock()
	defer m.mu.RUnlock()

	n, ok := m.nodes[entity.ID]
	return ok && n.enabled
}

// IsAttached reports whether the entity is reachable from the scene root.
func (m *Memory) IsAttached(entity Entity) bool {
	m.mu.RLock()
	defer m.mu.RUnlock()

	n, ok := m.nodes[entity.ID]
	for ok {
		if n.entity.ID == m.root.ID {
			return true
		}
		n, ok = m.nodes[n.parent]
	}
	return false
}

func (m *Memory) Animations(entity Entity) []Animation {
	m.mu.RLock()
	defer m.mu.RUnlock()

	n, ok := m.nodes[entity.ID]
	if !ok {
		return nil
	}
	return slices.Clone(n.animations)
}

// Operations returns a copy of every mutating call recorded so far.
func (m *Memory) Operations() []Operation {
	m.mu.RLock()
	defer m.mu.RUnlock()

	return slices.Clone(m.operations)
}

func (m *Memory) record(op Operation) {
	m.operations = append(m.operations, op)
}
