package tracking

import (
	"context"
	"fmt"
	"sync"

	"github.com/koscakluka/overlay-core/core/scene"
	"golang.org/x/sync/singleflight"
)

// ModelSelector resolves a reference object name to the asset that
// visualizes it, falling back to a default asset.
type ModelSelector struct {
	defaultAsset string
	assets       map[string]string
}

func NewModelSelector(defaultAsset string, assets map[string]string) ModelSelector {
	copied := make(map[string]string, len(assets))
	for referenceName, asset := range assets {
		copied[referenceName] = asset
	}
	return ModelSelector{defaultAsset: defaultAsset, assets: copied}
}

func (s ModelSelector) AssetFor(referenceName string) string {
	if asset, ok := s.assets[referenceName]; ok && asset != "" {
		return asset
	}
	return s.defaultAsset
}

func (s ModelSelector) DefaultAsset() string { return s.defaultAsset }

// modelCache loads every asset once and hands out independent clones.
// Concurrent first requests for the same asset share one load.
type modelCache struct {
	loader scene.AssetLoader
	group  singleflight.Group

	mu         sync.RWMutex
	prototypes map[string]scene.Entity
}

func newModelCache(loader scene.AssetLoader) *modelCache {
	return &modelCache{loader: loader, prototypes: map[string]scene.Entity{}}
}

// prototype waits for the asset's prototype. The load itself runs under
// shared so that one anchor giving up does not fail the others waiting on
// it; ctx only bounds this caller's wait.
func (c *modelCache) prototype(ctx, shared context.Context, asset string) (scene.Entity, error) {
	c.mu.RLock()
	prototype, ok := c.prototypes[asset]
	c.mu.RUnlock()
	if ok {
		return prototype, nil
	}

	results := c.group.DoChan(asset, func() (any, error) {
		loaded, err := c.loader.Load(shared, asset)
		if err != nil {
			return scene.Entity{}, err
		}

		c.mu.Lock()
		c.prototypes[asset] = loaded
		c.mu.Unlock()
		return loaded, nil
	})

	select {
	case <-ctx.Done():
		return scene.Entity{}, ctx.Err()
	case result := <-results:
		if result.Err != nil {
			return scene.Entity{}, result.Err
		}
		return result.Val.(scene.Entity), nil
	}
}

// instance returns a fresh clone of asset. Failed loads are not cached.
func (c *modelCache) instance(ctx, shared context.Context, asset string) (scene.Entity, error) {
	prototype, err := c.prototype(ctx, shared, asset)
	if err != nil {
		return scene.Entity{}, err
	}
	if err := ctx.Err(); err != nil {
		return scene.Entity{}, err
	}

	clone, err := c.loader.Clone(ctx, prototype)
	if err != nil {
		return scene.Entity{}, fmt.Errorf("failed to clone asset %q: %w", asset, err)
	}
	return clone, nil
}
