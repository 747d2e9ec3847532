package commands

import (
	"fmt"

	"github.com/koscakluka/overlay-core/core/components"
	"github.com/koscakluka/overlay-core/core/tracking"
	"github.com/koscakluka/overlay-core/core/voice"
	"github.com/koscakluka/overlay-core/internal/config"
	"github.com/koscakluka/overlay-core/internal/printer"
)

// loadCatalog reads the catalog at path, falling back to OVERLAY_CATALOG
// and then to the built-in catalog. A catalog that fails to load is fatal.
func loadCatalog(path string) (*config.Catalog, error) {
	if path == "" {
		path = cfg.CatalogPath
	}
	if path == "" {
		return config.DefaultCatalog(), nil
	}

	catalog, err := config.LoadCatalog(path)
	if err != nil {
		return nil, printer.Error(
			"failed to load reference object catalog",
			err.Error(),
			[]string{fmt.Sprintf("Run 'overlay catalog validate %s' for details", path)},
		)
	}
	return catalog, nil
}

func processorOptions(catalog *config.Catalog) []tracking.ProcessorOption {
	return []tracking.ProcessorOption{
		tracking.WithReferenceName(catalog.ReferenceName()),
		tracking.WithModelSelector(catalog.Selector()),
	}
}

func sessionOptions() []voice.SessionOption {
	opts := []voice.SessionOption{voice.WithSleepAfter(cfg.SleepAfter)}
	if len(cfg.WakePhrases) > 0 {
		opts = append(opts, voice.WithWakePhrases(cfg.WakePhrases...))
	}
	if len(cfg.SleepPhrases) > 0 {
		opts = append(opts, voice.WithSleepPhrases(cfg.SleepPhrases...))
	}
	return opts
}

func applierOptions(animations bool) []components.ApplierOption {
	return []components.ApplierOption{components.WithAnimations(animations && cfg.Animations)}
}
