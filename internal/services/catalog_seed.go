package services

import (
	"context"
	"errors"
	"fmt"
	"log"
	"os"
	"path/filepath"
	"time"

	"pcbuilder/internal/models"
	"pcbuilder/internal/store"

	"github.com/fsnotify/fsnotify"
	"gopkg.in/yaml.v3"
)

// seedFile is the YAML layout of a catalog seed:
//
//	components:
//	  - type: CPU
//	    brand: AMD
//	    modelName: Ryzen 5 5600X
//	    socket: AM4
//	    price: 199
//	    specs:
//	      powerDraw: 65
type seedFile struct {
	Components []seedComponent `yaml:"components"`
}

type seedComponent struct {
	Type      string                 `yaml:"type"`
	Brand     string                 `yaml:"brand"`
	ModelName string                 `yaml:"modelName"`
	Socket    string                 `yaml:"socket"`
	Price     float64                `yaml:"price"`
	Specs     map[string]interface{} `yaml:"specs"`
}

// SeedResult counts what a seed run did.
type SeedResult struct {
	Inserted int
	Skipped  int
}

// LoadSeedFile parses a YAML catalog seed.
func LoadSeedFile(path string) ([]models.Component, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read seed file: %w", err)
	}

	var seed seedFile
	if err := yaml.Unmarshal(data, &seed); err != nil {
		return nil, fmt.Errorf("failed to parse seed file: %w", err)
	}

	components := make([]models.Component, 0, len(seed.Components))
	for i, c := range seed.Components {
		if models.NormalizeModelName(c.ModelName) == "" || c.Type == "" {
			return nil, fmt.Errorf("seed entry %d: type and modelName are required", i)
		}
		components = append(components, models.Component{
			Type:      c.Type,
			Brand:     c.Brand,
			ModelName: c.ModelName,
			Socket:    c.Socket,
			Price:     c.Price,
			Specs:     c.Specs,
		})
	}
	return components, nil
}

// SeedCatalog inserts the seed entries whose model is not yet in the catalog.
// Existing entries are left untouched.
func SeedCatalog(ctx context.Context, catalog store.ComponentStore, path string) (SeedResult, error) {
	var result SeedResult

	components, err := LoadSeedFile(path)
	if err != nil {
		return result, err
	}

	for i := range components {
		_, err := catalog.Insert(ctx, &components[i])
		switch {
		case errors.Is(err, store.ErrDuplicate):
			result.Skipped++
		case err != nil:
			return result, fmt.Errorf("failed to seed %q: %w", components[i].ModelName, err)
		default:
			result.Inserted++
		}
	}
	return result, nil
}

// WatchSeedFile re-runs SeedCatalog whenever the file is written, until ctx
// is cancelled.
func WatchSeedFile(ctx context.Context, catalog store.ComponentStore, path string) error {
	watcher, err := fsnotify.NewWatcher()
	if err != nil {
		return fmt.Errorf("failed to create file watcher: %w", err)
	}

	absPath, err := filepath.Abs(path)
	if err != nil {
		watcher.Close()
		return fmt.Errorf("failed to get absolute path for %s: %w", path, err)
	}

	// Watch the directory; editors often replace the file instead of writing it.
	if err := watcher.Add(filepath.Dir(absPath)); err != nil {
		watcher.Close()
		return fmt.Errorf("failed to watch %s: %w", filepath.Dir(absPath), err)
	}
	filename := filepath.Base(absPath)

	log.Printf("👁️  Watching %s for catalog changes", path)

	go func() {
		defer watcher.Close()

		var debounceTimer *time.Timer
		debounceDuration := 500 * time.Millisecond

		for {
			select {
			case <-ctx.Done():
				if debounceTimer != nil {
					debounceTimer.Stop()
				}
				return

			case event, ok := <-watcher.Events:
				if !ok {
					return
				}
				if filepath.Base(event.Name) != filename {
					continue
				}
				if !event.Has(fsnotify.Write) && !event.Has(fsnotify.Create) {
					continue
				}

				if debounceTimer != nil {
					debounceTimer.Stop()
				}
				debounceTimer = time.AfterFunc(debounceDuration, func() {
					result, err := SeedCatalog(ctx, catalog, path)
					if err != nil {
						log.Printf("❌ Failed to re-seed catalog from %s: %v", path, err)
						return
					}
					log.Printf("✅ Catalog re-seeded from %s (%d inserted, %d already present)",
						path, result.Inserted, result.Skipped)
				})

			case err, ok := <-watcher.Errors:
				if !ok {
					return
				}
				log.Printf("⚠️  File watcher error: %v", err)
			}
		}
	}()

	return nil
}
