package pricing

import (
	"context"
	"fmt"
	"os"

	"github.com/fsnotify/fsnotify"
	"gopkg.in/yaml.v3"

	"reelsmith/internal/logging"
)

// catalogFile is the YAML shape of an on-disk pricing catalog.
type catalogFile struct {
	Providers map[string]Price `yaml:"providers"`
}

// LoadTable reads a pricing catalog from a YAML file. Entries overlay the
// defaults, so a partial file only overrides what it names.
func LoadTable(path string) (Table, error) {
	raw, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read pricing catalog %s: %w", path, err)
	}

	var cf catalogFile
	if err := yaml.Unmarshal(raw, &cf); err != nil {
		return nil, fmt.Errorf("parse pricing catalog %s: %w", path, err)
	}

	table := DefaultTable()
	for name, price := range cf.Providers {
		if price.USD < 0 {
			return nil, fmt.Errorf("pricing catalog %s: negative price for %q", path, name)
		}
		table[name] = price
	}
	return table, nil
}

// WatchCatalog reloads the estimator's table whenever the catalog file
// changes, until ctx is cancelled. A broken edit keeps the previous table
// in place.
func (e *Estimator) WatchCatalog(ctx context.Context, path string) error {
	watcher, err := fsnotify.NewWatcher()
	if err != nil {
		return fmt.Errorf("create catalog watcher: %w", err)
	}
	if err := watcher.Add(path); err != nil {
		watcher.Close()
		return fmt.Errorf("watch pricing catalog %s: %w", path, err)
	}

	log := logging.Get(logging.CategoryPricing)
	go func() {
		defer watcher.Close()
		for {
			select {
			case <-ctx.Done():
				return
			case event, ok := <-watcher.Events:
				if !ok {
					return
				}
				if !event.Has(fsnotify.Write) && !event.Has(fsnotify.Create) {
					continue
				}
				table, err := LoadTable(path)
				if err != nil {
					log.Warnf("pricing catalog reload failed, keeping previous table: %v", err)
					continue
				}
				e.SetTable(table)
				log.Infof("pricing catalog reloaded from %s (%d providers)", path, len(table))
			case err, ok := <-watcher.Errors:
				if !ok {
					return
				}
				log.Warnf("pricing catalog watcher error: %v", err)
			}
		}
	}()
	return nil
}
